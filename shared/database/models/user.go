package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActorTypeUser is the type tag used when a user shows up as the actor of
// an activity log entry.
const ActorTypeUser = "user"

type User struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email         string    `json:"email" gorm:"uniqueIndex;not null"`
	Username      string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	Password      string    `json:"-" gorm:"not null"`
	RememberToken string    `json:"-" gorm:"size:100"`
	UseTOTP       bool      `json:"use_totp" gorm:"default:false"`
	Avatar        string    `json:"avatar"`
	Status        string    `json:"status" gorm:"default:'ACTIVE'"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate will set ID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DisplayName returns the identity shown in activity summaries
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
