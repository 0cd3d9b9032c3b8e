package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKey identifies a panel API credential. Activity log entries created
// through the HTTP API carry a reference to the key that performed them.
type APIKey struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Identifier string     `json:"identifier" gorm:"size:16;uniqueIndex;not null"`
	TokenHash  string     `json:"-" gorm:"size:255;not null"`
	Memo       string     `json:"memo" gorm:"size:500"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relations
	User User `json:"user" gorm:"foreignKey:UserID"`
}

// BeforeCreate will set ID if not set
func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
