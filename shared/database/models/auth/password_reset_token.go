package auth

import (
	"time"

	"panelgrid-backend/shared/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PasswordResetToken is the ephemeral credential the broker hands out and
// later validates. Tokens are single-use: the broker flips Used before it
// ever reports success.
type PasswordResetToken struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Token     string     `json:"token" gorm:"size:255;uniqueIndex;not null"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	Used      bool       `json:"used" gorm:"default:false"`
	Expired   bool       `json:"expired" gorm:"default:false"`
	UsedAt    *time.Time `json:"used_at"`
	IPAddress string     `json:"ip_address" gorm:"size:50"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relations
	User models.User `json:"user" gorm:"foreignKey:UserID"`
}

// BeforeCreate will set ID if not set
func (t *PasswordResetToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
