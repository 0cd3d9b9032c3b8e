package broker

import (
	"errors"
	"time"

	"panelgrid-backend/shared/database/models"
	"panelgrid-backend/shared/database/models/auth"
	utils "panelgrid-backend/shared/utils/auth"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the outcome of a token validation attempt
type Status string

const (
	StatusReset        Status = "RESET_OK"
	StatusInvalidToken Status = "INVALID_TOKEN"
	StatusExpiredToken Status = "EXPIRED_TOKEN"
	StatusInvalidUser  Status = "INVALID_USER"
	StatusThrottled    Status = "THROTTLED"
)

// User-facing messages per failure status. These are the localized texts
// the reset endpoint surfaces; RESET_OK never reaches the caller as text.
var statusMessages = map[Status]string{
	StatusInvalidToken: "This password reset token is invalid.",
	StatusExpiredToken: "This password reset token has expired. Please request a new one.",
	StatusInvalidUser:  "We can't find a user with that email address.",
	StatusThrottled:    "Too many reset attempts. Please wait before retrying.",
}

// Message returns the user-facing text for a failure status
func (s Status) Message() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return "Unable to reset password."
}

// Config tunes token lifetime and throttling
type Config struct {
	TokenTTL      time.Duration
	MaxAttempts   int
	AttemptWindow time.Duration
}

// PasswordBroker issues and validates password reset tokens. Tokens are
// single-use: ValidateAndConsume invalidates the token before it reports
// success.
type PasswordBroker struct {
	db  *gorm.DB
	cfg Config
}

// NewPasswordBroker creates a broker with the given settings. Zero values
// fall back to a one hour token lifetime and 3 attempts per 15 minutes.
func NewPasswordBroker(db *gorm.DB, cfg Config) *PasswordBroker {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = 15 * time.Minute
	}
	return &PasswordBroker{db: db, cfg: cfg}
}

// CreateToken invalidates any outstanding tokens for the user and issues a
// fresh one
func (b *PasswordBroker) CreateToken(userID uuid.UUID, ipAddress string) (*auth.PasswordResetToken, error) {
	if err := b.db.Model(&auth.PasswordResetToken{}).
		Where("user_id = ? AND used = ?", userID, false).
		Update("expired", true).Error; err != nil {
		return nil, err
	}

	tokenString, err := utils.GenerateRandomToken(32)
	if err != nil {
		return nil, err
	}

	resetToken := auth.PasswordResetToken{
		UserID:    userID,
		Token:     tokenString,
		ExpiresAt: time.Now().Add(b.cfg.TokenTTL),
		Used:      false,
		Expired:   false,
		IPAddress: ipAddress,
		CreatedAt: time.Now(),
	}

	if err := b.db.Create(&resetToken).Error; err != nil {
		return nil, err
	}

	return &resetToken, nil
}

// ValidateAndConsume checks a token against the account it should belong
// to. On StatusReset the token has already been marked used and the
// returned user is the account to mutate. Any non-nil error is an
// infrastructure failure, not a user-correctable one.
func (b *PasswordBroker) ValidateAndConsume(token, email, ipAddress string) (Status, *models.User, error) {
	throttled, err := b.isThrottled(email, ipAddress)
	if err != nil {
		return StatusThrottled, nil, err
	}
	if throttled {
		b.recordAttempt(email, ipAddress, false)
		return StatusThrottled, nil, nil
	}

	var user models.User
	if err := b.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			b.recordAttempt(email, ipAddress, false)
			return StatusInvalidUser, nil, nil
		}
		return StatusInvalidUser, nil, err
	}

	var resetToken auth.PasswordResetToken
	if err := b.db.Where("token = ? AND used = ? AND expired = ?", token, false, false).
		First(&resetToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			b.recordAttempt(email, ipAddress, false)
			return StatusInvalidToken, nil, nil
		}
		return StatusInvalidToken, nil, err
	}

	// A token issued for someone else is treated exactly like an unknown one
	if resetToken.UserID != user.ID {
		b.recordAttempt(email, ipAddress, false)
		return StatusInvalidToken, nil, nil
	}

	if resetToken.ExpiresAt.Before(time.Now()) {
		if err := b.db.Model(&resetToken).Update("expired", true).Error; err != nil {
			return StatusExpiredToken, nil, err
		}
		b.recordAttempt(email, ipAddress, false)
		return StatusExpiredToken, nil, nil
	}

	// Consume before reporting success so the token can never be replayed
	if err := b.db.Model(&resetToken).Updates(map[string]interface{}{
		"used":    true,
		"used_at": time.Now(),
	}).Error; err != nil {
		return StatusInvalidToken, nil, err
	}

	b.recordAttempt(email, ipAddress, true)
	return StatusReset, &user, nil
}

func (b *PasswordBroker) isThrottled(email, ipAddress string) (bool, error) {
	var count int64
	err := b.db.Model(&auth.PasswordResetAttempt{}).
		Where("(email = ? OR ip_address = ?) AND created_at > ?",
			email, ipAddress, time.Now().Add(-b.cfg.AttemptWindow)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count >= int64(b.cfg.MaxAttempts), nil
}

func (b *PasswordBroker) recordAttempt(email, ipAddress string, successful bool) {
	attempt := auth.PasswordResetAttempt{
		Email:      email,
		IPAddress:  ipAddress,
		Successful: successful,
		CreatedAt:  time.Now(),
	}
	b.db.Create(&attempt)
}
