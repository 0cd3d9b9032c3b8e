package broker

import (
	"fmt"
	"testing"
	"time"

	"panelgrid-backend/shared/database/models"
	"panelgrid-backend/shared/database/models/auth"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestBroker(t *testing.T, cfg Config) (*PasswordBroker, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(&models.User{}, &auth.PasswordResetToken{}, &auth.PasswordResetAttempt{})
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewPasswordBroker(db, cfg), db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{
		Email:    email,
		Username: email,
		Password: "irrelevant-hash",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func TestValidateAndConsumeHappyPath(t *testing.T) {
	b, db := newTestBroker(t, Config{})
	user := createTestUser(t, db, "reset@panelgrid.dev")

	token, err := b.CreateToken(user.ID, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}

	status, got, err := b.ValidateAndConsume(token.Token, user.Email, "10.0.0.1")
	if err != nil {
		t.Fatalf("ValidateAndConsume returned error: %v", err)
	}
	if status != StatusReset {
		t.Fatalf("status = %s, want %s", status, StatusReset)
	}
	if got == nil || got.ID != user.ID {
		t.Fatal("expected the token's user to be returned")
	}

	// The token must already be consumed at the moment success is reported
	var stored auth.PasswordResetToken
	if err := db.First(&stored, "id = ?", token.ID).Error; err != nil {
		t.Fatalf("failed to reload token: %v", err)
	}
	if !stored.Used || stored.UsedAt == nil {
		t.Error("token was not marked used before success was reported")
	}
}

func TestTokenIsSingleUse(t *testing.T) {
	b, db := newTestBroker(t, Config{})
	user := createTestUser(t, db, "once@panelgrid.dev")

	token, err := b.CreateToken(user.ID, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}

	status, _, err := b.ValidateAndConsume(token.Token, user.Email, "10.0.0.1")
	if err != nil || status != StatusReset {
		t.Fatalf("first use: status = %s, err = %v", status, err)
	}

	status, _, err = b.ValidateAndConsume(token.Token, user.Email, "10.0.0.1")
	if err != nil {
		t.Fatalf("second use returned error: %v", err)
	}
	if status != StatusInvalidToken {
		t.Errorf("second use: status = %s, want %s", status, StatusInvalidToken)
	}
}

func TestExpiredToken(t *testing.T) {
	b, db := newTestBroker(t, Config{})
	user := createTestUser(t, db, "late@panelgrid.dev")

	token, err := b.CreateToken(user.ID, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}

	// Push the expiry into the past
	err = db.Model(&auth.PasswordResetToken{}).
		Where("id = ?", token.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error
	if err != nil {
		t.Fatalf("failed to age token: %v", err)
	}

	status, _, err := b.ValidateAndConsume(token.Token, user.Email, "10.0.0.1")
	if err != nil {
		t.Fatalf("ValidateAndConsume returned error: %v", err)
	}
	if status != StatusExpiredToken {
		t.Errorf("status = %s, want %s", status, StatusExpiredToken)
	}
}

func TestUnknownEmail(t *testing.T) {
	b, _ := newTestBroker(t, Config{})

	status, user, err := b.ValidateAndConsume("whatever", "nobody@panelgrid.dev", "10.0.0.1")
	if err != nil {
		t.Fatalf("ValidateAndConsume returned error: %v", err)
	}
	if status != StatusInvalidUser {
		t.Errorf("status = %s, want %s", status, StatusInvalidUser)
	}
	if user != nil {
		t.Error("no user should be returned for an unknown email")
	}
}

func TestTokenIssuedForAnotherUser(t *testing.T) {
	b, db := newTestBroker(t, Config{})
	owner := createTestUser(t, db, "owner@panelgrid.dev")
	other := createTestUser(t, db, "other@panelgrid.dev")

	token, err := b.CreateToken(owner.ID, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}

	status, _, err := b.ValidateAndConsume(token.Token, other.Email, "10.0.0.1")
	if err != nil {
		t.Fatalf("ValidateAndConsume returned error: %v", err)
	}
	if status != StatusInvalidToken {
		t.Errorf("status = %s, want %s", status, StatusInvalidToken)
	}
}

func TestThrottlingAfterRepeatedFailures(t *testing.T) {
	b, db := newTestBroker(t, Config{MaxAttempts: 2, AttemptWindow: 15 * time.Minute})
	user := createTestUser(t, db, "hammered@panelgrid.dev")

	for i := 0; i < 2; i++ {
		status, _, err := b.ValidateAndConsume("bogus-token", user.Email, "10.0.0.1")
		if err != nil {
			t.Fatalf("attempt %d returned error: %v", i+1, err)
		}
		if status != StatusInvalidToken {
			t.Fatalf("attempt %d: status = %s, want %s", i+1, status, StatusInvalidToken)
		}
	}

	status, _, err := b.ValidateAndConsume("bogus-token", user.Email, "10.0.0.1")
	if err != nil {
		t.Fatalf("throttled attempt returned error: %v", err)
	}
	if status != StatusThrottled {
		t.Errorf("status = %s, want %s", status, StatusThrottled)
	}
}

func TestCreateTokenInvalidatesOutstandingTokens(t *testing.T) {
	b, db := newTestBroker(t, Config{})
	user := createTestUser(t, db, "again@panelgrid.dev")

	first, err := b.CreateToken(user.ID, "10.0.0.1")
	if err != nil {
		t.Fatalf("first CreateToken returned error: %v", err)
	}
	if _, err := b.CreateToken(user.ID, "10.0.0.1"); err != nil {
		t.Fatalf("second CreateToken returned error: %v", err)
	}

	status, _, err := b.ValidateAndConsume(first.Token, user.Email, "10.0.0.1")
	if err != nil {
		t.Fatalf("ValidateAndConsume returned error: %v", err)
	}
	if status != StatusInvalidToken {
		t.Errorf("superseded token: status = %s, want %s", status, StatusInvalidToken)
	}
}

func TestStatusMessages(t *testing.T) {
	for _, status := range []Status{StatusInvalidToken, StatusExpiredToken, StatusInvalidUser, StatusThrottled} {
		if status.Message() == "" {
			t.Errorf("status %s has no message", status)
		}
	}
}
