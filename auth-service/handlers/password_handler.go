package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"panelgrid-backend/auth-service/broker"
	"panelgrid-backend/shared/clients"
	"panelgrid-backend/shared/database/models"
	"panelgrid-backend/shared/database/models/auth"
	utils "panelgrid-backend/shared/utils/auth"

	"gorm.io/gorm"
)

// Where the UI sends users after a successful reset
const redirectAfterReset = "/"

// ActivityRecorder records audit events for significant auth actions
type ActivityRecorder interface {
	Record(req clients.RecordActivityRequest) error
}

type AuthHandler struct {
	db       *gorm.DB
	broker   *broker.PasswordBroker
	activity ActivityRecorder
}

func NewAuthHandler(db *gorm.DB, passwordBroker *broker.PasswordBroker, activity ActivityRecorder) *AuthHandler {
	return &AuthHandler{
		db:       db,
		broker:   passwordBroker,
		activity: activity,
	}
}

// ForgotPasswordRequest represents the request body for forgot password
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest represents the request body for resetting a password
type ResetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// ResetPasswordResponse is returned after a successful reset
type ResetPasswordResponse struct {
	Success     bool   `json:"success"`
	RedirectTo  string `json:"redirect_to"`
	SendToLogin bool   `json:"send_to_login"`
}

// ForgotPassword issues a password reset token for the given email
// @Summary Forgot password
// @Description Issues a password reset token; the response never reveals whether the email exists
// @Tags auth-password
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Email for password reset"
// @Success 200 {object} map[string]string "Neutral confirmation"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 500 {object} map[string]string "Failed to process request"
// @Router /auth/password/forgot [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	neutralResponse := gin.H{"message": "If a user with this email exists, a password reset link will be sent"}

	// Don't reveal whether the email exists
	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusOK, neutralResponse)
		return
	}

	resetToken, err := h.broker.CreateToken(user.ID, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create reset token"})
		return
	}

	// Delivery is handled by the notification pipeline; only the token ID
	// is logged here, never its value.
	log.Printf("🔑 Password reset token %s issued for user %s", resetToken.ID, user.ID)

	h.recordActivity("auth:forgot-password", c.ClientIP(), &user)

	c.JSON(http.StatusOK, neutralResponse)
}

// ResetPassword resets a user's password using a valid reset token
// @Summary Reset password
// @Description Validates the reset token, replaces the credential, rotates the remember token, and logs the user in unless a second factor is required
// @Tags auth-password
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Password reset data with token"
// @Success 200 {object} ResetPasswordResponse "Password reset successful"
// @Failure 400 {object} map[string]string "Invalid request, token, or password"
// @Failure 429 {object} map[string]string "Too many reset attempts"
// @Failure 500 {object} map[string]string "Failed to update password"
// @Router /auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, user, err := h.broker.ValidateAndConsume(req.Token, req.Email, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not process request"})
		return
	}
	if status != broker.StatusReset {
		c.JSON(statusCode(status), gin.H{"error": status.Message()})
		return
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not hash password"})
		return
	}

	rememberToken, err := utils.GenerateRememberToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not rotate remember token"})
		return
	}

	// Hash and remember token go out in one UPDATE so neither is ever
	// visible without the other
	if err := h.db.Model(user).Updates(map[string]interface{}{
		"password":       hashedPassword,
		"remember_token": rememberToken,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update password"})
		return
	}

	h.recordActivity("auth:reset-password", c.ClientIP(), user)

	// Accounts with a second factor go back through the login form instead
	// of getting a fresh session here
	if !user.UseTOTP {
		if err := h.establishSession(c, user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create session"})
			return
		}
	}

	c.JSON(http.StatusOK, ResetPasswordResponse{
		Success:     true,
		RedirectTo:  redirectAfterReset,
		SendToLogin: user.UseTOTP,
	})
}

// statusCode maps broker failure statuses to HTTP codes
func statusCode(status broker.Status) int {
	if status == broker.StatusThrottled {
		return http.StatusTooManyRequests
	}
	return http.StatusBadRequest
}

// establishSession creates a session row and hands the token to the client
// as a cookie
func (h *AuthHandler) establishSession(c *gin.Context, user *models.User) error {
	token, err := utils.GenerateJWT(user.ID, user.Email)
	if err != nil {
		return err
	}

	sessionID, err := utils.GenerateSessionID()
	if err != nil {
		return err
	}

	expireDuration := utils.GetJWTExpireDuration()
	session := auth.UserSession{
		UserID:    user.ID,
		SessionID: sessionID,
		TokenHash: token[:32],
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		ExpiresAt: time.Now().Add(expireDuration),
		IsActive:  true,
	}

	if err := h.db.Create(&session).Error; err != nil {
		return err
	}

	c.SetCookie("panelgrid_session", token, int(expireDuration.Seconds()), "/", "", false, true)
	return nil
}

// recordActivity sends one audit event to the activity service. The record
// is best-effort from this side; failures must not fail the request.
func (h *AuthHandler) recordActivity(event, ip string, user *models.User) {
	if h.activity == nil {
		return
	}

	err := h.activity.Record(clients.RecordActivityRequest{
		Event:     event,
		IP:        ip,
		ActorType: models.ActorTypeUser,
		ActorID:   user.ID.String(),
	})
	if err != nil {
		log.Printf("⚠️ Failed to record %s activity for user %s: %v", event, user.ID, err)
	}
}
