package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"panelgrid-backend/auth-service/broker"
	"panelgrid-backend/auth-service/handlers"
	"panelgrid-backend/auth-service/middleware"
	"panelgrid-backend/shared/clients"
	"panelgrid-backend/shared/config"
	"panelgrid-backend/shared/database"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.GetConfig()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	// Initialize broker and handlers
	passwordBroker := broker.NewPasswordBroker(database.GetDB(), broker.Config{
		TokenTTL:      time.Hour,
		MaxAttempts:   cfg.GetPasswordResetMaxAttempts(),
		AttemptWindow: time.Duration(cfg.GetPasswordResetWindowMinutes()) * time.Minute,
	})
	authHandler := handlers.NewAuthHandler(database.GetDB(), passwordBroker, clients.NewActivityClient())

	// Initialize rate limiter
	rateLimiterCleanupTime := 30 * time.Minute
	rateLimiter := middleware.NewRateLimiter(rateLimiterCleanupTime)

	passwordResetConfig := middleware.RateLimitConfig{
		MaxRequests:   cfg.GetPasswordResetMaxAttempts(),
		TimeWindow:    time.Duration(cfg.GetPasswordResetWindowMinutes()) * time.Minute,
		BlockDuration: time.Duration(cfg.GetPasswordResetBlockHours()) * time.Hour,
	}

	router := gin.Default()

	// Password management endpoints
	router.POST("/api/auth/password/forgot", rateLimiter.PasswordResetRateLimitMiddleware(passwordResetConfig), authHandler.ForgotPassword)
	router.POST("/api/auth/password/reset", rateLimiter.PasswordResetRateLimitMiddleware(passwordResetConfig), authHandler.ResetPassword)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "auth",
		})
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	port := strings.Split(cfg.AuthServiceURL, ":")[2]
	log.Printf("Auth Service starting on port %s...", port)
	router.Run(":" + port)
}
