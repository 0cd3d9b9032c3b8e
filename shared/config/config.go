package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret      string
	JWTExpireHours string

	// Super Admin
	SuperAdminEmail    string
	SuperAdminPassword string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string

	// Activity log
	ActivityPruneDays      string
	ActivityNotifyChannel  string
	ActivityArchiveEnabled bool
	ActivityArchiveBucket  string

	// Password Reset Rate Limiting
	PasswordResetMaxAttempts   string
	PasswordResetWindowMinutes string
	PasswordResetBlockHours    string

	// Frontend URL
	FrontendURL string

	// Service URLs (Dynamic based on environment)
	AuthServiceURL     string
	ActivityServiceURL string

	// MinIO Configuration
	MinIOServerURL    string
	MinIORootUser     string
	MinIORootPassword string
	MinIOUseSSL       bool
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("✅ Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg = &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "panelgrid"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key-change-this"),
		JWTExpireHours: getEnv("JWT_EXPIRE_HOURS", "3"),

		// Super Admin
		SuperAdminEmail:    getEnv("SUPER_ADMIN_EMAIL", "admin@panelgrid.dev"),
		SuperAdminPassword: getEnv("SUPER_ADMIN_PASSWORD", "admin123"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		// Activity log. ACTIVITY_PRUNE_DAYS has no default on purpose:
		// running without a retention window is a misconfiguration.
		ActivityPruneDays:      getEnv("ACTIVITY_PRUNE_DAYS", ""),
		ActivityNotifyChannel:  getEnv("ACTIVITY_NOTIFY_CHANNEL", "panelgrid:activity"),
		ActivityArchiveEnabled: getEnvAsBool("ACTIVITY_ARCHIVE_ENABLED", false),
		ActivityArchiveBucket:  getEnv("ACTIVITY_ARCHIVE_BUCKET", "panelgrid-activity-archive"),

		// Password Reset Rate Limiting
		PasswordResetMaxAttempts:   getEnv("PASSWORD_RESET_MAX_ATTEMPTS", "3"),
		PasswordResetWindowMinutes: getEnv("PASSWORD_RESET_WINDOW_MINUTES", "60"),
		PasswordResetBlockHours:    getEnv("PASSWORD_RESET_BLOCK_HOURS", "24"),

		// Frontend URL
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Service URLs - Environment-based configuration
		AuthServiceURL:     getEnv("AUTH_SERVICE_URL", "http://localhost:8001"),
		ActivityServiceURL: getEnv("ACTIVITY_SERVICE_URL", "http://localhost:8004"),

		// MinIO Configuration
		MinIOServerURL:    getEnv("MINIO_SERVER_URL", "http://localhost:9000"),
		MinIORootUser:     getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinIORootPassword: getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),
	}

	log.Println("✅ Configuration loaded successfully")
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// Validate checks settings that must be present before a service touching
// the activity log starts. The prune sweep re-checks the retention window
// itself, but catching a missing value here surfaces the problem at startup
// instead of at the first scheduled run.
func (c *Config) Validate() error {
	if c.ActivityPruneDays == "" {
		return fmt.Errorf("ACTIVITY_PRUNE_DAYS is not set: activity logs cannot be pruned without a retention window")
	}

	days, err := strconv.Atoi(c.ActivityPruneDays)
	if err != nil || days <= 0 {
		return fmt.Errorf("ACTIVITY_PRUNE_DAYS must be a positive number of days, got %q", c.ActivityPruneDays)
	}

	if c.ActivityArchiveEnabled && c.ActivityArchiveBucket == "" {
		return fmt.Errorf("ACTIVITY_ARCHIVE_BUCKET must be set when archiving is enabled")
	}

	return nil
}

// GetActivityPruneDays returns the retention window in days, 0 when unset
func (c *Config) GetActivityPruneDays() int {
	if value, err := strconv.Atoi(c.ActivityPruneDays); err == nil {
		return value
	}
	return 0
}

// GetPasswordResetMaxAttempts returns the reset attempt ceiling as integer
func (c *Config) GetPasswordResetMaxAttempts() int {
	if value, err := strconv.Atoi(c.PasswordResetMaxAttempts); err == nil {
		return value
	}
	return 3
}

// GetPasswordResetWindowMinutes returns the reset attempt window as integer
func (c *Config) GetPasswordResetWindowMinutes() int {
	if value, err := strconv.Atoi(c.PasswordResetWindowMinutes); err == nil {
		return value
	}
	return 60
}

// GetPasswordResetBlockHours returns the reset block duration as integer
func (c *Config) GetPasswordResetBlockHours() int {
	if value, err := strconv.Atoi(c.PasswordResetBlockHours); err == nil {
		return value
	}
	return 24
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
