package database

import (
	"log"
	"time"

	"panelgrid-backend/shared/config"
	"panelgrid-backend/shared/database/models"
	utils "panelgrid-backend/shared/utils/auth"
)

// SeedDatabase seeds the database with initial data
func SeedDatabase() error {
	log.Println("🌱 Checking database seed data...")

	if err := CreateSuperAdminFromConfig(); err != nil {
		return err
	}

	log.Println("✅ Database seed data is up to date")
	return nil
}

// CreateSuperAdminFromConfig creates the super admin account defined in the
// environment, if it does not exist yet
func CreateSuperAdminFromConfig() error {
	cfg := config.GetConfig()
	return CreateSuperAdmin(cfg.SuperAdminEmail, cfg.SuperAdminPassword, "admin")
}

// CreateSuperAdmin creates an admin user with the given credentials
func CreateSuperAdmin(email, password, username string) error {
	var existing models.User
	if err := DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	rememberToken, err := utils.GenerateRememberToken()
	if err != nil {
		return err
	}

	admin := models.User{
		Email:         email,
		Username:      username,
		Password:      hashedPassword,
		RememberToken: rememberToken,
		Status:        "ACTIVE",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Super admin created: %s", email)
	return nil
}
