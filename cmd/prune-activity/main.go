package main

import (
	"log"
	"time"

	"panelgrid-backend/activity-service/services"
	"panelgrid-backend/shared/activity"
	"panelgrid-backend/shared/config"
	"panelgrid-backend/shared/database"
)

// Intended to run from cron. Removes activity records older than the
// configured retention window; safe to run repeatedly.
func main() {
	log.Println("🧹 Starting activity log prune...")

	config.LoadConfig()
	cfg := config.GetConfig()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	store := activity.NewStore(database.GetDB(), activity.Config{
		PruneDays: cfg.GetActivityPruneDays(),
	})

	if cfg.ActivityArchiveEnabled {
		archiver, err := services.NewArchiveService()
		if err != nil {
			log.Fatalf("Failed to initialize activity archive: %v", err)
		}
		store.SetArchiver(archiver)
	}

	removed, err := store.Prune(time.Now().UTC())
	if err != nil {
		log.Fatalf("Prune failed: %v", err)
	}

	log.Printf("✅ Prune completed: removed %d activity records older than %d days", removed, cfg.GetActivityPruneDays())
}
