package main

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"panelgrid-backend/activity-service/handlers"
	"panelgrid-backend/activity-service/services"
	"panelgrid-backend/shared/activity"
	"panelgrid-backend/shared/config"
	"panelgrid-backend/shared/database"
	"panelgrid-backend/shared/database/models"
	"panelgrid-backend/shared/database/models/audit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.GetConfig()

	// A missing retention window should stop the service here, not at the
	// first scheduled prune
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	store := activity.NewStore(database.GetDB(), activity.Config{
		PruneDays: cfg.GetActivityPruneDays(),
	})

	registerActorLookups(store)
	attachNotifier(store, cfg)
	attachFeed(store)
	attachArchiver(store, cfg)

	activityHandler := handlers.NewActivityHandler(store, database.GetDB())

	router := gin.Default()

	// CORS for the panel frontend
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Activity endpoints
	router.POST("/api/activity", activityHandler.RecordActivity)
	router.GET("/api/activity", activityHandler.GetActivities)
	router.GET("/api/activity/events/:event", activityHandler.GetActivitiesByEvent)
	router.GET("/api/activity/actors/:type/:id", activityHandler.GetActivitiesByActor)
	router.GET("/api/activity/records/:id/summary", activityHandler.GetActivitySummary)

	// Live activity feed
	wsManager := services.GetWebSocketManager()
	router.GET("/ws/activity/:user_id", wsManager.HandleWebSocketConnection)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"service":     "activity",
			"connections": wsManager.GetConnectionCount(),
		})
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	port := strings.Split(cfg.ActivityServiceURL, ":")[2]
	log.Printf("Activity Service starting on port %s...", port)
	router.Run(":" + port)
}

// registerActorLookups wires the actor types this deployment knows how to
// resolve into display identities. Lookups go through Unscoped so records
// of soft-deleted users still render with their last known identity.
func registerActorLookups(store *activity.Store) {
	store.RegisterActor(models.ActorTypeUser, func(id uuid.UUID) (*activity.ActorIdentity, error) {
		var user models.User
		if err := database.GetDB().Unscoped().First(&user, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &activity.ActorIdentity{
			Username: user.DisplayName(),
			Email:    user.Email,
			Avatar:   user.Avatar,
		}, nil
	})
}

// attachNotifier connects the Redis feed when Redis is reachable. The
// activity log works without it, so a connection failure is a warning.
func attachNotifier(store *activity.Store, cfg *config.Config) {
	redisDB, _ := strconv.Atoi(cfg.RedisDB)
	notifier, err := activity.NewRedisNotifier(
		fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		cfg.RedisPassword,
		redisDB,
		cfg.ActivityNotifyChannel,
	)
	if err != nil {
		log.Printf("⚠️ Redis notifier disabled: %v", err)
		return
	}

	store.Subscribe(notifier.Notify)
	log.Printf("✅ Publishing activity records to Redis channel %s", cfg.ActivityNotifyChannel)
}

// attachFeed pushes each new record to connected WebSocket clients. Hidden
// events are filtered here the same way the list endpoints filter them.
func attachFeed(store *activity.Store) {
	wsManager := services.GetWebSocketManager()
	store.Subscribe(func(rec *audit.ActivityLog) {
		if store.IsDisabled(rec.Event) {
			return
		}
		wsManager.BroadcastActivity(rec)
	})
}

// attachArchiver hooks object storage into the prune path when archiving
// is enabled. Unlike the notifier, a failure here is fatal: the operator
// asked for an archive, so pruning without one must not happen.
func attachArchiver(store *activity.Store, cfg *config.Config) {
	if !cfg.ActivityArchiveEnabled {
		return
	}

	archiver, err := services.NewArchiveService()
	if err != nil {
		log.Fatalf("Failed to initialize activity archive: %v", err)
	}

	store.SetArchiver(archiver)
	log.Printf("✅ Archiving pruned activity records to bucket %s", cfg.ActivityArchiveBucket)
}
