package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"panelgrid-backend/shared/database/models/audit"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes each logged record to a Redis channel so
// consumers outside this process (live dashboards, downstream indexing)
// can follow the feed. Delivery order across subscribers is not guaranteed.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier creates a notifier and verifies the connection
func NewRedisNotifier(addr, password string, db int, channel string) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisNotifier{
		client:  client,
		channel: channel,
	}, nil
}

// Notify publishes one record. Publish failures are logged, not returned:
// the record is already durable and the feed is best-effort.
func (n *RedisNotifier) Notify(rec *audit.ActivityLog) {
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Printf("❌ Failed to encode activity record %s: %v", rec.ID, err)
		return
	}

	if err := n.client.Publish(context.Background(), n.channel, payload).Err(); err != nil {
		log.Printf("❌ Failed to publish activity record %s: %v", rec.ID, err)
	}
}

// Close releases the underlying Redis connection
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
