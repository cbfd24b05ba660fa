package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WebhookCache remembers processed webhook event ids so obvious redeliveries
// can be skipped cheaply. It is purely an optimization: the guarded ledger
// transitions stay correct without it, and a nil cache disables it.
type WebhookCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewWebhookCache connects to Redis. An empty address returns a nil cache,
// which every method tolerates.
func NewWebhookCache(cfg Config) (*WebhookCache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &WebhookCache{
		client: rdb,
		ttl:    24 * time.Hour,
	}, nil
}

// Seen reports whether this event id was already processed. Cache errors are
// treated as a miss.
func (c *WebhookCache) Seen(ctx context.Context, eventID string) bool {
	if c == nil || eventID == "" {
		return false
	}

	exists, err := c.client.Exists(ctx, webhookKey(eventID)).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

// MarkSeen records a processed event id, best-effort.
func (c *WebhookCache) MarkSeen(ctx context.Context, eventID string) {
	if c == nil || eventID == "" {
		return
	}

	c.client.Set(ctx, webhookKey(eventID), 1, c.ttl)
}

func (c *WebhookCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func webhookKey(eventID string) string {
	return "webhook:seen:" + eventID
}
