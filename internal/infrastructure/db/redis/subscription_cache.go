package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

// SubscriptionCache holds billing answers for a short time.
// Key format: subscription:<user_id>
type SubscriptionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSubscriptionCache(client *redis.Client, ttl time.Duration) *SubscriptionCache {
	return &SubscriptionCache{client: client, ttl: ttl}
}

// Get reports a miss with a nil subscription and nil error.
func (c *SubscriptionCache) Get(ctx context.Context, userID string) (*domain.Subscription, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("subscription cache get: %w", err)
	}
	var sub domain.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("subscription cache decode: %w", err)
	}
	return &sub, nil
}

func (c *SubscriptionCache) Set(ctx context.Context, userID string, sub *domain.Subscription) error {
	if c.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("subscription cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(userID), raw, c.ttl).Err()
}

// Invalidate drops the cached entry, e.g. after a checkout.
func (c *SubscriptionCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}

func (c *SubscriptionCache) key(userID string) string {
	return "subscription:" + userID
}
