package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	// reservationTTL bounds how long a crashed submission can hold a key.
	reservationTTL = 2 * time.Minute
	pendingMarker  = "pending"
)

// BookingDedup remembers the outcome of a booking per client and
// Idempotency-Key so that retried submissions are not charged twice.
// A key first holds a pending marker and then the JSON result.
// Key format: booking:idem:<client_id>:<key>
type BookingDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBookingDedup creates a BookingDedup wrapping the given Redis client.
// A non-positive ttl falls back to 24h.
func NewBookingDedup(client *redis.Client, ttl time.Duration) *BookingDedup {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &BookingDedup{client: client, ttl: ttl}
}

// Reserve claims the key with SETNX so that only one submission proceeds.
func (d *BookingDedup) Reserve(ctx context.Context, clientID, key string) (*ports.BookingResult, error) {
	k := d.key(clientID, key)
	ok, err := d.client.SetNX(ctx, k, pendingMarker, reservationTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := d.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET; the other submission just failed.
		return nil, domain.ErrBookingInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	return decodeResult(raw)
}

func decodeResult(raw []byte) (*ports.BookingResult, error) {
	if string(raw) == pendingMarker {
		return nil, domain.ErrBookingInProgress
	}
	var res ports.BookingResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("idempotency decode: %w", err)
	}
	return &res, nil
}

// Complete overwrites the reservation with the result for the full TTL.
func (d *BookingDedup) Complete(ctx context.Context, clientID, key string, result *ports.BookingResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	return d.client.Set(ctx, d.key(clientID, key), raw, d.ttl).Err()
}

func (d *BookingDedup) Release(ctx context.Context, clientID, key string) error {
	return d.client.Del(ctx, d.key(clientID, key)).Err()
}

func (d *BookingDedup) key(clientID, key string) string {
	return fmt.Sprintf("booking:idem:%s:%s", clientID, key)
}
