package billing

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

// SubscriptionStore is the short-lived cache in front of check-subscription.
type SubscriptionStore interface {
	Get(ctx context.Context, userID string) (*domain.Subscription, error)
	Set(ctx context.Context, userID string, sub *domain.Subscription) error
	Invalidate(ctx context.Context, userID string) error
}

// CachedClient serves CheckSubscription from the cache when it can. Cache
// failures fall through to the remote call.
type CachedClient struct {
	next  ports.BillingClient
	cache SubscriptionStore
	log   zerolog.Logger
}

func NewCachedClient(next ports.BillingClient, cache SubscriptionStore, log zerolog.Logger) *CachedClient {
	return &CachedClient{next: next, cache: cache, log: log}
}

func (c *CachedClient) CheckSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := c.cache.Get(ctx, userID)
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("subscription cache read failed")
	}
	if sub != nil {
		return sub, nil
	}

	sub, err = c.next.CheckSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, userID, sub); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("subscription cache write failed")
	}
	return sub, nil
}

// CreateCheckout drops the cached answer so the new plan is seen once paid.
func (c *CachedClient) CreateCheckout(ctx context.Context, userID, priceID string) (string, error) {
	c.invalidate(ctx, userID)
	return c.next.CreateCheckout(ctx, userID, priceID)
}

func (c *CachedClient) CustomerPortal(ctx context.Context, userID string) (string, error) {
	c.invalidate(ctx, userID)
	return c.next.CustomerPortal(ctx, userID)
}

func (c *CachedClient) invalidate(ctx context.Context, userID string) {
	if err := c.cache.Invalidate(ctx, userID); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("subscription cache invalidate failed")
	}
}
