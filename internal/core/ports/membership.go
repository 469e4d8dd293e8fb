package ports

import (
	"context"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

// SubscriptionProvider resolves a member's current subscription.
type SubscriptionProvider interface {
	CheckSubscription(ctx context.Context, userID string) (*domain.Subscription, error)
}

// BillingClient is the external subscription and payment back end.
type BillingClient interface {
	SubscriptionProvider
	CreateCheckout(ctx context.Context, userID, priceID string) (string, error)
	CustomerPortal(ctx context.Context, userID string) (string, error)
}

type MembershipService interface {
	Tiers() []domain.MembershipTier
	CheckSubscription(ctx context.Context, session domain.Session) (*domain.Subscription, error)
	CreateCheckout(ctx context.Context, session domain.Session, tier domain.TierID, annual bool) (string, error)
	CustomerPortal(ctx context.Context, session domain.Session) (string, error)
	CanAccess(ctx context.Context, session domain.Session, category domain.ServiceCategory) (bool, error)
}

type AutomationService interface {
	UsageMetrics(ctx context.Context, session domain.Session) (*domain.UsageMetrics, error)
	UpgradeRecommendation(ctx context.Context, session domain.Session) (*domain.UpgradeRecommendation, error)
	CheckUpgradeNeeded(ctx context.Context, session domain.Session) (bool, error)
	RenewDueAllocations(ctx context.Context) (int, error)
}
