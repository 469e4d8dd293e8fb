package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

// MembershipService fronts the billing back end and the tier catalog.
type MembershipService struct {
	billing ports.BillingClient
	credits ports.CreditService
	log     zerolog.Logger
}

func NewMembershipService(billing ports.BillingClient, credits ports.CreditService, log zerolog.Logger) *MembershipService {
	return &MembershipService{billing: billing, credits: credits, log: log}
}

func (s *MembershipService) Tiers() []domain.MembershipTier {
	return domain.Tiers()
}

// CheckSubscription returns the caller's subscription and makes sure active
// members have a credit account.
func (s *MembershipService) CheckSubscription(ctx context.Context, session domain.Session) (*domain.Subscription, error) {
	if !session.Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	sub, err := s.billing.CheckSubscription(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("check subscription: %w", err)
	}
	if sub.Active() {
		if _, err := s.credits.FetchCredits(ctx, session.UserID, sub); err != nil {
			s.log.Warn().Err(err).Str("user_id", session.UserID).Msg("failed to ensure credit account")
		}
	}
	return sub, nil
}

// CreateCheckout returns a payment page URL for tier.
func (s *MembershipService) CreateCheckout(ctx context.Context, session domain.Session, tierID domain.TierID, annual bool) (string, error) {
	if !session.Authenticated() {
		return "", domain.ErrNotAuthenticated
	}
	tier, ok := domain.GetTierByID(tierID)
	if !ok {
		return "", fmt.Errorf("create checkout: %w: %q", domain.ErrUnknownTier, tierID)
	}
	url, err := s.billing.CreateCheckout(ctx, session.UserID, tier.PriceID(annual))
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}
	s.log.Info().Str("user_id", session.UserID).Str("tier", string(tierID)).Bool("annual", annual).Msg("checkout created")
	return url, nil
}

func (s *MembershipService) CustomerPortal(ctx context.Context, session domain.Session) (string, error) {
	if !session.Authenticated() {
		return "", domain.ErrNotAuthenticated
	}
	url, err := s.billing.CustomerPortal(ctx, session.UserID)
	if err != nil {
		return "", fmt.Errorf("customer portal: %w", err)
	}
	return url, nil
}

// CanAccess reports whether the caller's current tier covers category.
// Members without an active subscription can access nothing.
func (s *MembershipService) CanAccess(ctx context.Context, session domain.Session, category domain.ServiceCategory) (bool, error) {
	if !session.Authenticated() {
		return false, domain.ErrNotAuthenticated
	}
	if !category.Valid() {
		return false, fmt.Errorf("can access: %w: %q", domain.ErrInvalidCategory, category)
	}
	sub, err := s.billing.CheckSubscription(ctx, session.UserID)
	if err != nil {
		return false, fmt.Errorf("can access: %w", err)
	}
	if !sub.Active() {
		return false, nil
	}
	return domain.CanAccessService(sub.Tier, category), nil
}
