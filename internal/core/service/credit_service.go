package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

// CreditService owns the credit ledger. Balances are never cached: every
// decision re-reads the store, and every mutation is a single atomic
// repository call.
type CreditService struct {
	repo ports.CreditRepository
	log  zerolog.Logger
	now  func() time.Time
}

func NewCreditService(repo ports.CreditRepository, log zerolog.Logger) *CreditService {
	return &CreditService{repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// FetchCredits returns the member's account, creating it on first use for
// active subscribers with the tier's monthly allocation.
func (s *CreditService) FetchCredits(ctx context.Context, userID string, sub *domain.Subscription) (*domain.CreditAccount, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}

	acct, err := s.repo.FindAccount(ctx, userID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("fetch credits: %w", err)
	}
	if !sub.Active() {
		return nil, fmt.Errorf("fetch credits: %w", domain.ErrNoActiveSubscription)
	}

	allocation := domain.GetCreditsByTier(sub.Tier)
	acct, created, err := s.repo.CreateAccountIfAbsent(ctx, userID, allocation, s.now())
	if err != nil {
		return nil, fmt.Errorf("fetch credits: create account: %w", err)
	}
	if created {
		s.log.Info().
			Str("user_id", userID).
			Str("tier", string(sub.Tier)).
			Int("allocation", allocation).
			Msg("credit account created")
	}
	return acct, nil
}

// UseCredit debits amount from a metered member, or records an audit-only
// usage row for unlimited tiers. A metered debit never drives the balance
// below zero.
func (s *CreditService) UseCredit(ctx context.Context, in ports.UseCreditInput) (*ports.UseCreditResult, error) {
	if in.UserID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("use credit: %w", domain.ErrInvalidAmount)
	}
	tier, ok := domain.GetTierByID(in.Tier)
	if !ok {
		return nil, fmt.Errorf("use credit: %w: %q", domain.ErrUnknownTier, in.Tier)
	}

	tx := &domain.CreditTransaction{
		ID:               uuid.NewString(),
		UserID:           in.UserID,
		Amount:           -in.Amount,
		Type:             domain.TxUsage,
		Description:      in.Description,
		ServiceRequestID: in.ServiceRequestID,
		CreatedAt:        s.now(),
	}

	if tier.IsUnlimited {
		if err := s.repo.RecordTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("use credit: record usage: %w", err)
		}
		acct, err := s.repo.FindAccount(ctx, in.UserID)
		if err != nil {
			return nil, fmt.Errorf("use credit: %w", err)
		}
		s.log.Info().Str("user_id", in.UserID).Int("cost", in.Amount).Msg("unlimited usage recorded")
		return &ports.UseCreditResult{Account: acct, Transaction: tx, Charged: 0}, nil
	}

	acct, err := s.repo.FindAccount(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("use credit: %w", err)
	}
	if acct.Balance < in.Amount {
		return nil, fmt.Errorf("use credit: %w (need %d, have %d)", domain.ErrInsufficientCredits, in.Amount, acct.Balance)
	}

	acct, err = s.repo.ApplyTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("use credit: %w", err)
	}

	s.log.Info().
		Str("user_id", in.UserID).
		Int("amount", in.Amount).
		Int("balance", acct.Balance).
		Str("service_request_id", in.ServiceRequestID).
		Msg("credits debited")

	return &ports.UseCreditResult{Account: acct, Transaction: tx, Charged: in.Amount}, nil
}

// AddCredits records a purchase, bonus or refund.
func (s *CreditService) AddCredits(ctx context.Context, in ports.AddCreditsInput) (*domain.CreditAccount, error) {
	if in.UserID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if !in.Type.IsTopUp() {
		return nil, fmt.Errorf("add credits: %w: %q", domain.ErrInvalidTransactionType, in.Type)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("add credits: %w", domain.ErrInvalidAmount)
	}

	tx := &domain.CreditTransaction{
		ID:               uuid.NewString(),
		UserID:           in.UserID,
		Amount:           in.Amount,
		Type:             in.Type,
		Description:      in.Description,
		ServiceRequestID: in.ServiceRequestID,
		CreatedAt:        s.now(),
	}
	acct, err := s.repo.ApplyTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("add credits: %w", err)
	}

	s.log.Info().
		Str("user_id", in.UserID).
		Str("type", string(in.Type)).
		Int("amount", in.Amount).
		Int("balance", acct.Balance).
		Msg("credits added")
	return acct, nil
}

// CheckCredits reports whether amount could be charged right now.
func (s *CreditService) CheckCredits(ctx context.Context, userID string, tier domain.TierID, amount int) (bool, error) {
	if domain.IsUnlimitedTier(tier) {
		return true, nil
	}
	acct, err := s.repo.FindAccount(ctx, userID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check credits: %w", err)
	}
	return acct.Balance >= amount, nil
}

func (s *CreditService) ListTransactions(ctx context.Context, userID string, since time.Time) ([]*domain.CreditTransaction, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return s.repo.ListTransactions(ctx, userID, since)
}

// RenewAllocation grants the tier's monthly credits once per calendar month.
// Unlimited tiers have nothing to renew.
func (s *CreditService) RenewAllocation(ctx context.Context, userID string, tierID domain.TierID, now time.Time) (bool, error) {
	tier, ok := domain.GetTierByID(tierID)
	if !ok {
		return false, fmt.Errorf("renew allocation: %w: %q", domain.ErrUnknownTier, tierID)
	}
	if tier.IsUnlimited || tier.MonthlyCredits <= 0 {
		return false, nil
	}

	acct, renewed, err := s.repo.RenewAllocation(ctx, userID, tier.MonthlyCredits, now)
	if err != nil {
		return false, fmt.Errorf("renew allocation: %w", err)
	}
	if renewed {
		s.log.Info().
			Str("user_id", userID).
			Int("allocation", tier.MonthlyCredits).
			Int("balance", acct.Balance).
			Msg("monthly allocation renewed")
	}
	return renewed, nil
}
