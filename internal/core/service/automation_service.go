package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

const renewalBatchSize = 200

// AutomationService derives usage metrics, evaluates the upgrade rules and
// renews monthly allocations.
type AutomationService struct {
	subs     ports.SubscriptionProvider
	credits  ports.CreditService
	accounts ports.CreditRepository
	requests ports.RequestRepository
	notifier ports.Notifier
	events   ports.EventEmitter
	rules    []domain.UpgradeRule
	log      zerolog.Logger
	now      func() time.Time
}

// NewAutomationService uses domain.DefaultUpgradeRules when rules is empty.
func NewAutomationService(
	subs ports.SubscriptionProvider,
	credits ports.CreditService,
	accounts ports.CreditRepository,
	requests ports.RequestRepository,
	notifier ports.Notifier,
	events ports.EventEmitter,
	rules []domain.UpgradeRule,
	log zerolog.Logger,
) *AutomationService {
	if len(rules) == 0 {
		rules = domain.DefaultUpgradeRules
	}
	return &AutomationService{
		subs:     subs,
		credits:  credits,
		accounts: accounts,
		requests: requests,
		notifier: notifier,
		events:   events,
		rules:    rules,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *AutomationService) UsageMetrics(ctx context.Context, session domain.Session) (*domain.UsageMetrics, error) {
	if !session.Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	sub, err := s.subs.CheckSubscription(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("usage metrics: %w", err)
	}
	return s.usage(ctx, session.UserID, sub)
}

func (s *AutomationService) usage(ctx context.Context, userID string, sub *domain.Subscription) (*domain.UsageMetrics, error) {
	monthStart := domain.MonthStart(s.now())

	reqs, _, err := s.requests.List(ctx, ports.ListRequestsFilter{ClientID: userID, DateFrom: monthStart})
	if err != nil {
		return nil, fmt.Errorf("usage metrics: list requests: %w", err)
	}
	var m domain.UsageMetrics
	for _, r := range reqs {
		m.RequestsThisMonth++
		if r.Status == domain.StatusCompleted {
			m.CompletedRequests++
		}
	}

	txs, err := s.credits.ListTransactions(ctx, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("usage metrics: list transactions: %w", err)
	}
	for _, tx := range txs {
		if tx.Type == domain.TxUsage {
			m.CreditsUsed -= tx.Amount
		}
	}

	acct, err := s.credits.FetchCredits(ctx, userID, sub)
	switch {
	case errors.Is(err, domain.ErrNoActiveSubscription):
		// no account and nothing to create
	case err != nil:
		return nil, fmt.Errorf("usage metrics: %w", err)
	default:
		m.CreditsRemaining = acct.Balance
	}
	return &m, nil
}

// UpgradeRecommendation evaluates the rules table against this month's usage.
func (s *AutomationService) UpgradeRecommendation(ctx context.Context, session domain.Session) (*domain.UpgradeRecommendation, error) {
	if !session.Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	sub, err := s.subs.CheckSubscription(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("upgrade recommendation: %w", err)
	}
	if !sub.Active() {
		return &domain.UpgradeRecommendation{}, nil
	}

	m, err := s.usage(ctx, session.UserID, sub)
	if err != nil {
		return nil, err
	}
	rec := domain.RecommendUpgrade(sub.Tier, *m, s.rules)
	if rec.ShouldUpgrade {
		s.log.Debug().
			Str("user_id", session.UserID).
			Str("from", string(rec.CurrentTier)).
			Str("to", string(rec.Recommended)).
			Str("rule", rec.Rule).
			Msg("upgrade recommended")
	}
	return &rec, nil
}

func (s *AutomationService) CheckUpgradeNeeded(ctx context.Context, session domain.Session) (bool, error) {
	rec, err := s.UpgradeRecommendation(ctx, session)
	if err != nil {
		return false, err
	}
	return rec.ShouldUpgrade, nil
}

// RenewDueAllocations grants this month's credits to every metered member
// that has not received them yet. It returns the number of accounts renewed.
// Members whose subscription cannot be checked are skipped until the next run.
func (s *AutomationService) RenewDueAllocations(ctx context.Context) (int, error) {
	now := s.now()
	monthStart := domain.MonthStart(now)

	renewed := 0
	after := ""
	for {
		batch, err := s.accounts.ListAccountsDueForAllocation(ctx, monthStart, after, renewalBatchSize)
		if err != nil {
			return renewed, fmt.Errorf("renew allocations: %w", err)
		}
		for _, acct := range batch {
			after = acct.UserID
			ok, err := s.renewOne(ctx, acct, now)
			if err != nil {
				s.log.Warn().Err(err).Str("user_id", acct.UserID).Msg("allocation renewal skipped")
				continue
			}
			if ok {
				renewed++
			}
		}
		if len(batch) < renewalBatchSize {
			break
		}
	}

	s.log.Info().Int("renewed", renewed).Time("month", monthStart).Msg("monthly allocations processed")
	return renewed, nil
}

func (s *AutomationService) renewOne(ctx context.Context, acct *domain.CreditAccount, now time.Time) (bool, error) {
	sub, err := s.subs.CheckSubscription(ctx, acct.UserID)
	if err != nil {
		return false, err
	}
	if !sub.Active() || domain.IsUnlimitedTier(sub.Tier) {
		// Nothing to grant this month; keep the account out of later sweeps.
		return false, s.accounts.MarkAllocationChecked(ctx, acct.UserID, now)
	}

	ok, err := s.credits.RenewAllocation(ctx, acct.UserID, sub.Tier, now)
	if err != nil || !ok {
		return false, err
	}

	credits := domain.GetCreditsByTier(sub.Tier)
	s.events.Emit(domain.DomainEvent{
		Key:         domain.EventCreditsAllocated,
		AggregateID: acct.UserID,
		OccurredAt:  now,
		Payload:     map[string]any{"user_id": acct.UserID, "tier": string(sub.Tier), "amount": credits},
	})
	s.notifier.Notify(ctx, acct.UserID, domain.NotifyInfo, "Credits renewed",
		fmt.Sprintf("%d credits have been added for %s.", credits, now.Format("January 2006")))
	return true, nil
}
