package ports

import (
	"context"
	"time"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

// UseCreditInput describes a debit against a member's balance.
type UseCreditInput struct {
	UserID           string
	Tier             domain.TierID
	Amount           int
	Description      string
	ServiceRequestID string
}

// UseCreditResult reports the ledger outcome. Charged is 0 for unlimited tiers.
type UseCreditResult struct {
	Account     *domain.CreditAccount
	Transaction *domain.CreditTransaction
	Charged     int
}

// AddCreditsInput describes a purchase, bonus or refund.
type AddCreditsInput struct {
	UserID           string
	Amount           int
	Type             domain.TransactionType
	Description      string
	ServiceRequestID string
}

type CreditService interface {
	FetchCredits(ctx context.Context, userID string, sub *domain.Subscription) (*domain.CreditAccount, error)
	UseCredit(ctx context.Context, in UseCreditInput) (*UseCreditResult, error)
	AddCredits(ctx context.Context, in AddCreditsInput) (*domain.CreditAccount, error)
	CheckCredits(ctx context.Context, userID string, tier domain.TierID, amount int) (bool, error)
	ListTransactions(ctx context.Context, userID string, since time.Time) ([]*domain.CreditTransaction, error)
	RenewAllocation(ctx context.Context, userID string, tier domain.TierID, now time.Time) (bool, error)
}
