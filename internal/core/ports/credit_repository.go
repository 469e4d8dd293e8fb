package ports

import (
	"context"
	"time"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

// CreditRepository persists credit accounts and their ledger. Every method
// that changes a balance does so atomically with the ledger row it writes.
type CreditRepository interface {
	// FindAccount returns domain.ErrAccountNotFound when the user has none.
	FindAccount(ctx context.Context, userID string) (*domain.CreditAccount, error)

	// CreateAccountIfAbsent creates the account with balance and monthly
	// allocation set to allocation, plus one allocation row. When another
	// writer created it first, the existing account is returned with created=false.
	CreateAccountIfAbsent(ctx context.Context, userID string, allocation int, now time.Time) (acct *domain.CreditAccount, created bool, err error)

	// ApplyTransaction adds tx.Amount to the balance and appends tx with the
	// resulting BalanceAfter. A debit that would leave the balance negative
	// fails with domain.ErrInsufficientCredits and writes nothing.
	ApplyTransaction(ctx context.Context, tx *domain.CreditTransaction) (*domain.CreditAccount, error)

	// RecordTransaction appends tx without changing the balance; BalanceAfter
	// is set to the current balance.
	RecordTransaction(ctx context.Context, tx *domain.CreditTransaction) error

	// RenewAllocation tops the account up by amount unless it already
	// received an allocation in now's month.
	RenewAllocation(ctx context.Context, userID string, amount int, now time.Time) (acct *domain.CreditAccount, renewed bool, err error)

	// MarkAllocationChecked stamps the account as settled for now's month
	// without touching the balance.
	MarkAllocationChecked(ctx context.Context, userID string, now time.Time) error

	// ListTransactions returns the user's rows created at or after since, newest first.
	ListTransactions(ctx context.Context, userID string, since time.Time) ([]*domain.CreditTransaction, error)

	// ListAccountsDueForAllocation returns accounts last allocated before
	// monthStart, ordered by user id and starting after afterUserID.
	ListAccountsDueForAllocation(ctx context.Context, monthStart time.Time, afterUserID string, limit int) ([]*domain.CreditAccount, error)
}
