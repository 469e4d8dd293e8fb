package domain

import "time"

// TransactionType classifies a ledger row.
type TransactionType string

const (
	TxAllocation TransactionType = "allocation"
	TxUsage      TransactionType = "usage"
	TxPurchase   TransactionType = "purchase"
	TxBonus      TransactionType = "bonus"
	TxRefund     TransactionType = "refund"
)

// IsTopUp reports whether t may be used to add credits outside of the monthly allocation.
func (t TransactionType) IsTopUp() bool {
	return t == TxPurchase || t == TxBonus || t == TxRefund
}

// CreditAccount is a member's running balance. There is one per user.
type CreditAccount struct {
	UserID            string    `json:"user_id"`
	Balance           int       `json:"balance"`
	MonthlyAllocation int       `json:"monthly_allocation"`
	LastAllocationAt  time.Time `json:"last_allocation_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreditTransaction is an immutable ledger row. Amount is signed: debits are
// negative. BalanceAfter is the account balance once this row was applied.
type CreditTransaction struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Amount           int             `json:"amount"`
	Type             TransactionType `json:"transaction_type"`
	Description      string          `json:"description,omitempty"`
	ServiceRequestID string          `json:"service_request_id,omitempty"`
	BalanceAfter     int             `json:"balance_after"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AllocationDue reports whether the account has not yet received an
// allocation in the month containing now.
func (a *CreditAccount) AllocationDue(now time.Time) bool {
	return a.LastAllocationAt.Before(MonthStart(now))
}
