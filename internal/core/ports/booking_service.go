package ports

import (
	"context"
	"time"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

// CreateBookingInput carries a member's service request submission.
type CreateBookingInput struct {
	Title          string
	Description    string
	Category       domain.ServiceCategory
	Priority       domain.Priority
	BudgetMin      *int
	BudgetMax      *int
	Deadline       *time.Time
	Requirements   map[string]any
	IdempotencyKey string
}

// BookingResult is returned by CreateBooking. CreditsUsed is 0 for unlimited tiers.
type BookingResult struct {
	RequestID      string `json:"request_id"`
	CreditsUsed    int    `json:"credits_used"`
	AlreadyExisted bool   `json:"already_existed,omitempty"`
}

// BookingDedup guards booking submissions per client and idempotency key.
type BookingDedup interface {
	// Reserve claims key for a new submission and returns nil, nil on
	// success. A completed key returns its stored result; a key still held
	// by another submission returns domain.ErrBookingInProgress.
	Reserve(ctx context.Context, clientID, key string) (*BookingResult, error)
	// Complete replaces the reservation with the final result.
	Complete(ctx context.Context, clientID, key string, result *BookingResult) error
	// Release drops a reservation whose submission failed.
	Release(ctx context.Context, clientID, key string) error
}

type BookingService interface {
	Quote(category domain.ServiceCategory, priority domain.Priority, budgetMax *int) int
	CreateBooking(ctx context.Context, session domain.Session, in CreateBookingInput) (*BookingResult, error)
	CancelBooking(ctx context.Context, session domain.Session, requestID, reason string) error
}
