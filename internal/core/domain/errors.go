package domain

import "errors"

var (
	ErrNotAuthenticated       = errors.New("authentication required")
	ErrNotAuthorized          = errors.New("not authorized")
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrCancellationNotAllowed = errors.New("request can no longer be cancelled")
	ErrRemoteFailure          = errors.New("remote service failure")

	ErrRequestNotFound        = errors.New("service request not found")
	ErrAccountNotFound        = errors.New("credit account not found")
	ErrNoActiveSubscription   = errors.New("an active membership is required")
	ErrUnknownTier            = errors.New("unknown membership tier")
	ErrInvalidCategory        = errors.New("invalid service category")
	ErrInvalidPriority        = errors.New("invalid priority")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidTransactionType = errors.New("invalid credit transaction type")
	ErrStatusConflict         = errors.New("service request was modified concurrently")
	ErrInvalidPartner         = errors.New("partner id is required")
	ErrBookingInProgress      = errors.New("a booking with this idempotency key is still in progress")
)
