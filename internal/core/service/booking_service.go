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

// BookingConfig holds policy switches for the booking flow.
type BookingConfig struct {
	// RefundOnCancel returns charged credits when a client cancels.
	RefundOnCancel bool
}

// BookingService orchestrates a submission across the subscription back end,
// the credit ledger and the request store.
type BookingService struct {
	requests ports.RequestRepository
	credits  ports.CreditService
	subs     ports.SubscriptionProvider
	dedup    ports.BookingDedup
	notifier ports.Notifier
	events   ports.EventEmitter
	cfg      BookingConfig
	log      zerolog.Logger
	now      func() time.Time
}

// NewBookingService wires the booking flow. dedup may be nil, which disables
// idempotent replays.
func NewBookingService(
	requests ports.RequestRepository,
	credits ports.CreditService,
	subs ports.SubscriptionProvider,
	dedup ports.BookingDedup,
	notifier ports.Notifier,
	events ports.EventEmitter,
	cfg BookingConfig,
	log zerolog.Logger,
) *BookingService {
	return &BookingService{
		requests: requests,
		credits:  credits,
		subs:     subs,
		dedup:    dedup,
		notifier: notifier,
		events:   events,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Quote prices a request exactly as CreateBooking will charge it.
func (s *BookingService) Quote(category domain.ServiceCategory, priority domain.Priority, budgetMax *int) int {
	return domain.CalculateServiceCreditCost(category, priority, budgetMax)
}

// CreateBooking submits a service request and charges its credit cost. If
// the debit fails the inserted request is deleted again.
func (s *BookingService) CreateBooking(ctx context.Context, session domain.Session, in ports.CreateBookingInput) (*ports.BookingResult, error) {
	if !session.Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}

	reserved := false
	if in.IdempotencyKey != "" && s.dedup != nil {
		prev, err := s.dedup.Reserve(ctx, session.UserID, in.IdempotencyKey)
		switch {
		case errors.Is(err, domain.ErrBookingInProgress):
			return nil, fmt.Errorf("create booking: %w", err)
		case err != nil:
			s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("idempotency reservation failed, booking anyway")
		case prev != nil:
			s.log.Info().Str("idempotency_key", in.IdempotencyKey).Str("request_id", prev.RequestID).Msg("idempotent replay")
			replay := *prev
			replay.AlreadyExisted = true
			return &replay, nil
		default:
			reserved = true
		}
	}

	result, err := s.createBooking(ctx, session, in)

	// The outcome is settled; bookkeeping must survive a client disconnect.
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		if reserved {
			if relErr := s.dedup.Release(ctx, session.UserID, in.IdempotencyKey); relErr != nil {
				s.log.Warn().Err(relErr).Str("idempotency_key", in.IdempotencyKey).Msg("failed to release idempotency key")
			}
		}
		s.notifier.Notify(ctx, session.UserID, domain.NotifyError, "Booking failed", failureMessage(err))
		return nil, err
	}

	if reserved {
		if err := s.dedup.Complete(ctx, session.UserID, in.IdempotencyKey, result); err != nil {
			s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency result")
		}
	}
	s.notifier.Notify(ctx, session.UserID, domain.NotifySuccess, "Request submitted",
		fmt.Sprintf("Your %s request has been submitted (%d credits).", in.Category.DisplayName(), result.CreditsUsed))
	return result, nil
}

func (s *BookingService) createBooking(ctx context.Context, session domain.Session, in ports.CreateBookingInput) (*ports.BookingResult, error) {
	if !in.Category.Valid() {
		return nil, fmt.Errorf("create booking: %w: %q", domain.ErrInvalidCategory, in.Category)
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityStandard
	}
	if in.Priority.Rank() < 0 {
		return nil, fmt.Errorf("create booking: %w: %q", domain.ErrInvalidPriority, in.Priority)
	}

	sub, err := s.subs.CheckSubscription(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	if !sub.Active() {
		return nil, fmt.Errorf("create booking: %w", domain.ErrNoActiveSubscription)
	}
	if !domain.CanAccessService(sub.Tier, in.Category) {
		return nil, fmt.Errorf("create booking: %w: %s is not included in the %s tier", domain.ErrNotAuthorized, in.Category, sub.Tier)
	}

	cost := s.Quote(in.Category, in.Priority, in.BudgetMax)
	unlimited := domain.IsUnlimitedTier(sub.Tier)

	acct, err := s.credits.FetchCredits(ctx, session.UserID, sub)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	if !unlimited && acct.Balance < cost {
		return nil, fmt.Errorf("create booking: %w (need %d, have %d)", domain.ErrInsufficientCredits, cost, acct.Balance)
	}

	charged := cost
	if unlimited {
		charged = 0
	}
	title := in.Title
	if title == "" {
		title = in.Category.DisplayName() + " request"
	}

	now := s.now()
	req := &domain.ServiceRequest{
		ID:             uuid.NewString(),
		ClientID:       session.UserID,
		Title:          title,
		Description:    in.Description,
		Category:       in.Category,
		Status:         domain.StatusPending,
		Priority:       in.Priority,
		BudgetMin:      in.BudgetMin,
		BudgetMax:      in.BudgetMax,
		Deadline:       in.Deadline,
		Requirements:   in.Requirements,
		CreditsCharged: charged,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create booking: insert request: %w", err)
	}

	used, err := s.credits.UseCredit(ctx, ports.UseCreditInput{
		UserID:           session.UserID,
		Tier:             sub.Tier,
		Amount:           cost,
		Description:      fmt.Sprintf("%s: %s", in.Category.DisplayName(), title),
		ServiceRequestID: req.ID,
	})
	// From here on the request row and the ledger must agree, whatever
	// happened to the caller.
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		if delErr := s.requests.Delete(ctx, req.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("request_id", req.ID).Msg("failed to roll back service request")
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	update := &domain.ServiceRequestUpdate{
		ID:                uuid.NewString(),
		ServiceRequestID:  req.ID,
		UpdateType:        domain.UpdateSubmission,
		NewStatus:         domain.StatusPending,
		Title:             "Request submitted",
		Description:       fmt.Sprintf("%d credits charged", used.Charged),
		UpdatedBy:         session.UserID,
		UpdatedByRole:     domain.RoleClient,
		IsVisibleToClient: true,
		Metadata:          map[string]any{"credits_charged": used.Charged, "credit_cost": cost},
		CreatedAt:         now,
	}
	if err := s.requests.AppendUpdate(ctx, update); err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID).Msg("failed to append submission update")
	}

	s.events.Emit(domain.DomainEvent{
		Key:         domain.EventBookingCreated,
		AggregateID: req.ID,
		OccurredAt:  now,
		Payload: map[string]any{
			"request_id":   req.ID,
			"client_id":    session.UserID,
			"category":     string(in.Category),
			"priority":     string(in.Priority),
			"tier":         string(sub.Tier),
			"credits_used": used.Charged,
		},
	})

	s.log.Info().
		Str("request_id", req.ID).
		Str("client_id", session.UserID).
		Str("category", string(in.Category)).
		Int("credits_used", used.Charged).
		Msg("booking created")

	return &ports.BookingResult{RequestID: req.ID, CreditsUsed: used.Charged}, nil
}

// CancelBooking lets a client withdraw a request that is still pending,
// in review or sourcing.
func (s *BookingService) CancelBooking(ctx context.Context, session domain.Session, requestID, reason string) error {
	if !session.Authenticated() {
		return domain.ErrNotAuthenticated
	}
	r, err := s.cancelBooking(ctx, session, requestID, reason)
	if err != nil {
		s.notifier.Notify(context.WithoutCancel(ctx), session.UserID, domain.NotifyError, "Cancellation failed", failureMessage(err))
		return err
	}
	s.notifier.Notify(context.WithoutCancel(ctx), session.UserID, domain.NotifySuccess, "Request cancelled",
		fmt.Sprintf("Your %s request %q has been cancelled.", r.Category.DisplayName(), r.Title))
	return nil
}

func (s *BookingService) cancelBooking(ctx context.Context, session domain.Session, requestID, reason string) (*domain.ServiceRequest, error) {
	r, err := s.requests.FindByID(ctx, requestID, "")
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if r.ClientID != session.UserID {
		return nil, fmt.Errorf("cancel booking: %w", domain.ErrNotAuthorized)
	}
	if !r.Status.ClientCancellable() {
		return nil, fmt.Errorf("cancel booking: %w (status %s)", domain.ErrCancellationNotAllowed, r.Status)
	}

	now := s.now()
	update := &domain.ServiceRequestUpdate{
		ID:                uuid.NewString(),
		ServiceRequestID:  r.ID,
		UpdateType:        domain.UpdateCancellation,
		PreviousStatus:    r.Status,
		NewStatus:         domain.StatusCancelled,
		Title:             "Request cancelled",
		Description:       reason,
		UpdatedBy:         session.UserID,
		UpdatedByRole:     domain.RoleClient,
		IsVisibleToClient: true,
		CreatedAt:         now,
	}
	if err := s.requests.TransitionStatus(ctx, r.ID, r.Status, update); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	ctx = context.WithoutCancel(ctx)

	refunded := 0
	if s.cfg.RefundOnCancel && r.CreditsCharged > 0 {
		_, err := s.credits.AddCredits(ctx, ports.AddCreditsInput{
			UserID:           r.ClientID,
			Amount:           r.CreditsCharged,
			Type:             domain.TxRefund,
			Description:      "Refund for cancelled request: " + r.Title,
			ServiceRequestID: r.ID,
		})
		if err != nil {
			s.log.Error().Err(err).Str("request_id", r.ID).Int("amount", r.CreditsCharged).Msg("cancellation refund failed")
		} else {
			refunded = r.CreditsCharged
		}
	}

	s.events.Emit(domain.DomainEvent{
		Key:         domain.EventBookingCancelled,
		AggregateID: r.ID,
		OccurredAt:  now,
		Payload: map[string]any{
			"request_id":       r.ID,
			"client_id":        r.ClientID,
			"previous_status":  string(r.Status),
			"credits_refunded": refunded,
		},
	})
	s.log.Info().Str("request_id", r.ID).Str("client_id", r.ClientID).Int("refunded", refunded).Msg("booking cancelled")

	r.Status = domain.StatusCancelled
	return r, nil
}
