package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type RequestService struct {
	repo     ports.RequestRepository
	notifier ports.Notifier
	events   ports.EventEmitter
	log      zerolog.Logger
	now      func() time.Time
}

func NewRequestService(repo ports.RequestRepository, notifier ports.Notifier, events ports.EventEmitter, log zerolog.Logger) *RequestService {
	return &RequestService{
		repo:     repo,
		notifier: notifier,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// load fetches a request the session is allowed to see. Clients only see
// their own; partners only those assigned to them.
func (s *RequestService) load(ctx context.Context, session domain.Session, id string) (*domain.ServiceRequest, error) {
	clientFilter := ""
	if session.Role == domain.RoleClient {
		clientFilter = session.UserID
	}
	r, err := s.repo.FindByID(ctx, id, clientFilter)
	if err != nil {
		return nil, err
	}
	if session.Role == domain.RolePartner && r.PartnerID != session.UserID {
		return nil, domain.ErrNotAuthorized
	}
	return r, nil
}

func scopeFilter(session domain.Session, f ports.ListRequestsFilter) ports.ListRequestsFilter {
	switch session.Role {
	case domain.RoleClient:
		f.ClientID = session.UserID
	case domain.RolePartner:
		f.PartnerID = session.UserID
	}
	return f
}

// Get returns a request and its audit trail. Clients only see updates marked visible.
func (s *RequestService) Get(ctx context.Context, session domain.Session, id string) (*ports.RequestDetail, error) {
	if !session.Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	r, err := s.load(ctx, session, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	updates, err := s.repo.ListUpdates(ctx, id, session.Role == domain.RoleClient)
	if err != nil {
		return nil, fmt.Errorf("get request: list updates: %w", err)
	}
	return &ports.RequestDetail{Request: r, Updates: updates}, nil
}

func (s *RequestService) List(ctx context.Context, session domain.Session, f ports.ListRequestsFilter) (*ports.RequestPage, error) {
	if !session.Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	f = scopeFilter(session, f)
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if items == nil {
		items = []*domain.ServiceRequest{}
	}
	return &ports.RequestPage{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// CanTransition reports whether the stored request may move to target.
func (s *RequestService) CanTransition(ctx context.Context, session domain.Session, id string, target domain.RequestStatus) (bool, error) {
	if !session.Authenticated() {
		return false, domain.ErrNotAuthenticated
	}
	r, err := s.load(ctx, session, id)
	if err != nil {
		return false, fmt.Errorf("can transition: %w", err)
	}
	return r.Status.CanTransitionTo(target), nil
}

// AdvanceStatus validates the move against the transition table, persists
// it together with a status_change update, then notifies and publishes.
func (s *RequestService) AdvanceStatus(ctx context.Context, in ports.AdvanceStatusInput) error {
	if !in.Actor.Authenticated() {
		return domain.ErrNotAuthenticated
	}
	r, err := s.advance(ctx, in)
	if err != nil {
		s.notifier.Notify(ctx, in.Actor.UserID, domain.NotifyError, "Status update failed", failureMessage(err))
		return err
	}

	label := statusLabel(in.NewStatus)
	s.notifier.Notify(ctx, in.Actor.UserID, domain.NotifySuccess, "Status updated",
		fmt.Sprintf("Request %q is now %s.", r.Title, label))
	if r.ClientID != in.Actor.UserID {
		s.notifier.Notify(ctx, r.ClientID, domain.NotifyInfo, "Request update",
			fmt.Sprintf("Your %s request %q is now %s.", r.Category.DisplayName(), r.Title, label))
	}
	return nil
}

func (s *RequestService) advance(ctx context.Context, in ports.AdvanceStatusInput) (*domain.ServiceRequest, error) {
	if in.Actor.Role == domain.RoleClient {
		return nil, fmt.Errorf("advance status: %w", domain.ErrNotAuthorized)
	}

	r, err := s.load(ctx, in.Actor, in.RequestID)
	if err != nil {
		return nil, fmt.Errorf("advance status: %w", err)
	}
	if !r.Status.CanTransitionTo(in.NewStatus) {
		return nil, fmt.Errorf("advance status: %w (from %s to %s)", domain.ErrInvalidTransition, r.Status, in.NewStatus)
	}

	now := s.now()
	update := &domain.ServiceRequestUpdate{
		ID:                uuid.NewString(),
		ServiceRequestID:  r.ID,
		UpdateType:        domain.UpdateStatusChange,
		PreviousStatus:    r.Status,
		NewStatus:         in.NewStatus,
		Title:             "Status changed to " + statusLabel(in.NewStatus),
		Description:       in.Notes,
		UpdatedBy:         in.Actor.UserID,
		UpdatedByRole:     in.Actor.Role,
		IsVisibleToClient: true,
		CreatedAt:         now,
	}
	if err := s.repo.TransitionStatus(ctx, r.ID, r.Status, update); err != nil {
		return nil, fmt.Errorf("advance status: %w", err)
	}

	s.events.Emit(domain.DomainEvent{
		Key:         domain.EventRequestStatusChanged,
		AggregateID: r.ID,
		OccurredAt:  now,
		Payload: map[string]any{
			"request_id":      r.ID,
			"client_id":       r.ClientID,
			"previous_status": string(r.Status),
			"new_status":      string(in.NewStatus),
			"updated_by":      in.Actor.UserID,
		},
	})

	s.log.Info().
		Str("request_id", r.ID).
		Str("from", string(r.Status)).
		Str("to", string(in.NewStatus)).
		Str("actor", in.Actor.UserID).
		Msg("request status advanced")

	r.Status = in.NewStatus
	return r, nil
}

// AssignPartner attaches a fulfilment partner without changing status.
func (s *RequestService) AssignPartner(ctx context.Context, session domain.Session, id, partnerID string) error {
	if !session.Authenticated() {
		return domain.ErrNotAuthenticated
	}
	r, err := s.assignPartner(ctx, session, id, partnerID)
	if err != nil {
		s.notifier.Notify(ctx, session.UserID, domain.NotifyError, "Partner assignment failed", failureMessage(err))
		return err
	}

	s.notifier.Notify(ctx, session.UserID, domain.NotifySuccess, "Partner assigned",
		fmt.Sprintf("Partner assigned to request %q.", r.Title))
	s.notifier.Notify(ctx, r.ClientID, domain.NotifyInfo, "Request update",
		fmt.Sprintf("A partner is now handling your %s request.", r.Category.DisplayName()))
	s.notifier.Notify(ctx, partnerID, domain.NotifyInfo, "New assignment",
		fmt.Sprintf("You have been assigned the %s request %q.", r.Category.DisplayName(), r.Title))
	return nil
}

func (s *RequestService) assignPartner(ctx context.Context, session domain.Session, id, partnerID string) (*domain.ServiceRequest, error) {
	if !session.IsAdmin() {
		return nil, fmt.Errorf("assign partner: %w", domain.ErrNotAuthorized)
	}
	if strings.TrimSpace(partnerID) == "" {
		return nil, fmt.Errorf("assign partner: %w", domain.ErrInvalidPartner)
	}

	r, err := s.load(ctx, session, id)
	if err != nil {
		return nil, fmt.Errorf("assign partner: %w", err)
	}
	if r.Status.IsTerminal() {
		return nil, fmt.Errorf("assign partner: %w (request is %s)", domain.ErrInvalidTransition, r.Status)
	}

	now := s.now()
	update := &domain.ServiceRequestUpdate{
		ID:                uuid.NewString(),
		ServiceRequestID:  r.ID,
		UpdateType:        domain.UpdatePartnerAssigned,
		Title:             "Partner assigned",
		UpdatedBy:         session.UserID,
		UpdatedByRole:     session.Role,
		IsVisibleToClient: true,
		Metadata:          map[string]any{"partner_id": partnerID},
		CreatedAt:         now,
	}
	if err := s.repo.AssignPartner(ctx, r.ID, partnerID, update); err != nil {
		return nil, fmt.Errorf("assign partner: %w", err)
	}

	s.events.Emit(domain.DomainEvent{
		Key:         domain.EventRequestPartnerAssigned,
		AggregateID: r.ID,
		OccurredAt:  now,
		Payload: map[string]any{
			"request_id": r.ID,
			"client_id":  r.ClientID,
			"partner_id": partnerID,
		},
	})
	s.log.Info().Str("request_id", r.ID).Str("partner_id", partnerID).Msg("partner assigned")

	r.PartnerID = partnerID
	return r, nil
}

// SLAMetrics aggregates fulfilment performance over every request the
// session can see.
func (s *RequestService) SLAMetrics(ctx context.Context, session domain.Session) (*domain.SLAMetrics, error) {
	if !session.Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	items, _, err := s.repo.List(ctx, scopeFilter(session, ports.ListRequestsFilter{}))
	if err != nil {
		return nil, fmt.Errorf("sla metrics: %w", err)
	}
	m := domain.ComputeSLAMetrics(items)
	return &m, nil
}

func statusLabel(st domain.RequestStatus) string {
	return strings.ReplaceAll(string(st), "_", " ")
}

// failureMessage turns an error into member-facing text without leaking
// infrastructure details.
func failureMessage(err error) string {
	known := []error{
		domain.ErrNotAuthenticated,
		domain.ErrNotAuthorized,
		domain.ErrInsufficientCredits,
		domain.ErrInvalidTransition,
		domain.ErrCancellationNotAllowed,
		domain.ErrRequestNotFound,
		domain.ErrNoActiveSubscription,
		domain.ErrStatusConflict,
		domain.ErrInvalidCategory,
		domain.ErrInvalidPriority,
		domain.ErrInvalidPartner,
		domain.ErrRemoteFailure,
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "something went wrong, please try again"
}
