package domain

import "time"

// RequestStatus represents the lifecycle state of a service request.
type RequestStatus string

const (
	StatusPending              RequestStatus = "pending"
	StatusInReview             RequestStatus = "in_review"
	StatusSourcing             RequestStatus = "sourcing"
	StatusAccepted             RequestStatus = "accepted"
	StatusInProgress           RequestStatus = "in_progress"
	StatusOptionsReady         RequestStatus = "options_ready"
	StatusAwaitingConfirmation RequestStatus = "awaiting_confirmation"
	StatusFulfilling           RequestStatus = "fulfilling"
	StatusCompleted            RequestStatus = "completed"
	StatusCancelled            RequestStatus = "cancelled"
)

// validTransitions defines the allowed state machine transitions.
// Terminal states have no entry.
var validTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:              {StatusInReview, StatusSourcing, StatusAccepted, StatusInProgress, StatusCancelled},
	StatusInReview:             {StatusSourcing, StatusAccepted, StatusInProgress, StatusCancelled},
	StatusSourcing:             {StatusOptionsReady, StatusCancelled},
	StatusAccepted:             {StatusOptionsReady, StatusAwaitingConfirmation, StatusCancelled},
	StatusInProgress:           {StatusOptionsReady, StatusAwaitingConfirmation, StatusCancelled},
	StatusOptionsReady:         {StatusAwaitingConfirmation, StatusFulfilling, StatusCancelled},
	StatusAwaitingConfirmation: {StatusFulfilling, StatusCancelled},
	StatusFulfilling:           {StatusCompleted, StatusCancelled},
}

// clientCancellable is the window in which a client may still withdraw a request.
var clientCancellable = map[RequestStatus]bool{
	StatusPending:  true,
	StatusInReview: true,
	StatusSourcing: true,
}

var knownStatuses = map[RequestStatus]bool{
	StatusPending: true, StatusInReview: true, StatusSourcing: true,
	StatusAccepted: true, StatusInProgress: true, StatusOptionsReady: true,
	StatusAwaitingConfirmation: true, StatusFulfilling: true,
	StatusCompleted: true, StatusCancelled: true,
}

// ParseRequestStatus validates input against the known statuses.
func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(s)
	if !knownStatuses[st] {
		return "", ErrInvalidTransition
	}
	return st, nil
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the targets reachable from s.
func (s RequestStatus) AllowedTransitions() []RequestStatus {
	return append([]RequestStatus(nil), validTransitions[s]...)
}

func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ClientCancellable reports whether the owning client may still cancel.
func (s RequestStatus) ClientCancellable() bool {
	return clientCancellable[s]
}

// ServiceRequest is the core aggregate root.
type ServiceRequest struct {
	ID             string          `json:"id"`
	ClientID       string          `json:"client_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       ServiceCategory `json:"category"`
	Status         RequestStatus   `json:"status"`
	Priority       Priority        `json:"priority"`
	BudgetMin      *int            `json:"budget_min,omitempty"`
	BudgetMax      *int            `json:"budget_max,omitempty"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
	PartnerID      string          `json:"partner_id,omitempty"`
	Requirements   map[string]any  `json:"requirements,omitempty"`
	CreditsCharged int             `json:"credits_charged"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// UpdateType classifies an audit entry on a request.
type UpdateType string

const (
	UpdateSubmission      UpdateType = "submission"
	UpdateStatusChange    UpdateType = "status_change"
	UpdateCancellation    UpdateType = "cancellation"
	UpdatePartnerAssigned UpdateType = "partner_assigned"
)

// ServiceRequestUpdate is an immutable audit entry. One is appended on
// submission and on every status transition.
type ServiceRequestUpdate struct {
	ID                string         `json:"id"`
	ServiceRequestID  string         `json:"service_request_id"`
	UpdateType        UpdateType     `json:"update_type"`
	PreviousStatus    RequestStatus  `json:"previous_status,omitempty"`
	NewStatus         RequestStatus  `json:"new_status,omitempty"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	UpdatedBy         string         `json:"updated_by"`
	UpdatedByRole     string         `json:"updated_by_role"`
	IsVisibleToClient bool           `json:"is_visible_to_client"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}
