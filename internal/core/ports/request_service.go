package ports

import (
	"context"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

// AdvanceStatusInput is a request to move a service request forward.
type AdvanceStatusInput struct {
	RequestID string
	NewStatus domain.RequestStatus
	Notes     string
	Actor     domain.Session
}

// RequestDetail is a request with the updates visible to the caller.
type RequestDetail struct {
	Request *domain.ServiceRequest         `json:"request"`
	Updates []*domain.ServiceRequestUpdate `json:"updates"`
}

// RequestPage is one page of a request listing.
type RequestPage struct {
	Items []*domain.ServiceRequest `json:"items"`
	Total int64                    `json:"total"`
	Page  int                      `json:"page"`
	Limit int                      `json:"limit"`
}

type RequestService interface {
	Get(ctx context.Context, session domain.Session, id string) (*RequestDetail, error)
	List(ctx context.Context, session domain.Session, filter ListRequestsFilter) (*RequestPage, error)
	CanTransition(ctx context.Context, session domain.Session, id string, target domain.RequestStatus) (bool, error)
	AdvanceStatus(ctx context.Context, in AdvanceStatusInput) error
	AssignPartner(ctx context.Context, session domain.Session, id, partnerID string) error
	SLAMetrics(ctx context.Context, session domain.Session) (*domain.SLAMetrics, error)
}
