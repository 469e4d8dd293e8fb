package ports

import (
	"context"
	"time"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

// ListRequestsFilter carries all query parameters for listing service requests.
// ClientID and PartnerID are always enforced by the service layer.
type ListRequestsFilter struct {
	ClientID  string    // empty = no filter (admin)
	PartnerID string    // non-empty = scoped to an assigned partner
	Status    string    // optional
	Category  string    // optional
	DateFrom  time.Time // optional: created_at >= DateFrom
	DateTo    time.Time // optional: created_at <= DateTo
	Page      int       // 1-based
	Limit     int       // 0 = no limit
}

// RequestRepository defines persistence operations for service requests and
// their audit trail.
type RequestRepository interface {
	Create(ctx context.Context, r *domain.ServiceRequest) error
	// FindByID retrieves a request. When clientID is non-empty the lookup is
	// additionally scoped to that client.
	FindByID(ctx context.Context, id, clientID string) (*domain.ServiceRequest, error)
	Delete(ctx context.Context, id string) error

	// TransitionStatus moves the request from `from` to update.NewStatus and
	// appends update in one transaction. It fails with domain.ErrStatusConflict
	// when the stored status is no longer `from`.
	TransitionStatus(ctx context.Context, id string, from domain.RequestStatus, update *domain.ServiceRequestUpdate) error

	// AssignPartner sets the partner and appends update in one transaction.
	AssignPartner(ctx context.Context, id, partnerID string, update *domain.ServiceRequestUpdate) error

	AppendUpdate(ctx context.Context, u *domain.ServiceRequestUpdate) error
	ListUpdates(ctx context.Context, requestID string, visibleOnly bool) ([]*domain.ServiceRequestUpdate, error)

	// List returns a page of requests matching filter and the total count.
	List(ctx context.Context, filter ListRequestsFilter) ([]*domain.ServiceRequest, int64, error)
}
