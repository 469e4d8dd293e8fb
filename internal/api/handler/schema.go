package handler

import (
	"time"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

// --- Envelopes ---

// errorResponse is the failure envelope rendered by the API error handler.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email"    validate:"required,email"`
	Role     string `json:"role"     validate:"omitempty,oneof=client"`
}

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email"    validate:"required,email"`
	Role     string `json:"role"     validate:"required,oneof=client partner admin"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

// --- Membership ---

type checkoutRequest struct {
	Tier     string `json:"tier"     validate:"required,oneof=silver gold platinum"`
	Interval string `json:"interval" validate:"omitempty,oneof=monthly annual"`
}

type urlResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

type accessResponse struct {
	Tier      domain.TierID          `json:"tier,omitempty"`
	Category  domain.ServiceCategory `json:"category"`
	CanAccess bool                   `json:"can_access"`
}

// --- Credits ---

type creditsResponse struct {
	Balance           int        `json:"balance"`
	MonthlyAllocation int        `json:"monthly_allocation"`
	IsUnlimited       bool       `json:"is_unlimited"`
	Tier              string     `json:"tier,omitempty"`
	LastAllocationAt  *time.Time `json:"last_allocation_at,omitempty"`
}

type checkCreditsResponse struct {
	Amount     int  `json:"amount"`
	Sufficient bool `json:"sufficient"`
}

type grantRequest struct {
	UserID           string `json:"user_id"            validate:"required"`
	Amount           int    `json:"amount"             validate:"required,gt=0"`
	Type             string `json:"transaction_type"   validate:"required,oneof=purchase bonus refund"`
	Description      string `json:"description"        validate:"max=500"`
	ServiceRequestID string `json:"service_request_id"`
}

type grantResponse struct {
	Success bool                  `json:"success"`
	Account *domain.CreditAccount `json:"account"`
}

// --- Bookings ---

type createBookingRequest struct {
	Title        string         `json:"title"        validate:"max=200"`
	Description  string         `json:"description"  validate:"max=5000"`
	Category     string         `json:"category"     validate:"required,category"`
	Priority     string         `json:"priority"     validate:"priority"`
	BudgetMin    *int           `json:"budget_min"   validate:"omitempty,gte=0"`
	BudgetMax    *int           `json:"budget_max"   validate:"omitempty,gte=0"`
	Deadline     *time.Time     `json:"deadline"`
	Requirements map[string]any `json:"requirements"`
}

type createBookingResponse struct {
	Success        bool   `json:"success"`
	RequestID      string `json:"request_id"`
	CreditsUsed    int    `json:"credits_used"`
	AlreadyExisted bool   `json:"already_existed,omitempty"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type quoteResponse struct {
	Category domain.ServiceCategory `json:"category"`
	Priority domain.Priority        `json:"priority"`
	Credits  int                    `json:"credits"`
}

// --- Requests ---

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"  validate:"max=2000"`
}

type assignPartnerRequest struct {
	PartnerID string `json:"partner_id" validate:"required"`
}

type transitionsResponse struct {
	RequestID string                 `json:"request_id"`
	Status    domain.RequestStatus   `json:"status"`
	Allowed   []domain.RequestStatus `json:"allowed"`
}
