package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aurelia/concierge-system/internal/api/middleware"
	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

// newContext builds an echo context; a non-empty userID simulates the Auth middleware.
func newContext(method, target, body, userID, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set(middleware.CtxUserID, userID)
		c.Set(middleware.CtxRole, role)
	}
	return c, rec
}

// expectHTTPError asserts err is an echo.HTTPError with the given code.
func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError %d, got %v", code, err)
	}
	if he.Code != code {
		t.Fatalf("expected status %d, got %d (%v)", code, he.Code, he.Message)
	}
}

// ----

type stubBookings struct {
	result    *ports.BookingResult
	err       error
	lastIn    ports.CreateBookingInput
	cancelled string
	reason    string
}

func (s *stubBookings) Quote(category domain.ServiceCategory, priority domain.Priority, budgetMax *int) int {
	return domain.CalculateServiceCreditCost(category, priority, budgetMax)
}

func (s *stubBookings) CreateBooking(_ context.Context, _ domain.Session, in ports.CreateBookingInput) (*ports.BookingResult, error) {
	s.lastIn = in
	return s.result, s.err
}

func (s *stubBookings) CancelBooking(_ context.Context, _ domain.Session, id, reason string) error {
	s.cancelled, s.reason = id, reason
	return s.err
}

// ----

type stubRequests struct {
	detail     *ports.RequestDetail
	page       *ports.RequestPage
	can        bool
	err        error
	lastFilter ports.ListRequestsFilter
	lastAdv    ports.AdvanceStatusInput
	partner    string
	sla        *domain.SLAMetrics
}

func (s *stubRequests) Get(context.Context, domain.Session, string) (*ports.RequestDetail, error) {
	return s.detail, s.err
}

func (s *stubRequests) List(_ context.Context, _ domain.Session, f ports.ListRequestsFilter) (*ports.RequestPage, error) {
	s.lastFilter = f
	return s.page, s.err
}

func (s *stubRequests) CanTransition(context.Context, domain.Session, string, domain.RequestStatus) (bool, error) {
	return s.can, s.err
}

func (s *stubRequests) AdvanceStatus(_ context.Context, in ports.AdvanceStatusInput) error {
	s.lastAdv = in
	return s.err
}

func (s *stubRequests) AssignPartner(_ context.Context, _ domain.Session, _, partnerID string) error {
	s.partner = partnerID
	return s.err
}

func (s *stubRequests) SLAMetrics(context.Context, domain.Session) (*domain.SLAMetrics, error) {
	return s.sla, s.err
}

// ----

type stubCredits struct {
	account  *domain.CreditAccount
	fetchErr error
	txs      []*domain.CreditTransaction
	since    time.Time
	enough   bool
	added    ports.AddCreditsInput
	addErr   error
}

func (s *stubCredits) FetchCredits(context.Context, string, *domain.Subscription) (*domain.CreditAccount, error) {
	return s.account, s.fetchErr
}

func (s *stubCredits) UseCredit(context.Context, ports.UseCreditInput) (*ports.UseCreditResult, error) {
	return nil, errors.New("not used")
}

func (s *stubCredits) AddCredits(_ context.Context, in ports.AddCreditsInput) (*domain.CreditAccount, error) {
	s.added = in
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &domain.CreditAccount{UserID: in.UserID, Balance: in.Amount}, nil
}

func (s *stubCredits) CheckCredits(context.Context, string, domain.TierID, int) (bool, error) {
	return s.enough, nil
}

func (s *stubCredits) ListTransactions(_ context.Context, _ string, since time.Time) ([]*domain.CreditTransaction, error) {
	s.since = since
	return s.txs, nil
}

func (s *stubCredits) RenewAllocation(context.Context, string, domain.TierID, time.Time) (bool, error) {
	return false, nil
}

// ----

type stubSubscriptions struct {
	sub *domain.Subscription
	err error
}

func (s *stubSubscriptions) CheckSubscription(context.Context, string) (*domain.Subscription, error) {
	return s.sub, s.err
}

// ----

type stubMembership struct {
	sub    *domain.Subscription
	url    string
	err    error
	tier   domain.TierID
	annual bool
	canUse bool
}

func (s *stubMembership) Tiers() []domain.MembershipTier { return domain.Tiers() }

func (s *stubMembership) CheckSubscription(context.Context, domain.Session) (*domain.Subscription, error) {
	return s.sub, s.err
}

func (s *stubMembership) CreateCheckout(_ context.Context, _ domain.Session, tier domain.TierID, annual bool) (string, error) {
	s.tier, s.annual = tier, annual
	return s.url, s.err
}

func (s *stubMembership) CustomerPortal(context.Context, domain.Session) (string, error) {
	return s.url, s.err
}

func (s *stubMembership) CanAccess(context.Context, domain.Session, domain.ServiceCategory) (bool, error) {
	return s.canUse, s.err
}

type stubAutomation struct {
	usage *domain.UsageMetrics
	rec   *domain.UpgradeRecommendation
	err   error
}

func (s *stubAutomation) UsageMetrics(context.Context, domain.Session) (*domain.UsageMetrics, error) {
	return s.usage, s.err
}

func (s *stubAutomation) UpgradeRecommendation(context.Context, domain.Session) (*domain.UpgradeRecommendation, error) {
	return s.rec, s.err
}

func (s *stubAutomation) CheckUpgradeNeeded(context.Context, domain.Session) (bool, error) {
	return s.rec != nil && s.rec.ShouldUpgrade, s.err
}

func (s *stubAutomation) RenewDueAllocations(context.Context) (int, error) { return 0, nil }

// ----

type stubNotifications struct {
	items []*domain.Notification
	limit int
}

func (s *stubNotifications) Notify(context.Context, string, domain.NotificationLevel, string, string) {}

func (s *stubNotifications) List(_ context.Context, _ domain.Session, limit int) ([]*domain.Notification, error) {
	s.limit = limit
	return s.items, nil
}
