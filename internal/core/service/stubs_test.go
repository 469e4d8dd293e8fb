package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory credit repository. Mutations hold the lock for their whole
// duration, mirroring the single-statement atomicity of the Postgres store.
// ---------------------------------------------------------------------------

type stubCreditRepo struct {
	mu          sync.Mutex
	accounts    map[string]*domain.CreditAccount
	txs         []*domain.CreditTransaction
	applyErr    error
	recordErr   error
	createCalls int

	// beforeApply runs ahead of every ApplyTransaction, afterApply once it
	// has committed.
	beforeApply func()
	afterApply  func()
}

func newStubCreditRepo() *stubCreditRepo {
	return &stubCreditRepo{accounts: make(map[string]*domain.CreditAccount)}
}

// seed installs an account without writing ledger rows.
func (r *stubCreditRepo) seed(userID string, balance int, lastAllocation time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[userID] = &domain.CreditAccount{
		UserID:            userID,
		Balance:           balance,
		MonthlyAllocation: balance,
		LastAllocationAt:  lastAllocation,
	}
}

func (r *stubCreditRepo) balance(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[userID].Balance
}

func (r *stubCreditRepo) transactions(userID string) []*domain.CreditTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.CreditTransaction
	for _, tx := range r.txs {
		if tx.UserID == userID {
			clone := *tx
			out = append(out, &clone)
		}
	}
	return out
}

func (r *stubCreditRepo) FindAccount(_ context.Context, userID string) (*domain.CreditAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubCreditRepo) CreateAccountIfAbsent(_ context.Context, userID string, allocation int, now time.Time) (*domain.CreditAccount, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[userID]; ok {
		clone := *a
		return &clone, false, nil
	}
	r.createCalls++
	a := &domain.CreditAccount{
		UserID:            userID,
		Balance:           allocation,
		MonthlyAllocation: allocation,
		LastAllocationAt:  now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.accounts[userID] = a
	if allocation > 0 {
		r.txs = append(r.txs, &domain.CreditTransaction{
			ID:           "alloc-" + userID,
			UserID:       userID,
			Amount:       allocation,
			Type:         domain.TxAllocation,
			BalanceAfter: allocation,
			CreatedAt:    now,
		})
	}
	clone := *a
	return &clone, true, nil
}

func (r *stubCreditRepo) ApplyTransaction(ctx context.Context, tx *domain.CreditTransaction) (*domain.CreditAccount, error) {
	if r.beforeApply != nil {
		r.beforeApply()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return nil, r.applyErr
	}
	a, ok := r.accounts[tx.UserID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	next := a.Balance + tx.Amount
	if next < 0 {
		return nil, domain.ErrInsufficientCredits
	}
	a.Balance = next
	tx.BalanceAfter = next
	clone := *tx
	r.txs = append(r.txs, &clone)
	out := *a
	if r.afterApply != nil {
		r.afterApply()
	}
	return &out, nil
}

func (r *stubCreditRepo) RecordTransaction(_ context.Context, tx *domain.CreditTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	a, ok := r.accounts[tx.UserID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	tx.BalanceAfter = a.Balance
	clone := *tx
	r.txs = append(r.txs, &clone)
	return nil
}

func (r *stubCreditRepo) RenewAllocation(_ context.Context, userID string, amount int, now time.Time) (*domain.CreditAccount, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return nil, false, domain.ErrAccountNotFound
	}
	if !a.AllocationDue(now) {
		clone := *a
		return &clone, false, nil
	}
	a.Balance += amount
	a.MonthlyAllocation = amount
	a.LastAllocationAt = now
	r.txs = append(r.txs, &domain.CreditTransaction{
		UserID:       userID,
		Amount:       amount,
		Type:         domain.TxAllocation,
		BalanceAfter: a.Balance,
		CreatedAt:    now,
	})
	clone := *a
	return &clone, true, nil
}

func (r *stubCreditRepo) ListTransactions(_ context.Context, userID string, since time.Time) ([]*domain.CreditTransaction, error) {
	txs := r.transactions(userID)
	var out []*domain.CreditTransaction
	for i := len(txs) - 1; i >= 0; i-- {
		if !txs[i].CreatedAt.Before(since) {
			out = append(out, txs[i])
		}
	}
	return out, nil
}

func (r *stubCreditRepo) MarkAllocationChecked(_ context.Context, userID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if a.AllocationDue(now) {
		a.LastAllocationAt = now
	}
	return nil
}

func (r *stubCreditRepo) ListAccountsDueForAllocation(_ context.Context, monthStart time.Time, afterUserID string, limit int) ([]*domain.CreditAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.CreditAccount
	for _, a := range r.accounts {
		if a.LastAllocationAt.Before(monthStart) && a.UserID > afterUserID {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// In-memory request repository
// ---------------------------------------------------------------------------

type stubRequestRepo struct {
	mu            sync.Mutex
	byID          map[string]*domain.ServiceRequest
	updates       []*domain.ServiceRequestUpdate
	deleted       []string
	createErr     error
	transitionErr error
	appendErr     error

	// afterTransition runs after every TransitionStatus call.
	afterTransition func()
}

func newStubRequestRepo() *stubRequestRepo {
	return &stubRequestRepo{byID: make(map[string]*domain.ServiceRequest)}
}

func (r *stubRequestRepo) put(req *domain.ServiceRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *req
	r.byID[req.ID] = &clone
}

func (r *stubRequestRepo) get(id string) *domain.ServiceRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.byID[id]
	if !ok {
		return nil
	}
	clone := *req
	return &clone
}

func (r *stubRequestRepo) updatesFor(id string) []*domain.ServiceRequestUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ServiceRequestUpdate
	for _, u := range r.updates {
		if u.ServiceRequestID == id {
			out = append(out, u)
		}
	}
	return out
}

func (r *stubRequestRepo) Create(_ context.Context, req *domain.ServiceRequest) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.put(req)
	return nil
}

func (r *stubRequestRepo) FindByID(_ context.Context, id, clientID string) (*domain.ServiceRequest, error) {
	req := r.get(id)
	if req == nil {
		return nil, domain.ErrRequestNotFound
	}
	// Enforce client filter (mirrors the real query)
	if clientID != "" && req.ClientID != clientID {
		return nil, domain.ErrRequestNotFound
	}
	return req, nil
}

func (r *stubRequestRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubRequestRepo) TransitionStatus(ctx context.Context, id string, from domain.RequestStatus, u *domain.ServiceRequestUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.afterTransition != nil {
		defer r.afterTransition()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transitionErr != nil {
		return r.transitionErr
	}
	req, ok := r.byID[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if req.Status != from {
		return domain.ErrStatusConflict
	}
	req.Status = u.NewStatus
	req.UpdatedAt = u.CreatedAt
	if u.NewStatus == domain.StatusCompleted {
		at := u.CreatedAt
		req.CompletedAt = &at
	}
	r.updates = append(r.updates, u)
	return nil
}

func (r *stubRequestRepo) AssignPartner(_ context.Context, id, partnerID string, u *domain.ServiceRequestUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.byID[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	req.PartnerID = partnerID
	r.updates = append(r.updates, u)
	return nil
}

func (r *stubRequestRepo) AppendUpdate(ctx context.Context, u *domain.ServiceRequestUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.appendErr != nil {
		return r.appendErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

func (r *stubRequestRepo) ListUpdates(_ context.Context, requestID string, visibleOnly bool) ([]*domain.ServiceRequestUpdate, error) {
	var out []*domain.ServiceRequestUpdate
	for _, u := range r.updatesFor(requestID) {
		if visibleOnly && !u.IsVisibleToClient {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// List applies the same filters the real repository would use.
func (r *stubRequestRepo) List(_ context.Context, f ports.ListRequestsFilter) ([]*domain.ServiceRequest, int64, error) {
	r.mu.Lock()
	var matched []*domain.ServiceRequest
	for _, req := range r.byID {
		if f.ClientID != "" && req.ClientID != f.ClientID {
			continue
		}
		if f.PartnerID != "" && req.PartnerID != f.PartnerID {
			continue
		}
		if f.Status != "" && string(req.Status) != f.Status {
			continue
		}
		if f.Category != "" && string(req.Category) != f.Category {
			continue
		}
		if !f.DateFrom.IsZero() && req.CreatedAt.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && req.CreatedAt.After(f.DateTo) {
			continue
		}
		clone := *req
		matched = append(matched, &clone)
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	if f.Limit <= 0 {
		return matched, total, nil
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	skip := (page - 1) * f.Limit
	if skip > len(matched) {
		return []*domain.ServiceRequest{}, total, nil
	}
	end := skip + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

type stubSubs struct {
	mu     sync.Mutex
	def    *domain.Subscription
	byUser map[string]*domain.Subscription
	err    error
	calls  int

	// entered and hold, when set, park the first caller until hold is closed.
	entered chan struct{}
	hold    chan struct{}
}

func subscribed(tier domain.TierID) *stubSubs {
	return &stubSubs{def: &domain.Subscription{Subscribed: true, Tier: tier}}
}

func (s *stubSubs) CheckSubscription(_ context.Context, userID string) (*domain.Subscription, error) {
	if s.hold != nil {
		s.entered <- struct{}{}
		<-s.hold
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if sub, ok := s.byUser[userID]; ok {
		return sub, nil
	}
	if s.def == nil {
		return &domain.Subscription{}, nil
	}
	return s.def, nil
}

type stubBilling struct {
	*stubSubs
	checkoutPriceID string
	checkoutErr     error
}

func (b *stubBilling) CreateCheckout(_ context.Context, _ string, priceID string) (string, error) {
	if b.checkoutErr != nil {
		return "", b.checkoutErr
	}
	b.checkoutPriceID = priceID
	return "https://pay.example.com/checkout/" + priceID, nil
}

func (b *stubBilling) CustomerPortal(_ context.Context, userID string) (string, error) {
	return "https://pay.example.com/portal/" + userID, nil
}

type sentNotification struct {
	UserID string
	Level  domain.NotificationLevel
	Title  string
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *stubNotifier) Notify(_ context.Context, userID string, level domain.NotificationLevel, title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Level: level, Title: title})
}

func (n *stubNotifier) count(userID string, level domain.NotificationLevel) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.UserID == userID && s.Level == level {
			c++
		}
	}
	return c
}

type stubEmitter struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (e *stubEmitter) Emit(evt domain.DomainEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
}

func (e *stubEmitter) keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, evt := range e.events {
		out = append(out, evt.Key)
	}
	return out
}

type stubDedup struct {
	mu         sync.Mutex
	results    map[string]*ports.BookingResult
	pending    map[string]bool
	released   []string
	reserveErr error
}

func newStubDedup() *stubDedup {
	return &stubDedup{results: make(map[string]*ports.BookingResult), pending: make(map[string]bool)}
}

func (d *stubDedup) Reserve(_ context.Context, clientID, key string) (*ports.BookingResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reserveErr != nil {
		return nil, d.reserveErr
	}
	k := clientID + ":" + key
	if res, ok := d.results[k]; ok {
		clone := *res
		return &clone, nil
	}
	if d.pending[k] {
		return nil, domain.ErrBookingInProgress
	}
	d.pending[k] = true
	return nil, nil
}

func (d *stubDedup) Complete(_ context.Context, clientID, key string, result *ports.BookingResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := clientID + ":" + key
	delete(d.pending, k)
	clone := *result
	d.results[k] = &clone
	return nil
}

func (d *stubDedup) Release(ctx context.Context, clientID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, clientID+":"+key)
	d.released = append(d.released, key)
	return nil
}

type stubNotificationRepo struct {
	inserted  []*domain.Notification
	insertErr error
}

func (r *stubNotificationRepo) Insert(_ context.Context, n *domain.Notification) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, n)
	return nil
}

func (r *stubNotificationRepo) ListByUser(_ context.Context, userID string, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	for i := len(r.inserted) - 1; i >= 0 && len(out) < limit; i-- {
		if r.inserted[i].UserID == userID {
			out = append(out, r.inserted[i])
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

// march is a fixed clock inside a calendar month so allocation checks are stable.
var march = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

func clientSession(id string) domain.Session {
	return domain.Session{UserID: id, Role: domain.RoleClient}
}

func sumAmounts(txs []*domain.CreditTransaction) int {
	total := 0
	for _, tx := range txs {
		total += tx.Amount
	}
	return total
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
