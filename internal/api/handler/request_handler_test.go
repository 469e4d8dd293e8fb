package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

func withID(c echo.Context, id string) {
	c.SetParamNames("id")
	c.SetParamValues(id)
}

func TestRequestHandler_List_ParsesFilter(t *testing.T) {
	stub := &stubRequests{page: &ports.RequestPage{Items: []*domain.ServiceRequest{}, Page: 2, Limit: 5}}
	c, rec := newContext(http.MethodGet,
		"/v1/requests?status=sourcing&category=travel&date_from=2026-03-01T00:00:00Z&page=2&limit=5",
		"", "admin-1", domain.RoleAdmin)

	if err := NewRequestHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	f := stub.lastFilter
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if f.Status != "sourcing" || f.Category != "travel" || !f.DateFrom.Equal(want) || f.Page != 2 || f.Limit != 5 {
		t.Errorf("unexpected filter: %+v", f)
	}
	if !f.DateTo.IsZero() {
		t.Errorf("date_to should be unset, got %v", f.DateTo)
	}
}

func TestRequestHandler_List_BadQuery(t *testing.T) {
	tests := []string{
		"?status=lost",
		"?date_to=yesterday",
		"?page=-1",
		"?limit=many",
	}
	for _, q := range tests {
		c, _ := newContext(http.MethodGet, "/v1/requests"+q, "", "u1", domain.RoleClient)
		expectHTTPError(t, NewRequestHandler(&stubRequests{}).List(c), http.StatusBadRequest)
	}

	c, _ := newContext(http.MethodGet, "/v1/requests?category=yachts", "", "u1", domain.RoleClient)
	if err := NewRequestHandler(&stubRequests{}).List(c); !errors.Is(err, domain.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestRequestHandler_Get(t *testing.T) {
	stub := &stubRequests{detail: &ports.RequestDetail{Request: &domain.ServiceRequest{ID: "r1", Status: domain.StatusPending}}}
	c, rec := newContext(http.MethodGet, "/v1/requests/r1", "", "u1", domain.RoleClient)
	withID(c, "r1")

	if err := NewRequestHandler(stub).Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if updates, ok := resp["updates"].([]any); !ok || len(updates) != 0 {
		t.Errorf("expected an empty updates array, got %v", resp["updates"])
	}
}

func TestRequestHandler_Get_NotFound(t *testing.T) {
	stub := &stubRequests{err: domain.ErrRequestNotFound}
	c, _ := newContext(http.MethodGet, "/v1/requests/nope", "", "u1", domain.RoleClient)
	withID(c, "nope")

	if err := NewRequestHandler(stub).Get(c); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestRequestHandler_Transitions(t *testing.T) {
	stub := &stubRequests{detail: &ports.RequestDetail{Request: &domain.ServiceRequest{ID: "r1", Status: domain.StatusFulfilling}}}
	c, rec := newContext(http.MethodGet, "/v1/requests/r1/transitions", "", "admin-1", domain.RoleAdmin)
	withID(c, "r1")

	if err := NewRequestHandler(stub).Transitions(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp transitionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Allowed) != 2 || resp.Allowed[0] != domain.StatusCompleted || resp.Allowed[1] != domain.StatusCancelled {
		t.Errorf("unexpected transitions: %v", resp.Allowed)
	}
}

func TestRequestHandler_Transitions_Terminal(t *testing.T) {
	stub := &stubRequests{detail: &ports.RequestDetail{Request: &domain.ServiceRequest{ID: "r1", Status: domain.StatusCompleted}}}
	c, rec := newContext(http.MethodGet, "/v1/requests/r1/transitions", "", "admin-1", domain.RoleAdmin)
	withID(c, "r1")

	if err := NewRequestHandler(stub).Transitions(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if allowed, ok := resp["allowed"].([]any); !ok || len(allowed) != 0 {
		t.Errorf("expected an empty list, got %v", resp["allowed"])
	}
}

func TestRequestHandler_Transitions_Target(t *testing.T) {
	stub := &stubRequests{can: true}
	c, rec := newContext(http.MethodGet, "/v1/requests/r1/transitions?target=accepted", "", "admin-1", domain.RoleAdmin)
	withID(c, "r1")

	if err := NewRequestHandler(stub).Transitions(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["allowed"] != true {
		t.Errorf("expected allowed=true, got %v", resp)
	}

	c, _ = newContext(http.MethodGet, "/v1/requests/r1/transitions?target=teleported", "", "admin-1", domain.RoleAdmin)
	withID(c, "r1")
	expectHTTPError(t, NewRequestHandler(stub).Transitions(c), http.StatusBadRequest)
}

func TestRequestHandler_AdvanceStatus(t *testing.T) {
	stub := &stubRequests{}
	c, rec := newContext(http.MethodPatch, "/v1/requests/r1/status", `{"status":"accepted","notes":"on it"}`, "p1", domain.RolePartner)
	withID(c, "r1")

	if err := NewRequestHandler(stub).AdvanceStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	in := stub.lastAdv
	if in.RequestID != "r1" || in.NewStatus != domain.StatusAccepted || in.Notes != "on it" || in.Actor.UserID != "p1" || in.Actor.Role != domain.RolePartner {
		t.Errorf("unexpected input: %+v", in)
	}
}

func TestRequestHandler_AdvanceStatus_Errors(t *testing.T) {
	c, _ := newContext(http.MethodPatch, "/v1/requests/r1/status", `{"status":"teleported"}`, "a1", domain.RoleAdmin)
	withID(c, "r1")
	if err := NewRequestHandler(&stubRequests{}).AdvanceStatus(c); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	c, _ = newContext(http.MethodPatch, "/v1/requests/r1/status", `{}`, "a1", domain.RoleAdmin)
	withID(c, "r1")
	expectHTTPError(t, NewRequestHandler(&stubRequests{}).AdvanceStatus(c), http.StatusBadRequest)

	c, _ = newContext(http.MethodPatch, "/v1/requests/r1/status", `{"status":"completed"}`, "a1", domain.RoleAdmin)
	withID(c, "r1")
	if err := NewRequestHandler(&stubRequests{err: domain.ErrStatusConflict}).AdvanceStatus(c); !errors.Is(err, domain.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
}

func TestRequestHandler_AssignPartner(t *testing.T) {
	stub := &stubRequests{}
	c, _ := newContext(http.MethodPut, "/v1/requests/r1/partner", `{"partner_id":"p9"}`, "a1", domain.RoleAdmin)
	withID(c, "r1")

	if err := NewRequestHandler(stub).AssignPartner(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.partner != "p9" {
		t.Errorf("expected partner p9, got %q", stub.partner)
	}

	c, _ = newContext(http.MethodPut, "/v1/requests/r1/partner", `{}`, "a1", domain.RoleAdmin)
	withID(c, "r1")
	expectHTTPError(t, NewRequestHandler(stub).AssignPartner(c), http.StatusBadRequest)
}

func TestRequestHandler_SLA(t *testing.T) {
	stub := &stubRequests{sla: &domain.SLAMetrics{TotalRequests: 4, CompletedRequests: 2, CompletionRate: 0.5}}
	c, rec := newContext(http.MethodGet, "/v1/sla", "", "u1", domain.RoleClient)

	if err := NewRequestHandler(stub).SLA(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp domain.SLAMetrics
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.TotalRequests != 4 || resp.CompletionRate != 0.5 {
		t.Errorf("unexpected metrics: %+v", resp)
	}
}
