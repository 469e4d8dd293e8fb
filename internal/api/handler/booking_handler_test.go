package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

func TestBookingHandler_Create(t *testing.T) {
	stub := &stubBookings{result: &ports.BookingResult{RequestID: "r1", CreditsUsed: 5}}
	h := NewBookingHandler(stub)

	c, rec := newContext(http.MethodPost, "/v1/bookings",
		`{"title":"Dinner","category":"dining","priority":"standard","budget_max":500,"requirements":{"guests":4}}`,
		"u1", domain.RoleClient)
	c.Request().Header.Set(HeaderIdempotencyKey, "key-1")

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp createBookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.Success || resp.RequestID != "r1" || resp.CreditsUsed != 5 {
		t.Errorf("unexpected response: %+v", resp)
	}

	in := stub.lastIn
	if in.Category != domain.CategoryDining || in.Priority != domain.PriorityStandard || in.IdempotencyKey != "key-1" {
		t.Errorf("unexpected input: %+v", in)
	}
	if in.BudgetMax == nil || *in.BudgetMax != 500 || in.Requirements["guests"] != float64(4) {
		t.Errorf("body not mapped: %+v", in)
	}
}

func TestBookingHandler_Create_DefaultsPriority(t *testing.T) {
	stub := &stubBookings{result: &ports.BookingResult{RequestID: "r1", CreditsUsed: 5}}
	c, _ := newContext(http.MethodPost, "/v1/bookings", `{"category":"wellness"}`, "u1", domain.RoleClient)

	if err := NewBookingHandler(stub).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.lastIn.Priority != domain.PriorityStandard {
		t.Errorf("expected standard priority, got %q", stub.lastIn.Priority)
	}
}

func TestBookingHandler_Create_Replay(t *testing.T) {
	stub := &stubBookings{result: &ports.BookingResult{RequestID: "r1", CreditsUsed: 5, AlreadyExisted: true}}
	c, rec := newContext(http.MethodPost, "/v1/bookings", `{"category":"dining"}`, "u1", domain.RoleClient)

	if err := NewBookingHandler(stub).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
}

func TestBookingHandler_Create_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown category", `{"category":"yachts"}`},
		{"missing category", `{"title":"x"}`},
		{"unknown priority", `{"category":"dining","priority":"asap"}`},
		{"negative budget", `{"category":"dining","budget_max":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubBookings{}
			c, _ := newContext(http.MethodPost, "/v1/bookings", tt.body, "u1", domain.RoleClient)
			expectHTTPError(t, NewBookingHandler(stub).Create(c), http.StatusBadRequest)
		})
	}
}

func TestBookingHandler_Create_ServiceError(t *testing.T) {
	stub := &stubBookings{err: domain.ErrInsufficientCredits}
	c, _ := newContext(http.MethodPost, "/v1/bookings", `{"category":"dining"}`, "u1", domain.RoleClient)

	if err := NewBookingHandler(stub).Create(c); !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
}

func TestBookingHandler_Create_Unauthenticated(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/v1/bookings", `{"category":"dining"}`, "", "")
	expectHTTPError(t, NewBookingHandler(&stubBookings{}).Create(c), http.StatusUnauthorized)
}

func TestBookingHandler_Cancel(t *testing.T) {
	stub := &stubBookings{}
	c, rec := newContext(http.MethodPost, "/v1/bookings/r1/cancel", `{"reason":"plans changed"}`, "u1", domain.RoleClient)
	c.SetParamNames("id")
	c.SetParamValues("r1")

	if err := NewBookingHandler(stub).Cancel(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.cancelled != "r1" || stub.reason != "plans changed" {
		t.Errorf("unexpected call: %q %q", stub.cancelled, stub.reason)
	}
}

func TestBookingHandler_Cancel_WithoutBody(t *testing.T) {
	stub := &stubBookings{err: domain.ErrCancellationNotAllowed}
	c, _ := newContext(http.MethodPost, "/v1/bookings/r1/cancel", "", "u1", domain.RoleClient)
	c.SetParamNames("id")
	c.SetParamValues("r1")

	if err := NewBookingHandler(stub).Cancel(c); !errors.Is(err, domain.ErrCancellationNotAllowed) {
		t.Fatalf("expected ErrCancellationNotAllowed, got %v", err)
	}
}

func TestBookingHandler_Quote(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"?category=dining", 5},
		{"?category=dining&priority=urgent", 10},
		{"?category=private_aviation&priority=immediate", 120},
	}
	for _, tt := range tests {
		c, rec := newContext(http.MethodGet, "/v1/quotes"+tt.query, "", "", "")
		if err := NewBookingHandler(&stubBookings{}).Quote(c); err != nil {
			t.Fatalf("%s: handler error: %v", tt.query, err)
		}
		var resp quoteResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Credits != tt.want {
			t.Errorf("%s: expected %d credits, got %d", tt.query, tt.want, resp.Credits)
		}
	}
}

func TestBookingHandler_Quote_Invalid(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/v1/quotes?category=yachts", "", "", "")
	if err := NewBookingHandler(&stubBookings{}).Quote(c); !errors.Is(err, domain.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}

	c, _ = newContext(http.MethodGet, "/v1/quotes?category=dining&budget_max=lots", "", "", "")
	expectHTTPError(t, NewBookingHandler(&stubBookings{}).Quote(c), http.StatusBadRequest)
}
