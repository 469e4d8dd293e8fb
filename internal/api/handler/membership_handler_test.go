package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

func TestMembershipHandler_Tiers(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/v1/tiers", "", "", "")
	if err := NewMembershipHandler(&stubMembership{}, &stubAutomation{}).Tiers(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var tiers []domain.MembershipTier
	if err := json.Unmarshal(rec.Body.Bytes(), &tiers); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(tiers) != 3 || tiers[0].ID != domain.TierSilver || !tiers[2].IsUnlimited {
		t.Errorf("unexpected catalog: %+v", tiers)
	}
}

func TestMembershipHandler_TierAccess(t *testing.T) {
	tests := []struct {
		tier, category string
		want           bool
	}{
		{"silver", "dining", true},
		{"silver", "travel", false},
		{"gold", "travel", true},
		{"platinum", "private_aviation", true},
	}
	for _, tt := range tests {
		c, rec := newContext(http.MethodGet, "/", "", "", "")
		c.SetParamNames("tier", "category")
		c.SetParamValues(tt.tier, tt.category)

		if err := NewMembershipHandler(&stubMembership{}, &stubAutomation{}).TierAccess(c); err != nil {
			t.Fatalf("%s/%s: handler error: %v", tt.tier, tt.category, err)
		}
		var resp accessResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.CanAccess != tt.want {
			t.Errorf("%s/%s: expected %v, got %v", tt.tier, tt.category, tt.want, resp.CanAccess)
		}
	}
}

func TestMembershipHandler_TierAccess_Unknown(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "", "", "")
	c.SetParamNames("tier", "category")
	c.SetParamValues("diamond", "dining")

	if err := NewMembershipHandler(&stubMembership{}, &stubAutomation{}).TierAccess(c); !errors.Is(err, domain.ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}
}

func TestMembershipHandler_Checkout(t *testing.T) {
	stub := &stubMembership{url: "https://pay.example.com/s/1"}
	c, rec := newContext(http.MethodPost, "/v1/membership/checkout", `{"tier":"gold","interval":"annual"}`, "u1", domain.RoleClient)

	if err := NewMembershipHandler(stub, &stubAutomation{}).Checkout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.tier != domain.TierGold || !stub.annual {
		t.Errorf("unexpected call: %s annual=%v", stub.tier, stub.annual)
	}
	var resp urlResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.URL != stub.url {
		t.Errorf("unexpected response: %+v", resp)
	}

	c, _ = newContext(http.MethodPost, "/v1/membership/checkout", `{"tier":"diamond"}`, "u1", domain.RoleClient)
	expectHTTPError(t, NewMembershipHandler(stub, &stubAutomation{}).Checkout(c), http.StatusBadRequest)
}

func TestMembershipHandler_Portal_RemoteFailure(t *testing.T) {
	stub := &stubMembership{err: domain.ErrRemoteFailure}
	c, _ := newContext(http.MethodPost, "/v1/membership/portal", "", "u1", domain.RoleClient)

	if err := NewMembershipHandler(stub, &stubAutomation{}).Portal(c); !errors.Is(err, domain.ErrRemoteFailure) {
		t.Fatalf("expected ErrRemoteFailure, got %v", err)
	}
}

func TestMembershipHandler_UsageAndUpgrade(t *testing.T) {
	auto := &stubAutomation{
		usage: &domain.UsageMetrics{RequestsThisMonth: 4, CreditsUsed: 20},
		rec:   &domain.UpgradeRecommendation{ShouldUpgrade: true, CurrentTier: domain.TierSilver, Recommended: domain.TierGold},
	}
	h := NewMembershipHandler(&stubMembership{}, auto)

	c, rec := newContext(http.MethodGet, "/v1/membership/usage", "", "u1", domain.RoleClient)
	if err := h.Usage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var usage domain.UsageMetrics
	_ = json.Unmarshal(rec.Body.Bytes(), &usage)
	if usage.RequestsThisMonth != 4 || usage.CreditsUsed != 20 {
		t.Errorf("unexpected usage: %+v", usage)
	}

	c, rec = newContext(http.MethodGet, "/v1/membership/upgrade", "", "u1", domain.RoleClient)
	if err := h.Upgrade(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var up domain.UpgradeRecommendation
	_ = json.Unmarshal(rec.Body.Bytes(), &up)
	if !up.ShouldUpgrade || up.Recommended != domain.TierGold {
		t.Errorf("unexpected recommendation: %+v", up)
	}
}

func TestMembershipHandler_Access(t *testing.T) {
	stub := &stubMembership{canUse: true}
	c, rec := newContext(http.MethodGet, "/", "", "u1", domain.RoleClient)
	c.SetParamNames("category")
	c.SetParamValues("dining")

	if err := NewMembershipHandler(stub, &stubAutomation{}).Access(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp accessResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.CanAccess || resp.Category != domain.CategoryDining {
		t.Errorf("unexpected response: %+v", resp)
	}
}
