package redis

import (
	"errors"
	"testing"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

func TestDecodeResult(t *testing.T) {
	res, err := decodeResult([]byte(`{"request_id":"r1","credits_used":5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RequestID != "r1" || res.CreditsUsed != 5 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestDecodeResult_PendingMarker(t *testing.T) {
	if _, err := decodeResult([]byte(pendingMarker)); !errors.Is(err, domain.ErrBookingInProgress) {
		t.Fatalf("expected ErrBookingInProgress, got %v", err)
	}
}

func TestDecodeResult_Garbage(t *testing.T) {
	if _, err := decodeResult([]byte("{not json")); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestBookingDedup_Key(t *testing.T) {
	d := NewBookingDedup(nil, 0)
	if got := d.key("c1", "k1"); got != "booking:idem:c1:k1" {
		t.Errorf("unexpected key %q", got)
	}
	if d.ttl != defaultIdempotencyTTL {
		t.Errorf("expected default ttl, got %v", d.ttl)
	}
}
