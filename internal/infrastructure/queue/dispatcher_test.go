package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
	err    error
	done   chan struct{}
	want   int
}

func newRecordingPublisher(want int) *recordingPublisher {
	return &recordingPublisher{done: make(chan struct{}), want: want}
}

func (p *recordingPublisher) Publish(_ context.Context, evt domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	if len(p.events) == p.want {
		close(p.done)
	}
	return p.err
}

func (p *recordingPublisher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events to be published")
	}
}

func TestDispatcher_PreservesOrderPerAggregate(t *testing.T) {
	pub := newRecordingPublisher(30)
	d := NewDispatcher(4, pub, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < 10; i++ {
		for _, id := range []string{"r1", "r2", "r3"} {
			d.Emit(domain.DomainEvent{Key: "request.status_changed", AggregateID: id, Payload: map[string]any{"seq": i}})
		}
	}
	pub.wait(t)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	last := map[string]int{"r1": -1, "r2": -1, "r3": -1}
	for _, evt := range pub.events {
		seq := evt.Payload["seq"].(int)
		if seq != last[evt.AggregateID]+1 {
			t.Fatalf("%s: got seq %d after %d", evt.AggregateID, seq, last[evt.AggregateID])
		}
		last[evt.AggregateID] = seq
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, newRecordingPublisher(0), zerolog.Nop())

	first := d.shardIndex("req-42")
	for i := 0; i < 100; i++ {
		if got := d.shardIndex("req-42"); got != first {
			t.Fatalf("shard changed from %d to %d", first, got)
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard %d out of range", first)
	}
}

func TestDispatcher_DefaultWorkers(t *testing.T) {
	d := NewDispatcher(0, newRecordingPublisher(0), zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Errorf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
}

func TestDispatcher_EmitNeverBlocksOnFullQueue(t *testing.T) {
	// Not started: nothing drains the single slot.
	d := newDispatcher(1, 1, newRecordingPublisher(0), zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Emit(domain.DomainEvent{Key: "booking.created", AggregateID: "r1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue")
	}
	if n := len(d.workers[0]); n != 1 {
		t.Errorf("expected 1 queued event, got %d", n)
	}
}

func TestDispatcher_PublishErrorDoesNotStopWorker(t *testing.T) {
	pub := newRecordingPublisher(3)
	pub.err = errors.New("broker down")
	d := NewDispatcher(1, pub, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for i := 0; i < 3; i++ {
		d.Emit(domain.DomainEvent{Key: "booking.created", AggregateID: "r1"})
	}
	pub.wait(t)

	cancel()
	d.Wait()
}
