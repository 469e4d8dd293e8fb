// Package metrics defines the custom Prometheus metrics of the concierge API.
// It is the single source of truth for metric names, labels, and help strings.
//
// All metrics are registered with the default registry on package init via
// promauto and exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "concierge"

// ── Booking metrics ───────────────────────────────────────────────────────────

// BookingsCreatedTotal counts submitted service requests.
// Labels:
//   - category: service category (e.g. "dining")
//   - priority: "standard", "priority", "urgent" or "immediate"
var BookingsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_created_total",
		Help:      "Total number of service requests submitted.",
	},
	[]string{"category", "priority"},
)

// BookingsFailedTotal counts rejected submissions.
// Label:
//   - reason: short description (e.g. "insufficient_credits", "tier_restricted", "internal")
var BookingsFailedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_failed_total",
		Help:      "Total number of service request submissions that failed.",
	},
	[]string{"reason"},
)

// BookingsReplayedTotal counts submissions answered from the idempotency store.
var BookingsReplayedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_replayed_total",
		Help:      "Total number of idempotent booking replays.",
	},
)

// CancellationsTotal counts client cancellations.
var CancellationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancellations_total",
		Help:      "Total number of service requests cancelled by clients.",
	},
)

// StatusTransitionsTotal counts successful status changes.
// Label:
//   - to: the new request status
var StatusTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Total number of service request status transitions.",
	},
	[]string{"to"},
)

// ── Credit metrics ────────────────────────────────────────────────────────────

// CreditsDebitedTotal sums credits charged for bookings.
var CreditsDebitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credits_debited_total",
		Help:      "Total credits charged for service requests.",
	},
)

// AllocationsRenewedTotal counts monthly allocations granted by the renewal job.
var AllocationsRenewedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocations_renewed_total",
		Help:      "Total number of monthly credit allocations renewed.",
	},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// EventsPublishedTotal counts domain events handed to the broker.
// Labels:
//   - key: event key (e.g. "booking.created")
//   - result: "ok" or "error"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of domain events published, by key and result.",
	},
	[]string{"key", "result"},
)

// EventsDroppedTotal counts events discarded because a worker channel was full.
var EventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of domain events dropped on a full dispatcher queue.",
	},
)

// EventPublishDuration measures one broker publish.
// Label:
//   - key: event key
var EventPublishDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_publish_duration_seconds",
		Help:      "Duration of a single domain event publish.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"key"},
)
