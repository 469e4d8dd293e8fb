package domain

import "time"

type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
	NotifyInfo    NotificationLevel = "info"
)

// Notification is a message addressed to one member.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}

// DomainEvent is published to downstream consumers after a state change.
// AggregateID keys ordering: events with the same id are delivered in order.
type DomainEvent struct {
	Key         string         `json:"key"`
	AggregateID string         `json:"aggregate_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Payload     map[string]any `json:"payload"`
}

const (
	EventBookingCreated         = "booking.created"
	EventBookingCancelled       = "booking.cancelled"
	EventRequestStatusChanged   = "request.status_changed"
	EventRequestPartnerAssigned = "request.partner_assigned"
	EventCreditsAllocated       = "credits.allocated"
)
