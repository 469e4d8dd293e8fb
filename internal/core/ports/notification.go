package ports

import (
	"context"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error)
}

// Notifier delivers a message to a member. Delivery failures are not reported
// to the caller.
type Notifier interface {
	Notify(ctx context.Context, userID string, level domain.NotificationLevel, title, message string)
}

type NotificationService interface {
	Notifier
	List(ctx context.Context, session domain.Session, limit int) ([]*domain.Notification, error)
}

// EventEmitter accepts domain events for asynchronous delivery.
type EventEmitter interface {
	Emit(evt domain.DomainEvent)
}

// EventPublisher delivers one event to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.DomainEvent) error
}
