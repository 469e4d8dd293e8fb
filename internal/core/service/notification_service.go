package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

type NotificationService struct {
	repo ports.NotificationRepository
	log  zerolog.Logger
}

func NewNotificationService(repo ports.NotificationRepository, log zerolog.Logger) *NotificationService {
	return &NotificationService{repo: repo, log: log}
}

// Notify stores a notification for userID. Storage failures are logged only.
func (s *NotificationService) Notify(ctx context.Context, userID string, level domain.NotificationLevel, title, message string) {
	if userID == "" {
		return
	}
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("title", title).Msg("failed to store notification")
	}
}

// List returns the caller's most recent notifications.
func (s *NotificationService) List(ctx context.Context, session domain.Session, limit int) ([]*domain.Notification, error) {
	if !session.Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	return s.repo.ListByUser(ctx, session.UserID, limit)
}
