package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/metrics"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/repository"
)

type NotificationService interface {
	Notify(ctx context.Context, n *model.Notification)
	List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userID uint64) error
	PruneRead(ctx context.Context, olderThan time.Duration) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	log  zerolog.Logger
}

func NewNotificationService(repo repository.NotificationRepository, log zerolog.Logger) NotificationService {
	return &notificationService{repo: repo, log: log}
}

// Notify is best-effort; it logs errors but does not return them to avoid breaking main flows.
func (s *notificationService) Notify(ctx context.Context, n *model.Notification) {
	if n == nil || n.UserID == 0 || n.UserID == n.ActorID {
		return
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Warn().Err(err).
			Uint64("user_id", n.UserID).
			Str("type", n.Type.String()).
			Msg("notification write failed")
		return
	}
	metrics.NotificationsWritten.WithLabelValues(n.Type.String()).Inc()
}

func (s *notificationService) List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userID == 0 {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint64) error {
	if userID == 0 {
		return nil
	}
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) PruneRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	return s.repo.DeleteReadBefore(ctx, time.Now().Add(-olderThan))
}
