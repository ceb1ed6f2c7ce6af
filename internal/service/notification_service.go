package service

import (
	"context"
	"time"

	"github.com/detodo/marketplace-backend/internal/logger"
	"github.com/detodo/marketplace-backend/internal/metrics"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 50
)

// Notifier records an in-app notification. Delivery is best-effort and never
// fails the operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification)
}

type NotificationService interface {
	Notifier
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) Notify(ctx context.Context, n *model.Notification) {
	if n == nil || n.UserID == "" || n.Type == "" {
		return
	}
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	if err := s.repo.Create(ctx, n); err != nil {
		logger.L().Warn("notify", zap.String("type", n.Type), zap.String("user_id", n.UserID), zap.Error(err))
		metrics.IncError("notification", "create")
	}
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userID == "" {
		return nil, 0, ErrForbidden
	}
	if limit <= 0 || limit > maxNotificationLimit {
		limit = defaultNotificationLimit
	}
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrForbidden
	}
	return s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
}

// withShortDeadline keeps a slow notification insert from stalling the caller.
func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Second)
}

func notify(ctx context.Context, n Notifier, note *model.Notification) {
	if n != nil {
		n.Notify(ctx, note)
	}
}

func strPtr(s string) *string {
	return &s
}
