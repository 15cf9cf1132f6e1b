package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/playarc/matchqueue/internal/domain/notification"
)

// NotificationService is the read side of the notification inbox.
type NotificationService struct {
	repo   notification.Repository
	logger *slog.Logger
}

func NewNotificationService(repo notification.Repository, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{repo: repo, logger: logger}
}

func (s *NotificationService) List(ctx context.Context, playerID string, limit int) ([]notification.Notification, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.List")
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, err := s.repo.ListByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, playerID, notificationID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.MarkRead")
	defer span.End()

	if err := s.repo.MarkRead(ctx, playerID, notificationID); err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			return fmt.Errorf("%w: notification=%s", ErrNotFound, notificationID)
		}
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
