package memory

import (
	"context"
	"sync"

	"github.com/playarc/matchqueue/internal/domain/notification"
)

type NotificationRepository struct {
	mu    sync.Mutex
	items []notification.Notification
	keys  map[string]struct{}
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{keys: make(map[string]struct{})}
}

func (r *NotificationRepository) Append(_ context.Context, n notification.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := n.DedupKey()
	if _, dup := r.keys[key]; dup {
		return false, nil
	}
	r.keys[key] = struct{}{}
	r.items = append(r.items, n)
	return true, nil
}

func (r *NotificationRepository) ListByPlayer(_ context.Context, playerID string, limit int) ([]notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]notification.Notification, 0)
	// Newest first.
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].PlayerID != playerID {
			continue
		}
		out = append(out, r.items[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, playerID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].ID == notificationID && r.items[i].PlayerID == playerID {
			r.items[i].Read = true
			return nil
		}
	}
	return notification.ErrNotFound
}
