package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playarc/matchqueue/internal/domain/notification"
)

type NotificationRepository struct {
	db *sqlx.DB
}

type notificationTableModel struct {
	ID        int64     `db:"id"`
	PublicID  string    `db:"public_id"`
	PlayerID  string    `db:"player_public_id"`
	Type      string    `db:"type"`
	MatchID   string    `db:"match_public_id"`
	AccusedID string    `db:"accused_public_id"`
	Message   string    `db:"message"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}

func (m notificationTableModel) toDomain() notification.Notification {
	return notification.Notification{
		ID:        m.PublicID,
		PlayerID:  m.PlayerID,
		Type:      m.Type,
		MatchID:   m.MatchID,
		AccusedID: m.AccusedID,
		Message:   m.Message,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Append inserts unless the dedup key already exists; the unique index makes
// repeated penalty triggers write at most one row per recipient.
func (r *NotificationRepository) Append(ctx context.Context, n notification.Notification) (bool, error) {
	const query = `
INSERT INTO notifications (public_id, player_public_id, type, match_public_id, accused_public_id, message, dedup_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (dedup_key) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		n.ID, n.PlayerID, n.Type, n.MatchID, n.AccusedID, n.Message, n.DedupKey(), n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert notification rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *NotificationRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]notification.Notification, error) {
	const query = `
SELECT id, public_id, player_public_id, type, match_public_id, accused_public_id, message, read, created_at
FROM notifications
WHERE player_public_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	var rows []notificationTableModel
	if err := r.db.SelectContext(ctx, &rows, query, playerID, limit); err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}

	out := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, playerID, notificationID string) error {
	const query = `
UPDATE notifications
SET read = TRUE
WHERE public_id = $1
  AND player_public_id = $2`

	res, err := r.db.ExecContext(ctx, query, notificationID, playerID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification rows affected: %w", err)
	}
	if affected == 0 {
		return notification.ErrNotFound
	}
	return nil
}
