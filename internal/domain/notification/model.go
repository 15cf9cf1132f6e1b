package notification

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound means the notification does not exist for that player.
var ErrNotFound = errors.New("notification not found")

// TypePenaltyApplied tells a reporter their report led to a ban.
const TypePenaltyApplied = "penalty_applied"

// Notification is one message for one recipient.
type Notification struct {
	ID        string
	PlayerID  string
	Type      string
	MatchID   string
	AccusedID string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// DedupKey makes repeated penalty triggers idempotent per
// (recipient, match, accused).
func (n Notification) DedupKey() string {
	return fmt.Sprintf("%s:%s:%s:%s", n.Type, n.PlayerID, n.MatchID, n.AccusedID)
}

// Repository stores per-player notifications.
type Repository interface {
	// Append inserts unless a notification with the same dedup key already
	// exists; returns whether a row was written.
	Append(ctx context.Context, n Notification) (bool, error)

	ListByPlayer(ctx context.Context, playerID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, playerID, notificationID string) error
}
