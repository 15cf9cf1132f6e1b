package player

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("player not found")
	ErrNotWaiting  = errors.New("player is not waiting in queue")
	ErrBanned      = errors.New("player is banned from matchmaking")
	ErrQueueActive = errors.New("player already queued or matched")
)

// ResultUpdate is the per-player slice of one match finalization.
type ResultUpdate struct {
	PlayerID    string
	Result      Result
	RatingDelta int
	CountsGame  bool
}

// ResultApplication is the transactional command that applies one match's
// outcome to every participant at once. Deltas is invoked inside the
// transaction with the freshly-read ratings so the computation never works
// from stale state.
type ResultApplication struct {
	MatchID   string
	PlayerIDs []string
	DecidedAt time.Time
	Deltas    func(ratings map[string]int) []ResultUpdate
}

// Repository is the player-side contract against the transactional store.
type Repository interface {
	GetByID(ctx context.Context, playerID string) (Player, bool, error)

	// ListWaiting returns up to limit waiting players ordered by queue join
	// time, oldest first.
	ListWaiting(ctx context.Context, limit int) ([]Player, error)

	// CountWaiting counts waiting players, capped at cap to bound the scan.
	CountWaiting(ctx context.Context, cap int) (int, error)

	// Enqueue flips the player to waiting. The transaction re-checks the
	// player exists, is not banned at now, and holds no active queue slot.
	Enqueue(ctx context.Context, playerID string, now time.Time) error

	// CancelQueue clears the queue slot only while the player is still
	// waiting; a matched player keeps their state. Returns whether a slot
	// was actually released.
	CancelQueue(ctx context.Context, playerID string, now time.Time) (bool, error)

	// ResetAllWaiting clears every waiting player at queue closure and
	// returns how many were reset.
	ResetAllWaiting(ctx context.Context, now time.Time) (int, error)

	// ApplyResult runs the result application in one transaction: all
	// participants are locked, the re-entry guard (any history row for this
	// match) is evaluated, and only a guard-clean transaction applies rating
	// deltas, counters, bounded history, and clears the match back-reference.
	// Returns false without side effects when the guard trips.
	ApplyResult(ctx context.Context, app ResultApplication) (bool, error)
}
