package penalty

import (
	"context"
	"time"
)

// Penalty is one applied matchmaking ban. At most one exists per
// (player, match) pair; that uniqueness is the duplicate-penalty guard.
type Penalty struct {
	ID          string
	PlayerID    string
	MatchID     string
	Reason      string
	Duration    time.Duration
	AppliedAt   time.Time
	BannedUntil time.Time
}

// Repository applies and lists penalties.
type Repository interface {
	// Apply runs the whole penalty in one transaction: the accused's row is
	// locked, a prior penalty for the same (player, match) short-circuits to
	// (false, nil), and otherwise the ban-until is extended only forward
	// (never shortening an active ban) and the penalty row is appended.
	// A vanished player also returns (false, nil); the caller logs and moves
	// on.
	Apply(ctx context.Context, p Penalty) (bool, error)

	ListByPlayer(ctx context.Context, playerID string) ([]Penalty, error)
}
