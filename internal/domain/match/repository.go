package match

import (
	"context"
	"errors"
	"time"
)

// Errors returned by conditional repository commands. Each marks a
// transactional re-validation that failed; callers decide whether that is a
// benign race or a caller-visible precondition failure.
var (
	ErrCandidatesChanged = errors.New("selected players are no longer waiting")
	ErrStatusClosed      = errors.New("match status no longer allows this change")
	ErrAlreadyFinalized  = errors.New("match already finalized")
)

// NewMember is the seed for one member row at match formation.
type NewMember struct {
	PlayerID string
	Role     Role
	Team     Team
	SeatNo   int
}

// Repository is the match-side contract against the transactional store.
// Every mutating command re-reads authoritative state inside its own
// transaction before writing.
type Repository interface {
	// Create commits one formed match: inside a single transaction it
	// re-validates that every assigned player is still waiting, inserts the
	// match in lobby_pending plus one member per assignment, and flips each
	// player to matched with a back-reference to the new match id. Returns
	// ErrCandidatesChanged (no side effects) when any player's state moved
	// underneath the matchmaker.
	Create(ctx context.Context, matchID string, firstTeam Team, members []NewMember, now time.Time) (Match, error)

	GetByID(ctx context.Context, matchID string) (Match, bool, error)
	GetMember(ctx context.Context, matchID, playerID string) (Member, bool, error)
	ListMembers(ctx context.Context, matchID string) ([]Member, error)

	// SetLobbyCode stores the 8-digit code while the match is still
	// pre-terminal, and advances lobby_pending to in_game when every
	// participant already shows a seated timestamp (re-derived inside the
	// transaction). Returns the post-commit status.
	SetLobbyCode(ctx context.Context, matchID, code string, now time.Time) (Status, error)

	// SetSeated marks the member's seated timestamp (idempotent) and performs
	// the same all-seated advance. The caller's own write counts as applied
	// when evaluating "all seated".
	SetSeated(ctx context.Context, matchID, playerID string, now time.Time) (Status, error)
	UnsetSeated(ctx context.Context, matchID, playerID string, now time.Time) error

	SetStuck(ctx context.Context, matchID, playerID string, stuck bool, now time.Time) error

	// RecordVote stores the member's result vote while the match is still
	// finalizable.
	RecordVote(ctx context.Context, matchID, playerID string, vote Vote, now time.Time) error

	// Finalize writes the terminal outcome exactly once: the transaction
	// re-checks the match is still finalizable and only the winner of that
	// check commits. The losing invocation gets ErrAlreadyFinalized.
	Finalize(ctx context.Context, matchID string, outcome Outcome, reason FinalizeReason, now time.Time) error

	// ListFinalizable returns still-open matches created at or before cutoff,
	// oldest first.
	ListFinalizable(ctx context.Context, cutoff time.Time, limit int) ([]Match, error)
}
