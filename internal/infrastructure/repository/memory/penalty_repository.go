package memory

import (
	"context"
	"sync"

	"github.com/playarc/matchqueue/internal/domain/penalty"
)

// PenaltyRepository holds penalties and extends bans through the player
// repository, keeping the existence check and the ban write under one lock
// like the Postgres transaction does.
type PenaltyRepository struct {
	mu      sync.Mutex
	players *PlayerRepository
	items   []penalty.Penalty
}

func NewPenaltyRepository(players *PlayerRepository) *PenaltyRepository {
	return &PenaltyRepository{players: players}
}

func (r *PenaltyRepository) Apply(_ context.Context, p penalty.Penalty) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.PlayerID == p.PlayerID && existing.MatchID == p.MatchID {
			return false, nil
		}
	}
	if !r.players.extendBan(p.PlayerID, p.BannedUntil, p.AppliedAt) {
		return false, nil
	}

	r.items = append(r.items, p)
	return true, nil
}

func (r *PenaltyRepository) ListByPlayer(_ context.Context, playerID string) ([]penalty.Penalty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]penalty.Penalty, 0)
	for _, p := range r.items {
		if p.PlayerID == playerID {
			out = append(out, p)
		}
	}
	return out, nil
}
