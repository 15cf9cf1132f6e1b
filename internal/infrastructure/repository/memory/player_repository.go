package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/playarc/matchqueue/internal/domain/player"
)

// PlayerRepository is a mutex-guarded in-memory player store. The usecase
// tests run against it; the single lock gives it the same atomicity the
// Postgres repository gets from transactions.
type PlayerRepository struct {
	mu    sync.Mutex
	items map[string]*player.Player
}

func NewPlayerRepository(players []player.Player) *PlayerRepository {
	items := make(map[string]*player.Player, len(players))
	for _, p := range players {
		cp := p
		items[p.ID] = &cp
	}
	return &PlayerRepository{items: items}
}

// Put inserts or replaces a player. Test helper.
func (r *PlayerRepository) Put(p player.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := p
	r.items[p.ID] = &cp
}

func (r *PlayerRepository) GetByID(_ context.Context, playerID string) (player.Player, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[playerID]
	if !ok {
		return player.Player{}, false, nil
	}
	return clonePlayer(p), true, nil
}

func (r *PlayerRepository) ListWaiting(_ context.Context, limit int) ([]player.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	waiting := make([]*player.Player, 0)
	for _, p := range r.items {
		if p.QueueStatus == player.QueueWaiting {
			waiting = append(waiting, p)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		ji, jj := waiting[i].QueueJoinedAt, waiting[j].QueueJoinedAt
		switch {
		case ji == nil:
			return false
		case jj == nil:
			return true
		case ji.Equal(*jj):
			return waiting[i].ID < waiting[j].ID
		default:
			return ji.Before(*jj)
		}
	})

	if limit > 0 && len(waiting) > limit {
		waiting = waiting[:limit]
	}
	out := make([]player.Player, 0, len(waiting))
	for _, p := range waiting {
		out = append(out, clonePlayer(p))
	}
	return out, nil
}

func (r *PlayerRepository) CountWaiting(_ context.Context, cap int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, p := range r.items {
		if p.QueueStatus == player.QueueWaiting {
			count++
			if cap > 0 && count >= cap {
				break
			}
		}
	}
	return count, nil
}

func (r *PlayerRepository) Enqueue(_ context.Context, playerID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[playerID]
	if !ok {
		return player.ErrNotFound
	}
	if p.BannedAt(now) {
		return player.ErrBanned
	}
	if p.QueueStatus != player.QueueNone {
		return player.ErrQueueActive
	}

	joined := now
	p.QueueStatus = player.QueueWaiting
	p.QueueJoinedAt = &joined
	p.MatchedMatchID = ""
	p.UpdatedAt = now
	return nil
}

func (r *PlayerRepository) CancelQueue(_ context.Context, playerID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[playerID]
	if !ok {
		return false, player.ErrNotFound
	}
	if p.QueueStatus != player.QueueWaiting {
		return false, nil
	}

	p.QueueStatus = player.QueueNone
	p.QueueJoinedAt = nil
	p.MatchedMatchID = ""
	p.UpdatedAt = now
	return true, nil
}

func (r *PlayerRepository) ResetAllWaiting(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reset := 0
	for _, p := range r.items {
		if p.QueueStatus != player.QueueWaiting {
			continue
		}
		p.QueueStatus = player.QueueNone
		p.QueueJoinedAt = nil
		p.MatchedMatchID = ""
		p.UpdatedAt = now
		reset++
	}
	return reset, nil
}

func (r *PlayerRepository) ApplyResult(_ context.Context, app player.ResultApplication) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ratings := make(map[string]int, len(app.PlayerIDs))
	for _, id := range app.PlayerIDs {
		p, ok := r.items[id]
		if !ok {
			continue
		}
		if p.HasResultFor(app.MatchID) {
			return false, nil
		}
		ratings[id] = p.Rating
	}

	for _, update := range app.Deltas(ratings) {
		p, ok := r.items[update.PlayerID]
		if !ok {
			continue
		}
		p.Rating += update.RatingDelta
		if update.CountsGame {
			p.TotalMatches++
		}
		if update.Result == player.ResultWin {
			p.TotalWins++
		}
		entry := player.RecentResult{
			MatchID:     app.MatchID,
			Result:      update.Result,
			RatingDelta: update.RatingDelta,
			DecidedAt:   app.DecidedAt,
		}
		p.RecentResults = append([]player.RecentResult{entry}, p.RecentResults...)
		if len(p.RecentResults) > player.RecentResultLimit {
			p.RecentResults = p.RecentResults[:player.RecentResultLimit]
		}
		if p.MatchedMatchID == app.MatchID {
			p.MatchedMatchID = ""
			p.QueueStatus = player.QueueNone
			p.QueueJoinedAt = nil
		}
		p.UpdatedAt = app.DecidedAt
	}
	return true, nil
}

// matchPlayers flips a set of waiting players to matched; returns false when
// any of them is no longer waiting. Called by the match repository inside its
// create lock.
func (r *PlayerRepository) matchPlayers(playerIDs []string, matchID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range playerIDs {
		p, ok := r.items[id]
		if !ok || p.QueueStatus != player.QueueWaiting {
			return false
		}
	}
	for _, id := range playerIDs {
		p := r.items[id]
		p.QueueStatus = player.QueueMatched
		p.QueueJoinedAt = nil
		p.MatchedMatchID = matchID
		p.UpdatedAt = now
	}
	return true
}

// extendBan moves the ban window forward only; an existing later ban stays.
// Returns false when the player does not exist.
func (r *PlayerRepository) extendBan(playerID string, until, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[playerID]
	if !ok {
		return false
	}
	if p.BannedUntil == nil || until.After(*p.BannedUntil) {
		u := until
		p.BannedUntil = &u
		p.UpdatedAt = now
	}
	return true
}

func clonePlayer(p *player.Player) player.Player {
	cp := *p
	if p.QueueJoinedAt != nil {
		t := *p.QueueJoinedAt
		cp.QueueJoinedAt = &t
	}
	if p.BannedUntil != nil {
		t := *p.BannedUntil
		cp.BannedUntil = &t
	}
	cp.RecentResults = append([]player.RecentResult(nil), p.RecentResults...)
	return cp
}
