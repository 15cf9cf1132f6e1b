package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/playarc/matchqueue/internal/domain/match"
)

type storedMatch struct {
	match   match.Match
	members map[string]*match.Member
}

// MatchRepository is the in-memory match store. Match creation and result
// application both touch players, so the repository cooperates with the
// player repository the way the Postgres implementation shares one
// transaction.
type MatchRepository struct {
	mu      sync.Mutex
	players *PlayerRepository
	items   map[string]*storedMatch
}

func NewMatchRepository(players *PlayerRepository) *MatchRepository {
	return &MatchRepository{
		players: players,
		items:   make(map[string]*storedMatch),
	}
}

func (r *MatchRepository) Create(_ context.Context, matchID string, firstTeam match.Team, members []match.NewMember, now time.Time) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerIDs := make([]string, 0, len(members))
	for _, m := range members {
		playerIDs = append(playerIDs, m.PlayerID)
	}
	if !r.players.matchPlayers(playerIDs, matchID, now) {
		return match.Match{}, match.ErrCandidatesChanged
	}

	m := match.Match{
		ID:        matchID,
		Status:    match.StatusLobbyPending,
		Capacity:  match.Capacity,
		FirstTeam: firstTeam,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored := &storedMatch{
		match:   m,
		members: make(map[string]*match.Member, len(members)),
	}
	for _, nm := range members {
		stored.members[nm.PlayerID] = &match.Member{
			MatchID:  matchID,
			PlayerID: nm.PlayerID,
			Role:     nm.Role,
			Team:     nm.Team,
			SeatNo:   nm.SeatNo,
			JoinedAt: now,
		}
	}
	r.items[matchID] = stored
	return m, nil
}

func (r *MatchRepository) GetByID(_ context.Context, matchID string) (match.Match, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[matchID]
	if !ok {
		return match.Match{}, false, nil
	}
	return stored.match, true, nil
}

func (r *MatchRepository) GetMember(_ context.Context, matchID, playerID string) (match.Member, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[matchID]
	if !ok {
		return match.Member{}, false, nil
	}
	m, ok := stored.members[playerID]
	if !ok {
		return match.Member{}, false, nil
	}
	return cloneMember(m), true, nil
}

func (r *MatchRepository) ListMembers(_ context.Context, matchID string) ([]match.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.membersLocked(matchID), nil
}

func (r *MatchRepository) SetLobbyCode(_ context.Context, matchID, code string, now time.Time) (match.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[matchID]
	if !ok {
		return "", match.ErrStatusClosed
	}
	if stored.match.Status.Terminal() {
		return stored.match.Status, match.ErrStatusClosed
	}

	stored.match.LobbyCode = code
	stored.match.UpdatedAt = now
	r.advanceIfAllSeatedLocked(stored, now)
	return stored.match.Status, nil
}

func (r *MatchRepository) SetSeated(_ context.Context, matchID, playerID string, now time.Time) (match.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[matchID]
	if !ok {
		return "", match.ErrStatusClosed
	}
	if stored.match.Status.Terminal() {
		return stored.match.Status, match.ErrStatusClosed
	}
	member, ok := stored.members[playerID]
	if !ok {
		return stored.match.Status, match.ErrStatusClosed
	}

	if member.SeatedAt == nil {
		t := now
		member.SeatedAt = &t
	}
	r.advanceIfAllSeatedLocked(stored, now)
	return stored.match.Status, nil
}

func (r *MatchRepository) UnsetSeated(_ context.Context, matchID, playerID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[matchID]
	if !ok {
		return match.ErrStatusClosed
	}
	if stored.match.Status.Terminal() {
		return match.ErrStatusClosed
	}
	if member, ok := stored.members[playerID]; ok {
		member.SeatedAt = nil
		stored.match.UpdatedAt = now
	}
	return nil
}

func (r *MatchRepository) SetStuck(_ context.Context, matchID, playerID string, stuck bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[matchID]
	if !ok {
		return match.ErrStatusClosed
	}
	if stored.match.Status.Terminal() {
		return match.ErrStatusClosed
	}
	if member, ok := stored.members[playerID]; ok {
		member.Stuck = stuck
		stored.match.UpdatedAt = now
	}
	return nil
}

func (r *MatchRepository) RecordVote(_ context.Context, matchID, playerID string, vote match.Vote, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[matchID]
	if !ok {
		return match.ErrStatusClosed
	}
	if !stored.match.Status.Finalizable() {
		return match.ErrStatusClosed
	}
	member, ok := stored.members[playerID]
	if !ok {
		return match.ErrStatusClosed
	}

	v := vote
	t := now
	member.Vote = &v
	member.VotedAt = &t
	stored.match.UpdatedAt = now
	return nil
}

func (r *MatchRepository) Finalize(_ context.Context, matchID string, outcome match.Outcome, reason match.FinalizeReason, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[matchID]
	if !ok {
		return match.ErrAlreadyFinalized
	}
	if !stored.match.Status.Finalizable() {
		return match.ErrAlreadyFinalized
	}

	t := now
	stored.match.Status = outcome.FinalStatus()
	stored.match.Outcome = outcome
	stored.match.FinalizeReason = reason
	stored.match.FinalizedAt = &t
	stored.match.UpdatedAt = now
	return nil
}

func (r *MatchRepository) ListFinalizable(_ context.Context, cutoff time.Time, limit int) ([]match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]match.Match, 0)
	for _, stored := range r.items {
		if stored.match.Status.Finalizable() && !stored.match.CreatedAt.After(cutoff) {
			out = append(out, stored.match)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MatchRepository) advanceIfAllSeatedLocked(stored *storedMatch, now time.Time) {
	if stored.match.Status != match.StatusLobbyPending {
		return
	}
	members := make([]match.Member, 0, len(stored.members))
	for _, m := range stored.members {
		members = append(members, *m)
	}
	if match.AllSeated(members) {
		stored.match.Status = match.StatusInGame
		stored.match.UpdatedAt = now
	}
}

func (r *MatchRepository) membersLocked(matchID string) []match.Member {
	stored, ok := r.items[matchID]
	if !ok {
		return nil
	}
	out := make([]match.Member, 0, len(stored.members))
	for _, m := range stored.members {
		out = append(out, cloneMember(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Team != out[j].Team {
			return out[i].Team == match.TeamFirst
		}
		if out[i].SeatNo != out[j].SeatNo {
			return out[i].SeatNo < out[j].SeatNo
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

func cloneMember(m *match.Member) match.Member {
	cp := *m
	if m.SeatedAt != nil {
		t := *m.SeatedAt
		cp.SeatedAt = &t
	}
	if m.Vote != nil {
		v := *m.Vote
		cp.Vote = &v
	}
	if m.VotedAt != nil {
		t := *m.VotedAt
		cp.VotedAt = &t
	}
	return cp
}
