package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/playarc/matchqueue/internal/domain/match"
	"github.com/playarc/matchqueue/internal/domain/player"
	"github.com/playarc/matchqueue/internal/infrastructure/repository/memory"
)

func enqueueSpread(t *testing.T, repo *memory.PlayerRepository, base time.Time, ids ...string) {
	t.Helper()
	for i, id := range ids {
		if err := repo.Enqueue(t.Context(), id, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("enqueue %s failed: %v", id, err)
		}
	}
}

func waitingIDs(t *testing.T, repo *memory.PlayerRepository) []string {
	t.Helper()
	waiting, err := repo.ListWaiting(t.Context(), 0)
	if err != nil {
		t.Fatalf("list waiting failed: %v", err)
	}
	ids := make([]string, 0, len(waiting))
	for _, p := range waiting {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestMatchmakerService_RunScheduledPass_FullQueue(t *testing.T) {
	seeds := memory.SeedPlayers(30)
	playerRepo := memory.NewPlayerRepository(seeds)
	matchRepo := memory.NewMatchRepository(playerRepo)

	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	for i, p := range seeds {
		if err := playerRepo.Enqueue(t.Context(), p.ID, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("enqueue %s failed: %v", p.ID, err)
		}
	}

	service := NewMatchmakerService(
		playerRepo,
		matchRepo,
		MatchmakerConfig{MinQueueSize: 30, MaxWait: 60 * time.Second, CandidateLimit: 500},
		&seqIDGenerator{prefix: "m"},
		testLogger(),
	)
	service.now = func() time.Time { return base.Add(time.Minute) }

	result, err := service.RunScheduledPass(t.Context())
	if err != nil {
		t.Fatalf("scheduled pass failed: %v", err)
	}
	if !result.Ran {
		t.Fatal("expected the pass to run at the minimum queue size")
	}
	if result.Created != 3 || len(result.MatchIDs) != 3 {
		t.Fatalf("expected 3 matches from 30 players, got %d (%v)", result.Created, result.MatchIDs)
	}
	if remaining := waitingIDs(t, playerRepo); len(remaining) != 0 {
		t.Fatalf("expected an empty queue, still waiting: %v", remaining)
	}

	for _, matchID := range result.MatchIDs {
		assertValidRoster(t, matchRepo, playerRepo, matchID)
	}
}

func assertValidRoster(t *testing.T, matchRepo *memory.MatchRepository, playerRepo *memory.PlayerRepository, matchID string) {
	t.Helper()

	m, found, err := matchRepo.GetByID(t.Context(), matchID)
	if err != nil || !found {
		t.Fatalf("match %s missing: found=%v err=%v", matchID, found, err)
	}
	if m.Status != match.StatusLobbyPending {
		t.Fatalf("expected lobby_pending, got %q", m.Status)
	}
	if !m.FirstTeam.Valid() {
		t.Fatalf("invalid first team %q", m.FirstTeam)
	}

	members, err := matchRepo.ListMembers(t.Context(), matchID)
	if err != nil {
		t.Fatalf("list members failed: %v", err)
	}
	if len(members) != match.Capacity {
		t.Fatalf("expected %d members, got %d", match.Capacity, len(members))
	}

	perTeam := map[match.Team]int{}
	seats := map[match.Team]map[int]bool{
		match.TeamFirst:  {},
		match.TeamSecond: {},
	}
	for _, member := range members {
		perTeam[member.Team]++
		if seats[member.Team][member.SeatNo] {
			t.Fatalf("duplicate seat %d on team %q", member.SeatNo, member.Team)
		}
		if member.SeatNo < 1 || member.SeatNo > match.TeamSize {
			t.Fatalf("seat %d out of range", member.SeatNo)
		}
		seats[member.Team][member.SeatNo] = true

		p, found, err := playerRepo.GetByID(t.Context(), member.PlayerID)
		if err != nil || !found {
			t.Fatalf("player %s missing: %v", member.PlayerID, err)
		}
		if p.QueueStatus != player.QueueMatched || p.MatchedMatchID != matchID {
			t.Fatalf("player %s not marked matched into %s: status=%q matched=%q",
				p.ID, matchID, p.QueueStatus, p.MatchedMatchID)
		}
	}
	if perTeam[match.TeamFirst] != match.TeamSize || perTeam[match.TeamSecond] != match.TeamSize {
		t.Fatalf("uneven teams: %v", perTeam)
	}
}

func TestMatchmakerService_RunScheduledPass_WaitTriggerTruncates(t *testing.T) {
	seeds := memory.SeedPlayers(12)
	playerRepo := memory.NewPlayerRepository(seeds)
	matchRepo := memory.NewMatchRepository(playerRepo)

	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	ids := make([]string, 0, len(seeds))
	for _, p := range seeds {
		ids = append(ids, p.ID)
	}
	enqueueSpread(t, playerRepo, base, ids...)

	service := NewMatchmakerService(
		playerRepo,
		matchRepo,
		MatchmakerConfig{MinQueueSize: 30, MaxWait: 60 * time.Second, CandidateLimit: 500},
		&seqIDGenerator{prefix: "m"},
		testLogger(),
	)

	// Oldest has waited 30s: below both triggers, nothing runs.
	service.now = func() time.Time { return base.Add(30 * time.Second) }
	result, err := service.RunScheduledPass(t.Context())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if result.Ran || result.Created != 0 {
		t.Fatalf("expected an idle pass, got %+v", result)
	}

	// Oldest has now waited 61s: the wait trigger admits the pass, and the
	// 12-deep pool truncates to one group of ten.
	service.now = func() time.Time { return base.Add(61 * time.Second) }
	result, err = service.RunScheduledPass(t.Context())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if !result.Ran || result.Created != 1 {
		t.Fatalf("expected exactly one match, got %+v", result)
	}
	if remaining := waitingIDs(t, playerRepo); len(remaining) != 2 {
		t.Fatalf("expected 2 players left waiting, got %v", remaining)
	}
	assertValidRoster(t, matchRepo, playerRepo, result.MatchIDs[0])
}

func TestMatchmakerService_RunScheduledPass_BelowGroupSizeNeverRuns(t *testing.T) {
	seeds := memory.SeedPlayers(9)
	playerRepo := memory.NewPlayerRepository(seeds)
	matchRepo := memory.NewMatchRepository(playerRepo)

	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	ids := make([]string, 0, len(seeds))
	for _, p := range seeds {
		ids = append(ids, p.ID)
	}
	enqueueSpread(t, playerRepo, base, ids...)

	service := NewMatchmakerService(
		playerRepo,
		matchRepo,
		MatchmakerConfig{MinQueueSize: 10, MaxWait: 60 * time.Second, CandidateLimit: 500},
		&seqIDGenerator{prefix: "m"},
		testLogger(),
	)
	// Even an hour of waiting cannot admit fewer than ten players.
	service.now = func() time.Time { return base.Add(time.Hour) }

	result, err := service.RunScheduledPass(t.Context())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if result.Ran || result.Created != 0 {
		t.Fatalf("expected no matches below a full group, got %+v", result)
	}
	if remaining := waitingIDs(t, playerRepo); len(remaining) != 9 {
		t.Fatalf("expected all 9 players still waiting, got %v", remaining)
	}
}

func TestMatchmakerService_RunScheduledPass_SkipsWaitingWithoutJoinTime(t *testing.T) {
	seeds := memory.SeedPlayers(9)
	playerRepo := memory.NewPlayerRepository(seeds)
	matchRepo := memory.NewMatchRepository(playerRepo)

	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	ids := make([]string, 0, len(seeds))
	for _, p := range seeds {
		ids = append(ids, p.ID)
	}
	enqueueSpread(t, playerRepo, base, ids...)

	// A corrupt waiting row with no join timestamp. If it were admitted as a
	// candidate its zero join time would look infinitely old, tripping the
	// wait trigger and filling out a tenth roster seat.
	playerRepo.Put(player.Player{ID: "p-ghost", Rating: player.DefaultRating, QueueStatus: player.QueueWaiting})

	service := NewMatchmakerService(
		playerRepo,
		matchRepo,
		MatchmakerConfig{MinQueueSize: 10, MaxWait: 60 * time.Second, CandidateLimit: 500},
		&seqIDGenerator{prefix: "m"},
		testLogger(),
	)
	service.now = func() time.Time { return base.Add(30 * time.Second) }

	result, err := service.RunScheduledPass(t.Context())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if result.Ran || result.Created != 0 {
		t.Fatalf("expected an idle pass, got %+v", result)
	}
	if result.Candidates != 9 {
		t.Fatalf("expected the timestamp-less row to be dropped from the pool, got %d candidates", result.Candidates)
	}
}

func TestMatchmakerService_RunManualPass_MatchesByRating(t *testing.T) {
	playerRepo := memory.NewPlayerRepository(nil)
	matchRepo := memory.NewMatchRepository(playerRepo)

	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	ids := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		id := string(rune('a'+i/10)) + string(rune('0'+i%10))
		playerRepo.Put(player.Player{ID: id, Rating: 1200 + 50*i})
		ids = append(ids, id)
	}
	enqueueSpread(t, playerRepo, base, ids...)

	service := NewMatchmakerService(
		playerRepo,
		matchRepo,
		MatchmakerConfig{MinQueueSize: 10, MaxWait: 60 * time.Second, CandidateLimit: 500},
		&seqIDGenerator{prefix: "m"},
		testLogger(),
	)
	service.now = func() time.Time { return base }

	result, err := service.RunManualPass(t.Context())
	if err != nil {
		t.Fatalf("manual pass failed: %v", err)
	}
	if result.Created != 2 {
		t.Fatalf("expected 2 matches, got %+v", result)
	}

	// Rating order means the top ten land in the first match together.
	topTen := map[string]bool{}
	for i := 10; i < 20; i++ {
		topTen[ids[i]] = true
	}
	members, err := matchRepo.ListMembers(context.Background(), result.MatchIDs[0])
	if err != nil {
		t.Fatalf("list members failed: %v", err)
	}
	for _, member := range members {
		if !topTen[member.PlayerID] {
			t.Fatalf("player %s does not belong in the top-rated match", member.PlayerID)
		}
	}
}
