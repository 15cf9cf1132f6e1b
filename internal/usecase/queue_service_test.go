package usecase

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playarc/matchqueue/internal/domain/player"
	"github.com/playarc/matchqueue/internal/infrastructure/repository/memory"
)

type seqIDGenerator struct {
	prefix string
	n      atomic.Int64
}

func (g *seqIDGenerator) NewID() (string, error) {
	return fmt.Sprintf("%s-%03d", g.prefix, g.n.Add(1)), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueueService_StartAndCancel(t *testing.T) {
	repo := memory.NewPlayerRepository(memory.SeedPlayers(3))
	service := NewQueueService(repo, QueueHours{}, testLogger())

	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	if err := service.Start(t.Context(), "p-001"); err != nil {
		t.Fatalf("start queue failed: %v", err)
	}

	state, err := service.State(t.Context(), "p-001")
	if err != nil {
		t.Fatalf("state failed: %v", err)
	}
	if state.Status != player.QueueWaiting {
		t.Fatalf("expected waiting, got %q", state.Status)
	}
	if state.JoinedAt == nil || !state.JoinedAt.Equal(now) {
		t.Fatalf("expected joined_at %v, got %v", now, state.JoinedAt)
	}

	if err := service.Start(t.Context(), "p-001"); !errors.Is(err, ErrFailedPrecondition) {
		t.Fatalf("expected ErrFailedPrecondition on double start, got %v", err)
	}

	if err := service.Cancel(t.Context(), "p-001"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	state, err = service.State(t.Context(), "p-001")
	if err != nil {
		t.Fatalf("state failed: %v", err)
	}
	if state.Status != player.QueueNone {
		t.Fatalf("expected idle after cancel, got %q", state.Status)
	}

	// Cancel is idempotent for players who are not waiting.
	if err := service.Cancel(t.Context(), "p-001"); err != nil {
		t.Fatalf("second cancel should be a no-op: %v", err)
	}
}

func TestQueueService_Start_Banned(t *testing.T) {
	repo := memory.NewPlayerRepository(nil)
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	until := now.Add(time.Hour)
	repo.Put(player.Player{ID: "p-banned", Rating: player.DefaultRating, BannedUntil: &until})

	service := NewQueueService(repo, QueueHours{}, testLogger())
	service.now = func() time.Time { return now }

	if err := service.Start(t.Context(), "p-banned"); !errors.Is(err, ErrFailedPrecondition) {
		t.Fatalf("expected ErrFailedPrecondition for banned player, got %v", err)
	}

	// The ban has lapsed one hour later.
	service.now = func() time.Time { return now.Add(2 * time.Hour) }
	if err := service.Start(t.Context(), "p-banned"); err != nil {
		t.Fatalf("start after ban expiry failed: %v", err)
	}
}

func TestQueueService_Start_OutsideHours(t *testing.T) {
	repo := memory.NewPlayerRepository(memory.SeedPlayers(1))
	service := NewQueueService(repo, QueueHours{OpenHour: 18, CloseHour: 2}, testLogger())

	service.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	if err := service.Start(t.Context(), "p-001"); !errors.Is(err, ErrFailedPrecondition) {
		t.Fatalf("expected ErrFailedPrecondition at noon, got %v", err)
	}

	// The window wraps midnight, so 01:00 is still open.
	service.now = func() time.Time {
		return time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	}
	if err := service.Start(t.Context(), "p-001"); err != nil {
		t.Fatalf("start at 01:00 failed: %v", err)
	}
}

func TestQueueService_ResetClosedQueue(t *testing.T) {
	repo := memory.NewPlayerRepository(memory.SeedPlayers(5))
	service := NewQueueService(repo, QueueHours{}, testLogger())

	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	for _, id := range []string{"p-001", "p-002", "p-003"} {
		if err := service.Start(t.Context(), id); err != nil {
			t.Fatalf("start %s failed: %v", id, err)
		}
	}

	reset, err := service.ResetClosedQueue(t.Context())
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if reset != 3 {
		t.Fatalf("expected 3 players reset, got %d", reset)
	}

	count, err := service.WaitingCount(t.Context())
	if err != nil {
		t.Fatalf("waiting count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty queue after reset, got %d", count)
	}
}
