package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/playarc/matchqueue/internal/infrastructure/repository/memory"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []PenaltyEvent
}

func (p *capturingPublisher) PublishPenalty(_ context.Context, event PenaltyEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func newTestReportService(
	playerRepo *memory.PlayerRepository,
	matchRepo *memory.MatchRepository,
) (*ReportService, *memory.PenaltyRepository, *memory.NotificationRepository, *capturingPublisher) {
	penaltyRepo := memory.NewPenaltyRepository(playerRepo)
	notificationRepo := memory.NewNotificationRepository()
	publisher := &capturingPublisher{}

	service := NewReportService(
		matchRepo,
		memory.NewReportRepository(),
		penaltyRepo,
		notificationRepo,
		publisher,
		&seqIDGenerator{prefix: "r"},
		ReportConfig{ReportThreshold: 3, PenaltyDuration: 24 * time.Hour},
		testLogger(),
	)
	return service, penaltyRepo, notificationRepo, publisher
}

func TestReportService_ThresholdAppliesPenaltyOnce(t *testing.T) {
	playerRepo := memory.NewPlayerRepository(nil)
	matchRepo := memory.NewMatchRepository(playerRepo)
	service, penaltyRepo, notificationRepo, publisher := newTestReportService(playerRepo, matchRepo)

	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	now := start.Add(30 * time.Minute)
	service.now = func() time.Time { return now }
	seedMatch(t, playerRepo, matchRepo, "m-001", start)

	// Two distinct reporters: below the threshold, no penalty.
	for _, reporter := range []string{"p-001", "p-002"} {
		out, err := service.Create(t.Context(), "m-001", reporter, "p-006", "", "")
		if err != nil {
			t.Fatalf("report from %s failed: %v", reporter, err)
		}
		if out.PenaltyApplied {
			t.Fatalf("penalty applied below threshold at %s", reporter)
		}
	}

	// The same reporter again still counts once.
	out, err := service.Create(t.Context(), "m-001", "p-001", "p-006", "", "")
	if err != nil {
		t.Fatalf("duplicate report failed: %v", err)
	}
	if out.Reporters != 2 || out.PenaltyApplied {
		t.Fatalf("duplicate reporter should not advance the count, got %+v", out)
	}

	// The third distinct reporter trips the penalty.
	out, err = service.Create(t.Context(), "m-001", "p-003", "p-006", "", "")
	if err != nil {
		t.Fatalf("third report failed: %v", err)
	}
	if out.Reporters != 3 || !out.PenaltyApplied {
		t.Fatalf("expected penalty at the third reporter, got %+v", out)
	}

	penalties, err := penaltyRepo.ListByPlayer(t.Context(), "p-006")
	if err != nil {
		t.Fatalf("list penalties failed: %v", err)
	}
	if len(penalties) != 1 {
		t.Fatalf("expected exactly one penalty, got %d", len(penalties))
	}
	wantUntil := now.Add(24 * time.Hour)
	if !penalties[0].BannedUntil.Equal(wantUntil) {
		t.Fatalf("banned_until=%v, want %v", penalties[0].BannedUntil, wantUntil)
	}

	accused, _, _ := playerRepo.GetByID(t.Context(), "p-006")
	if accused.BannedUntil == nil || !accused.BannedUntil.Equal(wantUntil) {
		t.Fatalf("accused ban window not written: %v", accused.BannedUntil)
	}

	// Each distinct reporter got one notification; the accused got none.
	for _, reporter := range []string{"p-001", "p-002", "p-003"} {
		items, err := notificationRepo.ListByPlayer(t.Context(), reporter, 10)
		if err != nil {
			t.Fatalf("list notifications failed: %v", err)
		}
		if len(items) != 1 || items[0].AccusedID != "p-006" {
			t.Fatalf("reporter %s notifications: %+v", reporter, items)
		}
	}
	if items, _ := notificationRepo.ListByPlayer(t.Context(), "p-006", 10); len(items) != 0 {
		t.Fatalf("accused should not be notified, got %+v", items)
	}
	if len(publisher.events) != 1 || publisher.events[0].PlayerID != "p-006" {
		t.Fatalf("expected one published penalty event, got %+v", publisher.events)
	}

	// A fourth reporter after the penalty does not re-apply it or duplicate
	// notifications.
	out, err = service.Create(t.Context(), "m-001", "p-004", "p-006", "", "")
	if err != nil {
		t.Fatalf("fourth report failed: %v", err)
	}
	if out.PenaltyApplied {
		t.Fatalf("penalty re-applied for the same (player, match): %+v", out)
	}
	penalties, _ = penaltyRepo.ListByPlayer(t.Context(), "p-006")
	if len(penalties) != 1 {
		t.Fatalf("expected the penalty to stay unique, got %d", len(penalties))
	}
}

func TestReportService_BanExtendsForwardOnly(t *testing.T) {
	playerRepo := memory.NewPlayerRepository(nil)
	matchRepo := memory.NewMatchRepository(playerRepo)
	service, _, _, _ := newTestReportService(playerRepo, matchRepo)

	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	seedMatch(t, playerRepo, matchRepo, "m-001", start)

	// An unrelated longer ban is already in place.
	longBan := start.Add(31 * 24 * time.Hour)
	p, _, _ := playerRepo.GetByID(t.Context(), "p-006")
	p.BannedUntil = &longBan
	playerRepo.Put(p)

	service.now = func() time.Time { return start.Add(time.Hour) }
	for _, reporter := range []string{"p-001", "p-002", "p-003"} {
		if _, err := service.Create(t.Context(), "m-001", reporter, "p-006", "", ""); err != nil {
			t.Fatalf("report from %s failed: %v", reporter, err)
		}
	}

	p, _, _ = playerRepo.GetByID(t.Context(), "p-006")
	if p.BannedUntil == nil || !p.BannedUntil.Equal(longBan) {
		t.Fatalf("a shorter penalty must not pull the ban window back: %v", p.BannedUntil)
	}
}

func TestReportService_Create_Validation(t *testing.T) {
	playerRepo := memory.NewPlayerRepository(nil)
	matchRepo := memory.NewMatchRepository(playerRepo)
	service, _, _, _ := newTestReportService(playerRepo, matchRepo)

	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return start }
	seedMatch(t, playerRepo, matchRepo, "m-001", start)

	if _, err := service.Create(t.Context(), "m-001", "p-001", "p-001", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for self-report, got %v", err)
	}
	if _, err := service.Create(t.Context(), "m-404", "p-001", "p-006", "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown match, got %v", err)
	}
	if _, err := service.Create(t.Context(), "m-001", "outsider", "p-006", "", ""); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for non-member reporter, got %v", err)
	}
	if _, err := service.Create(t.Context(), "m-001", "p-001", "outsider", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for outsider accused, got %v", err)
	}
}
