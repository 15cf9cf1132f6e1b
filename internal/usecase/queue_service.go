package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playarc/matchqueue/internal/domain/player"
	"github.com/playarc/matchqueue/internal/platform/cache"
)

// QueueHours is the daily window during which the queue accepts joins.
// OpenHour may be later than CloseHour for a window that wraps midnight,
// like the default 18:00 to 02:00.
type QueueHours struct {
	OpenHour  int
	CloseHour int
}

// Open reports whether the queue accepts joins at t. A zero-value window
// (open == close) means always open.
func (h QueueHours) Open(t time.Time) bool {
	if h.OpenHour == h.CloseHour {
		return true
	}
	hour := t.Hour()
	if h.OpenHour < h.CloseHour {
		return hour >= h.OpenHour && hour < h.CloseHour
	}
	return hour >= h.OpenHour || hour < h.CloseHour
}

// QueueState is the caller's own view of their queue slot.
type QueueState struct {
	Status         player.QueueStatus
	JoinedAt       *time.Time
	MatchedMatchID string
	BannedUntil    *time.Time
}

// QueueService handles queue entry and exit. Matching itself belongs to
// MatchmakerService.
type QueueService struct {
	playerRepo player.Repository
	hours      QueueHours
	countCap   int
	countCache *cache.Store
	logger     *slog.Logger
	now        func() time.Time
}

func NewQueueService(playerRepo player.Repository, hours QueueHours, logger *slog.Logger) *QueueService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueService{
		playerRepo: playerRepo,
		hours:      hours,
		countCap:   10,
		countCache: cache.NewStore(2 * time.Second),
		logger:     logger,
		now:        time.Now,
	}
}

// Start puts the caller into the waiting queue. Bans and the open-hours
// window are enforced; the underlying command re-validates both inside its
// transaction.
func (s *QueueService) Start(ctx context.Context, playerID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueueService.Start")
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	now := s.now()
	if !s.hours.Open(now) {
		return fmt.Errorf("%w: queue is closed at this hour", ErrFailedPrecondition)
	}

	err := s.playerRepo.Enqueue(ctx, playerID, now)
	switch {
	case err == nil:
	case errors.Is(err, player.ErrNotFound):
		return fmt.Errorf("%w: player=%s", ErrNotFound, playerID)
	case errors.Is(err, player.ErrBanned):
		return fmt.Errorf("%w: player is banned from matchmaking", ErrFailedPrecondition)
	case errors.Is(err, player.ErrQueueActive):
		return fmt.Errorf("%w: player already queued or matched", ErrFailedPrecondition)
	default:
		return fmt.Errorf("enqueue player: %w", err)
	}

	s.logger.InfoContext(ctx, "player joined queue", "player_id", playerID)
	return nil
}

// Cancel releases the caller's queue slot. Cancelling while matched is a
// no-op: a formed match keeps its roster even when someone logs out.
func (s *QueueService) Cancel(ctx context.Context, playerID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueueService.Cancel")
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	released, err := s.playerRepo.CancelQueue(ctx, playerID, s.now())
	if errors.Is(err, player.ErrNotFound) {
		return fmt.Errorf("%w: player=%s", ErrNotFound, playerID)
	}
	if err != nil {
		return fmt.Errorf("cancel queue: %w", err)
	}
	if released {
		s.logger.InfoContext(ctx, "player left queue", "player_id", playerID)
	}
	return nil
}

// State returns the caller's own queue slot and ban window.
func (s *QueueService) State(ctx context.Context, playerID string) (QueueState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueueService.State")
	defer span.End()

	p, found, err := s.playerRepo.GetByID(ctx, strings.TrimSpace(playerID))
	if err != nil {
		return QueueState{}, fmt.Errorf("get player: %w", err)
	}
	if !found {
		return QueueState{}, fmt.Errorf("%w: player=%s", ErrNotFound, playerID)
	}

	return QueueState{
		Status:         p.QueueStatus,
		JoinedAt:       p.QueueJoinedAt,
		MatchedMatchID: p.MatchedMatchID,
		BannedUntil:    p.BannedUntil,
	}, nil
}

// WaitingCount reports how many players are waiting, capped to bound the
// scan; the UI only ever renders "10+". The count is served from a short
// cache so landing-page polling never fans out to the database.
func (s *QueueService) WaitingCount(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueueService.WaitingCount")
	defer span.End()

	value, err := s.countCache.GetOrLoad(ctx, "queue:waiting-count", func(ctx context.Context) (any, error) {
		count, err := s.playerRepo.CountWaiting(ctx, s.countCap)
		if err != nil {
			return 0, fmt.Errorf("count waiting players: %w", err)
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return value.(int), nil
}

// ResetClosedQueue clears every waiting player; scheduled at queue close so
// the system starts the next window clean.
func (s *QueueService) ResetClosedQueue(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueueService.ResetClosedQueue")
	defer span.End()

	reset, err := s.playerRepo.ResetAllWaiting(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("reset waiting players: %w", err)
	}
	if reset > 0 {
		s.logger.InfoContext(ctx, "queue reset at close", "players_reset", reset)
	}
	return reset, nil
}
