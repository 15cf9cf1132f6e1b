package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/playarc/matchqueue/internal/platform/distlock"
	"github.com/playarc/matchqueue/internal/usecase"
)

const (
	lockKeyMatchmaking = "matchqueue:jobs:matchmaking"
	lockKeySweep       = "matchqueue:jobs:finalize-timeouts"
	lockKeyReset       = "matchqueue:jobs:reset-queue"
)

// Config sets job cadence. Zero intervals fall back to one minute.
type Config struct {
	MatchmakingInterval time.Duration
	SweepInterval       time.Duration
	QueueCloseHour      int
	LockTTL             time.Duration
}

// Scheduler drives the recurring jobs of the system: matchmaking passes,
// result timeout sweeps, and the daily queue reset at closing time. Each job
// takes a Redis lease first, so running several API replicas does not run
// the same pass twice.
type Scheduler struct {
	matchmaker *usecase.MatchmakerService
	results    *usecase.ResultService
	queue      *usecase.QueueService
	locks      *distlock.Manager
	cfg        Config
	logger     *slog.Logger
	sched      gocron.Scheduler
}

func New(
	matchmaker *usecase.MatchmakerService,
	results *usecase.ResultService,
	queue *usecase.QueueService,
	locks *distlock.Manager,
	cfg Config,
	logger *slog.Logger,
) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MatchmakingInterval <= 0 {
		cfg.MatchmakingInterval = time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &Scheduler{
		matchmaker: matchmaker,
		results:    results,
		queue:      queue,
		locks:      locks,
		cfg:        cfg,
		logger:     logger,
		sched:      sched,
	}, nil
}

// Start registers the jobs and begins ticking. Job errors are logged, never
// fatal; the next tick retries.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.sched.NewJob(
		gocron.DurationJob(s.cfg.MatchmakingInterval),
		gocron.NewTask(func() { s.runMatchmakingPass(ctx) }),
	); err != nil {
		return fmt.Errorf("register matchmaking job: %w", err)
	}

	if _, err := s.sched.NewJob(
		gocron.DurationJob(s.cfg.SweepInterval),
		gocron.NewTask(func() { s.runTimeoutSweep(ctx) }),
	); err != nil {
		return fmt.Errorf("register timeout sweep job: %w", err)
	}

	if _, err := s.sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(s.cfg.QueueCloseHour), 0, 0))),
		gocron.NewTask(func() { s.runQueueReset(ctx) }),
	); err != nil {
		return fmt.Errorf("register queue reset job: %w", err)
	}

	s.sched.Start()
	s.logger.InfoContext(ctx, "scheduler started",
		"matchmaking_interval", s.cfg.MatchmakingInterval,
		"sweep_interval", s.cfg.SweepInterval,
		"queue_close_hour", s.cfg.QueueCloseHour,
	)
	return nil
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) runMatchmakingPass(ctx context.Context) {
	s.withLock(ctx, lockKeyMatchmaking, func(ctx context.Context) {
		result, err := s.matchmaker.RunScheduledPass(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "scheduled matchmaking pass failed", "error", err)
			return
		}
		if result.Created > 0 {
			s.logger.InfoContext(ctx, "matchmaking pass created matches",
				"created", result.Created, "candidates", result.Candidates)
		}
	})
}

func (s *Scheduler) runTimeoutSweep(ctx context.Context) {
	s.withLock(ctx, lockKeySweep, func(ctx context.Context) {
		result, err := s.results.SweepTimeouts(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "timeout sweep failed", "error", err)
			return
		}
		if result.Finalized > 0 {
			s.logger.InfoContext(ctx, "timeout sweep finalized matches",
				"scanned", result.Scanned, "finalized", result.Finalized)
		}
	})
}

func (s *Scheduler) runQueueReset(ctx context.Context) {
	s.withLock(ctx, lockKeyReset, func(ctx context.Context) {
		reset, err := s.queue.ResetClosedQueue(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "queue reset failed", "error", err)
			return
		}
		s.logger.InfoContext(ctx, "queue reset at closing time", "reset", reset)
	})
}

// withLock runs fn only on the replica that wins the lease. Losing the race
// is the normal case on all but one replica and is not logged above debug.
func (s *Scheduler) withLock(ctx context.Context, key string, fn func(context.Context)) {
	if s.locks == nil {
		fn(ctx)
		return
	}

	lock, err := s.locks.Acquire(ctx, key, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, distlock.ErrNotAcquired) {
			s.logger.DebugContext(ctx, "job lease held elsewhere", "key", key)
			return
		}
		s.logger.ErrorContext(ctx, "acquire job lease failed", "key", key, "error", err)
		return
	}
	defer func() {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, distlock.ErrNotHeld) {
			s.logger.WarnContext(ctx, "release job lease failed", "key", key, "error", err)
		}
	}()

	fn(ctx)
}
