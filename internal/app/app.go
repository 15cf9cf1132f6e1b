package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/playarc/matchqueue/external/pushqueue"
	"github.com/playarc/matchqueue/internal/config"
	"github.com/playarc/matchqueue/internal/infrastructure/account/introspect"
	"github.com/playarc/matchqueue/internal/infrastructure/repository/postgres"
	"github.com/playarc/matchqueue/internal/interfaces/httpapi"
	"github.com/playarc/matchqueue/internal/platform/distlock"
	idgen "github.com/playarc/matchqueue/internal/platform/id"
	"github.com/playarc/matchqueue/internal/platform/resilience"
	"github.com/playarc/matchqueue/internal/scheduler"
	"github.com/playarc/matchqueue/internal/usecase"
)

// App holds the wired application: the HTTP server, the background job
// scheduler, and the connections both share.
type App struct {
	Server    *http.Server
	Scheduler *scheduler.Scheduler

	db     *sqlx.DB
	redis  *redis.Client
	logger *slog.Logger
}

// New connects to the backing stores and wires every service behind the HTTP
// server and the scheduler. Callers own the lifecycle: Start the scheduler,
// serve, then Close.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.ConnectContext(ctx, "postgres", dbURL,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.InfoContext(ctx, "database connected", "db_name", dbNameFromURL(cfg.DBURL))

	if cfg.SeedPlayers > 0 {
		if err := postgres.BootstrapSeed(ctx, db, cfg.SeedPlayers); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed players: %w", err)
		}
		logger.InfoContext(ctx, "seeded players", "count", cfg.SeedPlayers)
	}

	var redisClient *redis.Client
	var locks *distlock.Manager
	if cfg.RedisEnabled {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		locks = distlock.NewManager(redisClient)
	}

	playerRepo := postgres.NewPlayerRepository(db)
	matchRepo := postgres.NewMatchRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	penaltyRepo := postgres.NewPenaltyRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	var publisher usecase.PenaltyPublisher = pushqueue.NoopPublisher{}
	if cfg.PushEnabled {
		publisher = pushqueue.NewPublisher(pushqueue.Config{
			EndpointURL: cfg.PushEndpointURL,
			Token:       cfg.PushToken,
			Timeout:     cfg.PushTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.PushCircuitEnabled,
				FailureThreshold: cfg.PushCircuitFailureCount,
				OpenTimeout:      cfg.PushCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.PushCircuitHalfOpenMaxReq,
			},
		}, logger)
	}

	ids := idgen.NewRandomGenerator()

	queueSvc := usecase.NewQueueService(playerRepo, usecase.QueueHours{
		OpenHour:  cfg.QueueOpenHour,
		CloseHour: cfg.QueueCloseHour,
	}, logger)
	matchmakerSvc := usecase.NewMatchmakerService(playerRepo, matchRepo, usecase.MatchmakerConfig{
		MinQueueSize:   cfg.MatchMinQueue,
		MaxWait:        cfg.MatchMaxWait,
		CandidateLimit: cfg.MatchCandidateLimit,
	}, ids, logger)
	lobbySvc := usecase.NewLobbyService(matchRepo, logger)
	resultSvc := usecase.NewResultService(matchRepo, playerRepo, usecase.ResultConfig{
		VoteThreshold: cfg.ResultVoteThreshold,
		Timeout:       cfg.ResultTimeout,
		KFactor:       cfg.RatingKFactor,
		SweepLimit:    cfg.ResultSweepLimit,
		SweepWorkers:  cfg.ResultSweepWorkers,
	}, logger)
	reportSvc := usecase.NewReportService(
		matchRepo,
		reportRepo,
		penaltyRepo,
		notificationRepo,
		publisher,
		ids,
		usecase.ReportConfig{
			ReportThreshold: cfg.ReportThreshold,
			PenaltyDuration: cfg.PenaltyDuration,
		},
		logger,
	)
	notificationSvc := usecase.NewNotificationService(notificationRepo, logger)

	verifier := introspect.NewClient(
		&http.Client{Timeout: cfg.AccountTimeout},
		cfg.AccountBaseURL,
		cfg.AccountIntrospectPath,
		cfg.AccountCacheTTL,
		logger,
	)

	handler := httpapi.NewHandler(queueSvc, matchmakerSvc, lobbySvc, resultSvc, reportSvc, notificationSvc, logger)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	sched, err := scheduler.New(matchmakerSvc, resultSvc, queueSvc, locks, scheduler.Config{
		MatchmakingInterval: cfg.MatchmakingInterval,
		SweepInterval:       cfg.ResultSweepInterval,
		QueueCloseHour:      cfg.QueueCloseHour,
		LockTTL:             cfg.JobLockTTL,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build scheduler: %w", err)
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &App{
		Server:    server,
		Scheduler: sched,
		db:        db,
		redis:     redisClient,
		logger:    logger,
	}, nil
}

// Close stops the scheduler and releases the store connections. The HTTP
// server is shut down by the caller first, so in-flight requests do not see
// closed pools.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.Scheduler != nil {
		if err := a.Scheduler.Shutdown(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown scheduler: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close redis: %w", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close database: %w", err)
		}
	}
	return firstErr
}
