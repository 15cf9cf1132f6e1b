package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playarc/matchqueue/internal/domain/match"
	"github.com/playarc/matchqueue/internal/domain/notification"
	"github.com/playarc/matchqueue/internal/domain/penalty"
	"github.com/playarc/matchqueue/internal/domain/report"
	idgen "github.com/playarc/matchqueue/internal/platform/id"
	"github.com/sourcegraph/conc/pool"
)

// ReportConfig carries the penalty trigger knobs.
type ReportConfig struct {
	ReportThreshold int
	PenaltyDuration time.Duration
}

// PenaltyEvent is the payload pushed to the outbound queue when a penalty
// lands.
type PenaltyEvent struct {
	PenaltyID   string    `json:"penalty_id"`
	PlayerID    string    `json:"player_id"`
	MatchID     string    `json:"match_id"`
	Reason      string    `json:"reason"`
	BannedUntil time.Time `json:"banned_until"`
}

// PenaltyPublisher pushes penalty events to external consumers. Delivery is
// best effort.
type PenaltyPublisher interface {
	PublishPenalty(ctx context.Context, event PenaltyEvent) error
}

// ReportOutcome reports what one accusation did.
type ReportOutcome struct {
	Report         report.Report `json:"report"`
	Reporters      int           `json:"reporters"`
	PenaltyApplied bool          `json:"penalty_applied"`
}

// ReportService takes no-show accusations from match members, and once
// enough distinct reporters accuse the same player it bans them.
type ReportService struct {
	matchRepo        match.Repository
	reportRepo       report.Repository
	penaltyRepo      penalty.Repository
	notificationRepo notification.Repository
	publisher        PenaltyPublisher
	ids              idgen.Generator
	cfg              ReportConfig
	logger           *slog.Logger
	now              func() time.Time
}

func NewReportService(
	matchRepo match.Repository,
	reportRepo report.Repository,
	penaltyRepo penalty.Repository,
	notificationRepo notification.Repository,
	publisher PenaltyPublisher,
	ids idgen.Generator,
	cfg ReportConfig,
	logger *slog.Logger,
) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		matchRepo:        matchRepo,
		reportRepo:       reportRepo,
		penaltyRepo:      penaltyRepo,
		notificationRepo: notificationRepo,
		publisher:        publisher,
		ids:              ids,
		cfg:              cfg,
		logger:           logger,
		now:              time.Now,
	}
}

// Create files one accusation and, when the distinct-reporter threshold is
// reached, applies the penalty and notifies the reporters.
func (s *ReportService) Create(ctx context.Context, matchID, reporterID, accusedID, reason, evidenceRef string) (ReportOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReportService.Create")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = report.ReasonNoShow
	}
	if reporterID == accusedID {
		return ReportOutcome{}, fmt.Errorf("%w: players cannot report themselves", ErrInvalidInput)
	}

	if _, found, err := s.matchRepo.GetByID(ctx, matchID); err != nil {
		return ReportOutcome{}, fmt.Errorf("get match: %w", err)
	} else if !found {
		return ReportOutcome{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}

	reporter, found, err := s.matchRepo.GetMember(ctx, matchID, reporterID)
	if err != nil {
		return ReportOutcome{}, fmt.Errorf("get reporter: %w", err)
	}
	if !found || !reporter.Participant() {
		return ReportOutcome{}, fmt.Errorf("%w: only participants report", ErrPermissionDenied)
	}
	if _, found, err = s.matchRepo.GetMember(ctx, matchID, accusedID); err != nil {
		return ReportOutcome{}, fmt.Errorf("get accused: %w", err)
	} else if !found {
		return ReportOutcome{}, fmt.Errorf("%w: accused is not part of this match", ErrInvalidInput)
	}

	reportID, err := s.ids.NewID()
	if err != nil {
		return ReportOutcome{}, fmt.Errorf("generate report id: %w", err)
	}
	created, err := s.reportRepo.Create(ctx, report.Report{
		ID:          reportID,
		MatchID:     matchID,
		ReporterID:  reporterID,
		AccusedID:   accusedID,
		Reason:      reason,
		EvidenceRef: evidenceRef,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return ReportOutcome{}, fmt.Errorf("create report: %w", err)
	}

	reporters, err := s.reportRepo.DistinctReporters(ctx, matchID, accusedID)
	if err != nil {
		return ReportOutcome{}, fmt.Errorf("count reporters: %w", err)
	}

	outcome := ReportOutcome{Report: created, Reporters: len(reporters)}
	if len(reporters) < s.cfg.ReportThreshold {
		return outcome, nil
	}

	applied, err := s.applyPenalty(ctx, matchID, accusedID, reason, reporters)
	if err != nil {
		return ReportOutcome{}, err
	}
	outcome.PenaltyApplied = applied
	return outcome, nil
}

// Penalties lists a player's penalty history.
func (s *ReportService) Penalties(ctx context.Context, playerID string) ([]penalty.Penalty, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReportService.Penalties")
	defer span.End()

	items, err := s.penaltyRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("list penalties: %w", err)
	}
	return items, nil
}

// applyPenalty bans the accused once per (player, match) and fans out
// reporter notifications. Notification and publish failures are logged, not
// returned; the ban itself is what must not be lost.
func (s *ReportService) applyPenalty(ctx context.Context, matchID, accusedID, reason string, reporters []string) (bool, error) {
	penaltyID, err := s.ids.NewID()
	if err != nil {
		return false, fmt.Errorf("generate penalty id: %w", err)
	}

	now := s.now()
	p := penalty.Penalty{
		ID:          penaltyID,
		PlayerID:    accusedID,
		MatchID:     matchID,
		Reason:      reason,
		Duration:    s.cfg.PenaltyDuration,
		AppliedAt:   now,
		BannedUntil: now.Add(s.cfg.PenaltyDuration),
	}
	applied, err := s.penaltyRepo.Apply(ctx, p)
	if err != nil {
		return false, fmt.Errorf("apply penalty: %w", err)
	}
	if !applied {
		return false, nil
	}

	s.logger.InfoContext(ctx, "penalty applied",
		"match_id", matchID,
		"player_id", accusedID,
		"reporters", len(reporters),
		"banned_until", p.BannedUntil,
	)

	s.notifyReporters(ctx, matchID, accusedID, reporters)

	if s.publisher != nil {
		if err := s.publisher.PublishPenalty(ctx, PenaltyEvent{
			PenaltyID:   p.ID,
			PlayerID:    p.PlayerID,
			MatchID:     p.MatchID,
			Reason:      p.Reason,
			BannedUntil: p.BannedUntil,
		}); err != nil {
			s.logger.WarnContext(ctx, "publish penalty event failed", "match_id", matchID, "error", err)
		}
	}
	return true, nil
}

func (s *ReportService) notifyReporters(ctx context.Context, matchID, accusedID string, reporters []string) {
	fanout := pool.New().WithMaxGoroutines(4)
	for _, reporterID := range reporters {
		reporterID := reporterID
		fanout.Go(func() {
			notificationID, err := s.ids.NewID()
			if err != nil {
				s.logger.WarnContext(ctx, "generate notification id failed", "error", err)
				return
			}
			_, err = s.notificationRepo.Append(ctx, notification.Notification{
				ID:        notificationID,
				PlayerID:  reporterID,
				Type:      notification.TypePenaltyApplied,
				MatchID:   matchID,
				AccusedID: accusedID,
				Message:   "Your report was confirmed and a penalty was applied.",
				CreatedAt: s.now(),
			})
			if err != nil {
				s.logger.WarnContext(ctx, "append notification failed",
					"player_id", reporterID,
					"match_id", matchID,
					"error", err,
				)
			}
		})
	}
	fanout.Wait()
}
