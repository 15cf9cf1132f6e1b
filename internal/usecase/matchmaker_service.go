package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/playarc/matchqueue/internal/domain/match"
	"github.com/playarc/matchqueue/internal/domain/matchmaking"
	"github.com/playarc/matchqueue/internal/domain/player"
	idgen "github.com/playarc/matchqueue/internal/platform/id"
)

// MatchmakerConfig carries the admission thresholds.
type MatchmakerConfig struct {
	MinQueueSize   int
	MaxWait        time.Duration
	CandidateLimit int
}

// MatchmakerResult summarizes one pass.
type MatchmakerResult struct {
	Ran        bool     `json:"ran"`
	Candidates int      `json:"candidates"`
	Created    int      `json:"created"`
	MatchIDs   []string `json:"matchIds,omitempty"`
}

// MatchmakerService forms matches from the waiting queue in batches. Passes
// may overlap (scheduled plus manual); correctness rests on the repository's
// transactional re-validation, never on what this service read beforehand.
type MatchmakerService struct {
	playerRepo player.Repository
	matchRepo  match.Repository
	cfg        MatchmakerConfig
	ids        idgen.Generator
	logger     *slog.Logger
	now        func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewMatchmakerService(
	playerRepo player.Repository,
	matchRepo match.Repository,
	cfg MatchmakerConfig,
	ids idgen.Generator,
	logger *slog.Logger,
) *MatchmakerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchmakerService{
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		cfg:        cfg,
		ids:        ids,
		logger:     logger,
		now:        time.Now,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RunScheduledPass executes one full pass: admission policy, pool ordering
// with the oldest ten protected, then per-group transactional commits.
func (s *MatchmakerService) RunScheduledPass(ctx context.Context) (MatchmakerResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchmakerService.RunScheduledPass")
	defer span.End()

	candidates, err := s.loadCandidates(ctx)
	if err != nil {
		return MatchmakerResult{}, err
	}
	if !matchmaking.ShouldRun(candidates, s.cfg.MinQueueSize, s.cfg.MaxWait, s.now()) {
		return MatchmakerResult{Candidates: len(candidates)}, nil
	}

	s.rngMu.Lock()
	pool := matchmaking.OrderPool(candidates, s.rng)
	s.rngMu.Unlock()

	return s.commitGroups(ctx, pool, len(candidates))
}

// RunManualPass is the administrative trigger. It skips the protect/shuffle
// step and matches the whole candidate set in rating order.
func (s *MatchmakerService) RunManualPass(ctx context.Context) (MatchmakerResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchmakerService.RunManualPass")
	defer span.End()

	candidates, err := s.loadCandidates(ctx)
	if err != nil {
		return MatchmakerResult{}, err
	}
	if !matchmaking.ShouldRun(candidates, s.cfg.MinQueueSize, s.cfg.MaxWait, s.now()) {
		return MatchmakerResult{Candidates: len(candidates)}, nil
	}

	return s.commitGroups(ctx, matchmaking.OrderByRating(candidates), len(candidates))
}

func (s *MatchmakerService) loadCandidates(ctx context.Context) ([]matchmaking.Candidate, error) {
	waiting, err := s.playerRepo.ListWaiting(ctx, s.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list waiting players: %w", err)
	}

	candidates := make([]matchmaking.Candidate, 0, len(waiting))
	for _, p := range waiting {
		// A waiting row without a join timestamp would look infinitely old
		// and force the max-wait admission on its own. Enqueue always stamps
		// the time, so such a row is corrupt; skip it rather than let it
		// drive the pass.
		if p.QueueJoinedAt == nil {
			s.logger.WarnContext(ctx, "waiting player without join time skipped", "player_id", p.ID)
			continue
		}
		candidates = append(candidates, matchmaking.Candidate{
			PlayerID: p.ID,
			JoinedAt: *p.QueueJoinedAt,
			Rating:   p.Rating,
		})
	}
	return candidates, nil
}

// commitGroups attempts one transactional commit per group of ten. A failed
// re-validation aborts that commit without side effects and stops the whole
// pass: the conflict means some overlapping run or cancellation moved the
// queue underneath us, and a conservative bail-out beats an inconsistent
// partial pass. The untouched players stay waiting for the next cycle.
func (s *MatchmakerService) commitGroups(ctx context.Context, pool []matchmaking.Candidate, candidateCount int) (MatchmakerResult, error) {
	result := MatchmakerResult{Ran: true, Candidates: candidateCount}

	for _, group := range matchmaking.Groups(pool) {
		assignments := matchmaking.AssignTeams(group)

		matchID, err := s.ids.NewID()
		if err != nil {
			return result, fmt.Errorf("generate match id: %w", err)
		}

		members := make([]match.NewMember, 0, len(assignments))
		for _, a := range assignments {
			members = append(members, match.NewMember{
				PlayerID: a.PlayerID,
				Role:     match.RoleParticipant,
				Team:     a.Team,
				SeatNo:   a.SeatNo,
			})
		}

		created, err := s.matchRepo.Create(ctx, matchID, s.flipFirstTeam(), members, s.now())
		if errors.Is(err, match.ErrCandidatesChanged) {
			s.logger.InfoContext(ctx, "matchmaking group skipped, queue changed underneath", "match_id", matchID)
			break
		}
		if err != nil {
			return result, fmt.Errorf("commit match group: %w", err)
		}

		result.Created++
		result.MatchIDs = append(result.MatchIDs, created.ID)
		s.logger.InfoContext(ctx, "match created", "match_id", created.ID, "first_team", string(created.FirstTeam))
	}

	if result.Created == 0 {
		s.logger.InfoContext(ctx, "matchmaking pass created no matches", "candidates", candidateCount)
	}
	return result, nil
}

func (s *MatchmakerService) flipFirstTeam() match.Team {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	if s.rng.Intn(2) == 0 {
		return match.TeamFirst
	}
	return match.TeamSecond
}
