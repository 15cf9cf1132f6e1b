package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/playarc/matchqueue/internal/domain/match"
	"github.com/playarc/matchqueue/internal/domain/player"
	"github.com/playarc/matchqueue/internal/domain/rating"
)

// ResultConfig carries the finalization thresholds.
type ResultConfig struct {
	VoteThreshold int
	Timeout       time.Duration
	KFactor       int
	SweepLimit    int
	SweepWorkers  int
}

// SubmitOutcome reports what one vote submission did.
type SubmitOutcome struct {
	Finalized bool          `json:"finalized"`
	Outcome   match.Outcome `json:"outcome,omitempty"`
}

// SweepResult summarizes one timeout sweep.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Finalized int `json:"finalized"`
}

// ResultService turns partial, possibly conflicting participant votes into
// one authoritative outcome, then applies ratings exactly once.
type ResultService struct {
	matchRepo  match.Repository
	playerRepo player.Repository
	cfg        ResultConfig
	logger     *slog.Logger
	now        func() time.Time
}

func NewResultService(matchRepo match.Repository, playerRepo player.Repository, cfg ResultConfig, logger *slog.Logger) *ResultService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SweepLimit <= 0 {
		cfg.SweepLimit = 100
	}
	if cfg.SweepWorkers <= 0 {
		cfg.SweepWorkers = 4
	}
	if cfg.KFactor <= 0 {
		cfg.KFactor = rating.DefaultKFactor
	}
	return &ResultService{
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Submit records the caller's vote and immediately attempts a threshold
// finalization.
func (s *ResultService) Submit(ctx context.Context, matchID, callerID, rawVote string) (SubmitOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResultService.Submit")
	defer span.End()

	vote, err := match.ParseVote(strings.TrimSpace(rawVote))
	if err != nil {
		return SubmitOutcome{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	m, found, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return SubmitOutcome{}, fmt.Errorf("get match: %w", err)
	}
	if !found {
		return SubmitOutcome{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}

	member, found, err := s.matchRepo.GetMember(ctx, matchID, callerID)
	if err != nil {
		return SubmitOutcome{}, fmt.Errorf("get member: %w", err)
	}
	if !found || !member.Participant() {
		return SubmitOutcome{}, fmt.Errorf("%w: only participants submit results", ErrPermissionDenied)
	}
	if !m.Status.Finalizable() {
		return SubmitOutcome{}, fmt.Errorf("%w: match is already finalized", ErrFailedPrecondition)
	}

	if err := s.matchRepo.RecordVote(ctx, matchID, callerID, vote, s.now()); err != nil {
		if errors.Is(err, match.ErrStatusClosed) {
			return SubmitOutcome{}, fmt.Errorf("%w: match is already finalized", ErrFailedPrecondition)
		}
		return SubmitOutcome{}, fmt.Errorf("record vote: %w", err)
	}

	finalized, outcome, err := s.tryFinalize(ctx, matchID, match.ReasonThreshold, false)
	if err != nil {
		return SubmitOutcome{}, err
	}
	return SubmitOutcome{Finalized: finalized, Outcome: outcome}, nil
}

// SweepTimeouts force-finalizes matches older than the timeout using
// whatever votes exist, defaulting to invalid with none. Matches finalize
// concurrently on a bounded worker pool.
func (s *ResultService) SweepTimeouts(ctx context.Context) (SweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResultService.SweepTimeouts")
	defer span.End()

	cutoff := s.now().Add(-s.cfg.Timeout)
	stale, err := s.matchRepo.ListFinalizable(ctx, cutoff, s.cfg.SweepLimit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list finalizable matches: %w", err)
	}
	if len(stale) == 0 {
		return SweepResult{}, nil
	}

	pool, err := ants.NewPool(s.cfg.SweepWorkers)
	if err != nil {
		return SweepResult{}, fmt.Errorf("create sweep pool: %w", err)
	}
	defer pool.Release()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		finalized int
	)
	for _, m := range stale {
		m := m
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			done, _, ferr := s.tryFinalize(ctx, m.ID, match.ReasonTimeout, true)
			if ferr != nil {
				s.logger.WarnContext(ctx, "timeout finalization failed", "match_id", m.ID, "error", ferr)
				return
			}
			if done {
				mu.Lock()
				finalized++
				mu.Unlock()
				s.logger.InfoContext(ctx, "match finalized by timeout", "match_id", m.ID)
			}
		}); err != nil {
			wg.Done()
			s.logger.WarnContext(ctx, "submit sweep task failed", "match_id", m.ID, "error", err)
		}
	}
	wg.Wait()

	return SweepResult{Scanned: len(stale), Finalized: finalized}, nil
}

// tryFinalize decides the outcome from current votes and races to commit
// it. The repository's finalize transaction re-checks the match is still
// open, so concurrent threshold and timeout triggers produce at most one
// winner; the loser no-ops.
func (s *ResultService) tryFinalize(ctx context.Context, matchID string, reason match.FinalizeReason, force bool) (bool, match.Outcome, error) {
	members, err := s.matchRepo.ListMembers(ctx, matchID)
	if err != nil {
		return false, "", fmt.Errorf("list members: %w", err)
	}

	counts, totalVotes := tallyVotes(members)
	if !force && totalVotes < s.cfg.VoteThreshold {
		return false, "", nil
	}
	outcome := decideOutcome(counts)

	err = s.matchRepo.Finalize(ctx, matchID, outcome, reason, s.now())
	if errors.Is(err, match.ErrAlreadyFinalized) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("finalize match: %w", err)
	}

	if err := s.applyRatings(ctx, matchID, members, outcome); err != nil {
		// The outcome is committed; rating application retries on the
		// history guard, so surface the error for the operator.
		return true, outcome, fmt.Errorf("apply ratings: %w", err)
	}
	return true, outcome, nil
}

// applyRatings updates every participant's rating, counters, and bounded
// history in one transaction. The deltas close over transaction-fresh
// ratings; the history guard inside the transaction makes re-entry a no-op.
func (s *ResultService) applyRatings(ctx context.Context, matchID string, members []match.Member, outcome match.Outcome) error {
	teams := make(map[string]match.Team)
	ids := make([]string, 0, len(members))
	for _, m := range members {
		if !m.Participant() {
			continue
		}
		teams[m.PlayerID] = m.Team
		ids = append(ids, m.PlayerID)
	}
	if len(ids) == 0 {
		return nil
	}

	kFactor := s.cfg.KFactor
	applied, err := s.playerRepo.ApplyResult(ctx, player.ResultApplication{
		MatchID:   matchID,
		PlayerIDs: ids,
		DecidedAt: s.now(),
		Deltas: func(ratings map[string]int) []player.ResultUpdate {
			participants := make([]rating.Participant, 0, len(ids))
			for _, id := range ids {
				r, ok := ratings[id]
				if !ok {
					r = player.DefaultRating
				}
				participants = append(participants, rating.Participant{
					PlayerID: id,
					Team:     teams[id],
					Rating:   r,
				})
			}
			deltas := rating.Deltas(participants, outcome, kFactor)

			updates := make([]player.ResultUpdate, 0, len(ids))
			for _, id := range ids {
				result := rating.MemberResult(teams[id], outcome)
				updates = append(updates, player.ResultUpdate{
					PlayerID:    id,
					Result:      result,
					RatingDelta: deltas[id],
					CountsGame:  result != player.ResultInvalid,
				})
			}
			return updates
		},
	})
	if err != nil {
		return err
	}
	if !applied {
		s.logger.InfoContext(ctx, "ratings already applied, skipping", "match_id", matchID)
	}
	return nil
}

// tallyVotes maps every participant vote to its implied match-level outcome.
func tallyVotes(members []match.Member) (map[match.Outcome]int, int) {
	counts := map[match.Outcome]int{
		match.OutcomeFirstWin:  0,
		match.OutcomeSecondWin: 0,
		match.OutcomeInvalid:   0,
	}
	total := 0
	for _, m := range members {
		if !m.Participant() || m.Vote == nil {
			continue
		}
		var implied match.Outcome
		switch *m.Vote {
		case match.VoteInvalid:
			implied = match.OutcomeInvalid
		case match.VoteWin:
			if m.Team == match.TeamFirst {
				implied = match.OutcomeFirstWin
			} else {
				implied = match.OutcomeSecondWin
			}
		case match.VoteLoss:
			if m.Team == match.TeamFirst {
				implied = match.OutcomeSecondWin
			} else {
				implied = match.OutcomeFirstWin
			}
		default:
			continue
		}
		counts[implied]++
		total++
	}
	return counts, total
}

// decideOutcome picks the strict majority; any tie among the leaders
// (including zero votes) resolves to invalid.
func decideOutcome(counts map[match.Outcome]int) match.Outcome {
	best := match.OutcomeInvalid
	bestCount := -1
	tied := false
	for _, outcome := range []match.Outcome{match.OutcomeFirstWin, match.OutcomeSecondWin, match.OutcomeInvalid} {
		c := counts[outcome]
		switch {
		case c > bestCount:
			best, bestCount, tied = outcome, c, false
		case c == bestCount:
			tied = true
		}
	}
	if tied {
		return match.OutcomeInvalid
	}
	return best
}
