package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playarc/matchqueue/internal/domain/match"
)

// LobbyService handles the pre-game handshake: lobby code exchange, seating,
// and the stuck flag. Every operation requires the caller to be a
// participant of the match.
type LobbyService struct {
	matchRepo match.Repository
	logger    *slog.Logger
	now       func() time.Time
}

func NewLobbyService(matchRepo match.Repository, logger *slog.Logger) *LobbyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LobbyService{
		matchRepo: matchRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// SetLobbyCode stores the externally-generated 8-digit session code. When
// every participant is already seated the match advances to in_game as part
// of the same transaction.
func (s *LobbyService) SetLobbyCode(ctx context.Context, matchID, callerID, code string) (match.Status, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LobbyService.SetLobbyCode")
	defer span.End()

	if err := match.ValidateLobbyCode(strings.TrimSpace(code)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.requireParticipant(ctx, matchID, callerID); err != nil {
		return "", err
	}

	status, err := s.matchRepo.SetLobbyCode(ctx, matchID, strings.TrimSpace(code), s.now())
	if errors.Is(err, match.ErrStatusClosed) {
		return "", fmt.Errorf("%w: match no longer accepts a lobby code", ErrFailedPrecondition)
	}
	if err != nil {
		return "", fmt.Errorf("set lobby code: %w", err)
	}

	s.logger.InfoContext(ctx, "lobby code set", "match_id", matchID, "player_id", callerID, "status", string(status))
	return status, nil
}

// SetSeated marks the caller present in the external game lobby. Idempotent.
// The repository evaluates "all seated" with the caller's write already
// applied, closing the read-your-own-write race.
func (s *LobbyService) SetSeated(ctx context.Context, matchID, callerID string) (match.Status, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LobbyService.SetSeated")
	defer span.End()

	if err := s.requireParticipant(ctx, matchID, callerID); err != nil {
		return "", err
	}

	status, err := s.matchRepo.SetSeated(ctx, matchID, callerID, s.now())
	if errors.Is(err, match.ErrStatusClosed) {
		return "", fmt.Errorf("%w: match no longer accepts seating", ErrFailedPrecondition)
	}
	if err != nil {
		return "", fmt.Errorf("set seated: %w", err)
	}
	return status, nil
}

// UnsetSeated clears the caller's seated timestamp; used when a player steps
// away momentarily.
func (s *LobbyService) UnsetSeated(ctx context.Context, matchID, callerID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LobbyService.UnsetSeated")
	defer span.End()

	if err := s.requireParticipant(ctx, matchID, callerID); err != nil {
		return err
	}

	err := s.matchRepo.UnsetSeated(ctx, matchID, callerID, s.now())
	if errors.Is(err, match.ErrStatusClosed) {
		return fmt.Errorf("%w: match no longer accepts seating", ErrFailedPrecondition)
	}
	if err != nil {
		return fmt.Errorf("unset seated: %w", err)
	}
	return nil
}

// SetStuck flags the caller as unable to enter the external game lobby.
// Visibility only; teammates decide what to do.
func (s *LobbyService) SetStuck(ctx context.Context, matchID, callerID string, stuck bool) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LobbyService.SetStuck")
	defer span.End()

	if err := s.requireParticipant(ctx, matchID, callerID); err != nil {
		return err
	}

	err := s.matchRepo.SetStuck(ctx, matchID, callerID, stuck, s.now())
	if errors.Is(err, match.ErrStatusClosed) {
		return fmt.Errorf("%w: match is already closed", ErrFailedPrecondition)
	}
	if err != nil {
		return fmt.Errorf("set stuck flag: %w", err)
	}
	return nil
}

// MatchView is the lobby read model.
type MatchView struct {
	Match   match.Match
	Members []match.Member
}

// GetMatch returns the match with its members; members only, so the lobby UI
// of outsiders gets a permission error rather than a roster.
func (s *LobbyService) GetMatch(ctx context.Context, matchID, callerID string) (MatchView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LobbyService.GetMatch")
	defer span.End()

	m, found, err := s.matchRepo.GetByID(ctx, strings.TrimSpace(matchID))
	if err != nil {
		return MatchView{}, fmt.Errorf("get match: %w", err)
	}
	if !found {
		return MatchView{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}

	if _, found, err = s.matchRepo.GetMember(ctx, matchID, callerID); err != nil {
		return MatchView{}, fmt.Errorf("get member: %w", err)
	} else if !found {
		return MatchView{}, fmt.Errorf("%w: caller is not a member of this match", ErrPermissionDenied)
	}

	members, err := s.matchRepo.ListMembers(ctx, matchID)
	if err != nil {
		return MatchView{}, fmt.Errorf("list members: %w", err)
	}
	return MatchView{Match: m, Members: members}, nil
}

func (s *LobbyService) requireParticipant(ctx context.Context, matchID, callerID string) error {
	if strings.TrimSpace(matchID) == "" || strings.TrimSpace(callerID) == "" {
		return fmt.Errorf("%w: match id and caller id are required", ErrInvalidInput)
	}

	_, found, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return fmt.Errorf("get match: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}

	member, found, err := s.matchRepo.GetMember(ctx, matchID, callerID)
	if err != nil {
		return fmt.Errorf("get member: %w", err)
	}
	if !found || !member.Participant() {
		return fmt.Errorf("%w: caller is not a participant of this match", ErrPermissionDenied)
	}
	return nil
}
