package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/playarc/matchqueue/internal/domain/match"
	"github.com/playarc/matchqueue/internal/usecase"
)

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	view, err := h.lobbyService.GetMatch(ctx, matchID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match failed", "match_id", matchID, "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchViewToDTO(view))
}

func (h *Handler) SetLobbyCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetLobbyCode")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	var req setLobbyCodeRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	status, err := h.lobbyService.SetLobbyCode(ctx, matchID, principal.UserID, req.Code)
	if err != nil {
		h.logger.WarnContext(ctx, "set lobby code failed", "match_id", matchID, "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchStatusDTO{MatchID: matchID, Status: string(status)})
}

func (h *Handler) TakeSeat(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.TakeSeat")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	status, err := h.lobbyService.SetSeated(ctx, matchID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "set seated failed", "match_id", matchID, "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchStatusDTO{MatchID: matchID, Status: string(status)})
}

func (h *Handler) LeaveSeat(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LeaveSeat")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if err := h.lobbyService.UnsetSeated(ctx, matchID, principal.UserID); err != nil {
		h.logger.WarnContext(ctx, "unset seated failed", "match_id", matchID, "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	// Unseating never advances the lifecycle, so the pre-game status is the
	// only one it can report.
	writeSuccess(ctx, w, http.StatusOK, matchStatusDTO{MatchID: matchID, Status: string(match.StatusLobbyPending)})
}

func (h *Handler) MarkStuck(w http.ResponseWriter, r *http.Request) {
	h.setStuck(w, r, "httpapi.Handler.MarkStuck", true)
}

func (h *Handler) ClearStuck(w http.ResponseWriter, r *http.Request) {
	h.setStuck(w, r, "httpapi.Handler.ClearStuck", false)
}

func (h *Handler) setStuck(w http.ResponseWriter, r *http.Request, spanName string, stuck bool) {
	ctx, span := startSpan(r.Context(), spanName)
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if err := h.lobbyService.SetStuck(ctx, matchID, principal.UserID, stuck); err != nil {
		h.logger.WarnContext(ctx, "set stuck failed", "match_id", matchID, "player_id", principal.UserID, "stuck", stuck, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"stuck": stuck})
}

type setLobbyCodeRequest struct {
	Code string `json:"lobbyCode" validate:"required"`
}

type matchStatusDTO struct {
	MatchID string `json:"matchId"`
	Status  string `json:"status"`
}

type matchMemberDTO struct {
	PlayerID string     `json:"playerId"`
	Role     string     `json:"role"`
	Team     string     `json:"team"`
	SeatNo   int        `json:"seatNo"`
	Seated   bool       `json:"seated"`
	Stuck    bool       `json:"stuck"`
	Voted    bool       `json:"voted"`
	JoinedAt time.Time  `json:"joinedAt"`
	SeatedAt *time.Time `json:"seatedAt,omitempty"`
}

type matchDTO struct {
	ID             string           `json:"id"`
	Status         string           `json:"status"`
	FirstTeam      string           `json:"firstTeam"`
	LobbyCode      string           `json:"lobbyCode,omitempty"`
	Outcome        string           `json:"outcome,omitempty"`
	FinalizeReason string           `json:"finalizeReason,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	FinalizedAt    *time.Time       `json:"finalizedAt,omitempty"`
	Members        []matchMemberDTO `json:"members"`
}

func matchViewToDTO(view usecase.MatchView) matchDTO {
	members := make([]matchMemberDTO, 0, len(view.Members))
	for _, m := range view.Members {
		members = append(members, matchMemberDTO{
			PlayerID: m.PlayerID,
			Role:     string(m.Role),
			Team:     string(m.Team),
			SeatNo:   m.SeatNo,
			Seated:   m.SeatedAt != nil,
			Stuck:    m.Stuck,
			Voted:    m.Vote != nil,
			JoinedAt: m.JoinedAt,
			SeatedAt: m.SeatedAt,
		})
	}

	return matchDTO{
		ID:             view.Match.ID,
		Status:         string(view.Match.Status),
		FirstTeam:      string(view.Match.FirstTeam),
		LobbyCode:      view.Match.LobbyCode,
		Outcome:        string(view.Match.Outcome),
		FinalizeReason: string(view.Match.FinalizeReason),
		CreatedAt:      view.Match.CreatedAt,
		FinalizedAt:    view.Match.FinalizedAt,
		Members:        members,
	}
}
