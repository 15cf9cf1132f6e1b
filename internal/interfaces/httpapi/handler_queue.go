package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/playarc/matchqueue/internal/usecase"
)

func (h *Handler) StartQueue(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartQueue")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	if err := h.queueService.Start(ctx, principal.UserID); err != nil {
		h.logger.WarnContext(ctx, "start queue failed", "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	state, err := h.queueService.State(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "read queue state failed", "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, queueStateToDTO(state))
}

func (h *Handler) CancelQueue(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CancelQueue")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	if err := h.queueService.Cancel(ctx, principal.UserID); err != nil {
		h.logger.WarnContext(ctx, "cancel queue failed", "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	state, err := h.queueService.State(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "read queue state failed", "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, queueStateToDTO(state))
}

func (h *Handler) GetMyQueueState(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyQueueState")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	state, err := h.queueService.State(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "read queue state failed", "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, queueStateToDTO(state))
}

func (h *Handler) GetQueueCount(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetQueueCount")
	defer span.End()

	count, err := h.queueService.WaitingCount(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "count waiting failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, queueCountDTO{Waiting: count})
}

type queueStateDTO struct {
	Status         string     `json:"status"`
	JoinedAt       *time.Time `json:"joinedAt,omitempty"`
	MatchedMatchID string     `json:"matchedMatchId,omitempty"`
	BannedUntil    *time.Time `json:"bannedUntil,omitempty"`
}

type queueCountDTO struct {
	Waiting int `json:"waiting"`
}

func queueStateToDTO(state usecase.QueueState) queueStateDTO {
	return queueStateDTO{
		Status:         string(state.Status),
		JoinedAt:       state.JoinedAt,
		MatchedMatchID: state.MatchedMatchID,
		BannedUntil:    state.BannedUntil,
	}
}
