package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/playarc/matchqueue/internal/domain/notification"
	"github.com/playarc/matchqueue/internal/usecase"
)

func (h *Handler) ListMyNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyNotifications")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: limit must be an integer", usecase.ErrInvalidInput))
			return
		}
		limit = parsed
	}

	items, err := h.notificationService.List(ctx, principal.UserID, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list notifications failed", "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	dtos := make([]notificationDTO, 0, len(items))
	for _, n := range items {
		dtos = append(dtos, notificationToDTO(n))
	}

	writeSuccess(ctx, w, http.StatusOK, dtos)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.MarkNotificationRead")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	notificationID := strings.TrimSpace(r.PathValue("notificationID"))
	if err := h.notificationService.MarkRead(ctx, principal.UserID, notificationID); err != nil {
		h.logger.WarnContext(ctx, "mark notification read failed", "player_id", principal.UserID, "notification_id", notificationID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"read": true})
}

type notificationDTO struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	MatchID   string    `json:"matchId,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func notificationToDTO(n notification.Notification) notificationDTO {
	return notificationDTO{
		ID:        n.ID,
		Type:      n.Type,
		MatchID:   n.MatchID,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
