package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/playarc/matchqueue/internal/usecase"
)

type Handler struct {
	queueService        *usecase.QueueService
	matchmakerService   *usecase.MatchmakerService
	lobbyService        *usecase.LobbyService
	resultService       *usecase.ResultService
	reportService       *usecase.ReportService
	notificationService *usecase.NotificationService
	logger              *slog.Logger
	validator           *validator.Validate
}

func NewHandler(
	queueService *usecase.QueueService,
	matchmakerService *usecase.MatchmakerService,
	lobbyService *usecase.LobbyService,
	resultService *usecase.ResultService,
	reportService *usecase.ReportService,
	notificationService *usecase.NotificationService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		queueService:        queueService,
		matchmakerService:   matchmakerService,
		lobbyService:        lobbyService,
		resultService:       resultService,
		reportService:       reportService,
		notificationService: notificationService,
		logger:              logger,
		validator:           validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
