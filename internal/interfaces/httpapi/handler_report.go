package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/playarc/matchqueue/internal/domain/penalty"
	"github.com/playarc/matchqueue/internal/usecase"
)

func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateReport")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	var req createReportRequest
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

	outcome, err := h.reportService.Create(ctx, matchID, principal.UserID, req.AccusedID, req.Reason, req.EvidenceRef)
	if err != nil {
		h.logger.WarnContext(ctx, "create report failed", "match_id", matchID, "reporter_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, reportOutcomeToDTO(outcome))
}

func (h *Handler) ListMyPenalties(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyPenalties")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	penalties, err := h.reportService.Penalties(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "list penalties failed", "player_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]penaltyDTO, 0, len(penalties))
	for _, p := range penalties {
		items = append(items, penaltyToDTO(p))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

type createReportRequest struct {
	AccusedID   string `json:"accusedId" validate:"required"`
	Reason      string `json:"reason" validate:"omitempty,max=64"`
	EvidenceRef string `json:"evidenceRef" validate:"omitempty,max=512"`
}

type reportOutcomeDTO struct {
	ReportID       string `json:"reportId"`
	MatchID        string `json:"matchId"`
	AccusedID      string `json:"accusedId"`
	Reporters      int    `json:"reporters"`
	PenaltyApplied bool   `json:"penaltyApplied"`
}

type penaltyDTO struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"matchId"`
	Reason      string    `json:"reason"`
	AppliedAt   time.Time `json:"appliedAt"`
	BannedUntil time.Time `json:"bannedUntil"`
}

func reportOutcomeToDTO(outcome usecase.ReportOutcome) reportOutcomeDTO {
	return reportOutcomeDTO{
		ReportID:       outcome.Report.ID,
		MatchID:        outcome.Report.MatchID,
		AccusedID:      outcome.Report.AccusedID,
		Reporters:      outcome.Reporters,
		PenaltyApplied: outcome.PenaltyApplied,
	}
}

func penaltyToDTO(p penalty.Penalty) penaltyDTO {
	return penaltyDTO{
		ID:          p.ID,
		MatchID:     p.MatchID,
		Reason:      p.Reason,
		AppliedAt:   p.AppliedAt,
		BannedUntil: p.BannedUntil,
	}
}
