package httpapi

import "net/http"

// Internal job endpoints mirror the scheduler's work so operators can force a
// pass out of band. They share the same services, so a manual trigger racing
// a scheduled one is as safe as two scheduled ticks racing each other.

func (h *Handler) RunMatchmakingJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunMatchmakingJob")
	defer span.End()

	result, err := h.matchmakerService.RunManualPass(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual matchmaking pass failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunFinalizeTimeoutsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunFinalizeTimeoutsJob")
	defer span.End()

	result, err := h.resultService.SweepTimeouts(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "timeout sweep failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunResetQueueJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunResetQueueJob")
	defer span.End()

	reset, err := h.queueService.ResetClosedQueue(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "queue reset failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"reset": reset})
}
