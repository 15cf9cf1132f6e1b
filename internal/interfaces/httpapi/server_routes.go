package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/queue/count", handler.GetQueueCount)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/queue/start", RequireAuth(verifier, http.HandlerFunc(handler.StartQueue)))
	mux.Handle("POST /v1/queue/cancel", RequireAuth(verifier, http.HandlerFunc(handler.CancelQueue)))
	mux.Handle("GET /v1/queue/me", RequireAuth(verifier, http.HandlerFunc(handler.GetMyQueueState)))

	mux.Handle("GET /v1/matches/{matchID}", RequireAuth(verifier, http.HandlerFunc(handler.GetMatch)))
	mux.Handle("POST /v1/matches/{matchID}/lobby-code", RequireAuth(verifier, http.HandlerFunc(handler.SetLobbyCode)))
	mux.Handle("POST /v1/matches/{matchID}/seat", RequireAuth(verifier, http.HandlerFunc(handler.TakeSeat)))
	mux.Handle("DELETE /v1/matches/{matchID}/seat", RequireAuth(verifier, http.HandlerFunc(handler.LeaveSeat)))
	mux.Handle("POST /v1/matches/{matchID}/stuck", RequireAuth(verifier, http.HandlerFunc(handler.MarkStuck)))
	mux.Handle("DELETE /v1/matches/{matchID}/stuck", RequireAuth(verifier, http.HandlerFunc(handler.ClearStuck)))
	mux.Handle("POST /v1/matches/{matchID}/result", RequireAuth(verifier, http.HandlerFunc(handler.SubmitResult)))
	mux.Handle("POST /v1/matches/{matchID}/reports", RequireAuth(verifier, http.HandlerFunc(handler.CreateReport)))

	mux.Handle("GET /v1/penalties/me", RequireAuth(verifier, http.HandlerFunc(handler.ListMyPenalties)))
	mux.Handle("GET /v1/notifications", RequireAuth(verifier, http.HandlerFunc(handler.ListMyNotifications)))
	mux.Handle("POST /v1/notifications/{notificationID}/read", RequireAuth(verifier, http.HandlerFunc(handler.MarkNotificationRead)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/run-matchmaking", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunMatchmakingJob)))
	mux.Handle("POST /v1/internal/jobs/finalize-timeouts", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunFinalizeTimeoutsJob)))
	mux.Handle("POST /v1/internal/jobs/reset-queue", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunResetQueueJob)))
}
