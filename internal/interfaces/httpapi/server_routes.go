package httpapi

import (
	"net/http"

	"github.com/n1ckdm/pickems-api/internal/platform/logging"
	"github.com/n1ckdm/pickems-api/internal/platform/ratelimit"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches", handler.ListMatches)
	mux.HandleFunc("GET /v1/matches/sync-status", handler.GetSyncStatus)
	mux.HandleFunc("GET /v1/leaderboard", handler.ListLeaderboard)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/picks", RequireAuth(verifier, http.HandlerFunc(handler.SubmitPick)))
	mux.Handle("GET /v1/picks/me", RequireAuth(verifier, http.HandlerFunc(handler.ListMyPicks)))
	mux.Handle("DELETE /v1/picks/me", RequireAuth(verifier, http.HandlerFunc(handler.DeleteMyPicks)))
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier, limiter *ratelimit.Limiter, logger *logging.Logger) {
	mux.Handle("POST /v1/admin/picks/{pickID}/adjust", RequireAuth(verifier, RequireAdmin(http.HandlerFunc(handler.AdjustPick))))
	mux.Handle("POST /v1/admin/sync", RequireAuth(verifier, RequireAdmin(RateLimit(limiter, logger, http.HandlerFunc(handler.RunSyncJob)))))
	mux.Handle("POST /v1/admin/settle", RequireAuth(verifier, RequireAdmin(RateLimit(limiter, logger, http.HandlerFunc(handler.RunSettleJob)))))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, cronSecret string, limiter *ratelimit.Limiter, logger *logging.Logger) {
	mux.Handle("POST /v1/internal/jobs/sync", RequireCronSecret(cronSecret, RateLimit(limiter, logger, http.HandlerFunc(handler.RunSyncJob))))
	mux.Handle("POST /v1/internal/jobs/settle", RequireCronSecret(cronSecret, RateLimit(limiter, logger, http.HandlerFunc(handler.RunSettleJob))))
}
