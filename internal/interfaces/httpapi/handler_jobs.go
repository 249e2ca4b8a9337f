package httpapi

import (
	"net/http"
)

type settleRequest struct {
	MatchIDs []int64 `json:"matchIds" validate:"omitempty,dive,gt=0"`
}

type syncResultDTO struct {
	SyncedMatches   int `json:"syncedMatches"`
	FinishedMatches int `json:"finishedMatches"`
	SettledPicks    int `json:"settledPicks"`
}

type settlementResultDTO struct {
	ProcessedMatches int `json:"processedMatches"`
	ProcessedPicks   int `json:"processedPicks"`
}

func (h *Handler) RunSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSyncJob")
	defer span.End()

	triggeredBy := "cron"
	if principal, ok := principalFromContext(ctx); ok {
		triggeredBy = principal.UserID
	}

	result, err := h.syncService.Run(ctx, triggeredBy)
	if err != nil {
		h.logger.ErrorContext(ctx, "sync job failed", "triggered_by", triggeredBy, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.matchService.InvalidateListCache(ctx)

	writeSuccess(ctx, w, http.StatusOK, syncResultDTO{
		SyncedMatches:   result.SyncedMatches,
		FinishedMatches: result.FinishedMatches,
		SettledPicks:    result.SettledPicks,
	})
}

func (h *Handler) RunSettleJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSettleJob")
	defer span.End()

	// The body is optional: an empty request sweeps every finished match.
	var req settleRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := h.decodeRequest(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.settlementService.Settle(ctx, req.MatchIDs)
	if err != nil {
		h.logger.ErrorContext(ctx, "settle job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	h.matchService.InvalidateListCache(ctx)

	writeSuccess(ctx, w, http.StatusOK, settlementResultDTO{
		ProcessedMatches: result.ProcessedMatches,
		ProcessedPicks:   result.ProcessedPicks,
	})
}
