package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/pick"
	"github.com/n1ckdm/pickems-api/internal/usecase"
)

type submitPickRequest struct {
	MatchID            int64 `json:"matchId" validate:"required,gt=0"`
	PredictedWinnerID  int64 `json:"predictedWinnerId" validate:"required,gt=0"`
	PredictedTeam1Maps *int  `json:"predictedTeam1Maps" validate:"omitempty,gte=0"`
	PredictedTeam2Maps *int  `json:"predictedTeam2Maps" validate:"omitempty,gte=0"`
}

type adjustPickRequest struct {
	IsCorrect *bool  `json:"isCorrect" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

type pickDTO struct {
	PublicID           string  `json:"publicId"`
	MatchID            int64   `json:"matchId"`
	PredictedWinnerID  int64   `json:"predictedWinnerId"`
	PredictedTeam1Maps *int    `json:"predictedTeam1Maps,omitempty"`
	PredictedTeam2Maps *int    `json:"predictedTeam2Maps,omitempty"`
	IsCorrect          *bool   `json:"isCorrect,omitempty"`
	MapScoreCorrect    *bool   `json:"mapScoreCorrect,omitempty"`
	PointsAwarded      *int    `json:"pointsAwarded,omitempty"`
	AdjustedBy         *string `json:"adjustedBy,omitempty"`
	AdjustmentReason   *string `json:"adjustmentReason,omitempty"`
	AdjustedAt         *string `json:"adjustedAt,omitempty"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

func (h *Handler) SubmitPick(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitPick")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req submitPickRequest
	if err := h.decodeRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	submitted, err := h.pickService.Submit(ctx, usecase.SubmitPickInput{
		UserID:             principal.UserID,
		MatchID:            req.MatchID,
		PredictedWinnerID:  req.PredictedWinnerID,
		PredictedTeam1Maps: req.PredictedTeam1Maps,
		PredictedTeam2Maps: req.PredictedTeam2Maps,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit pick failed", "user_id", principal.UserID, "match_id", req.MatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, pickToDTO(submitted))
}

func (h *Handler) ListMyPicks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyPicks")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	picks, err := h.pickService.ListMine(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list picks failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]pickDTO, 0, len(picks))
	for _, p := range picks {
		items = append(items, pickToDTO(p))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) DeleteMyPicks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteMyPicks")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	deleted, err := h.pickService.DeleteUnlocked(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "delete picks failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (h *Handler) AdjustPick(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdjustPick")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	pickPublicID := strings.TrimSpace(r.PathValue("pickID"))
	if pickPublicID == "" {
		writeError(ctx, w, fmt.Errorf("%w: pick id is required", usecase.ErrInvalidInput))
		return
	}

	var req adjustPickRequest
	if err := h.decodeRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	adjusted, err := h.pickService.Adjust(ctx, usecase.AdjustPickInput{
		PickPublicID: pickPublicID,
		IsCorrect:    *req.IsCorrect,
		Reason:       req.Reason,
		AdjustedBy:   principal.UserID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "adjust pick failed", "pick_id", pickPublicID, "adjusted_by", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, pickToDTO(adjusted))
}

func pickToDTO(p pick.Pick) pickDTO {
	dto := pickDTO{
		PublicID:           p.PublicID,
		MatchID:            p.MatchID,
		PredictedWinnerID:  p.PredictedWinnerID,
		PredictedTeam1Maps: p.PredictedTeam1Maps,
		PredictedTeam2Maps: p.PredictedTeam2Maps,
		IsCorrect:          p.IsCorrect,
		MapScoreCorrect:    p.MapScoreCorrect,
		PointsAwarded:      p.PointsAwarded,
		AdjustedBy:         p.AdjustedBy,
		AdjustmentReason:   p.AdjustmentReason,
		CreatedAt:          p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.AdjustedAt != nil {
		formatted := p.AdjustedAt.UTC().Format(time.RFC3339)
		dto.AdjustedAt = &formatted
	}
	return dto
}
