package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/n1ckdm/pickems-api/internal/domain/match"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
	"github.com/n1ckdm/pickems-api/internal/usecase"
)

type Handler struct {
	matchService       *usecase.MatchService
	pickService        *usecase.PickService
	leaderboardService *usecase.LeaderboardService
	syncService        *usecase.SyncService
	settlementService  *usecase.SettlementService
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	matchService *usecase.MatchService,
	pickService *usecase.PickService,
	leaderboardService *usecase.LeaderboardService,
	syncService *usecase.SyncService,
	settlementService *usecase.SettlementService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		matchService:       matchService,
		pickService:        pickService,
		leaderboardService: leaderboardService,
		syncService:        syncService,
		settlementService:  settlementService,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatches")
	defer span.End()

	window := strings.TrimSpace(r.URL.Query().Get("window"))
	limit, err := queryIntParam(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matches, err := h.matchService.List(ctx, window, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list matches failed", "window", window, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]matchDTO, 0, len(matches))
	for _, m := range matches {
		items = append(items, matchToDTO(m))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSyncStatus")
	defer span.End()

	status, err := h.matchService.SyncStatus(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "get sync status failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	dto := syncStatusDTO{
		PendingSettlement: status.PendingSettlement,
		LastSyncedCount:   status.LastSyncedCount,
		LastSyncedBy:      status.LastSyncedBy,
	}
	if status.LastSyncedAt != nil {
		formatted := status.LastSyncedAt.UTC().Format(time.RFC3339)
		dto.LastSyncedAt = &formatted
	}

	writeSuccess(ctx, w, http.StatusOK, dto)
}

func (h *Handler) ListLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLeaderboard")
	defer span.End()

	limit, err := queryIntParam(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entries, err := h.leaderboardService.List(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list leaderboard failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]leaderboardEntryDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, leaderboardEntryDTO{
			Rank:          entry.Rank,
			UserID:        entry.UserID,
			Points:        entry.Points,
			CorrectPicks:  entry.CorrectPicks,
			MapBonuses:    entry.MapBonuses,
			ResolvedPicks: entry.ResolvedPicks,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) decodeRequest(r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) validateRequest(ctx context.Context, req any) error {
	if err := h.validator.StructCtx(ctx, req); err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func queryIntParam(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, name)
	}
	return value, nil
}

type teamDTO struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
}

type matchDTO struct {
	ID            int64   `json:"id"`
	ExternalID    int64   `json:"externalId"`
	Team1         teamDTO `json:"team1"`
	Team2         teamDTO `json:"team2"`
	StartTime     string  `json:"startTime"`
	DivisionID    int64   `json:"divisionId"`
	State         string  `json:"state"`
	WinnerID      *int64  `json:"winnerId,omitempty"`
	Team1MapScore *int    `json:"team1MapScore,omitempty"`
	Team2MapScore *int    `json:"team2MapScore,omitempty"`
	BestOf        int     `json:"bestOf"`
	Round         string  `json:"round,omitempty"`
	StreamLink    string  `json:"streamLink,omitempty"`
	SyncedAt      string  `json:"syncedAt"`
}

type syncStatusDTO struct {
	PendingSettlement int     `json:"pendingSettlement"`
	LastSyncedAt      *string `json:"lastSyncedAt,omitempty"`
	LastSyncedCount   *int    `json:"lastSyncedCount,omitempty"`
	LastSyncedBy      *string `json:"lastSyncedBy,omitempty"`
}

type leaderboardEntryDTO struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"userId"`
	Points        int    `json:"points"`
	CorrectPicks  int    `json:"correctPicks"`
	MapBonuses    int    `json:"mapBonuses"`
	ResolvedPicks int    `json:"resolvedPicks"`
}

func matchToDTO(m match.Match) matchDTO {
	return matchDTO{
		ID:            m.ID,
		ExternalID:    m.ExternalID,
		Team1:         teamDTO{ID: m.Team1.ID, Name: m.Team1.Name, LogoURL: m.Team1.LogoURL},
		Team2:         teamDTO{ID: m.Team2.ID, Name: m.Team2.Name, LogoURL: m.Team2.LogoURL},
		StartTime:     m.StartTime.UTC().Format(time.RFC3339),
		DivisionID:    m.DivisionID,
		State:         string(m.State),
		WinnerID:      m.WinnerID,
		Team1MapScore: m.Team1MapScore,
		Team2MapScore: m.Team2MapScore,
		BestOf:        m.BestOf,
		Round:         m.Round,
		StreamLink:    m.StreamLink,
		SyncedAt:      m.SyncedAt.UTC().Format(time.RFC3339),
	}
}
