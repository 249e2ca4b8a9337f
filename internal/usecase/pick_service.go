package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
	"github.com/n1ckdm/pickems-api/internal/domain/pick"
	"github.com/n1ckdm/pickems-api/internal/domain/standings"
	"github.com/n1ckdm/pickems-api/internal/platform/id"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
)

const maxAdjustmentReasonLength = 500

type PickConfig struct {
	LockLead       time.Duration
	BasePoints     int
	MapBonusPoints int
}

type SubmitPickInput struct {
	UserID             string
	MatchID            int64
	PredictedWinnerID  int64
	PredictedTeam1Maps *int
	PredictedTeam2Maps *int
}

type AdjustPickInput struct {
	PickPublicID string
	IsCorrect    bool
	Reason       string
	AdjustedBy   string
}

type PickService struct {
	matchRepo     match.Repository
	pickRepo      pick.Repository
	standingsRepo standings.Repository
	idGen         id.Generator
	cfg           PickConfig
	logger        *logging.Logger
	now           func() time.Time
}

func NewPickService(
	matchRepo match.Repository,
	pickRepo pick.Repository,
	standingsRepo standings.Repository,
	idGen id.Generator,
	cfg PickConfig,
	logger *logging.Logger,
) *PickService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.LockLead <= 0 {
		cfg.LockLead = 2 * time.Hour
	}
	if cfg.BasePoints <= 0 {
		cfg.BasePoints = 2
	}
	if cfg.MapBonusPoints < 0 {
		cfg.MapBonusPoints = 0
	}

	return &PickService{
		matchRepo:     matchRepo,
		pickRepo:      pickRepo,
		standingsRepo: standingsRepo,
		idGen:         idGen,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// Submit creates or replaces the caller's pick for a match. Picks lock a
// fixed lead time before the scheduled start.
func (s *PickService) Submit(ctx context.Context, input SubmitPickInput) (pick.Pick, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.Submit")
	defer span.End()

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return pick.Pick{}, fmt.Errorf("%w: user id is required", ErrUnauthorized)
	}
	if input.MatchID <= 0 {
		return pick.Pick{}, fmt.Errorf("%w: match id must be greater than zero", ErrInvalidInput)
	}

	row, found, err := s.matchRepo.GetByID(ctx, input.MatchID)
	if err != nil {
		return pick.Pick{}, fmt.Errorf("get match id=%d: %w", input.MatchID, err)
	}
	if !found {
		return pick.Pick{}, fmt.Errorf("%w: match id=%d", ErrNotFound, input.MatchID)
	}
	if row.State != match.StateScheduled {
		return pick.Pick{}, fmt.Errorf("%w: match has already started", ErrPicksLocked)
	}
	if !s.now().Before(row.StartTime.Add(-s.cfg.LockLead)) {
		return pick.Pick{}, fmt.Errorf("%w: picks close %s before start", ErrPicksLocked, s.cfg.LockLead)
	}

	if input.PredictedWinnerID != row.Team1.ID && input.PredictedWinnerID != row.Team2.ID {
		return pick.Pick{}, fmt.Errorf("%w: predicted winner is not playing in this match", ErrInvalidInput)
	}
	if err := validateMapPrediction(row, input); err != nil {
		return pick.Pick{}, err
	}

	publicID, err := s.idGen.NewID()
	if err != nil {
		return pick.Pick{}, fmt.Errorf("generate pick public id: %w", err)
	}

	saved, err := s.pickRepo.Upsert(ctx, pick.Pick{
		PublicID:           publicID,
		UserID:             userID,
		MatchID:            input.MatchID,
		PredictedWinnerID:  input.PredictedWinnerID,
		PredictedTeam1Maps: cloneIntPtr(input.PredictedTeam1Maps),
		PredictedTeam2Maps: cloneIntPtr(input.PredictedTeam2Maps),
	})
	if err != nil {
		return pick.Pick{}, fmt.Errorf("upsert pick user=%s match=%d: %w", userID, input.MatchID, err)
	}

	return saved, nil
}

func (s *PickService) ListMine(ctx context.Context, userID string) ([]pick.Pick, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.ListMine")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrUnauthorized)
	}

	items, err := s.pickRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list picks user=%s: %w", userID, err)
	}
	return items, nil
}

// DeleteUnlocked removes every pick of the caller whose match has not
// locked yet. Locked picks are never touched.
func (s *PickService) DeleteUnlocked(ctx context.Context, userID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.DeleteUnlocked")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", ErrUnauthorized)
	}

	lockCutoff := s.now().Add(s.cfg.LockLead)
	deleted, err := s.pickRepo.DeleteUnlockedByUser(ctx, userID, lockCutoff)
	if err != nil {
		return 0, fmt.Errorf("delete unlocked picks user=%s: %w", userID, err)
	}
	return deleted, nil
}

// Adjust overrides one pick's settlement outcome. The points are recomputed
// from the forced correctness plus any map bonus the pick already earned,
// and the override is audit-logged with the adjuster identity.
func (s *PickService) Adjust(ctx context.Context, input AdjustPickInput) (pick.Pick, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.Adjust")
	defer span.End()

	adjustedBy := strings.TrimSpace(input.AdjustedBy)
	if adjustedBy == "" {
		return pick.Pick{}, fmt.Errorf("%w: adjuster identity is required", ErrUnauthorized)
	}

	reason := sanitizeAdjustmentReason(input.Reason)
	if reason == "" {
		return pick.Pick{}, fmt.Errorf("%w: adjustment reason is required", ErrInvalidInput)
	}

	publicID := strings.TrimSpace(input.PickPublicID)
	row, found, err := s.pickRepo.GetByPublicID(ctx, publicID)
	if err != nil {
		return pick.Pick{}, fmt.Errorf("get pick public_id=%s: %w", publicID, err)
	}
	if !found {
		return pick.Pick{}, fmt.Errorf("%w: pick public_id=%s", ErrNotFound, publicID)
	}

	points := 0
	if input.IsCorrect {
		points += s.cfg.BasePoints
	}
	if row.MapScoreCorrect != nil && *row.MapScoreCorrect {
		points += s.cfg.MapBonusPoints
	}

	if err := s.pickRepo.Adjust(ctx, pick.Adjustment{
		PickID:        row.ID,
		IsCorrect:     input.IsCorrect,
		PointsAwarded: points,
		AdjustedBy:    adjustedBy,
		Reason:        reason,
		AdjustedAt:    s.now().UTC(),
	}); err != nil {
		return pick.Pick{}, fmt.Errorf("adjust pick id=%d: %w", row.ID, err)
	}

	adjusted, found, err := s.pickRepo.GetByPublicID(ctx, publicID)
	if err != nil || !found {
		return pick.Pick{}, fmt.Errorf("reload adjusted pick public_id=%s: %w", publicID, err)
	}

	// The override feeds the leaderboard through the same recompute path as
	// settlement so totals never drift from per-pick points.
	if err := s.standingsRepo.RecomputeAll(ctx); err != nil {
		return pick.Pick{}, fmt.Errorf("recompute standings after adjustment pick_id=%d: %w", row.ID, err)
	}

	s.logger.InfoContext(ctx, "pick result adjusted",
		"pick_id", row.ID,
		"is_correct", input.IsCorrect,
		"points_awarded", points,
		"adjusted_by", adjustedBy,
	)
	return adjusted, nil
}

func validateMapPrediction(row match.Match, input SubmitPickInput) error {
	if input.PredictedTeam1Maps == nil && input.PredictedTeam2Maps == nil {
		return nil
	}
	if input.PredictedTeam1Maps == nil || input.PredictedTeam2Maps == nil {
		return fmt.Errorf("%w: map score prediction requires both sides", ErrInvalidInput)
	}

	team1 := *input.PredictedTeam1Maps
	team2 := *input.PredictedTeam2Maps
	if team1 < 0 || team2 < 0 {
		return fmt.Errorf("%w: map scores cannot be negative", ErrInvalidInput)
	}

	mapsToWin := row.MapsToWin()
	winnerMaps, loserMaps := team1, team2
	if input.PredictedWinnerID == row.Team2.ID {
		winnerMaps, loserMaps = team2, team1
	}
	if winnerMaps != mapsToWin {
		return fmt.Errorf("%w: predicted winner must take %d maps in a best of %d", ErrInvalidInput, mapsToWin, row.BestOf)
	}
	if loserMaps >= mapsToWin {
		return fmt.Errorf("%w: predicted loser cannot reach %d maps", ErrInvalidInput, mapsToWin)
	}

	return nil
}

func sanitizeAdjustmentReason(raw string) string {
	var builder strings.Builder
	for _, r := range raw {
		if unicode.IsControl(r) {
			builder.WriteByte(' ')
			continue
		}
		builder.WriteRune(r)
	}

	cleaned := strings.Join(strings.Fields(builder.String()), " ")
	if len(cleaned) > maxAdjustmentReasonLength {
		cut := maxAdjustmentReasonLength
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = strings.TrimSpace(cleaned[:cut])
	}
	return cleaned
}
