package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
	"github.com/n1ckdm/pickems-api/internal/domain/synclog"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
)

// MatchProvider is the upstream league API surface the sync and settlement
// engines depend on.
type MatchProvider interface {
	FetchMatches(ctx context.Context, query MatchQuery) ([]ExternalMatch, error)
	FetchMatchResult(ctx context.Context, divisionID, matchExternalID int64) (ExternalMatchResult, error)
}

type MatchQuery struct {
	DivisionID int64
	Game       string
	Season     string
}

type ExternalMatch struct {
	ExternalID  int64
	Team1       ExternalTeamSide
	Team2       ExternalTeamSide
	StartTime   time.Time
	DivisionID  int64
	BestOf      int
	Round       string
	WinningSide string
	FinishedAt  *time.Time
	StreamURL   string
}

type ExternalTeamSide struct {
	TeamID  int64
	Name    string
	LogoURL string
	MapsWon *int
}

type ExternalMatchResult struct {
	MatchExternalID int64
	WinningSide     string
	WinnerTeamID    int64
	Team1MapsWon    *int
	Team2MapsWon    *int
	FinishedAt      *time.Time
}

type SyncConfig struct {
	DivisionID   int64
	Game         string
	Season       string
	BatchSize    int
	FetchTimeout time.Duration
}

type SyncResult struct {
	SyncedMatches   int
	FinishedMatches int
	SettledPicks    int
}

type SyncService struct {
	provider    MatchProvider
	matchRepo   match.Repository
	syncLogRepo synclog.Repository
	settlement  *SettlementService
	cfg         SyncConfig
	logger      *logging.Logger
}

func NewSyncService(
	provider MatchProvider,
	matchRepo match.Repository,
	syncLogRepo synclog.Repository,
	settlement *SettlementService,
	cfg SyncConfig,
	logger *logging.Logger,
) *SyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}

	return &SyncService{
		provider:    provider,
		matchRepo:   matchRepo,
		syncLogRepo: syncLogRepo,
		settlement:  settlement,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run pulls the tracked division's schedule from the league API, upserts it
// in batches and settles any match that finished since the previous run.
func (s *SyncService) Run(ctx context.Context, triggeredBy string) (SyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.Run")
	defer span.End()

	if s.provider == nil {
		return SyncResult{}, fmt.Errorf("%w: league api provider is not configured", ErrDependencyUnavailable)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	items, err := s.provider.FetchMatches(fetchCtx, MatchQuery{
		DivisionID: s.cfg.DivisionID,
		Game:       s.cfg.Game,
		Season:     s.cfg.Season,
	})
	cancel()
	if err != nil {
		// A slow upstream degrades to an empty run so the cron cadence
		// keeps going; a hard failure is surfaced to the caller.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "league api fetch timed out, recording empty sync run",
				"division_id", s.cfg.DivisionID,
				"timeout", s.cfg.FetchTimeout.String(),
			)
			if err := s.appendSyncLog(ctx, 0, triggeredBy); err != nil {
				return SyncResult{}, err
			}
			return SyncResult{}, nil
		}
		return SyncResult{}, fmt.Errorf("%w: fetch matches division_id=%d: %v", ErrDependencyUnavailable, s.cfg.DivisionID, err)
	}

	rows := mapExternalMatchesToDomain(items)
	if dropped := len(items) - len(rows); dropped > 0 {
		s.logger.WarnContext(ctx, "dropped malformed match rows from league api payload",
			"division_id", s.cfg.DivisionID,
			"dropped", dropped,
		)
	}

	result := SyncResult{}
	newlyFinishedExternalIDs := make([]int64, 0, 8)

	for start := 0; start < len(rows); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		externalIDs := make([]int64, 0, len(batch))
		for _, row := range batch {
			externalIDs = append(externalIDs, row.ExternalID)
		}

		prior, err := s.matchRepo.ListByExternalIDs(ctx, externalIDs)
		if err != nil {
			s.logger.WarnContext(ctx, "load prior match state failed, skipping batch",
				"batch_start", start,
				"batch_size", len(batch),
				"error", err,
			)
			continue
		}
		priorByExternalID := make(map[int64]match.Match, len(prior))
		for _, row := range prior {
			priorByExternalID[row.ExternalID] = row
		}

		if err := s.matchRepo.UpsertBatch(ctx, batch); err != nil {
			s.logger.WarnContext(ctx, "upsert match batch failed, skipping batch",
				"batch_start", start,
				"batch_size", len(batch),
				"error", err,
			)
			continue
		}
		result.SyncedMatches += len(batch)

		for _, row := range batch {
			if !row.Finished() {
				continue
			}
			if previous, ok := priorByExternalID[row.ExternalID]; ok && previous.Finished() {
				continue
			}
			newlyFinishedExternalIDs = append(newlyFinishedExternalIDs, row.ExternalID)
		}
	}

	result.FinishedMatches = len(newlyFinishedExternalIDs)
	if len(newlyFinishedExternalIDs) > 0 && s.settlement != nil {
		finished, err := s.matchRepo.ListByExternalIDs(ctx, newlyFinishedExternalIDs)
		if err != nil {
			s.logger.WarnContext(ctx, "load newly finished matches for settlement failed",
				"count", len(newlyFinishedExternalIDs),
				"error", err,
			)
		} else {
			settled, err := s.settlement.SettleFinished(ctx, finished)
			if err != nil {
				s.logger.WarnContext(ctx, "inline settlement of newly finished matches failed",
					"count", len(finished),
					"error", err,
				)
			}
			result.SettledPicks = settled
		}
	}

	if err := s.appendSyncLog(ctx, result.SyncedMatches, triggeredBy); err != nil {
		return SyncResult{}, err
	}

	s.logger.InfoContext(ctx, "match sync completed",
		"division_id", s.cfg.DivisionID,
		"synced", result.SyncedMatches,
		"newly_finished", result.FinishedMatches,
		"settled_picks", result.SettledPicks,
		"triggered_by", triggeredBy,
	)
	return result, nil
}

func (s *SyncService) appendSyncLog(ctx context.Context, synced int, triggeredBy string) error {
	entry := synclog.Entry{MatchesSynced: synced}
	if by := strings.TrimSpace(triggeredBy); by != "" {
		entry.SyncedBy = &by
	}
	if _, err := s.syncLogRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append sync log: %w", err)
	}
	return nil
}

func mapExternalMatchesToDomain(items []ExternalMatch) []match.Match {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	out := make([]match.Match, 0, len(items))
	for _, item := range items {
		if item.ExternalID <= 0 {
			continue
		}
		if !externalSideComplete(item.Team1) || !externalSideComplete(item.Team2) {
			continue
		}

		row := match.Match{
			ExternalID: item.ExternalID,
			Team1: match.Team{
				ID:      item.Team1.TeamID,
				Name:    strings.TrimSpace(item.Team1.Name),
				LogoURL: strings.TrimSpace(item.Team1.LogoURL),
			},
			Team2: match.Team{
				ID:      item.Team2.TeamID,
				Name:    strings.TrimSpace(item.Team2.Name),
				LogoURL: strings.TrimSpace(item.Team2.LogoURL),
			},
			StartTime:  item.StartTime.UTC(),
			DivisionID: item.DivisionID,
			State:      match.StateScheduled,
			BestOf:     normalizeBestOf(item.BestOf),
			Round:      strings.TrimSpace(item.Round),
			StreamLink: strings.TrimSpace(item.StreamURL),
			SyncedAt:   now,
		}

		if item.FinishedAt != nil {
			row.State = match.StateFinished
			row.Team1MapScore = cloneIntPtr(item.Team1.MapsWon)
			row.Team2MapScore = cloneIntPtr(item.Team2.MapsWon)
			// A finished match without a winning side stays winner-less
			// and is picked up again by the settlement sweep.
			if winnerID := resolveWinnerTeamID(item.WinningSide, row.Team1.ID, row.Team2.ID); winnerID > 0 {
				row.WinnerID = &winnerID
			}
		}

		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ExternalID < out[j].ExternalID
	})

	return out
}

func externalSideComplete(side ExternalTeamSide) bool {
	return side.TeamID > 0 && strings.TrimSpace(side.Name) != ""
}

func resolveWinnerTeamID(winningSide string, team1ID, team2ID int64) int64 {
	switch strings.ToLower(strings.TrimSpace(winningSide)) {
	case "home", "team1", "1":
		return team1ID
	case "away", "team2", "2":
		return team2ID
	default:
		return 0
	}
}

func normalizeBestOf(value int) int {
	if value <= 0 {
		return 3
	}
	if value%2 == 0 {
		return value + 1
	}
	return value
}

func cloneIntPtr(value *int) *int {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
