package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
	"github.com/n1ckdm/pickems-api/internal/domain/pick"
	"github.com/n1ckdm/pickems-api/internal/domain/standings"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
)

type SettlementConfig struct {
	BasePoints         int
	MapBonusPoints     int
	SettlementWorkers  int
	ResultFetchWorkers int
}

type SettlementResult struct {
	ProcessedMatches int
	ProcessedPicks   int
}

type SettlementService struct {
	provider      MatchProvider
	matchRepo     match.Repository
	pickRepo      pick.Repository
	standingsRepo standings.Repository
	cfg           SettlementConfig
	logger        *logging.Logger
}

func NewSettlementService(
	provider MatchProvider,
	matchRepo match.Repository,
	pickRepo pick.Repository,
	standingsRepo standings.Repository,
	cfg SettlementConfig,
	logger *logging.Logger,
) *SettlementService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BasePoints <= 0 {
		cfg.BasePoints = 2
	}
	if cfg.MapBonusPoints < 0 {
		cfg.MapBonusPoints = 0
	}
	if cfg.SettlementWorkers <= 0 {
		cfg.SettlementWorkers = 8
	}
	if cfg.ResultFetchWorkers <= 0 {
		cfg.ResultFetchWorkers = 4
	}

	return &SettlementService{
		provider:      provider,
		matchRepo:     matchRepo,
		pickRepo:      pickRepo,
		standingsRepo: standingsRepo,
		cfg:           cfg,
		logger:        logger,
	}
}

// Settle sweeps finished matches that have not been settled yet, resolving
// winners through the league API where the sync payload did not carry one.
// An explicit id list narrows the sweep to those matches.
func (s *SettlementService) Settle(ctx context.Context, matchIDs []int64) (SettlementResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.Settle")
	defer span.End()

	pending, err := s.loadPending(ctx, matchIDs)
	if err != nil {
		return SettlementResult{}, err
	}
	if len(pending) == 0 {
		return SettlementResult{}, nil
	}

	resolved := s.resolveWinners(ctx, pending)
	if len(resolved) == 0 {
		s.logger.InfoContext(ctx, "no settleable matches after winner resolution", "pending", len(pending))
		return SettlementResult{}, nil
	}

	return s.settleResolved(ctx, resolved)
}

// SettleFinished settles the given matches inline after a sync run. Matches
// without a resolved winner are left for the standalone sweep.
func (s *SettlementService) SettleFinished(ctx context.Context, matches []match.Match) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.SettleFinished")
	defer span.End()

	resolved := make([]match.Match, 0, len(matches))
	for _, row := range matches {
		if row.State == match.StateFinished && row.Resolved() {
			resolved = append(resolved, row)
		}
	}
	if len(resolved) == 0 {
		return 0, nil
	}

	result, err := s.settleResolved(ctx, resolved)
	if err != nil {
		return 0, err
	}
	return result.ProcessedPicks, nil
}

func (s *SettlementService) loadPending(ctx context.Context, matchIDs []int64) ([]match.Match, error) {
	if len(matchIDs) == 0 {
		rows, err := s.matchRepo.ListByState(ctx, match.StateFinished)
		if err != nil {
			return nil, fmt.Errorf("list finished matches: %w", err)
		}
		return rows, nil
	}

	rows := make([]match.Match, 0, len(matchIDs))
	for _, id := range matchIDs {
		row, found, err := s.matchRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get match id=%d: %w", id, err)
		}
		if !found {
			s.logger.WarnContext(ctx, "skip settlement for unknown match", "match_id", id)
			continue
		}
		if row.State != match.StateFinished {
			s.logger.WarnContext(ctx, "skip settlement for match not in finished state",
				"match_id", id,
				"state", string(row.State),
			)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// resolveWinners fills in the winner for matches the sync payload left
// unresolved. Fetch failures isolate to their match.
func (s *SettlementService) resolveWinners(ctx context.Context, pending []match.Match) []match.Match {
	resolved := make([]match.Match, 0, len(pending))
	unresolved := make([]match.Match, 0, len(pending))
	for _, row := range pending {
		if row.Resolved() {
			resolved = append(resolved, row)
			continue
		}
		unresolved = append(unresolved, row)
	}

	if len(unresolved) == 0 {
		return resolved
	}
	if s.provider == nil {
		s.logger.WarnContext(ctx, "league api provider is not configured, leaving matches unresolved",
			"count", len(unresolved),
		)
		return resolved
	}

	fetched := make([]*match.Match, len(unresolved))
	workers := pool.New().WithMaxGoroutines(s.cfg.ResultFetchWorkers)
	for i, row := range unresolved {
		i, row := i, row
		workers.Go(func() {
			result, err := s.provider.FetchMatchResult(ctx, row.DivisionID, row.ExternalID)
			if err != nil {
				s.logger.WarnContext(ctx, "fetch match result failed, match stays pending",
					"match_id", row.ID,
					"external_id", row.ExternalID,
					"error", err,
				)
				return
			}

			winnerID := result.WinnerTeamID
			if winnerID <= 0 {
				winnerID = resolveWinnerTeamID(result.WinningSide, row.Team1.ID, row.Team2.ID)
			}
			if winnerID != row.Team1.ID && winnerID != row.Team2.ID {
				s.logger.WarnContext(ctx, "match result has no usable winner, match stays pending",
					"match_id", row.ID,
					"external_id", row.ExternalID,
				)
				return
			}

			row.WinnerID = &winnerID
			if result.Team1MapsWon != nil {
				row.Team1MapScore = cloneIntPtr(result.Team1MapsWon)
			}
			if result.Team2MapsWon != nil {
				row.Team2MapScore = cloneIntPtr(result.Team2MapsWon)
			}
			fetched[i] = &row
		})
	}
	workers.Wait()

	hydrated := make([]match.Match, 0, len(fetched))
	for _, row := range fetched {
		if row != nil {
			hydrated = append(hydrated, *row)
		}
	}
	if len(hydrated) > 0 {
		if err := s.matchRepo.UpsertBatch(ctx, hydrated); err != nil {
			s.logger.WarnContext(ctx, "persist resolved winners failed, settling from in-memory rows",
				"count", len(hydrated),
				"error", err,
			)
		}
		resolved = append(resolved, hydrated...)
	}

	return resolved
}

func (s *SettlementService) settleResolved(ctx context.Context, matches []match.Match) (SettlementResult, error) {
	byID := make(map[int64]match.Match, len(matches))
	ids := make([]int64, 0, len(matches))
	for _, row := range matches {
		if _, seen := byID[row.ID]; seen {
			continue
		}
		byID[row.ID] = row
		ids = append(ids, row.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	picks, err := s.pickRepo.ListUnresolvedByMatchIDs(ctx, ids)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("list unresolved picks: %w", err)
	}

	var processedPicks atomic.Int32
	if len(picks) > 0 {
		workerCount := s.cfg.SettlementWorkers
		if workerCount > len(picks) {
			workerCount = len(picks)
		}
		workerPool, err := ants.NewPool(workerCount)
		if err != nil {
			return SettlementResult{}, fmt.Errorf("create settlement worker pool: %w", err)
		}
		defer workerPool.Release()

		var workers sync.WaitGroup
		for _, item := range picks {
			item := item
			workers.Add(1)
			if err := workerPool.Submit(func() {
				defer workers.Done()

				row, ok := byID[item.MatchID]
				if !ok {
					return
				}
				result := s.scorePick(row, item)
				won, err := s.pickRepo.UpdateResult(ctx, item.ID, result)
				if err != nil {
					s.logger.WarnContext(ctx, "update pick result failed",
						"pick_id", item.ID,
						"match_id", item.MatchID,
						"error", err,
					)
					return
				}
				// A lost write means another settlement run or a manual
				// adjustment got there first.
				if won {
					processedPicks.Add(1)
				}
			}); err != nil {
				workers.Done()
				return SettlementResult{}, fmt.Errorf("submit pick settlement to worker pool: %w", err)
			}
		}
		workers.Wait()
	}

	processedMatches := 0
	for _, id := range ids {
		won, err := s.matchRepo.MarkSettled(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "mark match settled failed", "match_id", id, "error", err)
			continue
		}
		if won {
			processedMatches++
		}
	}

	if err := s.standingsRepo.RecomputeAll(ctx); err != nil {
		return SettlementResult{}, fmt.Errorf("recompute user totals: %w", err)
	}

	return SettlementResult{
		ProcessedMatches: processedMatches,
		ProcessedPicks:   int(processedPicks.Load()),
	}, nil
}

// scorePick awards base points for the correct winner and the map bonus for
// an exact map-score prediction; the two are judged independently.
func (s *SettlementService) scorePick(row match.Match, item pick.Pick) pick.Result {
	points := 0
	isCorrect := row.WinnerID != nil && item.PredictedWinnerID == *row.WinnerID
	if isCorrect {
		points += s.cfg.BasePoints
	}

	var mapScoreCorrect *bool
	if item.HasMapScorePrediction() && row.Team1MapScore != nil && row.Team2MapScore != nil {
		exact := *item.PredictedTeam1Maps == *row.Team1MapScore &&
			*item.PredictedTeam2Maps == *row.Team2MapScore
		mapScoreCorrect = &exact
		if exact {
			points += s.cfg.MapBonusPoints
		}
	}

	return pick.Result{
		IsCorrect:       isCorrect,
		MapScoreCorrect: mapScoreCorrect,
		PointsAwarded:   points,
	}
}
