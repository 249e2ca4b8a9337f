package usecase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/n1ckdm/pickems-api/internal/domain/standings"
	"github.com/n1ckdm/pickems-api/internal/platform/cache"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
)

const defaultLeaderboardLimit = 50

type LeaderboardEntry struct {
	Rank          int
	UserID        string
	Points        int
	CorrectPicks  int
	MapBonuses    int
	ResolvedPicks int
}

type LeaderboardService struct {
	standingsRepo standings.Repository
	cache         *cache.Store
	logger        *logging.Logger
}

func NewLeaderboardService(standingsRepo standings.Repository, cacheStore *cache.Store, logger *logging.Logger) *LeaderboardService {
	if logger == nil {
		logger = logging.Default()
	}

	return &LeaderboardService{
		standingsRepo: standingsRepo,
		cache:         cacheStore,
		logger:        logger,
	}
}

// List returns the ranked point totals. Ties share the points ordering the
// repository returns; ranks are dense positions, not competition ranks.
func (s *LeaderboardService) List(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.List")
	defer span.End()

	if limit <= 0 || limit > 200 {
		limit = defaultLeaderboardLimit
	}

	load := func(ctx context.Context) (any, error) {
		totals, err := s.standingsRepo.List(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("list user totals: %w", err)
		}

		out := make([]LeaderboardEntry, 0, len(totals))
		for i, row := range totals {
			out = append(out, LeaderboardEntry{
				Rank:          i + 1,
				UserID:        row.UserID,
				Points:        row.Points,
				CorrectPicks:  row.CorrectPicks,
				MapBonuses:    row.MapBonuses,
				ResolvedPicks: row.ResolvedPicks,
			})
		}
		return out, nil
	}

	if s.cache == nil {
		out, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return out.([]LeaderboardEntry), nil
	}

	out, err := s.cache.GetOrLoad(ctx, "leaderboard:"+strconv.Itoa(limit), load)
	if err != nil {
		return nil, err
	}

	entries, ok := out.([]LeaderboardEntry)
	if !ok {
		return nil, fmt.Errorf("unexpected cached leaderboard type %T", out)
	}
	return entries, nil
}
