package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
	"github.com/n1ckdm/pickems-api/internal/domain/synclog"
	"github.com/n1ckdm/pickems-api/internal/platform/cache"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
)

const defaultMatchListLimit = 100

type SyncStatus struct {
	PendingSettlement int
	LastSyncedAt      *time.Time
	LastSyncedCount   *int
	LastSyncedBy      *string
}

type MatchService struct {
	matchRepo   match.Repository
	syncLogRepo synclog.Repository
	cache       *cache.Store
	logger      *logging.Logger
	now         func() time.Time
}

func NewMatchService(
	matchRepo match.Repository,
	syncLogRepo synclog.Repository,
	cacheStore *cache.Store,
	logger *logging.Logger,
) *MatchService {
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchService{
		matchRepo:   matchRepo,
		syncLogRepo: syncLogRepo,
		cache:       cacheStore,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns matches filtered by window: "upcoming" for scheduled matches
// from now onward, "finished" for completed ones, empty for everything.
func (s *MatchService) List(ctx context.Context, window string, limit int) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.List")
	defer span.End()

	window = strings.ToLower(strings.TrimSpace(window))
	switch window {
	case "", "upcoming", "finished":
	default:
		return nil, fmt.Errorf("%w: unknown match window %q", ErrInvalidInput, window)
	}
	if limit <= 0 || limit > defaultMatchListLimit {
		limit = defaultMatchListLimit
	}

	load := func(ctx context.Context) (any, error) {
		filter := match.ListFilter{Limit: limit}
		switch window {
		case "upcoming":
			from := s.now().UTC()
			filter.StartedAfter = &from
			filter.States = []match.State{match.StateScheduled}
		case "finished":
			filter.States = []match.State{match.StateFinished, match.StateSettled}
		}

		items, err := s.matchRepo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list matches window=%s: %w", window, err)
		}
		return items, nil
	}

	if s.cache == nil {
		out, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return out.([]match.Match), nil
	}

	key := "matches:" + window + ":" + strconv.Itoa(limit)
	out, err := s.cache.GetOrLoad(ctx, key, load)
	if err != nil {
		return nil, err
	}

	items, ok := out.([]match.Match)
	if !ok {
		return nil, fmt.Errorf("unexpected cached match list type %T", out)
	}
	return items, nil
}

// InvalidateListCache drops cached match listings after a sync run.
func (s *MatchService) InvalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(ctx, "matches:")
}

func (s *MatchService) SyncStatus(ctx context.Context) (SyncStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.SyncStatus")
	defer span.End()

	pending, err := s.matchRepo.CountByState(ctx, match.StateFinished)
	if err != nil {
		return SyncStatus{}, fmt.Errorf("count matches pending settlement: %w", err)
	}

	status := SyncStatus{PendingSettlement: pending}
	last, found, err := s.syncLogRepo.Latest(ctx)
	if err != nil {
		return SyncStatus{}, fmt.Errorf("load latest sync log: %w", err)
	}
	if found {
		syncedAt := last.CreatedAt
		count := last.MatchesSynced
		status.LastSyncedAt = &syncedAt
		status.LastSyncedCount = &count
		status.LastSyncedBy = last.SyncedBy
	}

	return status, nil
}
