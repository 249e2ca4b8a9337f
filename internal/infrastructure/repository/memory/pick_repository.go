package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
	"github.com/n1ckdm/pickems-api/internal/domain/pick"
)

type PickRepository struct {
	mu      sync.RWMutex
	items   map[int64]pick.Pick
	nextID  int64
	matches *MatchRepository
}

func NewPickRepository(matches *MatchRepository) *PickRepository {
	return &PickRepository{
		items:   make(map[int64]pick.Pick),
		nextID:  1,
		matches: matches,
	}
}

var _ pick.Repository = (*PickRepository)(nil)

func (r *PickRepository) Upsert(_ context.Context, item pick.Pick) (pick.Pick, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for id, existing := range r.items {
		if existing.UserID == item.UserID && existing.MatchID == item.MatchID {
			existing.PredictedWinnerID = item.PredictedWinnerID
			existing.PredictedTeam1Maps = item.PredictedTeam1Maps
			existing.PredictedTeam2Maps = item.PredictedTeam2Maps
			existing.UpdatedAt = now
			r.items[id] = existing
			return existing, nil
		}
	}

	item.ID = r.nextID
	r.nextID++
	item.CreatedAt = now
	item.UpdatedAt = now
	r.items[item.ID] = item
	return item, nil
}

func (r *PickRepository) GetByPublicID(_ context.Context, publicID string) (pick.Pick, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.PublicID == publicID {
			return item, true, nil
		}
	}
	return pick.Pick{}, false, nil
}

func (r *PickRepository) ListByUser(_ context.Context, userID string) ([]pick.Pick, error) {
	r.mu.RLock()
	out := make([]pick.Pick, 0, 8)
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	r.mu.RUnlock()

	sortPicks(out)
	return out, nil
}

func (r *PickRepository) ListUnresolvedByMatchIDs(_ context.Context, matchIDs []int64) ([]pick.Pick, error) {
	wanted := make(map[int64]struct{}, len(matchIDs))
	for _, id := range matchIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	out := make([]pick.Pick, 0, 8)
	for _, item := range r.items {
		if item.Resolved() {
			continue
		}
		if _, ok := wanted[item.MatchID]; ok {
			out = append(out, item)
		}
	}
	r.mu.RUnlock()

	sortPicks(out)
	return out, nil
}

func (r *PickRepository) UpdateResult(_ context.Context, pickID int64, result pick.Result) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[pickID]
	if !ok || item.Resolved() {
		return false, nil
	}

	isCorrect := result.IsCorrect
	points := result.PointsAwarded
	item.IsCorrect = &isCorrect
	item.MapScoreCorrect = result.MapScoreCorrect
	item.PointsAwarded = &points
	item.UpdatedAt = time.Now().UTC()
	r.items[pickID] = item
	return true, nil
}

func (r *PickRepository) Adjust(_ context.Context, adjustment pick.Adjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[adjustment.PickID]
	if !ok {
		return fmt.Errorf("adjust pick: pick id=%d not found", adjustment.PickID)
	}

	isCorrect := adjustment.IsCorrect
	points := adjustment.PointsAwarded
	adjustedBy := adjustment.AdjustedBy
	reason := adjustment.Reason
	adjustedAt := adjustment.AdjustedAt
	if adjustedAt.IsZero() {
		adjustedAt = time.Now().UTC()
	}

	item.IsCorrect = &isCorrect
	item.PointsAwarded = &points
	item.AdjustedBy = &adjustedBy
	item.AdjustmentReason = &reason
	item.AdjustedAt = &adjustedAt
	item.UpdatedAt = time.Now().UTC()
	r.items[adjustment.PickID] = item
	return nil
}

func (r *PickRepository) DeleteUnlockedByUser(_ context.Context, userID string, lockCutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, item := range r.items {
		if item.UserID != userID || item.Resolved() {
			continue
		}
		start, state, ok := r.matches.matchStart(item.MatchID)
		if !ok || state != match.StateScheduled || !start.After(lockCutoff) {
			continue
		}
		delete(r.items, id)
		deleted++
	}
	return deleted, nil
}

// listResolved supports standings recomputation.
func (r *PickRepository) listResolved() []pick.Pick {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]pick.Pick, 0, len(r.items))
	for _, item := range r.items {
		if item.Resolved() {
			out = append(out, item)
		}
	}
	return out
}

func sortPicks(items []pick.Pick) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
}
