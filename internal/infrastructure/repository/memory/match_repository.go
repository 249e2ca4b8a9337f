package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
)

// MatchRepository is the dev-mode store used when no database is configured.
type MatchRepository struct {
	mu     sync.RWMutex
	items  map[int64]match.Match
	nextID int64
}

func NewMatchRepository(seed []match.Match) *MatchRepository {
	r := &MatchRepository{items: make(map[int64]match.Match), nextID: 1}
	for _, item := range seed {
		item.ID = r.nextID
		if item.SyncedAt.IsZero() {
			item.SyncedAt = time.Now().UTC()
		}
		r.items[item.ID] = item
		r.nextID++
	}
	return r
}

var _ match.Repository = (*MatchRepository)(nil)

func (r *MatchRepository) GetByID(_ context.Context, id int64) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	return item, ok, nil
}

func (r *MatchRepository) ListByExternalIDs(_ context.Context, externalIDs []int64) ([]match.Match, error) {
	wanted := make(map[int64]struct{}, len(externalIDs))
	for _, id := range externalIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0, len(wanted))
	for _, item := range r.items {
		if _, ok := wanted[item.ExternalID]; ok {
			out = append(out, item)
		}
	}
	sortMatches(out)
	return out, nil
}

func (r *MatchRepository) List(_ context.Context, filter match.ListFilter) ([]match.Match, error) {
	states := make(map[match.State]struct{}, len(filter.States))
	for _, s := range filter.States {
		states[s] = struct{}{}
	}

	r.mu.RLock()
	out := make([]match.Match, 0, len(r.items))
	for _, item := range r.items {
		if filter.StartedAfter != nil && !item.StartTime.After(*filter.StartedAfter) {
			continue
		}
		if filter.StartedBefore != nil && !item.StartTime.Before(*filter.StartedBefore) {
			continue
		}
		if len(states) > 0 {
			if _, ok := states[item.State]; !ok {
				continue
			}
		}
		out = append(out, item)
	}
	r.mu.RUnlock()

	sortMatches(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MatchRepository) ListByState(_ context.Context, state match.State) ([]match.Match, error) {
	r.mu.RLock()
	out := make([]match.Match, 0, len(r.items))
	for _, item := range r.items {
		if item.State == state {
			out = append(out, item)
		}
	}
	r.mu.RUnlock()

	sortMatches(out)
	return out, nil
}

func (r *MatchRepository) CountByState(_ context.Context, state match.State) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, item := range r.items {
		if item.State == state {
			count++
		}
	}
	return count, nil
}

func (r *MatchRepository) UpsertBatch(_ context.Context, items []match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}

		existing, ok := r.findByExternalID(item.ExternalID)
		if ok {
			item.ID = existing.ID
			if existing.State == match.StateSettled {
				item.State = existing.State
			}
			if item.WinnerID == nil {
				item.WinnerID = existing.WinnerID
			}
			if item.Team1MapScore == nil {
				item.Team1MapScore = existing.Team1MapScore
			}
			if item.Team2MapScore == nil {
				item.Team2MapScore = existing.Team2MapScore
			}
		} else {
			item.ID = r.nextID
			r.nextID++
		}
		item.SyncedAt = time.Now().UTC()
		r.items[item.ID] = item
	}
	return nil
}

func (r *MatchRepository) MarkSettled(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.State != match.StateFinished {
		return false, nil
	}

	item.State = match.StateSettled
	r.items[id] = item
	return true, nil
}

// matchStart supports the pick repository's lock checks.
func (r *MatchRepository) matchStart(id int64) (time.Time, match.State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return time.Time{}, "", false
	}
	return item.StartTime, item.State, true
}

func (r *MatchRepository) findByExternalID(externalID int64) (match.Match, bool) {
	for _, item := range r.items {
		if item.ExternalID == externalID {
			return item, true
		}
	}
	return match.Match{}, false
}

func sortMatches(items []match.Match) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].StartTime.Equal(items[j].StartTime) {
			return items[i].ID < items[j].ID
		}
		return items[i].StartTime.Before(items[j].StartTime)
	})
}
