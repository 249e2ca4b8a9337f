package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/standings"
)

type StandingsRepository struct {
	mu     sync.RWMutex
	totals []standings.UserTotal
	picks  *PickRepository
}

func NewStandingsRepository(picks *PickRepository) *StandingsRepository {
	return &StandingsRepository{picks: picks}
}

var _ standings.Repository = (*StandingsRepository)(nil)

func (r *StandingsRepository) RecomputeAll(_ context.Context) error {
	byUser := make(map[string]*standings.UserTotal)
	for _, item := range r.picks.listResolved() {
		total, ok := byUser[item.UserID]
		if !ok {
			total = &standings.UserTotal{UserID: item.UserID}
			byUser[item.UserID] = total
		}
		total.ResolvedPicks++
		if item.PointsAwarded != nil {
			total.Points += *item.PointsAwarded
		}
		if item.IsCorrect != nil && *item.IsCorrect {
			total.CorrectPicks++
		}
		if item.MapScoreCorrect != nil && *item.MapScoreCorrect {
			total.MapBonuses++
		}
	}

	now := time.Now().UTC()
	totals := make([]standings.UserTotal, 0, len(byUser))
	for _, total := range byUser {
		total.UpdatedAt = now
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Points != totals[j].Points {
			return totals[i].Points > totals[j].Points
		}
		if totals[i].CorrectPicks != totals[j].CorrectPicks {
			return totals[i].CorrectPicks > totals[j].CorrectPicks
		}
		return totals[i].UserID < totals[j].UserID
	})

	r.mu.Lock()
	r.totals = totals
	r.mu.Unlock()
	return nil
}

func (r *StandingsRepository) List(_ context.Context, limit int) ([]standings.UserTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]standings.UserTotal, 0, len(r.totals))
	out = append(out, r.totals...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
