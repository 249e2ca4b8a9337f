package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
	"github.com/n1ckdm/pickems-api/internal/domain/pick"
	"github.com/n1ckdm/pickems-api/internal/domain/standings"
	"github.com/n1ckdm/pickems-api/internal/domain/synclog"
)

type stubProvider struct {
	fetchMatches     func(ctx context.Context, query MatchQuery) ([]ExternalMatch, error)
	fetchMatchResult func(ctx context.Context, divisionID, matchExternalID int64) (ExternalMatchResult, error)
}

var _ MatchProvider = (*stubProvider)(nil)

func (s *stubProvider) FetchMatches(ctx context.Context, query MatchQuery) ([]ExternalMatch, error) {
	if s.fetchMatches == nil {
		return nil, nil
	}
	return s.fetchMatches(ctx, query)
}

func (s *stubProvider) FetchMatchResult(ctx context.Context, divisionID, matchExternalID int64) (ExternalMatchResult, error) {
	if s.fetchMatchResult == nil {
		return ExternalMatchResult{}, fmt.Errorf("no result for match %d", matchExternalID)
	}
	return s.fetchMatchResult(ctx, divisionID, matchExternalID)
}

type stubMatchRepo struct {
	mu         sync.Mutex
	nextID     int64
	rows       map[int64]match.Match
	upsertErr  func(items []match.Match) error
	listExtErr error
}

var _ match.Repository = (*stubMatchRepo)(nil)

func newStubMatchRepo(rows ...match.Match) *stubMatchRepo {
	repo := &stubMatchRepo{rows: make(map[int64]match.Match), nextID: 1}
	for _, row := range rows {
		if row.ID == 0 {
			row.ID = repo.nextID
		}
		if row.ID >= repo.nextID {
			repo.nextID = row.ID + 1
		}
		repo.rows[row.ID] = row
	}
	return repo
}

func (r *stubMatchRepo) GetByID(_ context.Context, id int64) (match.Match, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	return row, ok, nil
}

func (r *stubMatchRepo) ListByExternalIDs(_ context.Context, externalIDs []int64) ([]match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listExtErr != nil {
		return nil, r.listExtErr
	}

	wanted := make(map[int64]struct{}, len(externalIDs))
	for _, id := range externalIDs {
		wanted[id] = struct{}{}
	}
	out := make([]match.Match, 0, len(externalIDs))
	for _, row := range r.rows {
		if _, ok := wanted[row.ExternalID]; ok {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubMatchRepo) List(_ context.Context, filter match.ListFilter) ([]match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	allowed := make(map[match.State]struct{}, len(filter.States))
	for _, state := range filter.States {
		allowed[state] = struct{}{}
	}

	out := make([]match.Match, 0, len(r.rows))
	for _, row := range r.rows {
		if len(allowed) > 0 {
			if _, ok := allowed[row.State]; !ok {
				continue
			}
		}
		if filter.StartedAfter != nil && row.StartTime.Before(*filter.StartedAfter) {
			continue
		}
		if filter.StartedBefore != nil && !row.StartTime.Before(*filter.StartedBefore) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *stubMatchRepo) ListByState(_ context.Context, state match.State) ([]match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]match.Match, 0, len(r.rows))
	for _, row := range r.rows {
		if row.State == state {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubMatchRepo) CountByState(_ context.Context, state match.State) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, row := range r.rows {
		if row.State == state {
			count++
		}
	}
	return count, nil
}

func (r *stubMatchRepo) UpsertBatch(_ context.Context, items []match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		if err := r.upsertErr(items); err != nil {
			return err
		}
	}

	for _, item := range items {
		existingID := int64(0)
		for id, row := range r.rows {
			if row.ExternalID == item.ExternalID {
				existingID = id
				break
			}
		}
		if existingID == 0 {
			existingID = r.nextID
			r.nextID++
		}
		item.ID = existingID
		r.rows[existingID] = item
	}
	return nil
}

func (r *stubMatchRepo) MarkSettled(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.State != match.StateFinished {
		return false, nil
	}
	row.State = match.StateSettled
	r.rows[id] = row
	return true, nil
}

type stubPickRepo struct {
	mu              sync.Mutex
	nextID          int64
	rows            map[int64]pick.Pick
	matchStartByID  map[int64]time.Time
	updateResultErr error
}

var _ pick.Repository = (*stubPickRepo)(nil)

func newStubPickRepo(rows ...pick.Pick) *stubPickRepo {
	repo := &stubPickRepo{
		rows:           make(map[int64]pick.Pick),
		matchStartByID: make(map[int64]time.Time),
		nextID:         1,
	}
	for _, row := range rows {
		if row.ID == 0 {
			row.ID = repo.nextID
		}
		if row.ID >= repo.nextID {
			repo.nextID = row.ID + 1
		}
		repo.rows[row.ID] = row
	}
	return repo
}

func (r *stubPickRepo) Upsert(_ context.Context, item pick.Pick) (pick.Pick, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, row := range r.rows {
		if row.UserID == item.UserID && row.MatchID == item.MatchID {
			item.ID = id
			item.PublicID = row.PublicID
			item.CreatedAt = row.CreatedAt
			item.UpdatedAt = time.Now().UTC()
			r.rows[id] = item
			return item, nil
		}
	}

	item.ID = r.nextID
	r.nextID++
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	r.rows[item.ID] = item
	return item, nil
}

func (r *stubPickRepo) GetByPublicID(_ context.Context, publicID string) (pick.Pick, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.PublicID == publicID {
			return row, true, nil
		}
	}
	return pick.Pick{}, false, nil
}

func (r *stubPickRepo) ListByUser(_ context.Context, userID string) ([]pick.Pick, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pick.Pick, 0, len(r.rows))
	for _, row := range r.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubPickRepo) ListUnresolvedByMatchIDs(_ context.Context, matchIDs []int64) ([]pick.Pick, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[int64]struct{}, len(matchIDs))
	for _, id := range matchIDs {
		wanted[id] = struct{}{}
	}
	out := make([]pick.Pick, 0, len(r.rows))
	for _, row := range r.rows {
		if row.Resolved() {
			continue
		}
		if _, ok := wanted[row.MatchID]; ok {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubPickRepo) UpdateResult(_ context.Context, pickID int64, result pick.Result) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateResultErr != nil {
		return false, r.updateResultErr
	}

	row, ok := r.rows[pickID]
	if !ok || row.Resolved() {
		return false, nil
	}
	isCorrect := result.IsCorrect
	points := result.PointsAwarded
	row.IsCorrect = &isCorrect
	row.MapScoreCorrect = result.MapScoreCorrect
	row.PointsAwarded = &points
	row.UpdatedAt = time.Now().UTC()
	r.rows[pickID] = row
	return true, nil
}

func (r *stubPickRepo) Adjust(_ context.Context, adjustment pick.Adjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[adjustment.PickID]
	if !ok {
		return fmt.Errorf("pick %d not found", adjustment.PickID)
	}
	isCorrect := adjustment.IsCorrect
	points := adjustment.PointsAwarded
	adjustedBy := adjustment.AdjustedBy
	reason := adjustment.Reason
	adjustedAt := adjustment.AdjustedAt
	row.IsCorrect = &isCorrect
	row.PointsAwarded = &points
	row.AdjustedBy = &adjustedBy
	row.AdjustmentReason = &reason
	row.AdjustedAt = &adjustedAt
	row.UpdatedAt = time.Now().UTC()
	r.rows[adjustment.PickID] = row
	return nil
}

func (r *stubPickRepo) DeleteUnlockedByUser(_ context.Context, userID string, lockCutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Lock evaluation needs the match start, which this stub does not
	// track; callers seed it via matchStartByID.
	deleted := 0
	for id, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		start, ok := r.matchStartByID[row.MatchID]
		if !ok || !start.After(lockCutoff) {
			continue
		}
		delete(r.rows, id)
		deleted++
	}
	return deleted, nil
}

type stubSyncLogRepo struct {
	mu      sync.Mutex
	entries []synclog.Entry
}

var _ synclog.Repository = (*stubSyncLogRepo)(nil)

func (r *stubSyncLogRepo) Append(_ context.Context, entry synclog.Entry) (synclog.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.entries) + 1)
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *stubSyncLogRepo) Latest(_ context.Context) (synclog.Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return synclog.Entry{}, false, nil
	}
	return r.entries[len(r.entries)-1], true, nil
}

type stubStandingsRepo struct {
	mu         sync.Mutex
	recomputes int
	totals     []standings.UserTotal
}

var _ standings.Repository = (*stubStandingsRepo)(nil)

func (r *stubStandingsRepo) RecomputeAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recomputes++
	return nil
}

func (r *stubStandingsRepo) List(_ context.Context, limit int) ([]standings.UserTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > 0 && len(r.totals) > limit {
		return r.totals[:limit], nil
	}
	return r.totals, nil
}

func (r *stubStandingsRepo) recomputeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recomputes
}
