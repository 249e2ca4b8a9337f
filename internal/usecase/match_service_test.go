package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
	"github.com/n1ckdm/pickems-api/internal/domain/standings"
	"github.com/n1ckdm/pickems-api/internal/domain/synclog"
	"github.com/n1ckdm/pickems-api/internal/platform/cache"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
)

func TestMatchList_FiltersByWindow(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	upcoming := scheduledMatch(1, now.Add(24*time.Hour))
	finished := finishedMatch(2, 102, 100, 2, 0)
	matchRepo := newStubMatchRepo(upcoming, finished)
	svc := NewMatchService(matchRepo, &stubSyncLogRepo{}, nil, logging.NewNop())

	got, err := svc.List(context.Background(), "upcoming", 0)
	if err != nil {
		t.Fatalf("list upcoming: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("upcoming matches: got=%+v want match 1", got)
	}

	got, err = svc.List(context.Background(), "finished", 0)
	if err != nil {
		t.Fatalf("list finished: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("finished matches: got=%+v want match 2", got)
	}

	if _, err := svc.List(context.Background(), "live", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown window should be invalid input, got %v", err)
	}
}

func TestMatchList_UsesCache(t *testing.T) {
	t.Parallel()

	matchRepo := newStubMatchRepo(scheduledMatch(1, time.Now().UTC().Add(24*time.Hour)))
	svc := NewMatchService(matchRepo, &stubSyncLogRepo{}, cache.NewStore(time.Minute), logging.NewNop())

	first, err := svc.List(context.Background(), "upcoming", 10)
	if err != nil {
		t.Fatalf("first list: %v", err)
	}

	// A row added behind the cache stays invisible until invalidation.
	if err := matchRepo.UpsertBatch(context.Background(), []match.Match{scheduledMatch(2, time.Now().UTC().Add(48 * time.Hour))}); err != nil {
		t.Fatalf("seed second match: %v", err)
	}

	second, err := svc.List(context.Background(), "upcoming", 10)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("cached list changed size: got=%d want=%d", len(second), len(first))
	}

	svc.InvalidateListCache(context.Background())
	third, err := svc.List(context.Background(), "upcoming", 10)
	if err != nil {
		t.Fatalf("third list: %v", err)
	}
	if len(third) != 2 {
		t.Fatalf("list after invalidation: got=%d want=2", len(third))
	}
}

func TestSyncStatus(t *testing.T) {
	t.Parallel()

	matchRepo := newStubMatchRepo(
		finishedMatch(1, 101, 100, 2, 0),
		finishedMatch(2, 102, 0, -1, -1),
	)
	syncLogRepo := &stubSyncLogRepo{}
	by := "cron"
	if _, err := syncLogRepo.Append(context.Background(), synclog.Entry{MatchesSynced: 7, SyncedBy: &by}); err != nil {
		t.Fatalf("seed sync log: %v", err)
	}

	svc := NewMatchService(matchRepo, syncLogRepo, nil, logging.NewNop())
	status, err := svc.SyncStatus(context.Background())
	if err != nil {
		t.Fatalf("sync status: %v", err)
	}
	if status.PendingSettlement != 2 {
		t.Fatalf("pending settlement: got=%d want=2", status.PendingSettlement)
	}
	if status.LastSyncedCount == nil || *status.LastSyncedCount != 7 {
		t.Fatalf("last synced count: got=%v want=7", status.LastSyncedCount)
	}
	if status.LastSyncedBy == nil || *status.LastSyncedBy != "cron" {
		t.Fatalf("last synced by: got=%v want=cron", status.LastSyncedBy)
	}
}

func TestLeaderboardList_RanksEntries(t *testing.T) {
	t.Parallel()

	repo := &stubStandingsRepo{totals: []standings.UserTotal{
		{UserID: "user-1", Points: 12, CorrectPicks: 5, MapBonuses: 2, ResolvedPicks: 6},
		{UserID: "user-2", Points: 9, CorrectPicks: 4, MapBonuses: 1, ResolvedPicks: 6},
	}}
	svc := NewLeaderboardService(repo, nil, logging.NewNop())

	entries, err := svc.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got=%d want=2", len(entries))
	}
	if entries[0].Rank != 1 || entries[0].UserID != "user-1" {
		t.Fatalf("first entry: got=%+v", entries[0])
	}
	if entries[1].Rank != 2 || entries[1].Points != 9 {
		t.Fatalf("second entry: got=%+v", entries[1])
	}
}
