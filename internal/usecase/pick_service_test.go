package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
	"github.com/n1ckdm/pickems-api/internal/domain/pick"
	"github.com/n1ckdm/pickems-api/internal/platform/id"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
)

func scheduledMatch(id int64, start time.Time) match.Match {
	return match.Match{
		ID:         id,
		ExternalID: id + 100,
		Team1:      match.Team{ID: 100, Name: "Night Owls"},
		Team2:      match.Team{ID: 200, Name: "Iron Wolves"},
		StartTime:  start,
		DivisionID: 12,
		State:      match.StateScheduled,
		BestOf:     3,
	}
}

func newTestPickService(matchRepo *stubMatchRepo, pickRepo *stubPickRepo) (*PickService, *stubStandingsRepo) {
	standingsRepo := &stubStandingsRepo{}
	return NewPickService(matchRepo, pickRepo, standingsRepo, id.NewUUIDGenerator(), PickConfig{
		LockLead:       2 * time.Hour,
		BasePoints:     2,
		MapBonusPoints: 1,
	}, logging.NewNop()), standingsRepo
}

func TestPickSubmit_CreatesAndReplaces(t *testing.T) {
	t.Parallel()

	start := time.Now().UTC().Add(48 * time.Hour)
	matchRepo := newStubMatchRepo(scheduledMatch(1, start))
	pickRepo := newStubPickRepo()
	svc, _ := newTestPickService(matchRepo, pickRepo)

	first, err := svc.Submit(context.Background(), SubmitPickInput{
		UserID:            "user-1",
		MatchID:           1,
		PredictedWinnerID: 100,
	})
	if err != nil {
		t.Fatalf("submit pick: %v", err)
	}
	if first.PublicID == "" {
		t.Fatal("pick should get a public id")
	}

	second, err := svc.Submit(context.Background(), SubmitPickInput{
		UserID:             "user-1",
		MatchID:            1,
		PredictedWinnerID:  200,
		PredictedTeam1Maps: intPtr(1),
		PredictedTeam2Maps: intPtr(2),
	})
	if err != nil {
		t.Fatalf("resubmit pick: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("resubmission must update the same row: got=%d want=%d", second.ID, first.ID)
	}
	if second.PredictedWinnerID != 200 {
		t.Fatalf("predicted winner: got=%d want=200", second.PredictedWinnerID)
	}

	mine, err := svc.ListMine(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list picks: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("picks for user: got=%d want=1", len(mine))
	}
}

func TestPickSubmit_RejectsInsideLockWindow(t *testing.T) {
	t.Parallel()

	start := time.Now().UTC().Add(90 * time.Minute)
	matchRepo := newStubMatchRepo(scheduledMatch(1, start))
	svc, _ := newTestPickService(matchRepo, newStubPickRepo())

	_, err := svc.Submit(context.Background(), SubmitPickInput{
		UserID:            "user-1",
		MatchID:           1,
		PredictedWinnerID: 100,
	})
	if !errors.Is(err, ErrPicksLocked) {
		t.Fatalf("expected picks locked error, got %v", err)
	}
}

func TestPickSubmit_RejectsStartedMatch(t *testing.T) {
	t.Parallel()

	row := scheduledMatch(1, time.Now().UTC().Add(-time.Hour))
	row.State = match.StateFinished
	matchRepo := newStubMatchRepo(row)
	svc, _ := newTestPickService(matchRepo, newStubPickRepo())

	_, err := svc.Submit(context.Background(), SubmitPickInput{
		UserID:            "user-1",
		MatchID:           1,
		PredictedWinnerID: 100,
	})
	if !errors.Is(err, ErrPicksLocked) {
		t.Fatalf("expected picks locked error, got %v", err)
	}
}

func TestPickSubmit_RejectsForeignTeam(t *testing.T) {
	t.Parallel()

	matchRepo := newStubMatchRepo(scheduledMatch(1, time.Now().UTC().Add(48*time.Hour)))
	svc, _ := newTestPickService(matchRepo, newStubPickRepo())

	_, err := svc.Submit(context.Background(), SubmitPickInput{
		UserID:            "user-1",
		MatchID:           1,
		PredictedWinnerID: 999,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestPickSubmit_ValidatesMapPrediction(t *testing.T) {
	t.Parallel()

	matchRepo := newStubMatchRepo(scheduledMatch(1, time.Now().UTC().Add(48*time.Hour)))
	svc, _ := newTestPickService(matchRepo, newStubPickRepo())

	cases := []struct {
		name      string
		team1Maps *int
		team2Maps *int
		winnerID  int64
		wantErr   bool
	}{
		{"valid 2-1 for team1", intPtr(2), intPtr(1), 100, false},
		{"valid 0-2 for team2", intPtr(0), intPtr(2), 200, false},
		{"one side missing", intPtr(2), nil, 100, true},
		{"winner short of maps", intPtr(1), intPtr(0), 100, true},
		{"loser reaches maps", intPtr(2), intPtr(2), 100, true},
		{"negative maps", intPtr(-1), intPtr(2), 200, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Submit(context.Background(), SubmitPickInput{
				UserID:             "user-" + tc.name,
				MatchID:            1,
				PredictedWinnerID:  tc.winnerID,
				PredictedTeam1Maps: tc.team1Maps,
				PredictedTeam2Maps: tc.team2Maps,
			})
			if tc.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected invalid input error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
		})
	}
}

func TestPickDeleteUnlocked_OnlyRemovesUnlocked(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	matchRepo := newStubMatchRepo(
		scheduledMatch(1, now.Add(48*time.Hour)),
		scheduledMatch(2, now.Add(30*time.Minute)),
	)
	pickRepo := newStubPickRepo(
		pick.Pick{ID: 1, PublicID: "p-unlocked", UserID: "user-1", MatchID: 1, PredictedWinnerID: 100},
		pick.Pick{ID: 2, PublicID: "p-locked", UserID: "user-1", MatchID: 2, PredictedWinnerID: 100},
		pick.Pick{ID: 3, PublicID: "p-other", UserID: "user-2", MatchID: 1, PredictedWinnerID: 200},
	)
	pickRepo.matchStartByID[1] = now.Add(48 * time.Hour)
	pickRepo.matchStartByID[2] = now.Add(30 * time.Minute)

	svc, _ := newTestPickService(matchRepo, pickRepo)
	deleted, err := svc.DeleteUnlocked(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("delete unlocked: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted picks: got=%d want=1", deleted)
	}

	if _, found, _ := pickRepo.GetByPublicID(context.Background(), "p-locked"); !found {
		t.Fatal("locked pick must survive bulk delete")
	}
	if _, found, _ := pickRepo.GetByPublicID(context.Background(), "p-other"); !found {
		t.Fatal("other user's pick must survive bulk delete")
	}
}

func TestPickAdjust_RecomputesPointsAndAudits(t *testing.T) {
	t.Parallel()

	pickRepo := newStubPickRepo(pick.Pick{
		ID:                1,
		PublicID:          "p-1",
		UserID:            "user-1",
		MatchID:           1,
		PredictedWinnerID: 100,
		IsCorrect:         boolPtr(false),
		MapScoreCorrect:   boolPtr(true),
		PointsAwarded:     intPtr(1),
	})
	svc, standingsRepo := newTestPickService(newStubMatchRepo(), pickRepo)

	adjusted, err := svc.Adjust(context.Background(), AdjustPickInput{
		PickPublicID: "p-1",
		IsCorrect:    true,
		Reason:       "  upstream  posted\tthe wrong\nwinner  ",
		AdjustedBy:   "admin-1",
	})
	if err != nil {
		t.Fatalf("adjust pick: %v", err)
	}

	if adjusted.PointsAwarded == nil || *adjusted.PointsAwarded != 3 {
		t.Fatalf("recomputed points: got=%v want=3 (base plus retained map bonus)", adjusted.PointsAwarded)
	}
	if adjusted.AdjustedBy == nil || *adjusted.AdjustedBy != "admin-1" {
		t.Fatalf("adjusted_by: got=%v want=admin-1", adjusted.AdjustedBy)
	}
	if adjusted.AdjustmentReason == nil || *adjusted.AdjustmentReason != "upstream posted the wrong winner" {
		t.Fatalf("sanitized reason: got=%v", adjusted.AdjustmentReason)
	}
	if adjusted.AdjustedAt == nil {
		t.Fatal("adjusted_at must be set")
	}
	if got := standingsRepo.recomputeCount(); got != 1 {
		t.Fatalf("standings recomputes after adjustment: got=%d want=1", got)
	}
}

func TestPickAdjust_RequiresReason(t *testing.T) {
	t.Parallel()

	pickRepo := newStubPickRepo(pick.Pick{ID: 1, PublicID: "p-1", UserID: "user-1", MatchID: 1, PredictedWinnerID: 100})
	svc, _ := newTestPickService(newStubMatchRepo(), pickRepo)

	_, err := svc.Adjust(context.Background(), AdjustPickInput{
		PickPublicID: "p-1",
		IsCorrect:    true,
		Reason:       " \t\n ",
		AdjustedBy:   "admin-1",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestSanitizeAdjustmentReason_Truncates(t *testing.T) {
	t.Parallel()

	long := make([]byte, 0, 600)
	for i := 0; i < 60; i++ {
		long = append(long, []byte("0123456789")...)
	}
	got := sanitizeAdjustmentReason(string(long))
	if len(got) != maxAdjustmentReasonLength {
		t.Fatalf("sanitized length: got=%d want=%d", len(got), maxAdjustmentReasonLength)
	}
}

func TestSanitizeAdjustmentReason_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// 3-byte runes that do not divide the byte limit evenly, so a naive
	// byte slice would cut through the final rune.
	long := strings.Repeat("ア", 300)
	got := sanitizeAdjustmentReason(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated reason is not valid UTF-8: %q", got)
	}
	if len(got) > maxAdjustmentReasonLength {
		t.Fatalf("sanitized length: got=%d want<=%d", len(got), maxAdjustmentReasonLength)
	}
	if got != strings.Repeat("ア", maxAdjustmentReasonLength/3) {
		t.Fatalf("expected truncation to the last whole rune, got %d bytes", len(got))
	}
}
