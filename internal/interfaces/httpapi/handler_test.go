package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/n1ckdm/pickems-api/internal/domain/pick"
	"github.com/n1ckdm/pickems-api/internal/domain/user"
	"github.com/n1ckdm/pickems-api/internal/infrastructure/repository/memory"
	"github.com/n1ckdm/pickems-api/internal/platform/id"
	"github.com/n1ckdm/pickems-api/internal/platform/ratelimit"
	"github.com/n1ckdm/pickems-api/internal/usecase"
)

const testCronSecret = "cron-secret"

type providerStub struct {
	matches []usecase.ExternalMatch
	results map[int64]usecase.ExternalMatchResult
	err     error
}

var _ usecase.MatchProvider = (*providerStub)(nil)

func (p *providerStub) FetchMatches(_ context.Context, _ usecase.MatchQuery) ([]usecase.ExternalMatch, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.matches, nil
}

func (p *providerStub) FetchMatchResult(_ context.Context, _ int64, externalID int64) (usecase.ExternalMatchResult, error) {
	if p.err != nil {
		return usecase.ExternalMatchResult{}, p.err
	}
	result, ok := p.results[externalID]
	if !ok {
		return usecase.ExternalMatchResult{}, usecase.ErrNotFound
	}
	return result, nil
}

type mapVerifier map[string]user.Principal

func (v mapVerifier) VerifyAccessToken(_ context.Context, token string) (user.Principal, error) {
	principal, ok := v[token]
	if !ok {
		return user.Principal{}, usecase.ErrUnauthorized
	}
	return principal, nil
}

type testEnv struct {
	router    http.Handler
	matchRepo *memory.MatchRepository
	pickRepo  *memory.PickRepository
}

func newTestEnv(t *testing.T, provider usecase.MatchProvider) testEnv {
	t.Helper()

	matchRepo := memory.NewMatchRepository(memory.SeedMatches())
	pickRepo := memory.NewPickRepository(matchRepo)
	syncLogRepo := memory.NewSyncLogRepository()
	standingsRepo := memory.NewStandingsRepository(pickRepo)

	matchService := usecase.NewMatchService(matchRepo, syncLogRepo, nil, nil)
	pickService := usecase.NewPickService(matchRepo, pickRepo, standingsRepo, id.NewUUIDGenerator(), usecase.PickConfig{}, nil)
	leaderboardService := usecase.NewLeaderboardService(standingsRepo, nil, nil)
	settlementService := usecase.NewSettlementService(provider, matchRepo, pickRepo, standingsRepo, usecase.SettlementConfig{}, nil)
	syncService := usecase.NewSyncService(provider, matchRepo, syncLogRepo, settlementService, usecase.SyncConfig{DivisionID: 12}, nil)

	handler := NewHandler(matchService, pickService, leaderboardService, syncService, settlementService, nil)
	verifier := mapVerifier{
		"user-token":  {UserID: "user-1", Email: "user@example.com"},
		"admin-token": {UserID: "admin-1", Email: "admin@example.com", IsAdmin: true},
	}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryCounterStore(), 100, time.Minute)

	router := NewRouter(handler, verifier, nil, RouterConfig{
		CORSAllowedOrigins: []string{"*"},
		CronSecret:         testCronSecret,
		TriggerLimiter:     limiter,
	})

	return testEnv{router: router, matchRepo: matchRepo, pickRepo: pickRepo}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestHandler_Healthz(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestHandler_ListMatches_UpcomingWindow(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	req := httptest.NewRequest(http.MethodGet, "/v1/matches?window=upcoming", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	items, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %T", body["data"])
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 upcoming matches, got %d", len(items))
	}
	first, _ := items[0].(map[string]any)
	if got, _ := first["state"].(string); got != "scheduled" {
		t.Fatalf("expected scheduled state, got %v", first["state"])
	}
}

func TestHandler_ListMatches_InvalidWindow(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	req := httptest.NewRequest(http.MethodGet, "/v1/matches?window=bogus", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandler_SubmitPick(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	payload := `{"matchId":2,"predictedWinnerId":303,"predictedTeam1Maps":2,"predictedTeam2Maps":0}`
	req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if got, _ := data["matchId"].(float64); int64(got) != 2 {
		t.Fatalf("expected matchId 2, got %v", data["matchId"])
	}
	if publicID, _ := data["publicId"].(string); publicID == "" {
		t.Fatalf("expected a public id on the submitted pick")
	}
}

func TestHandler_SubmitPick_Unauthenticated(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	payload := `{"matchId":2,"predictedWinnerId":303}`
	req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestHandler_SubmitPick_FinishedMatchIsLocked(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	payload := `{"matchId":1,"predictedWinnerId":301}`
	req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
}

func TestHandler_SubmitPick_UnknownFieldRejected(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	payload := `{"matchId":2,"predictedWinnerId":303,"bogus":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandler_ListAndDeleteMyPicks(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	submit := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(`{"matchId":2,"predictedWinnerId":303}`))
	submit.Header.Set("Authorization", "Bearer user-token")
	env.router.ServeHTTP(httptest.NewRecorder(), submit)

	list := httptest.NewRequest(http.MethodGet, "/v1/picks/me", nil)
	list.Header.Set("Authorization", "Bearer user-token")
	listRec := httptest.NewRecorder()
	env.router.ServeHTTP(listRec, list)

	if listRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", listRec.Code)
	}
	listBody := decodeEnvelope(t, listRec)
	items, _ := listBody["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 pick, got %d", len(items))
	}

	del := httptest.NewRequest(http.MethodDelete, "/v1/picks/me", nil)
	del.Header.Set("Authorization", "Bearer user-token")
	delRec := httptest.NewRecorder()
	env.router.ServeHTTP(delRec, del)

	if delRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", delRec.Code)
	}
	delBody := decodeEnvelope(t, delRec)
	data, _ := delBody["data"].(map[string]any)
	if got, _ := data["deleted"].(float64); int(got) != 1 {
		t.Fatalf("expected 1 deleted pick, got %v", data["deleted"])
	}
}

func TestHandler_AdjustPick_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/picks/some-id/adjust", strings.NewReader(`{"isCorrect":true,"reason":"scoring error"}`))
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}

func TestHandler_AdjustPick(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	saved, err := env.pickRepo.Upsert(context.Background(), pick.Pick{
		PublicID:          "pick-public-1",
		UserID:            "user-1",
		MatchID:           1,
		PredictedWinnerID: 302,
	})
	if err != nil {
		t.Fatalf("seed pick: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/picks/"+saved.PublicID+"/adjust", strings.NewReader(`{"isCorrect":true,"reason":"provider reported the wrong winner"}`))
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if got, _ := data["pointsAwarded"].(float64); int(got) != 2 {
		t.Fatalf("expected 2 points after adjustment, got %v", data["pointsAwarded"])
	}
	if got, _ := data["adjustedBy"].(string); got != "admin-1" {
		t.Fatalf("expected adjustedBy admin-1, got %v", data["adjustedBy"])
	}

	// The override must land on the leaderboard without a settlement run.
	lbReq := httptest.NewRequest(http.MethodGet, "/v1/leaderboard", nil)
	lbRec := httptest.NewRecorder()
	env.router.ServeHTTP(lbRec, lbReq)
	if lbRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", lbRec.Code, lbRec.Body.String())
	}
	lbBody := decodeEnvelope(t, lbRec)
	entries, _ := lbBody["data"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 leaderboard entry after adjustment, got %d", len(entries))
	}
	entry, _ := entries[0].(map[string]any)
	if got, _ := entry["userId"].(string); got != "user-1" {
		t.Fatalf("expected user-1 on leaderboard, got %v", entry["userId"])
	}
	if got, _ := entry["points"].(float64); int(got) != 2 {
		t.Fatalf("expected 2 leaderboard points after adjustment, got %v", entry["points"])
	}
}

func TestHandler_RunSyncJob_CronSecret(t *testing.T) {
	provider := &providerStub{
		matches: []usecase.ExternalMatch{
			{
				ExternalID: 9100,
				Team1:      usecase.ExternalTeamSide{TeamID: 305, Name: "Blue Harbor"},
				Team2:      usecase.ExternalTeamSide{TeamID: 306, Name: "Red Canyon"},
				StartTime:  time.Now().UTC().Add(96 * time.Hour),
				DivisionID: 12,
				BestOf:     3,
			},
		},
	}
	env := newTestEnv(t, provider)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync", nil)
	req.Header.Set("X-Cron-Secret", testCronSecret)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if got, _ := data["syncedMatches"].(float64); int(got) != 1 {
		t.Fatalf("expected 1 synced match, got %v", data["syncedMatches"])
	}

	status := httptest.NewRequest(http.MethodGet, "/v1/matches/sync-status", nil)
	statusRec := httptest.NewRecorder()
	env.router.ServeHTTP(statusRec, status)

	statusBody := decodeEnvelope(t, statusRec)
	statusData, _ := statusBody["data"].(map[string]any)
	if got, _ := statusData["lastSyncedBy"].(string); got != "cron" {
		t.Fatalf("expected lastSyncedBy cron, got %v", statusData["lastSyncedBy"])
	}
}

func TestHandler_RunSyncJob_MissingSecret(t *testing.T) {
	env := newTestEnv(t, &providerStub{})

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestHandler_RunSettleJob_ScoresPicksAndLeaderboard(t *testing.T) {
	maps1 := 2
	maps2 := 1
	provider := &providerStub{
		results: map[int64]usecase.ExternalMatchResult{
			9001: {MatchExternalID: 9001, WinnerTeamID: 301, Team1MapsWon: &maps1, Team2MapsWon: &maps2},
		},
	}
	env := newTestEnv(t, provider)

	if _, err := env.pickRepo.Upsert(context.Background(), pick.Pick{
		PublicID:          "pick-public-2",
		UserID:            "user-1",
		MatchID:           1,
		PredictedWinnerID: 301,
	}); err != nil {
		t.Fatalf("seed pick: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/settle", nil)
	req.Header.Set("X-Cron-Secret", testCronSecret)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if got, _ := data["processedPicks"].(float64); int(got) != 1 {
		t.Fatalf("expected 1 processed pick, got %v", data["processedPicks"])
	}

	board := httptest.NewRequest(http.MethodGet, "/v1/leaderboard", nil)
	boardRec := httptest.NewRecorder()
	env.router.ServeHTTP(boardRec, board)

	boardBody := decodeEnvelope(t, boardRec)
	entries, _ := boardBody["data"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 leaderboard entry, got %d", len(entries))
	}
	top, _ := entries[0].(map[string]any)
	if got, _ := top["userId"].(string); got != "user-1" {
		t.Fatalf("expected leader user-1, got %v", top["userId"])
	}
	if got, _ := top["points"].(float64); int(got) != 2 {
		t.Fatalf("expected 2 points, got %v", top["points"])
	}
}
