package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/n1ckdm/pickems-api/external/leagueapi"
	"github.com/n1ckdm/pickems-api/internal/config"
	"github.com/n1ckdm/pickems-api/internal/domain/match"
	"github.com/n1ckdm/pickems-api/internal/domain/pick"
	"github.com/n1ckdm/pickems-api/internal/domain/standings"
	"github.com/n1ckdm/pickems-api/internal/domain/synclog"
	"github.com/n1ckdm/pickems-api/internal/infrastructure/account/supaauth"
	"github.com/n1ckdm/pickems-api/internal/infrastructure/repository/memory"
	"github.com/n1ckdm/pickems-api/internal/infrastructure/repository/postgres"
	"github.com/n1ckdm/pickems-api/internal/interfaces/httpapi"
	"github.com/n1ckdm/pickems-api/internal/platform/cache"
	idgen "github.com/n1ckdm/pickems-api/internal/platform/id"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
	"github.com/n1ckdm/pickems-api/internal/platform/ratelimit"
	"github.com/n1ckdm/pickems-api/internal/platform/resilience"
	"github.com/n1ckdm/pickems-api/internal/scheduler"
	"github.com/n1ckdm/pickems-api/internal/usecase"
)

// App owns the wired HTTP server, the optional in-process scheduler and
// every resource that needs closing on shutdown.
type App struct {
	Server    *http.Server
	Scheduler *scheduler.Scheduler
	closers   []func(context.Context) error
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	app := &App{}

	var (
		matchRepo     match.Repository
		pickRepo      pick.Repository
		syncLogRepo   synclog.Repository
		standingsRepo standings.Repository
	)

	if cfg.DBURL != "" {
		db, err := openDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return db.Close() })

		matchRepo = postgres.NewMatchRepository(db)
		pickRepo = postgres.NewPickRepository(db)
		syncLogRepo = postgres.NewSyncLogRepository(db)
		standingsRepo = postgres.NewStandingsRepository(db)
		logger.Info("using postgres repositories", "db", dbNameFromURL(cfg.DBURL))
	} else {
		memMatches := memory.NewMatchRepository(memory.SeedMatches())
		memPicks := memory.NewPickRepository(memMatches)
		matchRepo = memMatches
		pickRepo = memPicks
		syncLogRepo = memory.NewSyncLogRepository()
		standingsRepo = memory.NewStandingsRepository(memPicks)
		logger.Warn("DB_URL is empty, using seeded in-memory repositories")
	}

	var cacheStore *cache.Store
	if cfg.CacheEnabled {
		cacheStore = cache.NewStore(cfg.CacheTTL)
	}

	var provider usecase.MatchProvider
	if cfg.LeagueAPIEnabled {
		provider = leagueapi.NewClient(leagueapi.ClientConfig{
			BaseURL:        cfg.LeagueAPIBaseURL,
			Token:          cfg.LeagueAPIToken,
			Timeout:        cfg.LeagueAPITimeout,
			MaxRetries:     cfg.LeagueAPIMaxRetries,
			RateLimitRPS:   cfg.LeagueAPIRateLimitRPS,
			RateLimitBurst: cfg.LeagueAPIRateLimitBurst,
			Logger:         logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.LeagueAPICircuitEnabled,
				FailureThreshold: cfg.LeagueAPICircuitFailures,
				OpenTimeout:      cfg.LeagueAPICircuitOpenTimeout,
				HalfOpenProbes:   cfg.LeagueAPICircuitProbes,
			},
		})
	} else {
		logger.Warn("league api disabled, sync and settlement triggers will report the dependency as unavailable")
	}

	settlementService := usecase.NewSettlementService(provider, matchRepo, pickRepo, standingsRepo, usecase.SettlementConfig{
		BasePoints:         cfg.BasePoints,
		MapBonusPoints:     cfg.MapBonusPoints,
		SettlementWorkers:  cfg.SettlementWorkers,
		ResultFetchWorkers: cfg.ResultFetchWorkers,
	}, logger)
	syncService := usecase.NewSyncService(provider, matchRepo, syncLogRepo, settlementService, usecase.SyncConfig{
		DivisionID:   cfg.DivisionID,
		Game:         cfg.Game,
		Season:       cfg.Season,
		BatchSize:    cfg.SyncBatchSize,
		FetchTimeout: cfg.SyncFetchTimeout,
	}, logger)
	matchService := usecase.NewMatchService(matchRepo, syncLogRepo, cacheStore, logger)
	pickService := usecase.NewPickService(matchRepo, pickRepo, standingsRepo, idgen.NewUUIDGenerator(), usecase.PickConfig{
		LockLead:       cfg.PickLockLead,
		BasePoints:     cfg.BasePoints,
		MapBonusPoints: cfg.MapBonusPoints,
	}, logger)
	leaderboardService := usecase.NewLeaderboardService(standingsRepo, cacheStore, logger)

	verifier := supaauth.NewClient(supaauth.Config{
		HTTPClient:   &http.Client{Timeout: cfg.AuthTimeout},
		BaseURL:      cfg.AuthBaseURL,
		UserInfoPath: cfg.AuthUserInfoPath,
		APIKey:       cfg.AuthAPIKey,
		AdminRole:    cfg.AuthAdminRole,
		Cache:        cacheStore,
		CacheTTL:     cfg.AuthCacheTTL,
		Logger:       logger,
	})

	handler := httpapi.NewHandler(matchService, pickService, leaderboardService, syncService, settlementService, logger)
	triggerLimiter := ratelimit.NewLimiter(ratelimit.NewMemoryCounterStore(), cfg.TriggerRateLimit, cfg.TriggerRateWindow)
	router := httpapi.NewRouter(handler, verifier, logger, httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		CronSecret:         cfg.CronSecret,
		TriggerLimiter:     triggerLimiter,
	})

	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	app.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if cfg.SchedulerEnabled {
		sched, err := scheduler.New(scheduler.Config{
			SyncInterval:   cfg.SyncInterval,
			SettleInterval: cfg.SettleInterval,
		}, syncService, settlementService, matchService, logger)
		if err != nil {
			return nil, fmt.Errorf("build scheduler: %w", err)
		}
		app.Scheduler = sched
	}

	return app, nil
}

// Close releases resources in reverse acquisition order.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
