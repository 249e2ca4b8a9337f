package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
	"github.com/n1ckdm/pickems-api/internal/usecase"
)

const triggeredBy = "scheduler"

type Config struct {
	SyncInterval   time.Duration
	SettleInterval time.Duration
}

// Scheduler runs the periodic sync and settlement sweeps in-process, as an
// alternative to an external cron hitting the internal job endpoints.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *logging.Logger
}

func New(
	cfg Config,
	syncService *usecase.SyncService,
	settlementService *usecase.SettlementService,
	matchService *usecase.MatchService,
	logger *logging.Logger,
) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 15 * time.Minute
	}
	if cfg.SettleInterval <= 0 {
		cfg.SettleInterval = 5 * time.Minute
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.SyncInterval),
		gocron.NewTask(func() {
			ctx := context.Background()
			result, err := syncService.Run(ctx, triggeredBy)
			if err != nil {
				logger.ErrorContext(ctx, "scheduled sync failed", "error", err)
				return
			}
			matchService.InvalidateListCache(ctx)
			logger.InfoContext(ctx, "scheduled sync completed",
				"synced_matches", result.SyncedMatches,
				"finished_matches", result.FinishedMatches,
				"settled_picks", result.SettledPicks,
			)
		}),
		gocron.WithName("match-sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("register sync job: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.SettleInterval),
		gocron.NewTask(func() {
			ctx := context.Background()
			result, err := settlementService.Settle(ctx, nil)
			if err != nil {
				logger.ErrorContext(ctx, "scheduled settlement failed", "error", err)
				return
			}
			if result.ProcessedMatches > 0 {
				matchService.InvalidateListCache(ctx)
			}
			logger.InfoContext(ctx, "scheduled settlement completed",
				"processed_matches", result.ProcessedMatches,
				"processed_picks", result.ProcessedPicks,
			)
		}),
		gocron.WithName("pick-settlement"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("register settlement job: %w", err)
	}

	return &Scheduler{scheduler: sched, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("scheduler started", "jobs", len(s.scheduler.Jobs()))
}

func (s *Scheduler) Shutdown() error {
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}
