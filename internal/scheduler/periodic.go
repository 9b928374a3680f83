package scheduler

import (
	"context"
	"fmt"
	"time"

	"dealer_crm_backend/platform/config"
	"dealer_crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// PeriodicScheduler enqueues cron-driven tasks.
type PeriodicScheduler struct {
	scheduler *asynq.Scheduler
	entryID   string
	log       *logger.Logger
}

// NewPeriodicScheduler registers the daily digest on the configured cron
// expression, evaluated in the digest timezone.
func NewPeriodicScheduler(cfg config.SchedulerConfig, digest config.DigestConfig, log *logger.Logger) (*PeriodicScheduler, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: LoadLocation(digest.GetDigestTimezone(), log),
		EnqueueErrorHandler: func(task *asynq.Task, _ []asynq.Option, err error) {
			log.Error("periodic enqueue failed", "task", task.Type(), "error", err)
		},
	})

	task, err := NewDailyDigestTask(DailyDigestPayload{})
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(digest.GetDigestCronSpec(), task, dailyDigestOptions(queueName(cfg))...)
	if err != nil {
		return nil, fmt.Errorf("register daily digest %q: %w", digest.GetDigestCronSpec(), err)
	}

	return &PeriodicScheduler{scheduler: scheduler, entryID: entryID, log: log}, nil
}

// dailyDigestUniqueFor keeps overlapping schedulers from sending the same
// day's digest twice.
const dailyDigestUniqueFor = 23 * time.Hour

func dailyDigestOptions(queue string) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(1),
		asynq.Unique(dailyDigestUniqueFor),
	}
}

func (s *PeriodicScheduler) Run(ctx context.Context) {
	if s == nil || s.scheduler == nil {
		return
	}

	if err := s.scheduler.Start(); err != nil {
		s.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	s.log.Info("periodic scheduler started", "digestEntry", s.entryID)

	<-ctx.Done()
	s.scheduler.Shutdown()
}
