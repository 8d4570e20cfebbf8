package scheduler

import (
	"context"
	"fmt"
	"time"

	"salesops_backend/platform/config"
	"salesops_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the reconciliation sweep on the configured cron spec.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, loc *time.Location, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	spec := cfg.GetReconcileCron()
	if spec == "" {
		spec = "@every 15m"
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: loc})
	entryID, err := scheduler.Register(spec, NewReconcileReplacementsTask(),
		asynq.Queue(queueName(cfg)),
		asynq.Unique(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("register reconcile task: %w", err)
	}
	log.Info("periodic reconcile registered", "entry", entryID, "spec", spec)

	return &Periodic{scheduler: scheduler, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}
	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}
