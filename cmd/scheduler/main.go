package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/allocation"
	"salesops_backend/internal/email"
	"salesops_backend/internal/events"
	"salesops_backend/internal/leads"
	"salesops_backend/internal/notification"
	"salesops_backend/internal/notification/inapp"
	"salesops_backend/internal/notification/realtime"
	"salesops_backend/internal/notification/sse"
	"salesops_backend/internal/orders"
	"salesops_backend/internal/orders/domain"
	"salesops_backend/internal/scheduler"
	"salesops_backend/platform/config"
	"salesops_backend/platform/db"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/phone"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	policy, err := domain.LoadPolicy(cfg.GetOrderTransitionPolicyFile())
	if err != nil {
		log.Error("failed to load order transition policy", "error", err)
		panic("failed to load order transition policy: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// The reconcile sweep publishes admin alerts; they reach API instances
	// through the Redis bridge.
	pusher, closePusher := initPusher(ctx, cfg, log)
	defer closePusher()

	agentsModule, err := agents.NewModule(pool, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize agents module", "error", err)
		panic("failed to initialize agents module: " + err.Error())
	}
	agentSvc := agentsModule.Service()
	allocator := allocation.New(agentsModule.Repository(), allocation.NewCursorRepository(pool), log)

	leadsModule, err := leads.NewModule(pool, allocator, agentSvc, eventBus, phone.NewNormalizer(cfg.GetPhoneDefaultRegion()), val, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	ordersModule, err := orders.NewModule(pool, allocator, leadsModule.ManagementService(), agentSvc, policy, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize orders module", "error", err)
		panic("failed to initialize orders module: " + err.Error())
	}

	notifications := inapp.NewService(inapp.NewRepository(pool), pusher, log)
	notificationModule := notification.New(notifications, agentSvc, nil, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	worker, err := scheduler.NewWorker(cfg, email.NewSender(cfg), ordersModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, cfg.GetBusinessLocation(), log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		periodic.Run(ctx)
	}()

	log.Info("scheduler running", "queue", cfg.GetAsynqQueueName(), "reconcileCron", cfg.GetReconcileCron())
	wg.Wait()
	eventBus.Wait()
	log.Info("scheduler stopped")
}

func initPusher(ctx context.Context, cfg *config.Config, log *logger.Logger) (realtime.Pusher, func()) {
	client, err := realtime.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect realtime redis; pushes from the scheduler are disabled", "error", err)
		return realtime.NewLocal(sse.New(log)), func() {}
	}
	bridge := realtime.NewRedisBridge(client, cfg.GetRealtimeChannelPrefix(), nil, log)
	return bridge, func() { _ = client.Close() }
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
