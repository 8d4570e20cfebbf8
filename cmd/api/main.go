package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/allocation"
	"salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/http/router"
	"salesops_backend/internal/leads"
	"salesops_backend/internal/litigation"
	"salesops_backend/internal/notification"
	"salesops_backend/internal/notification/realtime"
	"salesops_backend/internal/notification/sse"
	"salesops_backend/internal/orders"
	"salesops_backend/internal/orders/domain"
	"salesops_backend/internal/replacements"
	"salesops_backend/internal/scheduler"
	"salesops_backend/internal/statuslog"
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	policy, err := domain.LoadPolicy(cfg.GetOrderTransitionPolicyFile())
	if err != nil {
		log.Error("failed to load order transition policy", "error", err)
		panic("failed to load order transition policy: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	phones := phone.NewNormalizer(cfg.GetPhoneDefaultRegion())

	hub := sse.New(log)
	defer hub.Close()
	pusher, closePusher := initPusher(ctx, cfg, hub, log)
	if closePusher != nil {
		defer closePusher()
	}

	emailQueue, closeQueue := initEmailQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	agentsModule, err := agents.NewModule(pool, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize agents module", "error", err)
		panic("failed to initialize agents module: " + err.Error())
	}
	agentSvc := agentsModule.Service()
	allocator := allocation.New(agentsModule.Repository(), allocation.NewCursorRepository(pool), log)

	leadsModule, err := leads.NewModule(pool, allocator, agentSvc, eventBus, phones, val, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	ordersModule, err := orders.NewModule(pool, allocator, leadsModule.ManagementService(), agentSvc, policy, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize orders module", "error", err)
		panic("failed to initialize orders module: " + err.Error())
	}
	orderSvc := ordersModule.Service()

	replacementsModule, err := replacements.NewModule(pool, orderSvc, agentSvc, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize replacements module", "error", err)
		panic("failed to initialize replacements module: " + err.Error())
	}

	litigationModule := litigation.NewModule(pool, orderSvc, agentSvc, val, log)
	orderSvc.SetLitigationOpener(litigationModule.Service())

	statuslogModule := statuslog.NewModule(pool, agentsModule.Repository(), cfg.GetBusinessLocation(), log)

	var emails notification.EmailQueue
	if emailQueue != nil {
		emails = emailQueue
	}
	notificationModule := notification.NewModule(pool, hub, pusher, agentSvc, emails, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			agentsModule,
			leadsModule,
			ordersModule,
			replacementsModule,
			litigationModule,
			statuslogModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initPusher returns the Redis bridge when REDIS_URL is set, so pushes reach
// agents connected to any instance, and the local hub otherwise.
func initPusher(ctx context.Context, cfg *config.Config, hub *sse.Service, log *logger.Logger) (realtime.Pusher, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; realtime push limited to this instance")
		return realtime.NewLocal(hub), nil
	}

	client, err := realtime.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect realtime redis; falling back to local push", "error", err)
		return realtime.NewLocal(hub), nil
	}

	bridge := realtime.NewRedisBridge(client, cfg.GetRealtimeChannelPrefix(), hub, log)
	if err := bridge.Start(ctx); err != nil {
		log.Error("failed to subscribe realtime channels; falling back to local push", "error", err)
		_ = client.Close()
		return realtime.NewLocal(hub), nil
	}

	return bridge, func() {
		_ = bridge.Close()
		_ = client.Close()
	}
}

func initEmailQueue(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; notification emails disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
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
