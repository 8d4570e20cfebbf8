package scheduler

import (
	"context"
	"fmt"

	"salesops_backend/internal/email"
	"salesops_backend/internal/orders/transport"
	"salesops_backend/platform/config"
	"salesops_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Reconciler runs the replacement consistency sweep.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]transport.Inconsistency, error)
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	sender     email.Sender
	reconciler Reconciler
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sender email.Sender, reconciler Reconciler, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newHandlers(sender, reconciler, log)
	w.server = server
	return w, nil
}

func newHandlers(sender email.Sender, reconciler Reconciler, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Discard()
	}
	w := &Worker{
		mux:        asynq.NewServeMux(),
		sender:     sender,
		reconciler: reconciler,
		log:        log,
	}
	w.mux.HandleFunc(TaskEmailDeliver, w.handleEmailDeliver)
	w.mux.HandleFunc(TaskReconcileReplacements, w.handleReconcile)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleEmailDeliver(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEmailDeliverPayload(task)
	if err != nil {
		return fmt.Errorf("decode email payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.Message.To == "" {
		w.log.Warn("email task without recipient dropped", "subject", payload.Message.Subject)
		return nil
	}

	if err := w.sender.Send(ctx, payload.Message); err != nil {
		w.log.Warn("email delivery failed", "to", payload.Message.To, "error", err)
		return err
	}
	return nil
}

func (w *Worker) handleReconcile(ctx context.Context, _ *asynq.Task) error {
	findings, err := w.reconciler.Reconcile(ctx)
	if err != nil {
		return err
	}
	w.log.Info("replacement reconciliation finished", "inconsistencies", len(findings))
	return nil
}
