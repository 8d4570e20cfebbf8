package scheduler

import (
	"context"
	"errors"
	"testing"

	"salesops_backend/internal/email"
	"salesops_backend/internal/orders/transport"

	"github.com/hibiken/asynq"
)

type recordingSender struct {
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

type countingReconciler struct {
	calls    int
	findings []transport.Inconsistency
}

func (r *countingReconciler) Reconcile(context.Context) ([]transport.Inconsistency, error) {
	r.calls++
	return r.findings, nil
}

func TestEmailTaskDeliversMessage(t *testing.T) {
	sender := &recordingSender{}
	w := newHandlers(sender, &countingReconciler{}, nil)

	task, err := NewEmailDeliverTask(EmailDeliverPayload{Message: email.Message{To: "ana@example.com", Subject: "New lead", HTML: "<p>hi</p>"}})
	if err != nil {
		t.Fatalf("NewEmailDeliverTask: %v", err)
	}
	if err := w.mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "ana@example.com" {
		t.Fatalf("unexpected sent messages %+v", sender.sent)
	}
}

func TestEmailTaskReturnsSenderErrorForRetry(t *testing.T) {
	w := newHandlers(&recordingSender{err: errors.New("smtp down")}, &countingReconciler{}, nil)
	task, _ := NewEmailDeliverTask(EmailDeliverPayload{Message: email.Message{To: "ana@example.com"}})

	if err := w.mux.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected delivery error to be returned")
	}
}

func TestEmailTaskWithBadPayloadSkipsRetry(t *testing.T) {
	w := newHandlers(&recordingSender{}, &countingReconciler{}, nil)
	task := asynq.NewTask(TaskEmailDeliver, []byte("{"))

	err := w.mux.ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestReconcileTaskRunsSweep(t *testing.T) {
	reconciler := &countingReconciler{findings: []transport.Inconsistency{{Identifier: "500"}}}
	w := newHandlers(&recordingSender{}, reconciler, nil)

	if err := w.mux.ProcessTask(context.Background(), NewReconcileReplacementsTask()); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if reconciler.calls != 1 {
		t.Fatalf("expected one sweep, got %d", reconciler.calls)
	}
}

func TestRedisClientOptAppliesInsecureTLS(t *testing.T) {
	opt, err := redisClientOpt("rediss://user:pw@cache.example.com:6380/2", true)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "cache.example.com:6380" || opt.DB != 2 || opt.Password != "pw" {
		t.Fatalf("unexpected opt %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}

	plain, err := redisClientOpt("redis://localhost:6379/0", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if plain.TLSConfig != nil {
		t.Fatal("expected no TLS for redis://")
	}
}
