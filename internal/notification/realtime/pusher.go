// Package realtime delivers events to an agent's private channel. Delivery
// is best effort: an offline agent finds the persisted notification on the
// next poll.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"salesops_backend/internal/notification/sse"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix is prepended to the agent id to form the channel name.
const DefaultChannelPrefix = "salesops:agent:"

// Pusher pushes an event to one agent.
type Pusher interface {
	Push(ctx context.Context, agentID uuid.UUID, event sse.Event) error
}

// Local pushes straight into this instance's SSE hub.
type Local struct {
	hub *sse.Service
}

func NewLocal(hub *sse.Service) *Local {
	return &Local{hub: hub}
}

func (l *Local) Push(_ context.Context, agentID uuid.UUID, event sse.Event) error {
	l.hub.Publish(agentID, event)
	return nil
}

// RedisBridge fans pushes out through Redis pub/sub so that an agent
// connected to any API instance receives them. Each instance runs one
// pattern subscription that forwards into its local hub.
type RedisBridge struct {
	client *redis.Client
	prefix string
	hub    *sse.Service
	log    *logger.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBridge(client *redis.Client, prefix string, hub *sse.Service, log *logger.Logger) *RedisBridge {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if log == nil {
		log = logger.Discard()
	}
	return &RedisBridge{client: client, prefix: prefix, hub: hub, log: log}
}

// Channel returns the private channel name of an agent.
func (b *RedisBridge) Channel(agentID uuid.UUID) string {
	return b.prefix + agentID.String()
}

func (b *RedisBridge) Push(ctx context.Context, agentID uuid.UUID, event sse.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode realtime event: %w", err)
	}
	return b.client.Publish(ctx, b.Channel(agentID), payload).Err()
}

// Start subscribes to every agent channel and forwards messages into the
// local hub until ctx ends or Close is called. It returns once the
// subscription is confirmed by the server.
func (b *RedisBridge) Start(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, b.prefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe realtime channels: %w", err)
	}

	b.mu.Lock()
	b.pubsub = pubsub
	b.done = make(chan struct{})
	b.mu.Unlock()

	go b.forward(ctx, pubsub.Channel(), b.done)
	return nil
}

func (b *RedisBridge) forward(ctx context.Context, messages <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			agentID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, b.prefix))
			if err != nil {
				b.log.Warn("realtime message on unexpected channel", "channel", msg.Channel)
				continue
			}
			var event sse.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn("realtime message undecodable", "channel", msg.Channel, "error", err)
				continue
			}
			b.hub.Publish(agentID, event)
		}
	}
}

// Close ends the subscription and waits for the forwarder to stop.
func (b *RedisBridge) Close() error {
	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.pubsub = nil
	b.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}

var (
	_ Pusher = (*Local)(nil)
	_ Pusher = (*RedisBridge)(nil)
)
