// Package messaging fans committed domain events out to in-process
// subscribers and, through Redis Pub/Sub, to every other API instance.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/radake/rada-ke/internal/domain/shared"
)

// ErrEventBusClosed is returned by Publish after Close.
var ErrEventBusClosed = errors.New("event bus is closed")

// Handler receives events. It runs on the publisher's goroutine and must
// not block.
type Handler func(ctx context.Context, e shared.Event)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// LocalBus delivers events to subscribers in this process.
type LocalBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]Handler
	allHandlers []Handler
	logger      *slog.Logger
	published   atomic.Int64
}

var _ shared.EventPublisher = (*LocalBus)(nil)

// NewLocalBus creates an empty bus.
func NewLocalBus(logger *slog.Logger) *LocalBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBus{
		handlers: make(map[shared.EventType][]Handler),
		logger:   logger.With("component", "event_bus"),
	}
}

// Subscribe registers h for one event type.
func (b *LocalBus) Subscribe(t shared.EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers h for every event.
func (b *LocalBus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, h)
}

// Publish delivers events in order. A panicking handler is logged and
// does not stop delivery to the rest.
func (b *LocalBus) Publish(ctx context.Context, events ...shared.Event) error {
	for _, e := range events {
		if e == nil {
			continue
		}
		b.mu.RLock()
		targets := make([]Handler, 0, len(b.allHandlers)+len(b.handlers[e.EventType()]))
		targets = append(targets, b.handlers[e.EventType()]...)
		targets = append(targets, b.allHandlers...)
		b.mu.RUnlock()

		for _, h := range targets {
			b.deliver(ctx, h, e)
		}
		b.published.Add(1)
	}
	return nil
}

func (b *LocalBus) deliver(ctx context.Context, h Handler, e shared.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", e.EventType(), "panic", r)
		}
	}()
	h(ctx, e)
}

// Published returns how many events went through the bus.
func (b *LocalBus) Published() int64 {
	return b.published.Load()
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// DefaultChannel is the Pub/Sub channel events travel on.
const DefaultChannel = "radake:events"

// RedisClient is the Pub/Sub surface the bus needs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan string, func() error, error)
}

// RedisBus publishes to Redis and feeds messages from other instances into
// a LocalBus. Events from this instance are delivered locally right away
// and skipped when they come back from Redis.
type RedisBus struct {
	client     RedisClient
	local      *LocalBus
	channel    string
	instanceID string
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

var _ shared.EventPublisher = (*RedisBus)(nil)

// NewRedisBus wraps local. channel defaults to DefaultChannel.
func NewRedisBus(client RedisClient, local *LocalBus, channel string, logger *slog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{
		client:     client,
		local:      local,
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     logger.With("component", "redis_event_bus"),
	}
}

// Start subscribes and processes remote events until Close.
func (b *RedisBus) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	messages, unsubscribe, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	b.mu.Lock()
	b.cancel = cancel
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	go func() {
		defer close(done)
		defer func() { _ = unsubscribe() }()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-messages:
				if !ok {
					return
				}
				b.handleRemote(ctx, payload)
			}
		}
	}()
	return nil
}

// Publish delivers locally, then forwards to Redis. A Redis failure is
// returned after local delivery has happened.
func (b *RedisBus) Publish(ctx context.Context, events ...shared.Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrEventBusClosed
	}

	_ = b.local.Publish(ctx, events...)

	var errs []error
	for _, e := range events {
		if e == nil {
			continue
		}
		data, err := json.Marshal(newEnvelope(b.instanceID, e))
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal %s: %w", e.EventType(), err))
			continue
		}
		if err := b.client.Publish(ctx, b.channel, data); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", e.EventType(), err))
		}
	}
	return errors.Join(errs...)
}

func (b *RedisBus) handleRemote(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("dropping malformed event", "error", err)
		return
	}
	if env.InstanceID == b.instanceID {
		return
	}
	_ = b.local.Publish(ctx, env.event())
}

// Close stops the subscriber and waits for it.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	b.logger.Info("redis event bus closed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

type envelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

func newEnvelope(instanceID string, e shared.Event) envelope {
	return envelope{
		InstanceID:  instanceID,
		EventType:   e.EventType(),
		AggregateID: e.AggregateID(),
		OccurredAt:  e.OccurredAt(),
		Payload:     e.Payload(),
	}
}

// remoteEvent is an event rebuilt from its envelope.
type remoteEvent struct {
	shared.BaseEvent
	payload map[string]interface{}
}

func (e remoteEvent) Payload() map[string]interface{} { return e.payload }

func (env envelope) event() shared.Event {
	return remoteEvent{
		BaseEvent: shared.BaseEvent{
			Type:      env.EventType,
			Timestamp: env.OccurredAt,
			Aggregate: env.AggregateID,
		},
		payload: env.Payload,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// GO-REDIS ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// GoRedis adapts *redis.Client to RedisClient.
type GoRedis struct {
	Client *redis.Client
}

func (g GoRedis) Publish(ctx context.Context, channel string, payload []byte) error {
	return g.Client.Publish(ctx, channel, payload).Err()
}

func (g GoRedis) Subscribe(ctx context.Context, channel string) (<-chan string, func() error, error) {
	sub := g.Client.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so Publish right after Start
	// is not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, sub.Close, nil
}
