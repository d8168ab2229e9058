// Package reactive binds a single key to an in-memory value with TTL caching,
// optimistic saves, and a deferred write queue drained by one worker goroutine.
//
// A Save updates the snapshot and publishes the change event synchronously;
// the durable write happens later, in issuance order, with consecutive pending
// writes coalesced to the newest value. The snapshot is never rolled back on a
// failed durable write: callers that care register an error handler and decide
// for themselves.
package reactive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/barflowtrack/barflow/pkg/core"
)

// DefaultTTL is the cache window after which Load reads through to the store.
const DefaultTTL = 30 * time.Second

// DefaultQueueSize bounds the deferred write queue per binding.
const DefaultQueueSize = 64

// Storage is the slice of the store a binding needs.
type Storage interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Persist(ctx context.Context, key string, raw []byte) error
	Publish(ev core.Event)
}

// Option configures a binding.
type Option func(*settings)

type settings struct {
	ttl       time.Duration
	queueSize int
	logger    *slog.Logger
	onError   func(key string, err error)
}

// WithTTL sets the cache window.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) { s.ttl = ttl }
}

// WithQueueSize bounds the deferred write queue.
func WithQueueSize(n int) Option {
	return func(s *settings) { s.queueSize = n }
}

// WithLogger sets the logger for the binding.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithOnError registers a handler for asynchronous write failures. This is the
// caller's chance to roll back an optimistic value; the binding itself keeps it.
func WithOnError(fn func(key string, err error)) Option {
	return func(s *settings) { s.onError = fn }
}

// Binding binds one key to a typed in-memory value.
type Binding[T any] struct {
	store    Storage
	key      string
	fallback T
	settings settings

	mu       sync.RWMutex
	value    T
	loadedAt time.Time
	loaded   bool
	closed   bool

	writes chan []byte
	done   chan struct{}
	cancel context.CancelFunc
}

// NewBinding creates a binding for the key with a fallback default value and
// starts its write worker.
func NewBinding[T any](store Storage, key string, fallback T, opts ...Option) *Binding[T] {
	s := settings{ttl: DefaultTTL, queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&s)
	}

	b := &Binding[T]{
		store:    store,
		key:      key,
		fallback: fallback,
		settings: s,
		writes:   make(chan []byte, s.queueSize),
		done:     make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	lifecycle.Go(ctx, b.run, lifecycle.WithErrorHandler(func(err error) {
		b.reportError(fmt.Errorf("write worker: %w", err))
	}))

	return b
}

// Load returns the bound value. While the snapshot is fresh (younger than the
// TTL) it is served from memory; otherwise the store is consulted, falling
// back to the default when nothing usable is stored.
func (b *Binding[T]) Load(ctx context.Context) (T, error) {
	b.mu.RLock()
	if b.loaded && time.Since(b.loadedAt) < b.settings.ttl {
		v := b.value
		b.mu.RUnlock()
		return v, nil
	}
	b.mu.RUnlock()

	value := b.fallback
	if _, err := b.store.Get(ctx, b.key, &value); err != nil {
		return b.fallback, err
	}

	b.mu.Lock()
	b.value = value
	b.loadedAt = time.Now()
	b.loaded = true
	b.mu.Unlock()

	return value, nil
}

// Save updates the snapshot immediately, publishes the change event, and
// queues the durable write. It returns ErrQueueFull when the write cannot even
// be queued, so the caller may roll back its optimistic state; a write that
// was queued but later fails is reported through the error handler instead.
func (b *Binding[T]) Save(ctx context.Context, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", b.key, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return core.ErrClosed
	}
	b.value = value
	b.loadedAt = time.Now()
	b.loaded = true

	// Enqueue under the lock so Close cannot close the channel mid-send.
	var queued bool
	select {
	case b.writes <- raw:
		queued = true
	default:
	}
	b.mu.Unlock()

	if !queued {
		return core.ErrQueueFull
	}

	b.store.Publish(core.Event{
		Type:      core.EventSet,
		Key:       b.key,
		Value:     raw,
		Timestamp: time.Now().Unix(),
	})
	return nil
}

// Invalidate drops the snapshot so the next Load reads through.
func (b *Binding[T]) Invalidate() {
	b.mu.Lock()
	b.loaded = false
	b.mu.Unlock()
}

// Close stops accepting saves and flushes every queued write before returning.
func (b *Binding[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.writes)
	<-b.done
	b.cancel()
	return nil
}

// run drains the write queue FIFO. Consecutive pending writes coalesce to the
// newest payload; the intermediate states were already announced on the bus.
func (b *Binding[T]) run(ctx context.Context) error {
	defer close(b.done)

	for raw := range b.writes {
		// Coalesce whatever else is already queued.
		for {
			select {
			case next, ok := <-b.writes:
				if !ok {
					b.persist(raw)
					return nil
				}
				raw = next
				continue
			default:
			}
			break
		}

		b.persist(raw)
	}
	return nil
}

func (b *Binding[T]) persist(raw []byte) {
	// Detached context: a pending write survives the caller's cancellation.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.store.Persist(ctx, b.key, raw); err != nil {
		b.reportError(fmt.Errorf("failed to persist %s: %w", b.key, err))
	}
}

func (b *Binding[T]) reportError(err error) {
	if b.settings.onError != nil {
		b.settings.onError(b.key, err)
		return
	}
	if b.settings.logger != nil {
		b.settings.logger.Error("deferred write failed", "key", b.key, "error", err)
	}
}
