// Package bus implements the change-event bus that decouples producers and
// consumers of a given data key. Publication is synchronous and fire-and-forget:
// there is no queue and no replay, so a handler registered after a publish never
// sees the missed event.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/barflowtrack/barflow/pkg/core"
)

// subscription pairs a key pattern with its handler.
type subscription struct {
	id      uint64
	pattern string
	fn      core.Handler
}

// Bus dispatches change events to subscribers in registration order.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	logger *slog.Logger
}

// New creates an event bus. The logger is optional.
func New(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Publish synchronously invokes every handler whose pattern matches the event
// key, in registration order. Handlers for the same key always observe events
// in publish order; there is no cross-key ordering guarantee.
func (b *Bus) Publish(ev core.Event) {
	b.mu.RLock()
	// Snapshot so handlers may subscribe/unsubscribe without deadlocking.
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if !matches(s.pattern, ev.Key) {
			continue
		}
		s.fn(ev)
	}

	if b.logger != nil {
		b.logger.Debug("event published", "type", ev.Type, "key", ev.Key)
	}
}

// Subscribe registers a handler for events whose key matches the glob pattern
// (e.g. "inventory", "cash*", "**"). The returned cancel is idempotent; the
// caller is responsible for calling it to avoid leaking the subscription.
func (b *Bus) Subscribe(pattern string, fn core.Handler) (cancel func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, pattern: pattern, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Stream returns a buffered channel of matching events, so that slow consumers
// do not block publishers. Events are dropped when the buffer is full; the
// channel is closed when the context is cancelled.
func (b *Bus) Stream(ctx context.Context, pattern string, buffer int) <-chan core.Event {
	if buffer <= 0 {
		buffer = 100
	}
	out := make(chan core.Event, buffer)

	cancel := b.Subscribe(pattern, func(ev core.Event) {
		// Recover protects against a publish racing the channel close during
		// shutdown: the snapshot taken in Publish may still hold this handler.
		defer func() { _ = recover() }()
		select {
		case <-ctx.Done():
		case out <- ev:
		default:
			if b.logger != nil {
				b.logger.Warn("event stream buffer full, dropping event", "key", ev.Key)
			}
		}
	})

	go func() {
		<-ctx.Done()
		cancel()
		close(out)
	}()

	return out
}

// matches reports whether a key matches a subscription pattern.
// An invalid pattern never matches.
func matches(pattern, key string) bool {
	if pattern == key {
		return true
	}
	ok, err := doublestar.Match(pattern, key)
	return err == nil && ok
}
