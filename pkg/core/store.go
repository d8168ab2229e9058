package core

import (
	"context"
	"time"
)

// Engine defines the contract for a durable key-value backend.
// Adhering to this interface keeps the store independent of the underlying
// storage mechanism (SQLite, flat files, memory, etc).
type Engine interface {
	// Get returns the raw stored bytes for a key. The boolean reports presence;
	// an absent key is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the value under the key with the given write timestamp,
	// overwriting atomically.
	Set(ctx context.Context, key string, value []byte, ts time.Time) error

	// Remove deletes a key. Removing a non-existent key is not an error.
	Remove(ctx context.Context, key string) error

	// SetBatch applies multiple writes as a best-effort batch. If the engine
	// fails mid-batch, already-applied writes remain.
	SetBatch(ctx context.Context, records []Record) error

	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)

	// Close releases the engine's resources.
	Close() error
}

// Handler receives change events for a subscription.
type Handler func(Event)

// Store is the injectable persistence service the rest of the application
// composes against: a key-value store with JSON codec and change events.
type Store interface {
	// Get decodes the stored value into out. It returns (false, nil) when the
	// key is absent or the stored bytes cannot be decoded; callers fall back
	// to their default value.
	Get(ctx context.Context, key string, out any) (bool, error)

	// GetRaw returns the stored bytes without decoding.
	GetRaw(ctx context.Context, key string) ([]byte, bool, error)

	// Set encodes the value, persists it, and publishes a change event.
	Set(ctx context.Context, key string, value any) error

	// Remove deletes a key and publishes a change event. Idempotent.
	Remove(ctx context.Context, key string) error

	// SetBatch persists multiple records best-effort and publishes one change
	// event per applied record.
	SetBatch(ctx context.Context, records []Record) error

	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)

	// Subscribe registers a handler for change events on keys matching the
	// glob pattern. The returned cancel removes the subscription.
	Subscribe(pattern string, fn Handler) (cancel func())

	// Close releases the store and its engine.
	Close() error
}

// Watchable is implemented by engines that can observe external modifications
// to their backing storage and surface them as change events.
type Watchable interface {
	// Watch emits an event for every externally observed change until the
	// context is cancelled.
	Watch(ctx context.Context) (<-chan Event, error)
}
