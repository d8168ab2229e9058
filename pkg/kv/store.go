// Package kv implements the durable key-value store: JSON codec over a
// storage engine, with a change event published for every write.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/barflowtrack/barflow/pkg/bus"
	"github.com/barflowtrack/barflow/pkg/core"
)

// Store implements core.Store over a single engine.
//
// The engine is chosen once, at open time. There is no per-call fallback to a
// secondary engine: a session runs entirely on one backend, so two backends
// can never diverge mid-session. See OpenEngine and MigrateIfEmpty.
type Store struct {
	engine core.Engine
	bus    *bus.Bus
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewStore wires an engine to an event bus. The logger is optional.
func NewStore(engine core.Engine, b *bus.Bus, logger *slog.Logger) *Store {
	return &Store{engine: engine, bus: b, logger: logger}
}

// Get decodes the stored value into out. Absent keys, unreadable entries, and
// undecodable values all report (false, nil): the caller falls back to its
// default, and the failure is only logged.
func (s *Store) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to decode stored value, using default", "key", key, "error", err)
		}
		return false, nil
	}
	return true, nil
}

// GetRaw returns the stored bytes without decoding. Engine read failures
// degrade to absent.
func (s *Store) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	if s.isClosed() {
		return nil, false, core.ErrClosed
	}

	raw, ok, err := s.engine.Get(ctx, key)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("engine read failed, using default", "key", key, "error", err)
		}
		return nil, false, nil
	}
	return raw, ok, nil
}

// Set encodes the value, persists it, and publishes the change event.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if s.isClosed() {
		return core.ErrClosed
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	return s.SetRaw(ctx, key, raw)
}

// SetRaw persists pre-encoded bytes and publishes the change event.
func (s *Store) SetRaw(ctx context.Context, key string, raw []byte) error {
	if s.isClosed() {
		return core.ErrClosed
	}

	now := time.Now()
	if err := s.engine.Set(ctx, key, raw, now); err != nil {
		return err
	}

	s.bus.Publish(core.Event{
		Type:      core.EventSet,
		Key:       key,
		Value:     raw,
		Timestamp: now.Unix(),
	})
	return nil
}

// Persist writes pre-encoded bytes without publishing an event. The reactive
// layer uses it for deferred writes whose change event was already published
// optimistically at save time.
func (s *Store) Persist(ctx context.Context, key string, raw []byte) error {
	if s.isClosed() {
		return core.ErrClosed
	}
	return s.engine.Set(ctx, key, raw, time.Now())
}

// Publish forwards an event to the store's bus.
func (s *Store) Publish(ev core.Event) {
	s.bus.Publish(ev)
}

// Remove deletes a key and publishes the change event. Idempotent.
func (s *Store) Remove(ctx context.Context, key string) error {
	if s.isClosed() {
		return core.ErrClosed
	}

	if err := s.engine.Remove(ctx, key); err != nil {
		return err
	}

	s.bus.Publish(core.Event{
		Type:      core.EventRemove,
		Key:       key,
		Timestamp: time.Now().Unix(),
	})
	return nil
}

// SetBatch persists records best-effort and publishes one event per record on
// success. On a mid-batch failure no events are published, even though the
// engine may have applied a prefix of the batch.
func (s *Store) SetBatch(ctx context.Context, records []core.Record) error {
	if s.isClosed() {
		return core.ErrClosed
	}

	if err := s.engine.SetBatch(ctx, records); err != nil {
		return err
	}

	for _, rec := range records {
		s.bus.Publish(core.Event{
			Type:      core.EventImport,
			Key:       rec.Key,
			Value:     rec.Value,
			Timestamp: rec.Timestamp.Unix(),
		})
	}
	return nil
}

// Keys lists every stored key.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if s.isClosed() {
		return nil, core.ErrClosed
	}
	return s.engine.Keys(ctx)
}

// Subscribe registers a handler for change events matching the key pattern.
func (s *Store) Subscribe(pattern string, fn core.Handler) (cancel func()) {
	return s.bus.Subscribe(pattern, fn)
}

// Close closes the store and its engine. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.engine.Close()
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

var _ core.Store = (*Store)(nil)

// OpenEngine returns the first engine whose constructor succeeds, in order.
// This is the whole fallback story: selection happens once, the losing engines
// are never consulted again during the session.
func OpenEngine(logger *slog.Logger, constructors ...func() (core.Engine, error)) (core.Engine, error) {
	var lastErr error
	for i, construct := range constructors {
		engine, err := construct()
		if err == nil {
			if i > 0 && logger != nil {
				logger.Warn("primary engine unavailable, falling back", "attempts", i+1, "error", lastErr)
			}
			return engine, nil
		}
		lastErr = err
		if logger != nil {
			logger.Warn("engine failed to open", "error", err)
		}
	}
	return nil, fmt.Errorf("no engine available: %w", lastErr)
}

// MigrateIfEmpty copies every record from src into dst when dst holds no keys
// yet. It runs at open time so a legacy dataset (e.g. flat files from an older
// install) seeds the authoritative engine exactly once.
func MigrateIfEmpty(ctx context.Context, dst, src core.Engine, logger *slog.Logger) error {
	dstKeys, err := dst.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect destination: %w", err)
	}
	if len(dstKeys) > 0 {
		return nil // destination already authoritative
	}

	srcKeys, err := src.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect source: %w", err)
	}
	if len(srcKeys) == 0 {
		return nil
	}

	records := make([]core.Record, 0, len(srcKeys))
	for _, key := range srcKeys {
		value, ok, err := src.Get(ctx, key)
		if err != nil || !ok {
			continue // skip unreadable legacy entries
		}
		records = append(records, core.Record{Key: key, Value: value, Timestamp: time.Now()})
	}

	if err := dst.SetBatch(ctx, records); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if logger != nil {
		logger.Info("migrated legacy records", "count", len(records))
	}
	return nil
}
