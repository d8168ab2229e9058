// Package typed provides type-safe collection views over the raw key/value
// store. A Repository binds one well-known key holding a JSON array to a Go
// element type, and optionally feeds local mutations into the sync outbox.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/barflowtrack/barflow/pkg/core"
)

// Store is the slice of the key/value store a repository needs.
type Store interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Subscribe(pattern string, fn core.Handler) (cancel func())
}

// Enqueuer accepts mutations for eventual remote delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, table string, op core.Operation, data json.RawMessage) (core.SyncItem, error)
}

// Repository is a typed view of one collection key. Elements are identified
// by the id function given at construction; Upsert replaces by identity.
type Repository[T any] struct {
	store Store
	key   string
	id    func(T) string

	// Optional; when set, mutations are queued for remote sync as well.
	outbox Enqueuer
}

// NewRepository binds a collection key to an element type. id extracts the
// element identity used by Find, Upsert and Delete.
func NewRepository[T any](store Store, key string, id func(T) string) *Repository[T] {
	return &Repository[T]{store: store, key: key, id: id}
}

// WithOutbox makes mutations also enqueue sync items for the remote.
func (r *Repository[T]) WithOutbox(outbox Enqueuer) *Repository[T] {
	r.outbox = outbox
	return r
}

// List returns all elements of the collection. A missing key is an empty
// collection, not an error.
func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if _, err := r.store.Get(ctx, r.key, &items); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", r.key, err)
	}
	return items, nil
}

// Find returns the element with the given identity.
func (r *Repository[T]) Find(ctx context.Context, id string) (T, bool, error) {
	var zero T
	items, err := r.List(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, item := range items {
		if r.id(item) == id {
			return item, true, nil
		}
	}
	return zero, false, nil
}

// Upsert inserts the element or replaces the one sharing its identity.
func (r *Repository[T]) Upsert(ctx context.Context, item T) error {
	items, err := r.List(ctx)
	if err != nil {
		return err
	}

	op := core.OpInsert
	replaced := false
	for i := range items {
		if r.id(items[i]) == r.id(item) {
			items[i] = item
			op = core.OpUpdate
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}

	if err := r.store.Set(ctx, r.key, items); err != nil {
		return err
	}
	return r.enqueue(ctx, op, item)
}

// Delete removes the element with the given identity. Deleting an absent
// element is a no-op.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	items, err := r.List(ctx)
	if err != nil {
		return err
	}

	var removed *T
	kept := items[:0]
	for _, item := range items {
		if r.id(item) == id {
			item := item
			removed = &item
			continue
		}
		kept = append(kept, item)
	}
	if removed == nil {
		return nil
	}

	if err := r.store.Set(ctx, r.key, kept); err != nil {
		return err
	}
	return r.enqueue(ctx, core.OpDelete, *removed)
}

// Replace overwrites the whole collection, for bulk imports.
func (r *Repository[T]) Replace(ctx context.Context, items []T) error {
	return r.store.Set(ctx, r.key, items)
}

// Watch invokes fn for every change to the collection key until cancel is
// called. Events carry the raw new value; callers wanting the typed view
// re-read through List.
func (r *Repository[T]) Watch(fn core.Handler) (cancel func()) {
	return r.store.Subscribe(r.key, fn)
}

func (r *Repository[T]) enqueue(ctx context.Context, op core.Operation, item T) error {
	if r.outbox == nil {
		return nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal %s element: %w", r.key, err)
	}
	if _, err := r.outbox.Enqueue(ctx, r.key, op, data); err != nil {
		return fmt.Errorf("failed to queue %s for sync: %w", r.key, err)
	}
	return nil
}

// Decode is a helper for Watch callbacks: it unmarshals an event's raw value
// into the typed collection shape.
func Decode[T any](ev core.Event) ([]T, error) {
	if len(ev.Value) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(ev.Value, &items); err != nil {
		return nil, fmt.Errorf("failed to decode event value: %w", err)
	}
	return items, nil
}
