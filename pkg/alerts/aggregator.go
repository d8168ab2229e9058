// Package alerts recomputes derived notifications (low stock, out of stock,
// stock projections) from the current store snapshot. Recomputation is pure:
// its only side effect is rewriting the notifications key, and an unread
// notification with the same (type, related item) identity is never duplicated.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/barflowtrack/barflow/pkg/core"
)

// DefaultInterval between timed recomputations.
const DefaultInterval = 5 * time.Minute

// DefaultHorizon is how far ahead the projection rule warns.
const DefaultHorizon = 7 * 24 * time.Hour

// Storage is the slice of the store the aggregator works against.
type Storage interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Subscribe(pattern string, fn core.Handler) (cancel func())
}

// Option configures the aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

// WithInterval sets the timed recomputation interval.
func WithInterval(d time.Duration) Option {
	return func(a *Aggregator) { a.interval = d }
}

// WithHorizon sets the projection warning horizon.
func WithHorizon(d time.Duration) Option {
	return func(a *Aggregator) { a.horizon = d }
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator derives notifications from the store snapshot.
type Aggregator struct {
	store    Storage
	logger   *slog.Logger
	interval time.Duration
	horizon  time.Duration
	now      func() time.Time

	// Serializes recomputation; event bursts and the timer may overlap.
	mu sync.Mutex

	kick chan struct{}
}

// New creates an aggregator over the store.
func New(store Storage, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:    store,
		interval: DefaultInterval,
		horizon:  DefaultHorizon,
		now:      time.Now,
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recompute derives notifications from the current snapshot and merges them
// into the stored list. It returns the newly surfaced notifications.
func (a *Aggregator) Recompute(ctx context.Context) ([]core.Notification, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()

	var items []core.InventoryItem
	if _, err := a.store.Get(ctx, core.KeyInventory, &items); err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	var history []core.HistoryEntry
	if _, err := a.store.Get(ctx, core.KeyInventoryHistory, &history); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	existing, err := a.load(ctx, now)
	if err != nil {
		return nil, err
	}

	// Identity index of unread notifications; candidates colliding with an
	// unread twin are dropped, so recomputing from an unchanged snapshot is
	// a no-op.
	unread := make(map[identity]bool, len(existing))
	for _, n := range existing {
		if !n.Read {
			unread[identity{n.Type, n.RelatedItemID}] = true
		}
	}

	candidates := lowStockRule(items, now)
	candidates = append(candidates, projectionRule(items, history, a.horizon, now)...)

	var added []core.Notification
	for _, candidate := range candidates {
		id := identity{candidate.Type, candidate.RelatedItemID}
		if unread[id] {
			continue
		}
		unread[id] = true
		added = append(added, candidate)
	}

	if len(added) == 0 && len(existing) == 0 {
		return nil, nil
	}

	merged := append(existing, added...)
	if err := a.store.Set(ctx, core.KeyNotifications, merged); err != nil {
		return nil, fmt.Errorf("failed to store notifications: %w", err)
	}

	if a.logger != nil && len(added) > 0 {
		a.logger.Info("surfaced notifications", "count", len(added))
	}
	return added, nil
}

// Notifications returns the stored notifications, dropping expired and
// malformed entries lazily.
func (a *Aggregator) Notifications(ctx context.Context) ([]core.Notification, error) {
	return a.load(ctx, a.now())
}

// MarkRead flags a notification as read.
func (a *Aggregator) MarkRead(ctx context.Context, id string) error {
	return a.update(ctx, func(list []core.Notification) ([]core.Notification, error) {
		for i := range list {
			if list[i].ID == id {
				list[i].Read = true
				return list, nil
			}
		}
		return nil, fmt.Errorf("notification not found: %s", id)
	})
}

// Dismiss removes a notification entirely.
func (a *Aggregator) Dismiss(ctx context.Context, id string) error {
	return a.update(ctx, func(list []core.Notification) ([]core.Notification, error) {
		for i := range list {
			if list[i].ID == id {
				return append(list[:i], list[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("notification not found: %s", id)
	})
}

// Start subscribes to the keys the rules depend on and recomputes on changes
// and on the fixed interval, until the context is cancelled.
func (a *Aggregator) Start(ctx context.Context) {
	cancelSub := a.store.Subscribe("{inventory,inventoryHistory,sales}", func(core.Event) {
		select {
		case a.kick <- struct{}{}:
		default:
		}
	})

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer cancelSub()

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			case <-a.kick:
			}

			if _, err := a.Recompute(ctx); err != nil {
				if a.logger != nil {
					a.logger.Warn("recompute failed", "error", err)
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		if a.logger != nil {
			a.logger.Error("aggregator worker stopped", "error", err)
		}
	}))
}

type identity struct {
	typ    string
	itemID string
}

// load reads the stored notifications, silently filtering invalid records and
// lazily dropping expired ones.
func (a *Aggregator) load(ctx context.Context, now time.Time) ([]core.Notification, error) {
	var stored []core.Notification
	if _, err := a.store.Get(ctx, core.KeyNotifications, &stored); err != nil {
		return nil, err
	}

	kept := stored[:0]
	for _, n := range stored {
		if !n.Valid() || n.Expired(now) {
			continue
		}
		kept = append(kept, n)
	}
	return kept, nil
}

func (a *Aggregator) update(ctx context.Context, fn func([]core.Notification) ([]core.Notification, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	list, err := a.load(ctx, a.now())
	if err != nil {
		return err
	}
	next, err := fn(list)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, core.KeyNotifications, next)
}
