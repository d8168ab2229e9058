// Package outbox implements the offline sync queue: an ordered, locally
// persisted list of remote mutations, drained when connectivity allows.
//
// Delivery is at-least-once. Every item carries a client-generated idempotency
// key so the remote can deduplicate retried deliveries; a failed item simply
// stays queued for the next drain cycle, without blocking the items behind it.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/barflowtrack/barflow/pkg/core"
)

// Storage is the slice of the store the outbox persists itself through.
type Storage interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Report summarizes one drain cycle. The user-facing layer should surface a
// notice only when Failed is non-empty.
type Report struct {
	SuccessCount int
	Failed       []core.SyncItem
}

// Noteworthy reports whether the cycle deserves a user-visible notice.
func (r Report) Noteworthy() bool {
	return len(r.Failed) > 0
}

// Option configures the outbox.
type Option func(*Outbox)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Outbox) { o.logger = logger }
}

// WithInterval sets the periodic drain interval.
func WithInterval(d time.Duration) Option {
	return func(o *Outbox) { o.interval = d }
}

// DefaultInterval between periodic drains.
const DefaultInterval = 30 * time.Second

// Outbox is the persisted queue of pending remote mutations.
type Outbox struct {
	store    Storage
	remote   Remote
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	online bool

	// kick wakes the drain worker eagerly (enqueue while online, or an
	// offline->online transition). Buffered, so signalling never blocks.
	kick chan struct{}
}

// New creates an outbox persisted via the store under the reserved sync queue
// key. The outbox starts online.
func New(store Storage, remote Remote, opts ...Option) *Outbox {
	o := &Outbox{
		store:    store,
		remote:   remote,
		interval: DefaultInterval,
		online:   true,
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enqueue appends a new sync item to the persisted queue. It always succeeds
// locally; no network is involved. While online, the drain worker is nudged.
func (o *Outbox) Enqueue(ctx context.Context, table string, op core.Operation, data json.RawMessage) (core.SyncItem, error) {
	item := core.SyncItem{
		ID:             uuid.NewString(),
		Table:          table,
		Op:             op,
		Data:           data,
		Timestamp:      time.Now(),
		IdempotencyKey: uuid.NewString(),
	}

	o.mu.Lock()
	items, err := o.load(ctx)
	if err == nil {
		err = o.save(ctx, append(items, item))
	}
	online := o.online
	o.mu.Unlock()

	if err != nil {
		return core.SyncItem{}, fmt.Errorf("failed to enqueue %s/%s: %w", table, op, err)
	}

	if online {
		o.nudge()
	}
	return item, nil
}

// Items returns the currently queued sync items in insertion order.
func (o *Outbox) Items(ctx context.Context) ([]core.SyncItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.load(ctx)
}

// SetOnline records connectivity. An offline-to-online transition nudges the
// drain worker.
func (o *Outbox) SetOnline(online bool) {
	o.mu.Lock()
	wasOffline := !o.online
	o.online = online
	o.mu.Unlock()

	if online && wasOffline {
		o.nudge()
	}
}

// Online reports the current connectivity flag.
func (o *Outbox) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// Drain attempts to apply every currently queued item, in insertion order.
// Each item is attempted independently: a failure is kept for the next cycle
// and does not block the items behind it. At the end of the cycle the queue is
// rewritten to the failed items (plus anything enqueued mid-cycle).
func (o *Outbox) Drain(ctx context.Context) (Report, error) {
	o.mu.Lock()
	if !o.online {
		o.mu.Unlock()
		return Report{}, core.ErrOffline
	}
	snapshot, err := o.load(ctx)
	o.mu.Unlock()
	if err != nil {
		return Report{}, err
	}
	if len(snapshot) == 0 {
		return Report{}, nil
	}

	attempted := make(map[string]bool, len(snapshot))
	var report Report
	for _, item := range snapshot {
		attempted[item.ID] = true
		if err := o.remote.Apply(ctx, item); err != nil {
			if o.logger != nil {
				o.logger.Warn("sync item failed, keeping for next cycle",
					"id", item.ID, "table", item.Table, "op", item.Op, "error", err)
			}
			report.Failed = append(report.Failed, item)
			continue
		}
		report.SuccessCount++
	}

	// Rewrite the queue: failures first (original order), then whatever was
	// enqueued while we were draining.
	o.mu.Lock()
	defer o.mu.Unlock()

	current, err := o.load(ctx)
	if err != nil {
		return report, err
	}
	next := append([]core.SyncItem(nil), report.Failed...)
	for _, item := range current {
		if !attempted[item.ID] {
			next = append(next, item)
		}
	}
	if err := o.save(ctx, next); err != nil {
		return report, fmt.Errorf("failed to rewrite queue: %w", err)
	}

	if o.logger != nil {
		o.logger.Info("drain cycle finished",
			"success", report.SuccessCount, "failed", len(report.Failed))
	}
	return report, nil
}

func (o *Outbox) nudge() {
	select {
	case o.kick <- struct{}{}:
	default:
	}
}

// load reads the persisted queue; an absent or unreadable queue starts empty.
func (o *Outbox) load(ctx context.Context) ([]core.SyncItem, error) {
	var items []core.SyncItem
	if _, err := o.store.Get(ctx, core.KeySyncQueue, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (o *Outbox) save(ctx context.Context, items []core.SyncItem) error {
	if items == nil {
		items = []core.SyncItem{}
	}
	return o.store.Set(ctx, core.KeySyncQueue, items)
}
