package barflow

import (
	"log/slog"
	"time"

	"github.com/barflowtrack/barflow/internal/platform"
	"github.com/barflowtrack/barflow/pkg/core"
	"github.com/barflowtrack/barflow/pkg/outbox"
	"github.com/barflowtrack/barflow/pkg/reactive"
	"github.com/barflowtrack/barflow/pkg/typed"
)

// --- Types ---

// App is the assembled local core.
type App = platform.App

// Event is a change notification for one key.
type Event = core.Event

// Notification is a derived alert surfaced to the user-facing layer.
type Notification = core.Notification

// SyncItem is one pending remote mutation in the offline outbox.
type SyncItem = core.SyncItem

// Binding is a public alias for the reactive key binding.
type Binding[T any] = reactive.Binding[T]

// Repository is a public alias for the typed collection repository.
type Repository[T any] = typed.Repository[T]

// --- Errors ---

var (
	// ErrClosed is returned by operations on a closed store or binding.
	ErrClosed = core.ErrClosed
	// ErrQueueFull is returned by Save when the write cannot even be queued.
	ErrQueueFull = core.ErrQueueFull
	// ErrOffline is returned by Drain while connectivity is off.
	ErrOffline = core.ErrOffline
)

// --- Configuration ---

// Option defines a functional option for configuring the app.
type Option = platform.Option

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithEngine selects the storage engine by name ("sqlite" or "file").
func WithEngine(name string) Option {
	return platform.WithEngine(name)
}

// WithStorageEngine injects a custom engine (e.g. a mock).
func WithStorageEngine(engine core.Engine) Option {
	return platform.WithStorageEngine(engine)
}

// WithMigration controls the one-time seed of a fresh database from legacy
// flat-file records.
func WithMigration(enabled bool) Option {
	return platform.WithMigration(enabled)
}

// WithWatcher forwards externally observed storage modifications into the
// event bus (file engine only).
func WithWatcher(enabled bool) Option {
	return platform.WithWatcher(enabled)
}

// WithRemote injects the sync backend.
func WithRemote(remote outbox.Remote) Option {
	return platform.WithRemote(remote)
}

// WithRemoteURL points the sync queue at an HTTP backend.
func WithRemoteURL(url, token string) Option {
	return platform.WithRemoteURL(url, token)
}

// WithDrainInterval sets how often the sync queue drains in the background.
func WithDrainInterval(d time.Duration) Option {
	return platform.WithDrainInterval(d)
}

// WithAlertInterval sets how often notifications are recomputed on the timer.
func WithAlertInterval(d time.Duration) Option {
	return platform.WithAlertInterval(d)
}

// WithAlertHorizon sets how far ahead stock projections warn.
func WithAlertHorizon(d time.Duration) Option {
	return platform.WithAlertHorizon(d)
}

// --- Factory ---

// Open assembles an app rooted at the given data directory.
func Open(dir string, opts ...Option) (*App, error) {
	return platform.Open(dir, opts...)
}

// FindRoot looks upwards from startDir for an existing data directory.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// --- Reactive bindings ---

// Bind creates a reactive binding for one key with a fallback default value.
// The binding registers itself with the app so Close flushes its pending
// writes before the store shuts down.
func Bind[T any](app *App, key string, fallback T, opts ...reactive.Option) *Binding[T] {
	b := reactive.NewBinding(app.Store, key, fallback, opts...)
	app.AddCloser(b)
	return b
}

// --- Typed collections ---

// Collection creates a typed view of one collection key, with mutations fed
// into the sync outbox.
func Collection[T any](app *App, key string, id func(T) string) *Repository[T] {
	return typed.NewRepository(app.Store, key, id).WithOutbox(app.Outbox)
}

// Inventory is the typed view of the inventory collection.
func Inventory(app *App) *Repository[core.InventoryItem] {
	return Collection(app, core.KeyInventory, func(i core.InventoryItem) string { return i.ID })
}

// Sales is the typed view of the sales collection.
func Sales(app *App) *Repository[core.Sale] {
	return Collection(app, core.KeySales, func(s core.Sale) string { return s.ID })
}
