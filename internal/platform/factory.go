// Package platform wires the storage engine, event bus, reactive layer, sync
// outbox and alert aggregator into one app. It is the only package that knows
// how the pieces fit together; the root package re-exports its surface.
package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/barflowtrack/barflow/pkg/adapters/file"
	"github.com/barflowtrack/barflow/pkg/adapters/sqlite"
	"github.com/barflowtrack/barflow/pkg/alerts"
	"github.com/barflowtrack/barflow/pkg/bus"
	"github.com/barflowtrack/barflow/pkg/core"
	"github.com/barflowtrack/barflow/pkg/kv"
	"github.com/barflowtrack/barflow/pkg/outbox"
)

// DatabaseFileName is the sqlite database inside the data directory.
const DatabaseFileName = "barflow.db"

// RecordsDirName holds the flat-file records, used by the file engine and as
// the legacy migration source for a fresh database.
const RecordsDirName = "records"

// App is the assembled local core: one store, one bus, one outbox, one alert
// aggregator, all sharing the same engine underneath.
type App struct {
	Store  *kv.Store
	Bus    *bus.Bus
	Outbox *outbox.Outbox
	Alerts *alerts.Aggregator

	engine core.Engine
	watch  bool
	logger *slog.Logger

	cancel  context.CancelFunc
	started bool

	mu      sync.Mutex
	closers []io.Closer
	closed  bool
}

// Open assembles an app rooted at the given data directory. The directory and
// its config file are created lazily; a missing config means defaults.
func Open(dir string, opts ...Option) (*App, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	o.apply(cfg, opts)

	engine, err := openEngine(dir, o)
	if err != nil {
		return nil, err
	}

	b := bus.New(o.logger)
	store := kv.NewStore(engine, b, o.logger)

	remote := o.remote
	if remote == nil && o.remoteURL != "" {
		remote = outbox.NewHTTPRemote(o.remoteURL, o.remoteToken)
	}

	var outboxOpts []outbox.Option
	if o.logger != nil {
		outboxOpts = append(outboxOpts, outbox.WithLogger(o.logger))
	}
	if o.drainInterval > 0 {
		outboxOpts = append(outboxOpts, outbox.WithInterval(o.drainInterval))
	}
	if remote == nil {
		// No backend configured: the queue still accumulates locally, it just
		// never drains until a remote shows up on the next open.
		remote = outbox.RemoteFunc(func(context.Context, core.SyncItem) error {
			return core.ErrOffline
		})
	}
	ob := outbox.New(store, remote, outboxOpts...)
	if o.remote == nil && o.remoteURL == "" {
		ob.SetOnline(false)
	}

	var alertOpts []alerts.Option
	if o.logger != nil {
		alertOpts = append(alertOpts, alerts.WithLogger(o.logger))
	}
	if o.alertInterval > 0 {
		alertOpts = append(alertOpts, alerts.WithInterval(o.alertInterval))
	}
	if o.alertHorizon > 0 {
		alertOpts = append(alertOpts, alerts.WithHorizon(o.alertHorizon))
	}

	return &App{
		Store:  store,
		Bus:    b,
		Outbox: ob,
		Alerts: alerts.New(store, alertOpts...),
		engine: engine,
		watch:  o.watch,
		logger: o.logger,
	}, nil
}

// openEngine selects the storage backend. With the default sqlite engine, a
// fresh database is seeded once from legacy flat-file records if any exist.
func openEngine(dir string, o *options) (core.Engine, error) {
	if o.engine != nil {
		return o.engine, nil
	}

	sqlitePath := filepath.Join(dir, DatabaseFileName)
	recordsPath := filepath.Join(dir, RecordsDirName)

	openSQLite := func() (core.Engine, error) {
		return sqlite.New(sqlite.Config{Path: sqlitePath, Logger: o.logger})
	}
	openFile := func() (core.Engine, error) {
		return file.New(file.Config{Path: recordsPath, Logger: o.logger})
	}

	switch o.engineName {
	case "sqlite":
		engine, err := kv.OpenEngine(o.logger, openSQLite, openFile)
		if err != nil {
			return nil, err
		}
		if db, ok := engine.(*sqlite.Engine); ok && o.migrate {
			if err := migrateLegacy(db, recordsPath, o); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return engine, nil
	case "file":
		return kv.OpenEngine(o.logger, openFile, openSQLite)
	default:
		return nil, fmt.Errorf("unknown engine: %s", o.engineName)
	}
}

// migrateLegacy seeds a fresh database from flat-file records left behind by
// an earlier install. No-op when the records directory is absent or the
// database already holds data.
func migrateLegacy(dst core.Engine, recordsPath string, o *options) error {
	if _, err := os.Stat(recordsPath); err != nil {
		return nil
	}

	src, err := file.New(file.Config{Path: recordsPath, Logger: o.logger})
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("legacy records unreadable, skipping migration", "error", err)
		}
		return nil
	}
	defer src.Close()

	return kv.MigrateIfEmpty(context.Background(), dst, src, o.logger)
}

// Start launches the background workers: the sync queue drain loop and the
// alert recomputation loop. They stop when ctx is cancelled or the app closes.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.closed {
		return
	}
	a.started = true

	ctx, a.cancel = context.WithCancel(ctx)
	a.Outbox.Start(ctx)
	a.Alerts.Start(ctx)

	if a.watch {
		a.startWatcher(ctx)
	}
}

// startWatcher forwards externally observed storage modifications into the
// bus, for engines that can watch their backing storage.
func (a *App) startWatcher(ctx context.Context) {
	watchable, ok := a.engine.(core.Watchable)
	if !ok {
		if a.logger != nil {
			a.logger.Debug("engine cannot watch its storage, watcher disabled")
		}
		return
	}

	events, err := watchable.Watch(ctx)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("failed to start storage watcher", "error", err)
		}
		return
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				a.Bus.Publish(ev)
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		if a.logger != nil {
			a.logger.Error("storage watcher stopped", "error", err)
		}
	}))
}

// AddCloser registers a component to flush before the store closes. Bindings
// register themselves here so their pending writes land.
func (a *App) AddCloser(c io.Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, c)
}

// Close flushes registered components, stops the workers, and closes the
// store. Idempotent.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	closers := a.closers
	a.closers = nil
	cancel := a.cancel
	a.mu.Unlock()

	var firstErr error
	for _, c := range closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if cancel != nil {
		cancel()
	}

	if err := a.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
