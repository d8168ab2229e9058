package platform

import (
	"log/slog"
	"time"

	"github.com/barflowtrack/barflow/pkg/core"
	"github.com/barflowtrack/barflow/pkg/outbox"
)

// options holds the internal configuration assembled from the config file and
// the explicit Option calls. Explicit options win.
type options struct {
	logger *slog.Logger

	engineName string      // "sqlite" or "file"
	engine     core.Engine // injected; skips file/sqlite selection entirely
	migrate    bool        // seed a fresh database from legacy flat files
	watch      bool        // forward external file modifications into the bus

	remote      outbox.Remote
	remoteURL   string
	remoteToken string

	drainInterval time.Duration
	alertInterval time.Duration
	alertHorizon  time.Duration
}

// Option defines a functional option for configuring the app.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		engineName: "sqlite",
		migrate:    true,
	}
}

// apply layers the config file under the defaults, then the explicit options
// on top.
func (o *options) apply(cfg Config, opts []Option) {
	if cfg.Engine != "" {
		o.engineName = cfg.Engine
	}
	o.remoteURL = cfg.Remote.URL
	o.remoteToken = cfg.Remote.Token
	o.drainInterval = cfg.Sync.Interval
	o.alertInterval = cfg.Alerts.Interval
	o.alertHorizon = cfg.Alerts.Horizon

	for _, opt := range opts {
		opt(o)
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEngine selects the storage engine by name ("sqlite" or "file").
func WithEngine(name string) Option {
	return func(o *options) { o.engineName = name }
}

// WithStorageEngine injects a custom engine (e.g. a mock). The named engine
// selection and the legacy migration are skipped.
func WithStorageEngine(engine core.Engine) Option {
	return func(o *options) { o.engine = engine }
}

// WithMigration controls the one-time seed of a fresh database from legacy
// flat files found in the data directory. Enabled by default.
func WithMigration(enabled bool) Option {
	return func(o *options) { o.migrate = enabled }
}

// WithWatcher forwards externally observed storage modifications into the
// event bus. Only engines that can watch their backing storage honor it (the
// file engine via fsnotify); others ignore it.
func WithWatcher(enabled bool) Option {
	return func(o *options) { o.watch = enabled }
}

// WithRemote injects the sync backend. Takes precedence over WithRemoteURL.
func WithRemote(remote outbox.Remote) Option {
	return func(o *options) { o.remote = remote }
}

// WithRemoteURL points the sync queue at an HTTP backend.
func WithRemoteURL(url, token string) Option {
	return func(o *options) {
		o.remoteURL = url
		o.remoteToken = token
	}
}

// WithDrainInterval sets how often the sync queue drains in the background.
func WithDrainInterval(d time.Duration) Option {
	return func(o *options) { o.drainInterval = d }
}

// WithAlertInterval sets how often notifications are recomputed on the timer.
func WithAlertInterval(d time.Duration) Option {
	return func(o *options) { o.alertInterval = d }
}

// WithAlertHorizon sets how far ahead stock projections warn.
func WithAlertHorizon(d time.Duration) Option {
	return func(o *options) { o.alertHorizon = d }
}
