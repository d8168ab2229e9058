package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/barflowtrack/barflow/pkg/core"
)

// watchWorker observes the data directory for modifications made by other
// processes (editors, a second app instance) and forwards them as change
// events, so subscribers stay in sync without polling.
type watchWorker struct {
	*worker.BaseWorker
	engine    *Engine
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(engine *Engine, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("file-watcher"),
		engine:     engine,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.engine.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.engine.path, err)
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(50 * time.Millisecond)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// run is the main event loop for the watcher worker.
func (w *watchWorker) run(ctx context.Context) error {
	defer w.watcher.Close()

	err := w.loop(ctx)

	// Stop accepting new events and wait for in-flight debounce timers, so
	// nothing races the events channel during shutdown.
	w.debouncer.stopAndWait(5 * time.Second)

	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			if w.engine.logger != nil {
				w.engine.logger.Error("fsnotify error", "error", wErr)
			}
		}
	}
}

// handle filters, maps, and debounces a single filesystem event.
func (w *watchWorker) handle(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, TempFilePrefix) || filepath.Ext(name) != envelopeExt {
		return
	}
	key := strings.TrimSuffix(name, envelopeExt)

	var eType core.EventType
	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		eType = core.EventSet
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		eType = core.EventRemove
	default:
		return
	}

	w.debouncer.add(core.Event{
		Type:      eType,
		Key:       key,
		Timestamp: time.Now().Unix(),
	}, func(e core.Event) {
		// Attach the current value so subscribers receive the payload they
		// would have gotten from an in-process write.
		if e.Type == core.EventSet {
			if value, ok, err := w.engine.Get(ctx, e.Key); err == nil && ok {
				e.Value = value
			}
		}
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

// Watch emits an event for every externally observed change to the data
// directory until the context is cancelled.
func (e *Engine) Watch(ctx context.Context) (<-chan core.Event, error) {
	events := make(chan core.Event, 100)

	w := newWatchWorker(e, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = w.Stop(stopCtx)
	}()

	return events, nil
}

var _ core.Watchable = (*Engine)(nil)
