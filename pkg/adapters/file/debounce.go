package file

import (
	"sync"
	"time"

	"github.com/barflowtrack/barflow/pkg/core"
)

// debouncer coalesces bursts of events per key: editors and atomic renames
// produce several filesystem events for one logical write.
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]core.Event
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]core.Event),
	}
}

// add schedules the event for emission after the quiet window. A newer event
// for the same key replaces the pending one and restarts the timer.
func (d *debouncer) add(ev core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending[ev.Key] = ev

	if timer, ok := d.timers[ev.Key]; ok && timer.Stop() {
		// The pending fire was cancelled; its wait slot transfers to the
		// replacement timer. A timer that already fired (or is firing) keeps
		// its own slot and the replacement gets a fresh one.
	} else {
		d.wg.Add(1)
	}
	d.timers[ev.Key] = time.AfterFunc(d.window, func() {
		defer d.wg.Done()

		d.mu.Lock()
		latest, ok := d.pending[ev.Key]
		delete(d.pending, ev.Key)
		delete(d.timers, ev.Key)
		d.mu.Unlock()

		// In-flight timers still emit during shutdown; stopAndWait waits for
		// them before the caller tears the channel down.
		if ok {
			emit(latest)
		}
	})
}

// stopAndWait rejects new events and waits for in-flight timers to finish,
// up to the given timeout.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
