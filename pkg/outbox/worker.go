package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"

	"github.com/barflowtrack/barflow/pkg/core"
)

// Start runs the drain worker until the context is cancelled. It drains on a
// fixed interval, and eagerly whenever the outbox is nudged (an enqueue while
// online, or an offline-to-online transition).
func (o *Outbox) Start(ctx context.Context) {
	lifecycle.Go(ctx, o.run, lifecycle.WithErrorHandler(func(err error) {
		if o.logger != nil {
			o.logger.Error("drain worker stopped", "error", err)
		}
	}))
}

func (o *Outbox) run(ctx context.Context) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-o.kick:
		}

		if _, err := o.Drain(ctx); err != nil && err != core.ErrOffline {
			if o.logger != nil {
				o.logger.Warn("drain cycle failed", "error", err)
			}
		}
	}
}

// OutboxState exposes internal state for observability.
type OutboxState struct {
	Online   bool   `json:"online"`
	Interval string `json:"interval"`
}

// State implements introspection.Introspectable.
func (o *Outbox) State() any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return OutboxState{
		Online:   o.online,
		Interval: fmt.Sprint(o.interval),
	}
}

// ComponentType implements introspection.Component.
func (o *Outbox) ComponentType() string {
	return "outbox"
}

var _ introspection.Introspectable = (*Outbox)(nil)
var _ introspection.Component = (*Outbox)(nil)
