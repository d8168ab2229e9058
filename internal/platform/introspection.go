package platform

import (
	"github.com/aretw0/introspection"
)

// AppState aggregates the observable state of every component.
type AppState struct {
	Store  any `json:"store"`
	Outbox any `json:"outbox"`
}

// State implements introspection.Introspectable.
func (a *App) State() any {
	return AppState{
		Store:  a.Store.State(),
		Outbox: a.Outbox.State(),
	}
}

// ComponentType implements introspection.Component.
func (a *App) ComponentType() string {
	return "app"
}

var _ introspection.Introspectable = (*App)(nil)
var _ introspection.Component = (*App)(nil)
