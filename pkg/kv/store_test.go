package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barflowtrack/barflow/pkg/adapters/file"
	"github.com/barflowtrack/barflow/pkg/bus"
	"github.com/barflowtrack/barflow/pkg/core"
)

func newTestStore(t *testing.T) (*Store, *bus.Bus) {
	t.Helper()
	engine, err := file.New(file.Config{Path: t.TempDir()})
	require.NoError(t, err)
	b := bus.New(nil)
	store := NewStore(engine, b, nil)
	t.Cleanup(func() { _ = store.Close() })
	return store, b
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	items := []core.InventoryItem{{ID: "a1", Name: "Gin", Quantity: 3, Threshold: 5}}
	require.NoError(t, store.Set(ctx, core.KeyInventory, items))

	var got []core.InventoryItem
	ok, err := store.Get(ctx, core.KeyInventory, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, items, got)
}

func TestStore_GetDegradesToDefault(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	t.Run("Absent Key", func(t *testing.T) {
		var out []core.InventoryItem
		ok, err := store.Get(ctx, "missing", &out)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Undecodable Value", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "settings", "just a string"))

		var out map[string]string
		ok, err := store.Get(ctx, "settings", &out)
		require.NoError(t, err, "decode failures are swallowed")
		assert.False(t, ok)
	})
}

func TestStore_PublishesChangeEvents(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	var events []core.Event
	cancel := store.Subscribe(core.KeyInventory, func(ev core.Event) {
		events = append(events, ev)
	})
	defer cancel()

	require.NoError(t, store.Set(ctx, core.KeyInventory, []string{"a"}))
	require.NoError(t, store.Remove(ctx, core.KeyInventory))

	require.Len(t, events, 2)
	assert.Equal(t, core.EventSet, events[0].Type)
	assert.JSONEq(t, `["a"]`, string(events[0].Value))
	assert.Equal(t, core.EventRemove, events[1].Type)
}

func TestStore_SetBatchPublishesImportEvents(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	var keys []string
	cancel := store.Subscribe("**", func(ev core.Event) {
		require.Equal(t, core.EventImport, ev.Type)
		keys = append(keys, ev.Key)
	})
	defer cancel()

	now := time.Now()
	err := store.SetBatch(ctx, []core.Record{
		{Key: "inventory", Value: []byte(`[]`), Timestamp: now},
		{Key: "sales", Value: []byte(`[]`), Timestamp: now},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inventory", "sales"}, keys)
}

func TestStore_Closed(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close()) // idempotent

	err := store.Set(context.Background(), "k", 1)
	assert.ErrorIs(t, err, core.ErrClosed)
}

// failingEngine always refuses to open; it stands in for an unavailable
// primary backend.
func failingEngine() (core.Engine, error) {
	return nil, errors.New("disk on fire")
}

func TestOpenEngine_FallbackRoundTrip(t *testing.T) {
	// With the primary permanently broken, the session runs on the fallback
	// engine and set-then-get round-trips a deep-equal value.
	ctx := context.Background()
	dir := t.TempDir()

	engine, err := OpenEngine(nil,
		failingEngine,
		func() (core.Engine, error) { return file.New(file.Config{Path: dir}) },
	)
	require.NoError(t, err)

	store := NewStore(engine, bus.New(nil), nil)
	defer store.Close()

	want := map[string]any{"id": "a1", "quantity": 3.0, "tags": []any{"gin", "spirits"}}
	require.NoError(t, store.Set(ctx, "inventory", want))

	var got map[string]any
	ok, err := store.Get(ctx, "inventory", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestOpenEngine_NoEngineAvailable(t *testing.T) {
	_, err := OpenEngine(nil, failingEngine, failingEngine)
	require.Error(t, err)
}

func TestMigrateIfEmpty(t *testing.T) {
	ctx := context.Background()

	newEngine := func() core.Engine {
		e, err := file.New(file.Config{Path: t.TempDir()})
		require.NoError(t, err)
		return e
	}

	t.Run("Seeds Empty Destination", func(t *testing.T) {
		src, dst := newEngine(), newEngine()
		require.NoError(t, src.Set(ctx, "inventory", []byte(`[{"id":"a1"}]`), time.Now()))
		require.NoError(t, src.Set(ctx, "settings", []byte(`{}`), time.Now()))

		require.NoError(t, MigrateIfEmpty(ctx, dst, src, nil))

		value, ok, err := dst.Get(ctx, "inventory")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `[{"id":"a1"}]`, string(value))
	})

	t.Run("Leaves Non-Empty Destination Alone", func(t *testing.T) {
		src, dst := newEngine(), newEngine()
		require.NoError(t, src.Set(ctx, "inventory", []byte(`["legacy"]`), time.Now()))
		require.NoError(t, dst.Set(ctx, "inventory", []byte(`["current"]`), time.Now()))

		require.NoError(t, MigrateIfEmpty(ctx, dst, src, nil))

		value, _, err := dst.Get(ctx, "inventory")
		require.NoError(t, err)
		assert.JSONEq(t, `["current"]`, string(value))
	})
}
