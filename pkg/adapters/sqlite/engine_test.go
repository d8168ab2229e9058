package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barflowtrack/barflow/pkg/core"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{Path: filepath.Join(t.TempDir(), "barflow.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.Set(ctx, "inventory", []byte(`[{"id":"a1","quantity":3}]`), time.Now()))

	value, ok, err := e.Get(ctx, "inventory")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"a1","quantity":3}]`, string(value))
}

func TestEngine_Overwrite(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.Set(ctx, "cashBalance", []byte(`100`), time.Now()))
	require.NoError(t, e.Set(ctx, "cashBalance", []byte(`250`), time.Now()))

	value, ok, err := e.Get(ctx, "cashBalance")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `250`, string(value))
}

func TestEngine_AbsentKey(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	_, ok, err := e.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_Remove(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.Set(ctx, "staff", []byte(`[]`), time.Now()))
	require.NoError(t, e.Remove(ctx, "staff"))

	_, ok, err := e.Get(ctx, "staff")
	require.NoError(t, err)
	assert.False(t, ok)

	// Idempotent
	require.NoError(t, e.Remove(ctx, "staff"))
}

func TestEngine_SetBatchAndKeys(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	now := time.Now()
	err := e.SetBatch(ctx, []core.Record{
		{Key: "categories", Value: []byte(`[]`), Timestamp: now},
		{Key: "inventory", Value: []byte(`[]`), Timestamp: now},
		{Key: "tables", Value: []byte(`[]`), Timestamp: now},
	})
	require.NoError(t, err)

	keys, err := e.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"categories", "inventory", "tables"}, keys)
}

func TestEngine_ReopenPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "barflow.db")

	e, err := New(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, e.Set(ctx, "settings", []byte(`{"theme":"dark"}`), time.Now()))
	require.NoError(t, e.Close())

	e2, err := New(Config{Path: path})
	require.NoError(t, err)
	defer e2.Close()

	value, ok, err := e2.Get(ctx, "settings")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"theme":"dark"}`, string(value))
}
