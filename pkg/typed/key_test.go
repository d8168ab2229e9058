package typed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barflowtrack/barflow/pkg/core"
)

func TestKeyHelpers_RoundTrip(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	require.NoError(t, Set(ctx, store, core.KeyCashBalance, 42.5))

	value, ok, err := Get[float64](ctx, store, core.KeyCashBalance)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42.5, value)
}

func TestKeyHelpers_GetOrFallback(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	value, err := GetOr(ctx, store, core.KeyCashBalance, 10.0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, value)

	require.NoError(t, Set(ctx, store, core.KeyCashBalance, 3.0))
	value, err = GetOr(ctx, store, core.KeyCashBalance, 10.0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, value)
}
