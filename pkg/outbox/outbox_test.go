package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barflowtrack/barflow/pkg/core"
)

// memStorage is an in-memory Storage for tests.
type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (m *memStorage) Get(ctx context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (m *memStorage) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

// scriptedRemote fails items whose data matches failOn; records applied order.
type scriptedRemote struct {
	mu      sync.Mutex
	failOn  map[string]bool // item data -> should fail
	applied []core.SyncItem
}

func (r *scriptedRemote) Apply(ctx context.Context, item core.SyncItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn[string(item.Data)] {
		return errors.New("remote rejected")
	}
	r.applied = append(r.applied, item)
	return nil
}

func (r *scriptedRemote) appliedData() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.applied))
	for _, item := range r.applied {
		out = append(out, string(item.Data))
	}
	return out
}

func TestOutbox_Enqueue(t *testing.T) {
	ctx := context.Background()
	o := New(newMemStorage(), &scriptedRemote{})
	o.SetOnline(false) // no drain; inspect the queue as-is

	item, err := o.Enqueue(ctx, "sales", core.OpInsert, []byte(`{"id":"s1"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.NotEmpty(t, item.IdempotencyKey)
	assert.NotEqual(t, item.ID, item.IdempotencyKey)

	items, err := o.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "sales", items[0].Table)
	assert.Equal(t, core.OpInsert, items[0].Op)
	assert.JSONEq(t, `{"id":"s1"}`, string(items[0].Data))
}

func TestOutbox_DrainFIFOWithSkip(t *testing.T) {
	// N items where one always fails: a single drain leaves exactly that item
	// queued and reports N-1 successes.
	ctx := context.Background()
	remote := &scriptedRemote{failOn: map[string]bool{`"item-2"`: true}}
	o := New(newMemStorage(), remote)
	o.SetOnline(false)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := o.Enqueue(ctx, "sales", core.OpInsert, []byte(fmt.Sprintf(`"item-%d"`, i)))
		require.NoError(t, err)
	}
	o.SetOnline(true)

	report, err := o.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, n-1, report.SuccessCount)
	require.Len(t, report.Failed, 1)
	assert.True(t, report.Noteworthy())

	items, err := o.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, `"item-2"`, string(items[0].Data))

	// The failure did not block the items behind it.
	assert.Equal(t, []string{`"item-0"`, `"item-1"`, `"item-3"`, `"item-4"`}, remote.appliedData())
}

func TestOutbox_FailedItemKeepsIdentityAcrossCycles(t *testing.T) {
	ctx := context.Background()
	remote := &scriptedRemote{failOn: map[string]bool{`{"id":"s1"}`: true}}
	o := New(newMemStorage(), remote)
	o.SetOnline(false)

	queued, err := o.Enqueue(ctx, "sales", core.OpInsert, []byte(`{"id":"s1"}`))
	require.NoError(t, err)

	o.SetOnline(true)
	for i := 0; i < 2; i++ {
		report, err := o.Drain(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, report.SuccessCount)
	}

	items, err := o.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, queued.ID, items[0].ID)
	assert.Equal(t, queued.IdempotencyKey, items[0].IdempotencyKey)
	assert.JSONEq(t, `{"id":"s1"}`, string(items[0].Data))

	// Third drain with the remote healed empties the queue.
	remote.mu.Lock()
	remote.failOn = nil
	remote.mu.Unlock()

	report, err := o.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)

	items, _ = o.Items(ctx)
	assert.Empty(t, items)
}

func TestOutbox_DrainWhileOffline(t *testing.T) {
	ctx := context.Background()
	o := New(newMemStorage(), &scriptedRemote{})
	o.SetOnline(false)

	_, err := o.Enqueue(ctx, "sales", core.OpInsert, []byte(`{}`))
	require.NoError(t, err, "enqueue never needs the network")

	_, err = o.Drain(ctx)
	assert.ErrorIs(t, err, core.ErrOffline)

	items, _ := o.Items(ctx)
	assert.Len(t, items, 1)
}

func TestOutbox_EmptyDrain(t *testing.T) {
	o := New(newMemStorage(), &scriptedRemote{})
	report, err := o.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.SuccessCount)
	assert.False(t, report.Noteworthy())
}

func TestOutbox_WorkerDrainsOnReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote := &scriptedRemote{}
	o := New(newMemStorage(), remote, WithInterval(time.Hour)) // timer out of the picture
	o.SetOnline(false)

	_, err := o.Enqueue(ctx, "sales", core.OpInsert, []byte(`"offline-sale"`))
	require.NoError(t, err)

	o.Start(ctx)
	o.SetOnline(true) // offline -> online nudges the worker

	require.Eventually(t, func() bool {
		items, err := o.Items(context.Background())
		return err == nil && len(items) == 0
	}, 3*time.Second, 10*time.Millisecond, "reconnect should trigger a drain")

	assert.Equal(t, []string{`"offline-sale"`}, remote.appliedData())
}
