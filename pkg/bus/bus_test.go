package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barflowtrack/barflow/pkg/core"
)

func TestBus_DeliveryContract(t *testing.T) {
	t.Run("Subscriber Before Publish Sees Event Exactly Once", func(t *testing.T) {
		b := New(nil)

		var got []core.Event
		cancel := b.Subscribe("inventory", func(ev core.Event) {
			got = append(got, ev)
		})
		defer cancel()

		b.Publish(core.Event{Type: core.EventSet, Key: "inventory", Value: []byte(`[1]`)})

		require.Len(t, got, 1)
		assert.Equal(t, core.EventSet, got[0].Type)
		assert.Equal(t, `[1]`, string(got[0].Value))
	})

	t.Run("Subscriber After Publish Never Sees Past Event", func(t *testing.T) {
		b := New(nil)

		b.Publish(core.Event{Type: core.EventSet, Key: "sales"})

		called := false
		cancel := b.Subscribe("sales", func(core.Event) { called = true })
		defer cancel()

		assert.False(t, called, "no replay for late subscribers")
	})

	t.Run("Unsubscribed Handler Is Not Invoked", func(t *testing.T) {
		b := New(nil)

		count := 0
		cancel := b.Subscribe("staff", func(core.Event) { count++ })

		b.Publish(core.Event{Type: core.EventSet, Key: "staff"})
		cancel()
		cancel() // idempotent
		b.Publish(core.Event{Type: core.EventSet, Key: "staff"})

		assert.Equal(t, 1, count)
	})
}

func TestBus_Ordering(t *testing.T) {
	b := New(nil)

	var order []string
	c1 := b.Subscribe("inventory", func(core.Event) { order = append(order, "first") })
	defer c1()
	c2 := b.Subscribe("inventory", func(core.Event) { order = append(order, "second") })
	defer c2()

	b.Publish(core.Event{Type: core.EventSet, Key: "inventory"})

	assert.Equal(t, []string{"first", "second"}, order, "handlers fire in registration order")
}

func TestBus_PatternMatching(t *testing.T) {
	b := New(nil)

	var keys []string
	cancel := b.Subscribe("cash*", func(ev core.Event) { keys = append(keys, ev.Key) })
	defer cancel()

	b.Publish(core.Event{Type: core.EventSet, Key: "cashBalance"})
	b.Publish(core.Event{Type: core.EventSet, Key: "cashTransactions"})
	b.Publish(core.Event{Type: core.EventSet, Key: "inventory"})

	assert.Equal(t, []string{"cashBalance", "cashTransactions"}, keys)
}

func TestBus_StreamDecoupling(t *testing.T) {
	// A fast producer must not block on a slow stream consumer.
	b := New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := b.Stream(ctx, "**", 10)

	done := make(chan bool)
	go func() {
		for i := 0; i < 5; i++ {
			b.Publish(core.Event{Type: core.EventSet, Key: "inventory"})
		}
		close(done)
	}()

	select {
	case <-done:
		// Producer finished even though nothing was consumed yet.
	case <-time.After(2 * time.Second):
		t.Fatal("Producer blocked (stream is not decoupling)")
	}

	count := 0
	timeout := time.After(time.Second)
	for i := 0; i < 5; i++ {
		select {
		case <-stream:
			count++
		case <-timeout:
			t.Fatal("Failed to read buffered events")
		}
	}
	assert.Equal(t, 5, count)
}
