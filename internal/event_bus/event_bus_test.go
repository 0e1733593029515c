package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEvent EventType = "test.event"

func TestEventBus_Publish(t *testing.T) {
	t.Run("should call handlers in registration order", func(t *testing.T) {
		bus := NewEventBus()
		var calls []string
		bus.Subscribe(testEvent, func(e Event) error { calls = append(calls, "first"); return nil })
		bus.Subscribe(testEvent, func(e Event) error { calls = append(calls, "second"); return nil })
		bus.Subscribe("other.event", func(e Event) error { calls = append(calls, "other"); return nil })

		err := bus.Publish(NewEvent(context.Background(), testEvent, 1))

		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("should run remaining handlers after a failure", func(t *testing.T) {
		bus := NewEventBus()
		called := false
		bus.Subscribe(testEvent, func(e Event) error { return errors.New("boom") })
		bus.Subscribe(testEvent, func(e Event) error { panic("kaboom") })
		bus.Subscribe(testEvent, func(e Event) error { called = true; return nil })

		err := bus.Publish(NewEvent(context.Background(), testEvent, nil))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 handler(s) failed")
		assert.True(t, called)
	})

	t.Run("should not publish with cancelled context", func(t *testing.T) {
		bus := NewEventBus()
		called := false
		bus.Subscribe(testEvent, func(e Event) error { called = true; return nil })
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := bus.Publish(NewEvent(ctx, testEvent, nil))

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("should stop calling unsubscribed handlers", func(t *testing.T) {
		bus := NewEventBus()
		calls := 0
		unsubscribe := bus.Subscribe(testEvent, func(e Event) error { calls++; return nil })

		require.NoError(t, bus.Publish(NewEvent(context.Background(), testEvent, nil)))
		unsubscribe()
		require.NoError(t, bus.Publish(NewEvent(context.Background(), testEvent, nil)))

		assert.Equal(t, 1, calls)
	})
}

func TestSubscribeTyped(t *testing.T) {
	type payload struct{ Id int }
	bus := NewEventBus()
	var received []int
	SubscribeTyped(bus, testEvent, func(e EventT[payload]) error {
		received = append(received, e.Data.Id)
		assert.Equal(t, "value", e.Context().Value(ctxKey{}))
		return nil
	})

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	require.NoError(t, bus.Publish(NewEvent(ctx, testEvent, payload{Id: 3})))
	require.NoError(t, bus.Publish(NewEvent(ctx, testEvent, "not a payload")))

	assert.Equal(t, []int{3}, received)
}

type ctxKey struct{}

func TestEvent_ContextDefaultsToBackground(t *testing.T) {
	assert.NotNil(t, Event{}.Context())
	assert.NotNil(t, EventT[int]{}.Context())
}
