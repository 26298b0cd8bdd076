package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowsmith/pkg/channels/gochannel"
	"github.com/dukex/flowsmith/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.DocumentDeployed, 1)

	require.NoError(t, bus.Handle(events.DocumentDeployedEvent, func(_ context.Context, event any) error {
		deployed, ok := event.(*events.DocumentDeployed)
		if !ok {
			return errors.New("unexpected event type")
		}

		received <- deployed

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.DocumentDeployed{
		BaseEvent:   events.NewBaseEvent(events.DocumentDeployedEvent, "orders.json"),
		Name:        "Orders",
		Fingerprint: "abc",
	}
	require.NoError(t, bus.Publish(t.Context(), "orders.json", event))

	select {
	case got := <-received:
		assert.Equal(t, "orders.json", got.Document)
		assert.Equal(t, "Orders", got.Name)
		assert.Equal(t, "abc", got.Fingerprint)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_UnhandledEventsAreAcked(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan struct{}, 1)

	require.NoError(t, bus.Handle(events.BatchCompletedEvent, func(_ context.Context, _ any) error {
		received <- struct{}{}

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(t.Context(), "a.json", events.DocumentDeployFailed{
		BaseEvent: events.NewBaseEvent(events.DocumentDeployFailedEvent, "a.json"),
	}))
	require.NoError(t, bus.Publish(t.Context(), "batch", events.BatchCompleted{
		BaseEvent: events.NewBaseEvent(events.BatchCompletedEvent, ""),
		Succeeded: 2,
		Failed:    1,
	}))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("batch event was not delivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}

func TestDiscard(t *testing.T) {
	var bus EventBus = Discard{}

	require.NoError(t, bus.Publish(t.Context(), "a", events.BatchCompleted{}))
	require.NoError(t, bus.Close())
}
