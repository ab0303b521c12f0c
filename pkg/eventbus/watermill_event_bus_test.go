package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pipecraft/campd/pkg/channels/gochannel"
	"github.com/pipecraft/campd/pkg/events"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoChannelBus(t *testing.T) EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBusRoundTrip(t *testing.T) {
	bus := newGoChannelBus(t)

	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.NodeTransitionedEvent, func(ctx context.Context, event any) error {
		received <- event

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.NodeTransitioned{
		BaseEvent: events.NewBaseEvent(events.NodeTransitionedEvent, "ns"),
		NodeID:    "n1",
		Trigger:   "prepare",
		From:      models.StatusWaiting,
		To:        models.StatusReady,
	}
	require.NoError(t, bus.Publish(ctx, "n1", event))

	select {
	case got := <-received:
		transitioned, ok := got.(*events.NodeTransitioned)
		require.True(t, ok)
		assert.Equal(t, "n1", transitioned.NodeID)
		assert.Equal(t, models.StatusReady, transitioned.To)
		assert.Equal(t, "ns", transitioned.Namespace)
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the handler")
	}
}

func TestWatermillEventBusIgnoresUnhandledTypes(t *testing.T) {
	bus := newGoChannelBus(t)

	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.CampaignCompletedEvent, func(ctx context.Context, event any) error {
		received <- event

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler for transition events: they are acked and dropped, and the
	// next handled event still comes through.
	transition := events.NodeTransitioned{
		BaseEvent: events.NewBaseEvent(events.NodeTransitionedEvent, "ns"),
		NodeID:    "n1",
	}
	require.NoError(t, bus.Publish(ctx, "n1", transition))

	completed := events.CampaignCompleted{
		BaseEvent:  events.NewBaseEvent(events.CampaignCompletedEvent, "ns"),
		CampaignID: "ns",
	}
	require.NoError(t, bus.Publish(ctx, "ns", completed))

	select {
	case got := <-received:
		event, ok := got.(*events.CampaignCompleted)
		require.True(t, ok)
		assert.Equal(t, "ns", event.CampaignID)
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the handler")
	}
}
