package notify

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/sfgfab/jobflow/pkg/channels/gochannel"
	"github.com/sfgfab/jobflow/pkg/eventbus"
	"github.com/sfgfab/jobflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusSink_Notify(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer func() { _ = bus.Close() }()

	received := make(chan *events.NotificationRequested, 1)

	err = bus.Handle(events.NotificationRequestedEvent, func(_ context.Context, event interface{}) error {
		notification, ok := event.(*events.NotificationRequested)
		require.True(t, ok)

		received <- notification

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(t.Context()))

	sink := NewEventBusSink(bus)
	require.NoError(t, sink.Notify(t.Context(), Request{
		JobID:    "job-1",
		Severity: SeverityWarning,
		Summary:  "approval pending for 24h",
	}))

	select {
	case notification := <-received:
		assert.Equal(t, "job-1", notification.JobID)
		assert.Equal(t, string(SeverityWarning), notification.Severity)
		assert.Equal(t, "approval pending for 24h", notification.Summary)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification event")
	}

	assert.NoError(t, sink.Close())
}

func TestNewRedisSink_DefaultStream(t *testing.T) {
	sink := NewRedisSink(nil, "")
	assert.Equal(t, defaultStream, sink.stream)

	named := NewRedisSink(nil, "ops:alerts")
	assert.Equal(t, "ops:alerts", named.stream)
}
