package notify

import (
	"context"

	"github.com/sfgfab/jobflow/pkg/eventbus"
	"github.com/sfgfab/jobflow/pkg/events"
)

// EventBusSink publishes notifications onto the event bus so downstream
// consumers (email, chat, dashboards) can deliver them.
type EventBusSink struct {
	publisher eventbus.EventPublisher
}

// NewEventBusSink creates a sink backed by the event bus.
func NewEventBusSink(publisher eventbus.EventPublisher) *EventBusSink {
	return &EventBusSink{publisher: publisher}
}

// Notify publishes a NotificationRequested event keyed by job ID.
func (s *EventBusSink) Notify(ctx context.Context, req Request) error {
	event := events.NotificationRequested{
		BaseEvent: events.NewBaseEvent(events.NotificationRequestedEvent, req.JobID),
		Severity:  string(req.Severity),
		Summary:   req.Summary,
		Detail:    req.Detail,
	}

	return s.publisher.Publish(ctx, req.JobID, event)
}

// Close is a no-op; the event bus owns its own lifecycle.
func (s *EventBusSink) Close() error {
	return nil
}
