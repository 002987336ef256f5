package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sfgfab/jobflow/pkg/eventbus"
	"github.com/sfgfab/jobflow/pkg/events"
)

// Dispatcher consumes NotificationRequested events from the bus and delivers
// them through a terminal sink. It is the read side of EventBusSink: services
// publish, one dispatcher per deployment delivers.
type Dispatcher struct {
	bus    eventbus.EventBus
	sink   Sink
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher delivering to the given terminal sink.
func NewDispatcher(bus eventbus.EventBus, sink Sink, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		bus:    bus,
		sink:   sink,
		logger: logger.With("module", "notify_dispatcher"),
	}
}

// Start registers the handler and begins consuming. Delivery failures nack
// the message so the transport can redeliver.
func (d *Dispatcher) Start(ctx context.Context) error {
	if err := d.bus.Handle(events.NotificationRequestedEvent, d.handle); err != nil {
		return fmt.Errorf("failed to register notification handler: %w", err)
	}

	return d.bus.Subscribe(ctx)
}

func (d *Dispatcher) handle(ctx context.Context, event any) error {
	notification, ok := event.(*events.NotificationRequested)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	err := d.sink.Notify(ctx, Request{
		JobID:    notification.JobID,
		Severity: Severity(notification.Severity),
		Summary:  notification.Summary,
		Detail:   notification.Detail,
	})
	if err != nil {
		d.logger.WarnContext(ctx, "Notification delivery failed",
			"job_id", notification.JobID, "error", err)

		return err
	}

	return nil
}
