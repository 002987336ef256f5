package events

import (
	"testing"
	"time"

	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(TransitionCommittedEvent, "job-123")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TransitionCommittedEvent, event.Type)
	assert.Equal(t, "job-123", event.JobID)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Second)
	assert.NotNil(t, event.Metadata)
}

func TestEventTypes(t *testing.T) {
	transition := TransitionCommitted{
		BaseEvent: NewBaseEvent(TransitionCommittedEvent, "job-123"),
		FromStage: models.StageCustomerCommunication,
		ToStage:   models.StageDrawingApproval,
	}
	assert.Equal(t, TransitionCommittedEvent, transition.GetType())

	requested := ApprovalRequested{BaseEvent: NewBaseEvent(ApprovalRequestedEvent, "")}
	assert.Equal(t, ApprovalRequestedEvent, requested.GetType())

	decided := ApprovalDecided{BaseEvent: NewBaseEvent(ApprovalDecidedEvent, "")}
	assert.Equal(t, ApprovalDecidedEvent, decided.GetType())

	escalated := ApprovalEscalated{BaseEvent: NewBaseEvent(ApprovalEscalatedEvent, "")}
	assert.Equal(t, ApprovalEscalatedEvent, escalated.GetType())

	notification := NotificationRequested{BaseEvent: NewBaseEvent(NotificationRequestedEvent, "job-9")}
	assert.Equal(t, NotificationRequestedEvent, notification.GetType())
}
