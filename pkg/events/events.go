// Package events defines event types and structures for job workflow
// lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/sfgfab/jobflow/pkg/models"
)

type EventType string

// Kafka topic for job workflow events.
const Topic = "jobflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Navigation lifecycle events.
	TransitionCommittedEvent EventType = "job.transition.committed"

	// Approval lifecycle events.
	ApprovalRequestedEvent EventType = "approval.requested"
	ApprovalDecidedEvent   EventType = "approval.decided"
	ApprovalEscalatedEvent EventType = "approval.escalated"

	// Notification dispatch requests.
	NotificationRequestedEvent EventType = "notification.requested"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	JobID     string         `json:"job_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, jobID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		JobID:     jobID,
		Metadata:  make(map[string]any),
	}
}

// TransitionCommitted is published after a stage transition and its
// navigation record have been durably committed.
type TransitionCommitted struct {
	BaseEvent

	NavigationID string                  `json:"navigation_id"`
	FromStage    models.Stage            `json:"from_stage"`
	ToStage      models.Stage            `json:"to_stage"`
	Direction    models.Direction        `json:"direction"`
	Action       models.NavigationAction `json:"action"`
	NewStatus    models.JobStatus        `json:"new_status"`
	PerformedBy  string                  `json:"performed_by"`
	RolledBack   []models.Stage          `json:"rolled_back,omitempty"`
}

func (t TransitionCommitted) GetType() EventType {
	return TransitionCommittedEvent
}

// ApprovalRequested is published when a new approval request opens.
type ApprovalRequested struct {
	BaseEvent

	ApprovalID   string                    `json:"approval_id"`
	EntityType   models.ApprovalEntityType `json:"entity_type"`
	EntityID     string                    `json:"entity_id"`
	ApprovalType models.ApprovalType       `json:"approval_type"`
	Priority     models.ApprovalPriority   `json:"priority"`
	Value        float64                   `json:"value"`
	RequestedBy  string                    `json:"requested_by"`
}

func (a ApprovalRequested) GetType() EventType {
	return ApprovalRequestedEvent
}

// ApprovalDecided is published when an approval is approved, promoted to a
// second approver, or rejected.
type ApprovalDecided struct {
	BaseEvent

	ApprovalID string                    `json:"approval_id"`
	EntityType models.ApprovalEntityType `json:"entity_type"`
	EntityID   string                    `json:"entity_id"`
	Status     models.ApprovalStatus     `json:"status"`
	DecidedBy  string                    `json:"decided_by"`
	Notes      string                    `json:"notes,omitempty"`
}

func (a ApprovalDecided) GetType() EventType {
	return ApprovalDecidedEvent
}

// ApprovalEscalated is published by the escalation sweep for approvals that
// have sat open past the escalation window.
type ApprovalEscalated struct {
	BaseEvent

	ApprovalID  string                    `json:"approval_id"`
	EntityType  models.ApprovalEntityType `json:"entity_type"`
	EntityID    string                    `json:"entity_id"`
	Priority    models.ApprovalPriority   `json:"priority"`
	RequestedBy string                    `json:"requested_by"`
	RequestedAt time.Time                 `json:"requested_at"`
	OpenFor     time.Duration             `json:"open_for"`
}

func (a ApprovalEscalated) GetType() EventType {
	return ApprovalEscalatedEvent
}

// NotificationRequested asks a notification sink to deliver a message.
type NotificationRequested struct {
	BaseEvent

	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	Detail   string `json:"detail,omitempty"`
}

func (n NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}
