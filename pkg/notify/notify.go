// Package notify dispatches operational notifications raised by the job
// workflow engine: committed transitions, approval requests, and escalation
// reminders.
package notify

import "context"

// Severity grades a notification for routing and display.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Request is one notification to deliver.
type Request struct {
	JobID    string   `json:"job_id,omitempty"`
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
	Detail   string   `json:"detail,omitempty"`
}

// Sink delivers notifications. Delivery failures are reported to the caller
// but never block a committed transition.
type Sink interface {
	Notify(ctx context.Context, req Request) error
	Close() error
}
