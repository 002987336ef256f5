package models

import (
	"fmt"
	"time"
)

// Direction classifies a requested transition relative to the stage order.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
	DirectionLateral  Direction = "lateral" // Hold/Cancel acting in place
)

// NavigationAction is the kind of transition requested by the caller.
type NavigationAction string

const (
	ActionAdvance NavigationAction = "advance"
	ActionRevert  NavigationAction = "revert"
	ActionSkip    NavigationAction = "skip"
	ActionHold    NavigationAction = "hold"
	ActionCancel  NavigationAction = "cancel"
)

// ParseNavigationAction converts caller input into a navigation action.
func ParseNavigationAction(s string) (NavigationAction, error) {
	switch NavigationAction(s) {
	case ActionAdvance, ActionRevert, ActionSkip, ActionHold, ActionCancel:
		return NavigationAction(s), nil
	default:
		return "", fmt.Errorf("unknown navigation action: %q", s)
	}
}

// ImpactAssessment describes the blast radius of reversing completed work.
type ImpactAssessment struct {
	AffectedStepCount    int  `json:"affected_step_count"`
	DataRollbackRequired bool `json:"data_rollback_required"`
	DocumentsAffected    bool `json:"documents_affected"`
}

// NavigationRecord is an immutable, append-only log entry written exactly
// once per committed transition. Previews never produce one.
type NavigationRecord struct {
	ID                   string            `json:"id"`
	JobID                string            `json:"job_id"       validate:"required"`
	FromStage            Stage             `json:"from_stage"   validate:"required"`
	ToStage              Stage             `json:"to_stage"     validate:"required"`
	Direction            Direction         `json:"direction"    validate:"required"`
	Action               NavigationAction  `json:"action"       validate:"required"`
	IsAllowed            bool              `json:"is_allowed"`
	RequiresApproval     bool              `json:"requires_approval"`
	RequiresConfirmation bool              `json:"requires_confirmation"`
	RollbackRequired     bool              `json:"rollback_required"`
	AffectedStages       []Stage           `json:"affected_stages,omitempty"`
	Impact               *ImpactAssessment `json:"impact,omitempty"`
	PerformedBy          string            `json:"performed_by" validate:"required"`
	Reason               string            `json:"reason,omitempty"`
	Notes                string            `json:"notes,omitempty"`
	DataChanges          map[string]any    `json:"data_changes,omitempty"`
	PerformedAt          time.Time         `json:"performed_at"`
}
