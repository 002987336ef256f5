// Package navigation decides whether a requested job workflow transition is
// allowed, what it would invalidate, and which gates it must pass. The
// validator is pure: it performs no writes and is safe to re-run.
package navigation

import (
	"fmt"

	"github.com/sfgfab/jobflow/pkg/models"
)

// Machine-readable reason codes callers can branch on.
const (
	CodeUnknownStage     = "unknown_stage"
	CodeInvalidDirection = "invalid_direction"
	CodeSkipApproval     = "skip_requires_approval"
	CodeRollbackImpact   = "rollback_impact"
)

// Decision is the full outcome of validating one transition request. Every
// guard is evaluated even after a deny so the caller gets the complete
// picture in one round-trip instead of one error at a time.
type Decision struct {
	IsAllowed            bool                     `json:"is_allowed"`
	Direction            models.Direction         `json:"direction"`
	RequiresApproval     bool                     `json:"requires_approval"`
	RequiresConfirmation bool                     `json:"requires_confirmation"`
	Reason               string                   `json:"reason,omitempty"`
	Code                 string                   `json:"code,omitempty"`
	AffectedStages       []models.Stage           `json:"affected_stages,omitempty"`
	Impact               *models.ImpactAssessment `json:"impact,omitempty"`
}

// Policy holds the configurable edges of validation behavior.
type Policy struct {
	// LateralImpactScan extends the rollback-impact scan to lateral
	// transitions (Hold/Cancel in place). Off by default: only Revert
	// invalidates downstream work.
	LateralImpactScan bool
}

// Validator validates transition requests against the stage catalog and a
// job's step records.
type Validator struct {
	catalog *models.Catalog
	policy  Policy
}

// NewValidator creates a validator over a stage catalog.
func NewValidator(catalog *models.Catalog, policy Policy) *Validator {
	return &Validator{catalog: catalog, policy: policy}
}

// Validate decides allow/deny for a requested transition, computes rollback
// impact, and flags required approval and confirmation.
func (v *Validator) Validate(job *models.Job, from, to models.Stage, action models.NavigationAction) *Decision {
	fromOrdinal, fromOK := v.catalog.IndexOf(from)
	toOrdinal, toOK := v.catalog.IndexOf(to)

	// Unknown stages fail fast before any ordinal comparison. A sentinel
	// ordinal participating in comparisons would make an invalid revert
	// target look like the earliest stage.
	if !fromOK || !toOK {
		unknown := from
		if fromOK {
			unknown = to
		}

		return &Decision{
			IsAllowed: false,
			Code:      CodeUnknownStage,
			Reason:    fmt.Sprintf("stage %q is not in the workflow catalog", unknown),
		}
	}

	decision := &Decision{
		IsAllowed: true,
		Direction: direction(fromOrdinal, toOrdinal),
		// Every otherwise-allowed transition goes through the two-phase
		// preview/confirm gate regardless of its impact.
		RequiresConfirmation: true,
	}

	if action == models.ActionRevert && decision.Direction == models.DirectionForward {
		decision.IsAllowed = false
		decision.Code = CodeInvalidDirection
		decision.Reason = "cannot revert to a later stage"
	}

	scanImpact := action == models.ActionRevert ||
		(v.policy.LateralImpactScan && decision.Direction == models.DirectionLateral)
	if scanImpact {
		v.assessRollback(job, toOrdinal, decision)
	}

	// A forward transition whose ordinal gap exceeds one skips stages no
	// matter what the caller labels it. Relabeling a skip as an advance
	// must not evade the gate.
	skipsStages := decision.Direction == models.DirectionForward && toOrdinal-fromOrdinal > 1

	if action == models.ActionSkip || skipsStages {
		decision.RequiresApproval = true

		if decision.Reason == "" {
			decision.Code = CodeSkipApproval
			decision.Reason = "skipping workflow stages requires approval"
		}
	}

	return decision
}

// assessRollback collects every completed step strictly after the target
// stage: the work a revert would invalidate.
func (v *Validator) assessRollback(job *models.Job, toOrdinal int, decision *Decision) {
	var affected []models.Stage

	documentsAffected := false

	for _, step := range job.Steps {
		ordinal, ok := v.catalog.IndexOf(step.Stage)
		if !ok {
			continue
		}

		if ordinal > toOrdinal && step.Status == models.StepStatusCompleted {
			affected = append(affected, step.Stage)

			if step.Stage == models.StageDrawingApproval {
				documentsAffected = true
			}
		}
	}

	if len(affected) == 0 {
		return
	}

	decision.RequiresApproval = true
	decision.AffectedStages = affected
	decision.Impact = &models.ImpactAssessment{
		AffectedStepCount:    len(affected),
		DataRollbackRequired: true,
		DocumentsAffected:    documentsAffected,
	}

	if decision.Reason == "" {
		decision.Code = CodeRollbackImpact
		decision.Reason = fmt.Sprintf("reverting invalidates %d completed stage(s)", len(affected))
	}
}

func direction(fromOrdinal, toOrdinal int) models.Direction {
	switch {
	case toOrdinal > fromOrdinal:
		return models.DirectionForward
	case toOrdinal < fromOrdinal:
		return models.DirectionBackward
	default:
		return models.DirectionLateral
	}
}
