package models

// Approver is a per-approver authority record supplied by the external
// directory. Read-only to this engine.
type Approver struct {
	ID                   string  `json:"id"         validate:"required"`
	Name                 string  `json:"name"       validate:"required"`
	Email                string  `json:"email"      validate:"omitempty,email"`
	Role                 string  `json:"role"`
	Department           string  `json:"department"`
	CanApproveQuotes     bool    `json:"can_approve_quotes"`
	CanApproveJobs       bool    `json:"can_approve_jobs"`
	CanOverrideApprovals bool    `json:"can_override_approvals"`
	MaxApprovalValue     float64 `json:"max_approval_value" validate:"min=0"`
}
