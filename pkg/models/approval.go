package models

import "time"

// ApprovalEntityType is the kind of business artifact an approval attaches to.
type ApprovalEntityType string

const (
	EntityTypeQuote   ApprovalEntityType = "quote"
	EntityTypeJob     ApprovalEntityType = "job"
	EntityTypeEnquiry ApprovalEntityType = "enquiry"
)

// ApprovalType names the approval being requested.
type ApprovalType string

const (
	ApprovalTypeQuote       ApprovalType = "quote_approval"
	ApprovalTypeCostsAgreed ApprovalType = "costs_agreed"
	ApprovalTypeDrawing     ApprovalType = "drawing_approval"
	ApprovalTypeExtraItems  ApprovalType = "extra_items_approval"
	ApprovalTypeVariations  ApprovalType = "variations_approval"
)

// ApprovalStatus is the lifecycle state of an approval request.
type ApprovalStatus string

const (
	ApprovalStatusPending                ApprovalStatus = "pending"
	ApprovalStatusRequiresSecondApproval ApprovalStatus = "requires_second_approval"
	ApprovalStatusApproved               ApprovalStatus = "approved"
	ApprovalStatusRejected               ApprovalStatus = "rejected"
)

// ApprovalPriority orders pending approvals for reviewers.
type ApprovalPriority string

const (
	PriorityLow    ApprovalPriority = "low"
	PriorityMedium ApprovalPriority = "medium"
	PriorityHigh   ApprovalPriority = "high"
)

// Approval is one approval request against a quote, job, or enquiry.
type Approval struct {
	ID           string             `json:"id"`
	EntityType   ApprovalEntityType `json:"entity_type"   validate:"required,oneof=quote job enquiry"`
	EntityID     string             `json:"entity_id"     validate:"required"`
	ApprovalType ApprovalType       `json:"approval_type" validate:"required"`
	Stage        string             `json:"stage"`
	Status       ApprovalStatus     `json:"status"`
	Priority     ApprovalPriority   `json:"priority"`
	QuoteType    QuoteType          `json:"quote_type,omitempty"`
	Value        float64            `json:"value"         validate:"min=0"`

	MandatoryApproval      bool `json:"mandatory_approval"`
	RequiresSecondApproval bool `json:"requires_second_approval"`
	CanSelfApprove         bool `json:"can_self_approve"`

	RequestedBy  string    `json:"requested_by" validate:"required"`
	RequestNotes string    `json:"request_notes,omitempty"`
	RequestedAt  time.Time `json:"requested_at"`

	ApprovedBy       string     `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	ApprovalNotes    string     `json:"approval_notes,omitempty"`
	SecondApprovedBy string     `json:"second_approved_by,omitempty"`
	SecondApprovedAt *time.Time `json:"second_approved_at,omitempty"`

	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// Open reports whether the approval still needs a decision.
func (a *Approval) Open() bool {
	return a.Status == ApprovalStatusPending || a.Status == ApprovalStatusRequiresSecondApproval
}
