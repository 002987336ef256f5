// Package models defines the core domain models for job workflow navigation and approval gating.
package models

import "fmt"

// Stage identifies one step in the fixed, totally ordered job pipeline.
type Stage string

const (
	StageCustomerCommunication  Stage = "customer_communication"
	StageDrawingApproval        Stage = "drawing_approval"
	StageMaterialsAnalysis      Stage = "materials_analysis"
	StageOrderCreation          Stage = "order_creation"
	StageSupplierOrdering       Stage = "supplier_ordering"
	StageQualityCheck           Stage = "quality_check"
	StageProduction             Stage = "production"
	StageDeliveryCoordination   Stage = "delivery_coordination"
	StageInstallationScheduling Stage = "installation_scheduling"
	StageCompletionVerification Stage = "completion_verification"
)

// JobStatus is the coarse job status projected from the current pipeline stage.
type JobStatus string

const (
	JobStatusApproved        JobStatus = "approved"
	JobStatusInProduction    JobStatus = "in_production"
	JobStatusFabrication     JobStatus = "fabrication"
	JobStatusAssembly        JobStatus = "assembly"
	JobStatusReadyForInstall JobStatus = "ready_for_install"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusOnHold          JobStatus = "on_hold"
	JobStatusCancelled       JobStatus = "cancelled"
)

// Catalog is the ordered stage catalog. Stage identifiers outside the catalog
// are invalid, never merely "unordered": callers must check Exists or the
// second return of IndexOf before any ordinal comparison.
type Catalog struct {
	order    []Stage
	ordinals map[Stage]int
	statuses map[Stage]JobStatus
}

// NewCatalog builds a catalog from an ordered stage list and a stage-to-status
// projection. Every stage must have a projection entry; a missing entry is a
// wiring error, not a runtime fallback.
func NewCatalog(order []Stage, projection map[Stage]JobStatus) (*Catalog, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("stage catalog cannot be empty")
	}

	ordinals := make(map[Stage]int, len(order))

	for i, stage := range order {
		if _, dup := ordinals[stage]; dup {
			return nil, fmt.Errorf("duplicate stage in catalog: %s", stage)
		}

		ordinals[stage] = i
	}

	statuses := make(map[Stage]JobStatus, len(order))

	for _, stage := range order {
		status, ok := projection[stage]
		if !ok {
			return nil, fmt.Errorf("stage %s has no status projection", stage)
		}

		statuses[stage] = status
	}

	return &Catalog{
		order:    append([]Stage(nil), order...),
		ordinals: ordinals,
		statuses: statuses,
	}, nil
}

// DefaultCatalog returns the fabrication pipeline catalog.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(
		[]Stage{
			StageCustomerCommunication,
			StageDrawingApproval,
			StageMaterialsAnalysis,
			StageOrderCreation,
			StageSupplierOrdering,
			StageQualityCheck,
			StageProduction,
			StageDeliveryCoordination,
			StageInstallationScheduling,
			StageCompletionVerification,
		},
		map[Stage]JobStatus{
			StageCustomerCommunication:  JobStatusApproved,
			StageDrawingApproval:        JobStatusInProduction,
			StageMaterialsAnalysis:      JobStatusInProduction,
			StageOrderCreation:          JobStatusFabrication,
			StageSupplierOrdering:       JobStatusFabrication,
			StageQualityCheck:           JobStatusAssembly,
			StageProduction:             JobStatusAssembly,
			StageDeliveryCoordination:   JobStatusReadyForInstall,
			StageInstallationScheduling: JobStatusReadyForInstall,
			StageCompletionVerification: JobStatusCompleted,
		},
	)
	if err != nil {
		panic(err)
	}

	return catalog
}

// IndexOf returns the ordinal position of a stage in the catalog.
func (c *Catalog) IndexOf(stage Stage) (int, bool) {
	ordinal, ok := c.ordinals[stage]

	return ordinal, ok
}

// Exists reports whether a stage is part of the catalog.
func (c *Catalog) Exists(stage Stage) bool {
	_, ok := c.ordinals[stage]

	return ok
}

// Stages returns the stages in pipeline order.
func (c *Catalog) Stages() []Stage {
	return append([]Stage(nil), c.order...)
}

// ProjectStatus maps a stage onto its coarse job status.
func (c *Catalog) ProjectStatus(stage Stage) (JobStatus, bool) {
	status, ok := c.statuses[stage]

	return status, ok
}
