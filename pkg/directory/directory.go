// Package directory provides approver authority lookups backed by an external
// staff directory. The engine only reads approver records; provisioning them
// belongs to the directory's own tooling.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/sfgfab/jobflow/pkg/models"
)

// ErrApproverNotFound indicates no approver record exists for the identity.
var ErrApproverNotFound = errors.New("approver not found")

// Directory looks up approver authority records by identity.
type Directory interface {
	ApproverByID(ctx context.Context, id string) (*models.Approver, error)
}

// StaticDirectory serves approvers from an in-memory table loaded at startup.
type StaticDirectory struct {
	approvers map[string]models.Approver
}

// NewStaticDirectory builds a directory from explicit approver records.
func NewStaticDirectory(approvers []models.Approver) (*StaticDirectory, error) {
	validate := validator.New()
	byID := make(map[string]models.Approver, len(approvers))

	for _, approver := range approvers {
		if err := validate.Struct(approver); err != nil {
			return nil, fmt.Errorf("invalid approver record %q: %w", approver.ID, err)
		}

		if _, dup := byID[approver.ID]; dup {
			return nil, fmt.Errorf("duplicate approver id: %s", approver.ID)
		}

		byID[approver.ID] = approver
	}

	return &StaticDirectory{approvers: byID}, nil
}

type directoryFile struct {
	Approvers []models.Approver `json:"approvers"`
}

// LoadDirectory reads an approver directory export from a JSON file.
func LoadDirectory(path string) (*StaticDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	var file directoryFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse directory file: %w", err)
	}

	return NewStaticDirectory(file.Approvers)
}

// ApproverByID returns the approver record for an identity.
func (d *StaticDirectory) ApproverByID(_ context.Context, id string) (*models.Approver, error) {
	approver, ok := d.approvers[id]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", id, ErrApproverNotFound)
	}

	return &approver, nil
}
