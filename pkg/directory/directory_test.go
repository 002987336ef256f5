package directory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticDirectory_ApproverByID(t *testing.T) {
	dir, err := NewStaticDirectory([]models.Approver{
		{
			ID:               "warren",
			Name:             "Warren Smith",
			Role:             "Senior Estimator",
			Department:       "Sales",
			CanApproveQuotes: true,
			MaxApprovalValue: 50000,
		},
	})
	require.NoError(t, err)

	approver, err := dir.ApproverByID(t.Context(), "warren")
	require.NoError(t, err)
	assert.Equal(t, "Warren Smith", approver.Name)
	assert.InDelta(t, 50000.0, approver.MaxApprovalValue, 0.001)

	_, err = dir.ApproverByID(t.Context(), "nobody")
	assert.True(t, errors.Is(err, ErrApproverNotFound))
}

func TestNewStaticDirectory_RejectsInvalidRecord(t *testing.T) {
	_, err := NewStaticDirectory([]models.Approver{
		{ID: "", Name: "Nameless"},
	})
	assert.Error(t, err)
}

func TestNewStaticDirectory_RejectsDuplicate(t *testing.T) {
	_, err := NewStaticDirectory([]models.Approver{
		{ID: "warren", Name: "Warren Smith"},
		{ID: "warren", Name: "Other Warren"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvers.json")

	content := `{
		"approvers": [
			{
				"id": "sarah",
				"name": "Sarah Mitchell",
				"role": "Operations Manager",
				"department": "Operations",
				"can_approve_quotes": true,
				"can_approve_jobs": true,
				"can_override_approvals": true,
				"max_approval_value": 100000
			}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	dir, err := LoadDirectory(path)
	require.NoError(t, err)

	approver, err := dir.ApproverByID(t.Context(), "sarah")
	require.NoError(t, err)
	assert.True(t, approver.CanOverrideApprovals)
}
