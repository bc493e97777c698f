package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlan(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPlan_Valid(t *testing.T) {
	path := writePlan(t, t.TempDir(), "fs.yaml", `
name: fs_prism_flat
description: "Flat field checks for the FS PRISM dataset"
steps:
  - step: assign_wcs
  - step: flat_field
    families: [completion, validation]
    threshold: 1.0e-6
`)

	plan, err := LoadPlan(path)
	require.NoError(t, err)

	assert.Equal(t, "fs_prism_flat", plan.Name)
	require.Len(t, plan.Steps, 2)
	assert.Empty(t, plan.Steps[0].Families)
	assert.Equal(t, []string{"completion", "validation"}, plan.Steps[1].Families)
	assert.InDelta(t, 1e-6, plan.Steps[1].Threshold, 1e-20)
}

func TestLoadPlan_MissingFile(t *testing.T) {
	_, err := LoadPlan("/nonexistent/plan.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read plan file")
}

func TestLoadPlan_UnknownField(t *testing.T) {
	path := writePlan(t, t.TempDir(), "typo.yaml", `
name: typo
description: "bad key"
steps:
  - step: assign_wcs
    familes: [completion]
`)
	_, err := LoadPlan(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadPlan_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing name",
			content: "description: d\nsteps:\n  - step: assign_wcs\n",
			errMsg:  "name is required",
		},
		{
			name:    "missing steps",
			content: "name: n\ndescription: d\n",
			errMsg:  "steps list is required",
		},
		{
			name:    "unknown step",
			content: "name: n\ndescription: d\nsteps:\n  - step: warp_drive\n",
			errMsg:  `unknown step "warp_drive"`,
		},
		{
			name:    "unknown family",
			content: "name: n\ndescription: d\nsteps:\n  - step: photom\n    families: [smoke]\n",
			errMsg:  `unknown family "smoke"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePlan(t, t.TempDir(), "plan.yaml", tt.content)
			_, err := LoadPlan(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestFindPlans(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "fs_prism.yaml", "x: 1\n")
	writePlan(t, dir, "ifu_g395h.yml", "x: 1\n")
	writePlan(t, dir, "notes.txt", "not a plan\n")

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0755))
	writePlan(t, sub, "mos_g140m.yaml", "x: 1\n")

	files, err := FindPlans(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = FindPlans(dir, "fs_*")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0], "fs_prism.yaml")
}
