package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/out", "NRS1_completed_steps.txt"), TrackingPath("/out", "NRS1"))
}

func TestAppendAndReadCompleted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NRS1_completed_steps.txt")

	require.NoError(t, AppendCompleted(path, StepRecord{Step: "assign_wcs", Suffix: "_assign_wcs", Completed: true, Seconds: 12.345}))
	require.NoError(t, AppendCompleted(path, StepRecord{Step: "extract_2d", Suffix: "_extract_2d", Completed: false, Seconds: 0}))

	records, err := ReadCompleted(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, records["assign_wcs"].Completed)
	assert.InDelta(t, 12.345, records["assign_wcs"].Seconds, 1e-9)
	assert.False(t, records["extract_2d"].Completed)

	// The header comment survives appends.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# step suffix completed seconds")
}

func TestReadCompleted_RerunsOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NRS2_completed_steps.txt")

	require.NoError(t, AppendCompleted(path, StepRecord{Step: "wavecorr", Suffix: "_wavecorr", Completed: false, Seconds: 1}))
	require.NoError(t, AppendCompleted(path, StepRecord{Step: "wavecorr", Suffix: "_wavecorr", Completed: true, Seconds: 2}))

	records, err := ReadCompleted(path)
	require.NoError(t, err)
	assert.True(t, records["wavecorr"].Completed)
	assert.InDelta(t, 2.0, records["wavecorr"].Seconds, 1e-9)
}

func TestReadCompleted_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("assign_wcs _assign_wcs yes\n"), 0644))

	_, err := ReadCompleted(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 4 fields")
}

func TestCheckCompletedSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NRS1_completed_steps.txt")
	require.NoError(t, AppendCompleted(path, StepRecord{Step: "assign_wcs", Suffix: "_assign_wcs", Completed: true, Seconds: 1}))
	require.NoError(t, AppendCompleted(path, StepRecord{Step: "extract_2d", Suffix: "_extract_2d", Completed: false, Seconds: 1}))

	enabled := func(name string) bool {
		switch name {
		case "assign_wcs", "extract_2d", "srctype", "wavecorr":
			return true
		}
		return false
	}

	missing, err := CheckCompletedSteps(path, "wavecorr", enabled)
	require.NoError(t, err)
	// extract_2d failed and srctype never ran; disabled steps are not
	// prerequisites.
	assert.Equal(t, []string{"extract_2d", "srctype"}, missing)

	missing, err = CheckCompletedSteps(path, "extract_2d", enabled)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
