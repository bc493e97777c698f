package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
input:
  input_file: final_output_caldet1_NRS1.fits
  output_directory: /data/out
  truth_directory: /data/truth
  mode: steps
steps:
  assign_wcs: true
  extract_2d: true
  wavecorr: false
tests:
  assign_wcs:
    completion: true
    reffile: true
    validation: false
thresholds:
  flat_field: 1.0e-6
datasets:
  max_parallel: 4
  dirs:
    - /data/sets/fs_prism
    - /data/sets/ifu_g395h
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "NPTT_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "final_output_caldet1_NRS1.fits", cfg.Input.InputFile)
	assert.Equal(t, ModeSteps, cfg.Input.Mode)
	assert.Equal(t, "strun", cfg.Input.Executable, "executable defaults")
	assert.True(t, cfg.StepEnabled("assign_wcs"))
	assert.False(t, cfg.StepEnabled("wavecorr"))
	assert.False(t, cfg.StepEnabled("flat_field"), "absent steps default off")
	assert.Equal(t, 4, cfg.Datasets.MaxParallel)
	assert.Len(t, cfg.Datasets.Dirs, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/NPTT_config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestDecode_UnknownFieldRejected(t *testing.T) {
	_, err := Decode([]byte(`
input:
  input_file: in.fits
  output_directory: /out
step:
  assign_wcs: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestDecode_InvalidMode(t *testing.T) {
	_, err := Decode([]byte(`
input:
  input_file: in.fits
  output_directory: /out
  mode: sometimes
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
	assert.Contains(t, err.Error(), "mode")
}

func TestDecode_EmptyInputFile(t *testing.T) {
	_, err := Decode([]byte(`
input:
  input_file: ""
  output_directory: /out
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input_file")
}

func TestDecode_NonPositiveThreshold(t *testing.T) {
	_, err := Decode([]byte(`
input:
  input_file: in.fits
  output_directory: /out
thresholds:
  flat_field: -1.0e-6
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thresholds")
}

func TestDecode_Defaults(t *testing.T) {
	cfg, err := Decode([]byte(`
input:
  input_file: in.fits
  output_directory: /out
`))
	require.NoError(t, err)

	assert.Equal(t, ModeSteps, cfg.Input.Mode)
	assert.Equal(t, 1, cfg.Datasets.MaxParallel)
	assert.NotNil(t, cfg.Steps)
	assert.NotNil(t, cfg.Tests)
}

func TestValidateFile_ReturnsViolations(t *testing.T) {
	path := writeConfig(t, `
input:
  input_file: in.fits
  output_directory: /out
  mode: sometimes
`)

	errs, err := ValidateFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Field, "mode")
}

func TestValidateFile_Valid(t *testing.T) {
	errs, err := ValidateFile(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestThresholdFor(t *testing.T) {
	cfg, err := Decode([]byte(`
input:
  input_file: in.fits
  output_directory: /out
thresholds:
  flat_field: 1.0e-5
`))
	require.NoError(t, err)

	assert.InDelta(t, 1e-5, cfg.ThresholdFor("flat_field"), 1e-20)
	assert.InDelta(t, DefaultThreshold, cfg.ThresholdFor("photom"), 1e-20)
}

func TestTestsFor(t *testing.T) {
	cfg, err := Decode([]byte(`
input:
  input_file: in.fits
  output_directory: /out
tests:
  wavecorr:
    completion: true
    reffile: false
    validation: true
`))
	require.NoError(t, err)

	toggles := cfg.TestsFor("wavecorr")
	assert.True(t, toggles.Completion)
	assert.False(t, toggles.Reffile)
	assert.True(t, toggles.Validation)

	// Steps without a tests entry run nothing.
	assert.Equal(t, Toggles{}, cfg.TestsFor("photom"))
}
