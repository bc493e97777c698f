// Package config loads and validates the NPTT configuration file.
//
// The configuration is YAML, decoded strictly (unknown keys are
// errors), then checked against an embedded CUE schema. A single file
// describes one dataset run: the pipeline input file, which stage-2
// steps to run, which test families to evaluate per step, and the
// numeric thresholds for validation comparisons.
package config

import (
	"bytes"
	"fmt"
	"os"
)

// Run modes for the pipeline wrapper.
const (
	ModeFull  = "full"  // single run of the whole stage-2 pipeline
	ModeSteps = "steps" // one subprocess per enabled step
	ModeSkip  = "skip"  // no pipeline execution, outputs assumed present
)

// DefaultThreshold is the validation tolerance used when a step has no
// explicit entry in the thresholds section.
const DefaultThreshold = 1e-7

// Config is the full NPTT configuration for one dataset.
type Config struct {
	Input      Input              `yaml:"input" json:"input"`
	Steps      map[string]bool    `yaml:"steps" json:"steps"`
	Tests      map[string]Toggles `yaml:"tests" json:"tests"`
	Thresholds map[string]float64 `yaml:"thresholds" json:"thresholds"`
	Datasets   Datasets           `yaml:"datasets" json:"datasets"`
}

// Input describes the pipeline input and output locations.
type Input struct {
	InputFile          string `yaml:"input_file" json:"input_file"`
	OutputDirectory    string `yaml:"output_directory" json:"output_directory"`
	TruthDirectory     string `yaml:"truth_directory" json:"truth_directory"`
	Mode               string `yaml:"mode" json:"mode"`
	LocalPipeCfgPath   string `yaml:"local_pipe_cfg_path" json:"local_pipe_cfg_path"`
	ChangeFilterOpaque bool   `yaml:"change_filter_opaque" json:"change_filter_opaque"`
	RawDataRoot        string `yaml:"raw_data_root" json:"raw_data_root"`
	Executable         string `yaml:"executable" json:"executable"`
}

// Toggles enables or disables the three test families for one step.
type Toggles struct {
	Completion bool `yaml:"completion" json:"completion"`
	Reffile    bool `yaml:"reffile" json:"reffile"`
	Validation bool `yaml:"validation" json:"validation"`
}

// Datasets configures the parallel driver.
type Datasets struct {
	MaxParallel int      `yaml:"max_parallel" json:"max_parallel"`
	Dirs        []string `yaml:"dirs" json:"dirs"`
}

// Load reads, strictly decodes, defaults, and schema-validates a
// configuration file. Schema violations are returned as a single error
// wrapping all ValidationErrors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses configuration bytes. Split from Load for tests.
func Decode(data []byte) (*Config, error) {
	var cfg Config
	decoder := newStrictDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", joinValidationErrors(errs))
	}
	return &cfg, nil
}

// applyDefaults fills fields the file may omit.
func (c *Config) applyDefaults() {
	if c.Input.Mode == "" {
		c.Input.Mode = ModeSteps
	}
	if c.Input.Executable == "" {
		c.Input.Executable = "strun"
	}
	if c.Datasets.MaxParallel == 0 {
		c.Datasets.MaxParallel = 1
	}
	if c.Steps == nil {
		c.Steps = map[string]bool{}
	}
	if c.Tests == nil {
		c.Tests = map[string]Toggles{}
	}
	if c.Thresholds == nil {
		c.Thresholds = map[string]float64{}
	}
	if c.Datasets.Dirs == nil {
		c.Datasets.Dirs = []string{}
	}
}

// ValidateFile loads a config file and returns its schema violations
// instead of folding them into one error. Read and parse problems
// (missing file, bad YAML, unknown keys) are returned as the error.
func ValidateFile(path string) ([]ValidationError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := newStrictDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.applyDefaults()
	return cfg.Validate(), nil
}

// StepEnabled reports whether a stage-2 step is toggled on.
// Steps absent from the config default to off.
func (c *Config) StepEnabled(step string) bool {
	return c.Steps[step]
}

// TestsFor returns the test family toggles for a step.
// Steps absent from the tests section run no tests.
func (c *Config) TestsFor(step string) Toggles {
	return c.Tests[step]
}

// ThresholdFor returns the validation tolerance for a step.
func (c *Config) ThresholdFor(step string) float64 {
	if v, ok := c.Thresholds[step]; ok {
		return v
	}
	return DefaultThreshold
}
