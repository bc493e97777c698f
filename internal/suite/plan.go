package suite

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/penaguerrero/nptt/internal/pipeline"
)

// Check families, matching the original pytest family names.
const (
	FamilyCompletion = "completion"
	FamilyReffile    = "reffile"
	FamilyValidation = "validation"
)

// Plan names the steps under test and, optionally, per-step overrides
// of the config's test toggles and thresholds.
type Plan struct {
	// Name uniquely identifies this plan; golden files use it.
	Name string `yaml:"name"`

	// Description explains what this plan covers.
	Description string `yaml:"description"`

	// Steps lists the stage-2 steps to check, in order.
	Steps []PlanStep `yaml:"steps"`
}

// PlanStep selects one stage-2 step and optional overrides.
type PlanStep struct {
	// Step is the stage-2 step name (must exist in the step catalog).
	Step string `yaml:"step"`

	// Families overrides the config's test toggles for this step.
	// When empty, the config decides.
	Families []string `yaml:"families,omitempty"`

	// Threshold overrides the validation tolerance for this step.
	// Zero means use the config's value.
	Threshold float64 `yaml:"threshold,omitempty"`
}

// LoadPlan reads and parses a plan YAML file.
// Unknown fields and unknown step or family names are errors.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var plan Plan
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catch typos like "familes:"
	if err := decoder.Decode(&plan); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validatePlan(&plan); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &plan, nil
}

func validatePlan(p *Plan) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range p.Steps {
		if step.Step == "" {
			return fmt.Errorf("steps[%d]: step is required", i)
		}
		if _, ok := pipeline.Lookup(step.Step); !ok {
			return fmt.Errorf("steps[%d]: unknown step %q", i, step.Step)
		}
		for _, fam := range step.Families {
			switch fam {
			case FamilyCompletion, FamilyReffile, FamilyValidation:
			default:
				return fmt.Errorf("steps[%d]: unknown family %q", i, fam)
			}
		}
		if step.Threshold < 0 {
			return fmt.Errorf("steps[%d]: threshold must be positive", i)
		}
	}
	return nil
}

// FindPlans walks dir for .yaml/.yml plan files, optionally filtered
// by a glob pattern on the base name (without extension).
func FindPlans(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
