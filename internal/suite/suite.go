package suite

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/penaguerrero/nptt/internal/config"
	"github.com/penaguerrero/nptt/internal/pipeline"
	"github.com/penaguerrero/nptt/internal/testutil"
)

// Suite evaluates plans against the outputs of one configured dataset.
type Suite struct {
	cfg   *config.Config
	log   *slog.Logger
	clock *testutil.LogicalClock
}

// New creates a suite for the given configuration.
func New(cfg *config.Config, logger *slog.Logger) *Suite {
	return &Suite{
		cfg:   cfg,
		log:   logger,
		clock: testutil.NewLogicalClock(),
	}
}

// Run executes all checks of a plan and returns the result.
//
// Output and truth files are located by step suffix glob in the
// configured directories, so the chained file names produced by
// steps-mode runs resolve without the suite knowing which earlier
// steps ran.
func (s *Suite) Run(plan *Plan) (*Result, error) {
	result := NewResult()

	for _, ps := range plan.Steps {
		step, ok := pipeline.Lookup(ps.Step)
		if !ok {
			// LoadPlan validates step names; reaching this means the
			// plan was built programmatically with a bad name.
			return nil, fmt.Errorf("unknown step %q", ps.Step)
		}

		families := familiesFor(ps, s.cfg.TestsFor(step.Name))
		if len(families) == 0 {
			s.log.Debug("no check families enabled", "step", step.Name)
			continue
		}

		threshold := ps.Threshold
		if threshold == 0 {
			threshold = s.cfg.ThresholdFor(step.Name)
		}

		outFile := findBySuffix(s.cfg.Input.OutputDirectory, step.Suffix)
		truthFile := findBySuffix(s.cfg.Input.TruthDirectory, step.Suffix)

		for _, family := range families {
			seq := s.clock.Next()
			var err error
			switch family {
			case FamilyCompletion:
				err = checkCompletion(step, outFile)
			case FamilyReffile:
				err = checkReffile(step, outFile, truthFile)
			case FamilyValidation:
				var stats DiffStats
				stats, err = checkValidation(step, outFile, truthFile, threshold)
				if stats.N > 0 {
					result.Stats[step.Name] = stats
				}
			}

			pass := err == nil
			message := ""
			if err != nil {
				message = err.Error()
			}
			result.AddCheck(step.Name, family, pass, message, seq)

			s.log.Info("check executed",
				"step", step.Name,
				"family", family,
				"pass", pass,
				"seq", seq,
			)
		}
	}

	return result, nil
}

// familiesFor resolves which families run for a plan step, in the
// fixed execution order completion, reffile, validation.
func familiesFor(ps PlanStep, toggles config.Toggles) []string {
	if len(ps.Families) > 0 {
		enabled := map[string]bool{}
		for _, f := range ps.Families {
			enabled[f] = true
		}
		return orderedFamilies(enabled[FamilyCompletion], enabled[FamilyReffile], enabled[FamilyValidation])
	}
	return orderedFamilies(toggles.Completion, toggles.Reffile, toggles.Validation)
}

func orderedFamilies(completion, reffile, validation bool) []string {
	var out []string
	if completion {
		out = append(out, FamilyCompletion)
	}
	if reffile {
		out = append(out, FamilyReffile)
	}
	if validation {
		out = append(out, FamilyValidation)
	}
	return out
}

// findBySuffix returns the lexically first file in dir matching
// *<suffix>.fits, or "" when none exists.
func findBySuffix(dir, suffix string) string {
	if dir == "" {
		return ""
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+suffix+".fits"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}
