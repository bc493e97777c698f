package suite

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/penaguerrero/nptt/internal/fitshdr"
	"github.com/penaguerrero/nptt/internal/pipeline"
)

// CheckError is returned when a check fails. Expected and Actual are
// human-readable so the message stands alone in reports.
type CheckError struct {
	Family   string
	Step     string
	Expected string
	Actual   string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s check failed for %s: expected %s, got %s", e.Family, e.Step, e.Expected, e.Actual)
}

// checkCompletion verifies the step output exists and the pipeline
// stamped the step status keyword as COMPLETE.
func checkCompletion(step pipeline.Step, outFile string) error {
	if outFile == "" {
		return &CheckError{
			Family:   FamilyCompletion,
			Step:     step.Name,
			Expected: fmt.Sprintf("output file *%s.fits", step.Suffix),
			Actual:   "no output file found",
		}
	}

	h, err := fitshdr.ReadPrimary(outFile)
	if err != nil {
		return fmt.Errorf("%s completion check: %w", step.Name, err)
	}

	status, err := h.Str(step.StatusKeyword)
	if err != nil {
		return &CheckError{
			Family:   FamilyCompletion,
			Step:     step.Name,
			Expected: step.StatusKeyword + "=COMPLETE",
			Actual:   step.StatusKeyword + " not present",
		}
	}
	if !strings.EqualFold(status, "COMPLETE") {
		return &CheckError{
			Family:   FamilyCompletion,
			Step:     step.Name,
			Expected: step.StatusKeyword + "=COMPLETE",
			Actual:   step.StatusKeyword + "=" + status,
		}
	}
	return nil
}

// checkReffile verifies every reference-file keyword the step records
// matches the truth header. The truth header decides which keywords
// are compared: a keyword the truth file lacks is not a requirement.
func checkReffile(step pipeline.Step, outFile, truthFile string) error {
	if outFile == "" {
		return &CheckError{
			Family:   FamilyReffile,
			Step:     step.Name,
			Expected: "step output file",
			Actual:   "no output file found",
		}
	}
	if truthFile == "" {
		return &CheckError{
			Family:   FamilyReffile,
			Step:     step.Name,
			Expected: "truth file",
			Actual:   "no truth file found",
		}
	}

	outHdr, err := fitshdr.ReadPrimary(outFile)
	if err != nil {
		return fmt.Errorf("%s reffile check: %w", step.Name, err)
	}
	truthHdr, err := fitshdr.ReadPrimary(truthFile)
	if err != nil {
		return fmt.Errorf("%s reffile check: %w", step.Name, err)
	}

	for _, key := range step.RefKeywords {
		want, err := truthHdr.Str(key)
		if err != nil {
			continue
		}
		got, err := outHdr.Str(key)
		if err != nil {
			return &CheckError{
				Family:   FamilyReffile,
				Step:     step.Name,
				Expected: fmt.Sprintf("%s=%s", key, refBase(want)),
				Actual:   key + " not present in output",
			}
		}
		// CRDS names may carry different path prefixes; the file
		// name is the identity.
		if refBase(got) != refBase(want) {
			return &CheckError{
				Family:   FamilyReffile,
				Step:     step.Name,
				Expected: fmt.Sprintf("%s=%s", key, refBase(want)),
				Actual:   fmt.Sprintf("%s=%s", key, refBase(got)),
			}
		}
	}
	return nil
}

// refBase strips any crds:// or path prefix from a reference name.
func refBase(name string) string {
	name = strings.TrimPrefix(name, "crds://")
	return filepath.Base(name)
}

// checkValidation compares the output SCI array against the truth SCI
// array. The check passes when the median of the element-wise
// differences is within the threshold.
func checkValidation(step pipeline.Step, outFile, truthFile string, threshold float64) (DiffStats, error) {
	if outFile == "" {
		return DiffStats{}, &CheckError{
			Family:   FamilyValidation,
			Step:     step.Name,
			Expected: "step output file",
			Actual:   "no output file found",
		}
	}
	if truthFile == "" {
		return DiffStats{}, &CheckError{
			Family:   FamilyValidation,
			Step:     step.Name,
			Expected: "truth file",
			Actual:   "no truth file found",
		}
	}

	outData, err := readSCI(outFile)
	if err != nil {
		return DiffStats{}, fmt.Errorf("%s validation check: %w", step.Name, err)
	}
	truthData, err := readSCI(truthFile)
	if err != nil {
		return DiffStats{}, fmt.Errorf("%s validation check: %w", step.Name, err)
	}

	stats, err := diffStats(outData, truthData)
	if err != nil {
		return DiffStats{}, fmt.Errorf("%s validation check: %w", step.Name, err)
	}

	if math.Abs(stats.Median) > threshold {
		return stats, &CheckError{
			Family:   FamilyValidation,
			Step:     step.Name,
			Expected: fmt.Sprintf("|median(diff)| <= %.3e", threshold),
			Actual:   fmt.Sprintf("median=%.3e mean=%.3e stddev=%.3e n=%d", stats.Median, stats.Mean, stats.StdDev, stats.N),
		}
	}
	return stats, nil
}
