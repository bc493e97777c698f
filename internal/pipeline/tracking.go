package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// StepRecord is one line of the completed-steps tracking file.
type StepRecord struct {
	Step      string
	Suffix    string
	Completed bool
	Seconds   float64
}

// TrackingPath returns the per-detector tracking file location.
func TrackingPath(outputDir, detector string) string {
	return filepath.Join(outputDir, detector+"_completed_steps.txt")
}

// AppendCompleted records a step outcome in the tracking file,
// creating the file with a header comment on first write.
func AppendCompleted(path string, rec StepRecord) error {
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open tracking file: %w", err)
	}
	defer f.Close()

	if os.IsNotExist(statErr) {
		if _, err := fmt.Fprintln(f, "# step suffix completed seconds"); err != nil {
			return fmt.Errorf("write tracking header: %w", err)
		}
	}

	_, err = fmt.Fprintf(f, "%s %s %t %.3f\n", rec.Step, rec.Suffix, rec.Completed, rec.Seconds)
	if err != nil {
		return fmt.Errorf("append tracking record: %w", err)
	}
	return nil
}

// ReadCompleted parses the tracking file into a map keyed by step name.
// Later records for the same step win (reruns overwrite earlier state).
func ReadCompleted(path string) (map[string]StepRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tracking file: %w", err)
	}
	defer f.Close()

	records := make(map[string]StepRecord)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, fmt.Errorf("tracking file line %d: expected 4 fields, got %d", line, len(fields))
		}
		completed, err := strconv.ParseBool(fields[2])
		if err != nil {
			return nil, fmt.Errorf("tracking file line %d: %w", line, err)
		}
		seconds, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("tracking file line %d: %w", line, err)
		}
		records[fields[0]] = StepRecord{
			Step:      fields[0],
			Suffix:    fields[1],
			Completed: completed,
			Seconds:   seconds,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tracking file: %w", err)
	}
	return records, nil
}

// CheckCompletedSteps verifies every enabled step preceding upTo was
// recorded as completed. Returns the names of missing steps in
// pipeline order; empty means the prerequisites are satisfied.
//
// Steps absent from enabled are not prerequisites: a run that disables
// bkg_subtract should not fail wavecorr's prerequisite check.
func CheckCompletedSteps(path, upTo string, enabled func(string) bool) ([]string, error) {
	records, err := ReadCompleted(path)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, s := range Spec2Steps {
		if s.Name == upTo {
			break
		}
		if !enabled(s.Name) {
			continue
		}
		if rec, ok := records[s.Name]; !ok || !rec.Completed {
			missing = append(missing, s.Name)
		}
	}
	return missing, nil
}
