package suite

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the canonical form of a result trace compared
// against golden files in testdata/golden/.
type TraceSnapshot struct {
	PlanName string
	Trace    []CheckEvent
}

// toCanonicalMap converts the snapshot into the plain map form the
// canonical marshaller accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		m := map[string]any{
			"type":   event.Type,
			"step":   event.Step,
			"family": event.Family,
			"pass":   event.Pass,
			"seq":    event.Seq,
		}
		if event.Message != "" {
			m["message"] = event.Message
		}
		trace[i] = m
	}
	return map[string]any{
		"plan_name": s.PlanName,
		"trace":     trace,
	}
}

// Snapshot returns the canonical JSON form of a result's trace, the
// same bytes golden files hold. Used by the CLI for snapshot
// comparison and regeneration outside of go test.
func Snapshot(planName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{PlanName: planName, Trace: result.Trace}
	return marshalCanonical(snapshot.toCanonicalMap())
}

// AssertGolden compares a result's trace against the golden file for
// planName. Regenerate golden files with:
//
//	go test ./internal/suite -update
func AssertGolden(t *testing.T, planName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(planName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, planName, data)
	return nil
}
