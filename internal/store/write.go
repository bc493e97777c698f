package store

import (
	"context"
	"fmt"
	"time"
)

// Run is a single dataset run of the pipeline and test orchestration.
type Run struct {
	ID         string    `json:"id"`
	Dataset    string    `json:"dataset"`
	Detector   string    `json:"detector,omitempty"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
}

// StepTiming records how long one pipeline step took within a run.
type StepTiming struct {
	RunID     string  `json:"run_id"`
	Step      string  `json:"step"`
	Seconds   float64 `json:"seconds"`
	Completed bool    `json:"completed"`
}

// TestResult records the outcome of one check executed within a run.
type TestResult struct {
	RunID   string `json:"run_id"`
	Seq     int64  `json:"seq"`
	Step    string `json:"step"`
	Family  string `json:"family"`
	Pass    bool   `json:"pass"`
	Message string `json:"message,omitempty"`
}

// timeFormat is how timestamps are stored. RFC 3339 in UTC sorts
// lexicographically, which keeps the started_at index usable for
// chronological listing.
const timeFormat = time.RFC3339

// CreateRun inserts a new run record with no finish time yet.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, dataset, detector, mode, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Dataset,
		run.Detector,
		run.Mode,
		run.StartedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun records the finish time and pass/fail tallies for a run.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, passed, failed int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, passed = ?, failed = ?
		WHERE id = ?
	`,
		finishedAt.UTC().Format(timeFormat),
		passed,
		failed,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("finish run: no run with id %q", id)
	}
	return nil
}

// WriteStepTiming inserts a step timing record.
// A rerun of the same step within a run replaces the earlier timing.
func (s *Store) WriteStepTiming(ctx context.Context, timing StepTiming) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO step_timings (run_id, step, seconds, completed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO UPDATE SET
			seconds = excluded.seconds,
			completed = excluded.completed
	`,
		timing.RunID,
		timing.Step,
		timing.Seconds,
		timing.Completed,
	)
	if err != nil {
		return fmt.Errorf("write step timing: %w", err)
	}
	return nil
}

// WriteTestResult inserts a check outcome.
// Uses ON CONFLICT DO NOTHING for idempotency - the (run_id, seq) pair
// identifies a check uniquely, so duplicate writes are silently ignored.
func (s *Store) WriteTestResult(ctx context.Context, result TestResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO test_results (run_id, seq, step, family, pass, message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		result.RunID,
		result.Seq,
		result.Step,
		result.Family,
		result.Pass,
		result.Message,
	)
	if err != nil {
		return fmt.Errorf("write test result: %w", err)
	}
	return nil
}
