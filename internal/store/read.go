package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// GetRun returns the run with the given ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, dataset, detector, mode, started_at, finished_at, passed, failed
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %q: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
// limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, dataset, detector, mode, started_at, finished_at, passed, failed
		FROM runs ORDER BY started_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// StepTimings returns the step timings for a run in pipeline order of
// insertion (rowid order).
func (s *Store) StepTimings(ctx context.Context, runID string) ([]StepTiming, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, step, seconds, completed
		FROM step_timings WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("step timings: %w", err)
	}
	defer rows.Close()

	var timings []StepTiming
	for rows.Next() {
		var t StepTiming
		if err := rows.Scan(&t.RunID, &t.Step, &t.Seconds, &t.Completed); err != nil {
			return nil, fmt.Errorf("step timings: %w", err)
		}
		timings = append(timings, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("step timings: %w", err)
	}
	return timings, nil
}

// TestResults returns the check outcomes for a run in execution order.
func (s *Store) TestResults(ctx context.Context, runID string) ([]TestResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, step, family, pass, message
		FROM test_results WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("test results: %w", err)
	}
	defer rows.Close()

	var results []TestResult
	for rows.Next() {
		var r TestResult
		if err := rows.Scan(&r.RunID, &r.Seq, &r.Step, &r.Family, &r.Pass, &r.Message); err != nil {
			return nil, fmt.Errorf("test results: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("test results: %w", err)
	}
	return results, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		started  string
		finished string
	)
	err := row.Scan(&run.ID, &run.Dataset, &run.Detector, &run.Mode,
		&started, &finished, &run.Passed, &run.Failed)
	if err != nil {
		return Run{}, err
	}

	run.StartedAt, err = time.Parse(timeFormat, started)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finished != "" {
		run.FinishedAt, err = time.Parse(timeFormat, finished)
		if err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
	}
	return run, nil
}
