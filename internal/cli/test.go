package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/penaguerrero/nptt/internal/config"
	"github.com/penaguerrero/nptt/internal/fitshdr"
	"github.com/penaguerrero/nptt/internal/pipeline"
	"github.com/penaguerrero/nptt/internal/store"
	"github.com/penaguerrero/nptt/internal/suite"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Database string
	Filter   string
	Update   bool
}

// PlanOutcome is the result of one plan in the test summary.
type PlanOutcome struct {
	Plan     string   `json:"plan"`
	Pass     bool     `json:"pass"`
	Checks   int      `json:"checks"`
	Failures []string `json:"failures,omitempty"`
	Snapshot string   `json:"snapshot,omitempty"` // "match", "mismatch", "updated", "" (none)
}

// TestSummary is the test command's output payload.
type TestSummary struct {
	RunID  string        `json:"run_id"`
	Plans  []PlanOutcome `json:"plans"`
	Passed int           `json:"passed"`
	Failed int           `json:"failed"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <config> <plans-dir>",
		Short: "Run comparison test plans against truth files",
		Long: `Run the comparison suites described by plan files in a directory.

Each plan names stage-2 steps to check; the completion, reffile, and
validation families compare the pipeline's output products against the
configured truth directory. Outcomes are recorded to the run database.

Plans with a golden/<name>.golden snapshot next to them also have their
check trace compared byte-for-byte; --update rewrites the snapshots.

Example:
  nptt test ./NPTT_config.yaml ./plans
  nptt test ./NPTT_config.yaml ./plans --filter 'fs_*' --update`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run database (default <output_directory>/nptt.db)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "glob pattern on plan file base names")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden trace snapshots")

	return cmd
}

func runTests(opts *TestOptions, configPath, plansDir string, cmd *cobra.Command) error {
	logger := setupLogging(opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	planFiles, err := suite.FindPlans(plansDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find plans", err)
	}
	if len(planFiles) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no plan files found in %s", plansDir))
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Input.OutputDirectory, "nptt.db")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx, stopSignals := signalContext(cmd, logger)
	defer stopSignals()

	runID, err := newRunID()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to generate run id", err)
	}
	if err := st.CreateRun(ctx, store.Run{
		ID:        runID,
		Dataset:   datasetLabel(configPath),
		Detector:  readDetector(cfg),
		Mode:      cfg.Input.Mode,
		StartedAt: time.Now(),
	}); err != nil {
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}

	summary := TestSummary{RunID: runID}
	var globalSeq int64

	for _, planFile := range planFiles {
		plan, err := suite.LoadPlan(planFile)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load plan %s", planFile), err)
		}

		warnMissingPrereqs(cfg, logger, plan)

		logger.Info("running plan", "plan", plan.Name, "steps", len(plan.Steps))
		result, err := suite.New(cfg, logger).Run(plan)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("plan %s failed to run", plan.Name), err)
		}

		outcome := PlanOutcome{
			Plan:     plan.Name,
			Pass:     result.Pass,
			Checks:   len(result.Trace),
			Failures: result.Errors,
		}

		for _, event := range result.Trace {
			globalSeq++
			if event.Pass {
				summary.Passed++
			} else {
				summary.Failed++
			}
			if err := st.WriteTestResult(ctx, store.TestResult{
				RunID:   runID,
				Seq:     globalSeq,
				Step:    event.Step,
				Family:  event.Family,
				Pass:    event.Pass,
				Message: event.Message,
			}); err != nil {
				logger.Error("failed to record test result", "plan", plan.Name, "error", err)
			}
		}

		snapshot, err := checkSnapshot(plansDir, plan.Name, result, opts.Update)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("snapshot for plan %s", plan.Name), err)
		}
		outcome.Snapshot = snapshot
		if snapshot == "mismatch" {
			outcome.Pass = false
			outcome.Failures = append(outcome.Failures, "trace differs from golden snapshot")
			summary.Failed++
		}

		summary.Plans = append(summary.Plans, outcome)
	}

	if err := st.FinishRun(ctx, runID, time.Now(), summary.Passed, summary.Failed); err != nil {
		logger.Error("failed to finish run record", "error", err)
	}

	if err := outputTestSummary(formatter, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d check(s) failed", summary.Failed))
	}
	return nil
}

// warnMissingPrereqs consults the per-detector tracking file for
// steps that never completed before a plan step. Best effort: an
// unreadable input header or no tracking file means nothing to check.
func warnMissingPrereqs(cfg *config.Config, logger *slog.Logger, plan *suite.Plan) {
	inputPath := cfg.Input.InputFile
	if !filepath.IsAbs(inputPath) {
		inputPath = filepath.Join(cfg.Input.OutputDirectory, inputPath)
	}
	hdr, err := fitshdr.ReadPrimary(inputPath)
	if err != nil {
		return
	}
	detector, err := fitshdr.Detector(hdr)
	if err != nil {
		return
	}
	trackingPath := pipeline.TrackingPath(cfg.Input.OutputDirectory, detector)
	if _, err := os.Stat(trackingPath); err != nil {
		return
	}

	for _, ps := range plan.Steps {
		missing, err := missingPrereqs(cfg, hdr, trackingPath, ps.Step)
		if err != nil {
			logger.Warn("could not check completed steps", "error", err)
			return
		}
		if len(missing) > 0 {
			logger.Warn("prerequisite steps not completed",
				"step", ps.Step, "missing", strings.Join(missing, ","))
		}
	}
}

// missingPrereqs lists the steps before upTo with no completed
// tracking record. A step counts as a prerequisite only when it is
// enabled in the config and applies to the exposure; wavecorr on IFU
// data never runs, so its absence is not a gap.
func missingPrereqs(cfg *config.Config, hdr *fitshdr.Header, trackingPath, upTo string) ([]string, error) {
	applies := func(name string) bool {
		if !cfg.StepEnabled(name) {
			return false
		}
		step, ok := pipeline.Lookup(name)
		return ok && step.SkipReason(hdr) == ""
	}
	return pipeline.CheckCompletedSteps(trackingPath, upTo, applies)
}

// checkSnapshot compares (or rewrites, with update) the plan's golden
// trace snapshot under <plans-dir>/golden/. Returns "", "match",
// "mismatch", or "updated".
func checkSnapshot(plansDir, planName string, result *suite.Result, update bool) (string, error) {
	data, err := suite.Snapshot(planName, result)
	if err != nil {
		return "", err
	}
	path := filepath.Join(plansDir, "golden", planName+".golden")

	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", err
		}
		return "updated", nil
	}

	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil // no snapshot for this plan
	}
	if err != nil {
		return "", err
	}
	if bytes.Equal(existing, data) {
		return "match", nil
	}
	return "mismatch", nil
}

func outputTestSummary(formatter *OutputFormatter, summary TestSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	for _, plan := range summary.Plans {
		mark := "✓"
		if !plan.Pass {
			mark = "✗"
		}
		fmt.Fprintf(formatter.Writer, "%s %s (%d checks)", mark, plan.Plan, plan.Checks)
		if plan.Snapshot != "" {
			fmt.Fprintf(formatter.Writer, " [snapshot %s]", plan.Snapshot)
		}
		fmt.Fprintln(formatter.Writer)
		for _, failure := range plan.Failures {
			fmt.Fprintf(formatter.Writer, "    %s\n", failure)
		}
	}
	fmt.Fprintf(formatter.Writer, "%d passed, %d failed\n", summary.Passed, summary.Failed)
	return nil
}
