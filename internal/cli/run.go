package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/penaguerrero/nptt/internal/config"
	"github.com/penaguerrero/nptt/internal/fitshdr"
	"github.com/penaguerrero/nptt/internal/pipeline"
	"github.com/penaguerrero/nptt/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunSummary is the run command's output payload.
type RunSummary struct {
	RunID     string                `json:"run_id"`
	Dataset   string                `json:"dataset"`
	Detector  string                `json:"detector,omitempty"`
	Mode      string                `json:"mode"`
	Steps     []pipeline.StepResult `json:"steps"`
	Completed int                   `json:"completed"`
	Failed    int                   `json:"failed"`
	Skipped   int                   `json:"skipped"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run the stage-2 pipeline for one dataset",
		Long: `Run the calibration pipeline for the dataset described by a config file.

Depending on the configured mode, this runs the whole stage-2 pipeline
in one subprocess (full), one subprocess per enabled step (steps), or
nothing at all (skip). Step timings are recorded to the run database.

Example:
  nptt run ./NPTT_config.yaml
  nptt run --db ./nptt.db ./NPTT_config.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run database (default <output_directory>/nptt.db)")

	return cmd
}

func runPipeline(opts *RunOptions, configPath string, cmd *cobra.Command) error {
	logger := setupLogging(opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Input.OutputDirectory, "nptt.db")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, stopSignals := signalContext(cmd, logger)
	defer stopSignals()

	runID, err := newRunID()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to generate run id", err)
	}

	summary := RunSummary{
		RunID:    runID,
		Dataset:  datasetLabel(configPath),
		Detector: readDetector(cfg),
		Mode:     cfg.Input.Mode,
	}

	if err := st.CreateRun(ctx, store.Run{
		ID:        runID,
		Dataset:   summary.Dataset,
		Detector:  summary.Detector,
		Mode:      cfg.Input.Mode,
		StartedAt: time.Now(),
	}); err != nil {
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}

	logger.Info("pipeline run starting", "run_id", runID, "dataset", summary.Dataset, "mode", cfg.Input.Mode)
	results, runErr := pipeline.NewRunner(cfg, logger).Run(ctx)

	summary.Steps = results
	for _, r := range results {
		switch {
		case r.Skipped:
			summary.Skipped++
		case r.Completed:
			summary.Completed++
		default:
			summary.Failed++
		}
		if !r.Skipped {
			if err := st.WriteStepTiming(ctx, store.StepTiming{
				RunID:     runID,
				Step:      r.Step,
				Seconds:   r.Seconds,
				Completed: r.Completed,
			}); err != nil {
				logger.Error("failed to record step timing", "step", r.Step, "error", err)
			}
		}
	}

	if err := st.FinishRun(context.WithoutCancel(ctx), runID, time.Now(), summary.Completed, summary.Failed); err != nil {
		logger.Error("failed to finish run record", "error", err)
	}

	if runErr != nil {
		return WrapExitError(ExitCommandError, "pipeline run failed", runErr)
	}

	if err := outputRunSummary(formatter, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d step(s) failed", summary.Failed))
	}
	return nil
}

func outputRunSummary(formatter *OutputFormatter, summary RunSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "Run %s (%s, mode=%s)\n", summary.RunID, summary.Dataset, summary.Mode)
	for _, step := range summary.Steps {
		switch {
		case step.Skipped:
			fmt.Fprintf(formatter.Writer, "  - %-16s skipped (%s)\n", step.Step, step.SkipReason)
		case step.Completed:
			fmt.Fprintf(formatter.Writer, "  ✓ %-16s %.2fs\n", step.Step, step.Seconds)
		default:
			fmt.Fprintf(formatter.Writer, "  ✗ %-16s %.2fs\n", step.Step, step.Seconds)
		}
	}
	fmt.Fprintf(formatter.Writer, "%d completed, %d failed, %d skipped\n",
		summary.Completed, summary.Failed, summary.Skipped)
	return nil
}

// signalContext derives a context cancelled by SIGINT/SIGTERM.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, func()) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

// newRunID mints a time-ordered run identifier.
func newRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// datasetLabel names a run after the directory holding its config.
func datasetLabel(configPath string) string {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		abs = configPath
	}
	return filepath.Base(filepath.Dir(abs))
}

// readDetector pulls the DETECTOR keyword from the configured input
// file. Best effort: a missing file or keyword leaves it empty.
func readDetector(cfg *config.Config) string {
	inputPath := cfg.Input.InputFile
	if !filepath.IsAbs(inputPath) {
		inputPath = filepath.Join(cfg.Input.OutputDirectory, inputPath)
	}
	hdr, err := fitshdr.ReadPrimary(inputPath)
	if err != nil {
		return ""
	}
	detector, err := fitshdr.Detector(hdr)
	if err != nil {
		return ""
	}
	return detector
}
