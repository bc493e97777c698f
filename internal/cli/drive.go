package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/penaguerrero/nptt/internal/config"
	"github.com/penaguerrero/nptt/internal/driver"
)

// DriveSummary is the drive command's output payload.
type DriveSummary struct {
	Datasets []driver.Result `json:"datasets"`
	Passed   int             `json:"passed"`
	Failed   int             `json:"failed"`
}

// NewDriveCommand creates the drive command.
func NewDriveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive <config>",
		Short: "Run multiple datasets in parallel",
		Long: `Fan out one pipeline+suite run per configured dataset directory.

Each dataset directory must contain its own NPTT_config.yaml and runs
in an isolated subprocess; parallelism is bounded by the datasets
section's max_parallel setting.

Example:
  nptt drive ./driver_config.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrive(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runDrive(opts *RootOptions, configPath string, cmd *cobra.Command) error {
	logger := setupLogging(opts.Verbose)
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	ctx, stopSignals := signalContext(cmd, logger)
	defer stopSignals()

	results, err := driver.New(cfg, logger).Run(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "driver failed", err)
	}

	passed, failed := driver.Summarize(results)
	summary := DriveSummary{Datasets: results, Passed: passed, Failed: failed}

	if err := outputDriveSummary(formatter, summary); err != nil {
		return err
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d dataset(s) failed", failed))
	}
	return nil
}

func outputDriveSummary(formatter *OutputFormatter, summary DriveSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	for _, r := range summary.Datasets {
		if r.Pass {
			fmt.Fprintf(formatter.Writer, "✓ %s (%.1fs)\n", r.Dataset, r.Seconds)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s: %s\n", r.Dataset, r.Error)
		}
	}
	fmt.Fprintf(formatter.Writer, "%d passed, %d failed\n", summary.Passed, summary.Failed)
	return nil
}
