package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/penaguerrero/nptt/internal/report"
	"github.com/penaguerrero/nptt/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	RunID string
	Out   string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report <db>",
		Short: "Render a run report from the run database",
		Long: `Render a report for a recorded run.

By default the most recent run is reported as text (or JSON with
--format json). With --out, an HTML page with step timing and check
outcome charts is written instead.

Example:
  nptt report ./nptt.db
  nptt report ./nptt.db --run 0198c5b2-... --out report.html`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to report (default: most recent)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write an HTML report to this file")

	return cmd
}

func runReport(opts *ReportOptions, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(dbPath); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := loadReportData(ctx, st, opts.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, "run not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to load run", err)
	}

	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()

		if err := report.RenderHTML(f, data); err != nil {
			return WrapExitError(ExitCommandError, "failed to render report", err)
		}
		return formatter.Success(fmt.Sprintf("wrote %s", opts.Out))
	}

	if formatter.Format == "json" {
		return report.RenderJSON(formatter.Writer, data)
	}
	return report.RenderText(formatter.Writer, data)
}

// loadReportData pulls one run with its timings and results. An empty
// runID selects the most recent run.
func loadReportData(ctx context.Context, st *store.Store, runID string) (report.Data, error) {
	var (
		run store.Run
		err error
	)
	if runID == "" {
		runs, listErr := st.ListRuns(ctx, 1)
		if listErr != nil {
			return report.Data{}, listErr
		}
		if len(runs) == 0 {
			return report.Data{}, fmt.Errorf("no runs recorded: %w", store.ErrNotFound)
		}
		run = runs[0]
	} else {
		run, err = st.GetRun(ctx, runID)
		if err != nil {
			return report.Data{}, err
		}
	}

	timings, err := st.StepTimings(ctx, run.ID)
	if err != nil {
		return report.Data{}, err
	}
	results, err := st.TestResults(ctx, run.ID)
	if err != nil {
		return report.Data{}, err
	}

	return report.Data{Run: run, Timings: timings, Results: results}, nil
}
