package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// RenderText writes a plain text report for one run.
func RenderText(w io.Writer, data Data) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Run:      %s\n", data.Run.ID)
	fmt.Fprintf(&b, "Dataset:  %s\n", data.Run.Dataset)
	if data.Run.Detector != "" {
		fmt.Fprintf(&b, "Detector: %s\n", data.Run.Detector)
	}
	fmt.Fprintf(&b, "Mode:     %s\n", data.Run.Mode)
	fmt.Fprintf(&b, "Started:  %s\n", data.Run.StartedAt.UTC().Format(time.RFC3339))
	if !data.Run.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Finished: %s\n", data.Run.FinishedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Checks:   %d passed, %d failed\n", data.Run.Passed, data.Run.Failed)

	if len(data.Timings) > 0 {
		b.WriteString("\nStep timings:\n")
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  STEP\tSECONDS\tCOMPLETED")
		for _, t := range data.Timings {
			fmt.Fprintf(tw, "  %s\t%.2f\t%t\n", t.Step, t.Seconds, t.Completed)
		}
		tw.Flush()
	}

	if len(data.Results) > 0 {
		b.WriteString("\nCheck results:\n")
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  SEQ\tSTEP\tFAMILY\tRESULT\tMESSAGE")
		for _, r := range data.Results {
			outcome := "PASS"
			if !r.Pass {
				outcome = "FAIL"
			}
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", r.Seq, r.Step, r.Family, outcome, r.Message)
		}
		tw.Flush()
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes the report data as indented JSON.
func RenderJSON(w io.Writer, data Data) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
