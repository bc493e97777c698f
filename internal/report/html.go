package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes an HTML report page for one run.
//
// The page carries two bar charts: per-step wall clock time, and
// pass/fail counts per test family. Chart assets load from the default
// go-echarts CDN host.
func RenderHTML(w io.Writer, data Data) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("NPTT Run %s", data.Run.ID)
	page.AddCharts(timingChart(data), outcomeChart(data))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// timingChart builds the per-step wall clock bar chart.
func timingChart(data Data) *charts.Bar {
	steps := make([]string, 0, len(data.Timings))
	seconds := make([]opts.BarData, 0, len(data.Timings))
	for _, t := range data.Timings {
		steps = append(steps, displayName(t.Step))
		seconds = append(seconds, opts.BarData{Value: t.Seconds})
	}

	subtitle := fmt.Sprintf("dataset=%s detector=%s mode=%s",
		data.Run.Dataset, data.Run.Detector, data.Run.Mode)
	if !data.Run.FinishedAt.IsZero() {
		subtitle += fmt.Sprintf(" finished=%s",
			data.Run.FinishedAt.UTC().Format(time.RFC3339))
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Step Timings (s)", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(steps).
		AddSeries("seconds", seconds,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// outcomeChart builds the pass/fail bar chart grouped by test family.
func outcomeChart(data Data) *charts.Bar {
	tallies := familyTallies(data.Results)

	families := make([]string, 0, len(tallies))
	passed := make([]opts.BarData, 0, len(tallies))
	failed := make([]opts.BarData, 0, len(tallies))
	for _, tally := range tallies {
		families = append(families, titleCaser.String(tally.Family))
		passed = append(passed, opts.BarData{Value: tally.Passed})
		failed = append(failed, opts.BarData{Value: tally.Failed})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Check Outcomes",
			Subtitle: fmt.Sprintf("passed=%d failed=%d", data.Run.Passed, data.Run.Failed),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(families).
		AddSeries("passed", passed, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#35b779"})).
		AddSeries("failed", failed, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))
	return bar
}
