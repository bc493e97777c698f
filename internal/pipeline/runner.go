package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/penaguerrero/nptt/internal/config"
	"github.com/penaguerrero/nptt/internal/fitshdr"
)

// StepResult records one step's outcome in a pipeline run.
type StepResult struct {
	Step       string  `json:"step"`
	OutputFile string  `json:"output_file,omitempty"`
	Completed  bool    `json:"completed"`
	Skipped    bool    `json:"skipped,omitempty"`
	SkipReason string  `json:"skip_reason,omitempty"`
	Seconds    float64 `json:"seconds"`
}

// Runner invokes the external pipeline for one configured dataset.
type Runner struct {
	cfg *config.Config
	log *slog.Logger
}

// NewRunner creates a runner for the given configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, log: logger}
}

// Run executes the pipeline per the configured mode and returns one
// result per step (or a single result for a full-pipeline run).
//
// In steps mode a failing step is recorded as not completed and the
// sequence continues with the previous step's output, matching the
// harness goal of collecting as many comparable outputs as possible.
func (r *Runner) Run(ctx context.Context) ([]StepResult, error) {
	inputPath := r.cfg.Input.InputFile
	if !filepath.IsAbs(inputPath) {
		inputPath = filepath.Join(r.cfg.Input.OutputDirectory, inputPath)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return nil, fmt.Errorf("pipeline input file: %w", err)
	}

	hdr, err := fitshdr.ReadPrimary(inputPath)
	if err != nil {
		return nil, fmt.Errorf("read input header: %w", err)
	}

	// The stop-after-extract_2d rule keys on the filter as observed,
	// before any science-filter rewrite.
	filter, _ := hdr.Str(fitshdr.KeyFilter)
	opaque := strings.EqualFold(filter, "OPAQUE")

	if r.cfg.Input.ChangeFilterOpaque {
		changed, err := fitshdr.ChangeFilterOpaque(inputPath)
		if err != nil {
			return nil, fmt.Errorf("change opaque filter: %w", err)
		}
		if changed {
			r.log.Info("rewrote FILTER=OPAQUE to science filter", "file", inputPath)
			hdr, err = fitshdr.ReadPrimary(inputPath)
			if err != nil {
				return nil, fmt.Errorf("reread input header: %w", err)
			}
		}
	}

	switch r.cfg.Input.Mode {
	case config.ModeSkip:
		r.log.Info("pipeline execution skipped", "mode", config.ModeSkip)
		return nil, nil
	case config.ModeFull:
		return r.runFull(ctx, inputPath)
	case config.ModeSteps:
		return r.runSteps(ctx, inputPath, hdr, opaque)
	}
	return nil, fmt.Errorf("unknown run mode %q", r.cfg.Input.Mode)
}

// runFull runs the entire stage-2 pipeline in one subprocess.
func (r *Runner) runFull(ctx context.Context, inputPath string) ([]StepResult, error) {
	args := []string{Stage2Class, inputPath, "--output_dir", r.cfg.Input.OutputDirectory}

	start := time.Now()
	err := r.execPipeline(ctx, Stage2Class, args)
	seconds := time.Since(start).Seconds()

	result := StepResult{
		Step:       "calwebb_spec2",
		OutputFile: withSuffix(inputPath, "_cal"),
		Completed:  err == nil,
		Seconds:    seconds,
	}
	if err != nil {
		r.log.Error("full pipeline run failed", "error", err)
	}
	return []StepResult{result}, ctx.Err()
}

// runSteps runs each enabled step in order, chaining outputs.
func (r *Runner) runSteps(ctx context.Context, inputPath string, hdr *fitshdr.Header, opaque bool) ([]StepResult, error) {
	detector, err := fitshdr.Detector(hdr)
	if err != nil {
		return nil, fmt.Errorf("input header: %w", err)
	}
	trackingPath := TrackingPath(r.cfg.Input.OutputDirectory, detector)

	// With FILTER=OPAQUE the pipeline has nothing to calibrate past
	// extract_2d, so the sequence stops there even when extract_2d
	// itself is disabled or skipped.
	stopAfter := -1
	if opaque {
		for i, s := range Spec2Steps {
			if s.Name == "extract_2d" {
				stopAfter = i
				break
			}
		}
	}

	var results []StepResult
	current := inputPath

	for i, step := range Spec2Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if stopAfter >= 0 && i > stopAfter {
			r.log.Info("FILTER=OPAQUE: stopping after extract_2d")
			break
		}

		if !r.cfg.StepEnabled(step.Name) {
			results = append(results, StepResult{Step: step.Name, Skipped: true, SkipReason: "disabled in config"})
			continue
		}
		if reason := step.SkipReason(hdr); reason != "" {
			r.log.Info("step not applicable", "step", step.Name, "reason", reason)
			results = append(results, StepResult{Step: step.Name, Skipped: true, SkipReason: reason})
			continue
		}
		if _, err := os.Stat(current); err != nil {
			r.log.Warn("step input missing", "step", step.Name, "input", current)
			if err := AppendCompleted(trackingPath, StepRecord{
				Step:   step.Name,
				Suffix: step.Suffix,
			}); err != nil {
				return results, err
			}
			results = append(results, StepResult{Step: step.Name, Skipped: true, SkipReason: "input file does not exist"})
			continue
		}

		outFile := withSuffix(current, step.Suffix)
		args := []string{step.Class, current, "--output_file", outFile}
		if cfgPath := r.cfg.Input.LocalPipeCfgPath; cfgPath != "" {
			args = append(args, "--config_file", filepath.Join(cfgPath, step.Name+".cfg"))
		}

		r.log.Info("running pipeline step", "step", step.Name, "input", current)
		start := time.Now()
		runErr := r.execPipeline(ctx, step.Name, args)
		seconds := time.Since(start).Seconds()

		completed := runErr == nil && fileExists(outFile)
		if runErr != nil {
			r.log.Error("pipeline step failed", "step", step.Name, "seconds", seconds, "error", runErr)
		} else {
			r.log.Info("pipeline step finished", "step", step.Name, "seconds", seconds, "completed", completed)
		}

		if err := AppendCompleted(trackingPath, StepRecord{
			Step:      step.Name,
			Suffix:    step.Suffix,
			Completed: completed,
			Seconds:   seconds,
		}); err != nil {
			return results, err
		}

		results = append(results, StepResult{
			Step:       step.Name,
			OutputFile: outFile,
			Completed:  completed,
			Seconds:    seconds,
		})

		if completed {
			current = outFile
		}
	}

	return results, nil
}

// execPipeline runs one pipeline subprocess and logs its output.
func (r *Runner) execPipeline(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, r.cfg.Input.Executable, args...)
	cmd.Dir = r.cfg.Input.OutputDirectory

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.log.Debug("pipeline output", "step", name, "output", string(out))
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.cfg.Input.Executable, name, err)
	}
	return nil
}

// withSuffix inserts a step suffix before the .fits extension.
func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
