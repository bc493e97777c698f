// Package driver fans out pipeline+suite runs over multiple dataset
// directories.
//
// Each dataset runs in its own subprocess (a re-exec of the nptt binary)
// so a crashing pipeline step cannot take down the driver or the other
// datasets. Parallelism is bounded by the config's max_parallel.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/penaguerrero/nptt/internal/config"
)

// ConfigFileName is the per-dataset configuration file the driver
// expects inside each dataset directory.
const ConfigFileName = "NPTT_config.yaml"

// Result is the outcome of one dataset run.
type Result struct {
	Dataset string  `json:"dataset"`
	Pass    bool    `json:"pass"`
	Error   string  `json:"error,omitempty"`
	Seconds float64 `json:"seconds"`
}

// Driver runs the configured datasets in bounded parallel.
type Driver struct {
	cfg *config.Config
	log *slog.Logger

	// Executable overrides the subprocess binary. Empty means re-exec
	// the current binary via os.Executable.
	Executable string
}

// New returns a driver for the given configuration.
func New(cfg *config.Config, log *slog.Logger) *Driver {
	return &Driver{cfg: cfg, log: log}
}

// Run executes one `nptt run` subprocess per dataset directory and
// returns the per-dataset results in dataset order.
//
// A failing dataset does not stop the others; only context
// cancellation aborts the fan-out early. The error return covers
// driver-level problems (no datasets, cancelled context), not
// individual dataset failures.
func (d *Driver) Run(ctx context.Context) ([]Result, error) {
	dirs := d.cfg.Datasets.Dirs
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no dataset directories configured")
	}

	exe := d.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		exe = self
	}

	results := make([]Result, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Datasets.MaxParallel)

	for i, dir := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.runDataset(gctx, exe, dir)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dataset fan-out: %w", err)
	}
	return results, nil
}

// runDataset runs one dataset subprocess and classifies its exit.
func (d *Driver) runDataset(ctx context.Context, exe, dir string) Result {
	result := Result{Dataset: dir}

	cfgPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(cfgPath); err != nil {
		result.Error = fmt.Sprintf("missing config: %v", err)
		return result
	}

	d.log.Info("starting dataset", "dir", dir)
	start := time.Now()

	cmd := exec.CommandContext(ctx, exe, "run", cfgPath)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()

	result.Seconds = time.Since(start).Seconds()
	d.log.Debug("dataset output", "dir", dir, "output", string(output))

	switch {
	case err == nil:
		result.Pass = true
		d.log.Info("dataset passed", "dir", dir, "seconds", result.Seconds)
	case ctx.Err() != nil:
		result.Error = ctx.Err().Error()
	default:
		result.Error = err.Error()
		d.log.Warn("dataset failed", "dir", dir, "err", err)
	}
	return result
}

// Summarize tallies the per-dataset results.
func Summarize(results []Result) (passed, failed int) {
	for _, r := range results {
		if r.Pass {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
