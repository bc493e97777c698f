// Package pipeline drives the external calibration pipeline.
//
// NPTT never reimplements calibration numerics: every stage runs as a
// subprocess of the pipeline's own CLI (strun by default). This package
// owns what surrounds those subprocesses - the ordered stage-2 step
// catalog with each step's output suffix and header status keyword,
// per-exposure applicability rules (IFU, BOTS, MOS, opaque filter),
// config-driven step toggling, wall-clock timing, and the
// completed-steps tracking file consulted by later steps and by the
// test suite.
//
// Three run modes are supported:
//
//   - full:  one subprocess runs the entire stage-2 pipeline
//   - steps: one subprocess per enabled step, outputs chained
//   - skip:  no execution; outputs are assumed to already exist
package pipeline
