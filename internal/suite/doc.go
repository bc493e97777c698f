// Package suite executes pass/fail comparisons between pipeline
// outputs and pre-computed truth files.
//
// A test plan names the stage-2 steps under test; for each step up to
// three check families run, mirroring the original pytest families:
//
//   - completion: the step output file exists and its primary header
//     records the step status keyword (S_WCS, S_EXTR2D, ...) as COMPLETE
//   - reffile: the R_* reference-file keywords the step stamped match
//     the keywords recorded in the truth file's header
//   - validation: the output SCI array is numerically close to the
//     truth SCI array (|median of differences| within the threshold)
//
// # Plan Format
//
// Plans are YAML files:
//
//	name: fs_prism_flat
//	description: "Flat field checks for the FS PRISM dataset"
//	steps:
//	  - step: assign_wcs
//	  - step: flat_field
//	    families: [completion, validation]
//	    threshold: 1.0e-6
//
// When a step omits families, the config's tests: section decides
// which families run, exactly as the original tool read its
// run_pytest toggles.
//
// # Deterministic Traces
//
// Every check appends one trace event, sequenced by a logical clock.
// Identical plan + outputs produce byte-identical canonical JSON
// snapshots, compared against golden files with goldie.
package suite
