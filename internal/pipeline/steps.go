package pipeline

import (
	"github.com/penaguerrero/nptt/internal/fitshdr"
)

// Pipeline classes passed to the external CLI for full-stage runs.
const (
	Stage1Class = "jwst.pipeline.Detector1Pipeline"
	Stage2Class = "jwst.pipeline.Spec2Pipeline"
	Stage3Class = "jwst.pipeline.Spec3Pipeline"
)

// Step is one stage-2 calibration step as NPTT drives it.
type Step struct {
	// Name is the config toggle name (matches the steps: section).
	Name string

	// Class is the pipeline step class passed to the external CLI.
	Class string

	// Suffix is appended to the input basename for the step's output.
	Suffix string

	// StatusKeyword is the S_* header keyword the pipeline stamps as
	// COMPLETE when the step ran.
	StatusKeyword string

	// RefKeywords lists the R_* reference-file keywords the step
	// records, compared against the truth header by reffile tests.
	RefKeywords []string
}

// Spec2Steps is the ordered stage-2 step sequence. Order matters: in
// steps mode each completed step's output feeds the next step.
var Spec2Steps = []Step{
	{
		Name:          "assign_wcs",
		Class:         "jwst.assign_wcs.AssignWcsStep",
		Suffix:        "_assign_wcs",
		StatusKeyword: "S_WCS",
		RefKeywords:   []string{"R_CAMERA", "R_COLLIM", "R_DISPER", "R_FORE", "R_FPA", "R_MSA", "R_OTE", "R_WAVRAN"},
	},
	{
		Name:          "bkg_subtract",
		Class:         "jwst.background.BackgroundStep",
		Suffix:        "_bsub",
		StatusKeyword: "S_BKDSUB",
	},
	{
		Name:          "imprint_subtract",
		Class:         "jwst.imprint.ImprintStep",
		Suffix:        "_imprint",
		StatusKeyword: "S_IMPRNT",
	},
	{
		Name:          "msa_flagging",
		Class:         "jwst.msaflagopen.MSAFlagOpenStep",
		Suffix:        "_msa_flagging",
		StatusKeyword: "S_MSAFLG",
		RefKeywords:   []string{"R_MSAOPER"},
	},
	{
		Name:          "extract_2d",
		Class:         "jwst.extract_2d.Extract2dStep",
		Suffix:        "_extract_2d",
		StatusKeyword: "S_EXTR2D",
	},
	{
		Name:          "srctype",
		Class:         "jwst.srctype.SourceTypeStep",
		Suffix:        "_srctype",
		StatusKeyword: "S_SRCTYP",
	},
	{
		Name:          "wavecorr",
		Class:         "jwst.wavecorr.WavecorrStep",
		Suffix:        "_wavecorr",
		StatusKeyword: "S_WAVCOR",
		RefKeywords:   []string{"R_WAVCOR"},
	},
	{
		Name:          "flat_field",
		Class:         "jwst.flatfield.FlatFieldStep",
		Suffix:        "_flat_field",
		StatusKeyword: "S_FLAT",
		RefKeywords:   []string{"R_DFLAT", "R_FFLAT", "R_SFLAT"},
	},
	{
		Name:          "pathloss",
		Class:         "jwst.pathloss.PathLossStep",
		Suffix:        "_pathloss",
		StatusKeyword: "S_PTHLOS",
		RefKeywords:   []string{"R_PTHLOS"},
	},
	{
		Name:          "barshadow",
		Class:         "jwst.barshadow.BarShadowStep",
		Suffix:        "_barshadow",
		StatusKeyword: "S_BARSHA",
		RefKeywords:   []string{"R_BARSHA"},
	},
	{
		Name:          "photom",
		Class:         "jwst.photom.PhotomStep",
		Suffix:        "_photom",
		StatusKeyword: "S_PHOTOM",
		RefKeywords:   []string{"R_AREA", "R_PHOTOM"},
	},
	{
		Name:          "resample_spec",
		Class:         "jwst.resample.ResampleSpecStep",
		Suffix:        "_s2d",
		StatusKeyword: "S_RESAMP",
	},
	{
		Name:          "cube_build",
		Class:         "jwst.cube_build.CubeBuildStep",
		Suffix:        "_s3d",
		StatusKeyword: "S_IFUCUB",
		RefKeywords:   []string{"R_CUBPAR"},
	},
	{
		Name:          "extract_1d",
		Class:         "jwst.extract_1d.Extract1dStep",
		Suffix:        "_x1d",
		StatusKeyword: "S_EXTR1D",
		RefKeywords:   []string{"R_EXTR1D"},
	},
}

// Lookup returns the step with the given config name.
func Lookup(name string) (Step, bool) {
	for _, s := range Spec2Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// SkipReason returns why the step does not apply to the exposure
// described by the primary header, or "" if it applies.
//
// The rules mirror the mode-dependent behavior of the stage-2
// pipeline: slit-only corrections never run on IFU cubes, bar shadow
// exists only behind the micro-shutter array, and time-series data
// skips the resampling corrections.
func (s Step) SkipReason(h *fitshdr.Header) string {
	ifu := fitshdr.IsIFU(h)
	bots := fitshdr.IsBOTS(h)
	mos := fitshdr.IsMOS(h)

	switch s.Name {
	case "imprint_subtract":
		if !ifu && !mos {
			return "imprint subtraction applies to IFU and MOS only"
		}
	case "msa_flagging":
		if !ifu && !mos {
			return "MSA flagging applies to IFU and MOS only"
		}
	case "wavecorr":
		if ifu {
			return "wavecorr does not apply to IFU data"
		}
		if bots {
			return "wavecorr does not apply to BOTS data"
		}
	case "pathloss":
		if bots {
			return "pathloss does not apply to BOTS data"
		}
	case "barshadow":
		if !mos {
			return "barshadow applies to MOS only"
		}
	case "resample_spec":
		if ifu || bots {
			return "resample_spec does not apply to IFU or BOTS data"
		}
	case "cube_build":
		if !ifu {
			return "cube_build applies to IFU only"
		}
	}
	return ""
}
