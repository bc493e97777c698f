package fitshdr

import (
	"fmt"
	"strings"
)

// Header keywords NPTT reads and edits on NIRSpec exposures.
const (
	KeyDetector = "DETECTOR"
	KeyExpType  = "EXP_TYPE"
	KeyFilter   = "FILTER"
	KeyGrating  = "GRATING"
)

// Exposure types with special handling in the step orchestration.
const (
	ExpTypeIFU  = "NRS_IFU"
	ExpTypeBOTS = "NRS_BRIGHTOBJ"
	ExpTypeMOS  = "NRS_MSASPEC"
)

// scienceFilter maps a grating to the science filter used when an
// exposure was taken with FILTER=OPAQUE (internal lamp calibration).
// The pairing follows the NIRSpec filter/grating wheel combinations.
var scienceFilter = map[string]string{
	"G140M":  "F100LP",
	"G140H":  "F100LP",
	"G235M":  "F170LP",
	"G235H":  "F170LP",
	"G395M":  "F290LP",
	"G395H":  "F290LP",
	"PRISM":  "CLEAR",
	"MIRROR": "CLEAR",
}

// Detector returns the DETECTOR keyword (NRS1 or NRS2).
func Detector(h *Header) (string, error) {
	return h.Str(KeyDetector)
}

// IsIFU reports whether the exposure is integral-field data.
func IsIFU(h *Header) bool {
	v, err := h.Str(KeyExpType)
	return err == nil && v == ExpTypeIFU
}

// IsBOTS reports whether the exposure is bright-object time series data.
func IsBOTS(h *Header) bool {
	v, err := h.Str(KeyExpType)
	return err == nil && v == ExpTypeBOTS
}

// IsMOS reports whether the exposure is multi-object spectroscopy data.
func IsMOS(h *Header) bool {
	v, err := h.Str(KeyExpType)
	return err == nil && v == ExpTypeMOS
}

// ChangeFilterOpaque rewrites FILTER=OPAQUE to the science filter
// implied by the grating, so the pipeline processes the exposure as
// science data instead of stopping at the opaque position.
//
// The input file is modified in place. Returns whether the filter was
// OPAQUE before the call; when it was not, the file is left untouched.
func ChangeFilterOpaque(path string) (bool, error) {
	h, err := ReadPrimary(path)
	if err != nil {
		return false, err
	}

	filter, err := h.Str(KeyFilter)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if !strings.EqualFold(filter, "OPAQUE") {
		return false, nil
	}

	grating, err := h.Str(KeyGrating)
	if err != nil {
		return true, fmt.Errorf("%s: FILTER=OPAQUE but %w", path, err)
	}
	sci, ok := scienceFilter[strings.ToUpper(grating)]
	if !ok {
		return true, fmt.Errorf("%s: no science filter for grating %q", path, grating)
	}

	h.SetString(KeyFilter, sci, "changed from OPAQUE")
	if err := WritePrimary(path, h); err != nil {
		return true, err
	}
	return true, nil
}
