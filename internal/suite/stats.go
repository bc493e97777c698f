package suite

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/siravan/fits"
	"gonum.org/v1/gonum/stat"
)

// DiffStats summarizes the element-wise differences between an output
// array and its truth counterpart. NaN elements in either array are
// excluded before the statistics are computed.
type DiffStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	N      int     `json:"n"`
}

// readSCI loads the SCI extension data of a FITS file as a flat
// float64 slice. Falls back to the first image HDU carrying data when
// no extension is named SCI.
func readSCI(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fits file: %w", err)
	}
	defer f.Close()

	units, err := fits.Open(f)
	if err != nil {
		return nil, fmt.Errorf("parse fits file: %w", err)
	}

	unit := pickSCI(units)
	if unit == nil {
		return nil, fmt.Errorf("%s: no SCI image data found", path)
	}
	return flatten(unit), nil
}

func pickSCI(units []*fits.Unit) *fits.Unit {
	for _, u := range units {
		if name, ok := u.Keys["EXTNAME"].(string); ok && name == "SCI" && u.HasImage() && len(u.Naxis) > 0 {
			return u
		}
	}
	for _, u := range units {
		if u.HasImage() && len(u.Naxis) > 0 {
			return u
		}
	}
	return nil
}

// flatten walks the image in storage order (NAXIS1 fastest).
func flatten(u *fits.Unit) []float64 {
	total := 1
	for _, n := range u.Naxis {
		total *= n
	}

	out := make([]float64, 0, total)
	idx := make([]int, len(u.Naxis))
	for i := 0; i < total; i++ {
		out = append(out, u.FloatAt(idx...))
		for d := 0; d < len(idx); d++ {
			idx[d]++
			if idx[d] < u.Naxis[d] {
				break
			}
			idx[d] = 0
		}
	}
	return out
}

// diffStats computes statistics over out[i]-truth[i], skipping pairs
// where either side is NaN.
func diffStats(out, truth []float64) (DiffStats, error) {
	if len(out) != len(truth) {
		return DiffStats{}, fmt.Errorf("array size mismatch: output has %d elements, truth has %d", len(out), len(truth))
	}

	diffs := make([]float64, 0, len(out))
	for i := range out {
		if math.IsNaN(out[i]) || math.IsNaN(truth[i]) {
			continue
		}
		diffs = append(diffs, out[i]-truth[i])
	}
	if len(diffs) == 0 {
		return DiffStats{}, fmt.Errorf("no finite elements to compare")
	}

	sorted := append([]float64(nil), diffs...)
	sort.Float64s(sorted)

	stddev := 0.0
	if len(diffs) > 1 {
		stddev = stat.StdDev(diffs, nil)
	}

	return DiffStats{
		Mean:   stat.Mean(diffs, nil),
		Median: median(sorted),
		StdDev: stddev,
		N:      len(diffs),
	}, nil
}

// median averages the two middle elements for even-length input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
