package suite

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSCI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sci.fits")
	writeSCIFITS(t, path, sciFile{
		data:  []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5},
		width: 3,
	})

	data, err := readSCI(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5}, data)
}

func TestReadSCI_NoImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headeronly.fits")
	writeSCIFITS(t, path, sciFile{keywords: map[string]string{"S_WCS": "COMPLETE"}})

	_, err := readSCI(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no SCI image data")
}

func TestDiffStats(t *testing.T) {
	out := []float64{1.0, 2.0, 3.0, 4.0}
	truth := []float64{1.0, 2.0, 3.0, 4.0}

	stats, err := diffStats(out, truth)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.N)
	assert.InDelta(t, 0, stats.Mean, 1e-15)
	assert.InDelta(t, 0, stats.Median, 1e-15)
	assert.InDelta(t, 0, stats.StdDev, 1e-15)
}

func TestDiffStats_MedianAveragesMiddlePair(t *testing.T) {
	out := []float64{1.0, 2.0, 3.0, 4.0}
	truth := []float64{0.0, 0.0, 0.0, 0.0}

	stats, err := diffStats(out, truth)
	require.NoError(t, err)
	// Even n: the median is the mean of the two middle diffs, not
	// either one alone.
	assert.InDelta(t, 2.5, stats.Median, 1e-15)

	stats, err = diffStats([]float64{1.0, 2.0, 9.0}, []float64{0.0, 0.0, 0.0})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, stats.Median, 1e-15)
}

func TestDiffStats_SkipsNaN(t *testing.T) {
	nan := math.NaN()
	out := []float64{1.0, nan, 3.0, 4.0}
	truth := []float64{1.0, 2.0, nan, 4.5}

	stats, err := diffStats(out, truth)
	require.NoError(t, err)
	// Only indices 0 and 3 are finite on both sides.
	assert.Equal(t, 2, stats.N)
	assert.InDelta(t, -0.25, stats.Mean, 1e-12)
}

func TestDiffStats_AllNaN(t *testing.T) {
	nan := math.NaN()
	_, err := diffStats([]float64{nan}, []float64{1.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no finite elements")
}

func TestDiffStats_SizeMismatch(t *testing.T) {
	_, err := diffStats([]float64{1.0}, []float64{1.0, 2.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array size mismatch")
}
