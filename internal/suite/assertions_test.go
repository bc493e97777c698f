package suite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penaguerrero/nptt/internal/pipeline"
)

func mustStep(t *testing.T, name string) pipeline.Step {
	t.Helper()
	s, ok := pipeline.Lookup(name)
	require.True(t, ok)
	return s
}

func TestCheckCompletion(t *testing.T) {
	step := mustStep(t, "assign_wcs")
	dir := t.TempDir()

	t.Run("complete", func(t *testing.T) {
		path := filepath.Join(dir, "out_assign_wcs.fits")
		writeSCIFITS(t, path, sciFile{keywords: map[string]string{"S_WCS": "COMPLETE"}})
		assert.NoError(t, checkCompletion(step, path))
	})

	t.Run("skipped status", func(t *testing.T) {
		path := filepath.Join(dir, "skipped_assign_wcs.fits")
		writeSCIFITS(t, path, sciFile{keywords: map[string]string{"S_WCS": "SKIPPED"}})
		err := checkCompletion(step, path)
		require.Error(t, err)
		var checkErr *CheckError
		require.ErrorAs(t, err, &checkErr)
		assert.Equal(t, FamilyCompletion, checkErr.Family)
		assert.Contains(t, err.Error(), "S_WCS=SKIPPED")
	})

	t.Run("keyword absent", func(t *testing.T) {
		path := filepath.Join(dir, "bare_assign_wcs.fits")
		writeSCIFITS(t, path, sciFile{})
		err := checkCompletion(step, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "S_WCS not present")
	})

	t.Run("no output file", func(t *testing.T) {
		err := checkCompletion(step, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no output file found")
	})
}

func TestCheckReffile(t *testing.T) {
	step := mustStep(t, "flat_field")
	dir := t.TempDir()

	truth := filepath.Join(dir, "truth_flat_field.fits")
	writeSCIFITS(t, truth, sciFile{keywords: map[string]string{
		"R_DFLAT": "crds://jwst_nirspec_dflat_0074.fits",
		"R_SFLAT": "jwst_nirspec_sflat_0151.fits",
	}})

	t.Run("matching references", func(t *testing.T) {
		out := filepath.Join(dir, "ok_flat_field.fits")
		writeSCIFITS(t, out, sciFile{keywords: map[string]string{
			// Different prefix, same file name: still a match.
			"R_DFLAT": "/grp/crds/cache/references/jwst/jwst_nirspec_dflat_0074.fits",
			"R_SFLAT": "jwst_nirspec_sflat_0151.fits",
		}})
		assert.NoError(t, checkReffile(step, out, truth))
	})

	t.Run("mismatched reference", func(t *testing.T) {
		out := filepath.Join(dir, "bad_flat_field.fits")
		writeSCIFITS(t, out, sciFile{keywords: map[string]string{
			"R_DFLAT": "jwst_nirspec_dflat_0042.fits",
			"R_SFLAT": "jwst_nirspec_sflat_0151.fits",
		}})
		err := checkReffile(step, out, truth)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwst_nirspec_dflat_0074.fits")
		assert.Contains(t, err.Error(), "jwst_nirspec_dflat_0042.fits")
	})

	t.Run("keyword missing from output", func(t *testing.T) {
		out := filepath.Join(dir, "missing_flat_field.fits")
		writeSCIFITS(t, out, sciFile{keywords: map[string]string{
			"R_SFLAT": "jwst_nirspec_sflat_0151.fits",
		}})
		err := checkReffile(step, out, truth)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "R_DFLAT not present in output")
	})

	t.Run("keyword absent from truth is not required", func(t *testing.T) {
		// Truth has no R_FFLAT, so the output is free to omit it too.
		out := filepath.Join(dir, "ok2_flat_field.fits")
		writeSCIFITS(t, out, sciFile{keywords: map[string]string{
			"R_DFLAT": "jwst_nirspec_dflat_0074.fits",
			"R_SFLAT": "jwst_nirspec_sflat_0151.fits",
		}})
		assert.NoError(t, checkReffile(step, out, truth))
	})

	t.Run("no truth file", func(t *testing.T) {
		out := filepath.Join(dir, "ok_flat_field.fits")
		err := checkReffile(step, out, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no truth file found")
	})
}

func TestCheckValidation(t *testing.T) {
	step := mustStep(t, "flat_field")
	dir := t.TempDir()

	truth := filepath.Join(dir, "truth_flat_field.fits")
	writeSCIFITS(t, truth, sciFile{
		data:  []float64{1.0, 2.0, 3.0, 4.0},
		width: 2,
	})

	t.Run("within threshold", func(t *testing.T) {
		out := filepath.Join(dir, "close_flat_field.fits")
		writeSCIFITS(t, out, sciFile{
			data:  []float64{1.0 + 1e-9, 2.0 - 1e-9, 3.0, 4.0 + 1e-9},
			width: 2,
		})
		stats, err := checkValidation(step, out, truth, 1e-7)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.N)
		assert.LessOrEqual(t, stats.Median, 1e-7)
	})

	t.Run("exceeds threshold", func(t *testing.T) {
		out := filepath.Join(dir, "far_flat_field.fits")
		writeSCIFITS(t, out, sciFile{
			data:  []float64{1.1, 2.1, 3.1, 4.1},
			width: 2,
		})
		stats, err := checkValidation(step, out, truth, 1e-7)
		require.Error(t, err)
		var checkErr *CheckError
		require.ErrorAs(t, err, &checkErr)
		assert.Equal(t, FamilyValidation, checkErr.Family)
		assert.InDelta(t, 0.1, stats.Median, 1e-9)
	})

	t.Run("size mismatch", func(t *testing.T) {
		out := filepath.Join(dir, "shape_flat_field.fits")
		writeSCIFITS(t, out, sciFile{
			data:  []float64{1.0, 2.0},
			width: 2,
		})
		_, err := checkValidation(step, out, truth, 1e-7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "array size mismatch")
	})
}
