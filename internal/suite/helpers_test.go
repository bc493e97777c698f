package suite

import (
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/penaguerrero/nptt/internal/fitshdr"
)

// sciFile describes a synthetic step output for tests.
type sciFile struct {
	keywords map[string]string // primary header keywords (status, R_*)
	data     []float64         // SCI image values, row-major
	width    int               // NAXIS1; 0 means no SCI extension
}

// writeSCIFITS writes a FITS file with a primary header carrying the
// given keywords and, when data is present, a float64 SCI image
// extension.
func writeSCIFITS(t *testing.T, path string, f sciFile) {
	t.Helper()

	primary := &fitshdr.Header{}
	primary.SetLogical("SIMPLE", true, "conforms to FITS standard")
	primary.SetInt("BITPIX", 8, "")
	primary.SetInt("NAXIS", 0, "")
	for k, v := range f.keywords {
		primary.SetString(k, v, "")
	}

	content := primary.Encode()

	if f.width > 0 {
		height := len(f.data) / f.width
		ext := &fitshdr.Header{}
		ext.SetString("XTENSION", "IMAGE", "image extension")
		ext.SetInt("BITPIX", -64, "")
		ext.SetInt("NAXIS", 2, "")
		ext.SetInt("NAXIS1", int64(f.width), "")
		ext.SetInt("NAXIS2", int64(height), "")
		ext.SetInt("PCOUNT", 0, "")
		ext.SetInt("GCOUNT", 1, "")
		ext.SetString("EXTNAME", "SCI", "")
		content = append(content, ext.Encode()...)

		buf := make([]byte, 8*len(f.data))
		for i, v := range f.data {
			binary.BigEndian.PutUint64(buf[8*i:], math.Float64bits(v))
		}
		for len(buf)%fitshdr.BlockSize != 0 {
			buf = append(buf, 0)
		}
		content = append(content, buf...)
	}

	require.NoError(t, os.WriteFile(path, content, 0644))
}
