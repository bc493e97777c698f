package fitshdr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestFITS writes a primary-header-only FITS file and returns its path.
func writeTestFITS(t *testing.T, h *Header) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.fits")
	require.NoError(t, os.WriteFile(path, h.Encode(), 0644))
	return path
}

func TestReadPrimary(t *testing.T) {
	h := newPrimaryHeader()
	h.SetString(KeyDetector, "NRS2", "")
	path := writeTestFITS(t, h)

	got, err := ReadPrimary(path)
	require.NoError(t, err)

	det, err := Detector(got)
	require.NoError(t, err)
	assert.Equal(t, "NRS2", det)
}

func TestReadExtension(t *testing.T) {
	primary := newPrimaryHeader()

	ext := &Header{}
	ext.SetString("XTENSION", "IMAGE", "image extension")
	ext.SetInt("BITPIX", 8, "")
	ext.SetInt("NAXIS", 1, "")
	ext.SetInt("NAXIS1", 4, "")
	ext.SetInt("PCOUNT", 0, "")
	ext.SetInt("GCOUNT", 1, "")
	ext.SetString("EXTNAME", "SCI", "")
	ext.SetString("S_WCS", "COMPLETE", "")

	data := make([]byte, BlockSize) // 4 data bytes padded to one block
	path := filepath.Join(t.TempDir(), "ext.fits")
	content := append(primary.Encode(), ext.Encode()...)
	content = append(content, data...)
	require.NoError(t, os.WriteFile(path, content, 0644))

	got, err := ReadExtension(path, "SCI")
	require.NoError(t, err)
	status, err := got.Str("S_WCS")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETE", status)

	_, err = ReadExtension(path, "DQ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extension DQ not found")
}

func TestWritePrimary_PreservesExtensions(t *testing.T) {
	primary := newPrimaryHeader()

	ext := &Header{}
	ext.SetString("XTENSION", "IMAGE", "")
	ext.SetInt("BITPIX", 8, "")
	ext.SetInt("NAXIS", 1, "")
	ext.SetInt("NAXIS1", 4, "")
	ext.SetInt("PCOUNT", 0, "")
	ext.SetInt("GCOUNT", 1, "")
	ext.SetString("EXTNAME", "SCI", "")

	data := make([]byte, BlockSize)
	copy(data, []byte{1, 2, 3, 4})
	path := filepath.Join(t.TempDir(), "edit.fits")
	content := append(primary.Encode(), ext.Encode()...)
	content = append(content, data...)
	require.NoError(t, os.WriteFile(path, content, 0644))

	h, err := ReadPrimary(path)
	require.NoError(t, err)
	h.SetString(KeyFilter, "F170LP", "")
	require.NoError(t, err)
	require.NoError(t, WritePrimary(path, h))

	// Primary edit landed.
	got, err := ReadPrimary(path)
	require.NoError(t, err)
	filter, err := got.Str(KeyFilter)
	require.NoError(t, err)
	assert.Equal(t, "F170LP", filter)

	// Extension header and data are intact.
	sci, err := ReadExtension(path, "SCI")
	require.NoError(t, err)
	assert.True(t, sci.Has("EXTNAME"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, raw[len(raw)-BlockSize:len(raw)-BlockSize+4])
}

func TestSetKeyword_ValueForms(t *testing.T) {
	tests := []struct {
		name  string
		value string
		check func(t *testing.T, h *Header)
	}{
		{
			name:  "string",
			value: "COMPLETE",
			check: func(t *testing.T, h *Header) {
				v, err := h.Str("TESTKEY")
				require.NoError(t, err)
				assert.Equal(t, "COMPLETE", v)
			},
		},
		{
			name:  "logical",
			value: "T",
			check: func(t *testing.T, h *Header) {
				v, err := h.Bool("TESTKEY")
				require.NoError(t, err)
				assert.True(t, v)
			},
		},
		{
			name:  "integer",
			value: "42",
			check: func(t *testing.T, h *Header) {
				v, err := h.Int("TESTKEY")
				require.NoError(t, err)
				assert.Equal(t, int64(42), v)
			},
		},
		{
			name:  "float",
			value: "1.5E-7",
			check: func(t *testing.T, h *Header) {
				v, err := h.Float("TESTKEY")
				require.NoError(t, err)
				assert.InDelta(t, 1.5e-7, v, 1e-20)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestFITS(t, newPrimaryHeader())
			require.NoError(t, SetKeyword(path, "TESTKEY", tt.value, ""))
			h, err := ReadPrimary(path)
			require.NoError(t, err)
			tt.check(t, h)
		})
	}
}

func TestChangeFilterOpaque(t *testing.T) {
	t.Run("opaque filter rewritten from grating", func(t *testing.T) {
		h := newPrimaryHeader()
		h.SetString(KeyFilter, "OPAQUE", "")
		h.SetString(KeyGrating, "G235M", "")
		path := writeTestFITS(t, h)

		changed, err := ChangeFilterOpaque(path)
		require.NoError(t, err)
		assert.True(t, changed)

		got, err := ReadPrimary(path)
		require.NoError(t, err)
		filter, err := got.Str(KeyFilter)
		require.NoError(t, err)
		assert.Equal(t, "F170LP", filter)
	})

	t.Run("science filter untouched", func(t *testing.T) {
		h := newPrimaryHeader()
		h.SetString(KeyFilter, "F100LP", "")
		h.SetString(KeyGrating, "G140H", "")
		path := writeTestFITS(t, h)

		changed, err := ChangeFilterOpaque(path)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("unknown grating", func(t *testing.T) {
		h := newPrimaryHeader()
		h.SetString(KeyFilter, "OPAQUE", "")
		h.SetString(KeyGrating, "G999X", "")
		path := writeTestFITS(t, h)

		changed, err := ChangeFilterOpaque(path)
		require.Error(t, err)
		assert.True(t, changed)
	})
}

func TestExposureTypeHelpers(t *testing.T) {
	h := newPrimaryHeader()
	h.SetString(KeyExpType, ExpTypeIFU, "")
	assert.True(t, IsIFU(h))
	assert.False(t, IsBOTS(h))

	h.SetString(KeyExpType, ExpTypeBOTS, "")
	assert.True(t, IsBOTS(h))

	h.SetString(KeyExpType, ExpTypeMOS, "")
	assert.True(t, IsMOS(h))
	assert.False(t, IsIFU(h))
}
