package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/penaguerrero/nptt/internal/fitshdr"
)

// execute runs the nptt command tree with the given args, capturing
// combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeFITS writes a header-only FITS file with the given keywords.
func writeFITS(t *testing.T, path string, keywords map[string]string) {
	t.Helper()
	h := &fitshdr.Header{}
	h.SetLogical("SIMPLE", true, "conforms to FITS standard")
	h.SetInt("BITPIX", 8, "array data type")
	h.SetInt("NAXIS", 0, "number of array dimensions")
	for k, v := range keywords {
		h.SetString(k, v, "")
	}
	require.NoError(t, os.WriteFile(path, h.Encode(), 0o644))
}

// writeConfig writes a minimal skip-mode config pointing at the given
// directories and returns its path.
func writeConfig(t *testing.T, outDir, truthDir string, extra string) string {
	t.Helper()
	content := fmt.Sprintf(`input:
  input_file: input.fits
  output_directory: %s
  truth_directory: %s
  mode: skip
%s`, outDir, truthDir, extra)
	path := filepath.Join(t.TempDir(), "NPTT_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
