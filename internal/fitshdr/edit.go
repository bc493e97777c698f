package fitshdr

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// hdu is one header/data span inside a FITS file.
type hdu struct {
	header      *Header
	headerStart int
	headerLen   int
	dataLen     int // padded to BlockSize
}

// scan walks every HDU in the file, recording byte spans so a header
// can be rewritten without touching the data units.
func scan(data []byte) ([]hdu, error) {
	var hdus []hdu
	off := 0
	for off < len(data) {
		r := bytes.NewReader(data[off:])
		h, err := Parse(r)
		if err != nil {
			return nil, fmt.Errorf("hdu %d at offset %d: %w", len(hdus), off, err)
		}
		headerLen := len(data[off:]) - r.Len()
		dl, err := dataLength(h)
		if err != nil {
			return nil, fmt.Errorf("hdu %d: %w", len(hdus), err)
		}
		hdus = append(hdus, hdu{header: h, headerStart: off, headerLen: headerLen, dataLen: dl})
		off += headerLen + dl
	}
	return hdus, nil
}

// dataLength computes the padded byte length of the data unit that
// follows a header, per the FITS standard sizing rule.
func dataLength(h *Header) (int, error) {
	naxis, err := h.Int("NAXIS")
	if err != nil {
		return 0, err
	}
	if naxis == 0 {
		return 0, nil
	}

	bitpix, err := h.Int("BITPIX")
	if err != nil {
		return 0, err
	}

	elems := int64(1)
	for i := int64(1); i <= naxis; i++ {
		n, err := h.Int(fmt.Sprintf("NAXIS%d", i))
		if err != nil {
			return 0, err
		}
		elems *= n
	}

	pcount := int64(0)
	if h.Has("PCOUNT") {
		if pcount, err = h.Int("PCOUNT"); err != nil {
			return 0, err
		}
	}
	gcount := int64(1)
	if h.Has("GCOUNT") {
		if gcount, err = h.Int("GCOUNT"); err != nil {
			return 0, err
		}
	}

	size := abs64(bitpix) / 8 * gcount * (pcount + elems)
	if rem := size % BlockSize; rem != 0 {
		size += BlockSize - rem
	}
	return int(size), nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// ReadPrimary parses the primary header of a FITS file.
func ReadPrimary(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fits file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// ReadExtension parses the header of the extension with the given
// EXTNAME (e.g. "SCI"). Returns an error if no such extension exists.
func ReadExtension(path, extname string) (*Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fits file: %w", err)
	}
	hdus, err := scan(data)
	if err != nil {
		return nil, err
	}
	for _, u := range hdus[1:] {
		name, err := u.header.Str("EXTNAME")
		if err == nil && name == extname {
			return u.header, nil
		}
	}
	return nil, fmt.Errorf("extension %s not found in %s", extname, filepath.Base(path))
}

// WritePrimary rewrites the primary header of a FITS file, keeping all
// data units and extensions byte-for-byte intact. The file is replaced
// atomically via a temp file in the same directory.
func WritePrimary(path string, h *Header) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fits file: %w", err)
	}
	hdus, err := scan(data)
	if err != nil {
		return err
	}

	primary := hdus[0]
	var buf bytes.Buffer
	buf.Write(h.Encode())
	buf.Write(data[primary.headerStart+primary.headerLen:])

	tmp, err := os.CreateTemp(filepath.Dir(path), ".nptt-hdr-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace fits file: %w", err)
	}
	return nil
}

// SetKeyword updates (or adds) a single keyword in the primary header.
// The value is parsed as raw FITS value text: T/F, numbers, or a quoted
// string; unquoted non-numeric text is written as a string.
func SetKeyword(path, keyword, value, comment string) error {
	h, err := ReadPrimary(path)
	if err != nil {
		return err
	}
	applyRawValue(h, keyword, value, comment)
	return WritePrimary(path, h)
}

// applyRawValue chooses the card encoding for user-supplied value text.
func applyRawValue(h *Header, keyword, value, comment string) {
	switch {
	case len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'':
		h.SetString(keyword, value[1:len(value)-1], comment)
	case value == "T":
		h.SetLogical(keyword, true, comment)
	case value == "F":
		h.SetLogical(keyword, false, comment)
	case isNumeric(value):
		h.SetRaw(keyword, value, comment)
	default:
		h.SetString(keyword, value, comment)
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
		case ch == '.' || ch == 'E' || ch == 'D' || ch == 'e':
		case (ch == '+' || ch == '-') && (i == 0 || s[i-1] == 'E' || s[i-1] == 'e' || s[i-1] == 'D'):
		default:
			return false
		}
	}
	return true
}
