package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params holds decode parameters taken from a stream's DecodeParms
// dictionary, converted to plain Go values.
type Params map[string]interface{}

// Int returns the integer parameter key or def when it is absent.
func (p Params) Int(key string, def int) int {
	if p == nil {
		return def
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// FlateDecode inflates zlib data and undoes any predictor. Truncated input
// yields the bytes recovered before the damage, which matches what viewers
// do with slightly broken content streams.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		if buf.Len() == 0 || (err != io.ErrUnexpectedEOF && !isChecksumErr(err)) {
			return nil, fmt.Errorf("flate: %w", err)
		}
	}
	return unpredict(buf.Bytes(), params)
}

func isChecksumErr(err error) bool {
	return err == zlib.ErrChecksum
}
