package filters

import (
	"bytes"
	"compress/lzw"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// LZWDecode expands LZW data. PDF's default EarlyChange=1 widens the code
// one entry early, which is the TIFF variant; EarlyChange=0 matches the
// plain MSB-first codec from the standard library.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	var r io.ReadCloser
	if params.Int("EarlyChange", 1) == 0 {
		r = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		r = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil && buf.Len() == 0 {
		return nil, fmt.Errorf("lzw: %w", err)
	}
	return unpredict(buf.Bytes(), params)
}
