package filters

import (
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestFlateDecode(t *testing.T) {
	original := []byte("BT /F1 12 Tf 72 712 Td (Name:) Tj ET")
	got, err := FlateDecode(deflate(t, original), nil)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestFlateDecodeTruncated(t *testing.T) {
	original := bytes.Repeat([]byte("0 0 m 100 0 l S\n"), 200)
	compressed := deflate(t, original)
	got, err := FlateDecode(compressed[:len(compressed)-4], nil)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestFlateDecodeGarbage(t *testing.T) {
	_, err := FlateDecode([]byte("not zlib at all"), nil)
	assert.Error(t, err)
}

func TestPNGPredictor(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"none", []byte{0, 1, 2, 3, 0, 4, 5, 6}, []byte{1, 2, 3, 4, 5, 6}},
		{"sub", []byte{1, 1, 1, 1, 1, 2, 2, 2}, []byte{1, 2, 3, 2, 4, 6}},
		{"up", []byte{0, 1, 2, 3, 2, 1, 1, 1}, []byte{1, 2, 3, 2, 3, 4}},
		{"average", []byte{0, 2, 4, 6, 3, 1, 1, 1}, []byte{2, 4, 6, 2, 4, 6}},
		{"paeth", []byte{0, 1, 2, 3, 4, 0, 0, 0}, []byte{1, 2, 3, 1, 2, 3}},
		{"short last row", []byte{0, 1, 2, 3, 2, 1}, []byte{1, 2, 3, 2}},
	}
	params := Params{"Predictor": 12, "Columns": 3}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlateDecode(deflate(t, tt.in), params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPNGPredictorUnknownFilter(t *testing.T) {
	_, err := unpredict([]byte{9, 1, 2}, Params{"Predictor": 12, "Columns": 2})
	assert.Error(t, err)
}

func TestTIFFPredictor(t *testing.T) {
	got, err := unpredict([]byte{1, 1, 1, 5, 1, 1}, Params{"Predictor": 2, "Columns": 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 5, 6, 7}, got)
}

func TestUnsupportedPredictor(t *testing.T) {
	_, err := unpredict([]byte{1}, Params{"Predictor": 7})
	assert.Error(t, err)
}

func TestASCIIHexDecode(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"48656C6C6F>", []byte("Hello")},
		{"48 65\n6c 6C 6f>", []byte("Hello")},
		{"414>", []byte{0x41, 0x40}},
		{"41", []byte{0x41}},
		{">", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ASCIIHexDecode([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ASCIIHexDecode([]byte("4G>"))
	assert.Error(t, err)
}

func TestASCII85Decode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"87cURD]i,\"Ebo80~>", "Hello World!"},
		{"<~87cURDZ~>", "Hello"},
		{"z~>", "\x00\x00\x00\x00"},
		{"87cU RD]i ,\"Eb\no80~>", "Hello World!"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ASCII85Decode([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := ASCII85Decode([]byte("87cx{~>"))
	assert.Error(t, err)
}

func TestLZWDecode(t *testing.T) {
	// Encoded sample from the PDF reference: "-----A---B".
	encoded := []byte{0x80, 0x0B, 0x60, 0x50, 0x22, 0x0C, 0x0C, 0x85, 0x01}
	got, err := LZWDecode(encoded, nil)
	require.NoError(t, err)
	assert.Equal(t, "-----A---B", string(got))
}

func TestLZWDecodeNoEarlyChange(t *testing.T) {
	original := []byte("0 0 m 0 0 m 0 0 m 612 792 re f")
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	_, err := w.Write(original)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := LZWDecode(buf.Bytes(), Params{"EarlyChange": 0})
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestRunLengthDecode(t *testing.T) {
	got, err := RunLengthDecode([]byte{2, 'a', 'b', 'c', 254, 'x', 128, 'z'})
	require.NoError(t, err)
	assert.Equal(t, "abcxxx", string(got))

	_, err = RunLengthDecode([]byte{5, 'a'})
	assert.Error(t, err)
	_, err = RunLengthDecode([]byte{200})
	assert.Error(t, err)
}
