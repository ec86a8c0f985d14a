package filters

import (
	"bytes"
	"fmt"
)

// ASCIIHexDecode decodes hexadecimal data terminated by '>'. Whitespace is
// ignored and an odd final digit is padded with zero.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	half := false
	for i, c := range data {
		if c == '>' {
			break
		}
		if isSpace(c) {
			continue
		}
		v, ok := hexNibble(c)
		if !ok {
			return nil, fmt.Errorf("ASCIIHex: invalid digit %q at offset %d", c, i)
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCII85Decode decodes base-85 data terminated by "~>". The 'z' shorthand
// for four zero bytes is honoured and a partial final group is padded.
func ASCII85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(bytes.TrimLeft(data, " \t\r\n\f\x00"), []byte("<~"))
	var out bytes.Buffer
	var group [5]byte
	n := 0
	for i, c := range data {
		if c == '~' {
			break
		}
		if isSpace(c) {
			continue
		}
		if c == 'z' && n == 0 {
			out.Write([]byte{0, 0, 0, 0})
			continue
		}
		if c < '!' || c > 'u' {
			return nil, fmt.Errorf("ASCII85: invalid character %q at offset %d", c, i)
		}
		group[n] = c - '!'
		n++
		if n == 5 {
			writeGroup(&out, group, 4)
			n = 0
		}
	}
	if n == 1 {
		return nil, fmt.Errorf("ASCII85: dangling single character in final group")
	}
	if n > 1 {
		for i := n; i < 5; i++ {
			group[i] = 84
		}
		writeGroup(&out, group, n-1)
	}
	return out.Bytes(), nil
}

func writeGroup(out *bytes.Buffer, group [5]byte, count int) {
	var v uint32
	for _, d := range group {
		v = v*85 + uint32(d)
	}
	b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	out.Write(b[:count])
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
