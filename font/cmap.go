package font

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tsawler/pdfform/core"
	"golang.org/x/text/encoding/unicode"
)

// CMap maps multi-byte character codes to Unicode text (ToUnicode maps) or
// to CIDs (encoding maps). Both kinds share one parser.
type CMap struct {
	codespace []codespaceRange
	text      map[codeKey]string
	textRange []textRange
	cids      map[codeKey]int
	cidRange  []cidRange
}

type codeKey struct {
	code uint32
	n    int
}

type codespaceRange struct {
	low, high []byte
}

type textRange struct {
	low, high uint32
	n         int
	base      []rune
	list      []string
}

type cidRange struct {
	low, high uint32
	n         int
	cid       int
}

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// ParseCMap parses a CMap program. Sections it does not understand are
// skipped; on a lexical error the mappings read so far are returned along
// with the error.
func ParseCMap(data []byte) (*CMap, error) {
	cm := &CMap{
		text: make(map[codeKey]string),
		cids: make(map[codeKey]int),
	}
	lex := core.NewLexer(data)
	var operands []core.Token
	section := ""
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return cm, fmt.Errorf("cmap: %w", err)
		}
		if tok.Type == core.TokenEOF {
			return cm, nil
		}
		if tok.Type == core.TokenArrayStart && section == "bfrange" {
			arr, err := readHexArray(lex)
			if err != nil {
				return cm, fmt.Errorf("cmap: %w", err)
			}
			operands = append(operands, core.Token{Type: core.TokenArrayStart, Value: arr})
			continue
		}
		if tok.Type != core.TokenKeyword {
			operands = append(operands, tok)
			continue
		}
		switch kw := string(tok.Value); kw {
		case "begincodespacerange", "beginbfchar", "beginbfrange", "begincidchar", "begincidrange":
			section = kw[len("begin"):]
		case "endcodespacerange":
			cm.addCodespace(operands)
			section = ""
		case "endbfchar":
			cm.addBFChars(operands)
			section = ""
		case "endbfrange":
			cm.addBFRanges(operands)
			section = ""
		case "endcidchar":
			cm.addCIDChars(operands)
			section = ""
		case "endcidrange":
			cm.addCIDRanges(operands)
			section = ""
		}
		operands = operands[:0]
	}
}

// readHexArray reads the destinations of an array-form bfrange entry and
// returns them length-prefixed and concatenated.
func readHexArray(lex *core.Lexer) ([]byte, error) {
	var out []byte
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case core.TokenArrayEnd:
			return out, nil
		case core.TokenEOF:
			return nil, errors.New("unterminated array")
		case core.TokenHexString, core.TokenString:
			out = append(out, byte(len(tok.Value)>>8), byte(len(tok.Value)))
			out = append(out, tok.Value...)
		}
	}
}

func splitJoined(b []byte) [][]byte {
	var out [][]byte
	for len(b) >= 2 {
		n := int(b[0])<<8 | int(b[1])
		b = b[2:]
		if n > len(b) {
			n = len(b)
		}
		out = append(out, b[:n])
		b = b[n:]
	}
	return out
}

func (cm *CMap) addCodespace(ops []core.Token) {
	for i := 0; i+1 < len(ops); i += 2 {
		lo, hi := ops[i].Value, ops[i+1].Value
		if len(lo) == 0 || len(lo) != len(hi) || len(lo) > 4 {
			continue
		}
		cm.codespace = append(cm.codespace, codespaceRange{low: lo, high: hi})
	}
}

func (cm *CMap) addBFChars(ops []core.Token) {
	for i := 0; i+1 < len(ops); i += 2 {
		src := ops[i].Value
		if len(src) == 0 || len(src) > 4 {
			continue
		}
		dst := ops[i+1]
		var s string
		if dst.Type == core.TokenName {
			r, ok := GlyphRune(string(dst.Value))
			if !ok {
				continue
			}
			s = string(r)
		} else {
			s = decodeUTF16(dst.Value)
		}
		cm.text[codeKey{codeValue(src), len(src)}] = s
	}
}

func (cm *CMap) addBFRanges(ops []core.Token) {
	for i := 0; i+2 < len(ops); i += 3 {
		lo, hi, dst := ops[i].Value, ops[i+1].Value, ops[i+2]
		if len(lo) == 0 || len(lo) > 4 || len(lo) != len(hi) {
			continue
		}
		r := textRange{low: codeValue(lo), high: codeValue(hi), n: len(lo)}
		if r.high < r.low {
			continue
		}
		if dst.Type == core.TokenArrayStart {
			for _, d := range splitJoined(dst.Value) {
				r.list = append(r.list, decodeUTF16(d))
			}
		} else {
			r.base = []rune(decodeUTF16(dst.Value))
			if len(r.base) == 0 {
				continue
			}
		}
		cm.textRange = append(cm.textRange, r)
	}
}

func (cm *CMap) addCIDChars(ops []core.Token) {
	for i := 0; i+1 < len(ops); i += 2 {
		src := ops[i].Value
		cid, ok := tokenInt(ops[i+1])
		if !ok || len(src) == 0 || len(src) > 4 {
			continue
		}
		cm.cids[codeKey{codeValue(src), len(src)}] = cid
	}
}

func (cm *CMap) addCIDRanges(ops []core.Token) {
	for i := 0; i+2 < len(ops); i += 3 {
		lo, hi := ops[i].Value, ops[i+1].Value
		cid, ok := tokenInt(ops[i+2])
		if !ok || len(lo) == 0 || len(lo) > 4 || len(lo) != len(hi) {
			continue
		}
		cm.cidRange = append(cm.cidRange, cidRange{low: codeValue(lo), high: codeValue(hi), n: len(lo), cid: cid})
	}
}

func tokenInt(tok core.Token) (int, bool) {
	if tok.Type != core.TokenInteger {
		return 0, false
	}
	n, err := strconv.Atoi(string(tok.Value))
	return n, err == nil && n >= 0
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func decodeUTF16(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	out, err := utf16BE.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

// NextCode reads one character code from the front of s and returns it with
// its length in bytes. Without codespace ranges, def bytes are consumed.
func (cm *CMap) NextCode(s []byte, def int) (uint32, int) {
	if len(s) == 0 {
		return 0, 0
	}
	if cm == nil || len(cm.codespace) == 0 {
		n := min(def, len(s))
		return codeValue(s[:n]), n
	}
	shortest := 4
	for n := 1; n <= 4 && n <= len(s); n++ {
		for _, r := range cm.codespace {
			if len(r.low) != n {
				continue
			}
			shortest = min(shortest, n)
			if inRange(s[:n], r) {
				return codeValue(s[:n]), n
			}
		}
	}
	n := min(shortest, len(s))
	return codeValue(s[:n]), n
}

func inRange(b []byte, r codespaceRange) bool {
	for i, c := range b {
		if c < r.low[i] || c > r.high[i] {
			return false
		}
	}
	return true
}

// Text returns the Unicode text mapped to a code of n bytes.
func (cm *CMap) Text(code uint32, n int) (string, bool) {
	if cm == nil {
		return "", false
	}
	if s, ok := cm.text[codeKey{code, n}]; ok {
		return s, true
	}
	for _, r := range cm.textRange {
		if r.n != n || code < r.low || code > r.high {
			continue
		}
		off := int(code - r.low)
		if r.list != nil {
			if off < len(r.list) {
				return r.list[off], true
			}
			return "", false
		}
		out := append([]rune(nil), r.base...)
		out[len(out)-1] += rune(off)
		return string(out), true
	}
	return "", false
}

// CID returns the CID selected by a code of n bytes.
func (cm *CMap) CID(code uint32, n int) (int, bool) {
	if cm == nil {
		return 0, false
	}
	if cid, ok := cm.cids[codeKey{code, n}]; ok {
		return cid, true
	}
	for _, r := range cm.cidRange {
		if r.n == n && code >= r.low && code <= r.high {
			return r.cid + int(code-r.low), true
		}
	}
	return 0, false
}
