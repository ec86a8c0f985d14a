package font

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tsawler/pdfform/core"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Encoding maps single-byte character codes to Unicode. Zero means the code
// has no known text.
type Encoding [256]rune

// Names of the predefined simple font encodings.
const (
	WinAnsiEncoding   = "WinAnsiEncoding"
	MacRomanEncoding  = "MacRomanEncoding"
	StandardEncoding  = "StandardEncoding"
	MacExpertEncoding = "MacExpertEncoding"
)

// NewEncoding returns the predefined encoding with the given name. Unknown
// names, MacExpertEncoding included, yield StandardEncoding.
func NewEncoding(name string) *Encoding {
	var e Encoding
	switch name {
	case WinAnsiEncoding:
		fromCharmap(&e, charmap.Windows1252)
	case MacRomanEncoding:
		fromCharmap(&e, charmap.Macintosh)
	default:
		fromCharmap(&e, charmap.Windows1252)
		for c := 0x80; c < 0x100; c++ {
			e[c] = 0
		}
		e['\''] = '’'
		e['`'] = '‘'
		for c, r := range standardHigh {
			e[c] = r
		}
	}
	return &e
}

func fromCharmap(e *Encoding, cm *charmap.Charmap) {
	for c := 0x20; c < 0x100; c++ {
		r := cm.DecodeByte(byte(c))
		if r != utf8.RuneError {
			e[c] = r
		}
	}
}

// ApplyDifferences patches the encoding from a /Differences array: an
// integer sets the next code, each following name maps that code and
// advances it.
func (e *Encoding) ApplyDifferences(diffs core.Array) {
	code := 0
	for _, d := range diffs {
		switch v := d.(type) {
		case core.Int:
			code = int(v)
		case core.Name:
			if code >= 0 && code < len(e) {
				if r, ok := GlyphRune(string(v)); ok {
					e[code] = r
				} else {
					e[code] = 0
				}
			}
			code++
		}
	}
}

// StandardEncoding codes above 0x7F.
var standardHigh = map[int]rune{
	0xA1: '¡', 0xA2: '¢', 0xA3: '£', 0xA4: '⁄', 0xA5: '¥', 0xA6: 'ƒ', 0xA7: '§',
	0xA8: '¤', 0xA9: '\'', 0xAA: '“', 0xAB: '«', 0xAC: '‹', 0xAD: '›', 0xAE: 'ﬁ',
	0xAF: 'ﬂ', 0xB1: '–', 0xB2: '†', 0xB3: '‡', 0xB4: '·', 0xB6: '¶', 0xB7: '•',
	0xB8: '‚', 0xB9: '„', 0xBA: '”', 0xBB: '»', 0xBC: '…', 0xBD: '‰', 0xBF: '¿',
	0xC1: '`', 0xC2: '´', 0xC3: 'ˆ', 0xC4: '˜', 0xC5: '¯', 0xC6: '˘', 0xC7: '˙',
	0xC8: '¨', 0xCA: '˚', 0xCB: '¸', 0xCD: '˝', 0xCE: '˛', 0xCF: 'ˇ', 0xD0: '—',
	0xE1: 'Æ', 0xE3: 'ª', 0xE8: 'Ł', 0xE9: 'Ø', 0xEA: 'Œ', 0xEB: 'º', 0xF1: 'æ',
	0xF5: 'ı', 0xF8: 'ł', 0xF9: 'ø', 0xFA: 'œ', 0xFB: 'ß',
}

var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "quoteright": '’',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+', "comma": ',',
	"hyphen": '-', "period": '.', "slash": '/', "zero": '0', "one": '1', "two": '2',
	"three": '3', "four": '4', "five": '5', "six": '6', "seven": '7', "eight": '8',
	"nine": '9', "colon": ':', "semicolon": ';', "less": '<', "equal": '=',
	"greater": '>', "question": '?', "at": '@', "bracketleft": '[', "backslash": '\\',
	"bracketright": ']', "asciicircum": '^', "underscore": '_', "grave": '`',
	"quoteleft": '‘', "braceleft": '{', "bar": '|', "braceright": '}',
	"asciitilde": '~', "bullet": '•', "endash": '–', "emdash": '—', "ellipsis": '…',
	"quotedblleft": '“', "quotedblright": '”', "quotesinglbase": '‚',
	"quotedblbase": '„', "dagger": '†', "daggerdbl": '‡', "fi": 'ﬁ', "fl": 'ﬂ',
	"ff": 'ﬀ', "ffi": 'ﬃ', "ffl": 'ﬄ', "trademark": '™', "copyright": '©',
	"registered": '®', "degree": '°', "Euro": '€', "sterling": '£', "yen": '¥',
	"cent": '¢', "section": '§', "paragraph": '¶', "minus": '−', "multiply": '×',
	"divide": '÷', "plusminus": '±', "periodcentered": '·', "nbspace": '\u00a0',
	"nonbreakingspace": '\u00a0', "germandbls": 'ß', "AE": 'Æ', "ae": 'æ',
	"OE": 'Œ', "oe": 'œ', "Oslash": 'Ø', "oslash": 'ø', "dotlessi": 'ı',
	"guillemotleft": '«', "guillemotright": '»', "guilsinglleft": '‹',
	"guilsinglright": '›', "exclamdown": '¡', "questiondown": '¿', "florin": 'ƒ',
	"perthousand": '‰', "fraction": '⁄', "currency": '¤', "brokenbar": '¦',
	"logicalnot": '¬', "mu": 'µ', "onehalf": '½', "onequarter": '¼',
	"threequarters": '¾', "ordfeminine": 'ª', "ordmasculine": 'º', "checkmark": '✓',
}

var accentMarks = map[string]string{
	"acute": "\u0301", "grave": "\u0300", "circumflex": "\u0302", "dieresis": "\u0308",
	"tilde": "\u0303", "ring": "\u030a", "cedilla": "\u0327", "caron": "\u030c",
}

// GlyphRune maps a glyph name to its Unicode code point. It understands the
// common Adobe glyph names, accented Latin letters such as "eacute", and the
// uniXXXX and uXXXX[XX] forms.
func GlyphRune(name string) (rune, bool) {
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if len(name) == 1 {
		return rune(name[0]), true
	}
	if strings.HasPrefix(name, "uni") && len(name) >= 7 {
		if v, err := strconv.ParseUint(name[3:7], 16, 32); err == nil {
			return rune(v), true
		}
	}
	if name[0] == 'u' && len(name) >= 5 && len(name) <= 7 {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	for suffix, mark := range accentMarks {
		if len(name) == len(suffix)+1 && strings.HasSuffix(name, suffix) {
			composed := []rune(norm.NFC.String(name[:1] + mark))
			if len(composed) == 1 {
				return composed[0], true
			}
		}
	}
	return 0, false
}
