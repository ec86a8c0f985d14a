package font

import (
	"strings"

	"github.com/tsawler/pdfform/core"
)

// Resolver resolves indirect references found in font dictionaries.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// Face is the coarse rendering family of a font, used to pick a fallback
// face when the font itself is not embedded.
type Face int

const (
	FaceSans Face = iota
	FaceCondensed
	FaceSymbol
	FaceMono
	FaceOCRA
	FaceOCRB
)

// Font descriptor flags.
const (
	flagFixedPitch = 1 << 0
	flagItalic     = 1 << 6
	flagForceBold  = 1 << 18
)

// Glyph is one character code of a shown string.
type Glyph struct {
	Code  int
	Text  string
	Width float64 // advance in text space units at font size 1
	Space bool    // single-byte code 32, subject to word spacing
}

// Font decodes shown strings for one font resource.
type Font struct {
	Name     string
	BaseFont string
	Subtype  string
	Bold     bool
	Italic   bool
	Face     Face
	Vertical bool

	composite    bool
	encoding     *Encoding
	encodingCMap *CMap
	toUnicode    *CMap
	widths       map[int]float64
	defaultWidth float64
	standard     map[rune]float64
	widthScale   float64
}

// Default returns a Helvetica font with WinAnsiEncoding, used when a page
// selects a font it does not define.
func Default(name string) *Font {
	f := &Font{
		Name:       name,
		BaseFont:   "Helvetica",
		Subtype:    "Type1",
		encoding:   NewEncoding(WinAnsiEncoding),
		standard:   helveticaWidths,
		widthScale: 0.001,
	}
	f.inferStyle(0, 0, 0)
	return f
}

// Load builds a font from its resource dictionary. Broken or missing
// entries degrade to defaults; Load never fails.
func Load(name string, dict core.Dict, r Resolver) *Font {
	f := &Font{
		Name:       name,
		widthScale: 0.001,
		widths:     make(map[int]float64),
	}
	if n, ok := resolveName(r, dict.Get("Subtype")); ok {
		f.Subtype = string(n)
	}
	if n, ok := resolveName(r, dict.Get("BaseFont")); ok {
		f.BaseFont = stripSubset(string(n))
	}
	if s, ok := resolveStream(r, dict.Get("ToUnicode")); ok {
		if data, err := s.Decode(); err == nil {
			f.toUnicode, _ = ParseCMap(data)
		}
	}

	descriptor := dict
	if f.Subtype == "Type0" {
		f.composite = true
		f.loadComposite(dict, r)
		if arr, ok := resolveArray(r, dict.Get("DescendantFonts")); ok && len(arr) > 0 {
			if d, ok := resolveDict(r, arr[0]); ok {
				descriptor = d
			}
		}
	} else {
		f.loadSimple(dict, r)
	}

	var flags int
	var weight, angle float64
	if fd, ok := resolveDict(r, descriptor.Get("FontDescriptor")); ok {
		if v, ok := resolveNumber(r, fd.Get("Flags")); ok {
			flags = int(v)
		}
		weight, _ = resolveNumber(r, fd.Get("FontWeight"))
		angle, _ = resolveNumber(r, fd.Get("ItalicAngle"))
		if !f.composite {
			if mw, ok := resolveNumber(r, fd.Get("MissingWidth")); ok {
				f.defaultWidth = mw
			}
		}
	}
	f.inferStyle(flags, weight, angle)
	return f
}

func (f *Font) loadSimple(dict core.Dict, r Resolver) {
	base := StandardEncoding
	if f.Subtype == "TrueType" {
		base = WinAnsiEncoding
	}
	var diffs core.Array
	switch enc := resolveObj(r, dict.Get("Encoding")).(type) {
	case core.Name:
		base = string(enc)
	case core.Dict:
		if n, ok := resolveName(r, enc.Get("BaseEncoding")); ok {
			base = string(n)
		}
		diffs, _ = resolveArray(r, enc.Get("Differences"))
	}
	f.encoding = NewEncoding(base)
	if diffs != nil {
		f.encoding.ApplyDifferences(diffs)
	}

	if f.Subtype == "Type3" {
		if m, ok := resolveArray(r, dict.Get("FontMatrix")); ok {
			if vals, ok := m.Floats(); ok && len(vals) == 6 {
				f.widthScale = vals[0]
			}
		}
	}

	first := 0
	if v, ok := resolveNumber(r, dict.Get("FirstChar")); ok {
		first = int(v)
	}
	if arr, ok := resolveArray(r, dict.Get("Widths")); ok {
		for i, w := range arr {
			if v, ok := resolveNumber(r, w); ok {
				f.widths[first+i] = v
			}
		}
	}
	if len(f.widths) == 0 {
		if std, ok := standardWidths[f.BaseFont]; ok {
			f.standard = std
		} else {
			f.standard = helveticaWidths
		}
	}
}

func (f *Font) loadComposite(dict core.Dict, r Resolver) {
	switch enc := resolveObj(r, dict.Get("Encoding")).(type) {
	case core.Name:
		f.Vertical = strings.HasSuffix(string(enc), "-V")
	case *core.Stream:
		if data, err := enc.Decode(); err == nil {
			f.encodingCMap, _ = ParseCMap(data)
		}
		if v, ok := enc.Dict.GetInt("WMode"); ok && v == 1 {
			f.Vertical = true
		}
	}

	f.defaultWidth = 1000
	arr, ok := resolveArray(r, dict.Get("DescendantFonts"))
	if !ok || len(arr) == 0 {
		return
	}
	desc, ok := resolveDict(r, arr[0])
	if !ok {
		return
	}
	if dw, ok := resolveNumber(r, desc.Get("DW")); ok {
		f.defaultWidth = dw
	}
	if w, ok := resolveArray(r, desc.Get("W")); ok {
		f.parseW(w, r)
	}
}

// parseW reads a CIDFont /W array, which mixes "c [w1 w2 ...]" and
// "cfirst clast w" entries.
func (f *Font) parseW(w core.Array, r Resolver) {
	for i := 0; i < len(w); {
		first, ok := resolveNumber(r, w[i])
		if !ok || i+1 >= len(w) {
			return
		}
		if list, ok := resolveArray(r, w[i+1]); ok {
			for j, v := range list {
				if width, ok := resolveNumber(r, v); ok {
					f.widths[int(first)+j] = width
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			return
		}
		last, ok1 := resolveNumber(r, w[i+1])
		width, ok2 := resolveNumber(r, w[i+2])
		if ok1 && ok2 && last >= first && last-first < 65536 {
			for c := int(first); c <= int(last); c++ {
				f.widths[c] = width
			}
		}
		i += 3
	}
}

func (f *Font) inferStyle(flags int, weight, angle float64) {
	name := strings.ToLower(f.BaseFont)
	f.Bold = flags&flagForceBold != 0 || weight >= 600 ||
		containsAny(name, "bold", "black", "heavy", "semibold", "demi")
	f.Italic = flags&flagItalic != 0 || angle != 0 ||
		containsAny(name, "italic", "oblique")

	switch {
	case containsAny(name, "ocr-a", "ocra"):
		f.Face = FaceOCRA
	case containsAny(name, "ocr-b", "ocrb"):
		f.Face = FaceOCRB
	case containsAny(name, "symbol", "dingbat", "wingding"):
		f.Face = FaceSymbol
	case flags&flagFixedPitch != 0 || containsAny(name, "courier", "mono", "consol"):
		f.Face = FaceMono
	case containsAny(name, "narrow", "condensed", "cond"):
		f.Face = FaceCondensed
	default:
		f.Face = FaceSans
	}
}

// Composite reports whether the font is a Type0 font with multi-byte codes.
func (f *Font) Composite() bool { return f.composite }

// Decode splits a shown string into glyphs.
func (f *Font) Decode(s []byte) []Glyph {
	if f.composite {
		return f.decodeComposite(s)
	}
	glyphs := make([]Glyph, 0, len(s))
	for _, b := range s {
		code := int(b)
		g := Glyph{Code: code, Space: b == ' '}
		if t, ok := f.toUnicode.Text(uint32(b), 1); ok {
			g.Text = t
		} else if r := f.encoding[b]; r != 0 {
			g.Text = string(r)
		}
		g.Width = f.simpleWidth(code, g.Text) * f.widthScale
		glyphs = append(glyphs, g)
	}
	return glyphs
}

func (f *Font) simpleWidth(code int, text string) float64 {
	if w, ok := f.widths[code]; ok {
		return w
	}
	if f.standard != nil {
		r := []rune(text)
		if len(r) == 1 {
			if w, ok := f.standard[r[0]]; ok {
				return w
			}
		}
		return 500
	}
	return f.defaultWidth
}

func (f *Font) decodeComposite(s []byte) []Glyph {
	var glyphs []Glyph
	for len(s) > 0 {
		code, n := f.encodingCMap.NextCode(s, 2)
		cid := int(code)
		if c, ok := f.encodingCMap.CID(code, n); ok {
			cid = c
		}
		g := Glyph{Code: int(code), Space: n == 1 && code == 32}
		if t, ok := f.toUnicode.Text(code, n); ok {
			g.Text = t
		}
		w, ok := f.widths[cid]
		if !ok {
			w = f.defaultWidth
		}
		g.Width = w * f.widthScale
		glyphs = append(glyphs, g)
		s = s[n:]
	}
	return glyphs
}

// stripSubset removes a six-letter subset tag such as "ABCDEF+".
func stripSubset(name string) string {
	if len(name) > 7 && name[6] == '+' {
		for i := 0; i < 6; i++ {
			if name[i] < 'A' || name[i] > 'Z' {
				return name
			}
		}
		return name[7:]
	}
	return name
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func resolveObj(r Resolver, obj core.Object) core.Object {
	if obj == nil {
		return nil
	}
	if _, ok := obj.(core.IndirectRef); ok && r != nil {
		v, err := r.Resolve(obj)
		if err != nil {
			return nil
		}
		return v
	}
	return obj
}

func resolveName(r Resolver, obj core.Object) (core.Name, bool) {
	n, ok := resolveObj(r, obj).(core.Name)
	return n, ok
}

func resolveDict(r Resolver, obj core.Object) (core.Dict, bool) {
	d, ok := resolveObj(r, obj).(core.Dict)
	return d, ok
}

func resolveArray(r Resolver, obj core.Object) (core.Array, bool) {
	a, ok := resolveObj(r, obj).(core.Array)
	return a, ok
}

func resolveStream(r Resolver, obj core.Object) (*core.Stream, bool) {
	s, ok := resolveObj(r, obj).(*core.Stream)
	return s, ok
}

func resolveNumber(r Resolver, obj core.Object) (float64, bool) {
	o := resolveObj(r, obj)
	if o == nil {
		return 0, false
	}
	return core.Float(o)
}
