package font

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/pdfform/core"
)

type mapResolver map[int]core.Object

func (m mapResolver) Resolve(obj core.Object) (core.Object, error) {
	ref, ok := obj.(core.IndirectRef)
	if !ok {
		return obj, nil
	}
	v, ok := m[ref.Number]
	if !ok {
		return nil, fmt.Errorf("object %d not found", ref.Number)
	}
	return v, nil
}

func texts(glyphs []Glyph) string {
	s := ""
	for _, g := range glyphs {
		s += g.Text
	}
	return s
}

func TestDefaultFont(t *testing.T) {
	f := Default("F9")
	glyphs := f.Decode([]byte("Hi there"))

	require.Len(t, glyphs, 8)
	assert.Equal(t, "Hi there", texts(glyphs))
	assert.InDelta(t, 0.722, glyphs[0].Width, 1e-9)
	assert.True(t, glyphs[2].Space)
	assert.False(t, f.Bold)
	assert.Equal(t, FaceSans, f.Face)
}

func TestLoadSimpleWidths(t *testing.T) {
	dict := core.Dict{
		"Type":      core.Name("Font"),
		"Subtype":   core.Name("TrueType"),
		"BaseFont":  core.Name("ABCDEF+Arial-BoldMT"),
		"FirstChar": core.Int(65),
		"Widths":    core.IndirectRef{Number: 7},
		"Encoding":  core.Name("WinAnsiEncoding"),
	}
	r := mapResolver{7: core.Array{core.Int(700), core.Real(650.5)}}

	f := Load("F1", dict, r)
	assert.Equal(t, "Arial-BoldMT", f.BaseFont)
	assert.True(t, f.Bold)
	assert.False(t, f.Italic)

	glyphs := f.Decode([]byte{'A', 'B', 'C', 0x93})
	require.Len(t, glyphs, 4)
	assert.InDelta(t, 0.7, glyphs[0].Width, 1e-9)
	assert.InDelta(t, 0.6505, glyphs[1].Width, 1e-9)
	assert.Equal(t, 0.0, glyphs[2].Width, "codes outside Widths use MissingWidth")
	assert.Equal(t, "“", glyphs[3].Text)
}

func TestLoadDifferences(t *testing.T) {
	dict := core.Dict{
		"Subtype":  core.Name("Type1"),
		"BaseFont": core.Name("Times-Italic"),
		"Encoding": core.Dict{
			"BaseEncoding": core.Name("WinAnsiEncoding"),
			"Differences": core.Array{
				core.Int(65), core.Name("eacute"), core.Name("uni2022"),
				core.Int(200), core.Name("fi"), core.Name("g123"),
			},
		},
	}
	f := Load("F2", dict, nil)
	assert.True(t, f.Italic)

	glyphs := f.Decode([]byte{65, 66, 67, 200, 201})
	assert.Equal(t, "é•Cﬁ", texts(glyphs))
	assert.Equal(t, "", glyphs[4].Text)
}

func TestToUnicodeOverridesEncoding(t *testing.T) {
	cmap := `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
1 begincodespacerange
<00> <FF>
endcodespacerange
2 beginbfchar
<01> <0048>
<02> <0069>
endbfchar
1 beginbfrange
<10> <12> <0041>
endbfrange
endcmap`
	dict := core.Dict{
		"Subtype":   core.Name("Type1"),
		"BaseFont":  core.Name("Custom"),
		"ToUnicode": &core.Stream{Dict: core.Dict{}, Data: []byte(cmap)},
	}
	f := Load("F3", dict, nil)
	assert.Equal(t, "HiABC", texts(f.Decode([]byte{1, 2, 0x10, 0x11, 0x12})))
}

func TestType0IdentityH(t *testing.T) {
	toUnicode := `begincmap
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
1 beginbfrange
<0003> <0004> [<0058> <D83DDE00>]
endbfrange
1 beginbfchar
<0005> <00660066>
endbfchar
endcmap`
	r := mapResolver{
		10: core.Dict{
			"Subtype":  core.Name("CIDFontType2"),
			"BaseFont": core.Name("NotoSansMono"),
			"DW":       core.Int(1000),
			"W": core.Array{
				core.Int(3), core.Array{core.Int(250), core.Int(600)},
				core.Int(5), core.Int(9), core.Int(400),
			},
			"FontDescriptor": core.IndirectRef{Number: 11},
		},
		11: core.Dict{"Flags": core.Int(1 << 6)},
	}
	dict := core.Dict{
		"Subtype":         core.Name("Type0"),
		"BaseFont":        core.Name("NotoSansMono"),
		"Encoding":        core.Name("Identity-H"),
		"DescendantFonts": core.Array{core.IndirectRef{Number: 10}},
		"ToUnicode":       &core.Stream{Dict: core.Dict{}, Data: []byte(toUnicode)},
	}

	f := Load("F4", dict, r)
	assert.True(t, f.Composite())
	assert.True(t, f.Italic)
	assert.Equal(t, FaceMono, f.Face)
	assert.False(t, f.Vertical)

	glyphs := f.Decode([]byte{0, 3, 0, 4, 0, 5, 0, 9, 0, 20})
	require.Len(t, glyphs, 5)
	assert.Equal(t, "X\U0001F600ff", texts(glyphs))
	want := []float64{0.25, 0.6, 0.4, 0.4, 1.0}
	for i, w := range want {
		assert.InDelta(t, w, glyphs[i].Width, 1e-9, "glyph %d", i)
	}
	for _, g := range glyphs {
		assert.False(t, g.Space)
	}
}

func TestType0EncodingCMap(t *testing.T) {
	enc := `begincmap
2 begincodespacerange
<00> <7F>
<8000> <FFFF>
endcodespacerange
1 begincidrange
<8000> <80FF> 100
endcidrange
1 begincidchar
<41> 7
endcidchar
endcmap`
	dict := core.Dict{
		"Subtype":  core.Name("Type0"),
		"BaseFont": core.Name("Mixed"),
		"Encoding": &core.Stream{Dict: core.Dict{"WMode": core.Int(1)}, Data: []byte(enc)},
		"DescendantFonts": core.Array{core.Dict{
			"W": core.Array{core.Int(7), core.Array{core.Int(300)}, core.Int(101), core.Array{core.Int(900)}},
		}},
	}
	f := Load("F5", dict, nil)
	assert.True(t, f.Vertical)

	glyphs := f.Decode([]byte{0x41, 0x80, 0x01, 0x20})
	require.Len(t, glyphs, 3)
	assert.Equal(t, 0x41, glyphs[0].Code)
	assert.InDelta(t, 0.3, glyphs[0].Width, 1e-9)
	assert.Equal(t, 0x8001, glyphs[1].Code)
	assert.InDelta(t, 0.9, glyphs[1].Width, 1e-9)
	assert.True(t, glyphs[2].Space)
}

func TestType3FontMatrix(t *testing.T) {
	dict := core.Dict{
		"Subtype":    core.Name("Type3"),
		"FontMatrix": core.Array{core.Real(0.01), core.Int(0), core.Int(0), core.Real(0.01), core.Int(0), core.Int(0)},
		"FirstChar":  core.Int(97),
		"Widths":     core.Array{core.Int(50)},
	}
	f := Load("T1", dict, nil)
	glyphs := f.Decode([]byte("a"))
	require.Len(t, glyphs, 1)
	assert.InDelta(t, 0.5, glyphs[0].Width, 1e-9)
}

func TestInferFace(t *testing.T) {
	tests := []struct {
		base string
		want Face
	}{
		{"Helvetica", FaceSans},
		{"ArialNarrow", FaceCondensed},
		{"Symbol", FaceSymbol},
		{"ZapfDingbats", FaceSymbol},
		{"Courier-Bold", FaceMono},
		{"OCR-A-Std", FaceOCRA},
		{"OCRB", FaceOCRB},
	}
	for _, tt := range tests {
		f := Load("F", core.Dict{"Subtype": core.Name("Type1"), "BaseFont": core.Name(tt.base)}, nil)
		if f.Face != tt.want {
			t.Errorf("%s: expected face %d, got %d", tt.base, tt.want, f.Face)
		}
	}
}

func TestStripSubset(t *testing.T) {
	tests := map[string]string{
		"ABCDEF+Arial": "Arial",
		"abcdef+Arial": "abcdef+Arial",
		"Arial":        "Arial",
		"ABC+Arial":    "ABC+Arial",
	}
	for in, want := range tests {
		if got := stripSubset(in); got != want {
			t.Errorf("stripSubset(%q): expected %q, got %q", in, want, got)
		}
	}
}
