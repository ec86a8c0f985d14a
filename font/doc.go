// Package font turns the bytes of PDF text-showing operators into glyphs.
//
// A [Font] is loaded from a page's font resource dictionary. It knows how
// to split a string into character codes, what Unicode text each code
// stands for and how far each glyph advances the text cursor:
//
//	f := font.Load("F1", fontDict, resolver)
//	for _, g := range f.Decode(raw) {
//		fmt.Println(g.Text, g.Width)
//	}
//
// # Text Mapping
//
// Text is taken from the font's ToUnicode CMap when one is present. Simple
// fonts otherwise fall back to their base encoding (WinAnsiEncoding,
// MacRomanEncoding or StandardEncoding) patched with the /Differences array.
// Composite (Type0) fonts without a ToUnicode map yield glyphs with empty
// text; their widths are still honoured.
//
// # Widths
//
// Widths come from /Widths (simple fonts), /W and /DW (CID fonts) or, for
// the standard 14 fonts that omit them, from built-in metrics. Glyph widths
// are returned in text space units for a font size of 1.
//
// # Style
//
// Bold, Italic and the rendering [Face] are inferred from the base font name
// and the font descriptor flags.
package font
