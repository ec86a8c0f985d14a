package font

import "testing"

func TestNewEncoding(t *testing.T) {
	tests := []struct {
		name string
		code byte
		want rune
	}{
		{WinAnsiEncoding, 'A', 'A'},
		{WinAnsiEncoding, 0x80, '€'},
		{WinAnsiEncoding, 0xE9, 'é'},
		{MacRomanEncoding, 0x8E, 'é'},
		{StandardEncoding, 0x27, '’'},
		{StandardEncoding, 0xAE, 'ﬁ'},
		{StandardEncoding, 0xE9, 'Ø'},
		{"Bogus", 'z', 'z'},
	}
	for _, tt := range tests {
		if got := NewEncoding(tt.name)[tt.code]; got != tt.want {
			t.Errorf("%s[%#x]: expected %q, got %q", tt.name, tt.code, tt.want, got)
		}
	}
}

func TestGlyphRune(t *testing.T) {
	tests := []struct {
		name string
		want rune
		ok   bool
	}{
		{"A", 'A', true},
		{"space", ' ', true},
		{"eacute", 'é', true},
		{"Ccedilla", 'Ç', true},
		{"zcaron", 'ž', true},
		{"uni20AC", '€', true},
		{"u1F600", '\U0001F600', true},
		{"a.sc", 'a', true},
		{"bullet", '•', true},
		{"g42", 0, false},
	}
	for _, tt := range tests {
		got, ok := GlyphRune(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("GlyphRune(%q): expected %q/%v, got %q/%v", tt.name, tt.want, tt.ok, got, ok)
		}
	}
}
