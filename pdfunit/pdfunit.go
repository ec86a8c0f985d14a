// Package pdfunit converts device pixels to form units and maps colors to
// the form palette.
//
// A form unit is one grid cell: a quarter inch at 96 dpi, so 24 device
// pixels. Values are rounded to three decimals.
package pdfunit

import (
	"math"
	"strings"
)

const (
	DPI              = 96
	CellsPerInch     = 4
	PixelsPerUnit    = DPI / CellsPerInch
	DefaultPrecision = 3
)

// ToForm converts a length in viewport pixels to form units.
func ToForm(px float64) float64 {
	return Round(px/PixelsPerUnit, DefaultPrecision)
}

// ToPixels converts form units back to viewport pixels.
func ToPixels(units float64) float64 {
	return units * PixelsPerUnit
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Palette is the fixed form color table. Indices are stable; some colors
// appear twice and resolve to their first index.
var Palette = []string{
	"#000000", "#ffffff", "#4c4c4c", "#808080", "#999999", "#c0c0c0",
	"#cccccc", "#e5e5e5", "#f2f2f2", "#008000", "#00ff00", "#bfffa0",
	"#ffd629", "#ff99cc", "#004080", "#9fc0e1", "#5580ff", "#a9c9fa",
	"#ff0080", "#800080", "#ffbfff", "#e45b21", "#ffbfaa", "#008080",
	"#ff0000", "#fdc59f", "#808000", "#bfbf00", "#824100", "#007256",
	"#008000", "#000080", "#008080", "#800080", "#ff0000", "#0000ff",
	"#008000",
}

var paletteIndex = func() map[string]int {
	m := make(map[string]int, len(Palette))
	for i, c := range Palette {
		if _, ok := m[c]; !ok {
			m[c] = i
		}
	}
	return m
}()

// ColorIndex returns the palette index of a "#rrggbb" color, or -1.
func ColorIndex(hex string) int {
	if i, ok := paletteIndex[strings.ToLower(hex)]; ok {
		return i
	}
	return -1
}

// Color returns the palette index of hex and, when the color is not in the
// palette, the normalized color string to carry alongside index -1.
func Color(hex string) (int, string) {
	hex = strings.ToLower(hex)
	if i := ColorIndex(hex); i >= 0 {
		return i, ""
	}
	return -1, hex
}
