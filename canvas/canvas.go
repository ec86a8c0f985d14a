// Package canvas records the primitives a page render draws.
//
// All coordinates are device pixels in the viewport: origin at the top
// left, y growing downwards. A [Recorder] keeps every primitive in drawing
// order; it draws nothing. It is not safe for concurrent use.
package canvas

import "fmt"

// Color is an 8-bit RGB color.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Point is a device-space position.
type Point struct {
	X, Y float64
}

// Line is a stroked straight segment.
type Line struct {
	From, To Point
	Width    float64
	Color    Color
}

// Rect is a filled axis-aligned rectangle with its top-left corner at X, Y.
type Rect struct {
	X, Y, W, H float64
	Color      Color
}

// Polygon is any other filled shape.
type Polygon struct {
	Points []Point
	Color  Color
}

// Font describes the style text was shown in. Size is the nominal font
// size in points, independent of the viewport scale.
type Font struct {
	Name   string
	Face   int
	Size   float64
	Bold   bool
	Italic bool
}

// Text is a shown string. X, Y is the start of the baseline; Width is the
// advance of the whole string and Size the rendered font size, both in
// pixels.
type Text struct {
	X, Y  float64
	Width float64
	Size  float64
	Text  string
	Font  Font
	Color Color
}

// Output is everything recorded on one surface.
type Output struct {
	Width, Height int
	Lines         []Line
	Rects         []Rect
	Polygons      []Polygon
	Texts         []Text
}

// Recorder is a drawing surface that records primitives.
type Recorder struct {
	out Output
}

// New returns an empty recorder. The size is informational; primitives
// outside it are kept.
func New(width, height int) *Recorder {
	return &Recorder{out: Output{Width: width, Height: height}}
}

// StrokeLine records a stroked segment.
func (r *Recorder) StrokeLine(l Line) {
	r.out.Lines = append(r.out.Lines, l)
}

// FillRect records a filled rectangle, normalizing negative sizes.
func (r *Recorder) FillRect(rc Rect) {
	if rc.W < 0 {
		rc.X += rc.W
		rc.W = -rc.W
	}
	if rc.H < 0 {
		rc.Y += rc.H
		rc.H = -rc.H
	}
	r.out.Rects = append(r.out.Rects, rc)
}

// FillPolygon records a filled non-rectangular shape.
func (r *Recorder) FillPolygon(p Polygon) {
	p.Points = append([]Point(nil), p.Points...)
	r.out.Polygons = append(r.out.Polygons, p)
}

// ShowText records a shown string. Empty strings are ignored.
func (r *Recorder) ShowText(t Text) {
	if t.Text == "" {
		return
	}
	r.out.Texts = append(r.out.Texts, t)
}

// Output returns a copy of what has been recorded so far.
func (r *Recorder) Output() Output {
	out := r.out
	out.Lines = append([]Line(nil), r.out.Lines...)
	out.Rects = append([]Rect(nil), r.out.Rects...)
	out.Polygons = append([]Polygon(nil), r.out.Polygons...)
	out.Texts = append([]Text(nil), r.out.Texts...)
	return out
}

// Reset discards all recorded primitives.
func (r *Recorder) Reset() {
	r.out = Output{Width: r.out.Width, Height: r.out.Height}
}
