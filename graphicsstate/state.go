package graphicsstate

import (
	"fmt"
	"math"

	"seehuhn.de/go/geom/matrix"
)

// Color is an RGB color with components in [0,1].
type Color struct {
	R, G, B float64
}

// Black is the initial stroke and fill color.
var Black = Color{}

// Gray returns the DeviceGray color g.
func Gray(g float64) Color {
	g = clamp01(g)
	return Color{g, g, g}
}

// RGB returns a DeviceRGB color.
func RGB(r, g, b float64) Color {
	return Color{clamp01(r), clamp01(g), clamp01(b)}
}

// CMYK converts a DeviceCMYK color with the naive complement formula.
func CMYK(c, m, y, k float64) Color {
	k = clamp01(k)
	return Color{
		(1 - clamp01(c)) * (1 - k),
		(1 - clamp01(m)) * (1 - k),
		(1 - clamp01(y)) * (1 - k),
	}
}

// FromComponents picks the color model from the number of components:
// 1 gray, 3 RGB, 4 CMYK. Other counts return false.
func FromComponents(vals []float64) (Color, bool) {
	switch len(vals) {
	case 1:
		return Gray(vals[0]), true
	case 3:
		return RGB(vals[0], vals[1], vals[2]), true
	case 4:
		return CMYK(vals[0], vals[1], vals[2], vals[3]), true
	}
	return Color{}, false
}

// Bytes returns the color as 8-bit components, rounded.
func (c Color) Bytes() (r, g, b uint8) {
	return to8(c.R), to8(c.G), to8(c.B)
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}

// ColorSpace is a color space reduced to what color conversion needs.
type ColorSpace struct {
	Name       string
	Components int
	// Tint marks Separation and DeviceN spaces, where 1 means full ink.
	Tint bool
	// Base and Lookup describe Indexed spaces: each index selects
	// Base.Components bytes of Lookup.
	Base   *ColorSpace
	Lookup []byte
}

// The device color spaces.
var (
	DeviceGray = ColorSpace{Name: "DeviceGray", Components: 1}
	DeviceRGB  = ColorSpace{Name: "DeviceRGB", Components: 3}
	DeviceCMYK = ColorSpace{Name: "DeviceCMYK", Components: 4}
)

// Color converts color components given in cs. Tint spaces render their
// first component as a gray level of ink. When the operand count does not
// match the space, the count alone picks the model.
func (cs ColorSpace) Color(vals []float64) (Color, bool) {
	if cs.Base != nil {
		if len(vals) == 0 {
			return Black, false
		}
		n := cs.Base.Components
		i := int(vals[0]) * n
		if n <= 0 || i < 0 || i+n > len(cs.Lookup) {
			return Black, false
		}
		comps := make([]float64, n)
		for j := range comps {
			comps[j] = float64(cs.Lookup[i+j]) / 255
		}
		return cs.Base.Color(comps)
	}
	if cs.Tint {
		if len(vals) == 0 {
			return Black, false
		}
		return Gray(1 - vals[0]), true
	}
	return FromComponents(vals)
}

// Initial returns the initial color of the space: black, or no ink for
// tint spaces.
func (cs ColorSpace) Initial() Color {
	if cs.Tint {
		return Gray(1)
	}
	if cs.Components == 4 {
		return CMYK(0, 0, 0, 1)
	}
	return Black
}

// TextState is the part of the graphics state used by text operators.
type TextState struct {
	// FontName is the resource name given to Tf.
	FontName string
	FontSize float64

	CharSpacing float64
	WordSpacing float64
	// HScale is the Tz horizontal scaling in percent.
	HScale  float64
	Leading float64
	Render  int
	Rise    float64

	// Tm and Tlm are only meaningful between BT and ET.
	Tm  matrix.Matrix
	Tlm matrix.Matrix
}

// State is one level of the graphics state stack.
type State struct {
	CTM         matrix.Matrix
	LineWidth   float64
	StrokeColor Color
	FillColor   Color
	StrokeSpace ColorSpace
	FillSpace   ColorSpace
	Text        TextState
}

// NewState returns the initial state with the given base CTM.
func NewState(ctm matrix.Matrix) State {
	return State{
		CTM:         ctm,
		LineWidth:   1,
		StrokeSpace: DeviceGray,
		FillSpace:   DeviceGray,
		Text: TextState{
			HScale: 100,
			Tm:     matrix.Identity,
			Tlm:    matrix.Identity,
		},
	}
}

// Concat pre-multiplies m into the CTM (cm operator).
func (s *State) Concat(m matrix.Matrix) {
	s.CTM = m.Mul(s.CTM)
}

// DeviceLineWidth returns the line width in device space. A width of zero
// means the thinnest line the device can draw, taken as one unit. The
// width is scaled by the geometric mean of the CTM's axis lengths.
func (s *State) DeviceLineWidth() float64 {
	w := s.LineWidth
	if w <= 0 {
		return 1
	}
	sx := math.Hypot(s.CTM[0], s.CTM[1])
	sy := math.Hypot(s.CTM[2], s.CTM[3])
	return w * math.Sqrt(sx*sy)
}

// BeginText resets the text matrices (BT operator).
func (s *State) BeginText() {
	s.Text.Tm = matrix.Identity
	s.Text.Tlm = matrix.Identity
}

// SetTextMatrix sets both text matrices (Tm operator).
func (s *State) SetTextMatrix(m matrix.Matrix) {
	s.Text.Tm = m
	s.Text.Tlm = m
}

// MoveText starts a new line offset by (tx, ty) from the start of the
// current one (Td operator).
func (s *State) MoveText(tx, ty float64) {
	s.Text.Tlm = matrix.Translate(tx, ty).Mul(s.Text.Tlm)
	s.Text.Tm = s.Text.Tlm
}

// NextLine moves to the start of the next line (T* operator).
func (s *State) NextLine() {
	s.MoveText(0, -s.Text.Leading)
}

// Advance moves the text matrix horizontally by tx text-space units.
func (s *State) Advance(tx float64) {
	s.Text.Tm = matrix.Translate(tx, 0).Mul(s.Text.Tm)
}

// TextRenderingMatrix returns the matrix mapping glyph space scaled to
// 1 unit per em onto device space.
func (s *State) TextRenderingMatrix() matrix.Matrix {
	ts := s.Text
	m := matrix.Matrix{ts.FontSize * ts.HScale / 100, 0, 0, ts.FontSize, 0, ts.Rise}
	return m.Mul(ts.Tm).Mul(s.CTM)
}

// Stack is the graphics state stack.
type Stack struct {
	states []State
}

// NewStack returns a stack holding the initial state.
func NewStack(ctm matrix.Matrix) *Stack {
	return &Stack{states: []State{NewState(ctm)}}
}

// Current returns the top of the stack.
func (st *Stack) Current() *State {
	return &st.states[len(st.states)-1]
}

// Depth returns the number of saved states.
func (st *Stack) Depth() int {
	return len(st.states) - 1
}

// Save pushes a copy of the current state (q operator).
func (st *Stack) Save() {
	st.states = append(st.states, *st.Current())
}

// Restore pops the current state (Q operator). An unbalanced Q leaves the
// initial state in place and returns an error.
func (st *Stack) Restore() error {
	if len(st.states) == 1 {
		return fmt.Errorf("graphics state stack underflow")
	}
	st.states = st.states[:len(st.states)-1]
	return nil
}

// Invertible reports whether m has a finite, non-zero determinant, so that
// m.Inv does not panic.
func Invertible(m matrix.Matrix) bool {
	det := m[0]*m[3] - m[1]*m[2]
	return det != 0 && !math.IsNaN(det) && !math.IsInf(det, 0)
}
