package engine

import (
	"math"

	"github.com/tsawler/pdfform/graphicsstate"
	"seehuhn.de/go/geom/matrix"
)

// Viewport maps PDF user space onto a pixel grid with the origin at the top
// left and y growing downwards.
type Viewport struct {
	// ViewBox is the visible page area in user space: llx, lly, urx, ury.
	ViewBox   [4]float64
	Scale     float64
	Rotation  int
	Width     float64
	Height    float64
	Transform matrix.Matrix
}

// NewViewport builds the viewport for a view box at the given scale and
// clockwise rotation in degrees. Rotations are normalized to 0, 90, 180 or
// 270; other values are treated as 0.
func NewViewport(viewBox [4]float64, scale float64, rotation int) Viewport {
	rotation = normalizeRotation(rotation)
	cx := (viewBox[0] + viewBox[2]) / 2
	cy := (viewBox[1] + viewBox[3]) / 2

	var a, b, c, d float64
	switch rotation {
	case 90:
		a, b, c, d = 0, 1, 1, 0
	case 180:
		a, b, c, d = -1, 0, 0, 1
	case 270:
		a, b, c, d = 0, -1, -1, 0
	default:
		a, b, c, d = 1, 0, 0, -1
	}

	boxW := math.Abs(viewBox[2] - viewBox[0])
	boxH := math.Abs(viewBox[3] - viewBox[1])
	var offX, offY, width, height float64
	if a == 0 {
		offX = math.Abs(cy-viewBox[1]) * scale
		offY = math.Abs(cx-viewBox[0]) * scale
		width, height = boxH*scale, boxW*scale
	} else {
		offX = math.Abs(cx-viewBox[0]) * scale
		offY = math.Abs(cy-viewBox[1]) * scale
		width, height = boxW*scale, boxH*scale
	}

	return Viewport{
		ViewBox:  viewBox,
		Scale:    scale,
		Rotation: rotation,
		Width:    width,
		Height:   height,
		Transform: matrix.Matrix{
			a * scale, b * scale, c * scale, d * scale,
			offX - a*scale*cx - c*scale*cy,
			offY - b*scale*cx - d*scale*cy,
		},
	}
}

// ConvertToViewportPoint maps a user space point to viewport pixels.
func (v Viewport) ConvertToViewportPoint(x, y float64) (float64, float64) {
	return v.Transform.Apply(x, y)
}

// ConvertToPDFPoint maps viewport pixels back to user space.
func (v Viewport) ConvertToPDFPoint(x, y float64) (float64, float64) {
	if !graphicsstate.Invertible(v.Transform) {
		return 0, 0
	}
	return v.Transform.Inv().Apply(x, y)
}

func normalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	if r%90 != 0 {
		return 0
	}
	return r
}
