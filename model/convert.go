package model

import (
	"math"

	"github.com/tsawler/pdfform/canvas"
	"github.com/tsawler/pdfform/pdfunit"
)

const (
	// axisTolerance is how far, in pixels, a segment's ends may differ
	// across its axis and still count as horizontal or vertical.
	axisTolerance = 0.01
	thickLine     = 4.0
	thinFill      = 1.0
)

// FromSurface converts recorded surface output into page geometry. Width,
// Height and Stats are left for the caller. Polygons are not converted:
// form layouts hold only rectangles, so non-rectangular fills are dropped.
func FromSurface(out canvas.Output) PageGeometry {
	var g PageGeometry
	for _, l := range out.Lines {
		g.addLine(l)
	}
	for _, r := range out.Rects {
		g.addFill(r)
	}
	g.Texts = mergeTexts(out.Texts)
	return g
}

func (g *PageGeometry) addLine(l canvas.Line) {
	dx := l.To.X - l.From.X
	dy := l.To.Y - l.From.Y
	var horizontal bool
	switch {
	case math.Abs(dy) <= axisTolerance && math.Abs(dx) > axisTolerance:
		horizontal = true
	case math.Abs(dx) <= axisTolerance && math.Abs(dy) > axisTolerance:
		horizontal = false
	default:
		return
	}

	length := math.Hypot(dx, dy)
	if l.Width <= 0 || (l.Width < thickLine && length/l.Width < thickLine) {
		return
	}

	color, original := pdfunit.Color(l.Color.Hex())
	seg := LineSegment{
		W:             pdfunit.Round(l.Width, pdfunit.DefaultPrecision),
		L:             pdfunit.ToForm(length),
		Color:         color,
		OriginalColor: original,
	}
	if horizontal {
		seg.X = pdfunit.ToForm(math.Min(l.From.X, l.To.X))
		seg.Y = pdfunit.ToForm(l.From.Y)
		g.HLines = append(g.HLines, seg)
		return
	}
	seg.X = pdfunit.ToForm(l.From.X)
	seg.Y = pdfunit.ToForm(math.Min(l.From.Y, l.To.Y))
	g.VLines = append(g.VLines, seg)
}

func (g *PageGeometry) addFill(r canvas.Rect) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	switch {
	case r.H < thinFill && r.W >= r.H:
		y := r.Y + r.H/2
		g.addLine(canvas.Line{From: canvas.Point{X: r.X, Y: y}, To: canvas.Point{X: r.X + r.W, Y: y}, Width: r.H, Color: r.Color})
		return
	case r.W < thinFill:
		x := r.X + r.W/2
		g.addLine(canvas.Line{From: canvas.Point{X: x, Y: r.Y}, To: canvas.Point{X: x, Y: r.Y + r.H}, Width: r.W, Color: r.Color})
		return
	}
	color, original := pdfunit.Color(r.Color.Hex())
	g.Fills = append(g.Fills, FillRegion{
		X:             pdfunit.ToForm(r.X),
		Y:             pdfunit.ToForm(r.Y),
		W:             pdfunit.ToForm(r.W),
		H:             pdfunit.ToForm(r.H),
		Color:         color,
		OriginalColor: original,
	})
}

// pendingText is a text item under construction, still in pixels.
type pendingText struct {
	x, baseline, end float64
	size             float64
	color            canvas.Color
	runs             []TextRun
}

// mergeTexts groups consecutive strings that share a baseline and color and
// start where the previous one ended.
func mergeTexts(texts []canvas.Text) []TextItem {
	var items []TextItem
	var cur *pendingText
	flush := func() {
		if cur != nil {
			items = append(items, cur.item())
			cur = nil
		}
	}
	for _, t := range texts {
		style := FontStyle{
			FaceID: t.Font.Face,
			Size:   pdfunit.Round(t.Font.Size, 2),
			Bold:   t.Font.Bold,
			Italic: t.Font.Italic,
		}
		if cur != nil && cur.continues(t) {
			cur.end = t.X + t.Width
			cur.size = math.Max(cur.size, t.Size)
			last := &cur.runs[len(cur.runs)-1]
			if last.Style == style {
				last.Text += t.Text
			} else {
				cur.runs = append(cur.runs, TextRun{Text: t.Text, Style: style})
			}
			continue
		}
		flush()
		cur = &pendingText{
			x:        t.X,
			baseline: t.Y,
			end:      t.X + t.Width,
			size:     t.Size,
			color:    t.Color,
			runs:     []TextRun{{Text: t.Text, Style: style}},
		}
	}
	flush()
	return items
}

// continues reports whether t extends the item. Tolerances scale with the
// rendered font size.
func (p *pendingText) continues(t canvas.Text) bool {
	if t.Color != p.color {
		return false
	}
	px := math.Max(p.size, 1)
	if math.Abs(t.Y-p.baseline) > px*0.1 {
		return false
	}
	gap := t.X - p.end
	return gap >= -px*0.1 && gap <= px*0.25
}

func (p *pendingText) item() TextItem {
	color, original := pdfunit.Color(p.color.Hex())
	text := ""
	for _, r := range p.runs {
		text += r.Text
	}
	return TextItem{
		X:             pdfunit.ToForm(p.x),
		Y:             pdfunit.ToForm(p.baseline - p.size),
		W:             pdfunit.ToForm(p.end - p.x),
		Color:         color,
		OriginalColor: original,
		Text:          text,
		Runs:          p.runs,
	}
}
