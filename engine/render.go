package engine

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tsawler/pdfform/canvas"
	"github.com/tsawler/pdfform/contentstream"
	"github.com/tsawler/pdfform/core"
	"github.com/tsawler/pdfform/font"
	"github.com/tsawler/pdfform/graphicsstate"
	"github.com/tsawler/pdfform/model"
	"seehuhn.de/go/geom/matrix"
)

const (
	// ctxCheckInterval is how many operators run between context checks.
	ctxCheckInterval = 256
	// A TJ adjustment moving right by more than this many thousandths of
	// an em separates words.
	wordGapThreshold = 200
	// cornerTolerance is how far, in pixels, a rectangle corner may sit
	// off its edge.
	cornerTolerance = 0.01
)

// scope is the resource environment of one content stream.
type scope struct {
	resources core.Dict
	fonts     map[string]*font.Font
}

// renderer interprets content stream operators against a graphics state
// stack and reports painted geometry to a surface.
type renderer struct {
	ctx      context.Context
	doc      *pdfDocument
	surface  Surface
	viewport Viewport
	log      zerolog.Logger

	stack *graphicsstate.Stack
	// floor is the stack depth an unbalanced Q may not pop below.
	floor int
	path  graphicsstate.Path
	stats model.RenderStats

	depth    int
	maxDepth int
	forms    map[core.IndirectRef]bool
}

func newRenderer(ctx context.Context, doc *pdfDocument, params RenderParams, log zerolog.Logger) *renderer {
	return &renderer{
		ctx:      ctx,
		doc:      doc,
		surface:  params.Surface,
		viewport: params.Viewport,
		log:      log,
		stack:    graphicsstate.NewStack(params.Viewport.Transform),
		maxDepth: doc.engine.maxFormDepth,
		forms:    make(map[core.IndirectRef]bool),
	}
}

// run interprets one content stream. A syntax error ends the stream
// early without failing the render; only cancellation is returned.
func (r *renderer) run(data []byte, resources core.Dict) error {
	sc := &scope{resources: resources, fonts: make(map[string]*font.Font)}
	p := contentstream.NewParser(data)
	for {
		op, err := p.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			r.log.Warn().Err(err).Msg("content stream ended early")
			return nil
		}
		r.stats.Operators++
		if r.stats.Operators%ctxCheckInterval == 0 {
			if err := r.ctx.Err(); err != nil {
				return err
			}
		}
		if err := r.apply(op, sc); err != nil {
			return err
		}
	}
}

func (r *renderer) apply(op contentstream.Operation, sc *scope) error {
	st := r.stack.Current()
	switch op.Operator {
	// graphics state
	case "q":
		r.stack.Save()
	case "Q":
		if r.stack.Depth() > r.floor {
			_ = r.stack.Restore()
		}
	case "cm":
		if v, ok := op.Floats(6); ok {
			st.Concat(matrix.Matrix{v[0], v[1], v[2], v[3], v[4], v[5]})
		}
	case "w":
		if w, ok := op.Float(0); ok {
			st.LineWidth = w
		}
	case "gs":
		r.extGState(op, sc)

	// color
	case "g":
		r.setColor(false, graphicsstate.DeviceGray, op)
	case "G":
		r.setColor(true, graphicsstate.DeviceGray, op)
	case "rg":
		r.setColor(false, graphicsstate.DeviceRGB, op)
	case "RG":
		r.setColor(true, graphicsstate.DeviceRGB, op)
	case "k":
		r.setColor(false, graphicsstate.DeviceCMYK, op)
	case "K":
		r.setColor(true, graphicsstate.DeviceCMYK, op)
	case "cs", "CS":
		if name, ok := nameOperand(op, 0); ok {
			cs := r.colorSpace(name, sc)
			if op.Operator == "CS" {
				st.StrokeSpace, st.StrokeColor = cs, cs.Initial()
			} else {
				st.FillSpace, st.FillColor = cs, cs.Initial()
			}
		}
	case "sc", "scn":
		if c, ok := st.FillSpace.Color(numericOperands(op)); ok {
			st.FillColor = c
		}
	case "SC", "SCN":
		if c, ok := st.StrokeSpace.Color(numericOperands(op)); ok {
			st.StrokeColor = c
		}

	// path construction
	case "m":
		if v, ok := op.Floats(2); ok {
			r.path.MoveTo(v[0], v[1])
		}
	case "l":
		if v, ok := op.Floats(2); ok {
			r.path.LineTo(v[0], v[1])
		}
	case "c":
		if v, ok := op.Floats(6); ok {
			r.path.CurveTo(v[0], v[1], v[2], v[3], v[4], v[5])
		}
	case "v":
		if v, ok := op.Floats(4); ok {
			cp, _ := r.path.CurrentPoint()
			r.path.CurveTo(cp.X, cp.Y, v[0], v[1], v[2], v[3])
		}
	case "y":
		if v, ok := op.Floats(4); ok {
			r.path.CurveTo(v[0], v[1], v[2], v[3], v[2], v[3])
		}
	case "h":
		r.path.ClosePath()
	case "re":
		if v, ok := op.Floats(4); ok {
			r.path.Rectangle(v[0], v[1], v[2], v[3])
		}

	// path painting
	case "S":
		r.paint(false, true)
	case "s":
		r.path.ClosePath()
		r.paint(false, true)
	case "f", "F", "f*":
		r.paint(true, false)
	case "B", "B*":
		r.paint(true, true)
	case "b", "b*":
		r.path.ClosePath()
		r.paint(true, true)
	case "n":
		r.path.Reset()
	case "W", "W*":
		// clipping does not change form geometry

	// text
	case "BT":
		st.BeginText()
	case "Tf":
		if name, ok := nameOperand(op, 0); ok {
			st.Text.FontName = name
		}
		if size, ok := op.Float(1); ok {
			st.Text.FontSize = size
		}
	case "Tc":
		if v, ok := op.Float(0); ok {
			st.Text.CharSpacing = v
		}
	case "Tw":
		if v, ok := op.Float(0); ok {
			st.Text.WordSpacing = v
		}
	case "Tz":
		if v, ok := op.Float(0); ok {
			st.Text.HScale = v
		}
	case "TL":
		if v, ok := op.Float(0); ok {
			st.Text.Leading = v
		}
	case "Ts":
		if v, ok := op.Float(0); ok {
			st.Text.Rise = v
		}
	case "Tr":
		if v, ok := op.Float(0); ok {
			st.Text.Render = int(v)
		}
	case "Td":
		if v, ok := op.Floats(2); ok {
			st.MoveText(v[0], v[1])
		}
	case "TD":
		if v, ok := op.Floats(2); ok {
			st.Text.Leading = -v[1]
			st.MoveText(v[0], v[1])
		}
	case "Tm":
		if v, ok := op.Floats(6); ok {
			st.SetTextMatrix(matrix.Matrix{v[0], v[1], v[2], v[3], v[4], v[5]})
		}
	case "T*":
		st.NextLine()
	case "Tj":
		r.showText(op.Operands, sc)
	case "'":
		st.NextLine()
		r.showText(op.Operands, sc)
	case "\"":
		if len(op.Operands) == 3 {
			if v, ok := op.Float(0); ok {
				st.Text.WordSpacing = v
			}
			if v, ok := op.Float(1); ok {
				st.Text.CharSpacing = v
			}
			st.NextLine()
			r.showText(op.Operands[2:], sc)
		}
	case "TJ":
		if len(op.Operands) > 0 {
			if arr, ok := op.Operands[len(op.Operands)-1].(core.Array); ok {
				r.showText(arr, sc)
			}
		}

	// external objects and images
	case "Do":
		if name, ok := nameOperand(op, 0); ok {
			return r.xobject(name, sc)
		}
	case "BI", "sh":
		r.stats.Skipped++
	}
	return nil
}

func (r *renderer) setColor(stroke bool, cs graphicsstate.ColorSpace, op contentstream.Operation) {
	st := r.stack.Current()
	c, ok := cs.Color(numericOperands(op))
	if !ok {
		return
	}
	if stroke {
		st.StrokeSpace, st.StrokeColor = cs, c
	} else {
		st.FillSpace, st.FillColor = cs, c
	}
}

func (r *renderer) extGState(op contentstream.Operation, sc *scope) {
	name, ok := nameOperand(op, 0)
	if !ok {
		return
	}
	states, _ := r.resolve(sc.resources.Get("ExtGState")).(core.Dict)
	gs, _ := r.resolve(states.Get(name)).(core.Dict)
	if lw, ok := core.Float(r.resolve(gs.Get("LW"))); ok {
		r.stack.Current().LineWidth = lw
	}
}

func (r *renderer) colorSpace(name string, sc *scope) graphicsstate.ColorSpace {
	if cs, ok := deviceSpace(name); ok {
		return cs
	}
	spaces, _ := r.resolve(sc.resources.Get("ColorSpace")).(core.Dict)
	return r.parseColorSpace(spaces.Get(name), 0)
}

func deviceSpace(name string) (graphicsstate.ColorSpace, bool) {
	switch name {
	case "DeviceGray", "G", "CalGray":
		return graphicsstate.DeviceGray, true
	case "DeviceRGB", "RGB", "CalRGB", "Lab":
		return graphicsstate.DeviceRGB, true
	case "DeviceCMYK", "CMYK":
		return graphicsstate.DeviceCMYK, true
	case "Pattern":
		return graphicsstate.ColorSpace{Name: "Pattern"}, true
	}
	return graphicsstate.ColorSpace{}, false
}

func (r *renderer) parseColorSpace(obj core.Object, depth int) graphicsstate.ColorSpace {
	switch v := r.resolve(obj).(type) {
	case core.Name:
		if cs, ok := deviceSpace(string(v)); ok {
			return cs
		}
	case core.Array:
		family, _ := r.resolve(v.Get(0)).(core.Name)
		switch family {
		case "ICCBased":
			if s, ok := r.resolve(v.Get(1)).(*core.Stream); ok {
				if n, ok := s.Dict.GetInt("N"); ok {
					return graphicsstate.ColorSpace{Name: "ICCBased", Components: int(n)}
				}
			}
		case "Separation":
			return graphicsstate.ColorSpace{Name: "Separation", Components: 1, Tint: true}
		case "DeviceN":
			names, _ := r.resolve(v.Get(1)).(core.Array)
			return graphicsstate.ColorSpace{Name: "DeviceN", Components: len(names), Tint: true}
		case "Indexed":
			if depth > 0 {
				break
			}
			base := r.parseColorSpace(v.Get(1), depth+1)
			var lookup []byte
			switch l := r.resolve(v.Get(3)).(type) {
			case core.String:
				lookup = l
			case *core.Stream:
				lookup, _ = l.Decode()
			}
			return graphicsstate.ColorSpace{Name: "Indexed", Components: 1, Base: &base, Lookup: lookup}
		case "Pattern":
			return graphicsstate.ColorSpace{Name: "Pattern"}
		default:
			if cs, ok := deviceSpace(string(family)); ok {
				return cs
			}
		}
	}
	return graphicsstate.DeviceGray
}

// paint emits the current path and clears it.
func (r *renderer) paint(fill, stroke bool) {
	defer r.path.Reset()
	if r.path.Empty() {
		return
	}
	r.stats.Paths++
	st := r.stack.Current()
	if fill {
		r.fillPath(st)
	}
	if stroke {
		r.strokePath(st)
	}
}

func (r *renderer) device(points []graphicsstate.Point, ctm matrix.Matrix) []canvas.Point {
	out := make([]canvas.Point, len(points))
	for i, p := range points {
		x, y := ctm.Apply(p.X, p.Y)
		out[i] = canvas.Point{X: x, Y: y}
	}
	return out
}

func (r *renderer) strokePath(st *graphicsstate.State) {
	width := st.DeviceLineWidth()
	color := canvasColor(st.StrokeColor)
	for _, sp := range r.path.Subpaths {
		if sp.Curved || len(sp.Points) < 2 {
			continue
		}
		pts := r.device(sp.Points, st.CTM)
		for i := 1; i < len(pts); i++ {
			r.surface.StrokeLine(canvas.Line{From: pts[i-1], To: pts[i], Width: width, Color: color})
		}
		if sp.Closed && len(pts) > 2 && pts[0] != pts[len(pts)-1] {
			r.surface.StrokeLine(canvas.Line{From: pts[len(pts)-1], To: pts[0], Width: width, Color: color})
		}
	}
}

func (r *renderer) fillPath(st *graphicsstate.State) {
	color := canvasColor(st.FillColor)
	for _, sp := range r.path.Subpaths {
		if len(sp.Points) < 3 {
			continue
		}
		pts := r.device(sp.Points, st.CTM)
		if !sp.Curved {
			if rect, ok := axisRect(pts); ok {
				rect.Color = color
				r.surface.FillRect(rect)
				continue
			}
		}
		r.surface.FillPolygon(canvas.Polygon{Points: pts, Color: color})
	}
}

// axisRect reports whether pts, optionally repeating the first point at
// the end, are the corners of an axis-aligned rectangle.
func axisRect(pts []canvas.Point) (canvas.Rect, bool) {
	if len(pts) == 5 && near2(pts[0], pts[4]) {
		pts = pts[:4]
	}
	if len(pts) != 4 {
		return canvas.Rect{}, false
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	for i, p := range pts {
		onX := math.Abs(p.X-minX) <= cornerTolerance || math.Abs(p.X-maxX) <= cornerTolerance
		onY := math.Abs(p.Y-minY) <= cornerTolerance || math.Abs(p.Y-maxY) <= cornerTolerance
		if !onX || !onY {
			return canvas.Rect{}, false
		}
		// consecutive corners must share an edge
		q := pts[(i+1)%4]
		if math.Abs(p.X-q.X) > cornerTolerance && math.Abs(p.Y-q.Y) > cornerTolerance {
			return canvas.Rect{}, false
		}
	}
	return canvas.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, true
}

func near2(a, b canvas.Point) bool {
	return math.Abs(a.X-b.X) <= cornerTolerance && math.Abs(a.Y-b.Y) <= cornerTolerance
}

func canvasColor(c graphicsstate.Color) canvas.Color {
	r, g, b := c.Bytes()
	return canvas.Color{R: r, G: g, B: b}
}

// showText shows strings and TJ adjustments as one text primitive.
func (r *renderer) showText(items []core.Object, sc *scope) {
	st := r.stack.Current()
	ts := &st.Text
	f := r.font(ts.FontName, sc)
	hs := ts.HScale / 100

	var text strings.Builder
	var startX, startY, size float64
	started := false
	for _, item := range items {
		switch v := item.(type) {
		case core.String:
			for _, g := range f.Decode(v) {
				if !started {
					trm := st.TextRenderingMatrix()
					startX, startY = trm.Apply(0, 0)
					size = math.Hypot(trm[2], trm[3])
					started = true
				}
				text.WriteString(g.Text)
				tx := g.Width*ts.FontSize + ts.CharSpacing
				if g.Space {
					tx += ts.WordSpacing
				}
				st.Advance(tx * hs)
			}
		case core.Int, core.Real:
			n, _ := core.Float(v)
			if n < -wordGapThreshold && started && !strings.HasSuffix(text.String(), " ") {
				text.WriteByte(' ')
			}
			st.Advance(-n / 1000 * ts.FontSize * hs)
		}
	}
	if !started || text.Len() == 0 {
		return
	}

	var color graphicsstate.Color
	switch ts.Render {
	case 0, 2, 4, 6:
		color = st.FillColor
	case 1, 5:
		color = st.StrokeColor
	default:
		// invisible text still advances but has no geometry
		return
	}

	endX, endY := st.TextRenderingMatrix().Apply(0, 0)
	r.stats.TextRuns++
	points := size
	if r.viewport.Scale > 0 {
		points = size / r.viewport.Scale
	}
	r.surface.ShowText(canvas.Text{
		X:     startX,
		Y:     startY,
		Width: math.Hypot(endX-startX, endY-startY),
		Size:  size,
		Text:  text.String(),
		Font: canvas.Font{
			Name:   f.BaseFont,
			Face:   int(f.Face),
			Size:   points,
			Bold:   f.Bold,
			Italic: f.Italic,
		},
		Color: canvasColor(color),
	})
}

// font resolves a font resource name in the current scope.
func (r *renderer) font(name string, sc *scope) *font.Font {
	if f, ok := sc.fonts[name]; ok {
		return f
	}
	fonts, _ := r.resolve(sc.resources.Get("Font")).(core.Dict)
	var f *font.Font
	switch v := fonts.Get(name).(type) {
	case core.IndirectRef:
		f = r.doc.font(v, name)
	case core.Dict:
		f = font.Load(name, v, r.doc.reader)
	default:
		r.log.Debug().Str("font", name).Msg("font resource missing, using default")
		f = font.Default(name)
	}
	sc.fonts[name] = f
	return f
}

// xobject paints a form XObject. Images and anything unreadable are
// counted as skipped.
func (r *renderer) xobject(name string, sc *scope) error {
	xobjects, _ := r.resolve(sc.resources.Get("XObject")).(core.Dict)
	obj := xobjects.Get(name)
	ref, isRef := obj.(core.IndirectRef)
	stream, ok := r.resolve(obj).(*core.Stream)
	if !ok {
		r.stats.Skipped++
		return nil
	}
	if subtype, _ := stream.Dict.GetName("Subtype"); subtype != "Form" {
		r.stats.Skipped++
		return nil
	}
	if r.depth >= r.maxDepth || (isRef && r.forms[ref]) {
		r.log.Warn().Str("xobject", name).Int("depth", r.depth).Msg("form nesting too deep or recursive")
		r.stats.Skipped++
		return nil
	}
	data, err := stream.Decode()
	if err != nil {
		r.log.Warn().Err(err).Str("xobject", name).Msg("failed to decode form")
		r.stats.Skipped++
		return nil
	}
	resources, ok := r.resolve(stream.Dict.Get("Resources")).(core.Dict)
	if !ok {
		resources = sc.resources
	}

	base := r.stack.Depth()
	r.stack.Save()
	if m, ok := r.resolve(stream.Dict.Get("Matrix")).(core.Array); ok {
		if v, ok := m.Floats(); ok && len(v) == 6 {
			r.stack.Current().Concat(matrix.Matrix{v[0], v[1], v[2], v[3], v[4], v[5]})
		}
	}
	savedPath, savedFloor := r.path, r.floor
	r.path = graphicsstate.Path{}
	r.floor = base + 1
	r.depth++
	if isRef {
		r.forms[ref] = true
	}

	err = r.run(data, resources)

	if isRef {
		delete(r.forms, ref)
	}
	r.depth--
	r.path, r.floor = savedPath, savedFloor
	for r.stack.Depth() > base {
		_ = r.stack.Restore()
	}
	return err
}

func (r *renderer) resolve(obj core.Object) core.Object {
	if obj == nil {
		return nil
	}
	v, err := r.doc.reader.Resolve(obj)
	if err != nil {
		return nil
	}
	return v
}

func nameOperand(op contentstream.Operation, i int) (string, bool) {
	if i >= len(op.Operands) {
		return "", false
	}
	n, ok := op.Operands[i].(core.Name)
	return string(n), ok
}

func numericOperands(op contentstream.Operation) []float64 {
	vals := make([]float64, 0, len(op.Operands))
	for _, o := range op.Operands {
		if v, ok := core.Float(o); ok {
			vals = append(vals, v)
		}
	}
	return vals
}
