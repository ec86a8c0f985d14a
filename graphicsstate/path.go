package graphicsstate

// Point is a position in user or device space.
type Point struct {
	X, Y float64
}

// Subpath is a connected run of points. Curves are flattened to their
// control polygon and mark the subpath as Curved, which keeps it out of
// line and rectangle detection.
type Subpath struct {
	Points []Point
	Closed bool
	Curved bool
	// Rect is set for subpaths built by the re operator.
	Rect bool
}

// Path is the path under construction, in user space.
type Path struct {
	Subpaths []Subpath
}

func (p *Path) current() *Subpath {
	if len(p.Subpaths) == 0 {
		return nil
	}
	return &p.Subpaths[len(p.Subpaths)-1]
}

// CurrentPoint returns the last point of the path.
func (p *Path) CurrentPoint() (Point, bool) {
	sp := p.current()
	if sp == nil || len(sp.Points) == 0 {
		return Point{}, false
	}
	return sp.Points[len(sp.Points)-1], true
}

// MoveTo begins a new subpath (m operator).
func (p *Path) MoveTo(x, y float64) {
	// a lone moveto is dropped when another one follows
	if sp := p.current(); sp != nil && len(sp.Points) == 1 && !sp.Rect {
		sp.Points[0] = Point{x, y}
		return
	}
	p.Subpaths = append(p.Subpaths, Subpath{Points: []Point{{x, y}}})
}

// LineTo appends a straight segment (l operator). Without a current point
// it acts as MoveTo.
func (p *Path) LineTo(x, y float64) {
	sp := p.current()
	if sp == nil || sp.Closed || sp.Rect {
		p.MoveTo(x, y)
		return
	}
	sp.Points = append(sp.Points, Point{x, y})
}

// CurveTo appends a Bézier curve (c, v and y operators).
func (p *Path) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	sp := p.current()
	if sp == nil || sp.Closed || sp.Rect {
		p.MoveTo(x1, y1)
		sp = p.current()
	}
	sp.Points = append(sp.Points, Point{x1, y1}, Point{x2, y2}, Point{x3, y3})
	sp.Curved = true
}

// ClosePath closes the current subpath (h operator).
func (p *Path) ClosePath() {
	if sp := p.current(); sp != nil && len(sp.Points) > 0 {
		sp.Closed = true
	}
}

// Rectangle appends a closed rectangular subpath (re operator).
func (p *Path) Rectangle(x, y, w, h float64) {
	p.Subpaths = append(p.Subpaths, Subpath{
		Points: []Point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}},
		Closed: true,
		Rect:   true,
	})
}

// Empty reports whether the path has no segments.
func (p *Path) Empty() bool {
	for _, sp := range p.Subpaths {
		if len(sp.Points) > 1 {
			return false
		}
	}
	return true
}

// Reset clears the path after a painting operator.
func (p *Path) Reset() {
	p.Subpaths = p.Subpaths[:0]
}
