package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tsawler/pdfform/canvas"
	"github.com/tsawler/pdfform/engine"
	"github.com/tsawler/pdfform/model"
)

// stubEngine hands out a fixed document.
type stubEngine struct {
	doc      *stubDocument
	err      error
	loads    atomic.Int32
	password string
}

func (e *stubEngine) LoadDocument(ctx context.Context, data []byte, password string, progress engine.ProgressFunc) (engine.Document, error) {
	e.loads.Add(1)
	e.password = password
	if progress != nil {
		progress(0, len(data))
		progress(len(data), len(data))
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.doc, nil
}

type stubDocument struct {
	pages         []*stubPage
	metadata      *engine.Metadata
	metadataErr   error
	metadataDelay time.Duration
	pageErr       map[int]error
}

func (d *stubDocument) NumPages() int { return len(d.pages) }

func (d *stubDocument) Page(ctx context.Context, number int) (engine.Page, error) {
	if err := d.pageErr[number]; err != nil {
		return nil, err
	}
	return d.pages[number-1], nil
}

func (d *stubDocument) Metadata(ctx context.Context) (*engine.Metadata, error) {
	if d.metadataDelay > 0 {
		time.Sleep(d.metadataDelay)
	}
	return d.metadata, d.metadataErr
}

// renderTracker records render order and the largest number of renders
// in flight at once.
type renderTracker struct {
	active    atomic.Int32
	maxActive atomic.Int32

	mu    sync.Mutex
	order []int
}

func (r *renderTracker) enter(number int) {
	n := r.active.Add(1)
	for {
		m := r.maxActive.Load()
		if n <= m || r.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	r.mu.Lock()
	r.order = append(r.order, number)
	r.mu.Unlock()
}

func (r *renderTracker) leave() {
	r.active.Add(-1)
}

// stubPage draws one horizontal rule at y = 24*number pixels, so its
// geometry has an HLine at Y = number form units.
type stubPage struct {
	number    int
	width     float64
	height    float64
	renderErr error
	gate      chan struct{}
	onRender  func()
	tracker   *renderTracker

	renders   atomic.Int32
	destroyed atomic.Int32
}

func newStubPage(number int) *stubPage {
	return &stubPage{number: number, width: 612, height: 792}
}

func (p *stubPage) Viewport(scale float64, rotation int) engine.Viewport {
	return engine.NewViewport([4]float64{0, 0, p.width, p.height}, scale, rotation)
}

func (p *stubPage) Render(ctx context.Context, params engine.RenderParams) (model.RenderStats, error) {
	p.renders.Add(1)
	if p.tracker != nil {
		p.tracker.enter(p.number)
		defer p.tracker.leave()
	}
	if p.onRender != nil {
		p.onRender()
	}
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return model.RenderStats{}, ctx.Err()
		}
	}
	time.Sleep(time.Millisecond)

	if p.renderErr != nil {
		return model.RenderStats{Operators: 1}, p.renderErr
	}
	y := float64(24 * p.number)
	params.Surface.StrokeLine(canvas.Line{
		From:  canvas.Point{X: 0, Y: y},
		To:    canvas.Point{X: 96, Y: y},
		Width: 1,
	})
	return model.RenderStats{Operators: 3, Paths: 1}, nil
}

func (p *stubPage) Destroy() {
	p.destroyed.Add(1)
}

func newStubDocument(n int) *stubDocument {
	d := &stubDocument{}
	for i := 1; i <= n; i++ {
		d.pages = append(d.pages, newStubPage(i))
	}
	return d
}

// collect drains the controller's events until the channel closes.
func collect(t *testing.T, c *DocumentController) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d so far", len(events))
			return nil
		}
	}
}

func eventsOf[T Event](events []Event) []T {
	var out []T
	for _, ev := range events {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}
