package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tsawler/pdfform/canvas"
	"github.com/tsawler/pdfform/engine"
	"github.com/tsawler/pdfform/model"
	"github.com/tsawler/pdfform/pdfunit"
)

// ProcessorOption configures a PageProcessor.
type ProcessorOption func(*PageProcessor)

// WithProcessorLogger sets the logger for render failures.
func WithProcessorLogger(l zerolog.Logger) ProcessorOption {
	return func(p *PageProcessor) { p.log = l }
}

// PageProcessor renders one page and converts what it drew into a
// geometry record. A processor renders once.
type PageProcessor struct {
	id       string
	name     string
	page     engine.Page
	index    int
	scale    float64
	viewport engine.Viewport
	log      zerolog.Logger

	mu        sync.Mutex
	state     PageRenderState
	geometry  model.PageGeometry
	err       error
	destroyed bool
}

// NewPageProcessor returns a processor for page, which is at position
// index in its document. A zero scale means 1; a negative one is
// ErrInvalidScale.
func NewPageProcessor(page engine.Page, index int, scale float64, opts ...ProcessorOption) (*PageProcessor, error) {
	if scale == 0 {
		scale = 1
	}
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("page %d: %w: %g", index, ErrInvalidScale, scale)
	}

	p := &PageProcessor{
		id:       uuid.NewString(),
		name:     fmt.Sprintf("PageProcessor%d", index),
		page:     page,
		index:    index,
		scale:    scale,
		viewport: page.Viewport(scale, 0),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Str("processor", p.name).Int("page", index).Logger()
	return p, nil
}

// ID returns the processor's unique id.
func (p *PageProcessor) ID() string { return p.id }

// Name returns "PageProcessor" followed by the page index.
func (p *PageProcessor) Name() string { return p.name }

// Index returns the page's position in its document.
func (p *PageProcessor) Index() int { return p.index }

// Scale returns the scale the page renders at.
func (p *PageProcessor) Scale() float64 { return p.scale }

// Viewport returns the viewport the page renders through.
func (p *PageProcessor) Viewport() engine.Viewport { return p.viewport }

// Width returns the viewport width in form units.
func (p *PageProcessor) Width() float64 {
	return pdfunit.ToForm(p.viewport.Width)
}

// Height returns the viewport height in form units.
func (p *PageProcessor) Height() float64 {
	return pdfunit.ToForm(p.viewport.Height)
}

// State returns the current lifecycle state.
func (p *PageProcessor) State() PageRenderState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Render starts rendering the page in the background and returns. onDone
// is called once, after the state is Finished, whether or not the render
// succeeded. Calling Render on a processor that is not Initial returns an
// ErrInvalidState error and leaves the page alone.
func (p *PageProcessor) Render(ctx context.Context, onDone func()) error {
	p.mu.Lock()
	state := p.state
	ok := p.state.begin()
	p.mu.Unlock()
	if !ok {
		return invalidStateError(p.index, "render", state)
	}

	go p.run(ctx, onDone)
	return nil
}

func (p *PageProcessor) run(ctx context.Context, onDone func()) {
	surface := canvas.New(1, 1)
	stats, err := p.page.Render(ctx, engine.RenderParams{
		Surface:  surface,
		Viewport: p.viewport,
	})

	var geometry model.PageGeometry
	var renderErr error
	if err != nil {
		renderErr = pageRenderError(p.index, err)
		geometry.Err = err.Error()
		p.log.Error().Err(renderErr).Msg("page render failed")
	} else {
		geometry = model.FromSurface(surface.Output())
		p.log.Debug().
			Int("operators", stats.Operators).
			Int("hlines", len(geometry.HLines)).
			Int("vlines", len(geometry.VLines)).
			Int("fills", len(geometry.Fills)).
			Int("texts", len(geometry.Texts)).
			Dur("duration", stats.Duration).
			Msg("page rendered")
	}
	geometry.Width = p.Width()
	geometry.Height = p.Height()
	geometry.Stats = stats

	p.mu.Lock()
	p.geometry = geometry
	p.err = renderErr
	p.state.finish()
	p.mu.Unlock()

	if onDone != nil {
		onDone()
	}
}

// Geometry returns the page geometry. It is empty until the render has
// finished.
func (p *PageProcessor) Geometry() model.PageGeometry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.geometry
}

// Err returns the render error, if the render failed.
func (p *PageProcessor) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// PagePoint converts a viewport point to PDF user space.
func (p *PageProcessor) PagePoint(x, y float64) (float64, float64) {
	return p.viewport.ConvertToPDFPoint(x, y)
}

// Destroy releases the page handle. It fails while a render is running;
// later calls do nothing.
func (p *PageProcessor) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateRunning {
		return invalidStateError(p.index, "destroy", p.state)
	}
	if p.destroyed {
		return nil
	}
	p.destroyed = true
	p.page.Destroy()
	return nil
}
