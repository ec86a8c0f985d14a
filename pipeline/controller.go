package pipeline

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/pdfform/engine"
	"github.com/tsawler/pdfform/model"
)

const (
	// DefaultScale is the viewport scale pages render at unless told
	// otherwise.
	DefaultScale = 1.5

	defaultEventBuffer = 4
)

// ControllerOption configures a DocumentController.
type ControllerOption func(*DocumentController)

// WithLogger sets the controller's logger. Processors log through it too.
func WithLogger(l zerolog.Logger) ControllerOption {
	return func(c *DocumentController) { c.log = l }
}

// WithScale sets the scale Parse renders pages at.
func WithScale(scale float64) ControllerOption {
	return func(c *DocumentController) {
		if scale > 0 {
			c.scale = scale
		}
	}
}

// WithEventBuffer sets the capacity of the event channel.
func WithEventBuffer(n int) ControllerOption {
	return func(c *DocumentController) {
		if n >= 0 {
			c.buffer = n
		}
	}
}

// DocumentController runs one document through the page pipeline. Create
// one per document; it runs once.
//
// Consumers receive events from Events until the channel closes. The
// channel closes when the controller is Complete. A consumer that stops
// reading early must cancel the context it passed to Parse or Load, or the
// controller blocks on its next event.
type DocumentController struct {
	engine engine.Engine
	id     string
	log    zerolog.Logger
	scale  float64
	buffer int

	events chan Event

	mu      sync.Mutex
	state   ControllerState
	current int
	result  model.DocumentResult
}

// NewDocumentController returns an idle controller that loads documents
// with eng.
func NewDocumentController(eng engine.Engine, opts ...ControllerOption) *DocumentController {
	c := &DocumentController{
		engine: eng,
		id:     uuid.NewString(),
		log:    zerolog.Nop(),
		scale:  DefaultScale,
		buffer: defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("request_id", c.id).Logger()
	c.events = make(chan Event, c.buffer)
	return c
}

// ID returns the controller's request id. Its log lines carry it as
// request_id.
func (c *DocumentController) ID() string { return c.id }

// Events returns the event channel.
func (c *DocumentController) Events() <-chan Event { return c.events }

// State returns the controller state.
func (c *DocumentController) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentPage returns the index of the page being processed.
func (c *DocumentController) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Result returns a copy of the accumulated result. Pages is complete only
// after PagesReady has been delivered.
func (c *DocumentController) Result() model.DocumentResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result.Clone()
}

// Parse loads raw with an empty password and processes every page at the
// controller's scale. It returns at once; results arrive as events. A load
// failure is logged and reported as LoadFailed only.
func (c *DocumentController) Parse(ctx context.Context, raw []byte) error {
	if err := c.start(ControllerLoading, "parse"); err != nil {
		return err
	}

	go func() {
		defer c.complete()

		doc, err := c.engine.LoadDocument(ctx, raw, "", func(loaded, total int) {
			c.log.Debug().Int("loaded", loaded).Int("total", total).Msg("load progress")
		})
		if err != nil {
			loadErr := documentLoadError(err)
			c.log.Error().Err(loadErr).Msg("document load failed")
			c.emit(ctx, LoadFailed{Err: loadErr})
			return
		}
		c.load(ctx, doc, c.scale)
	}()
	return nil
}

// Load processes an already loaded document at scale, which defaults to the
// controller's scale when zero. It returns at once; results arrive as
// events.
func (c *DocumentController) Load(ctx context.Context, doc engine.Document, scale float64) error {
	if scale == 0 {
		scale = c.scale
	}
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidScale, scale)
	}
	if err := c.start(ControllerEnumerating, "load"); err != nil {
		return err
	}

	go func() {
		defer c.complete()
		c.load(ctx, doc, scale)
	}()
	return nil
}

func (c *DocumentController) start(next ControllerState, op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ControllerIdle {
		return invalidStateError(-1, op, c.state)
	}
	c.state = next
	return nil
}

func (c *DocumentController) setState(s ControllerState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *DocumentController) complete() {
	c.setState(ControllerComplete)
	c.log.Debug().Msg("controller complete")
	close(c.events)
}

// emit delivers ev, or drops it once ctx is done and nobody is receiving.
// A send that can complete at once always wins over cancellation.
func (c *DocumentController) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
		return
	default:
	}
	select {
	case c.events <- ev:
	case <-ctx.Done():
		c.log.Warn().Str("event", fmt.Sprintf("%T", ev)).Msg("event dropped, no receiver")
	}
}

// load runs the metadata fetch beside the page pipeline and returns when
// both are done.
func (c *DocumentController) load(ctx context.Context, doc engine.Document, scale float64) {
	c.mu.Lock()
	c.state = ControllerEnumerating
	c.current = 0
	c.result = model.DocumentResult{}
	c.mu.Unlock()

	numPages := doc.NumPages()
	c.log.Info().Int("pages", numPages).Float64("scale", scale).Msg("document loaded")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.fetchMetadata(ctx, doc)
	}()

	pages, err := c.fetchPages(ctx, doc, numPages)
	if err != nil {
		c.log.Error().Err(err).Msg("page enumeration failed")
		c.emit(ctx, Failed{Err: err})
	} else {
		c.processPages(ctx, pages, scale)
	}

	wg.Wait()
}

func (c *DocumentController) fetchMetadata(ctx context.Context, doc engine.Document) {
	md, err := doc.Metadata(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("metadata unavailable")
		md = nil
	}

	title := selectTitle(md)
	var info map[string]string
	if md != nil && md.Info != nil {
		info = make(map[string]string, len(md.Info))
		for k, v := range md.Info {
			info[k] = v
		}
	}

	c.mu.Lock()
	c.result.MetadataTitle = title
	c.result.DocumentInfo = info
	c.mu.Unlock()

	c.log.Debug().Str("title", title).Msg("metadata ready")
	c.emit(ctx, MetadataReady{Title: title, Info: info})
}

// selectTitle prefers the XMP dc:title, then the info Title.
func selectTitle(md *engine.Metadata) string {
	if md == nil {
		return ""
	}
	if md.XMP.Has("dc:title") {
		return md.XMP.Get("dc:title")
	}
	return md.Info["Title"]
}

// fetchPages requests every page handle at once and waits for all of them.
func (c *DocumentController) fetchPages(ctx context.Context, doc engine.Document, n int) ([]engine.Page, error) {
	pages := make([]engine.Page, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range n {
		g.Go(func() error {
			page, err := doc.Page(gctx, i+1)
			if err != nil {
				return fmt.Errorf("failed to get page %d: %w", i+1, err)
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, page := range pages {
			if page != nil {
				page.Destroy()
			}
		}
		return nil, err
	}
	return pages, nil
}

// processPages renders the pages in order with one render in flight,
// yielding between pages.
func (c *DocumentController) processPages(ctx context.Context, pages []engine.Page, scale float64) {
	c.setState(ControllerProcessingPages)

	widthSet := false
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			c.abandon(pages[i:])
			c.log.Warn().Err(err).Int("page", i).Msg("processing canceled")
			c.emit(ctx, Failed{Err: err})
			return
		}

		c.mu.Lock()
		c.current = i
		c.mu.Unlock()

		geometry := c.processPage(ctx, page, i, scale)

		c.mu.Lock()
		if !widthSet {
			c.result.PageWidth = geometry.Width
			widthSet = true
		}
		c.result.Pages = append(c.result.Pages, geometry)
		c.mu.Unlock()

		runtime.Gosched()
	}

	c.mu.Lock()
	ready := PagesReady{
		Pages: append([]model.PageGeometry(nil), c.result.Pages...),
		Width: c.result.PageWidth,
	}
	c.mu.Unlock()

	c.log.Info().Int("pages", len(ready.Pages)).Float64("width", ready.Width).Msg("pages ready")
	c.emit(ctx, ready)
}

// processPage renders one page and waits for it to finish.
func (c *DocumentController) processPage(ctx context.Context, page engine.Page, index int, scale float64) model.PageGeometry {
	proc, err := NewPageProcessor(page, index, scale, WithProcessorLogger(c.log))
	if err != nil {
		// scale was checked by Load and WithScale
		c.log.Error().Err(err).Msg("cannot create page processor")
		page.Destroy()
		return model.PageGeometry{Err: err.Error()}
	}

	done := make(chan struct{})
	if err := proc.Render(ctx, func() { close(done) }); err != nil {
		c.log.Error().Err(err).Msg("cannot start render")
		return model.PageGeometry{Err: err.Error()}
	}
	<-done

	if err := proc.Destroy(); err != nil {
		c.log.Warn().Err(err).Msg("destroy failed")
	}
	return proc.Geometry()
}

func (c *DocumentController) abandon(pages []engine.Page) {
	for _, page := range pages {
		page.Destroy()
	}
}
