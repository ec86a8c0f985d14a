package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/tsawler/pdfform/core"
	"github.com/tsawler/pdfform/font"
	"github.com/tsawler/pdfform/model"
	"github.com/tsawler/pdfform/pages"
	"github.com/tsawler/pdfform/reader"
)

const defaultMaxFormDepth = 12

// Option configures the default engine.
type Option func(*PDFEngine)

// WithLogger sets the logger used for recoverable problems in documents.
func WithLogger(l zerolog.Logger) Option {
	return func(e *PDFEngine) { e.log = l }
}

// WithMaxFormDepth limits how deeply form XObjects may nest.
func WithMaxFormDepth(n int) Option {
	return func(e *PDFEngine) {
		if n > 0 {
			e.maxFormDepth = n
		}
	}
}

// PDFEngine is the default engine. It parses documents in memory and
// renders page content streams into surface primitives. Encrypted
// documents are rejected with core.ErrEncrypted.
type PDFEngine struct {
	log          zerolog.Logger
	maxFormDepth int
}

var _ Engine = (*PDFEngine)(nil)

// New returns the default engine.
func New(opts ...Option) *PDFEngine {
	e := &PDFEngine{
		log:          zerolog.Nop(),
		maxFormDepth: defaultMaxFormDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoadDocument parses data. The password is accepted for interface
// compatibility; decryption is not supported.
func (e *PDFEngine) LoadDocument(ctx context.Context, data []byte, password string, progress ProgressFunc) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total := len(data)
	if progress != nil {
		progress(0, total)
	}

	r, err := reader.New(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	if r.Repaired() {
		e.log.Warn().Msg("cross-reference table was rebuilt")
	}
	n, err := r.NumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to read page tree: %w", err)
	}
	if progress != nil {
		progress(total, total)
	}

	return &pdfDocument{
		engine:   e,
		reader:   r,
		numPages: n,
		fonts:    make(map[core.IndirectRef]*font.Font),
	}, nil
}

type pdfDocument struct {
	engine   *PDFEngine
	reader   *reader.Reader
	numPages int

	mu    sync.Mutex
	fonts map[core.IndirectRef]*font.Font
}

func (d *pdfDocument) NumPages() int { return d.numPages }

func (d *pdfDocument) Page(ctx context.Context, number int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if number < 1 || number > d.numPages {
		return nil, fmt.Errorf("page %d of %d: %w", number, d.numPages, ErrPageIndex)
	}
	p, err := d.reader.Page(number - 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get page %d: %w", number, err)
	}
	return &pdfPage{doc: d, page: p, number: number}, nil
}

// font returns the shared font for an indirect font dictionary, loading it
// on first use.
func (d *pdfDocument) font(ref core.IndirectRef, name string) *font.Font {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.fonts[ref]; ok {
		return f
	}
	var f *font.Font
	if obj, err := d.reader.Resolve(ref); err == nil {
		if dict, ok := obj.(core.Dict); ok {
			f = font.Load(name, dict, d.reader)
		}
	}
	if f == nil {
		d.engine.log.Debug().Str("font", name).Stringer("ref", ref).Msg("font dictionary missing, using default")
		f = font.Default(name)
	}
	d.fonts[ref] = f
	return f
}

type pdfPage struct {
	doc       *pdfDocument
	page      *pages.Page
	number    int
	destroyed atomic.Bool
}

func (p *pdfPage) Viewport(scale float64, rotation int) Viewport {
	box := p.page.CropBox()
	return NewViewport([4]float64{box.LLX, box.LLY, box.URX, box.URY}, scale, p.page.Rotate()+rotation)
}

func (p *pdfPage) Render(ctx context.Context, params RenderParams) (model.RenderStats, error) {
	var stats model.RenderStats
	if p.destroyed.Load() {
		return stats, ErrDestroyed
	}
	if params.Surface == nil {
		return stats, fmt.Errorf("page %d: no surface", p.number)
	}
	start := time.Now()
	data, err := p.page.ContentData()
	if err != nil {
		return stats, fmt.Errorf("failed to read content of page %d: %w", p.number, err)
	}

	r := newRenderer(ctx, p.doc, params, p.doc.engine.log.With().Int("page", p.number).Logger())
	err = r.run(data, p.page.Resources())
	r.stats.Duration = time.Since(start)
	if err != nil {
		return r.stats, fmt.Errorf("failed to render page %d: %w", p.number, err)
	}
	return r.stats, nil
}

func (p *pdfPage) Destroy() {
	p.destroyed.Store(true)
}
