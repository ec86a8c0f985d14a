// Package engine defines the document engine the page pipeline drives, and
// provides the default implementation built on this module's PDF reader.
//
// An [Engine] loads a [Document]; a document hands out [Page] handles and
// [Metadata]; a page renders onto a [Surface] through a [Viewport]. All
// blocking calls take a context.
//
//	eng := engine.New()
//	doc, err := eng.LoadDocument(ctx, data, "", nil)
//	page, err := doc.Page(ctx, 1)
//	vp := page.Viewport(1.5, 0)
//	stats, err := page.Render(ctx, engine.RenderParams{Surface: rec, Viewport: vp})
package engine

import (
	"context"
	"errors"

	"github.com/tsawler/pdfform/canvas"
	"github.com/tsawler/pdfform/model"
)

var (
	// ErrPageIndex is returned for page numbers outside 1..NumPages.
	ErrPageIndex = errors.New("page index out of range")
	// ErrDestroyed is returned when a destroyed page is used.
	ErrDestroyed = errors.New("page destroyed")
)

// ProgressFunc receives load progress in bytes.
type ProgressFunc func(loaded, total int)

// Engine loads documents from raw bytes.
type Engine interface {
	LoadDocument(ctx context.Context, data []byte, password string, progress ProgressFunc) (Document, error)
}

// Document is a loaded document.
type Document interface {
	NumPages() int
	// Page returns the page with the given 1-based number.
	Page(ctx context.Context, number int) (Page, error)
	Metadata(ctx context.Context) (*Metadata, error)
}

// Page is a handle to one page.
type Page interface {
	// Viewport returns the viewport at scale, with rotation added to the
	// page's own rotation.
	Viewport(scale float64, rotation int) Viewport
	Render(ctx context.Context, params RenderParams) (model.RenderStats, error)
	Destroy()
}

// RenderParams tells a page where and how to draw.
type RenderParams struct {
	Surface  Surface
	Viewport Viewport
}

// Surface receives drawing primitives in viewport pixels.
type Surface interface {
	StrokeLine(l canvas.Line)
	FillRect(r canvas.Rect)
	FillPolygon(p canvas.Polygon)
	ShowText(t canvas.Text)
}

var _ Surface = (*canvas.Recorder)(nil)

// Properties holds XMP properties by qualified name, such as "dc:title".
type Properties map[string]string

// Has reports whether the property is present and non-empty.
func (p Properties) Has(key string) bool {
	return p[key] != ""
}

// Get returns the property value, or "".
func (p Properties) Get(key string) string {
	return p[key]
}

// Metadata is the document information dictionary and XMP metadata.
type Metadata struct {
	Info map[string]string
	XMP  Properties
}
