package pipeline

import "github.com/tsawler/pdfform/model"

// Event is delivered on a controller's event channel. It is one of
// MetadataReady, PagesReady, LoadFailed or Failed.
type Event interface {
	event()
}

// MetadataReady carries the document title and info dictionary. It may
// arrive before or after PagesReady.
type MetadataReady struct {
	Title string
	Info  map[string]string
}

// PagesReady carries every page's geometry in page order. Width is the
// first page's width.
type PagesReady struct {
	Pages []model.PageGeometry
	Width float64
}

// LoadFailed reports that the document could not be loaded. No other event
// follows it.
type LoadFailed struct {
	Err error
}

// Failed reports that a loaded document stopped processing early, through
// cancellation or a page handle that could not be fetched. PagesReady does
// not follow it.
type Failed struct {
	Err error
}

func (MetadataReady) event() {}
func (PagesReady) event()    {}
func (LoadFailed) event()    {}
func (Failed) event()        {}
