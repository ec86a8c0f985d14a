// Package pdfform converts PDF documents into form-layout geometry: page
// sizes, horizontal and vertical rules, filled regions and styled text,
// measured in form units of 24 device pixels.
//
// Basic usage:
//
//	result, err := pdfform.Parse(ctx, data)
//	if err != nil {
//	    // handle error
//	}
//	for i, page := range result.Pages {
//	    fmt.Println(i, page.Height, len(page.HLines), len(page.Texts))
//	}
//
// With options:
//
//	result, err := pdfform.Parse(ctx, data,
//	    pdfform.WithScale(2),
//	    pdfform.WithLogger(log),
//	)
//
// Parse waits for the whole document. Callers who want metadata and pages
// as separate events can drive a pipeline.DocumentController directly.
package pdfform

import (
	"context"
	"errors"

	"github.com/tsawler/pdfform/engine"
	"github.com/tsawler/pdfform/model"
	"github.com/tsawler/pdfform/pipeline"
)

// ErrIncomplete is returned when the pipeline ends without page results
// and without saying why.
var ErrIncomplete = errors.New("pipeline ended without page results")

// Parse loads data and returns the geometry of every page plus the
// document's title and info dictionary. A document that cannot be loaded
// returns a *pipeline.Error matching pipeline.ErrDocumentLoad. Pages that
// fail to render are included with their Err field set.
func Parse(ctx context.Context, data []byte, opts ...Option) (*model.DocumentResult, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger()
	eng := o.engine
	if eng == nil {
		eng = engine.New(
			engine.WithLogger(log),
			engine.WithMaxFormDepth(o.maxFormDepth),
		)
	}

	ctrl := pipeline.NewDocumentController(eng,
		pipeline.WithLogger(log),
		pipeline.WithScale(o.scale),
		pipeline.WithEventBuffer(o.eventBuffer),
	)
	if err := ctrl.Parse(ctx, data); err != nil {
		return nil, err
	}

	var failure error
	pagesReady := false
	for ev := range ctrl.Events() {
		switch ev := ev.(type) {
		case pipeline.LoadFailed:
			failure = ev.Err
		case pipeline.Failed:
			failure = ev.Err
		case pipeline.PagesReady:
			pagesReady = true
		}
	}
	if failure != nil {
		return nil, failure
	}
	if !pagesReady {
		return nil, ErrIncomplete
	}

	result := ctrl.Result()
	return &result, nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests.
//
//	result := pdfform.Must(pdfform.Parse(ctx, data))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
