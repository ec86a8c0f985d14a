package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline errors.
type Kind string

const (
	KindDocumentLoad Kind = "document_load"
	KindPageRender   Kind = "page_render"
	KindInvalidState Kind = "invalid_state"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrDocumentLoad = errors.New("document load failed")
	ErrPageRender   = errors.New("page render failed")
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidScale is returned for a negative or non-finite scale.
	ErrInvalidScale = errors.New("scale must be positive")
)

// Error is a pipeline error with its kind, the page index it concerns
// (-1 when none) and the underlying cause.
type Error struct {
	Kind    Kind
	Page    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Kind)
	if e.Page >= 0 {
		prefix = fmt.Sprintf("[%s] page %d", e.Kind, e.Page)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindDocumentLoad:
		return target == ErrDocumentLoad
	case KindPageRender:
		return target == ErrPageRender
	case KindInvalidState:
		return target == ErrInvalidState
	}
	return false
}

func documentLoadError(err error) *Error {
	return &Error{Kind: KindDocumentLoad, Page: -1, Message: "cannot load document", Err: err}
}

func pageRenderError(page int, err error) *Error {
	return &Error{Kind: KindPageRender, Page: page, Message: "render failed", Err: err}
}

func invalidStateError(page int, op string, state fmt.Stringer) *Error {
	return &Error{
		Kind:    KindInvalidState,
		Page:    page,
		Message: fmt.Sprintf("%s not allowed in state %s", op, state),
	}
}
