package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRenderStateTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   PageRenderState
		op     func(*PageRenderState) bool
		wantOK bool
		want   PageRenderState
	}{
		{"begin from initial", StateInitial, (*PageRenderState).begin, true, StateRunning},
		{"begin from running", StateRunning, (*PageRenderState).begin, false, StateRunning},
		{"begin from finished", StateFinished, (*PageRenderState).begin, false, StateFinished},
		{"begin from paused", StatePaused, (*PageRenderState).begin, false, StatePaused},
		{"finish from running", StateRunning, (*PageRenderState).finish, true, StateFinished},
		{"finish from initial", StateInitial, (*PageRenderState).finish, false, StateInitial},
		{"finish from finished", StateFinished, (*PageRenderState).finish, false, StateFinished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.from
			if ok := tt.op(&s); ok != tt.wantOK {
				t.Errorf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if s != tt.want {
				t.Errorf("Expected state %s, got %s", tt.want, s)
			}
		})
	}
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "initial", StateInitial.String())
	assert.Equal(t, "paused", StatePaused.String())
	assert.Equal(t, "unknown", PageRenderState(9).String())
	assert.Equal(t, "processing_pages", ControllerProcessingPages.String())
	assert.Equal(t, "unknown", ControllerState(-1).String())
}

func TestNewPageProcessorScale(t *testing.T) {
	p, err := NewPageProcessor(newStubPage(1), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Scale())
	assert.InDelta(t, 25.5, p.Width(), 1e-9) // 612 / 24
	assert.InDelta(t, 33.0, p.Height(), 1e-9)

	for _, scale := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := NewPageProcessor(newStubPage(1), 0, scale)
		assert.ErrorIs(t, err, ErrInvalidScale, "scale %g", scale)
	}
}

func TestProcessorIdentity(t *testing.T) {
	p, err := NewPageProcessor(newStubPage(3), 2, 1.5)
	require.NoError(t, err)
	assert.Equal(t, "PageProcessor2", p.Name())
	assert.Equal(t, 2, p.Index())
	assert.Len(t, p.ID(), 36)
	assert.Equal(t, StateInitial, p.State())

	q, err := NewPageProcessor(newStubPage(3), 2, 1.5)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID(), q.ID())
}

func TestProcessorDimensions(t *testing.T) {
	page := newStubPage(1)
	page.width, page.height = 842, 595

	p, err := NewPageProcessor(page, 0, 1.5)
	require.NoError(t, err)
	assert.InDelta(t, 52.625, p.Width(), 1e-9) // 1263 / 24
	assert.InDelta(t, 37.188, p.Height(), 1e-9)
}

func TestProcessorRender(t *testing.T) {
	page := newStubPage(2)
	p, err := NewPageProcessor(page, 1, 1.5)
	require.NoError(t, err)

	done := make(chan PageRenderState, 1)
	require.NoError(t, p.Render(context.Background(), func() {
		done <- p.State()
	}))

	select {
	case state := <-done:
		assert.Equal(t, StateFinished, state, "callback sees the settled state")
	case <-time.After(5 * time.Second):
		t.Fatal("render did not finish")
	}

	g := p.Geometry()
	assert.NoError(t, p.Err())
	assert.Empty(t, g.Err)
	assert.InDelta(t, 38.25, g.Width, 1e-9)
	assert.InDelta(t, 49.5, g.Height, 1e-9)
	require.Len(t, g.HLines, 1)
	assert.Equal(t, 2.0, g.HLines[0].Y)
	assert.Equal(t, 4.0, g.HLines[0].L)
	assert.Empty(t, g.VLines)
	assert.Equal(t, 3, g.Stats.Operators)
	assert.Equal(t, 1, g.Stats.Paths)
}

func TestProcessorRenderTwice(t *testing.T) {
	page := newStubPage(1)
	page.gate = make(chan struct{})
	p, err := NewPageProcessor(page, 0, 1.5)
	require.NoError(t, err)

	done := make(chan struct{})
	calls := 0
	require.NoError(t, p.Render(context.Background(), func() {
		calls++
		close(done)
	}))

	err = p.Render(context.Background(), func() { t.Error("second onDone called") })
	assert.ErrorIs(t, err, ErrInvalidState)

	err = p.Destroy()
	assert.ErrorIs(t, err, ErrInvalidState, "destroy while running")

	close(page.gate)
	<-done

	err = p.Render(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindInvalidState, pe.Kind)

	assert.Equal(t, int32(1), page.renders.Load(), "engine rendered once")
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateFinished, p.State())
}

func TestProcessorRenderFailure(t *testing.T) {
	boom := errors.New("bad content")
	page := newStubPage(1)
	page.renderErr = boom

	p, err := NewPageProcessor(page, 4, 1.5)
	require.NoError(t, err)

	done := make(chan struct{})
	require.NoError(t, p.Render(context.Background(), func() { close(done) }))
	<-done

	assert.Equal(t, StateFinished, p.State())
	err = p.Err()
	assert.ErrorIs(t, err, ErrPageRender)
	assert.ErrorIs(t, err, boom)

	g := p.Geometry()
	assert.Equal(t, "bad content", g.Err)
	assert.InDelta(t, 38.25, g.Width, 1e-9)
	assert.Equal(t, 1, g.Stats.Operators, "stats kept on failure")
	assert.Empty(t, g.HLines)
	assert.Empty(t, g.Texts)
}

func TestProcessorRenderCanceled(t *testing.T) {
	page := newStubPage(1)
	page.gate = make(chan struct{})
	p, err := NewPageProcessor(page, 0, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	require.NoError(t, p.Render(ctx, func() { close(done) }))
	cancel()
	<-done

	assert.ErrorIs(t, p.Err(), context.Canceled)
	assert.Equal(t, StateFinished, p.State())
}

func TestPagePoint(t *testing.T) {
	p, err := NewPageProcessor(newStubPage(1), 0, 1.5)
	require.NoError(t, err)

	x, y := p.PagePoint(150, 300)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 592, y, 1e-9)

	x, y = p.PagePoint(0, 0)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 792, y, 1e-9)
}

func TestProcessorDestroy(t *testing.T) {
	page := newStubPage(1)
	p, err := NewPageProcessor(page, 0, 1)
	require.NoError(t, err)

	require.NoError(t, p.Destroy())
	require.NoError(t, p.Destroy())
	assert.Equal(t, int32(1), page.destroyed.Load())
}
