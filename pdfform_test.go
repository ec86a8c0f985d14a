package pdfform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfform/config"
	"github.com/tsawler/pdfform/core"
	"github.com/tsawler/pdfform/engine"
	"github.com/tsawler/pdfform/internal/pdftest"
	"github.com/tsawler/pdfform/pipeline"
)

const formContent = "1 0 0 RG 2 w 72 720 m 540 720 l S " +
	"0.5 g 72 600 144 36 re f " +
	"0 g BT /F1 12 Tf 72 700 Td (Name) Tj ET"

// formDocument builds a two-page document with an info title. The second
// page is landscape A4.
func formDocument() []byte {
	b := pdftest.New()
	catalog := b.Reserve()
	tree := b.Reserve()
	font := b.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	boxes := []string{pdftest.Letter, "[0 0 842 595]"}
	contents := []string{formContent, ""}
	kids := make([]string, len(boxes))
	for i := range boxes {
		content := b.AddStream("", []byte(contents[i]))
		page := b.Add(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox %s /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>",
			tree, boxes[i], content, font))
		kids[i] = fmt.Sprintf("%d 0 R", page)
	}
	b.Set(tree, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids)))
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", tree))

	info := b.Add("<< /Title (Form A) /Producer (pdftest) >>")
	b.Trailer(fmt.Sprintf("/Info %d 0 R", info))
	return b.Bytes(catalog)
}

func TestParse(t *testing.T) {
	result, err := Parse(context.Background(), formDocument())
	require.NoError(t, err)

	assert.Equal(t, "Form A", result.MetadataTitle)
	assert.Equal(t, "pdftest", result.DocumentInfo["Producer"])
	require.Len(t, result.Pages, 2)
	assert.InDelta(t, 38.25, result.PageWidth, 1e-9)

	first := result.Pages[0]
	assert.Empty(t, first.Err)
	assert.InDelta(t, 38.25, first.Width, 1e-9)
	assert.InDelta(t, 49.5, first.Height, 1e-9)

	require.Len(t, first.HLines, 1)
	line := first.HLines[0]
	assert.InDelta(t, 4.5, line.X, 1e-9)
	assert.InDelta(t, 4.5, line.Y, 1e-9)
	assert.InDelta(t, 29.25, line.L, 1e-9)
	assert.InDelta(t, 3, line.W, 1e-9)
	assert.Empty(t, first.VLines)

	require.Len(t, first.Fills, 1)
	fill := first.Fills[0]
	assert.InDelta(t, 4.5, fill.X, 1e-9)
	assert.InDelta(t, 9.75, fill.Y, 1e-9)
	assert.InDelta(t, 9, fill.W, 1e-9)
	assert.InDelta(t, 2.25, fill.H, 1e-9)

	require.Len(t, first.Texts, 1)
	text := first.Texts[0]
	assert.Equal(t, "Name", text.Text)
	assert.InDelta(t, 4.5, text.X, 1e-9)
	assert.InDelta(t, 5, text.Y, 1e-9)
	require.Len(t, text.Runs, 1)
	assert.InDelta(t, 12, text.Runs[0].Style.Size, 1e-9)

	second := result.Pages[1]
	assert.InDelta(t, 52.625, second.Width, 1e-9)
	assert.Empty(t, second.HLines)
	assert.Empty(t, second.Texts)
}

func TestParseLoadFailure(t *testing.T) {
	_, err := Parse(context.Background(), []byte("hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrDocumentLoad)
	assert.ErrorIs(t, err, core.ErrNotPDF)

	var pe *pipeline.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pipeline.KindDocumentLoad, pe.Kind)
}

func TestParseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parse(ctx, formDocument())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseEmptyDocument(t *testing.T) {
	result, err := Parse(context.Background(), pdftest.Document())
	require.NoError(t, err)
	assert.Empty(t, result.Pages)
	assert.Zero(t, result.PageWidth)
}

func TestParseOptions(t *testing.T) {
	data := formDocument()

	tests := []struct {
		name  string
		opts  []Option
		width float64
	}{
		{"default scale", nil, 38.25},
		{"with scale", []Option{WithScale(2)}, 51},
		{"ignores bad scale", []Option{WithScale(-1)}, 38.25},
		{"with config", []Option{WithConfig(scaleConfig(1))}, 25.5},
		{"later option wins", []Option{WithConfig(scaleConfig(1)), WithScale(2)}, 51},
		{"nil config", []Option{WithConfig(nil)}, 38.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse(context.Background(), data, tt.opts...)
			require.NoError(t, err)
			assert.InDelta(t, tt.width, result.PageWidth, 1e-9)
		})
	}
}

func scaleConfig(scale float64) *config.Config {
	cfg := config.Default()
	cfg.Render.Scale = scale
	cfg.Log.Level = "disabled"
	return cfg
}

func TestParseWithLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(zerolog.SyncWriter(&buf))

	_, err := Parse(context.Background(), formDocument(), WithLogger(log))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"pages ready"`)
	assert.Contains(t, buf.String(), `"request_id"`)
}

type refusingEngine struct{ calls int }

func (e *refusingEngine) LoadDocument(ctx context.Context, data []byte, password string, progress engine.ProgressFunc) (engine.Document, error) {
	e.calls++
	return nil, errors.New("refused")
}

func TestParseWithEngine(t *testing.T) {
	eng := &refusingEngine{}
	_, err := Parse(context.Background(), formDocument(), WithEngine(eng))
	assert.ErrorIs(t, err, pipeline.ErrDocumentLoad)
	assert.ErrorContains(t, err, "refused")
	assert.Equal(t, 1, eng.calls)
}

func TestMust(t *testing.T) {
	assert.Equal(t, 3, Must(3, nil))
	assert.Panics(t, func() {
		Must(0, errors.New("boom"))
	})
}
