package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/pdfform/canvas"
	"github.com/tsawler/pdfform/core"
	"github.com/tsawler/pdfform/internal/pdftest"
	"golang.org/x/text/language"
	"seehuhn.de/go/xmp"
)

func load(t *testing.T, data []byte) Document {
	t.Helper()
	doc, err := New().LoadDocument(context.Background(), data, "", nil)
	require.NoError(t, err)
	return doc
}

func render(t *testing.T, doc Document, number int, scale float64) (canvas.Output, Viewport) {
	t.Helper()
	ctx := context.Background()
	page, err := doc.Page(ctx, number)
	require.NoError(t, err)
	defer page.Destroy()

	vp := page.Viewport(scale, 0)
	rec := canvas.New(1, 1)
	_, err = page.Render(ctx, RenderParams{Surface: rec, Viewport: vp})
	require.NoError(t, err)
	return rec.Output(), vp
}

func TestLoadDocument(t *testing.T) {
	data := pdftest.Document(
		pdftest.Page{},
		pdftest.Page{MediaBox: "[0 0 842 595]"},
	)
	var calls [][2]int
	doc, err := New().LoadDocument(context.Background(), data, "", func(loaded, total int) {
		calls = append(calls, [2]int{loaded, total})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, doc.NumPages())
	assert.Equal(t, [][2]int{{0, len(data)}, {len(data), len(data)}}, calls)

	_, err = doc.Page(context.Background(), 0)
	assert.ErrorIs(t, err, ErrPageIndex)
	_, err = doc.Page(context.Background(), 3)
	assert.ErrorIs(t, err, ErrPageIndex)

	page, err := doc.Page(context.Background(), 2)
	require.NoError(t, err)
	vp := page.Viewport(1, 0)
	assert.Equal(t, 842.0, vp.Width)
	assert.Equal(t, 595.0, vp.Height)
}

func TestLoadDocumentErrors(t *testing.T) {
	_, err := New().LoadDocument(context.Background(), []byte("hello"), "", nil)
	assert.ErrorIs(t, err, core.ErrNotPDF)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New().LoadDocument(ctx, pdftest.Document(pdftest.Page{}), "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadEmptyDocument(t *testing.T) {
	doc := load(t, pdftest.Document())
	assert.Equal(t, 0, doc.NumPages())
}

func TestRenderLinesAndFills(t *testing.T) {
	content := `
1 0 0 RG 2 w
72 720 m 540 720 l S
0 0 1 RG
100 100 m 100 300 l S
0.5 g
72 600 144 36 re f
0 0 0 1 k
72 500 m 172 500 l 122 550 l h f
`
	doc := load(t, pdftest.Document(pdftest.Page{Content: content}))
	out, _ := render(t, doc, 1, 1.5)

	require.Len(t, out.Lines, 2)
	assert.Equal(t, canvas.Line{
		From:  canvas.Point{X: 108, Y: 108},
		To:    canvas.Point{X: 810, Y: 108},
		Width: 3,
		Color: canvas.Color{R: 255},
	}, out.Lines[0])
	assert.Equal(t, canvas.Color{B: 255}, out.Lines[1].Color)

	require.Len(t, out.Rects, 1)
	assert.Equal(t, canvas.Rect{X: 108, Y: 234, W: 216, H: 54, Color: canvas.Color{R: 128, G: 128, B: 128}}, out.Rects[0])

	require.Len(t, out.Polygons, 1)
	assert.Len(t, out.Polygons[0].Points, 3)
	assert.Equal(t, canvas.Color{}, out.Polygons[0].Color)
}

func TestRenderText(t *testing.T) {
	content := `BT
/F1 12 Tf
72 700 Td
(Hello) Tj
/F2 12 Tf
( World) Tj
0 -20 Td
[(A) -250 (B)] TJ
3 Tr
(hidden) Tj
ET`
	doc := load(t, pdftest.Document(pdftest.Page{Content: content}))
	page, err := doc.Page(context.Background(), 1)
	require.NoError(t, err)
	rec := canvas.New(1, 1)
	stats, err := page.Render(context.Background(), RenderParams{Surface: rec, Viewport: page.Viewport(1, 0)})
	require.NoError(t, err)
	out := rec.Output()

	require.Len(t, out.Texts, 3)
	hello := out.Texts[0]
	assert.Equal(t, "Hello", hello.Text)
	assert.InDelta(t, 72, hello.X, 1e-9)
	assert.InDelta(t, 92, hello.Y, 1e-9)
	assert.InDelta(t, 12, hello.Size, 1e-9)
	// H e l l o in Helvetica: 722+556+222+222+556
	assert.InDelta(t, 2278*12.0/1000, hello.Width, 1e-9)
	assert.False(t, hello.Font.Bold)

	world := out.Texts[1]
	assert.Equal(t, " World", world.Text)
	assert.True(t, world.Font.Bold)
	assert.InDelta(t, hello.X+hello.Width, world.X, 1e-9)

	assert.Equal(t, "A B", out.Texts[2].Text)
	assert.Equal(t, 3, stats.TextRuns)
	assert.Equal(t, 11, stats.Operators)
}

func TestRenderScaledText(t *testing.T) {
	content := "BT /F1 10 Tf 2 0 0 2 50 50 Tm (x) Tj ET"
	doc := load(t, pdftest.Document(pdftest.Page{Content: content}))
	out, _ := render(t, doc, 1, 1.5)

	require.Len(t, out.Texts, 1)
	assert.InDelta(t, 30, out.Texts[0].Size, 1e-9)
	assert.InDelta(t, 20, out.Texts[0].Font.Size, 1e-9)
}

func TestRenderGraphicsStateStack(t *testing.T) {
	content := `q 2 0 0 2 0 0 cm 1 w 10 10 m 110 10 l S Q
Q Q
10 20 m 110 20 l S`
	doc := load(t, pdftest.Document(pdftest.Page{Content: content}))
	out, _ := render(t, doc, 1, 1)

	require.Len(t, out.Lines, 2)
	assert.Equal(t, 2.0, out.Lines[0].Width)
	assert.Equal(t, canvas.Point{X: 20, Y: 772}, out.Lines[0].From)
	assert.Equal(t, 1.0, out.Lines[1].Width)
	assert.Equal(t, canvas.Point{X: 10, Y: 772}, out.Lines[1].From)
}

func TestRenderRotatedPage(t *testing.T) {
	content := "0 0 612 10 re f"
	doc := load(t, pdftest.Document(pdftest.Page{Content: content, Rotate: 90}))
	out, vp := render(t, doc, 1, 1)

	assert.Equal(t, 792.0, vp.Width)
	require.Len(t, out.Rects, 1)
	assert.Equal(t, canvas.Rect{X: 0, Y: 0, W: 10, H: 612}, out.Rects[0])
}

func TestRenderFormXObject(t *testing.T) {
	b := pdftest.New()
	catalog := b.Reserve()
	tree := b.Reserve()
	// the form draws itself again; the cycle is cut
	form := b.Reserve()
	b.SetStream(form, fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 100 100] /Matrix [1 0 0 1 100 0] /Resources << /XObject << /Self %d 0 R >> >>", form),
		[]byte("0 0 m 50 0 l S /Self Do"))
	image := b.AddStream("/Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8", []byte{0})
	content := b.AddStream("", []byte("/Fm1 Do /Im1 Do /Missing Do 0 0 m 10 0 l S"))
	page := b.Add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 200 200] /Contents %d 0 R /Resources << /XObject << /Fm1 %d 0 R /Im1 %d 0 R >> >> >>",
		tree, content, form, image))
	b.Set(tree, fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R] /Count 1 >>", page))
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", tree))

	doc := load(t, b.Bytes(catalog))
	pg, err := doc.Page(context.Background(), 1)
	require.NoError(t, err)
	rec := canvas.New(1, 1)
	stats, err := pg.Render(context.Background(), RenderParams{Surface: rec, Viewport: pg.Viewport(1, 0)})
	require.NoError(t, err)
	out := rec.Output()

	require.Len(t, out.Lines, 2)
	assert.Equal(t, canvas.Point{X: 100, Y: 200}, out.Lines[0].From)
	assert.Equal(t, canvas.Point{X: 0, Y: 200}, out.Lines[1].From)
	// self reference, image and missing name
	assert.Equal(t, 3, stats.Skipped)
}

func TestRenderCanceled(t *testing.T) {
	var content bytes.Buffer
	for i := 0; i < 1000; i++ {
		content.WriteString("0 0 m 1 1 l S\n")
	}
	doc := load(t, pdftest.Document(pdftest.Page{Content: content.String()}))
	page, err := doc.Page(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = page.Render(ctx, RenderParams{Surface: canvas.New(1, 1), Viewport: page.Viewport(1, 0)})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRenderDestroyed(t *testing.T) {
	doc := load(t, pdftest.Document(pdftest.Page{}))
	page, err := doc.Page(context.Background(), 1)
	require.NoError(t, err)
	page.Destroy()
	_, err = page.Render(context.Background(), RenderParams{Surface: canvas.New(1, 1), Viewport: page.Viewport(1, 0)})
	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestRenderTruncatedContent(t *testing.T) {
	doc := load(t, pdftest.Document(pdftest.Page{Content: "0 0 m 100 0 l S (unterminated"}))
	out, _ := render(t, doc, 1, 1)
	assert.Len(t, out.Lines, 1)
}

func TestMetadata(t *testing.T) {
	packet := xmp.NewPacket()
	dc := &xmp.DublinCore{}
	dc.Title.Set(language.Und, "XMP Title")
	require.NoError(t, packet.Set(dc))
	var buf bytes.Buffer
	require.NoError(t, packet.Write(&buf, nil))

	b := pdftest.New()
	catalog := b.Reserve()
	tree := b.Add("<< /Type /Pages /Kids [] /Count 0 >>")
	meta := b.AddStream("/Type /Metadata /Subtype /XML", buf.Bytes())
	info := b.Add("<< /Title <FEFF00C4006200630064> /Producer (pdftest) /Trapped /False >>")
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R /Metadata %d 0 R >>", tree, meta))
	b.Trailer(fmt.Sprintf("/Info %d 0 R", info))

	doc := load(t, b.Bytes(catalog))
	m, err := doc.Metadata(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Äbcd", m.Info["Title"])
	assert.Equal(t, "pdftest", m.Info["Producer"])
	assert.Equal(t, "False", m.Info["Trapped"])
	assert.True(t, m.XMP.Has("dc:title"))
	assert.Equal(t, "XMP Title", m.XMP.Get("dc:title"))
	assert.False(t, m.XMP.Has("dc:description"))
}

func TestMetadataBrokenXMP(t *testing.T) {
	b := pdftest.New()
	catalog := b.Reserve()
	tree := b.Add("<< /Type /Pages /Kids [] /Count 0 >>")
	meta := b.AddStream("/Type /Metadata /Subtype /XML", []byte("<not-xmp"))
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R /Metadata %d 0 R >>", tree, meta))

	doc := load(t, b.Bytes(catalog))
	m, err := doc.Metadata(context.Background())
	require.NoError(t, err)
	assert.Empty(t, m.XMP)
	assert.Empty(t, m.Info)
}
