// Package pdftest assembles small PDF files in memory for tests. Object
// offsets and the cross-reference table are computed, so fixtures can be
// written as plain object bodies.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"
)

// Builder collects numbered objects and serializes them as a PDF.
type Builder struct {
	version string
	objects map[int][]byte
	next    int
	trailer []string
}

// New returns an empty builder producing a PDF 1.7 header.
func New() *Builder {
	return &Builder{version: "1.7", objects: make(map[int][]byte), next: 1}
}

// Version overrides the header version.
func (b *Builder) Version(v string) *Builder {
	b.version = v
	return b
}

// Reserve allocates an object number whose body is supplied later with Set.
func (b *Builder) Reserve() int {
	n := b.next
	b.next++
	return n
}

// Add appends an object body such as "<< /Type /Catalog >>" and returns its
// object number.
func (b *Builder) Add(body string) int {
	n := b.Reserve()
	b.Set(n, body)
	return n
}

// Set assigns the body of a reserved object.
func (b *Builder) Set(num int, body string) {
	b.objects[num] = []byte(body)
}

// AddStream appends a stream object. dict holds extra dictionary entries
// without the enclosing brackets; /Length is filled in.
func (b *Builder) AddStream(dict string, data []byte) int {
	n := b.Reserve()
	b.SetStream(n, dict, data)
	return n
}

// SetStream assigns a stream body to a reserved object.
func (b *Builder) SetStream(num int, dict string, data []byte) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	b.objects[num] = buf.Bytes()
}

// AddFlateStream compresses data and appends it with /Filter /FlateDecode.
func (b *Builder) AddFlateStream(dict string, data []byte) int {
	return b.AddStream(strings.TrimSpace(dict+" /Filter /FlateDecode"), Deflate(data))
}

// Trailer adds a raw trailer entry such as "/Info 5 0 R".
func (b *Builder) Trailer(entry string) *Builder {
	b.trailer = append(b.trailer, entry)
	return b
}

// Bytes serializes the document with root as the catalog.
func (b *Builder) Bytes(root int) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.version)

	size := b.next
	offsets := make([]int, size)
	for num := 1; num < size; num++ {
		body, ok := b.objects[num]
		if !ok {
			continue
		}
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", num)
		buf.Write(body)
		buf.WriteString("\nendobj\n")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num < size; num++ {
		if _, ok := b.objects[num]; !ok {
			buf.WriteString("0000000000 00000 f \n")
			continue
		}
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R", size, root)
	for _, e := range b.trailer {
		buf.WriteString(" " + e)
	}
	fmt.Fprintf(&buf, " >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// Deflate zlib-compresses data.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Page describes one page for Document.
type Page struct {
	// MediaBox defaults to US Letter.
	MediaBox string
	Content  string
	Rotate   int
}

// Letter is the US Letter media box.
const Letter = "[0 0 612 792]"

// Document builds a complete document whose pages share one Helvetica
// font resource named /F1 and a bold variant /F2.
func Document(pages ...Page) []byte {
	b := New()
	catalog := b.Reserve()
	tree := b.Reserve()
	font := b.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	bold := b.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>")

	kids := make([]string, 0, len(pages))
	for _, p := range pages {
		box := p.MediaBox
		if box == "" {
			box = Letter
		}
		content := b.AddStream("", []byte(p.Content))
		page := b.Add(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox %s /Rotate %d /Contents %d 0 R /Resources << /Font << /F1 %d 0 R /F2 %d 0 R >> >> >>",
			tree, box, p.Rotate, content, font, bold))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	b.Set(tree, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", tree))
	return b.Bytes(catalog)
}
