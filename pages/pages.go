package pages

import (
	"fmt"
	"sync"

	"github.com/tsawler/pdfform/core"
)

// ObjectResolver resolves indirect references.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// maxTreeDepth bounds page tree recursion.
const maxTreeDepth = 64

// inheritable lists the page attributes a leaf may take from an ancestor.
var inheritable = []string{"MediaBox", "CropBox", "Resources", "Rotate"}

// Catalog is the document catalog.
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog wraps a catalog dictionary.
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{dict: dict, resolver: resolver}
}

// Dict returns the underlying dictionary.
func (c *Catalog) Dict() core.Dict { return c.dict }

// Pages returns the root of the page tree.
func (c *Catalog) Pages() (core.Dict, error) {
	obj := c.dict.Get("Pages")
	if obj == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}
	resolved, err := c.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolve /Pages: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("/Pages is %s, not a dictionary", resolved.Type())
	}
	return dict, nil
}

// Metadata returns the XMP metadata stream, or nil when the catalog has
// none.
func (c *Catalog) Metadata() (*core.Stream, error) {
	obj := c.dict.Get("Metadata")
	if obj == nil {
		return nil, nil
	}
	resolved, err := c.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolve /Metadata: %w", err)
	}
	stream, ok := resolved.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("/Metadata is %s, not a stream", resolved.Type())
	}
	return stream, nil
}

// PageTree is the flattened page tree.
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver

	once  sync.Once
	pages []*Page
	err   error
}

// NewPageTree creates a page tree rooted at the /Pages dictionary. The tree
// is walked lazily and is safe for concurrent use.
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{root: root, resolver: resolver}
}

// Count returns the number of leaf pages.
func (t *PageTree) Count() (int, error) {
	if err := t.load(); err != nil {
		return 0, err
	}
	return len(t.pages), nil
}

// Page returns the page at index (0-based).
func (t *PageTree) Page(index int) (*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(t.pages) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", index, len(t.pages))
	}
	return t.pages[index], nil
}

// Pages returns all pages in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	return t.pages, nil
}

func (t *PageTree) load() error {
	t.once.Do(func() {
		w := walker{tree: t, seen: make(map[core.IndirectRef]bool)}
		t.err = w.visit(t.root, core.Dict{}, 0)
	})
	return t.err
}

type walker struct {
	tree *PageTree
	seen map[core.IndirectRef]bool
}

func (w *walker) visit(node core.Dict, inherited core.Dict, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
	}

	kind, _ := node.GetName("Type")
	if kind == "" {
		if node.Has("Kids") {
			kind = "Pages"
		} else {
			kind = "Page"
		}
	}

	if kind != "Pages" {
		w.tree.pages = append(w.tree.pages, &Page{
			Number:    len(w.tree.pages) + 1,
			dict:      node,
			inherited: inherited,
			resolver:  w.tree.resolver,
		})
		return nil
	}

	next := make(core.Dict, len(inheritable))
	for k, v := range inherited {
		next[k] = v
	}
	for _, key := range inheritable {
		if v := node.Get(key); v != nil {
			next[key] = v
		}
	}

	kidsObj, err := w.tree.resolver.Resolve(node.Get("Kids"))
	if err != nil {
		return fmt.Errorf("resolve /Kids: %w", err)
	}
	kids, _ := kidsObj.(core.Array)
	for i, kid := range kids {
		if ref, ok := kid.(core.IndirectRef); ok {
			if w.seen[ref] {
				continue
			}
			w.seen[ref] = true
		}
		resolved, err := w.tree.resolver.Resolve(kid)
		if err != nil {
			return fmt.Errorf("resolve kid %d: %w", i, err)
		}
		dict, ok := resolved.(core.Dict)
		if !ok {
			continue
		}
		if err := w.visit(dict, next, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Rect is a rectangle in default user space, normalized so that LLX <= URX
// and LLY <= URY.
type Rect struct {
	LLX, LLY, URX, URY float64
}

// Letter is the US Letter page size used when a page has no usable
// MediaBox.
var Letter = Rect{0, 0, 612, 792}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.URX - r.LLX }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.URY - r.LLY }

func (r Rect) intersect(o Rect) Rect {
	out := Rect{max(r.LLX, o.LLX), max(r.LLY, o.LLY), min(r.URX, o.URX), min(r.URY, o.URY)}
	if out.URX <= out.LLX || out.URY <= out.LLY {
		return r
	}
	return out
}

// Page is a single leaf of the page tree.
type Page struct {
	// Number is the 1-based position in document order.
	Number int

	dict      core.Dict
	inherited core.Dict
	resolver  ObjectResolver
}

// NewPage creates a page from its dictionary and the attributes inherited
// from its ancestors.
func NewPage(number int, dict, inherited core.Dict, resolver ObjectResolver) *Page {
	return &Page{Number: number, dict: dict, inherited: inherited, resolver: resolver}
}

// Dict returns the page dictionary.
func (p *Page) Dict() core.Dict { return p.dict }

func (p *Page) attr(key string) core.Object {
	if v := p.dict.Get(key); v != nil {
		return v
	}
	return p.inherited.Get(key)
}

func (p *Page) box(key string) (Rect, bool) {
	obj, err := p.resolver.Resolve(p.attr(key))
	if err != nil {
		return Rect{}, false
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) != 4 {
		return Rect{}, false
	}
	vals := make([]float64, 4)
	for i, v := range arr {
		resolved, err := p.resolver.Resolve(v)
		if err != nil {
			return Rect{}, false
		}
		f, ok := core.Float(resolved)
		if !ok {
			return Rect{}, false
		}
		vals[i] = f
	}
	r := Rect{min(vals[0], vals[2]), min(vals[1], vals[3]), max(vals[0], vals[2]), max(vals[1], vals[3])}
	if r.Width() == 0 || r.Height() == 0 {
		return Rect{}, false
	}
	return r, true
}

// MediaBox returns the page boundaries, defaulting to US Letter.
func (p *Page) MediaBox() Rect {
	if r, ok := p.box("MediaBox"); ok {
		return r
	}
	return Letter
}

// CropBox returns the visible region clipped to the MediaBox. It defaults
// to the MediaBox.
func (p *Page) CropBox() Rect {
	media := p.MediaBox()
	if r, ok := p.box("CropBox"); ok {
		return media.intersect(r)
	}
	return media
}

// Rotate returns the clockwise display rotation normalized to 0, 90, 180
// or 270. Values that are not multiples of 90 read as 0.
func (p *Page) Rotate() int {
	obj, err := p.resolver.Resolve(p.attr("Rotate"))
	if err != nil {
		return 0
	}
	f, ok := core.Float(obj)
	if !ok {
		return 0
	}
	r := int(f)
	if r%90 != 0 {
		return 0
	}
	return ((r % 360) + 360) % 360
}

// Resources returns the resource dictionary, or an empty one.
func (p *Page) Resources() core.Dict {
	obj, err := p.resolver.Resolve(p.attr("Resources"))
	if err != nil {
		return core.Dict{}
	}
	if dict, ok := obj.(core.Dict); ok {
		return dict
	}
	return core.Dict{}
}

// Contents returns the page content streams in order. Entries that do not
// resolve to streams are skipped.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj := p.dict.Get("Contents")
	if obj == nil {
		return nil, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolve /Contents: %w", err)
	}
	switch v := resolved.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		streams := make([]*core.Stream, 0, len(v))
		for i, elem := range v {
			s, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("resolve /Contents[%d]: %w", i, err)
			}
			if stream, ok := s.(*core.Stream); ok {
				streams = append(streams, stream)
			}
		}
		return streams, nil
	}
	return nil, fmt.Errorf("/Contents is %s", resolved.Type())
}

// ContentData decodes and concatenates the content streams. Streams are
// joined with a newline since operators may not span stream boundaries.
func (p *Page) ContentData() ([]byte, error) {
	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}
	var data []byte
	for i, s := range streams {
		decoded, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode content stream %d: %w", i, err)
		}
		data = append(data, decoded...)
		data = append(data, '\n')
	}
	return data, nil
}
