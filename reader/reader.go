package reader

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/tsawler/pdfform/core"
	"github.com/tsawler/pdfform/pages"
)

// maxResolveDepth bounds ResolveDeep recursion.
const maxResolveDepth = 100

// Version is the version declared in the file header.
type Version struct {
	Major int
	Minor int
}

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

var headerPattern = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// Reader resolves objects of a PDF held in memory.
type Reader struct {
	data     []byte
	version  Version
	xref     *core.XRefTable
	trailer  core.Dict
	repaired bool

	mu      sync.Mutex
	cache   map[int]core.Object
	objStms map[int]*core.ObjectStream
	loading map[int]bool
	rebuilt *core.XRefTable

	treeOnce sync.Once
	tree     *pages.PageTree
	treeErr  error
}

var _ pages.ObjectResolver = (*Reader)(nil)

// New parses the header and cross-reference data of a PDF. The slice is
// retained and must not be modified afterwards.
func New(data []byte) (*Reader, error) {
	version, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		data:    data,
		version: version,
		cache:   make(map[int]core.Object),
		objStms: make(map[int]*core.ObjectStream),
		loading: make(map[int]bool),
	}

	xref, err := core.LoadXRef(data)
	if err == nil {
		r.useXRef(xref)
		if _, cerr := r.Catalog(); cerr != nil {
			err = cerr
		}
	}
	if err != nil {
		rebuilt, rerr := core.RebuildXRef(data)
		if rerr != nil {
			return nil, fmt.Errorf("load xref: %w (rebuild: %v)", err, rerr)
		}
		r.useXRef(rebuilt)
		r.repaired = true
		if _, cerr := r.Catalog(); cerr != nil {
			return nil, cerr
		}
	}

	if r.trailer.Has("Encrypt") {
		return nil, core.ErrEncrypted
	}
	return r, nil
}

func (r *Reader) useXRef(xref *core.XRefTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.xref = xref
	r.trailer = xref.Trailer
	r.cache = make(map[int]core.Object)
	r.objStms = make(map[int]*core.ObjectStream)
}

// parseHeader finds %PDF-x.y within the first kilobyte; some producers
// prepend junk before the header.
func parseHeader(data []byte) (Version, error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	m := headerPattern.FindSubmatch(head)
	if m == nil {
		return Version{}, core.ErrNotPDF
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return Version{Major: major, Minor: minor}, nil
}

// Version returns the header version.
func (r *Reader) Version() Version { return r.version }

// Trailer returns the trailer dictionary.
func (r *Reader) Trailer() core.Dict { return r.trailer }

// Repaired reports whether the cross-reference data had to be rebuilt.
func (r *Reader) Repaired() bool { return r.repaired }

// Size returns the length of the document in bytes.
func (r *Reader) Size() int { return len(r.data) }

// GetObject returns object num. Free and missing objects yield
// core.ErrNotFound.
func (r *Reader) GetObject(num int) (core.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getObject(num)
}

// getObject must be called with r.mu held.
func (r *Reader) getObject(num int) (core.Object, error) {
	if obj, ok := r.cache[num]; ok {
		return obj, nil
	}
	entry, ok := r.xref.Get(num)
	if !ok || entry.Type == core.XRefFree {
		return nil, fmt.Errorf("object %d: %w", num, core.ErrNotFound)
	}
	if r.loading[num] {
		return nil, fmt.Errorf("object %d refers to itself", num)
	}
	r.loading[num] = true
	defer delete(r.loading, num)

	var obj core.Object
	var err error
	switch entry.Type {
	case core.XRefCompressed:
		obj, err = r.compressedObject(num, entry)
	default:
		obj, err = r.objectAt(num, entry.Offset)
		if err != nil {
			// offsets can go stale after incremental saves
			if alt, ok := r.scannedEntry(num); ok && alt.Offset != entry.Offset {
				obj, err = r.objectAt(num, alt.Offset)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	r.cache[num] = obj
	return obj, nil
}

func (r *Reader) objectAt(num int, offset int64) (core.Object, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("object %d: offset %d out of range", num, offset)
	}
	p := core.NewParser(r.data)
	p.SetReferenceResolver(lockedResolver{r})
	p.Seek(int(offset))
	iobj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	if iobj.Ref.Number != num {
		return nil, fmt.Errorf("object %d: found object %d at offset %d", num, iobj.Ref.Number, offset)
	}
	return iobj.Object, nil
}

func (r *Reader) compressedObject(num int, entry core.XRefEntry) (core.Object, error) {
	stm, ok := r.objStms[entry.StreamNum]
	if !ok {
		container, err := r.getObject(entry.StreamNum)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.StreamNum, err)
		}
		stream, ok := container.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("object stream %d is %s", entry.StreamNum, container.Type())
		}
		stm, err = core.NewObjectStream(stream)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.StreamNum, err)
		}
		r.objStms[entry.StreamNum] = stm
	}
	obj, got, err := stm.GetObjectByIndex(entry.Index)
	if err != nil {
		return nil, err
	}
	if got != num {
		return nil, fmt.Errorf("object %d: object stream %d slot %d holds object %d", num, entry.StreamNum, entry.Index, got)
	}
	return obj, nil
}

// scannedEntry looks num up in a table rebuilt by scanning the file. The
// scan runs at most once. Must be called with r.mu held.
func (r *Reader) scannedEntry(num int) (core.XRefEntry, bool) {
	if r.rebuilt == nil {
		rebuilt, err := core.RebuildXRef(r.data)
		if err != nil {
			r.rebuilt = core.NewXRefTable()
		} else {
			r.rebuilt = rebuilt
		}
	}
	entry, ok := r.rebuilt.Get(num)
	return entry, ok && entry.Type == core.XRefInUse
}

// lockedResolver resolves stream lengths while r.mu is already held.
type lockedResolver struct{ r *Reader }

func (l lockedResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return l.r.getObject(ref.Number)
}

// ResolveReference resolves ref. A reference to a missing object resolves
// to null.
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, err := r.GetObject(ref.Number)
	if errors.Is(err, core.ErrNotFound) {
		return core.Null{}, nil
	}
	return obj, err
}

// Resolve follows obj if it is an indirect reference and returns it
// unchanged otherwise. Chains of references are followed.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	for i := 0; i < maxResolveDepth; i++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		var err error
		obj, err = r.ResolveReference(ref)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reference chain longer than %d", maxResolveDepth)
}

// ResolveDeep resolves every reference reachable from obj. References that
// would revisit an object already on the current path are left in place.
func (r *Reader) ResolveDeep(obj core.Object) (core.Object, error) {
	return r.resolveDeep(obj, make(map[int]bool), 0)
}

func (r *Reader) resolveDeep(obj core.Object, path map[int]bool, depth int) (core.Object, error) {
	if depth > maxResolveDepth {
		return nil, fmt.Errorf("object nesting deeper than %d", maxResolveDepth)
	}
	if ref, ok := obj.(core.IndirectRef); ok {
		if path[ref.Number] {
			return ref, nil
		}
		path[ref.Number] = true
		defer delete(path, ref.Number)
		resolved, err := r.ResolveReference(ref)
		if err != nil {
			return nil, err
		}
		obj = resolved
	}
	switch v := obj.(type) {
	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			resolved, err := r.resolveDeep(elem, path, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case core.Dict:
		out := make(core.Dict, len(v))
		for key, val := range v {
			resolved, err := r.resolveDeep(val, path, depth+1)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	}
	return obj, nil
}

// Catalog returns the document catalog.
func (r *Reader) Catalog() (*pages.Catalog, error) {
	root := r.trailer.Get("Root")
	if root == nil {
		return nil, fmt.Errorf("trailer missing /Root entry")
	}
	obj, err := r.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog: %w", err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is %s, not a dictionary", obj.Type())
	}
	return pages.NewCatalog(dict, r), nil
}

// Info returns the document information dictionary, or nil when the
// trailer has none.
func (r *Reader) Info() (core.Dict, error) {
	ref := r.trailer.Get("Info")
	if ref == nil {
		return nil, nil
	}
	obj, err := r.Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve info: %w", err)
	}
	dict, _ := obj.(core.Dict)
	return dict, nil
}

// Metadata returns the decoded XMP packet referenced by the catalog, or
// nil when there is none.
func (r *Reader) Metadata() ([]byte, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	stream, err := catalog.Metadata()
	if err != nil || stream == nil {
		return nil, err
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return bytes.TrimSpace(data), nil
}

// PageTree returns the document's page tree.
func (r *Reader) PageTree() (*pages.PageTree, error) {
	r.treeOnce.Do(func() {
		catalog, err := r.Catalog()
		if err != nil {
			r.treeErr = err
			return
		}
		root, err := catalog.Pages()
		if err != nil {
			r.treeErr = err
			return
		}
		r.tree = pages.NewPageTree(root, r)
	})
	return r.tree, r.treeErr
}

// NumPages returns the number of pages.
func (r *Reader) NumPages() (int, error) {
	tree, err := r.PageTree()
	if err != nil {
		return 0, err
	}
	return tree.Count()
}

// Page returns the page at index (0-based).
func (r *Reader) Page(index int) (*pages.Page, error) {
	tree, err := r.PageTree()
	if err != nil {
		return nil, err
	}
	return tree.Page(index)
}
