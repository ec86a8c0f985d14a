package core

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

// XRefEntryType distinguishes the three kinds of cross-reference entries.
type XRefEntryType int

const (
	XRefFree XRefEntryType = iota
	XRefInUse
	XRefCompressed
)

// XRefEntry locates one object. For in-use entries Offset is the byte
// offset of "n g obj". For compressed entries StreamNum and Index name the
// object stream and the slot inside it.
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64
	Generation int
	StreamNum  int
	Index      int
}

// XRefTable maps object numbers to their locations.
type XRefTable struct {
	Entries map[int]XRefEntry
	Trailer Dict
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]XRefEntry),
		Trailer: Dict{},
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// merge adds entries from an older section. Entries already present win,
// since sections are visited newest first.
func (x *XRefTable) merge(older *XRefTable) {
	for num, entry := range older.Entries {
		if _, ok := x.Entries[num]; !ok {
			x.Entries[num] = entry
		}
	}
	for key, val := range older.Trailer {
		if !x.Trailer.Has(key) {
			x.Trailer[key] = val
		}
	}
}

// FindStartXRef returns the offset recorded after the last "startxref".
func FindStartXRef(data []byte) (int64, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	lex := NewLexer(tail[idx+len("startxref"):])
	tok, err := lex.NextToken()
	if err != nil || tok.Type != TokenInteger {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	offset, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid startxref offset: %w", err)
	}
	return offset, nil
}

// LoadXRef reads the cross-reference data of a document, following /Prev
// and /XRefStm links. The returned trailer is the newest one.
func LoadXRef(data []byte) (*XRefTable, error) {
	offset, err := FindStartXRef(data)
	if err != nil {
		return nil, err
	}

	result := NewXRefTable()
	visited := make(map[int64]bool)
	first := true
	for offset >= 0 {
		if visited[offset] {
			break
		}
		visited[offset] = true
		if offset >= int64(len(data)) {
			return nil, fmt.Errorf("xref offset %d beyond end of file", offset)
		}

		section, err := parseXRefSection(data, offset)
		if err != nil {
			return nil, fmt.Errorf("xref section at %d: %w", offset, err)
		}

		// hybrid files keep compressed objects in an extra xref stream
		if stmOff, ok := section.Trailer.GetInt("XRefStm"); ok && !visited[int64(stmOff)] {
			visited[int64(stmOff)] = true
			if extra, err := parseXRefSection(data, int64(stmOff)); err == nil {
				for num, entry := range extra.Entries {
					if cur, ok := section.Entries[num]; !ok || cur.Type == XRefFree {
						section.Entries[num] = entry
					}
				}
			}
		}

		if first {
			result.Trailer = section.Trailer
			first = false
		}
		result.merge(section)

		prev, ok := section.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	delete(result.Trailer, "Prev")
	delete(result.Trailer, "XRefStm")
	return result, nil
}

func parseXRefSection(data []byte, offset int64) (*XRefTable, error) {
	lex := NewLexer(data)
	lex.Seek(int(offset))
	save := lex.Pos()
	tok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenKeyword && string(tok.Value) == "xref" {
		return parseXRefTable(lex)
	}
	lex.Seek(save)
	return parseXRefStream(data, int(offset))
}

// parseXRefTable reads a classic table. Entries are read as tokens rather
// than fixed 20-byte records so that sloppy line endings still parse.
func parseXRefTable(lex *Lexer) (*XRefTable, error) {
	table := NewXRefTable()
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			break
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("expected subsection header at position %d", tok.Pos)
		}
		start, _ := strconv.Atoi(string(tok.Value))
		countTok, err := lex.NextToken()
		if err != nil || countTok.Type != TokenInteger {
			return nil, fmt.Errorf("invalid subsection count at position %d", tok.Pos)
		}
		count, _ := strconv.Atoi(string(countTok.Value))

		for i := 0; i < count; i++ {
			offTok, err1 := lex.NextToken()
			genTok, err2 := lex.NextToken()
			kindTok, err3 := lex.NextToken()
			if err1 != nil || err2 != nil || err3 != nil || kindTok.Type != TokenKeyword {
				return nil, fmt.Errorf("invalid xref entry %d", start+i)
			}
			off, _ := strconv.ParseInt(string(offTok.Value), 10, 64)
			gen, _ := strconv.Atoi(string(genTok.Value))
			entry := XRefEntry{Type: XRefFree, Offset: off, Generation: gen}
			if string(kindTok.Value) == "n" {
				entry.Type = XRefInUse
			}
			if _, exists := table.Entries[start+i]; !exists {
				table.Entries[start+i] = entry
			}
		}
	}

	p := &Parser{lexer: lex}
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is %s, not a dictionary", obj.Type())
	}
	table.Trailer = trailer
	return table, nil
}

// parseXRefStream reads a PDF 1.5 cross-reference stream.
func parseXRefStream(data []byte, offset int) (*XRefTable, error) {
	p := NewParser(data)
	p.Seek(offset)
	iobj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	stream, ok := iobj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream object is %s", iobj.Object.Type())
	}
	if name, _ := stream.Dict.GetName("Type"); name != "XRef" {
		return nil, fmt.Errorf("expected /Type /XRef, got /%s", name)
	}

	wArr, ok := stream.Dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream has invalid /W")
	}
	var w [3]int
	for i := range w {
		n, ok := wArr[i].(Int)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("xref stream has invalid /W")
		}
		w[i] = int(n)
	}

	size, _ := stream.Dict.GetInt("Size")
	index := []int{0, int(size)}
	if idxArr, ok := stream.Dict.GetArray("Index"); ok {
		index = index[:0]
		for _, v := range idxArr {
			n, ok := v.(Int)
			if !ok {
				return nil, fmt.Errorf("xref stream has invalid /Index")
			}
			index = append(index, int(n))
		}
	}
	if len(index)%2 != 0 {
		return nil, fmt.Errorf("xref stream has odd /Index length")
	}

	decoded, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode xref stream: %w", err)
	}

	table := NewXRefTable()
	rowLen := w[0] + w[1] + w[2]
	pos := 0
	for i := 0; i < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowLen > len(decoded) {
				break
			}
			row := decoded[pos : pos+rowLen]
			pos += rowLen

			kind := 1
			if w[0] > 0 {
				kind = int(readField(row[:w[0]]))
			}
			f2 := readField(row[w[0] : w[0]+w[1]])
			f3 := readField(row[w[0]+w[1]:])

			var entry XRefEntry
			switch kind {
			case 0:
				entry = XRefEntry{Type: XRefFree, Generation: int(f3)}
			case 1:
				entry = XRefEntry{Type: XRefInUse, Offset: f2, Generation: int(f3)}
			case 2:
				entry = XRefEntry{Type: XRefCompressed, StreamNum: int(f2), Index: int(f3)}
			default:
				// unknown types are treated as null references
				continue
			}
			if _, exists := table.Entries[start+j]; !exists {
				table.Entries[start+j] = entry
			}
		}
	}

	trailer := Dict{}
	for _, key := range []string{"Root", "Info", "ID", "Encrypt", "Size", "Prev"} {
		if v, ok := stream.Dict[key]; ok {
			trailer[key] = v
		}
	}
	table.Trailer = trailer
	return table, nil
}

func readField(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

var objHeader = regexp.MustCompile(`(?m)(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// RebuildXRef reconstructs cross-reference data by scanning the whole file
// for object headers. Later definitions of the same object win, matching
// incremental update semantics.
func RebuildXRef(data []byte) (*XRefTable, error) {
	table := NewXRefTable()
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		// the number must start a token
		if m[0] > 0 && !isWhitespace(data[m[0]-1]) && !isDelimiter(data[m[0]-1]) {
			continue
		}
		num, err1 := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		table.Entries[num] = XRefEntry{Type: XRefInUse, Offset: int64(m[0]), Generation: gen}
	}
	if len(table.Entries) == 0 {
		return nil, fmt.Errorf("no objects found")
	}

	// objects inside object streams are invisible to the scan above
	p := NewParser(data)
	for num, entry := range table.Entries {
		p.Seek(int(entry.Offset))
		iobj, err := p.ParseIndirectObject()
		if err != nil {
			continue
		}
		stream, ok := iobj.Object.(*Stream)
		if !ok {
			continue
		}
		if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
			continue
		}
		objStm, err := NewObjectStream(stream)
		if err != nil {
			continue
		}
		nums, err := objStm.ObjectNumbers()
		if err != nil {
			continue
		}
		for i, n := range nums {
			if _, exists := table.Entries[n]; !exists {
				table.Entries[n] = XRefEntry{Type: XRefCompressed, StreamNum: num, Index: i}
			}
		}
	}

	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		p.Seek(idx + len("trailer"))
		if obj, err := p.ParseObject(); err == nil {
			if dict, ok := obj.(Dict); ok {
				table.Trailer = dict
			}
		}
	}
	if !table.Trailer.Has("Root") {
		if root, ok := findCatalog(data, table); ok {
			table.Trailer["Root"] = root
		}
	}
	if !table.Trailer.Has("Root") {
		return nil, fmt.Errorf("no document catalog found")
	}
	return table, nil
}

func findCatalog(data []byte, table *XRefTable) (IndirectRef, bool) {
	p := NewParser(data)
	for num, entry := range table.Entries {
		if entry.Type != XRefInUse {
			continue
		}
		p.Seek(int(entry.Offset))
		iobj, err := p.ParseIndirectObject()
		if err != nil {
			continue
		}
		if dict, ok := iobj.Object.(Dict); ok {
			if t, _ := dict.GetName("Type"); t == "Catalog" {
				return IndirectRef{Number: num, Generation: entry.Generation}, true
			}
		}
	}
	return IndirectRef{}, false
}
