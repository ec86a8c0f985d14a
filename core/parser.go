package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// maxNesting bounds array/dictionary nesting so hostile input cannot blow
// the stack.
const maxNesting = 256

// ReferenceResolver resolves indirect references. The parser needs it for
// streams whose /Length is itself an indirect object.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser parses PDF objects from an in-memory byte slice.
type Parser struct {
	lexer    *Lexer
	resolver ReferenceResolver

	// references are not recognised in content streams
	noRefs bool
	depth  int
}

// NewParser creates a parser over data, positioned at offset 0.
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data)}
}

// NewContentParser creates a parser for content-stream syntax, where
// "n g R" never denotes a reference.
func NewContentParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data), noRefs: true}
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// Lexer exposes the underlying lexer.
func (p *Parser) Lexer() *Lexer { return p.lexer }

// Seek moves the parser to an absolute byte offset.
func (p *Parser) Seek(pos int) { p.lexer.Seek(pos) }

// ParseObject parses the next object. It returns io.EOF at end of input.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenEOF {
		return nil, io.EOF
	}
	return p.ParseToken(tok)
}

// ParseToken parses an object that starts with an already consumed token.
// Keywords other than true, false and null produce an error of type
// *KeywordError so callers tokenizing content streams can treat them as
// operators.
func (p *Parser) ParseToken(tok Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, &KeywordError{Keyword: string(tok.Value), Pos: tok.Pos}

	case TokenInteger:
		val, err := strconv.ParseInt(string(tok.Value), 10, 64)
		if err != nil {
			// out of range integers are read as reals
			f, ferr := strconv.ParseFloat(string(tok.Value), 64)
			if ferr != nil {
				return nil, fmt.Errorf("invalid integer %q at position %d", tok.Value, tok.Pos)
			}
			return Real(f), nil
		}
		if !p.noRefs {
			if ref, ok := p.tryReference(val); ok {
				return ref, nil
			}
		}
		return Int(val), nil

	case TokenReal:
		val, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real %q at position %d", tok.Value, tok.Pos)
		}
		return Real(val), nil

	case TokenString, TokenHexString:
		return String(bytes.Clone(tok.Value)), nil

	case TokenName:
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()
	}

	return nil, fmt.Errorf("unexpected token %q at position %d", tok.Value, tok.Pos)
}

// KeywordError is returned by ParseToken for bare keywords.
type KeywordError struct {
	Keyword string
	Pos     int
}

func (e *KeywordError) Error() string {
	return fmt.Sprintf("unexpected keyword %q at position %d", e.Keyword, e.Pos)
}

// tryReference looks ahead for "<gen> R" after an integer and rewinds when
// the pattern does not match.
func (p *Parser) tryReference(num int64) (Object, bool) {
	save := p.lexer.Pos()
	gen, err := p.lexer.NextToken()
	if err != nil || gen.Type != TokenInteger {
		p.lexer.Seek(save)
		return nil, false
	}
	r, err := p.lexer.NextToken()
	if err != nil || r.Type != TokenKeyword || string(r.Value) != "R" {
		p.lexer.Seek(save)
		return nil, false
	}
	g, err := strconv.Atoi(string(gen.Value))
	if err != nil {
		p.lexer.Seek(save)
		return nil, false
	}
	return IndirectRef{Number: int(num), Generation: g}, true
}

func (p *Parser) parseArray() (Object, error) {
	if p.depth++; p.depth > maxNesting {
		return nil, fmt.Errorf("nesting too deep at position %d", p.lexer.Pos())
	}
	defer func() { p.depth-- }()

	arr := Array{}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated array")
		}
		obj, err := p.ParseToken(tok)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	if p.depth++; p.depth > maxNesting {
		return nil, fmt.Errorf("nesting too deep at position %d", p.lexer.Pos())
	}
	defer func() { p.depth-- }()

	dict := Dict{}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated dictionary")
		case TokenName:
		default:
			return nil, fmt.Errorf("dictionary key must be a name, got %q at position %d", tok.Value, tok.Pos)
		}
		key := string(tok.Value)

		valTok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if valTok.Type == TokenDictEnd {
			// a key without value; treat as null
			return dict, nil
		}
		val, err := p.ParseToken(valTok)
		if err != nil {
			return nil, fmt.Errorf("dictionary value for /%s: %w", key, err)
		}
		if _, isNull := val.(Null); !isNull {
			dict[key] = val
		}
	}
}

// ParseIndirectObject parses "n g obj ... endobj" at the current position.
// A dictionary followed by the stream keyword yields a *Stream.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	num, err := p.expectInt()
	if err != nil {
		return nil, fmt.Errorf("object number: %w", err)
	}
	gen, err := p.expectInt()
	if err != nil {
		return nil, fmt.Errorf("generation number: %w", err)
	}
	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "obj" {
		return nil, fmt.Errorf("expected 'obj' at position %d", tok.Pos)
	}

	ref := IndirectRef{Number: num, Generation: gen}
	tok, err = p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenKeyword && string(tok.Value) == "endobj" {
		return &IndirectObject{Ref: ref, Object: Null{}}, nil
	}
	obj, err := p.ParseToken(tok)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}

	save := p.lexer.Pos()
	next, err := p.lexer.NextToken()
	if err == nil && next.Type == TokenKeyword && string(next.Value) == "stream" {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("object %d: stream without dictionary", num)
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", num, err)
		}
		obj = stream
	} else {
		// endobj is optional in damaged files
		p.lexer.Seek(save)
	}

	return &IndirectObject{Ref: ref, Object: obj}, nil
}

func (p *Parser) expectInt() (int, error) {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return 0, err
	}
	if tok.Type != TokenInteger {
		return 0, fmt.Errorf("expected integer at position %d, got %q", tok.Pos, tok.Value)
	}
	return strconv.Atoi(string(tok.Value))
}

// parseStream reads stream data after the "stream" keyword. A missing or
// wrong /Length is recovered by searching for "endstream".
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	p.lexer.SkipEOL()
	start := p.lexer.Pos()
	data := p.lexer.Data()

	length := -1
	switch l := dict["Length"].(type) {
	case Int:
		length = int(l)
	case IndirectRef:
		if p.resolver != nil {
			if obj, err := p.resolver.ResolveReference(l); err == nil {
				if n, ok := obj.(Int); ok {
					length = int(n)
				}
			}
		}
	}

	if length >= 0 && start+length <= len(data) && hasEndstream(data, start+length) {
		p.lexer.Seek(start + length)
		p.skipEndstream()
		return &Stream{Dict: dict, Data: data[start : start+length]}, nil
	}

	idx := bytes.Index(data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("stream at position %d has no endstream", start)
	}
	end := start + idx
	// the EOL before endstream is not part of the data
	if end > start && data[end-1] == '\n' {
		end--
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	p.lexer.Seek(start + idx)
	p.skipEndstream()
	return &Stream{Dict: dict, Data: data[start:end]}, nil
}

func hasEndstream(data []byte, pos int) bool {
	for pos < len(data) && isWhitespace(data[pos]) {
		pos++
	}
	return bytes.HasPrefix(data[pos:], []byte("endstream"))
}

func (p *Parser) skipEndstream() {
	save := p.lexer.Pos()
	tok, err := p.lexer.NextToken()
	if err != nil || tok.Type != TokenKeyword || string(tok.Value) != "endstream" {
		p.lexer.Seek(save)
		return
	}
	save = p.lexer.Pos()
	tok, err = p.lexer.NextToken()
	if err != nil || tok.Type != TokenKeyword || string(tok.Value) != "endobj" {
		p.lexer.Seek(save)
	}
}
