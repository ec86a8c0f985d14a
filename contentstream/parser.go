package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/pdfform/core"
)

// maxOperands caps the operand stack; surplus operands are dropped.
const maxOperands = 128

// Operation is an operator with the operands that preceded it.
type Operation struct {
	Operator string
	Operands []core.Object
}

// Float returns operand i as a number.
func (o Operation) Float(i int) (float64, bool) {
	if i < 0 || i >= len(o.Operands) {
		return 0, false
	}
	return core.Float(o.Operands[i])
}

// Floats returns all operands as numbers; ok is false if any is not
// numeric or there are fewer than n.
func (o Operation) Floats(n int) ([]float64, bool) {
	if len(o.Operands) < n {
		return nil, false
	}
	out := make([]float64, len(o.Operands))
	for i, obj := range o.Operands {
		f, ok := core.Float(obj)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out[len(out)-n:], true
}

// Parser reads operations from content stream bytes.
type Parser struct {
	p    *core.Parser
	data []byte
}

// NewParser creates a parser for data.
func NewParser(data []byte) *Parser {
	return &Parser{p: core.NewContentParser(data), data: data}
}

// Parse reads every operation. On a syntax error the operations read so
// far are returned with the error.
func (p *Parser) Parse() ([]Operation, error) {
	var ops []Operation
	for {
		op, err := p.Next()
		if err == io.EOF {
			return ops, nil
		}
		if err != nil {
			return ops, err
		}
		ops = append(ops, op)
	}
}

// Next returns the next operation or io.EOF. Operands left on the stack
// at the end of the stream are discarded.
func (p *Parser) Next() (Operation, error) {
	var operands []core.Object
	lex := p.p.Lexer()
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return Operation{}, err
		}
		if tok.Type == core.TokenEOF {
			return Operation{}, io.EOF
		}
		obj, err := p.p.ParseToken(tok)
		var kw *core.KeywordError
		if errors.As(err, &kw) {
			if kw.Keyword == "BI" {
				return p.inlineImage()
			}
			return Operation{Operator: kw.Keyword, Operands: operands}, nil
		}
		if err != nil {
			return Operation{}, err
		}
		if len(operands) < maxOperands {
			operands = append(operands, obj)
		}
	}
}

// inlineImage reads the image dictionary after BI and skips the data up to
// the EI that ends it.
func (p *Parser) inlineImage() (Operation, error) {
	lex := p.p.Lexer()
	dict := core.Dict{}
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return Operation{}, err
		}
		if tok.Type == core.TokenEOF {
			return Operation{}, fmt.Errorf("inline image without ID")
		}
		if tok.Type == core.TokenKeyword && string(tok.Value) == "ID" {
			break
		}
		if tok.Type != core.TokenName {
			return Operation{}, fmt.Errorf("inline image key expected at position %d", tok.Pos)
		}
		val, err := p.p.ParseObject()
		if err != nil {
			return Operation{}, fmt.Errorf("inline image /%s: %w", tok.Value, err)
		}
		dict[string(tok.Value)] = val
	}

	// a single whitespace byte separates ID from the data
	start := lex.Pos() + 1
	end := findEI(p.data, start)
	if end < 0 {
		return Operation{}, fmt.Errorf("inline image at position %d has no EI", start)
	}
	lex.Seek(end + 2)
	return Operation{Operator: "BI", Operands: []core.Object{dict}}, nil
}

// findEI returns the offset of an "EI" token that is preceded by
// whitespace and followed by whitespace or end of data.
func findEI(data []byte, from int) int {
	for i := from; i < len(data); {
		idx := bytes.Index(data[i:], []byte("EI"))
		if idx < 0 {
			return -1
		}
		at := i + idx
		before := at == 0 || core.IsWhitespace(data[at-1])
		after := at+2 == len(data) || core.IsWhitespace(data[at+2]) || core.IsDelimiter(data[at+2])
		if before && after {
			return at
		}
		i = at + 1
	}
	return -1
}
