package core

import (
	"bytes"
	"fmt"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF        TokenType = iota
	TokenKeyword              // true, false, null, obj, endobj, stream, operators
	TokenInteger              // 123
	TokenReal                 // 3.14
	TokenString               // (hello)
	TokenHexString            // <48656C6C6F>
	TokenName                 // /Type
	TokenArrayStart           // [
	TokenArrayEnd             // ]
	TokenDictStart            // <<
	TokenDictEnd              // >>
)

// Token represents a lexical token. Value holds decoded bytes for strings
// and names and the literal text for everything else.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int
}

// Lexer tokenizes an in-memory PDF byte slice. Comments and whitespace are
// skipped.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a lexer positioned at the start of data.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the current byte offset.
func (l *Lexer) Pos() int { return l.pos }

// Seek moves the lexer to an absolute byte offset.
func (l *Lexer) Seek(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.data) {
		pos = len(l.data)
	}
	l.pos = pos
}

// Data returns the underlying byte slice.
func (l *Lexer) Data() []byte { return l.data }

// NextToken returns the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	b := l.data[l.pos]
	switch b {
	case '[':
		l.pos++
		return Token{Type: TokenArrayStart, Value: l.data[start:l.pos], Pos: start}, nil
	case ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Value: l.data[start:l.pos], Pos: start}, nil
	case '{', '}':
		// PostScript calculator braces only appear inside function streams.
		l.pos++
		return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return Token{}, fmt.Errorf("unexpected '>' at position %d", l.pos)
	case '/':
		return l.readName()
	case ')':
		return Token{}, fmt.Errorf("unbalanced ')' at position %d", l.pos)
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber()
	}
	return l.readKeyword()
}

// skipWhitespaceAndComments skips PDF whitespace and % comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) {
			l.pos++
			continue
		}
		if b == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// SkipEOL consumes a single end-of-line marker (CR, LF or CRLF).
func (l *Lexer) SkipEOL() {
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
}

// readString reads a literal string (hello)
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // (
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
			buf.WriteByte(b)
		case '\\':
			l.readEscape(&buf)
		case '\r':
			// an unescaped EOL inside a string is read as a single LF
			if l.pos < len(l.data) && l.data[l.pos] == '\n' {
				l.pos++
			}
			buf.WriteByte('\n')
		default:
			buf.WriteByte(b)
		}
	}
	return Token{}, fmt.Errorf("unterminated string starting at position %d", start)
}

func (l *Lexer) readEscape(buf *bytes.Buffer) {
	if l.pos >= len(l.data) {
		return
	}
	next := l.data[l.pos]
	l.pos++
	switch next {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		if l.pos < len(l.data) && l.data[l.pos] == '\n' {
			l.pos++
		}
	case '\n':
		// line continuation
	case '0', '1', '2', '3', '4', '5', '6', '7':
		val := next - '0'
		for i := 0; i < 2 && l.pos < len(l.data) && isOctalDigit(l.data[l.pos]); i++ {
			val = val*8 + (l.data[l.pos] - '0')
			l.pos++
		}
		buf.WriteByte(val)
	default:
		buf.WriteByte(next)
	}
}

// readHexString reads a hexadecimal string <48656C6C6F>. An odd trailing
// digit is padded with zero.
func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	l.pos++ // <
	var buf bytes.Buffer
	var hi byte
	half := false
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			if half {
				buf.WriteByte(hi << 4)
			}
			return Token{Type: TokenHexString, Value: buf.Bytes(), Pos: start}, nil
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return Token{}, fmt.Errorf("invalid hex digit %q at position %d", b, l.pos-1)
		}
		if half {
			buf.WriteByte(hi<<4 | hexValue(b))
			half = false
		} else {
			hi = hexValue(b)
			half = true
		}
	}
	return Token{}, fmt.Errorf("unterminated hex string starting at position %d", start)
}

// readName reads a name object /Type, resolving #xx escapes.
func (l *Lexer) readName() (Token, error) {
	start := l.pos
	l.pos++ // /
	var buf bytes.Buffer
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
		if b == '#' && l.pos+1 < len(l.data) && isHexDigit(l.data[l.pos]) && isHexDigit(l.data[l.pos+1]) {
			buf.WriteByte(hexValue(l.data[l.pos])<<4 | hexValue(l.data[l.pos+1]))
			l.pos += 2
			continue
		}
		buf.WriteByte(b)
	}
	return Token{Type: TokenName, Value: buf.Bytes(), Pos: start}, nil
}

// readNumber reads an integer or real number
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	hasDecimal := false
scan:
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		switch {
		case b == '.' && !hasDecimal:
			hasDecimal = true
		case isDigit(b):
		case (b == '-' || b == '+') && l.pos == start:
		default:
			break scan
		}
		l.pos++
	}
	value := l.data[start:l.pos]
	if len(value) == 1 && !isDigit(value[0]) {
		// a lone sign or dot is read as zero by most viewers
		return Token{Type: TokenInteger, Value: []byte("0"), Pos: start}, nil
	}
	tokenType := TokenInteger
	if hasDecimal {
		tokenType = TokenReal
	}
	return Token{Type: tokenType, Value: value, Pos: start}, nil
}

// readKeyword reads a bare word (true, false, null, R, obj, operators ...).
func (l *Lexer) readKeyword() (Token, error) {
	start := l.pos
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		return Token{}, fmt.Errorf("unexpected character %q at position %d", l.data[start], start)
	}
	return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Pos: start}, nil
}

// ReadBytes returns the next n bytes and advances past them.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || l.pos+n > len(l.data) {
		return nil, fmt.Errorf("unexpected EOF: need %d bytes at position %d", n, l.pos)
	}
	b := l.data[l.pos : l.pos+n]
	l.pos += n
	return b, nil
}

// Helper functions

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

// IsWhitespace reports whether b is PDF whitespace.
func IsWhitespace(b byte) bool { return isWhitespace(b) }

// IsDelimiter reports whether b is a PDF delimiter character.
func IsDelimiter(b byte) bool { return isDelimiter(b) }

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
