package core

import (
	"bytes"
	"fmt"
)

// TokenType classifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenKeyword
	TokenInteger
	TokenReal
	TokenString
	TokenHexString
	TokenName
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
)

// Token is one lexical unit. Pos is the byte offset of its first character.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int
}

func (t Token) is(kind TokenType, value string) bool {
	return t.Type == kind && string(t.Value) == value
}

// Lexer tokenizes PDF syntax held entirely in memory. Whitespace and
// comments are skipped.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer returns a lexer positioned at the start of data.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the current byte offset.
func (l *Lexer) Pos() int { return l.pos }

// Seek moves the lexer to an absolute offset.
func (l *Lexer) Seek(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.data) {
		pos = len(l.data)
	}
	l.pos = pos
}

// NextToken scans the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	c := l.data[l.pos]
	switch {
	case c == '[':
		l.pos++
		return Token{Type: TokenArrayStart, Value: l.data[start:l.pos], Pos: start}, nil
	case c == ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Value: l.data[start:l.pos], Pos: start}, nil
	case c == '<' && l.at(1) == '<':
		l.pos += 2
		return Token{Type: TokenDictStart, Value: l.data[start:l.pos], Pos: start}, nil
	case c == '>' && l.at(1) == '>':
		l.pos += 2
		return Token{Type: TokenDictEnd, Value: l.data[start:l.pos], Pos: start}, nil
	case c == '<':
		return l.readHexString()
	case c == '(':
		return l.readString()
	case c == '/':
		return l.readName()
	case isDigit(c) || c == '-' || c == '+' || c == '.':
		return l.readNumber(), nil
	case isRegular(c):
		for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
			l.pos++
		}
		return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Pos: start}, nil
	}
	return Token{}, fmt.Errorf("unexpected character %q at offset %d", c, start)
}

func (l *Lexer) at(offset int) byte {
	if l.pos+offset < len(l.data) {
		return l.data[l.pos+offset]
	}
	return 0
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		if !isWhitespace(c) {
			return
		}
		l.pos++
	}
}

func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
		case '\\':
			if l.pos >= len(l.data) {
				continue
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
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
				if l.at(0) == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if isOctalDigit(e) {
					v := int(e - '0')
					for i := 0; i < 2 && isOctalDigit(l.at(0)); i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					buf.WriteByte(byte(v))
				} else {
					buf.WriteByte(e)
				}
			}
			continue
		}
		buf.WriteByte(c)
	}
	return Token{}, fmt.Errorf("unterminated string at offset %d", start)
}

func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	l.pos++
	var buf bytes.Buffer
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if buf.Len()%2 == 1 {
				buf.WriteByte('0')
			}
			raw := buf.Bytes()
			out := make([]byte, len(raw)/2)
			for i := range out {
				out[i] = hexValue(raw[2*i])<<4 | hexValue(raw[2*i+1])
			}
			return Token{Type: TokenHexString, Value: out, Pos: start}, nil
		}
		if isWhitespace(c) {
			continue
		}
		if !isHexDigit(c) {
			return Token{}, fmt.Errorf("invalid hex digit %q at offset %d", c, l.pos-1)
		}
		buf.WriteByte(c)
	}
	return Token{}, fmt.Errorf("unterminated hex string at offset %d", start)
}

func (l *Lexer) readName() (Token, error) {
	start := l.pos
	l.pos++
	var buf bytes.Buffer
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		c := l.data[l.pos]
		l.pos++
		if c == '#' && isHexDigit(l.at(0)) && isHexDigit(l.at(1)) {
			buf.WriteByte(hexValue(l.data[l.pos])<<4 | hexValue(l.data[l.pos+1]))
			l.pos += 2
			continue
		}
		buf.WriteByte(c)
	}
	return Token{Type: TokenName, Value: buf.Bytes(), Pos: start}, nil
}

func (l *Lexer) readNumber() Token {
	start := l.pos
	kind := TokenInteger
	if c := l.data[l.pos]; c == '-' || c == '+' {
		l.pos++
	}
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '.' && kind == TokenInteger {
			kind = TokenReal
		} else if !isDigit(c) {
			break
		}
		l.pos++
	}
	return Token{Type: kind, Value: l.data[start:l.pos], Pos: start}
}

// ReadStreamData returns the bytes of a stream body. streamKeywordEnd is the
// offset just past the "stream" keyword. When the declared length does not
// land on "endstream" the body is delimited by searching for it instead.
// The lexer is left after the "endstream" keyword.
func (l *Lexer) ReadStreamData(streamKeywordEnd, length int) ([]byte, error) {
	start := streamKeywordEnd
	if start < len(l.data) && l.data[start] == '\r' {
		start++
	}
	if start < len(l.data) && l.data[start] == '\n' {
		start++
	}

	if length >= 0 && start+length <= len(l.data) {
		end := start + length
		probe := end
		for probe < len(l.data) && isWhitespace(l.data[probe]) {
			probe++
		}
		if bytes.HasPrefix(l.data[probe:], []byte("endstream")) {
			l.pos = probe + len("endstream")
			return l.data[start:end], nil
		}
	}

	idx := bytes.Index(l.data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("stream at offset %d has no endstream", start)
	}
	end := start + idx
	l.pos = end + len("endstream")
	if end > start && l.data[end-1] == '\n' {
		end--
	}
	if end > start && l.data[end-1] == '\r' {
		end--
	}
	return l.data[start:end], nil
}

// SkipInlineImage moves past the binary data of an inline image. It is
// called after the ID operator; the data ends at an EI keyword that stands
// between whitespace.
func (l *Lexer) SkipInlineImage() error {
	start := l.pos
	if start < len(l.data) && isWhitespace(l.data[start]) {
		start++
	}
	for i := start; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		if i > start && !isWhitespace(l.data[i-1]) {
			continue
		}
		if i+2 < len(l.data) && !isWhitespace(l.data[i+2]) && !isDelimiter(l.data[i+2]) {
			continue
		}
		l.pos = i + 2
		return nil
	}
	return fmt.Errorf("inline image at offset %d has no EI", start)
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool { return !isWhitespace(b) && !isDelimiter(b) }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case isDigit(b):
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
