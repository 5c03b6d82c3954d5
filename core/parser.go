package core

import (
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references, which the parser needs for
// streams whose /Length is itself an indirect object.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds PDF objects from the token stream of a Lexer.
type Parser struct {
	lex      *Lexer
	resolver ReferenceResolver
	queue    []Token
}

// NewParser returns a parser over data starting at offset 0.
func NewParser(data []byte) *Parser {
	return &Parser{lex: NewLexer(data)}
}

// SetReferenceResolver installs the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// Seek repositions the parser at an absolute byte offset.
func (p *Parser) Seek(offset int) {
	p.queue = p.queue[:0]
	p.lex.Seek(offset)
}

func (p *Parser) peek(n int) (Token, error) {
	for len(p.queue) <= n {
		tok, err := p.lex.NextToken()
		if err != nil {
			return Token{}, err
		}
		p.queue = append(p.queue, tok)
	}
	return p.queue[n], nil
}

func (p *Parser) next() (Token, error) {
	tok, err := p.peek(0)
	if err != nil {
		return Token{}, err
	}
	p.queue = p.queue[1:]
	return tok, nil
}

// ParseObject parses the next direct object or reference. It returns io.EOF
// at the end of input.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF
	case TokenInteger:
		return p.parseInteger(tok)
	case TokenReal:
		v, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real %q at offset %d", tok.Value, tok.Pos)
		}
		return Real(v), nil
	case TokenString, TokenHexString:
		return String(tok.Value), nil
	case TokenName:
		return Name(tok.Value), nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Value, tok.Pos)
	}
	return nil, fmt.Errorf("unexpected token %q at offset %d", tok.Value, tok.Pos)
}

// ParseOperand parses the next item of a content stream. Operands are
// returned as objects; a keyword other than true, false or null is
// returned as op. The inline image data following ID is skipped. It
// returns io.EOF at the end of input.
func (p *Parser) ParseOperand() (obj Object, op string, err error) {
	tok, err := p.peek(0)
	if err != nil {
		return nil, "", err
	}
	switch tok.Type {
	case TokenEOF:
		return nil, "", io.EOF
	case TokenKeyword:
		switch string(tok.Value) {
		case "null", "true", "false":
		default:
			p.queue = p.queue[1:]
			op = string(tok.Value)
			if op == "ID" {
				p.queue = p.queue[:0]
				if err := p.lex.SkipInlineImage(); err != nil {
					return nil, "", err
				}
			}
			return nil, op, nil
		}
	}
	obj, err = p.ParseObject()
	return obj, "", err
}

// parseInteger returns an Int, or an IndirectRef when the integer starts a
// "num gen R" triple.
func (p *Parser) parseInteger(first Token) (Object, error) {
	n, err := strconv.ParseInt(string(first.Value), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(first.Value), 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid number %q at offset %d", first.Value, first.Pos)
		}
		return Real(f), nil
	}

	second, err := p.peek(0)
	if err != nil || second.Type != TokenInteger {
		return Int(n), nil
	}
	third, err := p.peek(1)
	if err != nil || !third.is(TokenKeyword, "R") {
		return Int(n), nil
	}
	gen, _ := strconv.Atoi(string(second.Value))
	p.queue = p.queue[2:]
	return IndirectRef{Number: int(n), Generation: gen}, nil
}

func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	for {
		tok, err := p.peek(0)
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			p.queue = p.queue[1:]
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated array")
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", len(arr), err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	dict := Dict{}
	for {
		tok, err := p.next()
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
			return nil, fmt.Errorf("dictionary key must be a name, got %q at offset %d", tok.Value, tok.Pos)
		}
		key := string(tok.Value)
		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("dictionary value for /%s: %w", key, err)
		}
		// A null value is equivalent to an absent key.
		if _, isNull := value.(Null); !isNull {
			dict[key] = value
		}
	}
}

// ParseIndirectObject parses "num gen obj ... endobj", including a stream
// body when the object is a stream. A missing endobj is tolerated.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	numTok, err := p.next()
	if err != nil {
		return nil, err
	}
	genTok, err := p.next()
	if err != nil {
		return nil, err
	}
	objTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if numTok.Type != TokenInteger || genTok.Type != TokenInteger || !objTok.is(TokenKeyword, "obj") {
		return nil, fmt.Errorf("expected object header at offset %d", numTok.Pos)
	}
	num, _ := strconv.Atoi(string(numTok.Value))
	gen, _ := strconv.Atoi(string(genTok.Value))

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
	}

	tok, err := p.peek(0)
	if err != nil {
		return nil, err
	}
	if tok.is(TokenKeyword, "stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("object %d %d: stream without dictionary", num, gen)
		}
		stream, err := p.parseStream(dict, tok.Pos+len("stream"))
		if err != nil {
			return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
		}
		obj = stream
		tok, err = p.peek(0)
		if err != nil {
			return nil, err
		}
	}
	if tok.is(TokenKeyword, "endobj") {
		p.queue = p.queue[1:]
	}

	return &IndirectObject{Ref: IndirectRef{Number: num, Generation: gen}, Object: obj}, nil
}

func (p *Parser) parseStream(dict Dict, bodyStart int) (*Stream, error) {
	length := -1
	switch v := dict.Get("Length").(type) {
	case Int:
		length = int(v)
	case IndirectRef:
		if p.resolver != nil {
			if resolved, err := p.resolver.ResolveReference(v); err == nil {
				if n, ok := resolved.(Int); ok {
					length = int(n)
				}
			}
		}
	}

	p.queue = p.queue[:0]
	data, err := p.lex.ReadStreamData(bodyStart, length)
	if err != nil {
		return nil, err
	}
	return &Stream{Dict: dict, Data: data}, nil
}
