package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/wadansyaku/band-part-key-app/core"
)

// Operation is one content stream operator with the operands that precede
// it.
type Operation struct {
	Operator string
	Operands []core.Object
}

// Number returns operand i as a float.
func (op Operation) Number(i int) (float64, bool) {
	if i < 0 || i >= len(op.Operands) {
		return 0, false
	}
	return core.Number(op.Operands[i])
}

// Numbers returns all operands as floats, or false if any is not numeric
// or the count differs from n.
func (op Operation) Numbers(n int) ([]float64, bool) {
	if len(op.Operands) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i := range op.Operands {
		v, ok := core.Number(op.Operands[i])
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Parser splits a content stream into operations.
type Parser struct {
	p *core.Parser
}

// NewParser returns a parser over decoded content stream data.
func NewParser(data []byte) *Parser {
	return &Parser{p: core.NewParser(data)}
}

// Parse returns every operation in stream order. Inline image data is
// skipped; its BI, ID and EI operators are still reported.
func (p *Parser) Parse() ([]Operation, error) {
	var ops []Operation
	var operands []core.Object
	for {
		obj, op, err := p.p.ParseOperand()
		if errors.Is(err, io.EOF) {
			return ops, nil
		}
		if err != nil {
			return ops, fmt.Errorf("content stream operation %d: %w", len(ops), err)
		}
		if op == "" {
			operands = append(operands, obj)
			continue
		}
		ops = append(ops, Operation{Operator: op, Operands: operands})
		operands = nil
		if op == "ID" {
			ops = append(ops, Operation{Operator: "EI"})
		}
	}
}

// Builder writes operations in content stream syntax.
type Builder struct {
	buf bytes.Buffer
}

// Op appends one operation. Float operands are written with FormatReal.
func (b *Builder) Op(operator string, operands ...any) *Builder {
	for _, v := range operands {
		switch o := v.(type) {
		case float64:
			b.buf.WriteString(core.FormatReal(o))
		case int:
			b.buf.WriteString(core.Int(o).String())
		case string:
			core.AppendObject(&b.buf, core.String(o))
		case core.Object:
			core.AppendObject(&b.buf, o)
		default:
			panic(fmt.Sprintf("contentstream: unsupported operand %T", v))
		}
		b.buf.WriteByte(' ')
	}
	b.buf.WriteString(operator)
	b.buf.WriteByte('\n')
	return b
}

// Bytes returns the content written so far.
func (b *Builder) Bytes() []byte { return b.buf.Bytes() }

// Len returns the number of bytes written.
func (b *Builder) Len() int { return b.buf.Len() }
