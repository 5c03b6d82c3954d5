// Package contentstream reads and writes PDF content streams.
//
// A content stream is a sequence of operators, each preceded by its
// operands:
//
//	ops, err := contentstream.NewParser(data).Parse()
//	for _, op := range ops {
//	    fmt.Println(op.Operator, op.Operands)
//	}
//
// Builder produces the same syntax for pages being composed:
//
//	var b contentstream.Builder
//	b.Op("q").Op("re", 0.0, 0.0, 100.0, 50.0).Op("W").Op("n").Op("Q")
//
// Operand values reuse the object types of package core.
package contentstream
