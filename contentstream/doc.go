// Package contentstream splits page content streams into operations.
//
//	ops, err := contentstream.NewParser(data).Parse()
//	for _, op := range ops {
//	    fmt.Println(op.Operator, op.Operands)
//	}
//
// Operands are core objects. References are not recognised, so "1 0 R"
// never appears as an operand. Inline images (BI ... ID ... EI) become a
// single "BI" operation whose operand is the image dictionary; the sample
// data is skipped.
//
// Parsing is tolerant: a malformed token ends the parse, and Parse returns
// the operations read so far together with the error so that callers can
// render what was understood.
package contentstream
