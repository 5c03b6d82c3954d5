package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer assembles a new PDF file object by object. Object numbers are
// handed out sequentially starting at 1 and the file is produced in one
// pass by WriteTo.
type Writer struct {
	objects []Object
	root    IndirectRef
	info    IndirectRef
}

// NewWriter returns an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Add stores obj under the next object number.
func (w *Writer) Add(obj Object) IndirectRef {
	w.objects = append(w.objects, obj)
	return IndirectRef{Number: len(w.objects)}
}

// Reserve allocates an object number to be filled later with Set, which
// lets parents and children reference each other.
func (w *Writer) Reserve() IndirectRef {
	return w.Add(Null{})
}

// Set replaces the object stored under ref.
func (w *Writer) Set(ref IndirectRef, obj Object) {
	if ref.Number < 1 || ref.Number > len(w.objects) {
		panic(fmt.Sprintf("core: object %d was not allocated by this writer", ref.Number))
	}
	w.objects[ref.Number-1] = obj
}

// Object returns the object stored under ref.
func (w *Writer) Object(ref IndirectRef) Object {
	if ref.Number < 1 || ref.Number > len(w.objects) {
		return nil
	}
	return w.objects[ref.Number-1]
}

// Len returns the number of allocated objects.
func (w *Writer) Len() int { return len(w.objects) }

// SetRoot names the document catalog.
func (w *Writer) SetRoot(ref IndirectRef) { w.root = ref }

// SetInfo names the document information dictionary.
func (w *Writer) SetInfo(ref IndirectRef) { w.info = ref }

// WriteTo serializes the header, all objects, a classic xref table and the
// trailer.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	if w.root.Number == 0 {
		return 0, fmt.Errorf("core: writer has no catalog")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(w.objects))
	for i, obj := range w.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		AppendObject(&buf, obj)
		buf.WriteString("\nendobj\n")
	}

	xrefAt := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f\r\n", len(w.objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}

	trailer := Dict{"Size": Int(len(w.objects) + 1), "Root": w.root}
	if w.info.Number != 0 {
		trailer["Info"] = w.info
	}
	buf.WriteString("trailer\n")
	AppendObject(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefAt)

	n, err := out.Write(buf.Bytes())
	return int64(n), err
}

// AppendObject writes the PDF syntax of obj to buf. Dictionary keys are
// emitted in sorted order so identical inputs serialize identically.
func AppendObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool, Int, Real, IndirectRef:
		buf.WriteString(v.String())
	case Name:
		appendName(buf, string(v))
	case String:
		appendString(buf, string(v))
	case Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			AppendObject(buf, item)
		}
		buf.WriteByte(']')
	case Dict:
		buf.WriteString("<<")
		for _, k := range v.Keys() {
			appendName(buf, k)
			buf.WriteByte(' ')
			AppendObject(buf, v[k])
		}
		buf.WriteString(">>")
	case *Stream:
		dict := v.Dict.Clone()
		dict["Length"] = Int(len(v.Data))
		AppendObject(buf, dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString("null")
	}
}

// FormatReal prints a number with at most five decimals and no exponent.
func FormatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', 5, 64)
	s = trimZeros(s)
	if s == "-0" {
		return "0"
	}
	return s
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

func appendName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func appendString(buf *bytes.Buffer, s string) {
	binary := 0
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			binary++
		}
	}
	if binary*4 > len(s) {
		fmt.Fprintf(buf, "<%X>", s)
		return
	}
	buf.WriteByte('(')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(' || c == ')' || c == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case c < 0x20 || c > 0x7e:
			fmt.Fprintf(buf, "\\%03o", c)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}
