package core

import (
	"bytes"
	"testing"
)

func TestAppendObject(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		want string
	}{
		{"sorted dict", Dict{"Type": Name("Page"), "Count": Int(2)}, "<</Count 2 /Type /Page>>"},
		{"name escaping", Name("A B#(x)"), "/A#20B#23#28x#29"},
		{"string escaping", String(`a(b)\`), `(a\(b\)\\)`},
		{"binary string", String([]byte{0x00, 0xff, 0x10}), "<00FF10>"},
		{"array", Array{Int(1), Real(0.5), IndirectRef{Number: 3}, Null{}}, "[1 0.5 3 0 R null]"},
		{"stream length", &Stream{Dict: Dict{"Length": Int(99)}, Data: []byte("abc")}, "<</Length 3>>\nstream\nabc\nendstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			AppendObject(&buf, tt.obj)
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestFormatReal(t *testing.T) {
	tests := map[float64]string{
		0:          "0",
		1.5:        "1.5",
		-0.000001:  "0",
		595.275591: "595.27559",
		20:         "20",
	}
	for in, want := range tests {
		if got := FormatReal(in); got != want {
			t.Errorf("FormatReal(%v) = %q, want %q", in, got, want)
		}
	}
}

// buildTestFile writes a two-object document: a catalog and a stream.
func buildTestFile(t *testing.T) []byte {
	t.Helper()
	w := NewWriter()
	pages := w.Reserve()
	w.Set(pages, Dict{"Type": Name("Pages"), "Kids": Array{}, "Count": Int(0)})
	content, err := NewFlateStream(nil, []byte("0 0 m 100 0 l S"))
	if err != nil {
		t.Fatalf("NewFlateStream: %v", err)
	}
	w.Add(content)
	w.SetRoot(w.Add(Dict{"Type": Name("Catalog"), "Pages": pages}))

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.Bytes()
}

func TestWriterRoundTrip(t *testing.T) {
	data := buildTestFile(t)

	table, err := LoadXRef(data)
	if err != nil {
		t.Fatalf("LoadXRef: %v", err)
	}
	if len(table.Entries) != 4 {
		t.Errorf("entries = %d, want 4 including the free head", len(table.Entries))
	}
	root, ok := table.Trailer.GetIndirectRef("Root")
	if !ok || root.Number != 3 {
		t.Fatalf("Root = %v", table.Trailer.Get("Root"))
	}

	entry, _ := table.Get(2)
	p := NewParser(data)
	p.Seek(int(entry.Offset))
	ind, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("ParseIndirectObject: %v", err)
	}
	decoded, err := ind.Object.(*Stream).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(decoded) != "0 0 m 100 0 l S" {
		t.Errorf("decoded %q", decoded)
	}
}

func TestWriterRequiresRoot(t *testing.T) {
	w := NewWriter()
	w.Add(Int(1))
	if _, err := w.WriteTo(&bytes.Buffer{}); err == nil {
		t.Error("expected an error without a catalog")
	}
}
