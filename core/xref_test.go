package core

import (
	"bytes"
	"fmt"
	"testing"
)

// buildXRefStreamFile writes a PDF 1.5 style file whose objects 10 and 11
// live in an object stream indexed by a cross-reference stream.
func buildXRefStreamFile(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")

	objects := "<</A 1>> [2 3]"
	header := "10 0 11 9 "
	objStm, err := NewFlateStream(Dict{
		"Type":  Name("ObjStm"),
		"N":     Int(2),
		"First": Int(len(header)),
	}, []byte(header+objects))
	if err != nil {
		t.Fatalf("NewFlateStream: %v", err)
	}
	off1 := buf.Len()
	buf.WriteString("1 0 obj\n")
	AppendObject(&buf, objStm)
	buf.WriteString("\nendobj\n")

	off2 := buf.Len()
	rows := []byte{
		0, 0, 0, 0,
		1, byte(off1 >> 8), byte(off1), 0,
		1, byte(off2 >> 8), byte(off2), 0,
		2, 0, 1, 0,
		2, 0, 1, 1,
	}
	xref, err := NewFlateStream(Dict{
		"Type":  Name("XRef"),
		"W":     Array{Int(1), Int(2), Int(1)},
		"Index": Array{Int(0), Int(3), Int(10), Int(2)},
		"Size":  Int(12),
		"Root":  IndirectRef{Number: 10},
	}, rows)
	if err != nil {
		t.Fatalf("NewFlateStream: %v", err)
	}
	buf.WriteString("2 0 obj\n")
	AppendObject(&buf, xref)
	buf.WriteString("\nendobj\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", off2)
	return buf.Bytes()
}

func TestLoadXRefStream(t *testing.T) {
	data := buildXRefStreamFile(t)
	table, err := LoadXRef(data)
	if err != nil {
		t.Fatalf("LoadXRef: %v", err)
	}

	tests := []struct {
		num  int
		kind EntryKind
	}{
		{0, EntryFree},
		{1, EntryInUse},
		{2, EntryInUse},
		{10, EntryCompressed},
		{11, EntryCompressed},
	}
	for _, tt := range tests {
		e, ok := table.Get(tt.num)
		if !ok {
			t.Errorf("object %d missing", tt.num)
			continue
		}
		if e.Kind != tt.kind {
			t.Errorf("object %d kind = %d, want %d", tt.num, e.Kind, tt.kind)
		}
	}
	if e, _ := table.Get(11); e.Stream != 1 || e.Index != 1 {
		t.Errorf("object 11 entry = %+v", e)
	}
	if _, ok := table.Trailer.GetIndirectRef("Root"); !ok {
		t.Error("trailer lost /Root")
	}
}

func TestObjectStream(t *testing.T) {
	data := buildXRefStreamFile(t)
	table, err := LoadXRef(data)
	if err != nil {
		t.Fatalf("LoadXRef: %v", err)
	}
	entry, _ := table.Get(1)
	p := NewParser(data)
	p.Seek(int(entry.Offset))
	ind, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("ParseIndirectObject: %v", err)
	}
	os, err := NewObjectStream(ind.Object.(*Stream))
	if err != nil {
		t.Fatalf("NewObjectStream: %v", err)
	}
	if os.N() != 2 {
		t.Errorf("N = %d", os.N())
	}

	obj, num, err := os.ObjectAt(0)
	if err != nil {
		t.Fatalf("ObjectAt(0): %v", err)
	}
	if num != 10 {
		t.Errorf("object number %d", num)
	}
	if v, _ := obj.(Dict).GetInt("A"); v != 1 {
		t.Errorf("object 10 = %v", obj)
	}

	obj, err = os.Lookup(11)
	if err != nil {
		t.Fatalf("Lookup(11): %v", err)
	}
	if arr, ok := obj.(Array); !ok || len(arr) != 2 {
		t.Errorf("object 11 = %v", obj)
	}
	if _, err := os.Lookup(99); err == nil {
		t.Error("expected an error for a missing object")
	}
	if _, _, err := os.ObjectAt(5); err == nil {
		t.Error("expected an error for an out-of-range index")
	}
}

func TestNewObjectStreamValidation(t *testing.T) {
	tests := []struct {
		name string
		dict Dict
	}{
		{"wrong type", Dict{"Type": Name("XRef"), "N": Int(1), "First": Int(2)}},
		{"missing N", Dict{"Type": Name("ObjStm"), "First": Int(2)}},
		{"negative First", Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewObjectStream(&Stream{Dict: tt.dict}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadXRefFollowsPrev(t *testing.T) {
	base := buildTestFile(t)
	prev, err := FindStartXRef(base)
	if err != nil {
		t.Fatalf("FindStartXRef: %v", err)
	}

	// Append an incremental update that replaces object 2.
	var buf bytes.Buffer
	buf.Write(base)
	off := buf.Len()
	buf.WriteString("2 0 obj\n(updated)\nendobj\n")
	xrefAt := buf.Len()
	fmt.Fprintf(&buf, "xref\n2 1\n%010d 00000 n\r\ntrailer\n<</Size 4 /Prev %d>>\nstartxref\n%d\n%%%%EOF\n", off, prev, xrefAt)

	table, err := LoadXRef(buf.Bytes())
	if err != nil {
		t.Fatalf("LoadXRef: %v", err)
	}
	if e, _ := table.Get(2); e.Offset != int64(off) {
		t.Errorf("object 2 offset = %d, want updated %d", e.Offset, off)
	}
	if e, _ := table.Get(3); e.Kind != EntryInUse {
		t.Errorf("object 3 from the original section missing: %+v", e)
	}
	if _, ok := table.Trailer.GetIndirectRef("Root"); !ok {
		t.Error("Root should be inherited from the older trailer")
	}
}

func TestReconstructXRef(t *testing.T) {
	data := buildTestFile(t)
	idx := bytes.LastIndex(data, []byte("startxref"))
	broken := append(append([]byte(nil), data[:idx]...), []byte("startxref\n0\n%%EOF\n")...)

	if _, err := LoadXRef(broken); err == nil {
		t.Fatal("expected LoadXRef to fail on a bad startxref")
	}
	table, err := ReconstructXRef(broken)
	if err != nil {
		t.Fatalf("ReconstructXRef: %v", err)
	}
	for num := 1; num <= 3; num++ {
		e, ok := table.Get(num)
		if !ok {
			t.Fatalf("object %d not recovered", num)
		}
		want := fmt.Sprintf("%d 0 obj", num)
		if !bytes.HasPrefix(broken[e.Offset:], []byte(want)) {
			t.Errorf("object %d offset %d does not point at its header", num, e.Offset)
		}
	}
	if _, ok := table.Trailer.GetIndirectRef("Root"); !ok {
		t.Error("trailer not recovered")
	}
}
