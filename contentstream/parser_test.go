package contentstream

import (
	"testing"

	"github.com/wadansyaku/band-part-key-app/core"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		operators []string
		operands  []int
	}{
		{"single operator", "q", []string{"q"}, []int{0}},
		{"integer operand", "100 Tz", []string{"Tz"}, []int{1}},
		{"real operand", "1.5 w", []string{"w"}, []int{1}},
		{"rectangle and fill", "10 20 100 0.5 re f", []string{"re", "f"}, []int{4, 0}},
		{"matrix", "1 0 0 1 72 720 cm", []string{"cm"}, []int{6}},
		{"quote operators", "(a) ' 1 2 (b) \"", []string{"'", "\""}, []int{1, 3}},
		{"star operators", "0 0 m 10 0 l f* B*", []string{"m", "l", "f*", "B*"}, []int{2, 2, 0, 0}},
		{"array operand", "[(A) -120 (B)] TJ", []string{"TJ"}, []int{1}},
		{"dict operand", "/OC <</MCID 3>> BDC EMC", []string{"BDC", "EMC"}, []int{2, 0}},
		{"booleans and null", "true false null d0", []string{"d0"}, []int{3}},
		{"comments", "% header\nq % save\nQ", []string{"q", "Q"}, []int{0, 0}},
		{"name operand", "/F1 12 Tf", []string{"Tf"}, []int{2}},
		{"empty", "", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := NewParser([]byte(tt.input)).Parse()
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(ops) != len(tt.operators) {
				t.Fatalf("got %d operations %v, want %d", len(ops), ops, len(tt.operators))
			}
			for i, op := range ops {
				if op.Operator != tt.operators[i] {
					t.Errorf("op %d = %q, want %q", i, op.Operator, tt.operators[i])
				}
				if len(op.Operands) != tt.operands[i] {
					t.Errorf("op %d %s has %d operands, want %d", i, op.Operator, len(op.Operands), tt.operands[i])
				}
			}
		})
	}
}

func TestParseOperandValues(t *testing.T) {
	ops, err := NewParser([]byte("/F1 12.5 Tf (Hi) Tj")).Parse()
	if err != nil {
		t.Fatal(err)
	}
	if name, ok := ops[0].Operands[0].(core.Name); !ok || name != "F1" {
		t.Errorf("font operand = %#v", ops[0].Operands[0])
	}
	if size, ok := ops[0].Number(1); !ok || size != 12.5 {
		t.Errorf("size = %v, %v", size, ok)
	}
	if s, ok := ops[1].Operands[0].(core.String); !ok || s != "Hi" {
		t.Errorf("text operand = %#v", ops[1].Operands[0])
	}
}

func TestParseInlineImage(t *testing.T) {
	input := "q BI /W 2 /H 1 /BPC 8 /CS /G ID \x00EI\xff EI Q 0 0 m"
	ops, err := NewParser([]byte(input)).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var got []string
	for _, op := range ops {
		got = append(got, op.Operator)
	}
	want := []string{"q", "BI", "ID", "EI", "Q", "m"}
	if len(got) != len(want) {
		t.Fatalf("operators = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("operators = %v, want %v", got, want)
		}
	}
	if len(ops[2].Operands) != 8 {
		t.Errorf("ID carries %d operands, want 8", len(ops[2].Operands))
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"[1 2 re",
		"<</A 1 BDC",
		"BI /W 1 ID \x01\x02",
	} {
		if _, err := NewParser([]byte(input)).Parse(); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
}

func TestNumbers(t *testing.T) {
	op := Operation{Operator: "re", Operands: []core.Object{core.Int(1), core.Real(2.5), core.Int(3), core.Int(4)}}
	nums, ok := op.Numbers(4)
	if !ok || nums[1] != 2.5 {
		t.Errorf("Numbers = %v, %v", nums, ok)
	}
	if _, ok := op.Numbers(3); ok {
		t.Error("Numbers with wrong count succeeded")
	}
	op.Operands[2] = core.Name("x")
	if _, ok := op.Numbers(4); ok {
		t.Error("Numbers with a name operand succeeded")
	}
	if _, ok := op.Number(9); ok {
		t.Error("Number out of range succeeded")
	}
}

func TestBuilderRoundTrip(t *testing.T) {
	var b Builder
	b.Op("q").
		Op("re", 10.0, 20.25, 100.0, 50.0).
		Op("W").Op("n").
		Op("cm", 0.5, 0.0, 0.0, 0.5, 12.0, -3.125).
		Op("Do", core.Name("Fm1")).
		Op("Tf", core.Name("F1"), 8).
		Op("Tj", "Vocal (lead)").
		Op("Q")

	ops, err := NewParser(b.Bytes()).Parse()
	if err != nil {
		t.Fatalf("Parse: %v\n%s", err, b.Bytes())
	}
	if len(ops) != 9 {
		t.Fatalf("got %d operations, want 9:\n%s", len(ops), b.Bytes())
	}
	if nums, ok := ops[4].Numbers(6); !ok || nums[5] != -3.125 {
		t.Errorf("cm operands = %v", ops[4].Operands)
	}
	if s, _ := ops[7].Operands[0].(core.String); s != "Vocal (lead)" {
		t.Errorf("Tj operand = %q", s)
	}
}
