package model

import "testing"

func TestRectBasics(t *testing.T) {
	r := NewRect(10, 20, 100, 50)
	if r.Width() != 100 || r.Height() != 50 {
		t.Errorf("size = %vx%v", r.Width(), r.Height())
	}
	if r.CenterY() != 45 {
		t.Errorf("CenterY = %v", r.CenterY())
	}
}

func TestRectUnion(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 5, 30, 40}, Rect{0, 0, 30, 40}},
		{"nested", Rect{0, 0, 100, 100}, Rect{10, 10, 20, 20}, Rect{0, 0, 100, 100}},
		{"empty left", Rect{}, Rect{1, 2, 3, 4}, Rect{1, 2, 3, 4}},
		{"empty right", Rect{1, 2, 3, 4}, Rect{}, Rect{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Union(tt.b); got != tt.want {
				t.Errorf("Union = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRectClampAndScale(t *testing.T) {
	page := Rect{0, 0, 595, 842}
	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"inside", Rect{10, 10, 20, 20}, Rect{10, 10, 20, 20}},
		{"overflow", Rect{-5, -10, 600, 900}, page},
		{"outside collapses", Rect{700, 900, 800, 950}, Rect{700, 900, 700, 900}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(page); got != tt.want {
				t.Errorf("Clamp = %v, want %v", got, tt.want)
			}
		})
	}

	if !(Rect{10, 10, 10, 20}).IsEmpty() {
		t.Error("zero-width rectangle should be empty")
	}
	if got := (Rect{1, 2, 3, 4}).Scale(2); got != (Rect{2, 4, 6, 8}) {
		t.Errorf("Scale = %v", got)
	}
}

func TestMatrixTransform(t *testing.T) {
	m := Scale(2, 3).Multiply(Translate(5, 7))
	got := m.Transform(Point{1, 1})
	if got != (Point{7, 10}) {
		t.Errorf("Transform = %v, want {7 10}", got)
	}
}

func TestParseInstrument(t *testing.T) {
	for _, inst := range Instruments {
		got, err := ParseInstrument(string(inst))
		if err != nil || got != inst {
			t.Errorf("ParseInstrument(%q) = %v, %v", inst, got, err)
		}
	}
	if _, err := ParseInstrument("tuba"); err == nil {
		t.Error("expected error for tuba")
	}
}

func TestInstrumentSet(t *testing.T) {
	s := NewInstrumentSet(Vocal, Keyboard)
	if !s.Has(Vocal) || !s.Has(Keyboard) || s.Has(Guitar) {
		t.Errorf("set = %v", s)
	}
	if ReasonClaimedBy(Guitar) != "claimed-by-guitar" {
		t.Errorf("ReasonClaimedBy = %q", ReasonClaimedBy(Guitar))
	}
}

func TestSystemsInGroup(t *testing.T) {
	layout := PageLayout{Systems: []System{
		{Index: 0, Group: 0, Rank: 0},
		{Index: 1, Group: 0, Rank: 1},
		{Index: 2, Group: 1, Rank: 0},
	}}
	if got := layout.SystemsInGroup(0); len(got) != 2 || got[1].Index != 1 {
		t.Errorf("group 0 = %+v", got)
	}
	if got := layout.SystemsInGroup(2); len(got) != 0 {
		t.Errorf("group 2 = %+v", got)
	}
}

func TestStaffGeometry(t *testing.T) {
	s := Staff{Lines: [5]float64{10, 18, 26, 34, 42}, Top: 10, Bottom: 42, Left: 30, Right: 500}
	if s.Height() != 32 {
		t.Errorf("Height = %v", s.Height())
	}
	if s.Bounds() != (Rect{30, 10, 500, 42}) {
		t.Errorf("Bounds = %v", s.Bounds())
	}
	sys := System{Staves: []Staff{s, s}, Bounds: Rect{30, 10, 500, 100}}
	if !sys.IsGrandStaff() || sys.Center() != 55 || sys.Left() != 30 {
		t.Errorf("system = %+v", sys)
	}
}
