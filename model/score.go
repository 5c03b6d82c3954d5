package model

import "fmt"

// Instrument is the canonical name of an instrument family found in score
// labels.
type Instrument string

const (
	Vocal    Instrument = "vocal"
	Keyboard Instrument = "keyboard"
	Guitar   Instrument = "guitar"
	Bass     Instrument = "bass"
	Drums    Instrument = "drums"
	Unknown  Instrument = "unknown"
)

// Instruments lists the known families in conventional score order, top
// to bottom.
var Instruments = []Instrument{Vocal, Keyboard, Guitar, Bass, Drums}

// ParseInstrument maps a canonical name to an Instrument.
func ParseInstrument(s string) (Instrument, error) {
	for _, inst := range Instruments {
		if string(inst) == s {
			return inst, nil
		}
	}
	return Unknown, fmt.Errorf("unknown instrument %q", s)
}

// InstrumentSet is a set of instruments, used for the extraction targets.
type InstrumentSet map[Instrument]bool

// NewInstrumentSet builds a set from a list.
func NewInstrumentSet(list ...Instrument) InstrumentSet {
	s := make(InstrumentSet, len(list))
	for _, inst := range list {
		s[inst] = true
	}
	return s
}

// Has reports whether inst is in the set.
func (s InstrumentSet) Has(inst Instrument) bool { return s[inst] }

// LabelSource records where a label's text came from.
type LabelSource string

const (
	SourceNative LabelSource = "native"
	SourceOCR    LabelSource = "ocr"
)

// TextSpan is one run of text from a document's own text layer.
type TextSpan struct {
	Text   string
	Bounds Rect
}

// Staff is a group of exactly five equally spaced horizontal lines.
type Staff struct {
	Lines   [5]float64 // y of each line, top to bottom
	Top     float64
	Bottom  float64
	Center  float64
	Left    float64
	Right   float64
	Spacing float64 // mean distance between adjacent lines
	Page    int
	Ordinal int // top-to-bottom index on the page
}

// Height returns the distance between the outer lines.
func (s Staff) Height() float64 { return s.Bottom - s.Top }

// Bounds returns the rectangle covered by the staff lines.
func (s Staff) Bounds() Rect {
	return Rect{X0: s.Left, Y0: s.Top, X1: s.Right, Y1: s.Bottom}
}

// System is one or two staves played by a single part at the same time;
// two staves form a grand staff.
type System struct {
	Staves []Staff
	Bounds Rect
	Page   int
	Index  int // top-to-bottom index on the page
	Group  int // index of the vertical group of systems on the page
	Rank   int // position inside Group, top to bottom
}

// Center returns the vertical center of the system.
func (s System) Center() float64 { return s.Bounds.CenterY() }

// Left returns the x where the staff lines start.
func (s System) Left() float64 { return s.Bounds.X0 }

// IsGrandStaff reports whether the system joins two staves.
func (s System) IsGrandStaff() bool { return len(s.Staves) == 2 }

// InstrumentLabel is a piece of text in the left margin that names an
// instrument.
type InstrumentLabel struct {
	Raw        string // text as found
	Text       string // normalized text used for matching
	Instrument Instrument
	Bounds     Rect
	Y          float64 // vertical center of Bounds
	Confidence float64
	Source     LabelSource
	Exact      bool // the whole text equals a vocabulary entry
	Page       int
}

// Mapping reasons for rejected associations.
const (
	ReasonTooFar         = "too-far"
	ReasonNotLeftOfStaff = "not-left-of-staff"
	ReasonOutcompeted    = "outcompeted"
	ReasonDuplicate      = "duplicate-in-group"
	ReasonNonTarget      = "non-target"
	ReasonLowConfidence  = "low-confidence"
)

// ReasonClaimedBy is the rejection reason when another instrument's label
// already owns the nearest system.
func ReasonClaimedBy(inst Instrument) string {
	return "claimed-by-" + string(inst)
}

// Mapping associates a label with a system. Rejected mappings are kept for
// diagnostics with System set to -1 when no system was chosen.
type Mapping struct {
	Label    InstrumentLabel
	System   int // index into PageLayout.Systems, or -1
	Distance float64
	Accepted bool
	Reason   string
	Strategy string
}

// Region is a rectangle of a source page selected for extraction.
type Region struct {
	Page       int
	Instrument Instrument
	Clip       Rect
	System     int
	Group      int
	Confidence float64
}

// PageLayout is everything detected on one page.
type PageLayout struct {
	Page    int
	Size    Size
	Systems []System
	Groups  int
}

// SystemsInGroup returns the systems of one group in rank order.
func (p PageLayout) SystemsInGroup(group int) []System {
	var out []System
	for _, s := range p.Systems {
		if s.Group == group {
			out = append(out, s)
		}
	}
	return out
}
