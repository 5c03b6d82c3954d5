package graphicsstate

import (
	"math"
	"sort"

	"github.com/wadansyaku/band-part-key-app/model"
)

// Rule is a horizontal mark on a page: a stroked segment or a thin filled
// box. Coordinates are page units with y measured down from the top.
type Rule struct {
	Y         float64
	X0, X1    float64
	Thickness float64
}

// Length returns the horizontal extent of the rule.
func (r Rule) Length() float64 { return r.X1 - r.X0 }

// subpath holds device-space points; curved subpaths never produce rules.
type subpath struct {
	points []model.Point
	closed bool
	curved bool
}

// Path is the path under construction between painting operators.
type Path struct {
	subpaths []subpath
}

// NewPath returns an empty path.
func NewPath() *Path { return &Path{} }

func (p *Path) current() *subpath {
	if len(p.subpaths) == 0 {
		p.subpaths = append(p.subpaths, subpath{})
	}
	return &p.subpaths[len(p.subpaths)-1]
}

// MoveTo starts a subpath (m operator).
func (p *Path) MoveTo(pt model.Point) {
	p.subpaths = append(p.subpaths, subpath{points: []model.Point{pt}})
}

// LineTo appends a straight segment (l operator).
func (p *Path) LineTo(pt model.Point) {
	sp := p.current()
	sp.points = append(sp.points, pt)
}

// CurveTo moves the current point to the end of a Bézier curve (c, v and
// y operators).
func (p *Path) CurveTo(end model.Point) {
	sp := p.current()
	sp.points = append(sp.points, end)
	sp.curved = true
}

// ClosePath closes the current subpath (h operator).
func (p *Path) ClosePath() {
	if len(p.subpaths) > 0 {
		p.current().closed = true
	}
}

// Rectangle appends a closed four-corner subpath (re operator).
func (p *Path) Rectangle(corners [4]model.Point) {
	p.subpaths = append(p.subpaths, subpath{points: corners[:], closed: true})
}

// Clear discards the path.
func (p *Path) Clear() { p.subpaths = p.subpaths[:0] }

// IsEmpty reports whether the path has no subpaths.
func (p *Path) IsEmpty() bool { return len(p.subpaths) == 0 }

// frame converts device space to top-down page units.
type frame struct {
	left, top float64
}

func (f frame) toPage(pt model.Point) (x, y float64) {
	return pt.X - f.left, f.top - pt.Y
}

// strokeRules returns the near-horizontal straight segments of the path.
func (p *Path) strokeRules(f frame, width, slope float64) []Rule {
	var out []Rule
	for _, sp := range p.subpaths {
		if sp.curved {
			continue
		}
		pts := sp.points
		if sp.closed && len(pts) > 2 {
			pts = append(pts[:len(pts):len(pts)], pts[0])
		}
		for i := 1; i < len(pts); i++ {
			x0, y0 := f.toPage(pts[i-1])
			x1, y1 := f.toPage(pts[i])
			if math.Abs(y1-y0) > slope || x0 == x1 {
				continue
			}
			out = append(out, Rule{
				Y:         (y0 + y1) / 2,
				X0:        math.Min(x0, x1),
				X1:        math.Max(x0, x1),
				Thickness: width,
			})
		}
	}
	return out
}

// fillRules returns filled subpaths that are thin horizontal boxes.
func (p *Path) fillRules(f frame, maxThickness float64) []Rule {
	var out []Rule
	for _, sp := range p.subpaths {
		if sp.curved || len(sp.points) < 3 {
			continue
		}
		var box model.Rect
		box.X0, box.Y0 = math.Inf(1), math.Inf(1)
		box.X1, box.Y1 = math.Inf(-1), math.Inf(-1)
		for _, pt := range sp.points {
			x, y := f.toPage(pt)
			box.X0, box.X1 = math.Min(box.X0, x), math.Max(box.X1, x)
			box.Y0, box.Y1 = math.Min(box.Y0, y), math.Max(box.Y1, y)
		}
		h := box.Height()
		if h > maxThickness || box.Width() < 4*math.Max(h, 0.25) {
			continue
		}
		out = append(out, Rule{Y: box.CenterY(), X0: box.X0, X1: box.X1, Thickness: h})
	}
	return out
}

// MergeRules joins rules on the same row whose extents touch or are
// separated by at most gap, as when a staff line is drawn bar by bar.
// Rows are rules whose y lies within yTolerance of the row's first rule.
func MergeRules(rules []Rule, yTolerance, gap float64) []Rule {
	sorted := append([]Rule(nil), rules...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	var out []Rule
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Y-sorted[start].Y <= yTolerance {
			end++
		}
		row := sorted[start:end]
		sort.Slice(row, func(i, j int) bool { return row[i].X0 < row[j].X0 })

		cur := row[0]
		for _, r := range row[1:] {
			if r.X0 <= cur.X1+gap {
				total := cur.Length() + r.Length()
				if total > 0 {
					cur.Y = (cur.Y*cur.Length() + r.Y*r.Length()) / total
				}
				cur.X1 = math.Max(cur.X1, r.X1)
				cur.Thickness = math.Max(cur.Thickness, r.Thickness)
				continue
			}
			out = append(out, cur)
			cur = r
		}
		out = append(out, cur)
		start = end
	}
	return out
}
