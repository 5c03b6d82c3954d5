package staff

import (
	"fmt"
	"image"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wadansyaku/band-part-key-app/model"
)

// Detector turns a page raster into staves and systems.
type Detector struct {
	cfg    Config
	finder LineFinder
}

// NewDetector returns a detector. A nil finder selects the default for the
// build (see NewLineFinder).
func NewDetector(cfg Config, finder LineFinder) *Detector {
	if finder == nil {
		finder = NewLineFinder(cfg)
	}
	return &Detector{cfg: cfg, finder: finder}
}

// Detect finds the systems on a page raster rendered at scale pixels per
// page unit. A page without staves yields no systems and no error.
func (d *Detector) Detect(img *image.Gray, page int, scale float64) ([]model.System, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid raster scale %v", scale)
	}
	lines, err := d.finder.FindLines(img)
	if err != nil {
		return nil, fmt.Errorf("line detection on page %d: %w", page+1, err)
	}
	return d.Systems(lines, page, scale), nil
}

// VectorScale is the resolution, in units per page unit, at which rules
// read from a content stream are grouped, so that pixel tolerances apply
// to them as to a 300 dpi raster.
const VectorScale = 300.0 / 72

// FromRules finds systems among horizontal rules taken from a page's
// content stream. Rules are in page units; those shorter than
// MinLineFraction of the page width are ignored.
func (d *Detector) FromRules(rules []Line, page int, pageWidth float64) []model.System {
	var lines []Line
	for _, r := range rules {
		if r.Length() < d.cfg.MinLineFraction*pageWidth {
			continue
		}
		lines = append(lines, Line{Y: r.Y * VectorScale, X0: r.X0 * VectorScale, X1: r.X1 * VectorScale})
	}
	return d.Systems(lines, page, VectorScale)
}

// Systems groups raster lines into staves, merges grand staves and assigns
// system groups.
func (d *Detector) Systems(lines []Line, page int, scale float64) []model.System {
	staves := d.Staves(lines, page, scale)
	systems := d.mergeGrandStaves(staves)
	d.assignGroups(systems)
	return systems
}

// Staves converts raster lines to page units and returns every window of
// exactly five uniformly spaced lines. Windows are tried at every line, so
// a stray rule next to a staff does not hide it. Where valid windows
// overlap, the most uniform one wins.
func (d *Detector) Staves(lines []Line, page int, scale float64) []model.Staff {
	lines = dedupe(lines, d.cfg.DedupePx)
	for i := range lines {
		lines[i].Y /= scale
		lines[i].X0 /= scale
		lines[i].X1 /= scale
	}

	type window struct {
		start int
		ratio float64
	}
	var candidates []window
	for i := 0; i+5 <= len(lines); i++ {
		pos := ys(lines[i : i+5])
		if !IsStaff(pos, d.cfg) || d.extended(lines, i) {
			continue
		}
		candidates = append(candidates, window{start: i, ratio: gapRatio(pos)})
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].ratio < candidates[b].ratio })

	used := make([]bool, len(lines))
	var starts []int
	for _, c := range candidates {
		if slices.Contains(used[c.start:c.start+5], true) {
			continue
		}
		for j := c.start; j < c.start+5; j++ {
			used[j] = true
		}
		starts = append(starts, c.start)
	}
	sort.Ints(starts)

	staves := make([]model.Staff, 0, len(starts))
	for _, i := range starts {
		staves = append(staves, newStaff(lines[i:i+5], page, len(staves)))
	}
	return staves
}

// extended reports whether the line just before or after the five-line
// window at start continues its spacing, as the sixth line of tablature
// does.
func (d *Detector) extended(lines []Line, start int) bool {
	limit := d.cfg.ExtensionRatio * meanSpacing(lines[start:start+5])
	if start > 0 && lines[start].Y-lines[start-1].Y <= limit {
		return true
	}
	end := start + 5
	return end < len(lines) && lines[end].Y-lines[end-1].Y <= limit
}

func newStaff(run []Line, page, ordinal int) model.Staff {
	s := model.Staff{
		Top:     run[0].Y,
		Bottom:  run[4].Y,
		Spacing: meanSpacing(run),
		Page:    page,
		Ordinal: ordinal,
		Left:    math.Inf(1),
		Right:   math.Inf(-1),
	}
	for i, l := range run {
		s.Lines[i] = l.Y
		s.Left = math.Min(s.Left, l.X0)
		s.Right = math.Max(s.Right, l.X1)
	}
	s.Center = (s.Top + s.Bottom) / 2
	return s
}

// IsStaff reports whether line positions form a staff: exactly five lines
// whose max/min gap ratio is below the tolerance and whose mean spacing
// lies in the configured range.
func IsStaff(positions []float64, cfg Config) bool {
	if len(positions) != 5 {
		return false
	}
	if !sort.Float64sAreSorted(positions) {
		return false
	}
	if gapRatio(positions) >= cfg.GapRatioTolerance {
		return false
	}
	spacing := (positions[4] - positions[0]) / 4
	return spacing >= cfg.MinSpacing && spacing <= cfg.MaxSpacing
}

// gapRatio returns max/min of consecutive gaps, +Inf for a zero gap and 1
// for fewer than three positions.
func gapRatio(positions []float64) float64 {
	if len(positions) < 3 {
		return 1
	}
	gaps := make([]float64, len(positions)-1)
	floats.SubTo(gaps, positions[1:], positions[:len(positions)-1])
	lo := floats.Min(gaps)
	if lo <= 0 {
		return math.Inf(1)
	}
	return floats.Max(gaps) / lo
}

func meanSpacing(run []Line) float64 {
	if len(run) < 2 {
		return 0
	}
	return (run[len(run)-1].Y - run[0].Y) / float64(len(run)-1)
}

func ys(run []Line) []float64 {
	out := make([]float64, len(run))
	for i, l := range run {
		out[i] = l.Y
	}
	return out
}

// mergeGrandStaves pairs consecutive staves that sit close together with
// matching spacing. A staff joins at most one partner.
func (d *Detector) mergeGrandStaves(staves []model.Staff) []model.System {
	var systems []model.System
	for i := 0; i < len(staves); i++ {
		s := staves[i]
		members := []model.Staff{s}
		if i+1 < len(staves) {
			next := staves[i+1]
			spacing := (s.Spacing + next.Spacing) / 2
			gap := next.Top - s.Bottom
			diff := math.Abs(s.Spacing-next.Spacing) / math.Max(s.Spacing, next.Spacing)
			if gap <= d.cfg.GrandStaffGap*spacing && diff <= d.cfg.GrandStaffSpacingTolerance {
				members = append(members, next)
				i++
			}
		}

		bounds := model.Rect{}
		for _, m := range members {
			bounds = bounds.Union(m.Bounds())
		}
		systems = append(systems, model.System{
			Staves: members,
			Bounds: bounds,
			Page:   s.Page,
			Index:  len(systems),
		})
	}
	return systems
}

// assignGroups splits the systems where the vertical gap is much larger
// than usual and numbers the systems inside each group.
func (d *Detector) assignGroups(systems []model.System) {
	if len(systems) == 0 {
		return
	}
	splits := map[int]bool{}
	if len(systems) >= 3 {
		gaps := make([]float64, len(systems)-1)
		for i := range gaps {
			gaps[i] = systems[i+1].Bounds.Y0 - systems[i].Bounds.Y1
		}
		sorted := append([]float64(nil), gaps...)
		sort.Float64s(sorted)
		median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
		if median > 0 {
			for i, g := range gaps {
				if g > d.cfg.GroupGapRatio*median {
					splits[i+1] = true
				}
			}
		}
	}

	group, rank := 0, 0
	for i := range systems {
		if splits[i] {
			group++
			rank = 0
		}
		systems[i].Group = group
		systems[i].Rank = rank
		rank++
	}
}
