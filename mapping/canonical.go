package mapping

import (
	"math"

	"github.com/wadansyaku/band-part-key-app/model"
)

// CanonicalConfidence is the confidence of mappings made without a label.
const CanonicalConfidence = 0.5

// Canonical assigns targets by their conventional position in each system
// group. It ignores labels and is used for pages where none were found.
type Canonical struct {
	cfg Config
}

// NewCanonical returns the position-driven fallback strategy.
func NewCanonical(cfg Config) *Canonical {
	return &Canonical{cfg: cfg}
}

// Name implements Strategy.
func (c *Canonical) Name() string { return StrategyCanonical }

// Map implements Strategy.
func (c *Canonical) Map(page model.PageLayout, _ []model.InstrumentLabel) []model.Mapping {
	var out []model.Mapping
	for g := 0; g < page.Groups; g++ {
		members := page.SystemsInGroup(g)
		if len(members) == 0 {
			continue
		}
		var span model.Rect
		for _, sys := range members {
			span = span.Union(sys.Bounds)
		}

		taken := map[int]bool{}
		for _, t := range []struct {
			inst model.Instrument
			band Band
		}{
			{model.Vocal, c.cfg.VocalBand},
			{model.Keyboard, c.cfg.KeyboardBand},
		} {
			if !c.cfg.isTarget(t.inst) {
				continue
			}
			best, bestDist := -1, math.Inf(1)
			for _, sys := range members {
				if taken[sys.Index] {
					continue
				}
				d := math.Abs(relative(sys, span) - t.band.Center())
				if d < bestDist {
					best, bestDist = sys.Index, d
				}
			}
			if best < 0 {
				continue
			}
			taken[best] = true
			out = append(out, c.mapping(page, best, t.inst, bestDist*span.Height()))
		}
	}
	return out
}

func (c *Canonical) mapping(page model.PageLayout, idx int, inst model.Instrument, dist float64) model.Mapping {
	sys := page.Systems[idx]
	return model.Mapping{
		Label: model.InstrumentLabel{
			Text:       string(inst),
			Instrument: inst,
			Bounds:     model.Rect{X0: 0, Y0: sys.Bounds.Y0, X1: sys.Left(), Y1: sys.Bounds.Y1},
			Y:          sys.Center(),
			Confidence: CanonicalConfidence,
			Page:       page.Page,
		},
		System:   idx,
		Distance: dist,
		Accepted: true,
		Strategy: StrategyCanonical,
	}
}

// relative returns the system center as a fraction of the group's height.
func relative(sys model.System, span model.Rect) float64 {
	if span.Height() <= 0 {
		return 0.5
	}
	return (sys.Center() - span.Y0) / span.Height()
}
