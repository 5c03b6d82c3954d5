package mapping

import (
	"math"
	"slices"

	"github.com/wadansyaku/band-part-key-app/model"
)

// SplitGroups starts a new system group at every system labelled with an
// instrument its group already holds. Tightly engraved pages repeat the
// ensemble with gaps too even to split on, and would otherwise keep only
// one part per instrument. Geometric groups are kept; group and rank are
// renumbered on a copy of the systems.
func SplitGroups(page model.PageLayout, labels []model.InstrumentLabel, cfg Config) model.PageLayout {
	if len(page.Systems) == 0 {
		return page
	}

	named := make([][]model.Instrument, len(page.Systems))
	for _, l := range labels {
		if l.Instrument == model.Unknown {
			continue
		}
		best, bestDist := -1, math.Inf(1)
		for i, sys := range page.Systems {
			if l.Bounds.X0 > sys.Left()+cfg.AlignTolerance {
				continue
			}
			if d := math.Abs(l.Y - sys.Center()); d <= cfg.MaxDistance && d < bestDist {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			named[best] = append(named[best], l.Instrument)
		}
	}

	systems := slices.Clone(page.Systems)
	held := map[model.Instrument]bool{}
	group, rank := 0, 0
	for i := range systems {
		split := i > 0 && page.Systems[i].Group != page.Systems[i-1].Group
		for _, inst := range named[i] {
			split = split || held[inst]
		}
		if split {
			group++
			rank = 0
			clear(held)
		}
		for _, inst := range named[i] {
			held[inst] = true
		}
		systems[i].Group = group
		systems[i].Rank = rank
		rank++
	}
	page.Systems = systems
	page.Groups = group + 1
	return page
}
