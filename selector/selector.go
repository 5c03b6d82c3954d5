// Package selector turns accepted mappings into the regions of a page that
// are copied to the output.
package selector

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/wadansyaku/band-part-key-app/model"
)

// Config controls which mappings become regions and how they are clipped.
type Config struct {
	Targets       []model.Instrument `yaml:"targets"`
	MinConfidence float64            `yaml:"min_confidence"`
	// MinPad and MaxPad bound the space kept above and below a system,
	// in page units.
	MinPad float64 `yaml:"min_pad"`
	MaxPad float64 `yaml:"max_pad"`
}

// DefaultConfig returns the selector defaults.
func DefaultConfig() Config {
	return Config{
		Targets:       []model.Instrument{model.Vocal, model.Keyboard},
		MinConfidence: 0.5,
		MinPad:        6,
		MaxPad:        36,
	}
}

// Selector filters mappings and builds clip rectangles.
type Selector struct {
	cfg     Config
	targets model.InstrumentSet
	rank    map[model.Instrument]int
	log     zerolog.Logger
}

// New returns a selector.
func New(cfg Config, log zerolog.Logger) *Selector {
	rank := make(map[model.Instrument]int, len(cfg.Targets))
	for i, t := range cfg.Targets {
		rank[t] = i
	}
	return &Selector{cfg: cfg, targets: model.NewInstrumentSet(cfg.Targets...), rank: rank, log: log}
}

// Select returns the regions of one page in reading order: by system, then
// in target order. Mappings that fall below the confidence floor are
// marked rejected in place. An empty result means the page contributes
// nothing.
func (s *Selector) Select(page model.PageLayout, mappings []model.Mapping) []model.Region {
	var regions []model.Region
	for i := range mappings {
		m := &mappings[i]
		if !m.Accepted || !s.targets.Has(m.Label.Instrument) {
			continue
		}
		if m.System < 0 || m.System >= len(page.Systems) {
			continue
		}
		if m.Label.Confidence < s.cfg.MinConfidence {
			m.Accepted = false
			m.Reason = model.ReasonLowConfidence
			s.log.Debug().
				Int("page", page.Page+1).
				Str("label", m.Label.Text).
				Float64("confidence", m.Label.Confidence).
				Msg("mapping below confidence floor")
			continue
		}
		sys := page.Systems[m.System]
		regions = append(regions, model.Region{
			Page:       page.Page,
			Instrument: m.Label.Instrument,
			Clip:       s.Clip(page, m.System),
			System:     m.System,
			Group:      sys.Group,
			Confidence: m.Label.Confidence,
		})
	}

	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if a.System != b.System {
			return page.Systems[a.System].Bounds.Y0 < page.Systems[b.System].Bounds.Y0
		}
		return s.rank[a.Instrument] < s.rank[b.Instrument]
	})
	return regions
}

// Clip returns the rectangle copied for a system: the full page width and
// the system bounds padded by half the gap to each neighbour.
func (s *Selector) Clip(page model.PageLayout, idx int) model.Rect {
	sys := page.Systems[idx]
	fallback := s.fallbackPad(page)

	above, below := fallback, fallback
	for i, other := range page.Systems {
		if i == idx {
			continue
		}
		if gap := sys.Bounds.Y0 - other.Bounds.Y1; gap >= 0 && gap/2 < above {
			above = gap / 2
		}
		if gap := other.Bounds.Y0 - sys.Bounds.Y1; gap >= 0 && gap/2 < below {
			below = gap / 2
		}
	}

	clip := model.Rect{
		X0: 0,
		Y0: sys.Bounds.Y0 - s.pad(above),
		X1: page.Size.Width,
		Y1: sys.Bounds.Y1 + s.pad(below),
	}
	return clip.Clamp(model.Rect{X1: page.Size.Width, Y1: page.Size.Height})
}

func (s *Selector) pad(v float64) float64 {
	return math.Max(s.cfg.MinPad, math.Min(s.cfg.MaxPad, v))
}

// fallbackPad is the padding used on a side with no neighbour: half the
// median gap between systems on the page, or MaxPad for a lone system.
func (s *Selector) fallbackPad(page model.PageLayout) float64 {
	if len(page.Systems) < 2 {
		return s.cfg.MaxPad
	}
	tops := make([]model.System, len(page.Systems))
	copy(tops, page.Systems)
	sort.Slice(tops, func(i, j int) bool { return tops[i].Bounds.Y0 < tops[j].Bounds.Y0 })

	var gaps []float64
	for i := 1; i < len(tops); i++ {
		if g := tops[i].Bounds.Y0 - tops[i-1].Bounds.Y1; g > 0 {
			gaps = append(gaps, g)
		}
	}
	if len(gaps) == 0 {
		return s.cfg.MinPad
	}
	sort.Float64s(gaps)
	return stat.Quantile(0.5, stat.Empirical, gaps, nil) / 2
}
