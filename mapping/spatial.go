package mapping

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wadansyaku/band-part-key-app/model"
)

// Spatial maps labels to the systems they sit next to. Labels of
// non-target instruments claim their nearest system first so a target
// label can never take a system that belongs to, say, the guitar.
type Spatial struct {
	cfg    Config
	policy OrderingPolicy
	log    zerolog.Logger
}

// NewSpatial returns the label-driven strategy.
func NewSpatial(cfg Config, log zerolog.Logger) *Spatial {
	return &Spatial{cfg: cfg, policy: NewOrderingPolicy(cfg.Order), log: log}
}

// Name implements Strategy.
func (s *Spatial) Name() string { return StrategySpatial }

type candidate struct {
	system   int
	distance float64
	penalty  float64
}

// proposer is a target label walking its candidate list.
type proposer struct {
	label      int
	candidates []candidate
	next       int
	reason     string
}

func (p *proposer) current() candidate { return p.candidates[p.next-1] }

// Map implements Strategy. The result has one mapping per label, in label
// order. Groups are first split with SplitGroups.
func (s *Spatial) Map(page model.PageLayout, labels []model.InstrumentLabel) []model.Mapping {
	page = SplitGroups(page, labels, s.cfg)
	out := make([]model.Mapping, len(labels))
	for i, l := range labels {
		out[i] = model.Mapping{Label: l, System: -1, Strategy: StrategySpatial}
	}
	groupSize := map[int]int{}
	for _, sys := range page.Systems {
		groupSize[sys.Group]++
	}

	claimed := s.claim(page, labels, out)

	// Target labels compete for the systems that remain.
	var queue []*proposer
	for i, l := range labels {
		if !s.cfg.isTarget(l.Instrument) {
			continue
		}
		cands, reason := s.targetCandidates(page, l, claimed, groupSize)
		if len(cands) == 0 {
			out[i].Reason = reason
			s.reject(l, reason)
			continue
		}
		queue = append(queue, &proposer{label: i, candidates: cands})
	}

	bySystem := map[int]*proposer{}
	type slot struct {
		group int
		inst  model.Instrument
	}
	byGroup := map[slot]*proposer{}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if p.next >= len(p.candidates) {
			out[p.label].Reason = p.reason
			s.reject(labels[p.label], p.reason)
			continue
		}
		c := p.candidates[p.next]
		p.next++
		sys := page.Systems[c.system]
		key := slot{sys.Group, labels[p.label].Instrument}

		holder := bySystem[c.system]
		if holder != nil && !s.beats(p, c, holder) {
			p.reason = model.ReasonOutcompeted
			queue = append(queue, p)
			continue
		}
		rival := byGroup[key]
		if rival != nil && rival != holder && !s.beats(p, c, rival) {
			p.reason = model.ReasonDuplicate
			queue = append(queue, p)
			continue
		}

		if holder != nil {
			holder.reason = model.ReasonOutcompeted
			delete(byGroup, slot{sys.Group, labels[holder.label].Instrument})
			queue = append(queue, holder)
		}
		if rival != nil && rival != holder {
			rival.reason = model.ReasonDuplicate
			delete(bySystem, rival.current().system)
			queue = append(queue, rival)
		}
		bySystem[c.system] = p
		byGroup[key] = p
	}

	for sysIdx, p := range bySystem {
		c := p.current()
		out[p.label].Accepted = true
		out[p.label].System = sysIdx
		out[p.label].Distance = c.distance
		out[p.label].Reason = ""
	}
	return out
}

// beats reports whether p, proposing c, displaces the holder of a slot.
// Lower distance wins; then lower ordering penalty; then label order.
func (s *Spatial) beats(p *proposer, c candidate, holder *proposer) bool {
	h := holder.current()
	if c.distance != h.distance {
		return c.distance < h.distance
	}
	if c.penalty != h.penalty {
		return c.penalty < h.penalty
	}
	return p.label < holder.label
}

// claim lets each non-target label take its nearest unclaimed system within
// ClaimDistance, closest labels first. It returns the claiming instrument
// per system.
func (s *Spatial) claim(page model.PageLayout, labels []model.InstrumentLabel, out []model.Mapping) map[int]model.Instrument {
	type claimant struct {
		label int
		cands []candidate
	}
	var claimants []claimant
	for i, l := range labels {
		if s.cfg.isTarget(l.Instrument) || l.Instrument == model.Unknown {
			continue
		}
		cands, reason := s.inReach(page, l, s.cfg.ClaimDistance)
		if len(cands) == 0 {
			out[i].Reason = reason
			continue
		}
		claimants = append(claimants, claimant{label: i, cands: cands})
	}
	sort.SliceStable(claimants, func(i, j int) bool {
		return claimants[i].cands[0].distance < claimants[j].cands[0].distance
	})

	claimed := map[int]model.Instrument{}
	for _, c := range claimants {
		out[c.label].Reason = model.ReasonOutcompeted
		for _, cand := range c.cands {
			if _, taken := claimed[cand.system]; taken {
				continue
			}
			claimed[cand.system] = labels[c.label].Instrument
			out[c.label].Accepted = true
			out[c.label].System = cand.system
			out[c.label].Distance = cand.distance
			out[c.label].Reason = model.ReasonNonTarget
			break
		}
	}
	return claimed
}

// inReach returns the systems within reach that the label precedes,
// nearest first, or the reason there are none.
func (s *Spatial) inReach(page model.PageLayout, l model.InstrumentLabel, reach float64) ([]candidate, string) {
	var cands []candidate
	near := false
	for i, sys := range page.Systems {
		d := math.Abs(l.Y - sys.Center())
		if d > reach {
			continue
		}
		near = true
		if l.Bounds.X0 > sys.Left()+s.cfg.AlignTolerance {
			continue
		}
		cands = append(cands, candidate{system: i, distance: d})
	}
	if len(cands) == 0 {
		if near {
			return nil, model.ReasonNotLeftOfStaff
		}
		return nil, model.ReasonTooFar
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].distance < cands[j].distance })
	return cands, ""
}

// targetCandidates drops claimed systems. A label left with nothing because
// of claims is displaced and may reach further.
func (s *Spatial) targetCandidates(page model.PageLayout, l model.InstrumentLabel, claimed map[int]model.Instrument, groupSize map[int]int) ([]candidate, string) {
	cands, reason := s.inReach(page, l, s.cfg.MaxDistance)
	if len(cands) == 0 {
		return nil, reason
	}
	free := unclaimed(cands, claimed)
	if len(free) == 0 {
		reason = model.ReasonClaimedBy(claimed[cands[0].system])
		wide, _ := s.inReach(page, l, s.cfg.MaxDistance*s.cfg.DisplacedReach)
		free = unclaimed(wide, claimed)
		if len(free) == 0 {
			return nil, reason
		}
	}

	for i := range free {
		sys := page.Systems[free[i].system]
		free[i].penalty = s.policy.Penalty(l.Instrument, sys.Rank, groupSize[sys.Group])
	}
	return s.orderTies(free), ""
}

func unclaimed(cands []candidate, claimed map[int]model.Instrument) []candidate {
	var out []candidate
	for _, c := range cands {
		if _, taken := claimed[c.system]; !taken {
			out = append(out, c)
		}
	}
	return out
}

// orderTies reorders runs of candidates whose distances are within
// TieTolerance of the run's nearest member by ordering penalty.
func (s *Spatial) orderTies(cands []candidate) []candidate {
	for start := 0; start < len(cands); {
		end := start + 1
		for end < len(cands) && cands[end].distance-cands[start].distance <= s.cfg.TieTolerance {
			end++
		}
		run := cands[start:end]
		sort.SliceStable(run, func(i, j int) bool {
			if run[i].penalty != run[j].penalty {
				return run[i].penalty < run[j].penalty
			}
			return run[i].distance < run[j].distance
		})
		start = end
	}
	return cands
}

func (s *Spatial) reject(l model.InstrumentLabel, reason string) {
	s.log.Debug().
		Int("page", l.Page+1).
		Str("label", l.Text).
		Str("instrument", string(l.Instrument)).
		Float64("y", l.Y).
		Str("reason", reason).
		Msg("label dropped")
}
