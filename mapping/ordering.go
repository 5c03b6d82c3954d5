package mapping

import (
	"math"

	"github.com/wadansyaku/band-part-key-app/model"
)

// OrderingPolicy scores how well an instrument fits a position in its
// system group. Lower is better.
type OrderingPolicy struct {
	order []model.Instrument
}

// NewOrderingPolicy builds a policy from a top-to-bottom sequence.
func NewOrderingPolicy(order []model.Instrument) OrderingPolicy {
	return OrderingPolicy{order: order}
}

// Penalty compares the system's relative rank in its group with where the
// instrument is expected. In groups of three or more the bottom system is
// kept for the last instrument in the order (drums by default).
func (p OrderingPolicy) Penalty(inst model.Instrument, rank, groupSize int) float64 {
	idx := -1
	for i, o := range p.order {
		if o == inst {
			idx = i
			break
		}
	}
	if idx < 0 || len(p.order) < 2 {
		return 0
	}
	expected := float64(idx) / float64(len(p.order)-1)
	rel := 0.0
	if groupSize > 1 {
		rel = float64(rank) / float64(groupSize-1)
	}
	penalty := math.Abs(rel - expected)
	if groupSize >= 3 && rank == groupSize-1 && idx != len(p.order)-1 {
		penalty++
	}
	return penalty
}
