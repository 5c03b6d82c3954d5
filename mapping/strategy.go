package mapping

import "github.com/wadansyaku/band-part-key-app/model"

// Strategy names recorded on mappings.
const (
	StrategySpatial   = "spatial"
	StrategyCanonical = "canonical"
)

// Strategy assigns labels to the systems of one page. The result holds
// accepted and rejected mappings; no system has more than one accepted
// mapping and no group has two accepted mappings of the same target.
type Strategy interface {
	Name() string
	Map(page model.PageLayout, labels []model.InstrumentLabel) []model.Mapping
}

// Accepted returns only the accepted mappings.
func Accepted(mappings []model.Mapping) []model.Mapping {
	var out []model.Mapping
	for _, m := range mappings {
		if m.Accepted {
			out = append(out, m)
		}
	}
	return out
}
