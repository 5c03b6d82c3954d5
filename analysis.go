package bandpart

import (
	"github.com/wadansyaku/band-part-key-app/compose"
	"github.com/wadansyaku/band-part-key-app/model"
)

// How the systems of a page were found.
const (
	DetectionVector = "vector" // staff lines read from drawing operators
	DetectionRaster = "raster" // staff lines found in the rendered page
)

// PageAnalysis is what the pipeline found on one page. Rejected mappings
// are kept for diagnostics.
type PageAnalysis struct {
	Page      int // 0-indexed
	Layout    model.PageLayout
	Detection string
	Labels    []model.InstrumentLabel
	Strategy  string
	Mappings  []model.Mapping
	Regions   []model.Region
}

// Analysis holds the page analyses of one run in page order.
type Analysis struct {
	Pages []PageAnalysis
}

// Regions returns the regions of every page in output order.
func (a *Analysis) Regions() []model.Region {
	var out []model.Region
	for _, p := range a.Pages {
		out = append(out, p.Regions...)
	}
	return out
}

// Parts counts regions per instrument.
func (a *Analysis) Parts() map[model.Instrument]int {
	return countParts(a.Regions())
}

// Result describes a written output document.
type Result struct {
	Pages      int // output pages
	Regions    []model.Region
	Placements []compose.Placement // one per region, same order
	// Rasterized counts regions placed as images.
	Rasterized int
	// Analysis is set by Extract; ComposeRegions leaves it nil.
	Analysis *Analysis
}

// Parts counts placed regions per instrument.
func (r *Result) Parts() map[model.Instrument]int {
	return countParts(r.Regions)
}

func countParts(regions []model.Region) map[model.Instrument]int {
	parts := make(map[model.Instrument]int)
	for _, r := range regions {
		parts[r.Instrument]++
	}
	return parts
}
