package mapping

import "github.com/wadansyaku/band-part-key-app/model"

// Band is a vertical slice of a system group, as fractions of its height.
type Band struct {
	Y      float64 `yaml:"y"`
	Height float64 `yaml:"height"`
}

// Center returns the middle of the band.
func (b Band) Center() float64 { return b.Y + b.Height/2 }

// Config holds the thresholds of label-to-system mapping. Distances are in
// page units.
type Config struct {
	// Targets are the instruments being extracted. Every other known
	// instrument is only used to exclude systems.
	Targets []model.Instrument `yaml:"targets"`
	// Order is the conventional top-to-bottom ensemble order used to
	// break near ties.
	Order []model.Instrument `yaml:"order"`

	MaxDistance    float64 `yaml:"max_distance"`
	AlignTolerance float64 `yaml:"align_tolerance"`
	ClaimDistance  float64 `yaml:"claim_distance"`
	// DisplacedReach widens MaxDistance for a label whose in-range
	// systems were all claimed by other instruments.
	DisplacedReach float64 `yaml:"displaced_reach"`
	TieTolerance   float64 `yaml:"tie_tolerance"`

	VocalBand    Band `yaml:"vocal_band"`
	KeyboardBand Band `yaml:"keyboard_band"`
}

// DefaultConfig returns the mapping thresholds.
func DefaultConfig() Config {
	return Config{
		Targets:        []model.Instrument{model.Vocal, model.Keyboard},
		Order:          append([]model.Instrument(nil), model.Instruments...),
		MaxDistance:    100,
		AlignTolerance: 12,
		ClaimDistance:  50,
		DisplacedReach: 1.6,
		TieTolerance:   8,
		VocalBand:      Band{Y: 0.15, Height: 0.15},
		KeyboardBand:   Band{Y: 0.45, Height: 0.20},
	}
}

func (c Config) isTarget(inst model.Instrument) bool {
	for _, t := range c.Targets {
		if t == inst {
			return true
		}
	}
	return false
}
