package bandpart

import (
	"errors"
	"fmt"

	"github.com/wadansyaku/band-part-key-app/compose"
	"github.com/wadansyaku/band-part-key-app/graphicsstate"
	"github.com/wadansyaku/band-part-key-app/labels"
	"github.com/wadansyaku/band-part-key-app/mapping"
	"github.com/wadansyaku/band-part-key-app/model"
	"github.com/wadansyaku/band-part-key-app/selector"
	"github.com/wadansyaku/band-part-key-app/staff"
)

// Config gathers the settings of every pipeline stage.
type Config struct {
	// Targets are the instruments copied to the output. They override the
	// targets of the mapping and selector sections.
	Targets []model.Instrument `yaml:"targets"`
	// DPI is the resolution pages are rasterized at for staff detection,
	// recognition and the image fallback.
	DPI float64 `yaml:"dpi"`
	// VectorStaves looks for staff lines among the page's drawing
	// operators before rasterizing it.
	VectorStaves bool `yaml:"vector_staves"`

	Staff    staff.Config         `yaml:"staff"`
	Rules    graphicsstate.Config `yaml:"rules"`
	Labels   labels.Config        `yaml:"labels"`
	Mapping  mapping.Config       `yaml:"mapping"`
	Selector selector.Config      `yaml:"selector"`
	Layout   compose.LayoutConfig `yaml:"layout"`
}

// DefaultConfig returns the settings used for typical band scores.
func DefaultConfig() Config {
	return Config{
		Targets:      []model.Instrument{model.Vocal, model.Keyboard},
		DPI:          150,
		VectorStaves: true,
		Staff:        staff.DefaultConfig(),
		Rules:        graphicsstate.DefaultConfig(),
		Labels:       labels.DefaultConfig(),
		Mapping:      mapping.DefaultConfig(),
		Selector:     selector.DefaultConfig(),
		Layout:       compose.DefaultLayoutConfig(),
	}
}

// Validate reports every setting that would make extraction meaningless.
func (c Config) Validate() error {
	var errs []error
	if len(c.Targets) == 0 {
		errs = append(errs, errors.New("targets: at least one instrument is required"))
	}
	for _, t := range c.Targets {
		if _, err := model.ParseInstrument(string(t)); err != nil {
			errs = append(errs, fmt.Errorf("targets: %w", err))
		}
	}
	if c.DPI < 36 || c.DPI > 600 {
		errs = append(errs, fmt.Errorf("dpi: %v outside [36, 600]", c.DPI))
	}
	if c.Staff.GapRatioTolerance <= 1 {
		errs = append(errs, fmt.Errorf("staff.gap_ratio_tolerance: %v must exceed 1", c.Staff.GapRatioTolerance))
	}
	if c.Staff.MinSpacing <= 0 || c.Staff.MaxSpacing < c.Staff.MinSpacing {
		errs = append(errs, fmt.Errorf("staff: spacing range [%v, %v] is empty", c.Staff.MinSpacing, c.Staff.MaxSpacing))
	}
	if c.Labels.StripFraction <= 0 || c.Labels.StripFraction > 1 {
		errs = append(errs, fmt.Errorf("labels.strip_fraction: %v outside (0, 1]", c.Labels.StripFraction))
	}
	if c.Mapping.MaxDistance <= 0 {
		errs = append(errs, fmt.Errorf("mapping.max_distance: %v must be positive", c.Mapping.MaxDistance))
	}
	if c.Selector.MinPad > c.Selector.MaxPad {
		errs = append(errs, fmt.Errorf("selector: min_pad %v exceeds max_pad %v", c.Selector.MinPad, c.Selector.MaxPad))
	}
	if c.Layout.PrintableWidth() <= 0 || c.Layout.PrintableHeight() <= 0 {
		errs = append(errs, errors.New("layout: margins leave no printable area"))
	}
	if c.Layout.RegionHeight < 0 {
		errs = append(errs, fmt.Errorf("layout.region_height: %v is negative", c.Layout.RegionHeight))
	}
	return errors.Join(errs...)
}

// resolved returns the config with Targets pushed into the stages that
// use them.
func (c Config) resolved() Config {
	targets := append([]model.Instrument(nil), c.Targets...)
	c.Targets = targets
	c.Mapping.Targets = targets
	c.Selector.Targets = targets
	c.Mapping.Order = append([]model.Instrument(nil), c.Mapping.Order...)
	return c
}
