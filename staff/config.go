package staff

// Config holds the thresholds of staff detection. Pixel values refer to
// the raster; spacings are in page units.
type Config struct {
	// DarkThreshold is the gray level below which a pixel counts as ink.
	DarkThreshold uint8 `yaml:"dark_threshold"`
	// MinLineFraction is the share of the raster width a row of ink must
	// cover to count as a staff line.
	MinLineFraction float64 `yaml:"min_line_fraction"`
	// MaxRunGapPx bridges small breaks in a line, such as bar lines drawn
	// in white or anti-aliasing holes.
	MaxRunGapPx int `yaml:"max_run_gap_px"`
	// MaxSlopePx is the largest vertical drift a Hough segment may have.
	MaxSlopePx int `yaml:"max_slope_px"`
	// DedupePx merges lines closer than this.
	DedupePx float64 `yaml:"dedupe_px"`

	// GapRatioTolerance bounds max/min of the gaps inside one staff.
	GapRatioTolerance float64 `yaml:"gap_ratio_tolerance"`
	// ExtensionRatio decides when a line just above or below five lines
	// continues the same rule set, which disqualifies them (six-line
	// tablature). It is a multiple of their mean spacing.
	ExtensionRatio float64 `yaml:"extension_ratio"`
	MinSpacing     float64 `yaml:"min_spacing"`
	MaxSpacing     float64 `yaml:"max_spacing"`

	// GrandStaffGap is the largest gap, in staff spacings, between two
	// staves merged into one system.
	GrandStaffGap float64 `yaml:"grand_staff_gap"`
	// GrandStaffSpacingTolerance is the largest relative spacing
	// difference between the two staves of a grand staff.
	GrandStaffSpacingTolerance float64 `yaml:"grand_staff_spacing_tolerance"`
	// GroupGapRatio splits systems into groups where a gap exceeds this
	// multiple of the median gap.
	GroupGapRatio float64 `yaml:"group_gap_ratio"`
}

// DefaultConfig returns the detection thresholds used for typical band
// scores rendered at 150 dpi.
func DefaultConfig() Config {
	return Config{
		DarkThreshold:              128,
		MinLineFraction:            0.5,
		MaxRunGapPx:                3,
		MaxSlopePx:                 2,
		DedupePx:                   3,
		GapRatioTolerance:          3.0,
		ExtensionRatio:             1.5,
		MinSpacing:                 2.5,
		MaxSpacing:                 20,
		GrandStaffGap:              3.0,
		GrandStaffSpacingTolerance: 0.25,
		GroupGapRatio:              1.8,
	}
}
