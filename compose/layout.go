package compose

import (
	"math"

	"github.com/wadansyaku/band-part-key-app/model"
)

// LayoutConfig describes the output pages. All values are in points.
type LayoutConfig struct {
	PageWidth    float64 `yaml:"page_width"`
	PageHeight   float64 `yaml:"page_height"`
	MarginTop    float64 `yaml:"margin_top"`
	MarginBottom float64 `yaml:"margin_bottom"`
	MarginLeft   float64 `yaml:"margin_left"`
	MarginRight  float64 `yaml:"margin_right"`
	// RegionHeight fixes the height of every placed region. Zero keeps the
	// clip's aspect ratio at the printable width.
	RegionHeight float64 `yaml:"region_height"`
	Gap          float64 `yaml:"gap"`

	ChipWidth   float64 `yaml:"chip_width"`
	ChipHeight  float64 `yaml:"chip_height"`
	ChipOffsetX float64 `yaml:"chip_offset_x"`
	ChipOffsetY float64 `yaml:"chip_offset_y"`
}

// DefaultLayoutConfig returns an A4 portrait layout.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		PageWidth:    595,
		PageHeight:   842,
		MarginTop:    20,
		MarginBottom: 20,
		MarginLeft:   20,
		MarginRight:  20,
		Gap:          8,
		ChipWidth:    40,
		ChipHeight:   14,
		ChipOffsetX:  4,
		ChipOffsetY:  2,
	}
}

// PrintableWidth returns the width between the side margins.
func (c LayoutConfig) PrintableWidth() float64 {
	return c.PageWidth - c.MarginLeft - c.MarginRight
}

// PrintableHeight returns the height between the top and bottom margins.
func (c LayoutConfig) PrintableHeight() float64 {
	return c.PageHeight - c.MarginTop - c.MarginBottom
}

// Placement is where a region lands in the output. Rectangles use a
// top-down y axis on the output page.
type Placement struct {
	Page  int
	Dest  model.Rect
	Chip  model.Rect
	Scale float64
}

// Layout is the write cursor of the output. It only moves forward: pages
// are appended when a region does not fit and never removed.
type Layout struct {
	cfg    LayoutConfig
	pages  int
	cursor float64
}

// NewLayout returns a layout with no pages.
func NewLayout(cfg LayoutConfig) *Layout {
	return &Layout{cfg: cfg, cursor: cfg.MarginTop}
}

// Size returns the destination size of a clip, scaled to the printable
// width or to RegionHeight, and never taller than the printable height.
func (l *Layout) Size(clip model.Rect) (w, h, scale float64) {
	if clip.Width() <= 0 || clip.Height() <= 0 {
		return 0, 0, 0
	}
	pw, ph := l.cfg.PrintableWidth(), l.cfg.PrintableHeight()

	scale = pw / clip.Width()
	if l.cfg.RegionHeight > 0 {
		scale = math.Min(scale, l.cfg.RegionHeight/clip.Height())
	}
	if clip.Height()*scale > ph {
		scale = ph / clip.Height()
	}
	return clip.Width() * scale, clip.Height() * scale, scale
}

// Place reserves space for a clip and advances the cursor. A new page is
// started when the region would cross the bottom margin; the region is
// then always placed.
func (l *Layout) Place(clip model.Rect) Placement {
	w, h, scale := l.Size(clip)
	if l.pages == 0 || l.cursor+h > l.cfg.PageHeight-l.cfg.MarginBottom {
		l.pages++
		l.cursor = l.cfg.MarginTop
	}

	dest := model.NewRect(l.cfg.MarginLeft, l.cursor, w, h)
	chip := model.NewRect(dest.X0+l.cfg.ChipOffsetX, dest.Y0+l.cfg.ChipOffsetY, l.cfg.ChipWidth, l.cfg.ChipHeight)
	l.cursor += h + l.cfg.Gap
	return Placement{Page: l.pages - 1, Dest: dest, Chip: chip, Scale: scale}
}

// Pages returns the number of output pages started so far.
func (l *Layout) Pages() int { return l.pages }

// Cursor returns the current page index and vertical write offset.
func (l *Layout) Cursor() (page int, y float64) {
	return l.pages - 1, l.cursor
}
