package staff

import (
	"image"
	"sort"
)

// Line is a detected horizontal rule in raster pixels.
type Line struct {
	Y      float64
	X0, X1 float64
}

// Length returns the horizontal extent of the line.
func (l Line) Length() float64 { return l.X1 - l.X0 }

// LineFinder finds near-horizontal rules in a grayscale raster.
type LineFinder interface {
	FindLines(img *image.Gray) ([]Line, error)
}

// ProjectionFinder finds lines by scanning each row for its longest run of
// ink. It needs no native libraries.
type ProjectionFinder struct {
	cfg Config
}

// NewProjectionFinder returns a projection-based finder.
func NewProjectionFinder(cfg Config) *ProjectionFinder {
	return &ProjectionFinder{cfg: cfg}
}

// FindLines returns one line per band of consecutive qualifying rows.
func (f *ProjectionFinder) FindLines(img *image.Gray) ([]Line, error) {
	b := img.Bounds()
	minRun := int(float64(b.Dx()) * f.cfg.MinLineFraction)
	if minRun < 1 {
		minRun = 1
	}

	var lines []Line
	var band []Line
	flush := func() {
		if len(band) == 0 {
			return
		}
		merged := Line{X0: band[0].X0, X1: band[0].X1}
		for _, l := range band {
			merged.Y += l.Y
			merged.X0 = min(merged.X0, l.X0)
			merged.X1 = max(merged.X1, l.X1)
		}
		merged.Y /= float64(len(band))
		lines = append(lines, merged)
		band = band[:0]
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		x0, x1 := f.longestRun(img, y)
		if x1-x0 >= minRun {
			band = append(band, Line{Y: float64(y - b.Min.Y), X0: float64(x0 - b.Min.X), X1: float64(x1 - b.Min.X)})
			continue
		}
		flush()
	}
	flush()
	return lines, nil
}

// longestRun returns the [x0, x1) extent of the longest dark run on row y,
// bridging gaps of at most MaxRunGapPx.
func (f *ProjectionFinder) longestRun(img *image.Gray, y int) (int, int) {
	b := img.Bounds()
	row := img.Pix[(y-b.Min.Y)*img.Stride : (y-b.Min.Y)*img.Stride+b.Dx()]

	bestStart, bestEnd := 0, 0
	start, lastDark := -1, -1
	for i, v := range row {
		if v >= f.cfg.DarkThreshold {
			continue
		}
		if start < 0 || i-lastDark-1 > f.cfg.MaxRunGapPx {
			start = i
		}
		lastDark = i
		if lastDark+1-start > bestEnd-bestStart {
			bestStart, bestEnd = start, lastDark+1
		}
	}
	return bestStart + b.Min.X, bestEnd + b.Min.X
}

// dedupe sorts lines by y and merges those closer than tol.
func dedupe(lines []Line, tol float64) []Line {
	if len(lines) == 0 {
		return nil
	}
	sorted := append([]Line(nil), lines...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	out := []Line{sorted[0]}
	count := []int{1}
	for _, l := range sorted[1:] {
		last := &out[len(out)-1]
		n := count[len(count)-1]
		if l.Y-last.Y <= tol {
			last.Y = (last.Y*float64(n) + l.Y) / float64(n+1)
			last.X0 = min(last.X0, l.X0)
			last.X1 = max(last.X1, l.X1)
			count[len(count)-1]++
			continue
		}
		out = append(out, l)
		count = append(count, 1)
	}
	return out
}
