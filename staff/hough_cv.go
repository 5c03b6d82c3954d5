//go:build cv

package staff

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// NewLineFinder returns the OpenCV Hough finder.
func NewLineFinder(cfg Config) LineFinder {
	return NewHoughFinder(cfg)
}

// HoughFinder detects staff lines with Canny edges and a probabilistic
// Hough transform restricted to near-horizontal segments.
type HoughFinder struct {
	cfg Config
}

// NewHoughFinder returns a Hough-based finder.
func NewHoughFinder(cfg Config) *HoughFinder {
	return &HoughFinder{cfg: cfg}
}

// FindLines returns the horizontal segments found in img. Each staff line
// produces edges on both sides; dedupe merges them later.
func (f *HoughFinder) FindLines(img *image.Gray) ([]Line, error) {
	b := img.Bounds()
	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, grayPix(img))
	if err != nil {
		return nil, fmt.Errorf("failed to load raster: %w", err)
	}
	defer mat.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(mat, &blurred, image.Point{X: 3, Y: 3}, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, 50, 150)

	// Close short gaps along the horizontal axis so bar lines and note
	// heads do not split staff lines.
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 9, Y: 1})
	defer kernel.Close()
	gocv.MorphologyEx(edges, &edges, gocv.MorphClose, kernel)

	minLen := float32(float64(b.Dx()) * f.cfg.MinLineFraction)
	segments := gocv.NewMat()
	defer segments.Close()
	gocv.HoughLinesPWithParams(edges, &segments, 1, float32(math.Pi/180), int(minLen/2), minLen, float32(f.cfg.MaxRunGapPx*4))

	var lines []Line
	for i := 0; i < segments.Rows(); i++ {
		v := segments.GetVeciAt(i, 0)
		x1, y1, x2, y2 := float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])
		if math.Abs(y2-y1) > float64(f.cfg.MaxSlopePx) {
			continue
		}
		lines = append(lines, Line{
			Y:  (y1 + y2) / 2,
			X0: math.Min(x1, x2),
			X1: math.Max(x1, x2),
		})
	}
	return lines, nil
}

// grayPix returns the pixel rows of img without stride padding.
func grayPix(img *image.Gray) []byte {
	b := img.Bounds()
	if img.Stride == b.Dx() && img.Rect.Min == (image.Point{}) {
		return img.Pix
	}
	out := make([]byte, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := y * img.Stride
		out = append(out, img.Pix[row:row+b.Dx()]...)
	}
	return out
}
