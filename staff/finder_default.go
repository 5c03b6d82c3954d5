//go:build !cv

package staff

// NewLineFinder returns the projection finder. Builds with the "cv" tag use
// OpenCV's probabilistic Hough transform instead.
func NewLineFinder(cfg Config) LineFinder {
	return NewProjectionFinder(cfg)
}
