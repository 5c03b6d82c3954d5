package model

import "math"

// Point represents a 2D point
type Point struct {
	X, Y float64
}

// Size is a width and height in page units.
type Size struct {
	Width, Height float64
}

// Rect is an axis-aligned rectangle in page units. Y grows downwards, so
// Y0 is the top edge and Y1 the bottom edge.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// NewRect creates a rectangle from its top-left corner and size.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X0: x, Y0: y, X1: x + width, Y1: y + height}
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// CenterY returns the vertical midpoint.
func (r Rect) CenterY() float64 { return (r.Y0 + r.Y1) / 2 }

// Union returns the smallest rectangle containing both. The union with an
// empty rectangle is the other rectangle.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return Rect{
		X0: math.Min(r.X0, other.X0),
		Y0: math.Min(r.Y0, other.Y0),
		X1: math.Max(r.X1, other.X1),
		Y1: math.Max(r.Y1, other.Y1),
	}
}

// Clamp restricts the rectangle to bounds.
func (r Rect) Clamp(bounds Rect) Rect {
	c := Rect{
		X0: math.Max(r.X0, bounds.X0),
		Y0: math.Max(r.Y0, bounds.Y0),
		X1: math.Min(r.X1, bounds.X1),
		Y1: math.Min(r.Y1, bounds.Y1),
	}
	if c.X1 < c.X0 {
		c.X1 = c.X0
	}
	if c.Y1 < c.Y0 {
		c.Y1 = c.Y0
	}
	return c
}

// Scale multiplies every coordinate by s, for conversions between page
// units and raster pixels.
func (r Rect) Scale(s float64) Rect {
	return Rect{X0: r.X0 * s, Y0: r.Y0 * s, X1: r.X1 * s, Y1: r.Y1 * s}
}

// IsEmpty returns true if the rectangle has no area
func (r Rect) IsEmpty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Matrix represents a 2D affine transformation matrix
type Matrix [6]float64

// Identity returns an identity matrix
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Transform applies the matrix transformation to a point
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Multiply returns m followed by other.
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// Translate creates a translation matrix
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// Scale creates a scaling matrix
func Scale(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}
