package graphicsstate

import (
	"fmt"
	"math"

	"github.com/wadansyaku/band-part-key-app/model"
)

// GraphicsState is the part of the PDF graphics state that decides where
// and how thick painted rules are.
type GraphicsState struct {
	CTM       model.Matrix
	LineWidth float64
	// Stroke and fill luminance, 0 is black.
	StrokeGray float64
	FillGray   float64

	stack []snapshot
}

type snapshot struct {
	ctm       model.Matrix
	lineWidth float64
	stroke    float64
	fill      float64
}

// NewGraphicsState returns the initial state of a page.
func NewGraphicsState() *GraphicsState {
	return &GraphicsState{CTM: model.Identity(), LineWidth: 1}
}

// Save pushes the state (q operator).
func (gs *GraphicsState) Save() {
	gs.stack = append(gs.stack, snapshot{gs.CTM, gs.LineWidth, gs.StrokeGray, gs.FillGray})
}

// Restore pops the state (Q operator).
func (gs *GraphicsState) Restore() error {
	if len(gs.stack) == 0 {
		return fmt.Errorf("graphics state stack underflow")
	}
	s := gs.stack[len(gs.stack)-1]
	gs.stack = gs.stack[:len(gs.stack)-1]
	gs.CTM, gs.LineWidth = s.ctm, s.lineWidth
	gs.StrokeGray, gs.FillGray = s.stroke, s.fill
	return nil
}

// Depth returns the number of saved states.
func (gs *GraphicsState) Depth() int { return len(gs.stack) }

// Transform concatenates m with the CTM (cm operator).
func (gs *GraphicsState) Transform(m model.Matrix) {
	gs.CTM = m.Multiply(gs.CTM)
}

// SetLineWidth sets the line width in user space (w operator).
func (gs *GraphicsState) SetLineWidth(w float64) {
	gs.LineWidth = w
}

// DeviceLineWidth returns the line width after the CTM, using the mean
// scale of the matrix.
func (gs *GraphicsState) DeviceLineWidth() float64 {
	det := gs.CTM[0]*gs.CTM[3] - gs.CTM[1]*gs.CTM[2]
	return gs.LineWidth * math.Sqrt(math.Abs(det))
}

// Apply returns p in device space.
func (gs *GraphicsState) Apply(x, y float64) model.Point {
	return gs.CTM.Transform(model.Point{X: x, Y: y})
}

// luminance reduces a color given as gray, RGB or CMYK components to a
// gray level.
func luminance(c []float64) float64 {
	switch len(c) {
	case 1:
		return c[0]
	case 3:
		return 0.299*c[0] + 0.587*c[1] + 0.114*c[2]
	case 4:
		k := 1 - c[3]
		return 0.299*(1-c[0])*k + 0.587*(1-c[1])*k + 0.114*(1-c[2])*k
	}
	return 0
}

func operandsToMatrix(v []float64) model.Matrix {
	return model.Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
}
