// Package scoretest provides synthetic score documents for tests.
package scoretest

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync/atomic"

	"github.com/wadansyaku/band-part-key-app/model"
)

// Page describes one A4 page: staves of five lines 8 units apart starting
// at each top, spanning x 60 to 560, and a text layer.
type Page struct {
	Tops  []float64
	Spans []model.TextSpan
}

// Source serves Pages as rendered rasters and text spans. It is safe for
// concurrent use.
type Source struct {
	Pages     []Page
	RenderErr error
	renders   atomic.Int32
}

func (s *Source) NumPage() int { return len(s.Pages) }

func (s *Source) PageSize(page int) (model.Size, error) {
	return model.Size{Width: 595, Height: 842}, nil
}

func (s *Source) Render(page int, dpi float64) (*image.RGBA, error) {
	s.renders.Add(1)
	if s.RenderErr != nil {
		return nil, s.RenderErr
	}
	scale := dpi / 72
	img := image.NewRGBA(image.Rect(0, 0, int(595*scale), int(842*scale)))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	for _, top := range s.Pages[page].Tops {
		for l := 0; l < 5; l++ {
			y := int(math.Round((top + float64(l)*8) * scale))
			for x := int(60 * scale); x < int(560*scale); x++ {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img, nil
}

func (s *Source) TextSpans(page int) ([]model.TextSpan, error) {
	return s.Pages[page].Spans, nil
}

// HasTextLayer reports whether the page has spans.
func (s *Source) HasTextLayer(page int) bool { return len(s.Pages[page].Spans) > 0 }

func (s *Source) Close() error { return nil }

// Renders returns how many times Render was called.
func (s *Source) Renders() int { return int(s.renders.Load()) }

// Span returns a label 20 wide and 12 high centered vertically on y.
func Span(text string, x0, y float64) model.TextSpan {
	return model.TextSpan{Text: text, Bounds: model.Rect{X0: x0, Y0: y - 6, X1: x0 + 20, Y1: y + 6}}
}

// LabeledScore has staves centered at 105 and 305 labelled "Vo." and
// "Key.".
func LabeledScore() Page {
	return Page{
		Tops:  []float64{89, 289},
		Spans: []model.TextSpan{Span("Vo.", 10, 100), Span("Key.", 10, 300)},
	}
}
