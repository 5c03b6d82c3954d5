package bandpart

import (
	"image"

	"github.com/wadansyaku/band-part-key-app/model"
	"github.com/wadansyaku/band-part-key-app/raster"
)

// Source is a score document as seen by page analysis. Pages are
// 0-indexed and geometry is in page units with a top-down y axis.
// raster.Document is the production implementation.
type Source interface {
	NumPage() int
	PageSize(page int) (model.Size, error)
	Render(page int, dpi float64) (*image.RGBA, error)
	TextSpans(page int) ([]model.TextSpan, error)
	Close() error
}

var _ Source = (*raster.Document)(nil)
