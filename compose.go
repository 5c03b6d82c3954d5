package bandpart

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/wadansyaku/band-part-key-app/compose"
	"github.com/wadansyaku/band-part-key-app/model"
)

// compose copies regions into a new document and writes it to w. A page
// whose content cannot be copied is rendered and placed as an image.
func (e *Extractor) compose(ctx context.Context, regions []model.Region, w io.Writer) (*Result, []Warning, error) {
	cfg := e.options.config
	log := e.options.logger
	out := compose.NewDocument(e.doc, cfg.Layout, log)
	if e.options.title != "" {
		out.SetTitle(e.options.title)
	}

	result := &Result{Regions: regions}
	var warnings []Warning
	var rendered *image.RGBA
	renderedPage := -1

	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}

		placement, err := out.Transplant(r)
		if errors.Is(err, compose.ErrNotTransplantable) {
			if renderedPage != r.Page {
				log.Warn().Err(err).Int("page", r.Page+1).Msg("placing rendered image")
				warnings = append(warnings, Warning{Page: r.Page + 1, Kind: RasterFallback, Message: err.Error()})
				rendered, err = e.src.Render(r.Page, cfg.DPI)
				if err != nil {
					return nil, warnings, failed(fmt.Sprintf("page %d cannot be copied or rendered", r.Page+1), err)
				}
				renderedPage = r.Page
			}
			placement, err = out.PlaceImage(r, cropClip(rendered, r.Clip, cfg.DPI/72))
			result.Rasterized++
		}
		if err != nil {
			return nil, warnings, failed("composing output", err)
		}
		result.Placements = append(result.Placements, placement)
	}

	result.Pages = out.PageCount()
	if _, err := out.WriteTo(w); err != nil {
		return nil, warnings, fmt.Errorf("failed to write output: %w", err)
	}
	log.Info().Int("regions", len(regions)).Int("pages", result.Pages).Msg("output written")
	return result, warnings, nil
}

// cropClip returns the part of a page raster covered by clip, given in page
// units.
func cropClip(img *image.RGBA, clip model.Rect, scale float64) image.Image {
	r := image.Rect(
		int(math.Floor(clip.X0*scale)),
		int(math.Floor(clip.Y0*scale)),
		int(math.Ceil(clip.X1*scale)),
		int(math.Ceil(clip.Y1*scale)),
	).Add(img.Bounds().Min).Intersect(img.Bounds())
	return img.SubImage(r)
}
