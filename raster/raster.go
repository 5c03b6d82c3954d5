// Package raster renders score pages to images and exposes their native
// text layer, both through MuPDF (go-fitz).
//
// Page geometry is reported in page units (points, top-down), matching the
// rest of the pipeline. A raster rendered at dpi has scale dpi/72 against
// page units.
package raster

import (
	"fmt"
	"image"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/wadansyaku/band-part-key-app/model"
)

// Document is an open PDF rendered by MuPDF.
type Document struct {
	doc *fitz.Document
}

// Open opens a PDF from disk.
func Open(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Document{doc: doc}, nil
}

// Close releases the MuPDF document.
func (d *Document) Close() error {
	if d == nil || d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}

// NumPage returns the number of pages.
func (d *Document) NumPage() int {
	return d.doc.NumPage()
}

// PageSize returns the page size in page units.
func (d *Document) PageSize(page int) (model.Size, error) {
	bounds, err := d.doc.Bound(page)
	if err != nil {
		return model.Size{}, fmt.Errorf("page %d: %w", page+1, err)
	}
	return model.Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}, nil
}

// Render rasterizes a page at dpi.
func (d *Document) Render(page int, dpi float64) (*image.RGBA, error) {
	img, err := d.doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page+1, err)
	}
	return img, nil
}

// TextSpans returns the text layer of a page. A page with no text yields
// an empty slice.
func (d *Document) TextSpans(page int) ([]model.TextSpan, error) {
	html, err := d.doc.HTML(page, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read text of page %d: %w", page+1, err)
	}
	return ParseHTMLSpans(strings.NewReader(html))
}

// HasTextLayer reports whether the page carries any native text.
func (d *Document) HasTextLayer(page int) bool {
	spans, err := d.TextSpans(page)
	return err == nil && len(spans) > 0
}
