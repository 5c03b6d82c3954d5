// Package bandpart extracts the vocal and keyboard parts of a band score
// into a new, shorter PDF.
//
// Basic usage:
//
//	result, warnings, err := bandpart.Open("score.pdf").Extract(ctx, out)
//	if err != nil {
//	    // errors.Is(err, bandpart.ErrExtractionFailed) when nothing was found
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", bandpart.FormatWarnings(warnings))
//	}
//
// With options:
//
//	analysis, _, err := bandpart.Open("score.pdf").
//	    Pages(1, 2, 3).
//	    Workers(4).
//	    WithTargets(model.Keyboard).
//	    Analyze(ctx)
//
// Each page is analyzed independently: staff systems are found in the
// page's drawn rules or in its raster, instrument labels are read from the
// text layer or recognized in the left margin, labels are mapped to systems
// and the target systems become regions. The regions of all pages are then
// copied, in page order, into the output document.
package bandpart

import (
	"github.com/wadansyaku/band-part-key-app/reader"
)

// Open returns an Extractor for a score PDF on disk. The file is opened on
// first use and closed by the terminal operations (Analyze, Extract,
// ExtractToFile) or by Close.
//
// Example:
//
//	n, err := bandpart.Open("score.pdf").PageCount()
func Open(filename string) *Extractor {
	return &Extractor{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromSources returns an Extractor over an already opened document. src
// supplies page geometry, rasters and the text layer; doc, which may be
// nil, supplies the object graph used to find drawn staff lines and to copy
// page content. The caller keeps ownership of both.
//
// Example:
//
//	src, err := raster.Open("score.pdf")
//	if err != nil {
//	    // handle error
//	}
//	defer src.Close()
//	result, _, err := bandpart.FromSources(src, nil).Extract(ctx, out)
func FromSources(src Source, doc *reader.Reader) *Extractor {
	return &Extractor{
		src:        src,
		doc:        doc,
		sourceOpen: true,
		options:    defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	count := bandpart.Must(bandpart.Open("score.pdf").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
