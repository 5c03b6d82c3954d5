package bandpart

import (
	"github.com/rs/zerolog"

	"github.com/wadansyaku/band-part-key-app/ocr"
)

// ProgressFunc is called after each analyzed page with the number of pages
// done and the total.
type ProgressFunc func(done, total int)

// ExtractOptions holds the configuration of one extraction run.
type ExtractOptions struct {
	// Page selection (1-indexed in API, stored as-is)
	pages []int

	workers    int
	config     Config
	title      string
	recognizer ocr.Recognizer
	logger     zerolog.Logger
	progress   ProgressFunc
}

// defaultOptions returns the default extraction options.
func defaultOptions() ExtractOptions {
	return ExtractOptions{
		pages:   nil, // nil means all pages
		workers: 1,
		config:  DefaultConfig(),
		logger:  zerolog.Nop(),
	}
}

// clone creates a deep copy of ExtractOptions.
func (o ExtractOptions) clone() ExtractOptions {
	newOpts := o
	if o.pages != nil {
		newOpts.pages = make([]int, len(o.pages))
		copy(newOpts.pages, o.pages)
	}
	newOpts.config = o.config.resolved()
	return newOpts
}
