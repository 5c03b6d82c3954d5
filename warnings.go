package bandpart

import (
	"errors"
	"fmt"
	"strings"
)

// WarningKind classifies a non-fatal problem met during extraction.
type WarningKind string

const (
	// PageSkipped: the page has no staff systems or no target parts.
	PageSkipped WarningKind = "page-skipped"
	// RecognitionUnavailable: the page needed text recognition and none
	// was possible; its parts were placed by the canonical layout.
	RecognitionUnavailable WarningKind = "recognition-unavailable"
	// RasterFallback: page content could not be copied and a rendered
	// image was placed instead.
	RasterFallback WarningKind = "raster-fallback"
	// SourceDegraded: the document's object graph could not be read, so
	// drawn staff lines and vector copies are unavailable.
	SourceDegraded WarningKind = "source-degraded"
)

// Warning is a non-fatal problem. Page is 1-indexed, or 0 for problems
// that concern the whole document.
type Warning struct {
	Page    int
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	if w.Page == 0 {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("page %d: %s: %s", w.Page, w.Kind, w.Message)
}

// FormatWarnings joins warnings into one line per warning.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}

// ErrExtractionFailed is matched by every error that ends a run without
// output: the document cannot be opened, or no page yielded a region.
var ErrExtractionFailed = errors.New("extraction failed")

// ExtractionError describes why a run produced no output.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", ErrExtractionFailed, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %v", ErrExtractionFailed, e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExtractionError) Unwrap() error { return e.Err }

// Is makes every ExtractionError match ErrExtractionFailed.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtractionFailed }

func failed(reason string, err error) error {
	return &ExtractionError{Reason: reason, Err: err}
}
