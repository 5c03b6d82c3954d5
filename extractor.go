package bandpart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wadansyaku/band-part-key-app/model"
	"github.com/wadansyaku/band-part-key-app/ocr"
	"github.com/wadansyaku/band-part-key-app/raster"
	"github.com/wadansyaku/band-part-key-app/reader"
)

// Extractor provides a fluent interface for extracting parts from a score.
// Each configuration method returns a new Extractor instance, making it
// safe for concurrent use and allowing method chaining.
type Extractor struct {
	// Source
	filename string
	src      Source
	doc      *reader.Reader // nil when the object graph is unreadable

	// Lifecycle
	ownsSource bool // true if we opened the sources and should close them
	sourceOpen bool

	options ExtractOptions

	// Accumulated error (fail-fast)
	err error

	// Warnings accumulated while opening the document
	warnings []Warning
}

// clone creates a shallow copy of the Extractor with a deep copy of options.
func (e *Extractor) clone() *Extractor {
	return &Extractor{
		filename:   e.filename,
		src:        e.src,
		doc:        e.doc,
		ownsSource: e.ownsSource,
		sourceOpen: e.sourceOpen,
		options:    e.options.clone(),
		err:        e.err,
		warnings:   append([]Warning(nil), e.warnings...),
	}
}

// ensureSource opens the document if not already open. A file MuPDF cannot
// open fails the run; a file whose object graph cannot be parsed is still
// analyzed from its rendered pages.
func (e *Extractor) ensureSource() error {
	if e.sourceOpen {
		return nil
	}
	if e.filename == "" {
		return failed("no document", errors.New("no filename specified"))
	}

	src, err := raster.Open(e.filename)
	if err != nil {
		return failed("cannot open document", err)
	}
	e.src = src
	e.ownsSource = true
	e.sourceOpen = true

	doc, err := reader.Open(e.filename)
	if err != nil {
		e.options.logger.Warn().Err(err).Str("file", e.filename).Msg("object graph unreadable, using rendered pages")
		e.warnings = append(e.warnings, Warning{Kind: SourceDegraded, Message: err.Error()})
		return nil
	}
	e.doc = doc
	return nil
}

// Close releases resources associated with the Extractor.
// It is safe to call Close multiple times.
func (e *Extractor) Close() error {
	if !e.ownsSource {
		return nil
	}
	var errs []error
	if e.src != nil {
		errs = append(errs, e.src.Close())
		e.src = nil
	}
	if e.doc != nil {
		errs = append(errs, e.doc.Close())
		e.doc = nil
	}
	e.ownsSource = false
	e.sourceOpen = false
	return errors.Join(errs...)
}

// ============================================================================
// Configuration Methods (return new Extractor instance)
// ============================================================================

// Pages specifies which pages to analyze (1-indexed).
// Multiple calls are cumulative.
//
// Example:
//
//	_, _, err := bandpart.Open("score.pdf").Pages(1, 3, 5).Extract(ctx, out)
func (e *Extractor) Pages(pages ...int) *Extractor {
	newExt := e.clone()
	newExt.options.pages = append(newExt.options.pages, pages...)
	return newExt
}

// PageRange specifies a range of pages to analyze (1-indexed, inclusive).
func (e *Extractor) PageRange(start, end int) *Extractor {
	newExt := e.clone()
	for i := start; i <= end; i++ {
		newExt.options.pages = append(newExt.options.pages, i)
	}
	return newExt
}

// Workers sets how many pages are analyzed at once. Output order does not
// depend on it.
func (e *Extractor) Workers(n int) *Extractor {
	newExt := e.clone()
	if n < 1 {
		newExt.err = fmt.Errorf("workers must be at least 1, got %d", n)
		return newExt
	}
	newExt.options.workers = n
	return newExt
}

// WithConfig replaces the pipeline settings. An invalid config fails every
// terminal operation.
func (e *Extractor) WithConfig(cfg Config) *Extractor {
	newExt := e.clone()
	if err := cfg.Validate(); err != nil {
		newExt.err = fmt.Errorf("invalid config: %w", err)
		return newExt
	}
	newExt.options.config = cfg.resolved()
	return newExt
}

// WithTargets sets the instruments copied to the output.
//
// Example:
//
//	_, _, err := bandpart.Open("score.pdf").WithTargets(model.Keyboard).Extract(ctx, out)
func (e *Extractor) WithTargets(targets ...model.Instrument) *Extractor {
	cfg := e.options.config
	cfg.Targets = targets
	return e.WithConfig(cfg)
}

// WithLogger sets the logger used by every stage.
func (e *Extractor) WithLogger(logger zerolog.Logger) *Extractor {
	newExt := e.clone()
	newExt.options.logger = logger
	return newExt
}

// WithRecognizer sets the engine used for pages whose labels are not in
// the text layer. Without one such pages use the canonical layout.
func (e *Extractor) WithRecognizer(r ocr.Recognizer) *Extractor {
	newExt := e.clone()
	newExt.options.recognizer = r
	return newExt
}

// WithTitle sets the title recorded in the output document.
func (e *Extractor) WithTitle(title string) *Extractor {
	newExt := e.clone()
	newExt.options.title = title
	return newExt
}

// OnProgress registers a callback invoked after each analyzed page.
func (e *Extractor) OnProgress(fn ProgressFunc) *Extractor {
	newExt := e.clone()
	newExt.options.progress = fn
	return newExt
}

// ============================================================================
// Terminal Operations
// ============================================================================

// PageCount returns the number of pages in the document.
func (e *Extractor) PageCount() (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if err := e.ensureSource(); err != nil {
		return 0, err
	}
	return e.src.NumPage(), nil
}

// Analyze runs detection, label location, mapping and selection on every
// selected page without producing output.
// This is a terminal operation that closes the underlying document.
func (e *Extractor) Analyze(ctx context.Context) (*Analysis, []Warning, error) {
	defer e.Close()
	return e.analyze(ctx)
}

// Extract analyzes the document and writes the output PDF to w. Nothing is
// written when the run fails.
// This is a terminal operation that closes the underlying document.
//
// Example:
//
//	var buf bytes.Buffer
//	result, warnings, err := bandpart.Open("score.pdf").Extract(ctx, &buf)
func (e *Extractor) Extract(ctx context.Context, w io.Writer) (*Result, []Warning, error) {
	defer e.Close()

	analysis, warnings, err := e.analyze(ctx)
	if err != nil {
		return nil, warnings, err
	}
	regions := analysis.Regions()
	if len(regions) == 0 {
		return nil, warnings, failed("no target parts found on any page", nil)
	}

	result, more, err := e.compose(ctx, regions, w)
	warnings = append(warnings, more...)
	if err != nil {
		return nil, warnings, err
	}
	result.Analysis = analysis
	return result, warnings, nil
}

// ExtractToFile is Extract writing to a file. The file is only created
// when extraction succeeds.
func (e *Extractor) ExtractToFile(ctx context.Context, path string) (*Result, []Warning, error) {
	var buf bytes.Buffer
	result, warnings, err := e.Extract(ctx, &buf)
	if err != nil {
		return nil, warnings, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, warnings, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return result, warnings, nil
}

// ComposeRegions writes the output PDF for regions selected earlier, for
// example by a cached Analyze run on the same document.
// This is a terminal operation that closes the underlying document.
func (e *Extractor) ComposeRegions(ctx context.Context, regions []model.Region, w io.Writer) (*Result, []Warning, error) {
	defer e.Close()
	if e.err != nil {
		return nil, nil, e.err
	}
	if err := e.ensureSource(); err != nil {
		return nil, nil, err
	}
	n := e.src.NumPage()
	for _, r := range regions {
		if r.Page < 0 || r.Page >= n {
			return nil, nil, fmt.Errorf("region page %d out of range (1-%d)", r.Page+1, n)
		}
	}
	if len(regions) == 0 {
		return nil, nil, failed("no target parts found on any page", nil)
	}
	result, warnings, err := e.compose(ctx, regions, w)
	return result, append(append([]Warning(nil), e.warnings...), warnings...), err
}

// analyze runs the page pipeline over the selected pages, up to Workers at
// a time, and merges the results in page order.
func (e *Extractor) analyze(ctx context.Context) (*Analysis, []Warning, error) {
	if e.err != nil {
		return nil, nil, e.err
	}
	if err := e.ensureSource(); err != nil {
		return nil, nil, err
	}
	indices, err := e.resolvePages()
	if err != nil {
		return nil, nil, err
	}

	p := newPipeline(e.options, e.src, e.doc)
	results := make([]pageResult, len(indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.workers)
	var mu sync.Mutex
	done := 0
	for i, idx := range indices {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.analyzePage(gctx, idx)
			if err := gctx.Err(); err != nil {
				return err
			}
			if e.options.progress != nil {
				mu.Lock()
				done++
				e.options.progress(done, len(indices))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	analysis := &Analysis{Pages: make([]PageAnalysis, len(results))}
	warnings := append([]Warning(nil), e.warnings...)
	for i, r := range results {
		analysis.Pages[i] = r.analysis
		warnings = append(warnings, r.warnings...)
	}
	return analysis, warnings, nil
}

// resolvePages converts the 1-indexed page selection to sorted, unique
// 0-indexed pages. An empty selection means every page.
func (e *Extractor) resolvePages() ([]int, error) {
	pageCount := e.src.NumPage()
	if pageCount == 0 {
		return nil, failed("document has no pages", nil)
	}

	// If no pages specified, use all pages
	if len(e.options.pages) == 0 {
		pageIndices := make([]int, pageCount)
		for i := 0; i < pageCount; i++ {
			pageIndices[i] = i
		}
		return pageIndices, nil
	}

	// Convert 1-indexed to 0-indexed and validate
	seen := make(map[int]bool)
	var pageIndices []int
	for _, p := range e.options.pages {
		if p < 1 || p > pageCount {
			return nil, fmt.Errorf("page %d out of range (1-%d)", p, pageCount)
		}
		zeroIndexed := p - 1
		if !seen[zeroIndexed] {
			seen[zeroIndexed] = true
			pageIndices = append(pageIndices, zeroIndexed)
		}
	}

	sort.Ints(pageIndices)
	return pageIndices, nil
}
