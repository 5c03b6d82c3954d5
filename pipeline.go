package bandpart

import (
	"context"
	"image"

	"github.com/rs/zerolog"

	"github.com/wadansyaku/band-part-key-app/graphicsstate"
	"github.com/wadansyaku/band-part-key-app/labels"
	"github.com/wadansyaku/band-part-key-app/mapping"
	"github.com/wadansyaku/band-part-key-app/model"
	"github.com/wadansyaku/band-part-key-app/raster"
	"github.com/wadansyaku/band-part-key-app/reader"
	"github.com/wadansyaku/band-part-key-app/selector"
	"github.com/wadansyaku/band-part-key-app/staff"
)

// pipeline holds the stages shared by all pages of a run. Every stage is
// safe for concurrent use.
type pipeline struct {
	cfg       Config
	src       Source
	doc       *reader.Reader
	detector  *staff.Detector
	locator   *labels.Locator
	spatial   mapping.Strategy
	canonical mapping.Strategy
	selector  *selector.Selector
	log       zerolog.Logger
}

type pageResult struct {
	analysis PageAnalysis
	warnings []Warning
}

func newPipeline(opts ExtractOptions, src Source, doc *reader.Reader) *pipeline {
	cfg := opts.config
	return &pipeline{
		cfg:       cfg,
		src:       src,
		doc:       doc,
		detector:  staff.NewDetector(cfg.Staff, nil),
		locator:   labels.NewLocator(cfg.Labels, opts.recognizer),
		spatial:   mapping.NewSpatial(cfg.Mapping, opts.logger),
		canonical: mapping.NewCanonical(cfg.Mapping),
		selector:  selector.New(cfg.Selector, opts.logger),
		log:       opts.logger,
	}
}

// analyzePage runs every stage on one page. Problems become warnings; the
// page then contributes no regions.
func (p *pipeline) analyzePage(ctx context.Context, idx int) pageResult {
	log := p.log.With().Int("page", idx+1).Logger()
	res := pageResult{analysis: PageAnalysis{Page: idx}}
	skip := func(msg string) pageResult {
		log.Info().Str("reason", msg).Msg("page skipped")
		res.warnings = append(res.warnings, Warning{Page: idx + 1, Kind: PageSkipped, Message: msg})
		return res
	}

	size, err := p.src.PageSize(idx)
	if err != nil {
		return skip(err.Error())
	}
	layout := model.PageLayout{Page: idx, Size: size}

	spans, err := p.src.TextSpans(idx)
	if err != nil {
		log.Debug().Err(err).Msg("text layer unreadable")
		spans = nil
	}

	if p.cfg.VectorStaves {
		layout.Systems = p.vectorSystems(idx, size, log)
		if len(layout.Systems) > 0 {
			res.analysis.Detection = DetectionVector
		}
	}

	// The raster is needed to find staves when no rules were drawn, and to
	// recognize labels when the text layer names no instrument.
	var gray *image.Gray
	scale := p.cfg.DPI / 72
	if len(layout.Systems) == 0 || !p.hasNativeLabels(spans, size) {
		img, err := p.src.Render(idx, p.cfg.DPI)
		switch {
		case err != nil && len(layout.Systems) == 0:
			return skip(err.Error())
		case err != nil:
			log.Debug().Err(err).Msg("render failed")
		default:
			gray = raster.Grayscale(img)
		}
	}
	if len(layout.Systems) == 0 {
		systems, err := p.detector.Detect(gray, idx, scale)
		if err != nil {
			return skip(err.Error())
		}
		layout.Systems = systems
		res.analysis.Detection = DetectionRaster
	}
	if len(layout.Systems) == 0 {
		return skip("no staff systems detected")
	}
	layout.Groups = layout.Systems[len(layout.Systems)-1].Group + 1
	res.analysis.Layout = layout

	found, err := p.locator.Locate(ctx, labels.Page{
		Index:  idx,
		Size:   size,
		Spans:  spans,
		Raster: gray,
		Scale:  scale,
	})
	if err != nil {
		log.Warn().Err(err).Msg("no labels, using canonical layout")
		res.warnings = append(res.warnings, Warning{Page: idx + 1, Kind: RecognitionUnavailable, Message: err.Error()})
	}
	res.analysis.Labels = found
	layout = mapping.SplitGroups(layout, found, p.cfg.Mapping)
	res.analysis.Layout = layout

	strategy := p.spatial
	if len(found) == 0 {
		strategy = p.canonical
	}
	res.analysis.Strategy = strategy.Name()
	res.analysis.Mappings = strategy.Map(layout, found)
	res.analysis.Regions = p.selector.Select(layout, res.analysis.Mappings)

	log.Debug().
		Str("detection", res.analysis.Detection).
		Str("strategy", res.analysis.Strategy).
		Int("systems", len(layout.Systems)).
		Int("labels", len(found)).
		Int("regions", len(res.analysis.Regions)).
		Msg("page analyzed")

	if len(res.analysis.Regions) == 0 {
		return skip("no target parts found")
	}
	return res
}

// vectorSystems finds systems among the rules the page draws. It returns
// nil when the page cannot be read or draws no staves.
func (p *pipeline) vectorSystems(idx int, size model.Size, log zerolog.Logger) []model.System {
	if p.doc == nil {
		return nil
	}
	page, err := p.doc.GetPage(idx)
	if err != nil {
		log.Debug().Err(err).Msg("page object unreadable")
		return nil
	}
	rules, err := graphicsstate.ExtractPage(page, p.doc, p.cfg.Rules)
	if err != nil {
		log.Debug().Err(err).Msg("drawn rules unavailable")
		return nil
	}
	lines := make([]staff.Line, len(rules))
	for i, r := range rules {
		lines[i] = staff.Line{Y: r.Y, X0: r.X0, X1: r.X1}
	}
	return p.detector.FromRules(lines, idx, size.Width)
}

// hasNativeLabels reports whether some span in the margin strip names an
// instrument.
func (p *pipeline) hasNativeLabels(spans []model.TextSpan, size model.Size) bool {
	strip := size.Width * p.cfg.Labels.StripFraction
	classifier := p.locator.Classifier()
	for _, span := range spans {
		if span.Bounds.X0 >= strip {
			continue
		}
		if inst, _ := classifier.Classify(labels.Normalize(span.Text)); inst != model.Unknown {
			return true
		}
	}
	return false
}
