package graphicsstate

import (
	"errors"
	"fmt"

	"github.com/wadansyaku/band-part-key-app/contentstream"
	"github.com/wadansyaku/band-part-key-app/core"
	"github.com/wadansyaku/band-part-key-app/model"
	"github.com/wadansyaku/band-part-key-app/pages"
)

// ErrRotatedPage is returned for pages with a /Rotate entry; their rules
// would not line up with the rendered raster.
var ErrRotatedPage = errors.New("graphicsstate: rotated page")

// Config bounds what counts as a rule.
type Config struct {
	// MaxSlope is the largest vertical drift of a stroked rule.
	MaxSlope float64 `yaml:"max_slope"`
	// MaxThickness is the thickest filled box treated as a rule.
	MaxThickness float64 `yaml:"max_thickness"`
	// MaxGray skips rules painted lighter than this luminance.
	MaxGray      float64 `yaml:"max_gray"`
	MaxFormDepth int     `yaml:"max_form_depth"`
	// MergeGap joins collinear rules separated by at most this much.
	MergeGap float64 `yaml:"merge_gap"`
}

// DefaultConfig returns the rule extraction defaults.
func DefaultConfig() Config {
	return Config{
		MaxSlope:     0.5,
		MaxThickness: 3,
		MaxGray:      0.6,
		MaxFormDepth: 8,
		MergeGap:     2,
	}
}

// FormLoader looks up form XObjects by resource name. ok is false when the
// name is not a form.
type FormLoader interface {
	Form(name string) (content []byte, matrix model.Matrix, resources FormLoader, ok bool, err error)
}

// GraphicsExtractor collects horizontal rules from content stream
// operations.
type GraphicsExtractor struct {
	cfg   Config
	gs    *GraphicsState
	path  *Path
	frame frame
	rules []Rule
	depth int
}

// NewGraphicsExtractor returns an extractor for a page whose visible area
// has its top-left corner at (left, top) in default user space.
func NewGraphicsExtractor(cfg Config, left, top float64) *GraphicsExtractor {
	return &GraphicsExtractor{
		cfg:   cfg,
		gs:    NewGraphicsState(),
		path:  NewPath(),
		frame: frame{left: left, top: top},
	}
}

// ExtractFromBytes parses content stream data and processes it.
func (ge *GraphicsExtractor) ExtractFromBytes(data []byte, forms FormLoader) error {
	ops, err := contentstream.NewParser(data).Parse()
	if err != nil {
		return err
	}
	return ge.Extract(ops, forms)
}

// Extract processes operations. forms may be nil.
func (ge *GraphicsExtractor) Extract(ops []contentstream.Operation, forms FormLoader) error {
	for _, op := range ops {
		if err := ge.processOperation(op, forms); err != nil {
			return fmt.Errorf("%s: %w", op.Operator, err)
		}
	}
	return nil
}

// Rules returns the rules found so far, unmerged.
func (ge *GraphicsExtractor) Rules() []Rule { return ge.rules }

func (ge *GraphicsExtractor) processOperation(op contentstream.Operation, forms FormLoader) error {
	switch op.Operator {
	case "q":
		ge.gs.Save()
	case "Q":
		// Unbalanced Q is common in the wild.
		_ = ge.gs.Restore()
	case "cm":
		if v, ok := op.Numbers(6); ok {
			ge.gs.Transform(operandsToMatrix(v))
		}
	case "w":
		if w, ok := op.Number(0); ok {
			ge.gs.SetLineWidth(w)
		}
	case "G", "RG", "K":
		if v, ok := op.Numbers(len(op.Operands)); ok {
			ge.gs.StrokeGray = luminance(v)
		}
	case "g", "rg", "k":
		if v, ok := op.Numbers(len(op.Operands)); ok {
			ge.gs.FillGray = luminance(v)
		}

	case "m":
		if v, ok := op.Numbers(2); ok {
			ge.path.MoveTo(ge.gs.Apply(v[0], v[1]))
		}
	case "l":
		if v, ok := op.Numbers(2); ok {
			ge.path.LineTo(ge.gs.Apply(v[0], v[1]))
		}
	case "c":
		if v, ok := op.Numbers(6); ok {
			ge.path.CurveTo(ge.gs.Apply(v[4], v[5]))
		}
	case "v", "y":
		if v, ok := op.Numbers(4); ok {
			ge.path.CurveTo(ge.gs.Apply(v[2], v[3]))
		}
	case "h":
		ge.path.ClosePath()
	case "re":
		if v, ok := op.Numbers(4); ok {
			x, y, w, h := v[0], v[1], v[2], v[3]
			ge.path.Rectangle([4]model.Point{
				ge.gs.Apply(x, y),
				ge.gs.Apply(x+w, y),
				ge.gs.Apply(x+w, y+h),
				ge.gs.Apply(x, y+h),
			})
		}

	case "S", "s":
		if op.Operator == "s" {
			ge.path.ClosePath()
		}
		ge.stroke()
		ge.path.Clear()
	case "f", "F", "f*":
		ge.fill()
		ge.path.Clear()
	case "B", "B*", "b", "b*":
		if op.Operator[0] == 'b' {
			ge.path.ClosePath()
		}
		ge.stroke()
		ge.fill()
		ge.path.Clear()
	case "n":
		ge.path.Clear()

	case "Do":
		if forms == nil || len(op.Operands) != 1 {
			return nil
		}
		name, ok := op.Operands[0].(core.Name)
		if !ok {
			return nil
		}
		return ge.form(string(name), forms)
	}
	return nil
}

func (ge *GraphicsExtractor) stroke() {
	if ge.gs.StrokeGray > ge.cfg.MaxGray {
		return
	}
	ge.rules = append(ge.rules, ge.path.strokeRules(ge.frame, ge.gs.DeviceLineWidth(), ge.cfg.MaxSlope)...)
}

func (ge *GraphicsExtractor) fill() {
	if ge.gs.FillGray > ge.cfg.MaxGray {
		return
	}
	ge.rules = append(ge.rules, ge.path.fillRules(ge.frame, ge.cfg.MaxThickness)...)
}

func (ge *GraphicsExtractor) form(name string, forms FormLoader) error {
	if ge.depth >= ge.cfg.MaxFormDepth {
		return nil
	}
	content, matrix, inner, ok, err := forms.Form(name)
	if err != nil || !ok {
		return err
	}
	ops, err := contentstream.NewParser(content).Parse()
	if err != nil {
		return fmt.Errorf("form %s: %w", name, err)
	}

	base := ge.gs.Depth()
	ge.gs.Save()
	ge.gs.Transform(matrix)
	saved := ge.path
	ge.path = NewPath()
	ge.depth++
	err = ge.Extract(ops, inner)
	ge.depth--
	ge.path = saved
	for ge.gs.Depth() > base {
		_ = ge.gs.Restore()
	}
	return err
}

// ExtractPage returns the merged rules painted by a page, including those
// inside form XObjects.
func ExtractPage(page *pages.Page, resolver pages.ObjectResolver, cfg Config) ([]Rule, error) {
	if page.Rotate() != 0 {
		return nil, ErrRotatedPage
	}
	crop, err := page.CropBox()
	if err != nil {
		return nil, err
	}
	data, err := page.ContentData()
	if err != nil {
		return nil, err
	}
	resources, err := page.Resources()
	if err != nil {
		return nil, err
	}

	ge := NewGraphicsExtractor(cfg, crop.LLX, crop.URY)
	if err := ge.ExtractFromBytes(data, resourceForms{resources, resolver}); err != nil {
		return nil, err
	}
	return MergeRules(ge.Rules(), cfg.MaxSlope, cfg.MergeGap), nil
}

// resourceForms finds form XObjects in a resource dictionary.
type resourceForms struct {
	resources core.Dict
	resolver  pages.ObjectResolver
}

func (r resourceForms) Form(name string) ([]byte, model.Matrix, FormLoader, bool, error) {
	xobjects, err := r.dict(r.resources.Get("XObject"))
	if err != nil || xobjects == nil {
		return nil, model.Matrix{}, nil, false, err
	}
	obj, err := r.resolver.Resolve(xobjects.Get(name))
	if err != nil {
		return nil, model.Matrix{}, nil, false, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, model.Matrix{}, nil, false, nil
	}
	if sub, _ := stream.Dict.GetName("Subtype"); sub != "Form" {
		return nil, model.Matrix{}, nil, false, nil
	}
	content, err := stream.Decode()
	if err != nil {
		return nil, model.Matrix{}, nil, false, fmt.Errorf("form %s: %w", name, err)
	}

	matrix := model.Identity()
	if arr, ok := stream.Dict.GetArray("Matrix"); ok && len(arr) == 6 {
		for i := range matrix {
			if v, ok := core.Number(arr[i]); ok {
				matrix[i] = v
			}
		}
	}

	inner := r
	if res, err := r.dict(stream.Dict.Get("Resources")); err == nil && res != nil {
		inner = resourceForms{res, r.resolver}
	}
	return content, matrix, inner, true, nil
}

func (r resourceForms) dict(obj core.Object) (core.Dict, error) {
	if obj == nil {
		return nil, nil
	}
	resolved, err := r.resolver.Resolve(obj)
	if err != nil {
		return nil, err
	}
	d, _ := resolved.(core.Dict)
	return d, nil
}
