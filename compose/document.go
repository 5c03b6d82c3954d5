package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/unicode"

	"github.com/wadansyaku/band-part-key-app/contentstream"
	"github.com/wadansyaku/band-part-key-app/core"
	"github.com/wadansyaku/band-part-key-app/model"
	"github.com/wadansyaku/band-part-key-app/pages"
	"github.com/wadansyaku/band-part-key-app/reader"
)

// ErrNotTransplantable is returned when a source page cannot be imported as
// a form; callers fall back to PlaceImage.
var ErrNotTransplantable = errors.New("compose: page cannot be transplanted")

// chipColors are the fill colors of the instrument chips.
var chipColors = map[model.Instrument][3]float64{
	model.Vocal:    {0.1, 0.3, 0.8},
	model.Keyboard: {0, 0.6, 0.3},
}

var chipText = map[model.Instrument]string{
	model.Vocal:    "Vocal",
	model.Keyboard: "Key",
	model.Guitar:   "Gt",
	model.Bass:     "Bass",
	model.Drums:    "Dr",
}

type outPage struct {
	content  contentstream.Builder
	xobjects core.Dict
}

type formInfo struct {
	ref  core.IndirectRef
	name string
	crop pages.Box
}

// Document is the output being composed. Regions are appended in order;
// the file is written once by WriteTo.
type Document struct {
	src    *reader.Reader
	cfg    LayoutConfig
	layout *Layout
	log    zerolog.Logger

	w        *core.Writer
	pages    []*outPage
	forms    map[int]formInfo
	imported map[int]core.IndirectRef
	font     core.IndirectRef
	images   int
	title    string
}

// NewDocument returns an empty output. src supplies the pages to
// transplant and may be nil when only images are placed.
func NewDocument(src *reader.Reader, cfg LayoutConfig, log zerolog.Logger) *Document {
	w := core.NewWriter()
	font := w.Add(core.Dict{
		"Type":     core.Name("Font"),
		"Subtype":  core.Name("Type1"),
		"BaseFont": core.Name("Helvetica-Bold"),
		"Encoding": core.Name("WinAnsiEncoding"),
	})
	return &Document{
		src:      src,
		cfg:      cfg,
		layout:   NewLayout(cfg),
		log:      log,
		w:        w,
		forms:    map[int]formInfo{},
		imported: map[int]core.IndirectRef{},
		font:     font,
	}
}

// SetTitle sets the /Title of the document information dictionary.
func (d *Document) SetTitle(title string) { d.title = title }

// PageCount returns the number of output pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Transplant copies the clip of a source page into the next free slot of
// the output. The page content is kept as vectors: the page is imported
// once as a form XObject and drawn through a clipping rectangle.
func (d *Document) Transplant(region model.Region) (Placement, error) {
	form, err := d.importPage(region.Page)
	if err != nil {
		return Placement{}, err
	}
	if region.Clip.IsEmpty() {
		return Placement{}, fmt.Errorf("region on page %d has an empty clip", region.Page+1)
	}

	p := d.layout.Place(region.Clip)
	page := d.outputPage(p.Page)
	page.xobjects[form.name] = form.ref

	// Move the clip's top-left corner to the origin, scale, then move it to
	// the destination's top-left corner in output space.
	m := model.Translate(-(form.crop.LLX + region.Clip.X0), -(form.crop.URY - region.Clip.Y0)).
		Multiply(model.Scale(p.Scale, p.Scale)).
		Multiply(model.Translate(p.Dest.X0, d.cfg.PageHeight-p.Dest.Y0))

	x, y, w, h := d.pdfRect(p.Dest)
	page.content.Op("q").
		Op("re", x, y, w, h).Op("W").Op("n").
		Op("cm", m[0], m[1], m[2], m[3], m[4], m[5]).
		Op("Do", core.Name(form.name)).
		Op("Q")
	d.chip(page, p.Chip, region.Instrument)
	return p, nil
}

// PlaceImage places a raster of the clip instead of page content. img must
// cover exactly the region's clip.
func (d *Document) PlaceImage(region model.Region, img image.Image) (Placement, error) {
	if region.Clip.IsEmpty() || img == nil || img.Bounds().Empty() {
		return Placement{}, fmt.Errorf("region on page %d has no image", region.Page+1)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return Placement{}, fmt.Errorf("encode region image: %w", err)
	}
	colorSpace := core.Name("DeviceRGB")
	if _, ok := img.(*image.Gray); ok {
		colorSpace = "DeviceGray"
	}
	ref := d.w.Add(&core.Stream{
		Dict: core.Dict{
			"Type":             core.Name("XObject"),
			"Subtype":          core.Name("Image"),
			"Width":            core.Int(img.Bounds().Dx()),
			"Height":           core.Int(img.Bounds().Dy()),
			"ColorSpace":       colorSpace,
			"BitsPerComponent": core.Int(8),
			"Filter":           core.Name("DCTDecode"),
		},
		Data: buf.Bytes(),
	})
	d.images++
	name := fmt.Sprintf("Im%d", d.images)

	p := d.layout.Place(region.Clip)
	page := d.outputPage(p.Page)
	page.xobjects[name] = ref
	x, y, w, h := d.pdfRect(p.Dest)
	page.content.Op("q").
		Op("cm", w, 0.0, 0.0, h, x, y).
		Op("Do", core.Name(name)).
		Op("Q")
	d.chip(page, p.Chip, region.Instrument)
	return p, nil
}

// pdfRect converts a top-down rectangle on an output page to x, y, width,
// height in PDF space.
func (d *Document) pdfRect(r model.Rect) (x, y, w, h float64) {
	return r.X0, d.cfg.PageHeight - r.Y1, r.Width(), r.Height()
}

func (d *Document) chip(page *outPage, r model.Rect, inst model.Instrument) {
	c, ok := chipColors[inst]
	if !ok {
		c = [3]float64{0.4, 0.4, 0.4}
	}
	text := chipText[inst]
	if text == "" {
		text = string(inst)
	}
	x, y, w, h := d.pdfRect(r)
	size := 8.0
	page.content.Op("q").
		Op("rg", c[0], c[1], c[2]).
		Op("re", x, y, w, h).Op("f").
		Op("BT").
		Op("rg", 1.0, 1.0, 1.0).
		Op("Tf", core.Name("F1"), size).
		Op("Td", x+3, y+(h-size)/2+1.5).
		Op("Tj", text).
		Op("ET").
		Op("Q")
}

func (d *Document) outputPage(idx int) *outPage {
	for len(d.pages) <= idx {
		d.pages = append(d.pages, &outPage{xobjects: core.Dict{}})
	}
	return d.pages[idx]
}

// importPage turns a source page into a form XObject, once per page.
func (d *Document) importPage(index int) (formInfo, error) {
	if f, ok := d.forms[index]; ok {
		return f, nil
	}
	if d.src == nil {
		return formInfo{}, fmt.Errorf("%w: no source document", ErrNotTransplantable)
	}
	page, err := d.src.GetPage(index)
	if err != nil {
		return formInfo{}, fmt.Errorf("%w: %v", ErrNotTransplantable, err)
	}
	if page.Rotate() != 0 {
		return formInfo{}, fmt.Errorf("%w: page %d is rotated", ErrNotTransplantable, index+1)
	}
	media, err := page.MediaBox()
	if err != nil {
		return formInfo{}, fmt.Errorf("%w: %v", ErrNotTransplantable, err)
	}
	crop, err := page.CropBox()
	if err != nil {
		return formInfo{}, fmt.Errorf("%w: %v", ErrNotTransplantable, err)
	}
	content, err := page.ContentData()
	if err != nil {
		return formInfo{}, fmt.Errorf("%w: %v", ErrNotTransplantable, err)
	}
	// Content that does not parse would render differently, or not at all.
	if _, err := contentstream.NewParser(content).Parse(); err != nil {
		return formInfo{}, fmt.Errorf("%w: page %d content: %v", ErrNotTransplantable, index+1, err)
	}

	resources, err := d.copyObject(page.ResourcesObject(), 0)
	if err != nil {
		return formInfo{}, fmt.Errorf("%w: resources: %v", ErrNotTransplantable, err)
	}
	if resources == nil {
		resources = core.Dict{}
	}
	form, err := core.NewFlateStream(core.Dict{
		"Type":      core.Name("XObject"),
		"Subtype":   core.Name("Form"),
		"FormType":  core.Int(1),
		"BBox":      media.Array(),
		"Resources": resources,
	}, content)
	if err != nil {
		return formInfo{}, err
	}

	info := formInfo{ref: d.w.Add(form), name: fmt.Sprintf("Pg%d", index+1), crop: crop}
	d.forms[index] = info
	d.log.Debug().Int("page", index+1).Int("objects", len(d.imported)).Msg("page imported as form")
	return info, nil
}

const maxCopyDepth = 64

// copyObject deep-copies a source object into the writer, renumbering
// indirect objects. Each source object is copied once; /Parent links are
// dropped so a copy never pulls in the page tree.
func (d *Document) copyObject(obj core.Object, depth int) (core.Object, error) {
	if depth > maxCopyDepth {
		return nil, fmt.Errorf("object graph deeper than %d", maxCopyDepth)
	}
	switch v := obj.(type) {
	case core.IndirectRef:
		if ref, ok := d.imported[v.Number]; ok {
			return ref, nil
		}
		ref := d.w.Reserve()
		d.imported[v.Number] = ref
		resolved, err := d.src.ResolveReference(v)
		if err != nil {
			return nil, err
		}
		copied, err := d.copyObject(resolved, depth+1)
		if err != nil {
			return nil, err
		}
		d.w.Set(ref, copied)
		return ref, nil
	case core.Dict:
		out := make(core.Dict, len(v))
		for k, val := range v {
			if k == "Parent" {
				continue
			}
			c, err := d.copyObject(val, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case core.Array:
		out := make(core.Array, len(v))
		for i, val := range v {
			c, err := d.copyObject(val, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case *core.Stream:
		dict, err := d.copyObject(v.Dict, depth+1)
		if err != nil {
			return nil, err
		}
		return &core.Stream{Dict: dict.(core.Dict), Data: v.Data}, nil
	default:
		return obj, nil
	}
}

// WriteTo serializes the document. It fails when nothing was placed.
func (d *Document) WriteTo(out io.Writer) (int64, error) {
	if len(d.pages) == 0 {
		return 0, fmt.Errorf("compose: document has no pages")
	}
	pagesRef := d.w.Reserve()
	kids := make(core.Array, 0, len(d.pages))
	for _, p := range d.pages {
		content, err := core.NewFlateStream(nil, p.content.Bytes())
		if err != nil {
			return 0, err
		}
		resources := core.Dict{"Font": core.Dict{"F1": d.font}}
		if len(p.xobjects) > 0 {
			resources["XObject"] = p.xobjects
		}
		kids = append(kids, d.w.Add(core.Dict{
			"Type":      core.Name("Page"),
			"Parent":    pagesRef,
			"MediaBox":  core.Array{core.Int(0), core.Int(0), core.Real(d.cfg.PageWidth), core.Real(d.cfg.PageHeight)},
			"Resources": resources,
			"Contents":  d.w.Add(content),
		}))
	}
	d.w.Set(pagesRef, core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  kids,
		"Count": core.Int(len(kids)),
	})
	d.w.SetRoot(d.w.Add(core.Dict{"Type": core.Name("Catalog"), "Pages": pagesRef}))

	info := core.Dict{"Producer": core.String("band-part-key-app")}
	if d.title != "" {
		title, err := textString(d.title)
		if err != nil {
			return 0, fmt.Errorf("encode title: %w", err)
		}
		info["Title"] = title
	}
	d.w.SetInfo(d.w.Add(info))
	return d.w.WriteTo(out)
}

// textString encodes s as a PDF text string: ASCII as is, anything else as
// UTF-16BE with a byte order mark.
func textString(s string) (core.String, error) {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return core.String(s), nil
	}
	enc, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().String(s)
	if err != nil {
		return "", err
	}
	return core.String(enc), nil
}
