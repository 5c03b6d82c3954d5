package compose

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wadansyaku/band-part-key-app/contentstream"
	"github.com/wadansyaku/band-part-key-app/core"
	"github.com/wadansyaku/band-part-key-app/model"
	"github.com/wadansyaku/band-part-key-app/reader"
)

// sourcePDF builds a document whose pages draw two staves and use a shared
// font resource. Pages listed in rotated carry /Rotate 90.
func sourcePDF(t *testing.T, n int, rotated ...int) *reader.Reader {
	t.Helper()
	w := core.NewWriter()
	pagesRef := w.Reserve()
	font := w.Add(core.Dict{"Type": core.Name("Font"), "Subtype": core.Name("Type1"), "BaseFont": core.Name("Times-Roman")})
	resources := w.Add(core.Dict{"Font": core.Dict{"F0": font}})

	kids := core.Array{}
	for i := 0; i < n; i++ {
		var b contentstream.Builder
		for _, top := range []float64{737, 537} {
			for l := 0; l < 5; l++ {
				y := top - float64(l)*8
				b.Op("m", 60.0, y).Op("l", 560.0, y).Op("S")
			}
		}
		b.Op("BT").Op("Tf", core.Name("F0"), 10).Op("Td", 10.0, 720.0).Op("Tj", "Vo.").Op("ET")
		content, err := core.NewFlateStream(nil, b.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		page := core.Dict{
			"Type":      core.Name("Page"),
			"Parent":    pagesRef,
			"Resources": resources,
			"Contents":  w.Add(content),
		}
		for _, r := range rotated {
			if r == i {
				page["Rotate"] = core.Int(90)
			}
		}
		kids = append(kids, w.Add(page))
	}
	w.Set(pagesRef, core.Dict{
		"Type":     core.Name("Pages"),
		"Kids":     kids,
		"Count":    core.Int(n),
		"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(595), core.Int(842)},
	})
	w.SetRoot(w.Add(core.Dict{"Type": core.Name("Catalog"), "Pages": pagesRef}))

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	r, err := reader.NewReaderBytes(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func region(page int, inst model.Instrument, y0, y1 float64) model.Region {
	return model.Region{Page: page, Instrument: inst, Clip: model.Rect{X0: 0, Y0: y0, X1: 595, Y1: y1}}
}

func writeAndRead(t *testing.T, d *Document) *reader.Reader {
	t.Helper()
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	r, err := reader.NewReaderBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	return r
}

func TestTransplant(t *testing.T) {
	d := NewDocument(sourcePDF(t, 2), DefaultLayoutConfig(), zerolog.Nop())
	d.SetTitle("Vocal and keyboard")

	p, err := d.Transplant(region(0, model.Vocal, 85, 165))
	if err != nil {
		t.Fatalf("Transplant: %v", err)
	}
	if p.Page != 0 || p.Dest.X0 != 20 || p.Dest.Y0 != 20 {
		t.Errorf("placement = %+v", p)
	}
	if _, err := d.Transplant(region(0, model.Keyboard, 285, 365)); err != nil {
		t.Fatalf("Transplant: %v", err)
	}
	if _, err := d.Transplant(region(1, model.Vocal, 85, 165)); err != nil {
		t.Fatalf("Transplant: %v", err)
	}

	out := writeAndRead(t, d)
	if n, _ := out.PageCount(); n != 1 {
		t.Fatalf("output has %d pages, want 1", n)
	}
	page, err := out.GetPage(0)
	if err != nil {
		t.Fatal(err)
	}
	resources, err := page.Resources()
	if err != nil {
		t.Fatal(err)
	}
	xobjects, _ := resources.GetDict("XObject")
	if len(xobjects) != 2 {
		t.Fatalf("page uses %d forms, want 2 (one per source page)", len(xobjects))
	}
	formObj, err := out.Resolve(xobjects.Get("Pg1"))
	if err != nil {
		t.Fatal(err)
	}
	form, ok := formObj.(*core.Stream)
	if !ok {
		t.Fatalf("Pg1 is %T", formObj)
	}
	if sub, _ := form.Dict.GetName("Subtype"); sub != "Form" {
		t.Errorf("Pg1 subtype = %s", sub)
	}
	formRes, err := out.ResolveDeep(form.Dict.Get("Resources"))
	if err != nil {
		t.Fatal(err)
	}
	fonts, _ := formRes.(core.Dict).GetDict("Font")
	if f0, _ := fonts.GetDict("F0"); f0 == nil {
		t.Errorf("form resources lost the source font: %v", formRes)
	} else if name, _ := f0.GetName("BaseFont"); name != "Times-Roman" {
		t.Errorf("copied font = %v", f0)
	}
	formContent, err := form.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(formContent, []byte("(Vo.) Tj")) {
		t.Errorf("form content = %q", formContent)
	}

	data, err := page.ContentData()
	if err != nil {
		t.Fatal(err)
	}
	ops, err := contentstream.NewParser(data).Parse()
	if err != nil {
		t.Fatal(err)
	}
	var cms [][]float64
	var texts []string
	for _, op := range ops {
		switch op.Operator {
		case "cm":
			v, _ := op.Numbers(6)
			cms = append(cms, v)
		case "Tj":
			s, _ := op.Operands[0].(core.String)
			texts = append(texts, string(s))
		}
	}
	if len(cms) != 3 {
		t.Fatalf("got %d cm operators, want 3", len(cms))
	}
	s := 555.0 / 595
	want := []float64{s, 0, 0, s, 20, 822 - 757*s}
	for i := range want {
		if math.Abs(cms[0][i]-want[i]) > 1e-4 {
			t.Errorf("first cm = %v, want %v", cms[0], want)
			break
		}
	}
	if len(texts) != 3 || texts[0] != "Vocal" || texts[1] != "Key" {
		t.Errorf("chip texts = %v", texts)
	}
}

func TestTransplantPaginates(t *testing.T) {
	d := NewDocument(sourcePDF(t, 1), DefaultLayoutConfig(), zerolog.Nop())
	for i := 0; i < 12; i++ {
		if _, err := d.Transplant(region(0, model.Vocal, 85, 165)); err != nil {
			t.Fatal(err)
		}
	}
	// Each region is 80*555/595 = 74.6 high plus an 8 point gap: 9 fit on
	// the 802 point printable height.
	if d.PageCount() != 2 {
		t.Errorf("PageCount = %d, want 2", d.PageCount())
	}
	out := writeAndRead(t, d)
	if n, _ := out.PageCount(); n != 2 {
		t.Errorf("output has %d pages, want 2", n)
	}
}

func TestTransplantRejects(t *testing.T) {
	tests := []struct {
		name   string
		doc    *Document
		region model.Region
	}{
		{"no source", NewDocument(nil, DefaultLayoutConfig(), zerolog.Nop()), region(0, model.Vocal, 85, 165)},
		{"rotated", NewDocument(sourcePDF(t, 2, 1), DefaultLayoutConfig(), zerolog.Nop()), region(1, model.Vocal, 85, 165)},
		{"missing page", NewDocument(sourcePDF(t, 1), DefaultLayoutConfig(), zerolog.Nop()), region(4, model.Vocal, 85, 165)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.Transplant(tt.region)
			if !errors.Is(err, ErrNotTransplantable) {
				t.Errorf("err = %v, want ErrNotTransplantable", err)
			}
			if tt.doc.PageCount() != 0 {
				t.Errorf("a failed transplant added %d pages", tt.doc.PageCount())
			}
		})
	}
}

func TestPlaceImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 300, 40))
	for x := 0; x < 300; x++ {
		img.SetGray(x, 20, color.Gray{})
	}
	d := NewDocument(nil, DefaultLayoutConfig(), zerolog.Nop())
	p, err := d.PlaceImage(region(0, model.Keyboard, 100, 140), img)
	if err != nil {
		t.Fatalf("PlaceImage: %v", err)
	}
	if p.Dest.Height() <= 0 {
		t.Errorf("placement = %+v", p)
	}
	if _, err := d.PlaceImage(region(0, model.Keyboard, 100, 140), nil); err == nil {
		t.Error("PlaceImage(nil) succeeded")
	}

	out := writeAndRead(t, d)
	page, _ := out.GetPage(0)
	resources, _ := page.Resources()
	xobjects, _ := resources.GetDict("XObject")
	obj, err := out.Resolve(xobjects.Get("Im1"))
	if err != nil {
		t.Fatal(err)
	}
	stream := obj.(*core.Stream)
	if cs, _ := stream.Dict.GetName("ColorSpace"); cs != "DeviceGray" {
		t.Errorf("ColorSpace = %s", cs)
	}
	if f, _ := stream.Dict.GetName("Filter"); f != "DCTDecode" {
		t.Errorf("Filter = %s", f)
	}
	if w, _ := stream.Dict.GetInt("Width"); w != 300 {
		t.Errorf("Width = %d", w)
	}
}

func TestWriteEmpty(t *testing.T) {
	d := NewDocument(nil, DefaultLayoutConfig(), zerolog.Nop())
	if _, err := d.WriteTo(&bytes.Buffer{}); err == nil {
		t.Error("writing an empty document succeeded")
	}
}

func TestTitleEncoding(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Vocal and keyboard", "Vocal and keyboard"},
		{"歌", "\xfe\xff\x6b\x4c"},
		{"Ｖo", "\xfe\xff\xff\x36\x00\x6f"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			d := NewDocument(sourcePDF(t, 1), DefaultLayoutConfig(), zerolog.Nop())
			d.SetTitle(tt.title)
			if _, err := d.Transplant(region(0, model.Vocal, 85, 165)); err != nil {
				t.Fatalf("Transplant: %v", err)
			}
			out := writeAndRead(t, d)
			infoObj, err := out.Resolve(out.Trailer().Get("Info"))
			if err != nil {
				t.Fatal(err)
			}
			info, ok := infoObj.(core.Dict)
			if !ok {
				t.Fatalf("Info is %T", infoObj)
			}
			if title, _ := info.Get("Title").(core.String); string(title) != tt.want {
				t.Errorf("Title = %q, want %q", title, tt.want)
			}
		})
	}
}
