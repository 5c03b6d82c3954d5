package labels

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"unicode/utf8"

	"golang.org/x/image/draw"

	"github.com/wadansyaku/band-part-key-app/model"
	"github.com/wadansyaku/band-part-key-app/ocr"
	"github.com/wadansyaku/band-part-key-app/raster"
)

// ErrRecognitionUnavailable is returned when a page needs recognition and
// the engine is missing, fails, times out or reads nothing.
var ErrRecognitionUnavailable = errors.New("labels: text recognition unavailable")

// Page is the input of label location for one page.
type Page struct {
	Index  int
	Size   model.Size
	Spans  []model.TextSpan // native text layer, page units
	Raster *image.Gray      // used only when the text layer has no labels
	Scale  float64          // raster pixels per page unit
}

// Locator finds instrument labels in the left margin of a page.
type Locator struct {
	cfg        Config
	classifier *Classifier
	recognizer ocr.Recognizer
}

// NewLocator returns a locator. recognizer may be nil, in which case pages
// without a usable text layer report ErrRecognitionUnavailable.
func NewLocator(cfg Config, recognizer ocr.Recognizer) *Locator {
	if recognizer != nil {
		recognizer = ocr.WithTimeout(recognizer, cfg.RecognitionTimeout)
	}
	return &Locator{
		cfg:        cfg,
		classifier: NewClassifier(cfg.Vocabulary),
		recognizer: recognizer,
	}
}

// Classifier returns the vocabulary matcher used by the locator.
func (l *Locator) Classifier() *Classifier { return l.classifier }

// Locate returns the labels of a page. Text from the native layer is used
// when at least one span names an instrument; otherwise the margin strip
// of the raster is recognized.
func (l *Locator) Locate(ctx context.Context, p Page) ([]model.InstrumentLabel, error) {
	strip := p.Size.Width * l.cfg.StripFraction

	var native []model.InstrumentLabel
	for _, span := range p.Spans {
		if span.Bounds.X0 >= strip {
			continue
		}
		if label, ok := l.label(span.Text, span.Text, span.Bounds, model.SourceNative, 0, p.Index); ok {
			native = append(native, label)
		}
	}
	if len(native) > 0 {
		return native, nil
	}
	return l.recognize(ctx, p, strip)
}

func (l *Locator) recognize(ctx context.Context, p Page, strip float64) ([]model.InstrumentLabel, error) {
	if l.recognizer == nil {
		return nil, fmt.Errorf("%w: no recognition engine configured", ErrRecognitionUnavailable)
	}
	if p.Raster == nil || p.Scale <= 0 {
		return nil, fmt.Errorf("%w: page %d has no raster", ErrRecognitionUnavailable, p.Index+1)
	}

	stripPx := int(math.Ceil(strip * p.Scale))
	img, factor := l.prepareStrip(p.Raster, stripPx)
	lines, err := l.recognizer.Recognize(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: engine returned no text on page %d", ErrRecognitionUnavailable, p.Index+1)
	}

	toPage := 1 / (factor * p.Scale)
	var out []model.InstrumentLabel
	for _, line := range lines {
		bounds := model.Rect{
			X0: float64(line.Box.Min.X),
			Y0: float64(line.Box.Min.Y),
			X1: float64(line.Box.Max.X),
			Y1: float64(line.Box.Max.Y),
		}.Scale(toPage)
		if label, ok := l.label(line.Text, Correct(fold(line.Text)), bounds, model.SourceOCR, line.Confidence, p.Index); ok {
			out = append(out, label)
		}
	}
	return out, nil
}

// label classifies one piece of text. Unknown or overlong text is not a
// label.
func (l *Locator) label(raw, text string, bounds model.Rect, source model.LabelSource, engineConf float64, page int) (model.InstrumentLabel, bool) {
	text = Normalize(text)
	if text == "" || utf8.RuneCountInString(text) > l.cfg.MaxTokenRunes {
		return model.InstrumentLabel{}, false
	}
	inst, exact := l.classifier.Classify(text)
	if inst == model.Unknown {
		return model.InstrumentLabel{}, false
	}

	conf := l.cfg.NativeConfidence
	if source == model.SourceOCR {
		conf = l.cfg.OCRConfidence
		if engineConf > 0 {
			conf *= engineConf / 100
		}
	}
	if exact {
		conf += l.cfg.ExactBonus
	}

	return model.InstrumentLabel{
		Raw:        raw,
		Text:       text,
		Instrument: inst,
		Bounds:     bounds,
		Y:          bounds.CenterY(),
		Confidence: math.Min(conf, 1),
		Source:     source,
		Exact:      exact,
		Page:       page,
	}, true
}

// prepareStrip crops the left margin, enlarges it when narrow and
// binarizes it. It returns the image and the enlargement factor.
func (l *Locator) prepareStrip(img *image.Gray, width int) (*image.Gray, float64) {
	b := img.Bounds()
	strip := raster.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+width, b.Max.Y))

	factor := 1.0
	if w := strip.Bounds().Dx(); w > 0 && w < l.cfg.UpscaleBelowPx {
		factor = math.Min(float64(l.cfg.UpscaleBelowPx)/float64(w), l.cfg.MaxUpscale)
	}
	if factor > 1 {
		sb := strip.Bounds()
		dst := image.NewGray(image.Rect(0, 0, int(float64(sb.Dx())*factor), int(float64(sb.Dy())*factor)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), strip, sb, draw.Src, nil)
		strip = dst
	}

	for i, v := range strip.Pix {
		if v < l.cfg.BinarizeThreshold {
			strip.Pix[i] = color.Gray{Y: 0}.Y
		} else {
			strip.Pix[i] = color.Gray{Y: 255}.Y
		}
	}
	return strip, factor
}
