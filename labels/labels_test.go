package labels

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"
	"time"

	"github.com/wadansyaku/band-part-key-app/model"
	"github.com/wadansyaku/band-part-key-app/ocr"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ｖｏ．", "Vo."},
		{"  Gt.   2 ", "Gt."},
		{"Key.:", "Key."},
		{"Vocal 1:", "Vocal"},
		{"ｷｰﾎﾞｰﾄﾞ", "キーボード"},
		{"Lead\tVocal", "Lead Vocal"},
		{"12", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCorrect(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"V0.", "Vo."},
		{"V0cal", "Vocal"},
		{"Vo,", "Vo."},
		{"Kcy.", "Key."},
		{"Kev", "Key"},
		{"Gl.", "Gt."},
		{"G1.", "Gt."},
		{"Dr,", "Dr."},
		{"Pf,", "Pf."},
		{"Drurns", "Drums"},
		{"|ead", "lead"},
		{"Ce1lo", "Cello"},
		{"Pian0", "Pian0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Correct(tt.in); got != tt.want {
				t.Errorf("Correct(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultVocabulary())
	tests := []struct {
		text  string
		want  model.Instrument
		exact bool
	}{
		{"Vo.", model.Vocal, true},
		{"VOCAL", model.Vocal, true},
		{"Voice 1", model.Vocal, true},
		{"Lead Vocal", model.Vocal, false},
		{"ボーカル", model.Vocal, true},
		{"女性ボーカル", model.Vocal, false},
		{"Key.", model.Keyboard, true},
		{"Keyboard 2", model.Keyboard, true},
		{"Synth Pad", model.Keyboard, false},
		{"Keytar", model.Unknown, false},
		{"Gt.", model.Guitar, true},
		{"E.G.", model.Guitar, true},
		{"Bass", model.Bass, true},
		{"Dr.", model.Drums, true},
		{"Vocal & Piano", model.Unknown, false},
		{"Allegro", model.Unknown, false},
		{"", model.Unknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, exact := c.Classify(tt.text)
			if got != tt.want || exact != tt.exact {
				t.Errorf("Classify(%q) = %v, %v; want %v, %v", tt.text, got, exact, tt.want, tt.exact)
			}
		})
	}
}

func TestClassifyCustomVocabulary(t *testing.T) {
	c := NewClassifier(map[model.Instrument][]string{
		model.Vocal: {"Canto"},
		"horns":     {"Tp.", "Sax"},
	})
	if got, _ := c.Classify("Canto"); got != model.Vocal {
		t.Errorf("Canto = %v", got)
	}
	if got, _ := c.Classify("Alto Sax"); got != "horns" {
		t.Errorf("Alto Sax = %v", got)
	}
	if got, _ := c.Classify("Vo."); got != model.Unknown {
		t.Errorf("Vo. should be unknown with a custom vocabulary, got %v", got)
	}
}

func span(text string, x, y float64) model.TextSpan {
	return model.TextSpan{Text: text, Bounds: model.NewRect(x, y-5, 30, 10)}
}

func TestLocateNative(t *testing.T) {
	l := NewLocator(DefaultConfig(), nil)
	labels, err := l.Locate(context.Background(), Page{
		Index: 2,
		Size:  model.Size{Width: 600, Height: 800},
		Spans: []model.TextSpan{
			span("Vo.", 20, 100),
			span("Key.", 20, 300),
			span("Vo.", 300, 500), // outside the margin strip
			span("This is a very long lyric line with many words", 10, 600),
			span("Allegro", 10, 50),
			span("Lead Vocal", 10, 700),
		},
	})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if len(labels) != 3 {
		t.Fatalf("got %d labels: %+v", len(labels), labels)
	}

	vo := labels[0]
	if vo.Instrument != model.Vocal || vo.Y != 100 || vo.Page != 2 || vo.Source != model.SourceNative {
		t.Errorf("vocal label = %+v", vo)
	}
	if !vo.Exact || vo.Confidence != 1 {
		t.Errorf("exact native confidence = %v", vo.Confidence)
	}
	if labels[1].Instrument != model.Keyboard || labels[1].Y != 300 {
		t.Errorf("keyboard label = %+v", labels[1])
	}
	if labels[2].Exact || labels[2].Confidence != 0.9 {
		t.Errorf("contained label = %+v", labels[2])
	}
}

func TestLocateWithoutRecognizer(t *testing.T) {
	l := NewLocator(DefaultConfig(), nil)
	_, err := l.Locate(context.Background(), Page{
		Size:  model.Size{Width: 600, Height: 800},
		Spans: []model.TextSpan{span("Allegro", 10, 50)},
	})
	if !errors.Is(err, ErrRecognitionUnavailable) {
		t.Errorf("err = %v, want ErrRecognitionUnavailable", err)
	}
}

func grayPage(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestLocateOCR(t *testing.T) {
	var seen image.Image
	rec := ocr.RecognizerFunc(func(ctx context.Context, img image.Image) ([]ocr.Line, error) {
		seen = img
		return []ocr.Line{
			{Text: "V0.", Box: image.Rect(80, 400, 200, 440), Confidence: 90},
			{Text: "Gl.", Box: image.Rect(80, 1200, 200, 1240)},
			{Text: "~~~", Box: image.Rect(0, 0, 10, 10)},
			{Text: "Ｋｃｙ．", Box: image.Rect(80, 800, 200, 840)},
		}, nil
	})
	l := NewLocator(DefaultConfig(), rec)
	labels, err := l.Locate(context.Background(), Page{
		Index:  0,
		Size:   model.Size{Width: 400, Height: 500},
		Raster: grayPage(400, 500, 200),
		Scale:  1,
	})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	if seen == nil || seen.Bounds().Dx() != 400 {
		t.Fatalf("strip passed to the engine has bounds %v, want 4x upscale of 100px", seen.Bounds())
	}
	for _, v := range seen.(*image.Gray).Pix {
		if v != 0 && v != 255 {
			t.Fatalf("strip not binarized: found %d", v)
		}
	}

	if len(labels) != 3 {
		t.Fatalf("got %d labels: %+v", len(labels), labels)
	}
	vo := labels[0]
	if vo.Instrument != model.Vocal || vo.Text != "Vo." || vo.Raw != "V0." || vo.Source != model.SourceOCR {
		t.Errorf("vocal label = %+v", vo)
	}
	if vo.Bounds != (model.Rect{X0: 20, Y0: 100, X1: 50, Y1: 110}) || vo.Y != 105 {
		t.Errorf("vocal bounds = %+v", vo.Bounds)
	}
	if math.Abs(vo.Confidence-0.73) > 1e-9 {
		t.Errorf("vocal confidence = %v, want 0.73", vo.Confidence)
	}
	if labels[1].Instrument != model.Guitar || math.Abs(labels[1].Confidence-0.8) > 1e-9 {
		t.Errorf("guitar label = %+v", labels[1])
	}
	// Full-width recognition output is folded before corrections apply.
	if key := labels[2]; key.Instrument != model.Keyboard || key.Text != "Key." || key.Raw != "Ｋｃｙ．" {
		t.Errorf("keyboard label = %+v", key)
	}
}

func TestLocateOCRFailures(t *testing.T) {
	page := Page{Size: model.Size{Width: 400, Height: 500}, Raster: grayPage(400, 500, 255), Scale: 1}
	cfg := DefaultConfig()
	cfg.RecognitionTimeout = 20 * time.Millisecond

	tests := []struct {
		name string
		rec  ocr.RecognizerFunc
	}{
		{"empty", func(ctx context.Context, img image.Image) ([]ocr.Line, error) { return nil, nil }},
		{"engine error", func(ctx context.Context, img image.Image) ([]ocr.Line, error) {
			return nil, errors.New("tesseract crashed")
		}},
		{"timeout", func(ctx context.Context, img image.Image) ([]ocr.Line, error) {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			return nil, nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLocator(cfg, tt.rec).Locate(context.Background(), page)
			if !errors.Is(err, ErrRecognitionUnavailable) {
				t.Errorf("err = %v, want ErrRecognitionUnavailable", err)
			}
		})
	}

	_, err := NewLocator(cfg, ocr.RecognizerFunc(func(ctx context.Context, img image.Image) ([]ocr.Line, error) {
		return nil, nil
	})).Locate(context.Background(), Page{Size: page.Size})
	if !errors.Is(err, ErrRecognitionUnavailable) {
		t.Errorf("missing raster: err = %v", err)
	}
}
