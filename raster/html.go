package raster

import (
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/wadansyaku/band-part-key-app/model"
)

// Average glyph advance as a fraction of the font size.
const (
	latinAdvance = 0.55
	wideAdvance  = 1.0
)

// ParseHTMLSpans reads MuPDF's structured-text HTML. Every positioned
// paragraph becomes one span:
//
//	<p style="top:72.0pt;left:56.7pt;line-height:12.0pt">
//	  <span style="font-family:Helvetica;font-size:12.0pt">Vocal</span>
//	</p>
//
// MuPDF does not report run widths, so the width is estimated from the
// rune count and font size.
func ParseHTMLSpans(r io.Reader) ([]model.TextSpan, error) {
	z := html.NewTokenizer(r)
	var spans []model.TextSpan

	var (
		inPara   bool
		top      float64
		left     float64
		lineH    float64
		fontSize float64
		text     strings.Builder
	)
	flush := func() {
		s := strings.Join(strings.Fields(text.String()), " ")
		text.Reset()
		inPara = false
		if s == "" {
			return
		}
		size := fontSize
		if size <= 0 {
			size = lineH
		}
		height := lineH
		if height <= 0 {
			height = size
		}
		spans = append(spans, model.TextSpan{
			Text:   s,
			Bounds: model.NewRect(left, top, estimateWidth(s, size), height),
		})
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				if inPara {
					flush()
				}
				return spans, nil
			}
			return nil, z.Err()

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if !hasAttr {
				continue
			}
			style := styleAttr(z)
			switch string(name) {
			case "p":
				if inPara {
					flush()
				}
				inPara = true
				top = style["top"]
				left = style["left"]
				lineH = style["line-height"]
				fontSize = 0
			case "span":
				if fs, ok := style["font-size"]; ok && fs > fontSize {
					fontSize = fs
				}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "p" && inPara {
				flush()
			}

		case html.TextToken:
			if inPara {
				text.Write(z.Text())
			}
		}
	}
}

// styleAttr returns the numeric pt values of the style attribute.
func styleAttr(z *html.Tokenizer) map[string]float64 {
	out := map[string]float64{}
	for {
		key, val, more := z.TagAttr()
		if string(key) == "style" {
			for _, decl := range strings.Split(string(val), ";") {
				k, v, ok := strings.Cut(decl, ":")
				if !ok {
					continue
				}
				v = strings.TrimSuffix(strings.TrimSpace(v), "pt")
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					out[strings.TrimSpace(k)] = f
				}
			}
		}
		if !more {
			return out
		}
	}
}

func estimateWidth(s string, size float64) float64 {
	w := 0.0
	for _, r := range s {
		if isWide(r) {
			w += wideAdvance
		} else {
			w += latinAdvance
		}
	}
	if w == 0 {
		w = float64(utf8.RuneCountInString(s)) * latinAdvance
	}
	return w * size
}

// isWide reports full-width glyphs: CJK scripts, kana with their marks,
// and full-width forms.
func isWide(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hangul) ||
		(r >= 0x3000 && r <= 0x30FF) ||
		(r >= 0xFF01 && r <= 0xFF60)
}
