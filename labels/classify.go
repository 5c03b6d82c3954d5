package labels

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/wadansyaku/band-part-key-app/model"
)

type term struct {
	text       string
	instrument model.Instrument
	pattern    *regexp.Regexp // nil for CJK terms, matched as substrings
}

// Classifier matches text against the instrument vocabulary.
type Classifier struct {
	terms []term
}

// NewClassifier compiles a vocabulary. Instruments are visited in score
// order so results do not depend on map iteration.
func NewClassifier(vocab map[model.Instrument][]string) *Classifier {
	c := &Classifier{}
	var extra []model.Instrument
	for inst := range vocab {
		if !contains(model.Instruments, inst) {
			extra = append(extra, inst)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	order := append(append([]model.Instrument(nil), model.Instruments...), extra...)

	for _, inst := range order {
		for _, text := range vocab[inst] {
			text = Normalize(text)
			if text == "" {
				continue
			}
			t := term{text: text, instrument: inst}
			if !hasWide(text) {
				// Letter boundaries keep "Vo" out of "Voice" and "Key" out of "Keytar".
				t.pattern = regexp.MustCompile(`(?i)(?:^|[^\pL])` + regexp.QuoteMeta(text) + `(?:$|[^\pL])`)
			}
			c.terms = append(c.terms, t)
		}
	}
	return c
}

// Classify returns the instrument named by text and whether text is
// exactly a vocabulary entry. Text naming two different instruments is
// Unknown.
func (c *Classifier) Classify(text string) (model.Instrument, bool) {
	text = Normalize(text)
	if text == "" {
		return model.Unknown, false
	}

	for _, t := range c.terms {
		if strings.EqualFold(text, t.text) {
			return t.instrument, true
		}
	}

	found := model.Unknown
	for _, t := range c.terms {
		if !t.matches(text) {
			continue
		}
		if found != model.Unknown && found != t.instrument {
			return model.Unknown, false
		}
		found = t.instrument
	}
	return found, false
}

func (t term) matches(text string) bool {
	if t.pattern == nil {
		return strings.Contains(text, t.text)
	}
	return t.pattern.MatchString(text)
}

func hasWide(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) || (r >= 0x3000 && r <= 0x30FF) {
			return true
		}
	}
	return false
}

func contains(list []model.Instrument, inst model.Instrument) bool {
	for _, v := range list {
		if v == inst {
			return true
		}
	}
	return false
}
