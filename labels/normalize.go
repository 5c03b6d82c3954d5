package labels

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var trailingNoise = regexp.MustCompile(`[\s:]*\d*[\s:]*$`)

// Normalize folds compatibility forms (full-width letters, half-width
// kana), collapses whitespace and strips trailing colons and part numbers
// such as "Gt. 2".
func Normalize(s string) string {
	s = fold(s)
	s = strings.Join(strings.Fields(s), " ")
	s = trailingNoise.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// fold maps compatibility forms to their canonical letters, so that
// full-width recognition output reaches Correct as ASCII.
func fold(s string) string {
	return norm.NFKC.String(s)
}

var ocrReplacer = strings.NewReplacer(
	"V0", "Vo",
	"Vo,", "Vo.",
	"Kcy", "Key",
	"Kev", "Key",
	"Kay", "Key",
	"Gl.", "Gt.",
	"G1", "Gt",
	"Dr,", "Dr.",
	"Pf,", "Pf.",
	"rn", "m",
	"|", "l",
)

var (
	zeroInWord = regexp.MustCompile(`(\pL)0(\pL)`)
	oneInWord  = regexp.MustCompile(`(\pL)1(\pL)`)
)

// Correct repairs character confusions typical of recognition engines. It
// is applied to recognized text only, never to the native text layer.
func Correct(s string) string {
	s = ocrReplacer.Replace(s)
	// Applied twice so that adjacent matches such as "V00" are both fixed.
	for i := 0; i < 2; i++ {
		s = zeroInWord.ReplaceAllString(s, "${1}o${2}")
		s = oneInWord.ReplaceAllString(s, "${1}l${2}")
	}
	return s
}
