package course

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// "CS101", "MATH-203", "ENG 101:", "bio 12a -"
	reCourseCode = regexp.MustCompile(`^[a-z]{2,4}[-\s]?\d{2,4}[a-z]?\s*[-:]?\s*`)
	reMultiSpace = regexp.MustCompile(`\s+`)
)

// stripDiacritics removes combining marks after NFD decomposition.
func stripDiacritics(s string) string {
	decomp := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomp))
	for _, r := range decomp {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func keepLettersDigitsSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizePass(s string) string {
	// NFKC folds full-width and compatibility forms ("ＣＳ１０１" -> "CS101").
	s = norm.NFKC.String(s)
	s = norm.NFC.String(stripDiacritics(s))
	s = strings.TrimSpace(strings.ToLower(s))

	s = reCourseCode.ReplaceAllString(s, "")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = keepLettersDigitsSpaces(s)
	return strings.TrimSpace(s)
}

// Normalize turns a free-text course title into a comparison key.
// An empty key never matches anything.
func Normalize(title string) string {
	s := strings.TrimSpace(title)
	if s == "" {
		return ""
	}
	// Dropping punctuation may expose another leading code ("CS101 (MA-203) x"),
	// so passes repeat until the key is a fixed point. After the first pass
	// a pass can only shorten the string, so the loop ends.
	for {
		next := normalizePass(s)
		if next == s {
			return next
		}
		s = next
	}
}
