package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// Splits free-form profile text in to tokens, including lower-case, unicode
// normalization, and accent folding.
//
// Tokens are bounded by any non-letter, non-digit characters, so punctuation
// like periods or dashes always acts as a separator. Single-character tokens
// are kept; acronym matching depends on them.
func TokenizeText(text string) []string {
	// the transform chain needs to be re-created per call to avoid a race
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	split := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	folded, _, err := transform.String(normFunc, split)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		folded = split
	}
	return strings.Fields(folded)
}
