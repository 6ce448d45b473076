package keyword

import (
	"strings"
	"unicode/utf8"
)

// MatchPartial reports whether the keyword appears anywhere in the text as a
// raw substring, case-insensitive, including inside other words.
func MatchPartial(text, kw string) bool {
	if kw == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(kw))
}

// MatchWholeWord reports whether the keyword appears in the text as a
// standalone token (or run of tokens, for multi-word keywords), bounded by
// non-alphanumeric characters or string edges. Case-insensitive.
//
// A keyword written as period-separated single letters ("d.i.d") is an
// acronym pattern: it matches only when each letter appears as an isolated
// token in sequence. The plain word the acronym spells ("did") does not
// trigger it, which lets operators block an acronym without blocking the
// underlying word.
func MatchWholeWord(text, kw string) bool {
	run := keywordTokens(kw)
	if len(run) == 0 {
		return false
	}
	return containsTokenRun(TokenizeText(text), run)
}

// IsAcronymPattern reports whether the keyword is a period-separated sequence
// of single characters, like "d.i.d" or "l.o.l".
func IsAcronymPattern(kw string) bool {
	parts := strings.Split(kw, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if utf8.RuneCountInString(p) != 1 {
			return false
		}
	}
	return true
}

func keywordTokens(kw string) []string {
	if IsAcronymPattern(kw) {
		return strings.Split(strings.ToLower(kw), ".")
	}
	return TokenizeText(kw)
}

func containsTokenRun(toks, run []string) bool {
outer:
	for i := 0; i+len(run) <= len(toks); i++ {
		for j, r := range run {
			if toks[i+j] != r {
				continue outer
			}
		}
		return true
	}
	return false
}
