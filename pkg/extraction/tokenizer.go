// Package extraction implements spec.md §4.1: tokenization, entity
// and keyword extraction, relation/sentiment/temporal extraction, and
// query parsing into a Stimulus. Regex + lexicon only, deterministic,
// no network calls. Extractors never raise on bad input — they return
// empty results and let the caller proceed (spec.md §4.1 failure model,
// §7 "extraction failure" error kind).
package extraction

import (
	"regexp"
	"strings"
	"unicode"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize splits text into lowercase word tokens, matching the
// teacher's Unicode word splitter in pkg/engine/search.go.
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// stopWords are content-free tokens removed before keyword extraction.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "to": true, "of": true,
	"in": true, "on": true, "at": true, "for": true, "with": true, "by": true,
	"and": true, "or": true, "but": true, "if": true, "then": true, "so": true,
	"it": true, "this": true, "that": true, "these": true, "those": true,
	"i": true, "you": true, "he": true, "she": true, "we": true, "they": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"can": true, "could": true, "should": true, "have": true, "has": true, "had": true,
	"what": true, "which": true, "who": true, "whom": true, "there": true,
	"là": true, "và": true, "của": true, "có": true, "được": true, "những": true,
	"này": true, "đã": true, "sẽ": true, "các": true, "một": true,
}

// Keywords returns content words after stop-word removal.
func Keywords(text string) []string {
	tokens := Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !stopWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// CapitalizedSpans returns runs of consecutive capitalized words from
// the original (non-lowercased) text — a cheap proper-noun detector
// used for entity candidates.
func CapitalizedSpans(text string) []string {
	fields := strings.Fields(text)
	var spans []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			spans = append(spans, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, f := range fields {
		trimmed := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r)
		})
		if trimmed == "" {
			flush()
			continue
		}
		r := []rune(trimmed)
		if unicode.IsUpper(r[0]) {
			cur = append(cur, trimmed)
		} else {
			flush()
		}
	}
	flush()
	return spans
}

// QuotedSpans returns the contents of any "..." or '...' quoted
// substrings.
var quotedRe = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

func QuotedSpans(text string) []string {
	matches := quotedRe.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m[1] != "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[2])
		}
	}
	return out
}
