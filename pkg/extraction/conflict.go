package extraction

import (
	"regexp"
	"strings"
)

// Predicate is a (subject, verb, object) tuple extracted from content,
// used by the encoder's conflict-detection step (spec.md §4.3 step 5)
// to compare incoming statements against existing fibers tagged with
// the same subject.
type Predicate struct {
	Subject string
	Verb    string
	Object  string
}

// predicatePatterns captures simple SVO clauses. This is intentionally
// shallow — it only needs to catch the common "X is/likes/prefers Y"
// shape well enough to flag contradictions, not parse full grammar.
var predicatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s+(is not|isn't|is)\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+(does not|doesn't|do not|don't)\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+(likes?|loves?|prefers?|wants?|needs?)\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+(dislikes?|hates?|avoids?)\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+(decided to|chose to|will)\s+(.+)$`),
	regexp.MustCompile(`(.+?)\s+(là|không phải là|không)\s+(.+)`),
	regexp.MustCompile(`(.+?)\s+(thích|ghét|muốn|cần)\s+(.+)`),
}

// negatedVerbs identifies a predicate as the negation of its affirmative
// counterpart, used by IsContradictingPredicate to compare polarity.
var negatedVerbs = map[string]bool{
	"is not": true, "isn't": true, "does not": true, "doesn't": true,
	"do not": true, "don't": true, "dislikes": true, "dislike": true,
	"hates": true, "hate": true, "avoids": true, "avoid": true,
	"không phải là": true, "không": true, "ghét": true,
}

// ExtractPredicates returns every (subject, verb, object) tuple found
// in content's clauses.
func ExtractPredicates(text string) []Predicate {
	var out []Predicate
	for _, clause := range splitClauses(text) {
		for _, re := range predicatePatterns {
			m := re.FindStringSubmatch(clause)
			if m == nil {
				continue
			}
			out = append(out, Predicate{
				Subject: strings.ToLower(cleanSpan(m[1])),
				Verb:    strings.ToLower(cleanSpan(m[2])),
				Object:  strings.ToLower(cleanSpan(m[3])),
			})
			break
		}
	}
	return out
}

// IsContradictingPredicate reports whether b contradicts a: same
// subject, and either opposing polarity on the same object, or the
// same (affirmative) verb family with a different object.
func IsContradictingPredicate(a, b Predicate) bool {
	if a.Subject != b.Subject {
		return false
	}
	aNeg, bNeg := negatedVerbs[a.Verb], negatedVerbs[b.Verb]
	if a.Object == b.Object {
		return aNeg != bNeg
	}
	if !aNeg && !bNeg && sameVerbFamily(a.Verb, b.Verb) {
		return a.Object != b.Object
	}
	return false
}

// verbFamilies groups near-synonymous verbs so "likes X" vs "wants Y"
// still reads as the same kind of claim about the subject's object.
var verbFamilies = map[string]string{
	"likes": "preference", "like": "preference", "loves": "preference",
	"love": "preference", "prefers": "preference", "prefer": "preference",
	"wants": "preference", "want": "preference", "needs": "preference",
	"need": "preference", "thích": "preference", "muốn": "preference",
	"cần": "preference",
	"is": "identity", "là": "identity",
	"decided to": "decision", "chose to": "decision", "will": "decision",
}

func sameVerbFamily(a, b string) bool {
	fa, ok1 := verbFamilies[a]
	fb, ok2 := verbFamilies[b]
	return ok1 && ok2 && fa == fb
}
