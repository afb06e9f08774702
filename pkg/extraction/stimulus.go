package extraction

import (
	"regexp"
	"strings"
)

// AnchorKind mirrors the neuron types relevant to anchor selection, with
// the base weights spec.md §4.1/§4.5 assigns for anchor priority.
type AnchorKind string

const (
	AnchorTime    AnchorKind = "TIME"
	AnchorEntity  AnchorKind = "ENTITY"
	AnchorAction  AnchorKind = "ACTION"
	AnchorConcept AnchorKind = "CONCEPT"
)

// AnchorBaseWeight returns the seed weight spec.md §4.1 assigns an
// anchor candidate of this kind: TIME 1.0, ENTITY 0.8, ACTION 0.6,
// CONCEPT 0.4.
func (k AnchorKind) AnchorBaseWeight() float64 {
	switch k {
	case AnchorTime:
		return 1.0
	case AnchorEntity:
		return 0.8
	case AnchorAction:
		return 0.6
	case AnchorConcept:
		return 0.4
	default:
		return 0.3
	}
}

// AnchorCandidate is a span pulled from a query or an encode request,
// proposed as a spreading-activation seed.
type AnchorCandidate struct {
	Text   string
	Kind   AnchorKind
	Weight float64
}

// QueryDepth classifies how far a reflex retrieval should chase
// causal/habitual structure, per spec.md §4.5 step 1.
type QueryDepth int

const (
	DepthFact       QueryDepth = 0 // "what is X?"
	DepthSequence   QueryDepth = 1 // "before/after X?"
	DepthHabit      QueryDepth = 2 // "do I usually X?"
	DepthCausal     QueryDepth = 3 // "why?"
)

// Stimulus is the parsed shape of a query or encode request: entities,
// keywords, temporal phrases, intents, and derived anchor candidates,
// per spec.md §4.1.
type Stimulus struct {
	RawText         string
	Entities        []string
	Keywords        []string
	TemporalPhrases []string
	Intents         []string
	AnchorCandidates []AnchorCandidate
	Depth           QueryDepth
}

// intentVerbs are the hint words spec.md §4.1 calls out ("why", "when",
// "decide") that signal what kind of answer the caller wants.
var intentVerbs = []string{
	"why", "when", "where", "who", "how", "what", "decide", "decided",
	"usually", "always", "often", "before", "after", "tại sao", "khi nào",
	"ở đâu", "quyết định", "thường",
}

var (
	habitRe    = regexp.MustCompile(`(?i)\b(usually|always|often|typically|thường|hay)\b`)
	sequenceRe = regexp.MustCompile(`(?i)\b(before|after|then|sau đó|trước khi|sau khi)\b`)
	causalRe   = regexp.MustCompile(`(?i)\bwhy\b|\btại sao\b|\bvì sao\b`)
)

// ClassifyDepth implements spec.md §4.5 step 1's query-shape heuristic.
func ClassifyDepth(query string) QueryDepth {
	switch {
	case causalRe.MatchString(query):
		return DepthCausal
	case habitRe.MatchString(query):
		return DepthHabit
	case sequenceRe.MatchString(query):
		return DepthSequence
	default:
		return DepthFact
	}
}

// ParseQuery turns free text into a Stimulus: entities (capitalized
// spans, quoted spans), keywords (stop-word-filtered content words),
// temporal phrases, intents, and anchor candidates with base weights.
func ParseQuery(text string) Stimulus {
	s := Stimulus{
		RawText:  text,
		Keywords: Keywords(text),
		Depth:    ClassifyDepth(text),
	}

	entitySet := make(map[string]bool)
	for _, e := range CapitalizedSpans(text) {
		if !entitySet[e] {
			entitySet[e] = true
			s.Entities = append(s.Entities, e)
		}
	}
	for _, q := range QuotedSpans(text) {
		if !entitySet[q] {
			entitySet[q] = true
			s.Entities = append(s.Entities, q)
		}
	}

	s.TemporalPhrases = ExtractTemporalPhrases(text)

	lower := strings.ToLower(text)
	for _, v := range intentVerbs {
		if strings.Contains(lower, v) {
			s.Intents = append(s.Intents, v)
		}
	}

	s.AnchorCandidates = deriveAnchors(s)
	return s
}

// deriveAnchors assigns anchor kinds/weights to the spans a Stimulus
// already identified: every temporal phrase is a TIME anchor, every
// entity an ENTITY anchor, and any remaining keyword an ACTION or
// CONCEPT anchor depending on whether it looks verb-like.
func deriveAnchors(s Stimulus) []AnchorCandidate {
	var out []AnchorCandidate
	for _, t := range s.TemporalPhrases {
		out = append(out, AnchorCandidate{Text: t, Kind: AnchorTime, Weight: AnchorTime.AnchorBaseWeight()})
	}
	for _, e := range s.Entities {
		out = append(out, AnchorCandidate{Text: e, Kind: AnchorEntity, Weight: AnchorEntity.AnchorBaseWeight()})
	}
	for _, kw := range s.Keywords {
		if looksLikeVerb(kw) {
			out = append(out, AnchorCandidate{Text: kw, Kind: AnchorAction, Weight: AnchorAction.AnchorBaseWeight()})
		} else {
			out = append(out, AnchorCandidate{Text: kw, Kind: AnchorConcept, Weight: AnchorConcept.AnchorBaseWeight()})
		}
	}
	return out
}

// verbSuffixes is a coarse English/Vietnamese heuristic; it only needs
// to bias anchor classification, not parse grammar.
var verbSuffixes = []string{"ed", "ing", "ize", "ise"}

func looksLikeVerb(word string) bool {
	for _, suf := range verbSuffixes {
		if strings.HasSuffix(word, suf) {
			return true
		}
	}
	return actionLexicon[word]
}

// actionLexicon lists common action verbs that don't carry a telltale
// suffix (irregular English verbs, bare Vietnamese verbs).
var actionLexicon = map[string]bool{
	"decide": true, "decided": true, "go": true, "went": true, "do": true,
	"did": true, "make": true, "made": true, "buy": true, "bought": true,
	"meet": true, "met": true, "say": true, "said": true, "quyết": true,
	"đi": true, "làm": true, "mua": true, "gặp": true, "nói": true,
}
