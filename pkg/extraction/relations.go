package extraction

import (
	"regexp"
	"strings"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// RelationCandidate is a typed edge proposal extracted from content
// text: a source span, a target span, the synapse type it implies,
// and a confidence in [0,1] driving the synapse weight formula in
// spec.md §4.3 step 4 (weight = 0.3 + 0.4·confidence).
type RelationCandidate struct {
	SourceSpan string
	TargetSpan string
	Type       core.SynapseType
	Confidence float64
}

type relationPattern struct {
	re         *regexp.Regexp
	typ        core.SynapseType
	confidence float64
	swap       bool // true if the regex captures (target, source) order
}

// relationPatterns is the ordered family of causal, comparative and
// sequential regexes used to derive typed relation candidates. Higher
// entries are tried first; the first match for a given pair of spans
// wins.
var relationPatterns = []relationPattern{
	// Causal
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:caused|led to|resulted in)\s+(.+)$`), core.SynLeadsTo, 0.8, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:because of|due to|caused by)\s+(.+)$`), core.SynCausedBy, 0.8, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:enables?|allows?|makes? possible)\s+(.+)$`), core.SynEnables, 0.7, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:prevents?|blocks?|stops?)\s+(.+)$`), core.SynPrevents, 0.7, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:depends on|requires?)\s+(.+)$`), core.SynDependsOn, 0.7, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:motivates?|drives?)\s+(.+)$`), core.SynMotivates, 0.6, false},

	// Sequential / temporal ordering
	{regexp.MustCompile(`(?i)^(.+?)\s+before\s+(.+)$`), core.SynBefore, 0.7, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+after\s+(.+)$`), core.SynAfter, 0.7, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+during\s+(.+)$`), core.SynDuring, 0.6, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:then|followed by)\s+(.+)$`), core.SynFollows, 0.6, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+precedes?\s+(.+)$`), core.SynPrecedes, 0.6, false},

	// Comparative / taxonomic
	{regexp.MustCompile(`(?i)^(.+?)\s+is a(?:n)?\s+(.+)$`), core.SynIsA, 0.7, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:is|looks|seems) like\s+(.+)$`), core.SynSimilarTo, 0.5, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:has|have)\s+(.+)$`), core.SynHasProperty, 0.5, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:part of|belongs to)\s+(.+)$`), core.SynPartOf, 0.6, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+owns?\s+(.+)$`), core.SynOwns, 0.6, false},

	// Spatial
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:at|in|near)\s+(.+)$`), core.SynAtLocation, 0.5, false},
	{regexp.MustCompile(`(?i)^(.+?)\s+contains?\s+(.+)$`), core.SynContains, 0.6, false},

	// Vietnamese equivalents
	{regexp.MustCompile(`(.+?)\s+(?:gây ra|dẫn đến)\s+(.+)`), core.SynLeadsTo, 0.8, false},
	{regexp.MustCompile(`(.+?)\s+(?:vì|do)\s+(.+)`), core.SynCausedBy, 0.7, false},
	{regexp.MustCompile(`(.+?)\s+trước\s+(.+)`), core.SynBefore, 0.7, false},
	{regexp.MustCompile(`(.+?)\s+sau\s+(.+)`), core.SynAfter, 0.7, false},
	{regexp.MustCompile(`(.+?)\s+là một\s+(.+)`), core.SynIsA, 0.7, false},
}

// ExtractRelations scans content for relation-bearing clauses and
// returns typed RelationCandidates. It operates on the raw text, not
// tokens, since relation patterns depend on word order.
func ExtractRelations(text string) []RelationCandidate {
	var out []RelationCandidate
	for _, clause := range splitClauses(text) {
		for _, p := range relationPatterns {
			m := p.re.FindStringSubmatch(clause)
			if m == nil {
				continue
			}
			source, target := m[1], m[2]
			if p.swap {
				source, target = target, source
			}
			out = append(out, RelationCandidate{
				SourceSpan: cleanSpan(source),
				TargetSpan: cleanSpan(target),
				Type:       p.typ,
				Confidence: p.confidence,
			})
			break // first matching pattern per clause wins
		}
	}
	return out
}

var clauseSplitRe = regexp.MustCompile(`[.!?;\n]+`)

func splitClauses(text string) []string {
	parts := clauseSplitRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cleanSpan(s string) string {
	return strings.Trim(strings.TrimSpace(s), ",")
}
