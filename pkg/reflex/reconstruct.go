package reflex

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// ScoreBreakdown is the per-neuron score decomposition spec.md §4.6
// returns to the caller alongside a reconstructed answer.
type ScoreBreakdown struct {
	BaseActivation    float64
	IntersectionBoost float64
	FreshnessBoost    float64
	FrequencyBoost    float64
}

// Total is the composed score reconstruction ranks neurons by.
func (s ScoreBreakdown) Total() float64 {
	return s.BaseActivation + s.IntersectionBoost + s.FreshnessBoost + s.FrequencyBoost
}

// NeuronScore pairs a neuron with its score breakdown.
type NeuronScore struct {
	NeuronID  core.NeuronID
	Breakdown ScoreBreakdown
}

// Strategy is one of the three synthesis strategies spec.md §4.6
// selects between automatically.
type Strategy string

const (
	StrategySingle       Strategy = "SINGLE"
	StrategyFiberSummary Strategy = "FIBER_SUMMARY"
	StrategyMultiNeuron  Strategy = "MULTI_NEURON"
)

// Reconstruction is the synthesized answer to one retrieval.
type Reconstruction struct {
	Strategy Strategy
	Answer   string
	Scores   []NeuronScore
}

// scoreNeurons turns one activation pass's gated scores into ranked
// ScoreBreakdowns. intersectionBoost rewards neurons reached by more
// than one distinct anchor — the spec names the field but not its
// exact formula, so it is derived here from the same anchor
// provenance the activation engine's co-activation binding uses,
// scaled down to a "boost" of the same order of magnitude as
// freshness/frequency (an Open Question resolved this way; see
// DESIGN.md).
func scoreNeurons(brain *core.Brain, scores map[core.NeuronID]float64, provenance map[core.NeuronID]map[int]struct{}, anchorCount int, now time.Time) []NeuronScore {
	out := make([]NeuronScore, 0, len(scores))
	for id, base := range scores {
		st := brain.NeuronStates[id]
		if st == nil {
			continue
		}
		breakdown := ScoreBreakdown{BaseActivation: base}

		if anchorCount > 0 {
			coFire := len(provenance[id])
			breakdown.IntersectionBoost = (float64(coFire) / float64(anchorCount)) * 0.15
		}

		if st.LastActivated != nil {
			daysSince := now.Sub(*st.LastActivated).Hours() / 24
			freshness := 1 - daysSince/30
			if freshness < 0 {
				freshness = 0
			}
			breakdown.FreshnessBoost = freshness * 0.1
		}

		breakdown.FrequencyBoost = math.Log(1+float64(st.AccessFrequency)) * 0.05

		out = append(out, NeuronScore{NeuronID: id, Breakdown: breakdown})
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Breakdown.Total(), out[j].Breakdown.Total()
		if ti != tj {
			return ti > tj
		}
		return out[i].NeuronID < out[j].NeuronID
	})
	return out
}

// reconstruct picks SINGLE, FIBER_SUMMARY or MULTI_NEURON per spec.md
// §4.6 and synthesizes the answer text.
func reconstruct(brain *core.Brain, scores []NeuronScore) Reconstruction {
	if len(scores) == 0 {
		return Reconstruction{Strategy: StrategyMultiNeuron, Answer: ""}
	}

	if len(scores) == 1 || scores[0].Breakdown.Total() > 2*scores[1].Breakdown.Total() {
		n := brain.Neurons[scores[0].NeuronID]
		answer := ""
		if n != nil {
			answer = n.Content
		}
		return Reconstruction{Strategy: StrategySingle, Answer: answer, Scores: scores}
	}

	totalScore := 0.0
	scoreByNeuron := make(map[core.NeuronID]float64, len(scores))
	for _, s := range scores {
		totalScore += s.Breakdown.Total()
		scoreByNeuron[s.NeuronID] = s.Breakdown.Total()
	}

	var bestFiber *core.Fiber
	bestFiberScore := 0.0
	for _, f := range brain.Fibers {
		sum := 0.0
		for id := range f.NeuronIDs {
			sum += scoreByNeuron[id]
		}
		if sum > bestFiberScore {
			bestFiberScore = sum
			bestFiber = f
		}
	}
	if bestFiber != nil && totalScore > 0 && bestFiberScore/totalScore >= 0.6 {
		return Reconstruction{Strategy: StrategyFiberSummary, Answer: bestFiber.Summary, Scores: scores}
	}

	return Reconstruction{Strategy: StrategyMultiNeuron, Answer: multiNeuronAnswer(brain, scores, bestFiber), Scores: scores}
}

// multiNeuronAnswer takes up to the top 5 contributing neurons,
// ordered by their position in the best-scoring fiber's pathway when
// they belong to it (falling back to score order otherwise), and
// joins their content with connective phrasing.
func multiNeuronAnswer(brain *core.Brain, scores []NeuronScore, preferredFiber *core.Fiber) string {
	top := scores
	if len(top) > 5 {
		top = top[:5]
	}

	pathwayRank := make(map[core.NeuronID]int)
	if preferredFiber != nil {
		for i, id := range preferredFiber.Pathway {
			pathwayRank[id] = i
		}
	}

	ordered := make([]NeuronScore, len(top))
	copy(ordered, top)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, iok := pathwayRank[ordered[i].NeuronID]
		rj, jok := pathwayRank[ordered[j].NeuronID]
		if iok && jok {
			return ri < rj
		}
		if iok != jok {
			return iok
		}
		return false
	})

	parts := make([]string, 0, len(ordered))
	for _, s := range ordered {
		if n := brain.Neurons[s.NeuronID]; n != nil && n.Content != "" {
			parts = append(parts, n.Content)
		}
	}
	return joinConnective(parts)
}

func joinConnective(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}
