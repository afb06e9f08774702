package activation

import "github.com/lam-tt/neural-memory/pkg/core"

// applyDisputedPenalty multiplies a disputed neuron's score by 0.5
// and a superseded neuron's by 0.25 (spec.md §4.4); superseded takes
// precedence since a superseded fact is also typically disputed.
func (e *Engine) applyDisputedPenalty(scores map[core.NeuronID]float64) map[core.NeuronID]float64 {
	out := make(map[core.NeuronID]float64, len(scores))
	for id, v := range scores {
		n := e.brain.Neurons[id]
		switch {
		case n == nil:
		case n.IsSuperseded():
			v *= 0.25
		case n.IsDisputed():
			v *= 0.5
		}
		out[id] = v
	}
	return out
}
