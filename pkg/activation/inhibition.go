package activation

import (
	"math"
	"sort"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// lateralInhibition keeps the top k scores unchanged and scales
// everything else by factor (spec.md §4.4). Ties in score are broken
// lexicographically by id so the kept set is deterministic.
func lateralInhibition(scores map[core.NeuronID]float64, k int, factor float64) map[core.NeuronID]float64 {
	type ranked struct {
		id core.NeuronID
		v  float64
	}
	list := make([]ranked, 0, len(scores))
	for id, v := range scores {
		list = append(list, ranked{id, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].v != list[j].v {
			return list[i].v > list[j].v
		}
		return list[i].id < list[j].id
	})

	out := make(map[core.NeuronID]float64, len(list))
	for i, r := range list {
		if i < k {
			out[r.id] = r.v
		} else {
			out[r.id] = r.v * factor
		}
	}
	return out
}

// stabilize iterates up to 10 rounds applying a noise floor, global
// damping and homeostatic budget normalization (spec.md §4.4),
// stopping early once the L1 change between rounds drops below 1e-3
// or every score has decayed to ~zero.
func stabilize(scores map[core.NeuronID]float64, budget float64) (map[core.NeuronID]float64, int) {
	current := make(map[core.NeuronID]float64, len(scores))
	for id, v := range scores {
		current[id] = v
	}

	for round := 1; round <= 10; round++ {
		maxVal := 0.0
		for _, v := range current {
			if v > maxVal {
				maxVal = v
			}
		}
		if maxVal == 0 {
			return current, round
		}
		noiseFloor := 0.05 * maxVal

		next := make(map[core.NeuronID]float64, len(current))
		sum := 0.0
		for id, v := range current {
			nv := v - noiseFloor
			if nv < 0 {
				nv = 0
			}
			nv *= 0.85
			next[id] = nv
			sum += nv
		}
		if budget > 0 && sum > budget {
			scale := budget / sum
			for id := range next {
				next[id] *= scale
			}
		}

		delta := 0.0
		allNearZero := true
		for id, v := range next {
			delta += math.Abs(v - current[id])
			if v > 1e-6 {
				allNearZero = false
			}
		}
		current = next
		if delta < 1e-3 || allNearZero {
			return current, round
		}
	}
	return current, 10
}
