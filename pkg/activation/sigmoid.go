package activation

import "math"

// Sigmoid maps a raw activation score r to a gated value in (0,1)
// with steepness s (spec.md §4.4): a = 1 / (1 + exp(-s·(r-0.5))).
// Every activation assignment passes through this transform except
// direct reinforcement, which sets a explicitly.
func Sigmoid(r, steepness float64) float64 {
	return 1 / (1 + math.Exp(-steepness*(r-0.5)))
}
