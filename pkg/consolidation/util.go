package consolidation

// jaccard computes the Jaccard similarity of two tag sets, the same
// formula lifecycle's pattern extraction uses for fiber clustering;
// duplicated here rather than exported from lifecycle since the two
// packages cluster fibers for different purposes (a SEMANTIC concept
// vs. a merge/habit candidate) and neither should depend on the
// other's internal thresholds.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
