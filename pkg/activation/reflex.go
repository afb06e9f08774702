package activation

import (
	"context"
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// reflexSpread walks the pathway of every fiber containing at least
// one anchor, forward and backward from the anchor's position,
// propagating activation per spec.md §4.4's trail formula:
//
//	a_next = a_curr · (1 - decay) · synapse_weight · conductivity · time_factor
//	time_factor = max(0.1, 1 - age_hours/168)
//
// It returns the raw per-neuron activation sum, the anchor-index
// provenance for co-activation binding, and every (a,b) pair (a<b)
// of neurons activated during this pass, for deferred co-activation
// recording.
func (e *Engine) reflexSpread(ctx context.Context, anchors []Anchor, now time.Time) (map[core.NeuronID]float64, map[core.NeuronID]map[int]struct{}, [][2]core.NeuronID) {
	decayRate := e.brain.Config.DecayRate

	anchorIdx := make(map[core.NeuronID]int, len(anchors))
	anchorWeight := make(map[core.NeuronID]float64, len(anchors))
	for i, a := range anchors {
		anchorIdx[a.NeuronID] = i
		anchorWeight[a.NeuronID] = a.Weight
	}

	scores := make(map[core.NeuronID]float64)
	provenance := make(map[core.NeuronID]map[int]struct{})
	activated := make(map[core.NeuronID]struct{})

	record := func(id core.NeuronID, idx int, delta float64) {
		scores[id] += delta
		if provenance[id] == nil {
			provenance[id] = make(map[int]struct{})
		}
		provenance[id][idx] = struct{}{}
		activated[id] = struct{}{}
	}

	for _, fiber := range e.brain.Fibers {
		select {
		case <-ctx.Done():
			return scores, provenance, coActivationPairs(activated)
		default:
		}

		if !fiber.ValidAt(now) {
			continue
		}

		anchorPos, idx := -1, -1
		for pos, id := range fiber.Pathway {
			if i, ok := anchorIdx[id]; ok {
				anchorPos, idx = pos, i
				break
			}
		}
		if anchorPos == -1 {
			continue
		}

		seedWeight := anchorWeight[fiber.Pathway[anchorPos]]
		record(fiber.Pathway[anchorPos], idx, seedWeight)

		e.walkTrail(fiber, anchorPos, anchorPos+1, len(fiber.Pathway), 1, seedWeight, decayRate, idx, now, record)
		e.walkTrail(fiber, anchorPos, anchorPos-1, -1, -1, seedWeight, decayRate, idx, now, record)
	}

	return scores, provenance, coActivationPairs(activated)
}

// walkTrail propagates activation along fiber.Pathway starting one
// step from `from` in the given direction (step ±1) until `stop`,
// applying the trail decay formula at each hop.
func (e *Engine) walkTrail(fiber *core.Fiber, from, start, stop, step int, current, decayRate float64, anchorIdx int, now time.Time, record func(core.NeuronID, int, float64)) {
	prevID := fiber.Pathway[from]
	for i := start; i != stop; i += step {
		id := fiber.Pathway[i]
		synWeight, ok := e.directSynapseWeight(prevID, id)
		if !ok {
			return
		}
		st := e.brain.NeuronStates[id]
		if st == nil || st.InRefractory(now) {
			return
		}
		ageHours := now.Sub(lastActivatedOr(st, now)).Hours()
		timeFactor := 1 - ageHours/168
		if timeFactor < 0.1 {
			timeFactor = 0.1
		}
		current = current * (1 - decayRate) * synWeight * fiber.Conductivity * timeFactor
		record(id, anchorIdx, current)
		prevID = id
	}
}

// directSynapseWeight finds the synapse connecting two consecutive
// pathway members, regardless of which one is its source: a fiber's
// pathway is traversed both forward and backward, and an edge created
// UNI from anchor to member still carries the trail when walked in
// reverse.
func (e *Engine) directSynapseWeight(from, to core.NeuronID) (float64, bool) {
	for _, synID := range e.brain.Adjacency[from] {
		if syn := e.brain.Synapses[synID]; syn != nil && (syn.SourceID == to || syn.TargetID == to) {
			return syn.Weight, true
		}
	}
	for _, synID := range e.brain.Adjacency[to] {
		if syn := e.brain.Synapses[synID]; syn != nil && (syn.SourceID == from || syn.TargetID == from) {
			return syn.Weight, true
		}
	}
	return 0, false
}

func coActivationPairs(activated map[core.NeuronID]struct{}) [][2]core.NeuronID {
	ids := make([]core.NeuronID, 0, len(activated))
	for id := range activated {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pairs := make([][2]core.NeuronID, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, [2]core.NeuronID{ids[i], ids[j]})
		}
	}
	return pairs
}
