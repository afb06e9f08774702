package activation

import (
	"container/heap"
	"context"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// Anchor is a seed point for spreading activation: a neuron id and
// its initial pre-gating weight, typically the extraction layer's
// per-type anchor base weight (core.NeuronType.AnchorBaseWeight).
type Anchor struct {
	NeuronID core.NeuronID
	Weight   float64
}

// classicSpread runs BFS spreading activation from the given anchors
// (spec.md §4.4's "classic spreading activation"): from each anchor
// n0 with seed weight w0, candidate activation on a target m across
// synapse n→m of weight w_s at hop h is a_n·w_s·(1-decay_rate), summed
// into m across every anchor that reaches it. Results below
// activation_threshold are pruned; the queue is capped at
// MaxQueueSize entries; traversal stops at maxHops or an empty queue.
//
// It returns the raw (pre-gating) per-neuron activation sum and, for
// every reached neuron, the set of distinct anchor indices that
// contributed to it — the provenance co-activation binding needs.
func (e *Engine) classicSpread(ctx context.Context, anchors []Anchor, maxHops int, now time.Time) (map[core.NeuronID]float64, map[core.NeuronID]map[int]struct{}) {
	decayRate := e.brain.Config.DecayRate
	threshold := e.brain.Config.ActivationThreshold

	scores := make(map[core.NeuronID]float64)
	provenance := make(map[core.NeuronID]map[int]struct{})
	bestHopSeen := make(map[core.NeuronID]int)

	pq := &spreadQueue{}
	heap.Init(pq)
	pushed := 0

	seed := func(id core.NeuronID, w float64, hop, anchorIdx int) {
		if pushed >= MaxQueueSize {
			return
		}
		st := e.brain.NeuronStates[id]
		if st == nil || st.InRefractory(now) {
			return
		}
		heap.Push(pq, &queueItem{id: id, weight: w, hop: hop, lastActivated: lastActivatedOr(st, time.Time{}), anchorIdx: anchorIdx})
		pushed++
	}

	for i, a := range anchors {
		seed(a.NeuronID, a.Weight, 0, i)
	}

	for pq.Len() > 0 {
		select {
		case <-ctx.Done():
			return scores, provenance
		default:
		}

		item := heap.Pop(pq).(*queueItem)

		scores[item.id] += item.weight
		if provenance[item.id] == nil {
			provenance[item.id] = make(map[int]struct{})
		}
		provenance[item.id][item.anchorIdx] = struct{}{}

		if prevHop, ok := bestHopSeen[item.id]; ok && prevHop <= item.hop {
			continue
		}
		bestHopSeen[item.id] = item.hop

		if item.hop >= maxHops {
			continue
		}
		for _, synID := range e.brain.Adjacency[item.id] {
			syn := e.brain.Synapses[synID]
			if syn == nil {
				continue
			}
			target := otherEnd(syn, item.id)
			if target == "" {
				continue
			}
			next := item.weight * syn.Weight * (1 - decayRate)
			if next < threshold {
				continue
			}
			seed(target, next, item.hop+1, item.anchorIdx)
		}
	}

	return scores, provenance
}

// otherEnd returns the neuron at the far end of s from the perspective
// of `from`, respecting direction: a UNI synapse only conducts source
// to target, a BI synapse conducts either way.
func otherEnd(s *core.Synapse, from core.NeuronID) core.NeuronID {
	if s.SourceID == from {
		return s.TargetID
	}
	if s.Direction == core.DirBi && s.TargetID == from {
		return s.SourceID
	}
	return ""
}

func lastActivatedOr(st *core.NeuronState, fallback time.Time) time.Time {
	if st.LastActivated == nil {
		return fallback
	}
	return *st.LastActivated
}
