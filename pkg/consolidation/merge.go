package consolidation

import (
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// mergeTagJaccardThreshold is the similarity spec.md §4.9's MERGE
// strategy requires before two fibers are folded into one, stricter
// than pattern extraction's 0.6 clustering threshold (lifecycle/patterns.go)
// since merging discards one fiber's identity entirely rather than
// just grouping it for a derived concept.
const mergeTagJaccardThreshold = 0.8

// runMerge folds pairs of fibers that share both an anchor neuron and
// a tag-Jaccard similarity of at least mergeTagJaccardThreshold into a
// single fiber, keeping the higher-salience fiber's identity and
// unioning the other's neuron/synapse membership into it. Grounded on
// the teacher's reorgDaemon, which also consolidates structure for
// sleeping brains rather than active ones; here "sleeping" becomes
// "this consolidation run", since the dispatcher model has no
// independent notion of brain activity state.
func (d *Dispatcher) runMerge(dryRun bool, now time.Time) Report {
	brain := d.brain
	brain.Lock()
	defer brain.Unlock()

	fibers := make([]*core.Fiber, 0, len(brain.Fibers))
	for _, f := range brain.Fibers {
		fibers = append(fibers, f)
	}
	sort.Slice(fibers, func(i, j int) bool { return fibers[i].ID < fibers[j].ID })

	absorbed := make(map[core.FiberID]bool)
	merges := 0
	var removedFibers []core.FiberID

	for i := 0; i < len(fibers); i++ {
		if absorbed[fibers[i].ID] {
			continue
		}
		for j := i + 1; j < len(fibers); j++ {
			a, b := fibers[i], fibers[j]
			if absorbed[a.ID] || absorbed[b.ID] {
				continue
			}
			if a.AnchorNeuron != b.AnchorNeuron {
				continue
			}
			if jaccard(a.Tags(), b.Tags()) < mergeTagJaccardThreshold {
				continue
			}

			keep, drop := a, b
			if b.Salience > a.Salience {
				keep, drop = b, a
			}
			if !dryRun {
				mergeFiberInto(brain, keep, drop)
				delete(brain.Fibers, drop.ID)
				delete(brain.Maturations, drop.ID)
			}
			absorbed[drop.ID] = true
			removedFibers = append(removedFibers, drop.ID)
			merges++
			fibers[i] = keep
		}
	}

	if !dryRun && merges > 0 {
		brain.Version++
	}

	return Report{
		Strategy:      StrategyMerge,
		DryRun:        dryRun,
		FibersRemoved: removedFibers,
		FibersMerged:  merges,
	}
}

// mergeFiberInto unions drop's neuron/synapse membership and tags
// into keep, then recomputes keep's pathway deterministically as the
// lexicographically sorted union of both fibers' member neuron ids —
// spec.md §4.9 requires the recomputation be deterministic but never
// names an ordering, so sorted-by-id is the simplest one that is.
func mergeFiberInto(brain *core.Brain, keep, drop *core.Fiber) {
	keep.Lock()
	drop.RLock()
	for id := range drop.NeuronIDs {
		keep.NeuronIDs[id] = struct{}{}
	}
	for id := range drop.SynapseIDs {
		keep.SynapseIDs[id] = struct{}{}
	}
	for tag := range drop.AutoTags {
		keep.AutoTags[tag] = struct{}{}
	}
	for tag := range drop.AgentTags {
		keep.AgentTags[tag] = struct{}{}
	}
	keep.Frequency += drop.Frequency
	if drop.TimeStart != nil && (keep.TimeStart == nil || drop.TimeStart.Before(*keep.TimeStart)) {
		keep.TimeStart = drop.TimeStart
	}
	if drop.TimeEnd != nil && (keep.TimeEnd == nil || drop.TimeEnd.After(*keep.TimeEnd)) {
		keep.TimeEnd = drop.TimeEnd
	}
	drop.RUnlock()

	pathway := make([]core.NeuronID, 0, len(keep.NeuronIDs))
	for id := range keep.NeuronIDs {
		pathway = append(pathway, id)
	}
	sort.Slice(pathway, func(i, j int) bool { return pathway[i] < pathway[j] })
	keep.Pathway = pathway
	keep.Unlock()
}
