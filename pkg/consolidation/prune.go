package consolidation

import (
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// hubInboundSynapseThreshold is the inbound-synapse count spec.md
// §4.9's PRUNE strategy exempts "hub" neurons at, regardless of how
// low their activation has decayed.
const hubInboundSynapseThreshold = 8

// salienceExemptThreshold exempts a neuron belonging to any
// sufficiently salient fiber from removal even once its own
// activation has fallen below the prune threshold.
const salienceExemptThreshold = 0.8

// deadSynapseWeightThreshold, together with a zero reinforcement count,
// is PRUNE's independent synapse-removal rule: a synapse this weak that
// has never once been reinforced is noise, not a dormant memory.
const deadSynapseWeightThreshold = 0.05

// runPrune removes neurons whose activation has decayed below
// brain.Config.PruneThreshold, unless they belong to a fiber salient
// enough to exempt them or are themselves a hub (spec.md §4.9 PRUNE).
// Independently, any synapse below deadSynapseWeightThreshold that has
// never been reinforced is removed. Grounded on the teacher's
// pruneDaemon, which submits a single OpPrune pass over a brain and
// reports a removed-count; here the pass runs synchronously under the
// dispatcher and returns the full candidate set, not just a count, so
// a dry run can report exactly what would be removed.
func (d *Dispatcher) runPrune(dryRun bool, now time.Time) Report {
	brain := d.brain
	brain.Lock()
	defer brain.Unlock()

	fibersByNeuron := make(map[core.NeuronID][]*core.Fiber)
	for _, f := range brain.Fibers {
		for id := range f.NeuronIDs {
			fibersByNeuron[id] = append(fibersByNeuron[id], f)
		}
	}
	inbound := make(map[core.NeuronID]int)
	for _, s := range brain.Synapses {
		inbound[s.TargetID]++
		if s.Direction == core.DirBi {
			inbound[s.SourceID]++
		}
	}

	var deadNeurons []core.NeuronID
	for id, st := range brain.NeuronStates {
		if st.Activation() >= brain.Config.PruneThreshold {
			continue
		}
		if inbound[id] >= hubInboundSynapseThreshold {
			continue
		}
		exempt := false
		for _, f := range fibersByNeuron[id] {
			if f.Salience >= salienceExemptThreshold {
				exempt = true
				break
			}
		}
		if exempt {
			continue
		}
		deadNeurons = append(deadNeurons, id)
	}
	sort.Slice(deadNeurons, func(i, j int) bool { return deadNeurons[i] < deadNeurons[j] })

	deadSet := make(map[core.NeuronID]struct{}, len(deadNeurons))
	for _, id := range deadNeurons {
		deadSet[id] = struct{}{}
	}

	var deadSynapses []core.SynapseID
	for id, s := range brain.Synapses {
		_, srcDead := deadSet[s.SourceID]
		_, tgtDead := deadSet[s.TargetID]
		if srcDead || tgtDead {
			deadSynapses = append(deadSynapses, id)
			continue
		}
		if s.Weight < deadSynapseWeightThreshold && s.ReinforcedCount == 0 {
			deadSynapses = append(deadSynapses, id)
		}
	}
	sort.Slice(deadSynapses, func(i, j int) bool { return deadSynapses[i] < deadSynapses[j] })

	report := Report{Strategy: StrategyPrune, DryRun: dryRun,
		NeuronsRemoved: deadNeurons, SynapsesRemoved: deadSynapses}
	if dryRun {
		return report
	}

	for _, id := range deadSynapses {
		removeSynapseUnsafe(brain, id)
	}
	for _, id := range deadNeurons {
		delete(brain.Neurons, id)
		delete(brain.NeuronStates, id)
		delete(brain.Adjacency, id)
		for _, f := range brain.Fibers {
			delete(f.NeuronIDs, id)
		}
	}
	if len(deadNeurons) > 0 || len(deadSynapses) > 0 {
		brain.Version++
	}
	return report
}

// removeSynapseUnsafe deletes a synapse and its adjacency entries.
// Caller must hold brain's write lock.
func removeSynapseUnsafe(brain *core.Brain, id core.SynapseID) {
	s := brain.Synapses[id]
	if s == nil {
		return
	}
	delete(brain.Synapses, id)
	brain.Adjacency[s.SourceID] = removeFromSlice(brain.Adjacency[s.SourceID], id)
	if s.Direction == core.DirBi {
		brain.Adjacency[s.TargetID] = removeFromSlice(brain.Adjacency[s.TargetID], id)
	}
	for _, f := range brain.Fibers {
		delete(f.SynapseIDs, id)
	}
}

func removeFromSlice(ids []core.SynapseID, target core.SynapseID) []core.SynapseID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
