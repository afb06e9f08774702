package consolidation

import (
	"sort"
	"strings"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// habitWindowSize is the sliding-window length LEARN_HABITS slides
// across each fiber's ordered ACTION sequence to find recurring
// subsequences (spec.md §4.9 LEARN_HABITS).
const habitWindowSize = 2

// habitMinFrequency is the minimum number of distinct fibers a
// subsequence must recur in before it's promoted to a workflow
// template.
const habitMinFrequency = 3

// habitMinTagConsistency is the minimum average pairwise tag-Jaccard
// across a candidate's contributing fibers spec.md's "consistent tag
// overlap" gate requires; the spec names the gate without a number,
// so this reuses pattern extraction's 0.6 clustering bar (lifecycle's
// ExtractPatterns) on the reasoning that both gates are asking the
// same question — do these memories belong to the same kind of
// episode.
const habitMinTagConsistency = 0.6

// runLearnHabits mines each fiber's ordered ACTION-neuron pathway for
// contiguous subsequences of habitWindowSize actions, and promotes any
// subsequence recurring across at least habitMinFrequency distinct
// fibers with consistent tags into a workflow-template CONCEPT
// neuron, chained to its action steps with SynInvolves and with
// SynPrecedes edges between the steps themselves. Grounded on the
// same sliding-window counting idiom ExtractPatterns uses for tag
// clustering, applied here to ordered action content instead of an
// unordered tag set.
func (d *Dispatcher) runLearnHabits(dryRun bool, now time.Time) Report {
	brain := d.brain
	brain.Lock()
	defer brain.Unlock()

	fiberIDs := make([]core.FiberID, 0, len(brain.Fibers))
	for id := range brain.Fibers {
		fiberIDs = append(fiberIDs, id)
	}
	sort.Slice(fiberIDs, func(i, j int) bool { return fiberIDs[i] < fiberIDs[j] })

	type candidate struct {
		actionIDs []core.NeuronID
		fibers    []*core.Fiber
	}
	bySignature := make(map[string]*candidate)

	for _, id := range fiberIDs {
		f := brain.Fibers[id]
		var actionIDs []core.NeuronID
		var actionContents []string
		for _, nid := range f.Pathway {
			n := brain.Neurons[nid]
			if n == nil || n.Type != core.NeuronAction {
				continue
			}
			actionIDs = append(actionIDs, nid)
			actionContents = append(actionContents, n.Content)
		}
		if len(actionContents) < habitWindowSize {
			continue
		}
		for i := 0; i+habitWindowSize <= len(actionContents); i++ {
			sig := strings.Join(actionContents[i:i+habitWindowSize], "\x1f")
			c := bySignature[sig]
			if c == nil {
				c = &candidate{actionIDs: actionIDs[i : i+habitWindowSize]}
				bySignature[sig] = c
			}
			c.fibers = append(c.fibers, f)
		}
	}

	sigs := make([]string, 0, len(bySignature))
	for sig := range bySignature {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)

	var templatesCreated []core.NeuronID
	var synapsesCreated []core.SynapseID
	for _, sig := range sigs {
		c := bySignature[sig]
		if len(c.fibers) < habitMinFrequency {
			continue
		}
		if averagePairwiseTagJaccard(c.fibers) < habitMinTagConsistency {
			continue
		}

		if dryRun {
			continue
		}

		template := core.NewNeuron(core.NeuronConcept, "habit: "+strings.ReplaceAll(sig, "\x1f", " -> "))
		template.Metadata["_habit_template"] = true
		template.Metadata["_frequency"] = len(c.fibers)
		templateState := core.NewNeuronState(template.ID, brain.Config.DecayRate)
		brain.AddNeuronUnsafe(template, templateState)
		templatesCreated = append(templatesCreated, template.ID)

		for _, actionID := range c.actionIDs {
			syn := core.NewSynapse(template.ID, actionID, core.SynInvolves, 0.5, core.DirUni)
			syn.CreatedAt = now
			brain.AddSynapseUnsafe(syn)
			synapsesCreated = append(synapsesCreated, syn.ID)
		}
		for i := 0; i+1 < len(c.actionIDs); i++ {
			syn := core.NewSynapse(c.actionIDs[i], c.actionIDs[i+1], core.SynPrecedes, 0.5, core.DirUni)
			syn.CreatedAt = now
			brain.AddSynapseUnsafe(syn)
			synapsesCreated = append(synapsesCreated, syn.ID)
		}
	}

	if !dryRun && len(templatesCreated) > 0 {
		brain.Version++
	}

	return Report{
		Strategy:        StrategyLearnHabits,
		DryRun:          dryRun,
		NeuronsCreated:  templatesCreated,
		SynapsesCreated: synapsesCreated,
		Details:         map[string]any{"candidate_subsequences": len(sigs)},
	}
}

func averagePairwiseTagJaccard(fibers []*core.Fiber) float64 {
	if len(fibers) < 2 {
		return 1.0
	}
	total, pairs := 0.0, 0
	for i := 0; i < len(fibers); i++ {
		for j := i + 1; j < len(fibers); j++ {
			total += jaccard(fibers[i].Tags(), fibers[j].Tags())
			pairs++
		}
	}
	if pairs == 0 {
		return 1.0
	}
	return total / float64(pairs)
}
