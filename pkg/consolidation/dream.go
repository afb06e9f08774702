package consolidation

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/activation"
	"github.com/lam-tt/neural-memory/pkg/core"
)

// dreamSampleSize is how many neurons a DREAM pass samples to seed its
// short spreading-activation run (spec.md §4.9 DREAM).
const dreamSampleSize = 8

// dreamWeakAssociationWeight is the weight DREAM gives a synapse
// created for an unexpected co-activation pair: weaker than any
// deliberate reinforcement. The steeper decay rate such a synapse
// carries (so it fades within days rather than months unless
// something later reinforces it) lives in lifecycle.Decay, keyed off
// the "_dreamed" metadata flag set below.
const dreamWeakAssociationWeight = 0.1

// dreamMaxHops bounds the spreading pass DREAM runs from its sampled
// anchors; shallow by design since the point is to surface a handful
// of surprising neighbors, not fully reconstruct a memory.
const dreamMaxHops = 2

// runDream samples dreamSampleSize random neurons, runs a short hybrid
// spreading pass from them, and for every co-activation pair the
// engine reports that was not already directly connected, creates (or
// leaves alone, since a dream association is exploratory rather than
// reinforced) a weak RELATED_TO synapse with a steep decay rate.
// Grounded on the teacher's reorgDaemon, the only always-on pass that
// touched sleeping brains without being driven by a specific request;
// DREAM is this system's equivalent idle-time pass.
func (d *Dispatcher) runDream(ctx context.Context, dryRun bool, now time.Time) Report {
	brain := d.brain

	brain.RLock()
	ids := make([]core.NeuronID, 0, len(brain.Neurons))
	for id := range brain.Neurons {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	brain.RUnlock()

	if len(ids) == 0 {
		return Report{Strategy: StrategyDream, DryRun: dryRun}
	}

	sampleN := dreamSampleSize
	if sampleN > len(ids) {
		sampleN = len(ids)
	}
	perm := rand.Perm(len(ids))[:sampleN]
	anchors := make([]activation.Anchor, 0, sampleN)
	for _, idx := range perm {
		anchors = append(anchors, activation.Anchor{NeuronID: ids[idx], Weight: 1.0})
	}

	engine := activation.New(brain)
	result, err := engine.Spread(ctx, activation.SpreadOptions{
		Anchors: anchors,
		Mode:    activation.ModeHybrid,
		MaxHops: dreamMaxHops,
		Now:     now,
	})
	if err != nil {
		return Report{Strategy: StrategyDream, DryRun: dryRun, Details: map[string]any{"error": err.Error()}}
	}

	brain.Lock()
	defer brain.Unlock()

	linked := make(map[[2]core.NeuronID]bool)
	for _, s := range brain.Synapses {
		linked[[2]core.NeuronID{s.SourceID, s.TargetID}] = true
		linked[[2]core.NeuronID{s.TargetID, s.SourceID}] = true
	}

	var created []core.SynapseID
	for _, pair := range result.CoActivations {
		a, b := pair[0], pair[1]
		if a == b || linked[[2]core.NeuronID{a, b}] {
			continue
		}
		if dryRun {
			created = append(created, core.NewSynapseID(a, b, core.SynRelatedTo))
			linked[[2]core.NeuronID{a, b}] = true
			continue
		}
		syn := core.NewSynapse(a, b, core.SynRelatedTo, dreamWeakAssociationWeight, core.DirBi)
		syn.Metadata["_inferred"] = true
		syn.Metadata["_dreamed"] = true
		syn.CreatedAt = now
		brain.AddSynapseUnsafe(syn)
		linked[[2]core.NeuronID{a, b}] = true
		linked[[2]core.NeuronID{b, a}] = true
		created = append(created, syn.ID)
	}
	sort.Slice(created, func(i, j int) bool { return created[i] < created[j] })

	return Report{
		Strategy:        StrategyDream,
		DryRun:          dryRun,
		SynapsesCreated: created,
		Details:         map[string]any{"anchors_sampled": len(anchors)},
	}
}
