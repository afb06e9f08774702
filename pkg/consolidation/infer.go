package consolidation

import (
	"math"
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// coOccursCountCeiling is the co-activation count spec.md §4.9's INFER
// strategy treats as "fully confident": weight = min(1.0, count/10).
const coOccursCountCeiling = 10.0

// runInfer turns co-activation pairs that recurred on at least
// brain.Config.CoActivationThreshold distinct days within the
// trailing brain.Config.CoActivationWindowDays into CO_OCCURS
// synapses (creating one if none exists between the pair, reinforcing
// the existing one otherwise), weight = min(1.0, count/10). Grounded
// on the coactivation package's Ledger.PairCounts, which already
// aggregates exactly this per-pair distinct-day count; INFER is the
// consumer that package's doc comment anticipates. Capped at
// brain.Config.MaxInferencesPerRun created-or-reinforced synapses per run so one
// consolidation pass can't flood the graph.
func (d *Dispatcher) runInfer(dryRun bool, now time.Time) Report {
	brain := d.brain
	brain.RLock()
	threshold := brain.Config.CoActivationThreshold
	windowDays := brain.Config.CoActivationWindowDays
	maxPerRun := brain.Config.MaxInferencesPerRun
	brain.RUnlock()

	if d.ledger == nil {
		return Report{Strategy: StrategyInfer, DryRun: dryRun}
	}
	pairCounts := d.ledger.PairCounts(windowDays, now)

	brain.Lock()
	defer brain.Unlock()

	existing := make(map[[2]core.NeuronID]*core.Synapse)
	for _, s := range brain.Synapses {
		if s.Type != core.SynCoOccurs {
			continue
		}
		existing[[2]core.NeuronID{s.SourceID, s.TargetID}] = s
	}

	var created []core.SynapseID
	reinforced := 0
	for _, pc := range pairCounts {
		if pc.Count < threshold {
			continue
		}
		if len(created)+reinforced >= maxPerRun {
			break
		}
		if _, ok := brain.Neurons[pc.Pair.First]; !ok {
			continue
		}
		if _, ok := brain.Neurons[pc.Pair.Second]; !ok {
			continue
		}

		weight := math.Min(1.0, float64(pc.Count)/coOccursCountCeiling)

		if syn, ok := existing[[2]core.NeuronID{pc.Pair.First, pc.Pair.Second}]; ok {
			if !dryRun {
				syn.SetWeight(weight)
				syn.Reinforce(0, now)
			}
			reinforced++
			continue
		}

		if dryRun {
			created = append(created, core.NewSynapseID(pc.Pair.First, pc.Pair.Second, core.SynCoOccurs))
			continue
		}
		syn := core.NewSynapse(pc.Pair.First, pc.Pair.Second, core.SynCoOccurs, weight, core.DirBi)
		syn.Metadata["_inferred"] = true
		syn.CreatedAt = now
		brain.AddSynapseUnsafe(syn)
		created = append(created, syn.ID)
	}
	sort.Slice(created, func(i, j int) bool { return created[i] < created[j] })

	return Report{
		Strategy:        StrategyInfer,
		DryRun:          dryRun,
		SynapsesCreated: created,
		Details:         map[string]any{"synapses_reinforced": reinforced},
	}
}
