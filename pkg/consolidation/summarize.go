package consolidation

import (
	"fmt"
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// summarizeMinAge and summarizeLowAccessFrequency are spec.md §4.9
// SUMMARIZE's "old/low-access" gate: fibers at least this old whose
// Frequency (a counter only MERGE raises, by summing it into the survivor)
// never climbed past this count are candidates for compression. The
// spec names the gate but not the frequency cutoff; 3 mirrors
// CoActivationThreshold's default, treating "rarely touched" the same
// way the rest of the system treats "rarely co-activated".
const (
	summarizeMinAge             = 90 * 24 * time.Hour
	summarizeLowAccessFrequency = 3
)

// runSummarize compresses each old, low-access EPISODIC fiber into a
// single new CONCEPT neuron carrying the fiber's existing Summary text
// (or a generated placeholder if one was never set), replacing the
// fiber's own neuron membership with just that one neuron. The
// original member neurons are left in place — PRUNE is what actually
// removes them once their own activation decays — so SUMMARIZE only
// ever shrinks what a reconstruction over this fiber would need to
// read, not the brain's full neuron set.
func (d *Dispatcher) runSummarize(dryRun bool, now time.Time) Report {
	brain := d.brain
	brain.Lock()
	defer brain.Unlock()

	ids := make([]core.FiberID, 0, len(brain.Fibers))
	for id := range brain.Fibers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var created []core.NeuronID
	var affected []core.FiberID
	for _, id := range ids {
		f := brain.Fibers[id]
		mat := brain.Maturations[id]
		if mat == nil || mat.Stage != core.StageEpisodic {
			continue
		}
		if now.Sub(f.CreatedAt) < summarizeMinAge {
			continue
		}
		if f.Frequency >= summarizeLowAccessFrequency {
			continue
		}

		affected = append(affected, id)
		if dryRun {
			continue
		}

		content := f.Summary
		if content == "" {
			content = fmt.Sprintf("summary of %s fiber with %d members", f.MemoryType, len(f.NeuronIDs))
		}
		summary := core.NewNeuron(core.NeuronConcept, content)
		summary.Metadata["_summary_of"] = string(f.ID)
		summaryState := core.NewNeuronState(summary.ID, brain.Config.DecayRate)
		brain.AddNeuronUnsafe(summary, summaryState)

		f.NeuronIDs = map[core.NeuronID]struct{}{summary.ID: {}}
		f.AnchorNeuron = summary.ID
		f.Pathway = []core.NeuronID{summary.ID}
		created = append(created, summary.ID)
	}

	if !dryRun && len(created) > 0 {
		brain.Version++
	}

	return Report{
		Strategy:       StrategySummarize,
		DryRun:         dryRun,
		NeuronsCreated: created,
		FibersMerged:   0,
		Details:        map[string]any{"fibers_summarized": affected},
	}
}
