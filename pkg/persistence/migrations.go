package persistence

import (
	"fmt"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// migration upgrades a brain from one schema version to the next.
// Migrations are forward-only and additive: they never remove a field
// or rewrite existing data destructively, matching spec.md §4.2's
// migration contract.
type migration struct {
	toVersion int
	name      string
	apply     func(*core.Brain)
}

// migrations is the ordered v1 → v9 progression. Each entry assumes
// the brain is already at toVersion-1 and brings it forward by
// exactly one step. New fields default to their zero value unless a
// migration explicitly backfills them.
var migrations = []migration{
	{2, "add conductivity to fibers", func(b *core.Brain) {
		for _, f := range b.Fibers {
			if f.Conductivity == 0 {
				f.Conductivity = 1.0
			}
		}
	}},
	{3, "add pathway to fibers", func(b *core.Brain) {
		for _, f := range b.Fibers {
			if f.Pathway == nil {
				f.Pathway = fiberIDsToSlice(f.NeuronIDs)
			}
		}
	}},
	{4, "add content_hash to neurons", func(b *core.Brain) {
		for _, n := range b.Neurons {
			if n.ContentHash == 0 {
				n.SetContentHash(core.SimHash64(n.Content))
			}
		}
	}},
	{5, "introduce maturation records", func(b *core.Brain) {
		if b.Maturations == nil {
			b.Maturations = make(map[core.FiberID]*core.Maturation)
		}
		for id := range b.Fibers {
			if _, ok := b.Maturations[id]; !ok {
				b.Maturations[id] = &core.Maturation{
					FiberID:           id,
					Stage:             core.StageSTM,
					ReinforcementDays: make(map[string]struct{}),
					StageEnteredAt:    time.Now(),
				}
			}
		}
	}},
	{6, "introduce neuron states", func(b *core.Brain) {
		if b.NeuronStates == nil {
			b.NeuronStates = make(map[core.NeuronID]*core.NeuronState)
		}
		for id := range b.Neurons {
			if _, ok := b.NeuronStates[id]; !ok {
				b.NeuronStates[id] = core.NewNeuronState(id, 0.02)
			}
		}
	}},
	{7, "add reinforced_count to synapses", func(b *core.Brain) {
		// ReinforcedCount already defaults to 0; nothing to backfill,
		// this version just marks the field's introduction.
	}},
	{8, "rebuild adjacency index", func(b *core.Brain) {
		b.Adjacency = make(map[core.NeuronID][]core.SynapseID)
		for id, s := range b.Synapses {
			b.Adjacency[s.SourceID] = append(b.Adjacency[s.SourceID], id)
			if s.Direction == core.DirBi {
				b.Adjacency[s.TargetID] = append(b.Adjacency[s.TargetID], id)
			}
		}
	}},
	{9, "co-activation events + current schema", func(b *core.Brain) {
		// Co-activation events are tracked outside the brain snapshot
		// (pkg/coactivation), so this step is a version bump with no
		// structural change to the brain itself.
	}},
}

func fiberIDsToSlice(ids map[core.NeuronID]struct{}) []core.NeuronID {
	out := make([]core.NeuronID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out
}

// MigrateBrain runs every migration strictly after brain.SchemaVersion,
// in order, updating brain.SchemaVersion as it goes. It refuses to run
// backward (a brain persisted by a newer build than this one) and
// returns the same *core.Brain, mutated in place, for convenience.
func MigrateBrain(brain *core.Brain) (*core.Brain, error) {
	if brain.SchemaVersion > core.CurrentSchemaVersion {
		return nil, core.ErrSchemaTooNew
	}
	if brain.SchemaVersion <= 0 {
		brain.SchemaVersion = 1
	}

	for _, m := range migrations {
		if m.toVersion <= brain.SchemaVersion {
			continue
		}
		if m.toVersion != brain.SchemaVersion+1 {
			return nil, fmt.Errorf("persistence: migration gap, brain at v%d but next migration targets v%d (%s)", brain.SchemaVersion, m.toVersion, m.name)
		}
		m.apply(brain)
		brain.SchemaVersion = m.toVersion
	}
	return brain, nil
}
