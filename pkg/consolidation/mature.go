package consolidation

import (
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/lifecycle"
)

// runMature advances every fiber's maturation stage per the passage of
// time (lifecycle.AdvanceStage, spec.md §3), then runs pattern
// extraction over whatever is now EPISODIC (lifecycle.ExtractPatterns,
// spec.md §4.8) so freshly-matured fibers are immediately eligible to
// seed a SEMANTIC concept in the same pass. A dry run still computes
// what AdvanceStage would decide per fiber by copying each Maturation
// record rather than mutating the live one, but skips pattern
// extraction entirely since ExtractPatterns mutates the brain by
// construction (spec.md §4.8) and has no side-effect-free preview
// mode.
func (d *Dispatcher) runMature(dryRun bool, now time.Time) Report {
	brain := d.brain

	if dryRun {
		brain.RLock()
		ids := make([]core.FiberID, 0, len(brain.Fibers))
		for id := range brain.Fibers {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		var wouldAdvance []core.FiberID
		for _, id := range ids {
			f := brain.Fibers[id]
			mat := brain.Maturations[id]
			if mat == nil {
				continue
			}
			preview := &core.Maturation{
				FiberID:            mat.FiberID,
				Stage:              mat.Stage,
				ReinforcementCount: mat.ReinforcementCount,
				ReinforcementDays:  mat.ReinforcementDays,
				StageEnteredAt:     mat.StageEnteredAt,
			}
			before := preview.Stage
			lifecycle.AdvanceStage(preview, f.CreatedAt, now)
			if preview.Stage != before {
				wouldAdvance = append(wouldAdvance, id)
			}
		}
		brain.RUnlock()
		return Report{Strategy: StrategyMature, DryRun: true,
			Details: map[string]any{"fibers_would_advance": wouldAdvance}}
	}

	brain.Lock()
	ids := make([]core.FiberID, 0, len(brain.Fibers))
	for id := range brain.Fibers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var advanced []core.FiberID
	for _, id := range ids {
		f := brain.Fibers[id]
		mat := brain.Maturations[id]
		if mat == nil {
			continue
		}
		before := mat.Stage
		lifecycle.AdvanceStage(mat, f.CreatedAt, now)
		if mat.Stage != before {
			advanced = append(advanced, id)
		}
	}
	brain.Unlock()

	patterns := lifecycle.ExtractPatterns(brain, now)

	return Report{
		Strategy:       StrategyMature,
		DryRun:         false,
		NeuronsCreated: patterns.ConceptsCreated,
		Details:        map[string]any{"fibers_advanced": advanced},
	}
}
