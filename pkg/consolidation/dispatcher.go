// Package consolidation runs the eight background passes spec.md §4.9
// groups under "consolidation": PRUNE, MERGE, SUMMARIZE, MATURE, INFER,
// ENRICH, DREAM and LEARN_HABITS. The teacher's DaemonManager
// (pkg/daemon/workers.go) drives a fixed set of always-on interval
// tickers, one goroutine per concern; here the same "one named pass
// over the whole brain, one report per run" shape is kept but
// restructured into a single Dispatcher invoked per-strategy, with a
// dry-run mode and a report return value in place of a ticker loop,
// since a consolidation run is something an operator or a sleep-cycle
// daemon schedules rather than something that should free-run
// continuously against a brain under active query load.
package consolidation

import (
	"context"
	"fmt"
	"time"

	"github.com/lam-tt/neural-memory/pkg/coactivation"
	"github.com/lam-tt/neural-memory/pkg/core"
)

// Strategy names one of the eight consolidation passes.
type Strategy string

const (
	StrategyPrune       Strategy = "PRUNE"
	StrategyMerge       Strategy = "MERGE"
	StrategySummarize   Strategy = "SUMMARIZE"
	StrategyMature      Strategy = "MATURE"
	StrategyInfer       Strategy = "INFER"
	StrategyEnrich      Strategy = "ENRICH"
	StrategyDream       Strategy = "DREAM"
	StrategyLearnHabits Strategy = "LEARN_HABITS"
)

// Report summarizes one strategy's run. DryRun runs populate the same
// fields a committed run would, just without mutating the brain, so a
// caller can preview a consolidation pass before committing to it.
type Report struct {
	Strategy Strategy
	DryRun   bool

	NeuronsRemoved  []core.NeuronID
	SynapsesRemoved []core.SynapseID
	FibersRemoved   []core.FiberID

	NeuronsCreated  []core.NeuronID
	SynapsesCreated []core.SynapseID

	FibersMerged int
	Details      map[string]any
}

// Dispatcher runs consolidation strategies against a single brain.
// Grounded on the teacher's DaemonManager, which holds the same kind
// of brain-scoped collaborators (a lifecycle manager, a store) a
// daemon loop closes over; Dispatcher holds the collaborators a
// consolidation pass needs instead.
type Dispatcher struct {
	brain  *core.Brain
	ledger *coactivation.Ledger
}

// New builds a Dispatcher over brain, using ledger as the
// co-activation signal source for INFER.
func New(brain *core.Brain, ledger *coactivation.Ledger) *Dispatcher {
	return &Dispatcher{brain: brain, ledger: ledger}
}

// Run executes one strategy and returns its report. dryRun true means
// every candidate is computed and reported but the brain is never
// mutated.
func (d *Dispatcher) Run(ctx context.Context, strategy Strategy, dryRun bool, now time.Time) (Report, error) {
	switch strategy {
	case StrategyPrune:
		return d.runPrune(dryRun, now), nil
	case StrategyMerge:
		return d.runMerge(dryRun, now), nil
	case StrategySummarize:
		return d.runSummarize(dryRun, now), nil
	case StrategyMature:
		return d.runMature(dryRun, now), nil
	case StrategyInfer:
		return d.runInfer(dryRun, now), nil
	case StrategyEnrich:
		return d.runEnrich(dryRun, now), nil
	case StrategyDream:
		return d.runDream(ctx, dryRun, now), nil
	case StrategyLearnHabits:
		return d.runLearnHabits(dryRun, now), nil
	default:
		return Report{}, fmt.Errorf("consolidation: unknown strategy %q", strategy)
	}
}

// RunAll executes every strategy in the fixed order spec.md §4.9 lists
// them, the order a full sleep-cycle consolidation pass runs them in:
// structural cleanup (PRUNE, MERGE) before the passes that synthesize
// new structure from what remains (SUMMARIZE onward).
func (d *Dispatcher) RunAll(ctx context.Context, dryRun bool, now time.Time) ([]Report, error) {
	order := []Strategy{
		StrategyPrune, StrategyMerge, StrategySummarize, StrategyMature,
		StrategyInfer, StrategyEnrich, StrategyDream, StrategyLearnHabits,
	}
	reports := make([]Report, 0, len(order))
	for _, s := range order {
		r, err := d.Run(ctx, s, dryRun, now)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}
