package activation

import (
	"context"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// Mode selects which spreading strategy Spread runs.
type Mode string

const (
	ModeClassic Mode = "CLASSIC"
	ModeReflex  Mode = "REFLEX"
	ModeHybrid  Mode = "HYBRID"
)

// Engine runs spreading activation over a brain's graph. It mutates
// only NeuronState — activation level, refractory window, access
// stats — never brain topology, so it can run as a reader alongside a
// concurrent encode (spec.md §5).
type Engine struct {
	brain *core.Brain
}

func New(brain *core.Brain) *Engine {
	return &Engine{brain: brain}
}

// Result is the outcome of one spreading pass: gated per-neuron
// scores plus the co-activation pairs observed, ready for the reflex
// pipeline's deferred-write stage (§4.5 step 7).
type Result struct {
	Scores        map[core.NeuronID]float64
	CoActivations [][2]core.NeuronID
	Partial       bool
}

// SpreadOptions parameterizes one activation pass.
type SpreadOptions struct {
	Anchors []Anchor
	Mode    Mode
	MaxHops int // 0 means brain.Config.MaxSpreadHops
	Now     time.Time
}

// Spread runs one activation pass per opts.Mode, applies co-activation
// binding, lateral inhibition, stabilization and the disputed/
// superseded penalty, sigmoid-gates the result and commits it back
// into each reached neuron's state.
func (e *Engine) Spread(ctx context.Context, opts SpreadOptions) (Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	maxHops := opts.MaxHops
	if maxHops <= 0 {
		maxHops = e.brain.Config.MaxSpreadHops
	}

	e.brain.RLock()
	var (
		scores     map[core.NeuronID]float64
		provenance map[core.NeuronID]map[int]struct{}
		pairs      [][2]core.NeuronID
	)
	switch opts.Mode {
	case ModeClassic:
		scores, provenance = e.classicSpread(ctx, opts.Anchors, maxHops, now)
	case ModeReflex:
		scores, provenance, pairs = e.reflexSpread(ctx, opts.Anchors, now)
	default:
		reflexScores, reflexProv, reflexPairs := e.reflexSpread(ctx, opts.Anchors, now)
		discoveryScores, discoveryProv := e.classicSpread(ctx, opts.Anchors, maxHops/2, now)
		scores = mergeHybrid(reflexScores, discoveryScores)
		provenance = mergeProvenance(reflexProv, discoveryProv)
		pairs = reflexPairs
	}
	e.brain.RUnlock()

	partial := false
	select {
	case <-ctx.Done():
		partial = true
	default:
	}

	scores = applyBinding(scores, provenance, len(opts.Anchors))
	scores = lateralInhibition(scores, e.brain.Config.LateralInhibitionK, e.brain.Config.LateralInhibitionFactor)
	scores, _ = stabilize(scores, e.brain.Config.WeightNormalizationBudget)
	scores = e.applyDisputedPenalty(scores)

	e.gateAndWrite(scores, now)

	return Result{Scores: scores, CoActivations: pairs, Partial: partial}, nil
}

// mergeHybrid sums reflex and discovery contributions, discounting
// the classic-BFS discovery pass by 0.6 so reflex results stay ranked
// higher (spec.md §4.4 hybrid mode).
func mergeHybrid(reflex, discovery map[core.NeuronID]float64) map[core.NeuronID]float64 {
	out := make(map[core.NeuronID]float64, len(reflex)+len(discovery))
	for id, v := range reflex {
		out[id] += v
	}
	for id, v := range discovery {
		out[id] += v * 0.6
	}
	return out
}

func mergeProvenance(a, b map[core.NeuronID]map[int]struct{}) map[core.NeuronID]map[int]struct{} {
	out := make(map[core.NeuronID]map[int]struct{}, len(a)+len(b))
	merge := func(src map[core.NeuronID]map[int]struct{}) {
		for id, set := range src {
			if out[id] == nil {
				out[id] = make(map[int]struct{}, len(set))
			}
			for idx := range set {
				out[id][idx] = struct{}{}
			}
		}
	}
	merge(a)
	merge(b)
	return out
}

// applyBinding adds binding_strength = co_fire_count/anchor_count to
// every neuron reached by two or more distinct anchors (spec.md
// §4.4's co-activation / Hebbian binding).
func applyBinding(scores map[core.NeuronID]float64, provenance map[core.NeuronID]map[int]struct{}, anchorCount int) map[core.NeuronID]float64 {
	if anchorCount == 0 {
		return scores
	}
	out := make(map[core.NeuronID]float64, len(scores))
	for id, v := range scores {
		if coFire := len(provenance[id]); coFire >= 2 {
			v += float64(coFire) / float64(anchorCount)
		}
		out[id] = v
	}
	return out
}

// gateAndWrite sigmoid-gates every scored neuron's raw activation and
// commits it to NeuronState, firing neurons that cross threshold and
// skipping any still in their refractory window.
func (e *Engine) gateAndWrite(scores map[core.NeuronID]float64, now time.Time) {
	for id, raw := range scores {
		st := e.brain.NeuronStates[id]
		if st == nil || st.InRefractory(now) {
			continue
		}
		a := Sigmoid(raw, e.brain.Config.SigmoidSteepness)
		st.SetActivation(a)
		if a >= st.FiringThreshold {
			st.Fire(now)
		}
	}
}
