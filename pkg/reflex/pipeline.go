// Package reflex orchestrates one retrieval end to end (spec.md
// §4.5): parse the query, resolve anchors against the brain, spread
// activation in hybrid mode with a depth-derived hop budget,
// reconstruct an answer, and flush the retrieval's deferred writes
// (Hebbian reinforcement, fiber conductivity, co-activation events) in
// one batch. Grounded on the teacher's per-operation dispatch shape in
// pkg/concurrency/brain_worker.go and the deferred-apply idiom of
// pkg/daemon/workers.go, collapsed here into one synchronous call
// instead of a timer-driven background pass.
package reflex

import (
	"context"
	"strings"
	"time"

	"github.com/lam-tt/neural-memory/pkg/activation"
	"github.com/lam-tt/neural-memory/pkg/coactivation"
	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/extraction"
	"github.com/lam-tt/neural-memory/pkg/learning"
	"github.com/lam-tt/neural-memory/pkg/lifecycle"
)

// Request is one retrieval's input.
type Request struct {
	Query string
	Now   time.Time
}

// Result is one retrieval's full output: the synthesized answer with
// its per-neuron score breakdowns and a confidence estimate, plus
// whether the activation pass had to return early.
type Result struct {
	Reconstruction Reconstruction
	Confidence     float64
	Partial        bool
}

// Pipeline runs retrievals against one brain, recording co-activation
// events in an in-memory ledger consolidation later reads.
type Pipeline struct {
	brain  *core.Brain
	engine *activation.Engine
	rule   learning.Rule
	ledger *coactivation.Ledger
}

// New builds a Pipeline over brain, sharing the ledger across
// retrievals so co-activation counts accumulate for consolidation.
func New(brain *core.Brain, ledger *coactivation.Ledger) *Pipeline {
	return &Pipeline{
		brain:  brain,
		engine: activation.New(brain),
		rule:   learning.FromConfig(brain.Config),
		ledger: ledger,
	}
}

// Run executes the full pipeline: parse → anchors → fiber filtering
// (handled inside the activation engine via Fiber.ValidAt) → activate
// → stabilize/inhibit (inside Spread) → reconstruct → deferred writes
// → confidence.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	stimulus := extraction.ParseQuery(req.Query)
	anchors := p.resolveAnchors(stimulus)
	hops := hopBudget(stimulus.Depth, p.brain.Config.MaxSpreadHops)

	spread, err := p.engine.Spread(ctx, activation.SpreadOptions{
		Anchors: anchors,
		Mode:    activation.ModeHybrid,
		MaxHops: hops,
		Now:     now,
	})
	if err != nil {
		return Result{}, err
	}

	provenance := reachedProvenance(anchors, spread)
	scores := scoreNeurons(p.brain, spread.Scores, provenance, len(anchors), now)
	recon := reconstruct(p.brain, scores)

	p.flushDeferredWrites(spread, scores, now)

	confidence := 0.0
	if len(scores) > 0 {
		confidence = activation.Sigmoid(scores[0].Breakdown.Total(), p.brain.Config.SigmoidSteepness)
	}

	return Result{Reconstruction: recon, Confidence: confidence, Partial: spread.Partial}, nil
}

// resolveAnchors matches every extraction.AnchorCandidate's text
// against existing neuron content (case-insensitive), keeping the
// candidate's base weight as the spreading seed. Unmatched candidates
// (no corresponding neuron exists yet) are dropped; spec.md §4.5 step
// 1 ranks temporal anchors first, which AnchorKind's own base weight
// (TIME=1.0) already guarantees once seeded.
func (p *Pipeline) resolveAnchors(s extraction.Stimulus) []activation.Anchor {
	byContent := make(map[string][]core.NeuronID)
	for id, n := range p.brain.Neurons {
		key := strings.ToLower(n.Content)
		byContent[key] = append(byContent[key], id)
	}

	var anchors []activation.Anchor
	seen := make(map[core.NeuronID]bool)
	for _, c := range s.AnchorCandidates {
		for _, id := range byContent[strings.ToLower(c.Text)] {
			if seen[id] {
				continue
			}
			seen[id] = true
			anchors = append(anchors, activation.Anchor{NeuronID: id, Weight: c.Weight})
		}
	}
	return anchors
}

// hopBudget maps query depth to a spreading hop budget (spec.md §4.5
// step 4): 0→1, 1→3, 2→5, 3→max_spread_hops.
func hopBudget(depth extraction.QueryDepth, maxSpreadHops int) int {
	switch depth {
	case extraction.DepthFact:
		return 1
	case extraction.DepthSequence:
		return 3
	case extraction.DepthHabit:
		return 5
	default:
		return maxSpreadHops
	}
}

func reachedProvenance(anchors []activation.Anchor, spread activation.Result) map[core.NeuronID]map[int]struct{} {
	provenance := make(map[core.NeuronID]map[int]struct{}, len(spread.Scores))
	for id := range spread.Scores {
		set := make(map[int]struct{})
		for i := range anchors {
			set[i] = struct{}{}
		}
		provenance[id] = set
	}
	return provenance
}

// flushDeferredWrites applies spec.md §4.5 step 7 in one batch: a
// Hebbian reinforcement per activated synapse using the post-
// activation levels of its endpoints, a conductivity bump and a
// maturation reinforcement on every traversed fiber, and a
// co-activation event per pair observed during the pass.
func (p *Pipeline) flushDeferredWrites(spread activation.Result, scores []NeuronScore, now time.Time) {
	activated := make(map[core.NeuronID]struct{}, len(spread.Scores))
	for id := range spread.Scores {
		activated[id] = struct{}{}
	}

	for _, synID := range p.traversedSynapses(activated) {
		syn := p.brain.Synapses[synID]
		if syn == nil {
			continue
		}
		preState := p.brain.NeuronStates[syn.SourceID]
		postState := p.brain.NeuronStates[syn.TargetID]
		if preState == nil || postState == nil {
			continue
		}
		p.rule.Reinforce(syn, preState.Activation(), postState.Activation(), now)
	}

	for _, fiber := range p.brain.Fibers {
		if fiberIntersectsActivated(fiber, activated) {
			fiber.Conduct(now)
			if mat := p.brain.Maturations[fiber.ID]; mat != nil {
				lifecycle.Reinforce(mat, fiber.CreatedAt, now)
			}
		}
	}

	if p.ledger != nil {
		p.ledger.RecordPairs(spread.CoActivations, now)
	}
}

func (p *Pipeline) traversedSynapses(activated map[core.NeuronID]struct{}) []core.SynapseID {
	var ids []core.SynapseID
	seen := make(map[core.SynapseID]struct{})
	for id := range activated {
		for _, synID := range p.brain.Adjacency[id] {
			syn := p.brain.Synapses[synID]
			if syn == nil {
				continue
			}
			if _, ok := activated[syn.SourceID]; !ok {
				continue
			}
			if _, ok := activated[syn.TargetID]; !ok {
				continue
			}
			if _, dup := seen[synID]; dup {
				continue
			}
			seen[synID] = struct{}{}
			ids = append(ids, synID)
		}
	}
	return ids
}

func fiberIntersectsActivated(f *core.Fiber, activated map[core.NeuronID]struct{}) bool {
	for id := range f.NeuronIDs {
		if _, ok := activated[id]; ok {
			return true
		}
	}
	return false
}
