package reflex

import (
	"testing"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

func newBrainWithNeurons(t *testing.T, contents map[core.NeuronID]string) *core.Brain {
	t.Helper()
	b := core.NewBrain("test")
	for id, content := range contents {
		n := &core.Neuron{ID: id, Type: core.NeuronConcept, Content: content, Metadata: map[string]any{}, CreatedAt: time.Now()}
		st := core.NewNeuronState(id, 0.1)
		b.Neurons[id] = n
		b.NeuronStates[id] = st
	}
	return b
}

// TestReconstruct_SingleStrategy_WhenTopScoreMoreThanDoubleSecond hand
// verifies the >2x boundary: top=0.81, second=0.4 → 0.81 > 0.8, SINGLE.
func TestReconstruct_SingleStrategy_WhenTopScoreMoreThanDoubleSecond(t *testing.T) {
	b := newBrainWithNeurons(t, map[core.NeuronID]string{
		"top":    "Alice lives in Paris",
		"second": "Bob lives in Lyon",
	})
	scores := []NeuronScore{
		{NeuronID: "top", Breakdown: ScoreBreakdown{BaseActivation: 0.81}},
		{NeuronID: "second", Breakdown: ScoreBreakdown{BaseActivation: 0.4}},
	}

	got := reconstruct(b, scores)
	if got.Strategy != StrategySingle {
		t.Fatalf("expected SINGLE, got %s", got.Strategy)
	}
	if got.Answer != "Alice lives in Paris" {
		t.Errorf("unexpected answer: %q", got.Answer)
	}
}

// TestReconstruct_NotSingle_WhenTopScoreExactlyTwiceSecond hand verifies
// the boundary is strict: top=0.8, second=0.4 → 0.8 is NOT > 0.8, so
// SINGLE must not be chosen (falls through to fiber/multi-neuron logic).
func TestReconstruct_NotSingle_WhenTopScoreExactlyTwiceSecond(t *testing.T) {
	b := newBrainWithNeurons(t, map[core.NeuronID]string{
		"top":    "Alice lives in Paris",
		"second": "Bob lives in Lyon",
	})
	scores := []NeuronScore{
		{NeuronID: "top", Breakdown: ScoreBreakdown{BaseActivation: 0.8}},
		{NeuronID: "second", Breakdown: ScoreBreakdown{BaseActivation: 0.4}},
	}

	got := reconstruct(b, scores)
	if got.Strategy == StrategySingle {
		t.Fatalf("expected the exact 2x boundary to miss SINGLE, got SINGLE")
	}
}

// TestReconstruct_FiberSummary_WhenOneFiberHoldsAtLeast60PercentOfScore
// builds 3 neurons, 2 of them (sum 0.6 of the 1.0 total) belonging to
// one fiber: 0.6/1.0 = 0.6, meets the >=0.6 threshold exactly.
func TestReconstruct_FiberSummary_WhenOneFiberHoldsAtLeast60PercentOfScore(t *testing.T) {
	b := newBrainWithNeurons(t, map[core.NeuronID]string{
		"a": "Alice", "b": "met", "c": "unrelated",
	})
	fiber := core.NewFiber("a", "episodic", 0.5)
	fiber.Summary = "Alice met someone"
	fiber.AddNeuron("a")
	fiber.AddNeuron("b")
	b.Fibers[fiber.ID] = fiber

	// reconstruct assumes scores are pre-sorted by Total descending, the
	// invariant scoreNeurons guarantees; order it that way here too.
	scores := []NeuronScore{
		{NeuronID: "c", Breakdown: ScoreBreakdown{BaseActivation: 0.4}},
		{NeuronID: "a", Breakdown: ScoreBreakdown{BaseActivation: 0.35}},
		{NeuronID: "b", Breakdown: ScoreBreakdown{BaseActivation: 0.25}},
	}
	// top=0.4, second=0.35 -> 0.4 > 0.7 is false, not SINGLE.
	// fiber sum = 0.35+0.25 = 0.6, total = 1.0, share = 0.6 >= 0.6 -> FIBER_SUMMARY.

	got := reconstruct(b, scores)
	if got.Strategy != StrategyFiberSummary {
		t.Fatalf("expected FIBER_SUMMARY, got %s", got.Strategy)
	}
	if got.Answer != "Alice met someone" {
		t.Errorf("unexpected answer: %q", got.Answer)
	}
}

// TestReconstruct_MultiNeuron_WhenNoFiberDominatesAndNoSingleLeader
// uses 3 neurons with no fiber at all: falls through both SINGLE and
// FIBER_SUMMARY to MULTI_NEURON, joining every neuron's content.
func TestReconstruct_MultiNeuron_WhenNoFiberDominatesAndNoSingleLeader(t *testing.T) {
	b := newBrainWithNeurons(t, map[core.NeuronID]string{
		"a": "Alice", "b": "Bob", "c": "Carol",
	})
	scores := []NeuronScore{
		{NeuronID: "a", Breakdown: ScoreBreakdown{BaseActivation: 0.4}},
		{NeuronID: "b", Breakdown: ScoreBreakdown{BaseActivation: 0.35}},
		{NeuronID: "c", Breakdown: ScoreBreakdown{BaseActivation: 0.3}},
	}

	got := reconstruct(b, scores)
	if got.Strategy != StrategyMultiNeuron {
		t.Fatalf("expected MULTI_NEURON, got %s", got.Strategy)
	}
	if got.Answer != "Alice, Bob, and Carol" {
		t.Errorf("unexpected answer: %q", got.Answer)
	}
}

func TestReconstruct_SingleCandidate_AlwaysSingleStrategy(t *testing.T) {
	b := newBrainWithNeurons(t, map[core.NeuronID]string{"only": "Alice"})
	scores := []NeuronScore{{NeuronID: "only", Breakdown: ScoreBreakdown{BaseActivation: 0.1}}}

	got := reconstruct(b, scores)
	if got.Strategy != StrategySingle || got.Answer != "Alice" {
		t.Fatalf("expected SINGLE/Alice, got %s/%q", got.Strategy, got.Answer)
	}
}

func TestJoinConnective_FormatsByLength(t *testing.T) {
	cases := []struct {
		parts []string
		want  string
	}{
		{nil, ""},
		{[]string{"Alice"}, "Alice"},
		{[]string{"Alice", "Bob"}, "Alice and Bob"},
		{[]string{"Alice", "Bob", "Carol"}, "Alice, Bob, and Carol"},
	}
	for _, c := range cases {
		if got := joinConnective(c.parts); got != c.want {
			t.Errorf("joinConnective(%v) = %q, want %q", c.parts, got, c.want)
		}
	}
}

// TestScoreNeurons_IntersectionBoostScalesWithDistinctAnchorCoverage
// hand verifies the resolved intersection_boost formula:
// (coFire/anchorCount)*0.15. With 2 anchors reaching a neuron out of
// 4 total anchors: (2/4)*0.15 = 0.075.
func TestScoreNeurons_IntersectionBoostScalesWithDistinctAnchorCoverage(t *testing.T) {
	b := newBrainWithNeurons(t, map[core.NeuronID]string{"n": "x"})
	scores := map[core.NeuronID]float64{"n": 0.5}
	provenance := map[core.NeuronID]map[int]struct{}{
		"n": {0: {}, 1: {}},
	}

	out := scoreNeurons(b, scores, provenance, 4, time.Now())
	if len(out) != 1 {
		t.Fatalf("expected 1 score, got %d", len(out))
	}
	got := out[0].Breakdown.IntersectionBoost
	want := 0.075
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected intersection boost %v, got %v", want, got)
	}
}

// TestScoreNeurons_FreshnessBoostZeroWhenNeverActivated confirms a
// neuron with no LastActivated contributes no freshness boost rather
// than panicking on a nil dereference.
func TestScoreNeurons_FreshnessBoostZeroWhenNeverActivated(t *testing.T) {
	b := newBrainWithNeurons(t, map[core.NeuronID]string{"n": "x"})
	scores := map[core.NeuronID]float64{"n": 0.2}

	out := scoreNeurons(b, scores, map[core.NeuronID]map[int]struct{}{}, 0, time.Now())
	if out[0].Breakdown.FreshnessBoost != 0 {
		t.Errorf("expected zero freshness boost, got %v", out[0].Breakdown.FreshnessBoost)
	}
}
