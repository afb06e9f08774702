package activation

import (
	"context"
	"testing"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

func chainBrain(t *testing.T, synWeight float64) (*core.Brain, core.NeuronID, core.NeuronID) {
	t.Helper()
	b := core.NewBrain("classic-test")
	a := core.NewNeuron(core.NeuronEntity, "alice")
	c := core.NewNeuron(core.NeuronConcept, "jwt")
	b.AddNeuronUnsafe(a, core.NewNeuronState(a.ID, 0.02))
	b.AddNeuronUnsafe(c, core.NewNeuronState(c.ID, 0.02))
	syn := core.NewSynapse(a.ID, c.ID, core.SynRelatedTo, synWeight, core.DirUni)
	b.AddSynapseUnsafe(syn)
	return b, a.ID, c.ID
}

func TestClassicSpread_PropagatesAlongSynapseWithDecay(t *testing.T) {
	b, anchorID, targetID := chainBrain(t, 0.5)
	e := New(b)

	scores, _ := e.classicSpread(context.Background(), []Anchor{{NeuronID: anchorID, Weight: 1.0}}, 1, time.Now())

	if scores[anchorID] != 1.0 {
		t.Errorf("expected anchor score 1.0, got %v", scores[anchorID])
	}
	want := 1.0 * 0.5 * (1 - b.Config.DecayRate)
	if got := scores[targetID]; got != want {
		t.Errorf("expected target score %v, got %v", want, got)
	}
}

func TestClassicSpread_PrunesBelowActivationThreshold(t *testing.T) {
	b, anchorID, targetID := chainBrain(t, 0.05)
	e := New(b)

	scores, _ := e.classicSpread(context.Background(), []Anchor{{NeuronID: anchorID, Weight: 1.0}}, 1, time.Now())

	if _, ok := scores[targetID]; ok {
		t.Errorf("expected target to be pruned below activation_threshold, got score %v", scores[targetID])
	}
}

func TestClassicSpread_StopsAtMaxHops(t *testing.T) {
	b := core.NewBrain("hop-test")
	n1 := core.NewNeuron(core.NeuronEntity, "a")
	n2 := core.NewNeuron(core.NeuronEntity, "b")
	n3 := core.NewNeuron(core.NeuronEntity, "c")
	for _, n := range []*core.Neuron{n1, n2, n3} {
		b.AddNeuronUnsafe(n, core.NewNeuronState(n.ID, 0.02))
	}
	b.AddSynapseUnsafe(core.NewSynapse(n1.ID, n2.ID, core.SynRelatedTo, 0.9, core.DirUni))
	b.AddSynapseUnsafe(core.NewSynapse(n2.ID, n3.ID, core.SynRelatedTo, 0.9, core.DirUni))

	e := New(b)
	scores, _ := e.classicSpread(context.Background(), []Anchor{{NeuronID: n1.ID, Weight: 1.0}}, 1, time.Now())

	if _, ok := scores[n3.ID]; ok {
		t.Error("expected the second hop neuron to not be reached with maxHops=1")
	}
	if _, ok := scores[n2.ID]; !ok {
		t.Error("expected the first hop neuron to be reached")
	}
}

func TestClassicSpread_ProvenanceTracksDistinctAnchors(t *testing.T) {
	b := core.NewBrain("provenance-test")
	anchor1 := core.NewNeuron(core.NeuronEntity, "a")
	anchor2 := core.NewNeuron(core.NeuronEntity, "b")
	hub := core.NewNeuron(core.NeuronConcept, "hub")
	for _, n := range []*core.Neuron{anchor1, anchor2, hub} {
		b.AddNeuronUnsafe(n, core.NewNeuronState(n.ID, 0.02))
	}
	b.AddSynapseUnsafe(core.NewSynapse(anchor1.ID, hub.ID, core.SynRelatedTo, 0.9, core.DirUni))
	b.AddSynapseUnsafe(core.NewSynapse(anchor2.ID, hub.ID, core.SynRelatedTo, 0.9, core.DirUni))

	e := New(b)
	_, provenance := e.classicSpread(context.Background(), []Anchor{
		{NeuronID: anchor1.ID, Weight: 1.0},
		{NeuronID: anchor2.ID, Weight: 1.0},
	}, 1, time.Now())

	if len(provenance[hub.ID]) != 2 {
		t.Errorf("expected hub to carry provenance from 2 distinct anchors, got %d", len(provenance[hub.ID]))
	}
}
