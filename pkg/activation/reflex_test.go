package activation

import (
	"context"
	"testing"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

func pathwayBrain(t *testing.T) (*core.Brain, core.FiberID, core.NeuronID, core.NeuronID, core.NeuronID) {
	t.Helper()
	b := core.NewBrain("reflex-test")
	n1 := core.NewNeuron(core.NeuronEntity, "alice")
	n2 := core.NewNeuron(core.NeuronAction, "met")
	n3 := core.NewNeuron(core.NeuronEntity, "bob")
	for _, n := range []*core.Neuron{n1, n2, n3} {
		b.AddNeuronUnsafe(n, core.NewNeuronState(n.ID, 0.02))
	}
	s1 := core.NewSynapse(n1.ID, n2.ID, core.SynInvolves, 0.8, core.DirUni)
	s2 := core.NewSynapse(n2.ID, n3.ID, core.SynInvolves, 0.8, core.DirUni)
	b.AddSynapseUnsafe(s1)
	b.AddSynapseUnsafe(s2)

	fiber := core.NewFiber(n1.ID, "fact", 0.5)
	fiber.NeuronIDs[n1.ID] = struct{}{}
	fiber.NeuronIDs[n2.ID] = struct{}{}
	fiber.NeuronIDs[n3.ID] = struct{}{}
	fiber.Pathway = []core.NeuronID{n1.ID, n2.ID, n3.ID}
	b.AddFiberUnsafe(fiber, core.NewMaturation(fiber.ID, time.Now()))

	return b, fiber.ID, n1.ID, n2.ID, n3.ID
}

func TestReflexSpread_WalksPathwayForwardFromAnchor(t *testing.T) {
	b, _, n1, n2, n3 := pathwayBrain(t)
	e := New(b)

	scores, _, _ := e.reflexSpread(context.Background(), []Anchor{{NeuronID: n1, Weight: 1.0}}, time.Now())

	if scores[n1] != 1.0 {
		t.Errorf("expected anchor score 1.0, got %v", scores[n1])
	}
	if _, ok := scores[n2]; !ok {
		t.Error("expected the next pathway neuron to be activated")
	}
	if _, ok := scores[n3]; !ok {
		t.Error("expected the pathway tail to be activated")
	}
	if scores[n3] >= scores[n2] {
		t.Errorf("expected activation to attenuate along the trail: n2=%v n3=%v", scores[n2], scores[n3])
	}
}

func TestReflexSpread_WalksBackwardFromMidPathwayAnchor(t *testing.T) {
	b, _, n1, n2, _ := pathwayBrain(t)
	e := New(b)

	scores, _, _ := e.reflexSpread(context.Background(), []Anchor{{NeuronID: n2, Weight: 1.0}}, time.Now())

	if _, ok := scores[n1]; !ok {
		t.Error("expected the backward neighbor to be activated from a mid-pathway anchor")
	}
}

func TestReflexSpread_SkipsFiberOutsideValidWindow(t *testing.T) {
	b, fiberID, n1, _, _ := pathwayBrain(t)
	past := time.Now().Add(-48 * time.Hour)
	fiber := b.Fibers[fiberID]
	fiber.TimeEnd = &past

	e := New(b)
	scores, _, _ := e.reflexSpread(context.Background(), []Anchor{{NeuronID: n1, Weight: 1.0}}, time.Now())

	if len(scores) != 0 {
		t.Errorf("expected no activation from an expired fiber, got %v", scores)
	}
}

func TestReflexSpread_RecordsCoActivationPairsInCanonicalOrder(t *testing.T) {
	b, _, n1, _, _ := pathwayBrain(t)
	e := New(b)

	_, _, pairs := e.reflexSpread(context.Background(), []Anchor{{NeuronID: n1, Weight: 1.0}}, time.Now())

	if len(pairs) == 0 {
		t.Fatal("expected at least one co-activation pair")
	}
	for _, p := range pairs {
		if p[0] >= p[1] {
			t.Errorf("expected canonical (a<b) ordering, got %v", p)
		}
	}
}
