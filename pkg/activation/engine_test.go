package activation

import (
	"context"
	"testing"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

func TestSpread_HybridMode_ActivationStaysWithinUnitInterval(t *testing.T) {
	b, _, n1, n2, n3 := pathwayBrain(t)
	e := New(b)

	_, err := e.Spread(context.Background(), SpreadOptions{
		Anchors: []Anchor{{NeuronID: n1, Weight: 1.0}},
		Mode:    ModeHybrid,
		Now:     time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []core.NeuronID{n1, n2, n3} {
		st := b.NeuronStates[id]
		a := st.Activation()
		if a < 0 || a > 1 {
			t.Errorf("expected activation for %s in [0,1], got %v", id, a)
		}
	}
}

func TestGateAndWrite_FiresNeuronCrossingThresholdAndSkipsRefractory(t *testing.T) {
	b := core.NewBrain("gate-test")
	fires := core.NewNeuron(core.NeuronEntity, "fires")
	refractory := core.NewNeuron(core.NeuronEntity, "refractory")
	b.AddNeuronUnsafe(fires, core.NewNeuronState(fires.ID, 0.02))
	b.AddNeuronUnsafe(refractory, core.NewNeuronState(refractory.ID, 0.02))

	now := time.Now()
	until := now.Add(time.Hour)
	b.NeuronStates[refractory.ID].RefractoryUntil = &until

	e := New(b)
	e.gateAndWrite(map[core.NeuronID]float64{fires.ID: 1.0, refractory.ID: 1.0}, now)

	firedState := b.NeuronStates[fires.ID]
	if firedState.LastActivated == nil {
		t.Error("expected a raw score of 1.0 to gate above the default firing threshold and fire")
	}
	if firedState.Activation() <= b.Config.DefaultFiringThreshold {
		t.Errorf("expected gated activation above firing threshold, got %v", firedState.Activation())
	}

	refractoryState := b.NeuronStates[refractory.ID]
	if refractoryState.LastActivated != nil {
		t.Error("expected a neuron still in its refractory window to be skipped entirely")
	}
}

func TestSpread_RespectsContextCancellation(t *testing.T) {
	b, _, n1, _, _ := pathwayBrain(t)
	e := New(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.Spread(ctx, SpreadOptions{
		Anchors: []Anchor{{NeuronID: n1, Weight: 1.0}},
		Mode:    ModeHybrid,
		Now:     time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Partial {
		t.Error("expected a canceled spread to report a partial result")
	}
}
