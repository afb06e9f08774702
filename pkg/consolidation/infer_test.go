package consolidation

import (
	"testing"
	"time"

	"github.com/lam-tt/neural-memory/pkg/coactivation"
	"github.com/lam-tt/neural-memory/pkg/core"
)

// TestInfer_CreatesCoOccursSynapseAboveThreshold confirms a pair that
// co-activated on >= CoActivationThreshold (default 3) distinct days
// within the window gets a CO_OCCURS synapse weighted count/10.
func TestInfer_CreatesCoOccursSynapseAboveThreshold(t *testing.T) {
	b := newTestBrain()
	a := addNeuron(b, core.NeuronEntity, "A", 0.5)
	c := addNeuron(b, core.NeuronEntity, "C", 0.5)

	ledger := coactivation.New()
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	ledger.Record(a.ID, c.ID, now.AddDate(0, 0, -3))
	ledger.Record(a.ID, c.ID, now.AddDate(0, 0, -2))
	ledger.Record(a.ID, c.ID, now.AddDate(0, 0, -1))

	d := New(b, ledger)
	report := d.runInfer(false, now)

	if len(report.SynapsesCreated) != 1 {
		t.Fatalf("expected exactly 1 CO_OCCURS synapse, got %d", len(report.SynapsesCreated))
	}
	syn := b.Synapses[report.SynapsesCreated[0]]
	if syn == nil || syn.Type != core.SynCoOccurs {
		t.Fatalf("expected a CO_OCCURS synapse, got %+v", syn)
	}
	// count=3 -> weight = min(1.0, 3/10) = 0.3
	if syn.Weight != 0.3 {
		t.Errorf("expected weight 0.3 (3/10), got %v", syn.Weight)
	}
}

// TestInfer_SkipsPairBelowThreshold confirms a pair co-activated on
// only 2 distinct days (below the default threshold of 3) is ignored.
func TestInfer_SkipsPairBelowThreshold(t *testing.T) {
	b := newTestBrain()
	a := addNeuron(b, core.NeuronEntity, "A", 0.5)
	c := addNeuron(b, core.NeuronEntity, "C", 0.5)

	ledger := coactivation.New()
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	ledger.Record(a.ID, c.ID, now.AddDate(0, 0, -2))
	ledger.Record(a.ID, c.ID, now.AddDate(0, 0, -1))

	d := New(b, ledger)
	report := d.runInfer(false, now)

	if len(report.SynapsesCreated) != 0 {
		t.Fatalf("expected no synapse below threshold, got %d", len(report.SynapsesCreated))
	}
}

// TestInfer_WeightCapsAtOneForHighCount confirms the min(1.0, count/10)
// ceiling holds even for a pair that co-activated well past 10 days.
func TestInfer_WeightCapsAtOneForHighCount(t *testing.T) {
	b := newTestBrain()
	a := addNeuron(b, core.NeuronEntity, "A", 0.5)
	c := addNeuron(b, core.NeuronEntity, "C", 0.5)

	ledger := coactivation.New()
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 14; i++ {
		ledger.Record(a.ID, c.ID, now.AddDate(0, 0, -i))
	}

	b.Config.CoActivationWindowDays = 30
	d := New(b, ledger)
	report := d.runInfer(false, now)

	if len(report.SynapsesCreated) != 1 {
		t.Fatalf("expected 1 synapse, got %d", len(report.SynapsesCreated))
	}
	syn := b.Synapses[report.SynapsesCreated[0]]
	if syn.Weight != 1.0 {
		t.Errorf("expected weight capped at 1.0 for count=14, got %v", syn.Weight)
	}
}
