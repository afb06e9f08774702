package consolidation

import (
	"context"
	"testing"
	"time"
)

// TestDream_EmptyBrainProducesEmptyReport confirms DREAM degrades
// gracefully (no panic, no synapses) when there is nothing to sample.
func TestDream_EmptyBrainProducesEmptyReport(t *testing.T) {
	b := newTestBrain()
	d := New(b, nil)

	report := d.runDream(context.Background(), false, time.Now())
	if len(report.SynapsesCreated) != 0 {
		t.Fatalf("expected no synapses from an empty brain, got %d", len(report.SynapsesCreated))
	}
}
