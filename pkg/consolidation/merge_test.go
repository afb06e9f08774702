package consolidation

import (
	"testing"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

func newFiberWithAnchorAndTags(anchor core.NeuronID, salience float64, tags []string) *core.Fiber {
	f := core.NewFiber(anchor, "fact", salience)
	f.AddNeuron(anchor)
	for _, t := range tags {
		f.AutoTags[t] = struct{}{}
	}
	return f
}

// TestMerge_FoldsHigherJaccardFiberWithSharedAnchor confirms two
// fibers sharing an anchor neuron and a tag-Jaccard >= 0.8 merge into
// the higher-salience one, and the lower-salience fiber is removed.
func TestMerge_FoldsHigherJaccardFiberWithSharedAnchor(t *testing.T) {
	b := newTestBrain()
	anchor := addNeuron(b, core.NeuronEntity, "Project X", 0.5)

	// low carries tags {a,b,c}.
	low := newFiberWithAnchorAndTags(anchor.ID, 0.4, []string{"a", "b", "c"})
	// Jaccard({a,b,c},{a,b,c,d}) = 3/4 = 0.75, still below 0.8.
	mid := newFiberWithAnchorAndTags(anchor.ID, 0.9, []string{"a", "b", "c", "d"})
	b.Fibers[low.ID] = low
	b.Fibers[mid.ID] = mid

	d := New(b, nil)
	report := d.runMerge(false, time.Now())
	if report.FibersMerged != 0 {
		t.Fatalf("expected no merge below the 0.8 Jaccard bar, got %d merges", report.FibersMerged)
	}

	// Now push `mid`'s tags to exactly match `low`'s plus nothing else:
	// Jaccard({a,b,c},{a,b,c}) = 1.0.
	mid.AutoTags = map[string]struct{}{"a": {}, "b": {}, "c": {}}

	report = d.runMerge(false, time.Now())
	if report.FibersMerged != 1 {
		t.Fatalf("expected exactly 1 merge at Jaccard 1.0, got %d", report.FibersMerged)
	}
	if len(report.FibersRemoved) != 1 || report.FibersRemoved[0] != low.ID {
		t.Fatalf("expected the lower-salience fiber %s to be removed, got %v", low.ID, report.FibersRemoved)
	}
	if _, ok := b.Fibers[low.ID]; ok {
		t.Errorf("expected low-salience fiber to be gone from brain.Fibers")
	}
	if _, ok := b.Fibers[mid.ID]; !ok {
		t.Errorf("expected higher-salience fiber to survive")
	}
}

// TestMerge_RequiresSharedAnchor confirms two fibers with identical
// tags but different anchors never merge.
func TestMerge_RequiresSharedAnchor(t *testing.T) {
	b := newTestBrain()
	a1 := addNeuron(b, core.NeuronEntity, "A", 0.5)
	a2 := addNeuron(b, core.NeuronEntity, "B", 0.5)
	f1 := newFiberWithAnchorAndTags(a1.ID, 0.5, []string{"x", "y"})
	f2 := newFiberWithAnchorAndTags(a2.ID, 0.5, []string{"x", "y"})
	b.Fibers[f1.ID] = f1
	b.Fibers[f2.ID] = f2

	d := New(b, nil)
	report := d.runMerge(false, time.Now())
	if report.FibersMerged != 0 {
		t.Fatalf("expected no merge across different anchors, got %d", report.FibersMerged)
	}
}
