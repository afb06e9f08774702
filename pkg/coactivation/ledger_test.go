package coactivation

import (
	"testing"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

func TestNewPair_CanonicalOrdering(t *testing.T) {
	p := NewPair(core.NeuronID("b"), core.NeuronID("a"))
	if p.First != "a" || p.Second != "b" {
		t.Errorf("expected canonical (a,b) ordering, got (%s,%s)", p.First, p.Second)
	}
}

func TestLedger_CountInWindow_CountsDistinctDaysOnly(t *testing.T) {
	l := New()
	day1 := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	day1Later := time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 2, 9, 0, 0, 0, time.UTC)

	l.Record("a", "b", day1)
	l.Record("a", "b", day1Later)
	l.Record("a", "b", day2)

	now := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)
	if count := l.CountInWindow("a", "b", 7, now); count != 2 {
		t.Errorf("expected 2 distinct days, got %d", count)
	}
}

func TestLedger_CountInWindow_ExcludesEventsOutsideWindow(t *testing.T) {
	l := New()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.Record("a", "b", old)

	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	if count := l.CountInWindow("a", "b", 7, now); count != 0 {
		t.Errorf("expected old event to be outside the window, got count %d", count)
	}
}

func TestLedger_RecordPairs_IgnoresSelfPairs(t *testing.T) {
	l := New()
	now := time.Now()
	l.RecordPairs([][2]core.NeuronID{{"a", "a"}, {"a", "b"}}, now)

	if count := l.CountInWindow("a", "a", 7, now); count != 0 {
		t.Errorf("expected self-pair to be ignored, got count %d", count)
	}
	if count := l.CountInWindow("a", "b", 7, now); count != 1 {
		t.Errorf("expected the valid pair to be recorded, got count %d", count)
	}
}

func TestLedger_PairCounts_SortedDeterministically(t *testing.T) {
	l := New()
	now := time.Now()
	l.Record("z", "a", now)
	l.Record("c", "b", now)

	counts := l.PairCounts(7, now)
	if len(counts) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(counts))
	}
	if counts[0].Pair.First != "a" {
		t.Errorf("expected the lexicographically smallest pair first, got %v", counts[0].Pair)
	}
}

func TestLedger_Prune_RemovesOldEvents(t *testing.T) {
	l := New()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	l.Record("a", "b", old)
	l.Record("c", "d", recent)

	removed := l.Prune(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	if removed != 1 {
		t.Errorf("expected 1 event pruned, got %d", removed)
	}
	if count := l.CountInWindow("c", "d", 365, recent.AddDate(0, 0, 1)); count != 1 {
		t.Errorf("expected the recent event to survive pruning, got %d", count)
	}
}
