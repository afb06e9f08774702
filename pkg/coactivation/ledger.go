// Package coactivation tracks how often pairs of neurons fire together
// within a retrieval, the signal spec.md §4.9's INFER strategy turns
// into CO_OCCURS synapses once a pair co-fires often enough inside a
// trailing window. Events are kept per brain in canonical (a<b) order
// (I5), mirroring the append-only event-log shape the teacher's
// concurrency package uses for its own deferred-write batches, here
// specialized to a single (pair, day) counter table instead of a
// generic operation queue.
package coactivation

import (
	"sort"
	"sync"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// Pair is a canonically ordered neuron pair: First < Second always.
type Pair struct {
	First  core.NeuronID
	Second core.NeuronID
}

// NewPair orders a and b so the result satisfies I5.
func NewPair(a, b core.NeuronID) Pair {
	if a < b {
		return Pair{First: a, Second: b}
	}
	return Pair{First: b, Second: a}
}

type event struct {
	pair Pair
	day  string // calendar date "YYYY-MM-DD", UTC
}

// Ledger is an in-memory, per-brain co-activation event log. It is not
// part of the brain snapshot: counts are a derived signal consolidation
// consumes and then can discard, not identity the export format needs
// to round-trip.
type Ledger struct {
	mu     sync.RWMutex
	events []event
}

func New() *Ledger {
	return &Ledger{}
}

// Record appends a co-activation event for the pair, observed at `at`.
func (l *Ledger) Record(a, b core.NeuronID, at time.Time) {
	if a == b {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event{pair: NewPair(a, b), day: at.UTC().Format("2006-01-02")})
}

// RecordPairs appends events for every pair in pairs, all observed at
// the same instant — the shape the reflex pipeline's deferred-write
// stage produces from one retrieval's co-activated set.
func (l *Ledger) RecordPairs(pairs [][2]core.NeuronID, at time.Time) {
	for _, p := range pairs {
		l.Record(p[0], p[1], at)
	}
}

// CountInWindow returns how many distinct days within the trailing
// windowDays (ending at `now`) saw at least one co-activation of the
// pair — the frequency signal INFER's threshold compares against.
func (l *Ledger) CountInWindow(a, b core.NeuronID, windowDays int, now time.Time) int {
	pair := NewPair(a, b)
	cutoff := now.AddDate(0, 0, -windowDays)

	l.mu.RLock()
	defer l.mu.RUnlock()

	days := make(map[string]struct{})
	for _, e := range l.events {
		if e.pair != pair {
			continue
		}
		t, err := time.Parse("2006-01-02", e.day)
		if err != nil || t.Before(cutoff) {
			continue
		}
		days[e.day] = struct{}{}
	}
	return len(days)
}

// PairCounts returns every pair with at least one event in the
// trailing windowDays, with its distinct-day count, sorted
// deterministically for reproducible consolidation runs.
func (l *Ledger) PairCounts(windowDays int, now time.Time) []PairCount {
	cutoff := now.AddDate(0, 0, -windowDays)

	l.mu.RLock()
	defer l.mu.RUnlock()

	byPair := make(map[Pair]map[string]struct{})
	for _, e := range l.events {
		t, err := time.Parse("2006-01-02", e.day)
		if err != nil || t.Before(cutoff) {
			continue
		}
		if byPair[e.pair] == nil {
			byPair[e.pair] = make(map[string]struct{})
		}
		byPair[e.pair][e.day] = struct{}{}
	}

	out := make([]PairCount, 0, len(byPair))
	for pair, days := range byPair {
		out = append(out, PairCount{Pair: pair, Count: len(days)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pair.First != out[j].Pair.First {
			return out[i].Pair.First < out[j].Pair.First
		}
		return out[i].Pair.Second < out[j].Pair.Second
	})
	return out
}

// PairCount is one pair's distinct co-activation day count within a
// window.
type PairCount struct {
	Pair  Pair
	Count int
}

// Prune discards every event older than `before`.
func (l *Ledger) Prune(before time.Time) int {
	cutoff := before.UTC().Format("2006-01-02")

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.events[:0]
	removed := 0
	for _, e := range l.events {
		if e.day < cutoff {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.events = kept
	return removed
}
