package concurrency

import (
	"context"
	"testing"
	"time"

	"github.com/lam-tt/neural-memory/pkg/consolidation"
	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/encoder"
	"github.com/lam-tt/neural-memory/pkg/lifecycle"
	"github.com/lam-tt/neural-memory/pkg/persistence"
	"github.com/lam-tt/neural-memory/pkg/reflex"
)

func submit(t *testing.T, w *BrainWorker, typ OpType, payload any) any {
	t.Helper()
	result, err := w.Submit(context.Background(), &Operation{Type: typ, Payload: payload})
	if err != nil {
		t.Fatalf("submit %v: %v", typ, err)
	}
	return result
}

func TestBrainWorkerEncodeAndQuery(t *testing.T) {
	brain := core.NewBrain("test")
	w := NewBrainWorker(brain)
	defer w.Stop()

	now := time.Now()
	encodeResult := submit(t, w, OpEncode, encoder.Request{
		Content:    "Alice met Bob at the cafe",
		MemoryType: "fact",
		Now:        now,
	}).(encoder.Result)

	if encodeResult.FiberID == "" {
		t.Fatalf("expected a fiber id from encode")
	}
	if encodeResult.NeuronsCreated == 0 {
		t.Fatalf("expected at least one neuron created")
	}

	queryResult := submit(t, w, OpQuery, reflex.Request{Query: "Alice", Now: now}).(reflex.Result)
	if queryResult.Confidence < 0 {
		t.Fatalf("expected a non-negative confidence, got %v", queryResult.Confidence)
	}
}

func TestBrainWorkerListNeuronsAndGetFiber(t *testing.T) {
	brain := core.NewBrain("test")
	w := NewBrainWorker(brain)
	defer w.Stop()

	now := time.Now()
	encodeResult := submit(t, w, OpEncode, encoder.Request{
		Content:    "The report is due Friday",
		MemoryType: "todo",
		Now:        now,
	}).(encoder.Result)

	listResult := submit(t, w, OpListNeurons, ListNeuronsRequest{Limit: 100}).(ListNeuronsResult)
	if listResult.Total == 0 {
		t.Fatalf("expected neurons after encode")
	}

	fiberResult, err := w.Submit(context.Background(), &Operation{Type: OpGetFiber, Payload: encodeResult.FiberID})
	if err != nil {
		t.Fatalf("get fiber: %v", err)
	}
	fr := fiberResult.(FiberResult)
	if fr.Fiber.ID != encodeResult.FiberID {
		t.Fatalf("expected fiber %s, got %s", encodeResult.FiberID, fr.Fiber.ID)
	}
}

func TestBrainWorkerDecayConsolidateExport(t *testing.T) {
	brain := core.NewBrain("test")
	w := NewBrainWorker(brain)
	defer w.Stop()

	now := time.Now()
	submit(t, w, OpEncode, encoder.Request{Content: "Some fact worth keeping", MemoryType: "fact", Now: now})

	decayResult := submit(t, w, OpDecay, now.Add(48*time.Hour)).(lifecycle.DecayReport)
	if decayResult.NeuronsDecayed == 0 {
		t.Fatalf("expected at least one neuron to be considered for decay")
	}

	reports := submit(t, w, OpConsolidate, ConsolidateRequest{Strategy: consolidation.StrategyPrune, Now: now}).([]consolidation.Report)
	if len(reports) != 1 {
		t.Fatalf("expected one report for a single strategy, got %d", len(reports))
	}

	snap := submit(t, w, OpExport, now).(persistence.BrainSnapshot)
	if snap.BrainID != brain.ID {
		t.Fatalf("expected exported brain id %s, got %s", brain.ID, snap.BrainID)
	}
}

func TestBrainWorkerImportReplacesState(t *testing.T) {
	brain := core.NewBrain("test")
	w := NewBrainWorker(brain)
	defer w.Stop()

	now := time.Now()
	submit(t, w, OpEncode, encoder.Request{Content: "Imported away", MemoryType: "fact", Now: now})
	snap := submit(t, w, OpExport, now).(persistence.BrainSnapshot)

	if _, err := w.Submit(context.Background(), &Operation{Type: OpImport, Payload: snap}); err != nil {
		t.Fatalf("import: %v", err)
	}

	stats := submit(t, w, OpStats, nil).(map[string]any)
	if stats["neurons"].(int) == 0 {
		t.Fatalf("expected imported neurons to be present")
	}
}

func TestBrainWorkerHealth(t *testing.T) {
	brain := core.NewBrain("test")
	w := NewBrainWorker(brain)
	defer w.Stop()

	health := submit(t, w, OpHealth, nil).(map[string]any)
	if health["status"] != "healthy" {
		t.Fatalf("expected healthy status, got %v", health["status"])
	}
}
