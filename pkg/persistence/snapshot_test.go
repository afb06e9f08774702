package persistence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

func buildTestBrain() *core.Brain {
	b := core.NewBrain("export-test")
	b.ID = core.BrainID("brain-export")

	n1 := core.NewNeuron(core.NeuronEntity, "Alice")
	n2 := core.NewNeuron(core.NeuronAction, "met")
	b.Neurons[n1.ID] = n1
	b.Neurons[n2.ID] = n2
	b.NeuronStates[n1.ID] = core.NewNeuronState(n1.ID, 0.02)
	b.NeuronStates[n2.ID] = core.NewNeuronState(n2.ID, 0.05)

	syn := core.NewSynapse(n1.ID, n2.ID, core.SynInvolves, 0.6, core.DirUni)
	b.Synapses[syn.ID] = syn

	fiber := core.NewFiber(n1.ID, "fact", 0.5)
	fiber.NeuronIDs[n1.ID] = struct{}{}
	fiber.NeuronIDs[n2.ID] = struct{}{}
	fiber.SynapseIDs[syn.ID] = struct{}{}
	fiber.Pathway = []core.NeuronID{n1.ID, n2.ID}
	fiber.AutoTags["alice"] = struct{}{}
	b.Fibers[fiber.ID] = fiber
	b.Maturations[fiber.ID] = core.NewMaturation(fiber.ID, time.Now())

	return b
}

func TestExportSnapshot_PopulatesAllSections(t *testing.T) {
	b := buildTestBrain()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	snap := ExportSnapshot(b, now)

	if snap.BrainID != b.ID {
		t.Errorf("brain id mismatch: expected %s, got %s", b.ID, snap.BrainID)
	}
	if snap.ExportedAt != "2026-07-31T12:00:00Z" {
		t.Errorf("unexpected exported_at: %s", snap.ExportedAt)
	}
	if len(snap.Neurons) != 2 {
		t.Errorf("expected 2 neurons, got %d", len(snap.Neurons))
	}
	if len(snap.Synapses) != 1 {
		t.Errorf("expected 1 synapse, got %d", len(snap.Synapses))
	}
	if len(snap.Fibers) != 1 {
		t.Errorf("expected 1 fiber, got %d", len(snap.Fibers))
	}
	if len(snap.NeuronStates) != 2 {
		t.Errorf("expected 2 neuron states, got %d", len(snap.NeuronStates))
	}
	if len(snap.Maturations) != 1 {
		t.Errorf("expected 1 maturation, got %d", len(snap.Maturations))
	}
	if snap.Metadata["neuron_count"] != 2 {
		t.Errorf("expected metadata neuron_count 2, got %d", snap.Metadata["neuron_count"])
	}
	if len(snap.TypedMemories["fact"]) != 2 {
		t.Errorf("expected 2 neurons under typed_memories[fact], got %d", len(snap.TypedMemories["fact"]))
	}
}

func TestMarshalSnapshotJSON_EmitsEveryTopLevelKey(t *testing.T) {
	b := buildTestBrain()
	snap := ExportSnapshot(b, time.Now())

	data, err := MarshalSnapshotJSON(snap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("round trip unmarshal failed: %v", err)
	}
	for _, key := range []string{"brain_id", "exported_at", "version", "neurons", "synapses", "fibers", "typed_memories", "neuron_states", "maturations", "metadata"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected top-level key %q in exported JSON", key)
		}
	}
}

func TestUnmarshalSnapshotJSON_RoundTrips(t *testing.T) {
	b := buildTestBrain()
	snap := ExportSnapshot(b, time.Now())

	data, err := MarshalSnapshotJSON(snap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	decoded, err := UnmarshalSnapshotJSON(data)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.BrainID != snap.BrainID {
		t.Errorf("brain id mismatch after round trip: expected %s, got %s", snap.BrainID, decoded.BrainID)
	}
	if len(decoded.Neurons) != len(snap.Neurons) {
		t.Errorf("neuron count mismatch after round trip: expected %d, got %d", len(snap.Neurons), len(decoded.Neurons))
	}
}

func TestUnmarshalSnapshotJSON_TolerantOfUnknownKeysAndMissingOptionalFields(t *testing.T) {
	raw := `{
		"brain_id": "brain-1",
		"version": 3,
		"neurons": [{"id": "n1", "type": "ENTITY", "content": "hi"}],
		"some_future_field": {"nested": true}
	}`

	snap, err := UnmarshalSnapshotJSON([]byte(raw))
	if err != nil {
		t.Fatalf("expected unknown-key tolerant unmarshal to succeed, got: %v", err)
	}
	if snap.BrainID != "brain-1" {
		t.Errorf("expected brain_id brain-1, got %s", snap.BrainID)
	}
	if len(snap.Neurons) != 1 {
		t.Fatalf("expected 1 neuron, got %d", len(snap.Neurons))
	}
	if snap.Neurons[0].Content != "hi" {
		t.Errorf("expected content 'hi', got %q", snap.Neurons[0].Content)
	}
	if snap.Synapses != nil {
		t.Errorf("expected nil synapses for an omitted field, got %v", snap.Synapses)
	}
}

func TestUnmarshalSnapshotJSON_InvalidJSONReturnsError(t *testing.T) {
	if _, err := UnmarshalSnapshotJSON([]byte("{not json")); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}
