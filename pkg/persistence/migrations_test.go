package persistence

import (
	"testing"

	"github.com/lam-tt/neural-memory/pkg/core"
)

func TestMigrateBrain_FromV1RunsAllSteps(t *testing.T) {
	b := core.NewBrain("test")
	b.SchemaVersion = 1
	n := core.NewNeuron(core.NeuronEntity, "hello")
	b.Neurons[n.ID] = n
	fiberID := core.FiberID("f1")
	b.Fibers[fiberID] = &core.Fiber{ID: fiberID, NeuronIDs: map[core.NeuronID]struct{}{n.ID: {}}}

	migrated, err := MigrateBrain(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migrated.SchemaVersion != core.CurrentSchemaVersion {
		t.Fatalf("expected schema version %d, got %d", core.CurrentSchemaVersion, migrated.SchemaVersion)
	}
	if migrated.Fibers[fiberID].Conductivity != 1.0 {
		t.Fatalf("expected conductivity backfilled to 1.0, got %v", migrated.Fibers[fiberID].Conductivity)
	}
	if len(migrated.Fibers[fiberID].Pathway) == 0 {
		t.Fatal("expected pathway backfilled")
	}
	if migrated.Neurons[n.ID].ContentHash == 0 {
		t.Fatal("expected content hash backfilled")
	}
	if _, ok := migrated.Maturations[fiberID]; !ok {
		t.Fatal("expected maturation record created for fiber")
	}
	if _, ok := migrated.NeuronStates[n.ID]; !ok {
		t.Fatal("expected neuron state created for neuron")
	}
}

func TestMigrateBrain_AlreadyCurrentIsNoOp(t *testing.T) {
	b := core.NewBrain("test")
	b.SchemaVersion = core.CurrentSchemaVersion

	migrated, err := MigrateBrain(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migrated.SchemaVersion != core.CurrentSchemaVersion {
		t.Fatalf("expected unchanged schema version, got %d", migrated.SchemaVersion)
	}
}

func TestMigrateBrain_RejectsFutureSchemaVersion(t *testing.T) {
	b := core.NewBrain("test")
	b.SchemaVersion = core.CurrentSchemaVersion + 1

	if _, err := MigrateBrain(b); err != core.ErrSchemaTooNew {
		t.Fatalf("expected ErrSchemaTooNew, got %v", err)
	}
}

func TestMigrateBrain_ZeroVersionTreatedAsV1(t *testing.T) {
	b := core.NewBrain("test")
	b.SchemaVersion = 0

	migrated, err := MigrateBrain(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migrated.SchemaVersion != core.CurrentSchemaVersion {
		t.Fatalf("expected fully migrated schema version, got %d", migrated.SchemaVersion)
	}
}
