package persistence

import (
	"testing"

	"github.com/lam-tt/neural-memory/pkg/core"
)

func TestCodecEncodeDecodeWithCompression(t *testing.T) {
	codec := NewCodec(true)

	b := core.NewBrain("test-brain")
	n := core.NewNeuron(core.NeuronEntity, "Test content")
	b.Neurons[n.ID] = n

	data, err := codec.Encode(b)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("Encoded data should not be empty")
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.ID != b.ID {
		t.Errorf("brain id mismatch: expected %s, got %s", b.ID, decoded.ID)
	}
	if len(decoded.Neurons) != 1 {
		t.Errorf("Expected 1 neuron, got %d", len(decoded.Neurons))
	}
}

func TestCodecEncodeDecodeWithoutCompression(t *testing.T) {
	codec := NewCodec(false)

	b := core.NewBrain("test-brain")

	data, err := codec.Encode(b)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.ID != b.ID {
		t.Error("brain id mismatch")
	}
}

func TestCodecMagicBytes(t *testing.T) {
	codec := NewCodec(false)

	b := core.NewBrain("test-brain")
	data, _ := codec.Encode(b)

	if string(data[:4]) != MagicBytes {
		t.Errorf("Expected magic bytes '%s', got '%s'", MagicBytes, string(data[:4]))
	}
}

func TestCodecInvalidData(t *testing.T) {
	codec := NewCodec(false)

	if _, err := codec.Decode([]byte{1, 2, 3}); err == nil {
		t.Error("Should fail on too short data")
	}

	invalidMagic := make([]byte, 100)
	copy(invalidMagic[:4], "XXXX")
	if _, err := codec.Decode(invalidMagic); err == nil {
		t.Error("Should fail on invalid magic bytes")
	}
}

func TestCreateSnapshot(t *testing.T) {
	b := core.NewBrain("test-brain")
	n := core.NewNeuron(core.NeuronEntity, "Test")
	b.Neurons[n.ID] = n

	snap := CreateSnapshot(b)

	if snap.BrainID != b.ID {
		t.Error("brain id mismatch")
	}
	if snap.NeuronCount != 1 {
		t.Errorf("Expected 1 neuron, got %d", snap.NeuronCount)
	}
	if snap.Version != b.Version {
		t.Error("Version mismatch")
	}
}

func TestSnapshotEncodeDecode(t *testing.T) {
	snap := Snapshot{
		BrainID:      "brain-1",
		Version:      5,
		NeuronCount:  10,
		SynapseCount: 20,
		FiberCount:   3,
		ModifiedAt:   1234567890,
	}

	data, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("EncodeSnapshot failed: %v", err)
	}

	decoded, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}

	if decoded.BrainID != snap.BrainID {
		t.Error("brain id mismatch")
	}
	if decoded.NeuronCount != snap.NeuronCount {
		t.Error("NeuronCount mismatch")
	}
	if decoded.Version != snap.Version {
		t.Error("Version mismatch")
	}
}

func TestCodecWithManyNeurons(t *testing.T) {
	codec := NewCodec(true)

	b := core.NewBrain("test-brain")
	for i := 0; i < 100; i++ {
		n := core.NewNeuron(core.NeuronConcept, "Test content number "+string(rune('a'+i%26)))
		b.Neurons[n.ID] = n
	}

	data, err := codec.Encode(b)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(decoded.Neurons) != 100 {
		t.Errorf("Expected 100 neurons, got %d", len(decoded.Neurons))
	}
}

func TestCodecDecodeRejectsSchemaNewerThanSupported(t *testing.T) {
	codec := NewCodec(false)
	b := core.NewBrain("test-brain")
	data, err := codec.Encode(b)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Corrupt the header's SchemaVersion field (bytes 4-5, little endian)
	// to a version far beyond anything this build understands.
	data[4] = 0xFF
	data[5] = 0xFF

	if _, err := codec.Decode(data); err == nil {
		t.Error("expected decode to fail for a schema version newer than supported")
	}
}
