package persistence

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"io"

	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/vmihailenco/msgpack/v5"
)

// Binary format constants.
const (
	MagicBytes = "NMDB"
)

// Header is the fixed-size prefix of a persisted brain file.
type Header struct {
	Magic         [4]byte
	SchemaVersion uint16
	Flags         uint16
	BrainIDLen    uint32
	DataLen       uint64
	Checksum      uint32
}

const (
	FlagCompressed uint16 = 1 << 0
)

// Codec serializes a Brain to the on-disk binary envelope: a fixed
// header, the brain id, then msgpack-encoded (optionally gzipped)
// payload.
type Codec struct {
	compress  bool
	compLevel int
}

func NewCodec(compress bool) *Codec {
	return &Codec{compress: compress, compLevel: gzip.BestSpeed}
}

// Encode serializes a brain to the binary envelope at
// core.CurrentSchemaVersion. Migration to this version, if needed,
// happens on Decode of an older file, not here.
func (c *Codec) Encode(brain *core.Brain) ([]byte, error) {
	data, err := msgpack.Marshal(brain)
	if err != nil {
		return nil, err
	}

	var flags uint16
	if c.compress {
		compressed, err := c.compressData(data)
		if err != nil {
			return nil, err
		}
		if len(compressed) < len(data) {
			data = compressed
			flags |= FlagCompressed
		}
	}

	header := Header{
		SchemaVersion: uint16(core.CurrentSchemaVersion),
		Flags:         flags,
		BrainIDLen:    uint32(len(brain.ID)),
		DataLen:       uint64(len(data)),
		Checksum:      c.checksum(data),
	}
	copy(header.Magic[:], MagicBytes)

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	if _, err := buf.WriteString(string(brain.ID)); err != nil {
		return nil, err
	}
	if _, err := buf.Write(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes the binary envelope, running forward migrations
// if the stored schema version is older than core.CurrentSchemaVersion.
func (c *Codec) Decode(raw []byte) (*core.Brain, error) {
	if len(raw) < 24 {
		return nil, errors.New("persistence: data too short to contain a header")
	}

	buf := bytes.NewReader(raw)

	var header Header
	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if string(header.Magic[:]) != MagicBytes {
		return nil, errors.New("persistence: invalid magic bytes")
	}
	if int(header.SchemaVersion) > core.CurrentSchemaVersion {
		return nil, core.ErrSchemaTooNew
	}

	brainIDBytes := make([]byte, header.BrainIDLen)
	if _, err := io.ReadFull(buf, brainIDBytes); err != nil {
		return nil, err
	}

	data := make([]byte, header.DataLen)
	if _, err := io.ReadFull(buf, data); err != nil {
		return nil, err
	}

	if c.checksum(data) != header.Checksum {
		return nil, errors.New("persistence: checksum mismatch")
	}

	if header.Flags&FlagCompressed != 0 {
		decompressed, err := c.decompressData(data)
		if err != nil {
			return nil, err
		}
		data = decompressed
	}

	var brain core.Brain
	if err := msgpack.Unmarshal(data, &brain); err != nil {
		return nil, err
	}
	brain.SchemaVersion = int(header.SchemaVersion)

	migrated, err := MigrateBrain(&brain)
	if err != nil {
		return nil, err
	}
	return migrated, nil
}

func (c *Codec) compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.compLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Codec) decompressData(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// checksum is a simple polynomial rolling checksum — not cryptographic,
// just enough to catch truncation and bit rot on a local file.
func (c *Codec) checksum(data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i++ {
		sum = sum*31 + uint32(data[i])
	}
	return sum
}

// Snapshot is a lightweight summary of a brain's state, cheap to
// compute and persist independently of the full graph — used by
// health checks and the stats operation (spec.md §6).
type Snapshot struct {
	BrainID      core.BrainID `msgpack:"brain_id"`
	Version      uint64       `msgpack:"version"`
	NeuronCount  int          `msgpack:"neuron_count"`
	SynapseCount int          `msgpack:"synapse_count"`
	FiberCount   int          `msgpack:"fiber_count"`
	ModifiedAt   int64        `msgpack:"modified_at"`
}

func CreateSnapshot(brain *core.Brain) Snapshot {
	return Snapshot{
		BrainID:      brain.ID,
		Version:      brain.Version,
		NeuronCount:  len(brain.Neurons),
		SynapseCount: len(brain.Synapses),
		FiberCount:   len(brain.Fibers),
		ModifiedAt:   brain.CreatedAt.Unix(),
	}
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return msgpack.Marshal(s)
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	err := msgpack.Unmarshal(data, &s)
	return s, err
}
