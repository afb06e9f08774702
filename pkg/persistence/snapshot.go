package persistence

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// BrainSnapshot is the stable JSON export format of spec.md §6: a
// top-level object with deterministically ordered fields, tolerant of
// unknown keys and missing optional fields on import. Field order
// within the struct mirrors the spec's alphabetical listing so
// encoding/json emits records in that order.
type BrainSnapshot struct {
	BrainID       core.BrainID           `json:"brain_id"`
	ExportedAt    string                 `json:"exported_at"`
	Fibers        []FiberRecord          `json:"fibers"`
	Maturations   []MaturationRecord     `json:"maturations"`
	Metadata      map[string]int         `json:"metadata"`
	NeuronStates  []NeuronStateRecord    `json:"neuron_states"`
	Neurons       []NeuronRecord         `json:"neurons"`
	Synapses      []SynapseRecord        `json:"synapses"`
	TypedMemories map[string][]core.NeuronID `json:"typed_memories"`
	Version       uint64                 `json:"version"`
}

type NeuronRecord struct {
	Content     string         `json:"content"`
	ContentHash uint64         `json:"content_hash"`
	CreatedAt   time.Time      `json:"created_at"`
	ID          core.NeuronID  `json:"id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Type        core.NeuronType `json:"type"`
}

type NeuronStateRecord struct {
	AccessFrequency   uint64        `json:"access_frequency"`
	ActivationLevel   float64       `json:"activation_level"`
	DecayRate         float64       `json:"decay_rate"`
	FiringThreshold   float64       `json:"firing_threshold"`
	LastActivated     *time.Time    `json:"last_activated,omitempty"`
	NeuronID          core.NeuronID `json:"neuron_id"`
	RefractoryUntil   *time.Time    `json:"refractory_until,omitempty"`
}

type SynapseRecord struct {
	CreatedAt       time.Time            `json:"created_at"`
	Direction       core.SynapseDirection `json:"direction"`
	ID              core.SynapseID       `json:"id"`
	LastActivated   *time.Time           `json:"last_activated,omitempty"`
	Metadata        map[string]any       `json:"metadata,omitempty"`
	ReinforcedCount uint64               `json:"reinforced_count"`
	SourceID        core.NeuronID        `json:"source_id"`
	TargetID        core.NeuronID        `json:"target_id"`
	Type            core.SynapseType     `json:"type"`
	Weight          float64              `json:"weight"`
}

type FiberRecord struct {
	AgentTags     []string        `json:"agent_tags"`
	AnchorNeuron  core.NeuronID   `json:"anchor_neuron_id"`
	AutoTags      []string        `json:"auto_tags"`
	Conductivity  float64         `json:"conductivity"`
	Frequency     uint64          `json:"frequency"`
	ID            core.FiberID    `json:"id"`
	LastConducted *time.Time      `json:"last_conducted,omitempty"`
	MemoryType    string          `json:"memory_type"`
	NeuronIDs     []core.NeuronID `json:"neuron_ids"`
	Pathway       []core.NeuronID `json:"pathway"`
	Salience      float64         `json:"salience"`
	Summary       string          `json:"summary"`
	SynapseIDs    []core.SynapseID `json:"synapse_ids"`
	TimeEnd       *time.Time      `json:"time_end,omitempty"`
	TimeStart     *time.Time      `json:"time_start,omitempty"`
}

type MaturationRecord struct {
	FiberID            core.FiberID `json:"fiber_id"`
	ReinforcementCount uint64       `json:"reinforcement_count"`
	ReinforcementDays  []string     `json:"reinforcement_days"`
	Stage              core.MaturationStage `json:"stage"`
	StageEnteredAt     time.Time    `json:"stage_entered_at"`
}

// ExportSnapshot builds the JSON export format from a live brain. now
// is the caller-supplied export instant, kept as a parameter so the
// result is reproducible in tests.
func ExportSnapshot(brain *core.Brain, now time.Time) BrainSnapshot {
	snap := BrainSnapshot{
		BrainID:       brain.ID,
		ExportedAt:    now.UTC().Format(time.RFC3339),
		Version:       brain.Version,
		Metadata:      map[string]int{"neuron_count": len(brain.Neurons), "synapse_count": len(brain.Synapses), "fiber_count": len(brain.Fibers)},
		TypedMemories: make(map[string][]core.NeuronID),
	}

	neuronIDs := sortedNeuronIDs(brain.Neurons)
	for _, id := range neuronIDs {
		n := brain.Neurons[id]
		snap.Neurons = append(snap.Neurons, NeuronRecord{
			ID: n.ID, Type: n.Type, Content: n.Content,
			Metadata: n.Metadata, ContentHash: n.ContentHash, CreatedAt: n.CreatedAt,
		})
	}

	stateIDs := make([]core.NeuronID, 0, len(brain.NeuronStates))
	for id := range brain.NeuronStates {
		stateIDs = append(stateIDs, id)
	}
	sort.Slice(stateIDs, func(i, j int) bool { return stateIDs[i] < stateIDs[j] })
	for _, id := range stateIDs {
		s := brain.NeuronStates[id]
		snap.NeuronStates = append(snap.NeuronStates, NeuronStateRecord{
			NeuronID: s.NeuronID, ActivationLevel: s.Activation(), AccessFrequency: s.AccessFrequency,
			LastActivated: s.LastActivated, DecayRate: s.DecayRate, FiringThreshold: s.FiringThreshold,
			RefractoryUntil: s.RefractoryUntil,
		})
	}

	synIDs := make([]core.SynapseID, 0, len(brain.Synapses))
	for id := range brain.Synapses {
		synIDs = append(synIDs, id)
	}
	sort.Slice(synIDs, func(i, j int) bool { return synIDs[i] < synIDs[j] })
	for _, id := range synIDs {
		s := brain.Synapses[id]
		snap.Synapses = append(snap.Synapses, SynapseRecord{
			ID: s.ID, SourceID: s.SourceID, TargetID: s.TargetID, Type: s.Type,
			Weight: s.Weight, Direction: s.Direction, Metadata: s.Metadata,
			ReinforcedCount: s.ReinforcedCount, LastActivated: s.LastActivated, CreatedAt: s.CreatedAt,
		})
	}

	fiberIDs := make([]core.FiberID, 0, len(brain.Fibers))
	for id := range brain.Fibers {
		fiberIDs = append(fiberIDs, id)
	}
	sort.Slice(fiberIDs, func(i, j int) bool { return fiberIDs[i] < fiberIDs[j] })
	for _, id := range fiberIDs {
		f := brain.Fibers[id]
		rec := FiberRecord{
			ID: f.ID, NeuronIDs: setToSlice(f.NeuronIDs), SynapseIDs: synapseSetToSlice(f.SynapseIDs),
			AnchorNeuron: f.AnchorNeuron, Pathway: f.Pathway, Conductivity: f.Conductivity,
			LastConducted: f.LastConducted, Summary: f.Summary, Salience: f.Salience,
			AutoTags: stringSetToSlice(f.AutoTags), AgentTags: stringSetToSlice(f.AgentTags),
			Frequency: f.Frequency, TimeStart: f.TimeStart, TimeEnd: f.TimeEnd, MemoryType: f.MemoryType,
		}
		snap.Fibers = append(snap.Fibers, rec)
		if f.MemoryType != "" {
			snap.TypedMemories[f.MemoryType] = append(snap.TypedMemories[f.MemoryType], rec.NeuronIDs...)
		}
	}

	maturationIDs := make([]core.FiberID, 0, len(brain.Maturations))
	for id := range brain.Maturations {
		maturationIDs = append(maturationIDs, id)
	}
	sort.Slice(maturationIDs, func(i, j int) bool { return maturationIDs[i] < maturationIDs[j] })
	for _, id := range maturationIDs {
		m := brain.Maturations[id]
		days := make([]string, 0, len(m.ReinforcementDays))
		for d := range m.ReinforcementDays {
			days = append(days, d)
		}
		sort.Strings(days)
		snap.Maturations = append(snap.Maturations, MaturationRecord{
			FiberID: m.FiberID, Stage: m.Stage, ReinforcementCount: m.ReinforcementCount,
			ReinforcementDays: days, StageEnteredAt: m.StageEnteredAt,
		})
	}

	return snap
}

// ImportSnapshot is the inverse of ExportSnapshot: it rebuilds a live
// Brain from an export, the spec.md §6 `import` operation. The brain
// keeps the snapshot's BrainID and Version rather than minting a new
// identity, so re-importing the same export is idempotent; Adjacency
// is rebuilt from the synapse records rather than carried on the wire,
// matching the load path's "rebuilt from Synapses on load" note on
// Brain.Adjacency.
func ImportSnapshot(snap BrainSnapshot) (*core.Brain, error) {
	brain := core.NewBrain(string(snap.BrainID))
	brain.ID = snap.BrainID
	brain.Version = snap.Version
	if brain.Version == 0 {
		brain.Version = 1
	}

	for _, rec := range snap.Neurons {
		n := &core.Neuron{
			ID:          rec.ID,
			Type:        rec.Type,
			Content:     rec.Content,
			Metadata:    rec.Metadata,
			ContentHash: rec.ContentHash,
			CreatedAt:   rec.CreatedAt,
		}
		if n.Metadata == nil {
			n.Metadata = make(map[string]any)
		}
		brain.Neurons[n.ID] = n
	}

	for _, rec := range snap.NeuronStates {
		st := core.NewNeuronState(rec.NeuronID, rec.DecayRate)
		st.ActivationLevel = rec.ActivationLevel
		st.AccessFrequency = rec.AccessFrequency
		st.LastActivated = rec.LastActivated
		st.FiringThreshold = rec.FiringThreshold
		st.RefractoryUntil = rec.RefractoryUntil
		brain.NeuronStates[st.NeuronID] = st
	}
	for id := range brain.Neurons {
		if _, ok := brain.NeuronStates[id]; !ok {
			return nil, fmt.Errorf("persistence: snapshot neuron %s has no matching state record", id)
		}
	}

	for _, rec := range snap.Synapses {
		syn := &core.Synapse{
			ID: rec.ID, SourceID: rec.SourceID, TargetID: rec.TargetID,
			Type: rec.Type, Weight: rec.Weight, Direction: rec.Direction,
			Metadata: rec.Metadata, ReinforcedCount: rec.ReinforcedCount,
			LastActivated: rec.LastActivated, CreatedAt: rec.CreatedAt,
		}
		if syn.Metadata == nil {
			syn.Metadata = make(map[string]any)
		}
		brain.Synapses[syn.ID] = syn
		brain.Adjacency[syn.SourceID] = append(brain.Adjacency[syn.SourceID], syn.ID)
		if syn.Direction == core.DirBi {
			brain.Adjacency[syn.TargetID] = append(brain.Adjacency[syn.TargetID], syn.ID)
		}
	}

	for _, rec := range snap.Fibers {
		f := &core.Fiber{
			ID:            rec.ID,
			NeuronIDs:     sliceToNeuronSet(rec.NeuronIDs),
			SynapseIDs:    sliceToSynapseSet(rec.SynapseIDs),
			AnchorNeuron:  rec.AnchorNeuron,
			Pathway:       rec.Pathway,
			Conductivity:  rec.Conductivity,
			LastConducted: rec.LastConducted,
			Summary:       rec.Summary,
			Salience:      rec.Salience,
			AutoTags:      sliceToStringSet(rec.AutoTags),
			AgentTags:     sliceToStringSet(rec.AgentTags),
			Frequency:     rec.Frequency,
			TimeStart:     rec.TimeStart,
			TimeEnd:       rec.TimeEnd,
			MemoryType:    rec.MemoryType,
		}
		brain.Fibers[f.ID] = f
	}

	for _, rec := range snap.Maturations {
		m := &core.Maturation{
			FiberID:            rec.FiberID,
			Stage:              rec.Stage,
			ReinforcementCount: rec.ReinforcementCount,
			ReinforcementDays:  sliceToStringSet(rec.ReinforcementDays),
			StageEnteredAt:     rec.StageEnteredAt,
		}
		brain.Maturations[m.FiberID] = m
	}

	return brain, nil
}

func sliceToNeuronSet(ids []core.NeuronID) map[core.NeuronID]struct{} {
	out := make(map[core.NeuronID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func sliceToSynapseSet(ids []core.SynapseID) map[core.SynapseID]struct{} {
	out := make(map[core.SynapseID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func sliceToStringSet(ss []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		out[s] = struct{}{}
	}
	return out
}

// MarshalSnapshotJSON renders a BrainSnapshot as indented, stable JSON.
func MarshalSnapshotJSON(snap BrainSnapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

// UnmarshalSnapshotJSON parses JSON into a BrainSnapshot. Unknown keys
// are ignored by encoding/json by default; missing optional fields
// simply leave the corresponding slice/map nil.
func UnmarshalSnapshotJSON(data []byte) (BrainSnapshot, error) {
	var snap BrainSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("persistence: invalid snapshot json: %w", err)
	}
	return snap, nil
}

func sortedNeuronIDs(m map[core.NeuronID]*core.Neuron) []core.NeuronID {
	ids := make([]core.NeuronID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func setToSlice(m map[core.NeuronID]struct{}) []core.NeuronID {
	out := make([]core.NeuronID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func synapseSetToSlice(m map[core.SynapseID]struct{}) []core.SynapseID {
	out := make([]core.SynapseID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func stringSetToSlice(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
