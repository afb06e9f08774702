// Package core defines the NeuralMemory graph data model: neurons,
// synapses, fibers, maturation records and the brain that owns them.
// Identity is immutable; activation state is mutated separately from
// identity, matching the NeuronState/Neuron split in §3.
package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ── Identifiers ──────────────────────────────────────────────────────

type (
	NeuronID  string
	SynapseID string
	FiberID   string
	BrainID   string
)

func NewNeuronID() NeuronID { return NeuronID(uuid.New().String()) }
func NewFiberID() FiberID   { return FiberID(uuid.New().String()) }
func NewBrainID() BrainID   { return BrainID(uuid.New().String()) }

// NewSynapseID builds a deterministic id from the endpoints and the
// relation type so re-encoding the same relation twice is idempotent,
// while parallel typed edges between the same pair stay distinct.
// Mirrors the teacher's "from:to" concatenation, generalized with type.
func NewSynapseID(from, to NeuronID, typ SynapseType) SynapseID {
	return SynapseID(string(from) + "->" + string(typ) + "->" + string(to))
}

// ── Neuron ───────────────────────────────────────────────────────────

// NeuronType is one of the eight kinds a memory fragment can be
// canonicalized into.
type NeuronType string

const (
	NeuronTime    NeuronType = "TIME"
	NeuronSpatial NeuronType = "SPATIAL"
	NeuronEntity  NeuronType = "ENTITY"
	NeuronAction  NeuronType = "ACTION"
	NeuronStateKind NeuronType = "STATE"
	NeuronConcept NeuronType = "CONCEPT"
	NeuronSensory NeuronType = "SENSORY"
	NeuronIntent  NeuronType = "INTENT"
)

// AnchorBaseWeight returns the default seed weight used when this type
// resolves to a query anchor (spec.md §4.1).
func (t NeuronType) AnchorBaseWeight() float64 {
	switch t {
	case NeuronTime:
		return 1.0
	case NeuronEntity:
		return 0.8
	case NeuronAction:
		return 0.6
	case NeuronConcept:
		return 0.4
	default:
		return 0.3
	}
}

// Neuron is immutable identity: what the memory fragment *is*.
// Mutable activation/lifecycle data lives in NeuronState.
type Neuron struct {
	ID          NeuronID
	Type        NeuronType
	Content     string
	Metadata    map[string]any
	ContentHash uint64 // 64-bit SimHash, 0 means "not computed"

	CreatedAt time.Time

	mu sync.RWMutex
}

// NewNeuron creates a neuron with the given type and canonical content.
// Callers must call SetContentHash once a SimHash has been computed.
func NewNeuron(typ NeuronType, content string) *Neuron {
	return &Neuron{
		ID:        NewNeuronID(),
		Type:      typ,
		Content:   content,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now(),
	}
}

func (n *Neuron) Lock()    { n.mu.Lock() }
func (n *Neuron) Unlock()  { n.mu.Unlock() }
func (n *Neuron) RLock()   { n.mu.RLock() }
func (n *Neuron) RUnlock() { n.mu.RUnlock() }

func (n *Neuron) SetContentHash(h uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ContentHash = h
}

func (n *Neuron) IsDisputed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, _ := n.Metadata["_disputed"].(bool)
	return v
}

func (n *Neuron) IsSuperseded() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, _ := n.Metadata["_superseded"].(bool)
	return v
}

func (n *Neuron) SetFlag(key string, val bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Metadata[key] = val
}

// ── NeuronState ──────────────────────────────────────────────────────

// NeuronState is the mutable per-neuron activation and lifecycle
// record, owned one-to-one by the Neuron it references.
type NeuronState struct {
	NeuronID NeuronID

	ActivationLevel float64 // ∈ [0,1], always the sigmoid of some raw value
	AccessFrequency uint64
	LastActivated   *time.Time

	DecayRate          float64 // type-specific default, §4.8
	FiringThreshold    float64 // default 0.3
	RefractoryUntil    *time.Time
	RefractoryPeriodMs int64 // default 500
	HomeostaticTarget  float64 // reserved, default 0.5

	CreatedAt time.Time

	mu sync.RWMutex
}

// NewNeuronState creates the default lifecycle record for a freshly
// created neuron, with the type-specific decay rate from §4.3 step 9.
func NewNeuronState(id NeuronID, decayRate float64) *NeuronState {
	return &NeuronState{
		NeuronID:           id,
		ActivationLevel:    0,
		DecayRate:          decayRate,
		FiringThreshold:    0.3,
		RefractoryPeriodMs: 500,
		HomeostaticTarget:  0.5,
		CreatedAt:          time.Now(),
	}
}

func (s *NeuronState) Lock()    { s.mu.Lock() }
func (s *NeuronState) Unlock()  { s.mu.Unlock() }
func (s *NeuronState) RLock()   { s.mu.RLock() }
func (s *NeuronState) RUnlock() { s.mu.RUnlock() }

// InRefractory reports whether the neuron cannot fire at instant `now`.
func (s *NeuronState) InRefractory(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RefractoryUntil != nil && s.RefractoryUntil.After(now)
}

// Fire marks the neuron as having crossed its firing threshold at
// instant `now`, bumping access stats and opening a refractory window.
func (s *NeuronState) Fire(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AccessFrequency++
	s.LastActivated = &now
	until := now.Add(time.Duration(s.RefractoryPeriodMs) * time.Millisecond)
	s.RefractoryUntil = &until
}

// SetActivation assigns the sigmoid-gated activation level. Every
// assignment during spreading must pass through Sigmoid first (§4.4);
// direct reinforcement may set `a` explicitly and still calls this.
func (s *NeuronState) SetActivation(a float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ActivationLevel = clamp01(a)
}

func (s *NeuronState) Activation() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ActivationLevel
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ── Synapse ──────────────────────────────────────────────────────────

type SynapseType string

const (
	SynHappenedAt SynapseType = "HAPPENED_AT"
	SynBefore     SynapseType = "BEFORE"
	SynAfter      SynapseType = "AFTER"
	SynDuring     SynapseType = "DURING"

	SynAtLocation SynapseType = "AT_LOCATION"
	SynContains   SynapseType = "CONTAINS"
	SynNear       SynapseType = "NEAR"

	SynCausedBy SynapseType = "CAUSED_BY"
	SynLeadsTo  SynapseType = "LEADS_TO"
	SynEnables  SynapseType = "ENABLES"
	SynPrevents SynapseType = "PREVENTS"

	SynCoOccurs    SynapseType = "CO_OCCURS"
	SynRelatedTo   SynapseType = "RELATED_TO"
	SynSimilarTo   SynapseType = "SIMILAR_TO"
	SynContradicts SynapseType = "CONTRADICTS"

	SynIsA         SynapseType = "IS_A"
	SynHasProperty SynapseType = "HAS_PROPERTY"
	SynInvolves    SynapseType = "INVOLVES"

	SynFelt   SynapseType = "FELT"
	SynEvokes SynapseType = "EVOKES"

	// Additional members rounding the 29-valued enum out to cover the
	// comparative/sequential/causal families named in §4.1 in full.
	SynSuggestedBy  SynapseType = "SUGGESTED_BY"
	SynDecidedFor   SynapseType = "DECIDED_FOR"
	SynOwns         SynapseType = "OWNS"
	SynPartOf       SynapseType = "PART_OF"
	SynPrecedes     SynapseType = "PRECEDES"
	SynFollows      SynapseType = "FOLLOWS"
	SynDependsOn    SynapseType = "DEPENDS_ON"
	SynAlternateOf  SynapseType = "ALTERNATE_OF"
	SynAssociatedTo SynapseType = "ASSOCIATED_TO"
	SynMotivates    SynapseType = "MOTIVATES"
	SynIntendedFor  SynapseType = "INTENDED_FOR"
)

type SynapseDirection string

const (
	DirUni SynapseDirection = "UNI"
	DirBi  SynapseDirection = "BI"
)

const WMax = 1.0

// Synapse is a directed or bidirectional typed edge between two
// neurons, owned by the Brain.
type Synapse struct {
	ID       SynapseID
	SourceID NeuronID
	TargetID NeuronID
	Type     SynapseType
	Weight   float64
	Direction SynapseDirection
	Metadata  map[string]any // may carry "_inferred", "_superseded"

	ReinforcedCount uint64
	LastActivated   *time.Time
	CreatedAt       time.Time

	mu sync.RWMutex
}

func NewSynapse(source, target NeuronID, typ SynapseType, weight float64, dir SynapseDirection) *Synapse {
	return &Synapse{
		ID:        NewSynapseID(source, target, typ),
		SourceID:  source,
		TargetID:  target,
		Type:      typ,
		Weight:    clamp01(weight),
		Direction: dir,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now(),
	}
}

func (s *Synapse) Lock()    { s.mu.Lock() }
func (s *Synapse) Unlock()  { s.mu.Unlock() }
func (s *Synapse) RLock()   { s.mu.RLock() }
func (s *Synapse) RUnlock() { s.mu.RUnlock() }

// Reinforce applies a Hebbian weight delta, clamping at WMax and
// bumping ReinforcedCount monotonically (I2, I4).
func (s *Synapse) Reinforce(delta float64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Weight = min(WMax, s.Weight+delta)
	if s.Weight < 0 {
		s.Weight = 0
	}
	s.ReinforcedCount++
	s.LastActivated = &now
}

// SetWeight clamps and assigns the weight directly, used by
// competitive normalization (§4.7) which rescales rather than adds.
func (s *Synapse) SetWeight(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w < 0 {
		w = 0
	}
	if w > WMax {
		w = WMax
	}
	s.Weight = w
}

func (s *Synapse) IsInferred() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _ := s.Metadata["_inferred"].(bool)
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// ── Fiber ────────────────────────────────────────────────────────────

// Fiber is a coherent memory cluster: the unit a user perceives as
// "one memory". It holds non-owning id references into the Brain.
type Fiber struct {
	ID            FiberID
	NeuronIDs     map[NeuronID]struct{}
	SynapseIDs    map[SynapseID]struct{}
	AnchorNeuron  NeuronID
	Pathway       []NeuronID // ordered subset of NeuronIDs

	Conductivity float64 // ∈ [0,1], default 1.0
	LastConducted *time.Time

	Summary  string
	Salience float64 // ∈ [0,1]

	AutoTags  map[string]struct{}
	AgentTags map[string]struct{}
	Frequency uint64

	TimeStart *time.Time
	TimeEnd   *time.Time

	MemoryType string // fact/decision/todo/context/instruction/reference

	CreatedAt time.Time

	mu sync.RWMutex
}

func NewFiber(anchor NeuronID, memoryType string, salience float64) *Fiber {
	return &Fiber{
		ID:           NewFiberID(),
		NeuronIDs:    make(map[NeuronID]struct{}),
		SynapseIDs:   make(map[SynapseID]struct{}),
		AnchorNeuron: anchor,
		Conductivity: 1.0,
		Salience:     salience,
		AutoTags:     make(map[string]struct{}),
		AgentTags:    make(map[string]struct{}),
		MemoryType:   memoryType,
		CreatedAt:    time.Now(),
	}
}

func (f *Fiber) Lock()    { f.mu.Lock() }
func (f *Fiber) Unlock()  { f.mu.Unlock() }
func (f *Fiber) RLock()   { f.mu.RLock() }
func (f *Fiber) RUnlock() { f.mu.RUnlock() }

func (f *Fiber) AddNeuron(id NeuronID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NeuronIDs[id] = struct{}{}
}

func (f *Fiber) AddSynapse(id SynapseID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SynapseIDs[id] = struct{}{}
}

// Tags returns the union of auto and agent tags (derived field, §3).
func (f *Fiber) Tags() map[string]struct{} {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]struct{}, len(f.AutoTags)+len(f.AgentTags))
	for t := range f.AutoTags {
		out[t] = struct{}{}
	}
	for t := range f.AgentTags {
		out[t] = struct{}{}
	}
	return out
}

// Conduct bumps conductivity by the per-traversal increment (§4.5
// step 7), capped at 1.0, and records the traversal instant.
func (f *Fiber) Conduct(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Conductivity = min(1.0, f.Conductivity+0.02)
	f.LastConducted = &now
}

// ValidAt reports whether `at` falls within [TimeStart, TimeEnd],
// treating a nil bound as open-ended.
func (f *Fiber) ValidAt(at time.Time) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.TimeStart != nil && at.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && at.After(*f.TimeEnd) {
		return false
	}
	return true
}

// ── Maturation ───────────────────────────────────────────────────────

type MaturationStage string

const (
	StageSTM      MaturationStage = "STM"
	StageWorking  MaturationStage = "WORKING"
	StageEpisodic MaturationStage = "EPISODIC"
	StageSemantic MaturationStage = "SEMANTIC"
)

// Maturation is the per-fiber memory-staging record.
type Maturation struct {
	FiberID            FiberID
	Stage              MaturationStage
	ReinforcementCount uint64
	ReinforcementDays  map[string]struct{} // calendar dates "YYYY-MM-DD"
	StageEnteredAt      time.Time

	mu sync.RWMutex
}

func NewMaturation(fiberID FiberID, now time.Time) *Maturation {
	return &Maturation{
		FiberID:           fiberID,
		Stage:             StageSTM,
		ReinforcementDays: make(map[string]struct{}),
		StageEnteredAt:    now,
	}
}

func (m *Maturation) Lock()    { m.mu.Lock() }
func (m *Maturation) Unlock()  { m.mu.Unlock() }
func (m *Maturation) RLock()   { m.mu.RLock() }
func (m *Maturation) RUnlock() { m.mu.RUnlock() }

// ── Brain ────────────────────────────────────────────────────────────

// BrainConfig holds the per-brain tunables of §3, all with the
// defaults stated there.
type BrainConfig struct {
	DecayRate                float64 `yaml:"decay_rate"`
	ReinforcementDelta       float64 `yaml:"reinforcement_delta"`
	ActivationThreshold      float64 `yaml:"activation_threshold"`
	MaxSpreadHops            int     `yaml:"max_spread_hops"`
	MaxContextTokens         int     `yaml:"max_context_tokens"`
	LearningRate             float64 `yaml:"learning_rate"`
	WeightNormalizationBudget float64 `yaml:"weight_normalization_budget"`
	NoveltyBoostMax          float64 `yaml:"novelty_boost_max"`
	NoveltyDecayRate         float64 `yaml:"novelty_decay_rate"`
	SigmoidSteepness         float64 `yaml:"sigmoid_steepness"`
	DefaultFiringThreshold   float64 `yaml:"default_firing_threshold"`
	DefaultRefractoryMs      int64   `yaml:"default_refractory_ms"`
	LateralInhibitionK       int     `yaml:"lateral_inhibition_k"`
	LateralInhibitionFactor  float64 `yaml:"lateral_inhibition_factor"`
	CoActivationThreshold    int     `yaml:"co_activation_threshold"`
	CoActivationWindowDays   int     `yaml:"co_activation_window_days"`
	MaxInferencesPerRun      int     `yaml:"max_inferences_per_run"`
	PruneThreshold           float64 `yaml:"prune_threshold"`
}

// DefaultBrainConfig returns the defaults enumerated in §3.
func DefaultBrainConfig() BrainConfig {
	return BrainConfig{
		DecayRate:                 0.1,
		ReinforcementDelta:        0.05,
		ActivationThreshold:       0.2,
		MaxSpreadHops:             4,
		MaxContextTokens:          1500,
		LearningRate:              0.1,
		WeightNormalizationBudget: 5.0,
		NoveltyBoostMax:           4.0,
		NoveltyDecayRate:          0.2,
		SigmoidSteepness:          6.0,
		DefaultFiringThreshold:    0.3,
		DefaultRefractoryMs:       500,
		LateralInhibitionK:        10,
		LateralInhibitionFactor:   0.7,
		CoActivationThreshold:     3,
		CoActivationWindowDays:    7,
		MaxInferencesPerRun:       100,
		PruneThreshold:            0.02,
	}
}

// Brain is the container that exclusively owns all its entities in
// three flat maps, matching §9's "no ownership cycles" design note —
// Fibers hold only id references into these maps.
type Brain struct {
	ID        BrainID
	Name      string
	Config    BrainConfig
	CreatedAt time.Time

	Neurons      map[NeuronID]*Neuron
	NeuronStates map[NeuronID]*NeuronState
	Synapses     map[SynapseID]*Synapse
	Fibers       map[FiberID]*Fiber
	Maturations  map[FiberID]*Maturation

	// Adjacency indexes outgoing synapse ids by source neuron, rebuilt
	// from Synapses on load; not persisted directly.
	Adjacency map[NeuronID][]SynapseID

	// Version increments on every committed mutation; used for
	// optimistic-conflict detection across concurrent encodes.
	Version uint64

	SchemaVersion int

	mu sync.RWMutex
}

func NewBrain(name string) *Brain {
	return &Brain{
		ID:            NewBrainID(),
		Name:          name,
		Config:        DefaultBrainConfig(),
		CreatedAt:     time.Now(),
		Neurons:       make(map[NeuronID]*Neuron),
		NeuronStates:  make(map[NeuronID]*NeuronState),
		Synapses:      make(map[SynapseID]*Synapse),
		Fibers:        make(map[FiberID]*Fiber),
		Maturations:   make(map[FiberID]*Maturation),
		Adjacency:     make(map[NeuronID][]SynapseID),
		Version:       1,
		SchemaVersion: CurrentSchemaVersion,
	}
}

func (b *Brain) Lock()    { b.mu.Lock() }
func (b *Brain) Unlock()  { b.mu.Unlock() }
func (b *Brain) RLock()   { b.mu.RLock() }
func (b *Brain) RUnlock() { b.mu.RUnlock() }

// AddNeuronUnsafe registers a neuron and its state; caller must hold
// the write lock. Bumps Version; the adjacency index is left untouched
// until a synapse is added.
func (b *Brain) AddNeuronUnsafe(n *Neuron, st *NeuronState) {
	b.Neurons[n.ID] = n
	b.NeuronStates[n.ID] = st
	b.Version++
}

func (b *Brain) AddSynapseUnsafe(s *Synapse) {
	b.Synapses[s.ID] = s
	b.Adjacency[s.SourceID] = append(b.Adjacency[s.SourceID], s.ID)
	if s.Direction == DirBi {
		b.Adjacency[s.TargetID] = append(b.Adjacency[s.TargetID], s.ID)
	}
	b.Version++
}

func (b *Brain) AddFiberUnsafe(f *Fiber, m *Maturation) {
	b.Fibers[f.ID] = f
	b.Maturations[f.ID] = m
	b.Version++
}

// TimeSince wraps time.Since so tests can stub the clock the same way
// the teacher's core.TimeSince does.
func TimeSince(t time.Time) time.Duration { return time.Since(t) }

// CurrentSchemaVersion is the latest on-disk schema version this build
// understands (see pkg/persistence/migrations.go for the v1→v9 chain).
const CurrentSchemaVersion = 9
