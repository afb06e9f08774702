package lifecycle

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/sentiment"
)

// Stage-aware decay multipliers (spec.md §4.8): memories still in
// short-term staging fade fast, mature semantic memories barely fade.
const (
	stageMultiplierSTM      = 5.0
	stageMultiplierWorking  = 2.0
	stageMultiplierEpisodic = 1.0
	stageMultiplierSemantic = 0.3

	emotionalIntensityThreshold = 0.7
	negativeDecayMultiplier     = 0.7
	positiveDecayMultiplier     = 0.9

	inferredSynapseUnreinforcedMultiplier = 2.0
	inferredSynapseReinforcedCeiling      = 2

	// dreamedSynapseDecayMultiplier matches consolidation's DREAM
	// strategy, which stamps "_dreamed":true on every association it
	// manufactures: an unrequested association fades an order of
	// magnitude faster than anything the reflex pipeline reinforced
	// directly, unless something later reinforces it back down to an
	// ordinary weight.
	dreamedSynapseDecayMultiplier = 10.0
)

// DecayReport summarizes one decay pass for the caller (spec.md §6's
// `decay` operation).
type DecayReport struct {
	NeuronsDecayed    int
	SynapsesDecayed   int
	PruneCandidates   []core.NeuronID
	DurationMillis    int64
}

// Decay runs one decay pass over every NeuronState and Synapse in
// brain, applying §4.8's exponential decay with type-aware, stage-aware
// and emotional multipliers. It mutates state in place and returns a
// report; pruning itself is left to consolidation (PRUNE strategy),
// which reads PruneCandidates.
func Decay(brain *core.Brain, now time.Time) DecayReport {
	started := now

	brain.RLock()
	stageMult := stageMultiplierByNeuron(brain)
	neuronStates := make([]*core.NeuronState, 0, len(brain.NeuronStates))
	for _, st := range brain.NeuronStates {
		neuronStates = append(neuronStates, st)
	}
	neurons := brain.Neurons
	adjacency := brain.Adjacency
	synapses := brain.Synapses
	pruneThreshold := brain.Config.PruneThreshold
	decayRate := brain.Config.DecayRate
	brain.RUnlock()

	report := DecayReport{}
	for _, st := range neuronStates {
		mult := stageMult[st.NeuronID]
		if mult == 0 {
			mult = 1.0
		}
		mult *= emotionalMultiplier(neurons[st.NeuronID], adjacency, synapses, neurons)

		decayOneNeuron(st, mult, now)
		report.NeuronsDecayed++

		if st.Activation() < pruneThreshold {
			report.PruneCandidates = append(report.PruneCandidates, st.NeuronID)
		}
	}

	for _, syn := range synapses {
		decayOneSynapse(syn, decayRate, now)
		report.SynapsesDecayed++
	}

	sort.Slice(report.PruneCandidates, func(i, j int) bool {
		return report.PruneCandidates[i] < report.PruneCandidates[j]
	})
	report.DurationMillis = now.Sub(started).Milliseconds()
	return report
}

// decayOneNeuron applies `a' = a * exp(-decay_rate*mult*days_elapsed)`
// using the neuron's own type-aware DecayRate as the base rate.
func decayOneNeuron(st *core.NeuronState, mult float64, now time.Time) {
	st.Lock()
	last := st.CreatedAt
	if st.LastActivated != nil {
		last = *st.LastActivated
	}
	daysElapsed := now.Sub(last).Hours() / 24
	if daysElapsed <= 0 {
		st.Unlock()
		return
	}
	rate := st.DecayRate * mult
	decayed := st.ActivationLevel * expNeg(rate*daysElapsed)
	st.ActivationLevel = clamp01Local(decayed)
	st.Unlock()
}

// decayOneSynapse decays synapse weight the same way, doubling the
// rate for inferred, not-yet-reinforced synapses (spec.md §4.8).
func decayOneSynapse(syn *core.Synapse, baseRate float64, now time.Time) {
	syn.Lock()
	last := syn.CreatedAt
	if syn.LastActivated != nil {
		last = *syn.LastActivated
	}
	daysElapsed := now.Sub(last).Hours() / 24
	if daysElapsed <= 0 {
		syn.Unlock()
		return
	}
	rate := baseRate
	inferred, _ := syn.Metadata["_inferred"].(bool)
	if inferred && syn.ReinforcedCount < inferredSynapseReinforcedCeiling {
		rate *= inferredSynapseUnreinforcedMultiplier
	}
	if dreamed, _ := syn.Metadata["_dreamed"].(bool); dreamed && syn.ReinforcedCount == 0 {
		rate *= dreamedSynapseDecayMultiplier
	}
	decayed := syn.Weight * expNeg(rate*daysElapsed)
	syn.Weight = clamp01Local(decayed)
	syn.Unlock()
}

// stageMultiplierByNeuron returns, for every neuron that belongs to at
// least one fiber with a Maturation record, the multiplier of its
// least-mature fiber (the smallest stage, which carries the largest
// multiplier) — a neuron anchored in even one still-forming memory is
// treated as not yet consolidated everywhere. Neurons touched by no
// fiber get no entry and default to an unmodified 1.0 multiplier,
// matching the S3 type-aware-decay scenario's standalone fact/todo
// neurons.
func stageMultiplierByNeuron(brain *core.Brain) map[core.NeuronID]float64 {
	out := make(map[core.NeuronID]float64)
	for _, f := range brain.Fibers {
		mat := brain.Maturations[f.ID]
		if mat == nil {
			continue
		}
		mult := stageMultiplier(mat.Stage)
		for id := range f.NeuronIDs {
			if existing, ok := out[id]; !ok || mult > existing {
				out[id] = mult
			}
		}
	}
	return out
}

func stageMultiplier(stage core.MaturationStage) float64 {
	switch stage {
	case core.StageSTM:
		return stageMultiplierSTM
	case core.StageWorking:
		return stageMultiplierWorking
	case core.StageEpisodic:
		return stageMultiplierEpisodic
	case core.StageSemantic:
		return stageMultiplierSemantic
	default:
		return stageMultiplierEpisodic
	}
}

// emotionalMultiplier inspects a neuron's FELT synapses (the encoder's
// only channel for emotional metadata, since emotion is not stored
// directly on NeuronState) and applies §4.8's valence/intensity
// modulation using the strongest one found. Grounded on the same
// positive/negative label split `sentiment.Boost`'s opposite-valence
// check uses internally.
func emotionalMultiplier(n *core.Neuron, adjacency map[core.NeuronID][]core.SynapseID, synapses map[core.SynapseID]*core.Synapse, neurons map[core.NeuronID]*core.Neuron) float64 {
	if n == nil {
		return 1.0
	}
	var strongest *core.Synapse
	for _, synID := range adjacency[n.ID] {
		syn := synapses[synID]
		if syn == nil || syn.Type != core.SynFelt {
			continue
		}
		if strongest == nil || syn.Weight > strongest.Weight {
			strongest = syn
		}
	}
	if strongest == nil || strongest.Weight < emotionalIntensityThreshold {
		return 1.0
	}

	label := emotionLabelFromTarget(neurons, strongest.TargetID)
	switch {
	case isNegativeEmotion(label):
		return negativeDecayMultiplier
	case isPositiveEmotion(label):
		return positiveDecayMultiplier
	default:
		return 1.0
	}
}

// emotionLabelFromTarget recovers the emotion label a FELT synapse
// points at from its target neuron's canonical content, the encoder's
// only record of which emotion a reaction is ("emotion:<label>", from
// getOrCreateEmotionNeuron).
func emotionLabelFromTarget(neurons map[core.NeuronID]*core.Neuron, target core.NeuronID) sentiment.EmotionLabel {
	n := neurons[target]
	if n == nil {
		return sentiment.EmotionNeutral
	}
	label, ok := strings.CutPrefix(n.Content, "emotion:")
	if !ok {
		return sentiment.EmotionNeutral
	}
	return sentiment.EmotionLabel(label)
}

func isPositiveEmotion(label sentiment.EmotionLabel) bool {
	return label == sentiment.EmotionHappiness || label == sentiment.EmotionSurprise
}

func isNegativeEmotion(label sentiment.EmotionLabel) bool {
	switch label {
	case sentiment.EmotionSadness, sentiment.EmotionFear, sentiment.EmotionAnger, sentiment.EmotionDisgust:
		return true
	default:
		return false
	}
}

func expNeg(x float64) float64 {
	return math.Exp(-x)
}

func clamp01Local(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
