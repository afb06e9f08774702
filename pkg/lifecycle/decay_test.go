package lifecycle

import (
	"math"
	"testing"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

func newTestBrain() *core.Brain {
	return core.NewBrain("test")
}

func addNeuron(b *core.Brain, typ core.NeuronType, content string, decayRate, activation float64, lastActivated *time.Time) *core.Neuron {
	n := core.NewNeuron(typ, content)
	st := core.NewNeuronState(n.ID, decayRate)
	st.ActivationLevel = activation
	st.LastActivated = lastActivated
	b.AddNeuronUnsafe(n, st)
	return n
}

// TestDecay_FactNeuron_MatchesSpecExample hand-verifies spec.md §8 S3:
// decay_rate=0.02, activation=1.0, 30 days elapsed -> exp(-0.6) ~= 0.5488.
func TestDecay_FactNeuron_MatchesSpecExample(t *testing.T) {
	b := newTestBrain()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := addNeuron(b, core.NeuronConcept, "fact", 0.02, 1.0, nil)
	b.NeuronStates[n.ID].CreatedAt = created

	now := created.AddDate(0, 0, 30)
	Decay(b, now)

	got := b.NeuronStates[n.ID].Activation()
	want := math.Exp(-0.6)
	if diff := got - want; diff > 1e-3 || diff < -1e-3 {
		t.Errorf("expected activation ~= %v, got %v", want, got)
	}
}

// TestDecay_TodoNeuron_FallsBelowPruneThreshold hand-verifies spec.md
// §8 S3's second half: decay_rate=0.15, 30 days -> exp(-4.5) ~= 0.0111,
// below the 0.02 default prune threshold.
func TestDecay_TodoNeuron_FallsBelowPruneThreshold(t *testing.T) {
	b := newTestBrain()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := addNeuron(b, core.NeuronConcept, "todo", 0.15, 1.0, nil)
	b.NeuronStates[n.ID].CreatedAt = created

	now := created.AddDate(0, 0, 30)
	report := Decay(b, now)

	got := b.NeuronStates[n.ID].Activation()
	want := math.Exp(-4.5)
	if diff := got - want; diff > 1e-3 || diff < -1e-3 {
		t.Errorf("expected activation ~= %v, got %v", want, got)
	}
	found := false
	for _, id := range report.PruneCandidates {
		if id == n.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected todo neuron to be a prune candidate, got %v", report.PruneCandidates)
	}
}

// TestDecay_STMStageAppliesFasterMultiplier confirms a neuron in an STM
// fiber decays faster (5x exponent) than an identical unattached
// neuron over the same elapsed time.
func TestDecay_STMStageAppliesFasterMultiplier(t *testing.T) {
	b := newTestBrain()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	stm := addNeuron(b, core.NeuronConcept, "stm-member", 0.1, 1.0, nil)
	b.NeuronStates[stm.ID].CreatedAt = created
	plain := addNeuron(b, core.NeuronConcept, "unattached", 0.1, 1.0, nil)
	b.NeuronStates[plain.ID].CreatedAt = created

	fiber := core.NewFiber(stm.ID, "episodic", 0.5)
	fiber.AddNeuron(stm.ID)
	b.Fibers[fiber.ID] = fiber
	b.Maturations[fiber.ID] = core.NewMaturation(fiber.ID, created)

	now := created.AddDate(0, 0, 10)
	Decay(b, now)

	stmActivation := b.NeuronStates[stm.ID].Activation()
	plainActivation := b.NeuronStates[plain.ID].Activation()
	if stmActivation >= plainActivation {
		t.Errorf("expected STM-staged neuron to decay faster: stm=%v plain=%v", stmActivation, plainActivation)
	}

	wantSTM := math.Exp(-0.1 * 5.0 * 10)
	if diff := stmActivation - wantSTM; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("expected stm activation ~= %v, got %v", wantSTM, stmActivation)
	}
}

// TestDecay_NegativeEmotionSlowsDecay hand-verifies the 0.7 multiplier
// applied to the decay rate (not the result) when a neuron carries a
// strong (intensity >= 0.7) negative FELT synapse: the memory should
// persist LONGER, meaning a slower effective decay rate.
func TestDecay_NegativeEmotionSlowsDecay(t *testing.T) {
	b := newTestBrain()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	anchor := addNeuron(b, core.NeuronConcept, "bad day", 0.1, 1.0, nil)
	b.NeuronStates[anchor.ID].CreatedAt = created
	baseline := addNeuron(b, core.NeuronConcept, "neutral day", 0.1, 1.0, nil)
	b.NeuronStates[baseline.ID].CreatedAt = created

	emotionNeuron := core.NewNeuron(core.NeuronConcept, "emotion:sadness")
	b.AddNeuronUnsafe(emotionNeuron, core.NewNeuronState(emotionNeuron.ID, 0.02))
	feltSyn := core.NewSynapse(anchor.ID, emotionNeuron.ID, core.SynFelt, 0.8, core.DirUni)
	b.AddSynapseUnsafe(feltSyn)

	now := created.AddDate(0, 0, 10)
	Decay(b, now)

	anchorActivation := b.NeuronStates[anchor.ID].Activation()
	baselineActivation := b.NeuronStates[baseline.ID].Activation()
	if anchorActivation <= baselineActivation {
		t.Errorf("expected the negatively-charged neuron to decay slower: anchor=%v baseline=%v", anchorActivation, baselineActivation)
	}

	wantAnchor := math.Exp(-0.1 * 0.7 * 10)
	if diff := anchorActivation - wantAnchor; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("expected anchor activation ~= %v, got %v", wantAnchor, anchorActivation)
	}
}

// TestDecay_InferredUnreinforcedSynapse_DecaysTwiceAsFast hand-verifies
// the 2x rate multiplier for inferred synapses with reinforced_count < 2.
func TestDecay_InferredUnreinforcedSynapse_DecaysTwiceAsFast(t *testing.T) {
	b := newTestBrain()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := addNeuron(b, core.NeuronConcept, "a", 0.1, 1.0, nil)
	c := addNeuron(b, core.NeuronConcept, "c", 0.1, 1.0, nil)
	inferred := core.NewSynapse(a.ID, c.ID, core.SynRelatedTo, 1.0, core.DirUni)
	inferred.Metadata["_inferred"] = true
	inferred.CreatedAt = created
	b.AddSynapseUnsafe(inferred)

	d := addNeuron(b, core.NeuronConcept, "d", 0.1, 1.0, nil)
	e := addNeuron(b, core.NeuronConcept, "e", 0.1, 1.0, nil)
	plain := core.NewSynapse(d.ID, e.ID, core.SynRelatedTo, 1.0, core.DirUni)
	plain.CreatedAt = created
	b.AddSynapseUnsafe(plain)

	now := created.AddDate(0, 0, 10)
	Decay(b, now)

	if inferred.Weight >= plain.Weight {
		t.Errorf("expected inferred synapse to decay faster: inferred=%v plain=%v", inferred.Weight, plain.Weight)
	}

	wantInferred := math.Exp(-b.Config.DecayRate * 2.0 * 10)
	if diff := inferred.Weight - wantInferred; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("expected inferred weight ~= %v, got %v", wantInferred, inferred.Weight)
	}
}
