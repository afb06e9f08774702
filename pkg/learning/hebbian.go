// Package learning implements the Hebbian synapse update rule of
// spec.md §4.7: novelty-boosted reinforcement, competitive weight
// normalization, and the anti-Hebbian update used by conflict
// resolution. "Neurons that fire together, wire together" — but
// weights saturate and renormalize so no synapse runs away.
package learning

import (
	"math"
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// Rule carries the tunable parameters the Hebbian update depends on.
// These mirror the corresponding fields of core.BrainConfig; Rule is
// constructed from a brain's config rather than reading it directly so
// the update math stays pure and easily testable.
type Rule struct {
	LearningRate            float64
	NoveltyBoostMax         float64
	NoveltyDecayRate        float64
	WeightNormalizationBudget float64
}

// FromConfig builds a Rule from a brain's configuration.
func FromConfig(cfg core.BrainConfig) Rule {
	return Rule{
		LearningRate:              cfg.LearningRate,
		NoveltyBoostMax:           cfg.NoveltyBoostMax,
		NoveltyDecayRate:          cfg.NoveltyDecayRate,
		WeightNormalizationBudget: cfg.WeightNormalizationBudget,
	}
}

// EffectiveLearningRate returns η_eff for a synapse reinforced r times:
// η_eff = learning_rate · (1 + novelty_boost_max · exp(-novelty_decay_rate · r)).
// A brand-new synapse (r=0) learns (1 + novelty_boost_max)× faster than
// a long-reinforced one.
func (rule Rule) EffectiveLearningRate(reinforcedCount uint64) float64 {
	novelty := rule.NoveltyBoostMax * math.Exp(-rule.NoveltyDecayRate*float64(reinforcedCount))
	return rule.LearningRate * (1 + novelty)
}

// Reinforce applies the Hebbian update to syn given the pre/post
// activations observed, using the synapse's own ReinforcedCount for
// the novelty term: Δw = η_eff · a_pre · a_post · (w_max - w).
// Delegates the actual field mutation to core.Synapse.Reinforce so
// lock discipline and the w_max clamp stay in one place.
func (rule Rule) Reinforce(syn *core.Synapse, aPre, aPost float64, now time.Time) {
	syn.RLock()
	w := syn.Weight
	r := syn.ReinforcedCount
	syn.RUnlock()

	etaEff := rule.EffectiveLearningRate(r)
	delta := etaEff * aPre * aPost * (core.WMax - w)
	syn.Reinforce(delta, now)
}

// AntiReinforce applies the anti-Hebbian update used by conflict
// resolution and the disputed path: Δw = -η_eff · a_pre · a_post · w.
func (rule Rule) AntiReinforce(syn *core.Synapse, aPre, aPost float64, now time.Time) {
	syn.RLock()
	w := syn.Weight
	r := syn.ReinforcedCount
	syn.RUnlock()

	etaEff := rule.EffectiveLearningRate(r)
	delta := -etaEff * aPre * aPost * w
	syn.Reinforce(delta, now)
}

// Normalize implements competitive normalization: for every pre-neuron
// whose total outgoing synapse weight exceeds the configured budget,
// scale all of its outgoing weights down proportionally so the total
// lands exactly on budget. Synapses not touched by this call are left
// alone.
func (rule Rule) Normalize(outgoing map[core.NeuronID][]*core.Synapse) {
	budget := rule.WeightNormalizationBudget
	if budget <= 0 {
		return
	}
	// Deterministic iteration order for reproducible test expectations.
	ids := make([]core.NeuronID, 0, len(outgoing))
	for id := range outgoing {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		synapses := outgoing[id]
		var total float64
		for _, s := range synapses {
			s.RLock()
			total += s.Weight
			s.RUnlock()
		}
		if total <= budget {
			continue
		}
		scale := budget / total
		for _, s := range synapses {
			s.RLock()
			w := s.Weight
			s.RUnlock()
			s.SetWeight(w * scale)
		}
	}
}
