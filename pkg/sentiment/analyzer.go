// Package sentiment implements the lexicon-based sentiment extractor
// of spec.md §4.1: valence, intensity and emotion tags, with negation
// and intensifier handling, for English and Vietnamese text.
package sentiment

import (
	"math"
	"sync"

	"github.com/jonreiter/govader"
)

// Valence is the coarse polarity bucket spec.md §4.1 requires.
type Valence string

const (
	Positive Valence = "POS"
	Negative Valence = "NEG"
	Neutral  Valence = "NEU"
)

// EmotionLabel is one of the six universal basic emotions plus
// neutral, following Ekman (1992) — the six emotions with universal
// facial expressions.
type EmotionLabel string

const (
	EmotionHappiness EmotionLabel = "happiness"
	EmotionSadness   EmotionLabel = "sadness"
	EmotionFear      EmotionLabel = "fear"
	EmotionAnger     EmotionLabel = "anger"
	EmotionDisgust   EmotionLabel = "disgust"
	EmotionSurprise  EmotionLabel = "surprise"
	EmotionNeutral   EmotionLabel = "neutral"
)

// Result is the output of sentiment extraction: `{valence, intensity,
// emotion_tags}` per spec.md §4.1.
type Result struct {
	Valence     Valence
	Intensity   float64 // ∈ [0,1]
	EmotionTags []EmotionLabel

	// Compound/Positive/Negative/NeutralScore retain the underlying
	// continuous scores for callers that want finer-grained values than
	// Valence and Intensity.
	Compound     float64
	Positive     float64
	Negative     float64
	NeutralScore float64
}

// Analyzer wraps govader's SentimentIntensityAnalyzer for the English
// path. VADER is a lexicon + rule engine (negation, intensifiers,
// capitalization) rather than an embedding model, so it satisfies
// spec.md §4.1's requirements without depending on any vector model.
type Analyzer struct {
	sia *govader.SentimentIntensityAnalyzer
	mu  sync.Mutex
}

var (
	defaultAnalyzer *Analyzer
	once            sync.Once
)

// Default returns the package-level singleton English analyzer.
func Default() *Analyzer {
	once.Do(func() { defaultAnalyzer = New() })
	return defaultAnalyzer
}

func New() *Analyzer {
	return &Analyzer{sia: govader.NewSentimentIntensityAnalyzer()}
}

// AnalyzeEnglish returns the sentiment Result for English text.
func (a *Analyzer) AnalyzeEnglish(text string) Result {
	a.mu.Lock()
	scores := a.sia.PolarityScores(text)
	a.mu.Unlock()

	r := Result{
		Compound:     scores.Compound,
		Positive:     scores.Positive,
		Negative:     scores.Negative,
		NeutralScore: scores.Neutral,
	}
	r.Valence = valenceFromCompound(scores.Compound)
	r.Intensity = math.Abs(scores.Compound)
	r.EmotionTags = []EmotionLabel{mapToEmotion(scores.Compound, scores.Positive, scores.Negative, scores.Neutral)}
	return r
}

// valenceFromCompound buckets VADER's continuous compound score into
// the three-valued valence spec.md §4.1 requires.
func valenceFromCompound(compound float64) Valence {
	switch {
	case compound >= 0.05:
		return Positive
	case compound <= -0.05:
		return Negative
	default:
		return Neutral
	}
}

// mapToEmotion converts VADER scores to a basic emotion label.
//
//	compound >=  0.60  → happiness   (strong positive)
//	compound >=  0.20  → surprise    (mild positive — unexpected/arousing)
//	compound <= -0.60  → anger/disgust/fear (disambiguated by neg intensity)
//	compound <= -0.20  → sadness     (mild negative)
//	otherwise          → neutral
func mapToEmotion(compound, pos, neg, neu float64) EmotionLabel {
	switch {
	case compound >= 0.60:
		return EmotionHappiness
	case compound >= 0.20:
		return EmotionSurprise
	case compound <= -0.60:
		return strongNegativeLabel(pos, neg, neu)
	case compound <= -0.20:
		return EmotionSadness
	default:
		return EmotionNeutral
	}
}

// strongNegativeLabel disambiguates anger / disgust / fear within the
// strong-negative band using the relative magnitude of VADER sub-scores.
//
//	neg >> neu  → anger  (high arousal, confrontational)
//	neu > neg   → fear   (high uncertainty, avoidance)
//	balanced    → disgust (aversion without high arousal)
func strongNegativeLabel(pos, neg, neu float64) EmotionLabel {
	_ = pos
	ratio := math.MaxFloat64
	if neu > 0 {
		ratio = neg / neu
	}
	switch {
	case ratio > 1.5:
		return EmotionAnger
	case neu > neg:
		return EmotionFear
	default:
		return EmotionDisgust
	}
}

// Boost returns a score multiplier in [0.8, 1.2] for two emotion
// labels: 1.2 when they are equal, 0.8 when their valences oppose, 1.0
// otherwise. Reconstruction scoring does not apply it.
func Boost(a, b EmotionLabel) float64 {
	if a == EmotionNeutral || b == EmotionNeutral {
		return 1.0
	}
	if a == b {
		return 1.2
	}
	if isOppositeValence(a, b) {
		return 0.8
	}
	return 1.0
}

func isOppositeValence(a, b EmotionLabel) bool {
	positive := map[EmotionLabel]bool{EmotionHappiness: true, EmotionSurprise: true}
	negative := map[EmotionLabel]bool{EmotionSadness: true, EmotionFear: true, EmotionAnger: true, EmotionDisgust: true}
	return (positive[a] && negative[b]) || (negative[a] && positive[b])
}
