package sentiment

import (
	"strings"
)

// viPositive and viNegative are representative Vietnamese sentiment
// lexicons (positive/negative terms), paralleling govader's English
// wordlist. Each entry is a lowercase, whitespace-normalized phrase.
var viPositive = map[string]float64{
	"tốt": 0.6, "tuyệt vời": 1.0, "xuất sắc": 0.9, "hài lòng": 0.6,
	"vui": 0.6, "vui vẻ": 0.6, "hạnh phúc": 0.8, "thích": 0.6,
	"yêu": 0.8, "đẹp": 0.6, "thành công": 0.7, "hiệu quả": 0.5,
	"tích cực": 0.5, "tự hào": 0.6, "an toàn": 0.4, "thoải mái": 0.5,
	"may mắn": 0.6, "tuyệt": 0.9, "ổn": 0.3, "tốt đẹp": 0.6,
	"hoàn hảo": 0.9, "ấn tượng": 0.6, "ngạc nhiên": 0.5, "biết ơn": 0.6,
}

var viNegative = map[string]float64{
	"tệ": -0.6, "xấu": -0.6, "buồn": -0.7, "tức giận": -0.8,
	"giận": -0.7, "thất vọng": -0.7, "lo lắng": -0.5, "sợ": -0.6,
	"sợ hãi": -0.7, "ghét": -0.8, "khó chịu": -0.5, "thất bại": -0.7,
	"tồi tệ": -0.8, "đau khổ": -0.7, "chán": -0.5, "phiền": -0.4,
	"nguy hiểm": -0.6, "kinh khủng": -0.9, "căng thẳng": -0.5,
	"mệt mỏi": -0.4, "hối hận": -0.6, "ghê tởm": -0.8, "sốc": -0.5,
}

// viNegators flip the sign of the term that follows them.
var viNegators = map[string]bool{
	"không": true, "chẳng": true, "chưa": true, "đừng": true, "chả": true,
}

// viIntensifiers scale the magnitude of the term that follows them.
var viIntensifiers = map[string]float64{
	"rất": 1.5, "cực kỳ": 2.0, "vô cùng": 1.8, "khá": 1.2, "hơi": 0.7, "quá": 1.6,
}

// AnalyzeVietnamese runs the lexicon-based Vietnamese sentiment
// extractor: tokenizes on whitespace, matches the longest lexicon
// phrase at each position, and applies negation/intensifier handling
// from up to two preceding tokens — the same "regex + lexicon
// only, never raises" idiom the English path follows via VADER.
func AnalyzeVietnamese(text string) Result {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return Result{Valence: Neutral, EmotionTags: []EmotionLabel{EmotionNeutral}}
	}

	var sum float64
	var hits int

	for i := 0; i < len(tokens); i++ {
		// Try two-word phrases first, then single words.
		var term string
		var score float64
		var matched bool
		var width int

		if i+1 < len(tokens) {
			two := tokens[i] + " " + tokens[i+1]
			if s, ok := viPositive[two]; ok {
				term, score, matched, width = two, s, true, 2
			} else if s, ok := viNegative[two]; ok {
				term, score, matched, width = two, s, true, 2
			}
		}
		if !matched {
			if s, ok := viPositive[tokens[i]]; ok {
				term, score, matched, width = tokens[i], s, true, 1
			} else if s, ok := viNegative[tokens[i]]; ok {
				term, score, matched, width = tokens[i], s, true, 1
			}
		}
		if !matched {
			continue
		}
		_ = term

		// Negation/intensifier handling: look at up to two preceding
		// tokens for a negator or an intensifier.
		for back := 1; back <= 2 && i-back >= 0; back++ {
			prev := tokens[i-back]
			if viNegators[prev] {
				score = -score
			}
			if factor, ok := viIntensifiers[prev]; ok {
				score *= factor
			}
			if back == 2 {
				if factor, ok := viIntensifiers[prev+" "+tokens[i-1]]; ok {
					score *= factor
				}
			}
		}

		sum += score
		hits++
		i += width - 1
	}

	if hits == 0 {
		return Result{Valence: Neutral, EmotionTags: []EmotionLabel{EmotionNeutral}}
	}

	compound := clampCompound(sum / float64(hits))
	r := Result{
		Compound:  compound,
		Intensity: absF(compound),
	}
	r.Valence = valenceFromCompound(compound)
	if compound > 0 {
		r.Positive = absF(compound)
	} else if compound < 0 {
		r.Negative = absF(compound)
	} else {
		r.NeutralScore = 1
	}
	r.EmotionTags = []EmotionLabel{mapToEmotion(compound, r.Positive, r.Negative, r.NeutralScore)}
	return r
}

func clampCompound(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
