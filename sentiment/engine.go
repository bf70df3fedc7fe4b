// Package sentiment derives the room atmosphere signal: a lexical score
// per message, an energy penalty for shouting, and a mood classification
// over the rolling per-room history. All functions are pure.
package sentiment

import (
	"strings"
	"unicode"
)

// Mood is the classified room atmosphere.
type Mood string

const (
	Calm    Mood = "calm"
	Neutral Mood = "neutral"
	Intense Mood = "intense"
)

const (
	calmThreshold    = 0.4
	intenseThreshold = -0.4

	uppercaseRatio     = 0.6
	uppercasePenalty   = 0.6
	exclamationPenalty = 0.25
	exclamationCeiling = 0.8
)

// Score rates one message in [-1,1]: the mean lexicon valence of matched
// tokens scaled to unit range, minus the energy penalty. A message with no
// lexicon hits scores from its energy alone.
func Score(text string) float64 {
	base := lexicalScore(text)
	score := base - energyPenalty(text)
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

func lexicalScore(text string) float64 {
	var sum float64
	matched := 0
	for _, token := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if v, ok := lexicon[token]; ok {
			sum += v
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	// Lexicon values live on -5..+5.
	return sum / float64(matched) / 5
}

// energyPenalty charges 0.6 when over 60% of letter characters are
// uppercase, plus 0.25 per exclamation mark capped at 0.8.
func energyPenalty(text string) float64 {
	letters, upper, bangs := 0, 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if r == '!' {
			bangs++
		}
	}

	penalty := 0.0
	if letters > 0 && float64(upper)/float64(letters) > uppercaseRatio {
		penalty += uppercasePenalty
	}
	if bangs > 0 {
		p := exclamationPenalty * float64(bangs)
		if p > exclamationCeiling {
			p = exclamationCeiling
		}
		penalty += p
	}
	return penalty
}

// Classify maps a score history to a mood via its mean. Empty history is
// neutral by definition.
func Classify(scores []float64) Mood {
	if len(scores) == 0 {
		return Neutral
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	switch {
	case mean < intenseThreshold:
		return Intense
	case mean > calmThreshold:
		return Calm
	default:
		return Neutral
	}
}
