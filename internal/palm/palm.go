// Package palm holds the pure decision logic: score to hand label plus
// confidence, and the canned base reading per hand.
package palm

import "math"

type Hand string

const (
	Left  Hand = "left"
	Right Hand = "right"
)

// Classification pairs the hand label with a display confidence percentage,
// always in [50,100].
type Classification struct {
	Hand       Hand `json:"hand"`
	Confidence int  `json:"confidence"`
}

// Classify maps the classifier score, P(right hand), onto a classification.
// A score of exactly 0.5 resolves to Left; this tie-break is part of the
// contract, not left to floating-point chance.
func Classify(score float32) Classification {
	hand := Left
	if score > 0.5 {
		hand = Right
	}
	s := float64(score)
	confidence := int(math.Round(math.Max(s, 1-s) * 100))
	return Classification{Hand: hand, Confidence: confidence}
}

// BasicReading returns the fixed base reading for a hand. The default branch
// guards against future label sets and should be unreachable today.
func BasicReading(h Hand) string {
	switch h {
	case Left:
		return "The left palm speaks of the nature you were born with: your instincts, your hidden talents, and the potential you carry."
	case Right:
		return "The right palm speaks of the life you are shaping: your choices, your habits, and the future you are building."
	default:
		return "This palm keeps its secrets close, but a reading is still written in its lines."
	}
}
