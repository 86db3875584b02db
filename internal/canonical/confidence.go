package canonical

import (
	"strings"
	"unicode/utf8"
)

// Confidence scoring constants. The recognizer provides no confidence of its
// own, so the score is a heuristic over the cleaned text, adjusted by the
// validation outcome.
const (
	baseConfidence = 0.9

	shortPenalty      = 0.3 // length < 2: likely incomplete
	longPenalty       = 0.2 // length > 200: likely garbage
	nonASCIIPenalty   = 0.2 // > 30% non-ASCII: unusual symbols
	bracePenalty      = 0.3 // unequal brace counts
	parenPenalty      = 0.2 // unequal parenthesis counts

	validatedBonus     = 0.1
	notValidatedMalus  = 0.15

	// StandardizerTrust replaces the heuristic base score when the external
	// standardizer supplied the primary candidate.
	StandardizerTrust = 0.95
)

// EstimateConfidence scores the cleaned text before validation. Penalties
// are independent, each applied at most once, and the result is clamped to
// [0, 1].
func EstimateConfidence(text string) float64 {
	score := baseConfidence

	// Length and the non-ASCII fraction are measured in characters, not
	// bytes, so multibyte input does not dilute its own penalty.
	length := utf8.RuneCountInString(text)
	if length < 2 {
		score -= shortPenalty
	}
	if length > 200 {
		score -= longPenalty
	}

	nonASCII := 0
	for _, r := range text {
		if r > 127 {
			nonASCII++
		}
	}
	if length > 0 && float64(nonASCII) > float64(length)*0.3 {
		score -= nonASCIIPenalty
	}

	if strings.Count(text, "{") != strings.Count(text, "}") {
		score -= bracePenalty
	}
	if strings.Count(text, "(") != strings.Count(text, ")") {
		score -= parenPenalty
	}

	return clamp(score)
}

// AdjustConfidence applies the validation outcome to a pre-parse score.
func AdjustConfidence(score float64, validated bool) float64 {
	if validated {
		return clamp(score + validatedBonus)
	}
	return clamp(score - notValidatedMalus)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
