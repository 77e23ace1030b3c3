// Package learning tracks per-pattern success and failure outcomes, persists
// confidence aggregates, and blends learned history into fresh detection
// confidence. Feedback is queued in memory and uploaded to the stats store in
// best-effort batches.
package learning

// Blend weights and defaults for the confidence adjustment. The 60/40 blend
// and the ±0.2 success-rate swing are load-bearing constants; numeric parity
// tests depend on them exactly.
const (
	rawWeight          = 0.6
	learnedWeight      = 0.4
	successSwing       = 0.2
	DefaultConfidence  = 0.5
	DefaultSuccessRate = 0.0
)

// BlendConfidence combines a fresh detection confidence with a learned
// confidence and a success-rate correction:
//
//	blended  = raw*0.6 + learned*0.4
//	adjusted = clamp(blended + (successRate-0.5)*0.2, 0, 1)
func BlendConfidence(raw, learned, successRate float64) float64 {
	blended := raw*rawWeight + learned*learnedWeight
	adjustment := (successRate - 0.5) * successSwing
	return clamp(blended+adjustment, 0, 1)
}

// Scorer reads learned aggregates for one pattern type.
type Scorer interface {
	GetPatternConfidence(patternType string) float64
	GetPatternSuccessRate(patternType string) float64
}

// AdjustConfidence blends a pattern's raw confidence with the scorer's
// learned confidence and success rate.
func AdjustConfidence(patternType string, raw float64, scorer Scorer) float64 {
	learned := DefaultConfidence
	rate := DefaultSuccessRate
	if scorer != nil {
		learned = scorer.GetPatternConfidence(patternType)
		rate = scorer.GetPatternSuccessRate(patternType)
	}
	return BlendConfidence(raw, learned, rate)
}

// ShouldTrust reports whether the adjusted confidence meets the threshold.
func ShouldTrust(patternType string, raw float64, scorer Scorer, threshold float64) bool {
	return AdjustConfidence(patternType, raw, scorer) >= threshold
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
