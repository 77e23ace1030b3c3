package learning

import (
	"math"
	"testing"
)

func TestBlendConfidenceNumericParity(t *testing.T) {
	// raw 0.7, learned 0.9, success rate 0.8:
	// blend = 0.7*0.6 + 0.9*0.4 = 0.78; adjustment = (0.8-0.5)*0.2 = 0.06
	got := BlendConfidence(0.7, 0.9, 0.8)
	if math.Abs(got-0.84) > 1e-9 {
		t.Errorf("Expected 0.84, got %f", got)
	}
}

func TestBlendConfidenceClampsHigh(t *testing.T) {
	if got := BlendConfidence(1.0, 1.0, 1.0); got != 1.0 {
		t.Errorf("Expected clamp to 1.0, got %f", got)
	}
}

func TestBlendConfidenceClampsLow(t *testing.T) {
	if got := BlendConfidence(0.0, 0.0, 0.0); got != 0.0 {
		t.Errorf("Expected clamp to 0.0, got %f", got)
	}
}

func TestBlendConfidenceNeutralSuccessRate(t *testing.T) {
	// A 0.5 success rate neither boosts nor penalizes.
	got := BlendConfidence(0.6, 0.8, 0.5)
	want := 0.6*0.6 + 0.8*0.4
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected %f, got %f", want, got)
	}
}

func TestAdjustConfidenceNilScorerUsesDefaults(t *testing.T) {
	got := AdjustConfidence("anything", 0.7, nil)
	// learned defaults to 0.5, success rate to 0:
	// 0.7*0.6 + 0.5*0.4 - 0.1 = 0.52
	if math.Abs(got-0.52) > 1e-9 {
		t.Errorf("Expected 0.52, got %f", got)
	}
}

func TestShouldTrustThreshold(t *testing.T) {
	if !ShouldTrust("x", 0.9, nil, 0.5) {
		t.Error("Expected trust at high raw confidence")
	}
	if ShouldTrust("x", 0.1, nil, 0.5) {
		t.Error("Expected no trust at low raw confidence")
	}
}
