package patterns

import (
	"math"
	"testing"

	"mira/internal/behavior"
)

func observedSet(types ...string) map[string]bool {
	out := make(map[string]bool, len(types))
	for _, t := range types {
		out[t] = true
	}
	return out
}

func TestMissingRequiredIndicatorScoresZero(t *testing.T) {
	lib := NewLibrary()

	// Every optional indicator present, the single required one absent.
	score := lib.CalculateScore(TypeFormStruggle, observedSet(
		behavior.IndicatorPageRevisits,
		behavior.IndicatorLongDwell,
	))

	if score != 0 {
		t.Errorf("Expected score 0 with required indicator absent, got %f", score)
	}
}

func TestScoreSumsPresentWeights(t *testing.T) {
	lib := NewLibrary()

	score := lib.CalculateScore(TypeFormStruggle, observedSet(
		behavior.IndicatorHighFieldInteractionCount,
		behavior.IndicatorLongDwell,
	))

	if math.Abs(score-0.75) > 1e-9 {
		t.Errorf("Expected score 0.75 (0.5 + 0.25), got %f", score)
	}
}

func TestScoreMonotonicity(t *testing.T) {
	lib := NewLibrary()

	subset := observedSet(behavior.IndicatorHighFieldInteractionCount)
	superset := observedSet(
		behavior.IndicatorHighFieldInteractionCount,
		behavior.IndicatorPageRevisits,
		behavior.IndicatorLongDwell,
	)

	for _, tpl := range lib.All() {
		lo := lib.CalculateScore(tpl.ID, subset)
		hi := lib.CalculateScore(tpl.ID, superset)
		if hi < lo {
			t.Errorf("Pattern %s: superset score %f < subset score %f", tpl.ID, hi, lo)
		}
	}
}

func TestUnknownPatternScoresZero(t *testing.T) {
	lib := NewLibrary()
	if score := lib.CalculateScore("no_such_pattern", observedSet("anything")); score != 0 {
		t.Errorf("Expected 0 for unknown pattern, got %f", score)
	}
}

func TestRegisterOverwrites(t *testing.T) {
	lib := NewEmptyLibrary()

	lib.Register(&Template{
		ID:                  "custom",
		Name:                "First",
		Category:            CategoryExploration,
		Indicators:          []Indicator{{Type: "a", Weight: 0.5}},
		ConfidenceThreshold: 0.3,
	})
	lib.Register(&Template{
		ID:                  "custom",
		Name:                "Second",
		Category:            CategoryExploration,
		Indicators:          []Indicator{{Type: "a", Weight: 0.9}},
		ConfidenceThreshold: 0.3,
	})

	got := lib.Get("custom")
	if got == nil || got.Name != "Second" {
		t.Fatalf("Expected overwritten template, got %+v", got)
	}
	if len(lib.All()) != 1 {
		t.Errorf("Expected 1 template after overwrite, got %d", len(lib.All()))
	}
}

func TestCategoryAccessors(t *testing.T) {
	lib := NewLibrary()

	for _, tpl := range lib.SuccessPatterns() {
		if tpl.Category != CategorySuccess {
			t.Errorf("Success accessor returned category %s", tpl.Category)
		}
	}
	for _, tpl := range lib.StrugglePatterns() {
		if tpl.Category != CategoryStruggle {
			t.Errorf("Struggle accessor returned category %s", tpl.Category)
		}
	}

	high := lib.HighPriorityPatterns()
	if len(high) == 0 {
		t.Fatal("Expected built-in high priority patterns")
	}
	for _, tpl := range high {
		if tpl.Category != CategoryStruggle && tpl.Category != CategoryAbandonment {
			t.Errorf("High priority accessor returned category %s", tpl.Category)
		}
	}
}

func TestSuggestedActionsConditionFilter(t *testing.T) {
	lib := NewLibrary()

	all := lib.SuggestedActions(TypeProposalCreation, "")
	if len(all) != 2 {
		t.Fatalf("Expected 2 actions unfiltered, got %d", len(all))
	}

	matched := lib.SuggestedActions(TypeProposalCreation, "fact_finding_completed")
	if len(matched) != 2 {
		t.Errorf("Expected matching condition to keep both actions, got %d", len(matched))
	}

	none := lib.SuggestedActions(TypeProposalCreation, "unrelated_condition")
	if len(none) != 1 {
		t.Fatalf("Expected only the unconditioned action, got %d", len(none))
	}
	if none[0].Condition != "" {
		t.Errorf("Non-matching condition returned conditioned action %q", none[0].Action)
	}
}

func TestMatchThresholdAndOrder(t *testing.T) {
	lib := NewLibrary()

	matches := lib.Match([]string{
		behavior.IndicatorHighFieldInteractionCount,
		behavior.IndicatorPageRevisits,
		behavior.IndicatorLongDwell,
		"module_analytics",
		behavior.IndicatorFilterApplied,
	})

	if len(matches) == 0 {
		t.Fatal("Expected at least one match")
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("Matches not sorted: %f before %f", matches[i-1].Score, matches[i].Score)
		}
	}
	for _, m := range matches {
		if m.Score < m.Template.ConfidenceThreshold {
			t.Errorf("Match %s below its threshold: %f < %f", m.Template.ID, m.Score, m.Template.ConfidenceThreshold)
		}
		if m.Confidence > 1.0 {
			t.Errorf("Match %s confidence above cap: %f", m.Template.ID, m.Confidence)
		}
	}
}
