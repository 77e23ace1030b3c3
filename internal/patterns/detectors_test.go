package patterns

import (
	"fmt"
	"testing"
	"time"

	"mira/internal/behavior"
)

func navEntry(from, to string) behavior.NavigationEntry {
	return behavior.NavigationEntry{FromPage: from, ToPage: to, TimeSpent: 10 * time.Second}
}

func actionEntry(actionType, elementID, value string) behavior.ActionEntry {
	return behavior.ActionEntry{
		Timestamp:  time.Now(),
		ActionType: actionType,
		ElementID:  elementID,
		Value:      value,
	}
}

// =============================================================================
// PROPOSAL CREATION
// =============================================================================

func proposalContext() *behavior.Context {
	return &behavior.Context{
		CurrentPage:   "/proposals/new",
		CurrentModule: "proposals",
		NavigationHistory: []behavior.NavigationEntry{
			navEntry("/dashboard", "/customers/detail"),
			navEntry("/customers/detail", "/proposals/new"),
		},
		RecentActions: []behavior.ActionEntry{
			actionEntry(behavior.ActionFormInput, "field_name", "Acme"),
		},
		PageStart: time.Now(),
	}
}

func TestProposalCreationFires(t *testing.T) {
	d := &ProposalCreationDetector{}

	res := d.Detect(proposalContext())
	if res == nil {
		t.Fatal("Expected a match")
	}
	if res.Pattern.Type != TypeProposalCreation {
		t.Errorf("Expected type %s, got %s", TypeProposalCreation, res.Pattern.Type)
	}
	if res.Pattern.Confidence < d.MinConfidence() {
		t.Errorf("Confidence %f below detector minimum %f", res.Pattern.Confidence, d.MinConfidence())
	}
}

func TestProposalCreationFactFindingBoost(t *testing.T) {
	d := &ProposalCreationDetector{}

	base := d.Detect(proposalContext())

	boosted := proposalContext()
	boosted.PageData = map[string]interface{}{"fact_finding_completed": true}
	res := d.Detect(boosted)

	if res == nil || base == nil {
		t.Fatal("Expected matches in both variants")
	}
	if res.Pattern.Confidence <= base.Pattern.Confidence {
		t.Errorf("Expected boost: %f vs base %f", res.Pattern.Confidence, base.Pattern.Confidence)
	}
	if res.Pattern.Confidence > 1.0 {
		t.Errorf("Confidence above cap: %f", res.Pattern.Confidence)
	}

	found := false
	for _, trg := range res.Triggers {
		if trg.Type == "fact_finding_completed" {
			found = true
		}
	}
	if !found {
		t.Error("Expected fact_finding_completed trigger")
	}
}

func TestProposalCreationNeedsFormInput(t *testing.T) {
	d := &ProposalCreationDetector{}

	ctx := proposalContext()
	ctx.RecentActions = nil

	if res := d.Detect(ctx); res != nil {
		t.Errorf("Expected no match without form input, got %+v", res)
	}
}

func TestProposalCreationNeedsNavigationSequence(t *testing.T) {
	d := &ProposalCreationDetector{}

	ctx := proposalContext()
	ctx.NavigationHistory = []behavior.NavigationEntry{
		navEntry("/dashboard", "/proposals/new"),
	}

	if res := d.Detect(ctx); res != nil {
		t.Errorf("Expected no match without customer-to-proposal sequence, got %+v", res)
	}
}

// =============================================================================
// FORM STRUGGLE
// =============================================================================

func TestFormStruggleHighInteractionCount(t *testing.T) {
	d := &FormStruggleDetector{}

	ctx := &behavior.Context{}
	for i := 0; i < 16; i++ {
		ctx.RecentActions = append(ctx.RecentActions,
			actionEntry(behavior.ActionFormInput, fmt.Sprintf("field_%d", i), "x"))
	}

	res := d.Detect(ctx)
	if res == nil {
		t.Fatal("Expected a match")
	}
	if res.Triggers[0].Type != "high_interaction_count" {
		t.Errorf("Expected high_interaction_count trigger, got %s", res.Triggers[0].Type)
	}
}

func TestFormStruggleFieldRevisits(t *testing.T) {
	d := &FormStruggleDetector{}

	ctx := &behavior.Context{}
	for i := 0; i < 3; i++ {
		ctx.RecentActions = append(ctx.RecentActions,
			actionEntry(behavior.ActionFormInput, "field_amount", "x"))
	}

	res := d.Detect(ctx)
	if res == nil {
		t.Fatal("Expected a match on field revisits")
	}
	if res.Triggers[0].Type != "field_revisits" {
		t.Errorf("Expected field_revisits trigger, got %s", res.Triggers[0].Type)
	}
}

func TestFormStruggleSubmitSuppresses(t *testing.T) {
	d := &FormStruggleDetector{}

	// 20+ inputs, but a submit anywhere in the window cancels the signal.
	ctx := &behavior.Context{}
	for i := 0; i < 22; i++ {
		ctx.RecentActions = append(ctx.RecentActions,
			actionEntry(behavior.ActionFormInput, "field_amount", "x"))
	}
	ctx.RecentActions = append(ctx.RecentActions,
		actionEntry(behavior.ActionFormSubmit, "", ""))

	if res := d.Detect(ctx); res != nil {
		t.Errorf("Expected nil after form_submit, got %+v", res)
	}
}

func TestFormStruggleDoubleEvidenceRaisesConfidence(t *testing.T) {
	d := &FormStruggleDetector{}

	ctx := &behavior.Context{}
	for i := 0; i < 16; i++ {
		ctx.RecentActions = append(ctx.RecentActions,
			actionEntry(behavior.ActionFormInput, "field_amount", "x"))
	}

	res := d.Detect(ctx)
	if res == nil {
		t.Fatal("Expected a match")
	}
	if len(res.Triggers) != 2 {
		t.Fatalf("Expected both triggers, got %d", len(res.Triggers))
	}
	if res.Pattern.Confidence <= formStruggleBaseConfidence {
		t.Errorf("Expected raised confidence with double evidence, got %f", res.Pattern.Confidence)
	}
}

// =============================================================================
// ANALYTICS EXPLORATION
// =============================================================================

func TestAnalyticsExplorationDwell(t *testing.T) {
	d := &AnalyticsExplorationDetector{}

	ctx := &behavior.Context{
		CurrentPage:   "/analytics",
		CurrentModule: "analytics",
		PageStart:     time.Now().Add(-time.Minute),
	}

	res := d.Detect(ctx)
	if res == nil {
		t.Fatal("Expected a match after sufficient dwell")
	}
	if res.Pattern.Confidence != analyticsBaseConfidence {
		t.Errorf("Expected base confidence %f, got %f", analyticsBaseConfidence, res.Pattern.Confidence)
	}
}

func TestAnalyticsExplorationTooEarly(t *testing.T) {
	d := &AnalyticsExplorationDetector{}

	ctx := &behavior.Context{
		CurrentPage: "/analytics",
		PageStart:   time.Now(),
	}

	if res := d.Detect(ctx); res != nil {
		t.Errorf("Expected no match right after landing, got %+v", res)
	}
}

func TestAnalyticsExplorationFilterBoost(t *testing.T) {
	d := &AnalyticsExplorationDetector{}

	ctx := &behavior.Context{
		CurrentPage: "/analytics",
		PageStart:   time.Now().Add(-time.Minute),
		RecentActions: []behavior.ActionEntry{
			actionEntry(behavior.ActionFilterApply, "filter_region", "emea"),
		},
	}

	res := d.Detect(ctx)
	if res == nil {
		t.Fatal("Expected a match")
	}
	if res.Pattern.Confidence != analyticsBaseConfidence+analyticsFilterBoost {
		t.Errorf("Expected boosted confidence, got %f", res.Pattern.Confidence)
	}
}

// =============================================================================
// SEARCH BEHAVIOR
// =============================================================================

func TestSearchStruggleFires(t *testing.T) {
	d := &SearchBehaviorDetector{}

	ctx := &behavior.Context{
		RecentActions: []behavior.ActionEntry{
			actionEntry(behavior.ActionSearch, "", "acme"),
			actionEntry(behavior.ActionSearch, "", "acme corp"),
			actionEntry(behavior.ActionSearch, "", "acme corporation"),
		},
	}

	res := d.Detect(ctx)
	if res == nil {
		t.Fatal("Expected a match on repeated reformulated searches")
	}
	if res.Pattern.Type != TypeSearchStruggle {
		t.Errorf("Expected type %s, got %s", TypeSearchStruggle, res.Pattern.Type)
	}
}

func TestSearchStruggleClickThroughSuppresses(t *testing.T) {
	d := &SearchBehaviorDetector{}

	ctx := &behavior.Context{
		RecentActions: []behavior.ActionEntry{
			actionEntry(behavior.ActionSearch, "", "acme"),
			actionEntry(behavior.ActionSearch, "", "acme corp"),
			actionEntry(behavior.ActionSearch, "", "acme gmbh"),
			actionEntry(behavior.ActionResultClick, "result_1", ""),
		},
	}

	if res := d.Detect(ctx); res != nil {
		t.Errorf("Expected nil after result click, got %+v", res)
	}
}

func TestSearchStruggleNavigationAwaySuppresses(t *testing.T) {
	d := &SearchBehaviorDetector{}

	searchedAt := time.Now().Add(-2 * time.Minute)
	ctx := &behavior.Context{
		CurrentPage: "/customers/detail",
		NavigationHistory: []behavior.NavigationEntry{
			{FromPage: "/customers", ToPage: "/customers/detail", NavType: behavior.NavTypeForward},
		},
		RecentActions: []behavior.ActionEntry{
			{Timestamp: searchedAt, ActionType: behavior.ActionSearch, Value: "acme"},
			{Timestamp: searchedAt.Add(time.Second), ActionType: behavior.ActionSearch, Value: "acme corp"},
			{Timestamp: searchedAt.Add(2 * time.Second), ActionType: behavior.ActionSearch, Value: "acme gmbh"},
		},
		PageStart: time.Now().Add(-time.Minute),
	}

	if res := d.Detect(ctx); res != nil {
		t.Errorf("Expected nil after navigating away from the search, got %+v", res)
	}
}

func TestSearchStruggleIdenticalQueriesIgnored(t *testing.T) {
	d := &SearchBehaviorDetector{}

	ctx := &behavior.Context{
		RecentActions: []behavior.ActionEntry{
			actionEntry(behavior.ActionSearch, "", "acme"),
			actionEntry(behavior.ActionSearch, "", "acme"),
			actionEntry(behavior.ActionSearch, "", "acme"),
		},
	}

	if res := d.Detect(ctx); res != nil {
		t.Errorf("Expected nil for identical queries, got %+v", res)
	}
}

// =============================================================================
// TASK COMPLETION
// =============================================================================

func TestTaskCompletionFires(t *testing.T) {
	d := &TaskCompletionDetector{}

	ctx := &behavior.Context{
		CurrentPage:   "/tasks",
		CurrentModule: "tasks",
		RecentActions: []behavior.ActionEntry{
			actionEntry(behavior.ActionCheckboxToggle, "task_12", ""),
			actionEntry(behavior.ActionSave, "", ""),
		},
	}

	res := d.Detect(ctx)
	if res == nil {
		t.Fatal("Expected a match")
	}
	if res.Pattern.Confidence != taskCompletionConfidence {
		t.Errorf("Expected confidence %f, got %f", taskCompletionConfidence, res.Pattern.Confidence)
	}
}

func TestTaskCompletionNeedsSave(t *testing.T) {
	d := &TaskCompletionDetector{}

	ctx := &behavior.Context{
		CurrentPage: "/tasks",
		RecentActions: []behavior.ActionEntry{
			actionEntry(behavior.ActionCheckboxToggle, "task_12", ""),
		},
	}

	if res := d.Detect(ctx); res != nil {
		t.Errorf("Expected no match without save, got %+v", res)
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

type panickyDetector struct{}

func (panickyDetector) Type() string                             { return "panicky" }
func (panickyDetector) MinConfidence() float64                   { return 0.5 }
func (panickyDetector) Modules() []string                        { return nil }
func (panickyDetector) Detect(*behavior.Context) *DetectorResult { panic("boom") }

func TestRegistryPanicIsolation(t *testing.T) {
	reg := NewDetectorRegistry()
	reg.Register(panickyDetector{})

	// The panicking detector counts as a non-match; the rest still run.
	results := reg.DetectPatterns(proposalContext())

	found := false
	for _, r := range results {
		if r.Pattern.Type == TypeProposalCreation {
			found = true
		}
		if r.Pattern.Type == "panicky" {
			t.Error("Panicking detector produced a result")
		}
	}
	if !found {
		t.Error("Expected remaining detectors to run after a panic")
	}
}

func TestRegistryReplaceByType(t *testing.T) {
	reg := NewDetectorRegistry()
	before := len(reg.All())

	reg.Register(&FormStruggleDetector{})
	if got := len(reg.All()); got != before {
		t.Errorf("Expected replacement, got %d detectors (was %d)", got, before)
	}
}

func TestRegistryForModule(t *testing.T) {
	reg := NewDetectorRegistry()

	forTasks := reg.ForModule("tasks")
	for _, d := range forTasks {
		mods := d.Modules()
		if len(mods) == 0 {
			continue // module-agnostic detectors apply everywhere
		}
		ok := false
		for _, m := range mods {
			if m == "tasks" {
				ok = true
			}
		}
		if !ok {
			t.Errorf("Detector %s not scoped to tasks", d.Type())
		}
	}
}
