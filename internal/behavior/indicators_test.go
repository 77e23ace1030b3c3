package behavior

import (
	"testing"
	"time"
)

func makeInputs(n int, elementID string) []ActionEntry {
	actions := make([]ActionEntry, 0, n)
	for i := 0; i < n; i++ {
		actions = append(actions, ActionEntry{
			Timestamp:  time.Now(),
			ActionType: ActionFormInput,
			ElementID:  elementID,
		})
	}
	return actions
}

func TestExtractIndicators_NilContext(t *testing.T) {
	if got := ExtractIndicators(nil); got != nil {
		t.Errorf("ExtractIndicators(nil) = %v, want nil", got)
	}
}

func TestExtractIndicators_ModuleAndPage(t *testing.T) {
	ctx := &Context{
		CurrentPage:   "/customers/detail",
		CurrentModule: "Customers",
	}
	set := IndicatorSet(ExtractIndicators(ctx))
	if !set["module_customers"] {
		t.Error("expected module_customers indicator")
	}
	if !set["page_customers_detail"] {
		t.Error("expected page_customers_detail indicator")
	}
}

func TestExtractIndicators_ExtensiveNavigation(t *testing.T) {
	ctx := &Context{CurrentModule: "analytics"}
	for i := 0; i < 8; i++ {
		ctx.NavigationHistory = append(ctx.NavigationHistory, NavigationEntry{
			FromPage: "a", ToPage: "b", TimeSpent: 30 * time.Second,
		})
	}
	set := IndicatorSet(ExtractIndicators(ctx))
	if !set[IndicatorExtensiveNavigation] {
		t.Error("expected extensive_navigation at 8 history entries")
	}
}

func TestExtractIndicators_BackNavigationAndRevisits(t *testing.T) {
	ctx := &Context{
		CurrentModule: "proposals",
		NavigationHistory: []NavigationEntry{
			{ToPage: "/proposals", NavType: NavTypeBack, TimeSpent: 20 * time.Second},
			{ToPage: "/proposals/new", TimeSpent: 20 * time.Second},
			{ToPage: "/proposals", NavType: NavTypeBack, TimeSpent: 20 * time.Second},
			{ToPage: "/proposals", TimeSpent: 20 * time.Second},
		},
	}
	set := IndicatorSet(ExtractIndicators(ctx))
	if !set[IndicatorBackNavigationCount] {
		t.Error("expected back_navigation_count at 2 back transitions")
	}
	if !set[IndicatorPageRevisits] {
		t.Error("expected page_revisits when /proposals appears 3 times")
	}
}

func TestExtractIndicators_FieldInteractionSuppressedBySubmit(t *testing.T) {
	ctx := &Context{
		CurrentModule: "forms",
		RecentActions: makeInputs(12, "field-1"),
	}
	set := IndicatorSet(ExtractIndicators(ctx))
	if !set[IndicatorHighFieldInteractionCount] {
		t.Error("expected high_field_interaction_count at 12 inputs")
	}
	if set[IndicatorFormSubmitted] {
		t.Error("form_submitted should not fire without a submit")
	}

	ctx.RecentActions = append(ctx.RecentActions, ActionEntry{ActionType: ActionFormSubmit})
	set = IndicatorSet(ExtractIndicators(ctx))
	if set[IndicatorHighFieldInteractionCount] {
		t.Error("submit should suppress high_field_interaction_count")
	}
	if !set[IndicatorFormSubmitted] {
		t.Error("expected form_submitted indicator")
	}
}

func TestExtractIndicators_SearchAndFilter(t *testing.T) {
	ctx := &Context{
		CurrentModule: "search",
		RecentActions: []ActionEntry{
			{ActionType: ActionSearch, Value: "a"},
			{ActionType: ActionSearch, Value: "b"},
			{ActionType: ActionSearch, Value: "c"},
			{ActionType: ActionFilterApply},
		},
	}
	set := IndicatorSet(ExtractIndicators(ctx))
	if !set[IndicatorMultipleSearchAttempts] {
		t.Error("expected multiple_search_attempts at 3 searches")
	}
	if !set[IndicatorFilterApplied] {
		t.Error("expected filter_applied")
	}
}

func TestExtractIndicators_FactFindingFlag(t *testing.T) {
	ctx := &Context{
		CurrentModule: "proposals",
		PageData:      map[string]interface{}{"fact_finding_completed": true},
	}
	set := IndicatorSet(ExtractIndicators(ctx))
	if !set[IndicatorFactFindingCompleted] {
		t.Error("expected fact_finding_completed from page data flag")
	}
}

func TestPageDataFlagStringForms(t *testing.T) {
	ctx := &Context{PageData: map[string]interface{}{"a": "true", "b": "1", "c": "no"}}
	if !ctx.PageDataFlag("a") || !ctx.PageDataFlag("b") {
		t.Error("string forms \"true\" and \"1\" should read as set")
	}
	if ctx.PageDataFlag("c") || ctx.PageDataFlag("missing") {
		t.Error("other values should read as unset")
	}
}
