package patterns

import (
	"mira/internal/behavior"
)

// Pattern type constants shared by templates and detectors. Detector and
// library identification of the same behavior use the same type string so the
// engine can recognize convergent results.
const (
	TypeProposalCreation     = "proposal_creation"
	TypeFormStruggle         = "form_struggle"
	TypeAnalyticsExploration = "analytics_exploration"
	TypeSearchStruggle       = "search_struggle"
	TypeTaskCompletion       = "task_completion"
	TypeSessionAbandonment   = "session_abandonment"
)

// builtinTemplates returns the seed catalog. Indicator weights per template are
// designed to total about 1.0 so scores land in (0,1].
func builtinTemplates() []*Template {
	return []*Template{
		{
			ID:          TypeProposalCreation,
			Name:        "Proposal creation in progress",
			Category:    CategorySuccess,
			Description: "User navigated from a customer detail page into proposal creation and is filling the form",
			Triggers:    []string{"customer_to_proposal_navigation", "form_input"},
			Indicators: []Indicator{
				{Type: "page_proposals_new", Weight: 0.4, Required: true, Description: "On the proposal creation page"},
				{Type: "module_proposals", Weight: 0.2, Required: false},
				{Type: behavior.IndicatorFactFindingCompleted, Weight: 0.25, Required: false, Description: "Fact finding step completed"},
				{Type: behavior.IndicatorLongDwell, Weight: 0.15, Required: false},
			},
			ConfidenceThreshold: 0.4,
			Actions: []SuggestedAction{
				{Action: "Prefill the proposal form from the customer record", Priority: PriorityHigh},
				{Action: "Open the product recommendation panel", Priority: PriorityMedium, Condition: "fact_finding_completed"},
			},
		},
		{
			ID:          TypeFormStruggle,
			Name:        "Struggling with a form",
			Category:    CategoryStruggle,
			Description: "Many field interactions or repeated edits of the same field without submitting",
			Triggers:    []string{"high_interaction_count", "field_revisits"},
			Indicators: []Indicator{
				{Type: behavior.IndicatorHighFieldInteractionCount, Weight: 0.5, Required: true, Description: "Unusually many form inputs without a submit"},
				{Type: behavior.IndicatorPageRevisits, Weight: 0.25, Required: false},
				{Type: behavior.IndicatorLongDwell, Weight: 0.25, Required: false},
			},
			ConfidenceThreshold: 0.5,
			Actions: []SuggestedAction{
				{Action: "Offer to prefill known fields", Priority: PriorityHigh},
				{Action: "Show inline help for the current field", Priority: PriorityMedium},
			},
		},
		{
			ID:          TypeAnalyticsExploration,
			Name:        "Exploring analytics",
			Category:    CategoryExploration,
			Description: "Dwelling on an analytics page, possibly applying filters",
			Triggers:    []string{"analytics_navigation", "filter_apply"},
			Indicators: []Indicator{
				{Type: "module_analytics", Weight: 0.4, Required: true},
				{Type: behavior.IndicatorLongDwell, Weight: 0.3, Required: false},
				{Type: behavior.IndicatorFilterApplied, Weight: 0.3, Required: false},
			},
			ConfidenceThreshold: 0.4,
			Actions: []SuggestedAction{
				{Action: "Suggest a saved report matching the applied filters", Priority: PriorityMedium, Condition: "filter_applied"},
				{Action: "Offer a dashboard tour", Priority: PriorityLow},
			},
		},
		{
			ID:          TypeSearchStruggle,
			Name:        "Search without results",
			Category:    CategoryStruggle,
			Description: "Repeated reformulated searches with no click-through",
			Triggers:    []string{"repeated_search"},
			Indicators: []Indicator{
				{Type: behavior.IndicatorMultipleSearchAttempts, Weight: 0.6, Required: true},
				{Type: behavior.IndicatorExtensiveNavigation, Weight: 0.2, Required: false},
				{Type: behavior.IndicatorBackNavigationCount, Weight: 0.2, Required: false},
			},
			ConfidenceThreshold: 0.6,
			Actions: []SuggestedAction{
				{Action: "Broaden the search to all modules", Priority: PriorityHigh},
				{Action: "Offer advanced search filters", Priority: PriorityMedium},
			},
		},
		{
			ID:          TypeSessionAbandonment,
			Name:        "Session drifting toward abandonment",
			Category:    CategoryAbandonment,
			Description: "Rapid aimless navigation with repeated back transitions",
			Triggers:    []string{"rapid_navigation", "back_navigation"},
			Indicators: []Indicator{
				{Type: behavior.IndicatorRapidNavigation, Weight: 0.4, Required: true},
				{Type: behavior.IndicatorBackNavigationCount, Weight: 0.3, Required: false},
				{Type: behavior.IndicatorPageRevisits, Weight: 0.3, Required: false},
			},
			ConfidenceThreshold: 0.4,
			Actions: []SuggestedAction{
				{Action: "Ask whether the user is looking for something specific", Priority: PriorityHigh},
				{Action: "Surface recently visited records", Priority: PriorityMedium},
			},
		},
		{
			ID:          TypeTaskCompletion,
			Name:        "Completing tasks",
			Category:    CategorySuccess,
			Description: "Working through the task list and checking items off",
			Triggers:    []string{"task_navigation", "checkbox_toggle"},
			Indicators: []Indicator{
				{Type: "module_tasks", Weight: 0.5, Required: true},
				{Type: behavior.IndicatorFormSubmitted, Weight: 0.3, Required: false},
				{Type: behavior.IndicatorLongDwell, Weight: 0.2, Required: false},
			},
			ConfidenceThreshold: 0.5,
			Actions: []SuggestedAction{
				{Action: "Offer to mark related follow-ups as done", Priority: PriorityMedium},
				{Action: "Show tomorrow's due tasks", Priority: PriorityLow},
			},
		},
	}
}
