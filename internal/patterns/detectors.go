package patterns

import (
	"fmt"
	"strings"
	"time"

	"mira/internal/behavior"
	"mira/internal/logging"
)

// BehavioralPattern is a recognized behavioral hypothesis.
type BehavioralPattern struct {
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"` // [0,1]
	DetectedAt time.Time `json:"detected_at"`
}

// Trigger names the specific evidence that caused a match.
type Trigger struct {
	Type   string `json:"type"`
	Detail string `json:"detail,omitempty"`
}

// DetectorResult is a candidate match plus the triggers that fired.
type DetectorResult struct {
	Pattern  BehavioralPattern `json:"pattern"`
	Triggers []Trigger         `json:"triggers"`
}

// Detector recognizes one pattern type by inspecting a context directly.
// Detect returns nil when the qualifying evidence is absent; a detector never
// returns a result with confidence below its declared minimum.
type Detector interface {
	Type() string
	MinConfidence() float64
	// Modules lists the modules this detector is relevant to; empty means all.
	Modules() []string
	Detect(ctx *behavior.Context) *DetectorResult
}

// Detection thresholds.
const (
	formStruggleInputThreshold  = 15
	formStruggleRevisitMin      = 3
	searchAttemptMin            = 3
	analyticsMinDwell           = 30 * time.Second
	proposalBaseConfidence      = 0.85
	proposalFactFindingBoost    = 0.10
	analyticsBaseConfidence     = 0.70
	analyticsFilterBoost        = 0.15
	formStruggleBaseConfidence  = 0.70
	formStruggleDoubleEvidence  = 0.80
	searchStruggleConfidence    = 0.75
	taskCompletionConfidence    = 0.80
)

func result(typ, name string, confidence float64, triggers ...Trigger) *DetectorResult {
	if confidence > 1.0 {
		confidence = 1.0
	}
	return &DetectorResult{
		Pattern: BehavioralPattern{
			Type:       typ,
			Name:       name,
			Confidence: confidence,
			DetectedAt: time.Now(),
		},
		Triggers: triggers,
	}
}

func pageContains(page, fragment string) bool {
	return strings.Contains(strings.ToLower(page), fragment)
}

// =============================================================================
// PROPOSAL CREATION DETECTOR
// =============================================================================

// ProposalCreationDetector fires when the user moved from a customer detail
// page into the proposal creation page and has started typing into the form.
type ProposalCreationDetector struct{}

func (d *ProposalCreationDetector) Type() string           { return TypeProposalCreation }
func (d *ProposalCreationDetector) MinConfidence() float64 { return proposalBaseConfidence }
func (d *ProposalCreationDetector) Modules() []string      { return []string{"proposals", "customers"} }

func (d *ProposalCreationDetector) Detect(ctx *behavior.Context) *DetectorResult {
	sawCustomer := false
	sawTransition := false
	for _, nav := range ctx.NavigationHistory {
		if pageContains(nav.ToPage, "customer") {
			sawCustomer = true
			continue
		}
		if sawCustomer && pageContains(nav.ToPage, "proposal") {
			sawTransition = true
			break
		}
	}
	if !sawTransition {
		return nil
	}
	if !ctx.HasAction(behavior.ActionFormInput) {
		return nil
	}

	confidence := proposalBaseConfidence
	triggers := []Trigger{
		{Type: "customer_to_proposal_navigation"},
		{Type: "form_input"},
	}
	if ctx.PageDataFlag("fact_finding_completed") {
		confidence += proposalFactFindingBoost
		triggers = append(triggers, Trigger{Type: "fact_finding_completed"})
	}

	logging.DetectorsDebug("ProposalCreationDetector fired (confidence=%.2f)", confidence)
	return result(TypeProposalCreation, "Proposal creation in progress", confidence, triggers...)
}

// =============================================================================
// FORM STRUGGLE DETECTOR
// =============================================================================

// FormStruggleDetector fires on heavy form interaction without a submit, or on
// repeated edits of the same field. Any form_submit in the recent window
// cancels the struggle signal regardless of prior interaction volume.
type FormStruggleDetector struct{}

func (d *FormStruggleDetector) Type() string           { return TypeFormStruggle }
func (d *FormStruggleDetector) MinConfidence() float64 { return formStruggleBaseConfidence }
func (d *FormStruggleDetector) Modules() []string      { return nil }

func (d *FormStruggleDetector) Detect(ctx *behavior.Context) *DetectorResult {
	if ctx.HasAction(behavior.ActionFormSubmit) {
		return nil
	}

	inputs := 0
	perField := make(map[string]int)
	for _, a := range ctx.RecentActions {
		if a.ActionType != behavior.ActionFormInput {
			continue
		}
		inputs++
		if a.ElementID != "" {
			perField[a.ElementID]++
		}
	}

	var triggers []Trigger
	if inputs >= formStruggleInputThreshold {
		triggers = append(triggers, Trigger{
			Type:   "high_interaction_count",
			Detail: fmt.Sprintf("%d form inputs without submit", inputs),
		})
	}
	for field, n := range perField {
		if n >= formStruggleRevisitMin {
			triggers = append(triggers, Trigger{
				Type:   "field_revisits",
				Detail: fmt.Sprintf("field %s edited %d times", field, n),
			})
			break
		}
	}
	if len(triggers) == 0 {
		return nil
	}

	confidence := formStruggleBaseConfidence
	if len(triggers) >= 2 {
		confidence = formStruggleDoubleEvidence
	}

	logging.DetectorsDebug("FormStruggleDetector fired (triggers=%d, confidence=%.2f)", len(triggers), confidence)
	return result(TypeFormStruggle, "Struggling with a form", confidence, triggers...)
}

// =============================================================================
// ANALYTICS EXPLORATION DETECTOR
// =============================================================================

// AnalyticsExplorationDetector fires on navigation into an analytics page
// combined with minimum time on page; applying a filter boosts confidence.
type AnalyticsExplorationDetector struct{}

func (d *AnalyticsExplorationDetector) Type() string           { return TypeAnalyticsExploration }
func (d *AnalyticsExplorationDetector) MinConfidence() float64 { return analyticsBaseConfidence }
func (d *AnalyticsExplorationDetector) Modules() []string      { return []string{"analytics"} }

func (d *AnalyticsExplorationDetector) Detect(ctx *behavior.Context) *DetectorResult {
	onAnalytics := pageContains(ctx.CurrentPage, "analytic") || pageContains(ctx.CurrentModule, "analytic")
	if !onAnalytics {
		return nil
	}
	if ctx.TimeOnPage() < analyticsMinDwell {
		return nil
	}

	confidence := analyticsBaseConfidence
	triggers := []Trigger{{Type: "analytics_navigation"}}
	if ctx.HasAction(behavior.ActionFilterApply) {
		confidence += analyticsFilterBoost
		triggers = append(triggers, Trigger{Type: "filter_apply"})
	}

	return result(TypeAnalyticsExploration, "Exploring analytics", confidence, triggers...)
}

// =============================================================================
// SEARCH BEHAVIOR DETECTOR
// =============================================================================

// SearchBehaviorDetector fires on repeated reformulated searches with no
// click-through. A search followed by a result click or by a navigation away
// is a resolved search and suppresses the struggle signal.
type SearchBehaviorDetector struct{}

func (d *SearchBehaviorDetector) Type() string           { return TypeSearchStruggle }
func (d *SearchBehaviorDetector) MinConfidence() float64 { return searchStruggleConfidence }
func (d *SearchBehaviorDetector) Modules() []string      { return nil }

func (d *SearchBehaviorDetector) Detect(ctx *behavior.Context) *DetectorResult {
	queries := make(map[string]bool)
	searches := 0
	sawSearch := false
	var lastSearch time.Time
	for _, a := range ctx.RecentActions {
		switch a.ActionType {
		case behavior.ActionSearch:
			sawSearch = true
			searches++
			queries[strings.ToLower(strings.TrimSpace(a.Value))] = true
			if a.Timestamp.After(lastSearch) {
				lastSearch = a.Timestamp
			}
		case behavior.ActionResultClick, behavior.ActionClick:
			if sawSearch {
				// Click-through after a search means the search succeeded.
				return nil
			}
		}
	}
	if searches < searchAttemptMin || len(queries) < 2 {
		return nil
	}

	// A navigation after the last search means the user moved on; the current
	// page started after the searches were made.
	if nav := ctx.LastNavigation(); nav != nil && !lastSearch.IsZero() &&
		!ctx.PageStart.IsZero() && ctx.PageStart.After(lastSearch) {
		return nil
	}

	return result(TypeSearchStruggle, "Search without results",
		searchStruggleConfidence,
		Trigger{Type: "repeated_search", Detail: fmt.Sprintf("%d searches, %d distinct queries", searches, len(queries))})
}

// =============================================================================
// TASK COMPLETION DETECTOR
// =============================================================================

// TaskCompletionDetector fires on navigation into the task list plus a
// completion-style action (checkbox toggle and save).
type TaskCompletionDetector struct{}

func (d *TaskCompletionDetector) Type() string           { return TypeTaskCompletion }
func (d *TaskCompletionDetector) MinConfidence() float64 { return taskCompletionConfidence }
func (d *TaskCompletionDetector) Modules() []string      { return []string{"tasks"} }

func (d *TaskCompletionDetector) Detect(ctx *behavior.Context) *DetectorResult {
	onTasks := pageContains(ctx.CurrentPage, "task") || pageContains(ctx.CurrentModule, "task")
	if !onTasks {
		inHistory := false
		for _, nav := range ctx.NavigationHistory {
			if pageContains(nav.ToPage, "task") {
				inHistory = true
				break
			}
		}
		if !inHistory {
			return nil
		}
	}
	if !ctx.HasAction(behavior.ActionCheckboxToggle) || !ctx.HasAction(behavior.ActionSave) {
		return nil
	}

	return result(TypeTaskCompletion, "Completing tasks", taskCompletionConfidence,
		Trigger{Type: "task_navigation"},
		Trigger{Type: "checkbox_toggle"})
}
