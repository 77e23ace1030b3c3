package behavior

import (
	"strings"
)

// Indicator type constants. Each indicator is a pure function of the context
// and is matched by name against template indicator lists.
const (
	IndicatorExtensiveNavigation       = "extensive_navigation"
	IndicatorBackNavigationCount       = "back_navigation_count"
	IndicatorPageRevisits              = "page_revisits"
	IndicatorHighFieldInteractionCount = "high_field_interaction_count"
	IndicatorMultipleSearchAttempts    = "multiple_search_attempts"
	IndicatorFormSubmitted             = "form_submitted"
	IndicatorFactFindingCompleted      = "fact_finding_completed"
	IndicatorFilterApplied             = "filter_applied"
	IndicatorLongDwell                 = "long_dwell"
	IndicatorRapidNavigation           = "rapid_navigation"
)

// Extraction thresholds.
const (
	extensiveNavigationThreshold = 8  // history entries
	backNavigationThreshold      = 2  // back-type transitions
	pageRevisitThreshold         = 2  // same page reappearing
	highFieldInteractionMin      = 10 // form inputs without a submit
	multipleSearchMin            = 3  // search actions
	longDwellSeconds             = 60
	rapidNavigationMaxSeconds    = 5 // average time spent per transition
)

// ExtractIndicators derives the flat indicator-type set from a context.
// The set always includes a module indicator ("module_<name>") and a page
// indicator ("page_<name>") so templates can be scoped to screens.
func ExtractIndicators(c *Context) []string {
	if c == nil {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(ind string) {
		if ind != "" && !seen[ind] {
			seen[ind] = true
			out = append(out, ind)
		}
	}

	add(ModuleIndicator(c.CurrentModule))
	add(PageIndicator(c.CurrentPage))

	if len(c.NavigationHistory) >= extensiveNavigationThreshold {
		add(IndicatorExtensiveNavigation)
	}

	backs := 0
	visits := make(map[string]int)
	var totalSpent, counted int64
	for _, nav := range c.NavigationHistory {
		if nav.NavType == NavTypeBack {
			backs++
		}
		visits[nav.ToPage]++
		totalSpent += int64(nav.TimeSpent.Seconds())
		counted++
	}
	if backs >= backNavigationThreshold {
		add(IndicatorBackNavigationCount)
	}
	for _, n := range visits {
		if n > pageRevisitThreshold {
			add(IndicatorPageRevisits)
			break
		}
	}
	if counted >= 3 && totalSpent/counted <= rapidNavigationMaxSeconds {
		add(IndicatorRapidNavigation)
	}

	inputs := c.CountActions(ActionFormInput)
	submitted := c.HasAction(ActionFormSubmit)
	if inputs >= highFieldInteractionMin && !submitted {
		add(IndicatorHighFieldInteractionCount)
	}
	if submitted {
		add(IndicatorFormSubmitted)
	}

	if c.CountActions(ActionSearch) >= multipleSearchMin {
		add(IndicatorMultipleSearchAttempts)
	}

	if c.HasAction(ActionFilterApply) {
		add(IndicatorFilterApplied)
	}

	if c.PageDataFlag("fact_finding_completed") {
		add(IndicatorFactFindingCompleted)
	}

	if c.TimeOnPage().Seconds() >= longDwellSeconds {
		add(IndicatorLongDwell)
	}

	return out
}

// ModuleIndicator returns the indicator name for a module.
func ModuleIndicator(module string) string {
	if module == "" {
		return ""
	}
	return "module_" + normalize(module)
}

// PageIndicator returns the indicator name for a page path.
func PageIndicator(page string) string {
	if page == "" {
		return ""
	}
	return "page_" + normalize(page)
}

// normalize lowercases and flattens separators so "/customers/detail" and
// "Customers Detail" produce the same indicator token.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "/")
	replacer := strings.NewReplacer("/", "_", " ", "_", "-", "_", "?", "_", "=", "_")
	return replacer.Replace(s)
}

// IndicatorSet converts an indicator slice to a membership set.
func IndicatorSet(indicators []string) map[string]bool {
	set := make(map[string]bool, len(indicators))
	for _, ind := range indicators {
		set[ind] = true
	}
	return set
}
