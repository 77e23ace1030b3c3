// Package patterns implements the pattern recognition machinery: the static
// template library with indicator-weighted scoring, procedural detectors, the
// matching engine that merges both sources with learned confidence, and the
// proactive suggestion facade.
package patterns

import (
	"sort"
	"sync"

	"mira/internal/behavior"
	"mira/internal/logging"
)

// Category classifies a pattern template.
type Category string

const (
	CategorySuccess     Category = "success"
	CategoryStruggle    Category = "struggle"
	CategoryAbandonment Category = "abandonment"
	CategoryExploration Category = "exploration"
)

// Priority ranks a suggested action.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Indicator is a named, weighted observation used to score a template.
type Indicator struct {
	Type        string  `yaml:"type" json:"type"`
	Weight      float64 `yaml:"weight" json:"weight"` // in (0,1]
	Required    bool    `yaml:"required" json:"required"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
}

// SuggestedAction is one prioritized follow-up attached to a template.
type SuggestedAction struct {
	Action    string   `yaml:"action" json:"action"`
	Priority  Priority `yaml:"priority" json:"priority"`
	Condition string   `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// Template is a catalog entry: a named behavioral hypothesis with weighted
// indicators, a confidence threshold and prioritized suggested actions.
type Template struct {
	ID                  string            `yaml:"id" json:"id"`
	Name                string            `yaml:"name" json:"name"`
	Category            Category          `yaml:"category" json:"category"`
	Description         string            `yaml:"description,omitempty" json:"description,omitempty"`
	Triggers            []string          `yaml:"triggers,omitempty" json:"triggers,omitempty"`
	Indicators          []Indicator       `yaml:"indicators" json:"indicators"`
	ConfidenceThreshold float64           `yaml:"confidence_threshold" json:"confidence_threshold"` // in (0,1]
	Actions             []SuggestedAction `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Library is the in-memory template catalog. It is seeded with the built-in
// templates and supports runtime registration; registration overwrites by ID.
type Library struct {
	mu        sync.RWMutex
	templates map[string]*Template
	order     []string // registration order for stable enumeration
}

// NewLibrary creates a library seeded with the built-in templates.
func NewLibrary() *Library {
	lib := &Library{templates: make(map[string]*Template)}
	for _, tpl := range builtinTemplates() {
		lib.Register(tpl)
	}
	return lib
}

// NewEmptyLibrary creates a library with no templates.
func NewEmptyLibrary() *Library {
	return &Library{templates: make(map[string]*Template)}
}

// Register adds or overwrites a template in the catalog.
func (l *Library) Register(tpl *Template) {
	if tpl == nil || tpl.ID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.templates[tpl.ID]; !exists {
		l.order = append(l.order, tpl.ID)
	}
	l.templates[tpl.ID] = tpl
	logging.CatalogDebug("Registered pattern template: %s (%s)", tpl.ID, tpl.Category)
}

// Get returns a template by ID, or nil.
func (l *Library) Get(id string) *Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.templates[id]
}

// All returns every template in registration order.
func (l *Library) All() []*Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Template, 0, len(l.order))
	for _, id := range l.order {
		if tpl, ok := l.templates[id]; ok {
			out = append(out, tpl)
		}
	}
	return out
}

// ByCategory returns templates of one category in registration order.
func (l *Library) ByCategory(cat Category) []*Template {
	var out []*Template
	for _, tpl := range l.All() {
		if tpl.Category == cat {
			out = append(out, tpl)
		}
	}
	return out
}

// SuccessPatterns returns success-category templates.
func (l *Library) SuccessPatterns() []*Template { return l.ByCategory(CategorySuccess) }

// StrugglePatterns returns struggle-category templates.
func (l *Library) StrugglePatterns() []*Template { return l.ByCategory(CategoryStruggle) }

// ExplorationPatterns returns exploration-category templates.
func (l *Library) ExplorationPatterns() []*Template { return l.ByCategory(CategoryExploration) }

// HighPriorityPatterns returns templates in struggle or abandonment categories.
// These are the ones worth surfacing proactively.
func (l *Library) HighPriorityPatterns() []*Template {
	var out []*Template
	for _, tpl := range l.All() {
		if tpl.Category == CategoryStruggle || tpl.Category == CategoryAbandonment {
			out = append(out, tpl)
		}
	}
	return out
}

// SuggestedActions returns a template's actions, optionally filtered by
// applicability condition. An empty condition returns all actions; actions
// without a condition always apply.
func (l *Library) SuggestedActions(id, condition string) []SuggestedAction {
	tpl := l.Get(id)
	if tpl == nil {
		return nil
	}
	if condition == "" {
		return append([]SuggestedAction(nil), tpl.Actions...)
	}
	var out []SuggestedAction
	for _, a := range tpl.Actions {
		if a.Condition == "" || a.Condition == condition {
			out = append(out, a)
		}
	}
	return out
}

// CalculateScore computes the indicator-weighted score for a template against
// an observed indicator set. A missing required indicator invalidates the
// match entirely and short-circuits to 0 regardless of optional indicators.
// Otherwise the score is the sum of present indicator weights; adding
// indicators to the observed set never lowers the score.
func (l *Library) CalculateScore(id string, observed map[string]bool) float64 {
	tpl := l.Get(id)
	if tpl == nil {
		return 0
	}
	return scoreTemplate(tpl, observed)
}

func scoreTemplate(tpl *Template, observed map[string]bool) float64 {
	for _, ind := range tpl.Indicators {
		if ind.Required && !observed[ind.Type] {
			return 0
		}
	}
	score := 0.0
	for _, ind := range tpl.Indicators {
		if observed[ind.Type] {
			score += ind.Weight
		}
	}
	return score
}

// LibraryMatch is one template whose score met its threshold.
type LibraryMatch struct {
	Template   *Template
	Score      float64
	Confidence float64 // score capped at 1.0
}

// Match scores every template against the observed indicator set and returns
// those that meet their confidence threshold, sorted descending by score.
func (l *Library) Match(observed []string) []LibraryMatch {
	timer := logging.StartTimer(logging.CategoryCatalog, "Library.Match")
	defer timer.Stop()

	set := behavior.IndicatorSet(observed)
	var matches []LibraryMatch
	for _, tpl := range l.All() {
		score := scoreTemplate(tpl, set)
		if score <= 0 || score < tpl.ConfidenceThreshold {
			continue
		}
		confidence := score
		if confidence > 1.0 {
			confidence = 1.0
		}
		matches = append(matches, LibraryMatch{Template: tpl, Score: score, Confidence: confidence})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	logging.CatalogDebug("Library matched %d/%d templates for %d indicators",
		len(matches), len(l.order), len(observed))
	return matches
}
