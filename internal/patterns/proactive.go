package patterns

import (
	"fmt"

	"mira/internal/behavior"
)

// Suggestion is a human-readable, ranked suggestion produced from a match.
type Suggestion struct {
	PatternType string   `json:"pattern_type"`
	Title       string   `json:"title"`
	Confidence  float64  `json:"confidence"`
	Actions     []string `json:"actions,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// ProactiveEngine is a thin facade over Engine producing top-N ranked
// suggestions and fanning emerging-pattern notifications out to observers.
type ProactiveEngine struct {
	engine  *Engine
	library *Library
}

// NewProactiveEngine wraps an engine. library provides suggested-action text
// for matched templates and may be the same library the engine matches against.
func NewProactiveEngine(engine *Engine, library *Library) *ProactiveEngine {
	return &ProactiveEngine{engine: engine, library: library}
}

// Suggest runs the match pipeline and renders the top n results as
// human-readable suggestions.
func (p *ProactiveEngine) Suggest(ctx *behavior.Context, n int) []Suggestion {
	results := p.engine.MatchPatterns(ctx)
	if n > 0 && len(results) > n {
		results = results[:n]
	}

	suggestions := make([]Suggestion, 0, len(results))
	for _, r := range results {
		s := Suggestion{
			PatternType: r.Pattern.Type,
			Title:       r.Pattern.Name,
			Confidence:  r.Confidence,
			Reason:      describeMatch(r),
		}
		if p.library != nil {
			for _, a := range p.library.SuggestedActions(r.Pattern.Type, "") {
				s.Actions = append(s.Actions, a.Action)
			}
		}
		suggestions = append(suggestions, s)
	}
	return suggestions
}

// RegisterEmergingObserver registers an independent emerging-pattern observer.
func (p *ProactiveEngine) RegisterEmergingObserver(obs EmergingObserver) {
	p.engine.RegisterEmergingObserver(obs)
}

// Destroy releases the underlying engine's timer.
func (p *ProactiveEngine) Destroy() {
	p.engine.Destroy()
}

func describeMatch(r MatchResult) string {
	switch {
	case len(r.Triggers) > 0 && r.Triggers[0].Detail != "":
		return r.Triggers[0].Detail
	case len(r.Triggers) > 0:
		return r.Triggers[0].Type
	default:
		return fmt.Sprintf("%s match (%.0f%% confidence)", r.Source, r.Confidence*100)
	}
}
