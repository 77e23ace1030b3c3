package patterns

import (
	"strings"
	"sync"

	"mira/internal/behavior"
	"mira/internal/logging"
)

// DetectorRegistry holds the detector set. It is seeded with the built-in
// detectors and supports runtime registration; later registrations with the
// same type replace the earlier detector.
type DetectorRegistry struct {
	mu        sync.RWMutex
	detectors []Detector
	byType    map[string]Detector
}

// NewDetectorRegistry creates a registry seeded with the built-in detectors.
func NewDetectorRegistry() *DetectorRegistry {
	r := NewEmptyDetectorRegistry()
	for _, d := range []Detector{
		&ProposalCreationDetector{},
		&FormStruggleDetector{},
		&AnalyticsExplorationDetector{},
		&SearchBehaviorDetector{},
		&TaskCompletionDetector{},
	} {
		r.Register(d)
	}
	return r
}

// NewEmptyDetectorRegistry creates a registry with no detectors.
func NewEmptyDetectorRegistry() *DetectorRegistry {
	return &DetectorRegistry{byType: make(map[string]Detector)}
}

// Register adds a detector, replacing any existing one of the same type.
func (r *DetectorRegistry) Register(d Detector) {
	if d == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[d.Type()]; exists {
		for i, existing := range r.detectors {
			if existing.Type() == d.Type() {
				r.detectors[i] = d
				break
			}
		}
	} else {
		r.detectors = append(r.detectors, d)
	}
	r.byType[d.Type()] = d
	logging.Detectors("Registered detector: %s", d.Type())
}

// ByType returns the detector with the given type, or nil.
func (r *DetectorRegistry) ByType(typ string) Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byType[typ]
}

// All returns all registered detectors in registration order.
func (r *DetectorRegistry) All() []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Detector(nil), r.detectors...)
}

// ForModule returns detectors relevant to a module. Detectors with no declared
// modules are relevant everywhere.
func (r *DetectorRegistry) ForModule(module string) []Detector {
	module = strings.ToLower(module)
	var out []Detector
	for _, d := range r.All() {
		mods := d.Modules()
		if len(mods) == 0 {
			out = append(out, d)
			continue
		}
		for _, m := range mods {
			if strings.ToLower(m) == module {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// DetectPatterns runs every registered detector against one context and
// returns all non-nil results. A panicking detector is treated as a non-match
// and never aborts the overall run.
func (r *DetectorRegistry) DetectPatterns(ctx *behavior.Context) []*DetectorResult {
	timer := logging.StartTimer(logging.CategoryDetectors, "DetectPatterns")
	defer timer.Stop()

	var results []*DetectorResult
	for _, d := range r.All() {
		if res := safeDetect(d, ctx); res != nil {
			results = append(results, res)
		}
	}

	logging.DetectorsDebug("DetectPatterns: %d detectors, %d matches", len(r.All()), len(results))
	return results
}

// safeDetect isolates a single detector; a panic becomes a non-match.
func safeDetect(d Detector, ctx *behavior.Context) (res *DetectorResult) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.DetectorsWarn("Detector %s panicked: %v (treated as no match)", d.Type(), rec)
			res = nil
		}
	}()
	return d.Detect(ctx)
}
