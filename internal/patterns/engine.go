package patterns

import (
	"sort"
	"sync"
	"time"

	"mira/internal/behavior"
	"mira/internal/logging"
)

// Source identifies which recognition path produced a match.
type Source string

const (
	SourceDetector Source = "detector"
	SourceLibrary  Source = "library"
	// SourceHybrid marks convergent identification: detector and library paths
	// independently produced the same pattern type for one context.
	SourceHybrid Source = "hybrid"
)

// ConfidenceAdjuster blends a raw detection confidence with learned history.
// Implemented by learning.Service; tests inject fakes.
type ConfidenceAdjuster interface {
	// AdjustConfidence returns the blended confidence plus the learned
	// confidence and success rate used, so callers can expose them.
	AdjustConfidence(patternType string, raw float64) (adjusted, learned, successRate float64, err error)
}

// MatchMetadata exposes the individual inputs of the confidence blend for
// debugging and tests.
type MatchMetadata struct {
	RawConfidence     float64 `json:"raw_confidence"`
	LearnedConfidence float64 `json:"learned_confidence"`
	SuccessRate       float64 `json:"success_rate"`
	// LibraryScore is the indicator-weighted score when the library path also
	// identified this pattern; zero otherwise. On hybrid matches the detector
	// confidence is primary and this preserves the library's independent score.
	LibraryScore float64 `json:"library_score,omitempty"`
}

// MatchResult is one confidence-ranked pattern match.
type MatchResult struct {
	Pattern       BehavioralPattern `json:"pattern"`
	Confidence    float64           `json:"confidence"`     // post-learning
	LearningBoost float64           `json:"learning_boost"` // adjusted - raw
	Source        Source            `json:"source"`
	Triggers      []Trigger         `json:"triggers,omitempty"`
	Metadata      MatchMetadata     `json:"metadata"`
}

// Options configures the matching engine.
type Options struct {
	EnableLearning   bool
	EnableStreaming  bool
	MinConfidence    float64
	MaxPatterns      int
	IncludeDetectors bool
	IncludeLibrary   bool
	StreamBufferSize int
	StreamInterval   time.Duration
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		EnableLearning:   true,
		EnableStreaming:  true,
		MinConfidence:    0.5,
		MaxPatterns:      5,
		IncludeDetectors: true,
		IncludeLibrary:   true,
		StreamBufferSize: 100,
		StreamInterval:   30 * time.Second,
	}
}

// EmergingObserver is notified with the pattern types recurring frequently
// enough within the streaming buffer to warrant proactive surfacing.
type EmergingObserver func(patternTypes []string)

// emergingThreshold is the occurrence count within the buffer at which a
// pattern type counts as emerging.
const emergingThreshold = 3

type streamEntry struct {
	patternType string
	at          time.Time
}

// Engine orchestrates indicator extraction, detector and library matching,
// learning adjustment, ranking and streaming trend analysis. Construct one per
// composition root; there is no package-level instance.
type Engine struct {
	opts     Options
	registry *DetectorRegistry
	library  *Library
	adjuster ConfidenceAdjuster

	mu        sync.Mutex
	stream    []streamEntry
	observers []EmergingObserver
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopped   bool
}

// NewEngine creates a matching engine. registry and library may be nil when
// the corresponding source is disabled in opts; adjuster may be nil when
// learning is disabled.
func NewEngine(opts Options, registry *DetectorRegistry, library *Library, adjuster ConfidenceAdjuster) *Engine {
	if opts.MaxPatterns <= 0 {
		opts.MaxPatterns = DefaultOptions().MaxPatterns
	}
	if opts.StreamBufferSize <= 0 {
		opts.StreamBufferSize = DefaultOptions().StreamBufferSize
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = DefaultOptions().StreamInterval
	}

	e := &Engine{
		opts:     opts,
		registry: registry,
		library:  library,
		adjuster: adjuster,
		stopCh:   make(chan struct{}),
	}

	if opts.EnableStreaming {
		e.ticker = time.NewTicker(opts.StreamInterval)
		go e.streamLoop()
	}

	logging.Engine("Engine created (learning=%v, streaming=%v, minConfidence=%.2f, maxPatterns=%d)",
		opts.EnableLearning, opts.EnableStreaming, opts.MinConfidence, opts.MaxPatterns)
	return e
}

// MatchPatterns runs the full pipeline against one context snapshot.
func (e *Engine) MatchPatterns(ctx *behavior.Context) []MatchResult {
	timer := logging.StartTimer(logging.CategoryEngine, "MatchPatterns")
	defer timer.Stop()

	if ctx == nil {
		return nil
	}

	indicators := behavior.ExtractIndicators(ctx)

	// Collect results keyed by pattern type so convergent identification by
	// both paths merges into one hybrid entry instead of double counting.
	byType := make(map[string]*MatchResult)
	var order []string

	if e.opts.IncludeDetectors && e.registry != nil {
		for _, dr := range e.registry.DetectPatterns(ctx) {
			mr := &MatchResult{
				Pattern:    dr.Pattern,
				Confidence: dr.Pattern.Confidence,
				Source:     SourceDetector,
				Triggers:   dr.Triggers,
				Metadata:   MatchMetadata{RawConfidence: dr.Pattern.Confidence},
			}
			byType[dr.Pattern.Type] = mr
			order = append(order, dr.Pattern.Type)
		}
	}

	if e.opts.IncludeLibrary && e.library != nil {
		for _, lm := range e.library.Match(indicators) {
			typ := lm.Template.ID
			if existing, ok := byType[typ]; ok {
				// Convergent identification. The detector confidence stays
				// primary; the library score is preserved in metadata.
				existing.Source = SourceHybrid
				existing.Metadata.LibraryScore = lm.Score
				continue
			}
			byType[typ] = &MatchResult{
				Pattern: BehavioralPattern{
					Type:       typ,
					Name:       lm.Template.Name,
					Confidence: lm.Confidence,
					DetectedAt: time.Now(),
				},
				Confidence: lm.Confidence,
				Source:     SourceLibrary,
				Metadata:   MatchMetadata{RawConfidence: lm.Confidence, LibraryScore: lm.Score},
			}
			order = append(order, typ)
		}
	}

	results := make([]MatchResult, 0, len(order))
	for _, typ := range order {
		mr := byType[typ]

		if e.opts.EnableLearning && e.adjuster != nil {
			adjusted, learned, rate, err := e.adjuster.AdjustConfidence(typ, mr.Metadata.RawConfidence)
			if err != nil {
				// Learning lookups are non-fatal; fall back to raw confidence.
				logging.EngineWarn("Learning adjustment failed for %s: %v (using raw confidence)", typ, err)
			} else {
				mr.Confidence = adjusted
				mr.LearningBoost = adjusted - mr.Metadata.RawConfidence
				mr.Metadata.LearnedConfidence = learned
				mr.Metadata.SuccessRate = rate
			}
		}

		if mr.Confidence < e.opts.MinConfidence {
			continue
		}
		results = append(results, *mr)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	if len(results) > e.opts.MaxPatterns {
		results = results[:e.opts.MaxPatterns]
	}

	if e.opts.EnableStreaming {
		e.pushStream(results)
	}

	logging.EngineDebug("MatchPatterns: %d indicators -> %d results", len(indicators), len(results))
	return results
}

// RegisterEmergingObserver adds an observer for emerging pattern types.
// A panicking observer never prevents the others from being invoked.
func (e *Engine) RegisterEmergingObserver(obs EmergingObserver) {
	if obs == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, obs)
}

// pushStream appends matches to the bounded ring buffer, dropping oldest first.
func (e *Engine) pushStream(results []MatchResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range results {
		e.stream = append(e.stream, streamEntry{patternType: r.Pattern.Type, at: time.Now()})
	}
	if overflow := len(e.stream) - e.opts.StreamBufferSize; overflow > 0 {
		e.stream = e.stream[overflow:]
	}
}

// ScanEmerging scans the streaming buffer and notifies observers of pattern
// types at or above the emerging threshold. Returns the emerging types.
// Exposed so hosts and tests can trigger a scan without waiting for the timer.
func (e *Engine) ScanEmerging() []string {
	e.mu.Lock()
	counts := make(map[string]int)
	for _, entry := range e.stream {
		counts[entry.patternType]++
	}
	var emerging []string
	for typ, n := range counts {
		if n >= emergingThreshold {
			emerging = append(emerging, typ)
		}
	}
	sort.Strings(emerging)
	observers := append([]EmergingObserver(nil), e.observers...)
	e.mu.Unlock()

	if len(emerging) == 0 {
		return nil
	}

	logging.Engine("Emerging patterns: %v", emerging)
	for _, obs := range observers {
		notifyObserver(obs, emerging)
	}
	return emerging
}

func notifyObserver(obs EmergingObserver, emerging []string) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.EngineWarn("Emerging observer panicked: %v", rec)
		}
	}()
	obs(emerging)
}

// StreamLen returns the current streaming buffer length.
func (e *Engine) StreamLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.stream)
}

func (e *Engine) streamLoop() {
	for {
		select {
		case <-e.ticker.C:
			e.ScanEmerging()
		case <-e.stopCh:
			return
		}
	}
}

// Destroy stops the streaming timer. Safe to call more than once.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopCh)
}
