package learning

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mira/internal/logging"
)

// UserAction is an explicit user reaction to a surfaced suggestion.
type UserAction string

const (
	UserActionAccept  UserAction = "accept"
	UserActionDismiss UserAction = "dismiss"
	UserActionIgnore  UserAction = "ignore"
)

// FeedbackEvent is one queued outcome observation. Events are not persisted
// directly; they are flushed to the stats store in batches.
type FeedbackEvent struct {
	ID          string                 `json:"id"`
	PatternType string                 `json:"pattern_type"`
	Success     bool                   `json:"success"`
	Context     map[string]interface{} `json:"context,omitempty"`
	UserAction  UserAction             `json:"user_action,omitempty"`
	At          time.Time              `json:"at"`
}

// PatternStats is the persisted per-pattern-type aggregate.
type PatternStats struct {
	PatternType     string    `json:"pattern_type"`
	SuccessCount    int       `json:"success_count"`
	FailureCount    int       `json:"failure_count"`
	ConfidenceScore float64   `json:"confidence_score"`
	LastSeen        time.Time `json:"last_seen"`
}

// SuccessRate returns successes over total observations, 0 when unobserved.
func (s PatternStats) SuccessRate() float64 {
	total := s.SuccessCount + s.FailureCount
	if total == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(total)
}

// StatsStore persists pattern aggregates. Get returns nil for an unknown type.
type StatsStore interface {
	Apply(events []FeedbackEvent) error
	Get(patternType string) (*PatternStats, error)
	All() ([]PatternStats, error)
	Close() error
}

// defaultQueueThreshold triggers an automatic upload when the queue reaches it.
const defaultQueueThreshold = 10

// Service queues feedback events and reads learned aggregates. Construct one
// per composition root; there is no package-level instance.
//
// Flushing is best-effort: the queue is cleared even when the store write
// fails, trading feedback loss on persistent errors for freedom from
// retry-storm complexity. Callers that want to observe upload errors can check
// the Flush return value; the service itself never escalates them.
type Service struct {
	store StatsStore

	mu      sync.Mutex
	queue   []FeedbackEvent
	maxSize int

	ticker  *time.Ticker
	stopCh  chan struct{}
	stopped bool
}

// ServiceOptions configures a learning service.
type ServiceOptions struct {
	// QueueSize is the auto-flush threshold; 0 means the default of 10.
	QueueSize int
	// FlushInterval enables a periodic background flush when positive.
	FlushInterval time.Duration
}

// NewService creates a learning service over the given store.
func NewService(store StatsStore, opts ServiceOptions) *Service {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueThreshold
	}

	s := &Service{
		store:   store,
		maxSize: opts.QueueSize,
		stopCh:  make(chan struct{}),
	}

	if opts.FlushInterval > 0 {
		s.ticker = time.NewTicker(opts.FlushInterval)
		go s.flushLoop()
	}

	return s
}

// RecordSuccess queues a success observation for a pattern type.
func (s *Service) RecordSuccess(patternType string, context map[string]interface{}) {
	s.enqueue(FeedbackEvent{
		ID:          uuid.NewString(),
		PatternType: patternType,
		Success:     true,
		Context:     context,
		At:          time.Now(),
	})
}

// RecordFailure queues a failure observation for a pattern type.
func (s *Service) RecordFailure(patternType string, context map[string]interface{}) {
	s.enqueue(FeedbackEvent{
		ID:          uuid.NewString(),
		PatternType: patternType,
		Success:     false,
		Context:     context,
		At:          time.Now(),
	})
}

// RecordUserAction queues an explicit user reaction. Accept counts as
// success; dismiss and ignore count as failure.
func (s *Service) RecordUserAction(patternType string, action UserAction, context map[string]interface{}) {
	s.enqueue(FeedbackEvent{
		ID:          uuid.NewString(),
		PatternType: patternType,
		Success:     action == UserActionAccept,
		Context:     context,
		UserAction:  action,
		At:          time.Now(),
	})
}

func (s *Service) enqueue(ev FeedbackEvent) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	shouldFlush := len(s.queue) >= s.maxSize
	queued := len(s.queue)
	s.mu.Unlock()

	logging.LearningDebug("Queued feedback: type=%s success=%v action=%s (queue=%d)",
		ev.PatternType, ev.Success, ev.UserAction, queued)

	if shouldFlush {
		// Upload errors at the automatic threshold are deliberately dropped.
		_ = s.Flush()
	}
}

// Flush uploads the queued batch to the stats store. The queue is cleared on
// completion even when the store write fails; the error is returned for
// callers that want to log it.
func (s *Service) Flush() error {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	logging.Learning("Flushing %d feedback events", len(batch))
	if s.store == nil {
		return nil
	}
	if err := s.store.Apply(batch); err != nil {
		logging.LearningWarn("Feedback upload failed, %d events dropped: %v", len(batch), err)
		return err
	}
	return nil
}

// QueueLen returns the current queue length.
func (s *Service) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// GetPatternConfidence returns the persisted confidence for a pattern type,
// or the 0.5 default when unknown or unreadable.
func (s *Service) GetPatternConfidence(patternType string) float64 {
	if s.store == nil {
		return DefaultConfidence
	}
	stats, err := s.store.Get(patternType)
	if err != nil || stats == nil {
		return DefaultConfidence
	}
	return stats.ConfidenceScore
}

// GetPatternSuccessRate returns the persisted success rate for a pattern
// type, or 0 when unknown or unreadable.
func (s *Service) GetPatternSuccessRate(patternType string) float64 {
	if s.store == nil {
		return DefaultSuccessRate
	}
	stats, err := s.store.Get(patternType)
	if err != nil || stats == nil {
		return DefaultSuccessRate
	}
	return stats.SuccessRate()
}

// AdjustConfidence implements the engine's ConfidenceAdjuster contract,
// blending raw detection confidence with this service's learned aggregates.
func (s *Service) AdjustConfidence(patternType string, raw float64) (adjusted, learned, successRate float64, err error) {
	learned = s.GetPatternConfidence(patternType)
	successRate = s.GetPatternSuccessRate(patternType)
	return BlendConfidence(raw, learned, successRate), learned, successRate, nil
}

// ShouldTrust reports whether the blended confidence meets the threshold.
func (s *Service) ShouldTrust(patternType string, raw, threshold float64) bool {
	adjusted, _, _, _ := s.AdjustConfidence(patternType, raw)
	return adjusted >= threshold
}

// GetLearnedPatterns returns all persisted aggregates sorted by confidence
// descending.
func (s *Service) GetLearnedPatterns() []PatternStats {
	if s.store == nil {
		return nil
	}
	all, err := s.store.All()
	if err != nil {
		logging.LearningWarn("Failed to read learned patterns: %v", err)
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ConfidenceScore > all[j].ConfidenceScore
	})
	return all
}

// GetTopPatterns returns the n highest-confidence aggregates.
func (s *Service) GetTopPatterns(n int) []PatternStats {
	all := s.GetLearnedPatterns()
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// GetPatternsNeedingImprovement returns aggregates below the confidence
// threshold, lowest first.
func (s *Service) GetPatternsNeedingImprovement(threshold float64) []PatternStats {
	all := s.GetLearnedPatterns()
	var out []PatternStats
	for _, stats := range all {
		if stats.ConfidenceScore < threshold {
			out = append(out, stats)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ConfidenceScore < out[j].ConfidenceScore
	})
	return out
}

func (s *Service) flushLoop() {
	for {
		select {
		case <-s.ticker.C:
			// Periodic flush; upload errors are deliberately dropped.
			_ = s.Flush()
		case <-s.stopCh:
			return
		}
	}
}

// Destroy cancels the periodic upload timer. Safe to call more than once.
// Queued events are flushed one last time, best-effort.
func (s *Service) Destroy() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	s.mu.Unlock()

	_ = s.Flush()
}
