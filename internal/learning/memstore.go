package learning

import (
	"sync"
	"time"
)

// MemoryStatsStore is an in-memory StatsStore with the same reinforcement
// semantics as the SQLite store. Used by tests and as the fallback when no
// database path is configured.
type MemoryStatsStore struct {
	mu    sync.RWMutex
	stats map[string]*PatternStats
}

// NewMemoryStatsStore creates an empty in-memory store.
func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{stats: make(map[string]*PatternStats)}
}

// Apply adds a batch of feedback events to the in-memory aggregates.
func (m *MemoryStatsStore) Apply(events []FeedbackEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ev := range events {
		stats, exists := m.stats[ev.PatternType]
		if !exists {
			stats = &PatternStats{
				PatternType:     ev.PatternType,
				ConfidenceScore: DefaultConfidence,
			}
			m.stats[ev.PatternType] = stats
		}
		if ev.Success {
			stats.SuccessCount++
			stats.ConfidenceScore = clamp(stats.ConfidenceScore+confidenceStep, 0, 1)
		} else {
			stats.FailureCount++
			stats.ConfidenceScore = clamp(stats.ConfidenceScore-confidenceStep, 0, 1)
		}
		if ev.At.IsZero() {
			stats.LastSeen = time.Now()
		} else {
			stats.LastSeen = ev.At
		}
	}
	return nil
}

// Get returns a copy of the aggregate for a pattern type, or nil when unknown.
func (m *MemoryStatsStore) Get(patternType string) (*PatternStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats, ok := m.stats[patternType]
	if !ok {
		return nil, nil
	}
	cp := *stats
	return &cp, nil
}

// All returns copies of every aggregate.
func (m *MemoryStatsStore) All() ([]PatternStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PatternStats, 0, len(m.stats))
	for _, stats := range m.stats {
		out = append(out, *stats)
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStatsStore) Close() error { return nil }
