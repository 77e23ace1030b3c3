package learning

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mira/internal/logging"
)

// Confidence reinforcement step applied per observed outcome.
const confidenceStep = 0.1

// SQLiteStatsStore persists pattern aggregates in a user-local SQLite file.
type SQLiteStatsStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteStatsStore creates or opens the stats store.
// Creates the database and schema if it doesn't exist.
func NewSQLiteStatsStore(dbPath string) (*SQLiteStatsStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLiteStatsStore")
	defer timer.Stop()

	if dbPath == "" {
		return nil, fmt.Errorf("database path required")
	}

	logging.Store("Initializing pattern stats store at: %s", dbPath)

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}

	store := &SQLiteStatsStore{db: db, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStatsStore) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pattern_stats (
		pattern_type TEXT PRIMARY KEY,
		success_count INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		confidence_score REAL NOT NULL DEFAULT 0.5,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_pattern_stats_confidence ON pattern_stats(confidence_score);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Apply adds a batch of feedback events to the persisted aggregates.
// Counts accumulate additively; the confidence score is reinforced by 0.1 per
// success and decayed by 0.1 per failure, clamped to [0,1]. Records are
// created on first sight of a pattern type and never deleted here.
func (s *SQLiteStatsStore) Apply(events []FeedbackEvent) error {
	timer := logging.StartTimer(logging.CategoryStore, "SQLiteStatsStore.Apply")
	defer timer.Stop()

	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO pattern_stats (pattern_type, success_count, failure_count, confidence_score, last_seen)
		VALUES (?, ?, ?, MAX(0.0, MIN(1.0, 0.5 + ?)), ?)
		ON CONFLICT(pattern_type) DO UPDATE SET
			success_count = success_count + excluded.success_count,
			failure_count = failure_count + excluded.failure_count,
			confidence_score = MAX(0.0, MIN(1.0, confidence_score + ?)),
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		successes, failures := 0, 0
		delta := -confidenceStep
		if ev.Success {
			successes = 1
			delta = confidenceStep
		} else {
			failures = 1
		}
		at := ev.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.Exec(ev.PatternType, successes, failures, delta, at.UTC(), delta); err != nil {
			return fmt.Errorf("failed to apply feedback for %s: %w", ev.PatternType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feedback batch: %w", err)
	}

	logging.StoreDebug("Applied %d feedback events", len(events))
	return nil
}

// Get returns the aggregate for a pattern type, or nil when unknown.
func (s *SQLiteStatsStore) Get(patternType string) (*PatternStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats PatternStats
	err := s.db.QueryRow(`
		SELECT pattern_type, success_count, failure_count, confidence_score, last_seen
		FROM pattern_stats WHERE pattern_type = ?
	`, patternType).Scan(&stats.PatternType, &stats.SuccessCount, &stats.FailureCount,
		&stats.ConfidenceScore, &stats.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stats for %s: %w", patternType, err)
	}
	return &stats, nil
}

// All returns every persisted aggregate ordered by confidence descending.
func (s *SQLiteStatsStore) All() ([]PatternStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT pattern_type, success_count, failure_count, confidence_score, last_seen
		FROM pattern_stats
		ORDER BY confidence_score DESC, pattern_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern stats: %w", err)
	}
	defer rows.Close()

	var all []PatternStats
	for rows.Next() {
		var stats PatternStats
		if err := rows.Scan(&stats.PatternType, &stats.SuccessCount, &stats.FailureCount,
			&stats.ConfidenceScore, &stats.LastSeen); err != nil {
			logging.StoreWarn("Skipping unreadable stats row: %v", err)
			continue
		}
		all = append(all, stats)
	}
	return all, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStatsStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logging.Store("Closing pattern stats store")
	return s.db.Close()
}
