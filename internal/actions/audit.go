package actions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mira/internal/logging"
)

// AuditLogger receives executed-action outcomes. Logging is strictly
// best-effort: the executor dispatches every outcome and deliberately discards
// the returned error, so a failing sink never affects action results.
type AuditLogger interface {
	Log(entry AuditEntry) error
}

// FileAuditLogger appends audit entries as JSON lines to a single file.
type FileAuditLogger struct {
	mu   sync.Mutex
	path string
}

// NewFileAuditLogger creates a JSONL audit sink at the given path.
func NewFileAuditLogger(path string) (*FileAuditLogger, error) {
	if path == "" {
		return nil, fmt.Errorf("audit path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	logging.Audit("Audit sink at %s", path)
	return &FileAuditLogger{path: path}, nil
}

// Log appends one entry. The file is opened per write so external rotation is
// safe.
func (f *FileAuditLogger) Log(entry AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	logging.AuditDebug("Audit: %s success=%v correlation=%s", entry.ActionType, entry.Success, entry.CorrelationID)
	return nil
}

// NopAuditLogger discards all entries.
type NopAuditLogger struct{}

// Log discards the entry.
func (NopAuditLogger) Log(AuditEntry) error { return nil }
