// Package logging provides config-driven categorized file-based logging for mira.
// Logs are written to .mira/logs/ with separate files per category.
// Logging is controlled by debug_mode, taken either from caller-provided
// Options (InitializeWith) or from .mira/config.json (Initialize) - when
// false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Boot/initialization
	CategoryEngine    Category = "engine"    // Pattern matching engine pipeline
	CategoryDetectors Category = "detectors" // Individual pattern detectors
	CategoryLearning  Category = "learning"  // Feedback queue, confidence blending
	CategoryActions   Category = "actions"   // UI action execution
	CategoryAudit     Category = "audit"     // Executed-action audit sink
	CategoryCatalog   Category = "catalog"   // Pattern template catalog / reload
	CategorySanitize  Category = "sanitize"  // Context sanitization
	CategoryStore     Category = "store"     // Learned-stats persistence
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type loggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

// configFile structure for reading .mira/config.json
type configFile struct {
	Logging loggingConfig `json:"logging"`
}

// StructuredLogEntry represents a JSON log entry
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`  // Unix milliseconds
	Category  string                 `json:"cat"` // Log category
	Level     string                 `json:"lvl"` // debug/info/warn/error
	Message   string                 `json:"msg"` // Log message
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers      = make(map[Category]*Logger)
	loggersMu    sync.RWMutex
	logsDir      string
	workspace    string
	config       loggingConfig
	configLoaded bool
	configMu     sync.RWMutex
	logLevel     int // 0=debug, 1=info, 2=warn, 3=error
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".mira", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not load config: %v\n", err)
		// Default to disabled (production mode)
		config.DebugMode = false
	}

	return openLogsDir()
}

// Options carries logging settings resolved by the caller, typically from the
// main YAML config. Passing them here bypasses the .mira/config.json file.
type Options struct {
	DebugMode  bool
	Categories map[string]bool
	Level      string
	JSONFormat bool
}

// InitializeWith sets up logging from caller-provided options instead of
// reading .mira/config.json.
func InitializeWith(ws string, opts Options) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".mira", "logs")

	configMu.Lock()
	config = loggingConfig{
		DebugMode:  opts.DebugMode,
		Categories: opts.Categories,
		Level:      opts.Level,
		JSONFormat: opts.JSONFormat,
	}
	configLoaded = true
	logLevel = parseLevel(opts.Level)
	configMu.Unlock()

	return openLogsDir()
}

// openLogsDir creates the logs directory and writes the boot banner. In
// production mode (debug off) it is a silent no-op.
func openLogsDir() error {
	if !config.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	Boot("=== mira Logging System Initialized ===")
	Boot("Workspace: %s", workspace)
	Boot("Log level: %s", config.Level)
	BootDebug("Logs directory: %s", logsDir)

	return nil
}

// loadConfig reads the logging config from .mira/config.json
func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(workspace, ".mira", "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config = production mode (no logging)
			config.DebugMode = false
			configLoaded = true
			return nil
		}
		return err
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	config = cf.Logging
	configLoaded = true
	logLevel = parseLevel(config.Level)

	return nil
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ReloadConfig reloads the config from disk.
func ReloadConfig() error {
	return loadConfig()
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}

	if config.Categories == nil {
		return true // All enabled by default in debug mode
	}

	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	// Create log file with date prefix for easy rotation
	date := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", date, category)
	logPath := filepath.Join(logsDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l

	return l
}

// logJSON writes a structured JSON log entry
func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg) // Fallback to text
		return
	}
	l.logger.Printf("%s", data)
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// StructuredLog writes a fully structured log entry with custom fields
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}
	if config.JSONFormat {
		data, err := json.Marshal(entry)
		if err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
}

// CloseAll closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Engine logs to the engine category
func Engine(format string, args ...interface{}) {
	Get(CategoryEngine).Info(format, args...)
}

// EngineDebug logs debug to the engine category
func EngineDebug(format string, args ...interface{}) {
	Get(CategoryEngine).Debug(format, args...)
}

// EngineWarn logs warning to the engine category
func EngineWarn(format string, args ...interface{}) {
	Get(CategoryEngine).Warn(format, args...)
}

// Detectors logs to the detectors category
func Detectors(format string, args ...interface{}) {
	Get(CategoryDetectors).Info(format, args...)
}

// DetectorsDebug logs debug to the detectors category
func DetectorsDebug(format string, args ...interface{}) {
	Get(CategoryDetectors).Debug(format, args...)
}

// DetectorsWarn logs warning to the detectors category
func DetectorsWarn(format string, args ...interface{}) {
	Get(CategoryDetectors).Warn(format, args...)
}

// Learning logs to the learning category
func Learning(format string, args ...interface{}) {
	Get(CategoryLearning).Info(format, args...)
}

// LearningDebug logs debug to the learning category
func LearningDebug(format string, args ...interface{}) {
	Get(CategoryLearning).Debug(format, args...)
}

// LearningWarn logs warning to the learning category
func LearningWarn(format string, args ...interface{}) {
	Get(CategoryLearning).Warn(format, args...)
}

// Actions logs to the actions category
func Actions(format string, args ...interface{}) {
	Get(CategoryActions).Info(format, args...)
}

// ActionsDebug logs debug to the actions category
func ActionsDebug(format string, args ...interface{}) {
	Get(CategoryActions).Debug(format, args...)
}

// ActionsWarn logs warning to the actions category
func ActionsWarn(format string, args ...interface{}) {
	Get(CategoryActions).Warn(format, args...)
}

// ActionsError logs error to the actions category
func ActionsError(format string, args ...interface{}) {
	Get(CategoryActions).Error(format, args...)
}

// Audit logs to the audit category
func Audit(format string, args ...interface{}) {
	Get(CategoryAudit).Info(format, args...)
}

// AuditDebug logs debug to the audit category
func AuditDebug(format string, args ...interface{}) {
	Get(CategoryAudit).Debug(format, args...)
}

// Catalog logs to the catalog category
func Catalog(format string, args ...interface{}) {
	Get(CategoryCatalog).Info(format, args...)
}

// CatalogDebug logs debug to the catalog category
func CatalogDebug(format string, args ...interface{}) {
	Get(CategoryCatalog).Debug(format, args...)
}

// CatalogWarn logs warning to the catalog category
func CatalogWarn(format string, args ...interface{}) {
	Get(CategoryCatalog).Warn(format, args...)
}

// Sanitize logs to the sanitize category
func Sanitize(format string, args ...interface{}) {
	Get(CategorySanitize).Info(format, args...)
}

// SanitizeDebug logs debug to the sanitize category
func SanitizeDebug(format string, args ...interface{}) {
	Get(CategorySanitize).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// StoreWarn logs warning to the store category
func StoreWarn(format string, args ...interface{}) {
	Get(CategoryStore).Warn(format, args...)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
