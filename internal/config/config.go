// Package config holds mira configuration: engine tuning, learning persistence,
// action execution endpoints, catalog paths and logging controls.
// Config is loaded from .mira/config.yaml with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all mira configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Pattern matching engine tuning
	Engine EngineConfig `yaml:"engine"`

	// Learning service and stats persistence
	Learning LearningConfig `yaml:"learning"`

	// UI action executor
	Executor ExecutorConfig `yaml:"executor"`

	// Pattern template catalog
	Catalog CatalogConfig `yaml:"catalog"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the pattern matching engine.
type EngineConfig struct {
	EnableLearning   bool    `yaml:"enable_learning"`
	EnableStreaming  bool    `yaml:"enable_streaming"`
	MinConfidence    float64 `yaml:"min_confidence"`
	MaxPatterns      int     `yaml:"max_patterns"`
	IncludeDetectors bool    `yaml:"include_detectors"`
	IncludeLibrary   bool    `yaml:"include_library"`
	StreamBufferSize int     `yaml:"stream_buffer_size"`
	StreamInterval   string  `yaml:"stream_interval"`
}

// LearningConfig configures the learning service.
type LearningConfig struct {
	DatabasePath  string `yaml:"database_path"`
	QueueSize     int    `yaml:"queue_size"`
	FlushInterval string `yaml:"flush_interval"`
}

// ExecutorConfig configures the UI action executor.
type ExecutorConfig struct {
	BaseURL     string `yaml:"base_url"`
	HTTPTimeout string `yaml:"http_timeout"`
	AuditPath   string `yaml:"audit_path"`
}

// CatalogConfig configures the pattern template catalog.
type CatalogConfig struct {
	// Directory holding additional *.yaml template files
	PatternsDir string `yaml:"patterns_dir"`
	// Enable fsnotify hot reload of the patterns directory
	WatchEnabled bool `yaml:"watch_enabled"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode"`
	Categories map[string]bool `yaml:"categories" json:"categories"`
	Level      string          `yaml:"level" json:"level"`   // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format" json:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "mira",
		Version: "0.3.0",

		Engine: EngineConfig{
			EnableLearning:   true,
			EnableStreaming:  true,
			MinConfidence:    0.5,
			MaxPatterns:      5,
			IncludeDetectors: true,
			IncludeLibrary:   true,
			StreamBufferSize: 100,
			StreamInterval:   "30s",
		},

		Learning: LearningConfig{
			DatabasePath:  ".mira/pattern_stats.db",
			QueueSize:     10,
			FlushInterval: "60s",
		},

		Executor: ExecutorConfig{
			BaseURL:     "",
			HTTPTimeout: "30s",
			AuditPath:   ".mira/logs/actions.jsonl",
		},

		Catalog: CatalogConfig{
			PatternsDir:  ".mira/patterns",
			WatchEnabled: false,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
// Missing file returns defaults; environment overrides always apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("MIRA_BASE_URL"); url != "" {
		c.Executor.BaseURL = url
	}
	if path := os.Getenv("MIRA_DB"); path != "" {
		c.Learning.DatabasePath = path
	}
	if dir := os.Getenv("MIRA_PATTERNS_DIR"); dir != "" {
		c.Catalog.PatternsDir = dir
	}
	if v := os.Getenv("MIRA_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Engine.MinConfidence = f
		}
	}
	if v := os.Getenv("MIRA_MAX_PATTERNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.MaxPatterns = n
		}
	}
	if v := os.Getenv("MIRA_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// GetStreamInterval returns the streaming scan interval as a duration.
func (c *Config) GetStreamInterval() time.Duration {
	d, err := time.ParseDuration(c.Engine.StreamInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetFlushInterval returns the learning flush interval as a duration.
func (c *Config) GetFlushInterval() time.Duration {
	d, err := time.ParseDuration(c.Learning.FlushInterval)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetHTTPTimeout returns the executor HTTP timeout as a duration.
func (c *Config) GetHTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.Executor.HTTPTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence must be in [0,1], got %f", c.Engine.MinConfidence)
	}
	if c.Engine.MaxPatterns <= 0 {
		return fmt.Errorf("engine.max_patterns must be positive, got %d", c.Engine.MaxPatterns)
	}
	if c.Engine.StreamBufferSize <= 0 {
		return fmt.Errorf("engine.stream_buffer_size must be positive, got %d", c.Engine.StreamBufferSize)
	}
	if c.Learning.QueueSize <= 0 {
		return fmt.Errorf("learning.queue_size must be positive, got %d", c.Learning.QueueSize)
	}
	return nil
}

// DefaultConfigPath returns the path of the config file under the workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(workspace, ".mira", "config.yaml")
}

// FindWorkspaceRoot walks upward from the working directory looking for a
// .mira directory. Falls back to the working directory itself.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, ".mira")); err == nil {
			return d, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return dir, nil
}
