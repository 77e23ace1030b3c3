package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mira/internal/config"
	"mira/internal/learning"
	"mira/internal/logging"
	"mira/internal/patterns"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mira",
	Short: "mira - behavioral pattern engine",
	Long: `mira watches UI event streams for behavioral patterns, learns from
feedback which suggestions users actually accept, and drives assistive
UI actions (navigation, form prefill, gated backend calls).

The engine itself is a library; this CLI replays recorded event streams,
inspects learned statistics and lists the pattern catalog.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace == "" {
			if ws, err := config.FindWorkspaceRoot(); err == nil {
				workspace = ws
			} else {
				workspace = "."
			}
		}

		// The file logger takes its settings from the main YAML config, so
		// MIRA_DEBUG and the logging: section reach it.
		cfg := loadConfig()
		if err := logging.InitializeWith(workspace, logging.Options{
			DebugMode:  cfg.Logging.DebugMode,
			Categories: cfg.Logging.Categories,
			Level:      cfg.Logging.Level,
			JSONFormat: cfg.Logging.JSONFormat,
		}); err != nil {
			logger.Warn("File logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var loadedCfg *config.Config

// loadConfig loads the workspace config once and caches it; the pre-run hook
// and each subcommand share the same instance.
func loadConfig() *config.Config {
	if loadedCfg != nil {
		return loadedCfg
	}
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath(workspace)
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Warn("Config load failed, using defaults", zap.Error(err))
		cfg = config.DefaultConfig()
	}
	loadedCfg = cfg
	return cfg
}

// buildEngine assembles the matching pipeline from config. The caller owns
// the returned engine and service and must Destroy both; the library is the
// one the engine matches against, so catalog reloads can target it.
func buildEngine(cfg *config.Config) (*patterns.Engine, *learning.Service, *patterns.Library, error) {
	var store learning.StatsStore
	if cfg.Learning.DatabasePath != "" {
		var err error
		store, err = learning.NewSQLiteStatsStore(cfg.Learning.DatabasePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open learning store: %w", err)
		}
	} else {
		store = learning.NewMemoryStatsStore()
	}

	service := learning.NewService(store, learning.ServiceOptions{
		QueueSize:     cfg.Learning.QueueSize,
		FlushInterval: cfg.GetFlushInterval(),
	})

	library := patterns.NewLibrary()
	if cfg.Catalog.PatternsDir != "" {
		if n, err := patterns.LoadTemplateDir(library, cfg.Catalog.PatternsDir); err != nil {
			logger.Warn("Pattern catalog load failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("Loaded custom pattern templates", zap.Int("count", n))
		}
	}

	engine := patterns.NewEngine(patterns.Options{
		EnableLearning:   cfg.Engine.EnableLearning,
		EnableStreaming:  cfg.Engine.EnableStreaming,
		MinConfidence:    cfg.Engine.MinConfidence,
		MaxPatterns:      cfg.Engine.MaxPatterns,
		IncludeDetectors: cfg.Engine.IncludeDetectors,
		IncludeLibrary:   cfg.Engine.IncludeLibrary,
		StreamBufferSize: cfg.Engine.StreamBufferSize,
		StreamInterval:   cfg.GetStreamInterval(),
	}, patterns.NewDetectorRegistry(), library, service)

	return engine, service, library, nil
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace root (default: auto-detect)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(actCmd)
	rootCmd.AddCommand(initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initCmd writes a default config into the workspace.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .mira/config.yaml into the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		path := config.DefaultConfigPath(workspace)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
