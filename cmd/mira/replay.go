package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mira/internal/behavior"
	"mira/internal/patterns"
	"mira/internal/sanitize"
)

var (
	replayJSON  bool
	replayTop   int
	replayLearn bool
)

// replayCmd feeds recorded context snapshots through the matching pipeline.
var replayCmd = &cobra.Command{
	Use:   "replay <snapshots.jsonl>",
	Short: "Replay recorded context snapshots through the pattern engine",
	Long: `Reads a JSONL file of behavioral context snapshots (one JSON object
per line, as captured by the hosting UI) and runs each through the full
matching pipeline, printing ranked matches.

With --learn, every printed match is recorded as an accepted suggestion so
the learning store reflects the replay.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		engine, service, library, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer func() {
			engine.Destroy()
			service.Destroy()
		}()

		if cfg.Catalog.WatchEnabled && cfg.Catalog.PatternsDir != "" {
			// Long replays pick up catalog edits made while they run.
			watcher, werr := patterns.NewCatalogWatcher(cfg.Catalog.PatternsDir, library)
			if werr != nil {
				logger.Warn("Catalog watch unavailable", zap.Error(werr))
			} else if werr := watcher.Start(cmd.Context()); werr == nil {
				defer watcher.Stop()
			}
		}

		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open snapshot file: %w", err)
		}
		defer file.Close()

		start := time.Now()
		snapshots := make(chan *behavior.Context, 16)

		g, ctx := errgroup.WithContext(cmd.Context())

		// Producer: parse one snapshot per line.
		g.Go(func() error {
			defer close(snapshots)
			scanner := bufio.NewScanner(file)
			scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
			line := 0
			for scanner.Scan() {
				line++
				if len(scanner.Bytes()) == 0 {
					continue
				}
				var snap behavior.Context
				if err := json.Unmarshal(scanner.Bytes(), &snap); err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				select {
				case snapshots <- &snap:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return scanner.Err()
		})

		// Consumer: match and print.
		var total, matched int
		g.Go(func() error {
			for snap := range snapshots {
				total++
				clean, _ := sanitize.Sanitize(snap)
				results := engine.MatchPatterns(clean)
				if len(results) == 0 {
					continue
				}
				matched++
				if err := printMatches(total, clean, results); err != nil {
					return err
				}
				if replayLearn {
					for _, r := range results {
						service.RecordSuccess(r.Pattern.Type, map[string]interface{}{"replay": true})
					}
				}
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}

		if !replayJSON {
			fmt.Printf("\n%d snapshots, %d with matches (%s)\n",
				total, matched, formatDuration(time.Since(start)))
		}
		if replayLearn {
			if err := service.Flush(); err != nil {
				logger.Warn("Feedback flush failed", zap.Error(err))
			}
		}
		return nil
	},
}

func printMatches(index int, snap *behavior.Context, results []patterns.MatchResult) error {
	if replayTop > 0 && len(results) > replayTop {
		results = results[:replayTop]
	}

	if replayJSON {
		out := struct {
			Snapshot int                    `json:"snapshot"`
			Page     string                 `json:"page"`
			Matches  []patterns.MatchResult `json:"matches"`
		}{index, snap.CurrentPage, results}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	fmt.Printf("snapshot %d  %s\n", index, snap.CurrentPage)
	for _, r := range results {
		boost := ""
		if r.LearningBoost != 0 {
			boost = fmt.Sprintf(" (boost %+.2f)", r.LearningBoost)
		}
		fmt.Printf("  %-24s %.2f  %s%s\n", r.Pattern.Type, r.Confidence, r.Source, boost)
	}
	return nil
}

func init() {
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "emit matches as JSON lines")
	replayCmd.Flags().IntVar(&replayTop, "top", 0, "print at most N matches per snapshot")
	replayCmd.Flags().BoolVar(&replayLearn, "learn", false, "record matches as accepted feedback")
}
