package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mira/internal/learning"
)

var (
	statsJSON bool
	statsWeak float64
)

// statsCmd dumps the learned per-pattern aggregates.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learned pattern statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.Learning.DatabasePath == "" {
			return fmt.Errorf("no learning database configured (learning.database_path)")
		}

		store, err := learning.NewSQLiteStatsStore(cfg.Learning.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open learning store: %w", err)
		}
		defer store.Close()

		service := learning.NewService(store, learning.ServiceOptions{})
		defer service.Destroy()

		var rows []learning.PatternStats
		if statsWeak > 0 {
			rows = service.GetPatternsNeedingImprovement(statsWeak)
		} else {
			rows = service.GetLearnedPatterns()
		}

		if statsJSON {
			return json.NewEncoder(os.Stdout).Encode(rows)
		}

		if len(rows) == 0 {
			fmt.Println("No learned patterns yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PATTERN\tCONFIDENCE\tSUCCESS\tFAILURE\tRATE\tLAST SEEN")
		for _, s := range rows {
			fmt.Fprintf(w, "%s\t%.2f\t%d\t%d\t%.2f\t%s\n",
				s.PatternType, s.ConfidenceScore, s.SuccessCount, s.FailureCount,
				s.SuccessRate(), s.LastSeen.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "emit statistics as JSON")
	statsCmd.Flags().Float64Var(&statsWeak, "below", 0, "only patterns below this confidence, weakest first")
}
