package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mira/internal/patterns"
)

var (
	patternsJSON     bool
	patternsCategory string
)

// patternsCmd lists the pattern catalog (built-ins plus custom templates).
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the pattern template catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		library := patterns.NewLibrary()
		if cfg.Catalog.PatternsDir != "" {
			if n, err := patterns.LoadTemplateDir(library, cfg.Catalog.PatternsDir); err != nil {
				logger.Warn("Pattern catalog load failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("Loaded custom pattern templates", zap.Int("count", n))
			}
		}

		var templates []*patterns.Template
		if patternsCategory != "" {
			templates = library.ByCategory(patterns.Category(patternsCategory))
		} else {
			templates = library.All()
		}

		if patternsJSON {
			return json.NewEncoder(os.Stdout).Encode(templates)
		}

		if len(templates) == 0 {
			fmt.Println("No templates.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCATEGORY\tTHRESHOLD\tINDICATORS\tACTIONS")
		for _, tpl := range templates {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%d\n",
				tpl.ID, tpl.Category, tpl.ConfidenceThreshold, len(tpl.Indicators), len(tpl.Actions))
		}
		return w.Flush()
	},
}

func init() {
	patternsCmd.Flags().BoolVar(&patternsJSON, "json", false, "emit templates as JSON")
	patternsCmd.Flags().StringVar(&patternsCategory, "category", "", "filter by category (success|struggle|abandonment|exploration)")
}
