package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mira/internal/actions"
	"mira/internal/bus"
)

var (
	actYes           bool
	actCorrelationID string
)

// consoleHooks is a headless host for batch execution: navigations and
// notifications print to stdout, confirmations read from stdin unless --yes.
type consoleHooks struct {
	path       string
	autoAccept bool
	in         *bufio.Reader
}

func (c *consoleHooks) Navigate(path string, opts actions.NavigateOptions) {
	mode := "push"
	if opts.Replace {
		mode = "replace"
	}
	fmt.Printf("navigate (%s): %s\n", mode, path)
	c.path = path
}

func (c *consoleHooks) CurrentPath() string { return c.path }

func (c *consoleHooks) Notify(message string) {
	fmt.Printf("notice: %s\n", message)
}

func (c *consoleHooks) RequestConfirmation(ctx context.Context, action actions.Action) (bool, error) {
	if c.autoAccept {
		return true, nil
	}
	desc := action.Description
	if desc == "" && action.APICall != nil {
		desc = fmt.Sprintf("%s %s", action.APICall.Method, action.APICall.Endpoint)
	}
	fmt.Printf("confirm %s? [y/N] ", desc)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (c *consoleHooks) AuthHeaders(ctx context.Context) (map[string]string, error) {
	if token := os.Getenv("MIRA_AUTH_TOKEN"); token != "" {
		return map[string]string{"Authorization": "Bearer " + token}, nil
	}
	return nil, nil
}

// actCmd executes a JSON action list against the configured backend.
var actCmd = &cobra.Command{
	Use:   "act <actions.json>",
	Short: "Execute a JSON action list",
	Long: `Reads a JSON array of UI actions and executes it sequentially: navigate
actions print the resolved path, prefill actions publish their payload,
execute actions call the configured backend (gated on confirmation unless
--yes). Outcomes go to the audit file when one is configured.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read action file: %w", err)
		}
		var batch []actions.Action
		if err := json.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("failed to parse action file: %w", err)
		}

		var audit actions.AuditLogger = actions.NopAuditLogger{}
		if cfg.Executor.AuditPath != "" {
			if fileAudit, aerr := actions.NewFileAuditLogger(cfg.Executor.AuditPath); aerr == nil {
				audit = fileAudit
			}
		}

		hooks := &consoleHooks{
			path:       "/",
			autoAccept: actYes,
			in:         bufio.NewReader(cmd.InOrStdin()),
		}

		eventBus := bus.New()
		eventBus.Subscribe(bus.TopicPrefill, func(ev bus.Event) {
			if p, ok := ev.Payload.(actions.PrefillEvent); ok {
				out, _ := json.Marshal(p.Payload)
				fmt.Printf("prefill %s: %s\n", p.Target, out)
			}
		})
		eventBus.Subscribe(bus.TopicPopup, func(ev bus.Event) {
			if p, ok := ev.Payload.(actions.PopupEvent); ok {
				fmt.Printf("popup: %s\n", p.PopupID)
			}
		})

		executor := actions.NewExecutor(hooks, actions.NewStaticPageResolver(nil), eventBus, actions.Options{
			BaseURL: cfg.Executor.BaseURL,
			Audit:   audit,
		})
		defer executor.Close()

		results := executor.ExecuteActions(cmd.Context(), batch, actions.ExecOptions{
			CorrelationID: actCorrelationID,
		})

		failed := 0
		for i, r := range results {
			status := "ok"
			if !r.Success {
				status = "FAILED: " + r.Error
				failed++
			}
			fmt.Printf("[%d] %s  %s\n", i, batch[i].Type, status)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d actions failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	actCmd.Flags().BoolVarP(&actYes, "yes", "y", false, "auto-confirm gated actions")
	actCmd.Flags().StringVar(&actCorrelationID, "correlation-id", "", "correlation id for the batch (default: generated)")
}
