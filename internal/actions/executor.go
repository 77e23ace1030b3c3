package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"mira/internal/bus"
	"mira/internal/logging"
)

// ============================================================================
// HOST HOOKS
// ============================================================================

// NavigateOptions modifies how a navigation lands in the host's history.
type NavigateOptions struct {
	// Replace swaps the current history entry instead of pushing a new one.
	// Undo navigations use replace so that undoing does not grow history.
	Replace bool
}

// Hooks is the surface the hosting UI must provide. The executor never
// touches the UI directly; everything user-facing goes through here.
type Hooks interface {
	// Navigate moves the UI to the resolved path.
	Navigate(path string, opts NavigateOptions)
	// CurrentPath returns the path the UI is on right now.
	CurrentPath() string
	// Notify shows a transient user-facing message.
	Notify(message string)
	// RequestConfirmation asks the user to approve a gated action. A false
	// return without error means the user declined.
	RequestConfirmation(ctx context.Context, action Action) (bool, error)
	// AuthHeaders returns headers to attach to backend calls.
	AuthHeaders(ctx context.Context) (map[string]string, error)
}

// ============================================================================
// EXECUTOR
// ============================================================================

// Options configures an Executor.
type Options struct {
	// BaseURL prefixes every execute endpoint.
	BaseURL string
	// HTTPClient is used for execute calls. Nil gets a 30s-timeout client.
	HTTPClient *http.Client
	// Audit receives every executed-action outcome. Nil disables auditing.
	Audit AuditLogger
}

// ExecOptions scopes one ExecuteActions call.
type ExecOptions struct {
	// CorrelationID groups the batch for auditing and undo. Empty generates
	// a fresh id.
	CorrelationID string
}

// Executor carries out proposed actions strictly in the order given. Each
// action succeeds or fails on its own; a failure never stops the batch and
// never rolls back earlier actions.
type Executor struct {
	hooks    Hooks
	resolver PageResolver
	bus      *bus.Bus
	audit    AuditLogger
	client   *http.Client
	baseURL  string

	undo        *undoRegistry
	unsubscribe func()
}

// NewExecutor wires an executor to its host hooks, page resolver and event
// bus. It subscribes to the undo topic immediately; call Close to release the
// subscription.
func NewExecutor(hooks Hooks, resolver PageResolver, eventBus *bus.Bus, opts Options) *Executor {
	if resolver == nil {
		resolver = NewStaticPageResolver(nil)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	audit := opts.Audit
	if audit == nil {
		audit = NopAuditLogger{}
	}

	e := &Executor{
		hooks:    hooks,
		resolver: resolver,
		bus:      eventBus,
		audit:    audit,
		client:   client,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		undo:     newUndoRegistry(),
	}

	if eventBus != nil {
		e.unsubscribe = eventBus.Subscribe(bus.TopicUndo, e.onUndoEvent)
	}

	return e
}

// Close releases the executor's bus subscription.
func (e *Executor) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// ExecuteActions runs the batch sequentially and returns one Result per
// action, in the same order. The context cancels in-flight backend calls and
// pending confirmations; already completed actions stay completed.
func (e *Executor) ExecuteActions(ctx context.Context, actions []Action, opts ExecOptions) []Result {
	correlationID := opts.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	logging.Actions("Executing %d actions (correlation %s)", len(actions), correlationID)

	results := make([]Result, 0, len(actions))
	for i, action := range actions {
		result := e.executeOne(ctx, action, correlationID)
		results = append(results, result)

		if !result.Success {
			logging.ActionsError("Action %d (%s) failed: %s", i, action.Type, result.Error)
		}

		// Audit is fire-and-forget. A broken sink must not change results.
		_ = e.audit.Log(AuditEntry{
			Timestamp:     time.Now(),
			ActionType:    action.Type,
			Description:   action.Description,
			Success:       result.Success,
			Error:         result.Error,
			CorrelationID: correlationID,
		})
	}

	return results
}

// PendingUndo reports how many undo handlers are registered for a
// correlation id.
func (e *Executor) PendingUndo(correlationID string) int {
	return e.undo.pending(correlationID)
}

// Undo runs and consumes all undo handlers registered under a correlation id.
// It returns the number of handlers executed.
func (e *Executor) Undo(correlationID string) int {
	return e.undo.run(correlationID)
}

func (e *Executor) onUndoEvent(ev bus.Event) {
	id := ev.CorrelationID
	if id == "" {
		if req, ok := ev.Payload.(UndoRequest); ok {
			id = req.ID
		}
	}
	if id == "" {
		logging.ActionsWarn("Undo event without correlation id ignored")
		return
	}
	e.undo.run(id)
}

// ============================================================================
// PER-ACTION DISPATCH
// ============================================================================

func (e *Executor) executeOne(ctx context.Context, action Action, correlationID string) Result {
	var err error
	switch action.Type {
	case ActionNavigate:
		err = e.doNavigate(action, correlationID)
	case ActionPrefill:
		err = e.doPrefill(action, correlationID)
	case ActionExecute:
		err = e.doExecute(ctx, action)
	default:
		err = fmt.Errorf("%w: unknown action type %q", ErrInputShape, action.Type)
	}

	if err != nil {
		return Result{Success: false, Error: err.Error(), CorrelationID: correlationID}
	}
	return Result{Success: true, CorrelationID: correlationID}
}

// doNavigate resolves the target page, records the current path for undo,
// navigates, and raises the attached popup if any.
func (e *Executor) doNavigate(action Action, correlationID string) error {
	if action.Page == "" {
		return fmt.Errorf("%w: navigate action requires a page", ErrInputShape)
	}

	path, err := e.resolver.Resolve(action.Page, action.Params)
	if err != nil {
		return fmt.Errorf("failed to resolve page: %w", err)
	}

	// Capture where we are before moving so undo can take us back.
	previous := e.hooks.CurrentPath()

	logging.Actions("Navigating %s -> %s", previous, path)
	e.hooks.Navigate(path, NavigateOptions{})

	if previous != "" {
		e.undo.register(correlationID, func() {
			logging.Actions("Undoing navigation, returning to %s", previous)
			e.hooks.Navigate(previous, NavigateOptions{Replace: true})
		})
	}

	if action.Popup != "" && e.bus != nil {
		e.bus.Publish(bus.Event{
			Topic:         bus.TopicPopup,
			CorrelationID: correlationID,
			Payload: PopupEvent{
				PopupID:       action.Popup,
				Action:        action,
				CorrelationID: correlationID,
			},
		})
	}

	return nil
}

// doPrefill validates the payload shape, normalizes time values, publishes the
// prefill event and notifies the user. Nothing is dispatched on a malformed
// payload.
func (e *Executor) doPrefill(action Action, correlationID string) error {
	if action.Target == "" {
		return fmt.Errorf("%w: prefill action requires a target", ErrInputShape)
	}

	payload, ok := action.Payload.(map[string]interface{})
	if !ok || payload == nil {
		return fmt.Errorf("%w: prefill payload must be an object", ErrInputShape)
	}

	normalized := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if t, isTime := v.(time.Time); isTime {
			normalized[k] = t.Format(time.RFC3339)
			continue
		}
		normalized[k] = v
	}

	if e.bus != nil {
		e.bus.Publish(bus.Event{
			Topic:         bus.TopicPrefill,
			CorrelationID: correlationID,
			Payload: PrefillEvent{
				Target:        action.Target,
				Payload:       normalized,
				Description:   action.Description,
				CorrelationID: correlationID,
			},
		})
	}

	logging.ActionsDebug("Prefill %s with %d fields", action.Target, len(normalized))
	e.hooks.Notify("Form prepared")
	return nil
}

// doExecute performs the backend call, gated on user confirmation when the
// action requires it.
func (e *Executor) doExecute(ctx context.Context, action Action) error {
	call := action.APICall
	if call == nil || call.Endpoint == "" {
		return fmt.Errorf("%w: execute action requires an api_call", ErrInputShape)
	}

	if action.ConfirmRequired {
		confirmed, err := e.hooks.RequestConfirmation(ctx, action)
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !confirmed {
			return ErrConfirmationDeclined
		}
	}

	method := strings.ToUpper(call.Method)
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if call.Payload != nil {
		data, err := json.Marshal(call.Payload)
		if err != nil {
			return fmt.Errorf("%w: payload not serializable: %v", ErrInputShape, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+call.Endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	headers, err := e.hooks.AuthHeaders(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve auth headers: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logging.Actions("Calling %s %s", method, call.Endpoint)
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
