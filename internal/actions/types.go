// Package actions implements the UI action execution protocol: a declarative
// list of proposed actions is carried out strictly in order, with confirmation
// gating on backend mutations, per-action failure isolation, correlation-scoped
// undo for navigations, and a fire-and-forget audit trail.
package actions

import (
	"errors"
	"time"
)

// ActionType discriminates the UIAction union.
type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionPrefill  ActionType = "frontend_prefill"
	ActionExecute  ActionType = "execute"
)

// APICall describes the backend call of an execute action.
type APICall struct {
	Method   string                 `json:"method"`
	Endpoint string                 `json:"endpoint"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

// Action is one proposed UI action. Which fields apply depends on Type:
//
//	navigate:         Page, Params, Popup
//	frontend_prefill: Target, Payload, Description
//	execute:          APICall, ConfirmRequired, Description
//
// Every action is independently executable; the executor never rolls back an
// earlier successful action because a later one failed.
type Action struct {
	Type ActionType `json:"action"`

	// navigate
	Page   string            `json:"page,omitempty"`
	Params map[string]string `json:"params,omitempty"`
	// Popup is a side channel on navigate: a popup id to raise after the
	// navigation lands.
	Popup string `json:"popup,omitempty"`

	// frontend_prefill
	Target  string      `json:"target,omitempty"`
	Payload interface{} `json:"payload,omitempty"`

	// execute
	APICall         *APICall `json:"api_call,omitempty"`
	ConfirmRequired bool     `json:"confirm_required,omitempty"`

	Description string `json:"description,omitempty"`
}

// Result is the outcome of one submitted action.
type Result struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Error taxonomy. Input-shape errors are the only hard failure category;
// everything else is reported per-action and never propagated.
var (
	// ErrInputShape marks a malformed action payload; the action fails fast
	// with no side effect attempted.
	ErrInputShape = errors.New("invalid action payload")
	// ErrConfirmationDeclined marks a user-level cancellation; the backend
	// call is never attempted.
	ErrConfirmationDeclined = errors.New("action cancelled by user")
)

// AuditEntry is one executed-action outcome for the audit trail.
type AuditEntry struct {
	Timestamp     time.Time  `json:"timestamp"`
	ActionType    ActionType `json:"action_type"`
	Description   string     `json:"description,omitempty"`
	Success       bool       `json:"success"`
	Error         string     `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// PrefillEvent is the payload published on bus topic mira:prefill.
type PrefillEvent struct {
	Target        string                 `json:"target"`
	Payload       map[string]interface{} `json:"payload"`
	Description   string                 `json:"description,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
}

// PopupEvent is the payload published on bus topic mira:popup.
type PopupEvent struct {
	PopupID       string `json:"popup_id"`
	Action        Action `json:"action"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// UndoRequest is the payload expected on bus topic mira:auto-actions:undo.
type UndoRequest struct {
	ID string `json:"id"` // correlation id
}
