// Package behavior defines the behavioral context model: the immutable snapshot
// of session state (current page, navigation history, recent low-level actions)
// that all pattern detection logic reads. The hosting UI shell rebuilds the
// snapshot on every relevant event; nothing in this package mutates it.
package behavior

import (
	"time"
)

// Action type constants for recent low-level actions.
const (
	ActionFormInput      = "form_input"
	ActionFormSubmit     = "form_submit"
	ActionSearch         = "search"
	ActionClick          = "click"
	ActionResultClick    = "result_click"
	ActionFilterApply    = "filter_apply"
	ActionCheckboxToggle = "checkbox_toggle"
	ActionSave           = "save"
)

// Navigation type constants.
const (
	NavTypeForward = "forward"
	NavTypeBack    = "back"
)

// NavigationEntry records one page transition.
type NavigationEntry struct {
	FromPage  string        `json:"from_page"`
	ToPage    string        `json:"to_page"`
	Module    string        `json:"module"`
	Trigger   string        `json:"trigger"`
	TimeSpent time.Duration `json:"time_spent"`
	NavType   string        `json:"nav_type,omitempty"` // e.g. "back"
}

// ActionEntry records one low-level user action.
type ActionEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	ActionType  string    `json:"action_type"`
	ElementID   string    `json:"element_id,omitempty"`
	ElementType string    `json:"element_type,omitempty"`
	Value       string    `json:"value,omitempty"`
}

// Context is the snapshot of session state used for one pattern evaluation.
type Context struct {
	CurrentPage       string                 `json:"current_page"`
	CurrentModule     string                 `json:"current_module"`
	PageData          map[string]interface{} `json:"page_data,omitempty"`
	NavigationHistory []NavigationEntry      `json:"navigation_history"`
	RecentActions     []ActionEntry          `json:"recent_actions"`
	SessionID         string                 `json:"session_id"`
	SessionStart      time.Time              `json:"session_start"`
	PageStart         time.Time              `json:"page_start"`
}

// TimeOnPage returns how long the current page has been open.
func (c *Context) TimeOnPage() time.Duration {
	if c.PageStart.IsZero() {
		return 0
	}
	return time.Since(c.PageStart)
}

// CountActions returns how many recent actions have the given type.
func (c *Context) CountActions(actionType string) int {
	n := 0
	for _, a := range c.RecentActions {
		if a.ActionType == actionType {
			n++
		}
	}
	return n
}

// HasAction reports whether any recent action has the given type.
func (c *Context) HasAction(actionType string) bool {
	for _, a := range c.RecentActions {
		if a.ActionType == actionType {
			return true
		}
	}
	return false
}

// LastNavigation returns the most recent navigation entry, or nil.
func (c *Context) LastNavigation() *NavigationEntry {
	if len(c.NavigationHistory) == 0 {
		return nil
	}
	return &c.NavigationHistory[len(c.NavigationHistory)-1]
}

// PageDataFlag reads a boolean flag from PageData.
// Accepts bool true or the strings "true"/"1".
func (c *Context) PageDataFlag(key string) bool {
	if c.PageData == nil {
		return false
	}
	switch v := c.PageData[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	}
	return false
}
