package actions

import (
	"sync"

	"mira/internal/logging"
)

// UndoHandler compensates a previously executed action. Handlers are one-shot:
// running an undo for a correlation id consumes every handler registered
// under it.
type UndoHandler func()

// undoRegistry holds undo handlers keyed by correlation id. Undo is
// compensating-action based, not a transaction abort; currently only navigate
// actions register handlers.
type undoRegistry struct {
	mu       sync.Mutex
	handlers map[string][]UndoHandler
}

func newUndoRegistry() *undoRegistry {
	return &undoRegistry{handlers: make(map[string][]UndoHandler)}
}

// register adds a handler under a correlation id.
func (u *undoRegistry) register(correlationID string, h UndoHandler) {
	if correlationID == "" || h == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handlers[correlationID] = append(u.handlers[correlationID], h)
}

// run consumes and executes all handlers for a correlation id, most recent
// first, and reports how many ran.
func (u *undoRegistry) run(correlationID string) int {
	u.mu.Lock()
	handlers := u.handlers[correlationID]
	delete(u.handlers, correlationID)
	u.mu.Unlock()

	if len(handlers) == 0 {
		return 0
	}

	logging.Actions("Undo for correlation %s: running %d handlers", correlationID, len(handlers))
	for i := len(handlers) - 1; i >= 0; i-- {
		runUndoHandler(handlers[i])
	}
	return len(handlers)
}

// pending reports how many handlers are registered for a correlation id.
func (u *undoRegistry) pending(correlationID string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.handlers[correlationID])
}

func runUndoHandler(h UndoHandler) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.ActionsWarn("Undo handler panicked: %v", rec)
		}
	}()
	h()
}
