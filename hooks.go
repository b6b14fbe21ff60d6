package bomsync

import (
	gosync "sync"

	"github.com/agentstation/bomsync/pkg/status"
	"github.com/agentstation/bomsync/pkg/sync"
	"github.com/agentstation/bomsync/pkg/transaction"
)

// Hook function types for reconciliation events
type (
	// StatusChangedHook is called after an entity moves to a new status
	StatusChangedHook func(t status.Transition)

	// PushedHook is called after a push ends, with err set when it failed
	PushedHook func(identity string, res *sync.Result, err error)

	// RolledBackHook is called after a rollback finishes
	RolledBackHook func(txID string, res transaction.RollbackResult)
)

// hooks manages event callbacks
type hooks struct {
	mu              gosync.RWMutex
	onStatusChanged []StatusChangedHook
	onPushed        []PushedHook
	onRolledBack    []RolledBackHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnStatusChanged registers a callback for status transitions
func (h *hooks) OnStatusChanged(fn StatusChangedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStatusChanged = append(h.onStatusChanged, fn)
}

// OnPushed registers a callback for finished pushes
func (h *hooks) OnPushed(fn PushedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPushed = append(h.onPushed, fn)
}

// OnRolledBack registers a callback for finished rollbacks
func (h *hooks) OnRolledBack(fn RolledBackHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRolledBack = append(h.onRolledBack, fn)
}

func (h *hooks) triggerStatusChanged(t status.Transition) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onStatusChanged {
		hook(t)
	}
}

func (h *hooks) triggerPushed(identity string, res *sync.Result, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onPushed {
		hook(identity, res, err)
	}
}

func (h *hooks) triggerRolledBack(txID string, res transaction.RollbackResult) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onRolledBack {
		hook(txID, res)
	}
}
