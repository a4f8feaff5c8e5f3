// Package session tracks in-flight runs per caller and supports
// cancelling them, either explicitly or by starting a newer run.
package session

import (
	"context"
	"log/slog"
	"sync"
)

type run struct {
	cancel context.CancelFunc
}

// Manager hands out per-caller run contexts. Starting a run for a
// caller cancels that caller's previous run, so at most one run per
// caller is live at a time.
type Manager struct {
	logger *slog.Logger

	mu   sync.Mutex
	runs map[string]*run
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger.With("component", "session"),
		runs:   make(map[string]*run),
	}
}

// Begin returns a context for a new run by callerID, cancelling any run
// the caller already has in flight. The returned done func must be
// called when the run finishes.
func (m *Manager) Begin(parent context.Context, callerID string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	r := &run{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.runs[callerID]; ok {
		m.logger.Debug("superseding in-flight run", "caller", callerID)
		prev.cancel()
	}
	m.runs[callerID] = r
	m.mu.Unlock()

	done := func() {
		m.mu.Lock()
		// Only clear the slot if it still belongs to this run; a newer
		// run may have replaced it already.
		if m.runs[callerID] == r {
			delete(m.runs, callerID)
		}
		m.mu.Unlock()
		cancel()
	}
	return ctx, done
}

// Cancel aborts the caller's in-flight run, if any. Returns true when
// a run was cancelled.
func (m *Manager) Cancel(callerID string) bool {
	m.mu.Lock()
	r, ok := m.runs[callerID]
	if ok {
		delete(m.runs, callerID)
	}
	m.mu.Unlock()

	if ok {
		m.logger.Debug("cancelled run", "caller", callerID)
		r.cancel()
	}
	return ok
}

// Active reports whether the caller has a run in flight.
func (m *Manager) Active(callerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runs[callerID]
	return ok
}
