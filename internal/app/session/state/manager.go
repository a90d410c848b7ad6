package state

import (
	"context"
	"sync"
	"time"
)

// Manager manages session state with thread-safe access.
//
// Catalog loads are numbered. Beginning a load cancels the one before it,
// and only the latest generation may apply its result.
type Manager struct {
	mu sync.RWMutex

	phase Phase

	generation uint64
	inflight   *Load
	cancel     context.CancelFunc

	source *Source
}

// New creates a new state manager.
func New() *Manager {
	return &Manager{
		phase: PhaseStarting,
	}
}

// GetPhase returns the current session phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// SetPhase sets the session phase.
func (m *Manager) SetPhase(p Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = p
}

// BeginLoad starts a new load generation derived from parent and cancels
// the previous in-flight load.
func (m *Manager) BeginLoad(parent context.Context, kind LoadKind, id int64) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	m.generation++
	m.cancel = cancel
	m.inflight = &Load{
		Generation: m.generation,
		Kind:       kind,
		ID:         id,
		StartedAt:  time.Now(),
	}
	return ctx, m.generation
}

// IsCurrent reports whether gen is the latest load generation.
func (m *Manager) IsCurrent(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return gen == m.generation
}

// EndLoad releases the context of gen. A superseded generation is
// already cancelled and leaves the newer load alone.
func (m *Manager) EndLoad(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.inflight = nil
}

// CancelLoad cancels the in-flight load, if any.
func (m *Manager) CancelLoad() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.inflight = nil
}

// Supersede cancels the in-flight load and advances the generation, so
// a load that is still fetching can no longer apply its result.
func (m *Manager) Supersede() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.generation++
	m.inflight = nil
}

// Inflight returns the in-flight load, or nil.
func (m *Manager) Inflight() *Load {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.inflight == nil {
		return nil
	}
	l := *m.inflight
	return &l
}

// SetSource records where the current queue came from.
func (m *Manager) SetSource(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = &src
}

// ClearSource forgets the source, for queues built by the caller.
func (m *Manager) ClearSource() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = nil
}

// GetSource returns where the current queue came from, or nil.
func (m *Manager) GetSource() *Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.source == nil {
		return nil
	}
	s := *m.source
	return &s
}
