package state

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryManager implements Manager with in-process storage.
// Useful for testing and single-node pipelines.
type MemoryManager struct {
	mu     sync.Mutex
	scopes map[Scope]*record
	closed atomic.Bool
}

type record struct {
	version int64
	values  map[string]string
}

// NewMemoryManager creates an in-memory state manager supporting both scopes.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		scopes: make(map[Scope]*record),
	}
}

// GetState returns the current snapshot for a scope.
func (m *MemoryManager) GetState(_ context.Context, scope Scope) (*StateMap, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, err
	}
	if m.closed.Load() {
		return nil, ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.scopes[scope]
	if !ok {
		return EmptyStateMap(), nil
	}
	return NewStateMap(rec.version, rec.values), nil
}

// SetState replaces the scope's record unconditionally.
func (m *MemoryManager) SetState(_ context.Context, values map[string]string, scope Scope) error {
	if err := ValidateScope(scope); err != nil {
		return err
	}
	if m.closed.Load() {
		return ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.setLocked(scope, values)
	return nil
}

// ReplaceState replaces the record only if the snapshot is still current.
func (m *MemoryManager) ReplaceState(_ context.Context, current *StateMap, values map[string]string, scope Scope) (bool, error) {
	if err := ValidateScope(scope); err != nil {
		return false, err
	}
	if m.closed.Load() {
		return false, ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := NoVersion
	if rec, ok := m.scopes[scope]; ok {
		stored = rec.version
	}
	if current.Version() != stored {
		return false, nil
	}

	m.setLocked(scope, values)
	return true, nil
}

// ClearState resets the scope's record to an empty map.
func (m *MemoryManager) ClearState(ctx context.Context, scope Scope) error {
	return m.SetState(ctx, map[string]string{}, scope)
}

// Close marks the manager closed. Stored state is discarded.
func (m *MemoryManager) Close() error {
	m.closed.Store(true)
	return nil
}

// setLocked installs a copy of values and bumps the version.
// Caller holds m.mu.
func (m *MemoryManager) setLocked(scope Scope, values map[string]string) {
	rec, ok := m.scopes[scope]
	if !ok {
		rec = &record{version: NoVersion}
		m.scopes[scope] = rec
	}
	rec.version++
	rec.values = make(map[string]string, len(values))
	for k, v := range values {
		rec.values[k] = v
	}
}
