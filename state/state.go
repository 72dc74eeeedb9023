package state

import (
	"context"
	"errors"
)

// Common errors.
var (
	ErrClosed           = errors.New("state manager closed")
	ErrInvalidScope     = errors.New("invalid scope")
	ErrScopeUnsupported = errors.New("scope not supported by this backend")
)

// Scope identifies where a record lives: on one node or across the cluster.
type Scope string

const (
	// ScopeLocal is node-private state.
	ScopeLocal Scope = "local"

	// ScopeCluster is state shared consistently across the cluster.
	ScopeCluster Scope = "cluster"
)

// String returns the scope name.
func (s Scope) String() string {
	return string(s)
}

// ValidateScope checks that a scope is one of the two known scopes.
func ValidateScope(scope Scope) error {
	switch scope {
	case ScopeLocal, ScopeCluster:
		return nil
	default:
		return ErrInvalidScope
	}
}

// NoVersion is the StateMap version before any state has been stored.
const NoVersion int64 = -1

// StateMap is an immutable snapshot of one scope's record.
type StateMap struct {
	version int64
	values  map[string]string
}

// NewStateMap builds a snapshot from a version and values. The values map
// is copied; callers keep ownership of theirs.
func NewStateMap(version int64, values map[string]string) *StateMap {
	m := &StateMap{
		version: version,
		values:  make(map[string]string, len(values)),
	}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// EmptyStateMap returns the snapshot of a scope that has never been written.
func EmptyStateMap() *StateMap {
	return &StateMap{version: NoVersion, values: map[string]string{}}
}

// Version returns the record version, or NoVersion when the scope has never
// been written.
func (m *StateMap) Version() int64 {
	return m.version
}

// Get returns the value for key, or "" when absent. Use ToMap when the
// absent/empty distinction matters.
func (m *StateMap) Get(key string) string {
	return m.values[key]
}

// ToMap returns a copy of the stored values.
func (m *StateMap) ToMap() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Manager is the scoped state facility contract.
//
// All methods take a context so store-backed implementations can bound
// their I/O; memory implementations ignore it.
type Manager interface {
	// GetState returns the current snapshot for a scope. A scope that has
	// never been written yields an empty snapshot with Version() == NoVersion,
	// not an error.
	GetState(ctx context.Context, scope Scope) (*StateMap, error)

	// SetState replaces the scope's record unconditionally.
	SetState(ctx context.Context, values map[string]string, scope Scope) error

	// ReplaceState replaces the scope's record only if it has not changed
	// since the given snapshot was taken. Returns false (and no error) when
	// the version no longer matches.
	ReplaceState(ctx context.Context, current *StateMap, values map[string]string, scope Scope) (bool, error)

	// ClearState resets the scope's record to an empty map. The version
	// keeps advancing; cleared is not the same as never written.
	ClearState(ctx context.Context, scope Scope) error

	// Close releases backend resources.
	Close() error
}

// RoutingManager dispatches each scope to its own backend, mirroring hosts
// that pair a node-local state provider with a cluster-wide one.
type RoutingManager struct {
	local   Manager
	cluster Manager
}

// NewRoutingManager composes a local-scope and a cluster-scope backend.
func NewRoutingManager(local, cluster Manager) *RoutingManager {
	return &RoutingManager{local: local, cluster: cluster}
}

func (r *RoutingManager) pick(scope Scope) (Manager, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, err
	}
	if scope == ScopeLocal {
		return r.local, nil
	}
	return r.cluster, nil
}

// GetState routes to the scope's backend.
func (r *RoutingManager) GetState(ctx context.Context, scope Scope) (*StateMap, error) {
	m, err := r.pick(scope)
	if err != nil {
		return nil, err
	}
	return m.GetState(ctx, scope)
}

// SetState routes to the scope's backend.
func (r *RoutingManager) SetState(ctx context.Context, values map[string]string, scope Scope) error {
	m, err := r.pick(scope)
	if err != nil {
		return err
	}
	return m.SetState(ctx, values, scope)
}

// ReplaceState routes to the scope's backend.
func (r *RoutingManager) ReplaceState(ctx context.Context, current *StateMap, values map[string]string, scope Scope) (bool, error) {
	m, err := r.pick(scope)
	if err != nil {
		return false, err
	}
	return m.ReplaceState(ctx, current, values, scope)
}

// ClearState routes to the scope's backend.
func (r *RoutingManager) ClearState(ctx context.Context, scope Scope) error {
	m, err := r.pick(scope)
	if err != nil {
		return err
	}
	return m.ClearState(ctx, scope)
}

// Close closes both backends, returning the first error encountered.
func (r *RoutingManager) Close() error {
	errLocal := r.local.Close()
	errCluster := r.cluster.Close()
	if errLocal != nil {
		return errLocal
	}
	return errCluster
}
