package state

import (
	"context"
	"testing"
)

// ============================================================================
// LEVEL 1: Unit Tests — Get/Set/Replace/Clear semantics
// ============================================================================

func TestMemoryManager_GetNeverWritten(t *testing.T) {
	m := NewMemoryManager()
	defer m.Close()

	snap, err := m.GetState(context.Background(), ScopeCluster)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if snap.Version() != NoVersion {
		t.Errorf("expected NoVersion, got %d", snap.Version())
	}
	if len(snap.ToMap()) != 0 {
		t.Error("never-written scope should be empty")
	}
}

func TestMemoryManager_SetGet(t *testing.T) {
	m := NewMemoryManager()
	defer m.Close()
	ctx := context.Background()

	values := map[string]string{"lastSentId": "abc"}
	if err := m.SetState(ctx, values, ScopeCluster); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	snap, err := m.GetState(ctx, ScopeCluster)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if snap.Get("lastSentId") != "abc" {
		t.Errorf("expected abc, got %q", snap.Get("lastSentId"))
	}
	if snap.Version() == NoVersion {
		t.Error("written scope should have a real version")
	}
}

func TestMemoryManager_VersionAdvances(t *testing.T) {
	m := NewMemoryManager()
	defer m.Close()
	ctx := context.Background()

	m.SetState(ctx, map[string]string{"a": "1"}, ScopeCluster)
	first, _ := m.GetState(ctx, ScopeCluster)

	m.SetState(ctx, map[string]string{"a": "2"}, ScopeCluster)
	second, _ := m.GetState(ctx, ScopeCluster)

	if second.Version() <= first.Version() {
		t.Errorf("version should advance: %d then %d", first.Version(), second.Version())
	}
}

func TestMemoryManager_ScopesAreIndependent(t *testing.T) {
	m := NewMemoryManager()
	defer m.Close()
	ctx := context.Background()

	m.SetState(ctx, map[string]string{"k": "cluster"}, ScopeCluster)

	local, _ := m.GetState(ctx, ScopeLocal)
	if local.Version() != NoVersion {
		t.Error("cluster write should not create local state")
	}
}

func TestMemoryManager_ReplaceState(t *testing.T) {
	m := NewMemoryManager()
	defer m.Close()
	ctx := context.Background()

	snap, _ := m.GetState(ctx, ScopeCluster)

	ok, err := m.ReplaceState(ctx, snap, map[string]string{"k": "v1"}, ScopeCluster)
	if err != nil {
		t.Fatalf("ReplaceState failed: %v", err)
	}
	if !ok {
		t.Fatal("replace against a fresh snapshot should succeed")
	}

	// The old snapshot is now stale.
	ok, err = m.ReplaceState(ctx, snap, map[string]string{"k": "v2"}, ScopeCluster)
	if err != nil {
		t.Fatalf("ReplaceState failed: %v", err)
	}
	if ok {
		t.Error("replace with a stale snapshot should be rejected")
	}

	got, _ := m.GetState(ctx, ScopeCluster)
	if got.Get("k") != "v1" {
		t.Errorf("rejected replace must not write; got %q", got.Get("k"))
	}
}

func TestMemoryManager_ReplaceAfterRefresh(t *testing.T) {
	m := NewMemoryManager()
	defer m.Close()
	ctx := context.Background()

	m.SetState(ctx, map[string]string{"k": "v1"}, ScopeCluster)

	fresh, _ := m.GetState(ctx, ScopeCluster)
	ok, err := m.ReplaceState(ctx, fresh, map[string]string{"k": "v2"}, ScopeCluster)
	if err != nil || !ok {
		t.Fatalf("replace with fresh snapshot should succeed, ok=%v err=%v", ok, err)
	}
}

func TestMemoryManager_ClearState(t *testing.T) {
	m := NewMemoryManager()
	defer m.Close()
	ctx := context.Background()

	m.SetState(ctx, map[string]string{"k": "v"}, ScopeCluster)
	if err := m.ClearState(ctx, ScopeCluster); err != nil {
		t.Fatalf("ClearState failed: %v", err)
	}

	snap, _ := m.GetState(ctx, ScopeCluster)
	if len(snap.ToMap()) != 0 {
		t.Error("cleared scope should be empty")
	}
	// Cleared is not the same as never written.
	if snap.Version() == NoVersion {
		t.Error("cleared scope should keep a real version")
	}
}

func TestMemoryManager_Closed(t *testing.T) {
	m := NewMemoryManager()
	m.Close()
	ctx := context.Background()

	if _, err := m.GetState(ctx, ScopeCluster); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := m.SetState(ctx, nil, ScopeCluster); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := m.ReplaceState(ctx, EmptyStateMap(), nil, ScopeCluster); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryManager_InvalidScope(t *testing.T) {
	m := NewMemoryManager()
	defer m.Close()

	if _, err := m.GetState(context.Background(), Scope("nope")); err != ErrInvalidScope {
		t.Errorf("expected ErrInvalidScope, got %v", err)
	}
}

func TestMemoryManager_SnapshotIsolation(t *testing.T) {
	m := NewMemoryManager()
	defer m.Close()
	ctx := context.Background()

	src := map[string]string{"k": "v"}
	m.SetState(ctx, src, ScopeCluster)
	src["k"] = "mutated"

	snap, _ := m.GetState(ctx, ScopeCluster)
	if snap.Get("k") != "v" {
		t.Error("stored state should not alias the caller's map")
	}
}
