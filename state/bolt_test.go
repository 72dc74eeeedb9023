package state

import (
	"context"
	"path/filepath"
	"testing"
)

func newBoltManager(t *testing.T) *BoltManager {
	t.Helper()
	m, err := NewBoltManager(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewBoltManager failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestBoltManager_GetNeverWritten(t *testing.T) {
	m := newBoltManager(t)

	snap, err := m.GetState(context.Background(), ScopeLocal)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if snap.Version() != NoVersion {
		t.Errorf("expected NoVersion, got %d", snap.Version())
	}
}

func TestBoltManager_SetGet(t *testing.T) {
	m := newBoltManager(t)
	ctx := context.Background()

	if err := m.SetState(ctx, map[string]string{"lastSentId": "abc"}, ScopeLocal); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	snap, err := m.GetState(ctx, ScopeLocal)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if snap.Get("lastSentId") != "abc" {
		t.Errorf("expected abc, got %q", snap.Get("lastSentId"))
	}
}

func TestBoltManager_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	m, err := NewBoltManager(path)
	if err != nil {
		t.Fatalf("NewBoltManager failed: %v", err)
	}
	if err := m.SetState(ctx, map[string]string{"k": "survives"}, ScopeLocal); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewBoltManager(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	snap, err := reopened.GetState(ctx, ScopeLocal)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if snap.Get("k") != "survives" {
		t.Errorf("state lost across reopen, got %q", snap.Get("k"))
	}
}

func TestBoltManager_ReplaceState(t *testing.T) {
	m := newBoltManager(t)
	ctx := context.Background()

	snap, _ := m.GetState(ctx, ScopeLocal)

	ok, err := m.ReplaceState(ctx, snap, map[string]string{"k": "v1"}, ScopeLocal)
	if err != nil || !ok {
		t.Fatalf("first replace should succeed, ok=%v err=%v", ok, err)
	}

	ok, err = m.ReplaceState(ctx, snap, map[string]string{"k": "v2"}, ScopeLocal)
	if err != nil {
		t.Fatalf("ReplaceState failed: %v", err)
	}
	if ok {
		t.Error("stale snapshot should be rejected")
	}

	got, _ := m.GetState(ctx, ScopeLocal)
	if got.Get("k") != "v1" {
		t.Errorf("rejected replace must not write; got %q", got.Get("k"))
	}
}

func TestBoltManager_ScopesAreIndependent(t *testing.T) {
	m := newBoltManager(t)
	ctx := context.Background()

	m.SetState(ctx, map[string]string{"k": "local"}, ScopeLocal)

	cluster, _ := m.GetState(ctx, ScopeCluster)
	if cluster.Version() != NoVersion {
		t.Error("local write should not create cluster state")
	}
}

func TestBoltManager_ClearState(t *testing.T) {
	m := newBoltManager(t)
	ctx := context.Background()

	m.SetState(ctx, map[string]string{"k": "v"}, ScopeLocal)
	if err := m.ClearState(ctx, ScopeLocal); err != nil {
		t.Fatalf("ClearState failed: %v", err)
	}

	snap, _ := m.GetState(ctx, ScopeLocal)
	if len(snap.ToMap()) != 0 {
		t.Error("cleared scope should be empty")
	}
	if snap.Version() == NoVersion {
		t.Error("cleared scope should keep a real version")
	}
}

func TestBoltManager_Closed(t *testing.T) {
	m := newBoltManager(t)
	m.Close()

	if _, err := m.GetState(context.Background(), ScopeLocal); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
