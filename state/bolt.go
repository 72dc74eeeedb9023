package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

// boltRecord is the on-disk form of one scope's record.
type boltRecord struct {
	Version int64             `json:"version"`
	Values  map[string]string `json:"values"`
}

const boltRecordKey = "record"

// BoltManager implements Manager on a bbolt file, one bucket per scope.
// Intended for the local scope: durable across restarts, private to one node.
// It will serve the cluster scope too, which is only correct for
// single-node deployments.
type BoltManager struct {
	db     *bolt.DB
	closed atomic.Bool
}

// NewBoltManager opens (or creates) the state file at path.
func NewBoltManager(path string) (*BoltManager, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	return &BoltManager{db: db}, nil
}

// GetState returns the current snapshot for a scope.
func (m *BoltManager) GetState(_ context.Context, scope Scope) (*StateMap, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, err
	}
	if m.closed.Load() {
		return nil, ErrClosed
	}

	snapshot := EmptyStateMap()
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(scope))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(boltRecordKey))
		if raw == nil {
			return nil
		}
		var rec boltRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode state record: %w", err)
		}
		snapshot = NewStateMap(rec.Version, rec.Values)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// SetState replaces the scope's record unconditionally.
func (m *BoltManager) SetState(_ context.Context, values map[string]string, scope Scope) error {
	if err := ValidateScope(scope); err != nil {
		return err
	}
	if m.closed.Load() {
		return ErrClosed
	}

	return m.db.Update(func(tx *bolt.Tx) error {
		_, err := m.writeLocked(tx, scope, values, nil)
		return err
	})
}

// ReplaceState replaces the record only if the snapshot is still current.
// bbolt update transactions are serialized, so the compare and the write
// happen atomically.
func (m *BoltManager) ReplaceState(_ context.Context, current *StateMap, values map[string]string, scope Scope) (bool, error) {
	if err := ValidateScope(scope); err != nil {
		return false, err
	}
	if m.closed.Load() {
		return false, ErrClosed
	}

	expected := current.Version()
	var swapped bool
	err := m.db.Update(func(tx *bolt.Tx) error {
		ok, err := m.writeLocked(tx, scope, values, &expected)
		swapped = ok
		return err
	})
	return swapped, err
}

// ClearState resets the scope's record to an empty map.
func (m *BoltManager) ClearState(ctx context.Context, scope Scope) error {
	return m.SetState(ctx, map[string]string{}, scope)
}

// Close closes the underlying file.
func (m *BoltManager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	return m.db.Close()
}

// writeLocked reads the stored version inside tx, optionally compares it to
// expected, and writes the new record. Returns whether the write happened.
func (m *BoltManager) writeLocked(tx *bolt.Tx, scope Scope, values map[string]string, expected *int64) (bool, error) {
	b, err := tx.CreateBucketIfNotExists([]byte(scope))
	if err != nil {
		return false, fmt.Errorf("create scope bucket: %w", err)
	}

	stored := NoVersion
	if raw := b.Get([]byte(boltRecordKey)); raw != nil {
		var rec boltRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return false, fmt.Errorf("decode state record: %w", err)
		}
		stored = rec.Version
	}

	if expected != nil && *expected != stored {
		return false, nil
	}

	next := boltRecord{
		Version: stored + 1,
		Values:  values,
	}
	if next.Values == nil {
		next.Values = map[string]string{}
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("encode state record: %w", err)
	}
	if err := b.Put([]byte(boltRecordKey), raw); err != nil {
		return false, fmt.Errorf("write state record: %w", err)
	}
	return true, nil
}
