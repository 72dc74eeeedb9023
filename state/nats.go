package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSManager implements Manager on NATS JetStream KV. One KV entry per
// scope holds the JSON-encoded record; the entry's revision is the record
// version, so ReplaceState maps directly onto JetStream's optimistic
// concurrency control. JetStream KV gives read-after-write consistency,
// which is what the processor contract assumes of the cluster scope.
type NATSManager struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	kv     jetstream.KeyValue
	config NATSManagerConfig
	closed atomic.Bool
}

// NATSManagerConfig holds NATS KV state manager configuration.
type NATSManagerConfig struct {
	// Conn is the NATS connection to use.
	Conn *nats.Conn

	// Bucket is the KV bucket name.
	Bucket string

	// Timeout bounds each store operation.
	// Default: 5s
	Timeout time.Duration

	// Replicas is the number of KV replicas.
	// Default: 1
	Replicas int
}

// DefaultNATSManagerConfig returns configuration with sensible defaults.
func DefaultNATSManagerConfig() NATSManagerConfig {
	return NATSManagerConfig{
		Bucket:   "processor-state",
		Timeout:  5 * time.Second,
		Replicas: 1,
	}
}

// NewNATSManager creates a state manager backed by a JetStream KV bucket,
// creating the bucket if it does not exist.
func NewNATSManager(cfg NATSManagerConfig) (*NATSManager, error) {
	if cfg.Conn == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	def := DefaultNATSManagerConfig()
	if cfg.Bucket == "" {
		cfg.Bucket = def.Bucket
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Replicas <= 0 {
		cfg.Replicas = def.Replicas
	}

	js, err := jetstream.New(cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:   cfg.Bucket,
		History:  1,
		Replicas: cfg.Replicas,
	})
	if err != nil {
		return nil, fmt.Errorf("kv bucket: %w", err)
	}

	return &NATSManager{
		conn:   cfg.Conn,
		js:     js,
		kv:     kv,
		config: cfg,
	}, nil
}

// GetState returns the current snapshot for a scope.
func (m *NATSManager) GetState(ctx context.Context, scope Scope) (*StateMap, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, err
	}
	if m.closed.Load() {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	entry, err := m.kv.Get(ctx, string(scope))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return EmptyStateMap(), nil
		}
		return nil, fmt.Errorf("kv get: %w", err)
	}

	values, err := decodeRecord(entry.Value())
	if err != nil {
		return nil, err
	}
	return NewStateMap(int64(entry.Revision()), values), nil
}

// SetState replaces the scope's record unconditionally.
func (m *NATSManager) SetState(ctx context.Context, values map[string]string, scope Scope) error {
	if err := ValidateScope(scope); err != nil {
		return err
	}
	if m.closed.Load() {
		return ErrClosed
	}

	data, err := encodeRecord(values)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	if _, err := m.kv.Put(ctx, string(scope), data); err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

// ReplaceState replaces the record only if the snapshot is still current,
// using the KV revision as the compare-and-swap token.
func (m *NATSManager) ReplaceState(ctx context.Context, current *StateMap, values map[string]string, scope Scope) (bool, error) {
	if err := ValidateScope(scope); err != nil {
		return false, err
	}
	if m.closed.Load() {
		return false, ErrClosed
	}

	data, err := encodeRecord(values)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	if current.Version() == NoVersion {
		_, err = m.kv.Create(ctx, string(scope), data)
	} else {
		_, err = m.kv.Update(ctx, string(scope), data, uint64(current.Version()))
	}
	if err != nil {
		// Create on an existing key and Update against a stale revision
		// both surface as a wrong-last-sequence fault.
		if errors.Is(err, jetstream.ErrKeyExists) || isWrongLastSequence(err) {
			return false, nil
		}
		return false, fmt.Errorf("kv replace: %w", err)
	}
	return true, nil
}

// ClearState resets the scope's record to an empty map.
func (m *NATSManager) ClearState(ctx context.Context, scope Scope) error {
	return m.SetState(ctx, map[string]string{}, scope)
}

// Close marks the manager closed. The NATS connection is owned by the
// caller and stays open.
func (m *NATSManager) Close() error {
	m.closed.Store(true)
	return nil
}

// isWrongLastSequence reports whether err is JetStream's optimistic
// concurrency rejection.
func isWrongLastSequence(err error) bool {
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

// encodeRecord serializes a record's values for storage.
func encodeRecord(values map[string]string) ([]byte, error) {
	if values == nil {
		values = map[string]string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode state record: %w", err)
	}
	return data, nil
}

// decodeRecord deserializes a stored record.
func decodeRecord(data []byte) (map[string]string, error) {
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode state record: %w", err)
	}
	return values, nil
}
