// Package state provides the scoped key-value state facility processors
// persist their tracking records in.
//
// A Manager stores one small record per scope: a flat map of string keys to
// string values plus a monotonically increasing version. Reads return an
// immutable StateMap snapshot; writes either replace the record outright
// (SetState) or conditionally against the snapshot's version (ReplaceState),
// giving read-modify-write semantics without locks.
//
// # Scopes
//
//   - ScopeLocal: state private to one node. Backed by a bbolt file in
//     production, memory in tests.
//   - ScopeCluster: state shared by every node running the component.
//     Backed by NATS JetStream KV, which provides the read-after-write
//     consistency the processor contract assumes.
//
// # Backends
//
//	// Testing, single process
//	mgr := state.NewMemoryManager()
//
//	// Local scope, file-backed
//	mgr, _ := state.NewBoltManager("/var/lib/pipeline/state.db")
//
//	// Cluster scope over NATS JetStream KV
//	nc, _ := nats.Connect("nats://localhost:4222")
//	mgr, _ := state.NewNATSManager(state.NATSManagerConfig{Conn: nc, Bucket: "pipeline-state"})
//
//	// Separate backends per scope
//	mgr := state.NewRoutingManager(localMgr, clusterMgr)
package state
