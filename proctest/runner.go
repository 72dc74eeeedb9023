// Package proctest provides an in-memory harness for exercising processors
// exactly the way the host triggers them: enqueue work units, run the
// processor, then assert on routing and state. Everything runs on the
// memory backends, so tests need no external services.
//
//	r := proctest.NewRunner(processor.NewIdAck())
//	r.Enqueue(nil, nil)
//	if err := r.Run(ctx); err != nil { ... }
//	r.AssertAllTransferred(t, processor.RelSuccess, 1)
package proctest

import (
	"context"
	"testing"

	"github.com/mindils/nifi-id-ack-processor/flow"
	"github.com/mindils/nifi-id-ack-processor/host"
	"github.com/mindils/nifi-id-ack-processor/logging"
	"github.com/mindils/nifi-id-ack-processor/processor"
	"github.com/mindils/nifi-id-ack-processor/state"
	"github.com/mindils/nifi-id-ack-processor/telemetry"
)

// Runner drives one processor instance over in-memory queues and state.
type Runner struct {
	proc        processor.Processor
	source      *flow.Queue
	outputs     map[string]*flow.Queue
	states      state.Manager
	scope       state.Scope
	counters    *telemetry.Counters
	runner      *host.Runner
	transferred map[string][]*flow.FlowFile
}

// NewRunner builds a harness for proc with a memory state manager and one
// output queue per declared relationship.
func NewRunner(proc processor.Processor) *Runner {
	r := &Runner{
		proc:        proc,
		source:      flow.NewQueue(0),
		outputs:     make(map[string]*flow.Queue),
		states:      state.NewMemoryManager(),
		scope:       state.ScopeCluster,
		counters:    telemetry.NewCounters(),
		transferred: make(map[string][]*flow.FlowFile),
	}
	for _, rel := range proc.Relationships() {
		r.outputs[rel.Name] = flow.NewQueue(0)
	}
	r.rebuild()
	return r
}

// rebuild recreates the host runner after wiring changes.
func (r *Runner) rebuild() {
	routes := make(flow.Routes, len(r.outputs))
	for name, q := range r.outputs {
		routes[name] = q
	}
	logger := logging.New()
	logger.SetOutput(discard{})

	runner, err := host.NewRunner(host.Config{
		Source:    r.source,
		Routes:    routes,
		Processor: r.proc,
		States:    r.states,
		Scope:     r.scope,
		Logger:    logger,
		Telemetry: r.counters,
	})
	if err != nil {
		panic("proctest: " + err.Error())
	}
	r.runner = runner
}

// SetStates swaps in a different state manager, e.g. a failing fake.
func (r *Runner) SetStates(mgr state.Manager) {
	r.states = mgr
	r.rebuild()
}

// SetScope changes the scope handed to the processor.
func (r *Runner) SetScope(scope state.Scope) {
	r.scope = scope
	r.rebuild()
}

// States returns the harness state manager for seeding and inspection.
func (r *Runner) States() state.Manager {
	return r.states
}

// Counters returns the telemetry tallies recorded so far.
func (r *Runner) Counters() *telemetry.Counters {
	return r.counters
}

// Enqueue adds a work unit to the source queue and returns it.
func (r *Runner) Enqueue(payload []byte, attrs map[string]string) *flow.FlowFile {
	ff := flow.New(payload, attrs)
	if err := r.source.Enqueue(ff); err != nil {
		panic("proctest: " + err.Error())
	}
	return ff
}

// Run triggers the processor once, then collects anything delivered to the
// output queues. Returns the invocation error, if any.
func (r *Runner) Run(ctx context.Context) error {
	err := r.runner.TriggerOnce(ctx)
	r.collect()
	return err
}

// RunN triggers the processor n times, stopping at the first error.
func (r *Runner) RunN(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := r.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// collect drains output queues into the cumulative transfer log.
func (r *Runner) collect() {
	for name, q := range r.outputs {
		for _, ff := range q.Drain() {
			r.transferred[name] = append(r.transferred[name], ff)
		}
	}
}

// Transferred returns every work unit routed to rel so far.
func (r *Runner) Transferred(rel flow.Relationship) []*flow.FlowFile {
	return r.transferred[rel.Name]
}

// Pending returns how many work units remain on the source queue.
func (r *Runner) Pending() int {
	return r.source.Len()
}

// AssertAllTransferred fails the test unless exactly count work units went
// to rel and none went anywhere else.
func (r *Runner) AssertAllTransferred(t testing.TB, rel flow.Relationship, count int) {
	t.Helper()
	for name, ffs := range r.transferred {
		switch name {
		case rel.Name:
			if len(ffs) != count {
				t.Errorf("expected %d on %q, got %d", count, name, len(ffs))
			}
		default:
			if len(ffs) != 0 {
				t.Errorf("expected nothing on %q, got %d", name, len(ffs))
			}
		}
	}
	if len(r.transferred[rel.Name]) != count {
		t.Errorf("expected %d on %q, got %d", count, rel.Name, len(r.transferred[rel.Name]))
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
