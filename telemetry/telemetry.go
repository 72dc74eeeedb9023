// Package telemetry records pipeline events: invocations committed and
// rolled back, work units routed, faults. Exporters are deliberately dumb
// sinks; the host loop decides what to record.
package telemetry

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event names emitted by the host trigger loop.
const (
	EventCommitted = "invocation_committed"
	EventFault     = "invocation_fault"
	EventRouted    = "flowfile_routed"
)

// Event is one pipeline occurrence.
type Event struct {
	Name      string            `json:"name"`
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Exporter is the interface for telemetry sinks.
type Exporter interface {
	// Record accepts one event. Must be safe for concurrent use and must
	// never block the trigger loop for long.
	Record(event Event)
	// Flush sends any buffered data.
	Flush() error
	// Close flushes and releases the exporter.
	Close() error
}

// Nop is an Exporter that discards everything.
type Nop struct{}

func (Nop) Record(Event) {}
func (Nop) Flush() error { return nil }
func (Nop) Close() error { return nil }

// WriterExporter writes events as JSON lines to an io.Writer.
type WriterExporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterExporter creates an exporter writing JSON lines to w.
func NewWriterExporter(w io.Writer) *WriterExporter {
	return &WriterExporter{enc: json.NewEncoder(w)}
}

// Record writes the event as one JSON line. Encoding errors are dropped;
// telemetry must never fail an invocation.
func (e *WriterExporter) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.enc.Encode(event)
}

// Flush is a no-op; lines are written as they are recorded.
func (e *WriterExporter) Flush() error { return nil }

// Close flushes. The underlying writer is owned by the caller.
func (e *WriterExporter) Close() error { return e.Flush() }

// Counters tallies events by name, and routed events additionally by
// relationship. Useful in tests and for periodic operator snapshots.
type Counters struct {
	mu     sync.Mutex
	byName map[string]int
	byRel  map[string]int
}

// NewCounters creates an empty tally.
func NewCounters() *Counters {
	return &Counters{
		byName: make(map[string]int),
		byRel:  make(map[string]int),
	}
}

// Record tallies the event.
func (c *Counters) Record(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[event.Name]++
	if event.Name == EventRouted {
		c.byRel[event.Fields["relationship"]]++
	}
}

// Count returns how many events with this name were recorded.
func (c *Counters) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byName[name]
}

// Routed returns how many work units were routed to the relationship.
func (c *Counters) Routed(relationship string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byRel[relationship]
}

// Snapshot returns a copy of the per-name tallies.
func (c *Counters) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.byName))
	for k, v := range c.byName {
		out[k] = v
	}
	return out
}

// Flush is a no-op.
func (c *Counters) Flush() error { return nil }

// Close is a no-op.
func (c *Counters) Close() error { return nil }

// Multi fans one event out to several exporters.
type Multi []Exporter

// Record forwards to every exporter.
func (m Multi) Record(event Event) {
	for _, e := range m {
		e.Record(event)
	}
}

// Flush flushes every exporter, returning the first error.
func (m Multi) Flush() error {
	var first error
	for _, e := range m {
		if err := e.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every exporter, returning the first error.
func (m Multi) Close() error {
	var first error
	for _, e := range m {
		if err := e.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
