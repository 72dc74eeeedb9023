package flow

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors.
var (
	// ErrSessionClosed indicates the session was already committed or rolled back.
	ErrSessionClosed = errors.New("session closed")

	// ErrNotOwned indicates the flow file was not obtained from this session.
	ErrNotOwned = errors.New("flow file not owned by session")

	// ErrNotTransferred indicates a flow file taken from the queue was never
	// routed to a relationship before Commit.
	ErrNotTransferred = errors.New("flow file not transferred")

	// ErrAlreadyTransferred indicates a flow file was routed twice.
	ErrAlreadyTransferred = errors.New("flow file already transferred")

	// ErrQueueClosed indicates the queue no longer accepts work.
	ErrQueueClosed = errors.New("queue closed")

	// ErrQueueFull indicates the queue is at capacity.
	ErrQueueFull = errors.New("queue full")
)

// Relationship is a named output a processor can route work units to.
type Relationship struct {
	// Name is the routing label. Relationships compare by name.
	Name string

	// Description documents what lands on this output.
	Description string
}

// String returns the relationship name.
func (r Relationship) String() string {
	return r.Name
}

// FlowFile is a single unit of work moving through the pipeline.
// It carries a mutable attribute bag and an opaque payload. FlowFiles are
// ephemeral: they exist for one pass through a processor and are handed off
// whole to the next queue.
type FlowFile struct {
	// ID uniquely identifies this work unit.
	ID string

	// Attributes is the mutable attribute bag.
	Attributes map[string]string

	// Payload is the opaque content; processors here never inspect it.
	Payload []byte

	// EnqueuedAt is when the work unit entered its current queue.
	EnqueuedAt time.Time
}

// New creates a FlowFile with a generated ID and a copy of attrs.
func New(payload []byte, attrs map[string]string) *FlowFile {
	ff := &FlowFile{
		ID:         uuid.NewString(),
		Attributes: make(map[string]string, len(attrs)),
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
	for k, v := range attrs {
		ff.Attributes[k] = v
	}
	return ff
}

// Attribute returns the value for key and whether it is present.
// Absent and empty are distinct: an attribute set to "" is present.
func (f *FlowFile) Attribute(key string) (string, bool) {
	v, ok := f.Attributes[key]
	return v, ok
}

// clone returns a deep copy sharing only the payload bytes.
func (f *FlowFile) clone() *FlowFile {
	c := &FlowFile{
		ID:         f.ID,
		Attributes: make(map[string]string, len(f.Attributes)),
		Payload:    f.Payload,
		EnqueuedAt: f.EnqueuedAt,
	}
	for k, v := range f.Attributes {
		c.Attributes[k] = v
	}
	return c
}
