package processor

import (
	"context"

	"github.com/mindils/nifi-id-ack-processor/flow"
	"github.com/mindils/nifi-id-ack-processor/logging"
	"github.com/mindils/nifi-id-ack-processor/state"
	"github.com/mindils/nifi-id-ack-processor/telemetry"
)

// Processor is the plugin contract the host trigger loop drives.
//
// OnTrigger is called once per scheduling opportunity with a fresh Session.
// A processor takes zero or one work units from the session, routes what it
// takes, and returns. A nil return tells the host to commit the session; a
// non-nil error tells it to roll back, leaving the work unit pending.
// Hosts call OnTrigger serially: at most one invocation runs at a time for
// a given processor instance.
type Processor interface {
	// Name identifies the processor in logs.
	Name() string

	// Relationships returns the outputs this processor routes to. The host
	// must support every one of them as a connection target.
	Relationships() []flow.Relationship

	// OnTrigger runs one invocation.
	OnTrigger(ctx context.Context, pctx *Context, session flow.Session) error
}

// Context carries the host collaborators for one invocation.
type Context struct {
	// States is the host's scoped state facility.
	States state.Manager

	// Scope selects where this processor's record lives.
	// Defaults to the cluster scope.
	Scope state.Scope

	// Logger receives processor log output. Optional.
	Logger *logging.Logger

	// Telemetry receives pipeline events. Optional.
	Telemetry telemetry.Exporter
}

// Record forwards an event to the configured telemetry exporter, if any.
func (c *Context) Record(event telemetry.Event) {
	if c.Telemetry != nil {
		c.Telemetry.Record(event)
	}
}

// StateScope returns the configured scope, defaulting to cluster.
func (c *Context) StateScope() state.Scope {
	if c.Scope == "" {
		return state.ScopeCluster
	}
	return c.Scope
}

// Log returns the configured logger, or a discarding fallback so processors
// can log unconditionally.
func (c *Context) Log() *logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return nopLogger
}

var nopLogger = newNopLogger()

func newNopLogger() *logging.Logger {
	l := logging.New()
	l.SetOutput(discard{})
	return l
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
