// Package host drives a processor the way a dataflow host would: serially,
// one session per trigger, committing on success and rolling back on error.
package host

import (
	"context"
	"fmt"
	"time"

	"github.com/mindils/nifi-id-ack-processor/errors"
	"github.com/mindils/nifi-id-ack-processor/flow"
	"github.com/mindils/nifi-id-ack-processor/logging"
	"github.com/mindils/nifi-id-ack-processor/processor"
	"github.com/mindils/nifi-id-ack-processor/state"
	"github.com/mindils/nifi-id-ack-processor/telemetry"
)

// Config wires one processor into queues and a state facility.
type Config struct {
	// Source is the queue of pending work units.
	Source *flow.Queue

	// Routes connects relationship names to downstream queues. Unrouted
	// relationships are auto-terminated: work transferred there is dropped.
	Routes flow.Routes

	// Processor is the plugin to trigger.
	Processor processor.Processor

	// States is the scoped state facility handed to the processor.
	States state.Manager

	// Scope overrides the processor's state scope. Default: cluster.
	Scope state.Scope

	// Logger receives host and processor log output. Optional.
	Logger *logging.Logger

	// Telemetry receives pipeline events. Optional.
	Telemetry telemetry.Exporter

	// IdleDelay is how long Run sleeps when no work is pending, and after
	// a failed invocation before the work unit is re-presented.
	// Default: 50ms.
	IdleDelay time.Duration
}

// Runner triggers a processor serially. It is the single consumer of its
// source queue; the serial loop is what enforces the one-writer guarantee
// the processor's state handling relies on.
type Runner struct {
	cfg  Config
	pctx *processor.Context
	log  *logging.Logger
}

// NewRunner validates the wiring and builds a runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source queue is required")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if cfg.States == nil {
		return nil, fmt.Errorf("state manager is required")
	}
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = 50 * time.Millisecond
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	log = log.WithComponent(cfg.Processor.Name())

	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.Nop{}
	}

	return &Runner{
		cfg: cfg,
		pctx: &processor.Context{
			States:    cfg.States,
			Scope:     cfg.Scope,
			Logger:    log,
			Telemetry: cfg.Telemetry,
		},
		log: log,
	}, nil
}

// TriggerOnce runs a single invocation: fresh session, one OnTrigger call,
// commit on nil error, rollback otherwise. The returned error is the
// processor's; rollback errors never mask it.
func (r *Runner) TriggerOnce(ctx context.Context) error {
	session := flow.NewSession(r.cfg.Source, r.cfg.Routes)

	if err := r.cfg.Processor.OnTrigger(ctx, r.pctx, session); err != nil {
		session.Rollback()
		r.record(telemetry.EventFault, err)
		return err
	}
	if err := session.Commit(); err != nil {
		// Commit has already requeued what it could not deliver.
		r.record(telemetry.EventFault, err)
		return errors.Wrap(err, "committing session",
			errors.WithProcessor(r.cfg.Processor.Name()))
	}
	r.record(telemetry.EventCommitted, nil)
	return nil
}

// record emits a trigger-level telemetry event.
func (r *Runner) record(name string, err error) {
	fields := map[string]string{"processor": r.cfg.Processor.Name()}
	if err != nil {
		fields["error"] = err.Error()
	}
	r.cfg.Telemetry.Record(telemetry.Event{Name: name, Fields: fields})
}

// Run triggers the processor until ctx is canceled. Failed invocations are
// logged and the loop backs off briefly before the rolled-back work unit is
// re-presented; retry-forever is the host's contract for transient faults.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if r.cfg.Source.Len() == 0 {
			r.log.TriggerIdle()
			if !sleepCtx(ctx, r.cfg.IdleDelay) {
				return ctx.Err()
			}
			continue
		}

		if err := r.TriggerOnce(ctx); err != nil {
			r.log.Error("invocation failed", map[string]interface{}{
				"error":     err.Error(),
				"retryable": errors.IsRetryable(err),
			})
			if !sleepCtx(ctx, r.cfg.IdleDelay) {
				return ctx.Err()
			}
		}
	}
}

// sleepCtx waits for d or ctx, reporting false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
