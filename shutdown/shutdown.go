// Package shutdown coordinates orderly teardown of a pipeline: stop the
// trigger loop first so no invocation is in flight, then close the queues,
// then release the state backends. Handlers run in ascending phase order;
// within a phase, in registration order.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// Common errors.
var (
	// ErrAlreadyShutdown indicates shutdown was already initiated.
	ErrAlreadyShutdown = errors.New("shutdown already initiated")

	// ErrHandlerFailed indicates one or more handlers failed during shutdown.
	ErrHandlerFailed = errors.New("one or more handlers failed")
)

// Conventional phases for pipeline components. Lower phases run first.
const (
	PhaseTrigger = 10 // stop trigger loops; nothing is mid-invocation after this
	PhaseQueues  = 20 // close queues; pending work stays queued
	PhaseStores  = 30 // close state backends and other resources
)

// Handler is implemented by components that need orderly teardown.
type Handler interface {
	// OnShutdown is called once during shutdown. The context carries the
	// overall deadline; implementations should stop, drain what time
	// permits, and release resources.
	OnShutdown(ctx context.Context) error
}

// Func adapts a plain function to Handler.
type Func func(ctx context.Context) error

// OnShutdown implements Handler.
func (f Func) OnShutdown(ctx context.Context) error { return f(ctx) }

// registration is one named handler in a phase.
type registration struct {
	name    string
	phase   int
	handler Handler
}

// Coordinator runs registered handlers in phase order, once.
type Coordinator struct {
	timeout time.Duration

	mu       sync.Mutex
	handlers []registration

	once sync.Once
	done chan struct{}
	err  error
}

// NewCoordinator creates a coordinator. timeout bounds the whole shutdown;
// zero means 30 seconds.
func NewCoordinator(timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Coordinator{
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Register adds a handler to the given phase.
func (c *Coordinator) Register(name string, phase int, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, handler: h})
}

// RegisterFunc adds a plain function to the given phase.
func (c *Coordinator) RegisterFunc(name string, phase int, fn func(ctx context.Context) error) {
	c.Register(name, phase, Func(fn))
}

// Shutdown runs every handler in phase order. Later calls return
// ErrAlreadyShutdown while the first is in progress, and the first call's
// result afterward. Handler failures do not stop the remaining handlers.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	ran := false
	c.once.Do(func() {
		ran = true
		c.err = c.run(ctx)
		close(c.done)
	})
	if ran {
		return c.err
	}

	select {
	case <-c.done:
		return c.err
	default:
		return ErrAlreadyShutdown
	}
}

// run executes all handlers under the coordinator's timeout.
func (c *Coordinator) run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.mu.Lock()
	ordered := make([]registration, len(c.handlers))
	copy(ordered, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].phase < ordered[j].phase
	})

	var failures []string
	for _, reg := range ordered {
		if err := reg.handler.OnShutdown(ctx); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", reg.name, err))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("%w: %v", ErrHandlerFailed, failures)
	}
	return nil
}

// Done is closed when shutdown has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err returns the shutdown result, or nil while shutdown has not finished.
func (c *Coordinator) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// HandleSignals triggers Shutdown on SIGINT or SIGTERM.
func (c *Coordinator) HandleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		signal.Stop(ch)
		_ = c.Shutdown(context.Background())
	}()
}
