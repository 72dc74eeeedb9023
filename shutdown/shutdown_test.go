package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestShutdownRunsHandlersInPhaseOrder(t *testing.T) {
	c := NewCoordinator(time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	// Registered out of phase order on purpose.
	c.RegisterFunc("bolt", PhaseStores, record("bolt"))
	c.RegisterFunc("runner", PhaseTrigger, record("runner"))
	c.RegisterFunc("queues", PhaseQueues, record("queues"))

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	want := []string{"runner", "queues", "bolt"}
	if len(order) != len(want) {
		t.Fatalf("expected %d handlers, got %v", len(want), order)
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("position %d: expected %q, got %q", i, name, order[i])
		}
	}
}

func TestShutdownSamePhaseKeepsRegistrationOrder(t *testing.T) {
	c := NewCoordinator(time.Second)

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		c.RegisterFunc(name, PhaseQueues, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("expected registration order preserved, got %v", order)
	}
}

func TestShutdownContinuesPastFailures(t *testing.T) {
	c := NewCoordinator(time.Second)

	ran := false
	c.RegisterFunc("bad", PhaseTrigger, func(context.Context) error {
		return errors.New("boom")
	})
	c.RegisterFunc("good", PhaseStores, func(context.Context) error {
		ran = true
		return nil
	})

	err := c.Shutdown(context.Background())
	if !errors.Is(err, ErrHandlerFailed) {
		t.Errorf("expected ErrHandlerFailed, got %v", err)
	}
	if !ran {
		t.Error("expected later handler to run despite earlier failure")
	}
}

func TestShutdownOnlyRunsOnce(t *testing.T) {
	c := NewCoordinator(time.Second)

	count := 0
	c.RegisterFunc("counter", PhaseTrigger, func(context.Context) error {
		count++
		return nil
	})

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
	if count != 1 {
		t.Errorf("expected handlers to run once, ran %d times", count)
	}

	select {
	case <-c.Done():
	default:
		t.Error("expected Done to be closed")
	}
	if c.Err() != nil {
		t.Errorf("expected nil Err, got %v", c.Err())
	}
}

func TestShutdownHandlerSeesDeadline(t *testing.T) {
	c := NewCoordinator(50 * time.Millisecond)

	c.RegisterFunc("deadline", PhaseTrigger, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a deadline on the shutdown context")
		}
		return nil
	})

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
