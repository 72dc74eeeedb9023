package flow

import (
	"sync"
)

// Routes maps relationship names to destination queues. A relationship
// with no route is a legal wiring: work transferred there is dropped on
// commit, matching hosts that allow outputs to be auto-terminated.
type Routes map[string]*Queue

// Session is the transactional unit of work handed to a processor for one
// invocation. All mutations are staged until Commit; Rollback discards them
// and returns the work unit to its source queue.
type Session interface {
	// Get takes the next FlowFile from the source queue.
	// Returns nil when no work is available (not an error).
	Get() *FlowFile

	// PutAttribute sets an attribute on a flow file taken from this session
	// and returns the updated flow file.
	PutAttribute(ff *FlowFile, key, value string) *FlowFile

	// Transfer routes a flow file to a relationship. The routing takes
	// effect on Commit.
	Transfer(ff *FlowFile, rel Relationship) error

	// Commit applies all staged mutations and deliveries atomically.
	// Every flow file taken via Get must have been transferred.
	Commit() error

	// Rollback discards all staged mutations and returns taken flow files
	// to the head of the source queue.
	Rollback()
}

// taken tracks one flow file checked out of the source queue.
type taken struct {
	original *FlowFile // pristine copy for rollback
	working  *FlowFile // staged copy the processor mutates
	rel      string    // destination relationship name, "" until transferred
	routed   bool
}

// queueSession implements Session over an in-memory queue and route table.
type queueSession struct {
	mu     sync.Mutex
	source *Queue
	routes Routes
	open   []*taken // in Get order, so rollback preserves queue order
	byID   map[string]*taken
	closed bool
}

// NewSession creates a Session reading from source and delivering committed
// transfers to routes.
func NewSession(source *Queue, routes Routes) Session {
	return &queueSession{
		source: source,
		routes: routes,
		byID:   make(map[string]*taken),
	}
}

func (s *queueSession) Get() *FlowFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	ff := s.source.Dequeue()
	if ff == nil {
		return nil
	}

	t := &taken{
		original: ff,
		working:  ff.clone(),
	}
	s.open = append(s.open, t)
	s.byID[ff.ID] = t
	return t.working
}

func (s *queueSession) PutAttribute(ff *FlowFile, key, value string) *FlowFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[ff.ID]
	if !ok || s.closed {
		// Not ours; leave the caller's copy untouched.
		return ff
	}
	t.working.Attributes[key] = value
	return t.working
}

func (s *queueSession) Transfer(ff *FlowFile, rel Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	t, ok := s.byID[ff.ID]
	if !ok {
		return ErrNotOwned
	}
	if t.routed {
		return ErrAlreadyTransferred
	}
	t.rel = rel.Name
	t.routed = true
	return nil
}

func (s *queueSession) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	for _, t := range s.open {
		if !t.routed {
			return ErrNotTransferred
		}
	}

	for i, t := range s.open {
		dest, ok := s.routes[t.rel]
		if !ok {
			continue // auto-terminated relationship
		}
		// Destination full or closed means the transfer cannot complete.
		// Work units already delivered stay delivered; this one and the
		// rest go back to the source queue unmodified.
		if err := dest.Enqueue(t.working); err != nil {
			for j := len(s.open) - 1; j >= i; j-- {
				s.source.RequeueFront(s.open[j].original)
			}
			s.closeLocked()
			return err
		}
	}

	s.closeLocked()
	return nil
}

func (s *queueSession) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.rollbackLocked()
}

// rollbackLocked requeues originals front-most in reverse Get order so the
// queue ends up exactly as it was before this session.
func (s *queueSession) rollbackLocked() {
	for i := len(s.open) - 1; i >= 0; i-- {
		s.source.RequeueFront(s.open[i].original)
	}
	s.closeLocked()
}

func (s *queueSession) closeLocked() {
	s.closed = true
	s.open = nil
	s.byID = make(map[string]*taken)
}
