// Package flow provides the work-unit abstractions a processor consumes:
// FlowFiles (attribute bag + payload), Relationships (named routing labels),
// a FIFO Queue of pending work, and a transactional Session.
//
// A Session stages every mutation made during one invocation — attribute
// writes and transfers — and applies them only on Commit. Rollback returns
// the work unit to the head of its source queue unmodified, so a failed
// invocation leaves no trace. This mirrors the unit-of-work contract of
// dataflow hosts: either the work unit lands on exactly one output with its
// new attributes, or it stays pending.
//
// # Usage
//
//	q := flow.NewQueue(256)
//	q.Enqueue(flow.New([]byte("payload"), nil))
//
//	session := flow.NewSession(q, flow.Routes{
//	    relSuccess.Name: successQueue,
//	})
//	ff := session.Get()
//	ff = session.PutAttribute(ff, "idack", id)
//	session.Transfer(ff, relSuccess)
//	if err := session.Commit(); err != nil {
//	    session.Rollback()
//	}
package flow
