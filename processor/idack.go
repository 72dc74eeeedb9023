package processor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mindils/nifi-id-ack-processor/errors"
	"github.com/mindils/nifi-id-ack-processor/flow"
	"github.com/mindils/nifi-id-ack-processor/state"
	"github.com/mindils/nifi-id-ack-processor/telemetry"
)

// AttrIDAck is the correlation attribute: set on issued work units, read
// back from returning acknowledgments.
const AttrIDAck = "idack"

// State keys of the tracking record.
const (
	KeyLastSentID   = "lastSentId"
	KeyLastSentTime = "lastSentTime"
	KeyLastAckID    = "lastAcknowledgedId"
	KeyLastAckTime  = "lastAcknowledgedTime"
)

// timestampLayout is RFC 3339 with fixed-width nanoseconds, so stored
// timestamps compare correctly as strings.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Relationships of the IdAck processor.
var (
	RelSuccess = flow.Relationship{
		Name:        "success",
		Description: "Work units issued a new correlation identifier.",
	}
	RelAck = flow.Relationship{
		Name:        "ack",
		Description: "Work units acknowledging the currently issued identifier.",
	}
	RelOther = flow.Relationship{
		Name:        "other",
		Description: "Work units with a stale or foreign identifier, and work units held back while an issuance is unacknowledged.",
	}
)

// IdAck tracks the most recently issued correlation identifier and matches
// returning acknowledgments against it.
//
// Each invocation classifies one work unit against the tracking record:
//
//   - no idack attribute, nothing in flight  -> issue a fresh identifier, route success
//   - idack equals the in-flight identifier  -> record the acknowledgment, route ack
//   - anything else                          -> leave everything untouched, route other
//
// The record is read once per invocation and written back conditionally, so
// the decision and the update always come from the same snapshot. The design
// assumes single-outstanding-request semantics: while an identifier is
// issued but unacknowledged, no new one is issued.
type IdAck struct {
	// now and newID are the clock and identifier source, replaceable in tests.
	now   func() time.Time
	newID func() string
}

// NewIdAck creates the processor with the wall clock and random UUIDs.
func NewIdAck() *IdAck {
	return &IdAck{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Name implements Processor.
func (p *IdAck) Name() string {
	return "IdAck"
}

// Relationships implements Processor.
func (p *IdAck) Relationships() []flow.Relationship {
	return []flow.Relationship{RelSuccess, RelAck, RelOther}
}

// outcome is the three-way classification of one work unit.
type outcome int

const (
	outcomeIssue outcome = iota
	outcomeAck
	outcomeOther
)

// classify applies the decision policy to a record snapshot and the work
// unit's correlation attribute. First match wins:
//
//  1. issue: attribute absent and no identifier in flight
//  2. ack:   attribute present and equal to the in-flight identifier
//  3. other: everything else
//
// Absence matters: an empty-string attribute is present, and a lastSentId
// only equals a lastAcknowledgedId that actually exists.
func classify(rec map[string]string, attr string, hasAttr bool) outcome {
	lastSent, hasSent := rec[KeyLastSentID]
	lastAck, hasAck := rec[KeyLastAckID]

	switch {
	case !hasAttr && (!hasSent || (hasAck && lastSent == lastAck)):
		return outcomeIssue
	case hasAttr && hasSent && attr == lastSent:
		return outcomeAck
	default:
		return outcomeOther
	}
}

// OnTrigger implements Processor. It reads the tracking record once,
// classifies the work unit, writes the updated record (issue and ack only),
// and routes. Any state fault aborts the invocation so the host rolls the
// session back.
func (p *IdAck) OnTrigger(ctx context.Context, pctx *Context, session flow.Session) error {
	ff := session.Get()
	if ff == nil {
		return nil
	}

	scope := pctx.StateScope()
	snapshot, err := pctx.States.GetState(ctx, scope)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeStateUnavailable,
			"reading tracking record",
			errors.WithProcessor(p.Name()), errors.WithFlowFileID(ff.ID))
	}

	rec := snapshot.ToMap()
	attr, hasAttr := ff.Attribute(AttrIDAck)

	var rel flow.Relationship
	switch classify(rec, attr, hasAttr) {
	case outcomeIssue:
		newID := p.newID()
		rec[KeyLastSentID] = newID
		rec[KeyLastSentTime] = p.timestamp()
		ff = session.PutAttribute(ff, AttrIDAck, newID)
		if err := p.writeRecord(ctx, pctx, snapshot, rec, ff.ID); err != nil {
			return err
		}
		rel = RelSuccess

	case outcomeAck:
		rec[KeyLastAckID] = attr
		rec[KeyLastAckTime] = p.timestamp()
		if err := p.writeRecord(ctx, pctx, snapshot, rec, ff.ID); err != nil {
			return err
		}
		rel = RelAck

	default:
		// No state mutation, no attribute mutation.
		rel = RelOther
	}

	if err := session.Transfer(ff, rel); err != nil {
		return errors.Wrap(err, "routing work unit",
			errors.WithProcessor(p.Name()), errors.WithFlowFileID(ff.ID))
	}
	pctx.Log().Routed(rel.Name, ff.ID)
	pctx.Record(telemetry.Event{
		Name: telemetry.EventRouted,
		Fields: map[string]string{
			"relationship": rel.Name,
			"flowfile":     ff.ID,
		},
	})
	return nil
}

// writeRecord replaces the tracking record against the snapshot it was read
// from. The host triggers serially, so a version mismatch means the record
// changed underneath us — surfaced as a transient fault, never retried here.
func (p *IdAck) writeRecord(ctx context.Context, pctx *Context, snapshot *state.StateMap, rec map[string]string, ffID string) error {
	ok, err := pctx.States.ReplaceState(ctx, snapshot, rec, pctx.StateScope())
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeStateUnavailable,
			"writing tracking record",
			errors.WithProcessor(p.Name()), errors.WithFlowFileID(ffID))
	}
	if !ok {
		return errors.StateConflict("tracking record changed during invocation",
			errors.WithProcessor(p.Name()), errors.WithFlowFileID(ffID))
	}
	return nil
}

// timestamp renders the current instant in the stored format.
func (p *IdAck) timestamp() string {
	return p.now().UTC().Format(timestampLayout)
}
