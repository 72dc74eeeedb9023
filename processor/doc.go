// Package processor defines the plugin contract the host trigger loop
// drives, and implements IdAck: a classifier that issues correlation
// identifiers to outbound work units and matches returning acknowledgments
// against the identifier currently in flight.
//
// # Decision policy
//
// Each invocation reads the tracking record once and classifies one work
// unit, first match wins:
//
//	attribute   record                         outcome    output
//	---------   ----------------------------   --------   -------
//	absent      nothing sent, or sent == ack   issue      success
//	present     equals lastSentId              ack        ack
//	(any)       anything else                  none       other
//
// The "other" output carries both stale/foreign acknowledgments and bare
// work units held back while an issuance is unacknowledged.
//
// # State
//
// The record lives in the host's state facility under four keys:
// lastSentId, lastSentTime, lastAcknowledgedId, lastAcknowledgedTime.
// Updates are read-merge-write: the matched branch touches its own pair of
// keys and carries everything else over unchanged.
package processor
