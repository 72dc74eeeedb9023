// Package errors provides a structured error taxonomy for flow processing.
// It defines the error codes and categories the host loop uses to decide
// whether a failed invocation should leave its work unit pending for a
// later attempt.
//
// # Error Categories
//
// Errors are classified into three categories:
//
//   - Transient: Temporary failures where retry may succeed (state store
//     unreachable, concurrent modification, timeouts)
//   - Permanent: Failures where retry will not help (invalid input,
//     closed session)
//   - Internal: Unexpected errors indicating bugs or corrupted state
//
// # Usage
//
// Create a new error:
//
//	err := errors.StateUnavailable("cluster state read failed")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "loading tracking record")
//
// Check if an error is retryable:
//
//	if errors.IsRetryable(err) {
//	    // leave the work unit on the queue
//	}
//
// # JSON Serialization
//
// All errors support JSON serialization for structured log sinks:
//
//	data, err := json.Marshal(flowErr)
package errors
