package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how a failed invocation should be handled by the
// host: transient faults leave the work unit pending for a later attempt,
// permanent faults will not succeed on retry.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: state store unavailable, cluster connection lost.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: invalid configuration, malformed attribute values.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates unexpected errors, bugs, or system failures.
	// Examples: corrupted state payload, assertion failures.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific failure types within categories.
type ErrorCode string

// Error codes for the failure scenarios of flow processing.
const (
	// Transient errors
	ErrCodeStateUnavailable ErrorCode = "STATE_UNAVAILABLE" // State store cannot be reached
	ErrCodeStateConflict    ErrorCode = "STATE_CONFLICT"    // Concurrent state modification detected
	ErrCodeTimeout          ErrorCode = "TIMEOUT"           // Store operation timed out

	// Permanent errors
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"  // Malformed attribute or configuration
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"      // Resource does not exist
	ErrCodeCanceled      ErrorCode = "CANCELED"       // Invocation was canceled
	ErrCodeSessionClosed ErrorCode = "SESSION_CLOSED" // Session already committed or rolled back

	// Internal errors
	ErrCodeSerialization ErrorCode = "SERIALIZATION" // State record could not be encoded/decoded
	ErrCodeInternal      ErrorCode = "INTERNAL"      // Unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeStateUnavailable, ErrCodeStateConflict, ErrCodeTimeout:
		return CategoryTransient
	case ErrCodeInvalidInput, ErrCodeNotFound, ErrCodeCanceled, ErrCodeSessionClosed:
		return CategoryPermanent
	case ErrCodeSerialization, ErrCodeInternal:
		return CategoryInternal
	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeStateUnavailable: "state store unavailable",
	ErrCodeStateConflict:    "state modified concurrently",
	ErrCodeTimeout:          "operation timed out",
	ErrCodeInvalidInput:     "invalid input provided",
	ErrCodeNotFound:         "resource not found",
	ErrCodeCanceled:         "invocation canceled",
	ErrCodeSessionClosed:    "session already closed",
	ErrCodeSerialization:    "state serialization fault",
	ErrCodeInternal:         "internal error",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
