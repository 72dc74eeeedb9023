package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a FlowError, it wraps it with the new message and keeps
// its code, category and retry semantics.
// Otherwise, it creates a new Internal error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var flowErr *Error
	if errors.As(err, &flowErr) {
		wrapped := &Error{
			code:       flowErr.code,
			category:   flowErr.category,
			message:    message,
			cause:      err,
			metadata:   flowErr.Metadata(),
			retryable:  flowErr.retryable,
			processor:  flowErr.processor,
			flowFileID: flowErr.flowFileID,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	// Default to internal error for unknown errors
	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsFlowError attempts to extract a FlowError from an error chain.
// Returns nil if no FlowError is found.
func AsFlowError(err error) FlowError {
	var flowErr *Error
	if errors.As(err, &flowErr) {
		return flowErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var flowErr *Error
	if errors.As(err, &flowErr) {
		return flowErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var flowErr *Error
	if errors.As(err, &flowErr) {
		return flowErr.category == category
	}
	return false
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	var flowErr *Error
	if errors.As(err, &flowErr) {
		return flowErr.Retryable()
	}
	// Default to not retryable for non-FlowErrors
	return false
}

// IsTransient checks if the error is transient.
func IsTransient(err error) bool {
	return IsCategory(err, CategoryTransient)
}

// IsPermanent checks if the error is permanent.
func IsPermanent(err error) bool {
	return IsCategory(err, CategoryPermanent)
}

// IsInternal checks if the error is an internal error.
func IsInternal(err error) bool {
	return IsCategory(err, CategoryInternal)
}
