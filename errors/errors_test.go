package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

// ============================================================================
// 1. Error creation with different codes/categories
// ============================================================================

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		code         ErrorCode
		message      string
		wantCategory ErrorCategory
	}{
		{"state_unavailable", ErrCodeStateUnavailable, "store down", CategoryTransient},
		{"state_conflict", ErrCodeStateConflict, "record changed", CategoryTransient},
		{"timeout", ErrCodeTimeout, "operation timed out", CategoryTransient},
		{"invalid_input", ErrCodeInvalidInput, "bad attribute", CategoryPermanent},
		{"session_closed", ErrCodeSessionClosed, "session done", CategoryPermanent},
		{"serialization", ErrCodeSerialization, "bad payload", CategoryInternal},
		{"internal", ErrCodeInternal, "internal error", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)
			if err.Code() != tt.code {
				t.Errorf("Code() = %v, want %v", err.Code(), tt.code)
			}
			if err.Category() != tt.wantCategory {
				t.Errorf("Category() = %v, want %v", err.Category(), tt.wantCategory)
			}
			if err.Error() != tt.message {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.message)
			}
			if err.Timestamp().IsZero() {
				t.Error("Timestamp() should not be zero")
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeInvalidInput, "attribute %q is malformed", "idack")
	want := `attribute "idack" is malformed`
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestFromCode(t *testing.T) {
	err := FromCode(ErrCodeStateUnavailable)
	if err.Code() != ErrCodeStateUnavailable {
		t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeStateUnavailable)
	}
	// Should use the default description
	if err.Error() != "state store unavailable" {
		t.Errorf("Error() = %v, want %v", err.Error(), "state store unavailable")
	}
}

// ============================================================================
// 2. Retryable vs non-retryable errors
// ============================================================================

func TestRetryable(t *testing.T) {
	if !StateUnavailable("down").Retryable() {
		t.Error("state unavailable should be retryable by default")
	}
	if !StateConflict("raced").Retryable() {
		t.Error("state conflict should be retryable by default")
	}
	if InvalidInput("bad").Retryable() {
		t.Error("invalid input should not be retryable")
	}
	if Serialization("garbled").Retryable() {
		t.Error("serialization fault should not be retryable")
	}
}

func TestRetryableOverride(t *testing.T) {
	err := StateUnavailable("down for good", WithRetryable(false))
	if err.Retryable() {
		t.Error("explicit override should win over category default")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(StateUnavailable("down")) {
		t.Error("IsRetryable should be true for transient errors")
	}
	if IsRetryable(fmt.Errorf("plain error")) {
		t.Error("plain errors default to non-retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}

// ============================================================================
// 3. Wrapping and chain inspection
// ============================================================================

func TestWrap_PreservesCode(t *testing.T) {
	inner := StateUnavailable("kv get failed", WithFlowFileID("ff-1"))
	outer := Wrap(inner, "loading tracking record")

	if outer.Code() != ErrCodeStateUnavailable {
		t.Errorf("Code() = %v, want %v", outer.Code(), ErrCodeStateUnavailable)
	}
	if !outer.Retryable() {
		t.Error("wrapped transient error should remain retryable")
	}
	if outer.FlowFileID() != "ff-1" {
		t.Errorf("FlowFileID() = %v, want ff-1", outer.FlowFileID())
	}
	if !errors.Is(outer, inner) {
		t.Error("errors.Is should find the inner error")
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, "nothing") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrap_ContextErrors(t *testing.T) {
	err := Wrap(context.DeadlineExceeded, "state read")
	if err.Code() != ErrCodeTimeout {
		t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeTimeout)
	}

	err = Wrap(context.Canceled, "state read")
	if err.Code() != ErrCodeCanceled {
		t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeCanceled)
	}
}

func TestWrapWithCode(t *testing.T) {
	cause := fmt.Errorf("json: cannot unmarshal")
	err := WrapWithCode(cause, ErrCodeSerialization, "decoding record")
	if err.Code() != ErrCodeSerialization {
		t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeSerialization)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be in the chain")
	}
}

func TestIs(t *testing.T) {
	err := StateConflict("raced")
	if !Is(err, ErrCodeStateConflict) {
		t.Error("Is should match the code")
	}
	if Is(err, ErrCodeTimeout) {
		t.Error("Is should not match a different code")
	}
	if Is(fmt.Errorf("plain"), ErrCodeTimeout) {
		t.Error("Is should be false for non-FlowErrors")
	}
}

func TestIsCategory(t *testing.T) {
	if !IsTransient(StateUnavailable("down")) {
		t.Error("expected transient")
	}
	if !IsPermanent(InvalidInput("bad")) {
		t.Error("expected permanent")
	}
	if !IsInternal(Internal("boom")) {
		t.Error("expected internal")
	}
}

// ============================================================================
// 4. JSON round-trip
// ============================================================================

func TestJSONRoundTrip(t *testing.T) {
	orig := StateUnavailable("cluster kv down",
		WithProcessor("IdAckProcessor"),
		WithFlowFileID("ff-42"),
		WithMetadata("scope", "cluster"),
		WithTimestamp(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
	)

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Error
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Code() != orig.Code() {
		t.Errorf("Code() = %v, want %v", decoded.Code(), orig.Code())
	}
	if decoded.Processor() != "IdAckProcessor" {
		t.Errorf("Processor() = %v, want IdAckProcessor", decoded.Processor())
	}
	if decoded.FlowFileID() != "ff-42" {
		t.Errorf("FlowFileID() = %v, want ff-42", decoded.FlowFileID())
	}
	if decoded.Metadata()["scope"] != "cluster" {
		t.Error("metadata should survive the round trip")
	}
	if !decoded.Retryable() {
		t.Error("retryable flag should survive the round trip")
	}
}
