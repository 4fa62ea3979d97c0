// Package errors defines the rejection taxonomy for strict JSON validation:
// a structured error type with stable machine-readable codes and dual HTTP
// and gRPC status mapping.
package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/status"
)

// RejectionError describes why a payload was rejected. The Code is stable
// across releases; Message is for humans and may change. Positional fields
// are populated as applicable for the code (Path and Key for key-level
// rejections, depth fields for depth rejections, size fields for byte-limit
// rejections) and are zero otherwise.
type RejectionError struct {
	Code         Code
	Message      string
	Path         string
	Key          string
	DangerousKey string
	CurrentDepth int
	MaxDepth     int
	Size         int64
	Limit        int64
	cause        error
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, supporting errors.Is/As chains.
func (e *RejectionError) Unwrap() error {
	return e.cause
}

// HTTPStatus returns the HTTP status a host should answer with: 413 for
// CodeBodyTooLarge, 400 for all other codes.
func (e *RejectionError) HTTPStatus() int {
	return HTTPStatusFor(e.Code)
}

// GRPCStatus returns a gRPC status for this error, so grpc-go picks up the
// mapped code when the error crosses a unary handler boundary.
func (e *RejectionError) GRPCStatus() *status.Status {
	return status.New(GRPCCodeFor(e.Code), e.Message)
}

// WithCause returns a copy of the error with the underlying error cause set
// for Unwrap chaining. The receiver is not modified.
func (e *RejectionError) WithCause(err error) *RejectionError {
	out := *e
	out.cause = err
	return &out
}

// --- Factory constructors ---

// DuplicateKey creates a rejection for a key repeated within one object scope.
func DuplicateKey(key, path string) *RejectionError {
	return &RejectionError{
		Code:    CodeDuplicateKey,
		Message: fmt.Sprintf("duplicate key %q at %s", key, path),
		Path:    path,
		Key:     key,
	}
}

// InvalidJSON creates a rejection for malformed input.
func InvalidJSON(msg string) *RejectionError {
	return &RejectionError{Code: CodeInvalidJSON, Message: msg}
}

// DisallowedKey creates a rejection for a key refused by the allow/deny
// policy. It shares CodeInvalidJSON with syntax failures: policy shape is
// part of what makes a payload valid.
func DisallowedKey(key, path string) *RejectionError {
	return &RejectionError{
		Code:    CodeInvalidJSON,
		Message: fmt.Sprintf("key %q at %s is not permitted", key, path),
		Path:    path,
		Key:     key,
	}
}

// BodyTooLarge creates a rejection for a payload exceeding the byte limit.
func BodyTooLarge(size, limit int64) *RejectionError {
	return &RejectionError{
		Code:    CodeBodyTooLarge,
		Message: fmt.Sprintf("body of %d bytes exceeds limit of %d", size, limit),
		Size:    size,
		Limit:   limit,
	}
}

// PrototypePollution creates a rejection for a dangerous key.
func PrototypePollution(key, path string) *RejectionError {
	return &RejectionError{
		Code:         CodePrototypePollution,
		Message:      fmt.Sprintf("dangerous key %q at %s", key, path),
		Path:         path,
		Key:          key,
		DangerousKey: key,
	}
}

// DepthLimit creates a rejection for input nested beyond the allowed depth.
func DepthLimit(current, max int) *RejectionError {
	return &RejectionError{
		Code:         CodeDepthLimit,
		Message:      fmt.Sprintf("maximum depth %d exceeded at depth %d", max, current),
		CurrentDepth: current,
		MaxDepth:     max,
	}
}

// --- Helpers ---

// FromError converts any error to a RejectionError. If the error is already
// a RejectionError it is returned as-is; otherwise it is wrapped under
// CodeInvalidJSON, the catch-all for input that could not be processed.
func FromError(err error) *RejectionError {
	if err == nil {
		return nil
	}
	var re *RejectionError
	if stderrors.As(err, &re) {
		return re
	}
	return InvalidJSON(err.Error()).WithCause(err)
}

// IsCode reports whether err is (or wraps) a RejectionError with the given code.
func IsCode(err error, c Code) bool {
	var re *RejectionError
	return stderrors.As(err, &re) && re.Code == c
}
