package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestDuplicateKey(t *testing.T) {
	err := DuplicateKey("id", "$.user.id")
	if err.Code != CodeDuplicateKey {
		t.Errorf("Code = %q, want %q", err.Code, CodeDuplicateKey)
	}
	if err.Key != "id" {
		t.Errorf("Key = %q, want %q", err.Key, "id")
	}
	if err.Path != "$.user.id" {
		t.Errorf("Path = %q, want %q", err.Path, "$.user.id")
	}
	if !strings.Contains(err.Message, `"id"`) || !strings.Contains(err.Message, "$.user.id") {
		t.Errorf("Message = %q, want key and path mentioned", err.Message)
	}
	if err.HTTPStatus() != http.StatusBadRequest {
		t.Errorf("HTTPStatus() = %d, want %d", err.HTTPStatus(), http.StatusBadRequest)
	}
}

func TestInvalidJSON(t *testing.T) {
	err := InvalidJSON("unexpected end of input")
	if err.Code != CodeInvalidJSON {
		t.Errorf("Code = %q, want %q", err.Code, CodeInvalidJSON)
	}
	if err.HTTPStatus() != http.StatusBadRequest {
		t.Errorf("HTTPStatus() = %d, want %d", err.HTTPStatus(), http.StatusBadRequest)
	}
}

func TestDisallowedKey(t *testing.T) {
	err := DisallowedKey("secret", "$.config.secret")
	if err.Code != CodeInvalidJSON {
		t.Errorf("Code = %q, want %q", err.Code, CodeInvalidJSON)
	}
	if err.Key != "secret" {
		t.Errorf("Key = %q, want %q", err.Key, "secret")
	}
	if err.Path != "$.config.secret" {
		t.Errorf("Path = %q, want %q", err.Path, "$.config.secret")
	}
}

func TestBodyTooLarge(t *testing.T) {
	err := BodyTooLarge(2048, 1024)
	if err.Code != CodeBodyTooLarge {
		t.Errorf("Code = %q, want %q", err.Code, CodeBodyTooLarge)
	}
	if err.Size != 2048 || err.Limit != 1024 {
		t.Errorf("Size/Limit = %d/%d, want 2048/1024", err.Size, err.Limit)
	}
	if err.HTTPStatus() != http.StatusRequestEntityTooLarge {
		t.Errorf("HTTPStatus() = %d, want %d", err.HTTPStatus(), http.StatusRequestEntityTooLarge)
	}
}

func TestPrototypePollution(t *testing.T) {
	err := PrototypePollution("__proto__", "$.__proto__")
	if err.Code != CodePrototypePollution {
		t.Errorf("Code = %q, want %q", err.Code, CodePrototypePollution)
	}
	if err.DangerousKey != "__proto__" {
		t.Errorf("DangerousKey = %q, want %q", err.DangerousKey, "__proto__")
	}
	if err.HTTPStatus() != http.StatusBadRequest {
		t.Errorf("HTTPStatus() = %d, want %d", err.HTTPStatus(), http.StatusBadRequest)
	}
}

func TestDepthLimit(t *testing.T) {
	err := DepthLimit(21, 20)
	if err.Code != CodeDepthLimit {
		t.Errorf("Code = %q, want %q", err.Code, CodeDepthLimit)
	}
	if err.CurrentDepth != 21 {
		t.Errorf("CurrentDepth = %d, want 21", err.CurrentDepth)
	}
	if err.MaxDepth != 20 {
		t.Errorf("MaxDepth = %d, want 20", err.MaxDepth)
	}
}

func TestErrorInterface(t *testing.T) {
	var err error = InvalidJSON("test")
	if err.Error() != "test" {
		t.Errorf("Error() = %q, want %q", err.Error(), "test")
	}
}

func TestGRPCStatus(t *testing.T) {
	err := DepthLimit(11, 10)
	st := err.GRPCStatus()
	if st.Code() != codes.InvalidArgument {
		t.Errorf("status code = %v, want %v", st.Code(), codes.InvalidArgument)
	}
	if st.Message() != err.Message {
		t.Errorf("status message = %q, want %q", st.Message(), err.Message)
	}
	// grpc-go discovers GRPCStatus() through status.FromError.
	got, ok := status.FromError(err)
	if !ok {
		t.Fatal("status.FromError did not recognize RejectionError")
	}
	if got.Code() != codes.InvalidArgument {
		t.Errorf("FromError code = %v, want %v", got.Code(), codes.InvalidArgument)
	}
}

func TestWithCause(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	base := InvalidJSON("truncated document")
	err := base.WithCause(cause)
	if base.Unwrap() != nil {
		t.Error("WithCause modified the receiver")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestFromErrorPassthrough(t *testing.T) {
	orig := BodyTooLarge(10, 5)
	wrapped := fmt.Errorf("request rejected: %w", orig)
	got := FromError(wrapped)
	if got != orig {
		t.Errorf("FromError = %v, want the original RejectionError", got)
	}
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	plain := errors.New("boom")
	got := FromError(plain)
	if got.Code != CodeInvalidJSON {
		t.Errorf("Code = %q, want %q", got.Code, CodeInvalidJSON)
	}
	if !errors.Is(got, plain) {
		t.Error("wrapped error should unwrap to the original")
	}
}

func TestFromErrorNil(t *testing.T) {
	if got := FromError(nil); got != nil {
		t.Errorf("FromError(nil) = %v, want nil", got)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", PrototypePollution("constructor", "$.constructor"))
	if !IsCode(err, CodePrototypePollution) {
		t.Error("IsCode should match through wrapping")
	}
	if IsCode(err, CodeDuplicateKey) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(errors.New("plain"), CodeInvalidJSON) {
		t.Error("IsCode matched a non-RejectionError")
	}
}

func TestMappingFallbacks(t *testing.T) {
	unknown := Code("STRICT_JSON_SOMETHING_NEW")
	if got := HTTPStatusFor(unknown); got != http.StatusBadRequest {
		t.Errorf("HTTPStatusFor(unknown) = %d, want %d", got, http.StatusBadRequest)
	}
	if got := GRPCCodeFor(unknown); got != codes.InvalidArgument {
		t.Errorf("GRPCCodeFor(unknown) = %v, want %v", got, codes.InvalidArgument)
	}
	if got := TitleFor(unknown); got != "Rejected Payload" {
		t.Errorf("TitleFor(unknown) = %q, want %q", got, "Rejected Payload")
	}
	if got := TitleFor(CodeBodyTooLarge); got != "Body Too Large" {
		t.Errorf("TitleFor = %q, want %q", got, "Body Too Large")
	}
}
