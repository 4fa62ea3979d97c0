package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code identifies a rejection category with a stable, machine-readable value.
// Codes are part of the public contract: hosts route on them, monitoring
// pipelines aggregate on them, and they never change meaning across releases.
type Code string

const (
	// CodeDuplicateKey marks a payload carrying the same key twice within one
	// object scope.
	CodeDuplicateKey Code = "STRICT_JSON_DUPLICATE_KEY"

	// CodeInvalidJSON marks malformed syntax, trailing data, empty input, or a
	// key rejected by the allow/deny policy.
	CodeInvalidJSON Code = "STRICT_JSON_INVALID_JSON"

	// CodeBodyTooLarge marks a payload exceeding the configured byte limit.
	CodeBodyTooLarge Code = "STRICT_JSON_BODY_TOO_LARGE"

	// CodePrototypePollution marks a payload carrying a dangerous key such as
	// __proto__ or constructor.
	CodePrototypePollution Code = "STRICT_JSON_PROTOTYPE_POLLUTION"

	// CodeDepthLimit marks a payload nested beyond the configured depth.
	CodeDepthLimit Code = "STRICT_JSON_DEPTH_LIMIT"
)

var httpStatusMap = map[Code]int{
	CodeDuplicateKey:       http.StatusBadRequest,
	CodeInvalidJSON:        http.StatusBadRequest,
	CodeBodyTooLarge:       http.StatusRequestEntityTooLarge,
	CodePrototypePollution: http.StatusBadRequest,
	CodeDepthLimit:         http.StatusBadRequest,
}

var grpcCodeMap = map[Code]codes.Code{
	CodeDuplicateKey:       codes.InvalidArgument,
	CodeInvalidJSON:        codes.InvalidArgument,
	CodeBodyTooLarge:       codes.InvalidArgument,
	CodePrototypePollution: codes.InvalidArgument,
	CodeDepthLimit:         codes.InvalidArgument,
}

var titleMap = map[Code]string{
	CodeDuplicateKey:       "Duplicate Key",
	CodeInvalidJSON:        "Invalid JSON",
	CodeBodyTooLarge:       "Body Too Large",
	CodePrototypePollution: "Prototype Pollution",
	CodeDepthLimit:         "Depth Limit Exceeded",
}

// HTTPStatusFor returns the HTTP status a host should answer with for the
// given code: 413 for oversized bodies, 400 for everything else. Unknown
// codes map to 400 so a forgotten table entry can never weaken a rejection.
func HTTPStatusFor(c Code) int {
	if s, ok := httpStatusMap[c]; ok {
		return s
	}
	return http.StatusBadRequest
}

// GRPCCodeFor returns the gRPC code for the given rejection code.
func GRPCCodeFor(c Code) codes.Code {
	if g, ok := grpcCodeMap[c]; ok {
		return g
	}
	return codes.InvalidArgument
}

// TitleFor returns a short human-readable title for the given code, suitable
// for problem documents or dashboards.
func TitleFor(c Code) string {
	if t, ok := titleMap[c]; ok {
		return t
	}
	return "Rejected Payload"
}
