// Package audit delivers rejection events to notification sinks. Sinks are
// how hosts observe rejected payloads without coupling the validation
// pipeline to any transport: the pipeline emits one Event per rejection and
// hands it to every configured sink, shielded so sink failures can never
// mask the rejection itself.
package audit

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ai8future/strictjson-go/errors"
)

// Event describes one rejected payload.
type Event struct {
	ID         string      `json:"id"`
	Code       errors.Code `json:"code"`
	Message    string      `json:"message"`
	Path       string      `json:"path,omitempty"`
	Key        string      `json:"key,omitempty"`
	Depth      int         `json:"depth,omitempty"`
	Size       int64       `json:"size"`
	TraceID    string      `json:"trace_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewEvent assembles the event for a rejection: fresh ID, wall-clock time,
// size of the offending payload, and the active trace ID when ctx carries a
// valid span context.
func NewEvent(ctx context.Context, re *errors.RejectionError, size int64) Event {
	ev := Event{
		ID:         newID(),
		Code:       re.Code,
		Message:    re.Message,
		Path:       re.Path,
		Key:        re.Key,
		Depth:      re.CurrentDepth,
		Size:       size,
		OccurredAt: time.Now(),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		ev.TraceID = sc.TraceID().String()
	}
	return ev
}

// Sink receives every rejection. Implementations that also implement one of
// the narrowing interfaces below get the code-specific call first.
type Sink interface {
	Rejected(ctx context.Context, ev Event)
}

// Narrowing interfaces, discovered by type assertion at dispatch time.
// Depth-limit rejections have no specific hook; only Rejected fires for them.
type (
	DuplicateKeySink interface {
		DuplicateKey(ctx context.Context, ev Event)
	}
	InvalidJSONSink interface {
		InvalidJSON(ctx context.Context, ev Event)
	}
	BodyTooLargeSink interface {
		BodyTooLarge(ctx context.Context, ev Event)
	}
	PrototypePollutionSink interface {
		PrototypePollution(ctx context.Context, ev Event)
	}
)

// Dispatch delivers ev to each sink in order: the code-specific method first
// where implemented, then the generic Rejected. Every call is recovered
// independently, so a panicking sink neither masks the rejection nor starves
// the sinks after it.
func Dispatch(ctx context.Context, sinks []Sink, ev Event) {
	for _, s := range sinks {
		if s == nil {
			continue
		}
		dispatchSpecific(ctx, s, ev)
		guarded(ctx, ev, s.Rejected)
	}
}

func dispatchSpecific(ctx context.Context, s Sink, ev Event) {
	switch ev.Code {
	case errors.CodeDuplicateKey:
		if h, ok := s.(DuplicateKeySink); ok {
			guarded(ctx, ev, h.DuplicateKey)
		}
	case errors.CodeInvalidJSON:
		if h, ok := s.(InvalidJSONSink); ok {
			guarded(ctx, ev, h.InvalidJSON)
		}
	case errors.CodeBodyTooLarge:
		if h, ok := s.(BodyTooLargeSink); ok {
			guarded(ctx, ev, h.BodyTooLarge)
		}
	case errors.CodePrototypePollution:
		if h, ok := s.(PrototypePollutionSink); ok {
			guarded(ctx, ev, h.PrototypePollution)
		}
	}
}

func guarded(ctx context.Context, ev Event, fn func(context.Context, Event)) {
	defer func() {
		// A sink panic must not reach the caller; the rejection itself is
		// the signal that matters.
		_ = recover()
	}()
	fn(ctx, ev)
}

// newID produces a UUID-v4-like random identifier using crypto/rand.
func newID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("audit: crypto/rand.Read failed: " + err.Error())
	}
	// Set version (4) and variant (RFC 4122) bits.
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
