package strictjson

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/ai8future/strictjson-go/audit"
	"github.com/ai8future/strictjson-go/errors"
)

// notify dispatches the rejection to the configured sinks. Synchronous
// dispatch completes before the error reaches the caller; async dispatch
// runs on a goroutine with a detached context that keeps only the span
// linkage, so sink work survives the caller's cancellation.
func (p *Parser) notify(ctx context.Context, re *errors.RejectionError, size int64) {
	if len(p.sinks) == 0 {
		return
	}
	ev := audit.NewEvent(ctx, re, size)
	if p.opts.AsyncNotify {
		detached := trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx))
		go audit.Dispatch(detached, p.sinks, ev)
		return
	}
	audit.Dispatch(ctx, p.sinks, ev)
}
