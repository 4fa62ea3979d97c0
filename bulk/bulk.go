// Package bulk validates batches of payloads in parallel over a bounded
// worker pool, preserving input order and aggregating per-payload failures.
package bulk

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	strictjson "github.com/ai8future/strictjson-go"
)

const tracerName = "github.com/ai8future/strictjson-go/bulk"

// Option configures a bulk run.
type Option func(*config)

type config struct {
	workers int
}

func defaults() config {
	return config{workers: runtime.NumCPU()}
}

// Workers sets the maximum concurrency level. Values less than 1 are clamped to 1.
func Workers(n int) Option {
	return func(c *config) { c.workers = max(1, n) }
}

// Result holds the outcome of validating a single payload.
type Result struct {
	Value any
	Err   error
	Index int
}

// Errors collects per-payload failures from Parse.
type Errors struct {
	Failures []Failure
}

// Failure records the index and error of a single rejected payload.
type Failure struct {
	Index int
	Err   error
}

func (e *Errors) Error() string {
	return fmt.Sprintf("%d payload(s) rejected", len(e.Failures))
}

// Unwrap returns the underlying errors for use with errors.Is / errors.As.
func (e *Errors) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Err
	}
	return out
}

// Parse validates every payload through p with bounded concurrency. Decoded
// values are returned in input order; a slot holds nil where that payload was
// rejected. If any payload fails, the error is *Errors carrying every failure
// by index, so one hostile document never hides the others' outcomes.
func Parse(ctx context.Context, payloads [][]byte, p *strictjson.Parser, opts ...Option) ([]any, error) {
	strictjson.AssertVersionChecked()
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}

	tracer := otelapi.GetTracerProvider().Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "bulk.Parse", trace.WithAttributes(
		attribute.Int("bulk.total", len(payloads)),
	))
	defer span.End()

	pool, err := ants.NewPool(cfg.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	results := make([]any, len(payloads))
	errs := make([]error, len(payloads))
	var wg sync.WaitGroup

	for i, payload := range payloads {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()

			childCtx, childSpan := tracer.Start(ctx, "bulk.Parse.item",
				trace.WithAttributes(attribute.Int("bulk.index", i)),
			)
			defer childSpan.End()

			val, err := p.ParseCtx(childCtx, payload)
			results[i] = val
			errs[i] = err
			if err != nil {
				childSpan.RecordError(err)
			}
		}); err != nil {
			// Pool refused the task (released or overloaded beyond blocking).
			wg.Done()
			errs[i] = err
		}
	}

	wg.Wait()

	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{Index: i, Err: err})
		}
	}

	span.SetAttributes(
		attribute.Int("bulk.succeeded", len(payloads)-len(failures)),
		attribute.Int("bulk.failed", len(failures)),
	)

	if len(failures) > 0 {
		return results, &Errors{Failures: failures}
	}
	return results, nil
}

// Stream validates payloads received from in with bounded concurrency,
// sending one Result per payload to the returned channel. Indexes follow
// receive order. The output channel is closed when the input channel is
// closed and all in-flight work completes.
func Stream(ctx context.Context, in <-chan []byte, p *strictjson.Parser, opts ...Option) <-chan Result {
	strictjson.AssertVersionChecked()
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}

	out := make(chan Result)

	go func() {
		defer close(out)

		tracer := otelapi.GetTracerProvider().Tracer(tracerName)
		ctx, span := tracer.Start(ctx, "bulk.Stream")
		defer span.End()

		pool, err := ants.NewPool(cfg.workers)
		if err != nil {
			out <- Result{Err: err, Index: -1}
			return
		}
		defer pool.Release()

		var wg sync.WaitGroup
		idx := 0
		for payload := range in {
			if ctx.Err() != nil {
				// Stop accepting new payloads but wait for in-flight workers.
				break
			}

			i, data := idx, payload
			idx++
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				val, err := p.ParseCtx(ctx, data)
				out <- Result{Value: val, Err: err, Index: i}
			}); err != nil {
				wg.Done()
				out <- Result{Err: err, Index: i}
			}
		}
		wg.Wait()
	}()

	return out
}
