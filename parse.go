package strictjson

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ai8future/strictjson-go/audit"
	"github.com/ai8future/strictjson-go/cache"
	"github.com/ai8future/strictjson-go/errors"
	"github.com/ai8future/strictjson-go/metrics"
	"github.com/ai8future/strictjson-go/profile"
	"github.com/ai8future/strictjson-go/syntax"
	"github.com/ai8future/strictjson-go/walk"
)

// Parser validates and decodes JSON payloads under a fixed policy. It is
// immutable after construction and safe for concurrent use; concurrent calls
// with identical payloads share one validation pass when caching is enabled.
type Parser struct {
	opts         Options
	policy       walk.Policy
	lazyPolicy   walk.Policy
	fingerprint  string
	fastEligible bool
	cache        *cache.Cache
	flight       singleflight.Group
	sinks        []audit.Sink
	logger       *slog.Logger
	metrics      *metrics.Recorder
	profiles     *profile.Selector
	tracer       trace.Tracer
}

// NewParser builds a Parser from opts, applying defaults to zero values.
func NewParser(opts Options) (*Parser, error) {
	AssertVersionChecked()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	danger := opts.dangerKeys()
	p := &Parser{
		opts:         opts,
		policy:       opts.policy(false, danger),
		lazyPolicy:   opts.policy(true, danger),
		fingerprint:  opts.fingerprint(danger),
		fastEligible: opts.AllowKeys == nil && len(opts.DenyKeys) == 0,
		sinks:        opts.Sinks,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		profiles:     opts.Profiles,
		tracer:       otelapi.Tracer("strictjson"),
	}

	switch {
	case opts.DisableCache:
		// validation runs uncached
	case opts.Cache != nil:
		p.cache = opts.Cache
	case opts.CacheSize == cache.DefaultCapacity && opts.CacheTTL == cache.DefaultTTL:
		p.cache = defaultCache()
	default:
		p.cache = cache.New(opts.CacheSize, opts.CacheTTL)
	}
	return p, nil
}

// Parse validates and decodes a single JSON payload. See ParseCtx.
func (p *Parser) Parse(data []byte) (any, error) {
	return p.ParseCtx(context.Background(), data)
}

// ParseCtx validates data against the parser's policy and decodes it on a
// clean pass. The sequence is: size check, cache probe, profile selection,
// optional fast scan, tree validation, decode, cache store. A cache hit
// returns the stored value without re-validating. Failures return a
// *errors.RejectionError carrying a stable code; registered sinks are
// notified before the error is returned, or on a detached goroutine with
// AsyncNotify. ctx carries the active span for trace correlation; it does
// not cancel validation, which always runs to completion once started.
func (p *Parser) ParseCtx(ctx context.Context, data []byte) (any, error) {
	start := time.Now()
	size := int64(len(data))

	ctx, span := p.tracer.Start(ctx, "strictjson.Parse",
		trace.WithAttributes(attribute.Int64("strictjson.payload_bytes", size)))
	defer span.End()

	if p.opts.MaxBodyBytes > 0 && size > p.opts.MaxBodyBytes {
		return nil, p.reject(ctx, errors.BodyTooLarge(size, p.opts.MaxBodyBytes), size, start, "none")
	}

	var key cache.Key
	haveKey := false
	if p.cache != nil {
		key = cache.NewKey(data, p.fingerprint)
		haveKey = true
		if v, ok := p.cache.Get(key); ok {
			span.SetAttributes(
				attribute.Bool("strictjson.cache_hit", true),
				attribute.String("strictjson.mode", "cache"),
			)
			if p.metrics != nil {
				p.metrics.RecordCacheEvent(ctx, "hit")
			}
			p.observe(ctx, "ok", "cache", start, size)
			return v, nil
		}
		if p.metrics != nil {
			p.metrics.RecordCacheEvent(ctx, "miss")
		}
	}

	d := p.decide(ctx, data, key, haveKey, size)

	if d.TryFast && p.fastEligible {
		if v, ok := p.fastScan(data); ok {
			span.SetAttributes(attribute.String("strictjson.mode", "fast"))
			p.observe(ctx, "ok", "fast", start, size)
			return v, nil
		}
		// Fall through on any scan finding so rejections carry the canonical
		// path and ordering from the full walker.
	}

	mode := "full"
	pol := p.policy
	if d.Lazy {
		mode = "lazy"
		pol = p.lazyPolicy
	}
	span.SetAttributes(attribute.String("strictjson.mode", mode))

	v, err := p.validated(ctx, data, pol, key, haveKey)
	if err != nil {
		return nil, p.reject(ctx, errors.FromError(err), size, start, mode)
	}
	p.observe(ctx, "ok", mode, start, size)
	return v, nil
}

// decide resolves the execution profile for one payload.
func (p *Parser) decide(ctx context.Context, data []byte, key cache.Key, haveKey bool, size int64) profile.Decision {
	base := profile.Decision{
		TryFast: p.opts.EnableFastPath && p.fastEligible,
		Lazy:    p.opts.LazyThreshold > 0 && size >= p.opts.LazyThreshold,
	}
	if p.opts.Lazy != nil {
		base.Lazy = *p.opts.Lazy
	}
	if p.profiles == nil {
		return base
	}
	if !haveKey {
		key = cache.NewKey(data, p.fingerprint)
	}
	return p.profiles.Select(ctx, hex.EncodeToString(key[:]), size, base)
}

// validated runs the full pipeline, deduplicating concurrent identical
// payloads and storing successes when a cache is attached.
func (p *Parser) validated(ctx context.Context, data []byte, pol walk.Policy, key cache.Key, haveKey bool) (any, error) {
	if !haveKey {
		return pipeline(data, pol)
	}
	v, err, _ := p.flight.Do(string(key[:]), func() (any, error) {
		// A concurrent caller may have stored the result while this call
		// waited for the flight.
		if v, ok := p.cache.Get(key); ok {
			return v, nil
		}
		v, err := pipeline(data, pol)
		if err != nil {
			return nil, err
		}
		p.cache.Set(key, v)
		if p.metrics != nil {
			p.metrics.RecordCacheEvent(ctx, "store")
		}
		return v, nil
	})
	return v, err
}

// pipeline builds the syntax tree, walks it, and decodes on a clean pass.
func pipeline(data []byte, pol walk.Policy) (any, error) {
	root, err := syntax.Build(data)
	if err != nil {
		return nil, errors.FromError(err)
	}
	outcome, err := walk.Walk(root, pol)
	if err != nil {
		return nil, err
	}
	if outcome.Duplicate {
		return nil, errors.DuplicateKey(outcome.Key, outcome.Path)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.FromError(err)
	}
	return v, nil
}

// reject records the rejection on the span, logs it, updates metrics,
// notifies sinks, and returns re for the caller.
func (p *Parser) reject(ctx context.Context, re *errors.RejectionError, size int64, start time.Time, mode string) error {
	span := trace.SpanFromContext(ctx)
	span.RecordError(re)
	span.SetStatus(otelcodes.Error, string(re.Code))
	span.SetAttributes(attribute.String("strictjson.code", string(re.Code)))

	if p.logger != nil {
		p.logger.LogAttrs(ctx, slog.LevelDebug, "payload rejected",
			slog.String("code", string(re.Code)),
			slog.String("path", re.Path),
			slog.Int64("size", size),
		)
	}
	p.observe(ctx, string(re.Code), mode, start, size)
	p.notify(ctx, re, size)
	return re
}

// observe records one parse on the metrics recorder, when present.
func (p *Parser) observe(ctx context.Context, outcome, mode string, start time.Time, size int64) {
	if p.metrics == nil {
		return
	}
	durationMs := float64(time.Since(start).Microseconds()) / 1000
	p.metrics.RecordParse(ctx, outcome, mode, durationMs, float64(size))
}

// Parse validates data with a one-off Parser built from opts.
func Parse(data []byte, opts Options) (any, error) {
	p, err := NewParser(opts)
	if err != nil {
		return nil, err
	}
	return p.Parse(data)
}

var (
	defaultCacheOnce sync.Once
	sharedCache      *cache.Cache
)

// defaultCache returns the process-wide cache shared by parsers that do not
// configure their own.
func defaultCache() *cache.Cache {
	defaultCacheOnce.Do(func() {
		sharedCache = cache.New(cache.DefaultCapacity, cache.DefaultTTL)
	})
	return sharedCache
}

// ClearCache empties the process-wide shared cache.
func ClearCache() {
	defaultCache().Clear()
}

// CacheSize reports the number of live entries in the process-wide shared
// cache.
func CacheSize() int {
	return defaultCache().Len()
}
