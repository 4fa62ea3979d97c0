// Package profile selects the validation profile for individual payloads:
// whether the fast danger-only scan may run, and whether lazy mode is in
// effect. Selection knobs come from pluggable sources and support percentage
// rollouts with consistent bucketing, so a fast-path change can be trialled
// on a fraction of traffic. Evaluations are traced via OTel span events.
package profile

import (
	"context"
	"hash/fnv"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Knob names recognized by Select.
const (
	// FastPathFlag force-enables ("true") or force-disables ("false") the
	// fast danger-only scan, overriding the configured default.
	FastPathFlag = "fast-path"

	// FastPathPercentFlag limits the fast path to a percentage of payloads
	// (0-100), bucketed consistently by content key.
	FastPathPercentFlag = "fast-path-percent"

	// LazyModeFlag force-enables ("true") or force-disables ("false") lazy
	// mode, overriding the size threshold.
	LazyModeFlag = "lazy-mode"
)

// Source provides knob values by name. Implementations may read from
// environment variables, JSON files, remote services, or in-memory maps.
type Source interface {
	Lookup(name string) (value string, ok bool)
}

// Decision is the selected validation profile for one payload.
type Decision struct {
	// TryFast allows the danger-only scan to run before full validation.
	TryFast bool

	// Lazy applies the relaxed check set and the tighter depth bound.
	Lazy bool
}

// Selector wraps a Source and chooses per-payload validation profiles.
type Selector struct {
	source Source
}

// NewSelector creates a Selector backed by the given source.
// Panics if source is nil.
func NewSelector(source Source) *Selector {
	if source == nil {
		panic("profile: source must not be nil")
	}
	return &Selector{source: source}
}

// Enabled returns true if the knob value is "true".
func (s *Selector) Enabled(name string) bool {
	value, ok := s.source.Lookup(name)
	return ok && value == "true"
}

// Variant returns the raw knob value, or defaultVal if the knob is not set.
func (s *Selector) Variant(name string, defaultVal string) string {
	value, ok := s.source.Lookup(name)
	if !ok {
		return defaultVal
	}
	return value
}

// Select refines a base decision with the source's override knobs. key is a
// stable content identifier used for rollout bucketing, so the same payload
// always lands on the same side of a percentage gate; size is recorded on
// the selection span event. Knobs win over the base decision.
func (s *Selector) Select(ctx context.Context, key string, size int64, base Decision) Decision {
	d := base

	if v, ok := s.source.Lookup(LazyModeFlag); ok {
		switch v {
		case "true":
			d.Lazy = true
		case "false":
			d.Lazy = false
		}
	}

	if v, ok := s.source.Lookup(FastPathFlag); ok {
		switch v {
		case "true":
			d.TryFast = true
		case "false":
			d.TryFast = false
		}
	}

	percent := s.percentFor(FastPathPercentFlag, 100)
	if d.TryFast && percent < 100 {
		if percent <= 0 {
			d.TryFast = false
		} else {
			d.TryFast = consistentBucket(FastPathFlag, key) < percent
		}
	}

	s.addSpanEvent(ctx, d, size, percent)
	return d
}

// percentFor parses a knob as an integer percentage, falling back to def
// when the knob is absent or not a number.
func (s *Selector) percentFor(name string, def int) int {
	v, ok := s.source.Lookup(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// consistentBucket returns a deterministic bucket (0-99) for a name+key pair.
func consistentBucket(name, key string) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte{0}) // null-byte separator prevents "ab"+"c" == "a"+"bc" collisions
	h.Write([]byte(key))
	return int(h.Sum32() % 100)
}

// addSpanEvent records a profile selection as an OTel span event.
// Graceful no-op when OTel is not initialized.
func (s *Selector) addSpanEvent(ctx context.Context, d Decision, size int64, percent int) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Bool("profile.fast", d.TryFast),
		attribute.Bool("profile.lazy", d.Lazy),
		attribute.Int64("profile.payload_bytes", size),
	}
	if percent > 0 && percent < 100 {
		attrs = append(attrs, attribute.Int("profile.rollout_percent", percent))
	}
	span.AddEvent("profile.selection", trace.WithAttributes(attrs...))
}
