// Package testkit provides lightweight test helpers for strictjson-go
// packages. It has zero dependencies on other packages in the module.
package testkit

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"
)

// testWriter is an io.Writer that forwards all writes to testing.TB.Log.
type testWriter struct {
	t testing.TB
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// NewLogger returns a *slog.Logger that writes JSON output to t.Log so that
// log lines appear alongside test output and are suppressed on success unless
// -v is passed.  The level is set to Debug so every message is captured.
func NewLogger(t testing.TB) *slog.Logger {
	t.Helper()
	w := &testWriter{t: t}
	handler := slog.NewJSONHandler(io.Writer(w), &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return slog.New(handler)
}

// SetEnv sets the supplied environment variables and registers a t.Cleanup to
// unset them after the test. This is the building block for test config — pair
// it with config.MustLoad[T]() in your test to load typed configuration.
//
// Example:
//
//	testkit.SetEnv(t, map[string]string{"STRICTJSON_MAX_DEPTH": "10"})
//	cfg := config.MustLoad[AppConfig]()
func SetEnv(t testing.TB, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for k := range envs {
			os.Unsetenv(k)
		}
	})
}

// NestedObject returns a JSON document of objects nested depth levels deep,
// ending in a scalar: NestedObject(3) is {"a":{"a":{"a":1}}}.
func NestedObject(depth int) []byte {
	var b strings.Builder
	for range depth {
		b.WriteString(`{"a":`)
	}
	b.WriteString("1")
	for range depth {
		b.WriteByte('}')
	}
	return []byte(b.String())
}

// NestedArray returns a JSON document of arrays nested depth levels deep,
// ending in a scalar: NestedArray(3) is [[[1]]].
func NestedArray(depth int) []byte {
	var b strings.Builder
	for range depth {
		b.WriteByte('[')
	}
	b.WriteString("1")
	for range depth {
		b.WriteByte(']')
	}
	return []byte(b.String())
}

// WideObject returns a flat JSON object with n distinct keys k0..k{n-1}.
func WideObject(n int) []byte {
	var b strings.Builder
	b.WriteByte('{')
	for i := range n {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"k`)
		b.WriteString(strconv.Itoa(i))
		b.WriteString(`":`)
		b.WriteString(strconv.Itoa(i))
	}
	b.WriteByte('}')
	return []byte(b.String())
}

// Padded returns a valid JSON object padded to exactly n bytes (or the
// minimal object size if n is smaller than that). Useful for exercising size
// thresholds without constructing interesting structure.
func Padded(n int) []byte {
	const overhead = len(`{"pad":""}`)
	fill := n - overhead
	if fill < 0 {
		fill = 0
	}
	return []byte(`{"pad":"` + strings.Repeat("x", fill) + `"}`)
}
