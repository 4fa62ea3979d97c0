package profile_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ai8future/strictjson-go/profile"
)

func TestFromEnvReadsPrefixedVars(t *testing.T) {
	t.Setenv("STRICTJSON_PROFILE_FAST_PATH", "true")
	t.Setenv("STRICTJSON_PROFILE_LAZY_MODE", "false")
	t.Setenv("UNRELATED_VAR", "ignored")

	src := profile.FromEnv("STRICTJSON_PROFILE")
	s := profile.NewSelector(src)

	if !s.Enabled(profile.FastPathFlag) {
		t.Error("expected fast-path to be enabled")
	}
	if s.Enabled(profile.LazyModeFlag) {
		t.Error("expected lazy-mode to be disabled (value is 'false')")
	}
	if s.Enabled("unrelated-var") {
		t.Error("expected unrelated-var to not exist")
	}
}

func TestFromMapLookup(t *testing.T) {
	src := profile.FromMap(map[string]string{
		profile.FastPathFlag: "true",
		profile.LazyModeFlag: "false",
	})
	s := profile.NewSelector(src)

	if !s.Enabled(profile.FastPathFlag) {
		t.Error("expected fast-path to be enabled")
	}
	if s.Enabled(profile.LazyModeFlag) {
		t.Error("expected lazy-mode to be disabled")
	}
	if s.Enabled("nonexistent") {
		t.Error("expected nonexistent knob to be disabled")
	}
}

func TestFromJSONReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	os.WriteFile(path, []byte(`{"fast-path": "true", "fast-path-percent": "25"}`), 0644)

	src := profile.FromJSON(path)
	s := profile.NewSelector(src)

	if !s.Enabled(profile.FastPathFlag) {
		t.Error("expected fast-path to be enabled")
	}
	if got := s.Variant(profile.FastPathPercentFlag, "100"); got != "25" {
		t.Errorf("Variant(fast-path-percent) = %q, want %q", got, "25")
	}
}

func TestFromJSONPanicsOnMissingFile(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for missing JSON file")
		}
	}()
	profile.FromJSON("/nonexistent/path.json")
}

func TestFromJSONPanicsOnInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte(`not json`), 0644)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for invalid JSON")
		}
	}()
	profile.FromJSON(path)
}

func TestMultiLayering(t *testing.T) {
	base := profile.FromMap(map[string]string{
		profile.FastPathFlag: "true",
		profile.LazyModeFlag: "true",
	})
	override := profile.FromMap(map[string]string{
		profile.LazyModeFlag:        "false",
		profile.FastPathPercentFlag: "50",
	})

	src := profile.Multi(base, override)
	s := profile.NewSelector(src)

	if !s.Enabled(profile.FastPathFlag) {
		t.Error("fast-path should come from base")
	}
	if s.Enabled(profile.LazyModeFlag) {
		t.Error("lazy-mode should be overridden to false")
	}
	if got := s.Variant(profile.FastPathPercentFlag, "100"); got != "50" {
		t.Errorf("fast-path-percent = %q, want %q", got, "50")
	}
}

func TestVariantDefaultAndPresent(t *testing.T) {
	src := profile.FromMap(map[string]string{
		"mode": "strict",
	})
	s := profile.NewSelector(src)

	if got := s.Variant("mode", "relaxed"); got != "strict" {
		t.Errorf("Variant(mode) = %q, want %q", got, "strict")
	}
	if got := s.Variant("missing", "fallback"); got != "fallback" {
		t.Errorf("Variant(missing) = %q, want %q", got, "fallback")
	}
}

func TestNilSourcePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for nil source")
		}
	}()
	profile.NewSelector(nil)
}

func TestFromMapCopiesInput(t *testing.T) {
	m := map[string]string{profile.FastPathFlag: "true"}
	src := profile.FromMap(m)
	s := profile.NewSelector(src)

	// Mutate the original map after construction.
	m[profile.FastPathFlag] = "false"

	if !s.Enabled(profile.FastPathFlag) {
		t.Error("FromMap should copy the input map; mutation should not affect the source")
	}
}

func TestSelectPassesBaseThroughWithoutKnobs(t *testing.T) {
	s := profile.NewSelector(profile.FromMap(nil))
	ctx := context.Background()

	for _, base := range []profile.Decision{
		{TryFast: true, Lazy: false},
		{TryFast: false, Lazy: true},
		{TryFast: false, Lazy: false},
	} {
		if d := s.Select(ctx, "key", 100, base); d != base {
			t.Errorf("Select(%+v) = %+v, want base unchanged", base, d)
		}
	}
}

func TestSelectLazyOverride(t *testing.T) {
	ctx := context.Background()

	s := profile.NewSelector(profile.FromMap(map[string]string{profile.LazyModeFlag: "true"}))
	if d := s.Select(ctx, "key", 10, profile.Decision{}); !d.Lazy {
		t.Error("lazy-mode=true should force lazy")
	}

	s = profile.NewSelector(profile.FromMap(map[string]string{profile.LazyModeFlag: "false"}))
	if d := s.Select(ctx, "key", 5000, profile.Decision{Lazy: true}); d.Lazy {
		t.Error("lazy-mode=false should override a lazy base decision")
	}
}

func TestSelectLazyUnrecognizedValueIgnored(t *testing.T) {
	s := profile.NewSelector(profile.FromMap(map[string]string{profile.LazyModeFlag: "banana"}))

	if d := s.Select(context.Background(), "key", 10, profile.Decision{Lazy: true}); !d.Lazy {
		t.Error("unrecognized lazy-mode value should leave the base decision alone")
	}
}

func TestSelectFastPathOverride(t *testing.T) {
	ctx := context.Background()

	s := profile.NewSelector(profile.FromMap(map[string]string{profile.FastPathFlag: "true"}))
	if d := s.Select(ctx, "key", 10, profile.Decision{}); !d.TryFast {
		t.Error("fast-path=true should override a non-fast base decision")
	}

	s = profile.NewSelector(profile.FromMap(map[string]string{profile.FastPathFlag: "false"}))
	if d := s.Select(ctx, "key", 10, profile.Decision{TryFast: true}); d.TryFast {
		t.Error("fast-path=false should override a fast base decision")
	}
}

func TestSelectRolloutBounds(t *testing.T) {
	ctx := context.Background()
	base := profile.Decision{TryFast: true}

	s := profile.NewSelector(profile.FromMap(map[string]string{profile.FastPathPercentFlag: "0"}))
	if d := s.Select(ctx, "key", 10, base); d.TryFast {
		t.Error("0% rollout should always disable the fast path")
	}

	s = profile.NewSelector(profile.FromMap(map[string]string{profile.FastPathPercentFlag: "100"}))
	if d := s.Select(ctx, "key", 10, base); !d.TryFast {
		t.Error("100% rollout should always allow the fast path")
	}
}

func TestSelectRolloutOnlyGatesFastBase(t *testing.T) {
	s := profile.NewSelector(profile.FromMap(map[string]string{profile.FastPathPercentFlag: "100"}))

	if d := s.Select(context.Background(), "key", 10, profile.Decision{}); d.TryFast {
		t.Error("a percentage alone should not enable a disabled fast path")
	}
}

func TestSelectRolloutDeterministic(t *testing.T) {
	s := profile.NewSelector(profile.FromMap(map[string]string{profile.FastPathPercentFlag: "50"}))
	ctx := context.Background()
	base := profile.Decision{TryFast: true}

	first := s.Select(ctx, "stable-key", 10, base).TryFast
	for range 100 {
		if got := s.Select(ctx, "stable-key", 10, base).TryFast; got != first {
			t.Fatal("Select should be deterministic for the same content key")
		}
	}
}

func TestSelectRolloutDistribution(t *testing.T) {
	s := profile.NewSelector(profile.FromMap(map[string]string{profile.FastPathPercentFlag: "30"}))
	ctx := context.Background()
	base := profile.Decision{TryFast: true}

	enabled := 0
	for i := 0; i < 1000; i++ {
		if s.Select(ctx, fmt.Sprintf("key-%d", i), 10, base).TryFast {
			enabled++
		}
	}
	// 30% of 1000 with generous tolerance for hash skew.
	if enabled < 200 || enabled > 400 {
		t.Errorf("30%% rollout enabled %d of 1000, want roughly 300", enabled)
	}
}

func TestSelectRolloutBadPercentIgnored(t *testing.T) {
	s := profile.NewSelector(profile.FromMap(map[string]string{profile.FastPathPercentFlag: "banana"}))

	if d := s.Select(context.Background(), "key", 10, profile.Decision{TryFast: true}); !d.TryFast {
		t.Error("unparseable percent should fall back to 100")
	}
}
