package strictjson

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ai8future/strictjson-go/audit"
	"github.com/ai8future/strictjson-go/cache"
	"github.com/ai8future/strictjson-go/config"
	"github.com/ai8future/strictjson-go/logz"
	"github.com/ai8future/strictjson-go/metrics"
	"github.com/ai8future/strictjson-go/profile"
	"github.com/ai8future/strictjson-go/walk"
)

// Defaults applied by NewParser to zero-valued options.
const (
	DefaultMaxDepth       = 20
	DefaultLazyThreshold  = 102400
	DefaultLazyDepthLimit = 10
)

// Options configures a Parser. The zero value is usable: full validation at
// default limits, shared default cache, no sinks, no telemetry.
type Options struct {
	// MaxDepth caps nesting depth. Zero applies DefaultMaxDepth; a negative
	// value disables the limit entirely.
	MaxDepth int

	// MaxBodyBytes rejects payloads larger than this before any parsing.
	// Zero disables the size check.
	MaxBodyBytes int64

	// CacheSize and CacheTTL bound the validation cache. Zero values apply
	// the cache package defaults (1000 entries, 60s). When both are left at
	// their defaults and Cache is nil, the process-wide shared cache is used;
	// non-default values give the Parser a private instance.
	CacheSize int
	CacheTTL  time.Duration

	// DisableCache turns result caching off for this Parser.
	DisableCache bool

	// EnableFastPath permits a reduced pre-check: decode plus dangerous-key
	// scan, with NO duplicate-key, depth, or pattern checks. A payload that
	// passes the scan is accepted as-is, so this mode is unsafe for untrusted
	// input. Any scan finding falls through to full validation. Ignored when
	// AllowKeys or DenyKeys are configured, since those checks may not be
	// bypassed.
	EnableFastPath bool

	// LazyThreshold auto-activates lazy mode for payloads of at least this
	// many bytes. Zero applies DefaultLazyThreshold; negative disables
	// size-based activation.
	LazyThreshold int64

	// LazyDepthLimit is the tightened depth cap in lazy mode. Zero applies
	// DefaultLazyDepthLimit; negative leaves MaxDepth in effect.
	LazyDepthLimit int

	// Lazy overrides the size heuristic: explicit true forces lazy mode for
	// every payload, explicit false forbids it. Nil selects by size.
	Lazy *bool

	// LazyCheckDangerous and LazyCheckAllow keep the dangerous-key and
	// allow-list checks active in lazy mode, which relaxes both by default.
	// Deny-list and duplicate-key checks are never relaxed.
	LazyCheckDangerous bool
	LazyCheckAllow     bool

	// AllowKeys admits only matching key paths. Nil leaves paths
	// unrestricted; an empty non-nil list admits nothing.
	AllowKeys []string

	// DenyKeys rejects matching key paths in every mode.
	DenyKeys []string

	// DangerousKeys overrides the dangerous-key set. Nil selects the default
	// set (__proto__, constructor, prototype); an empty non-nil slice
	// disables the check.
	DangerousKeys []string

	// ProtectPrototype toggles the dangerous-key check. Nil means enabled.
	ProtectPrototype *bool

	// Sinks receive a structured event for every rejection.
	Sinks []audit.Sink

	// AsyncNotify dispatches sink notifications on a detached goroutine
	// instead of before the error return.
	AsyncNotify bool

	// Logger receives debug-level rejection records. Nil stays silent.
	Logger *slog.Logger

	// Metrics records parse outcomes, durations, sizes and cache events.
	Metrics *metrics.Recorder

	// Profiles supplies runtime fast-path/lazy overrides and rollout.
	Profiles *profile.Selector

	// Cache overrides the cache instance. Takes precedence over
	// CacheSize/CacheTTL and the shared default.
	Cache *cache.Cache
}

// validate rejects option combinations that cannot be normalized.
func (o Options) validate() error {
	if o.MaxBodyBytes < 0 {
		return fmt.Errorf("strictjson: MaxBodyBytes must not be negative, got %d", o.MaxBodyBytes)
	}
	if o.CacheSize < 0 {
		return fmt.Errorf("strictjson: CacheSize must not be negative, got %d", o.CacheSize)
	}
	if o.CacheTTL < 0 {
		return fmt.Errorf("strictjson: CacheTTL must not be negative, got %v", o.CacheTTL)
	}
	return nil
}

// withDefaults fills zero values. Negative MaxDepth/LazyThreshold/
// LazyDepthLimit survive as explicit "disabled" markers.
func (o Options) withDefaults() Options {
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.LazyThreshold == 0 {
		o.LazyThreshold = DefaultLazyThreshold
	}
	if o.LazyDepthLimit == 0 {
		o.LazyDepthLimit = DefaultLazyDepthLimit
	}
	if o.CacheSize == 0 {
		o.CacheSize = cache.DefaultCapacity
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = cache.DefaultTTL
	}
	return o
}

// dangerKeys resolves the effective dangerous-key set.
func (o Options) dangerKeys() walk.KeySet {
	if o.ProtectPrototype != nil && !*o.ProtectPrototype {
		return walk.KeySet{}
	}
	if o.DangerousKeys == nil {
		return walk.DefaultDangerousKeys()
	}
	return walk.NewKeySet(o.DangerousKeys)
}

// policy builds the walk policy for one mode.
func (o Options) policy(lazy bool, danger walk.KeySet) walk.Policy {
	maxDepth := o.MaxDepth
	if maxDepth < 0 {
		maxDepth = 0
	}
	lazyDepth := o.LazyDepthLimit
	if lazyDepth < 0 {
		lazyDepth = 0
	}
	return walk.Policy{
		MaxDepth:        maxDepth,
		LazyDepthLimit:  lazyDepth,
		LazyMode:        lazy,
		AllowKeys:       o.AllowKeys,
		DenyKeys:        o.DenyKeys,
		DangerousKeys:   danger,
		SkipDangerCheck: lazy && !o.LazyCheckDangerous,
		SkipAllowCheck:  lazy && !o.LazyCheckAllow,
	}
}

// fingerprint canonicalizes every option that can change a validation
// outcome. Cache keys mix it with the payload bytes, so parsers with
// different policies never share entries even on a shared cache instance.
func (o Options) fingerprint(danger walk.KeySet) string {
	dangerKeys := make([]string, 0, len(danger))
	for k := range danger {
		dangerKeys = append(dangerKeys, k)
	}
	sort.Strings(dangerKeys)

	var b strings.Builder
	b.WriteString("v1;")
	fmt.Fprintf(&b, "depth=%d;", o.MaxDepth)
	fmt.Fprintf(&b, "lazydepth=%d;", o.LazyDepthLimit)
	fmt.Fprintf(&b, "lazythresh=%d;", o.LazyThreshold)
	switch {
	case o.Lazy == nil:
		b.WriteString("lazy=auto;")
	case *o.Lazy:
		b.WriteString("lazy=on;")
	default:
		b.WriteString("lazy=off;")
	}
	fmt.Fprintf(&b, "lazychecks=%t,%t;", o.LazyCheckDangerous, o.LazyCheckAllow)
	fmt.Fprintf(&b, "danger=%q;", dangerKeys)
	if o.AllowKeys == nil {
		b.WriteString("allow=nil;")
	} else {
		fmt.Fprintf(&b, "allow=%q;", o.AllowKeys)
	}
	fmt.Fprintf(&b, "deny=%q;", o.DenyKeys)
	return b.String()
}

// envOptions is the OptionsFromEnv schema.
type envOptions struct {
	MaxDepth         int           `env:"STRICTJSON_MAX_DEPTH" default:"20"`
	MaxBodyBytes     int64         `env:"STRICTJSON_MAX_BODY_BYTES" required:"false"`
	CacheSize        int           `env:"STRICTJSON_CACHE_SIZE" default:"1000"`
	CacheTTL         time.Duration `env:"STRICTJSON_CACHE_TTL" default:"60s"`
	DisableCache     bool          `env:"STRICTJSON_DISABLE_CACHE" default:"false"`
	EnableFastPath   bool          `env:"STRICTJSON_ENABLE_FAST_PATH" default:"false"`
	LazyThreshold    int64         `env:"STRICTJSON_LAZY_THRESHOLD" default:"102400"`
	LazyDepthLimit   int           `env:"STRICTJSON_LAZY_DEPTH_LIMIT" default:"10"`
	AllowKeys        []string      `env:"STRICTJSON_ALLOW_KEYS" required:"false"`
	DenyKeys         []string      `env:"STRICTJSON_DENY_KEYS" required:"false"`
	DangerousKeys    []string      `env:"STRICTJSON_DANGEROUS_KEYS" required:"false"`
	ProtectPrototype bool          `env:"STRICTJSON_PROTECT_PROTOTYPE" default:"true"`
	AsyncNotify      bool          `env:"STRICTJSON_ASYNC_NOTIFY" default:"false"`
	LogLevel         string        `env:"STRICTJSON_LOG_LEVEL" default:"info"`
}

// OptionsFromEnv builds Options from STRICTJSON_* environment variables and
// wires a JSON logger at STRICTJSON_LOG_LEVEL. List-valued variables are
// comma-separated. Unset optional variables leave the corresponding option
// at its default.
func OptionsFromEnv() (Options, error) {
	AssertVersionChecked()
	cfg, err := config.Load[envOptions]()
	if err != nil {
		return Options{}, err
	}
	protect := cfg.ProtectPrototype
	return Options{
		MaxDepth:         cfg.MaxDepth,
		MaxBodyBytes:     cfg.MaxBodyBytes,
		CacheSize:        cfg.CacheSize,
		CacheTTL:         cfg.CacheTTL,
		DisableCache:     cfg.DisableCache,
		EnableFastPath:   cfg.EnableFastPath,
		LazyThreshold:    cfg.LazyThreshold,
		LazyDepthLimit:   cfg.LazyDepthLimit,
		AllowKeys:        cfg.AllowKeys,
		DenyKeys:         cfg.DenyKeys,
		DangerousKeys:    cfg.DangerousKeys,
		ProtectPrototype: &protect,
		AsyncNotify:      cfg.AsyncNotify,
		Logger:           logz.New(cfg.LogLevel),
	}, nil
}
