// Package pattern matches JSON key paths against glob patterns and applies
// allow/deny policy. It has NO cross-module dependencies.
//
// Paths are dot-joined key names relative to the document root ("user.profile.email"),
// with array hops already normalized to the wildcard index form ("items[*].id").
// Pattern vocabulary:
//
//	?   exactly one character, any kind
//	*   a run of characters excluding the separator "." — except at pattern
//	    end or immediately before "." or "]", where it also crosses segments
//	    so trailing-star idioms ("user.*") behave as readers expect
//	**  any sequence of characters including separators (any depth)
//
// Everything else matches literally.
package pattern

import (
	"regexp"
	"strings"
	"sync"
)

// Match reports whether path matches the glob pattern. Matching is anchored:
// the pattern must cover the whole path.
func Match(path, pat string) bool {
	return matcherFor(pat).MatchString(path)
}

// Allowed applies allow/deny policy to a path.
//
// A nil allow list leaves every path admitted; a non-nil empty allow list
// admits nothing. With a non-nil allow list a path is admitted when it
// exactly equals an entry, globs against an entry, names an ancestor of an
// entry's literal text (so walking toward an allowed leaf stays possible),
// or is a strict prefix of a wildcard entry's literal head.
//
// A path matching any deny pattern is then rejected, unless an exact
// (wildcard-free) allow entry equals the path: explicit allows override deny
// globs, wildcard-admitted paths do not. An empty deny list denies nothing.
func Allowed(path string, allow, deny []string) bool {
	if allow != nil && !admitted(path, allow) {
		return false
	}
	for _, d := range deny {
		if Match(path, d) {
			return exactAllowed(path, allow)
		}
	}
	return true
}

func admitted(path string, allow []string) bool {
	for _, pat := range allow {
		if pat == path {
			return true
		}
		if ancestorOf(path, pat) {
			return true
		}
		if !hasWildcard(pat) {
			continue
		}
		if Match(path, pat) {
			return true
		}
		// Ancestors of the literal text before the first wildcard are
		// admitted too: "user.*.email" keeps "user" walkable.
		if head := literalHead(pat); len(path) < len(head) && strings.HasPrefix(head, path) {
			return true
		}
	}
	return false
}

func exactAllowed(path string, allow []string) bool {
	for _, pat := range allow {
		if !hasWildcard(pat) && pat == path {
			return true
		}
	}
	return false
}

// ancestorOf reports whether path names a proper ancestor of the pattern's
// literal text, honoring segment boundaries: "user" is an ancestor of
// "user.profile.email", "us" is not.
func ancestorOf(path, pat string) bool {
	return strings.HasPrefix(pat, path+".") || strings.HasPrefix(pat, path+"[")
}

func hasWildcard(pat string) bool {
	return strings.ContainsAny(pat, "*?")
}

// literalHead returns the pattern text before the first wildcard rune.
func literalHead(pat string) string {
	if i := strings.IndexAny(pat, "*?"); i >= 0 {
		return pat[:i]
	}
	return pat
}

var (
	matcherMu sync.RWMutex
	matchers  = make(map[string]*regexp.Regexp)
)

// matcherFor returns the compiled matcher for a pattern, compiling on first
// use. Patterns come from configuration, not payloads, so the cache is
// unbounded. Double-checked so the write lock is only taken on a miss.
func matcherFor(pat string) *regexp.Regexp {
	matcherMu.RLock()
	re, ok := matchers[pat]
	matcherMu.RUnlock()
	if ok {
		return re
	}

	matcherMu.Lock()
	defer matcherMu.Unlock()
	if re, ok := matchers[pat]; ok {
		return re
	}
	re = regexp.MustCompile(translate(pat))
	matchers[pat] = re
	return re
}

// translate converts a glob pattern into an anchored regular expression.
// The output is always a valid expression: every non-wildcard rune is quoted.
// (?s) keeps wildcards working on keys that contain newlines.
func translate(pat string) string {
	var b strings.Builder
	b.WriteString("(?s)^")
	runes := []rune(pat)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
				continue
			}
			if i == len(runes)-1 || runes[i+1] == '.' || runes[i+1] == ']' {
				b.WriteString(".*")
				continue
			}
			b.WriteString(`[^.]*`)
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}
	b.WriteString("$")
	return b.String()
}
