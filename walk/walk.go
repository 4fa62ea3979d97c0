// Package walk validates a JSON parse tree against structural policy:
// duplicate keys per object scope, dangerous key names, allow/deny path
// patterns, and nesting depth. Traversal is iterative over an explicit frame
// stack, so adversarially deep input cannot grow the goroutine stack, and it
// hard-stops at the first violation.
package walk

import (
	"strconv"

	"github.com/ai8future/strictjson-go/errors"
	"github.com/ai8future/strictjson-go/pattern"
	"github.com/ai8future/strictjson-go/syntax"
)

// Policy carries the knobs one walk honors. The zero value checks nothing:
// callers opt in to each control.
type Policy struct {
	// MaxDepth caps nesting. Zero or negative means unlimited here; the entry
	// point applies its own default before handing a policy over.
	MaxDepth int

	// LazyDepthLimit is the degraded-profile cap. In lazy mode the tighter of
	// the two limits wins.
	LazyDepthLimit int

	// LazyMode marks the degraded profile for oversized payloads.
	LazyMode bool

	// AllowKeys is the admission list for key paths. Nil leaves paths
	// unrestricted; an empty non-nil list admits nothing.
	AllowKeys []string

	// DenyKeys rejects matching key paths. Never relaxed, in any mode.
	DenyKeys []string

	// DangerousKeys are rejected by exact name match. Nil or empty disables
	// the check.
	DangerousKeys KeySet

	// SkipDangerCheck and SkipAllowCheck relax the two relaxable checks for
	// the lazy profile. Deny and duplicate detection have no skip: they hold
	// in every mode.
	SkipDangerCheck bool
	SkipAllowCheck  bool
}

// effectiveLimit resolves the depth cap for this walk.
func (p Policy) effectiveLimit() int {
	limit := p.MaxDepth
	if p.LazyMode && p.LazyDepthLimit > 0 && (limit <= 0 || p.LazyDepthLimit < limit) {
		limit = p.LazyDepthLimit
	}
	return limit
}

// Outcome reports a completed walk. A duplicate key is a normal result, not
// an error: repeated keys are expected hostile traffic and the entry point
// decides how to surface them. Key and Path are set only when Duplicate is.
type Outcome struct {
	Duplicate bool
	Key       string
	Path      string
}

// frame is one step of the traversal. Container frames are resumed: next
// remembers the child cursor so each value subtree completes before the
// following sibling is examined, keeping violations in document order. seen
// belongs to exactly one object scope and is never shared between frames.
type frame struct {
	node  *syntax.Node
	path  string // display form: "$", "$.user.name", "$.items[3]"
	rel   string // match form, root-relative: "", "user.name", "items[*]"
	depth int
	next  int
	seen  map[string]struct{}
}

// Walk traverses root depth-first in document order, applying pol. It returns
// the first duplicate key as a non-error Outcome, or the first policy
// violation as a *errors.RejectionError; nothing past the first finding is
// examined.
func Walk(root *syntax.Node, pol Policy) (Outcome, error) {
	if root == nil {
		return Outcome{}, nil
	}

	limit := pol.effectiveLimit()
	allow := pol.AllowKeys
	if pol.SkipAllowCheck {
		allow = nil
	}
	checkPatterns := allow != nil || len(pol.DenyKeys) > 0
	checkDanger := len(pol.DangerousKeys) > 0 && !pol.SkipDangerCheck

	stack := make([]*frame, 1, 16)
	stack[0] = &frame{node: root, path: "$"}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.next == 0 && limit > 0 && top.depth > limit {
			return Outcome{}, errors.DepthLimit(top.depth, limit)
		}

		switch top.node.Kind {
		case syntax.KindObject:
			if top.next >= len(top.node.Children) {
				stack = stack[:len(stack)-1]
				continue
			}
			prop := top.node.Children[top.next]
			top.next++

			key := prop.Key
			keyPath := top.path + "." + key
			relPath := key
			if top.rel != "" {
				relPath = top.rel + "." + key
			}

			if checkPatterns && !pattern.Allowed(relPath, allow, pol.DenyKeys) {
				return Outcome{}, errors.DisallowedKey(key, keyPath)
			}
			if checkDanger && pol.DangerousKeys.Contains(key) {
				return Outcome{}, errors.PrototypePollution(key, keyPath)
			}
			if top.seen == nil {
				top.seen = make(map[string]struct{}, len(top.node.Children))
			}
			if _, dup := top.seen[key]; dup {
				return Outcome{Duplicate: true, Key: key, Path: keyPath}, nil
			}
			top.seen[key] = struct{}{}

			stack = append(stack, &frame{
				node:  prop.Children[0],
				path:  keyPath,
				rel:   relPath,
				depth: top.depth + 1,
			})

		case syntax.KindArray:
			if top.next >= len(top.node.Children) {
				stack = stack[:len(stack)-1]
				continue
			}
			idx := top.next
			top.next++

			stack = append(stack, &frame{
				node:  top.node.Children[idx],
				path:  top.path + "[" + strconv.Itoa(idx) + "]",
				rel:   top.rel + "[*]",
				depth: top.depth + 1,
			})

		default:
			stack = stack[:len(stack)-1]
		}
	}

	return Outcome{}, nil
}
