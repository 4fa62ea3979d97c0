// Package syntax builds a lossless parse tree from JSON bytes using the
// standard decoder's token stream. The tree preserves every property in
// document order, including repeated keys that a decoded map would silently
// collapse, so policy checks downstream see the input as written.
// Construction is iterative; input depth never grows the goroutine stack.
package syntax

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors — module-local, wrapped with detail by Build.
var (
	ErrEmptyInput   = errors.New("syntax: empty input")
	ErrMalformed    = errors.New("syntax: malformed JSON")
	ErrTrailingData = errors.New("syntax: trailing data after top-level value")
)

// Kind discriminates tree nodes.
type Kind uint8

const (
	KindObject Kind = iota
	KindArray
	KindProperty
	KindString
	KindNumber
	KindBool
	KindNull
)

// Node is one element of the parse tree. Containers carry Children (an
// object's children are Property nodes in document order; a property's only
// child is its value). Leaves carry Value: string, json.Number, bool, or nil.
// Offset is the byte position just past the node's first token, for
// diagnostics.
type Node struct {
	Kind     Kind
	Key      string // Property nodes: the key text, verbatim
	Value    any
	Offset   int64
	Children []*Node
}

type buildFrame struct {
	node      *Node
	expectKey bool  // object frames: the next token is a key
	prop      *Node // open property awaiting its value
}

// Build parses data into a tree. It accepts exactly one top-level JSON value;
// empty input, malformed syntax, and trailing data are rejected with errors
// wrapping the package sentinels.
func Build(data []byte) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var (
		root  *Node
		stack []*buildFrame
	)

	attach := func(n *Node) {
		if len(stack) == 0 {
			root = n
			return
		}
		top := stack[len(stack)-1]
		switch top.node.Kind {
		case KindObject:
			top.prop.Children = append(top.prop.Children, n)
			top.prop = nil
			top.expectKey = true
		case KindArray:
			top.node.Children = append(top.node.Children, n)
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if root != nil && len(stack) == 0 {
			return nil, ErrTrailingData
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				kind := KindObject
				if v == '[' {
					kind = KindArray
				}
				n := &Node{Kind: kind, Offset: dec.InputOffset()}
				attach(n)
				stack = append(stack, &buildFrame{node: n, expectKey: v == '{'})
			case '}', ']':
				stack = stack[:len(stack)-1]
			}
		case string:
			if top := peek(stack); top != nil && top.node.Kind == KindObject && top.expectKey {
				prop := &Node{Kind: KindProperty, Key: v, Offset: dec.InputOffset()}
				top.node.Children = append(top.node.Children, prop)
				top.prop = prop
				top.expectKey = false
				continue
			}
			attach(&Node{Kind: KindString, Value: v, Offset: dec.InputOffset()})
		case json.Number:
			attach(&Node{Kind: KindNumber, Value: v, Offset: dec.InputOffset()})
		case bool:
			attach(&Node{Kind: KindBool, Value: v, Offset: dec.InputOffset()})
		case nil:
			attach(&Node{Kind: KindNull, Offset: dec.InputOffset()})
		}
	}

	if root == nil || len(stack) != 0 {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrMalformed)
	}
	return root, nil
}

func peek(stack []*buildFrame) *buildFrame {
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}
