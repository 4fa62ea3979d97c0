package strictjson

import "encoding/json"

// fastScan is the reduced pre-check: decode with the standard decoder, then
// scan the decoded value for dangerous key names only. Duplicate keys are
// invisible here — the decoder keeps the last value — and depth is not
// enforced, which is why the fast path is opt-in and unsafe for untrusted
// input. Returns ok=false for any finding or decode failure; the caller
// falls through to full validation.
func (p *Parser) fastScan(data []byte) (any, bool) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	if p.scanDanger(v) {
		return nil, false
	}
	return v, true
}

// scanDanger walks the decoded value iteratively and reports whether any
// object key is in the dangerous set. Iteration order does not matter for a
// boolean answer, so the map's random order is fine.
func (p *Parser) scanDanger(v any) bool {
	keys := p.policy.DangerousKeys
	if len(keys) == 0 {
		return false
	}
	stack := []any{v}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch t := cur.(type) {
		case map[string]any:
			for k, child := range t {
				if keys.Contains(k) {
					return true
				}
				stack = append(stack, child)
			}
		case []any:
			stack = append(stack, t...)
		}
	}
	return false
}
