package walk

// KeySet holds the key names rejected when dangerous-key protection is on.
// Membership is exact string equality on the immediate key name: no case
// folding, no separator mapping, no trimming. An override set means exactly
// what it says and never widens silently.
type KeySet map[string]struct{}

// DefaultDangerousKeys returns the default set: the three names that rewrite
// object prototypes when a decoded payload is merged into a scripting-side
// object graph downstream.
func DefaultDangerousKeys() KeySet {
	return KeySet{
		"__proto__":   {},
		"constructor": {},
		"prototype":   {},
	}
}

// NewKeySet builds a set from explicit names. Nil or empty input yields a set
// that blocks nothing, which is how callers disable the check.
func NewKeySet(keys []string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Contains reports whether key is in the set.
func (s KeySet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}
