// Package param implements Parameters: the dynamically-typed parameter
// tree carried on every packet. A Parameters value decodes from and
// encodes to JSON, supports slash-separated path lookup ("/a/b"), and a
// shallow merge used by the dispatch engine to propagate request-scoped
// context downstream (spec.md §4.3.1).
package param

import (
	"encoding/json"
	"strings"
)

// Parameters is an object/array/string/number/bool/null tree, represented
// the same way encoding/json decodes into `any`: map[string]any, []any,
// string, float64, bool, or nil. Parameters is a thin, cheap-to-copy
// wrapper over a pointer to that tree so packets can pass it by value
// without deep-copying on every hop; callers that mutate a Parameters
// value share state with anyone else holding a copy unless they call
// Clone first.
type Parameters struct {
	root map[string]any
}

// New returns an empty Parameters object.
func New() Parameters {
	return Parameters{root: map[string]any{}}
}

// FromMap wraps an existing map as Parameters without copying it.
func FromMap(m map[string]any) Parameters {
	if m == nil {
		m = map[string]any{}
	}
	return Parameters{root: m}
}

// IsZero reports whether p carries no keys.
func (p Parameters) IsZero() bool {
	return len(p.root) == 0
}

// Map returns the underlying map. Callers must treat it as read-only
// unless they own the only reference (e.g. just built via New or Clone).
func (p Parameters) Map() map[string]any {
	if p.root == nil {
		return map[string]any{}
	}
	return p.root
}

// Set assigns a top-level key.
func (p Parameters) Set(key string, value any) {
	p.root[key] = value
}

// Clone deep-copies p via a JSON round trip, which is sufficient given
// Parameters only ever holds JSON-shaped values.
func (p Parameters) Clone() Parameters {
	if p.root == nil {
		return New()
	}
	b, err := json.Marshal(p.root)
	if err != nil {
		// A tree built exclusively from JSON-shaped values (maps, slices,
		// strings, float64, bool, nil) always marshals; a failure here
		// means a caller inserted a non-JSON value by hand.
		panic("param: clone of non-JSON-shaped value: " + err.Error())
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		panic("param: clone round-trip failed: " + err.Error())
	}
	return Parameters{root: out}
}

// Get resolves a slash-separated path ("/a/b" or "a/b") against the tree,
// descending through nested objects and, for numeric segments, arrays.
// It returns (nil, false) if any segment is missing or the tree shape
// doesn't match the path (e.g. indexing into a string).
func (p Parameters) Get(path string) (any, bool) {
	segments := splitPath(path)
	var cur any = p.root
	for _, seg := range segments {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, ok := atoi(seg)
			if !ok || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// GetString is a convenience wrapper over Get for the common case of a
// routing-key or channel-name lookup.
func (p Parameters) GetString(path string) (string, bool) {
	v, ok := p.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func atoi(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// Merge returns a new Parameters whose top-level keys are the union of
// base and overlay, with overlay's keys winning on conflict. Neither
// input is mutated. This implements spec.md §4.3.1's "shallow-merge into
// the outgoing packet's parameters; keys set on the outgoing packet win".
func Merge(base, overlay Parameters) Parameters {
	out := make(map[string]any, len(base.root)+len(overlay.root))
	for k, v := range base.root {
		out[k] = v
	}
	for k, v := range overlay.root {
		out[k] = v
	}
	return Parameters{root: out}
}

// MarshalJSON implements json.Marshaler.
func (p Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.root)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	p.root = m
	return nil
}
