// Package extract resolves canonical invoice fields from the raw,
// vendor-shaped field map produced by the recognition service. The raw
// payload is modeled as a tagged Value tree and every traversal is bounded
// by a configured depth cap, since the vendor shape is not guaranteed
// shallow.
package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

// Value is one node of the untyped vendor payload.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Obj  map[string]Value
	Arr  []Value
}

// FromJSON decodes a raw JSON payload into a Value tree, truncating anything
// deeper than maxDepth.
func FromJSON(raw json.RawMessage, maxDepth int) (Value, error) {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Value{}, fmt.Errorf("decoding raw field map: %w", err)
	}
	return FromAny(v, maxDepth), nil
}

// FromAny converts a decoded interface tree into a Value, truncating at
// maxDepth.
func FromAny(v any, maxDepth int) Value {
	if maxDepth < 0 {
		return Value{Kind: KindNull}
	}
	switch t := v.(type) {
	case nil:
		return Value{Kind: KindNull}
	case string:
		return Value{Kind: KindString, Str: t}
	case bool:
		return Value{Kind: KindBool, Bool: t}
	case float64:
		return Value{Kind: KindNumber, Num: t}
	case int:
		return Value{Kind: KindNumber, Num: float64(t)}
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{Kind: KindString, Str: t.String()}
		}
		return Value{Kind: KindNumber, Num: n}
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, child := range t {
			obj[k] = FromAny(child, maxDepth-1)
		}
		return Value{Kind: KindObject, Obj: obj}
	case []any:
		arr := make([]Value, 0, len(t))
		for _, child := range t {
			arr = append(arr, FromAny(child, maxDepth-1))
		}
		return Value{Kind: KindArray, Arr: arr}
	default:
		return Value{Kind: KindString, Str: fmt.Sprintf("%v", t)}
	}
}

// IsScalar reports whether the value is a leaf.
func (v Value) IsScalar() bool {
	return v.Kind == KindString || v.Kind == KindNumber || v.Kind == KindBool
}

// Text returns the string form of a scalar value, or "" for containers and
// null.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return strings.TrimSpace(v.Str)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// Scalar returns the scalar payload as an untyped value suitable for
// normalize.ParseAmount, or nil for containers.
func (v Value) Scalar() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	default:
		return nil
	}
}

// sortedKeys gives object traversal a stable order; map iteration order must
// not leak into extraction results.
func (v Value) sortedKeys() []string {
	keys := make([]string, 0, len(v.Obj))
	for k := range v.Obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup finds the first value stored under key, compared case-insensitively,
// descending depth-first into nested objects and arrays up to maxDepth.
func (v Value) Lookup(key string, maxDepth int) (Value, bool) {
	if maxDepth < 0 {
		return Value{}, false
	}
	switch v.Kind {
	case KindObject:
		for _, k := range v.sortedKeys() {
			if strings.EqualFold(k, key) {
				return unwrap(v.Obj[k]), true
			}
		}
		for _, k := range v.sortedKeys() {
			if found, ok := v.Obj[k].Lookup(key, maxDepth-1); ok {
				return found, true
			}
		}
	case KindArray:
		for _, child := range v.Arr {
			if found, ok := child.Lookup(key, maxDepth-1); ok {
				return found, true
			}
		}
	}
	return Value{}, false
}

// Walk visits every node depth-first in stable order until fn returns false.
func (v Value) Walk(maxDepth int, fn func(Value) bool) bool {
	if maxDepth < 0 {
		return true
	}
	if !fn(v) {
		return false
	}
	switch v.Kind {
	case KindObject:
		for _, k := range v.sortedKeys() {
			if !v.Obj[k].Walk(maxDepth-1, fn) {
				return false
			}
		}
	case KindArray:
		for _, child := range v.Arr {
			if !child.Walk(maxDepth-1, fn) {
				return false
			}
		}
	}
	return true
}

// unwrap resolves the common vendor envelope {"value": ..., "confidence": ...}
// to its inner value.
func unwrap(v Value) Value {
	if v.Kind != KindObject {
		return v
	}
	for _, k := range v.sortedKeys() {
		if strings.EqualFold(k, "value") {
			return v.Obj[k]
		}
	}
	return v
}
