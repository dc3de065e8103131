package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind classifies a node of a richly typed payload tree.
type Kind int

const (
	// KindLeaf is a scalar or null.
	KindLeaf Kind = iota
	// KindArray is an ordered sequence of nodes.
	KindArray
	// KindWrapped is an object carrying a "value" key next to its type metadata.
	KindWrapped
	// KindObject is an object without a "value" key.
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindArray:
		return "array"
	case KindWrapped:
		return "wrapped"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

const valueKey = "value"

// KindOf reports which variant node belongs to.
func KindOf(node any) Kind {
	switch n := node.(type) {
	case []any:
		return KindArray
	case map[string]any:
		if _, ok := n[valueKey]; ok {
			return KindWrapped
		}
		return KindObject
	default:
		return KindLeaf
	}
}

// StripTypeInfo removes type metadata from a payload tree, replacing every
// wrapped node with its "value". The input is deep-copied first and never
// modified.
//
// Objects without a "value" key are returned as they are: their fields are
// not visited. Callers that nest wrapped values below such an object get them
// back untouched.
func StripTypeInfo(value any) any {
	return strip(deepCopy(value))
}

// strip works in place on a tree the caller owns.
func strip(node any) any {
	switch KindOf(node) {
	case KindArray:
		items := node.([]any)
		for i := range items {
			items[i] = strip(items[i])
		}
		return items
	case KindWrapped:
		inner := node.(map[string]any)[valueKey]
		switch v := inner.(type) {
		case map[string]any:
			for k := range v {
				v[k] = strip(v[k])
			}
		case []any:
			for i := range v {
				v[i] = strip(v[i])
			}
		}
		return inner
	default:
		return node
	}
}

func deepCopy(node any) any {
	switch n := node.(type) {
	case map[string]any:
		dup := make(map[string]any, len(n))
		for k, v := range n {
			dup[k] = deepCopy(v)
		}
		return dup
	case []any:
		dup := make([]any, len(n))
		for i, v := range n {
			dup[i] = deepCopy(v)
		}
		return dup
	default:
		return node
	}
}

// ToTree converts an arbitrary Go value into a JSON tree of map[string]any,
// []any and scalars. Numbers are kept as json.Number. Values that already are
// trees still go through the round trip so typed maps and slices nested
// inside them are normalized too.
func ToTree(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return tree, nil
}
