package tabular

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

const defaultMaxFlattenDepth = 100

// orderedMap is an insertion-ordered object node. The JSON and XML
// decoders build these so headers come out in document order, which a
// plain Go map cannot guarantee.
type orderedMap struct {
	keys []string
	vals map[string]any
}

func newOrderedMap() *orderedMap {
	return &orderedMap{vals: make(map[string]any)}
}

func (m *orderedMap) set(key string, v any) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

func (m *orderedMap) get(key string) (any, bool) {
	v, ok := m.vals[key]
	return v, ok
}

func (m *orderedMap) len() int { return len(m.keys) }

// MarshalJSON writes keys in insertion order.
func (m *orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Flatten collapses nested objects into dot-notation keys and arrays into
// comma-joined strings. Keys come back in sorted order; the decoders use
// the order-preserving internal path instead.
func Flatten(obj map[string]any, opts FlattenOptions) map[string]any {
	flat := flattenAny(obj, opts)
	out := make(map[string]any, flat.len())
	for _, k := range flat.keys {
		out[k] = flat.vals[k]
	}
	return out
}

// flattenAny flattens any decoded node shape into an ordered flat map.
// Scalars land under the prefix, or "value" when there is none.
func flattenAny(v any, opts FlattenOptions) *orderedMap {
	switch n := v.(type) {
	case *orderedMap:
		return flattenNode(n, opts)
	case map[string]any:
		om := newOrderedMap()
		for _, k := range sortedKeys(n) {
			om.set(k, n[k])
		}
		return flattenNode(om, opts)
	default:
		flat := newOrderedMap()
		key := opts.Prefix
		if key == "" {
			key = "value"
		}
		if n == nil && opts.Nulls == NullEmpty {
			flat.set(key, "")
		} else {
			flat.set(key, n)
		}
		return flat
	}
}

// flattenNode flattens an ordered object node, preserving key order.
func flattenNode(node *orderedMap, opts FlattenOptions) *orderedMap {
	flat := newOrderedMap()
	flattenInto(flat, opts.Prefix, node, opts, 0)
	return flat
}

// flattenInto walks node depth-first. Arrays become one comma-joined
// string and objects past the depth bound are JSON-stringified rather
// than recursed into.
func flattenInto(flat *orderedMap, prefix string, node *orderedMap, opts FlattenOptions, depth int) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxFlattenDepth
	}
	for _, key := range node.keys {
		v := node.vals[key]
		newKey := key
		if prefix != "" {
			newKey = prefix + "." + key
		}
		switch val := v.(type) {
		case *orderedMap:
			if depth+1 >= maxDepth {
				flat.set(newKey, stringifyNode(val))
				continue
			}
			flattenInto(flat, newKey, val, opts, depth+1)
		case map[string]any:
			if depth+1 >= maxDepth {
				flat.set(newKey, stringifyNode(val))
				continue
			}
			om := newOrderedMap()
			for _, k := range sortedKeys(val) {
				om.set(k, val[k])
			}
			flattenInto(flat, newKey, om, opts, depth+1)
		case []any:
			flat.set(newKey, joinArray(val))
		case nil:
			if opts.Nulls == NullEmpty {
				flat.set(newKey, "")
			} else {
				flat.set(newKey, nil)
			}
		default:
			flat.set(newKey, val)
		}
	}
}

// joinArray renders an array as one comma-separated string. Object
// elements are JSON-stringified, nil elements render empty and nested
// arrays join into the same string.
func joinArray(arr []any) string {
	parts := make([]string, len(arr))
	for i, el := range arr {
		switch e := el.(type) {
		case *orderedMap:
			parts[i] = stringifyNode(e)
		case map[string]any:
			parts[i] = stringifyNode(e)
		case []any:
			parts[i] = joinArray(e)
		case nil:
			parts[i] = ""
		default:
			parts[i] = scalarString(e)
		}
	}
	return strings.Join(parts, ",")
}

// stringifyNode JSON-encodes an object node for embedding in a cell.
func stringifyNode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unflatten rebuilds a nested object from dot-notation keys, the inverse
// of Flatten for object-valued entries. A scalar occupying an
// intermediate position is replaced by the object that needs the slot.
func Unflatten(flat map[string]any) map[string]any {
	out := map[string]any{}
	for _, key := range sortedKeys(flat) {
		parts := strings.Split(key, ".")
		cur := out
		for i, part := range parts {
			if i == len(parts)-1 {
				cur[part] = flat[key]
				break
			}
			next, ok := cur[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[part] = next
			}
			cur = next
		}
	}
	return out
}
