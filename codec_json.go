// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package tabular

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// JSONCodec parses and writes JSON arrays of records. An object root is
// treated as a single-row array; any other root is an error.
type JSONCodec struct{}

func NewJSONCodec() *JSONCodec { return &JSONCodec{} }

func (c *JSONCodec) Accepts(info StreamInfo) bool {
	if info.Extension == ".json" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(info.MIMEType), "application/json")
}

func (c *JSONCodec) Sniff(data []byte) bool {
	return sniffJSON(bytes.TrimSpace(data))
}

func (c *JSONCodec) Decode(data []byte, opts ParseOptions) (*TabularData, error) {
	t, err := ParseJSON(string(data), opts)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (c *JSONCodec) Encode(t *TabularData, opts ConvertOptions) ([]byte, error) {
	out, err := WriteJSON(t.Headers, t.Rows, opts.JSON)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// ParseJSON parses a JSON document into tabular form. Document key order
// is preserved into the header order, and numbers keep their literal form
// so they survive re-encoding unchanged. The decoded structure is
// retained in Raw for later re-flattening.
func ParseJSON(text string, opts ParseOptions) (*TabularData, error) {
	text = strings.TrimSpace(sanitizeText(text))
	if text == "" {
		return emptyTable(FormatJSON).finalize(), nil
	}

	root, err := decodeJSONValue(text)
	if err != nil {
		pe := &ParseError{Format: FormatJSON, Code: CodeInvalidJSON, Err: err}
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			pe.Offset = syn.Offset
		}
		return nil, pe
	}

	var elements []any
	switch v := root.(type) {
	case []any:
		elements = v
	case *orderedMap:
		elements = []any{v}
	default:
		return nil, &ParseError{Format: FormatJSON, Code: CodeInvalidJSON,
			Err: fmt.Errorf("root must be an array or object, got %s", jsonKind(root))}
	}

	t := emptyTable(FormatJSON)
	t.Raw = root
	union := newHeaderUnion()
	for _, el := range elements {
		row, keys := jsonRow(el, opts.FlattenNested)
		for _, k := range keys {
			union.add(k)
		}
		t.Rows = append(t.Rows, row)
	}
	t.Headers = union.list()
	return t.finalize(), nil
}

// jsonRow converts one array element into a Row and reports its keys in
// document order. Scalar and array elements keep their value under a
// single "value" column; without flattening, nested values become JSON
// strings so every cell stays scalar.
func jsonRow(el any, flatten bool) (Row, []string) {
	om, ok := el.(*orderedMap)
	if !ok {
		om = newOrderedMap()
		om.set("value", el)
	}
	if flatten {
		om = flattenNode(om, FlattenOptions{Nulls: NullPreserve})
	}
	row := make(Row, om.len())
	for _, k := range om.keys {
		if flatten {
			row[k] = om.vals[k]
		} else {
			row[k] = scalarize(om.vals[k])
		}
	}
	return row, om.keys
}

// scalarize reduces a decoded value to a cell scalar. Structures that
// survive an unflattened parse become JSON strings.
func scalarize(v any) any {
	switch v.(type) {
	case *orderedMap, map[string]any, []any:
		return stringifyNode(v)
	default:
		return v
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

// decodeJSONValue parses text with document key order preserved; see
// orderedMap. Numbers decode as json.Number.
func decodeJSONValue(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		om := newOrderedMap()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			om.set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return om, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

// WriteJSON renders rows as a JSON array of objects. Each object carries
// the header keys in header order, skipping keys the row lacks; with no
// headers at all the rows render as empty objects. Output pretty-prints
// with a two-space indent unless configured otherwise.
func WriteJSON(headers []string, rows []Row, opts JSONWriteOptions) (string, error) {
	projected := make([]*orderedMap, len(rows))
	for i, row := range rows {
		om := newOrderedMap()
		for _, h := range headers {
			if v, ok := row[h]; ok {
				om.set(h, v)
			}
		}
		projected[i] = om
	}

	if opts.Compact {
		b, err := json.Marshal(projected)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	indent := opts.Indent
	if indent <= 0 {
		indent = 2
	}
	b, err := json.MarshalIndent(projected, "", strings.Repeat(" ", indent))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
