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
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format identifies a tabular data format.
type Format string

// Input formats the engine can parse. SQL and Markdown are output targets
// only.
const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatXML  Format = "xml"

	FormatSQL      Format = "sql"
	FormatMarkdown Format = "md"
)

// ParseFormat resolves a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatTSV, FormatJSON, FormatXLSX, FormatXLS, FormatXML,
		FormatSQL, FormatMarkdown:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	}
	return "", &ValidationError{Option: "format", Reason: fmt.Sprintf("unknown format %q", s)}
}

// Row maps column names to scalar cell values: string, json.Number,
// float64, int, bool or nil.
type Row map[string]any

// Metadata carries row and column counts plus input provenance.
type Metadata struct {
	RowCount    int      `json:"rowCount"`
	ColumnCount int      `json:"columnCount"`
	Truncated   bool     `json:"truncated,omitempty"`
	FileName    string   `json:"fileName,omitempty"`
	FileSize    int64    `json:"fileSize,omitempty"`
	Sheets      []string `json:"sheets,omitempty"`
}

// TabularData is the canonical intermediate model every decoder produces
// and every encoder consumes. Headers are ordered and never contain
// duplicates; a row may lack keys present in Headers, which downstream
// writers treat as NULL.
type TabularData struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
	Format  Format   `json:"format"`
	Raw     any      `json:"-"`
	Meta    Metadata `json:"metadata"`
}

// emptyTable returns an empty TabularData tagged with the given format.
func emptyTable(f Format) *TabularData {
	return &TabularData{Headers: []string{}, Rows: []Row{}, Format: f}
}

// finalize recomputes the count metadata from the current headers and
// rows.
func (t *TabularData) finalize() *TabularData {
	t.Meta.RowCount = len(t.Rows)
	t.Meta.ColumnCount = len(t.Headers)
	return t
}

// truncateRows caps rows at max and flags the truncation. max <= 0 leaves
// the table unchanged.
func (t *TabularData) truncateRows(max int) {
	if max <= 0 || len(t.Rows) <= max {
		return
	}
	t.Rows = t.Rows[:max]
	t.Meta.Truncated = true
	t.finalize()
}

// dedupeHeaders drops repeated names, keeping the first occurrence.
func dedupeHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	seen := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// headerUnion collects column names across heterogeneous rows in
// first-seen order.
type headerUnion struct {
	seen  map[string]struct{}
	names []string
}

func newHeaderUnion() *headerUnion {
	return &headerUnion{seen: make(map[string]struct{})}
}

func (u *headerUnion) add(name string) {
	if _, ok := u.seen[name]; ok {
		return
	}
	u.seen[name] = struct{}{}
	u.names = append(u.names, name)
}

func (u *headerUnion) list() []string {
	if u.names == nil {
		return []string{}
	}
	return u.names
}

// scalarString renders a cell value the way delimited writers expect:
// nil becomes the empty string and numbers keep their literal form.
func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// ConversionMeta describes a successful conversion.
type ConversionMeta struct {
	InputFormat  Format `json:"inputFormat"`
	OutputFormat Format `json:"outputFormat"`
	RowCount     int    `json:"rowCount"`
	ColumnCount  int    `json:"columnCount"`
}

// ConversionResult is the uniform envelope Convert returns. Data holds
// the encoded output, UTF-8 text or workbook bytes; it is nil when
// Success is false.
type ConversionResult struct {
	Success  bool            `json:"success"`
	Data     []byte          `json:"data,omitempty"`
	Format   Format          `json:"format"`
	MIMEType string          `json:"mimeType,omitempty"`
	Error    string          `json:"error,omitempty"`
	Meta     *ConversionMeta `json:"metadata,omitempty"`
}
