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
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDetectsFormat(t *testing.T) {
	conv := New()
	vectors := []struct {
		name string
		in   string
		want Format
		rows int
	}{
		{"comma csv", "a,b\n1,2", FormatCSV, 1},
		{"semicolon csv", "a;b\n1;2\n3;4", FormatCSV, 2},
		{"pipe csv", "a|b\n1|2", FormatCSV, 1},
		{"tsv", "a\tb\n1\t2", FormatTSV, 1},
		{"json", `[{"a":1},{"a":2}]`, FormatJSON, 2},
		{"xml", "<r><i><a>1</a></i><i><a>2</a></i></r>", FormatXML, 2},
		{"prose falls back to csv", "hello world", FormatCSV, 0},
		{"empty", "", FormatCSV, 0},
	}
	for _, v := range vectors {
		t.Run(v.name, func(t *testing.T) {
			got, err := conv.Parse([]byte(v.in), ParseOptions{})
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got.Format != v.want {
				t.Errorf("format = %q, want %q", got.Format, v.want)
			}
			if len(got.Rows) != v.rows {
				t.Errorf("rows = %d, want %d", len(got.Rows), v.rows)
			}
		})
	}
}

func TestParseAutoDelimiter(t *testing.T) {
	conv := New()
	got, err := conv.Parse([]byte("a;b\nx;y"), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !equalStrings(got.Headers, []string{"a", "b"}) {
		t.Errorf("semicolon not auto-detected: headers = %v", got.Headers)
	}

	got, err = conv.Parse([]byte("a;b\nx;y"), ParseOptions{Delimiter: ','})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !equalStrings(got.Headers, []string{"a;b"}) {
		t.Errorf("explicit delimiter not honored: headers = %v", got.Headers)
	}
}

func TestParseExplicitFormat(t *testing.T) {
	conv := New()
	_, err := conv.Parse([]byte("a,b\n1,2"), ParseOptions{Format: FormatJSON})
	if err == nil {
		t.Fatal("csv under an explicit json tag should fail")
	}
	if ErrorCode(err) != CodeInvalidJSON {
		t.Errorf("code = %q", ErrorCode(err))
	}

	_, err = conv.Parse([]byte("a,b"), ParseOptions{Format: "yaml"})
	if err == nil {
		t.Fatal("unknown format should fail")
	}
	if ErrorCode(err) != CodeInvalidOption {
		t.Errorf("code = %q", ErrorCode(err))
	}
}

func TestParseWorkbookBinary(t *testing.T) {
	conv := New()
	data := buildWorkbookBytes(t, [][]any{{"name"}, {"John"}})
	got, err := conv.Parse(data, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Format != FormatXLSX {
		t.Errorf("format = %q", got.Format)
	}
	if len(got.Rows) != 1 || got.Rows[0]["name"] != "John" {
		t.Errorf("rows = %v", got.Rows)
	}
}

func TestParseDeclaredWorkbookMismatch(t *testing.T) {
	conv := New()
	_, err := conv.Parse([]byte("a,b\n1,2"), ParseOptions{Format: FormatXLSX})
	if err == nil {
		t.Fatal("text under a workbook tag should fail")
	}
	if ErrorCode(err) != CodeInvalidExcel {
		t.Errorf("code = %q", ErrorCode(err))
	}
}

func TestParseMaxRows(t *testing.T) {
	conv := New()
	got, err := conv.Parse([]byte(streamInput(10)), ParseOptions{MaxRows: 3})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.Rows) != 3 || !got.Meta.Truncated {
		t.Errorf("rows = %d, truncated = %v", len(got.Rows), got.Meta.Truncated)
	}
}

func TestParseSizeLimit(t *testing.T) {
	conv := New(WithMaxInputSize(8))
	_, err := conv.Parse([]byte("a,b\n1,2\n3,4"), ParseOptions{})
	if err == nil {
		t.Fatal("oversized input should fail")
	}
	if ErrorCode(err) != CodeFileTooLarge {
		t.Errorf("code = %q", ErrorCode(err))
	}
}

type listDecoder struct{}

func (listDecoder) Accepts(info StreamInfo) bool { return info.Extension == ".lst" }
func (listDecoder) Sniff(data []byte) bool       { return bytes.HasPrefix(data, []byte("#!list")) }
func (listDecoder) Decode(data []byte, opts ParseOptions) (*TabularData, error) {
	t := emptyTable("list")
	t.Headers = []string{"line"}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	for _, ln := range lines[1:] {
		t.Rows = append(t.Rows, Row{"line": ln})
	}
	return t.finalize(), nil
}

func TestRegisterDecoder(t *testing.T) {
	conv := New()
	conv.RegisterDecoder("list", listDecoder{}, PrioritySpecific-1)

	got, err := conv.Parse([]byte("#!list\nalpha\nbeta"), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Format != "list" || len(got.Rows) != 2 {
		t.Errorf("custom decoder not dispatched: %q, %d rows", got.Format, len(got.Rows))
	}

	got, err = conv.Parse([]byte("plain\ntext"), ParseOptions{Format: "list"})
	if err != nil {
		t.Fatalf("Parse by tag: %v", err)
	}
	if got.Rows[0]["line"] != "text" {
		t.Errorf("rows = %v", got.Rows)
	}
}

func TestConvert(t *testing.T) {
	conv := New()
	parsed, err := conv.Parse([]byte("name,age\nJohn,30"), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	res := conv.Convert(parsed, ConvertOptions{OutputFormat: FormatJSON})
	if !res.Success {
		t.Fatalf("Convert failed: %s", res.Error)
	}
	if res.MIMEType != "application/json" {
		t.Errorf("mime = %q", res.MIMEType)
	}
	if res.Meta == nil || res.Meta.RowCount != 1 || res.Meta.InputFormat != FormatCSV {
		t.Errorf("meta = %+v", res.Meta)
	}
	if !strings.Contains(string(res.Data), `"age": "30"`) {
		t.Errorf("csv cells should stay strings in json output:\n%s", res.Data)
	}
}

func TestConvertAllBuiltinTargets(t *testing.T) {
	conv := New()
	parsed, err := conv.Parse([]byte("name\nJohn"), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, f := range []Format{FormatCSV, FormatTSV, FormatJSON, FormatXML, FormatSQL, FormatMarkdown, FormatXLSX, FormatXLS} {
		res := conv.Convert(parsed, ConvertOptions{OutputFormat: f})
		if !res.Success {
			t.Errorf("Convert to %s failed: %s", f, res.Error)
			continue
		}
		if len(res.Data) == 0 {
			t.Errorf("Convert to %s produced no data", f)
		}
	}
}

func TestConvertFailuresStayInEnvelope(t *testing.T) {
	conv := New()
	parsed, _ := conv.Parse([]byte("a\n1"), ParseOptions{})

	res := conv.Convert(parsed, ConvertOptions{OutputFormat: "yaml"})
	if res.Success {
		t.Fatal("unknown output format should fail")
	}
	if !strings.Contains(res.Error, CodeConversionFailed) {
		t.Errorf("error = %q", res.Error)
	}
	if res.Data != nil {
		t.Error("failed conversion should carry no data")
	}

	res = conv.Convert(nil, ConvertOptions{OutputFormat: FormatJSON})
	if res.Success || res.Error == "" {
		t.Errorf("nil table: %+v", res)
	}
}

type panicEncoder struct{}

func (panicEncoder) Encode(*TabularData, ConvertOptions) ([]byte, error) {
	panic("writer exploded")
}

func TestConvertRecoversPanic(t *testing.T) {
	conv := New()
	conv.RegisterEncoder("boom", panicEncoder{})
	parsed, _ := conv.Parse([]byte("a\n1"), ParseOptions{})

	res := conv.Convert(parsed, ConvertOptions{OutputFormat: "boom"})
	if res.Success {
		t.Fatal("panicking writer reported success")
	}
	if !strings.Contains(res.Error, "panic") {
		t.Errorf("error = %q", res.Error)
	}

	res = conv.Convert(parsed, ConvertOptions{OutputFormat: FormatJSON})
	if !res.Success {
		t.Errorf("engine unusable after recovered panic: %s", res.Error)
	}
}

func TestConvertBytes(t *testing.T) {
	conv := New()
	res := conv.ConvertBytes([]byte("name,age\nJohn,30"), ParseOptions{}, ConvertOptions{OutputFormat: FormatJSON, JSON: JSONWriteOptions{Compact: true}})
	if !res.Success {
		t.Fatalf("ConvertBytes: %s", res.Error)
	}
	if string(res.Data) != `[{"name":"John","age":"30"}]` {
		t.Errorf("data = %s", res.Data)
	}

	res = conv.ConvertBytes([]byte(`{"bad":`), ParseOptions{Format: FormatJSON}, ConvertOptions{OutputFormat: FormatCSV})
	if res.Success || res.Error == "" {
		t.Errorf("parse failure should surface in the envelope: %+v", res)
	}
}

func TestConvertBytesCache(t *testing.T) {
	cache := NewCache(CacheConfig{})
	conv := New(WithCache(cache))
	data := []byte("a,b\n1,2")
	copts := ConvertOptions{OutputFormat: FormatJSON}

	res1 := conv.ConvertBytes(data, ParseOptions{}, copts)
	if !res1.Success {
		t.Fatalf("first conversion: %s", res1.Error)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d after first conversion", cache.Len())
	}
	res2 := conv.ConvertBytes(data, ParseOptions{}, copts)
	if !res2.Success || !bytes.Equal(res1.Data, res2.Data) {
		t.Error("cache hit returned different data")
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d after hit", cache.Len())
	}

	conv.ConvertBytes(data, ParseOptions{}, ConvertOptions{OutputFormat: FormatSQL})
	if cache.Len() != 2 {
		t.Errorf("Len = %d, distinct options should key separately", cache.Len())
	}

	conv.ConvertBytes([]byte(`{"bad":`), ParseOptions{Format: FormatJSON}, copts)
	if cache.Len() != 2 {
		t.Errorf("Len = %d, failures must not be cached", cache.Len())
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.csv")
	content := []byte("name,age\nJohn,30\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	conv := New()
	got, err := conv.ParseFile(path, ParseOptions{})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if got.Format != FormatCSV || len(got.Rows) != 1 {
		t.Errorf("format = %q, rows = %d", got.Format, len(got.Rows))
	}
	if got.Meta.FileName != "people.csv" {
		t.Errorf("file name = %q", got.Meta.FileName)
	}
	if got.Meta.FileSize != int64(len(content)) {
		t.Errorf("file size = %d", got.Meta.FileSize)
	}

	_, err = conv.ParseFile(filepath.Join(dir, "missing.csv"), ParseOptions{})
	if ErrorCode(err) != CodeFileUnreadable {
		t.Errorf("missing file code = %q", ErrorCode(err))
	}
}

func TestParseFileExtensionWinsOverContent(t *testing.T) {
	dir := t.TempDir()
	conv := New()

	csvNamed := filepath.Join(dir, "rows.csv")
	if err := os.WriteFile(csvNamed, []byte(`[{"a":1}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := conv.ParseFile(csvNamed, ParseOptions{})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if got.Format != FormatCSV {
		t.Errorf("json-looking content in a .csv file parsed as %q", got.Format)
	}

	jsonNamed := filepath.Join(dir, "rows.json")
	if err := os.WriteFile(jsonNamed, []byte("a,b\n1,2"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = conv.ParseFile(jsonNamed, ParseOptions{})
	if ErrorCode(err) != CodeInvalidJSON {
		t.Errorf("csv content in a .json file should fail as json, got %v", err)
	}
}

func TestParseFileTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	conv := New(WithMaxInputSize(4))
	_, err := conv.ParseFile(path, ParseOptions{})
	if ErrorCode(err) != CodeFileTooLarge {
		t.Errorf("code = %q", ErrorCode(err))
	}
}

func TestParseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		fmt.Fprint(w, "a,b\n1,2")
	}))
	defer srv.Close()

	conv := New()
	got, err := conv.ParseURL(srv.URL+"/export/data.csv", ParseOptions{})
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	if got.Format != FormatCSV || len(got.Rows) != 1 {
		t.Errorf("format = %q, rows = %d", got.Format, len(got.Rows))
	}
	if got.Meta.FileName != "data.csv" {
		t.Errorf("file name = %q", got.Meta.FileName)
	}

	_, err = conv.ParseURL(srv.URL+"/missing", ParseOptions{})
	if ErrorCode(err) != CodeFileUnreadable {
		t.Errorf("missing url code = %q", ErrorCode(err))
	}
}

func TestReflatten(t *testing.T) {
	parsed, err := ParseJSON(`[{"user":{"name":"J"},"n":1}]`, ParseOptions{})
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if _, ok := parsed.Rows[0]["user"].(string); !ok {
		t.Fatalf("precondition: unflattened cell should be a string, got %#v", parsed.Rows[0]["user"])
	}

	flat, err := Reflatten(parsed, FlattenOptions{})
	if err != nil {
		t.Fatalf("Reflatten: %v", err)
	}
	if !equalStrings(flat.Headers, []string{"user.name", "n"}) {
		t.Errorf("headers = %v", flat.Headers)
	}
	if flat.Rows[0]["user.name"] != "J" {
		t.Errorf("row = %v", flat.Rows[0])
	}
	if flat.Format != FormatJSON || flat.Raw == nil {
		t.Errorf("format = %q, raw = %v", flat.Format, flat.Raw)
	}

	if _, err := Reflatten(nil, FlattenOptions{}); err == nil {
		t.Error("nil table should fail")
	}
	csvParsed, _ := ParseCSV("a\n1", ParseOptions{})
	if _, err := Reflatten(csvParsed, FlattenOptions{}); err == nil {
		t.Error("table without retained structure should fail")
	}
}

func TestReflattenXML(t *testing.T) {
	parsed := ParseXML([]byte("<root><i><a>1</a></i><i><a>2</a></i></root>"))
	flat, err := Reflatten(parsed, FlattenOptions{})
	if err != nil {
		t.Fatalf("Reflatten: %v", err)
	}
	if len(flat.Rows) != 1 {
		t.Fatalf("rows = %d, want the whole document as one row", len(flat.Rows))
	}
	if v, ok := flat.Rows[0]["root.i"].(string); !ok || !strings.Contains(v, `"a":"1"`) {
		t.Errorf("root.i = %#v", flat.Rows[0]["root.i"])
	}
}

func TestOutputFilename(t *testing.T) {
	vectors := []struct {
		in   string
		f    Format
		want string
	}{
		{"data.csv", FormatJSON, "data.json"},
		{"report.v2.xlsx", FormatCSV, "report.v2.csv"},
		{"/tmp/dir/x.xml", FormatMarkdown, "x.md"},
		{"noext", FormatXLSX, "noext.xlsx"},
		{"", FormatSQL, "converted.sql"},
		{".csv", FormatJSON, "converted.json"},
	}
	for _, v := range vectors {
		if got := OutputFilename(v.in, v.f); got != v.want {
			t.Errorf("OutputFilename(%q, %s) = %q, want %q", v.in, v.f, got, v.want)
		}
	}
}

var updateGolden = os.Getenv("UPDATE_GOLDEN") != ""

func TestGoldenConversions(t *testing.T) {
	vectors := []struct {
		input  string
		golden string
		copts  ConvertOptions
	}{
		{"testdata/sample.csv", "testdata/golden/sample.json", ConvertOptions{OutputFormat: FormatJSON}},
		{"testdata/sample.json", "testdata/golden/sample.csv", ConvertOptions{OutputFormat: FormatCSV}},
	}
	conv := New()
	for _, v := range vectors {
		t.Run(filepath.Base(v.golden), func(t *testing.T) {
			in, err := os.ReadFile(v.input)
			if os.IsNotExist(err) {
				t.Skipf("%s not present", v.input)
			}
			if err != nil {
				t.Fatal(err)
			}
			res := conv.ConvertBytes(in, ParseOptions{}, v.copts)
			if !res.Success {
				t.Fatalf("conversion failed: %s", res.Error)
			}
			if updateGolden {
				if err := os.MkdirAll(filepath.Dir(v.golden), 0o755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(v.golden, append(res.Data, '\n'), 0o644); err != nil {
					t.Fatal(err)
				}
				return
			}
			want, err := os.ReadFile(v.golden)
			if os.IsNotExist(err) {
				t.Skipf("%s not present; run with UPDATE_GOLDEN=1 to create", v.golden)
			}
			if err != nil {
				t.Fatal(err)
			}
			got := strings.TrimRight(string(res.Data), "\n")
			if got != strings.TrimRight(string(want), "\n") {
				t.Errorf("output differs from %s:\n%s", v.golden, got)
			}
		})
	}
}
