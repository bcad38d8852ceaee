package tabular

import "testing"

func TestDetectFormat(t *testing.T) {
	vectors := []struct {
		name string
		in   string
		want Format
	}{
		{"csv", "name,age\nJohn,30", FormatCSV},
		{"tsv", "name\tage\nJohn\t30", FormatTSV},
		{"json array", `[{"name":"John"}]`, FormatJSON},
		{"json object", `{"name":"John"}`, FormatJSON},
		{"json with whitespace", "  \n  [1, 2, 3]  \n", FormatJSON},
		{"xml", `<root><item>x</item></root>`, FormatXML},
		{"xml with declaration", `<?xml version="1.0"?><root><a>1</a></root>`, FormatXML},
		{"bracketed garbage falls through", "[not json at all]", FormatCSV},
		{"angle bracket without closing tag", "<- arrow art", FormatCSV},
		{"empty", "", FormatCSV},
		{"blank", "   \n  ", FormatCSV},
		{"plain prose", "hello world", FormatCSV},
		{"semicolon stays csv", "a;b\n1;2", FormatCSV},
	}
	for _, v := range vectors {
		t.Run(v.name, func(t *testing.T) {
			if got := DetectFormat([]byte(v.in)); got != v.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", v.in, got, v.want)
			}
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	vectors := []struct {
		name string
		in   string
		want rune
	}{
		{"comma", "a,b,c\n1,2,3", ','},
		{"semicolon", "a;b;c\n1;2;3", ';'},
		{"tab", "a\tb\n1\t2", '\t'},
		{"pipe", "a|b|c\n1|2|3", '|'},
		{"empty defaults to comma", "", ','},
		{"no delimiter defaults to comma", "justoneword\nanother", ','},
		{"tab prior beats equal comma count", "a\t,b\n1\t,2", '\t'},
		{"consistency beats raw count", "a;b\nx;y\nnote, with, commas, here;z", ';'},
		{"blank lines skipped", "\n\na,b\n1,2\n", ','},
	}
	for _, v := range vectors {
		t.Run(v.name, func(t *testing.T) {
			if got := DetectDelimiter(v.in); got != v.want {
				t.Errorf("DetectDelimiter(%q) = %q, want %q", v.in, got, v.want)
			}
		})
	}
}

func TestFormatFromFilename(t *testing.T) {
	vectors := []struct {
		name   string
		want   Format
		wantOK bool
	}{
		{"data.csv", FormatCSV, true},
		{"data.TSV", FormatTSV, true},
		{"report.tab", FormatTSV, true},
		{"payload.json", FormatJSON, true},
		{"book.xlsx", FormatXLSX, true},
		{"legacy.XLS", FormatXLS, true},
		{"feed.xml", FormatXML, true},
		{"notes.txt", "", false},
		{"noextension", "", false},
	}
	for _, v := range vectors {
		got, ok := FormatFromFilename(v.name)
		if ok != v.wantOK || got != v.want {
			t.Errorf("FormatFromFilename(%q) = %q, %v; want %q, %v", v.name, got, ok, v.want, v.wantOK)
		}
	}
}

func TestFormatFromMIME(t *testing.T) {
	vectors := []struct {
		mime   string
		want   Format
		wantOK bool
	}{
		{"text/csv", FormatCSV, true},
		{"text/csv; charset=utf-8", FormatCSV, true},
		{"application/json", FormatJSON, true},
		{"Application/JSON", FormatJSON, true},
		{"text/xml", FormatXML, true},
		{"application/vnd.ms-excel", FormatXLS, true},
		{"text/html", "", false},
		{"", "", false},
	}
	for _, v := range vectors {
		got, ok := FormatFromMIME(v.mime)
		if ok != v.wantOK || got != v.want {
			t.Errorf("FormatFromMIME(%q) = %q, %v; want %q, %v", v.mime, got, ok, v.want, v.wantOK)
		}
	}
}

func TestIsSpreadsheet(t *testing.T) {
	if _, ok := isSpreadsheet([]byte("name,age\n1,2")); ok {
		t.Error("text input classified as spreadsheet")
	}
	if _, ok := isSpreadsheet([]byte{0xD0, 0xCF, 0x11, 0xE0, 0, 0, 0, 0}); !ok {
		t.Error("OLE signature not classified as spreadsheet")
	}
	if f, ok := isSpreadsheet(buildWorkbookBytes(t, [][]any{{"a"}, {"1"}})); !ok || f != FormatXLSX {
		t.Errorf("workbook bytes = %q, %v; want xlsx, true", f, ok)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" JSON "); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %q, %v", f, err)
	}
	if f, err := ParseFormat("markdown"); err != nil || f != FormatMarkdown {
		t.Errorf("ParseFormat(markdown) = %q, %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("ParseFormat(yaml) should fail")
	}
}
