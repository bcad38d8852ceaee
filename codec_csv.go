package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// CSVCodec parses and writes delimited text. The TSV codec reuses it with
// a tab delimiter; csv versus tsv is a delimiter distinction only.
type CSVCodec struct {
	format    Format
	delimiter rune
}

// NewCSVCodec creates the comma-delimited codec.
func NewCSVCodec() *CSVCodec {
	return &CSVCodec{format: FormatCSV, delimiter: ','}
}

func (c *CSVCodec) Accepts(info StreamInfo) bool {
	if info.Extension == ".csv" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "text/csv") || strings.HasPrefix(mime, "application/csv")
}

// Sniff always succeeds: delimited text is the detection chain's
// fallback, so this codec registers last.
func (c *CSVCodec) Sniff(data []byte) bool { return true }

func (c *CSVCodec) Decode(data []byte, opts ParseOptions) (*TabularData, error) {
	text := sanitizeText(decodeText(data, opts.Charset))
	return parseDelimited(text, c.format, c.delimiter, opts)
}

func (c *CSVCodec) Encode(t *TabularData, opts ConvertOptions) ([]byte, error) {
	delim := opts.CSV.Delimiter
	if delim == 0 {
		delim = c.delimiter
	}
	return []byte(writeDelimited(t.Headers, t.Rows, delim)), nil
}

// ParseCSV parses comma-delimited text. Unlike the engine's Parse, the
// delimiter here defaults to a plain comma with no detection.
func ParseCSV(text string, opts ParseOptions) (*TabularData, error) {
	return parseDelimited(sanitizeText(text), FormatCSV, ',', opts)
}

// WriteCSV renders rows as comma-delimited text.
func WriteCSV(headers []string, rows []Row, opts CSVWriteOptions) string {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	return writeDelimited(headers, rows, delim)
}

// parseDelimited is the shared CSV/TSV parse. delim is the codec default;
// opts.Delimiter overrides it. Records may vary in width: cells beyond
// the header width are dropped and short records simply lack the trailing
// keys. A duplicated header name keeps one column, with the rightmost
// cell winning the value.
func parseDelimited(text string, format Format, delim rune, opts ParseOptions) (*TabularData, error) {
	if strings.TrimSpace(text) == "" {
		return emptyTable(format).finalize(), nil
	}
	if opts.Delimiter != 0 {
		delim = opts.Delimiter
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		pe := &ParseError{Format: format, Code: CodeInvalidCSV, Err: err}
		var cerr *csv.ParseError
		if errors.As(err, &cerr) {
			pe.Line = cerr.Line
		}
		return nil, pe
	}
	if opts.SkipEmptyLines {
		records = dropEmptyRecords(records)
	}
	if len(records) == 0 {
		return emptyTable(format).finalize(), nil
	}

	var rawHeaders []string
	var dataRows [][]string
	if opts.NoHeader {
		width := 0
		for _, rec := range records {
			if len(rec) > width {
				width = len(rec)
			}
		}
		rawHeaders = syntheticHeaders(width)
		dataRows = records
	} else {
		rawHeaders = records[0]
		dataRows = records[1:]
		if opts.TrimValues {
			for i, h := range rawHeaders {
				rawHeaders[i] = strings.TrimSpace(h)
			}
		}
	}

	t := emptyTable(format)
	t.Headers = dedupeHeaders(rawHeaders)
	for _, rec := range dataRows {
		row := make(Row, len(t.Headers))
		for i, cell := range rec {
			if i >= len(rawHeaders) {
				break
			}
			if opts.TrimValues {
				cell = strings.TrimSpace(cell)
			}
			row[rawHeaders[i]] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return t.finalize(), nil
}

// syntheticHeaders names positional columns "Column 1".."Column N".
func syntheticHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = fmt.Sprintf("Column %d", i+1)
	}
	return headers
}

// recordEmpty reports a record whose cells are all blank.
func recordEmpty(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func dropEmptyRecords(records [][]string) [][]string {
	var out [][]string
	for _, rec := range records {
		if !recordEmpty(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// writeDelimited renders headers then rows, one record per line with LF
// endings and no trailing newline. Cells the row lacks render empty.
func writeDelimited(headers []string, rows []Row, delim rune) string {
	if len(headers) == 0 {
		return ""
	}
	var b strings.Builder
	writeDelimitedLine(&b, headers, delim)
	for _, row := range rows {
		b.WriteByte('\n')
		cells := make([]string, len(headers))
		for i, h := range headers {
			cells[i] = scalarString(row[h])
		}
		writeDelimitedLine(&b, cells, delim)
	}
	return b.String()
}

func writeDelimitedLine(b *strings.Builder, cells []string, delim rune) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteRune(delim)
		}
		b.WriteString(escapeDelimited(cell, delim))
	}
}

// escapeDelimited quotes a field only when it contains the delimiter, a
// quote or a line break, doubling embedded quotes.
func escapeDelimited(field string, delim rune) string {
	if !strings.ContainsAny(field, string(delim)+"\"\n\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
