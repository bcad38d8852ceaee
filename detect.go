package tabular

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// delimiterCandidates are scored against the first few input lines. The
// tab prior reflects how rarely tabs occur in prose compared to commas
// and semicolons.
var delimiterCandidates = []struct {
	ch     rune
	weight float64
}{
	{',', 1.0},
	{';', 1.0},
	{'\t', 1.5},
	{'|', 1.0},
}

const delimiterSampleLines = 5

var reClosingTag = regexp.MustCompile(`</[^<>]+>`)

// DetectFormat sniffs the format of raw text content. Checks run in
// fixed priority order: JSON, then XML, then delimited with the detected
// delimiter deciding csv versus tsv. Unrecognized content resolves to
// csv; DetectFormat never fails.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FormatCSV
	}
	if sniffJSON(trimmed) {
		return FormatJSON
	}
	if sniffXML(trimmed) {
		return FormatXML
	}
	if DetectDelimiter(string(trimmed)) == '\t' {
		return FormatTSV
	}
	return FormatCSV
}

// sniffJSON requires matched outer brackets and a clean parse.
// Bracket-matched garbage falls through to the later checks.
func sniffJSON(trimmed []byte) bool {
	if len(trimmed) < 2 {
		return false
	}
	first, last := trimmed[0], trimmed[len(trimmed)-1]
	if !(first == '[' && last == ']') && !(first == '{' && last == '}') {
		return false
	}
	return json.Valid(trimmed)
}

// sniffXML accepts a leading declaration or tag plus at least one closing
// tag further in.
func sniffXML(trimmed []byte) bool {
	if len(trimmed) == 0 {
		return false
	}
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) && trimmed[0] != '<' {
		return false
	}
	return reClosingTag.Match(trimmed)
}

// DetectDelimiter scores the candidate delimiters over up to the first
// five non-blank lines. A candidate appearing the same number of times on
// every inspected line earns a consistency bonus, which is what keeps a
// stray pipe inside free text from beating the real separator. Ties keep
// the earlier candidate, so comma wins any tie it is part of; empty input
// falls back to comma.
func DetectDelimiter(text string) rune {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == delimiterSampleLines {
			break
		}
	}
	if len(lines) == 0 {
		return ','
	}

	best := ','
	bestScore := 0.0
	for _, cand := range delimiterCandidates {
		total := 0
		consistent := true
		first := strings.Count(lines[0], string(cand.ch))
		for _, line := range lines {
			n := strings.Count(line, string(cand.ch))
			total += n
			if n != first {
				consistent = false
			}
		}
		if total == 0 {
			continue
		}
		score := float64(total) * cand.weight
		if consistent {
			score *= 1.5
		}
		if score > bestScore {
			bestScore = score
			best = cand.ch
		}
	}
	return best
}

var formatByExtension = map[string]Format{
	".csv":  FormatCSV,
	".tsv":  FormatTSV,
	".tab":  FormatTSV,
	".json": FormatJSON,
	".xlsx": FormatXLSX,
	".xls":  FormatXLS,
	".xml":  FormatXML,
}

// FormatFromFilename maps a file name's extension to a format tag. The
// second return is false for unknown extensions.
func FormatFromFilename(name string) (Format, bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return "", false
	}
	f, ok := formatByExtension[strings.ToLower(name[idx:])]
	return f, ok
}

var formatByMIME = map[string]Format{
	"text/csv":                  FormatCSV,
	"application/csv":           FormatCSV,
	"text/tab-separated-values": FormatTSV,
	"application/json":          FormatJSON,
	"text/xml":                  FormatXML,
	"application/xml":           FormatXML,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatXLSX,
	"application/vnd.ms-excel":                                          FormatXLS,
}

// FormatFromMIME maps a MIME type to a format tag, ignoring parameters.
func FormatFromMIME(mime string) (Format, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	f, ok := formatByMIME[mime]
	return f, ok
}

// formatMIME is the inverse direction, used to stamp conversion results.
func formatMIME(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatTSV:
		return "text/tab-separated-values"
	case FormatJSON:
		return "application/json"
	case FormatXML:
		return "application/xml"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatXLS:
		return "application/vnd.ms-excel"
	case FormatSQL:
		return "application/sql"
	case FormatMarkdown:
		return "text/markdown"
	}
	return "application/octet-stream"
}

// isSpreadsheet reports whether raw bytes are workbook binary rather than
// text. OOXML workbooks open with a ZIP signature and legacy workbooks
// with an OLE compound-file signature; mimetype settles which kind when
// the signature alone is ambiguous.
func isSpreadsheet(data []byte) (Format, bool) {
	if len(data) < 4 {
		return "", false
	}
	zip := bytes.HasPrefix(data, []byte("PK\x03\x04"))
	ole := bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0})
	if !zip && !ole {
		return "", false
	}
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return FormatXLSX, true
	case mt.Is("application/vnd.ms-excel"):
		return FormatXLS, true
	case zip:
		// An unrecognized ZIP still gets a workbook attempt; the reader
		// rejects non-workbooks with a proper error.
		return FormatXLSX, true
	}
	return FormatXLS, true
}
