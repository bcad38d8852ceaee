package tabular

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var reCRLF = regexp.MustCompile(`\r\n?`)

const bom = "\uFEFF"

// sanitizeText prepares raw text for parsing: strip a UTF-8 BOM,
// normalize line endings to LF and drop invalid UTF-8 sequences.
func sanitizeText(s string) string {
	s = strings.TrimPrefix(s, bom)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return reCRLF.ReplaceAllString(s, "\n")
}

// cleanCell strips control characters from a single cell value, keeping
// tabs and newlines. Spreadsheet cells in particular arrive with stray
// control bytes.
func cleanCell(s string) string {
	clean := true
	for _, r := range s {
		if unicode.IsControl(r) && r != '\t' && r != '\n' {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
