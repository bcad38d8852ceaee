package tabular

import "strings"

// MarkdownEncoder renders a pipe table. Output only; nothing parses
// markdown back.
type MarkdownEncoder struct{}

func NewMarkdownEncoder() *MarkdownEncoder { return &MarkdownEncoder{} }

func (e *MarkdownEncoder) Encode(t *TabularData, opts ConvertOptions) ([]byte, error) {
	if len(t.Headers) == 0 {
		return []byte{}, nil
	}
	var b strings.Builder
	b.WriteString("|")
	for _, h := range t.Headers {
		b.WriteString(" ")
		b.WriteString(escapePipes(h))
		b.WriteString(" |")
	}
	b.WriteString("\n|")
	for range t.Headers {
		b.WriteString(" --- |")
	}
	for _, row := range t.Rows {
		b.WriteString("\n|")
		for _, h := range t.Headers {
			b.WriteString(" ")
			b.WriteString(escapePipes(scalarString(row[h])))
			b.WriteString(" |")
		}
	}
	return []byte(b.String()), nil
}

// escapePipes keeps cell text from breaking the table syntax; line breaks
// collapse to spaces.
func escapePipes(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
