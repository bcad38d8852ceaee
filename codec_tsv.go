package tabular

import "strings"

// TSVCodec is the tab-delimited variant of the CSV codec.
type TSVCodec struct {
	CSVCodec
}

// NewTSVCodec creates the tab-delimited codec.
func NewTSVCodec() *TSVCodec {
	return &TSVCodec{CSVCodec{format: FormatTSV, delimiter: '\t'}}
}

func (c *TSVCodec) Accepts(info StreamInfo) bool {
	switch info.Extension {
	case ".tsv", ".tab":
		return true
	}
	return strings.HasPrefix(strings.ToLower(info.MIMEType), "text/tab-separated-values")
}

// Sniff defers to the delimiter detector: content is tab-separated when
// tab beats every other candidate.
func (c *TSVCodec) Sniff(data []byte) bool {
	return DetectDelimiter(string(data)) == '\t'
}
