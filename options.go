package tabular

import "github.com/sirupsen/logrus"

// Option configures a Converter.
type Option func(*Converter)

// WithLogger replaces the engine's logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.log = l
		}
	}
}

// WithCache attaches a result cache consulted by ConvertBytes. Without
// one, every call parses and encodes from scratch.
func WithCache(cache *Cache) Option {
	return func(c *Converter) { c.cache = cache }
}

// WithMaxInputSize bounds the input size Parse, ParseFile and ParseURL
// accept. Zero or negative disables the limit.
func WithMaxInputSize(n int64) Option {
	return func(c *Converter) { c.maxInputSize = n }
}

// ParseOptions control the decode half of the pipeline. The zero value
// means: autodetect the format, treat the first row as headers, keep
// empty lines and surrounding whitespace, and do not flatten.
type ParseOptions struct {
	// Format pins the input format instead of autodetecting it.
	Format Format

	// Delimiter overrides the field separator for delimited input. Zero
	// means comma for csv, tab for tsv, or the detected winner when the
	// engine resolves the delimiter itself.
	Delimiter rune

	// NoHeader treats the first row as data and synthesizes
	// "Column 1".."Column N" names.
	NoHeader bool

	// SkipEmptyLines drops rows whose cells are all blank.
	SkipEmptyLines bool

	// TrimValues strips surrounding whitespace from headers and cells.
	TrimValues bool

	// FlattenNested collapses nested JSON objects into dot-notation keys
	// and arrays into comma-joined strings.
	FlattenNested bool

	// Sheet selects a spreadsheet sheet by name, SheetIndex by position.
	// A name wins over an index.
	Sheet      string
	SheetIndex int

	// Charset hints the text encoding of delimited input. Empty means
	// detect.
	Charset string

	// MaxRows caps the parsed row count; exceeding it sets
	// Metadata.Truncated.
	MaxRows int
}

// ConvertOptions select and configure the output writer. Only the bag
// matching OutputFormat is consulted.
type ConvertOptions struct {
	OutputFormat Format

	CSV   CSVWriteOptions
	JSON  JSONWriteOptions
	XML   XMLWriteOptions
	Excel ExcelWriteOptions
	SQL   SQLWriteOptions
}

// CSVWriteOptions configure delimited output.
type CSVWriteOptions struct {
	// Delimiter defaults to comma, or tab for tsv output.
	Delimiter rune
}

// JSONWriteOptions configure JSON output.
type JSONWriteOptions struct {
	// Compact disables pretty-printing.
	Compact bool
	// Indent is the pretty-print width in spaces. Zero means 2.
	Indent int
}

// XMLWriteOptions configure XML output.
type XMLWriteOptions struct {
	// RootName defaults to "root", ItemName to "item". Both are
	// sanitized into valid element names before use.
	RootName string
	ItemName string
}

// ExcelWriteOptions configure workbook output.
type ExcelWriteOptions struct {
	// SheetName defaults to "Sheet1".
	SheetName string
	// AutoFitColumns sizes each column from the header and a bounded
	// sample of rows.
	AutoFitColumns bool
	// FreezeHeader pins the first row while scrolling.
	FreezeHeader bool
	// HeaderStyle renders the header row bold on a light fill.
	HeaderStyle bool
}

// SQLWriteOptions configure SQL output.
type SQLWriteOptions struct {
	// TableName defaults to "my_table".
	TableName string
	// IncludeCreate prepends a CREATE TABLE statement with every column
	// typed TEXT.
	IncludeCreate bool
	// BatchSize is the row count per INSERT statement. Zero means 100.
	BatchSize int
}

// FlattenOptions parameterize the flattener shared by the JSON and XML
// paths.
type FlattenOptions struct {
	// Prefix is joined with a dot in front of every key.
	Prefix string
	// MaxDepth bounds recursion; nodes past it are JSON-stringified.
	// Zero means 100.
	MaxDepth int
	// Nulls selects how nil values render.
	Nulls NullPolicy
}

// NullPolicy picks the rendering of nil values during flattening. The
// JSON path preserves them and the XML path coerces them to empty
// strings, matching each format's own conventions.
type NullPolicy int

const (
	NullPreserve NullPolicy = iota
	NullEmpty
)
