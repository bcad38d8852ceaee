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

// Package tabular converts tabular data between delimited text, JSON,
// XML, spreadsheet workbooks, SQL and markdown, detecting the input
// format when the caller does not name one.
package tabular

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Registration priorities. Lower sniffs first.
const (
	// PrioritySpecific is for codecs with a reliable content signature.
	PrioritySpecific = 0.0
	// PriorityGeneric is for fallback codecs; delimited text accepts
	// anything.
	PriorityGeneric = 10.0
)

// defaultMaxInputSize bounds what Parse, ParseFile and ParseURL accept.
const defaultMaxInputSize = 50 << 20

type registeredDecoder struct {
	decoder  Decoder
	format   Format
	priority float64
}

// Converter is the format conversion and detection engine. It holds no
// per-call state: one Converter may serve concurrent parses and
// conversions without synchronization.
type Converter struct {
	decoders     []registeredDecoder
	decoderByTag map[Format]Decoder
	encoders     map[Format]Encoder
	cache        *Cache
	log          *logrus.Logger
	maxInputSize int64
}

// New creates a Converter with the built-in codecs registered.
func New(opts ...Option) *Converter {
	c := &Converter{
		decoderByTag: make(map[Format]Decoder),
		encoders:     make(map[Format]Encoder),
		log:          newDefaultLogger(),
		maxInputSize: defaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.enableBuiltins()
	return c
}

// RegisterDecoder adds a decoder for a format tag. Priority orders the
// sniff chain; the tag also becomes addressable through
// ParseOptions.Format.
func (c *Converter) RegisterDecoder(f Format, d Decoder, priority float64) {
	c.decoders = append(c.decoders, registeredDecoder{decoder: d, format: f, priority: priority})
	sort.SliceStable(c.decoders, func(i, j int) bool {
		return c.decoders[i].priority < c.decoders[j].priority
	})
	c.decoderByTag[f] = d
}

// RegisterEncoder adds or replaces the writer for an output format.
func (c *Converter) RegisterEncoder(f Format, e Encoder) {
	c.encoders[f] = e
}

func (c *Converter) enableBuiltins() {
	csvCodec := NewCSVCodec()
	tsvCodec := NewTSVCodec()
	jsonCodec := NewJSONCodec()
	xmlCodec := NewXMLCodec()

	// Specific signatures sniff first and delimited text goes last. The
	// spreadsheet codec stays out of the sniff chain: binary input
	// short-circuits to it before text detection runs, which also defers
	// its construction until a workbook actually shows up.
	c.RegisterDecoder(FormatJSON, jsonCodec, PrioritySpecific)
	c.RegisterDecoder(FormatXML, xmlCodec, PrioritySpecific+1)
	c.RegisterDecoder(FormatTSV, tsvCodec, PriorityGeneric-1)
	c.RegisterDecoder(FormatCSV, csvCodec, PriorityGeneric)

	c.RegisterEncoder(FormatCSV, csvCodec)
	c.RegisterEncoder(FormatTSV, tsvCodec)
	c.RegisterEncoder(FormatJSON, jsonCodec)
	c.RegisterEncoder(FormatXML, xmlCodec)
	c.RegisterEncoder(FormatSQL, NewSQLEncoder())
	c.RegisterEncoder(FormatMarkdown, NewMarkdownEncoder())
}

// Parse turns raw input into the canonical tabular model. Workbook
// binary dispatches straight to the spreadsheet codec; text input
// resolves its format, explicit tag first and content detection
// otherwise, and goes through the matching decoder. When the engine
// resolves a delimited format itself it also feeds the detected
// delimiter through, so semicolon and pipe files parse on first try.
func (c *Converter) Parse(data []byte, opts ParseOptions) (*TabularData, error) {
	if c.maxInputSize > 0 && int64(len(data)) > c.maxInputSize {
		return nil, &FileError{Code: CodeFileTooLarge, Path: "input",
			Err: fmt.Errorf("%d bytes over the %d byte limit", len(data), c.maxInputSize)}
	}

	if _, ok := isSpreadsheet(data); ok {
		t, err := loadExcelCodec().Decode(data, opts)
		if err != nil {
			return nil, err
		}
		t.truncateRows(opts.MaxRows)
		c.logParsed(t)
		return t, nil
	}

	format := opts.Format
	if format == "" {
		format = c.detectTextFormat(data)
	}

	switch format {
	case FormatXLSX, FormatXLS:
		// Declared a workbook but the magic bytes say otherwise; let the
		// codec produce the proper error.
		return loadExcelCodec().Decode(data, opts)
	case FormatCSV, FormatTSV, FormatJSON, FormatXML:
	default:
		if _, ok := c.decoderByTag[format]; !ok {
			return nil, &ValidationError{Option: "Format", Reason: fmt.Sprintf("unknown input format %q", format)}
		}
	}

	dec, ok := c.decoderByTag[format]
	if !ok {
		return nil, &ValidationError{Option: "Format", Reason: fmt.Sprintf("no decoder registered for %q", format)}
	}

	if opts.Delimiter == 0 && format == FormatCSV {
		opts.Delimiter = DetectDelimiter(string(data))
	}

	t, err := dec.Decode(data, opts)
	if err != nil {
		return nil, err
	}
	t.Format = format
	t.truncateRows(opts.MaxRows)
	c.logParsed(t)
	return t, nil
}

func (c *Converter) logParsed(t *TabularData) {
	c.log.WithFields(logrus.Fields{
		"format": t.Format,
		"rows":   t.Meta.RowCount,
		"cols":   t.Meta.ColumnCount,
	}).Debug("parsed input")
}

// detectTextFormat runs the registered sniffers in priority order. The
// package-level DetectFormat runs the same chain over the builtin
// codecs.
func (c *Converter) detectTextFormat(data []byte) Format {
	for _, rd := range c.decoders {
		if rd.decoder.Sniff(data) {
			return rd.format
		}
	}
	return FormatCSV
}

// formatFromInfo consults the registered decoders' Accepts in priority
// order. Spreadsheets are absent on purpose: workbook magic bytes settle
// those before metadata is even looked at.
func (c *Converter) formatFromInfo(info StreamInfo) Format {
	if info.Extension == "" && info.MIMEType == "" {
		return ""
	}
	for _, rd := range c.decoders {
		if rd.decoder.Accepts(info) {
			return rd.format
		}
	}
	return ""
}

func (c *Converter) parseWithInfo(data []byte, info StreamInfo, opts ParseOptions) (*TabularData, error) {
	if opts.Format == "" {
		opts.Format = c.formatFromInfo(info)
	}
	if opts.Charset == "" {
		opts.Charset = info.Charset
	}
	t, err := c.Parse(data, opts)
	if err != nil {
		return nil, err
	}
	if info.Filename != "" {
		t.Meta.FileName = info.Filename
	}
	if info.FileSize > 0 {
		t.Meta.FileSize = info.FileSize
	} else if len(data) > 0 {
		t.Meta.FileSize = int64(len(data))
	}
	return t, nil
}

// ParseReader reads a stream to completion and parses it, using the
// stream metadata to pick the decoder before content detection gets a
// say.
func (c *Converter) ParseReader(r io.Reader, info StreamInfo, opts ParseOptions) (*TabularData, error) {
	limit := c.maxInputSize
	if limit <= 0 {
		limit = defaultMaxInputSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, &FileError{Code: CodeFileUnreadable, Path: info.Filename, Err: err}
	}
	return c.parseWithInfo(data, info, opts)
}

// ParseFile parses a local file, attaching name and size provenance to
// the result.
func (c *Converter) ParseFile(path string, opts ParseOptions) (*TabularData, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, &FileError{Code: CodeFileUnreadable, Path: path, Err: err}
	}
	if c.maxInputSize > 0 && st.Size() > c.maxInputSize {
		return nil, &FileError{Code: CodeFileTooLarge, Path: path,
			Err: fmt.Errorf("%d bytes over the %d byte limit", st.Size(), c.maxInputSize)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Code: CodeFileUnreadable, Path: path, Err: err}
	}

	info := StreamInfo{
		Extension: strings.ToLower(filepath.Ext(path)),
		Filename:  filepath.Base(path),
		FileSize:  st.Size(),
		LocalPath: path,
	}
	return c.parseWithInfo(data, info, opts)
}

// ParseURL fetches a document and parses the response body, reading the
// format and charset hints out of the response headers.
func (c *Converter) ParseURL(url string, opts ParseOptions) (*TabularData, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, &FileError{Code: CodeFileUnreadable, Path: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &FileError{Code: CodeFileUnreadable, Path: url,
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	info := StreamInfo{URL: url}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		parts := strings.Split(ct, ";")
		info.MIMEType = strings.TrimSpace(parts[0])
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			if strings.HasPrefix(p, "charset=") {
				info.Charset = strings.Trim(strings.TrimPrefix(p, "charset="), `"'`)
			}
		}
	}
	urlPath := strings.SplitN(url, "?", 2)[0]
	if ext := filepath.Ext(urlPath); ext != "" && len(ext) <= 5 {
		info.Extension = strings.ToLower(ext)
		info.Filename = filepath.Base(urlPath)
	}
	return c.ParseReader(resp.Body, info, opts)
}

// Convert encodes a table into the requested output format. It never
// returns an error and never panics: failures come back inside the
// envelope, because the boundary above this one has no use for either.
func (c *Converter) Convert(t *TabularData, opts ConvertOptions) (res ConversionResult) {
	res.Format = opts.OutputFormat
	if t == nil {
		res.Error = (&ConversionError{OutputFormat: opts.OutputFormat, Err: fmt.Errorf("nil input table")}).Error()
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("format", opts.OutputFormat).Error("writer panicked")
			res = ConversionResult{
				Format: opts.OutputFormat,
				Error:  (&ConversionError{OutputFormat: opts.OutputFormat, Err: fmt.Errorf("panic: %v", r)}).Error(),
			}
		}
	}()

	enc := c.encoderFor(opts.OutputFormat)
	if enc == nil {
		res.Error = (&ConversionError{OutputFormat: opts.OutputFormat}).Error()
		return res
	}

	data, err := enc.Encode(t, opts)
	if err != nil {
		res.Error = (&ConversionError{OutputFormat: opts.OutputFormat, Err: err}).Error()
		return res
	}

	res.Success = true
	res.Data = data
	res.MIMEType = formatMIME(opts.OutputFormat)
	res.Meta = &ConversionMeta{
		InputFormat:  t.Format,
		OutputFormat: opts.OutputFormat,
		RowCount:     len(t.Rows),
		ColumnCount:  len(t.Headers),
	}
	return res
}

// encoderFor resolves lazily for the spreadsheet formats and through the
// registry for everything else.
func (c *Converter) encoderFor(f Format) Encoder {
	switch f {
	case FormatXLSX, FormatXLS:
		return loadExcelCodec()
	}
	return c.encoders[f]
}

// ConvertBytes runs parse then convert in one call, mediated by the
// optional cache. A hit returns the stored envelope without touching the
// parsers; only successful conversions are stored.
func (c *Converter) ConvertBytes(data []byte, popts ParseOptions, copts ConvertOptions) ConversionResult {
	var key uint64
	if c.cache != nil {
		key = Fingerprint(data, popts, copts)
		if v, ok := c.cache.Get(key); ok {
			if res, ok := v.(ConversionResult); ok {
				return res
			}
		}
	}

	t, err := c.Parse(data, popts)
	if err != nil {
		return ConversionResult{Format: copts.OutputFormat, Error: err.Error()}
	}
	res := c.Convert(t, copts)
	if c.cache != nil && res.Success {
		c.cache.Set(key, res)
	}
	return res
}

// Reflatten rebuilds rows from the structure a parse retained in Raw,
// with a different flattening policy, for callers that parsed first and
// chose options later. A single retained object becomes one row; a
// retained array becomes one row per element.
func Reflatten(t *TabularData, opts FlattenOptions) (*TabularData, error) {
	if t == nil || t.Raw == nil {
		return nil, &ValidationError{Option: "Raw", Reason: "no retained structure to reflatten"}
	}

	var elements []any
	switch v := t.Raw.(type) {
	case []any:
		elements = v
	case *orderedMap:
		elements = []any{v}
	case map[string]any:
		elements = []any{v}
	default:
		return nil, &ValidationError{Option: "Raw", Reason: "retained structure is not object-shaped"}
	}

	out := emptyTable(t.Format)
	out.Raw = t.Raw
	out.Meta.FileName = t.Meta.FileName
	out.Meta.FileSize = t.Meta.FileSize
	out.Meta.Sheets = t.Meta.Sheets

	union := newHeaderUnion()
	for _, el := range elements {
		flat := flattenAny(el, opts)
		row := make(Row, flat.len())
		for _, k := range flat.keys {
			row[k] = flat.vals[k]
			union.add(k)
		}
		out.Rows = append(out.Rows, row)
	}
	out.Headers = union.list()
	return out.finalize(), nil
}

// OutputFilename derives a download name for converted output: the input
// name loses its extension and gains the output format's, with
// "converted" as the fallback base.
func OutputFilename(inputName string, f Format) string {
	base := "converted"
	if inputName != "" {
		name := filepath.Base(inputName)
		name = strings.TrimSuffix(name, filepath.Ext(name))
		if name != "" && name != "." && name != string(filepath.Separator) {
			base = name
		}
	}
	return base + formatExtension(f)
}

// formatExtension is the download extension per format.
func formatExtension(f Format) string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatTSV:
		return ".tsv"
	case FormatJSON:
		return ".json"
	case FormatXML:
		return ".xml"
	case FormatXLSX:
		return ".xlsx"
	case FormatXLS:
		return ".xls"
	case FormatSQL:
		return ".sql"
	case FormatMarkdown:
		return ".md"
	}
	return ".txt"
}
