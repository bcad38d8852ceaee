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
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheetName = "Sheet1"
	// autoFitSampleRows bounds the width scan; past this many rows the
	// widths are already representative.
	autoFitSampleRows = 100
	maxColumnWidth    = 60.0
)

// ExcelCodec reads and writes workbook binaries. Construction happens
// once through loadExcelCodec: the header style and buffer pool are
// compiled on first use and every later call reuses the same handle.
type ExcelCodec struct {
	headerStyle *excelize.Style
	bufPool     sync.Pool
}

var (
	excelOnce   sync.Once
	excelShared *ExcelCodec
)

// loadExcelCodec returns the process-wide spreadsheet codec, building it
// on first use.
func loadExcelCodec() *ExcelCodec {
	excelOnce.Do(func() {
		excelShared = &ExcelCodec{
			headerStyle: &excelize.Style{
				Font: &excelize.Font{Bold: true},
				Fill: excelize.Fill{Type: "pattern", Color: []string{"#F2F2F2"}, Pattern: 1},
			},
			bufPool: sync.Pool{New: func() any { return new(bytes.Buffer) }},
		}
	})
	return excelShared
}

func (c *ExcelCodec) Accepts(info StreamInfo) bool {
	switch info.Extension {
	case ".xlsx", ".xls":
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet") ||
		strings.HasPrefix(mime, "application/vnd.ms-excel")
}

// Sniff checks workbook magic bytes.
func (c *ExcelCodec) Sniff(data []byte) bool {
	_, ok := isSpreadsheet(data)
	return ok
}

func (c *ExcelCodec) Decode(data []byte, opts ParseOptions) (*TabularData, error) {
	if f, ok := isSpreadsheet(data); ok && f == FormatXLS {
		return parseLegacyXLS(data, opts)
	}
	return ParseExcel(data, opts)
}

// ParseExcel opens an OOXML workbook from raw bytes, resolves the
// selected sheet and parses its grid.
func ParseExcel(data []byte, opts ParseOptions) (*TabularData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Code: CodeInvalidExcel, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return emptyTable(FormatXLSX).finalize(), nil
	}
	sheet, err := resolveSheet(sheets, opts.Sheet, opts.SheetIndex)
	if err != nil {
		return nil, err
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Code: CodeInvalidExcel, Err: err}
	}
	t := ParseExcelData(grid, sheets)
	t.Format = FormatXLSX
	return t, nil
}

// resolveSheet picks a sheet by name, exact match before
// case-insensitive, or by index when no name is given.
func resolveSheet(sheets []string, name string, index int) (string, error) {
	if name != "" {
		for _, s := range sheets {
			if s == name {
				return s, nil
			}
		}
		for _, s := range sheets {
			if strings.EqualFold(s, name) {
				return s, nil
			}
		}
		return "", &ValidationError{Option: "Sheet", Reason: fmt.Sprintf("no sheet named %q", name)}
	}
	if index < 0 || index >= len(sheets) {
		return "", &ValidationError{Option: "SheetIndex",
			Reason: fmt.Sprintf("index %d out of range, workbook has %d sheets", index, len(sheets))}
	}
	return sheets[index], nil
}

// ParseExcelData zips a sheet grid into tabular form: first row headers,
// the rest cell records. Blank header cells get positional "Column N"
// names and the sheet list rides along in metadata.
func ParseExcelData(grid [][]string, sheets []string) *TabularData {
	t := emptyTable(FormatXLSX)
	t.Meta.Sheets = sheets
	if len(grid) == 0 {
		return t.finalize()
	}

	rawHeaders := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		name := cleanCell(strings.TrimSpace(h))
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		rawHeaders[i] = name
	}
	t.Headers = dedupeHeaders(rawHeaders)
	for _, rec := range grid[1:] {
		row := make(Row, len(t.Headers))
		for i, cell := range rec {
			if i >= len(rawHeaders) {
				break
			}
			row[rawHeaders[i]] = cleanCell(cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t.finalize()
}

func (c *ExcelCodec) Encode(t *TabularData, opts ConvertOptions) ([]byte, error) {
	wb, err := c.BuildWorkbook(t, opts.Excel)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return c.serialize(wb)
}

// BuildWorkbook materializes the sheet without serializing it, for
// callers that keep editing before the binary step.
func (c *ExcelCodec) BuildWorkbook(t *TabularData, opts ExcelWriteOptions) (*excelize.File, error) {
	sheetName := opts.SheetName
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	if err := validateSheetName(sheetName); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if name := f.GetSheetName(0); name != sheetName {
		if err := f.SetSheetName(name, sheetName); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := c.fillSheet(f, sheetName, t, opts); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (c *ExcelCodec) fillSheet(f *excelize.File, sheet string, t *TabularData, opts ExcelWriteOptions) error {
	for ci, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(ci+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for ri, row := range t.Rows {
		for ci, h := range t.Headers {
			v, ok := row[h]
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
				return err
			}
		}
	}

	if opts.AutoFitColumns {
		if err := c.autoFit(f, sheet, t); err != nil {
			return err
		}
	}
	if opts.FreezeHeader && len(t.Headers) > 0 {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}
	if opts.HeaderStyle && len(t.Headers) > 0 {
		styleID, err := f.NewStyle(c.headerStyle)
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, styleID); err != nil {
			return err
		}
	}
	return nil
}

// cellValue maps cell scalars onto types excelize stores natively, so
// numbers stay numbers in the workbook.
func cellValue(v any) any {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if fl, err := n.Float64(); err == nil {
			return fl
		}
		return n.String()
	}
	return v
}

// autoFit sizes each column from the header plus a bounded row sample,
// capped so one huge cell cannot blow a column out.
func (c *ExcelCodec) autoFit(f *excelize.File, sheet string, t *TabularData) error {
	for ci, h := range t.Headers {
		width := float64(len(h))
		for ri, row := range t.Rows {
			if ri >= autoFitSampleRows {
				break
			}
			if w := float64(len(scalarString(row[h]))); w > width {
				width = w
			}
			if width >= maxColumnWidth {
				width = maxColumnWidth
				break
			}
		}
		col, err := excelize.ColumnNumberToName(ci + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width+2); err != nil {
			return err
		}
	}
	return nil
}

// validateSheetName enforces the workbook naming rules up front so the
// failure is a ValidationError rather than an opaque writer error.
func validateSheetName(name string) error {
	if name == "" || len(name) > 31 {
		return &ValidationError{Option: "SheetName", Reason: "must be 1 to 31 characters"}
	}
	if strings.ContainsAny(name, `:\/?*[]`) {
		return &ValidationError{Option: "SheetName", Reason: `must not contain : \ / ? * [ ]`}
	}
	return nil
}

// serialize writes the workbook through the pooled buffers.
func (c *ExcelCodec) serialize(f *excelize.File) ([]byte, error) {
	buf := c.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufPool.Put(buf)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
