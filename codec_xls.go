package tabular

import (
	"fmt"
	"os"
	"strings"

	"github.com/extrame/xls"
)

// parseLegacyXLS reads a BIFF workbook. The reader wants a file path, so
// the bytes go through a temp file first. Legacy workbooks are read-only:
// requesting xls output serializes through the OOXML writer.
func parseLegacyXLS(data []byte, opts ParseOptions) (*TabularData, error) {
	tmp, err := os.CreateTemp("", "tabular-*.xls")
	if err != nil {
		return nil, &FileError{Code: CodeFileUnreadable, Path: "temp file", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, &FileError{Code: CodeFileUnreadable, Path: tmpPath, Err: err}
	}
	tmp.Close()

	wb, err := xls.Open(tmpPath, "utf-8")
	if err != nil {
		return nil, &ParseError{Format: FormatXLS, Code: CodeInvalidExcel, Err: err}
	}

	numSheets := wb.NumSheets()
	if numSheets == 0 {
		return emptyTable(FormatXLS).finalize(), nil
	}
	sheets := make([]string, 0, numSheets)
	for i := 0; i < numSheets; i++ {
		name := ""
		if s := wb.GetSheet(i); s != nil {
			name = s.Name
		}
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		sheets = append(sheets, name)
	}

	idx := opts.SheetIndex
	if opts.Sheet != "" {
		idx = -1
		for i, name := range sheets {
			if strings.EqualFold(name, opts.Sheet) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, &ValidationError{Option: "Sheet", Reason: fmt.Sprintf("no sheet named %q", opts.Sheet)}
		}
	}
	if idx < 0 || idx >= numSheets {
		return nil, &ValidationError{Option: "SheetIndex",
			Reason: fmt.Sprintf("index %d out of range, workbook has %d sheets", idx, numSheets)}
	}

	sheet := wb.GetSheet(idx)
	if sheet == nil {
		t := emptyTable(FormatXLS)
		t.Meta.Sheets = sheets
		return t.finalize(), nil
	}

	var grid [][]string
	for rowIdx := 0; rowIdx <= int(sheet.MaxRow); rowIdx++ {
		row := sheet.Row(rowIdx)
		if row == nil {
			continue
		}
		var cells []string
		for colIdx := 0; colIdx < row.LastCol(); colIdx++ {
			cells = append(cells, row.Col(colIdx))
		}
		grid = append(grid, cells)
	}

	t := ParseExcelData(grid, sheets)
	t.Format = FormatXLS
	return t, nil
}
