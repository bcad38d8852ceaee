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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	tabular "github.com/nicholasgasior/tabular-go"
)

var version = "dev"

func main() {
	var (
		output      string
		from        string
		to          string
		delimiter   string
		sheet       string
		sheetName   string
		tableName   string
		rootName    string
		itemName    string
		configPath  string
		charset     string
		maxRows     int
		batchSize   int
		indent      int
		noHeader    bool
		skipEmpty   bool
		trim        bool
		flatten     bool
		compact     bool
		createTable bool
		autoFit     bool
		freeze      bool
		headerStyle bool
		sqliteOut   bool
		showVersion bool
	)

	flag.StringVar(&output, "o", "", "Output file (default: stdout, required for workbook and sqlite output)")
	flag.StringVar(&output, "output", "", "Output file (default: stdout, required for workbook and sqlite output)")
	flag.StringVar(&from, "f", "", "Input format (csv, tsv, json, xml, xlsx, xls; default: detect)")
	flag.StringVar(&from, "from", "", "Input format (csv, tsv, json, xml, xlsx, xls; default: detect)")
	flag.StringVar(&to, "t", "csv", "Output format (csv, tsv, json, xml, xlsx, xls, sql, md)")
	flag.StringVar(&to, "to", "csv", "Output format (csv, tsv, json, xml, xlsx, xls, sql, md)")
	flag.StringVar(&delimiter, "d", "", "Field delimiter for delimited input and output")
	flag.StringVar(&delimiter, "delimiter", "", "Field delimiter for delimited input and output")
	flag.StringVar(&sheet, "sheet", "", "Sheet to read from a workbook, by name")
	flag.StringVar(&sheetName, "sheet-name", "", "Sheet name for workbook output")
	flag.StringVar(&tableName, "table", "", "Table name for SQL output")
	flag.StringVar(&rootName, "root", "", "Root element name for XML output")
	flag.StringVar(&itemName, "item", "", "Row element name for XML output")
	flag.StringVar(&configPath, "config", "", "YAML config file")
	flag.StringVar(&charset, "c", "", "Charset hint for delimited input")
	flag.StringVar(&charset, "charset", "", "Charset hint for delimited input")
	flag.IntVar(&maxRows, "max-rows", 0, "Cap parsed rows, flagging truncation")
	flag.IntVar(&batchSize, "batch-size", 0, "Rows per INSERT statement for SQL output")
	flag.IntVar(&indent, "indent", 0, "Pretty-print indent width for JSON output")
	flag.BoolVar(&noHeader, "no-header", false, "Treat the first row as data")
	flag.BoolVar(&skipEmpty, "skip-empty", false, "Drop rows whose cells are all blank")
	flag.BoolVar(&trim, "trim", false, "Trim surrounding whitespace from cells")
	flag.BoolVar(&flatten, "flatten", false, "Flatten nested JSON into dot-notation columns")
	flag.BoolVar(&compact, "compact", false, "Compact JSON output instead of pretty-printing")
	flag.BoolVar(&createTable, "create-table", false, "Prepend CREATE TABLE to SQL output")
	flag.BoolVar(&autoFit, "auto-fit", false, "Auto-fit column widths in workbook output")
	flag.BoolVar(&freeze, "freeze", false, "Freeze the header row in workbook output")
	flag.BoolVar(&headerStyle, "header-style", false, "Style the header row in workbook output")
	flag.BoolVar(&sqliteOut, "sqlite", false, "Write a SQLite database instead of SQL text (requires -o)")
	flag.BoolVar(&showVersion, "v", false, "Show version")
	flag.BoolVar(&showVersion, "version", false, "Show version")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tabular [flags] [source]\n\n")
		fmt.Fprintf(os.Stderr, "Convert tabular data between csv, tsv, json, xml, workbooks, sql and markdown.\n\n")
		fmt.Fprintf(os.Stderr, "Arguments:\n")
		fmt.Fprintf(os.Stderr, "  source    File path or URL to convert (reads stdin if omitted)\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("tabular %s\n", version)
		os.Exit(0)
	}

	cfg := tabular.DefaultConfig()
	if configPath != "" {
		loaded, err := tabular.LoadConfig(configPath)
		if err != nil {
			fatal("Error: %v", err)
		}
		cfg = loaded
	}

	outFormat, err := tabular.ParseFormat(to)
	if err != nil {
		fatal("Error: %v", err)
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}

	conv := tabular.New(
		tabular.WithLogger(log),
		tabular.WithMaxInputSize(cfg.Limits.MaxInputSize),
	)

	popts := cfg.ParseOptions()
	popts.NoHeader = noHeader
	popts.SkipEmptyLines = skipEmpty
	popts.TrimValues = trim
	popts.FlattenNested = flatten
	popts.Sheet = sheet
	popts.Charset = charset
	if maxRows > 0 {
		popts.MaxRows = maxRows
	}
	if from != "" {
		f, err := tabular.ParseFormat(from)
		if err != nil {
			fatal("Error: %v", err)
		}
		popts.Format = f
	}
	if delimiter != "" {
		popts.Delimiter = []rune(delimiter)[0]
	}

	copts := cfg.ConvertOptions(outFormat)
	if delimiter != "" {
		copts.CSV.Delimiter = []rune(delimiter)[0]
	}
	if compact {
		copts.JSON.Compact = true
	}
	if indent > 0 {
		copts.JSON.Indent = indent
	}
	if rootName != "" {
		copts.XML.RootName = rootName
	}
	if itemName != "" {
		copts.XML.ItemName = itemName
	}
	if sheetName != "" {
		copts.Excel.SheetName = sheetName
	}
	if autoFit {
		copts.Excel.AutoFitColumns = true
	}
	if freeze {
		copts.Excel.FreezeHeader = true
	}
	if headerStyle {
		copts.Excel.HeaderStyle = true
	}
	if tableName != "" {
		copts.SQL.TableName = tableName
	}
	if createTable {
		copts.SQL.IncludeCreate = true
	}
	if batchSize > 0 {
		copts.SQL.BatchSize = batchSize
	}

	var t *tabular.TabularData
	args := flag.Args()
	inputName := ""

	if len(args) == 0 {
		data, readErr := io.ReadAll(os.Stdin)
		if readErr != nil {
			fatal("Error reading stdin: %v", readErr)
		}
		t, err = conv.Parse(data, popts)
	} else {
		source := args[0]
		inputName = source
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			t, err = conv.ParseURL(source, popts)
		} else {
			t, err = conv.ParseFile(source, popts)
		}
	}
	if err != nil {
		fatal("Error: %v", err)
	}

	if sqliteOut {
		if output == "" {
			fatal("Error: sqlite output requires -o")
		}
		if err := tabular.ExportSQLite(context.Background(), t, output, copts.SQL); err != nil {
			fatal("Error: %v", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %d rows to %s\n", t.Meta.RowCount, output)
		return
	}

	res := conv.Convert(t, copts)
	if !res.Success {
		fatal("Error: %s", res.Error)
	}

	binary := outFormat == tabular.FormatXLSX || outFormat == tabular.FormatXLS
	if output == "" && binary {
		output = tabular.OutputFilename(inputName, outFormat)
		fmt.Fprintf(os.Stderr, "writing workbook to %s\n", output)
	}

	if output != "" {
		dir := filepath.Dir(output)
		if dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		if writeErr := os.WriteFile(output, res.Data, 0o644); writeErr != nil {
			fatal("Error writing output: %v", writeErr)
		}
		return
	}
	os.Stdout.Write(res.Data)
	fmt.Println()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
