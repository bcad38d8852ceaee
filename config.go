package tabular

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the file-backed configuration the CLI loads and maps onto
// engine options and per-call option bags.
type Config struct {
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Limits struct {
		MaxInputSize int64 `yaml:"max_input_size"`
		MaxRows      int   `yaml:"max_rows"`
	} `yaml:"limits"`
	CSV struct {
		Delimiter string `yaml:"delimiter"`
	} `yaml:"csv"`
	JSON struct {
		Compact bool `yaml:"compact"`
		Indent  int  `yaml:"indent"`
	} `yaml:"json"`
	XML struct {
		RootName string `yaml:"root_name"`
		ItemName string `yaml:"item_name"`
	} `yaml:"xml"`
	Excel struct {
		SheetName      string `yaml:"sheet_name"`
		AutoFitColumns bool   `yaml:"auto_fit_columns"`
		FreezeHeader   bool   `yaml:"freeze_header"`
		HeaderStyle    bool   `yaml:"header_style"`
	} `yaml:"excel"`
	SQL struct {
		TableName     string `yaml:"table_name"`
		IncludeCreate bool   `yaml:"include_create"`
		BatchSize     int    `yaml:"batch_size"`
	} `yaml:"sql"`
}

// DefaultConfig mirrors the writers' own defaults, so a partial file only
// overrides what it names.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Log.Level = "warn"
	cfg.Limits.MaxInputSize = defaultMaxInputSize
	cfg.JSON.Indent = 2
	cfg.XML.RootName = "root"
	cfg.XML.ItemName = "item"
	cfg.Excel.SheetName = defaultSheetName
	cfg.SQL.TableName = defaultTableName
	cfg.SQL.BatchSize = defaultBatchSize
	return cfg
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ParseOptions maps the file settings onto a parse option bag.
func (c *Config) ParseOptions() ParseOptions {
	opts := ParseOptions{MaxRows: c.Limits.MaxRows}
	if c.CSV.Delimiter != "" {
		opts.Delimiter = []rune(c.CSV.Delimiter)[0]
	}
	return opts
}

// ConvertOptions maps the file settings onto a per-call option bag for
// the given output format.
func (c *Config) ConvertOptions(output Format) ConvertOptions {
	opts := ConvertOptions{OutputFormat: output}
	if c.CSV.Delimiter != "" {
		opts.CSV.Delimiter = []rune(c.CSV.Delimiter)[0]
	}
	opts.JSON.Compact = c.JSON.Compact
	opts.JSON.Indent = c.JSON.Indent
	opts.XML.RootName = c.XML.RootName
	opts.XML.ItemName = c.XML.ItemName
	opts.Excel.SheetName = c.Excel.SheetName
	opts.Excel.AutoFitColumns = c.Excel.AutoFitColumns
	opts.Excel.FreezeHeader = c.Excel.FreezeHeader
	opts.Excel.HeaderStyle = c.Excel.HeaderStyle
	opts.SQL.TableName = c.SQL.TableName
	opts.SQL.IncludeCreate = c.SQL.IncludeCreate
	opts.SQL.BatchSize = c.SQL.BatchSize
	return opts
}
