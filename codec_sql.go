package tabular

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

const (
	defaultTableName = "my_table"
	defaultBatchSize = 100
)

var reSQLUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sqlReservedWords is the conservative keyword set that forces quoting.
// Sanitization runs first, so quoting only matters for names that survive
// cleaning yet still collide with SQL grammar.
var sqlReservedWords = []string{
	"add", "all", "alter", "and", "as", "asc", "between", "by", "case",
	"check", "column", "constraint", "create", "database", "default",
	"delete", "desc", "distinct", "drop", "else", "end", "exists",
	"foreign", "from", "group", "having", "in", "index", "inner",
	"insert", "into", "is", "join", "key", "left", "like", "limit",
	"not", "null", "on", "or", "order", "outer", "primary", "references",
	"right", "select", "set", "table", "then", "to", "union", "unique",
	"update", "values", "view", "when", "where",
}

var (
	sqlReservedOnce sync.Once
	sqlReservedSet  map[string]struct{}
)

func isReservedWord(s string) bool {
	sqlReservedOnce.Do(func() {
		sqlReservedSet = make(map[string]struct{}, len(sqlReservedWords))
		for _, w := range sqlReservedWords {
			sqlReservedSet[w] = struct{}{}
		}
	})
	_, ok := sqlReservedSet[strings.ToLower(s)]
	return ok
}

// EscapeIdentifier makes an arbitrary header or table name safe to splice
// into SQL text. Every character outside [A-Za-z0-9_] becomes an
// underscore, and the cleaned token is double-quoted when it starts with
// a digit or matches a reserved word. Adversarial input like
// "col;DROP TABLE" degrades to a harmless identifier before quoting is
// even considered.
func EscapeIdentifier(name string) string {
	cleaned := reSQLUnsafe.ReplaceAllString(name, "_")
	if cleaned == "" {
		cleaned = "_"
	}
	if (cleaned[0] >= '0' && cleaned[0] <= '9') || isReservedWord(cleaned) {
		return `"` + cleaned + `"`
	}
	return cleaned
}

// EscapeValue renders a cell as a SQL literal. NULL, numeric and boolean
// forms go unquoted; everything else becomes a single-quoted string with
// embedded quotes doubled. Every value passes through here, there is no
// trusted path.
func EscapeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case json.Number:
		// A Number that does not parse is treated as hostile and
		// quoted like any other string.
		if _, err := x.Float64(); err == nil {
			return x.String()
		}
		return quoteSQLString(x.String())
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return quoteSQLString(scalarString(v))
	}
}

func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SQLEncoder emits INSERT batches, and optionally CREATE TABLE, as SQL
// text. Output only; nothing parses SQL back.
type SQLEncoder struct{}

func NewSQLEncoder() *SQLEncoder { return &SQLEncoder{} }

func (e *SQLEncoder) Encode(t *TabularData, opts ConvertOptions) ([]byte, error) {
	return []byte(WriteSQL(t.Headers, t.Rows, opts.SQL)), nil
}

// WriteSQL renders rows as batched multi-row INSERT statements,
// statements separated by blank lines. Zero rows or zero headers produce
// empty output regardless of the create-table flag. Keys a row lacks
// render as NULL.
func WriteSQL(headers []string, rows []Row, opts SQLWriteOptions) string {
	if len(rows) == 0 || len(headers) == 0 {
		return ""
	}
	tableName := opts.TableName
	if tableName == "" {
		tableName = defaultTableName
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	table := EscapeIdentifier(tableName)
	cols := make([]string, len(headers))
	for i, h := range headers {
		cols[i] = EscapeIdentifier(h)
	}
	colList := strings.Join(cols, ", ")

	var statements []string
	if opts.IncludeCreate {
		statements = append(statements, createTableSQL(table, cols))
	}

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		var b strings.Builder
		b.WriteString("INSERT INTO ")
		b.WriteString(table)
		b.WriteString(" (")
		b.WriteString(colList)
		b.WriteString(") VALUES\n")
		for i, row := range rows[start:end] {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString("  (")
			for j, h := range headers {
				if j > 0 {
					b.WriteString(", ")
				}
				v, ok := row[h]
				if !ok {
					b.WriteString("NULL")
					continue
				}
				b.WriteString(EscapeValue(v))
			}
			b.WriteString(")")
		}
		b.WriteString(";")
		statements = append(statements, b.String())
	}
	return strings.Join(statements, "\n\n")
}

// createTableSQL types every column TEXT; type inference is not this
// writer's job.
func createTableSQL(table string, cols []string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(table)
	b.WriteString(" (\n")
	for i, col := range cols {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(col)
		b.WriteString(" TEXT")
	}
	b.WriteString("\n);")
	return b.String()
}
