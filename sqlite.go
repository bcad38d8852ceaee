package tabular

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ExportSQLite materializes a table into a SQLite database file, sharing
// the SQL writer's identifier escaping and batch sizing. Values bind
// through placeholders since a real driver is in play; one transaction
// per batch keeps memory flat on large exports.
func ExportSQLite(ctx context.Context, t *TabularData, path string, opts SQLWriteOptions) error {
	if t == nil || len(t.Headers) == 0 {
		return &ValidationError{Option: "TabularData", Reason: "nothing to export"}
	}
	tableName := opts.TableName
	if tableName == "" {
		tableName = defaultTableName
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &FileError{Code: CodeFileUnreadable, Path: path, Err: err}
	}
	defer db.Close()

	table := EscapeIdentifier(tableName)
	cols := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		cols[i] = EscapeIdentifier(h)
	}
	if _, err := db.ExecContext(ctx, createTableSQL(table, cols)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	for start := 0; start < len(t.Rows); start += batchSize {
		end := start + batchSize
		if end > len(t.Rows) {
			end = len(t.Rows)
		}
		if err := insertBatch(ctx, db, insertSQL, t.Headers, t.Rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func insertBatch(ctx context.Context, db *sql.DB, insertSQL string, headers []string, rows []Row) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, len(headers))
		for i, h := range headers {
			args[i] = sqliteArg(row[h])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// sqliteArg converts cell scalars to driver-friendly values.
func sqliteArg(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case nil, string, bool, int, int64, float64:
		return v
	default:
		return scalarString(v)
	}
}
