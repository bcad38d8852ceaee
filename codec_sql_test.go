package tabular

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestEscapeIdentifier(t *testing.T) {
	vectors := []struct {
		in   string
		want string
	}{
		{"name", "name"},
		{"first_name", "first_name"},
		{"first name", "first_name"},
		{"col;DROP TABLE users", "col_DROP_TABLE_users"},
		{"a'b\"c", "a_b_c"},
		{"select", `"select"`},
		{"ORDER", `"ORDER"`},
		{"2col", `"2col"`},
		{"", "_"},
		{"--", "__"},
	}
	for _, v := range vectors {
		if got := EscapeIdentifier(v.in); got != v.want {
			t.Errorf("EscapeIdentifier(%q) = %q, want %q", v.in, got, v.want)
		}
	}
}

func TestEscapeValue(t *testing.T) {
	vectors := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, "NULL"},
		{"true", true, "TRUE"},
		{"false", false, "FALSE"},
		{"int", 42, "42"},
		{"float", 3.5, "3.5"},
		{"number", json.Number("30"), "30"},
		{"decimal number", json.Number("2.5e3"), "2.5e3"},
		{"hostile number", json.Number("1;DROP"), "'1;DROP'"},
		{"plain string", "hello", "'hello'"},
		{"embedded quote", "O'Brien", "'O''Brien'"},
		{"injection payload", "'; DROP TABLE users;--", "'''; DROP TABLE users;--'"},
	}
	for _, v := range vectors {
		t.Run(v.name, func(t *testing.T) {
			if got := EscapeValue(v.in); got != v.want {
				t.Errorf("EscapeValue(%#v) = %q, want %q", v.in, got, v.want)
			}
		})
	}
}

func TestWriteSQLBasic(t *testing.T) {
	out := WriteSQL(
		[]string{"name", "age"},
		[]Row{{"name": "John", "age": "30"}, {"name": "Jane"}},
		SQLWriteOptions{},
	)
	want := "INSERT INTO my_table (name, age) VALUES\n" +
		"  ('John', '30'),\n" +
		"  ('Jane', NULL);"
	if out != want {
		t.Errorf("WriteSQL = %q, want %q", out, want)
	}
}

func TestWriteSQLCreateTable(t *testing.T) {
	out := WriteSQL(
		[]string{"id", "select"},
		[]Row{{"id": "1", "select": "x"}},
		SQLWriteOptions{TableName: "people", IncludeCreate: true},
	)
	wantCreate := "CREATE TABLE people (\n  id TEXT,\n  \"select\" TEXT\n);"
	if !strings.HasPrefix(out, wantCreate+"\n\n") {
		t.Errorf("create statement missing or wrong:\n%s", out)
	}
	if !strings.Contains(out, `INSERT INTO people (id, "select") VALUES`) {
		t.Errorf("insert after create missing:\n%s", out)
	}
}

func TestWriteSQLBatching(t *testing.T) {
	rows := make([]Row, 250)
	for i := range rows {
		rows[i] = Row{"n": fmt.Sprintf("%d", i)}
	}
	out := WriteSQL([]string{"n"}, rows, SQLWriteOptions{})
	if got := strings.Count(out, "INSERT INTO"); got != 3 {
		t.Errorf("insert statements = %d, want 3 for 250 rows at batch 100", got)
	}
	if got := strings.Count(out, "("); got != 250+3 {
		t.Errorf("value tuples = %d, want 253", got)
	}

	out = WriteSQL([]string{"n"}, rows, SQLWriteOptions{BatchSize: 250})
	if got := strings.Count(out, "INSERT INTO"); got != 1 {
		t.Errorf("insert statements = %d, want 1 at batch 250", got)
	}
}

func TestWriteSQLInjectionDefense(t *testing.T) {
	out := WriteSQL(
		[]string{"col;DROP TABLE users"},
		[]Row{{"col;DROP TABLE users": "'; DROP TABLE users;--"}},
		SQLWriteOptions{TableName: "t;DROP"},
	)
	if strings.Contains(out, "col;DROP") || strings.Contains(out, "t;DROP") {
		t.Errorf("identifier not sanitized:\n%s", out)
	}
	if !strings.Contains(out, "INSERT INTO t_DROP (col_DROP_TABLE_users) VALUES") {
		t.Errorf("sanitized identifiers missing:\n%s", out)
	}
	if !strings.Contains(out, "('''; DROP TABLE users;--')") {
		t.Errorf("payload not quoted:\n%s", out)
	}
}

func TestWriteSQLEmpty(t *testing.T) {
	if out := WriteSQL([]string{"a"}, nil, SQLWriteOptions{IncludeCreate: true}); out != "" {
		t.Errorf("no rows should produce no SQL, got %q", out)
	}
	if out := WriteSQL(nil, []Row{{"a": "1"}}, SQLWriteOptions{}); out != "" {
		t.Errorf("no headers should produce no SQL, got %q", out)
	}
}

func TestWriteSQLValueKinds(t *testing.T) {
	out := WriteSQL(
		[]string{"s", "n", "b", "z"},
		[]Row{{"s": "x", "n": json.Number("1.5"), "b": false, "z": nil}},
		SQLWriteOptions{},
	)
	if !strings.Contains(out, "('x', 1.5, FALSE, NULL)") {
		t.Errorf("value rendering:\n%s", out)
	}
}
