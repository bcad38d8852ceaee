package tabular

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func streamInput(rows int) string {
	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,row%d\n", i, i)
	}
	return b.String()
}

func TestParseCSVStream(t *testing.T) {
	conv := New()
	in := streamInput(500)
	got, err := conv.ParseCSVStream(context.Background(), strings.NewReader(in), int64(len(in)), StreamOptions{})
	if err != nil {
		t.Fatalf("ParseCSVStream: %v", err)
	}
	if !equalStrings(got.Headers, []string{"id", "name"}) {
		t.Errorf("headers = %v", got.Headers)
	}
	if len(got.Rows) != 500 {
		t.Fatalf("rows = %d", len(got.Rows))
	}
	if got.Rows[499]["name"] != "row499" {
		t.Errorf("last row = %v", got.Rows[499])
	}
	if got.Meta.Truncated {
		t.Error("unexpected truncation")
	}
}

func TestParseCSVStreamMaxRows(t *testing.T) {
	conv := New()
	in := streamInput(500)
	got, err := conv.ParseCSVStream(context.Background(), strings.NewReader(in), int64(len(in)), StreamOptions{MaxRows: 100})
	if err != nil {
		t.Fatalf("ParseCSVStream: %v", err)
	}
	if len(got.Rows) != 100 {
		t.Errorf("rows = %d, want 100", len(got.Rows))
	}
	if !got.Meta.Truncated {
		t.Error("truncation not flagged")
	}
	if got.Meta.RowCount != 100 {
		t.Errorf("meta = %+v", got.Meta)
	}
}

func TestParseCSVStreamProgress(t *testing.T) {
	conv := New()
	in := streamInput(500)
	var reports []int
	_, err := conv.ParseCSVStream(context.Background(), strings.NewReader(in), int64(len(in)), StreamOptions{
		Progress: func(pct int) { reports = append(reports, pct) },
	})
	if err != nil {
		t.Fatalf("ParseCSVStream: %v", err)
	}
	if len(reports) == 0 {
		t.Fatal("no progress reported")
	}
	if last := reports[len(reports)-1]; last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
	prev := -1
	for _, pct := range reports {
		if pct < 0 || pct > 100 {
			t.Errorf("progress out of range: %d", pct)
		}
		if pct < prev {
			t.Errorf("progress went backwards: %v", reports)
			break
		}
		prev = pct
	}
}

func TestParseCSVStreamCancellation(t *testing.T) {
	conv := New()
	in := streamInput(1000)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := conv.ParseCSVStream(ctx, strings.NewReader(in), int64(len(in)), StreamOptions{
		Progress: func(int) { cancel() },
	})
	if err == nil {
		t.Fatal("cancelled parse should fail")
	}
	if !IsTimeout(err) {
		t.Errorf("error = %T %v, want TimeoutError", err, err)
	}
}

func TestParseCSVStreamNoHeader(t *testing.T) {
	conv := New()
	got, err := conv.ParseCSVStream(context.Background(), strings.NewReader("1,2\n3,4"), 0, StreamOptions{NoHeader: true})
	if err != nil {
		t.Fatalf("ParseCSVStream: %v", err)
	}
	if !equalStrings(got.Headers, []string{"Column 1", "Column 2"}) {
		t.Errorf("headers = %v", got.Headers)
	}
	if len(got.Rows) != 2 || got.Rows[0]["Column 1"] != "1" {
		t.Errorf("rows = %v", got.Rows)
	}
}

func TestParseCSVStreamSkipAndTrim(t *testing.T) {
	conv := New()
	in := " a , b \n 1 , 2 \n , \n"
	got, err := conv.ParseCSVStream(context.Background(), strings.NewReader(in), int64(len(in)), StreamOptions{
		SkipEmptyLines: true,
		TrimValues:     true,
	})
	if err != nil {
		t.Fatalf("ParseCSVStream: %v", err)
	}
	if !equalStrings(got.Headers, []string{"a", "b"}) {
		t.Errorf("headers = %v", got.Headers)
	}
	if len(got.Rows) != 1 || got.Rows[0]["b"] != "2" {
		t.Errorf("rows = %v", got.Rows)
	}
}

func TestParseCSVStreamBadDelimiter(t *testing.T) {
	conv := New()
	_, err := conv.ParseCSVStream(context.Background(), strings.NewReader("a,b\n1,2"), 0, StreamOptions{Delimiter: '"'})
	if err == nil {
		t.Fatal("expected error")
	}
	if ErrorCode(err) != CodeInvalidCSV {
		t.Errorf("code = %q", ErrorCode(err))
	}
}
