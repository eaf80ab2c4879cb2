package ingestion

import (
	"fmt"
	"testing"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

func TestInferColumnsClassifiesTypes(t *testing.T) {
	headers := []string{"date", "revenue", "product", "notes"}
	rows := []map[string]string{
		{"date": "2024-01-01", "revenue": "10.5", "product": "Widget", "notes": ""},
		{"date": "2024-01-02", "revenue": "7", "product": "Gadget", "notes": "  "},
	}

	cols := InferColumns(headers, rows)
	if len(cols) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(cols))
	}

	want := map[string]domain.ColumnType{
		"date":    domain.ColumnDate,
		"revenue": domain.ColumnNumber,
		"product": domain.ColumnString,
	}
	for _, col := range cols[:3] {
		if col.Type != want[col.Name] {
			t.Fatalf("column %s: expected %s, got %s", col.Name, want[col.Name], col.Type)
		}
		if col.Nullable {
			t.Fatalf("column %s: expected non-nullable", col.Name)
		}
	}
	if !cols[3].Nullable {
		t.Fatalf("expected notes to be nullable")
	}
}

func TestInferColumnsKeepsHeaderOrder(t *testing.T) {
	headers := []string{"b", "a", "c"}
	cols := InferColumns(headers, []map[string]string{{"a": "1", "b": "x", "c": "2024-02-02"}})
	for i, h := range headers {
		if cols[i].Name != h {
			t.Fatalf("position %d: expected %s, got %s", i, h, cols[i].Name)
		}
	}
}

func TestInferColumnsNullableDetectedAfterTypeMismatch(t *testing.T) {
	rows := []map[string]string{
		{"mixed": "abc"},
		{"mixed": "12"},
		{"mixed": ""},
	}
	cols := InferColumns([]string{"mixed"}, rows)
	if cols[0].Type != domain.ColumnString {
		t.Fatalf("expected STRING, got %s", cols[0].Type)
	}
	if !cols[0].Nullable {
		t.Fatalf("expected nullable after an empty cell")
	}
}

func TestInferColumnsOnlySamplesFirstHundredRows(t *testing.T) {
	rows := make([]map[string]string, 0, 150)
	for i := 0; i < 150; i++ {
		value := fmt.Sprintf("%d", i)
		if i >= InferenceSampleSize {
			value = "not-a-number"
		}
		rows = append(rows, map[string]string{"n": value})
	}

	cols := InferColumns([]string{"n"}, rows)
	if cols[0].Type != domain.ColumnNumber {
		t.Fatalf("expected NUMBER from the first %d rows, got %s", InferenceSampleSize, cols[0].Type)
	}
}

func TestInferColumnsRejectsNonFiniteNumbers(t *testing.T) {
	cols := InferColumns([]string{"x"}, []map[string]string{{"x": "1"}, {"x": "Inf"}})
	if cols[0].Type != domain.ColumnString {
		t.Fatalf("expected STRING for non-finite values, got %s", cols[0].Type)
	}
}

func TestParseDateLayouts(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-05", "2024-03-05", true},
		{"2024-03-05T10:00:00Z", "2024-03-05", true},
		{"2024-03-05 23:10:00", "2024-03-05", true},
		{"03/05/2024", "2024-03-05", true},
		{"Mar 5, 2024", "2024-03-05", true},
		{" 2024/03/05 ", "2024-03-05", true},
		{"42", "", false},
		{"", "", false},
		{"tomorrow", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseDate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if ok && got.Format("2006-01-02") != tc.want {
			t.Fatalf("ParseDate(%q) = %s, want %s", tc.in, got.Format("2006-01-02"), tc.want)
		}
	}
}
