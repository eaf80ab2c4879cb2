package ingestion

import (
	"math"
	"strconv"
	"strings"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

// InferenceSampleSize bounds how many rows are examined per column.
const InferenceSampleSize = 100

// InferColumns classifies every header as DATE, NUMBER or STRING from a sample of rows.
// DATE wins over NUMBER when every non-empty sampled cell satisfies both.
func InferColumns(headers []string, rows []map[string]string) []domain.InferredColumn {
	sample := rows
	if len(sample) > InferenceSampleSize {
		sample = sample[:InferenceSampleSize]
	}

	columns := make([]domain.InferredColumn, 0, len(headers))
	for _, header := range headers {
		columns = append(columns, inferColumn(header, sample))
	}
	return columns
}

func inferColumn(header string, sample []map[string]string) domain.InferredColumn {
	col := domain.InferredColumn{Name: header}
	isNumber, isDate := true, true

	for _, row := range sample {
		value := row[header]
		if strings.TrimSpace(value) == "" {
			col.Nullable = true
			continue
		}
		if isNumber && !IsNumeric(value) {
			isNumber = false
		}
		if isDate {
			if _, ok := ParseDate(value); !ok {
				isDate = false
			}
		}
	}

	switch {
	case isDate:
		col.Type = domain.ColumnDate
	case isNumber:
		col.Type = domain.ColumnNumber
	default:
		col.Type = domain.ColumnString
	}
	return col
}

// IsNumeric reports whether the trimmed value is a finite decimal number.
func IsNumeric(value string) bool {
	_, ok := parseFinite(value)
	return ok
}

func parseFinite(value string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
