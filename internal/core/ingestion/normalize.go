package ingestion

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

// NormalizeRow coerces one CSV row into a sales record. Malformed revenue becomes 0 and
// malformed or zero quantity becomes 1. A missing date column falls back to now, while a
// present date cell that cannot be parsed is an error.
func NormalizeRow(row map[string]string, m Mapping, now time.Time) (domain.SalesRecord, error) {
	var rec domain.SalesRecord

	if header, ok := m.Primary(FieldDate); ok {
		date, parsed := ParseDate(row[header])
		if !parsed {
			return domain.SalesRecord{}, fmt.Errorf("invalid date value %q in column %q", row[header], header)
		}
		rec.Date = date
	} else {
		rec.Date = now.UTC()
	}

	if header, ok := m.Primary(FieldRevenue); ok {
		if v, ok := parseFinite(row[header]); ok {
			rec.Revenue = v
		}
	}

	rec.Quantity = 1
	if header, ok := m.Primary(FieldQuantity); ok {
		if v, ok := parseQuantity(row[header]); ok && v != 0 {
			rec.Quantity = v
		}
	}

	rec.Product = firstNonEmpty(row, m[FieldProduct])
	rec.Category = firstNonEmpty(row, m[FieldCategory])
	return rec, nil
}

func parseQuantity(value string) (int, bool) {
	v := strings.TrimSpace(value)
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	f, ok := parseFinite(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func firstNonEmpty(row map[string]string, headers []string) string {
	for _, h := range headers {
		if v := row[h]; v != "" {
			return v
		}
	}
	return ""
}
