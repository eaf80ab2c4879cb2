// Package aggregate holds the pure grouping and summing functions behind the analytics views.
// Every function is deterministic for its inputs; callers inject "now" explicitly.
package aggregate

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

const day = 24 * time.Hour

// GranularityFor picks the bucket width from the span between the earliest and latest record:
// up to 31 days is daily, up to 90 days weekly, anything longer monthly.
func GranularityFor(earliest, latest time.Time) Granularity {
	spanDays := int(math.Ceil(float64(latest.Sub(earliest)) / float64(day)))
	switch {
	case spanDays <= 31:
		return Day
	case spanDays <= 90:
		return Week
	default:
		return Month
	}
}

// BucketKey renders the UTC bucket a timestamp falls into. Weeks start on Monday.
func BucketKey(t time.Time, g Granularity) string {
	t = t.UTC()
	switch g {
	case Month:
		return t.Format("2006-01")
	case Week:
		return WeekStart(t).Format(time.DateOnly)
	default:
		return t.Format(time.DateOnly)
	}
}

// WeekStart returns midnight UTC of the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	d := StartOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, dd := t.UTC().Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

type bucket struct {
	revenue  decimal.Decimal
	quantity int
}

// RevenueByDate groups records into adaptive time buckets sorted by key.
func RevenueByDate(records []domain.SalesRecord) []domain.RevenuePoint {
	if len(records) == 0 {
		return []domain.RevenuePoint{}
	}

	earliest, latest := records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(earliest) {
			earliest = r.Date
		}
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	g := GranularityFor(earliest, latest)

	buckets := make(map[string]*bucket)
	for _, r := range records {
		key := BucketKey(r.Date, g)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{revenue: decimal.Zero}
			buckets[key] = b
		}
		b.revenue = b.revenue.Add(decimal.NewFromFloat(r.Revenue))
		b.quantity += r.Quantity
	}

	out := make([]domain.RevenuePoint, 0, len(buckets))
	for key, b := range buckets {
		out = append(out, domain.RevenuePoint{
			Date:     key,
			Revenue:  b.revenue.InexactFloat64(),
			Quantity: b.quantity,
		})
	}
	slices.SortFunc(out, func(a, b domain.RevenuePoint) int { return strings.Compare(a.Date, b.Date) })
	return out
}
