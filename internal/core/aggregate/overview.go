package aggregate

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

// TrendDays is the number of days before today covered by the trend series.
const TrendDays = 30

// Activity computes org-wide totals, the date range and rolling 7/30 day quantities.
func Activity(records []domain.SalesRecord, now time.Time) domain.OrganizationActivity {
	var a domain.OrganizationActivity
	total := decimal.Zero
	since7 := now.Add(-7 * day)
	since30 := now.Add(-30 * day)

	for _, r := range records {
		total = total.Add(decimal.NewFromFloat(r.Revenue))
		a.TotalQuantity += r.Quantity
		if a.Earliest == nil || r.Date.Before(*a.Earliest) {
			d := r.Date
			a.Earliest = &d
		}
		if a.Latest == nil || r.Date.After(*a.Latest) {
			d := r.Date
			a.Latest = &d
		}
		if !r.Date.Before(since7) {
			a.Last7Days += r.Quantity
		}
		if !r.Date.Before(since30) {
			a.Last30Days += r.Quantity
		}
	}
	a.TotalRevenue = total.InexactFloat64()
	return a
}

// Totals sums revenue and quantity of one dataset's records.
func Totals(records []domain.SalesRecord) domain.DatasetTotals {
	total := decimal.Zero
	qty := 0
	for _, r := range records {
		total = total.Add(decimal.NewFromFloat(r.Revenue))
		qty += r.Quantity
	}
	return domain.DatasetTotals{Revenue: total.InexactFloat64(), Quantity: qty}
}

// Daily sums records dated at or after from per UTC day, ordered by day.
func Daily(records []domain.SalesRecord, from time.Time) []domain.DailyTotal {
	byDay := make(map[time.Time]*bucket)
	for _, r := range records {
		if r.Date.Before(from) {
			continue
		}
		d := StartOfDay(r.Date)
		b, ok := byDay[d]
		if !ok {
			b = &bucket{revenue: decimal.Zero}
			byDay[d] = b
		}
		b.revenue = b.revenue.Add(decimal.NewFromFloat(r.Revenue))
		b.quantity += r.Quantity
	}

	out := make([]domain.DailyTotal, 0, len(byDay))
	for d, b := range byDay {
		out = append(out, domain.DailyTotal{Day: d, Revenue: b.revenue.InexactFloat64(), Quantity: b.quantity})
	}
	slices.SortFunc(out, func(a, b domain.DailyTotal) int { return a.Day.Compare(b.Day) })
	return out
}

// TrendWindowStart is midnight UTC TrendDays days before today.
func TrendWindowStart(now time.Time) time.Time {
	return StartOfDay(now).AddDate(0, 0, -TrendDays)
}

// TrendSeries lays daily totals onto a zero-filled series covering TrendWindowStart(now)
// through today, one point per day.
func TrendSeries(daily []domain.DailyTotal, now time.Time) []domain.TrendPoint {
	start := TrendWindowStart(now)
	byKey := make(map[string]domain.DailyTotal, len(daily))
	for _, d := range daily {
		byKey[d.Day.UTC().Format(time.DateOnly)] = d
	}

	out := make([]domain.TrendPoint, 0, TrendDays+1)
	for i := 0; i <= TrendDays; i++ {
		key := start.AddDate(0, 0, i).Format(time.DateOnly)
		p := domain.TrendPoint{Date: key}
		if d, ok := byKey[key]; ok {
			p.Revenue = d.Revenue
			p.Sales = d.Quantity
		}
		out = append(out, p)
	}
	return out
}

// Overview combines org activity with dataset counts.
func Overview(activity domain.OrganizationActivity, datasets []domain.Dataset) domain.OverviewStats {
	stats := domain.OverviewStats{
		TotalRevenue:  activity.TotalRevenue,
		TotalSales:    activity.TotalQuantity,
		TotalDatasets: len(datasets),
		DateRange: domain.DateRange{
			Earliest: activity.Earliest,
			Latest:   activity.Latest,
		},
		RecentActivity: domain.RecentActivity{
			Last7Days:  activity.Last7Days,
			Last30Days: activity.Last30Days,
		},
	}
	for _, ds := range datasets {
		if ds.Status == domain.StatusReady {
			stats.DatasetsReady++
		}
	}
	return stats
}

// Summaries joins datasets (already ordered) with their totals.
func Summaries(datasets []domain.Dataset, totals map[string]domain.DatasetTotals) []domain.DatasetSummary {
	out := make([]domain.DatasetSummary, 0, len(datasets))
	for _, ds := range datasets {
		t := totals[ds.ID]
		s := domain.DatasetSummary{
			ID:        ds.ID,
			Name:      ds.Name,
			Status:    ds.Status,
			RowCount:  ds.RowCount,
			FileSize:  ds.FileSize,
			CreatedAt: ds.CreatedAt,
			UpdatedAt: ds.UpdatedAt,
			Stats: domain.DatasetStats{
				TotalRevenue: t.Revenue,
				TotalSales:   t.Quantity,
			},
		}
		if t.Quantity > 0 {
			s.Stats.AvgRevenue = t.Revenue / float64(t.Quantity)
		}
		out = append(out, s)
	}
	return out
}
