package aggregate

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

// DefaultProductLimit is used when a caller passes a non-positive limit.
const DefaultProductLimit = 10

// Summarize computes KPIs over the given records.
func Summarize(records []domain.SalesRecord) domain.KPIs {
	total := decimal.Zero
	quantity := 0
	for _, r := range records {
		total = total.Add(decimal.NewFromFloat(r.Revenue))
		quantity += r.Quantity
	}

	kpis := domain.KPIs{
		TotalRevenue:  total.InexactFloat64(),
		TotalSales:    len(records),
		TotalQuantity: quantity,
	}
	if len(records) > 0 {
		kpis.AverageRevenue = total.Div(decimal.NewFromInt(int64(len(records)))).InexactFloat64()
	}
	return kpis
}

// ByCategory sums revenue per category, skipping records without one, highest revenue first.
func ByCategory(records []domain.SalesRecord) []domain.CategoryRevenue {
	type acc struct {
		revenue decimal.Decimal
		count   int
	}
	groups := make(map[string]*acc)
	for _, r := range records {
		if r.Category == "" {
			continue
		}
		g, ok := groups[r.Category]
		if !ok {
			g = &acc{revenue: decimal.Zero}
			groups[r.Category] = g
		}
		g.revenue = g.revenue.Add(decimal.NewFromFloat(r.Revenue))
		g.count++
	}

	out := make([]domain.CategoryRevenue, 0, len(groups))
	for name, g := range groups {
		out = append(out, domain.CategoryRevenue{Category: name, Revenue: g.revenue.InexactFloat64(), Count: g.count})
	}
	slices.SortFunc(out, func(a, b domain.CategoryRevenue) int {
		if c := cmp.Compare(b.Revenue, a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

// ByProduct sums revenue and quantity per product, skipping records without one, and keeps
// the top limit products by revenue.
func ByProduct(records []domain.SalesRecord, limit int) []domain.ProductRevenue {
	if limit <= 0 {
		limit = DefaultProductLimit
	}
	type acc struct {
		revenue  decimal.Decimal
		quantity int
	}
	groups := make(map[string]*acc)
	for _, r := range records {
		if r.Product == "" {
			continue
		}
		g, ok := groups[r.Product]
		if !ok {
			g = &acc{revenue: decimal.Zero}
			groups[r.Product] = g
		}
		g.revenue = g.revenue.Add(decimal.NewFromFloat(r.Revenue))
		g.quantity += r.Quantity
	}

	out := make([]domain.ProductRevenue, 0, len(groups))
	for name, g := range groups {
		out = append(out, domain.ProductRevenue{Product: name, Revenue: g.revenue.InexactFloat64(), Quantity: g.quantity})
	}
	slices.SortFunc(out, func(a, b domain.ProductRevenue) int {
		if c := cmp.Compare(b.Revenue, a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Product, b.Product)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Distinct returns the sorted set of non-empty values.
func Distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
