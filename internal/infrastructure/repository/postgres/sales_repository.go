package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

// SalesRepository stores sales records and pushes aggregation down to SQL.
type SalesRepository struct {
	db *sql.DB
}

func NewSalesRepository(db *sql.DB) *SalesRepository {
	return &SalesRepository{db: db}
}

const (
	recordColumns = `id, dataset_id, date, revenue, quantity, product, category`
	recordFields  = 7
	// Postgres caps a statement at 65535 bind parameters.
	maxBatchRows  = 65535 / recordFields
)

// InsertBatch writes all records in one multi-row INSERT so a batch lands atomically.
func (r *SalesRepository) InsertBatch(ctx context.Context, datasetID string, records []domain.SalesRecord) error {
	if len(records) == 0 {
		return nil
	}
	if len(records) > maxBatchRows {
		return domain.WrapError(domain.ErrInvalidInput, "insert sales batch",
			fmt.Errorf("%d records exceed the %d row statement limit", len(records), maxBatchRows))
	}

	var b strings.Builder
	b.WriteString("INSERT INTO sales_records (" + recordColumns + ") VALUES ")
	args := make([]any, 0, len(records)*recordFields)
	for i, rec := range records {
		if i > 0 {
			b.WriteString(",")
		}
		n := i * recordFields
		fmt.Fprintf(&b, "($%d,$%d,$%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7)
		args = append(args,
			rec.ID, datasetID, rec.Date.UTC(), rec.Revenue, rec.Quantity,
			nullString(rec.Product), nullString(rec.Category),
		)
	}

	if _, err := r.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert sales batch: %w", err)
	}
	return nil
}

func (r *SalesRepository) ListRecords(ctx context.Context, datasetID string, filter domain.AnalyticsFilter) ([]domain.SalesRecord, error) {
	where, args := filterClause(datasetID, filter)
	return r.queryRecords(ctx, `
SELECT `+recordColumns+`
FROM sales_records
WHERE `+where+`
ORDER BY date ASC
`, args...)
}

func (r *SalesRepository) RecentRecords(ctx context.Context, datasetID string, limit int) ([]domain.SalesRecord, error) {
	return r.queryRecords(ctx, `
SELECT `+recordColumns+`
FROM sales_records
WHERE dataset_id = $1
ORDER BY date DESC
LIMIT $2
`, datasetID, limit)
}

func (r *SalesRepository) Summarize(ctx context.Context, datasetID string, filter domain.AnalyticsFilter) (domain.KPIs, error) {
	where, args := filterClause(datasetID, filter)
	row := r.db.QueryRowContext(ctx, `
SELECT COALESCE(SUM(revenue), 0), COALESCE(AVG(revenue), 0), COUNT(*), COALESCE(SUM(quantity), 0)
FROM sales_records
WHERE `+where, args...)

	var kpis domain.KPIs
	if err := row.Scan(&kpis.TotalRevenue, &kpis.AverageRevenue, &kpis.TotalSales, &kpis.TotalQuantity); err != nil {
		return domain.KPIs{}, fmt.Errorf("summarize sales: %w", err)
	}
	return kpis, nil
}

func (r *SalesRepository) RevenueByCategory(ctx context.Context, datasetID string, filter domain.AnalyticsFilter) ([]domain.CategoryRevenue, error) {
	where, args := filterClause(datasetID, filter)
	rows, err := r.db.QueryContext(ctx, `
SELECT category, SUM(revenue) AS revenue, COUNT(*)
FROM sales_records
WHERE `+where+` AND category IS NOT NULL
GROUP BY category
ORDER BY revenue DESC, category ASC
`, args...)
	if err != nil {
		return nil, fmt.Errorf("revenue by category: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CategoryRevenue, 0)
	for rows.Next() {
		var c domain.CategoryRevenue
		if err := rows.Scan(&c.Category, &c.Revenue, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category revenue: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category revenue: %w", err)
	}
	return out, nil
}

// RevenueByProduct excludes records without a product before applying limit.
func (r *SalesRepository) RevenueByProduct(ctx context.Context, datasetID string, filter domain.AnalyticsFilter, limit int) ([]domain.ProductRevenue, error) {
	where, args := filterClause(datasetID, filter)
	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT product, SUM(revenue) AS revenue, SUM(quantity)
FROM sales_records
WHERE %s AND product IS NOT NULL
GROUP BY product
ORDER BY revenue DESC, product ASC
LIMIT $%d
`, where, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("revenue by product: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProductRevenue, 0)
	for rows.Next() {
		var p domain.ProductRevenue
		if err := rows.Scan(&p.Product, &p.Revenue, &p.Quantity); err != nil {
			return nil, fmt.Errorf("scan product revenue: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product revenue: %w", err)
	}
	return out, nil
}

func (r *SalesRepository) DistinctCategories(ctx context.Context, datasetID string) ([]string, error) {
	return r.distinct(ctx, "category", datasetID)
}

func (r *SalesRepository) DistinctProducts(ctx context.Context, datasetID string) ([]string, error) {
	return r.distinct(ctx, "product", datasetID)
}

// distinct is only called with the fixed column names above.
func (r *SalesRepository) distinct(ctx context.Context, column, datasetID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT DISTINCT %[1]s
FROM sales_records
WHERE dataset_id = $1 AND %[1]s IS NOT NULL
ORDER BY %[1]s
`, column), datasetID)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", column, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct %s: %w", column, err)
	}
	return out, nil
}

func (r *SalesRepository) OrganizationActivity(ctx context.Context, organizationID string, now time.Time) (domain.OrganizationActivity, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT
	COALESCE(SUM(s.revenue), 0),
	COALESCE(SUM(s.quantity), 0),
	MIN(s.date),
	MAX(s.date),
	COALESCE(SUM(s.quantity) FILTER (WHERE s.date >= $2), 0),
	COALESCE(SUM(s.quantity) FILTER (WHERE s.date >= $3), 0)
FROM sales_records s
JOIN datasets d ON d.id = s.dataset_id
WHERE d.organization_id = $1
`, organizationID, now.Add(-7*24*time.Hour), now.Add(-30*24*time.Hour))

	var a domain.OrganizationActivity
	var earliest, latest sql.NullTime
	if err := row.Scan(&a.TotalRevenue, &a.TotalQuantity, &earliest, &latest, &a.Last7Days, &a.Last30Days); err != nil {
		return domain.OrganizationActivity{}, fmt.Errorf("organization activity: %w", err)
	}
	if earliest.Valid {
		t := earliest.Time.UTC()
		a.Earliest = &t
	}
	if latest.Valid {
		t := latest.Time.UTC()
		a.Latest = &t
	}
	return a, nil
}

func (r *SalesRepository) DatasetTotals(ctx context.Context, organizationID string) (map[string]domain.DatasetTotals, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT d.id, COALESCE(SUM(s.revenue), 0), COALESCE(SUM(s.quantity), 0)
FROM datasets d
LEFT JOIN sales_records s ON s.dataset_id = d.id
WHERE d.organization_id = $1
GROUP BY d.id
`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("dataset totals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.DatasetTotals)
	for rows.Next() {
		var id string
		var t domain.DatasetTotals
		if err := rows.Scan(&id, &t.Revenue, &t.Quantity); err != nil {
			return nil, fmt.Errorf("scan dataset totals: %w", err)
		}
		out[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset totals: %w", err)
	}
	return out, nil
}

func (r *SalesRepository) DailyTotals(ctx context.Context, organizationID string, from time.Time) ([]domain.DailyTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT date_trunc('day', s.date AT TIME ZONE 'UTC') AS day, SUM(s.revenue), SUM(s.quantity)
FROM sales_records s
JOIN datasets d ON d.id = s.dataset_id
WHERE d.organization_id = $1 AND s.date >= $2
GROUP BY day
ORDER BY day
`, organizationID, from.UTC())
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DailyTotal, 0)
	for rows.Next() {
		var d domain.DailyTotal
		if err := rows.Scan(&d.Day, &d.Revenue, &d.Quantity); err != nil {
			return nil, fmt.Errorf("scan daily totals: %w", err)
		}
		d.Day = d.Day.UTC()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily totals: %w", err)
	}
	return out, nil
}

func (r *SalesRepository) queryRecords(ctx context.Context, query string, args ...any) ([]domain.SalesRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SalesRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sales record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales records: %w", err)
	}
	return out, nil
}

// filterClause renders the dataset scope plus filter predicates; $1 is always the dataset id.
func filterClause(datasetID string, f domain.AnalyticsFilter) (string, []any) {
	clauses := []string{"dataset_id = $1"}
	args := []any{datasetID}

	add := func(expr string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(expr, len(args)))
	}
	if f.StartDate != nil {
		add("date >= $%d", f.StartDate.UTC())
	}
	if f.EndDate != nil {
		add("date <= $%d", f.EndDate.UTC())
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Product != "" {
		add("product = $%d", f.Product)
	}
	return strings.Join(clauses, " AND "), args
}

func scanRecord(row scanner) (domain.SalesRecord, error) {
	var rec domain.SalesRecord
	var product, category sql.NullString
	if err := row.Scan(&rec.ID, &rec.DatasetID, &rec.Date, &rec.Revenue, &rec.Quantity, &product, &category); err != nil {
		return domain.SalesRecord{}, err
	}
	rec.Date = rec.Date.UTC()
	rec.Product = product.String
	rec.Category = category.String
	return rec, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
