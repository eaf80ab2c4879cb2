package ports

import (
	"context"
	"time"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

// DatasetRepository persists dataset metadata and lifecycle state.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *domain.Dataset) error
	// GetByID returns ErrNotFound unless the dataset exists and belongs to organizationID.
	GetByID(ctx context.Context, organizationID, id string) (*domain.Dataset, error)
	List(ctx context.Context, organizationID string, offset, limit int) ([]domain.Dataset, int, error)
	// ListByRecentUpdate returns every dataset of the organization, most recently updated first.
	ListByRecentUpdate(ctx context.Context, organizationID string) ([]domain.Dataset, error)
	UpdateStatus(ctx context.Context, id string, status domain.DatasetStatus, errMessage string) error
	// Delete removes the dataset and, by cascade, its sales records.
	Delete(ctx context.Context, organizationID, id string) error
}

// SalesRepository stores normalized sales records and answers aggregate queries over them.
type SalesRepository interface {
	InsertBatch(ctx context.Context, datasetID string, records []domain.SalesRecord) error
	// ListRecords returns filtered records ordered by date ascending.
	ListRecords(ctx context.Context, datasetID string, filter domain.AnalyticsFilter) ([]domain.SalesRecord, error)
	// RecentRecords returns up to limit records ordered by date descending.
	RecentRecords(ctx context.Context, datasetID string, limit int) ([]domain.SalesRecord, error)
	Summarize(ctx context.Context, datasetID string, filter domain.AnalyticsFilter) (domain.KPIs, error)
	RevenueByCategory(ctx context.Context, datasetID string, filter domain.AnalyticsFilter) ([]domain.CategoryRevenue, error)
	RevenueByProduct(ctx context.Context, datasetID string, filter domain.AnalyticsFilter, limit int) ([]domain.ProductRevenue, error)
	DistinctCategories(ctx context.Context, datasetID string) ([]string, error)
	DistinctProducts(ctx context.Context, datasetID string) ([]string, error)
	OrganizationActivity(ctx context.Context, organizationID string, now time.Time) (domain.OrganizationActivity, error)
	DatasetTotals(ctx context.Context, organizationID string) (map[string]domain.DatasetTotals, error)
	// DailyTotals sums revenue and quantity per UTC day for records dated at or after from.
	DailyTotals(ctx context.Context, organizationID string, from time.Time) ([]domain.DailyTotal, error)
}

// AnalyticsCache stores serialized analytics results with a TTL. Get reports a miss with ok=false.
type AnalyticsCache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// CSVTable is a parsed CSV document keyed by trimmed header.
type CSVTable struct {
	Headers []string
	Rows    []map[string]string
}

// CSVParser turns raw CSV text into header-keyed rows.
type CSVParser interface {
	Parse(ctx context.Context, text string) (*CSVTable, error)
}

// DatasetEventPublisher announces dataset lifecycle events.
type DatasetEventPublisher interface {
	PublishDatasetEvent(ctx context.Context, event domain.DatasetEvent) error
}

// DatasetEventSubscriber consumes dataset lifecycle events until ctx is done.
type DatasetEventSubscriber interface {
	SubscribeDatasetEvents(ctx context.Context, handler func(context.Context, domain.DatasetEvent) error) error
}
