package ports

import (
	"context"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

// UploadRequest carries one uploaded sales file already decoded to CSV text.
type UploadRequest struct {
	Name     string
	FileName string
	FileSize int64
	Content  string
}

// DatasetIngestor is the inbound contract for CSV upload and ingestion.
type DatasetIngestor interface {
	Upload(ctx context.Context, principal domain.Principal, req UploadRequest) (*domain.Dataset, error)
}

// DatasetCatalog is the inbound read/delete model for an organization's datasets.
type DatasetCatalog interface {
	List(ctx context.Context, organizationID string, page, limit int) (*domain.DatasetPage, error)
	Get(ctx context.Context, organizationID, datasetID string, previewLimit int) (*domain.DatasetDetail, error)
	Delete(ctx context.Context, organizationID, datasetID string) error
}

// AnalyticsService is the inbound contract for dataset and organization analytics.
type AnalyticsService interface {
	KPIs(ctx context.Context, organizationID, datasetID string, filter domain.AnalyticsFilter) (domain.KPIs, error)
	RevenueByDate(ctx context.Context, organizationID, datasetID string, filter domain.AnalyticsFilter) ([]domain.RevenuePoint, error)
	RevenueByCategory(ctx context.Context, organizationID, datasetID string, filter domain.AnalyticsFilter) ([]domain.CategoryRevenue, error)
	RevenueByProduct(ctx context.Context, organizationID, datasetID string, filter domain.AnalyticsFilter, limit int) ([]domain.ProductRevenue, error)
	AvailableFilters(ctx context.Context, organizationID, datasetID string) (domain.AvailableFilters, error)
	Overview(ctx context.Context, organizationID string) (domain.OverviewStats, error)
	DatasetsSummary(ctx context.Context, organizationID string) ([]domain.DatasetSummary, error)
	Trends(ctx context.Context, organizationID string) ([]domain.TrendPoint, error)
}

// DatasetEventHandler reacts to dataset lifecycle events in the background worker.
type DatasetEventHandler interface {
	HandleDatasetEvent(ctx context.Context, event domain.DatasetEvent) error
}
