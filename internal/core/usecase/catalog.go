package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zoobzio/clockz"

	"github.com/kirillkom/salesscope/internal/core/domain"
	"github.com/kirillkom/salesscope/internal/core/ports"
)

const (
	DefaultPageLimit  = 20
	MaxPageLimit      = 100
	MaxPreviewRecords = 1000
)

type DatasetCatalogUseCase struct {
	datasets ports.DatasetRepository
	sales    ports.SalesRepository
	cache    ports.AnalyticsCache
	events   ports.DatasetEventPublisher
	clock    clockz.Clock
}

func NewDatasetCatalogUseCase(
	datasets ports.DatasetRepository,
	sales ports.SalesRepository,
	cache ports.AnalyticsCache,
	events ports.DatasetEventPublisher,
	clock clockz.Clock,
) *DatasetCatalogUseCase {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &DatasetCatalogUseCase{
		datasets: datasets,
		sales:    sales,
		cache:    cache,
		events:   events,
		clock:    clock,
	}
}

func (uc *DatasetCatalogUseCase) List(ctx context.Context, organizationID string, page, limit int) (*domain.DatasetPage, error) {
	if err := requireOrganization(organizationID, "list datasets"); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	datasets, total, err := uc.datasets.List(ctx, organizationID, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	if datasets == nil {
		datasets = []domain.Dataset{}
	}
	return &domain.DatasetPage{Datasets: datasets, Total: total, Page: page, Limit: limit}, nil
}

// Get loads one dataset of the organization with up to previewLimit of its most recent records.
func (uc *DatasetCatalogUseCase) Get(ctx context.Context, organizationID, datasetID string, previewLimit int) (*domain.DatasetDetail, error) {
	if err := requireOrganization(organizationID, "get dataset"); err != nil {
		return nil, err
	}
	dataset, err := uc.datasets.GetByID(ctx, organizationID, datasetID)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	detail := &domain.DatasetDetail{Dataset: *dataset}
	if previewLimit <= 0 {
		return detail, nil
	}
	previewLimit = min(previewLimit, MaxPreviewRecords)

	records, err := uc.sales.RecentRecords(ctx, datasetID, previewLimit)
	if err != nil {
		return nil, fmt.Errorf("load record preview: %w", err)
	}
	detail.Records = records
	return detail, nil
}

// Delete removes the dataset with its records and drops its cached analytics.
func (uc *DatasetCatalogUseCase) Delete(ctx context.Context, organizationID, datasetID string) error {
	if err := requireOrganization(organizationID, "delete dataset"); err != nil {
		return err
	}
	if err := uc.datasets.Delete(ctx, organizationID, datasetID); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}

	if err := uc.cache.DeletePrefix(ctx, cachePrefix(datasetID)); err != nil {
		slog.Warn("analytics_cache_invalidate_failed", "dataset_id", datasetID, "error", err.Error())
	}

	if uc.events != nil {
		event := domain.DatasetEvent{
			Type:           domain.EventDatasetDeleted,
			DatasetID:      datasetID,
			OrganizationID: organizationID,
			OccurredAt:     uc.clock.Now().UTC(),
		}
		if err := uc.events.PublishDatasetEvent(ctx, event); err != nil {
			slog.Warn("dataset_event_publish_failed", "event", string(event.Type), "dataset_id", datasetID, "error", err.Error())
		}
	}

	slog.Info("dataset_deleted", "dataset_id", datasetID, "organization_id", organizationID)
	return nil
}
