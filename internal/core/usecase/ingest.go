package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"

	"github.com/kirillkom/salesscope/internal/core/domain"
	"github.com/kirillkom/salesscope/internal/core/ingestion"
	"github.com/kirillkom/salesscope/internal/core/ports"
)

const DefaultIngestBatchSize = 1000

type IngestDatasetUseCase struct {
	datasets  ports.DatasetRepository
	sales     ports.SalesRepository
	parser    ports.CSVParser
	events    ports.DatasetEventPublisher
	clock     clockz.Clock
	batchSize int
}

// NewIngestDatasetUseCase wires the ingestion pipeline. events may be nil when no
// background consumers are configured.
func NewIngestDatasetUseCase(
	datasets ports.DatasetRepository,
	sales ports.SalesRepository,
	parser ports.CSVParser,
	events ports.DatasetEventPublisher,
	clock clockz.Clock,
	batchSize int,
) *IngestDatasetUseCase {
	if clock == nil {
		clock = clockz.RealClock
	}
	if batchSize <= 0 {
		batchSize = DefaultIngestBatchSize
	}
	return &IngestDatasetUseCase{
		datasets:  datasets,
		sales:     sales,
		parser:    parser,
		events:    events,
		clock:     clock,
		batchSize: batchSize,
	}
}

// Upload parses, validates and persists one CSV file as a new dataset. Parse and schema
// errors leave no dataset behind; once the dataset exists, failures mark it FAILED.
func (uc *IngestDatasetUseCase) Upload(
	ctx context.Context,
	principal domain.Principal,
	req ports.UploadRequest,
) (*domain.Dataset, error) {
	if principal.OrganizationID == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "upload dataset", errors.New("missing organization"))
	}

	table, err := uc.parse(ctx, req.Content)
	if err != nil {
		return nil, err
	}

	mapping := ingestion.ResolveMapping(table.Headers)
	// Validation reads headers only, so it can run ahead of inference.
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	columns := ingestion.InferColumns(table.Headers, table.Rows)

	dataset, err := uc.createDataset(ctx, principal, req, columns, len(table.Rows))
	if err != nil {
		return nil, err
	}

	// Once rows start landing the ingestion runs to a terminal status even if the caller goes away.
	persistCtx := context.WithoutCancel(ctx)

	if err := uc.persistRecords(persistCtx, dataset.ID, table.Rows, mapping); err != nil {
		return nil, uc.fail(persistCtx, dataset, err)
	}
	if err := uc.datasets.UpdateStatus(persistCtx, dataset.ID, domain.StatusReady, ""); err != nil {
		return nil, uc.fail(persistCtx, dataset, fmt.Errorf("set status=ready: %w", err))
	}

	dataset.Status = domain.StatusReady
	dataset.UpdatedAt = uc.clock.Now().UTC()
	uc.publish(persistCtx, domain.EventDatasetReady, dataset)

	slog.Info("dataset_ingested",
		"dataset_id", dataset.ID,
		"organization_id", dataset.OrganizationID,
		"rows", dataset.RowCount,
		"columns", len(dataset.Columns),
	)
	return dataset, nil
}

func (uc *IngestDatasetUseCase) parse(ctx context.Context, content string) (*ports.CSVTable, error) {
	table, err := uc.parser.Parse(ctx, content)
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyFile, "parse csv", errors.New("CSV file is empty"))
	}
	return table, nil
}

func (uc *IngestDatasetUseCase) createDataset(
	ctx context.Context,
	principal domain.Principal,
	req ports.UploadRequest,
	columns []domain.InferredColumn,
	rowCount int,
) (*domain.Dataset, error) {
	now := uc.clock.Now().UTC()
	dataset := &domain.Dataset{
		ID:             uuid.NewString(),
		OrganizationID: principal.OrganizationID,
		CreatedByID:    principal.UserID,
		Name:           datasetName(req.Name, req.FileName),
		FileName:       req.FileName,
		FileSize:       req.FileSize,
		RowCount:       rowCount,
		Columns:        columns,
		Status:         domain.StatusProcessing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.datasets.Create(ctx, dataset); err != nil {
		return nil, fmt.Errorf("create dataset metadata: %w", err)
	}
	return dataset, nil
}

func (uc *IngestDatasetUseCase) persistRecords(
	ctx context.Context,
	datasetID string,
	rows []map[string]string,
	mapping ingestion.Mapping,
) error {
	now := uc.clock.Now()
	for start := 0; start < len(rows); start += uc.batchSize {
		end := min(start+uc.batchSize, len(rows))

		batch := make([]domain.SalesRecord, 0, end-start)
		for i, row := range rows[start:end] {
			rec, err := ingestion.NormalizeRow(row, mapping, now)
			if err != nil {
				return fmt.Errorf("normalize row %d: %w", start+i+1, err)
			}
			rec.ID = uuid.NewString()
			rec.DatasetID = datasetID
			batch = append(batch, rec)
		}

		if err := uc.sales.InsertBatch(ctx, datasetID, batch); err != nil {
			return fmt.Errorf("insert batch at row %d: %w", start+1, err)
		}
	}
	return nil
}

// fail records FAILED with the cause and returns the cause as an ingestion persist error.
func (uc *IngestDatasetUseCase) fail(ctx context.Context, dataset *domain.Dataset, cause error) error {
	err := domain.WrapError(domain.ErrIngestionPersist, "ingest dataset", cause)

	slog.Error("dataset_ingestion_failed",
		"dataset_id", dataset.ID,
		"organization_id", dataset.OrganizationID,
		"error", cause.Error(),
	)

	if failErr := uc.datasets.UpdateStatus(ctx, dataset.ID, domain.StatusFailed, cause.Error()); failErr != nil {
		return fmt.Errorf("%w; mark failed status: %v", err, failErr)
	}
	dataset.Status = domain.StatusFailed
	dataset.ErrorMessage = cause.Error()
	uc.publish(ctx, domain.EventDatasetFailed, dataset)
	return err
}

func (uc *IngestDatasetUseCase) publish(ctx context.Context, eventType domain.DatasetEventType, dataset *domain.Dataset) {
	if uc.events == nil {
		return
	}
	event := domain.DatasetEvent{
		Type:           eventType,
		DatasetID:      dataset.ID,
		OrganizationID: dataset.OrganizationID,
		OccurredAt:     uc.clock.Now().UTC(),
	}
	if err := uc.events.PublishDatasetEvent(ctx, event); err != nil {
		slog.Warn("dataset_event_publish_failed",
			"event", string(eventType),
			"dataset_id", dataset.ID,
			"error", err.Error(),
		)
	}
}

func datasetName(name, fileName string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
