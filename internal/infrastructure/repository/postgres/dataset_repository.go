package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

type DatasetRepository struct {
	db *sql.DB
}

func NewDatasetRepository(db *sql.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

const datasetColumns = `id, organization_id, created_by_id, name, file_name, file_size, row_count, columns, status, error_message, created_at, updated_at`

func (r *DatasetRepository) Create(ctx context.Context, ds *domain.Dataset) error {
	columnsJSON, err := json.Marshal(ds.Columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO datasets (`+datasetColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		ds.ID, ds.OrganizationID, ds.CreatedByID, ds.Name, ds.FileName, ds.FileSize, ds.RowCount,
		columnsJSON, string(ds.Status), ds.ErrorMessage, ds.CreatedAt, ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (r *DatasetRepository) GetByID(ctx context.Context, organizationID, id string) (*domain.Dataset, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+datasetColumns+`
FROM datasets
WHERE id = $1 AND organization_id = $2
`, id, organizationID)

	ds, err := scanDataset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get dataset", fmt.Errorf("dataset %s", id))
		}
		return nil, fmt.Errorf("get dataset by id: %w", err)
	}
	return &ds, nil
}

func (r *DatasetRepository) List(ctx context.Context, organizationID string, offset, limit int) ([]domain.Dataset, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets WHERE organization_id = $1`, organizationID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count datasets: %w", err)
	}

	out, err := r.query(ctx, `
SELECT `+datasetColumns+`
FROM datasets
WHERE organization_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, organizationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *DatasetRepository) ListByRecentUpdate(ctx context.Context, organizationID string) ([]domain.Dataset, error) {
	return r.query(ctx, `
SELECT `+datasetColumns+`
FROM datasets
WHERE organization_id = $1
ORDER BY updated_at DESC
`, organizationID)
}

func (r *DatasetRepository) UpdateStatus(ctx context.Context, id string, status domain.DatasetStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE datasets
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update dataset status: %w", err)
	}
	return requireAffected(result, "update dataset status", id)
}

func (r *DatasetRepository) Delete(ctx context.Context, organizationID, id string) error {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM datasets
WHERE id = $1 AND organization_id = $2
`, id, organizationID)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	return requireAffected(result, "delete dataset", id)
}

func (r *DatasetRepository) query(ctx context.Context, query string, args ...any) ([]domain.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Dataset, 0)
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return out, nil
}

func requireAffected(result sql.Result, operation, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if n == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("dataset %s", id))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(row scanner) (domain.Dataset, error) {
	var ds domain.Dataset
	var columnsRaw []byte
	var status string
	err := row.Scan(
		&ds.ID,
		&ds.OrganizationID,
		&ds.CreatedByID,
		&ds.Name,
		&ds.FileName,
		&ds.FileSize,
		&ds.RowCount,
		&columnsRaw,
		&status,
		&ds.ErrorMessage,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		return domain.Dataset{}, err
	}
	if err := json.Unmarshal(columnsRaw, &ds.Columns); err != nil {
		return domain.Dataset{}, fmt.Errorf("unmarshal columns: %w", err)
	}
	ds.Status = domain.DatasetStatus(status)
	return ds, nil
}
