package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// schemaLockID serializes bootstrap DDL across api/worker startups.
const schemaLockID int64 = 2026101601

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	created_by_id TEXT NOT NULL,
	name TEXT NOT NULL,
	file_name TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	row_count INTEGER NOT NULL DEFAULT 0,
	columns JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_datasets_org_created ON datasets(organization_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_datasets_org_updated ON datasets(organization_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS sales_records (
	id TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	date TIMESTAMPTZ NOT NULL,
	revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
	quantity INTEGER NOT NULL DEFAULT 1,
	product TEXT,
	category TEXT
);

CREATE INDEX IF NOT EXISTS idx_sales_records_dataset_date ON sales_records(dataset_id, date);
CREATE INDEX IF NOT EXISTS idx_sales_records_dataset_category ON sales_records(dataset_id, category);
CREATE INDEX IF NOT EXISTS idx_sales_records_dataset_product ON sales_records(dataset_id, product);
`

// EnsureSchema creates the datasets and sales_records tables if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
