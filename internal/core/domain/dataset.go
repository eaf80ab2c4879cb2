package domain

import "time"

type DatasetStatus string

const (
	StatusUploading  DatasetStatus = "UPLOADING"
	StatusProcessing DatasetStatus = "PROCESSING"
	StatusReady      DatasetStatus = "READY"
	StatusFailed     DatasetStatus = "FAILED"
)

type ColumnType string

const (
	ColumnNumber ColumnType = "NUMBER"
	ColumnDate   ColumnType = "DATE"
	ColumnString ColumnType = "STRING"
)

// InferredColumn describes one CSV header after type inference.
type InferredColumn struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable"`
}

type Dataset struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organizationId"`
	CreatedByID    string           `json:"createdById"`
	Name           string           `json:"name"`
	FileName       string           `json:"fileName"`
	FileSize       int64            `json:"fileSize"`
	RowCount       int              `json:"rowCount"`
	Columns        []InferredColumn `json:"columns"`
	Status         DatasetStatus    `json:"status"`
	ErrorMessage   string           `json:"errorMessage,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// SalesRecord is one normalized CSV row. Product and Category are empty when unset.
type SalesRecord struct {
	ID        string    `json:"id"`
	DatasetID string    `json:"datasetId"`
	Date      time.Time `json:"date"`
	Revenue   float64   `json:"revenue"`
	Quantity  int       `json:"quantity"`
	Product   string    `json:"product,omitempty"`
	Category  string    `json:"category,omitempty"`
}

// DatasetPage is one page of an organization's datasets, newest first.
type DatasetPage struct {
	Datasets []Dataset `json:"datasets"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}

// DatasetDetail is a dataset together with a preview of its most recent records.
type DatasetDetail struct {
	Dataset
	Records []SalesRecord `json:"salesData,omitempty"`
}

// Principal is the verified caller of an organization-scoped operation.
type Principal struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role"`
}

type DatasetEventType string

const (
	EventDatasetReady   DatasetEventType = "dataset.ready"
	EventDatasetFailed  DatasetEventType = "dataset.failed"
	EventDatasetDeleted DatasetEventType = "dataset.deleted"
)

// DatasetEvent announces a dataset lifecycle transition to background consumers.
type DatasetEvent struct {
	Type           DatasetEventType `json:"type"`
	DatasetID      string           `json:"dataset_id"`
	OrganizationID string           `json:"organization_id"`
	OccurredAt     time.Time        `json:"occurred_at"`
}
