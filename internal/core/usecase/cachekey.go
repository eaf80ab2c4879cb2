package usecase

import (
	"encoding/json"
	"time"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

const cacheNamespace = "analytics"

type cacheKeyPayload struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Category  string `json:"category,omitempty"`
	Product   string `json:"product,omitempty"`
	Type      string `json:"type"`
	Limit     int    `json:"limit,omitempty"`
}

// cacheKey is a pure function of its inputs: struct field order fixes the JSON layout,
// so equal filters always produce the same key.
func cacheKey(datasetID, view string, filter domain.AnalyticsFilter, limit int) string {
	payload := cacheKeyPayload{
		Category: filter.Category,
		Product:  filter.Product,
		Type:     view,
		Limit:    limit,
	}
	if filter.StartDate != nil {
		payload.StartDate = filter.StartDate.UTC().Format(time.RFC3339Nano)
	}
	if filter.EndDate != nil {
		payload.EndDate = filter.EndDate.UTC().Format(time.RFC3339Nano)
	}
	raw, _ := json.Marshal(payload)
	return cachePrefix(datasetID) + string(raw)
}

// cachePrefix covers every cached view of one dataset.
func cachePrefix(datasetID string) string {
	return cacheNamespace + ":" + datasetID + ":"
}
