package domain

import (
	"errors"
	"strings"
	"time"
)

// AnalyticsFilter narrows dataset-scoped aggregations. Zero values mean "no constraint".
type AnalyticsFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	Product   string
}

// ParseFilter builds a filter from raw boundary values. Dates must be ISO-8601
// (a calendar date or an RFC3339 timestamp).
func ParseFilter(startDate, endDate, category, product string) (AnalyticsFilter, error) {
	var f AnalyticsFilter
	if v := strings.TrimSpace(startDate); v != "" {
		t, err := parseISODate(v)
		if err != nil {
			return AnalyticsFilter{}, WrapError(ErrInvalidInput, "parse startDate", err)
		}
		f.StartDate = &t
	}
	if v := strings.TrimSpace(endDate); v != "" {
		t, err := parseISODate(v)
		if err != nil {
			return AnalyticsFilter{}, WrapError(ErrInvalidInput, "parse endDate", err)
		}
		f.EndDate = &t
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return AnalyticsFilter{}, WrapError(ErrInvalidInput, "parse filter", errors.New("endDate is before startDate"))
	}
	f.Category = category
	f.Product = product
	return f, nil
}

func parseISODate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, errors.New("expected ISO-8601 date")
	}
	return t, nil
}

// Matches reports whether a record passes the filter. Date bounds are inclusive.
func (f AnalyticsFilter) Matches(r SalesRecord) bool {
	if f.StartDate != nil && r.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && r.Date.After(*f.EndDate) {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Product != "" && r.Product != f.Product {
		return false
	}
	return true
}

type KPIs struct {
	TotalRevenue   float64 `json:"totalRevenue"`
	AverageRevenue float64 `json:"averageRevenue"`
	TotalSales     int     `json:"totalSales"`
	TotalQuantity  int     `json:"totalQuantity"`
}

// RevenuePoint is one time bucket; Date is a day or week-start key (YYYY-MM-DD) or a month key (YYYY-MM).
type RevenuePoint struct {
	Date     string  `json:"date"`
	Revenue  float64 `json:"revenue"`
	Quantity int     `json:"quantity"`
}

type CategoryRevenue struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
	Count    int     `json:"count"`
}

type ProductRevenue struct {
	Product  string  `json:"product"`
	Revenue  float64 `json:"revenue"`
	Quantity int     `json:"quantity"`
}

type AvailableFilters struct {
	Categories []string `json:"categories"`
	Products   []string `json:"products"`
}

type DateRange struct {
	Earliest *time.Time `json:"earliest"`
	Latest   *time.Time `json:"latest"`
}

type RecentActivity struct {
	Last7Days  int `json:"last7Days"`
	Last30Days int `json:"last30Days"`
}

type OverviewStats struct {
	TotalRevenue   float64        `json:"totalRevenue"`
	TotalSales     int            `json:"totalSales"`
	TotalDatasets  int            `json:"totalDatasets"`
	DatasetsReady  int            `json:"datasetsReady"`
	DateRange      DateRange      `json:"dateRange"`
	RecentActivity RecentActivity `json:"recentActivity"`
}

// OrganizationActivity is the raw org-wide sales aggregate behind OverviewStats.
type OrganizationActivity struct {
	TotalRevenue  float64
	TotalQuantity int
	Earliest      *time.Time
	Latest        *time.Time
	Last7Days     int
	Last30Days    int
}

type DatasetStats struct {
	TotalRevenue float64 `json:"totalRevenue"`
	TotalSales   int     `json:"totalSales"`
	AvgRevenue   float64 `json:"avgRevenue"`
}

type DatasetSummary struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    DatasetStatus `json:"status"`
	RowCount  int           `json:"rowCount"`
	FileSize  int64         `json:"fileSize"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Stats     DatasetStats  `json:"stats"`
}

// DatasetTotals are the summed revenue and quantity of one dataset.
type DatasetTotals struct {
	Revenue  float64
	Quantity int
}

type TrendPoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Sales   int     `json:"sales"`
}

// DailyTotal is revenue and quantity summed over one UTC calendar day.
type DailyTotal struct {
	Day      time.Time
	Revenue  float64
	Quantity int
}
