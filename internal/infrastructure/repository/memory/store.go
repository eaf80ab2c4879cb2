// Package memory is an in-process dataset and sales store for local runs and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/kirillkom/salesscope/internal/core/aggregate"
	"github.com/kirillkom/salesscope/internal/core/domain"
)

// Store implements both the dataset and sales repositories. Deleting a dataset drops its records.
type Store struct {
	mu       sync.RWMutex
	clock    clockz.Clock
	datasets map[string]domain.Dataset
	records  map[string][]domain.SalesRecord
}

func NewStore(clock clockz.Clock) *Store {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Store{
		clock:    clock,
		datasets: make(map[string]domain.Dataset),
		records:  make(map[string][]domain.SalesRecord),
	}
}

func (s *Store) Create(_ context.Context, ds *domain.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.datasets[ds.ID]; exists {
		return fmt.Errorf("dataset %s already exists", ds.ID)
	}
	stored := *ds
	stored.Columns = slices.Clone(ds.Columns)
	s.datasets[ds.ID] = stored
	return nil
}

func (s *Store) GetByID(_ context.Context, organizationID, id string) (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[id]
	if !ok || ds.OrganizationID != organizationID {
		return nil, notFound("get dataset", id)
	}
	return &ds, nil
}

func (s *Store) List(_ context.Context, organizationID string, offset, limit int) ([]domain.Dataset, int, error) {
	all := s.organizationDatasets(organizationID, func(a, b domain.Dataset) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	total := len(all)
	if offset >= total {
		return []domain.Dataset{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (s *Store) ListByRecentUpdate(_ context.Context, organizationID string) ([]domain.Dataset, error) {
	return s.organizationDatasets(organizationID, func(a, b domain.Dataset) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	}), nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status domain.DatasetStatus, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[id]
	if !ok {
		return notFound("update dataset status", id)
	}
	ds.Status = status
	ds.ErrorMessage = errMessage
	ds.UpdatedAt = s.clock.Now().UTC()
	s.datasets[id] = ds
	return nil
}

func (s *Store) Delete(_ context.Context, organizationID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[id]
	if !ok || ds.OrganizationID != organizationID {
		return notFound("delete dataset", id)
	}
	delete(s.datasets, id)
	delete(s.records, id)
	return nil
}

func (s *Store) InsertBatch(_ context.Context, datasetID string, records []domain.SalesRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[datasetID]; !ok {
		return fmt.Errorf("insert sales batch: dataset %s does not exist", datasetID)
	}
	for _, rec := range records {
		rec.DatasetID = datasetID
		rec.Date = rec.Date.UTC()
		s.records[datasetID] = append(s.records[datasetID], rec)
	}
	return nil
}

func (s *Store) ListRecords(_ context.Context, datasetID string, filter domain.AnalyticsFilter) ([]domain.SalesRecord, error) {
	out := s.filtered(datasetID, filter)
	slices.SortStableFunc(out, func(a, b domain.SalesRecord) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (s *Store) RecentRecords(_ context.Context, datasetID string, limit int) ([]domain.SalesRecord, error) {
	out := s.filtered(datasetID, domain.AnalyticsFilter{})
	slices.SortStableFunc(out, func(a, b domain.SalesRecord) int { return b.Date.Compare(a.Date) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Summarize(_ context.Context, datasetID string, filter domain.AnalyticsFilter) (domain.KPIs, error) {
	return aggregate.Summarize(s.filtered(datasetID, filter)), nil
}

func (s *Store) RevenueByCategory(_ context.Context, datasetID string, filter domain.AnalyticsFilter) ([]domain.CategoryRevenue, error) {
	return aggregate.ByCategory(s.filtered(datasetID, filter)), nil
}

func (s *Store) RevenueByProduct(_ context.Context, datasetID string, filter domain.AnalyticsFilter, limit int) ([]domain.ProductRevenue, error) {
	return aggregate.ByProduct(s.filtered(datasetID, filter), limit), nil
}

func (s *Store) DistinctCategories(_ context.Context, datasetID string) ([]string, error) {
	records := s.filtered(datasetID, domain.AnalyticsFilter{})
	values := make([]string, 0, len(records))
	for _, r := range records {
		values = append(values, r.Category)
	}
	return aggregate.Distinct(values), nil
}

func (s *Store) DistinctProducts(_ context.Context, datasetID string) ([]string, error) {
	records := s.filtered(datasetID, domain.AnalyticsFilter{})
	values := make([]string, 0, len(records))
	for _, r := range records {
		values = append(values, r.Product)
	}
	return aggregate.Distinct(values), nil
}

func (s *Store) OrganizationActivity(_ context.Context, organizationID string, now time.Time) (domain.OrganizationActivity, error) {
	return aggregate.Activity(s.organizationRecords(organizationID), now), nil
}

func (s *Store) DatasetTotals(_ context.Context, organizationID string) (map[string]domain.DatasetTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.DatasetTotals)
	for id, ds := range s.datasets {
		if ds.OrganizationID != organizationID {
			continue
		}
		out[id] = aggregate.Totals(s.records[id])
	}
	return out, nil
}

func (s *Store) DailyTotals(_ context.Context, organizationID string, from time.Time) ([]domain.DailyTotal, error) {
	return aggregate.Daily(s.organizationRecords(organizationID), from), nil
}

func (s *Store) organizationDatasets(organizationID string, order func(a, b domain.Dataset) int) []domain.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Dataset, 0)
	for _, ds := range s.datasets {
		if ds.OrganizationID == organizationID {
			out = append(out, ds)
		}
	}
	slices.SortFunc(out, func(a, b domain.Dataset) int {
		if c := order(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Store) organizationRecords(organizationID string) []domain.SalesRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SalesRecord, 0)
	for id, ds := range s.datasets {
		if ds.OrganizationID == organizationID {
			out = append(out, s.records[id]...)
		}
	}
	return out
}

func (s *Store) filtered(datasetID string, filter domain.AnalyticsFilter) []domain.SalesRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SalesRecord, 0, len(s.records[datasetID]))
	for _, r := range s.records[datasetID] {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func notFound(op, id string) error {
	return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("dataset %s", id))
}
