package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/salesscope/internal/core/aggregate"
	"github.com/kirillkom/salesscope/internal/core/domain"
	"github.com/kirillkom/salesscope/internal/core/ports"
)

type datasetRepoFake struct {
	mu        sync.Mutex
	datasets  map[string]*domain.Dataset
	statuses  []domain.DatasetStatus
	createErr error
	updateErr error
	deleted   []string
}

func newDatasetRepoFake(datasets ...domain.Dataset) *datasetRepoFake {
	f := &datasetRepoFake{datasets: make(map[string]*domain.Dataset)}
	for i := range datasets {
		ds := datasets[i]
		f.datasets[ds.ID] = &ds
	}
	return f
}

func (f *datasetRepoFake) Create(_ context.Context, ds *domain.Dataset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copyDS := *ds
	f.datasets[ds.ID] = &copyDS
	f.statuses = append(f.statuses, ds.Status)
	return nil
}

func (f *datasetRepoFake) GetByID(_ context.Context, organizationID, id string) (*domain.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id]
	if !ok || ds.OrganizationID != organizationID {
		return nil, domain.WrapError(domain.ErrNotFound, "get dataset", errors.New("no rows"))
	}
	copyDS := *ds
	return &copyDS, nil
}

func (f *datasetRepoFake) List(_ context.Context, organizationID string, offset, limit int) ([]domain.Dataset, int, error) {
	all, _ := f.ListByRecentUpdate(context.Background(), organizationID)
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	return all[offset:min(offset+limit, total)], total, nil
}

func (f *datasetRepoFake) ListByRecentUpdate(_ context.Context, organizationID string) ([]domain.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Dataset, 0)
	for _, ds := range f.datasets {
		if ds.OrganizationID == organizationID {
			out = append(out, *ds)
		}
	}
	slices.SortFunc(out, func(a, b domain.Dataset) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

func (f *datasetRepoFake) UpdateStatus(_ context.Context, id string, status domain.DatasetStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	ds, ok := f.datasets[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update status", errors.New("no rows"))
	}
	ds.Status = status
	ds.ErrorMessage = errMessage
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *datasetRepoFake) Delete(_ context.Context, organizationID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id]
	if !ok || ds.OrganizationID != organizationID {
		return domain.WrapError(domain.ErrNotFound, "delete dataset", errors.New("no rows"))
	}
	delete(f.datasets, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type salesRepoFake struct {
	mu          sync.Mutex
	records     map[string][]domain.SalesRecord
	batches     [][]domain.SalesRecord
	failOnBatch int
	insertErr   error
	calls       map[string]int
	queryErr    error
	datasetOrg  map[string]string
}

func newSalesRepoFake() *salesRepoFake {
	return &salesRepoFake{
		records:    make(map[string][]domain.SalesRecord),
		calls:      make(map[string]int),
		datasetOrg: make(map[string]string),
	}
}

func (f *salesRepoFake) seed(organizationID, datasetID string, records ...domain.SalesRecord) {
	f.datasetOrg[datasetID] = organizationID
	for _, r := range records {
		r.DatasetID = datasetID
		f.records[datasetID] = append(f.records[datasetID], r)
	}
}

func (f *salesRepoFake) track(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.queryErr
}

func (f *salesRepoFake) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *salesRepoFake) filtered(datasetID string, filter domain.AnalyticsFilter) []domain.SalesRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SalesRecord, 0)
	for _, r := range f.records[datasetID] {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f *salesRepoFake) orgRecords(organizationID string) []domain.SalesRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SalesRecord, 0)
	for id, recs := range f.records {
		if f.datasetOrg[id] == organizationID {
			out = append(out, recs...)
		}
	}
	return out
}

func (f *salesRepoFake) InsertBatch(ctx context.Context, datasetID string, records []domain.SalesRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnBatch > 0 && len(f.batches)+1 == f.failOnBatch {
		return f.insertErr
	}
	f.batches = append(f.batches, records)
	f.records[datasetID] = append(f.records[datasetID], records...)
	return nil
}

func (f *salesRepoFake) ListRecords(_ context.Context, datasetID string, filter domain.AnalyticsFilter) ([]domain.SalesRecord, error) {
	if err := f.track("ListRecords"); err != nil {
		return nil, err
	}
	return f.filtered(datasetID, filter), nil
}

func (f *salesRepoFake) RecentRecords(_ context.Context, datasetID string, limit int) ([]domain.SalesRecord, error) {
	if err := f.track("RecentRecords"); err != nil {
		return nil, err
	}
	recs := f.filtered(datasetID, domain.AnalyticsFilter{})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (f *salesRepoFake) Summarize(ctx context.Context, datasetID string, filter domain.AnalyticsFilter) (domain.KPIs, error) {
	if err := ctx.Err(); err != nil {
		return domain.KPIs{}, err
	}
	if err := f.track("Summarize"); err != nil {
		return domain.KPIs{}, err
	}
	return aggregate.Summarize(f.filtered(datasetID, filter)), nil
}

func (f *salesRepoFake) RevenueByCategory(_ context.Context, datasetID string, filter domain.AnalyticsFilter) ([]domain.CategoryRevenue, error) {
	if err := f.track("RevenueByCategory"); err != nil {
		return nil, err
	}
	return aggregate.ByCategory(f.filtered(datasetID, filter)), nil
}

func (f *salesRepoFake) RevenueByProduct(_ context.Context, datasetID string, filter domain.AnalyticsFilter, limit int) ([]domain.ProductRevenue, error) {
	if err := f.track("RevenueByProduct"); err != nil {
		return nil, err
	}
	return aggregate.ByProduct(f.filtered(datasetID, filter), limit), nil
}

func (f *salesRepoFake) DistinctCategories(_ context.Context, datasetID string) ([]string, error) {
	if err := f.track("DistinctCategories"); err != nil {
		return nil, err
	}
	var values []string
	for _, r := range f.filtered(datasetID, domain.AnalyticsFilter{}) {
		values = append(values, r.Category)
	}
	return values, nil
}

func (f *salesRepoFake) DistinctProducts(_ context.Context, datasetID string) ([]string, error) {
	if err := f.track("DistinctProducts"); err != nil {
		return nil, err
	}
	var values []string
	for _, r := range f.filtered(datasetID, domain.AnalyticsFilter{}) {
		values = append(values, r.Product)
	}
	return values, nil
}

func (f *salesRepoFake) OrganizationActivity(_ context.Context, organizationID string, now time.Time) (domain.OrganizationActivity, error) {
	if err := f.track("OrganizationActivity"); err != nil {
		return domain.OrganizationActivity{}, err
	}
	return aggregate.Activity(f.orgRecords(organizationID), now), nil
}

func (f *salesRepoFake) DatasetTotals(_ context.Context, organizationID string) (map[string]domain.DatasetTotals, error) {
	if err := f.track("DatasetTotals"); err != nil {
		return nil, err
	}
	out := make(map[string]domain.DatasetTotals)
	for id, org := range f.datasetOrg {
		if org == organizationID {
			out[id] = aggregate.Totals(f.filtered(id, domain.AnalyticsFilter{}))
		}
	}
	return out, nil
}

func (f *salesRepoFake) DailyTotals(_ context.Context, organizationID string, from time.Time) ([]domain.DailyTotal, error) {
	if err := f.track("DailyTotals"); err != nil {
		return nil, err
	}
	return aggregate.Daily(f.orgRecords(organizationID), from), nil
}

type cacheFake struct {
	mu       sync.Mutex
	entries  map[string][]byte
	ttls     map[string]time.Duration
	getErr   error
	setErr   error
	prefixes []string
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *cacheFake) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *cacheFake) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *cacheFake) DeletePrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefix)
	for k := range f.entries {
		if strings.HasPrefix(k, prefix) {
			delete(f.entries, k)
		}
	}
	return nil
}

type parserFake struct {
	table *ports.CSVTable
	err   error
}

func (f *parserFake) Parse(context.Context, string) (*ports.CSVTable, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.DatasetEvent
	err    error
}

func (f *publisherFake) PublishDatasetEvent(_ context.Context, event domain.DatasetEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}
