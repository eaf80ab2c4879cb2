package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zoobzio/clockz"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/salesscope/internal/core/aggregate"
	"github.com/kirillkom/salesscope/internal/core/domain"
	"github.com/kirillkom/salesscope/internal/core/ports"
)

const (
	DefaultAnalyticsCacheTTL = 5 * time.Minute
	MaxProductLimit          = 100

	viewKPIs              = "kpis"
	viewRevenueByDate     = "revenue-by-date"
	viewRevenueByCategory = "revenue-by-category"
	viewRevenueByProduct  = "revenue-by-product"
)

type AnalyticsUseCase struct {
	datasets ports.DatasetRepository
	sales    ports.SalesRepository
	cache    ports.AnalyticsCache
	clock    clockz.Clock
	ttl      time.Duration
	flight   singleflight.Group
}

func NewAnalyticsUseCase(
	datasets ports.DatasetRepository,
	sales ports.SalesRepository,
	cache ports.AnalyticsCache,
	clock clockz.Clock,
	ttl time.Duration,
) *AnalyticsUseCase {
	if clock == nil {
		clock = clockz.RealClock
	}
	if ttl <= 0 {
		ttl = DefaultAnalyticsCacheTTL
	}
	return &AnalyticsUseCase{
		datasets: datasets,
		sales:    sales,
		cache:    cache,
		clock:    clock,
		ttl:      ttl,
	}
}

func (uc *AnalyticsUseCase) KPIs(ctx context.Context, organizationID, datasetID string, filter domain.AnalyticsFilter) (domain.KPIs, error) {
	if err := uc.authorize(ctx, organizationID, datasetID); err != nil {
		return domain.KPIs{}, err
	}
	key := cacheKey(datasetID, viewKPIs, filter, 0)
	return cached(ctx, uc, key, func(ctx context.Context) (domain.KPIs, error) {
		kpis, err := uc.sales.Summarize(ctx, datasetID, filter)
		if err != nil {
			return domain.KPIs{}, fmt.Errorf("summarize sales: %w", err)
		}
		return kpis, nil
	})
}

func (uc *AnalyticsUseCase) RevenueByDate(ctx context.Context, organizationID, datasetID string, filter domain.AnalyticsFilter) ([]domain.RevenuePoint, error) {
	if err := uc.authorize(ctx, organizationID, datasetID); err != nil {
		return nil, err
	}
	key := cacheKey(datasetID, viewRevenueByDate, filter, 0)
	return cached(ctx, uc, key, func(ctx context.Context) ([]domain.RevenuePoint, error) {
		records, err := uc.sales.ListRecords(ctx, datasetID, filter)
		if err != nil {
			return nil, fmt.Errorf("list sales records: %w", err)
		}
		return aggregate.RevenueByDate(records), nil
	})
}

func (uc *AnalyticsUseCase) RevenueByCategory(ctx context.Context, organizationID, datasetID string, filter domain.AnalyticsFilter) ([]domain.CategoryRevenue, error) {
	if err := uc.authorize(ctx, organizationID, datasetID); err != nil {
		return nil, err
	}
	key := cacheKey(datasetID, viewRevenueByCategory, filter, 0)
	return cached(ctx, uc, key, func(ctx context.Context) ([]domain.CategoryRevenue, error) {
		out, err := uc.sales.RevenueByCategory(ctx, datasetID, filter)
		if err != nil {
			return nil, fmt.Errorf("group revenue by category: %w", err)
		}
		if out == nil {
			out = []domain.CategoryRevenue{}
		}
		return out, nil
	})
}

func (uc *AnalyticsUseCase) RevenueByProduct(ctx context.Context, organizationID, datasetID string, filter domain.AnalyticsFilter, limit int) ([]domain.ProductRevenue, error) {
	if err := uc.authorize(ctx, organizationID, datasetID); err != nil {
		return nil, err
	}
	limit = normalizeProductLimit(limit)
	key := cacheKey(datasetID, viewRevenueByProduct, filter, limit)
	return cached(ctx, uc, key, func(ctx context.Context) ([]domain.ProductRevenue, error) {
		out, err := uc.sales.RevenueByProduct(ctx, datasetID, filter, limit)
		if err != nil {
			return nil, fmt.Errorf("group revenue by product: %w", err)
		}
		if out == nil {
			out = []domain.ProductRevenue{}
		}
		return out, nil
	})
}

// AvailableFilters lists the distinct categories and products of a dataset. Not cached.
func (uc *AnalyticsUseCase) AvailableFilters(ctx context.Context, organizationID, datasetID string) (domain.AvailableFilters, error) {
	if err := uc.authorize(ctx, organizationID, datasetID); err != nil {
		return domain.AvailableFilters{}, err
	}

	var categories, products []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = uc.sales.DistinctCategories(gctx, datasetID)
		if err != nil {
			return fmt.Errorf("distinct categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = uc.sales.DistinctProducts(gctx, datasetID)
		if err != nil {
			return fmt.Errorf("distinct products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.AvailableFilters{}, err
	}

	return domain.AvailableFilters{
		Categories: aggregate.Distinct(categories),
		Products:   aggregate.Distinct(products),
	}, nil
}

func (uc *AnalyticsUseCase) Overview(ctx context.Context, organizationID string) (domain.OverviewStats, error) {
	if err := requireOrganization(organizationID, "overview"); err != nil {
		return domain.OverviewStats{}, err
	}

	var (
		datasets []domain.Dataset
		activity domain.OrganizationActivity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		datasets, err = uc.datasets.ListByRecentUpdate(gctx, organizationID)
		if err != nil {
			return fmt.Errorf("list datasets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		activity, err = uc.sales.OrganizationActivity(gctx, organizationID, uc.clock.Now().UTC())
		if err != nil {
			return fmt.Errorf("organization activity: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.OverviewStats{}, err
	}
	return aggregate.Overview(activity, datasets), nil
}

// DatasetsSummary lists every dataset of the organization with its sales totals,
// most recently updated first.
func (uc *AnalyticsUseCase) DatasetsSummary(ctx context.Context, organizationID string) ([]domain.DatasetSummary, error) {
	if err := requireOrganization(organizationID, "datasets summary"); err != nil {
		return nil, err
	}
	datasets, err := uc.datasets.ListByRecentUpdate(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	totals, err := uc.sales.DatasetTotals(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("dataset totals: %w", err)
	}
	return aggregate.Summaries(datasets, totals), nil
}

// Trends returns one point per UTC day for the last 30 days plus today.
func (uc *AnalyticsUseCase) Trends(ctx context.Context, organizationID string) ([]domain.TrendPoint, error) {
	if err := requireOrganization(organizationID, "trends"); err != nil {
		return nil, err
	}
	now := uc.clock.Now().UTC()
	daily, err := uc.sales.DailyTotals(ctx, organizationID, aggregate.TrendWindowStart(now))
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	return aggregate.TrendSeries(daily, now), nil
}

// WarmDataset precomputes the cached unfiltered views of a dataset.
func (uc *AnalyticsUseCase) WarmDataset(ctx context.Context, organizationID, datasetID string) error {
	var none domain.AnalyticsFilter
	_, kpiErr := uc.KPIs(ctx, organizationID, datasetID, none)
	_, dateErr := uc.RevenueByDate(ctx, organizationID, datasetID, none)
	_, categoryErr := uc.RevenueByCategory(ctx, organizationID, datasetID, none)
	_, productErr := uc.RevenueByProduct(ctx, organizationID, datasetID, none, aggregate.DefaultProductLimit)
	return errors.Join(kpiErr, dateErr, categoryErr, productErr)
}

// Invalidate drops every cached view of a dataset.
func (uc *AnalyticsUseCase) Invalidate(ctx context.Context, datasetID string) error {
	if err := uc.cache.DeletePrefix(ctx, cachePrefix(datasetID)); err != nil {
		return fmt.Errorf("invalidate analytics cache: %w", err)
	}
	return nil
}

// authorize confirms the dataset exists within the caller's organization. It runs before
// any cache lookup so cached results never cross tenants.
func (uc *AnalyticsUseCase) authorize(ctx context.Context, organizationID, datasetID string) error {
	if err := requireOrganization(organizationID, "authorize dataset"); err != nil {
		return err
	}
	if datasetID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "authorize dataset", errors.New("dataset id is required"))
	}
	if _, err := uc.datasets.GetByID(ctx, organizationID, datasetID); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	return nil
}

// cached serves key from the cache or computes, stores and returns it. Concurrent misses on
// the same key share one computation. Cache failures degrade to a recompute.
func cached[T any](ctx context.Context, uc *AnalyticsUseCase, key string, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	if raw, ok, err := uc.cache.Get(ctx, key); err != nil {
		slog.Warn("analytics_cache_get_failed", "key", key, "error", err.Error())
	} else if ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		slog.Warn("analytics_cache_entry_corrupt", "key", key)
	}

	// Waiters share one computation; it must outlive any single caller.
	shared := context.WithoutCancel(ctx)
	v, err, _ := uc.flight.Do(key, func() (any, error) {
		result, err := compute(shared)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode analytics result: %w", err)
		}
		if err := uc.cache.Set(shared, key, raw, uc.ttl); err != nil {
			slog.Warn("analytics_cache_set_failed", "key", key, "error", err.Error())
		}
		return raw, nil
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(v.([]byte), &out); err != nil {
		return zero, fmt.Errorf("decode analytics result: %w", err)
	}
	return out, nil
}

func normalizeProductLimit(limit int) int {
	switch {
	case limit <= 0:
		return aggregate.DefaultProductLimit
	case limit > MaxProductLimit:
		return MaxProductLimit
	default:
		return limit
	}
}

func requireOrganization(organizationID, operation string) error {
	if organizationID == "" {
		return domain.WrapError(domain.ErrUnauthorized, operation, errors.New("missing organization"))
	}
	return nil
}
