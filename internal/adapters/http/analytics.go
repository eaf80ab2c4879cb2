package httpadapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/salesscope/internal/auth"
	"github.com/kirillkom/salesscope/internal/core/domain"
)

// bindQueryInt decodes an optional integer query parameter into dest, leaving it untouched when absent.
func bindQueryInt(r *http.Request, name string, dest *int) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "bind query", fmt.Errorf("%s: %w", name, err))
	}
	return nil
}

func parseFilter(r *http.Request) (domain.AnalyticsFilter, error) {
	var startDate, endDate, category, product string
	for name, dest := range map[string]*string{
		"startDate": &startDate,
		"endDate":   &endDate,
		"category":  &category,
		"product":   &product,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
			return domain.AnalyticsFilter{}, domain.WrapError(domain.ErrInvalidInput, "bind query", fmt.Errorf("%s: %w", name, err))
		}
	}
	return domain.ParseFilter(startDate, endDate, category, product)
}

// datasetView runs a dataset-scoped analytics call with the request's principal and filter.
func datasetView[T any](w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, orgID, datasetID string, filter domain.AnalyticsFilter) (T, error)) {
	principal, _ := auth.PrincipalFrom(r.Context())
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := fn(r.Context(), principal.OrganizationID, r.PathValue("datasetId"), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func organizationView[T any](w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, orgID string) (T, error)) {
	principal, _ := auth.PrincipalFrom(r.Context())
	out, err := fn(r.Context(), principal.OrganizationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (rt *Router) kpis(w http.ResponseWriter, r *http.Request) {
	datasetView(w, r, rt.deps.Analytics.KPIs)
}

func (rt *Router) revenueByDate(w http.ResponseWriter, r *http.Request) {
	datasetView(w, r, rt.deps.Analytics.RevenueByDate)
}

func (rt *Router) revenueByCategory(w http.ResponseWriter, r *http.Request) {
	datasetView(w, r, rt.deps.Analytics.RevenueByCategory)
}

func (rt *Router) revenueByProduct(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if err := bindQueryInt(r, "limit", &limit); err != nil {
		writeError(w, r, err)
		return
	}
	datasetView(w, r, func(ctx context.Context, orgID, datasetID string, filter domain.AnalyticsFilter) ([]domain.ProductRevenue, error) {
		return rt.deps.Analytics.RevenueByProduct(ctx, orgID, datasetID, filter, limit)
	})
}

func (rt *Router) availableFilters(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	out, err := rt.deps.Analytics.AvailableFilters(r.Context(), principal.OrganizationID, r.PathValue("datasetId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (rt *Router) overview(w http.ResponseWriter, r *http.Request) {
	organizationView(w, r, rt.deps.Analytics.Overview)
}

func (rt *Router) datasetsSummary(w http.ResponseWriter, r *http.Request) {
	organizationView(w, r, rt.deps.Analytics.DatasetsSummary)
}

func (rt *Router) trends(w http.ResponseWriter, r *http.Request) {
	organizationView(w, r, rt.deps.Analytics.Trends)
}
