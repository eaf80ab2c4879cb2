package httpadapter

import (
	"context"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/salesscope/internal/auth"
	"github.com/kirillkom/salesscope/internal/config"
	"github.com/kirillkom/salesscope/internal/core/ports"
	"github.com/kirillkom/salesscope/internal/observability/metrics"
)

const serviceName = "salesscope-api"

// SpreadsheetConverter turns an uploaded workbook into CSV text.
type SpreadsheetConverter interface {
	ToCSV(ctx context.Context, r io.Reader) (string, error)
}

type Dependencies struct {
	Ingestor     ports.DatasetIngestor
	Catalog      ports.DatasetCatalog
	Analytics    ports.AnalyticsService
	Tokens       *auth.TokenService
	Spreadsheets SpreadsheetConverter
	OpenAPI      *openapi3.T
	Metrics      *metrics.HTTPServerMetrics
	MCP          http.Handler
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/datasets/upload", rt.uploadDataset)
	api.HandleFunc("GET /api/datasets", rt.listDatasets)
	api.HandleFunc("GET /api/datasets/{datasetId}", rt.getDataset)
	api.HandleFunc("DELETE /api/datasets/{datasetId}", rt.deleteDataset)

	api.HandleFunc("GET /api/analytics/overview", rt.overview)
	api.HandleFunc("GET /api/analytics/datasets-summary", rt.datasetsSummary)
	api.HandleFunc("GET /api/analytics/trends", rt.trends)
	api.HandleFunc("GET /api/analytics/{datasetId}/kpis", rt.kpis)
	api.HandleFunc("GET /api/analytics/{datasetId}/revenue-by-date", rt.revenueByDate)
	api.HandleFunc("GET /api/analytics/{datasetId}/revenue-by-category", rt.revenueByCategory)
	api.HandleFunc("GET /api/analytics/{datasetId}/revenue-by-product", rt.revenueByProduct)
	api.HandleFunc("GET /api/analytics/{datasetId}/filters", rt.availableFilters)
	if rt.deps.MCP != nil {
		api.Handle("/mcp", rt.deps.MCP)
	}

	protected := auth.Middleware(rt.deps.Tokens, writeError, api)
	protected = backpressureMiddleware(protected, rt.cfg.APIMaxInFlight, rt.cfg.BackpressureWait(), rt.onReject("backpressure"))
	protected = rateLimitMiddleware(protected, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.onReject("rate_limit"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.OpenAPI != nil {
		mux.HandleFunc("GET /openapi.json", openAPIHandler(rt.deps.OpenAPI))
	}
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}
	mux.Handle("/api/", protected)
	mux.Handle("/mcp", protected)

	var handler http.Handler = mux
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) onReject(reason string) func() {
	if rt.deps.Metrics == nil {
		return nil
	}
	return func() { rt.deps.Metrics.RecordRejected(serviceName, reason) }
}
