package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/salesscope/internal/adapters/http"
	mcpadapter "github.com/kirillkom/salesscope/internal/adapters/mcp"
	"github.com/kirillkom/salesscope/internal/auth"
	"github.com/kirillkom/salesscope/internal/bootstrap"
	"github.com/kirillkom/salesscope/internal/config"
	"github.com/kirillkom/salesscope/internal/infrastructure/spreadsheet"
	"github.com/kirillkom/salesscope/internal/observability/logging"
	"github.com/kirillkom/salesscope/internal/observability/metrics"
)

const serviceName = "salesscope-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err.Error())
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := auth.NewTokenService(cfg.JWTAccessSecret, nil)
	if err != nil {
		fatal("token_service_init_failed", err)
	}
	doc, err := httpadapter.LoadOpenAPI(ctx)
	if err != nil {
		fatal("openapi_load_failed", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, serviceName, httpMetrics)
	if err != nil {
		fatal("bootstrap_failed", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Ingestor:     app.IngestUC,
		Catalog:      app.CatalogUC,
		Analytics:    app.AnalyticsUC,
		Tokens:       tokens,
		Spreadsheets: spreadsheet.NewXLSXConverter(),
		OpenAPI:      doc,
		Metrics:      httpMetrics,
		MCP:          mcpadapter.NewServer(app.AnalyticsUC).Handler(),
	}).Handler()

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "addr", server.Addr, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("api_server_failed", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err.Error())
	}
}

func fatal(event string, err error) {
	slog.Error(event, "error", err.Error())
	os.Exit(1)
}
