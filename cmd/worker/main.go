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

	"github.com/kirillkom/salesscope/internal/bootstrap"
	"github.com/kirillkom/salesscope/internal/config"
	"github.com/kirillkom/salesscope/internal/core/domain"
	"github.com/kirillkom/salesscope/internal/observability/logging"
	"github.com/kirillkom/salesscope/internal/observability/metrics"
)

const (
	serviceName  = "salesscope-worker"
	eventTimeout = 2 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err.Error())
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, serviceName, workerMetrics)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err.Error())
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if app.Subscriber == nil {
		slog.Warn("worker_idle", "reason", "NATS_URL is empty, no dataset events to consume")
		<-ctx.Done()
		return
	}

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Subscriber.SubscribeDatasetEvents(ctx, func(handlerCtx context.Context, event domain.DatasetEvent) error {
		eventCtx, cancel := context.WithTimeout(handlerCtx, eventTimeout)
		defer cancel()

		if !event.OccurredAt.IsZero() {
			workerMetrics.ObserveEventLag(serviceName, time.Since(event.OccurredAt))
		}
		workerMetrics.StartEvent()
		start := time.Now()
		err := app.EventsUC.HandleDatasetEvent(eventCtx, event)
		workerMetrics.FinishEvent(serviceName, string(event.Type), time.Since(start), err)
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err.Error())
	}
}
