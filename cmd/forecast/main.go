package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/hiv-forecast-service/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/hiv-forecast-service/internal/adapter/http"
	"github.com/couchcryptid/hiv-forecast-service/internal/adapter/httpsource"
	kafkaadapter "github.com/couchcryptid/hiv-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/hiv-forecast-service/internal/adapter/store"
	"github.com/couchcryptid/hiv-forecast-service/internal/config"
	"github.com/couchcryptid/hiv-forecast-service/internal/observability"
	"github.com/couchcryptid/hiv-forecast-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	var source pipeline.Extractor
	if cfg.InputURL != "" {
		source = httpsource.NewClient(cfg.InputURL, cfg.InputTimeout, logger)
		logger.Info("reading historical table over http", "url", cfg.InputURL)
	} else {
		source = csvfile.NewSource(cfg.InputPath)
		logger.Info("reading historical table from file", "path", cfg.InputPath)
	}

	snapshots := store.New()
	loaders := []pipeline.Loader{snapshots}
	if cfg.OutputPath != "" {
		loaders = append(loaders, csvfile.NewSink(cfg.OutputPath, logger))
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(source, cfg.Forecaster(), loaders, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, runErr := p.Run(ctx)
	if runErr != nil {
		logger.Error("forecast run failed", "error", runErr)
	}

	if !cfg.Serve {
		closeWriter(writer, logger)
		if runErr != nil {
			os.Exit(1)
		}
		return
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, snapshots, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closeWriter(writer, logger)

	logger.Info("shutdown complete")
}

func closeWriter(w *kafkaadapter.Writer, logger *slog.Logger) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
}
