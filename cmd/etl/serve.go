package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/localized-events-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/localized-events-etl/internal/adapter/kafka"
	"github.com/couchcryptid/localized-events-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"github.com/couchcryptid/localized-events-etl/internal/observability"
	"github.com/couchcryptid/localized-events-etl/internal/pipeline"
	"github.com/spf13/cobra"
)

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the streaming pipeline and health server",
		Long: `Consume localization documents from Kafka, one batch per message, and
publish one normalized event per message to the sink topic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a)
		},
	}
}

func runServe(parent context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger
	if err := cfg.ValidateStreaming(); err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	normalizer := pipeline.NewNormalizer(domain.LoadOptions{MaxResidualRMS: cfg.MaxResidualRMS}, logger, metrics, nil)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	loader := pipeline.FanOut{writer}

	var store *sqlite.Store
	if cfg.SQLitePath != "" {
		var err error
		store, err = sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return err
		}
		loader = append(loader, store)
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}

	p := pipeline.New(reader, normalizer, loader, logger, metrics, cfg.BatchSize, cfg.EventIDPrefix)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, normalizer, cfg.EventIDPrefix, logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("sqlite close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
