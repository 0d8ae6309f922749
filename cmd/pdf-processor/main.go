package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-processor/internal/api/handlers/pdf"
	"github.com/aliskhannn/pdf-processor/internal/api/router"
	"github.com/aliskhannn/pdf-processor/internal/api/server"
	"github.com/aliskhannn/pdf-processor/internal/config"
	"github.com/aliskhannn/pdf-processor/internal/infra/kafka/producer"
	"github.com/aliskhannn/pdf-processor/internal/processor"
	pdfsvc "github.com/aliskhannn/pdf-processor/internal/service/pdf"
	"github.com/aliskhannn/pdf-processor/internal/source"
	"github.com/aliskhannn/pdf-processor/internal/storage/file"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Object storage is optional; without it every response is streamed.
	var fs pdfsvc.FileStorage
	if cfg.Storage.Enabled {
		storage, err := file.NewStorage(ctx,
			cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey,
			cfg.Storage.BucketName, cfg.Storage.UseSSL, cfg.Storage.LinkExpiry,
		)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
		}
		fs = storage
	}

	// Retry strategy for Kafka event publishing.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Operation event producer, optional as well.
	var p *producer.Producer
	var events pdfsvc.EventProducer
	if len(cfg.Kafka.Brokers) > 0 {
		p = producer.New(&cfg.Kafka, strategy)
		events = p
	}

	// Initialize fetcher, processor and the pipeline service.
	fetcher := source.New(cfg.Limits.MaxFileSize, cfg.Limits.DownloadTimeout)
	proc := processor.New(cfg.Tools.Ghostscript)
	service := pdfsvc.NewService(fetcher, proc, fs, events, cfg.Limits.TempDir)

	// HTTP handler and server.
	h := pdf.NewHandler(service, proc.Operations())
	r := router.Setup(h)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close Kafka producer client.
	if p != nil {
		if err := p.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
}
