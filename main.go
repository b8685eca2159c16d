package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ai-teammate/video-processing-service/internal/config"
	"github.com/ai-teammate/video-processing-service/internal/ffmpeg"
	"github.com/ai-teammate/video-processing-service/internal/handler"
	"github.com/ai-teammate/video-processing-service/internal/logging"
	"github.com/ai-teammate/video-processing-service/internal/metrics"
	"github.com/ai-teammate/video-processing-service/internal/middleware"
	"github.com/ai-teammate/video-processing-service/internal/pipeline"
	"github.com/ai-teammate/video-processing-service/internal/staging"
	"github.com/ai-teammate/video-processing-service/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// objectStore is the union of the storage backend capabilities.
type objectStore interface {
	storage.ObjectReader
	storage.ObjectWriter
	storage.ObjectPublisher
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("video processing service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	dirs := staging.Dirs{Raw: cfg.RawDir, Processed: cfg.ProcessedDir}
	if err := dirs.Setup(); err != nil {
		return fmt.Errorf("staging setup: %w", err)
	}

	store, closeStore, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close object store", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	proc := pipeline.New(pipeline.Config{
		RawBucket:        cfg.RawBucket,
		ProcessedBucket:  cfg.ProcessedBucket,
		Dirs:             dirs,
		TargetHeight:     cfg.TargetHeight,
		DownloadTimeout:  cfg.DownloadTimeout,
		TranscodeTimeout: cfg.TranscodeTimeout,
		UploadTimeout:    cfg.UploadTimeout,
		ScopedPaths:      cfg.ScopedPaths,
	}, pipeline.Deps{
		Downloader: storage.NewDownloader(store),
		Uploader:   storage.NewUploader(store),
		Publisher:  store,
		Transcoder: ffmpeg.NewRunner(cfg.FFmpegPath),
		Observer:   metrics.New(reg),
	}, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Post("/process-video", handler.NewProcessHandler(proc, logger, cfg.MaxBodyBytes))
	r.Get("/healthz", handler.NewHealthHandler(dirs, logger))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.Backend),
			zap.String("raw_bucket", cfg.RawBucket),
			zap.String("processed_bucket", cfg.ProcessedBucket))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// newObjectStore builds the configured storage backend and its close func.
func newObjectStore(ctx context.Context, cfg config.Config) (objectStore, func() error, error) {
	switch cfg.Backend {
	case config.BackendMinIO:
		client, err := storage.NewMinIOClient(storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return storage.NewMinIOStore(client), func() error { return nil }, nil
	default:
		client, err := storage.NewGCSClient(ctx, cfg.GCSEndpoint)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewGCSStore(client), client.Close, nil
	}
}
