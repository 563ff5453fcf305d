package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "cv-screener/docs" // Swagger docs
	"cv-screener/internal/api"
	"cv-screener/internal/app"
	"cv-screener/internal/config"
	"cv-screener/internal/logging"
	"cv-screener/internal/screening"
	"cv-screener/internal/storage"
)

// @title CV Screener API
// @version 1.0
// @description Keyword-overlap screening of candidate documents against a job description

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api
// @schemes http

func main() {
	configFile := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("creating a logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	opts := api.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		FilePrefix:     cfg.Export.FilePrefix,
		SessionTTL:     cfg.SessionTTL,
		Logger:         logger,
	}

	if cfg.DatabaseURL != "" {
		logger.Info("connecting to database")

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		db, err := storage.NewDB(pingCtx, cfg.DatabaseURL, logger.Named("storage"))
		cancel()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		opts.Archive = db
		logger.Info("run archive enabled")
	} else {
		logger.Info("DATABASE_URL not set, run archive disabled")
	}

	candidates, jobs := app.Parsers(cfg, logger)
	parser := screening.NewLimitedParser(candidates, cfg.Extraction.MaxParallel)
	apiSrv := api.NewAPI(parser, app.JobLoader(cfg, jobs, logger), opts)
	defer apiSrv.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(apiSrv),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // OCR of large batches
		IdleTimeout:  120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("API server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		apiSrv.Sessions().RunJanitor(gCtx, 0, func(removed int) {
			logger.Debug("expired sessions removed",
				zap.Int("count", removed),
				zap.Int("active", apiSrv.Sessions().Len()),
			)
		})
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
