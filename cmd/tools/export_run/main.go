package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cv-screener/internal/config"
	"cv-screener/internal/export"
	"cv-screener/internal/logging"
	"cv-screener/internal/screening"
	"cv-screener/internal/storage"
)

func main() {
	var (
		runID  string
		view   string
		outDir string
		prefix string
		limit  int
	)
	flag.StringVar(&runID, "run", "", "Run id to export; empty lists recent runs")
	flag.StringVar(&view, "view", "all", "all or shortlisted")
	flag.StringVar(&outDir, "out", ".", "Directory to write the CSV to")
	flag.StringVar(&prefix, "prefix", "", "CSV file name prefix (default from config)")
	flag.IntVar(&limit, "limit", 20, "Number of runs to list")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("creating a logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := storage.NewDB(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer db.Close()

	if runID == "" {
		if err := listRuns(ctx, db, limit); err != nil {
			logger.Fatal("listing runs", zap.Error(err))
		}
		return
	}

	id, err := uuid.Parse(runID)
	if err != nil {
		logger.Fatal("invalid run id", zap.String("run", runID), zap.Error(err))
	}
	mode, err := screening.ParseViewMode(view)
	if err != nil {
		logger.Fatal("invalid view", zap.Error(err))
	}
	if prefix == "" {
		prefix = cfg.Export.FilePrefix
	}

	path, err := exportRun(ctx, db, id, mode, outDir, prefix)
	if errors.Is(err, export.ErrNothingToExport) {
		logger.Info("nothing to export", zap.String("run", runID), zap.String("view", string(mode)))
		return
	}
	if err != nil {
		logger.Fatal("export failed", zap.String("run", runID), zap.Error(err))
	}
	logger.Info("run exported", zap.String("run", runID), zap.String("file", path))
}

func listRuns(ctx context.Context, db *storage.DB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  processed=%d skipped=%d\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Processed, r.Skipped)
	}
	return nil
}

func exportRun(ctx context.Context, db *storage.DB, id uuid.UUID, mode screening.ViewMode, outDir, prefix string) (string, error) {
	if _, err := db.GetRun(ctx, id); err != nil {
		return "", err
	}
	stored, err := db.GetRunResults(ctx, id)
	if err != nil {
		return "", err
	}

	rows := storage.MatchResults(stored)
	if mode == screening.ViewShortlisted {
		filtered := rows[:0]
		for _, r := range rows {
			if r.Shortlisted {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	payload, err := export.CSV(rows)
	if err != nil {
		return "", err
	}

	path := filepath.Join(outDir, export.FileName(prefix, mode))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
