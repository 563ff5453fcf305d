// Package app builds the extraction components from configuration.
package app

import (
	"go.uber.org/zap"

	"cv-screener/internal/config"
	"cv-screener/internal/cv"
	"cv-screener/internal/cv/ocr"
	"cv-screener/internal/jobdesc"
	apphttp "cv-screener/pkg/http"
)

// Parsers returns the candidate parser, with OCR for images and scanned PDFs,
// and the job description parser, which never falls back to OCR.
func Parsers(cfg *config.Config, logger *zap.Logger) (candidates, jobs *cv.Parser) {
	engine := ocr.NewTesseract(cfg.Extraction.OCRLanguage)
	rasterizer := cv.NewPopplerRasterizer(cfg.Extraction.PdftoppmPath)

	candidates = cv.NewParser(
		cv.WithOCR(engine),
		cv.WithRasterizer(rasterizer),
		cv.WithRenderScale(cfg.Extraction.RenderScale),
		cv.WithLogger(logger.Named("extract")),
	)
	jobs = cv.NewParser(
		cv.WithOCR(engine),
		cv.WithoutPDFFallback(),
		cv.WithLogger(logger.Named("jobdesc")),
	)
	return candidates, jobs
}

func JobLoader(cfg *config.Config, jobs *cv.Parser, logger *zap.Logger) *jobdesc.Loader {
	client := apphttp.NewClient(apphttp.DefaultTimeout, cfg.MaxUploadBytes())
	return jobdesc.NewLoader(jobs, client, logger.Named("jobdesc"))
}
