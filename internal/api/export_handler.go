package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"cv-screener/internal/export"
	"cv-screener/internal/screening"
)

// ExportHandler downloads results as CSV
// @Summary Export results
// @Description Returns the selected results as a CSV attachment named <prefix>_all.csv or <prefix>_shortlisted.csv
// @Tags export
// @Produce text/csv
// @Param X-Session-ID header string true "Session id"
// @Param view query string false "all or shortlisted"
// @Success 200 {file} file
// @Failure 400 {string} string
// @Failure 404 {string} string "nothing to export"
// @Router /export [get]
func (a *API) ExportHandler(w http.ResponseWriter, r *http.Request, id string, s *screening.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mode, err := screening.ParseViewMode(r.URL.Query().Get("view"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payload, err := export.CSV(s.View(mode))
	if errors.Is(err, export.ErrNothingToExport) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		a.logger.Error("export failed", zap.String("session", id), zap.Error(err))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(a.filePrefix, mode)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// RunsHandler lists archived screening runs
// @Summary List archived runs
// @Description Most recent runs first. Only available when a database is configured.
// @Tags archive
// @Produce json
// @Param limit query int false "Maximum number of runs" default(50)
// @Success 200 {array} storage.Run
// @Failure 503 {string} string
// @Router /runs [get]
func (a *API) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.archive == nil {
		http.Error(w, "run archive not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := a.archive.ListRuns(r.Context(), limit)
	if err != nil {
		a.logger.Error("list runs failed", zap.Error(err))
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
