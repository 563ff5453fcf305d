package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(a *API) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation - must be registered first
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/api/session", a.CreateSessionHandler)
	mux.HandleFunc("/api/job", a.withSession(a.JobHandler))

	// Screening
	mux.HandleFunc("/api/screen", a.withSession(a.ScreenHandler))
	mux.HandleFunc("/api/results", a.withSession(a.ResultsHandler))
	mux.HandleFunc("/api/results/shortlist", a.withSession(a.ShortlistHandler))
	mux.HandleFunc("/api/export", a.withSession(a.ExportHandler))

	// Archive
	mux.HandleFunc("/api/runs", a.RunsHandler)

	return mux
}
