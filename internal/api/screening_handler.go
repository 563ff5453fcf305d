package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cv-screener/internal/cv"
	"cv-screener/internal/screening"
)

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type JobDescriptionRequest struct {
	Text string `json:"text"`
}

type JobDescriptionResponse struct {
	Text string `json:"text"`
}

type ScreenResponse struct {
	screening.BatchReport
	Results []screening.MatchResult `json:"results"`
}

type ShortlistRequest struct {
	Candidate string `json:"candidate"`
}

type ShortlistResponse struct {
	Candidate   string `json:"candidate"`
	Shortlisted bool   `json:"shortlisted"`
}

// CreateSessionHandler starts a new screening session
// @Summary Create session
// @Description Creates an empty screening session and returns its id for the X-Session-ID header
// @Tags session
// @Produce json
// @Success 201 {object} SessionResponse
// @Router /session [post]
func (a *API) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, _ := a.sessions.Create()
	a.logger.Debug("session created", zap.String("session", id), zap.Int("active", a.sessions.Len()))
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id})
}

// JobHandler reads or replaces the job description
// @Summary Get or set job description
// @Description GET returns the current job description. PUT replaces it from JSON text or an uploaded txt/pdf/docx/html file.
// @Tags job
// @Accept json,multipart/form-data
// @Produce json
// @Param X-Session-ID header string true "Session id"
// @Param request body JobDescriptionRequest false "Job description text"
// @Param file formData file false "Job description file"
// @Success 200 {object} JobDescriptionResponse
// @Failure 400 {string} string
// @Failure 422 {string} string
// @Router /job [get]
// @Router /job [put]
func (a *API) JobHandler(w http.ResponseWriter, r *http.Request, _ string, s *screening.Session) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, JobDescriptionResponse{Text: s.JobDescription()})
	case http.MethodPut:
		text, status, err := a.readJobDescription(r)
		if err != nil {
			http.Error(w, err.Error(), status)
			return
		}
		s.SetJobDescription(text)
		writeJSON(w, http.StatusOK, JobDescriptionResponse{Text: text})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) readJobDescription(r *http.Request) (string, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(a.maxUploadBytes); err != nil {
			return "", http.StatusBadRequest, fmt.Errorf("file too large or invalid (max %dMB)", a.maxUploadBytes>>20)
		}
		fh, ok := firstFile(r.MultipartForm, "file")
		if !ok {
			return "", http.StatusBadRequest, errors.New("no file uploaded")
		}
		file, err := readUpload(fh)
		if err != nil {
			return "", http.StatusBadRequest, err
		}
		text, err := a.jobLoader.LoadFile(r.Context(), file)
		if err != nil {
			return "", http.StatusUnprocessableEntity, fmt.Errorf("failed to read job description: %w", err)
		}
		return text, http.StatusOK, nil
	}

	// the server never fetches remote job descriptions on a caller's behalf
	var req JobDescriptionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, a.maxUploadBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return "", http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err)
	}
	return cv.Normalize(req.Text), http.StatusOK, nil
}

// ScreenHandler scores a batch of uploaded documents
// @Summary Screen candidates
// @Description Extracts text from every uploaded file in order and scores it against the job description. Replaces the previous results and shortlist.
// @Tags screening
// @Accept multipart/form-data
// @Produce json
// @Param X-Session-ID header string true "Session id"
// @Param files formData file true "Candidate documents (txt, pdf, docx, images)"
// @Success 200 {object} ScreenResponse
// @Failure 400 {string} string
// @Router /screen [post]
func (a *API) ScreenHandler(w http.ResponseWriter, r *http.Request, id string, s *screening.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startTime := time.Now()

	if err := r.ParseMultipartForm(a.maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("files too large or invalid (max %dMB)", a.maxUploadBytes>>20), http.StatusBadRequest)
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		http.Error(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	files := make([]cv.SourceFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readUpload(fh)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		files = append(files, file)
	}

	report, err := s.Process(r.Context(), files)
	if err != nil {
		a.logger.Warn("batch interrupted", zap.String("session", id), zap.Error(err))
		http.Error(w, "batch interrupted", http.StatusServiceUnavailable)
		return
	}

	results := s.View(screening.ViewAll)
	if report.Processed > 0 {
		a.queueRun(id, s.JobDescription(), report, results)
	}

	a.logger.Info("screening request completed",
		zap.String("session", id),
		zap.Int("files", len(files)),
		zap.Duration("took", time.Since(startTime)),
	)

	writeJSON(w, http.StatusOK, ScreenResponse{BatchReport: report, Results: results})
}

// ResultsHandler lists or clears the results of the last batch
// @Summary List or clear results
// @Description GET returns results in processing order, optionally only the shortlisted ones. DELETE clears results and shortlist.
// @Tags screening
// @Produce json
// @Param X-Session-ID header string true "Session id"
// @Param view query string false "all or shortlisted"
// @Success 200 {array} screening.MatchResult
// @Success 204
// @Failure 400 {string} string
// @Router /results [get]
// @Router /results [delete]
func (a *API) ResultsHandler(w http.ResponseWriter, r *http.Request, _ string, s *screening.Session) {
	switch r.Method {
	case http.MethodGet:
		mode, err := screening.ParseViewMode(r.URL.Query().Get("view"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, s.View(mode))
	case http.MethodDelete:
		s.Clear()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ShortlistHandler toggles the shortlist flag of a candidate
// @Summary Toggle shortlist
// @Description Flips the shortlist flag of every result with the given candidate name
// @Tags screening
// @Accept json
// @Produce json
// @Param X-Session-ID header string true "Session id"
// @Param request body ShortlistRequest true "Candidate name"
// @Success 200 {object} ShortlistResponse
// @Failure 400 {string} string
// @Failure 404 {string} string
// @Router /results/shortlist [post]
func (a *API) ShortlistHandler(w http.ResponseWriter, r *http.Request, id string, s *screening.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ShortlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Candidate) == "" {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	shortlisted, found := s.ToggleShortlist(req.Candidate)
	if !found {
		http.Error(w, "candidate not found", http.StatusNotFound)
		return
	}
	a.queueShortlist(id, req.Candidate, shortlisted)

	writeJSON(w, http.StatusOK, ShortlistResponse{Candidate: req.Candidate, Shortlisted: shortlisted})
}

func firstFile(form *multipart.Form, field string) (*multipart.FileHeader, bool) {
	if form == nil || len(form.File[field]) == 0 {
		return nil, false
	}
	return form.File[field][0], true
}

func readUpload(fh *multipart.FileHeader) (cv.SourceFile, error) {
	f, err := fh.Open()
	if err != nil {
		return cv.SourceFile{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cv.SourceFile{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return cv.SourceFile{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
