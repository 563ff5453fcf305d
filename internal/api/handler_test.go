package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cv-screener/internal/cv"
	"cv-screener/internal/jobdesc"
	"cv-screener/internal/screening"
	"cv-screener/internal/storage"
)

type uploadFile struct {
	name    string
	content string
}

type shortlistCall struct {
	runID       uuid.UUID
	candidate   string
	shortlisted bool
}

type fakeArchive struct {
	mu         sync.Mutex
	runs       []storage.Run
	results    map[uuid.UUID][]storage.RunResult
	shortlists []shortlistCall
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{results: map[uuid.UUID][]storage.RunResult{}}
}

func (f *fakeArchive) SaveRun(_ context.Context, run *storage.Run, results []storage.RunResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *run)
	f.results[run.ID] = results
	return nil
}

func (f *fakeArchive) SetShortlisted(_ context.Context, runID uuid.UUID, candidate string, shortlisted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shortlists = append(f.shortlists, shortlistCall{runID, candidate, shortlisted})
	return nil
}

func (f *fakeArchive) ListRuns(_ context.Context, _ int) ([]storage.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.Run{}, f.runs...), nil
}

func newTestAPI(archive Archive) *API {
	loader := jobdesc.NewLoader(cv.NewParser(cv.WithoutPDFFallback()), nil, nil)
	var opts Options
	if archive != nil {
		opts.Archive = archive
	}
	return NewAPI(cv.NewParser(), loader, opts)
}

func multipartRequest(t *testing.T, method, target, field string, files ...uploadFile) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(t *testing.T, h http.Handler, req *http.Request, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/session", nil), "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func setJob(t *testing.T, h http.Handler, sessionID, text string) {
	t.Helper()
	body, _ := json.Marshal(JobDescriptionRequest{Text: text})
	req := httptest.NewRequest(http.MethodPut, "/api/job", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, h, req, sessionID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func screen(t *testing.T, h http.Handler, sessionID string, files ...uploadFile) ScreenResponse {
	t.Helper()
	rec := do(t, h, multipartRequest(t, http.MethodPost, "/api/screen", "files", files...), sessionID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ScreenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

var batch = []uploadFile{
	{name: "jane.txt", content: "Senior Python engineer with Docker and AWS experience"},
	{name: "sheet.xlsx", content: "not a resume format we read"},
	{name: "john.txt", content: "Java developer who enjoys Docker containers"},
}

func TestRequiresSession(t *testing.T) {
	h := NewRouter(newTestAPI(nil))

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/results", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/results", nil), "no-such-session")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSession_LogsActiveCount(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	loader := jobdesc.NewLoader(cv.NewParser(cv.WithoutPDFFallback()), nil, nil)
	h := NewRouter(NewAPI(cv.NewParser(), loader, Options{Logger: zap.New(core)}))

	createSession(t, h)
	createSession(t, h)

	logs := observed.FilterMessage("session created").All()
	require.Len(t, logs, 2)
	assert.EqualValues(t, 1, logs[0].ContextMap()["active"])
	assert.EqualValues(t, 2, logs[1].ContextMap()["active"])
}

func TestHealth(t *testing.T) {
	rec := do(t, NewRouter(newTestAPI(nil)), httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestJobHandler(t *testing.T) {
	h := NewRouter(newTestAPI(nil))
	id := createSession(t, h)

	setJob(t, h, id, "  Python\n\nAWS   Docker ")

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/job", nil), id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"Python AWS Docker"}`, rec.Body.String())

	html := uploadFile{name: "posting.html", content: "<html><body><h1>Go</h1><p>Kubernetes</p><script>x()</script></body></html>"}
	rec = do(t, h, multipartRequest(t, http.MethodPut, "/api/job", "file", html), id)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"text":"Go Kubernetes"}`, rec.Body.String())

	rec = do(t, h, multipartRequest(t, http.MethodPut, "/api/job", "file", uploadFile{name: "jd.xlsx", content: "x"}), id)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/api/job", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, do(t, h, req, id).Code)
}

func TestJobHandler_RejectsURL(t *testing.T) {
	var hits atomic.Int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("internal metadata"))
	}))
	defer target.Close()

	h := NewRouter(newTestAPI(nil))
	id := createSession(t, h)
	setJob(t, h, id, "Python AWS Docker")

	req := httptest.NewRequest(http.MethodPut, "/api/job", strings.NewReader(`{"url":"`+target.URL+`/latest/meta-data"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, h, req, id)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "internal metadata")
	assert.Zero(t, hits.Load())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/job", nil), id)
	assert.JSONEq(t, `{"text":"Python AWS Docker"}`, rec.Body.String())
}

func TestScreenShortlistExport(t *testing.T) {
	h := NewRouter(newTestAPI(nil))
	id := createSession(t, h)
	setJob(t, h, id, "Python AWS Docker")

	resp := screen(t, h, id, batch...)
	assert.Equal(t, 2, resp.Processed)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, screening.StatusProcessed(2), resp.Status)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "jane.txt", resp.Results[0].Candidate)
	assert.Equal(t, 100, resp.Results[0].Score)
	assert.Equal(t, "john.txt", resp.Results[1].Candidate)
	assert.Equal(t, 33, resp.Results[1].Score)

	body, _ := json.Marshal(ShortlistRequest{Candidate: "john.txt"})
	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/results/shortlist", bytes.NewReader(body)), id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"candidate":"john.txt","shortlisted":true}`, rec.Body.String())

	body, _ = json.Marshal(ShortlistRequest{Candidate: "ghost.pdf"})
	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/api/results/shortlist", bytes.NewReader(body)), id)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/results?view=shortlisted", nil), id)
	require.Equal(t, http.StatusOK, rec.Code)
	var shortlisted []screening.MatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&shortlisted))
	require.Len(t, shortlisted, 1)
	assert.Equal(t, "john.txt", shortlisted[0].Candidate)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/export?view=shortlisted", nil), id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="candidates_shortlisted.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t,
		"Candidate,Score,Matched,Missing,Recommendation,Shortlisted\njohn.txt,33%,docker,python | aws,Needs review,Yes",
		rec.Body.String())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/results?view=starred", nil), id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/results", nil), id)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/export", nil), id)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "nothing to export")
}

func TestScreen_NoValidResumes(t *testing.T) {
	h := NewRouter(newTestAPI(nil))
	id := createSession(t, h)

	resp := screen(t, h, id, uploadFile{name: "a.xlsx", content: "x"}, uploadFile{name: "b.txt", content: "tiny"})
	assert.Equal(t, 0, resp.Processed)
	assert.Equal(t, 2, resp.Skipped)
	assert.Equal(t, screening.StatusNoValidResumes, resp.Status)
	assert.Empty(t, resp.Results)
	require.Len(t, resp.Skips, 2)
	assert.Equal(t, "a.xlsx", resp.Skips[0].File)
}

func TestScreen_NoFiles(t *testing.T) {
	h := NewRouter(newTestAPI(nil))
	id := createSession(t, h)

	rec := do(t, h, multipartRequest(t, http.MethodPost, "/api/screen", "files"), id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionsAreIsolated(t *testing.T) {
	h := NewRouter(newTestAPI(nil))
	first := createSession(t, h)
	second := createSession(t, h)

	setJob(t, h, first, "Python AWS Docker")
	screen(t, h, first, batch...)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/results", nil), second)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestArchiveWorker(t *testing.T) {
	archive := newFakeArchive()
	a := newTestAPI(archive)
	h := NewRouter(a)

	id := createSession(t, h)
	setJob(t, h, id, "Python AWS Docker")
	screen(t, h, id, batch...)

	body, _ := json.Marshal(ShortlistRequest{Candidate: "jane.txt"})
	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/results/shortlist", bytes.NewReader(body)), id)
	require.Equal(t, http.StatusOK, rec.Code)

	a.Close()

	require.Len(t, archive.runs, 1)
	run := archive.runs[0]
	assert.Equal(t, id, run.SessionID)
	assert.Equal(t, "Python AWS Docker", run.JobDescription)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 1, run.Skipped)

	results := archive.results[run.ID]
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Position)
	assert.Equal(t, "jane.txt", results[0].Candidate)
	assert.Equal(t, "Strong fit", results[0].Recommendation)

	require.Len(t, archive.shortlists, 1)
	assert.Equal(t, shortlistCall{run.ID, "jane.txt", true}, archive.shortlists[0])
}

func TestArchiveWorker_JobsAfterClose(t *testing.T) {
	archive := newFakeArchive()
	a := newTestAPI(archive)
	h := NewRouter(a)

	id := createSession(t, h)
	setJob(t, h, id, "Python AWS Docker")

	a.Close()

	assert.NotPanics(t, func() {
		screen(t, h, id, batch...)
		a.queueShortlist(id, "jane.txt", true)
		a.Close()
	})
	assert.Empty(t, archive.runs)
	assert.Empty(t, archive.shortlists)
}

func TestRunsHandler(t *testing.T) {
	rec := do(t, NewRouter(newTestAPI(nil)), httptest.NewRequest(http.MethodGet, "/api/runs", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	archive := newFakeArchive()
	archive.runs = []storage.Run{{ID: uuid.New(), SessionID: "s", Processed: 1, CreatedAt: time.Now()}}
	a := newTestAPI(archive)
	defer a.Close()
	h := NewRouter(a)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []storage.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	assert.Len(t, runs, 1)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/runs?limit=x", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
