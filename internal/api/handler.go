package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cv-screener/internal/cv"
	"cv-screener/internal/export"
	"cv-screener/internal/logging"
	"cv-screener/internal/screening"
	"cv-screener/internal/storage"
)

const (
	SessionHeader = "X-Session-ID"

	defaultMaxUploadBytes = 10 << 20
	archiveQueueSize      = 50
)

// JobLoader turns an uploaded file into job description text.
type JobLoader interface {
	LoadFile(ctx context.Context, file cv.SourceFile) (string, error)
}

// Archive persists completed batches. It is optional.
type Archive interface {
	SaveRun(ctx context.Context, run *storage.Run, results []storage.RunResult) error
	SetShortlisted(ctx context.Context, runID uuid.UUID, candidate string, shortlisted bool) error
	ListRuns(ctx context.Context, limit int) ([]storage.Run, error)
}

type Options struct {
	MaxUploadBytes int64
	FilePrefix     string
	SessionTTL     time.Duration
	Archive        Archive
	Logger         *zap.Logger
}

type API struct {
	sessions       *SessionStore
	jobLoader      JobLoader
	archive        Archive
	archiveQueue   chan archiveJob
	archiveMu      sync.RWMutex
	archiveClosed  bool
	workersDone    sync.WaitGroup
	logger         *zap.Logger
	maxUploadBytes int64
	filePrefix     string
}

// NewAPI wires the handlers. parser is shared by every session.
func NewAPI(parser screening.FileParser, jobLoader JobLoader, opts Options) *API {
	logger := logging.OrNop(opts.Logger)
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.FilePrefix == "" {
		opts.FilePrefix = export.DefaultFilePrefix
	}

	sessionLogger := logger.Named("session")
	a := &API{
		sessions: NewSessionStore(opts.SessionTTL, func() *screening.Session {
			return screening.NewSession(parser, screening.WithLogger(sessionLogger))
		}),
		jobLoader:      jobLoader,
		archive:        opts.Archive,
		logger:         logger,
		maxUploadBytes: opts.MaxUploadBytes,
		filePrefix:     opts.FilePrefix,
	}

	if a.archive != nil {
		a.archiveQueue = make(chan archiveJob, archiveQueueSize)
	}
	a.StartBackgroundWorkers()

	return a
}

// Sessions exposes the registry so the caller can run its janitor.
func (a *API) Sessions() *SessionStore {
	return a.sessions
}

// sessionHandler is a handler that needs the caller's session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, id string, s *screening.Session)

// withSession resolves the X-Session-ID header.
func (a *API) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			http.Error(w, "missing "+SessionHeader+" header", http.StatusUnauthorized)
			return
		}
		s, ok := a.sessions.Get(id)
		if !ok {
			http.Error(w, "unknown or expired session", http.StatusUnauthorized)
			return
		}
		next(w, r, id, s)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
