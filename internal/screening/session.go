// Package screening owns the per-session job description and result collection.
package screening

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"cv-screener/internal/cv"
	"cv-screener/internal/matching"
)

var ErrInvalidView = errors.New("view must be \"all\" or \"shortlisted\"")

// FileParser turns one uploaded file into normalized text or a skip.
type FileParser interface {
	ParseFile(ctx context.Context, file cv.SourceFile) cv.Result
}

// Session holds the state a single reviewer works on: the current job
// description, the result collection of the last batch and the shortlist flags.
// Each field has one mutation point; the collection is swapped in whole at the
// end of a batch.
type Session struct {
	// batchMu runs the batches of one session one at a time
	batchMu sync.Mutex

	mu             sync.RWMutex
	jobDescription string
	results        []MatchResult
	shortlist      map[string]bool

	parser   FileParser
	logger   *zap.Logger
	onStatus func(Status)
}

type SessionOption func(*Session)

func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStatusFunc registers a callback for progress lines.
func WithStatusFunc(fn func(Status)) SessionOption {
	return func(s *Session) { s.onStatus = fn }
}

func NewSession(parser FileParser, opts ...SessionOption) *Session {
	s := &Session{
		parser:    parser,
		shortlist: map[string]bool{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetJobDescription replaces the job description wholesale.
func (s *Session) SetJobDescription(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobDescription = text
}

func (s *Session) JobDescription() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobDescription
}

// Process parses and scores files one after another, in order, against the
// current job description. The previous collection and all shortlist flags are
// replaced when the batch completes. Per-file failures are reported as skips;
// the only error is a context cancelled between two files, in which case the
// previous collection is left untouched.
func (s *Session) Process(ctx context.Context, files []cv.SourceFile) (BatchReport, error) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	jobTokens := matching.Unique(matching.Tokenize(s.JobDescription()))
	s.status(StatusReading(len(files)))

	if len(jobTokens) == 0 {
		s.logger.Warn("job description has no keywords, every candidate will score 0")
	}

	results := make([]MatchResult, 0, len(files))
	report := BatchReport{}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return BatchReport{}, fmt.Errorf("batch interrupted after %d file(s): %w", report.Processed+report.Skipped, err)
		}

		res := s.parser.ParseFile(ctx, file)
		if !res.Skipped() && utf8.RuneCountInString(res.Document.Text) < cv.MinTextLength {
			res.Err = fmt.Errorf("%w: %d characters", cv.ErrTextTooShort, utf8.RuneCountInString(res.Document.Text))
			res.Outcome = cv.OutcomeSkipped
		}

		if res.Skipped() {
			report.Skipped++
			report.Skips = append(report.Skips, SkipNote{File: file.Name, Reason: res.Err.Error()})
			s.logger.Warn("skipping file",
				zap.String("file", file.Name),
				zap.String("format", res.Format.String()),
				zap.Error(res.Err),
			)
			continue
		}

		match := matching.ScoreTokens(jobTokens, matching.Tokenize(res.Document.Text))
		results = append(results, MatchResult{
			Candidate:      res.Document.Name,
			Score:          match.Score,
			Matched:        match.Matched,
			Missing:        match.Missing,
			Recommendation: match.Recommendation(),
			RawText:        res.Document.Text,
		})
		report.Processed++

		s.logger.Debug("candidate scored",
			zap.String("file", file.Name),
			zap.String("outcome", res.Outcome.String()),
			zap.Int("score", match.Score),
		)
	}

	s.mu.Lock()
	s.results = results
	s.shortlist = map[string]bool{}
	s.mu.Unlock()

	if report.Processed == 0 {
		report.Status = StatusNoValidResumes
	} else {
		report.Status = StatusProcessed(report.Processed)
	}
	s.status(report.Status)

	s.logger.Info("batch processed",
		zap.Int("files", len(files)),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
	)

	return report, nil
}

// ToggleShortlist flips the flag of the named candidate and returns the new
// value. found is false, and nothing changes, when no result has that name.
// Results sharing a name share the flag.
func (s *Session) ToggleShortlist(candidate string) (shortlisted bool, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.results {
		if r.Candidate == candidate {
			found = true
			break
		}
	}
	if !found {
		return false, false
	}

	s.shortlist[candidate] = !s.shortlist[candidate]
	return s.shortlist[candidate], true
}

// View returns copies of the results selected by mode, in processing order.
func (s *Session) View(mode ViewMode) []MatchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]MatchResult, 0, len(s.results))
	for _, r := range s.results {
		r.Shortlisted = s.shortlist[r.Candidate]
		if mode == ViewShortlisted && !r.Shortlisted {
			continue
		}
		r.Matched = slices.Clone(r.Matched)
		r.Missing = slices.Clone(r.Missing)
		out = append(out, r)
	}
	return out
}

// Clear discards the result collection and the shortlist.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
	s.shortlist = map[string]bool{}
}

func (s *Session) status(st Status) {
	if s.onStatus != nil {
		s.onStatus(st)
	}
}
