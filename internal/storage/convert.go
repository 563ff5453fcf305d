package storage

import (
	"cv-screener/internal/matching"
	"cv-screener/internal/screening"
)

// NewRunResults keeps the processing position and drops the extracted text.
func NewRunResults(results []screening.MatchResult) []RunResult {
	out := make([]RunResult, len(results))
	for i, r := range results {
		out[i] = RunResult{
			Position:       i,
			Candidate:      r.Candidate,
			Score:          r.Score,
			Matched:        r.Matched,
			Missing:        r.Missing,
			Recommendation: string(r.Recommendation),
			Shortlisted:    r.Shortlisted,
		}
	}
	return out
}

// MatchResults rebuilds exportable rows from an archived run.
func MatchResults(stored []RunResult) []screening.MatchResult {
	out := make([]screening.MatchResult, len(stored))
	for i, r := range stored {
		out[i] = screening.MatchResult{
			Candidate:      r.Candidate,
			Score:          r.Score,
			Matched:        r.Matched,
			Missing:        r.Missing,
			Recommendation: matching.Recommendation(r.Recommendation),
			Shortlisted:    r.Shortlisted,
		}
	}
	return out
}
