package storage

import (
	"time"

	"github.com/google/uuid"
)

// Run is one archived screening batch. Extracted document text is never stored.
type Run struct {
	ID             uuid.UUID `json:"id"`
	SessionID      string    `json:"session_id"`
	JobDescription string    `json:"job_description"`
	Processed      int       `json:"processed"`
	Skipped        int       `json:"skipped"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunResult is one scored candidate of a run, in processing order.
type RunResult struct {
	Position       int      `json:"position"`
	Candidate      string   `json:"candidate"`
	Score          int      `json:"score"`
	Matched        []string `json:"matched"`
	Missing        []string `json:"missing"`
	Recommendation string   `json:"recommendation"`
	Shortlisted    bool     `json:"shortlisted"`
}
