package screening

import (
	"cv-screener/internal/matching"
)

// MatchResult is one scored candidate. Records are immutable once created;
// the shortlist flag is kept by the Session and merged in by views.
type MatchResult struct {
	Candidate      string                  `json:"candidate"`
	Score          int                     `json:"score"`
	Matched        []string                `json:"matched"`
	Missing        []string                `json:"missing"`
	Recommendation matching.Recommendation `json:"recommendation"`
	RawText        string                  `json:"raw_text,omitempty"`
	Shortlisted    bool                    `json:"shortlisted"`
}

// ViewMode selects which results a view returns.
type ViewMode string

const (
	ViewAll         ViewMode = "all"
	ViewShortlisted ViewMode = "shortlisted"
)

// ParseViewMode accepts "all" (also the empty string) and "shortlisted".
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case "", ViewAll:
		return ViewAll, nil
	case ViewShortlisted:
		return ViewShortlisted, nil
	default:
		return "", ErrInvalidView
	}
}

// SkipNote records why a file contributed nothing to the results.
type SkipNote struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// BatchReport summarizes one Process call.
type BatchReport struct {
	Processed int        `json:"processed"`
	Skipped   int        `json:"skipped"`
	Skips     []SkipNote `json:"skips,omitempty"`
	Status    Status     `json:"status"`
}

func (r BatchReport) NoValidResumes() bool {
	return r.Processed == 0
}
