package screening

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"cv-screener/internal/cv"
)

// LimitedParser bounds how many files are extracted at once, whichever
// session they belong to. OCR dominates memory and CPU.
type LimitedParser struct {
	parser FileParser
	sem    *semaphore.Weighted
}

// NewLimitedParser allows at most n concurrent ParseFile calls; n below 1 means 1.
func NewLimitedParser(parser FileParser, n int64) *LimitedParser {
	if n < 1 {
		n = 1
	}
	return &LimitedParser{parser: parser, sem: semaphore.NewWeighted(n)}
}

func (l *LimitedParser) ParseFile(ctx context.Context, file cv.SourceFile) cv.Result {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return cv.Result{
			Document: cv.ExtractedDocument{Name: file.Name},
			Format:   cv.Classify(file.Name, file.MIMEType),
			Outcome:  cv.OutcomeSkipped,
			Err:      fmt.Errorf("waiting for extraction slot: %w", err),
		}
	}
	defer l.sem.Release(1)

	return l.parser.ParseFile(ctx, file)
}
