package cv

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for files outside the known format set.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrTextTooShort marks a document whose normalized text is below MinTextLength.
	ErrTextTooShort = errors.New("extracted text too short")
	// ErrExtraction is the sentinel every ExtractionError matches with errors.Is.
	ErrExtraction = errors.New("extraction failed")
)

// ExtractionError is a format-specific parse failure.
type ExtractionError struct {
	Name   string
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s extraction failed: %v", e.Name, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }
