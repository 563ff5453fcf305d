package cv

import (
	"context"
)

// SourceFile is a single uploaded document. It is never modified.
type SourceFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ExtractedDocument carries normalized text for one file.
type ExtractedDocument struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Extractor turns one format into raw, unnormalized text.
type Extractor interface {
	Extract(ctx context.Context, file SourceFile) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, file SourceFile) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, file SourceFile) (string, error) {
	return f(ctx, file)
}

// TextExtractor returns the raw bytes as text.
type TextExtractor struct{}

func (TextExtractor) Extract(_ context.Context, file SourceFile) (string, error) {
	return string(file.Data), nil
}

// ImageExtractor runs OCR over the whole image. No detected text is not an error.
type ImageExtractor struct {
	OCR OCREngine
}

func (e ImageExtractor) Extract(ctx context.Context, file SourceFile) (string, error) {
	if e.OCR == nil {
		return "", &ExtractionError{Name: file.Name, Format: FormatImage, Err: errNoOCREngine}
	}
	text, err := e.OCR.Recognize(ctx, file.Data)
	if err != nil {
		return "", &ExtractionError{Name: file.Name, Format: FormatImage, Err: err}
	}
	return text, nil
}
