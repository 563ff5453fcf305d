package cv

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// MinPDFTextLength is the trimmed text-layer length below which a PDF is OCRed instead.
	MinPDFTextLength = 40
	// MinTextLength is the normalized length below which a document is skipped.
	MinTextLength = 20
)

// Outcome tells how a document's text was obtained.
type Outcome int

const (
	OutcomeExtracted Outcome = iota
	// OutcomeFallback means the text came from OCR of the rendered first PDF page.
	OutcomeFallback
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeFallback:
		return "ocr_fallback"
	default:
		return "skipped"
	}
}

// Result is the outcome of parsing a single file. Err is set only when the
// file was skipped.
type Result struct {
	Document ExtractedDocument
	Format   Format
	Outcome  Outcome
	Err      error
}

func (r Result) Skipped() bool { return r.Outcome == OutcomeSkipped }

// Parser maps every Format to one extraction strategy and applies the PDF OCR fallback.
type Parser struct {
	extractors  map[Format]Extractor
	ocr         OCREngine
	rasterizer  Rasterizer
	renderScale float64
	pdfFallback bool
	logger      *zap.Logger
}

type Option func(*Parser)

// WithExtractor replaces the strategy used for a format.
func WithExtractor(format Format, extractor Extractor) Option {
	return func(p *Parser) { p.extractors[format] = extractor }
}

func WithOCR(engine OCREngine) Option {
	return func(p *Parser) { p.ocr = engine }
}

func WithRasterizer(r Rasterizer) Option {
	return func(p *Parser) { p.rasterizer = r }
}

func WithRenderScale(scale float64) Option {
	return func(p *Parser) {
		if scale > 0 {
			p.renderScale = scale
		}
	}
}

// WithoutPDFFallback disables OCR of the first page for PDFs with a poor text layer.
func WithoutPDFFallback() Option {
	return func(p *Parser) { p.pdfFallback = false }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		extractors: map[Format]Extractor{
			FormatText: TextExtractor{},
			FormatPDF:  PDFExtractor{},
			FormatDOCX: DOCXExtractor{},
		},
		renderScale: DefaultRenderScale,
		pdfFallback: true,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.rasterizer == nil {
		p.rasterizer = NewPopplerRasterizer("")
	}
	if _, ok := p.extractors[FormatImage]; !ok {
		p.extractors[FormatImage] = ImageExtractor{OCR: p.ocr}
	}

	return p
}

// ParseFile extracts and normalizes the text of one file. Failures never
// escape as errors: they come back as a skipped Result.
func (p *Parser) ParseFile(ctx context.Context, file SourceFile) Result {
	format := Classify(file.Name, file.MIMEType)
	if format == FormatUnsupported {
		ext := strings.ToLower(filepath.Ext(file.Name))
		if ext == "" {
			ext = "no extension"
		}
		return skipped(file, format, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext))
	}

	extractor := p.extractors[format]
	if format == FormatPDF {
		return p.parsePDF(ctx, file, extractor)
	}

	raw, err := extractor.Extract(ctx, file)
	if err != nil {
		return skipped(file, format, asExtractionError(file, format, err))
	}

	return Result{
		Document: ExtractedDocument{Name: file.Name, Text: Normalize(raw)},
		Format:   format,
		Outcome:  OutcomeExtracted,
	}
}

func (p *Parser) parsePDF(ctx context.Context, file SourceFile, extractor Extractor) Result {
	raw, err := extractor.Extract(ctx, file)
	if err != nil {
		err = asExtractionError(file, FormatPDF, err)
	}

	if err == nil && utf8.RuneCountInString(strings.TrimSpace(raw)) >= MinPDFTextLength {
		return extracted(file, raw)
	}

	if !p.pdfFallback {
		if err != nil {
			return skipped(file, FormatPDF, err)
		}
		return extracted(file, raw)
	}

	p.logger.Debug("pdf text layer insufficient, running OCR on first page",
		zap.String("file", file.Name),
		zap.Int("text_length", utf8.RuneCountInString(strings.TrimSpace(raw))),
		zap.NamedError("extract_error", err),
	)

	ocrText, ocrErr := p.ocrFirstPage(ctx, file)
	if ocrErr != nil {
		p.logger.Warn("pdf OCR fallback failed", zap.String("file", file.Name), zap.Error(ocrErr))
	}

	if ocrErr == nil && strings.TrimSpace(ocrText) != "" {
		return Result{
			Document: ExtractedDocument{Name: file.Name, Text: Normalize(ocrText)},
			Format:   FormatPDF,
			Outcome:  OutcomeFallback,
		}
	}

	if err != nil {
		return skipped(file, FormatPDF, err)
	}
	return extracted(file, raw)
}

func (p *Parser) ocrFirstPage(ctx context.Context, file SourceFile) (string, error) {
	if p.rasterizer == nil {
		return "", errNoRasterizer
	}
	if p.ocr == nil {
		return "", errNoOCREngine
	}

	image, err := p.rasterizer.RenderFirstPage(ctx, file.Data, p.renderScale)
	if err != nil {
		return "", fmt.Errorf("render first page: %w", err)
	}
	return p.ocr.Recognize(ctx, image)
}

func extracted(file SourceFile, raw string) Result {
	return Result{
		Document: ExtractedDocument{Name: file.Name, Text: Normalize(raw)},
		Format:   FormatPDF,
		Outcome:  OutcomeExtracted,
	}
}

func skipped(file SourceFile, format Format, err error) Result {
	return Result{
		Document: ExtractedDocument{Name: file.Name},
		Format:   format,
		Outcome:  OutcomeSkipped,
		Err:      err,
	}
}

func asExtractionError(file SourceFile, format Format, err error) error {
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return err
	}
	return &ExtractionError{Name: file.Name, Format: format, Err: err}
}
