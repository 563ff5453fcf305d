package cv

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubOCR struct {
	text  string
	err   error
	calls int
	last  []byte
}

func (s *stubOCR) Recognize(_ context.Context, image []byte) (string, error) {
	s.calls++
	s.last = image
	return s.text, s.err
}

type stubRasterizer struct {
	image []byte
	err   error
	calls int
	scale float64
}

func (s *stubRasterizer) RenderFirstPage(_ context.Context, _ []byte, scale float64) ([]byte, error) {
	s.calls++
	s.scale = scale
	return s.image, s.err
}

func staticExtractor(text string, err error) Extractor {
	return ExtractorFunc(func(context.Context, SourceFile) (string, error) {
		return text, err
	})
}

const longPDFText = "Senior Go engineer with ten years of backend experience"

func TestParseFile_PlainText(t *testing.T) {
	p := NewParser(WithOCR(&stubOCR{}), WithRasterizer(&stubRasterizer{}))

	res := p.ParseFile(context.Background(), SourceFile{
		Name: "jane.txt",
		Data: []byte("  Jane Doe\n\nPython\x00developer\t with AWS  "),
	})

	require.False(t, res.Skipped())
	assert.Equal(t, FormatText, res.Format)
	assert.Equal(t, OutcomeExtracted, res.Outcome)
	assert.Equal(t, "jane.txt", res.Document.Name)
	assert.Equal(t, "Jane Doe Python developer with AWS", res.Document.Text)
	assert.NoError(t, res.Err)
}

func TestParseFile_Unsupported(t *testing.T) {
	p := NewParser()

	res := p.ParseFile(context.Background(), SourceFile{Name: "candidates.xlsx", Data: []byte("PK")})

	assert.True(t, res.Skipped())
	assert.ErrorIs(t, res.Err, ErrUnsupportedFormat)
	assert.Contains(t, res.Err.Error(), ".xlsx")
	assert.Empty(t, res.Document.Text)
}

func TestParseFile_ImageUsesOCR(t *testing.T) {
	ocr := &stubOCR{text: "  Scanned\nresume text  "}
	p := NewParser(WithOCR(ocr))

	res := p.ParseFile(context.Background(), SourceFile{Name: "scan", MIMEType: "image/png", Data: []byte{1, 2, 3}})

	require.False(t, res.Skipped())
	assert.Equal(t, FormatImage, res.Format)
	assert.Equal(t, "Scanned resume text", res.Document.Text)
	assert.Equal(t, []byte{1, 2, 3}, ocr.last)
}

func TestParseFile_ImageWithoutTextIsNotSkipped(t *testing.T) {
	p := NewParser(WithOCR(&stubOCR{text: ""}))

	res := p.ParseFile(context.Background(), SourceFile{Name: "blank.jpg"})

	assert.False(t, res.Skipped())
	assert.Empty(t, res.Document.Text)
}

func TestParseFile_ImageOCRFailure(t *testing.T) {
	p := NewParser(WithOCR(&stubOCR{err: errors.New("tesseract crashed")}))

	res := p.ParseFile(context.Background(), SourceFile{Name: "scan.png"})

	assert.True(t, res.Skipped())
	assert.ErrorIs(t, res.Err, ErrExtraction)

	var extractionErr *ExtractionError
	require.ErrorAs(t, res.Err, &extractionErr)
	assert.Equal(t, FormatImage, extractionErr.Format)
}

func TestParseFile_ImageWithoutEngine(t *testing.T) {
	p := NewParser()

	res := p.ParseFile(context.Background(), SourceFile{Name: "scan.png"})

	assert.True(t, res.Skipped())
	assert.ErrorIs(t, res.Err, ErrExtraction)
}

func TestParseFile_ExtractorErrorIsWrapped(t *testing.T) {
	p := NewParser(WithExtractor(FormatDOCX, staticExtractor("", errors.New("bad zip"))))

	res := p.ParseFile(context.Background(), SourceFile{Name: "cv.docx"})

	assert.True(t, res.Skipped())
	assert.ErrorIs(t, res.Err, ErrExtraction)
	assert.Contains(t, res.Err.Error(), "bad zip")
}

func TestParseFile_PDFWithTextLayer(t *testing.T) {
	ocr := &stubOCR{text: "should not be used"}
	raster := &stubRasterizer{image: []byte("png")}
	p := NewParser(
		WithExtractor(FormatPDF, staticExtractor(longPDFText, nil)),
		WithOCR(ocr),
		WithRasterizer(raster),
	)

	res := p.ParseFile(context.Background(), SourceFile{Name: "cv.pdf"})

	require.False(t, res.Skipped())
	assert.Equal(t, OutcomeExtracted, res.Outcome)
	assert.Equal(t, longPDFText, res.Document.Text)
	assert.Zero(t, raster.calls)
	assert.Zero(t, ocr.calls)
}

func TestParseFile_PDFFallback(t *testing.T) {
	tests := []struct {
		name        string
		pdfText     string
		pdfErr      error
		ocrText     string
		ocrErr      error
		rasterErr   error
		wantOutcome Outcome
		wantText    string
		wantErr     error
	}{
		{
			name:        "short text layer uses OCR",
			pdfText:     "Jane Doe",
			ocrText:     "Jane Doe\nPython developer with Docker",
			wantOutcome: OutcomeFallback,
			wantText:    "Jane Doe Python developer with Docker",
		},
		{
			name:        "parse failure uses OCR",
			pdfErr:      errors.New("xref table broken"),
			ocrText:     "Scanned resume",
			wantOutcome: OutcomeFallback,
			wantText:    "Scanned resume",
		},
		{
			name:        "empty OCR keeps short text",
			pdfText:     "Jane Doe",
			ocrText:     "   ",
			wantOutcome: OutcomeExtracted,
			wantText:    "Jane Doe",
		},
		{
			name:        "rasterizer failure keeps short text",
			pdfText:     "Jane Doe",
			rasterErr:   errors.New("pdftoppm missing"),
			wantOutcome: OutcomeExtracted,
			wantText:    "Jane Doe",
		},
		{
			name:        "parse failure and OCR failure skip",
			pdfErr:      errors.New("not a pdf"),
			ocrErr:      errors.New("tesseract failed"),
			wantOutcome: OutcomeSkipped,
			wantErr:     ErrExtraction,
		},
		{
			name:        "text of exactly the threshold is kept",
			pdfText:     strings.Repeat("a", MinPDFTextLength),
			ocrText:     "should not be used",
			wantOutcome: OutcomeExtracted,
			wantText:    strings.Repeat("a", MinPDFTextLength),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raster := &stubRasterizer{image: []byte("png"), err: tt.rasterErr}
			p := NewParser(
				WithExtractor(FormatPDF, staticExtractor(tt.pdfText, tt.pdfErr)),
				WithOCR(&stubOCR{text: tt.ocrText, err: tt.ocrErr}),
				WithRasterizer(raster),
			)

			res := p.ParseFile(context.Background(), SourceFile{Name: "cv.pdf"})

			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.Equal(t, FormatPDF, res.Format)
			assert.Equal(t, tt.wantText, res.Document.Text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			} else {
				assert.NoError(t, res.Err)
			}
		})
	}
}

func TestParseFile_PDFFallbackUsesRenderScale(t *testing.T) {
	raster := &stubRasterizer{image: []byte("png")}
	p := NewParser(
		WithExtractor(FormatPDF, staticExtractor("", nil)),
		WithOCR(&stubOCR{text: "ocr text"}),
		WithRasterizer(raster),
		WithRenderScale(3),
	)

	p.ParseFile(context.Background(), SourceFile{Name: "cv.pdf"})

	assert.Equal(t, 1, raster.calls)
	assert.Equal(t, 3.0, raster.scale)
}

func TestParseFile_PDFFallbackDisabled(t *testing.T) {
	ocr := &stubOCR{text: "ocr text"}
	p := NewParser(
		WithExtractor(FormatPDF, staticExtractor("short", nil)),
		WithOCR(ocr),
		WithRasterizer(&stubRasterizer{image: []byte("png")}),
		WithoutPDFFallback(),
	)

	res := p.ParseFile(context.Background(), SourceFile{Name: "jd.pdf"})

	assert.Equal(t, OutcomeExtracted, res.Outcome)
	assert.Equal(t, "short", res.Document.Text)
	assert.Zero(t, ocr.calls)

	p = NewParser(
		WithExtractor(FormatPDF, staticExtractor("", errors.New("broken"))),
		WithoutPDFFallback(),
	)
	res = p.ParseFile(context.Background(), SourceFile{Name: "jd.pdf"})
	assert.True(t, res.Skipped())
}

func TestParseFile_PDFFallbackLogsFailure(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	p := NewParser(
		WithExtractor(FormatPDF, staticExtractor("tiny", nil)),
		WithRasterizer(&stubRasterizer{err: errors.New("no poppler")}),
		WithOCR(&stubOCR{}),
		WithLogger(zap.New(core)),
	)

	p.ParseFile(context.Background(), SourceFile{Name: "cv.pdf"})

	warnings := observed.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "cv.pdf", warnings[0].ContextMap()["file"])
}

func TestPDFExtractor_MalformedDocument(t *testing.T) {
	_, err := PDFExtractor{}.Extract(context.Background(), SourceFile{Name: "broken.pdf", Data: []byte("definitely not a pdf")})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestDOCXExtractor_MalformedContainer(t *testing.T) {
	_, err := DOCXExtractor{}.Extract(context.Background(), SourceFile{Name: "broken.docx", Data: []byte("not a zip archive")})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestDOCXExtractor_ReadsDocumentBody(t *testing.T) {
	data := buildDocx(t, "Python developer", "Docker and Kubernetes")

	text, err := DOCXExtractor{}.Extract(context.Background(), SourceFile{Name: "cv.docx", Data: data})

	require.NoError(t, err)
	assert.Contains(t, text, "Python developer")
	assert.Contains(t, text, "Docker and Kubernetes")
}

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}
