package cv

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the text layer page by page. Every shown text item of a
// page is joined with single spaces, rows top to bottom, and pages with a newline.
type PDFExtractor struct{}

func (PDFExtractor) Extract(_ context.Context, file SourceFile) (text string, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Name: file.Name, Format: FormatPDF, Err: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		return "", &ExtractionError{Name: file.Name, Format: FormatPDF, Err: err}
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", &ExtractionError{Name: file.Name, Format: FormatPDF, Err: fmt.Errorf("page %d: %w", i, err)}
		}

		var items []string
		for _, row := range rows {
			for _, word := range row.Content {
				if item := strings.TrimSpace(word.S); item != "" {
					items = append(items, item)
				}
			}
		}

		sb.WriteString(strings.Join(items, " "))
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String()), nil
}
