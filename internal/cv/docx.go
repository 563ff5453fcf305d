package cv

import (
	"bytes"
	"context"
	"fmt"

	"code.sajari.com/docconv"
)

// DOCXExtractor reads the raw text layer of a Word document.
type DOCXExtractor struct{}

func (DOCXExtractor) Extract(_ context.Context, file SourceFile) (text string, err error) {
	// docconv dereferences missing parts of a broken container
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Name: file.Name, Format: FormatDOCX, Err: fmt.Errorf("malformed container: %v", r)}
		}
	}()

	text, _, err = docconv.ConvertDocx(bytes.NewReader(file.Data))
	if err != nil {
		return "", &ExtractionError{Name: file.Name, Format: FormatDOCX, Err: err}
	}
	return text, nil
}
