// Package ocr binds the tesseract engine for image and scanned-page recognition.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is the fixed recognition language.
const DefaultLanguage = "eng"

// Tesseract runs tesseract through gosseract. A client is created per call, so
// concurrent use is safe but every call pays the engine start-up cost.
type Tesseract struct {
	Language string
}

func NewTesseract(language string) *Tesseract {
	if language == "" {
		language = DefaultLanguage
	}
	return &Tesseract{Language: language}
}

// Recognize returns the text found in the image; an image without text yields "".
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.Language); err != nil {
		return "", fmt.Errorf("set OCR language %q: %w", t.Language, err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
