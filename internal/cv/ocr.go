package cv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

const (
	// DefaultRenderScale is the upscale factor applied when a PDF page is rasterized for OCR.
	DefaultRenderScale = 2.0

	pdfPointsPerInch = 72
)

var (
	errNoOCREngine  = errors.New("no OCR engine configured")
	errNoRasterizer = errors.New("no PDF rasterizer configured")
)

// OCREngine recognizes text in a raster image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Rasterizer renders the first page of a PDF document to a PNG image.
type Rasterizer interface {
	RenderFirstPage(ctx context.Context, document []byte, scale float64) ([]byte, error)
}

// PopplerRasterizer shells out to pdftoppm.
type PopplerRasterizer struct {
	Binary string
}

func NewPopplerRasterizer(binary string) *PopplerRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &PopplerRasterizer{Binary: binary}
}

func (p *PopplerRasterizer) RenderFirstPage(ctx context.Context, document []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = DefaultRenderScale
	}

	dir, err := os.MkdirTemp("", "cv-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, document, 0600); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	dpi := strconv.Itoa(int(scale * pdfPointsPerInch))
	outPrefix := filepath.Join(dir, "page")

	cmd := exec.CommandContext(ctx, p.Binary, "-f", "1", "-l", "1", "-r", dpi, "-png", "-singlefile", input, outPrefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", p.Binary, err, out)
	}

	image, err := os.ReadFile(outPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}
	return image, nil
}
