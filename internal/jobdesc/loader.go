// Package jobdesc loads a job description from a file, a path or a URL.
package jobdesc

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"cv-screener/internal/cv"
	"cv-screener/internal/logging"
	apphttp "cv-screener/pkg/http"
)

var ErrEmptyDescription = errors.New("job description has no text")

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type FileParser interface {
	ParseFile(ctx context.Context, file cv.SourceFile) cv.Result
}

type Loader struct {
	parser FileParser
	client *apphttp.Client
	logger *zap.Logger
}

// NewLoader uses parser for non-HTML files. It should be built without the
// PDF OCR fallback.
func NewLoader(parser FileParser, client *apphttp.Client, logger *zap.Logger) *Loader {
	return &Loader{parser: parser, client: client, logger: logging.OrNop(logger)}
}

// Load treats source as a URL when it has an http or https scheme, otherwise as a path.
func (l *Loader) Load(ctx context.Context, source string) (string, error) {
	if IsURL(source) {
		return l.LoadURL(ctx, source)
	}
	return l.LoadPath(ctx, source)
}

func (l *Loader) LoadPath(ctx context.Context, p string) (string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("failed to read job description: %w", err)
	}
	return l.LoadFile(ctx, cv.SourceFile{Name: filepath.Base(p), Data: data})
}

// LoadFile returns the normalized text of an uploaded job description.
func (l *Loader) LoadFile(ctx context.Context, file cv.SourceFile) (string, error) {
	var (
		text string
		err  error
	)

	if isHTML(file) {
		text, err = HTMLText(file.Data)
		if err != nil {
			return "", err
		}
		text = cv.Normalize(text)
	} else {
		res := l.parser.ParseFile(ctx, file)
		if res.Skipped() {
			return "", res.Err
		}
		text = res.Document.Text
	}

	if text == "" {
		return "", ErrEmptyDescription
	}

	l.logger.Debug("job description loaded", zap.String("source", file.Name), zap.Int("length", len(text)))
	return text, nil
}

func (l *Loader) LoadURL(ctx context.Context, rawURL string) (string, error) {
	if l.client == nil {
		return "", fmt.Errorf("no HTTP client configured")
	}

	resp, err := l.client.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.ContentType)
	return l.LoadFile(ctx, cv.SourceFile{
		Name:     fileNameFor(rawURL, mediaType),
		MIMEType: mediaType,
		Data:     resp.Body,
	})
}

func IsURL(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isHTML(file cv.SourceFile) bool {
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".html", ".htm":
		return true
	}
	return file.MIMEType == "text/html" || file.MIMEType == "application/xhtml+xml"
}

// fileNameFor derives a name whose extension matches what the server sent.
func fileNameFor(rawURL, mediaType string) string {
	name := "job"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			name = base
		}
	}

	var ext string
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		ext = ".html"
	case "text/plain":
		ext = ".txt"
	case "application/pdf":
		ext = ".pdf"
	case docxMIME:
		ext = ".docx"
	default:
		return name
	}

	if strings.ToLower(path.Ext(name)) == ext {
		return name
	}
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}
