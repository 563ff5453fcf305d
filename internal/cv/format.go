package cv

import (
	"mime"
	"path/filepath"
	"strings"
)

// Format is the closed set of document kinds the parser understands.
type Format int

const (
	FormatUnsupported Format = iota
	FormatText
	FormatPDF
	FormatDOCX
	FormatImage
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	case FormatImage:
		return "image"
	default:
		return "unsupported"
	}
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".pnm":  true,
}

// Classify resolves the format of a file from its name and declared MIME type.
// The file content is never inspected.
func Classify(name, mimeType string) Format {
	ext := strings.ToLower(filepath.Ext(name))

	if isImageMIME(mimeType) || imageExtensions[ext] {
		return FormatImage
	}

	switch ext {
	case ".txt":
		return FormatText
	case ".docx":
		return FormatDOCX
	case ".pdf":
		return FormatPDF
	default:
		return FormatUnsupported
	}
}

func isImageMIME(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	return strings.HasPrefix(mediaType, "image/")
}
