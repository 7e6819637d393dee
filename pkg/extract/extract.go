// Package extract converts uploaded documents (PDF, DOCX, images) into plain
// text. Extraction is first-pass, best-effort: no retries, and per-page
// failures inside a document do not fail the whole document.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is the closed set of supported document kinds. Dispatch happens on
// the declared file extension, not on sniffed content.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatDOCX
	FormatImage
)

// formats is the canonical extension allow-list. The route layer and the
// storage config both consult it through IsAllowed, so there is a single
// source of truth for what may be uploaded.
var formats = map[string]Format{
	"pdf":  FormatPDF,
	"docx": FormatDOCX,
	"jpg":  FormatImage,
	"jpeg": FormatImage,
	"png":  FormatImage,
}

// DetectFormat maps a file extension (without the leading dot, any case) to
// its Format.
func DetectFormat(ext string) Format {
	f, ok := formats[strings.ToLower(strings.TrimPrefix(ext, "."))]
	if !ok {
		return FormatUnsupported
	}
	return f
}

// IsAllowed reports whether the filename carries a supported extension.
func IsAllowed(filename string) bool {
	return DetectFormat(filepath.Ext(filename)) != FormatUnsupported
}

// SupportedList returns the allow-list for user-facing error messages.
func SupportedList() string {
	return "pdf, docx, jpg, jpeg, png"
}

// Extract reads the file at path and returns its text content. The extension
// drives dispatch; a missing file or unsupported extension is reported as a
// descriptive error so callers get uniform error handling.
func Extract(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file does not exist: %s", filepath.Base(path))
	}
	switch DetectFormat(filepath.Ext(path)) {
	case FormatPDF:
		return extractPDF(path)
	case FormatDOCX:
		return extractDocx(path)
	case FormatImage:
		return extractImage(path)
	default:
		return "", fmt.Errorf("unsupported file type (supported: %s)", SupportedList())
	}
}
