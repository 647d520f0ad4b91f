// ABOUTME: Content loaders turning files into normalized plain text
// ABOUTME: Dispatches on extension: txt, md, pdf, docx, html; everything else is unsupported
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/harper/datachat/internal/models"
)

// Document is loaded source text plus the identity used to namespace its cache
type Document struct {
	Name string
	Path string
	Text string
}

// SupportedExtensions lists file extensions LoadFile accepts
var SupportedExtensions = []string{".txt", ".md", ".markdown", ".pdf", ".docx", ".html", ".htm"}

// LoadFile reads path and extracts its text according to its extension
func LoadFile(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var extract func([]byte) (string, error)
	switch ext {
	case ".txt", "":
		extract = func(b []byte) (string, error) { return string(b), nil }
	case ".md", ".markdown":
		extract = MarkdownText
	case ".pdf":
		extract = PDFText
	case ".docx":
		extract = DOCXText
	case ".html", ".htm":
		extract = func(b []byte) (string, error) { return HTMLText(b, nil) }
	default:
		return nil, fmt.Errorf("%w: %s files are not supported", models.ErrUnsupportedInput, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, err := extract(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrUnsupportedInput, filepath.Base(path), err)
	}

	text = Normalize(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s contains no text", models.ErrUnsupportedInput, filepath.Base(path))
	}

	return &Document{
		Name: filepath.Base(path),
		Path: path,
		Text: text,
	}, nil
}

// Normalize applies NFC, unifies line endings and trims surrounding space
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(text)
}
