// Package loader provides document loading adapters implementing
// ports.DocumentLoader.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
)

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrExtraction, err)
	}
	return newDocument(path, string(content)), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// PDFLoader reads PDF files and hands the bytes to a DocumentParser.
type PDFLoader struct {
	parser ports.DocumentParser
}

// NewPDFLoader creates a PDF loader backed by parser.
func NewPDFLoader(parser ports.DocumentParser) *PDFLoader {
	return &PDFLoader{parser: parser}
}

// Load extracts the text of a PDF. A document without any text is an
// extraction failure.
func (l *PDFLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrExtraction, err)
	}

	text, err := l.parser.Parse(ctx, data, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrExtraction, err)
	}

	text = cleanPDFContent(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s contains no text", entities.ErrExtraction, filepath.Base(path))
	}
	return newDocument(path, text), nil
}

// SupportedExtensions returns file extensions.
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

// MultiLoader dispatches to a loader by file extension.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
}

// NewMultiLoader registers each loader under its supported extensions.
// Later loaders win on conflicts.
func NewMultiLoader(loaders ...ports.DocumentLoader) *MultiLoader {
	m := &MultiLoader{loaders: make(map[string]ports.DocumentLoader)}
	for _, l := range loaders {
		for _, ext := range l.SupportedExtensions() {
			m.loaders[ext] = l
		}
	}
	return m
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file type %q", entities.ErrExtraction, ext)
	}
	return l.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func newDocument(path, content string) *entities.Document {
	doc := &entities.Document{
		ID:      generateDocID(path),
		Name:    filepath.Base(path),
		Path:    path,
		Content: content,
	}
	if info, err := os.Stat(path); err == nil {
		doc.CreatedAt = info.ModTime()
	}
	return doc
}

// generateDocID creates a deterministic ID for a document.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// cleanPDFContent drops control characters and collapses whitespace, so
// sentences broken across lines still split on ". ".
func cleanPDFContent(content string) string {
	var cleaned strings.Builder
	space := false
	for _, r := range content {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
		default:
			if space && cleaned.Len() > 0 {
				cleaned.WriteByte(' ')
			}
			space = false
			cleaned.WriteRune(r)
		}
	}
	return cleaned.String()
}
