package parsers

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Section is one logical block of a parsed document.
type Section struct {
	Heading string
	Content string
}

// Document is the parser output handed to the chunker.
type Document struct {
	Title    string
	Sections []Section
}

// Parser extracts plain text from one document format.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) (*Document, error)
	SupportedTypes() []string
}

// Document formats ForFile can resolve.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatText = "text"
)

// ForFile picks a parser from the MIME type, falling back to the filename
// extension when the MIME type is generic or absent.
func ForFile(mimeType, filename string) (Parser, error) {
	switch formatFor(mimeType, filename) {
	case FormatPDF:
		return &PDFParser{}, nil
	case FormatDOCX:
		return &DOCXParser{}, nil
	case FormatText:
		return &TextParser{}, nil
	}
	return nil, fmt.Errorf("unsupported document type %q (%s)", mimeType, filename)
}

// FormatForFile names the format ForFile would parse, using the same
// MIME-then-extension resolution.
func FormatForFile(mimeType, filename string) (string, error) {
	format := formatFor(mimeType, filename)
	if format == "" {
		return "", fmt.Errorf("unsupported document type %q (%s)", mimeType, filename)
	}
	return format, nil
}

func formatFor(mimeType, filename string) string {
	switch normalizeMime(mimeType) {
	case "application/pdf":
		return FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX
	case "text/plain", "text/markdown", "text/csv":
		return FormatText
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt", ".md", ".markdown", ".text", ".csv":
		return FormatText
	}
	return ""
}

func normalizeMime(mimeType string) string {
	mimeType = strings.TrimSpace(strings.ToLower(mimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.TrimSpace(mimeType)
}

// Text flattens the document into the canonical text the chunker indexes
// into: sections joined by blank lines, headings on their own line.
func (d *Document) Text() string {
	var b strings.Builder
	for i, sec := range d.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if sec.Heading != "" {
			b.WriteString(sec.Heading)
			b.WriteString("\n\n")
		}
		b.WriteString(sec.Content)
	}
	return b.String()
}
