package parsers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

type TextParser struct{}

func (p *TextParser) SupportedTypes() []string {
	return []string{"text/plain", "text/markdown", "text/csv"}
}

func (p *TextParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading text: %w", err)
	}
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	text = normalizeNewlines(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text document")
	}

	sections, title := splitMarkdownSections(text)
	return &Document{Title: title, Sections: sections}, nil
}

// decodeText handles UTF-8 (with or without BOM), UTF-16 via BOM, and falls
// back to Latin-1, which can decode any byte sequence.
func decodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, err := decoder.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decoding utf-16 text: %w", err)
		}
		return string(decoded), nil
	case utf8.Valid(data):
		return string(data), nil
	default:
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decoding latin-1 text: %w", err)
		}
		return string(decoded), nil
	}
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// splitMarkdownSections groups text under markdown-style "#" headings.
// Plain files without headings come back as a single section.
func splitMarkdownSections(text string) ([]Section, string) {
	lines := strings.Split(text, "\n")
	var sections []Section
	var current strings.Builder
	var heading string
	title := ""

	flush := func() {
		content := strings.TrimSpace(current.String())
		if content != "" || heading != "" {
			sections = append(sections, Section{Heading: heading, Content: content})
		}
		current.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			h := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if h != "" {
				if title == "" && strings.HasPrefix(trimmed, "# ") {
					title = h
				}
				flush()
				heading = h
				continue
			}
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	if len(sections) == 0 {
		sections = []Section{{Content: strings.TrimSpace(text)}}
	}
	return sections, title
}
