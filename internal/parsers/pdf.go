package parsers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

type PDFParser struct{}

func (p *PDFParser) SupportedTypes() []string { return []string{"application/pdf"} }

func (p *PDFParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	doc := &Document{}
	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		doc.Sections = append(doc.Sections, splitPageSections(text)...)
	}

	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("no extractable text in pdf (%d pages)", totalPages)
	}
	if doc.Sections[0].Heading != "" {
		doc.Title = doc.Sections[0].Heading
	}
	return doc, nil
}

// splitPageSections breaks page text into sections at lines that look like
// headings: short all-caps lines or numbered section markers.
func splitPageSections(text string) []Section {
	lines := strings.Split(text, "\n")
	var sections []Section
	var current strings.Builder
	var heading string

	flush := func() {
		content := strings.TrimSpace(current.String())
		if content != "" || heading != "" {
			sections = append(sections, Section{Heading: heading, Content: content})
		}
		current.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			continue
		}
		if isLikelyHeading(trimmed) {
			flush()
			heading = trimmed
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(trimmed)
	}
	flush()
	return sections
}

func isLikelyHeading(line string) bool {
	if len(line) > 80 {
		return false
	}
	words := strings.Fields(line)
	if len(words) == 0 {
		return false
	}

	// Numbered sections: "1.", "2.3", "IV."
	first := words[0]
	if strings.HasSuffix(first, ".") || strings.Contains(first, ".") {
		digits := strings.Trim(first, ".")
		if digits != "" && strings.IndexFunc(digits, func(r rune) bool {
			return !unicode.IsDigit(r) && r != '.'
		}) < 0 {
			return len(words) <= 12
		}
	}

	// Short all-caps lines
	letters := 0
	uppers := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters >= 3 && uppers == letters && len(words) <= 10 {
		return true
	}
	return false
}
