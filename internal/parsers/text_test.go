package parsers

import (
	"context"
	"strings"
	"testing"
)

func TestTextParserPlainFile(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(context.Background(), strings.NewReader("Just a plain note.\nSecond line."))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("sections: want=1 got=%d", len(doc.Sections))
	}
	if doc.Sections[0].Heading != "" {
		t.Fatalf("plain file should have no heading, got %q", doc.Sections[0].Heading)
	}
	if !strings.Contains(doc.Sections[0].Content, "Second line.") {
		t.Fatal("content lost a line")
	}
}

func TestTextParserMarkdownSections(t *testing.T) {
	input := "# Guide\n\nIntro paragraph.\n\n## Setup\n\nRun the installer.\n\n## Usage\n\nStart the app."
	p := &TextParser{}
	doc, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Title != "Guide" {
		t.Fatalf("title: want=%q got=%q", "Guide", doc.Title)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("sections: want=3 got=%d", len(doc.Sections))
	}
	headings := []string{"Guide", "Setup", "Usage"}
	for i, want := range headings {
		if doc.Sections[i].Heading != want {
			t.Fatalf("section %d heading: want=%q got=%q", i, want, doc.Sections[i].Heading)
		}
	}
	if doc.Sections[1].Content != "Run the installer." {
		t.Fatalf("setup content: got=%q", doc.Sections[1].Content)
	}
}

func TestTextParserEmptyInput(t *testing.T) {
	p := &TextParser{}
	if _, err := p.Parse(context.Background(), strings.NewReader("   \n\t ")); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestDecodeText(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{name: "utf8", data: []byte("héllo"), want: "héllo"},
		{name: "utf8 bom stripped", data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("hi")...), want: "hi"},
		{name: "utf16 le bom", data: []byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00}, want: "hi"},
		{name: "latin1 fallback", data: []byte{'c', 'a', 'f', 0xE9}, want: "café"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeText(tc.data)
			if err != nil {
				t.Fatalf("decodeText: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want=%q got=%q", tc.want, got)
			}
		})
	}
}

func TestNormalizeNewlines(t *testing.T) {
	if got := normalizeNewlines("a\r\nb\rc\nd"); got != "a\nb\nc\nd" {
		t.Fatalf("got=%q", got)
	}
}

func TestForFile(t *testing.T) {
	cases := []struct {
		mime     string
		filename string
		wantType any
		wantErr  bool
	}{
		{mime: "application/pdf", filename: "doc.bin", wantType: &PDFParser{}},
		{mime: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", filename: "x", wantType: &DOCXParser{}},
		{mime: "text/plain; charset=utf-8", filename: "notes", wantType: &TextParser{}},
		{mime: "application/octet-stream", filename: "report.PDF", wantType: &PDFParser{}},
		{mime: "", filename: "readme.md", wantType: &TextParser{}},
		{mime: "", filename: "slides.pptx", wantErr: true},
	}
	for _, tc := range cases {
		p, err := ForFile(tc.mime, tc.filename)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ForFile(%q, %q): expected error", tc.mime, tc.filename)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ForFile(%q, %q): %v", tc.mime, tc.filename, err)
		}
		switch tc.wantType.(type) {
		case *PDFParser:
			if _, ok := p.(*PDFParser); !ok {
				t.Fatalf("ForFile(%q, %q): want PDFParser got %T", tc.mime, tc.filename, p)
			}
		case *DOCXParser:
			if _, ok := p.(*DOCXParser); !ok {
				t.Fatalf("ForFile(%q, %q): want DOCXParser got %T", tc.mime, tc.filename, p)
			}
		case *TextParser:
			if _, ok := p.(*TextParser); !ok {
				t.Fatalf("ForFile(%q, %q): want TextParser got %T", tc.mime, tc.filename, p)
			}
		}
	}
}
