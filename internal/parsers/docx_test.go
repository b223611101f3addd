package parsers

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("writing document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

const docxWithHeadings = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Employee Handbook</w:t></w:r></w:p>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Vacation Policy</w:t></w:r></w:p>
    <w:p><w:r><w:t>Employees accrue </w:t></w:r><w:r><w:t>fifteen days per year.</w:t></w:r></w:p>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Sick Leave</w:t></w:r></w:p>
    <w:p><w:r><w:t>Unlimited with a doctor's note.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr><w:tc><w:p><w:r><w:t>Role</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Days</w:t></w:r></w:p></w:tc></w:tr>
      <w:tr><w:tc><w:p><w:r><w:t>Manager</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>20</w:t></w:r></w:p></w:tc></w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestDOCXParser(t *testing.T) {
	data := buildDocx(t, docxWithHeadings)
	p := &DOCXParser{}
	doc, err := p.Parse(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Title != "Employee Handbook" {
		t.Fatalf("title: want=%q got=%q", "Employee Handbook", doc.Title)
	}

	var vacation, table *Section
	for i := range doc.Sections {
		switch {
		case doc.Sections[i].Heading == "Vacation Policy":
			vacation = &doc.Sections[i]
		case strings.HasPrefix(doc.Sections[i].Content, "|"):
			table = &doc.Sections[i]
		}
	}
	if vacation == nil {
		t.Fatal("missing Vacation Policy section")
	}
	if vacation.Content != "Employees accrue fifteen days per year." {
		t.Fatalf("run text not joined: %q", vacation.Content)
	}
	if table == nil {
		t.Fatal("missing table section")
	}
	if !strings.Contains(table.Content, "| Manager | 20 |") {
		t.Fatalf("table row not rendered: %q", table.Content)
	}
}

func TestDOCXParserRejectsNonZip(t *testing.T) {
	p := &DOCXParser{}
	if _, err := p.Parse(context.Background(), strings.NewReader("not a zip")); err == nil {
		t.Fatal("expected error for non-zip input")
	}
}

func TestDOCXParserMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<styles/>"))
	zw.Close()

	p := &DOCXParser{}
	if _, err := p.Parse(context.Background(), bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatal("expected error when document.xml is absent")
	}
}
