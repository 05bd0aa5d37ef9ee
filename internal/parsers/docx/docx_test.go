package docx

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trypsynth/paperback-core/internal/parser"
)

const documentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Chapter One</w:t></w:r></w:p>
<w:p><w:r><w:t>Some body text.</w:t></w:r></w:p>
<w:p><w:hyperlink r:id="rId1"><w:r><w:t>visit site</w:t></w:r></w:hyperlink></w:p>
<w:p>
<w:r><w:instrText>HYPERLINK "https://example.com/field"</w:instrText></w:r>
<w:r><w:fldChar w:fldCharType="separate"/></w:r>
<w:r><w:t>field link</w:t></w:r>
<w:r><w:fldChar w:fldCharType="end"/></w:r>
</w:p>
</w:body>
</w:document>`

const documentRels = `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="hyperlink" Target="https://example.com/site" TargetMode="External"/>
</Relationships>`

func buildTestDocx(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	files := map[string]string{
		"word/document.xml":           documentXML,
		"word/_rels/document.xml.rels": documentRels,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseExtractsHeadingsAndLinks(t *testing.T) {
	path := buildTestDocx(t)
	p := New()
	doc, err := p.Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Buffer.Content, "Some body text.") {
		t.Fatalf("Content = %q", doc.Buffer.Content)
	}
	if len(doc.TocItems) != 1 || doc.TocItems[0].Name != "Chapter One" {
		t.Fatalf("TocItems = %+v", doc.TocItems)
	}
	var links []string
	for _, m := range doc.Buffer.Markers {
		if m.Kind.String() == "Link" {
			links = append(links, m.Text+"="+m.Reference)
		}
	}
	if len(links) != 2 {
		t.Fatalf("links = %v", links)
	}
	if links[0] != "visit site=https://example.com/site" {
		t.Errorf("links[0] = %q", links[0])
	}
	if links[1] != "field link=https://example.com/field" {
		t.Errorf("links[1] = %q", links[1])
	}
}
