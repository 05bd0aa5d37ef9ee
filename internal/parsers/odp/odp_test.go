package odp

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trypsynth/paperback-core/internal/parser"
)

const odpContentXML = `<?xml version="1.0"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
 xmlns:draw="urn:oasis:names:tc:opendocument:xmlns:drawing:1.0"
 xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"
 xmlns:xlink="http://www.w3.org/1999/xlink">
<office:body>
<office:presentation>
<draw:page><draw:frame><draw:text-box><text:p>First slide text</text:p></draw:text-box></draw:frame></draw:page>
<draw:page><draw:frame><draw:text-box><text:p>See <text:a xlink:href="https://example.com">link</text:a> here.</text:p></draw:text-box></draw:frame></draw:page>
</office:presentation>
</office:body>
</office:document-content>`

func buildTestOdp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.odp")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create("content.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(odpContentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseSlidesAndLink(t *testing.T) {
	path := buildTestOdp(t)
	p := New()
	doc, err := p.Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Buffer.Content, "First slide text") || !strings.Contains(doc.Buffer.Content, "See link here.") {
		t.Fatalf("Content = %q", doc.Buffer.Content)
	}
	var pageBreaks, links int
	for _, m := range doc.Buffer.Markers {
		switch m.Kind.String() {
		case "PageBreak":
			pageBreaks++
		case "Link":
			links++
			if m.Reference != "https://example.com" {
				t.Errorf("Link reference = %q", m.Reference)
			}
		}
	}
	if pageBreaks != 2 {
		t.Fatalf("pageBreaks = %d, want 2", pageBreaks)
	}
	if links != 1 {
		t.Fatalf("links = %d, want 1", links)
	}
}
