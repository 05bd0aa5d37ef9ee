package xhtml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trypsynth/paperback-core/internal/parser"
)

func TestParseExtractsTitleAndHeadings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	src := `<html><head><title>My Page</title></head><body><h1>Welcome</h1><p>text</p></body></html>`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	p := New()
	doc, err := p.Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "My Page" {
		t.Errorf("Title = %q, want My Page", doc.Title)
	}
	if !strings.Contains(doc.Buffer.Content, "text") {
		t.Fatalf("Content = %q", doc.Buffer.Content)
	}
	if len(doc.TocItems) != 1 || doc.TocItems[0].Name != "Welcome" {
		t.Fatalf("TocItems = %+v", doc.TocItems)
	}
}
