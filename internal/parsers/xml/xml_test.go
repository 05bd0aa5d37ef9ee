package xml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trypsynth/paperback-core/internal/parser"
)

func TestParseBuildsTocFromHeadings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.xml")
	src := `<root><h1>Intro</h1><p>hello</p><h2>Details</h2><p>world</p></root>`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	p := New()
	doc, err := p.Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Buffer.Content, "hello") || !strings.Contains(doc.Buffer.Content, "world") {
		t.Fatalf("Content = %q", doc.Buffer.Content)
	}
	if len(doc.TocItems) != 2 || doc.TocItems[0].Name != "Intro" || doc.TocItems[1].Name != "Details" {
		t.Fatalf("TocItems = %+v", doc.TocItems)
	}
}
