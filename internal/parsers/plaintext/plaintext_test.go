package plaintext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/trypsynth/paperback-core/internal/parser"
)

func TestParseStripsSoftHyphens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.txt")
	if err := os.WriteFile(path, []byte("su­gar"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := New()
	doc, err := p.Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Buffer.Content != "sugar" {
		t.Errorf("Content = %q, want %q", doc.Buffer.Content, "sugar")
	}
	if len(doc.Buffer.Markers) != 0 {
		t.Errorf("Markers = %v, want none", doc.Buffer.Markers)
	}
}

func TestParseMissingFile(t *testing.T) {
	p := New()
	if _, err := p.Parse(parser.Context{FilePath: "/nonexistent/book.txt"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExtensions(t *testing.T) {
	p := New()
	exts := p.Extensions()
	if len(exts) != 2 || exts[0] != "txt" || exts[1] != "log" {
		t.Fatalf("Extensions() = %v", exts)
	}
}
