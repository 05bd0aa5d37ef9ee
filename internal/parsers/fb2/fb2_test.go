package fb2

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trypsynth/paperback-core/internal/parser"
)

const sampleFB2 = `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
<description>
<title-info>
<book-title>The Sample Book</book-title>
<author><first-name>Ada</first-name><last-name>Lovelace</last-name></author>
</title-info>
</description>
<body>
<section><title><p>Chapter One</p></title><p>Once upon a time.</p></section>
</body>
<binary id="cover.jpg" content-type="image/jpeg">aGVsbG8=</binary>
</FictionBook>`

func TestParseExtractsMetadataAndStripsBinary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.fb2")
	if err := os.WriteFile(path, []byte(sampleFB2), 0o644); err != nil {
		t.Fatal(err)
	}
	p := New()
	doc, err := p.Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "The Sample Book" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.Author != "Ada Lovelace" {
		t.Errorf("Author = %q", doc.Author)
	}
	if strings.Contains(doc.Buffer.Content, "aGVsbG8") {
		t.Errorf("Content = %q, binary payload should have been stripped", doc.Buffer.Content)
	}
	if !strings.Contains(doc.Buffer.Content, "Once upon a time.") {
		t.Fatalf("Content = %q, missing body text", doc.Buffer.Content)
	}
}
