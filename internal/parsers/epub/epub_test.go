package epub

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trypsynth/paperback-core/internal/parser"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
<rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`

const opfXML = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Test Book</dc:title>
<dc:creator>Grace Hopper</dc:creator>
</metadata>
<manifest>
<item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
<item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
<item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
</manifest>
<spine>
<itemref idref="ch1"/>
<itemref idref="ch2"/>
</spine>
</package>`

const ch1XHTML = `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1 id="intro">Chapter One</h1><p>First chapter text.</p></body></html>`
const ch2XHTML = `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1 id="target">Chapter Two</h1><p>See <a href="ch1.xhtml#intro">back</a>.</p></body></html>`
const navXHTML = `<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<body><nav epub:type="toc"><ol>
<li><a href="ch1.xhtml#intro">Chapter One</a></li>
<li><a href="ch2.xhtml#target">Chapter Two</a></li>
</ol></nav></body></html>`

func buildTestEpub(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "book.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	files := map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      opfXML,
		"OEBPS/ch1.xhtml":        ch1XHTML,
		"OEBPS/ch2.xhtml":        ch2XHTML,
		"OEBPS/nav.xhtml":        navXHTML,
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

func TestParseEpubEndToEnd(t *testing.T) {
	path := buildTestEpub(t)
	p := New()
	doc, err := p.Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Test Book" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.Author != "Grace Hopper" {
		t.Errorf("Author = %q", doc.Author)
	}
	if !strings.Contains(doc.Buffer.Content, "First chapter text.") || !strings.Contains(doc.Buffer.Content, "See back.") {
		t.Fatalf("Content = %q", doc.Buffer.Content)
	}
	if len(doc.SpineItems) != 2 || doc.SpineItems[0] != "ch1" || doc.SpineItems[1] != "ch2" {
		t.Fatalf("SpineItems = %v", doc.SpineItems)
	}
	if doc.ManifestItems["ch1"] != "OEBPS/ch1.xhtml" {
		t.Errorf("ManifestItems[ch1] = %q", doc.ManifestItems["ch1"])
	}
	if _, ok := doc.IDPositions["OEBPS/ch1.xhtml#intro"]; !ok {
		t.Error(`IDPositions missing "OEBPS/ch1.xhtml#intro"`)
	}
	if len(doc.TocItems) != 2 || doc.TocItems[0].Name != "Chapter One" {
		t.Fatalf("TocItems = %+v", doc.TocItems)
	}
}

func TestParseEpubSectionBreaksPresent(t *testing.T) {
	path := buildTestEpub(t)
	p := New()
	doc, err := p.Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	sections := 0
	for _, m := range doc.Buffer.Markers {
		if m.Kind.String() == "SectionBreak" {
			sections++
		}
	}
	if sections != 2 {
		t.Fatalf("SectionBreak markers = %d, want 2", sections)
	}
}
