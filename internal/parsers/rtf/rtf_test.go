package rtf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
)

func writeRTF(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.rtf")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseSkipsHeaderAndEmitsParagraphs(t *testing.T) {
	src := `{\rtf1\ansi\deff0{\fonttbl{\f0 Calibri;}}{\colortbl;\red0\green0\blue0;}` +
		`{\*\generator Riched20}\viewkind4\uc1\pard Hello world.\par Second paragraph.\par}`
	path := writeRTF(t, src)
	doc, err := New().Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc.Buffer.Content, "Calibri") {
		t.Errorf("font table leaked into content: %q", doc.Buffer.Content)
	}
	if !strings.Contains(doc.Buffer.Content, "Hello world.") || !strings.Contains(doc.Buffer.Content, "Second paragraph.") {
		t.Errorf("content = %q", doc.Buffer.Content)
	}
}

func TestParseHyperlinkFieldCode(t *testing.T) {
	src := `{\rtf1\ansi\deff0\pard ` +
		`Visit our {\field{\*\fldinst HYPERLINK "https://example.com/site" }{\fldrslt site}} today.\par}`
	path := writeRTF(t, src)
	doc, err := New().Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc.Buffer.Content, "HYPERLINK") {
		t.Errorf("field instruction leaked into content: %q", doc.Buffer.Content)
	}
	var links []docmodel.Marker
	for _, m := range doc.Buffer.Markers {
		if m.Kind == docmodel.Link {
			links = append(links, m)
		}
	}
	if len(links) != 1 {
		t.Fatalf("links = %+v", links)
	}
	if links[0].Text != "site" || links[0].Reference != "https://example.com/site" {
		t.Errorf("link = %+v", links[0])
	}
}

func TestParseUnicodeEscapeAndSurrogatePair(t *testing.T) {
	// The first escape, decimal 9755, is U+261B (a pointing hand). \u-10179\u-8704 is the
	// UTF-16 surrogate pair for U+1F600 (grinning face). Each \u
	// escape is followed by a literal '?' ANSI fallback byte, which
	// the default \uc1 skip count must drop.
	src := "{\\rtf1\\ansi\\pard \\u9755?\\par \\u-10179?\\u-8704?\\par}"
	path := writeRTF(t, src)
	doc, err := New().Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc.Buffer.Content, "?") {
		t.Errorf("fallback byte was not skipped: %q", doc.Buffer.Content)
	}
	if !strings.ContainsRune(doc.Buffer.Content, 0x261B) {
		t.Errorf("missing decoded \\u9755 rune: %q", doc.Buffer.Content)
	}
	if !strings.ContainsRune(doc.Buffer.Content, 0x1F600) {
		t.Errorf("missing reassembled surrogate pair: %q", doc.Buffer.Content)
	}
}

func TestExtensionsAndFlags(t *testing.T) {
	p := New()
	if len(p.Extensions()) != 1 || p.Extensions()[0] != "rtf" {
		t.Errorf("Extensions() = %v", p.Extensions())
	}
	if p.SupportedFlags() != 0 {
		t.Errorf("SupportedFlags() = %v, want 0", p.SupportedFlags())
	}
}
