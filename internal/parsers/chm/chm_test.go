package chm

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
)

func writeEncInt(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	var groups []byte
	for v > 0 {
		groups = append([]byte{byte(v & 0x7f)}, groups...)
		v >>= 7
	}
	for i := 0; i < len(groups)-1; i++ {
		groups[i] |= 0x80
	}
	return groups
}

func encodeDirEntry(name string, section, offset, length uint64) []byte {
	var b []byte
	b = append(b, writeEncInt(uint64(len(name)))...)
	b = append(b, name...)
	b = append(b, writeEncInt(section)...)
	b = append(b, writeEncInt(offset)...)
	b = append(b, writeEncInt(length)...)
	return b
}

func buildTestCHM(t *testing.T) string {
	t.Helper()

	systemStream := make([]byte, 4) // version prefix
	titleData := append([]byte("Test Help Book"), 0)
	rec := make([]byte, 4+len(titleData))
	binary.LittleEndian.PutUint16(rec[0:2], 3)
	binary.LittleEndian.PutUint16(rec[2:4], uint16(len(titleData)))
	copy(rec[4:], titleData)
	systemStream = append(systemStream, rec...)

	hhc := `<HTML><BODY><UL>
<LI><OBJECT type="text/sitemap"><param name="Name" value="Chapter One"><param name="Local" value="chapter1.htm"></OBJECT>
</UL></BODY></HTML>`

	chapter1 := `<html><body><h1 id="top">Chapter One</h1><p>Hello CHM.</p></body></html>`

	content := []byte{}
	offSystem := uint64(len(content))
	content = append(content, systemStream...)
	offHHC := uint64(len(content))
	content = append(content, hhc...)
	offChapter := uint64(len(content))
	content = append(content, chapter1...)

	var entries []byte
	entries = append(entries, encodeDirEntry("/#SYSTEM", 0, offSystem, uint64(len(systemStream)))...)
	entries = append(entries, encodeDirEntry("/toc.hhc", 0, offHHC, uint64(len(hhc)))...)
	entries = append(entries, encodeDirEntry("/chapter1.htm", 0, offChapter, uint64(len(chapter1)))...)

	const blockLen = 4096
	pmgl := make([]byte, blockLen)
	copy(pmgl[0:4], "PMGL")
	binary.LittleEndian.PutUint32(pmgl[4:8], 0) // quickref size
	binary.LittleEndian.PutUint32(pmgl[8:12], 0)
	binary.LittleEndian.PutUint32(pmgl[0xC:0x10], 0xFFFFFFFF) // prev chunk = -1
	binary.LittleEndian.PutUint32(pmgl[0x10:0x14], 0xFFFFFFFF) // next chunk = -1
	copy(pmgl[0x14:], entries)

	itsp := make([]byte, 0x54)
	copy(itsp[0:4], "ITSP")
	binary.LittleEndian.PutUint32(itsp[4:8], 1)
	binary.LittleEndian.PutUint32(itsp[8:12], 0x54) // header_len
	binary.LittleEndian.PutUint32(itsp[0x10:0x14], blockLen)
	binary.LittleEndian.PutUint32(itsp[0x20:0x24], 0) // index_head = chunk 0
	binary.LittleEndian.PutUint32(itsp[0x28:0x2C], 1) // num_blocks

	directory := append(itsp, pmgl...)

	header := make([]byte, 0x60)
	copy(header[0:4], "ITSF")
	binary.LittleEndian.PutUint32(header[4:8], 3) // version
	dirOffset := uint64(0x60)
	dirLen := uint64(len(directory))
	contentOffset := dirOffset + dirLen
	binary.LittleEndian.PutUint64(header[0x48:0x50], dirOffset)
	binary.LittleEndian.PutUint64(header[0x50:0x58], dirLen)
	binary.LittleEndian.PutUint64(header[0x58:0x60], contentOffset)

	var file []byte
	file = append(file, header...)
	file = append(file, directory...)
	file = append(file, content...)

	dir := t.TempDir()
	path := filepath.Join(dir, "book.chm")
	if err := os.WriteFile(path, file, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseExtractsTitleTocAndContent(t *testing.T) {
	path := buildTestCHM(t)
	p := New()
	doc, err := p.Parse(parser.Context{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Test Help Book" {
		t.Errorf("Title = %q", doc.Title)
	}
	if !strings.Contains(doc.Buffer.Content, "Hello CHM.") {
		t.Fatalf("Content = %q", doc.Buffer.Content)
	}
	if len(doc.TocItems) != 1 || doc.TocItems[0].Name != "Chapter One" {
		t.Fatalf("TocItems = %+v", doc.TocItems)
	}
	if doc.TocItems[0].Offset == docmodel.UnresolvedOffset {
		t.Error("TocItems[0].Offset should have resolved")
	}
}
