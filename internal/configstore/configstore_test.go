package configstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/session"
)

func TestAppSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.SetAppBool("word_wrap", true)
	s.SetAppInt("opened_documents", 3)
	s.SetAppString("theme", "dark")
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.GetAppBool("word_wrap", false) {
		t.Error("word_wrap did not round-trip")
	}
	if reloaded.GetAppInt("opened_documents", 0) != 3 {
		t.Error("opened_documents did not round-trip")
	}
	if reloaded.GetAppString("theme", "") != "dark" {
		t.Error("theme did not round-trip")
	}
}

func TestDocumentStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	docPath := "/books/example.epub"
	s.SetDocumentInt(docPath, "last_position", 4242)
	s.SetNavigationHistory(docPath, []int64{10, 20, 30}, 1)
	bookmarks := []docmodel.Bookmark{
		{Start: 5, End: 5, Note: ""},
		{Start: 100, End: 150, Note: "interesting passage"},
	}
	s.SetBookmarks(docPath, bookmarks)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.GetDocumentInt(docPath, "last_position", 0); got != 4242 {
		t.Errorf("last_position = %d", got)
	}
	hist, ok := reloaded.GetNavigationHistory(docPath)
	if !ok || hist.Index != 1 || len(hist.Positions) != 3 || hist.Positions[2] != 30 {
		t.Errorf("history = %+v ok=%v", hist, ok)
	}
	got := reloaded.GetBookmarks(docPath)
	if len(got) != 2 || got[1].Note != "interesting passage" || got[0].Start != 5 {
		t.Errorf("bookmarks = %+v", got)
	}

	section := session.EscapeDocumentPath(docPath)
	if reloaded.file.Section(section).Key("path").String() != docPath {
		t.Error("reverse-lookup path key missing")
	}
}

func TestMigrationRehomesRootKeysAndLiftsPositions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.ini")
	legacy := "word_wrap = true\nopened_documents = 2\n\n[positions]\n/books/a.epub = 100\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if !s.GetAppBool("word_wrap", false) {
		t.Error("word_wrap not re-homed into app section")
	}
	if s.GetAppInt("opened_documents", 0) != 2 {
		t.Error("opened_documents not re-homed into app section")
	}
	if got := s.GetDocumentInt("/books/a.epub", "last_position", -1); got != 100 {
		t.Errorf("legacy position not lifted, got %d", got)
	}
	if s.file.HasSection("positions") {
		t.Error("legacy positions section should have been removed")
	}
	if s.SchemaVersion() != currentSchemaVersion {
		t.Errorf("SchemaVersion() = %d, want %d", s.SchemaVersion(), currentSchemaVersion)
	}
}

func TestMigrationExtendsLegacyBookmarkFormats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.ini")
	section := session.EscapeDocumentPath("/books/b.epub")
	legacy := "[app]\nschema_version = 1\n\n[" + section + "]\nbookmarks = 42,10:20,30:40:aGVsbG8=\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	got := s.GetBookmarks("/books/b.epub")
	if len(got) != 3 {
		t.Fatalf("bookmarks = %+v", got)
	}
	if got[0].Start != 42 || got[0].End != 42 || got[0].Note != "" {
		t.Errorf("bare-position bookmark = %+v", got[0])
	}
	if got[1].Start != 10 || got[1].End != 20 || got[1].Note != "" {
		t.Errorf("start:end bookmark = %+v", got[1])
	}
	if got[2].Start != 30 || got[2].End != 40 || got[2].Note != "hello" {
		t.Errorf("triple bookmark = %+v", got[2])
	}
}
