// Package configstore persists application settings and per-document
// reading state (last position, navigation history, bookmarks) outside the
// core. It is a thin logical contract over an INI file, backed by
// gopkg.in/ini.v1 the same way the pack's go-ini reference material reads
// key/value sections: three logical namespaces (the INI DEFAULT section,
// an "app" section, and one "doc_<hash>" section per document) plus a
// version-ladder migration run once on Open.
package configstore

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/session"
)

const (
	appSection           = "app"
	positionsSection     = "positions"
	schemaVersionKey     = "schema_version"
	currentSchemaVersion = 2
)

// rootLevelKeys lists settings a pre-v1 store kept at the root (DEFAULT
// section) that v0->v1 migration re-homes under "app".
var rootLevelKeys = []string{"restore_previous_documents", "word_wrap", "opened_documents"}

// rootBoolKeys is the subset of rootLevelKeys that are boolean-valued;
// migrateV0ToV1 normalizes these to formatBool's "1"/"0" instead of copying
// the raw root string (which pre-v1 stores may have written as "true").
var rootBoolKeys = map[string]bool{
	"restore_previous_documents": true,
	"word_wrap":                  true,
}

// Store is a key/value configuration store with app-wide and per-document
// namespaces. It is not safe for concurrent use, matching the core's
// single-owner config-store policy.
type Store struct {
	path string
	file *ini.File
}

// Open loads path if it exists, or starts an empty store otherwise, running
// the schema migration ladder before returning.
func Open(path string) (*Store, error) {
	var file *ini.File
	if _, err := os.Stat(path); err == nil {
		file, err = ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %q: %w", path, err)
		}
	} else {
		file = ini.Empty()
	}
	s := &Store{path: path, file: file}
	s.migrate()
	return s, nil
}

// Save writes the store back to its backing file.
func (s *Store) Save() error {
	return s.file.SaveTo(s.path)
}

// SchemaVersion reports the store's current schema version.
func (s *Store) SchemaVersion() int {
	return s.file.Section(appSection).Key(schemaVersionKey).MustInt(0)
}

// App-wide settings (the "app" namespace).

func (s *Store) GetAppString(key, def string) string {
	return s.file.Section(appSection).Key(key).MustString(def)
}

func (s *Store) SetAppString(key, value string) {
	s.file.Section(appSection).Key(key).SetValue(value)
}

func (s *Store) GetAppInt(key string, def int) int {
	return s.file.Section(appSection).Key(key).MustInt(def)
}

func (s *Store) SetAppInt(key string, value int) {
	s.file.Section(appSection).Key(key).SetValue(strconv.Itoa(value))
}

func (s *Store) GetAppBool(key string, def bool) bool {
	return s.file.Section(appSection).Key(key).MustBool(def)
}

func (s *Store) SetAppBool(key string, value bool) {
	s.file.Section(appSection).Key(key).SetValue(formatBool(value))
}

// formatBool renders value the way the store's on-disk convention expects:
// "1"/"0", not Go's "true"/"false". GetAppBool's underlying MustBool still
// accepts either form, so this only governs what gets written.
func formatBool(value bool) string {
	if value {
		return "1"
	}
	return "0"
}

// Per-document settings (the "doc_<hash>" namespace, keyed by
// session.EscapeDocumentPath so the section name matches the one the
// session's webview-target logic derives).

// docSection returns documentPath's section, stamping its "path" reverse
// lookup key if not already present.
func (s *Store) docSection(documentPath string) *ini.Section {
	sec := s.file.Section(session.EscapeDocumentPath(documentPath))
	if sec.Key("path").String() == "" {
		sec.Key("path").SetValue(documentPath)
	}
	return sec
}

func (s *Store) GetDocumentInt(documentPath, key string, def int64) int64 {
	return s.file.Section(session.EscapeDocumentPath(documentPath)).Key(key).MustInt64(def)
}

func (s *Store) SetDocumentInt(documentPath, key string, value int64) {
	s.docSection(documentPath).Key(key).SetValue(strconv.FormatInt(value, 10))
}

// GetNavigationHistory returns the stored cursor-position history for
// documentPath, and false if none has been recorded.
func (s *Store) GetNavigationHistory(documentPath string) (docmodel.NavigationHistory, bool) {
	sec := s.file.Section(session.EscapeDocumentPath(documentPath))
	raw := sec.Key("history_positions").String()
	if raw == "" {
		return docmodel.NavigationHistory{}, false
	}
	var positions []int64
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		positions = append(positions, v)
	}
	index := sec.Key("history_index").MustInt(0)
	return docmodel.NavigationHistory{Positions: positions, Index: index}, true
}

// SetNavigationHistory stores positions (comma-separated) and index for
// documentPath.
func (s *Store) SetNavigationHistory(documentPath string, positions []int64, index int) {
	sec := s.docSection(documentPath)
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = strconv.FormatInt(p, 10)
	}
	sec.Key("history_positions").SetValue(strings.Join(parts, ","))
	sec.Key("history_index").SetValue(strconv.Itoa(index))
}

// GetBookmarks returns documentPath's bookmarks, decoded from the stored
// "start:end:base64(note)" comma-separated triples.
func (s *Store) GetBookmarks(documentPath string) []docmodel.Bookmark {
	raw := s.file.Section(session.EscapeDocumentPath(documentPath)).Key("bookmarks").String()
	return decodeBookmarks(raw)
}

// SetBookmarks stores bookmarks for documentPath.
func (s *Store) SetBookmarks(documentPath string, bookmarks []docmodel.Bookmark) {
	s.docSection(documentPath).Key("bookmarks").SetValue(encodeBookmarks(bookmarks))
}

func decodeBookmarks(raw string) []docmodel.Bookmark {
	if raw == "" {
		return nil
	}
	var out []docmodel.Bookmark
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			continue
		}
		start, err1 := strconv.ParseInt(parts[0], 10, 64)
		end, err2 := strconv.ParseInt(parts[1], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		note, err := base64.StdEncoding.DecodeString(parts[2])
		if err != nil {
			note = nil
		}
		out = append(out, docmodel.Bookmark{Start: start, End: end, Note: string(note)})
	}
	return out
}

func encodeBookmarks(bookmarks []docmodel.Bookmark) string {
	parts := make([]string, len(bookmarks))
	for i, b := range bookmarks {
		parts[i] = fmt.Sprintf("%d:%d:%s", b.Start, b.End, base64.StdEncoding.EncodeToString([]byte(b.Note)))
	}
	return strings.Join(parts, ",")
}

// migrate steps a loaded store from whatever schema version it was written
// at up to currentSchemaVersion. A freshly-created empty store reports
// version 0 and runs every step, which is harmless (each step is a no-op
// absent the legacy structure it targets).
func (s *Store) migrate() {
	version := s.SchemaVersion()
	if version == 0 {
		// v0 stores kept the version marker (if any) at the root, since
		// "app" itself did not exist yet.
		if root := s.file.Section(ini.DefaultSection); root.HasKey(schemaVersionKey) {
			version = root.Key(schemaVersionKey).MustInt(0)
		}
	}
	if version < 1 {
		s.migrateV0ToV1()
		version = 1
	}
	if version < 2 {
		s.migrateV1ToV2()
		version = 2
	}
	s.file.Section(ini.DefaultSection).DeleteKey(schemaVersionKey)
	s.file.Section(appSection).Key(schemaVersionKey).SetValue(strconv.Itoa(currentSchemaVersion))
}

// migrateV0ToV1 re-homes root-level settings into "app", and lifts the old
// global "positions" section (document path -> last position) into each
// document's own section.
func (s *Store) migrateV0ToV1() {
	root := s.file.Section(ini.DefaultSection)
	app := s.file.Section(appSection)
	for _, key := range rootLevelKeys {
		if !root.HasKey(key) {
			continue
		}
		if rootBoolKeys[key] {
			app.Key(key).SetValue(formatBool(root.Key(key).MustBool(false)))
		} else {
			app.Key(key).SetValue(root.Key(key).String())
		}
		root.DeleteKey(key)
	}
	if !s.file.HasSection(positionsSection) {
		return
	}
	for _, key := range s.file.Section(positionsSection).Keys() {
		pos, err := key.Int64()
		if err != nil {
			continue
		}
		s.SetDocumentInt(key.Name(), "last_position", pos)
	}
	s.file.DeleteSection(positionsSection)
}

// migrateV1ToV2 extends every per-document "bookmarks" entry to the
// current "start:end:base64(note)" triple format.
func (s *Store) migrateV1ToV2() {
	for _, name := range s.file.SectionStrings() {
		if !strings.HasPrefix(name, "doc_") {
			continue
		}
		sec := s.file.Section(name)
		raw := sec.Key("bookmarks").String()
		if raw == "" {
			continue
		}
		sec.Key("bookmarks").SetValue(upgradeBookmarkFormat(raw))
	}
}

// upgradeBookmarkFormat extends legacy bookmark entries to the current
// triple, keyed off each entry's colon count: 0 colons is a bare position
// (whole-line bookmark, no note); 1 colon is "start:end" with no note;
// 2 colons is already a triple and is kept unchanged.
func upgradeBookmarkFormat(raw string) string {
	entries := strings.Split(raw, ",")
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		switch strings.Count(entry, ":") {
		case 0:
			out = append(out, fmt.Sprintf("%s:%s:", entry, entry))
		case 1:
			out = append(out, entry+":")
		default:
			out = append(out, entry)
		}
	}
	return strings.Join(out, ",")
}
