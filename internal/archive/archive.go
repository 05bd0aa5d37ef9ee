// Package archive reads named entries out of ZIP containers (EPUB, DOCX,
// ODT, PPTX are all ZIP under the hood) and extracts entries to disk.
//
// archive/zip is strict about the ZIP central directory; some EPUBs in the
// wild are written by tools that get minor details of it wrong. When the
// standard reader rejects an archive, Open falls back to
// github.com/hidez8891/zip, a more permissive reader, before giving up -
// the same "fix_zip" leniency the teacher's own pipeline affords broken
// source archives.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	lenientzip "github.com/hidez8891/zip"
)

// entryReader abstracts over the two zip reader implementations Archive may
// be backed by.
type entryReader interface {
	Names() []string
	Open(name string) (io.ReadCloser, error)
	Close() error
}

// Archive is a read-only handle on a ZIP container, opened once and reused
// across however many entries the caller needs (EPUB/DOCX/ODT/PPTX parsers
// typically read a dozen or more parts out of the same file).
type Archive struct {
	path   string
	reader entryReader
}

// Open opens the ZIP container at path, trying the strict standard-library
// reader first and a lenient fallback reader second.
func Open(path string) (*Archive, error) {
	if r, err := zip.OpenReader(path); err == nil {
		return &Archive{path: path, reader: &stdlibReader{r}}, nil
	}
	r, err := lenientzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %q: %w", path, err)
	}
	return &Archive{path: path, reader: &lenientReader{r}}, nil
}

// Close releases the underlying archive handle.
func (a *Archive) Close() error {
	return a.reader.Close()
}

// Names returns every file entry name in the archive, in central-directory
// order; directory entries are skipped.
func (a *Archive) Names() []string {
	return a.reader.Names()
}

// Has reports whether name is present in the archive.
func (a *Archive) Has(name string) bool {
	for _, n := range a.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ReadString returns the UTF-8-lossy decoded contents of the named entry.
// Callers that need a specific encoding should use ReadBytes and decode
// with internal/sniffer themselves.
func (a *Archive) ReadString(name string) (string, error) {
	b, err := a.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), "�"), nil
}

// ReadBytes returns the raw contents of the named entry.
func (a *Archive) ReadBytes(name string) ([]byte, error) {
	rc, err := a.reader.Open(name)
	if err != nil {
		return nil, fmt.Errorf("reading archive entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Extract streams the named entry to destDir/name, creating parent
// directories as needed. It returns the path written to. Entry names with
// path traversal components or absolute paths are rejected to prevent Zip
// Slip, mirroring the teacher's archive.Walk guard.
func (a *Archive) Extract(name, destDir string) (string, error) {
	if !isSafePath(name) {
		return "", fmt.Errorf("archive entry %q: unsafe path (absolute or contains path traversal)", name)
	}
	rc, err := a.reader.Open(name)
	if err != nil {
		return "", fmt.Errorf("reading archive entry %q: %w", name, err)
	}
	defer rc.Close()

	dest := filepath.Join(destDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("creating directory for %q: %w", name, err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("creating %q: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return "", fmt.Errorf("extracting %q: %w", name, err)
	}
	return dest, nil
}

// WalkFunc is called for every entry under pattern during Walk.
type WalkFunc func(name string, read func() ([]byte, error)) error

// Walk visits every entry whose name has the given prefix, in archive
// order, stopping at the first error a WalkFunc returns. This generalizes
// the teacher's archive.Walk (which handed the caller a *zip.File) to work
// uniformly over either backing reader.
func (a *Archive) Walk(pattern string, fn WalkFunc) error {
	for _, name := range a.Names() {
		if !strings.HasPrefix(name, pattern) {
			continue
		}
		if err := fn(name, func() ([]byte, error) { return a.ReadBytes(name) }); err != nil {
			return err
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

type stdlibReader struct {
	r *zip.ReadCloser
}

func (s *stdlibReader) Names() []string {
	names := make([]string, 0, len(s.r.File))
	for _, f := range s.r.File {
		if !f.FileInfo().IsDir() {
			names = append(names, f.Name)
		}
	}
	return names
}

func (s *stdlibReader) Open(name string) (io.ReadCloser, error) {
	for _, f := range s.r.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("entry not found: %s", name)
}

func (s *stdlibReader) Close() error {
	return s.r.Close()
}

type lenientReader struct {
	r *lenientzip.ReadCloser
}

func (l *lenientReader) Names() []string {
	names := make([]string, 0, len(l.r.File))
	for _, f := range l.r.File {
		if !f.FileInfo().IsDir() {
			names = append(names, f.Name)
		}
	}
	return names
}

func (l *lenientReader) Open(name string) (io.ReadCloser, error) {
	for _, f := range l.r.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("entry not found: %s", name)
}

func (l *lenientReader) Close() error {
	return l.r.Close()
}
