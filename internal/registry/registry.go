// Package registry maps file extensions to format parsers: static
// registration at init time, case-insensitive lookup, enumeration, and a
// composite file-filter string for open dialogs. When the caller supplies
// no usable extension it falls back to a magic-byte sniff.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"

	"github.com/trypsynth/paperback-core/internal/parser"
)

// Registry is a static, case-insensitive map from extension to the parser
// that claims it. The zero value is unusable; construct via New.
type Registry struct {
	byExtension map[string]parser.Parser
	parsers     []parser.Parser
}

// New builds a Registry from parsers, indexing each by every extension it
// declares. Later parsers win ties on a shared extension, matching the
// teacher's own "last registration wins" convention for map-based
// dispatch tables.
func New(parsers ...parser.Parser) *Registry {
	r := &Registry{byExtension: make(map[string]parser.Parser), parsers: parsers}
	for _, p := range parsers {
		for _, ext := range p.Extensions() {
			r.byExtension[strings.ToLower(ext)] = p
		}
	}
	return r
}

// Lookup finds the parser registered for ext (case-insensitive, leading
// dot optional), reporting ok=false if none claims it.
func (r *Registry) Lookup(ext string) (parser.Parser, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	p, ok := r.byExtension[ext]
	return p, ok
}

// Parsers returns every registered parser, in registration order.
func (r *Registry) Parsers() []parser.Parser {
	out := make([]parser.Parser, len(r.parsers))
	copy(out, r.parsers)
	return out
}

// Extensions returns every distinct extension any parser claims, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// FileFilter builds a composite "*.ext1;*.ext2;..." pattern listing every
// registered extension, for use in a GUI open-file dialog.
func (r *Registry) FileFilter() string {
	exts := r.Extensions()
	parts := make([]string, len(exts))
	for i, ext := range exts {
		parts[i] = "*." + ext
	}
	return strings.Join(parts, ";")
}

// Resolve picks the parser for filePath. forcedExtension, if non-empty,
// overrides extension-based dispatch entirely. Otherwise the path's own
// extension is tried first; if it is absent or unregistered, Resolve falls
// back to a magic-byte sniff of the file's leading bytes via
// github.com/h2non/filetype.
func (r *Registry) Resolve(filePath, forcedExtension string) (parser.Parser, error) {
	if forcedExtension != "" {
		p, ok := r.Lookup(forcedExtension)
		if !ok {
			return nil, fmt.Errorf("no parser registered for forced extension %q", forcedExtension)
		}
		return p, nil
	}

	ext := strings.TrimPrefix(filepath.Ext(filePath), ".")
	if p, ok := r.Lookup(ext); ok {
		return p, nil
	}

	sniffed, err := r.sniffExtension(filePath)
	if err != nil {
		return nil, fmt.Errorf("unable to determine format for %q: %w", filePath, err)
	}
	p, ok := r.Lookup(sniffed)
	if !ok {
		return nil, fmt.Errorf("no parser registered for sniffed format %q", sniffed)
	}
	return p, nil
}

// sniffExtension reads the leading bytes of filePath and returns the
// extension filetype.Match infers from magic bytes.
func (r *Registry) sniffExtension(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 261) // filetype inspects at most this many header bytes
	n, err := f.Read(head)
	if n == 0 && err != nil {
		return "", err
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil {
		return "", err
	}
	if kind == filetype.Unknown {
		return "", fmt.Errorf("unrecognized file signature")
	}
	return kind.Extension, nil
}
