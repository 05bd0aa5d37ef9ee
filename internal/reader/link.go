package reader

import (
	"strings"

	"github.com/trypsynth/paperback-core/internal/dochandle"
	"github.com/trypsynth/paperback-core/internal/docmodel"
)

// LinkTargetKind distinguishes where a resolved link points.
type LinkTargetKind int

const (
	LinkNotFound LinkTargetKind = iota
	LinkInternal
	LinkExternal
)

// LinkTarget is the resolved destination of a hyperlink.
type LinkTarget struct {
	Kind   LinkTargetKind
	Offset uint64 // valid when Kind == LinkInternal
	URL    string // valid when Kind == LinkExternal
}

var externalSchemes = []string{"http:", "https:", "mailto:"}

// ResolveLink resolves href against the document's id/manifest/spine
// tables, relative to currentSectionPath (the path of the section the
// cursor currently sits in; empty for single-stream formats).
//
// Resolution order, per spec.md §4.9:
//  1. empty href -> not found.
//  2. absolute http(s)/mailto -> external.
//  3. "#frag" -> look up "currentSectionPath#frag" then "frag".
//  4. "path" or "path#frag" -> resolve path via the manifest to a spine
//     section, bounded by the next SectionBreak; if frag resolves inside
//     that section's bounds, use it, else use the section start.
//  5. otherwise, a bare fragment lookup.
func ResolveLink(h *dochandle.Handle, href, currentSectionPath string) LinkTarget {
	if href == "" {
		return LinkTarget{Kind: LinkNotFound}
	}
	for _, scheme := range externalSchemes {
		if strings.HasPrefix(strings.ToLower(href), scheme) {
			return LinkTarget{Kind: LinkExternal, URL: href}
		}
	}

	doc := h.Document()

	if strings.HasPrefix(href, "#") {
		frag := href[1:]
		qualified := currentSectionPath + "#" + frag
		if pos, ok := h.IDPosition(qualified, frag); ok {
			return LinkTarget{Kind: LinkInternal, Offset: pos}
		}
		return LinkTarget{Kind: LinkNotFound}
	}

	path, frag, hasFrag := strings.Cut(href, "#")
	if manifestID, ok := findManifestIDByPath(doc, path); ok {
		if spineIdx, ok := spineIndexOf(doc, manifestID); ok {
			start, end := sectionBoundsForSpineIndex(h, spineIdx)
			if hasFrag {
				qualified := path + "#" + frag
				if pos, ok := h.IDPosition(qualified, frag); ok && pos >= start && pos < end {
					return LinkTarget{Kind: LinkInternal, Offset: pos}
				}
			}
			return LinkTarget{Kind: LinkInternal, Offset: start}
		}
	}

	if hasFrag {
		if pos, ok := h.IDPosition("", frag); ok {
			return LinkTarget{Kind: LinkInternal, Offset: pos}
		}
	}
	if pos, ok := h.IDPosition("", href); ok {
		return LinkTarget{Kind: LinkInternal, Offset: pos}
	}
	return LinkTarget{Kind: LinkNotFound}
}

func findManifestIDByPath(doc *docmodel.Document, path string) (string, bool) {
	for id, p := range doc.ManifestItems {
		if p == path {
			return id, true
		}
	}
	return "", false
}

func spineIndexOf(doc *docmodel.Document, manifestID string) (int, bool) {
	for i, id := range doc.SpineItems {
		if id == manifestID {
			return i, true
		}
	}
	return 0, false
}

// sectionBoundsForSpineIndex returns the [start, end) range of the Nth
// SectionBreak-delimited section (0-based, matching spine order).
func sectionBoundsForSpineIndex(h *dochandle.Handle, spineIdx int) (start, end uint64) {
	breaks := h.MarkersOfType(docmodel.SectionBreak)
	contentLen := h.ContentLength()
	if spineIdx >= len(breaks) {
		return 0, contentLen
	}
	start = breaks[spineIdx].Position
	if spineIdx+1 < len(breaks) {
		end = breaks[spineIdx+1].Position
	} else {
		end = contentLen
	}
	return start, end
}
