// Package dochandle provides the read-only query surface over a parsed
// docmodel.Document: marker lookups and TOC proximity, stable under
// concurrent readers since a Handle never mutates after construction.
package dochandle

import (
	"sort"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Handle wraps a Document whose markers have been sorted once by ascending
// position. It owns the Document exclusively and is immutable thereafter,
// so it may be shared read-only across goroutines.
type Handle struct {
	doc *docmodel.Document
}

// New sorts doc.Buffer.Markers in place (stably, per spec) and returns a
// Handle over it. Construction takes doc by pointer but treats it as
// thereafter owned exclusively by the returned Handle.
func New(doc *docmodel.Document) *Handle {
	sort.SliceStable(doc.Buffer.Markers, func(i, j int) bool {
		return doc.Buffer.Markers[i].Position < doc.Buffer.Markers[j].Position
	})
	return &Handle{doc: doc}
}

// Document returns the underlying parsed document. Callers must not mutate
// it; the returned pointer is for read-only field access.
func (h *Handle) Document() *docmodel.Document {
	return h.doc
}

// Markers returns all markers, sorted by ascending position.
func (h *Handle) Markers() []docmodel.Marker {
	return h.doc.Buffer.Markers
}

// ContentLength is the display-unit length of the document's content.
func (h *Handle) ContentLength() uint64 {
	return textutil.DisplayLen(h.doc.Buffer.Content)
}

// MarkersOfType returns the subset of markers matching kind, in ascending
// position order (inherited from the handle's sort).
func (h *Handle) MarkersOfType(kind docmodel.MarkerType) []docmodel.Marker {
	var out []docmodel.Marker
	for _, m := range h.doc.Buffer.Markers {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Headings returns every marker whose kind is any Heading1..Heading6, in
// ascending position order.
func (h *Handle) Headings() []docmodel.Marker {
	var out []docmodel.Marker
	for _, m := range h.doc.Buffer.Markers {
		if m.Kind.IsHeading() {
			out = append(out, m)
		}
	}
	return out
}

// CountMarkersByType returns |{m : m.Kind == kind}|.
func (h *Handle) CountMarkersByType(kind docmodel.MarkerType) int {
	n := 0
	for _, m := range h.doc.Buffer.Markers {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

// SectionIndex returns the index into the SectionBreak marker sequence of
// the last SectionBreak at or before pos, or -1 if pos precedes every
// SectionBreak (or there are none).
func (h *Handle) SectionIndex(pos uint64) int {
	idx := -1
	for i, m := range h.doc.Buffer.Markers {
		if m.Kind != docmodel.SectionBreak {
			continue
		}
		if m.Position > pos {
			break
		}
		idx = i
	}
	// idx above is an index into the full marker slice; translate to an
	// index into the SectionBreak-only sequence.
	if idx == -1 {
		return -1
	}
	section := -1
	for i, m := range h.doc.Buffer.Markers {
		if m.Kind == docmodel.SectionBreak {
			section++
		}
		if i == idx {
			return section
		}
	}
	return -1
}

// SectionBounds returns the half-open [start, end) range of the section
// containing pos: start is the position of the last SectionBreak at or
// before pos (0 if none), end is the position of the next SectionBreak
// after start, or the content length if there is none.
func (h *Handle) SectionBounds(pos uint64) (start, end uint64) {
	breaks := h.MarkersOfType(docmodel.SectionBreak)
	contentLen := textutil.DisplayLen(h.doc.Buffer.Content)
	if len(breaks) == 0 {
		return 0, contentLen
	}
	start = 0
	end = contentLen
	for i, m := range breaks {
		if m.Position > pos {
			break
		}
		start = m.Position
		if i+1 < len(breaks) {
			end = breaks[i+1].Position
		} else {
			end = contentLen
		}
	}
	return start, end
}

// IDPosition looks up a qualified id (e.g. "chapter2.xhtml#intro") first,
// then falls back to the bare fragment ("intro"). It reports whether either
// lookup succeeded.
func (h *Handle) IDPosition(qualified, fragment string) (uint64, bool) {
	if qualified != "" {
		if pos, ok := h.doc.IDPositions[qualified]; ok {
			return pos, true
		}
	}
	if fragment != "" {
		if pos, ok := h.doc.IDPositions[fragment]; ok {
			return pos, true
		}
	}
	return 0, false
}

// TocLeaves flattens the TOC tree into document order, for proximity
// queries (e.g. "what TOC entry covers the current cursor position").
func (h *Handle) TocLeaves() []*docmodel.TocItem {
	var out []*docmodel.TocItem
	for _, root := range h.doc.TocItems {
		root.Walk(func(ti *docmodel.TocItem) { out = append(out, ti) })
	}
	return out
}

// TocItemAt returns the TOC entry whose resolved offset is the greatest one
// not exceeding pos (skipping UnresolvedOffset entries), or nil if none
// qualifies.
func (h *Handle) TocItemAt(pos uint64) *docmodel.TocItem {
	var best *docmodel.TocItem
	for _, ti := range h.TocLeaves() {
		if ti.Offset == docmodel.UnresolvedOffset || ti.Offset > pos {
			continue
		}
		if best == nil || ti.Offset > best.Offset {
			best = ti
		}
	}
	return best
}
