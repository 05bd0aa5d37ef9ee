// Package docmodel defines the uniform in-memory representation every
// format parser produces: a linear text buffer annotated with a catalog of
// semantic markers, a table of contents tree, and derived statistics.
package docmodel

// MarkerType tags the semantic kind of a Marker. Represented as a stable
// small integer for external interchange (serialization to the GUI shell,
// logging, etc.).
type MarkerType int

const (
	Heading1 MarkerType = iota + 1
	Heading2
	Heading3
	Heading4
	Heading5
	Heading6
	PageBreak
	SectionBreak
	TocItemMarker
	Link
	List
	ListItem
	Table
	Separator
)

// String renders the marker kind for logging and debug output.
func (t MarkerType) String() string {
	switch t {
	case Heading1:
		return "Heading1"
	case Heading2:
		return "Heading2"
	case Heading3:
		return "Heading3"
	case Heading4:
		return "Heading4"
	case Heading5:
		return "Heading5"
	case Heading6:
		return "Heading6"
	case PageBreak:
		return "PageBreak"
	case SectionBreak:
		return "SectionBreak"
	case TocItemMarker:
		return "TocItem"
	case Link:
		return "Link"
	case List:
		return "List"
	case ListItem:
		return "ListItem"
	case Table:
		return "Table"
	case Separator:
		return "Separator"
	default:
		return "Unknown"
	}
}

// IsHeading reports whether t is any of Heading1..Heading6.
func (t MarkerType) IsHeading() bool {
	return t >= Heading1 && t <= Heading6
}

// HeadingLevel returns the 1-6 nesting level for a heading marker type, or 0
// if t is not a heading.
func (t MarkerType) HeadingLevel() int {
	if !t.IsHeading() {
		return 0
	}
	return int(t-Heading1) + 1
}

// HeadingMarkerType returns the marker type for a 1-6 heading level,
// clamping out-of-range levels to the nearest valid one.
func HeadingMarkerType(level int) MarkerType {
	switch {
	case level <= 1:
		return Heading1
	case level >= 6:
		return Heading6
	default:
		return Heading1 + MarkerType(level-1)
	}
}

// UnresolvedOffset is the sentinel TocItem.Offset carries when its target
// location could not be resolved at parse time. Callers must treat it as
// "unknown location", never as a literal character position.
const UnresolvedOffset = ^uint64(0)

// Marker is a semantic annotation at a character position in
// DocumentBuffer.Content.
type Marker struct {
	Kind      MarkerType
	Position  uint64 // offset into Content, in display units (see textutil.DisplayLen)
	Text      string // marker label: heading text, link display text, table caption, ...
	Reference string // resource target for Link/Table: hyperlink href, or serialized table HTML
	Level     int32  // 1-6 for headings; item count for List; indentation depth for ListItem; 0 otherwise
	Length    uint64 // span length, for markers that cover a substring (Separator/Table/Link)
}

// DocumentBuffer is the linear text a parser builds up, plus the markers
// discovered while building it. Writers append to Content and append
// markers as they are found; order between the two is not significant until
// a DocumentHandle sorts the markers.
type DocumentBuffer struct {
	Content string
	Markers []Marker
}

// TocItem is a node in the recursive table-of-contents tree that format
// parsers build from headings, navigation documents, or outlines.
type TocItem struct {
	Name      string
	Reference string
	Offset    uint64 // position into Content, or UnresolvedOffset if unresolvable
	Children  []*TocItem
}

// TocFromHeadings builds a flat TOC (no nesting) from a marker slice's
// Heading1..Heading6 entries, in their given order. Every flat-heading
// format parser (no native outline/navigation document of its own) shares
// this construction.
func TocFromHeadings(markers []Marker) []*TocItem {
	var items []*TocItem
	for _, m := range markers {
		if !m.Kind.IsHeading() {
			continue
		}
		items = append(items, &TocItem{Name: m.Text, Offset: m.Position})
	}
	return items
}

// Walk visits t and every descendant, in document order, calling fn for
// each. This is the primitive the "TOC in-order traversal yields ascending
// positions" invariant is checked against.
func (t *TocItem) Walk(fn func(*TocItem)) {
	if t == nil {
		return
	}
	fn(t)
	for _, c := range t.Children {
		c.Walk(fn)
	}
}

// Bookmark marks a point or range in a document. Start == End denotes a
// whole-line bookmark; Start < End denotes a ranged selection.
type Bookmark struct {
	Start int64
	End   int64
	Note  string
}

// IsWholeLine reports whether b is a whole-line bookmark (Start == End).
func (b Bookmark) IsWholeLine() bool {
	return b.Start == b.End
}

// NavigationHistory is the serializable form of cursor-position history.
type NavigationHistory struct {
	Positions []int64
	Index     int
}

// DocumentStats holds counts derived from Content once parsing completes.
type DocumentStats struct {
	WordCount             int
	LineCount             int
	CharCount             int
	CharCountNoWhitespace int
}

// Document is the parsed artifact a format parser returns. It is immutable
// once constructed; DocumentHandle (internal/dochandle) is the read-only
// query surface over it, and Session (internal/session) is the only thing
// permitted to layer mutable state on top.
type Document struct {
	Title  string
	Author string
	Buffer DocumentBuffer

	TocItems      []*TocItem
	IDPositions   map[string]uint64 // anchor id (optionally "path#id") -> character offset
	SpineItems    []string          // ordered manifest ids, for multi-section formats (EPUB/CHM); empty otherwise
	ManifestItems map[string]string // manifest id -> resource path

	Stats DocumentStats
}

// ComputeStats derives DocumentStats from content. Parsers call this once,
// after the buffer is fully built.
func ComputeStats(content string) DocumentStats {
	stats := DocumentStats{}
	inWord := false
	for _, r := range content {
		stats.CharCount++
		if r == '\n' {
			stats.LineCount++
		}
		if isWordRune(r) {
			if !inWord {
				stats.WordCount++
				inWord = true
			}
		} else {
			inWord = false
		}
		if !isWhitespaceRune(r) {
			stats.CharCountNoWhitespace++
		}
	}
	if stats.CharCount > 0 && content[len(content)-1] != '\n' {
		stats.LineCount++
	}
	return stats
}

func isWordRune(r rune) bool {
	return !isWhitespaceRune(r) && !isPunctRune(r)
}

func isWhitespaceRune(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', ' ', '​':
		return true
	default:
		return false
	}
}

func isPunctRune(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?', '"', '\'', '(', ')', '[', ']', '{', '}', '-', '—', '–':
		return true
	default:
		return false
	}
}
