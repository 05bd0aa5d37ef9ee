// Package xmltext linearizes a well-formed XML or XHTML document into the
// buffer-plus-markers shape internal/docmodel defines, via a depth-first
// walk over a beevik/etree tree. This is the converter the EPUB, XML, and
// FB2 parsers build on.
package xmltext

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Result is the converter's output: linearized text, the markers found
// while linearizing, and the id/name -> position index.
type Result struct {
	Text        string
	Markers     []docmodel.Marker
	IDPositions map[string]uint64
}

// skippedElements are never walked, including their descendants.
var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"iframe": true, "object": true, "embed": true,
}

// blockElements finalize the current line when they close.
var blockElements = map[string]bool{
	"div": true, "p": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "ul": true, "ol": true, "li": true,
	"section": true, "article": true, "header": true, "footer": true,
	"nav": true, "aside": true, "main": true, "figure": true, "figcaption": true,
	"address": true, "hr": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true, "tr": true, "td": true, "th": true,
}

type listState struct {
	style     textutil.ListStyle
	next      int
	itemCount int
}

// builder accumulates output and marker state during the tree walk.
type builder struct {
	out         strings.Builder
	committed   int // rune count already flushed to out
	line        strings.Builder
	lineLen     int
	preserve    int // >0 while inside <pre>/<code>
	inBody      bool
	lists       []listState
	markers     []docmodel.Marker
	ids         map[string]uint64
}

// Convert linearizes xml, a complete XML or XHTML document.
func Convert(xml string) (Result, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return Result{}, err
	}
	b := &builder{ids: make(map[string]uint64)}
	root := doc.Root()
	if root != nil {
		// Documents with no <body> element (bare XML, FB2 fragments) are
		// treated as already "in body" so their content is not silently
		// dropped; an actual <body> element still toggles this normally.
		if findBody(root) == nil {
			b.inBody = true
		}
		b.walk(root)
	}
	b.finalizeLine()
	return Result{Text: b.out.String(), Markers: b.markers, IDPositions: b.ids}, nil
}

func findBody(e *etree.Element) *etree.Element {
	if strings.EqualFold(e.Tag, "body") {
		return e
	}
	for _, c := range e.ChildElements() {
		if found := findBody(c); found != nil {
			return found
		}
	}
	return nil
}

func (b *builder) pos() uint64 { return uint64(b.committed + b.lineLen) }

func (b *builder) write(s string) {
	if s == "" {
		return
	}
	b.line.WriteString(s)
	b.lineLen += utf8.RuneCountInString(s)
}

// finalizeLine commits the open line to out, trimming it (unless inside a
// preserve-whitespace scope) and dropping it entirely if it is empty, so
// consecutive block closes don't pile up blank lines.
func (b *builder) finalizeLine() {
	raw := b.line.String()
	line := raw
	if b.preserve == 0 {
		line = textutil.TrimString(textutil.CollapseWhitespace(raw))
	}
	b.line.Reset()
	b.lineLen = 0
	if line == "" {
		return
	}
	b.out.WriteString(line)
	b.out.WriteByte('\n')
	b.committed += utf8.RuneCountInString(line) + 1
}

func (b *builder) registerID(e *etree.Element) {
	id := e.SelectAttrValue("id", "")
	if id == "" {
		id = e.SelectAttrValue("name", "")
	}
	if id != "" {
		if _, exists := b.ids[id]; !exists {
			b.ids[id] = b.pos()
		}
	}
}

// elementText concatenates all descendant character data of e, collapsed
// and trimmed, without touching the converter's own output state. Used for
// heading and link captions, which are recorded as markers up front.
func elementText(e *etree.Element) string {
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, tok := range el.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				sb.WriteString(t.Data)
			case *etree.Element:
				if skippedElements[strings.ToLower(t.Tag)] {
					continue
				}
				walk(t)
			}
		}
	}
	walk(e)
	return textutil.TrimString(textutil.CollapseWhitespace(sb.String()))
}

func (b *builder) walk(e *etree.Element) {
	tag := strings.ToLower(e.Tag)
	if skippedElements[tag] {
		return
	}

	if tag == "body" {
		b.inBody = true
	}

	if !b.inBody {
		// Outside body, only descend looking for the body element itself;
		// text is ignored.
		for _, c := range e.ChildElements() {
			b.walk(c)
		}
		return
	}

	switch tag {
	case "section", "h1", "h2", "h3", "h4", "h5", "h6":
		// These finalize any in-progress line before registering their id
		// (if any) and their marker, so Position lands on the line their
		// own content will occupy rather than mid-way through whatever
		// preceded them.
		b.finalizeLine()
	}

	b.registerID(e)

	switch tag {
	case "section":
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.SectionBreak, Position: b.pos()})
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(tag[1:])
		b.markers = append(b.markers, docmodel.Marker{
			Kind:     docmodel.HeadingMarkerType(level),
			Position: b.pos(),
			Text:     elementText(e),
			Level:    int32(level),
		})
	case "a":
		text := elementText(e)
		href := e.SelectAttrValue("href", "")
		pos := b.pos()
		b.write(text)
		b.markers = append(b.markers, docmodel.Marker{
			Kind: docmodel.Link, Position: pos, Text: text, Reference: href,
			Length: textutil.DisplayLen(text),
		})
		return // descendants already captured via elementText
	case "pre":
		b.finalizeLine()
		b.preserve++
		defer func() { b.preserve--; b.finalizeLine() }()
	case "code":
		b.preserve++
		defer func() { b.preserve-- }()
	case "br":
		b.finalizeLine()
		return
	case "hr":
		b.finalizeLine()
		sep := strings.Repeat("-", 40)
		pos := b.pos()
		b.write(sep)
		b.finalizeLine()
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.Separator, Position: pos, Length: 40})
		return
	case "ul", "ol":
		b.finalizeLine()
		style := textutil.ListStyleDecimal
		start := 1
		if tag == "ol" {
			if v := e.SelectAttrValue("start", ""); v != "" {
				if n, err := strconv.Atoi(v); err == nil {
					start = n
				}
			}
			if v := e.SelectAttrValue("type", ""); v != "" {
				style = textutil.ListStyle(v)
			}
		} else {
			style = "" // unordered lists use bullet glyphs, not a numbering style
		}
		itemCount := len(childrenNamed(e, "li"))
		pos := b.pos()
		b.lists = append(b.lists, listState{style: style, next: start, itemCount: itemCount})
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.List, Position: pos, Level: int32(itemCount)})
		defer func() {
			b.lists = b.lists[:len(b.lists)-1]
			b.finalizeLine()
		}()
	case "li":
		depth := len(b.lists)
		pos := b.pos()
		prefix := bulletPrefix(b.lists, depth)
		b.write(prefix)
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.ListItem, Position: pos, Text: prefix, Level: int32(depth)})
		if depth > 0 {
			b.lists[depth-1].next++
		}
	case "table":
		caption := tableCaption(e)
		serialized := serializeElement(e)
		pos := b.pos()
		b.walkTableBody(e)
		b.finalizeLine()
		b.markers = append(b.markers, docmodel.Marker{
			Kind: docmodel.Table, Position: pos, Text: caption, Reference: serialized,
			Length: b.pos() - pos,
		})
		return
	}

	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.write(textutil.RemoveSoftHyphens(t.Data))
		case *etree.Element:
			b.walk(t)
		}
	}

	if blockElements[tag] {
		b.finalizeLine()
	}
}

// walkTableBody descends into a table's children (thead/tbody/tr/td/...)
// the normal way, so its text still lands in the linear document in
// addition to the verbatim fragment captured in the Table marker.
func (b *builder) walkTableBody(e *etree.Element) {
	for _, c := range e.ChildElements() {
		b.walk(c)
	}
}

func childrenNamed(e *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if strings.EqualFold(c.Tag, tag) {
			out = append(out, c)
		}
	}
	return out
}

func bulletPrefix(lists []listState, depth int) string {
	if depth == 0 {
		return ""
	}
	ls := lists[depth-1]
	if ls.style == "" {
		glyphs := []string{"• ", "∘ ", "- "}
		return glyphs[(depth-1)%len(glyphs)]
	}
	return textutil.FormatListItem(ls.next, ls.style) + ". "
}

func tableCaption(e *etree.Element) string {
	for _, c := range e.ChildElements() {
		if strings.EqualFold(c.Tag, "caption") {
			if t := elementText(c); t != "" {
				return t
			}
		}
	}
	for _, c := range e.ChildElements() {
		if strings.EqualFold(c.Tag, "tr") {
			if t := elementText(c); t != "" {
				return t
			}
		}
		for _, cc := range c.ChildElements() {
			if strings.EqualFold(cc.Tag, "tr") {
				if t := elementText(cc); t != "" {
					return t
				}
			}
		}
	}
	return "table"
}

func serializeElement(e *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(e.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}
