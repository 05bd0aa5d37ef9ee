// Package htmltext linearizes permissive (possibly not well-formed) HTML
// into the same buffer-plus-markers shape internal/convert/xmltext
// produces, using golang.org/x/net/html's tolerant parser. It backs the
// HTML/XHTML/HTM parsers directly and the Markdown parser indirectly
// (Markdown is rendered to HTML first, then run through this converter in
// Markdown mode).
package htmltext

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Mode selects a small behavior difference around <code> blocks.
type Mode int

const (
	// NativeHtml is plain HTML-to-text linearization.
	NativeHtml Mode = iota
	// Markdown is used for HTML rendered from a Markdown source; inside a
	// whitespace-preserving <code> block, child elements are re-serialized
	// as HTML text instead of losing their tags, since Markdown fenced
	// code commonly contains HTML-like sample snippets that must survive
	// verbatim.
	Markdown
)

// Result is the converter's output, matching xmltext.Result.
type Result struct {
	Text        string
	Markers     []docmodel.Marker
	IDPositions map[string]uint64
	Title       string // from <head><title>, if present
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"iframe": true, "object": true, "embed": true,
}

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
	style textutil.ListStyle
	next  int
}

type builder struct {
	mode      Mode
	out       strings.Builder
	committed int
	line      strings.Builder
	lineLen   int
	preserve  int
	inBody    bool
	inTitle   bool
	title     strings.Builder
	lists     []listState
	markers   []docmodel.Marker
	ids       map[string]uint64
}

// Convert parses src as permissive HTML and linearizes it in the given mode.
func Convert(src string, mode Mode) (Result, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return Result{}, err
	}
	b := &builder{mode: mode, ids: make(map[string]uint64)}
	b.walk(root)
	b.finalizeLine()
	return Result{
		Text:        b.out.String(),
		Markers:     b.markers,
		IDPositions: b.ids,
		Title:       textutil.TrimString(textutil.CollapseWhitespace(b.title.String())),
	}, nil
}

func (b *builder) pos() uint64 { return uint64(b.committed + b.lineLen) }

func (b *builder) write(s string) {
	if s == "" {
		return
	}
	b.line.WriteString(s)
	b.lineLen += utf8.RuneCountInString(s)
}

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

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func (b *builder) registerID(n *html.Node) {
	id := attr(n, "id")
	if id == "" {
		id = attr(n, "name")
	}
	if id != "" {
		if _, exists := b.ids[id]; !exists {
			b.ids[id] = b.pos()
		}
	}
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			sb.WriteString(node.Data)
		case html.ElementNode:
			if skippedElements[node.Data] {
				return
			}
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		default:
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
	}
	walk(n)
	return textutil.TrimString(textutil.CollapseWhitespace(sb.String()))
}

func childrenNamed(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

func (b *builder) walkChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walkNode(c)
	}
}

func (b *builder) walkNode(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if b.inTitle {
			b.title.WriteString(n.Data)
			return
		}
		if b.inBody {
			b.write(textutil.RemoveSoftHyphens(n.Data))
		}
	case html.ElementNode:
		b.walkElement(n)
	case html.DocumentNode, html.DoctypeNode:
		b.walkChildren(n)
	}
}

func (b *builder) walkElement(n *html.Node) {
	tag := n.Data
	if skippedElements[tag] {
		return
	}

	if tag == "title" {
		b.inTitle = true
		b.walkChildren(n)
		b.inTitle = false
		return
	}

	if tag == "body" {
		b.inBody = true
	}
	if !b.inBody {
		b.walkChildren(n)
		return
	}

	switch tag {
	case "section", "h1", "h2", "h3", "h4", "h5", "h6":
		b.finalizeLine()
	}

	b.registerID(n)

	switch tag {
	case "section":
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.SectionBreak, Position: b.pos()})
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(tag[1:])
		b.markers = append(b.markers, docmodel.Marker{
			Kind:     docmodel.HeadingMarkerType(level),
			Position: b.pos(),
			Text:     nodeText(n),
			Level:    int32(level),
		})
	case "a":
		text := nodeText(n)
		href := attr(n, "href")
		pos := b.pos()
		b.write(text)
		b.markers = append(b.markers, docmodel.Marker{
			Kind: docmodel.Link, Position: pos, Text: text, Reference: href,
			Length: textutil.DisplayLen(text),
		})
		return
	case "pre":
		b.finalizeLine()
		b.preserve++
		b.walkChildren(n)
		b.preserve--
		b.finalizeLine()
		return
	case "code":
		wasPreserving := b.preserve > 0
		b.preserve++
		if b.mode == Markdown && wasPreserving {
			b.write(renderChildrenAsHTML(n))
		} else {
			b.walkChildren(n)
		}
		b.preserve--
		return
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
		style := textutil.ListStyle("")
		start := 1
		if tag == "ol" {
			style = textutil.ListStyleDecimal
			if v := attr(n, "start"); v != "" {
				if i, err := strconv.Atoi(v); err == nil {
					start = i
				}
			}
			if v := attr(n, "type"); v != "" {
				style = textutil.ListStyle(v)
			}
		}
		itemCount := len(childrenNamed(n, "li"))
		pos := b.pos()
		b.lists = append(b.lists, listState{style: style, next: start})
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.List, Position: pos, Level: int32(itemCount)})
		b.walkChildren(n)
		b.lists = b.lists[:len(b.lists)-1]
		b.finalizeLine()
		return
	case "li":
		depth := len(b.lists)
		pos := b.pos()
		prefix := bulletPrefix(b.lists, depth)
		b.write(prefix)
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.ListItem, Position: pos, Text: prefix, Level: int32(depth)})
		if depth > 0 {
			b.lists[depth-1].next++
		}
		b.walkChildren(n)
		b.finalizeLine()
		return
	case "table":
		caption := tableCaption(n)
		serialized := renderElementAsHTML(n)
		pos := b.pos()
		b.walkChildren(n)
		b.finalizeLine()
		b.markers = append(b.markers, docmodel.Marker{
			Kind: docmodel.Table, Position: pos, Text: caption, Reference: serialized,
			Length: b.pos() - pos,
		})
		return
	}

	b.walkChildren(n)

	if blockElements[tag] {
		b.finalizeLine()
	}
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

func tableCaption(n *html.Node) string {
	if caps := childrenNamed(n, "caption"); len(caps) > 0 {
		if t := nodeText(caps[0]); t != "" {
			return t
		}
	}
	var firstRow *html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if firstRow != nil {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "tr" {
				firstRow = c
				return
			}
			find(c)
		}
	}
	find(n)
	if firstRow != nil {
		if t := nodeText(firstRow); t != "" {
			return t
		}
	}
	return "table"
}

func renderElementAsHTML(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

func renderChildrenAsHTML(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&sb, c)
	}
	return sb.String()
}
