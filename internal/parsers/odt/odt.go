// Package odt implements the OpenDocument Text parser: unzip the
// container and walk content.xml, recognizing text:h headings, text:p
// paragraphs, text:a links, and xml:id/id anchors.
package odt

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/trypsynth/paperback-core/internal/archive"
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/sniffer"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Parser implements parser.Parser for ODT documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "OpenDocument text" }
func (*Parser) Extensions() []string { return []string{"odt"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsTOC
}

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	arc, err := archive.Open(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}
	defer arc.Close()

	raw, err := arc.ReadBytes("content.xml")
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(sniffer.Decode(raw)); err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}
	body := doc.FindElement("//text")
	if body == nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, errNoText)
	}

	b := &builder{idPositions: make(map[string]uint64)}
	b.walkChildren(body)
	b.finalizeLine()

	out := &docmodel.Document{
		Buffer:      docmodel.DocumentBuffer{Content: b.text.String(), Markers: b.markers},
		IDPositions: b.idPositions,
	}
	out.Stats = docmodel.ComputeStats(out.Buffer.Content)
	out.TocItems = docmodel.TocFromHeadings(b.markers)
	return out, nil
}

type docError string

func (e docError) Error() string { return string(e) }

const errNoText = docError("content.xml has no office:text body")

type builder struct {
	text        strings.Builder
	line        strings.Builder
	markers     []docmodel.Marker
	idPositions map[string]uint64
}

func (b *builder) pos() uint64 {
	return textutil.DisplayLen(b.text.String()) + textutil.DisplayLen(b.line.String())
}

func (b *builder) finalizeLine() {
	line := textutil.TrimString(b.line.String())
	b.line.Reset()
	if line == "" {
		return
	}
	b.text.WriteString(line)
	b.text.WriteByte('\n')
}

// registerID records an id position for any element carrying an id or
// xml:id attribute (etree resolves both to the same unprefixed Key).
func (b *builder) registerID(el *etree.Element) {
	if id := el.SelectAttrValue("id", ""); id != "" {
		b.idPositions[id] = b.pos()
	}
}

func (b *builder) walkChildren(el *etree.Element) {
	for _, child := range el.ChildElements() {
		b.walkElement(child)
	}
}

func (b *builder) walkElement(el *etree.Element) {
	switch el.Tag {
	case "h":
		b.finalizeLine()
		start := b.pos()
		b.registerID(el)
		b.walkInline(el)
		text := textutil.TrimString(b.line.String())
		b.finalizeLine()
		level, _ := strconv.Atoi(el.SelectAttrValue("outline-level", "1"))
		if level < 1 {
			level = 1
		}
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.HeadingMarkerType(level), Position: start, Text: text})
	case "p":
		b.registerID(el)
		b.walkInline(el)
		b.finalizeLine()
	case "a":
		b.walkLink(el)
	default:
		b.registerID(el)
		b.walkChildren(el)
	}
}

// walkInline walks an element's children looking for text content and
// nested links/spans, writing plain character data directly to the line.
func (b *builder) walkInline(el *etree.Element) {
	for _, child := range el.Child {
		switch t := child.(type) {
		case *etree.CharData:
			b.line.WriteString(textutil.RemoveSoftHyphens(t.Data))
		case *etree.Element:
			if t.Tag == "a" {
				b.walkLink(t)
			} else {
				b.registerID(t)
				b.walkInline(t)
			}
		}
	}
}

func (b *builder) walkLink(a *etree.Element) {
	href := a.SelectAttrValue("href", "")
	beforeRunes := textutil.DisplayLen(b.line.String())
	start := b.pos()
	b.walkInline(a)
	text := runeSuffix(b.line.String(), beforeRunes)
	if href != "" && text != "" {
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.Link, Position: start, Text: text, Reference: href})
	}
}

func runeSuffix(s string, skip int) string {
	if skip <= 0 {
		return s
	}
	runes := []rune(s)
	if skip >= len(runes) {
		return ""
	}
	return string(runes[skip:])
}

