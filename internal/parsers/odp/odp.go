// Package odp implements the OpenDocument Presentation parser: unzip the
// container, walk content.xml's draw:page elements in document order,
// emitting a PageBreak marker labeled "Slide N" per page and recording
// text:a hyperlinks against the enclosing text.
package odp

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/trypsynth/paperback-core/internal/archive"
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/sniffer"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Parser implements parser.Parser for ODP documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "OpenDocument presentation" }
func (*Parser) Extensions() []string { return []string{"odp"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsPages
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
	body := doc.FindElement("//presentation")
	if body == nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, errNoPresentation)
	}

	var text strings.Builder
	var markers []docmodel.Marker
	pages := body.SelectElements("page")

	for i, page := range pages {
		start := textutil.DisplayLen(text.String())
		markers = append(markers, docmodel.Marker{
			Kind: docmodel.PageBreak, Position: start,
			Text: fmt.Sprintf("Slide %d", i+1),
		})
		b := &builder{}
		b.walkChildren(page)
		for _, m := range b.markers {
			m.Position += start
			markers = append(markers, m)
		}
		text.WriteString(b.text.String())
	}

	out := &docmodel.Document{
		Buffer: docmodel.DocumentBuffer{Content: text.String(), Markers: markers},
	}
	out.Stats = docmodel.ComputeStats(out.Buffer.Content)
	return out, nil
}

type docError string

func (e docError) Error() string { return string(e) }

const errNoPresentation = docError("content.xml has no office:presentation body")

type builder struct {
	text    strings.Builder
	line    strings.Builder
	markers []docmodel.Marker
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

func (b *builder) walkChildren(el *etree.Element) {
	for _, child := range el.ChildElements() {
		b.walkElement(child)
	}
}

func (b *builder) walkElement(el *etree.Element) {
	switch el.Tag {
	case "p":
		b.walkInline(el)
		b.finalizeLine()
	case "a":
		b.walkLink(el)
	default:
		b.walkChildren(el)
	}
}

func (b *builder) walkInline(el *etree.Element) {
	for _, child := range el.Child {
		switch t := child.(type) {
		case *etree.CharData:
			b.line.WriteString(textutil.RemoveSoftHyphens(t.Data))
		case *etree.Element:
			if t.Tag == "a" {
				b.walkLink(t)
			} else {
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
