// Package xhtml implements the HTML, XHTML, and HTM parsers: sniff
// encoding, run the HTML-to-text converter in NativeHtml mode, build a TOC
// from headings.
package xhtml

import (
	"os"

	"github.com/trypsynth/paperback-core/internal/convert/htmltext"
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/sniffer"
)

// Parser implements parser.Parser for HTML/XHTML/HTM documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "HTML" }
func (*Parser) Extensions() []string { return []string{"html", "xhtml", "htm"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsSections | parser.SupportsTOC
}

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	raw, err := os.ReadFile(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}
	decoded := sniffer.Decode(raw)

	res, err := htmltext.Convert(decoded, htmltext.NativeHtml)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}

	doc := &docmodel.Document{
		Title: res.Title,
		Buffer: docmodel.DocumentBuffer{
			Content: res.Text,
			Markers: res.Markers,
		},
		IDPositions: res.IDPositions,
		TocItems:    docmodel.TocFromHeadings(res.Markers),
	}
	doc.Stats = docmodel.ComputeStats(doc.Buffer.Content)
	return doc, nil
}

