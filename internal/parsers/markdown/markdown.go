// Package markdown implements the Markdown parser: sniff encoding, render
// to HTML with tables enabled via blackfriday, then run the HTML-to-text
// converter in Markdown mode.
package markdown

import (
	"os"

	"github.com/russross/blackfriday/v2"

	"github.com/trypsynth/paperback-core/internal/convert/htmltext"
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/sniffer"
)

// Parser implements parser.Parser for Markdown documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "Markdown" }
func (*Parser) Extensions() []string { return []string{"md", "markdown"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsSections | parser.SupportsTOC
}

var markdownExtensions = blackfriday.CommonExtensions | blackfriday.Tables

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	raw, err := os.ReadFile(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}
	decoded := sniffer.Decode(raw)

	rendered := blackfriday.Run([]byte(decoded), blackfriday.WithExtensions(markdownExtensions))

	res, err := htmltext.Convert(string(rendered), htmltext.Markdown)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}

	doc := &docmodel.Document{
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

