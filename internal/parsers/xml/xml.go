// Package xml implements the generic XML parser: sniff encoding, run the
// XML-to-text converter, project markers and ids straight through.
package xml

import (
	"os"

	"github.com/trypsynth/paperback-core/internal/convert/xmltext"
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/sniffer"
)

// Parser implements parser.Parser for bare XML documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "XML" }
func (*Parser) Extensions() []string { return []string{"xml"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsSections | parser.SupportsTOC
}

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	raw, err := os.ReadFile(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}
	decoded := sniffer.Decode(raw)

	res, err := xmltext.Convert(decoded)
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
