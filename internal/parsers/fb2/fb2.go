// Package fb2 implements the FictionBook (FB2) parser: strip <binary>
// subtrees (embedded cover art and images, irrelevant to a text reader),
// pull title/author out of description/title-info, then hand the
// remaining XML to the XML-to-text converter, adapted from the teacher's
// own etree-walking dispatch style in its fb2 package (parse.go).
package fb2

import (
	"os"
	"strings"

	"github.com/beevik/etree"

	"github.com/trypsynth/paperback-core/internal/convert/xmltext"
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/sniffer"
)

// Parser implements parser.Parser for FictionBook 2 documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "FictionBook" }
func (*Parser) Extensions() []string { return []string{"fb2"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsSections | parser.SupportsTOC
}

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	raw, err := os.ReadFile(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(sniffer.Decode(raw)); err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, errNoRoot)
	}

	title, author := extractMetadata(root)
	stripBinaries(root)

	stripped, err := doc.WriteToString()
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}

	res, err := xmltext.Convert(stripped)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}

	out := &docmodel.Document{
		Title:  title,
		Author: author,
		Buffer: docmodel.DocumentBuffer{
			Content: res.Text,
			Markers: res.Markers,
		},
		IDPositions: res.IDPositions,
		TocItems:    docmodel.TocFromHeadings(res.Markers),
	}
	out.Stats = docmodel.ComputeStats(out.Buffer.Content)
	return out, nil
}

var errNoRoot = docError("document has no root element")

type docError string

func (e docError) Error() string { return string(e) }

// stripBinaries removes every direct <binary> child of the FictionBook
// root: base64-encoded cover art and embedded images the reader core has
// no use for and that would otherwise bloat the converter's input.
func stripBinaries(root *etree.Element) {
	for _, bin := range root.SelectElements("binary") {
		root.RemoveChild(bin)
	}
}

// extractMetadata reads description/title-info/book-title and the first
// author's first-name/last-name, matching the teacher's own
// parseTitleInfo/parseAuthor field names.
func extractMetadata(root *etree.Element) (title, author string) {
	desc := root.SelectElement("description")
	if desc == nil {
		return "", ""
	}
	info := desc.SelectElement("title-info")
	if info == nil {
		return "", ""
	}
	if bt := info.SelectElement("book-title"); bt != nil {
		title = strings.TrimSpace(bt.Text())
	}
	if a := info.SelectElement("author"); a != nil {
		var first, last string
		if fn := a.SelectElement("first-name"); fn != nil {
			first = strings.TrimSpace(fn.Text())
		}
		if ln := a.SelectElement("last-name"); ln != nil {
			last = strings.TrimSpace(ln.Text())
		}
		author = strings.TrimSpace(first + " " + last)
	}
	return title, author
}

