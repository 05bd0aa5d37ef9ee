// Package plaintext implements the Text/LOG parser: read bytes, sniff
// encoding, strip soft hyphens, done. No markers, no TOC.
package plaintext

import (
	"os"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/sniffer"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Parser implements parser.Parser for plain text and log files.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string                { return "Plain text" }
func (*Parser) Extensions() []string        { return []string{"txt", "log"} }
func (*Parser) SupportedFlags() parser.Flag { return 0 }

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	raw, err := os.ReadFile(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}
	content := textutil.RemoveSoftHyphens(sniffer.Decode(raw))
	return &docmodel.Document{
		Buffer: docmodel.DocumentBuffer{Content: content},
		Stats:  docmodel.ComputeStats(content),
	}, nil
}
