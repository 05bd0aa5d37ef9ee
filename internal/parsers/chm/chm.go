// Package chm implements the CHM (Compiled HTML Help) parser: enumerate
// the container's entries, read the title out of the /#SYSTEM stream,
// parse the .hhc contents file into a TOC tree, then convert each HTML
// resource in TOC-then-remaining order, shifting offsets and qualifying
// id positions per file the same way the EPUB parser qualifies its spine
// sections. Link marker references are kept as written in the source
// file; they are not resolved against the file's directory.
package chm

import (
	"encoding/binary"
	"fmt"
	"path"
	"strings"

	"github.com/trypsynth/paperback-core/internal/convert/htmltext"
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/sniffer"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Parser implements parser.Parser for CHM documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "Compiled HTML Help" }
func (*Parser) Extensions() []string { return []string{"chm"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsSections | parser.SupportsTOC
}

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	c, err := openContainer(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}

	title := systemTitle(c)

	var tocEntries []*tocEntry
	hhcName := findHHC(c)
	if hhcName != "" {
		if raw, err := c.read(hhcName); err == nil {
			tocEntries = parseHHC(sniffer.Decode(raw))
		}
	}

	order := buildFileOrder(tocEntries, c.htmlNames())

	doc := &docmodel.Document{
		Title:       title,
		IDPositions: make(map[string]uint64),
	}
	var text strings.Builder
	var markers []docmodel.Marker
	fileStarts := make(map[string]uint64)
	sectionNum := 0

	for _, name := range order {
		raw, err := c.read(name)
		if err != nil {
			continue
		}
		sectionNum++
		start := textutil.DisplayLen(text.String())
		fileStarts[name] = start
		markers = append(markers, docmodel.Marker{
			Kind: docmodel.SectionBreak, Position: start,
			Text: fmt.Sprintf("Section %d", sectionNum),
		})

		res, err := htmltext.Convert(sniffer.Decode(raw), htmltext.NativeHtml)
		if err != nil {
			continue
		}
		for _, m := range res.Markers {
			m.Position += start
			markers = append(markers, m)
		}
		for frag, pos := range res.IDPositions {
			doc.IDPositions[name+"#"+frag] = pos + start
		}
		text.WriteString(res.Text)
		if !strings.HasSuffix(res.Text, "\n") {
			text.WriteByte('\n')
		}
	}

	doc.Buffer = docmodel.DocumentBuffer{Content: text.String(), Markers: markers}
	doc.Stats = docmodel.ComputeStats(doc.Buffer.Content)
	doc.SpineItems = order
	doc.TocItems = tocEntriesToItems(tocEntries, doc, fileStarts)
	return doc, nil
}

// systemTitle reads the /#SYSTEM stream, a sequence of (uint16 type,
// uint16 length, length bytes) records, and returns the NUL-terminated
// string in the type-3 ("title") record, per spec.md §4.6.
func systemTitle(c *container) string {
	raw, err := c.read("/#SYSTEM")
	if err != nil {
		return ""
	}
	pos := 4 // first 4 bytes are a version field, not a record
	for pos+4 <= len(raw) {
		recType := binary.LittleEndian.Uint16(raw[pos : pos+2])
		recLen := binary.LittleEndian.Uint16(raw[pos+2 : pos+4])
		pos += 4
		if pos+int(recLen) > len(raw) {
			break
		}
		data := raw[pos : pos+int(recLen)]
		pos += int(recLen)
		if recType == 3 {
			if i := strings.IndexByte(string(data), 0); i >= 0 {
				return string(data[:i])
			}
			return string(data)
		}
	}
	return ""
}

func findHHC(c *container) string {
	for name := range c.entries {
		if strings.HasSuffix(strings.ToLower(name), ".hhc") {
			return name
		}
	}
	return ""
}

// buildFileOrder returns the TOC's reference order first (deduplicated),
// then any remaining HTML entries not referenced by the TOC, per
// spec.md §4.6.
func buildFileOrder(entries []*tocEntry, allHTML []string) []string {
	seen := make(map[string]bool)
	var order []string
	var walk func([]*tocEntry)
	walk = func(items []*tocEntry) {
		for _, e := range items {
			if e.local != "" {
				file := strings.TrimPrefix(path.Clean("/"+strings.SplitN(e.local, "#", 2)[0]), "/")
				full := "/" + file
				if !seen[full] {
					seen[full] = true
					order = append(order, full)
				}
			}
			walk(e.children)
		}
	}
	walk(entries)
	for _, name := range allHTML {
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	return order
}

func tocEntriesToItems(entries []*tocEntry, doc *docmodel.Document, fileStarts map[string]uint64) []*docmodel.TocItem {
	var items []*docmodel.TocItem
	for _, e := range entries {
		item := &docmodel.TocItem{Name: e.name, Reference: e.local, Offset: docmodel.UnresolvedOffset}
		if e.local != "" {
			file, frag, _ := strings.Cut(e.local, "#")
			full := "/" + strings.TrimPrefix(path.Clean("/"+file), "/")
			if pos, ok := doc.IDPositions[full+"#"+frag]; ok {
				item.Offset = pos
			} else if start, ok := fileStarts[full]; ok {
				item.Offset = start
			}
		}
		item.Children = tocEntriesToItems(e.children, doc, fileStarts)
		items = append(items, item)
	}
	return items
}
