// Package docx implements the DOCX/DOCM parser: unzip the container, read
// the relationship map for external hyperlinks, then walk word/document.xml
// paragraph by paragraph, recognizing heading styles, hyperlinks (both the
// native <w:hyperlink> element and the three-run HYPERLINK field-code
// idiom), and tables.
package docx

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

// Parser implements parser.Parser for DOCX/DOCM documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "Word document" }
func (*Parser) Extensions() []string { return []string{"docx", "docm"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsTOC
}

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	arc, err := archive.Open(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}
	defer arc.Close()

	rels := parseRelationships(arc, "word/_rels/document.xml.rels")

	raw, err := arc.ReadBytes("word/document.xml")
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(sniffer.Decode(raw)); err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}
	body := doc.FindElement("//body")
	if body == nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, errNoBody)
	}

	b := &builder{rels: rels}
	for _, child := range body.ChildElements() {
		b.walkBlock(child)
	}
	b.finalizeParagraph()

	out := &docmodel.Document{
		Buffer: docmodel.DocumentBuffer{Content: b.text.String(), Markers: b.markers},
	}
	out.Stats = docmodel.ComputeStats(out.Buffer.Content)
	out.TocItems = docmodel.TocFromHeadings(b.markers)
	return out, nil
}

type docError string

func (e docError) Error() string { return string(e) }

const errNoBody = docError("document.xml has no body element")

// builder accumulates paragraph text into a single line per paragraph,
// flushed to the shared buffer on each paragraph boundary.
type builder struct {
	rels    map[string]string
	text    strings.Builder
	markers []docmodel.Marker
	line    strings.Builder
}

func (b *builder) pos() uint64 {
	return textutil.DisplayLen(b.text.String()) + textutil.DisplayLen(b.line.String())
}

func (b *builder) finalizeParagraph() {
	line := textutil.TrimString(b.line.String())
	b.line.Reset()
	if line == "" {
		return
	}
	b.text.WriteString(line)
	b.text.WriteByte('\n')
}

func (b *builder) walkBlock(el *etree.Element) {
	switch localName(el.Tag) {
	case "p":
		b.walkParagraph(el)
	case "tbl":
		b.walkTable(el)
	}
}

func (b *builder) walkParagraph(p *etree.Element) {
	start := b.pos()
	level := headingLevel(p)

	var pendingLink *pendingHyperlink
	for _, child := range p.ChildElements() {
		switch localName(child.Tag) {
		case "hyperlink":
			b.walkHyperlinkElement(child)
		case "r":
			b.walkRun(child, &pendingLink)
		}
	}
	b.finalizeParagraph()

	if level > 0 {
		text := strings.TrimSpace(strings.TrimSuffix(captureText(p), "\n"))
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.HeadingMarkerType(level), Position: start, Text: text})
	}
}

// headingLevel reads <w:pPr>'s <w:pStyle w:val="HeadingN"/> or
// <w:outlineLvl w:val="K"/> (level = K+1), per spec.md §4.6.
func headingLevel(p *etree.Element) int {
	pPr := p.SelectElement("pPr")
	if pPr == nil {
		return 0
	}
	if style := pPr.SelectElement("pStyle"); style != nil {
		val := style.SelectAttrValue("val", "")
		if n, ok := parseHeadingStyle(val); ok {
			return n
		}
	}
	if outline := pPr.SelectElement("outlineLvl"); outline != nil {
		if k, err := strconv.Atoi(outline.SelectAttrValue("val", "")); err == nil {
			return k + 1
		}
	}
	return 0
}

func parseHeadingStyle(val string) (int, bool) {
	const prefix = "Heading"
	if !strings.HasPrefix(val, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(val, prefix))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// pendingHyperlink tracks a HYPERLINK field-code sequence in progress: the
// instrText run names the URL, a fldChar "separate" opens the display-text
// runs, and a fldChar "end" closes it.
type pendingHyperlink struct {
	url     string
	start   uint64
	display strings.Builder
	active  bool
}

func (b *builder) walkHyperlinkElement(hl *etree.Element) {
	url := hyperlinkTarget(hl, b.rels)
	beforeRunes := textutil.DisplayLen(b.line.String())
	start := b.pos()
	for _, r := range hl.SelectElements("r") {
		b.writeRunText(r)
	}
	text := runeSuffix(b.line.String(), beforeRunes)
	if url != "" && text != "" {
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.Link, Position: start, Text: text, Reference: url})
	}
}

func runeSuffix(s string, skip int) string {
	runes := []rune(s)
	if skip >= len(runes) {
		return ""
	}
	return string(runes[skip:])
}

func hyperlinkTarget(hl *etree.Element, rels map[string]string) string {
	if anchor := hl.SelectAttrValue("anchor", ""); anchor != "" {
		return "#" + anchor
	}
	rid := hl.SelectAttrValue("r:id", "")
	if rid == "" {
		return ""
	}
	return rels[rid]
}

func (b *builder) walkRun(r *etree.Element, pending **pendingHyperlink) {
	for _, child := range r.Child {
		el, ok := child.(*etree.Element)
		if !ok {
			continue
		}
		switch localName(el.Tag) {
		case "instrText":
			if url, ok := parseHyperlinkField(el.Text()); ok {
				*pending = &pendingHyperlink{url: url}
			}
		case "fldChar":
			switch el.SelectAttrValue("fldCharType", "") {
			case "separate":
				if *pending != nil {
					(*pending).active = true
					(*pending).start = b.pos()
				}
			case "end":
				b.flushPendingHyperlink(pending)
			}
		case "t":
			if *pending != nil && (*pending).active {
				(*pending).display.WriteString(el.Text())
			}
			b.line.WriteString(textutil.RemoveSoftHyphens(el.Text()))
		case "tab":
			b.line.WriteByte('\t')
		case "br":
			b.finalizeParagraph()
		}
	}
}

func (b *builder) flushPendingHyperlink(pending **pendingHyperlink) {
	p := *pending
	*pending = nil
	if p == nil || !p.active {
		return
	}
	text := p.display.String()
	if text != "" {
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.Link, Position: p.start, Text: text, Reference: p.url})
	}
}

// parseHyperlinkField recognizes an instrText run of the form
// `HYPERLINK "url"`.
func parseHyperlinkField(instr string) (string, bool) {
	instr = strings.TrimSpace(instr)
	if !strings.HasPrefix(instr, "HYPERLINK") {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(instr, "HYPERLINK"))
	rest = strings.Trim(rest, `"`)
	if rest == "" {
		return "", false
	}
	return rest, true
}

func (b *builder) writeRunText(r *etree.Element) {
	for _, t := range r.SelectElements("t") {
		b.line.WriteString(textutil.RemoveSoftHyphens(t.Text()))
	}
}

func (b *builder) walkTable(tbl *etree.Element) {
	start := b.pos()
	caption := tableCaption(tbl)
	fragment, err := serialize(tbl)
	if err == nil {
		b.markers = append(b.markers, docmodel.Marker{
			Kind: docmodel.Table, Position: start, Text: caption, Reference: fragment,
		})
	}
	for _, row := range tbl.SelectElements("tr") {
		for _, cell := range row.SelectElements("tc") {
			for _, p := range cell.SelectElements("p") {
				b.walkParagraph(p)
			}
		}
	}
}

func tableCaption(tbl *etree.Element) string {
	if row := tbl.SelectElement("tr"); row != nil {
		text := strings.TrimSpace(captureText(row))
		if text != "" {
			return text
		}
	}
	return "table"
}

func captureText(el *etree.Element) string {
	var b strings.Builder
	for _, t := range el.SelectElements("t") {
		b.WriteString(t.Text())
	}
	for _, child := range el.ChildElements() {
		if localName(child.Tag) != "t" {
			b.WriteString(captureText(child))
		}
	}
	return b.String()
}

func serialize(el *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	return doc.WriteToString()
}

func parseRelationships(arc *archive.Archive, path string) map[string]string {
	rels := make(map[string]string)
	raw, err := arc.ReadBytes(path)
	if err != nil {
		return rels
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return rels
	}
	root := doc.Root()
	if root == nil {
		return rels
	}
	for _, rel := range root.SelectElements("Relationship") {
		id := rel.SelectAttrValue("Id", "")
		target := rel.SelectAttrValue("Target", "")
		if id != "" && target != "" {
			rels[id] = target
		}
	}
	return rels
}

func localName(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

