// Package epub implements the EPUB parser: unpack the ZIP container,
// resolve the OPF package document via META-INF/container.xml, walk the
// spine in order, convert each textual resource, and build a TOC
// preferring an EPUB3 navigation document over an NCX fallback.
package epub

import (
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"

	"github.com/trypsynth/paperback-core/internal/archive"
	"github.com/trypsynth/paperback-core/internal/convert/htmltext"
	"github.com/trypsynth/paperback-core/internal/convert/xmltext"
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/sniffer"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Parser implements parser.Parser for EPUB documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "EPUB" }
func (*Parser) Extensions() []string { return []string{"epub"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsSections | parser.SupportsTOC
}

type manifestItem struct {
	id        string
	href      string // resolved, archive-rooted path
	mediaType string
}

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	arc, err := archive.Open(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}
	defer arc.Close()

	opfPath, err := resolveOPFPath(arc)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}
	opfRaw, err := arc.ReadBytes(opfPath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}
	opfDoc := etree.NewDocument()
	if err := opfDoc.ReadFromString(sniffer.Decode(opfRaw)); err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}
	opfDir := path.Dir(opfPath)
	if opfDir == "." {
		opfDir = ""
	}

	pkg := opfDoc.Root()
	title, author := extractMetadata(pkg)
	manifest := parseManifest(pkg, opfDir)
	spineIDs, navID, ncxID := parseSpine(pkg)

	doc := &docmodel.Document{
		Title:         title,
		Author:        author,
		SpineItems:    spineIDs,
		ManifestItems: make(map[string]string, len(manifest)),
		IDPositions:   make(map[string]uint64),
	}
	for id, item := range manifest {
		doc.ManifestItems[id] = item.href
	}

	var text strings.Builder
	var markers []docmodel.Marker
	sectionNum := 0

	for _, id := range spineIDs {
		item, ok := manifest[id]
		if !ok || !isTextual(item.mediaType) {
			continue
		}
		raw, err := arc.ReadBytes(item.href)
		if err != nil {
			continue
		}
		decoded := sniffer.Decode(raw)

		sectionNum++
		start := textutil.DisplayLen(text.String())
		markers = append(markers, docmodel.Marker{
			Kind: docmodel.SectionBreak, Position: start,
			Text: fmt.Sprintf("Section %d", sectionNum),
		})

		sectionText, sectionMarkers, ids := convertSection(decoded)
		for _, m := range sectionMarkers {
			m.Position += start
			markers = append(markers, m)
		}
		for frag, pos := range ids {
			doc.IDPositions[item.href+"#"+frag] = pos + start
		}
		text.WriteString(sectionText)
		if !strings.HasSuffix(sectionText, "\n") {
			text.WriteByte('\n')
		}
	}

	doc.Buffer = docmodel.DocumentBuffer{Content: text.String(), Markers: markers}
	doc.Stats = docmodel.ComputeStats(doc.Buffer.Content)
	doc.TocItems = buildTOC(arc, manifest, navID, ncxID, doc)
	return doc, nil
}

// convertSection tries the XML converter first (most EPUB content is
// well-formed XHTML), falling back to the permissive HTML converter when
// the source isn't well-formed enough for etree to parse.
func convertSection(content string) (string, []docmodel.Marker, map[string]uint64) {
	if res, err := xmltext.Convert(content); err == nil {
		return res.Text, res.Markers, res.IDPositions
	}
	res, err := htmltext.Convert(content, htmltext.NativeHtml)
	if err != nil {
		return "", nil, nil
	}
	return res.Text, res.Markers, res.IDPositions
}

func isTextual(mediaType string) bool {
	mediaType = strings.ToLower(mediaType)
	return strings.HasPrefix(mediaType, "text/") ||
		(strings.HasPrefix(mediaType, "application/") && strings.Contains(mediaType, "xml"))
}

func resolveOPFPath(arc *archive.Archive) (string, error) {
	raw, err := arc.ReadBytes("META-INF/container.xml")
	if err != nil {
		return "", fmt.Errorf("reading container.xml: %w", err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return "", fmt.Errorf("parsing container.xml: %w", err)
	}
	rootfile := doc.FindElement("//rootfiles/rootfile")
	if rootfile == nil {
		return "", fmt.Errorf("container.xml has no rootfile entry")
	}
	fullPath := rootfile.SelectAttrValue("full-path", "")
	if fullPath == "" {
		return "", fmt.Errorf("rootfile has no full-path attribute")
	}
	return fullPath, nil
}

func extractMetadata(pkg *etree.Element) (title, author string) {
	if pkg == nil {
		return "", ""
	}
	meta := pkg.SelectElement("metadata")
	if meta == nil {
		return "", ""
	}
	for _, c := range meta.ChildElements() {
		switch localName(c.Tag) {
		case "title":
			if title == "" {
				title = textutil.TrimString(c.Text())
			}
		case "creator":
			if author == "" {
				author = textutil.TrimString(c.Text())
			}
		}
	}
	return title, author
}

func parseManifest(pkg *etree.Element, opfDir string) map[string]manifestItem {
	items := make(map[string]manifestItem)
	if pkg == nil {
		return items
	}
	manifest := pkg.SelectElement("manifest")
	if manifest == nil {
		return items
	}
	for _, item := range manifest.SelectElements("item") {
		id := item.SelectAttrValue("id", "")
		href := item.SelectAttrValue("href", "")
		if id == "" || href == "" {
			continue
		}
		resolved := href
		if opfDir != "" {
			resolved = path.Join(opfDir, href)
		}
		items[id] = manifestItem{
			id:        id,
			href:      resolved,
			mediaType: item.SelectAttrValue("media-type", ""),
		}
	}
	return items
}

// parseSpine returns the ordered spine manifest ids, plus the manifest ids
// of the EPUB3 navigation document (properties="nav") and legacy NCX
// (spine's toc attribute), if present.
func parseSpine(pkg *etree.Element) (spine []string, navID, ncxID string) {
	if pkg == nil {
		return nil, "", ""
	}
	manifest := pkg.SelectElement("manifest")
	if manifest != nil {
		for _, item := range manifest.SelectElements("item") {
			if hasToken(item.SelectAttrValue("properties", ""), "nav") {
				navID = item.SelectAttrValue("id", "")
			}
		}
	}
	spineEl := pkg.SelectElement("spine")
	if spineEl == nil {
		return nil, navID, ""
	}
	ncxID = spineEl.SelectAttrValue("toc", "")
	for _, ref := range spineEl.SelectElements("itemref") {
		if id := ref.SelectAttrValue("idref", ""); id != "" {
			spine = append(spine, id)
		}
	}
	return spine, navID, ncxID
}

func hasToken(s, token string) bool {
	for _, f := range strings.Fields(s) {
		if f == token {
			return true
		}
	}
	return false
}

func localName(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// buildTOC prefers the EPUB3 navigation document's toc nav, falling back
// to NCX NavPoints; each entry's offset is resolved from its (file,
// fragment) by looking up "path#frag" then "frag" in doc.IDPositions;
// the offset found is not checked against the destination section's bounds.
func buildTOC(arc *archive.Archive, manifest map[string]manifestItem, navID, ncxID string, doc *docmodel.Document) []*docmodel.TocItem {
	if navID != "" {
		if item, ok := manifest[navID]; ok {
			if raw, err := arc.ReadBytes(item.href); err == nil {
				if items := parseNavDocument(sniffer.Decode(raw), path.Dir(item.href), doc); items != nil {
					return items
				}
			}
		}
	}
	if ncxID != "" {
		if item, ok := manifest[ncxID]; ok {
			if raw, err := arc.ReadBytes(item.href); err == nil {
				if items := parseNCX(sniffer.Decode(raw), path.Dir(item.href), doc); items != nil {
					return items
				}
			}
		}
	}
	return nil
}

func resolveTocOffset(doc *docmodel.Document, dir, href string) (string, uint64) {
	filePart, frag, _ := strings.Cut(href, "#")
	resolved := filePart
	if dir != "" && filePart != "" {
		resolved = path.Join(dir, filePart)
	}
	qualified := resolved + "#" + frag
	if pos, ok := doc.IDPositions[qualified]; ok {
		return resolved, pos
	}
	if pos, ok := doc.IDPositions[frag]; ok {
		return resolved, pos
	}
	return resolved, docmodel.UnresolvedOffset
}

// parseNavDocument parses an EPUB3 navigation document's toc nav into a
// TocItem tree, preserving nested <ol> hierarchy.
func parseNavDocument(content, dir string, doc *docmodel.Document) []*docmodel.TocItem {
	etreeDoc := etree.NewDocument()
	if err := etreeDoc.ReadFromString(content); err != nil {
		return nil
	}
	var tocNav *etree.Element
	for _, nav := range etreeDoc.FindElements("//nav") {
		t := nav.SelectAttrValue("type", "")
		if t == "" {
			t = nav.SelectAttrValue("epub:type", "")
		}
		if strings.Contains(t, "toc") {
			tocNav = nav
			break
		}
	}
	if tocNav == nil {
		return nil
	}
	ol := tocNav.SelectElement("ol")
	if ol == nil {
		return nil
	}
	return navListToItems(ol, dir, doc)
}

func navListToItems(ol *etree.Element, dir string, doc *docmodel.Document) []*docmodel.TocItem {
	var items []*docmodel.TocItem
	for _, li := range ol.SelectElements("li") {
		a := li.SelectElement("a")
		if a == nil {
			continue
		}
		name := textutil.TrimString(textutil.CollapseWhitespace(a.Text()))
		href := a.SelectAttrValue("href", "")
		_, offset := resolveTocOffset(doc, dir, href)
		item := &docmodel.TocItem{Name: name, Reference: href, Offset: offset}
		if childOl := li.SelectElement("ol"); childOl != nil {
			item.Children = navListToItems(childOl, dir, doc)
		}
		items = append(items, item)
	}
	return items
}

// parseNCX parses a legacy NCX document's navMap into a TocItem tree.
func parseNCX(content, dir string, doc *docmodel.Document) []*docmodel.TocItem {
	etreeDoc := etree.NewDocument()
	if err := etreeDoc.ReadFromString(content); err != nil {
		return nil
	}
	navMap := etreeDoc.FindElement("//navMap")
	if navMap == nil {
		return nil
	}
	return navPointsToItems(navMap.SelectElements("navPoint"), dir, doc)
}

func navPointsToItems(points []*etree.Element, dir string, doc *docmodel.Document) []*docmodel.TocItem {
	var items []*docmodel.TocItem
	for _, np := range points {
		var name, href string
		if label := np.SelectElement("navLabel"); label != nil {
			if text := label.SelectElement("text"); text != nil {
				name = textutil.TrimString(textutil.CollapseWhitespace(text.Text()))
			}
		}
		if content := np.SelectElement("content"); content != nil {
			href = content.SelectAttrValue("src", "")
		}
		_, offset := resolveTocOffset(doc, dir, href)
		item := &docmodel.TocItem{Name: name, Reference: href, Offset: offset}
		item.Children = navPointsToItems(np.SelectElements("navPoint"), dir, doc)
		items = append(items, item)
	}
	return items
}

