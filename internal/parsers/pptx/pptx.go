// Package pptx implements the PowerPoint parser: read the presentation's
// slide order from ppt/presentation.xml (via its relationship map), then
// for each slide in order emit a PageBreak marker labeled "Slide N", walk
// its shape text, and resolve <a:hlinkClick> hyperlinks via the slide's own
// relationship file.
package pptx

import (
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"

	"github.com/trypsynth/paperback-core/internal/archive"
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/sniffer"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Parser implements parser.Parser for PPTX documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "PowerPoint presentation" }
func (*Parser) Extensions() []string { return []string{"pptx"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsPages
}

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	arc, err := archive.Open(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}
	defer arc.Close()

	presRels := parseRelationships(arc, "ppt/_rels/presentation.xml.rels")
	slideIDs, err := slideOrder(arc, presRels)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}

	var text strings.Builder
	var markers []docmodel.Marker

	for i, slidePath := range slideIDs {
		raw, err := arc.ReadBytes(slidePath)
		if err != nil {
			continue
		}
		slideRelsPath := path.Join(path.Dir(slidePath), "_rels", path.Base(slidePath)+".rels")
		slideRels := parseRelationships(arc, slideRelsPath)

		doc := etree.NewDocument()
		if err := doc.ReadFromString(sniffer.Decode(raw)); err != nil {
			continue
		}

		start := textutil.DisplayLen(text.String())
		markers = append(markers, docmodel.Marker{
			Kind: docmodel.PageBreak, Position: start,
			Text: fmt.Sprintf("Slide %d", i+1),
		})

		root := doc.Root()
		if root == nil {
			continue
		}
		b := &slideBuilder{rels: slideRels}
		for _, shape := range root.FindElements("//sp") {
			b.walkShape(shape)
		}
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

// slideOrder reads the presentation's sldIdLst (in the order the slides
// appear in the show), resolving each r:id to a slide part path via the
// presentation's own relationship map.
func slideOrder(arc *archive.Archive, presRels map[string]string) ([]string, error) {
	raw, err := arc.ReadBytes("ppt/presentation.xml")
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(sniffer.Decode(raw)); err != nil {
		return nil, err
	}
	sldIDLst := doc.FindElement("//sldIdLst")
	if sldIDLst == nil {
		return nil, nil
	}
	var slides []string
	for _, sldID := range sldIDLst.SelectElements("sldId") {
		rid := sldID.SelectAttrValue("r:id", "")
		if rid == "" {
			continue
		}
		if target, ok := presRels[rid]; ok {
			slides = append(slides, path.Join("ppt", target))
		}
	}
	return slides, nil
}

type slideBuilder struct {
	rels    map[string]string
	text    strings.Builder
	markers []docmodel.Marker
}

// walkShape writes a single shape's run text as one line, recording a Link
// marker spanning the whole shape text when any run carries an
// <a:hlinkClick>, per spec.md §4.6 ("the linked text is the enclosing
// shape's text").
func (b *slideBuilder) walkShape(shape *etree.Element) {
	txBody := shape.SelectElement("txBody")
	if txBody == nil {
		return
	}
	start := textutil.DisplayLen(b.text.String())
	var shapeText strings.Builder
	var href string
	for _, para := range txBody.SelectElements("p") {
		for _, run := range para.SelectElements("r") {
			if t := run.SelectElement("t"); t != nil {
				shapeText.WriteString(t.Text())
			}
			if rPr := run.SelectElement("rPr"); rPr != nil {
				if click := rPr.SelectElement("hlinkClick"); click != nil {
					if rid := click.SelectAttrValue("r:id", ""); rid != "" {
						if target, ok := b.rels[rid]; ok {
							href = target
						}
					}
				}
			}
		}
		shapeText.WriteByte('\n')
	}
	line := textutil.TrimString(shapeText.String())
	if line == "" {
		return
	}
	b.text.WriteString(line)
	b.text.WriteByte('\n')
	if href != "" {
		b.markers = append(b.markers, docmodel.Marker{Kind: docmodel.Link, Position: start, Text: line, Reference: href})
	}
}

func parseRelationships(arc *archive.Archive, relPath string) map[string]string {
	rels := make(map[string]string)
	raw, err := arc.ReadBytes(relPath)
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
