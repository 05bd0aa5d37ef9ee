// Package pdf implements the PDF parser over the PDFium engine: one page
// break marker per page, a char-box delta heuristic for text layout,
// metadata extraction, and an outline-to-TOC walk resolving each bookmark's
// destination page to a buffer position.
package pdf

import (
	"fmt"
	"strings"
	"unicode"

	gopdfium "github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	corepdfium "github.com/trypsynth/paperback-core/internal/pdfium"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Parser implements parser.Parser for PDF documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string         { return "PDF" }
func (*Parser) Extensions() []string { return []string{"pdf"} }
func (*Parser) SupportedFlags() parser.Flag {
	return parser.SupportsPages | parser.SupportsTOC
}

// verticalDeltaThreshold is the line-break heuristic from spec.md §4.6: a
// vertical gap bigger than this many PDF units between consecutive chars
// means the next char starts a new line.
const verticalDeltaThreshold = 7.0

// fpdfPageObjImage is PDFium's FPDF_PAGEOBJ_IMAGE enum value.
const fpdfPageObjImage = 3

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	instance, err := corepdfium.Acquire()
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}
	defer instance.Close()

	openReq := &requests.OpenDocument{FilePath: &ctx.FilePath}
	if ctx.Password != "" {
		openReq.Password = &ctx.Password
	}
	opened, err := instance.OpenDocument(openReq)
	if err != nil {
		if isPasswordError(err) {
			return nil, parser.NewError(p.Name(), parser.KindAuth, fmt.Errorf("%w: %v", parser.ErrPasswordRequired, err))
		}
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}
	document := opened.Document
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: document})

	pageCountResp, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: document})
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindDecode, err)
	}

	var text strings.Builder
	var markers []docmodel.Marker
	pageOffsets := make([]uint64, pageCountResp.PageCount)
	sawImage, sawText := false, false

	for i := 0; i < pageCountResp.PageCount; i++ {
		offset := textutil.DisplayLen(text.String())
		pageOffsets[i] = offset
		markers = append(markers, docmodel.Marker{
			Kind: docmodel.PageBreak, Position: offset,
			Text: fmt.Sprintf("Page %d", i+1),
		})

		pageText, hasImage, extractErr := extractPage(instance, document, i)
		if extractErr != nil {
			continue
		}
		if hasImage {
			sawImage = true
		}
		if strings.TrimSpace(pageText) != "" {
			sawText = true
		}
		text.WriteString(pageText)
		if !strings.HasSuffix(pageText, "\n") {
			text.WriteByte('\n')
		}
	}

	if !sawText && sawImage {
		text.WriteString("[This document contains only images; no extractable text was found.]\n")
	}

	title, _ := metaText(instance, document, "Title")
	author, _ := metaText(instance, document, "Author")

	out := &docmodel.Document{
		Title:  title,
		Author: author,
		Buffer: docmodel.DocumentBuffer{Content: text.String(), Markers: markers},
	}
	out.Stats = docmodel.ComputeStats(out.Buffer.Content)
	out.TocItems = buildOutline(instance, document, pageOffsets)
	return out, nil
}

// extractPage loads a text page and walks its chars, applying the
// vertical/horizontal delta heuristics to reconstruct line and word breaks
// that PDFium's flat char stream doesn't preserve on its own. It also
// reports whether the page carries at least one image object, used for the
// "image-only document" fallback message.
func extractPage(instance gopdfium.Instance, document references.FPDF_DOCUMENT, index int) (string, bool, error) {
	pageResp, err := instance.FPDF_LoadPage(&requests.FPDF_LoadPage{Document: document, Index: index})
	if err != nil {
		return "", false, err
	}
	page := pageResp.Page
	defer instance.FPDF_ClosePage(&requests.FPDF_ClosePage{Page: page})

	hasImage := pageHasImage(instance, page)

	textPageResp, err := instance.FPDFText_LoadPage(&requests.FPDFText_LoadPage{Page: page})
	if err != nil {
		return "", hasImage, err
	}
	textPage := textPageResp.TextPage
	defer instance.FPDFText_ClosePage(&requests.FPDFText_ClosePage{TextPage: textPage})

	countResp, err := instance.FPDFText_CountChars(&requests.FPDFText_CountChars{TextPage: textPage})
	if err != nil || countResp.Count <= 0 {
		return "", hasImage, nil
	}

	var b strings.Builder
	var prevTop, prevRight, prevBottom float64
	havePrev := false

	for i := 0; i < countResp.Count; i++ {
		charResp, err := instance.FPDFText_GetUnicodeChar(&requests.FPDFText_GetUnicodeChar{TextPage: textPage, Index: i})
		if err != nil {
			continue
		}
		r := charResp.UnicodeChar
		if r == 0 {
			continue
		}
		boxResp, err := instance.FPDFText_GetCharBox(&requests.FPDFText_GetCharBox{TextPage: textPage, Index: i})
		if err == nil {
			if havePrev {
				verticalDelta := prevTop - boxResp.Top
				if verticalDelta < 0 {
					verticalDelta = -verticalDelta
				}
				charHeight := prevTop - prevBottom
				if charHeight <= 0 {
					charHeight = 1
				}
				horizontalThreshold := charHeight * 0.3
				if horizontalThreshold < 1 {
					horizontalThreshold = 1
				}
				horizontalDelta := boxResp.Left - prevRight
				switch {
				case verticalDelta > verticalDeltaThreshold:
					b.WriteByte('\n')
				case horizontalDelta > horizontalThreshold && isAlnum(r):
					b.WriteByte(' ')
				}
			}
			prevTop, prevRight, prevBottom = boxResp.Top, boxResp.Right, boxResp.Bottom
			havePrev = true
		}
		b.WriteRune(r)
	}
	return b.String(), hasImage, nil
}

func pageHasImage(instance gopdfium.Instance, page references.FPDF_PAGE) bool {
	countResp, err := instance.FPDFPage_CountObjects(&requests.FPDFPage_CountObjects{Page: page})
	if err != nil {
		return false
	}
	for i := 0; i < countResp.Count; i++ {
		objResp, err := instance.FPDFPage_GetObject(&requests.FPDFPage_GetObject{Page: page, Index: i})
		if err != nil {
			continue
		}
		typeResp, err := instance.FPDFPageObj_GetType(&requests.FPDFPageObj_GetType{PageObject: objResp.PageObject})
		if err == nil && typeResp.Type == fpdfPageObjImage {
			return true
		}
	}
	return false
}

func isPasswordError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "password")
}

func metaText(instance gopdfium.Instance, document references.FPDF_DOCUMENT, tag string) (string, error) {
	resp, err := instance.FPDF_GetMetaText(&requests.FPDF_GetMetaText{Document: document, Tag: tag})
	if err != nil {
		return "", err
	}
	return textutil.TrimString(resp.Value), nil
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// buildOutline walks the bookmark tree, resolving each destination to a
// 0-based page index and mapping it to that page's buffer offset.
func buildOutline(instance gopdfium.Instance, document references.FPDF_DOCUMENT, pageOffsets []uint64) []*docmodel.TocItem {
	firstResp, err := instance.FPDFBookmark_GetFirstChild(&requests.FPDFBookmark_GetFirstChild{Document: document, Bookmark: nil})
	if err != nil || firstResp.Bookmark == nil {
		return nil
	}
	return walkBookmarks(instance, document, firstResp.Bookmark, pageOffsets)
}

func walkBookmarks(instance gopdfium.Instance, document references.FPDF_DOCUMENT, first references.FPDF_BOOKMARK, pageOffsets []uint64) []*docmodel.TocItem {
	var items []*docmodel.TocItem
	bookmark := first
	for bookmark != nil {
		titleResp, _ := instance.FPDFBookmark_GetTitle(&requests.FPDFBookmark_GetTitle{Bookmark: bookmark})
		name := ""
		if titleResp != nil {
			name = textutil.TrimString(titleResp.Title)
		}
		item := &docmodel.TocItem{Name: name, Offset: docmodel.UnresolvedOffset}
		if idx, ok := resolveBookmarkPageIndex(instance, document, bookmark); ok && idx >= 0 && idx < len(pageOffsets) {
			item.Offset = pageOffsets[idx]
		}
		if childResp, err := instance.FPDFBookmark_GetFirstChild(&requests.FPDFBookmark_GetFirstChild{Document: document, Bookmark: bookmark}); err == nil && childResp.Bookmark != nil {
			item.Children = walkBookmarks(instance, document, childResp.Bookmark, pageOffsets)
		}
		items = append(items, item)
		nextResp, err := instance.FPDFBookmark_GetNextSibling(&requests.FPDFBookmark_GetNextSibling{Document: document, Bookmark: bookmark})
		if err != nil || nextResp.Bookmark == nil {
			break
		}
		bookmark = nextResp.Bookmark
	}
	return items
}

// resolveBookmarkPageIndex resolves a bookmark's destination to a 0-based
// page index. spec.md §4.6 also names named-destination and GoTo-action
// resolution as alternatives when a bookmark carries no direct /Dest array;
// go-pdfium's FPDFBookmark_GetDest already performs that resolution
// internally before returning a destination, so a single call covers all
// three cases.
func resolveBookmarkPageIndex(instance gopdfium.Instance, document references.FPDF_DOCUMENT, bookmark references.FPDF_BOOKMARK) (int, bool) {
	destResp, err := instance.FPDFBookmark_GetDest(&requests.FPDFBookmark_GetDest{Document: document, Bookmark: bookmark})
	if err != nil || destResp.Dest == nil {
		return 0, false
	}
	indexResp, err := instance.FPDFDest_GetDestPageIndex(&requests.FPDFDest_GetDestPageIndex{Document: document, Dest: destResp.Dest})
	if err != nil || indexResp.Index < 0 {
		return 0, false
	}
	return indexResp.Index, true
}
