// Package session wraps a read-only dochandle.Handle with the mutable
// per-document state a reading session accumulates: navigation history, the
// stable-position heuristic that feeds it, bookmark queries, link
// activation, and status/position reporting.
//
// A Session is exclusively owned by its caller; it is not safe for
// concurrent use without external synchronization, matching the
// single-owner contract spec.md §5 requires of the Session type.
package session

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/dochandle"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/reader"
)

// ParserFlag is a capability bit a format parser declares support for. It is
// an alias of parser.Flag so parsers and sessions share one definition.
type ParserFlag = parser.Flag

const (
	SupportsSections = parser.SupportsSections
	SupportsTOC      = parser.SupportsTOC
	SupportsPages    = parser.SupportsPages
	SupportsLists    = parser.SupportsLists
)

const maxHistory = 10

// stableMoveThreshold is the minimum display-unit distance the cursor must
// move from the last recorded stable position before it is worth recording
// in history; this filters incidental cursor churn (arrow-key stepping,
// selection dragging) out of the back/forward stack.
const stableMoveThreshold = 300

// Session is a mutable overlay over one immutable document handle.
type Session struct {
	handle     *dochandle.Handle
	filePath   string
	flags      ParserFlag
	log        *zap.Logger
	history    []int64
	historyIdx int
	lastStable *int64
}

// New wraps handle in a Session for the document at filePath, with the
// given parser capability flags. History starts empty.
func New(handle *dochandle.Handle, filePath string, flags ParserFlag, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{handle: handle, filePath: filePath, flags: flags, log: log}
}

// Handle returns the session's underlying read-only document handle.
func (s *Session) Handle() *dochandle.Handle { return s.handle }

// FilePath returns the path the session was opened from.
func (s *Session) FilePath() string { return s.filePath }

// HasFlag reports whether the parser that produced this document declared
// support for flag.
func (s *Session) HasFlag(flag ParserFlag) bool { return s.flags&flag != 0 }

// History returns a copy of the current history positions and index, for
// persistence by the config store collaborator.
func (s *Session) History() ([]int64, int) {
	out := make([]int64, len(s.history))
	copy(out, s.history)
	return out, s.historyIdx
}

// RestoreHistory replaces the session's history with previously persisted
// state (loaded by the caller from the config store at open time).
func (s *Session) RestoreHistory(positions []int64, index int) {
	s.history = append([]int64{}, positions...)
	if index < 0 {
		index = 0
	}
	if len(s.history) > 0 && index >= len(s.history) {
		index = len(s.history) - 1
	}
	s.historyIdx = index
}

// CheckAndRecordHistory is called by the UI on every cursor-changed event.
// It only records a history entry once the cursor has moved at least
// stableMoveThreshold display units from the last recorded stable
// position, filtering micro-movements (arrow keys, incidental scrolling)
// out of the back/forward stack.
func (s *Session) CheckAndRecordHistory(newPosition int64) {
	if s.lastStable != nil && abs64(newPosition-*s.lastStable) < stableMoveThreshold {
		return
	}
	s.history, s.historyIdx = reader.RecordHistoryPosition(s.history, s.historyIdx, newPosition, maxHistory)
	pos := newPosition
	s.lastStable = &pos
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// HistoryGoPrevious moves the session back one history entry from
// currentPosition, recording currentPosition first. ok is false if there is
// nowhere to go back to.
func (s *Session) HistoryGoPrevious(currentPosition int64) (int64, bool) {
	positions, index, pos, ok := reader.HistoryGoPrevious(s.history, s.historyIdx, currentPosition, maxHistory)
	s.history, s.historyIdx = positions, index
	return pos, ok
}

// HistoryGoNext moves the session forward one history entry from
// currentPosition, recording currentPosition first.
func (s *Session) HistoryGoNext(currentPosition int64) (int64, bool) {
	positions, index, pos, ok := reader.HistoryGoNext(s.history, s.historyIdx, currentPosition, maxHistory)
	s.history, s.historyIdx = positions, index
	return pos, ok
}

// ErrNotSupported is returned by marker navigation wrappers when the
// underlying document's parser does not declare the capability the
// requested NavTarget needs.
var ErrNotSupported = errors.New("navigation target not supported by this document")

// capabilityFor maps a NavTarget to the ParserFlag that must be set (or the
// presence of at least one marker of the matching kind) for navigation to
// be meaningful.
func (s *Session) capabilityFor(target reader.NavTarget) (ParserFlag, docmodel.MarkerType, bool) {
	switch target {
	case reader.TargetSection:
		return SupportsSections, docmodel.SectionBreak, true
	case reader.TargetPage:
		return SupportsPages, docmodel.PageBreak, true
	case reader.TargetList, reader.TargetListItem:
		return SupportsLists, docmodel.List, true
	case reader.TargetHeading:
		return 0, docmodel.Heading1, false
	default:
		return 0, 0, false
	}
}

// NavigationResult mirrors reader.NavigationResult, additionally carrying
// the page index for TargetPage queries.
type NavigationResult struct {
	reader.NavigationResult
	PageIndex int // valid only when the request target was TargetPage
}

// Navigate performs marker navigation, first checking that the document
// supports the requested target, then filling in marker text from the
// current line when the marker itself carries none, and computing a page
// index for TargetPage queries.
func (s *Session) Navigate(req reader.NavigationRequest) (NavigationResult, error) {
	flag, markerKind, checkFlag := s.capabilityFor(req.Target)
	if checkFlag && !s.HasFlag(flag) && s.handle.CountMarkersByType(markerKind) == 0 {
		return NavigationResult{}, ErrNotSupported
	}
	if req.Target == reader.TargetHeading && len(s.handle.Headings()) == 0 {
		return NavigationResult{}, ErrNotSupported
	}

	res := reader.Navigate(s.handle, req)
	out := NavigationResult{NavigationResult: res}
	if !res.Found {
		return out, nil
	}
	if out.MarkerText == "" {
		out.MarkerText = s.GetLineText(int64(out.Offset))
	}
	if req.Target == reader.TargetPage {
		out.PageIndex = s.pageIndex(out.Offset)
	}
	return out, nil
}

// pageIndex returns the 0-based index of the PageBreak marker at or before
// offset.
func (s *Session) pageIndex(offset uint64) int {
	pages := s.handle.MarkersOfType(docmodel.PageBreak)
	idx := -1
	for i, m := range pages {
		if m.Position > offset {
			break
		}
		idx = i
	}
	return idx
}

// StatusInfo reports derived status for a cursor position.
type StatusInfo struct {
	LineNumber      int
	CharacterNumber int64
	Percentage      float64
}

// Status computes line number, 1-based character number, and percentage
// through the document for position.
func (s *Session) Status(position int64) StatusInfo {
	content := s.handle.Document().Buffer.Content
	runes := []rune(content)
	if position < 0 {
		position = 0
	}
	if position > int64(len(runes)) {
		position = int64(len(runes))
	}
	prefix := string(runes[:position])
	lineNumber := strings.Count(prefix, "\n") + 1

	total := int64(len(runes))
	var pct float64
	if total > 0 {
		pct = float64(position*100) / float64(total)
	}
	return StatusInfo{
		LineNumber:      lineNumber,
		CharacterNumber: position + 1,
		Percentage:      pct,
	}
}

// GetTextRange returns the substring [start, end) in display units.
func (s *Session) GetTextRange(start, end int64) string {
	runes := []rune(s.handle.Document().Buffer.Content)
	if start < 0 {
		start = 0
	}
	if end > int64(len(runes)) {
		end = int64(len(runes))
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// GetLineText returns the characters from the newline-preceded start of the
// line containing position to the next newline or end of content.
func (s *Session) GetLineText(position int64) string {
	runes := []rune(s.handle.Document().Buffer.Content)
	if position < 0 {
		position = 0
	}
	if position > int64(len(runes)) {
		position = int64(len(runes))
	}
	start := position
	for start > 0 && runes[start-1] != '\n' {
		start--
	}
	end := position
	for end < int64(len(runes)) && runes[end] != '\n' {
		end++
	}
	return string(runes[start:end])
}

// ActivateLinkAt finds the Link marker covering position, resolving it via
// the reader core. Returns reader.LinkNotFound if no link covers position
// or its reference is empty.
func (s *Session) ActivateLinkAt(position int64, currentSectionPath string) reader.LinkTarget {
	for _, m := range s.handle.MarkersOfType(docmodel.Link) {
		start := int64(m.Position)
		end := start + int64(len([]rune(m.Text)))
		if position >= start && position < end {
			if m.Reference == "" {
				return reader.LinkTarget{Kind: reader.LinkNotFound}
			}
			return reader.ResolveLink(s.handle, m.Reference, currentSectionPath)
		}
	}
	return reader.LinkTarget{Kind: reader.LinkNotFound}
}

// EscapeDocumentPath deterministically derives the config-store section
// name for a document path: "doc_" followed by URL-safe, unpadded Base64 of
// SHA-1(utf8(path)). The config store names its per-document sections
// with it; WebviewTempDir uses its own hex-encoded SHA-1 of the path.
func EscapeDocumentPath(path string) string {
	sum := sha1.Sum([]byte(path))
	return "doc_" + base64.RawURLEncoding.EncodeToString(sum[:])
}

// WebviewTempDir derives a stable, collision-resistant temp subdirectory
// name for extracting a single resource out of an archive-backed document,
// so repeated opens of the same document reuse the same extraction
// location instead of leaking a fresh temp directory per view.
func WebviewTempDir(documentPath string) string {
	sum := sha1.Sum([]byte(documentPath))
	return hex.EncodeToString(sum[:])
}

// ResourceExtension returns the lowercase extension (without the dot) of
// path.
func ResourceExtension(path string) string {
	ext := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
