package reader

import (
	"regexp"

	"github.com/trypsynth/paperback-core/internal/textutil"
)

// SearchRequest describes one text search.
type SearchRequest struct {
	Haystack  string
	Needle    string
	Start     int64 // start position, in display units
	Forward   bool
	MatchCase bool
	WholeWord bool
	IsRegex   bool
}

// SearchResult is the outcome of a search query.
type SearchResult struct {
	Offset  int64 // -1 if not found
	Wrapped bool
}

// Search finds the first (Forward) or last (backward) occurrence of
// req.Needle in req.Haystack relative to req.Start, without wrapping.
// Returns -1 if req.Needle is empty or not found.
func Search(req SearchRequest) int64 {
	if req.Needle == "" {
		return -1
	}
	re, err := buildPattern(req.Needle, req.MatchCase, req.WholeWord, req.IsRegex)
	if err != nil {
		return -1
	}

	startByte := runeIndexToByteIndex(req.Haystack, req.Start)

	if req.Forward {
		if startByte > len(req.Haystack) {
			return -1
		}
		loc := re.FindStringIndex(req.Haystack[startByte:])
		if loc == nil {
			return -1
		}
		return int64(textutil.DisplayLen(req.Haystack[:startByte+loc[0]]))
	}

	if startByte > len(req.Haystack) {
		startByte = len(req.Haystack)
	}
	locs := re.FindAllStringIndex(req.Haystack[:startByte], -1)
	if len(locs) == 0 {
		return -1
	}
	last := locs[len(locs)-1]
	return int64(textutil.DisplayLen(req.Haystack[:last[0]]))
}

// SearchWithWrap behaves like Search, additionally retrying from the start
// of the haystack (forward) or its end (backward) when the first attempt
// fails, reporting whether the successful match came from the wrapped
// retry.
func SearchWithWrap(req SearchRequest) SearchResult {
	if off := Search(req); off >= 0 {
		return SearchResult{Offset: off}
	}
	wrapped := req
	if req.Forward {
		wrapped.Start = 0
	} else {
		wrapped.Start = int64(textutil.DisplayLen(req.Haystack))
	}
	off := Search(wrapped)
	if off < 0 {
		return SearchResult{Offset: -1}
	}
	return SearchResult{Offset: off, Wrapped: true}
}

func buildPattern(needle string, matchCase, wholeWord, isRegex bool) (*regexp.Regexp, error) {
	pattern := needle
	if !isRegex {
		pattern = regexp.QuoteMeta(needle)
	}
	if wholeWord {
		pattern = `\b` + pattern + `\b`
	}
	if !matchCase {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// runeIndexToByteIndex converts a display-unit (rune) offset into a byte
// offset into s, clamping to len(s) if the offset runs past the end.
func runeIndexToByteIndex(s string, runeIdx int64) int {
	if runeIdx <= 0 {
		return 0
	}
	i := int64(0)
	for byteIdx := range s {
		if i == runeIdx {
			return byteIdx
		}
		i++
	}
	if i <= runeIdx {
		return len(s)
	}
	return len(s)
}
