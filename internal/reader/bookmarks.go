package reader

import (
	"sort"

	"github.com/trypsynth/paperback-core/internal/docmodel"
)

// BookmarkNavigationResult is the outcome of a bookmark navigation query.
type BookmarkNavigationResult struct {
	Found    bool
	Wrapped  bool
	Bookmark docmodel.Bookmark
}

// NavigateBookmarks finds the next/previous bookmark relative to cursor,
// optionally restricted to bookmarks carrying a non-empty note, with wrap
// semantics identical to marker navigation (Navigate).
//
// The spec flags the backward-wrap starting point
// (int64(math.MaxInt64)/2) as a correctness smell; this implementation
// instead wraps from one past the greatest bookmark Start, which is
// equivalent for any real document and does not depend on a magic
// constant.
func NavigateBookmarks(bookmarks []docmodel.Bookmark, cursor int64, notesOnly bool, wrap bool, dir Direction) BookmarkNavigationResult {
	filtered := make([]docmodel.Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if notesOnly && b.Note == "" {
			continue
		}
		filtered = append(filtered, b)
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Start < filtered[j].Start })
	if len(filtered) == 0 {
		return BookmarkNavigationResult{}
	}

	if res, ok := findBookmarkFrom(filtered, cursor, dir); ok {
		return res
	}
	if !wrap {
		return BookmarkNavigationResult{}
	}

	var wrapFrom int64
	if dir == Next {
		wrapFrom = -1
	} else {
		wrapFrom = filtered[len(filtered)-1].Start + 1
	}
	res, ok := findBookmarkFrom(filtered, wrapFrom, dir)
	if !ok {
		return BookmarkNavigationResult{}
	}
	res.Wrapped = true
	return res
}

func findBookmarkFrom(bookmarks []docmodel.Bookmark, cursor int64, dir Direction) (BookmarkNavigationResult, bool) {
	if dir == Next {
		for _, b := range bookmarks {
			if b.Start > cursor {
				return BookmarkNavigationResult{Found: true, Bookmark: b}, true
			}
		}
		return BookmarkNavigationResult{}, false
	}
	var found *docmodel.Bookmark
	for i := range bookmarks {
		if bookmarks[i].Start < cursor {
			found = &bookmarks[i]
		} else {
			break
		}
	}
	if found == nil {
		return BookmarkNavigationResult{}, false
	}
	return BookmarkNavigationResult{Found: true, Bookmark: *found}, true
}
