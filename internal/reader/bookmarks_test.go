package reader

import (
	"testing"

	"github.com/trypsynth/paperback-core/internal/docmodel"
)

func testBookmarks() []docmodel.Bookmark {
	return []docmodel.Bookmark{
		{Start: 100, End: 100, Note: ""},
		{Start: 50, End: 50, Note: "chapter start"},
		{Start: 200, End: 250, Note: ""},
	}
}

func TestNavigateBookmarksNext(t *testing.T) {
	res := NavigateBookmarks(testBookmarks(), 60, false, false, Next)
	if !res.Found || res.Bookmark.Start != 100 {
		t.Fatalf("NavigateBookmarks next = %+v", res)
	}
}

func TestNavigateBookmarksNotesOnly(t *testing.T) {
	res := NavigateBookmarks(testBookmarks(), 0, true, false, Next)
	if !res.Found || res.Bookmark.Note != "chapter start" {
		t.Fatalf("NavigateBookmarks notes-only = %+v", res)
	}
}

func TestNavigateBookmarksWrap(t *testing.T) {
	res := NavigateBookmarks(testBookmarks(), 200, true, true, Next)
	if !res.Found || !res.Wrapped || res.Bookmark.Start != 50 {
		t.Fatalf("NavigateBookmarks wrap = %+v", res)
	}
}

func TestNavigateBookmarksPrevious(t *testing.T) {
	res := NavigateBookmarks(testBookmarks(), 150, false, false, Previous)
	if !res.Found || res.Bookmark.Start != 100 {
		t.Fatalf("NavigateBookmarks previous = %+v", res)
	}
}

func TestNavigateBookmarksEmpty(t *testing.T) {
	res := NavigateBookmarks(nil, 0, false, false, Next)
	if res.Found {
		t.Fatalf("expected not found on empty bookmarks, got %+v", res)
	}
}
