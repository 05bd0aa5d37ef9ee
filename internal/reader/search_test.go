package reader

import "testing"

func TestSearchForward(t *testing.T) {
	off := Search(SearchRequest{Haystack: "a😀b", Needle: "b", Start: 0, Forward: true})
	if off != 2 {
		t.Errorf("Search(a😀b, b) = %d, want 2 (unified scalar-value positions)", off)
	}
}

func TestSearchNotFoundReturnsMinusOne(t *testing.T) {
	off := Search(SearchRequest{Haystack: "hello", Needle: "xyz", Start: 0, Forward: true})
	if off != -1 {
		t.Errorf("Search(not found) = %d, want -1", off)
	}
}

func TestSearchEmptyNeedle(t *testing.T) {
	if off := Search(SearchRequest{Haystack: "hello", Needle: "", Forward: true}); off != -1 {
		t.Errorf("Search(empty needle) = %d, want -1", off)
	}
}

func TestSearchBackward(t *testing.T) {
	off := Search(SearchRequest{Haystack: "foo bar foo", Needle: "foo", Start: 11, Forward: false})
	if off != 8 {
		t.Errorf("Search backward = %d, want 8", off)
	}
}

func TestSearchCaseInsensitiveByDefault(t *testing.T) {
	off := Search(SearchRequest{Haystack: "Hello World", Needle: "world", Start: 0, Forward: true})
	if off != 6 {
		t.Errorf("Search case-insensitive = %d, want 6", off)
	}
}

func TestSearchMatchCase(t *testing.T) {
	off := Search(SearchRequest{Haystack: "Hello World", Needle: "world", Start: 0, Forward: true, MatchCase: true})
	if off != -1 {
		t.Errorf("Search match-case should miss, got %d", off)
	}
}

func TestSearchWholeWord(t *testing.T) {
	tests := []struct {
		haystack string
		want     int64
	}{
		{"a word here", 2},
		{"sword", -1},
		{"words here", -1},
	}
	for _, tt := range tests {
		off := Search(SearchRequest{Haystack: tt.haystack, Needle: "word", Start: 0, Forward: true, WholeWord: true, MatchCase: true})
		if off != tt.want {
			t.Errorf("Search(%q, whole_word) = %d, want %d", tt.haystack, off, tt.want)
		}
	}
}

func TestSearchRegex(t *testing.T) {
	off := Search(SearchRequest{Haystack: "abc123def", Needle: `\d+`, Start: 0, Forward: true, IsRegex: true, MatchCase: true})
	if off != 3 {
		t.Errorf("Search regex = %d, want 3", off)
	}
}

func TestSearchWithWrapForward(t *testing.T) {
	res := SearchWithWrap(SearchRequest{Haystack: "foo bar foo", Needle: "foo", Start: 9, Forward: true})
	if !res.Wrapped || res.Offset != 0 {
		t.Errorf("SearchWithWrap forward = %+v, want wrapped offset 0", res)
	}
}

func TestSearchWithWrapBackward(t *testing.T) {
	res := SearchWithWrap(SearchRequest{Haystack: "foo bar foo", Needle: "foo", Start: 1, Forward: false})
	if !res.Wrapped || res.Offset != 8 {
		t.Errorf("SearchWithWrap backward = %+v, want wrapped offset 8", res)
	}
}

func TestSearchWithWrapNoMatchAnywhere(t *testing.T) {
	res := SearchWithWrap(SearchRequest{Haystack: "foo bar", Needle: "xyz", Start: 0, Forward: true})
	if res.Offset != -1 {
		t.Errorf("SearchWithWrap no match = %+v, want -1", res)
	}
}

func TestDisplayLenUpperBound(t *testing.T) {
	haystacks := []string{"hello", "a😀b", ""}
	for _, h := range haystacks {
		off := Search(SearchRequest{Haystack: h, Needle: "z", Start: 0, Forward: true})
		if off >= 0 {
			upper := int64(len([]rune(h)))
			if off > upper {
				t.Errorf("Search offset %d exceeds display length %d", off, upper)
			}
		}
	}
}
