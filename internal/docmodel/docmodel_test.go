package docmodel

import "testing"

func TestMarkerTypeHeadingLevel(t *testing.T) {
	tests := []struct {
		kind  MarkerType
		level int
	}{
		{Heading1, 1},
		{Heading3, 3},
		{Heading6, 6},
		{PageBreak, 0},
		{Link, 0},
	}
	for _, tt := range tests {
		if got := tt.kind.HeadingLevel(); got != tt.level {
			t.Errorf("%v.HeadingLevel() = %d, want %d", tt.kind, got, tt.level)
		}
	}
}

func TestHeadingMarkerTypeClamps(t *testing.T) {
	if got := HeadingMarkerType(0); got != Heading1 {
		t.Errorf("HeadingMarkerType(0) = %v, want Heading1", got)
	}
	if got := HeadingMarkerType(9); got != Heading6 {
		t.Errorf("HeadingMarkerType(9) = %v, want Heading6", got)
	}
	if got := HeadingMarkerType(3); got != Heading3 {
		t.Errorf("HeadingMarkerType(3) = %v, want Heading3", got)
	}
}

func TestTocItemWalkInOrder(t *testing.T) {
	root := &TocItem{Name: "A", Offset: 0, Children: []*TocItem{
		{Name: "B", Offset: 2},
		{Name: "C", Offset: 5, Children: []*TocItem{
			{Name: "D", Offset: 6},
		}},
	}}
	var order []string
	root.Walk(func(ti *TocItem) { order = append(order, ti.Name) })
	want := []string{"A", "B", "C", "D"}
	if len(order) != len(want) {
		t.Fatalf("Walk visited %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Walk()[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats("A\nx\nB")
	if stats.WordCount != 3 {
		t.Errorf("WordCount = %d, want 3", stats.WordCount)
	}
	if stats.LineCount != 3 {
		t.Errorf("LineCount = %d, want 3", stats.LineCount)
	}
	if stats.CharCount != 5 {
		t.Errorf("CharCount = %d, want 5", stats.CharCount)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats("")
	if stats.WordCount != 0 || stats.LineCount != 0 || stats.CharCount != 0 {
		t.Errorf("ComputeStats(\"\") = %+v, want all zero", stats)
	}
}
