package session

import (
	"testing"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/dochandle"
	"github.com/trypsynth/paperback-core/internal/reader"
)

func testSession() *Session {
	doc := &docmodel.Document{
		Title: "T",
		Buffer: docmodel.DocumentBuffer{
			Content: "Line one\nLine two\nLine three",
			Markers: []docmodel.Marker{
				{Kind: docmodel.Heading1, Position: 0, Text: "Line one"},
				{Kind: docmodel.Link, Position: 19, Text: "three", Reference: "http://example.com"},
			},
		},
	}
	h := dochandle.New(doc)
	return New(h, "/tmp/book.epub", SupportsSections, nil)
}

func TestCheckAndRecordHistoryFiltersSmallMoves(t *testing.T) {
	s := testSession()
	s.CheckAndRecordHistory(0)
	s.CheckAndRecordHistory(50) // below threshold, should not record
	positions, _ := s.History()
	if len(positions) != 1 {
		t.Fatalf("expected 1 history entry after small move, got %v", positions)
	}
	s.CheckAndRecordHistory(400) // past threshold, should record
	positions, _ = s.History()
	if len(positions) != 2 {
		t.Fatalf("expected 2 history entries after big move, got %v", positions)
	}
}

func TestNavigateNotSupported(t *testing.T) {
	s := testSession()
	_, err := s.Navigate(reader.NavigationRequest{Position: 0, Direction: reader.Next, Target: reader.TargetPage})
	if err != ErrNotSupported {
		t.Fatalf("Navigate(unsupported target) error = %v, want ErrNotSupported", err)
	}
}

func TestNavigateFillsMarkerTextFromLine(t *testing.T) {
	s := testSession()
	res, err := s.Navigate(reader.NavigationRequest{Position: 0, Direction: reader.Next, Target: reader.TargetLink})
	if err != nil {
		t.Fatalf("Navigate error = %v", err)
	}
	if !res.Found {
		t.Fatal("expected to find link marker")
	}
	if res.MarkerText != "three" {
		t.Errorf("MarkerText = %q, want %q (marker already carries text)", res.MarkerText, "three")
	}
}

func TestStatus(t *testing.T) {
	s := testSession()
	status := s.Status(9) // start of "Line two"
	if status.LineNumber != 2 {
		t.Errorf("LineNumber = %d, want 2", status.LineNumber)
	}
	if status.CharacterNumber != 10 {
		t.Errorf("CharacterNumber = %d, want 10", status.CharacterNumber)
	}
}

func TestGetLineText(t *testing.T) {
	s := testSession()
	if got := s.GetLineText(11); got != "Line two" {
		t.Errorf("GetLineText(11) = %q, want %q", got, "Line two")
	}
}

func TestGetTextRange(t *testing.T) {
	s := testSession()
	if got := s.GetTextRange(0, 4); got != "Line" {
		t.Errorf("GetTextRange(0,4) = %q, want %q", got, "Line")
	}
}

func TestActivateLinkAt(t *testing.T) {
	s := testSession()
	target := s.ActivateLinkAt(20, "")
	if target.Kind != reader.LinkExternal || target.URL != "http://example.com" {
		t.Errorf("ActivateLinkAt(20) = %+v, want External(http://example.com)", target)
	}
	target = s.ActivateLinkAt(0, "")
	if target.Kind != reader.LinkNotFound {
		t.Errorf("ActivateLinkAt(0) = %+v, want NotFound", target)
	}
}

func TestEscapeDocumentPathDeterministic(t *testing.T) {
	a := EscapeDocumentPath(`C:\a.txt`)
	b := EscapeDocumentPath(`C:\a.txt`)
	if a != b {
		t.Errorf("EscapeDocumentPath not deterministic: %q != %q", a, b)
	}
	if a[:4] != "doc_" {
		t.Errorf("EscapeDocumentPath(%q) = %q, want doc_ prefix", `C:\a.txt`, a)
	}
	other := EscapeDocumentPath(`C:\b.txt`)
	if a == other {
		t.Error("EscapeDocumentPath collided for different paths")
	}
}
