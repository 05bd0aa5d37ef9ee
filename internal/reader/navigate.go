// Package reader implements the pure navigation and search primitives that
// operate over a dochandle.Handle: marker navigation, text search, bookmark
// navigation, and the history bookkeeping functions the session layer
// composes into stateful operations.
package reader

import (
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/dochandle"
)

// Direction is which way a navigation request moves from the cursor.
type Direction int

const (
	Next Direction = iota
	Previous
)

// NavTarget is the kind of marker a navigation request is looking for.
type NavTarget int

const (
	TargetSection NavTarget = iota
	TargetPage
	TargetHeading
	TargetList
	TargetListItem
	TargetLink
	TargetTable
	TargetSeparator
)

// markerType maps a NavTarget to the docmodel.MarkerType it searches for.
// TargetHeading is handled specially since it spans six marker types.
func (t NavTarget) markerType() docmodel.MarkerType {
	switch t {
	case TargetSection:
		return docmodel.SectionBreak
	case TargetPage:
		return docmodel.PageBreak
	case TargetList:
		return docmodel.List
	case TargetListItem:
		return docmodel.ListItem
	case TargetLink:
		return docmodel.Link
	case TargetTable:
		return docmodel.Table
	case TargetSeparator:
		return docmodel.Separator
	default:
		return 0
	}
}

// NavigationRequest describes one navigation query.
type NavigationRequest struct {
	Position    int64
	Wrap        bool
	Direction   Direction
	Target      NavTarget
	LevelFilter int32 // for TargetHeading: 0 means "any level", >0 means an exact level match
}

// NavigationResult is the outcome of a marker navigation query.
type NavigationResult struct {
	Found       bool
	Wrapped     bool
	Offset      uint64
	MarkerLevel int32
	MarkerText  string
}

// Navigate finds the next or previous marker of req.Target relative to
// req.Position, optionally wrapping around the ends of the document.
func Navigate(h *dochandle.Handle, req NavigationRequest) NavigationResult {
	candidates := candidateMarkers(h, req.Target, req.LevelFilter)
	if len(candidates) == 0 {
		return NavigationResult{}
	}

	if res, ok := findFrom(candidates, req.Position, req.Direction); ok {
		return res
	}
	if !req.Wrap {
		return NavigationResult{}
	}

	var wrapFrom int64
	if req.Direction == Next {
		wrapFrom = -1
	} else {
		wrapFrom = int64(h.ContentLength()) + 1
	}
	res, ok := findFrom(candidates, wrapFrom, req.Direction)
	if !ok {
		return NavigationResult{}
	}
	res.Wrapped = true
	return res
}

func candidateMarkers(h *dochandle.Handle, target NavTarget, levelFilter int32) []docmodel.Marker {
	if target != TargetHeading {
		return h.MarkersOfType(target.markerType())
	}
	headings := h.Headings()
	if levelFilter <= 0 {
		return headings
	}
	var filtered []docmodel.Marker
	for _, m := range headings {
		if int32(m.Kind.HeadingLevel()) == levelFilter {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func findFrom(markers []docmodel.Marker, position int64, dir Direction) (NavigationResult, bool) {
	if dir == Next {
		for _, m := range markers {
			if int64(m.Position) > position {
				return markerResult(m), true
			}
		}
		return NavigationResult{}, false
	}
	var found *docmodel.Marker
	for i := range markers {
		if int64(markers[i].Position) < position {
			found = &markers[i]
		} else {
			break
		}
	}
	if found == nil {
		return NavigationResult{}, false
	}
	return markerResult(*found), true
}

func markerResult(m docmodel.Marker) NavigationResult {
	return NavigationResult{
		Found:       true,
		Offset:      m.Position,
		MarkerLevel: m.Level,
		MarkerText:  m.Text,
	}
}
