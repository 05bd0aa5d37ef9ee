package chm

import (
	"strings"

	"golang.org/x/net/html"
)

// tocEntry is one <LI><OBJECT type="text/sitemap"> node from a .hhc file.
type tocEntry struct {
	name     string
	local    string
	children []*tocEntry
}

// parseHHC parses a .hhc contents file (HTML with nested <UL><LI><OBJECT>
// blocks) into a TOC tree. Some compilers nest a child <UL> inside the
// <LI> it belongs to; others emit it as the <LI>'s next sibling at the
// same list level. Both variants are handled.
func parseHHC(content string) []*tocEntry {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil
	}
	ul := findFirst(doc, "ul")
	if ul == nil {
		return nil
	}
	return parseList(ul)
}

func parseList(ul *html.Node) []*tocEntry {
	var entries []*tocEntry
	for c := ul.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "li":
			if entry := parseLI(c); entry != nil {
				entries = append(entries, entry)
			}
		case "ul":
			// Sibling-UL variant: this list belongs to the previous <LI>.
			if len(entries) > 0 {
				entries[len(entries)-1].children = append(entries[len(entries)-1].children, parseList(c)...)
			}
		}
	}
	return entries
}

func parseLI(li *html.Node) *tocEntry {
	entry := &tocEntry{}
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "object":
			name, local := parseObject(c)
			if name != "" {
				entry.name = name
			}
			if local != "" {
				entry.local = local
			}
		case "ul":
			entry.children = append(entry.children, parseList(c)...)
		}
	}
	if entry.name == "" && entry.local == "" {
		return nil
	}
	return entry
}

// parseObject reads the "Name" and "Local" <PARAM> children of a
// type="text/sitemap" <OBJECT>.
func parseObject(obj *html.Node) (name, local string) {
	for c := obj.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "param" {
			continue
		}
		pname := nodeAttr(c, "name")
		pvalue := nodeAttr(c, "value")
		if strings.EqualFold(pname, "Name") {
			name = pvalue
		}
		if strings.EqualFold(pname, "Local") {
			local = pvalue
		}
	}
	return name, local
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}
