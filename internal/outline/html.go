package outline

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoContentRoot is returned when the input markup has no content root
// to filter. The caller should treat this as "do not activate".
var ErrNoContentRoot = errors.New("no content root found")

// HTMLSource builds snapshots from statically exported HTML.
type HTMLSource struct{}

// Build parses exported HTML markup and produces the outline snapshot.
// The content root is the element with id "content" when present,
// otherwise the document body.
func (s *HTMLSource) Build(r io.Reader, name string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	d := &Document{
		Name:         name,
		Title:        strings.TrimSuffix(strings.TrimSuffix(name, ".html"), ".htm"),
		Root:         None,
		TOC:          None,
		Control:      None,
		TitleHeading: None,
	}

	content := findByID(root, "content")
	if content == nil {
		content = findElem(root, "body")
	}
	if content == nil || firstElementChild(content) == nil {
		return nil, ErrNoContentRoot
	}

	b := &htmlBuilder{doc: d}
	d.Root = b.convert(content, None, false)

	b.classifyListHeadings()

	if t := findElem(root, "title"); t != nil {
		if text := strings.TrimSpace(htmlText(t)); text != "" {
			d.Title = text
		}
	} else if d.TitleHeading != None {
		if text := strings.TrimSpace(d.TextContent(d.TitleHeading)); text != "" {
			d.Title = text
		}
	}

	d.ensureControl()
	return d, nil
}

type htmlBuilder struct {
	doc *Document
}

// convert maps one html node (and its subtree) into the arena. inTag is
// true while inside a tag marker wrapper, where value spans live.
func (b *htmlBuilder) convert(hn *html.Node, parent NodeID, inTag bool) NodeID {
	d := b.doc

	switch hn.Type {
	case html.TextNode:
		if hn.Data == "" {
			return None
		}
		id := d.alloc(parent, KindText, "")
		d.Nodes[id].Text = hn.Data
		return id

	case html.ElementNode:
		// Handled below.

	default:
		return None
	}

	switch hn.Data {
	case "script", "style":
		return None
	}

	attr := make(map[string]string, len(hn.Attr))
	for _, a := range hn.Attr {
		attr[a.Key] = a.Val
	}
	classes := strings.Fields(attr["class"])

	kind := KindElement
	label := ""
	level := headingLevel(hn.Data)
	childInTag := false

	switch {
	case hasClass(classes, "todo") || hasClass(classes, "done"):
		kind = KindTodoMarker
		label = keywordFromClasses(classes)
		if label == "" {
			label = strings.TrimSpace(htmlText(hn))
		}
	case hasClass(classes, "tag"):
		// Wrapper only; the nested value spans become the markers.
		childInTag = true
	case inTag && hn.Data == "span":
		kind = KindTagMarker
		if len(classes) > 0 {
			label = classes[0]
		} else {
			label = strings.TrimSpace(htmlText(hn))
		}
	case level > 0:
		kind = KindHeading
	}

	id := d.alloc(parent, kind, hn.Data)
	n := &d.Nodes[id]
	n.Attr = attr
	n.Class = classes
	n.RawLabel = label
	n.Level = level

	if attr["id"] == "table-of-contents" && d.TOC == None {
		d.TOC = id
	}
	if kind == KindHeading && level == 1 && hasClass(classes, "title") && d.TitleHeading == None {
		d.TitleHeading = id
	}

	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		b.convert(c, id, childInTag)
	}
	return id
}

// classifyListHeadings promotes list items whose first child is an
// internal anchor to headings; that is the shape ToC entries take.
func (b *htmlBuilder) classifyListHeadings() {
	d := b.doc
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.Kind != KindElement || n.Elem != "li" {
			continue
		}
		if f := d.FirstElementChild(n.ID); f != None && d.IsInternalLink(f) {
			n.Kind = KindHeading
		}
	}
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func hasClass(classes []string, c string) bool {
	for _, v := range classes {
		if v == c {
			return true
		}
	}
	return false
}

// keywordFromClasses picks the keyword class out of a todo/done marker,
// e.g. "TODO" from class="todo TODO".
func keywordFromClasses(classes []string) string {
	for _, c := range classes {
		if c != "todo" && c != "done" {
			return c
		}
	}
	return ""
}

func htmlText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func findElem(n *html.Node, elem string) *html.Node {
	if n.Type == html.ElementNode && n.Data == elem {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElem(c, elem); found != nil {
			return found
		}
	}
	return nil
}

func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}
