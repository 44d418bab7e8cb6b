// Package outline holds an immutable snapshot of a rendered outline
// document: the nested heading/content tree produced by a static export,
// flattened into an arena of nodes. The snapshot is built once by one of
// the sources (HTML, Markdown, DOCX) and never structurally mutated;
// filtering only toggles a parallel visibility state.
package outline

import "strings"

// NodeID indexes a node within a Document's arena.
type NodeID int

// None marks the absence of a node reference.
const None NodeID = -1

// Kind classifies a node for the collector and the filter engine.
type Kind uint8

const (
	// KindElement is a plain content element.
	KindElement Kind = iota
	// KindText is a raw text node.
	KindText
	// KindHeading is a heading-level element or a ToC list item whose
	// first child is an internal anchor.
	KindHeading
	// KindTagMarker is an inline tag marker carrying a single tag value.
	KindTagMarker
	// KindTodoMarker is a TODO/DONE keyword marker.
	KindTodoMarker
)

// IsMarker reports whether the kind is a tag or TODO keyword marker.
func (k Kind) IsMarker() bool {
	return k == KindTagMarker || k == KindTodoMarker
}

// Node is a single node in the snapshot tree. The parent exclusively owns
// its children; sharing is impossible by construction.
type Node struct {
	ID       NodeID
	Parent   NodeID
	Children []NodeID

	Kind  Kind
	Elem  string            // element name, empty for text nodes
	Attr  map[string]string // original attributes
	Class []string          // split class attribute

	Text     string // text node content, verbatim
	RawLabel string // resolved tag or keyword value for marker nodes
	Level    int    // 1..6 for heading elements, 0 for list-item headings
}

// HasClass reports whether the node carries the given style class.
func (n *Node) HasClass(c string) bool {
	for _, v := range n.Class {
		if v == c {
			return true
		}
	}
	return false
}

// Document is the snapshot of one exported outline document.
type Document struct {
	Name  string // source identity (path or upload name)
	Title string

	Nodes []Node

	Root         NodeID // content root
	TOC          NodeID // table-of-contents container, or None
	Control      NodeID // filter control node, never None after build
	TitleHeading NodeID // document title heading, or None
}

// ControlID is the fixed identifier of the filter control placeholder.
// If an element with this id exists in the input it designates the
// control; otherwise a control node is synthesized at build time.
const ControlID = "ox-tagfilter"

// internalHrefPrefix marks anchors that target the document itself.
const internalHrefPrefix = "#"

// Node returns the node with the given id.
func (d *Document) Node(id NodeID) *Node {
	return &d.Nodes[id]
}

// alloc appends a new node to the arena and links it under parent.
func (d *Document) alloc(parent NodeID, kind Kind, elem string) NodeID {
	id := NodeID(len(d.Nodes))
	d.Nodes = append(d.Nodes, Node{ID: id, Parent: parent, Kind: kind, Elem: elem})
	if parent != None {
		p := &d.Nodes[parent]
		p.Children = append(p.Children, id)
	}
	return id
}

// Walk visits the subtree rooted at id in document order. The callback
// returns false to skip the node's descendants.
func (d *Document) Walk(id NodeID, fn func(NodeID) bool) {
	if !fn(id) {
		return
	}
	for _, c := range d.Nodes[id].Children {
		d.Walk(c, fn)
	}
}

// FirstElementChild returns the first non-text child of id, or None.
func (d *Document) FirstElementChild(id NodeID) NodeID {
	for _, c := range d.Nodes[id].Children {
		if d.Nodes[c].Kind != KindText {
			return c
		}
	}
	return None
}

// IsInternalLink reports whether the node is an anchor targeting the
// document itself (href with the internal prefix, or an anchor id).
func (d *Document) IsInternalLink(id NodeID) bool {
	n := &d.Nodes[id]
	if n.Elem != "a" {
		return false
	}
	if strings.HasPrefix(n.Attr["href"], internalHrefPrefix) {
		return true
	}
	return n.Attr["id"] != ""
}

// TitleLine returns the node holding id's title markup: the first element
// child when that child is a heading-level element or an internal link.
// For an outline section container this is its heading; for a ToC list
// item it is the entry's anchor. Returns None otherwise.
func (d *Document) TitleLine(id NodeID) NodeID {
	f := d.FirstElementChild(id)
	if f == None {
		return None
	}
	fn := &d.Nodes[f]
	if fn.Kind == KindHeading && fn.Level > 0 {
		return f
	}
	if d.IsInternalLink(f) {
		return f
	}
	return None
}

// LogicalAncestors returns the strict ancestor headings of heading h in
// root-to-leaf order. In the flattened markup shape a parent heading is
// not a structural ancestor of its child heading; it is the title line
// of an enclosing section container. ToC list items nest structurally,
// so there the ancestors are the enclosing list items themselves. The
// document title heading is not an outline ancestor and is excluded.
func (d *Document) LogicalAncestors(h NodeID) []NodeID {
	var up []NodeID
	for p := d.Nodes[h].Parent; p != None; p = d.Nodes[p].Parent {
		pn := &d.Nodes[p]
		if pn.Kind == KindHeading {
			up = append(up, p)
		} else if f := d.FirstElementChild(p); f != None && f != h && f != d.TitleHeading {
			fn := &d.Nodes[f]
			if fn.Kind == KindHeading && fn.Level > 0 {
				up = append(up, f)
			}
		}
		if p == d.Root {
			break
		}
	}
	// Reverse to root-to-leaf order.
	for i, j := 0, len(up)-1; i < j; i, j = i+1, j-1 {
		up[i], up[j] = up[j], up[i]
	}
	return up
}

// NearestHeading walks upward from id's parent until a heading node is
// found. Returns None when id is not enclosed by any heading.
func (d *Document) NearestHeading(id NodeID) NodeID {
	for p := d.Nodes[id].Parent; p != None; p = d.Nodes[p].Parent {
		if d.Nodes[p].Kind == KindHeading {
			return p
		}
		if p == d.Root {
			break
		}
	}
	return None
}

// TextContent concatenates the text of the subtree rooted at id,
// excluding tag and keyword marker decorations.
func (d *Document) TextContent(id NodeID) string {
	var buf strings.Builder
	d.Walk(id, func(c NodeID) bool {
		n := &d.Nodes[c]
		if n.Kind.IsMarker() {
			return false
		}
		if n.Kind == KindText {
			buf.WriteString(n.Text)
		}
		return true
	})
	return buf.String()
}

// Headings returns every heading node in document order.
func (d *Document) Headings() []NodeID {
	var out []NodeID
	d.Walk(d.Root, func(id NodeID) bool {
		if d.Nodes[id].Kind == KindHeading {
			out = append(out, id)
		}
		return true
	})
	return out
}

// ensureControl guarantees the document has a filter control node. An
// existing placeholder wins; otherwise the control is appended to a
// header region if one exists, else inserted right after the document
// title heading, else prepended to the content root.
func (d *Document) ensureControl() {
	for i := range d.Nodes {
		if d.Nodes[i].Attr["id"] == ControlID {
			d.Control = d.Nodes[i].ID
			return
		}
	}

	synth := func() NodeID {
		id := NodeID(len(d.Nodes))
		d.Nodes = append(d.Nodes, Node{
			ID:     id,
			Parent: None,
			Kind:   KindElement,
			Elem:   "div",
			Attr:   map[string]string{"id": ControlID},
		})
		return id
	}

	// Header region, if the export produced one.
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.Kind == KindElement && (n.Elem == "header" || n.Attr["id"] == "preamble") {
			id := synth()
			d.Nodes[id].Parent = n.ID
			n.Children = append(n.Children, id)
			d.Control = id
			return
		}
	}

	if d.TitleHeading != None {
		id := synth()
		parent := d.Nodes[d.TitleHeading].Parent
		d.Nodes[id].Parent = parent
		siblings := d.Nodes[parent].Children
		for i, c := range siblings {
			if c == d.TitleHeading {
				siblings = append(siblings[:i+1], append([]NodeID{id}, siblings[i+1:]...)...)
				break
			}
		}
		d.Nodes[parent].Children = siblings
		d.Control = id
		return
	}

	id := synth()
	d.Nodes[id].Parent = d.Root
	d.Nodes[d.Root].Children = append([]NodeID{id}, d.Nodes[d.Root].Children...)
	d.Control = id
}
