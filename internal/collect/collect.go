// Package collect resolves the classification metadata of an outline
// snapshot: each heading's effective (inherited) tag set and its
// normalized search text. It runs once per document load; the result is
// deterministic and safe to rebuild at any time.
package collect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/oyvindstegard/ox-tagfilter/internal/outline"
)

// Metadata is the collector's cached output, keyed by node identity.
type Metadata struct {
	// EffectiveTags maps each heading to the union of its own tag and
	// keyword markers and those of every strict ancestor heading.
	EffectiveTags map[outline.NodeID]map[string]bool

	// SearchText maps each heading to its space-joined normalized
	// tokens, ancestor heading text prepended in root-to-leaf order.
	SearchText map[outline.NodeID]string

	// Headings lists every heading in document order.
	Headings []outline.NodeID

	// Universe is every distinct tag and keyword value found anywhere
	// in the document, sorted.
	Universe []string

	// Keywords is every distinct search token across all headings,
	// sorted.
	Keywords []string

	universe map[string]bool
}

// InUniverse reports whether the tag exists anywhere in the document.
func (m *Metadata) InUniverse(tag string) bool {
	return m.universe[tag]
}

// Collect walks the snapshot once and resolves all per-heading metadata.
func Collect(doc *outline.Document) *Metadata {
	m := &Metadata{
		EffectiveTags: make(map[outline.NodeID]map[string]bool),
		SearchText:    make(map[outline.NodeID]string),
		Headings:      doc.Headings(),
		universe:      make(map[string]bool),
	}
	m.collectTags(doc)
	m.collectHeadingKeywords(doc)

	m.Universe = sortedKeys(m.universe)
	return m
}

// collectTags resolves effective tag sets. For every marker it walks the
// ancestor chain to the content root, picking up marker values present
// on each level's title line, and attaches the union to the marker's
// nearest enclosing heading. A second pass completes inheritance for
// headings that carry no markers of their own.
func (m *Metadata) collectTags(doc *outline.Document) {
	attached := make(map[outline.NodeID]map[string]bool)

	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		if !n.Kind.IsMarker() || n.RawLabel == "" {
			continue
		}

		all := make(map[string]bool)
		for p := n.Parent; p != outline.None; p = doc.Nodes[p].Parent {
			for _, c := range doc.Nodes[p].Children {
				if cn := doc.Node(c); cn.Kind.IsMarker() && cn.RawLabel != "" {
					all[cn.RawLabel] = true
				}
			}
			if tl := doc.TitleLine(p); tl != outline.None {
				addMarkerValues(doc, tl, all)
			}
			if p == doc.Root {
				break
			}
		}

		for t := range all {
			m.universe[t] = true
		}

		// A marker with no enclosing heading still feeds the universe
		// but cannot be targeted by heading-based reveal.
		if h := doc.NearestHeading(n.ID); h != outline.None {
			set := attached[h]
			if set == nil {
				set = make(map[string]bool)
				attached[h] = set
			}
			for t := range all {
				set[t] = true
			}
		}
	}

	// Inheritance completion: document order guarantees ancestors are
	// resolved before their descendants.
	for _, h := range m.Headings {
		eff := make(map[string]bool, len(attached[h]))
		for t := range attached[h] {
			eff[t] = true
		}
		if anc := doc.LogicalAncestors(h); len(anc) > 0 {
			for t := range m.EffectiveTags[anc[len(anc)-1]] {
				eff[t] = true
			}
		}
		m.EffectiveTags[h] = eff
	}
}

func addMarkerValues(doc *outline.Document, root outline.NodeID, into map[string]bool) {
	doc.Walk(root, func(id outline.NodeID) bool {
		if n := doc.Node(id); n.Kind.IsMarker() && n.RawLabel != "" {
			into[n.RawLabel] = true
		}
		return true
	})
}

// collectHeadingKeywords builds each heading's normalized search text:
// the heading's own title text with every strict ancestor heading's text
// prepended root-to-leaf, tokenized.
func (m *Metadata) collectHeadingKeywords(doc *outline.Document) {
	keywords := make(map[string]bool)
	own := make(map[outline.NodeID]string, len(m.Headings))

	for _, h := range m.Headings {
		own[h] = OwnText(doc, h)
	}

	for _, h := range m.Headings {
		parts := make([]string, 0, 4)
		for _, a := range doc.LogicalAncestors(h) {
			if t, ok := own[a]; ok && t != "" {
				parts = append(parts, t)
			}
		}
		if own[h] != "" {
			parts = append(parts, own[h])
		}

		tokens := Tokenize(strings.Join(parts, " "))
		m.SearchText[h] = strings.Join(tokens, " ")
		for _, t := range tokens {
			keywords[t] = true
		}
	}

	m.Keywords = sortedKeys(keywords)
}

// statsCookie matches statistics cookies like [3/8] or [40%], which are
// progress decorations rather than title text.
var statsCookie = regexp.MustCompile(`^\[([0-9]*/[0-9]*|[0-9]+%)\]$`)

// OwnText reconstructs a heading's plain title text from its immediate
// children, excluding trailing tag/TODO decorations. Contributing
// children: plain text, bold, italic, inline code (unless a statistics
// cookie), and paragraph/superscript/subscript/span/link elements taken
// verbatim.
func OwnText(doc *outline.Document, h outline.NodeID) string {
	var buf strings.Builder
	for _, c := range doc.Nodes[h].Children {
		n := doc.Node(c)
		if n.Kind.IsMarker() {
			continue
		}
		switch {
		case n.Kind == outline.KindText:
			buf.WriteString(n.Text)
		case n.Elem == "b" || n.Elem == "strong" || n.Elem == "i" || n.Elem == "em":
			buf.WriteString(doc.TextContent(c))
		case n.Elem == "code":
			t := strings.TrimSpace(doc.TextContent(c))
			if !statsCookie.MatchString(t) {
				buf.WriteString(doc.TextContent(c))
			}
		case n.Elem == "p" || n.Elem == "sup" || n.Elem == "sub" || n.Elem == "span" || n.Elem == "a":
			buf.WriteString(doc.TextContent(c))
		}
	}
	return strings.TrimSpace(buf.String())
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
