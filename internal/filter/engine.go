// Package filter decides which parts of an outline snapshot are visible
// under a tag selection and a free-text search. The engine is pure over
// the snapshot and the collected metadata: every run recomputes the full
// visibility state and returns it as one batch, so no caller can observe
// a partially applied state.
package filter

import (
	"strings"

	"github.com/oyvindstegard/ox-tagfilter/internal/collect"
	"github.com/oyvindstegard/ox-tagfilter/internal/outline"
)

// Engine computes visibility for one document.
type Engine struct {
	doc  *outline.Document
	meta *collect.Metadata

	// containers are the top-level content containers: content-root
	// children whose subtree holds at least one heading. Their
	// descendants default to hidden on a filtered run.
	containers []outline.NodeID
}

// New builds an engine over a snapshot and its collected metadata.
func New(doc *outline.Document, meta *collect.Metadata) *Engine {
	e := &Engine{doc: doc, meta: meta}
	for _, c := range doc.Nodes[doc.Root].Children {
		cn := doc.Node(c)
		if cn.Kind == outline.KindText {
			continue
		}
		if subtreeHasHeading(doc, c) {
			e.containers = append(e.containers, c)
		}
	}
	return e
}

// subtreeHasHeading reports whether any strict descendant of id is a
// heading.
func subtreeHasHeading(doc *outline.Document, id outline.NodeID) bool {
	found := false
	doc.Walk(id, func(c outline.NodeID) bool {
		if found {
			return false
		}
		if c != id && doc.Nodes[c].Kind == outline.KindHeading {
			found = true
			return false
		}
		return true
	})
	return found
}

// Result is the outcome of one visibility recompute. Visible is a full
// arena-parallel state; swapping it in wholesale keeps the application
// atomic.
type Result struct {
	// Filtered is false on the unfiltered fast path: empty selection
	// and empty search, everything visible. Reachable is nil then.
	Filtered bool

	// Reachable is the union of effective tags over all qualifying
	// headings; tags outside it are dead ends under this selection.
	Reachable map[string]bool

	// Matches lists the qualifying headings in document order.
	Matches []outline.NodeID

	// Visible holds the per-node visibility state.
	Visible []bool
}

// Reveal recomputes visibility for the given selection. Every selected
// tag must be present in a heading's effective set, and every search
// token must be contained in its search text, for the heading to
// qualify. Qualifying headings are shown with their descendant content,
// their ancestors sparsely, and their table-of-contents mirror; the
// filter control is never hidden.
func (e *Engine) Reveal(selected map[string]bool, search string) *Result {
	tokens := collect.Tokenize(search)
	vis := make([]bool, len(e.doc.Nodes))

	if len(selected) == 0 && len(tokens) == 0 {
		for i := range vis {
			vis[i] = true
		}
		return &Result{Filtered: false, Visible: vis}
	}

	res := &Result{
		Filtered:  true,
		Reachable: make(map[string]bool),
		Visible:   vis,
	}

	for _, h := range e.meta.Headings {
		if !e.qualifies(h, selected, tokens) {
			continue
		}
		res.Matches = append(res.Matches, h)
		for t := range e.meta.EffectiveTags[h] {
			res.Reachable[t] = true
		}
	}

	// Default state: everything visible except the insides of the
	// top-level content containers.
	for i := range vis {
		vis[i] = true
	}
	for _, c := range e.containers {
		e.doc.Walk(c, func(id outline.NodeID) bool {
			if id != c {
				vis[id] = false
			}
			return true
		})
	}

	for _, h := range res.Matches {
		e.reveal(h, vis)
	}

	// The widget can never hide itself.
	for c := e.doc.Control; c != outline.None; c = e.doc.Nodes[c].Parent {
		vis[c] = true
	}

	return res
}

// qualifies applies the AND semantics of both filter dimensions.
func (e *Engine) qualifies(h outline.NodeID, selected map[string]bool, tokens []string) bool {
	eff := e.meta.EffectiveTags[h]
	for t := range selected {
		if !eff[t] {
			return false
		}
	}
	if len(tokens) > 0 {
		text := e.meta.SearchText[h]
		for _, tok := range tokens {
			if !strings.Contains(text, tok) {
				return false
			}
		}
	}
	return true
}

// reveal shows a qualifying heading: its own subtree, the body content
// following it (the markup keeps section bodies as following siblings of
// the heading element), and its ancestor chain sparsely, exposing only
// each ancestor's title line rather than whole sibling branches.
func (e *Engine) reveal(h outline.NodeID, vis []bool) {
	d := e.doc

	e.show(h, vis)

	if d.Nodes[h].Level > 0 {
		parent := d.Nodes[h].Parent
		if parent != outline.None {
			after := false
			for _, sib := range d.Nodes[parent].Children {
				if sib == h {
					after = true
					continue
				}
				if after {
					e.show(sib, vis)
				}
			}
		}
	}

	for p := d.Nodes[h].Parent; p != outline.None; p = d.Nodes[p].Parent {
		vis[p] = true
		if tl := d.TitleLine(p); tl != outline.None && tl != h {
			e.show(tl, vis)
		}
	}
}

func (e *Engine) show(id outline.NodeID, vis []bool) {
	e.doc.Walk(id, func(c outline.NodeID) bool {
		vis[c] = true
		return true
	})
}
