package filter

import (
	"strings"
	"testing"

	"github.com/oyvindstegard/ox-tagfilter/internal/collect"
	"github.com/oyvindstegard/ox-tagfilter/internal/outline"
)

const orgExport = `<html><head><title>Project Notes</title></head><body>
<div id="content">
<h1 class="title">Project Notes</h1>
<div id="table-of-contents">
<h2>Table of Contents</h2>
<div id="text-table-of-contents">
<ul>
<li><a href="#org1">Work&#xa0;&#xa0;<span class="tag"><span class="work">work</span></span></a>
<ul>
<li><a href="#org2">Deadlines&#xa0;&#xa0;<span class="tag"><span class="urgent">urgent</span></span></a></li>
</ul>
</li>
<li><a href="#org3">Home&#xa0;&#xa0;<span class="tag"><span class="home">home</span></span></a></li>
</ul>
</div>
</div>
<div id="outline-container-org1" class="outline-2">
<h2 id="org1">Work&#xa0;&#xa0;<span class="tag"><span class="work">work</span></span></h2>
<div class="outline-text-2" id="text-org1"><p>Work intro.</p></div>
<div id="outline-container-org2" class="outline-3">
<h3 id="org2"><span class="todo TODO">TODO</span> Deadlines&#xa0;&#xa0;<span class="tag"><span class="urgent">urgent</span></span></h3>
<div class="outline-text-3" id="text-org2"><p>Ship the dragon feature.</p></div>
</div>
</div>
<div id="outline-container-org3" class="outline-2">
<h2 id="org3">Home&#xa0;&#xa0;<span class="tag"><span class="home">home</span></span></h2>
<div class="outline-text-2"><p>Garden plans.</p></div>
</div>
</div>
</body></html>`

type fixture struct {
	doc  *outline.Document
	meta *collect.Metadata
	eng  *Engine
}

func newFixture(t *testing.T, markup string) *fixture {
	t.Helper()
	s := &outline.HTMLSource{}
	doc, err := s.Build(strings.NewReader(markup), "notes.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meta := collect.Collect(doc)
	return &fixture{doc: doc, meta: meta, eng: New(doc, meta)}
}

func (f *fixture) heading(t *testing.T, elem, s string) outline.NodeID {
	t.Helper()
	for _, h := range f.meta.Headings {
		if f.doc.Node(h).Elem == elem && strings.Contains(collect.OwnText(f.doc, h), s) {
			return h
		}
	}
	t.Fatalf("no %s heading containing %q", elem, s)
	return outline.None
}

// textNode finds the text node holding s.
func (f *fixture) textNode(t *testing.T, s string) outline.NodeID {
	t.Helper()
	for i := range f.doc.Nodes {
		n := &f.doc.Nodes[i]
		if n.Kind == outline.KindText && strings.Contains(n.Text, s) {
			return n.ID
		}
	}
	t.Fatalf("no text node containing %q", s)
	return outline.None
}

func tagSet(tags ...string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}

func TestReveal_UnfilteredFastPath(t *testing.T) {
	f := newFixture(t, orgExport)

	res := f.eng.Reveal(nil, "   ")
	if res.Filtered {
		t.Error("empty selection and search must not filter")
	}
	if res.Reachable != nil {
		t.Error("unfiltered result must not compute reachability")
	}
	for i, v := range res.Visible {
		if !v {
			t.Fatalf("node %d hidden on the unfiltered path", i)
		}
	}
}

func TestReveal_TagSelection(t *testing.T) {
	f := newFixture(t, orgExport)

	res := f.eng.Reveal(tagSet("work"), "")
	if !res.Filtered {
		t.Fatal("expected a filtered result")
	}
	if len(res.Matches) != 4 {
		t.Fatalf("expected 4 matches (2 sections + 2 ToC entries), got %d", len(res.Matches))
	}

	vis := res.Visible
	if !vis[f.heading(t, "h2", "Work")] || !vis[f.heading(t, "h3", "Deadlines")] {
		t.Error("qualifying section headings must be visible")
	}
	if vis[f.heading(t, "h2", "Home")] {
		t.Error("non-matching section heading must be hidden")
	}
	if !vis[f.doc.TitleHeading] {
		t.Error("document title heading must stay visible")
	}

	// Section bodies of qualifying headings come along.
	if !vis[f.textNode(t, "Ship the dragon feature")] {
		t.Error("matching section body must be visible")
	}
	if vis[f.textNode(t, "Garden plans")] {
		t.Error("non-matching section body must be hidden")
	}

	// Reachability spans the effective tags of all matches.
	for _, tag := range []string{"work", "urgent", "TODO"} {
		if !res.Reachable[tag] {
			t.Errorf("expected %q reachable", tag)
		}
	}
	if res.Reachable["home"] {
		t.Error("home is a dead end under this selection")
	}
}

func TestReveal_SelectionIsConjunctive(t *testing.T) {
	f := newFixture(t, orgExport)

	res := f.eng.Reveal(tagSet("work", "urgent"), "")
	if len(res.Matches) != 2 {
		t.Fatalf("expected the Deadlines section and its ToC entry, got %d matches", len(res.Matches))
	}
	for _, h := range res.Matches {
		if !strings.Contains(collect.OwnText(f.doc, h), "Deadlines") {
			t.Errorf("unexpected match %q", collect.OwnText(f.doc, h))
		}
	}
}

func TestReveal_SearchSparseAncestors(t *testing.T) {
	f := newFixture(t, orgExport)

	res := f.eng.Reveal(nil, "deadlines")
	if !res.Filtered {
		t.Fatal("expected a filtered result")
	}

	vis := res.Visible
	if !vis[f.heading(t, "h3", "Deadlines")] {
		t.Error("matching heading must be visible")
	}
	// The ancestor's title line is revealed, its unrelated body is not.
	if !vis[f.heading(t, "h2", "Work")] {
		t.Error("ancestor heading must be revealed")
	}
	if vis[f.textNode(t, "Work intro")] {
		t.Error("ancestor body must stay hidden on a sparse reveal")
	}
	// The match's own body follows it.
	if !vis[f.textNode(t, "Ship the dragon feature")] {
		t.Error("matching section body must be visible")
	}
	if vis[f.heading(t, "h2", "Home")] {
		t.Error("unrelated sections stay hidden")
	}
}

func TestReveal_SearchMatchesAncestorPrefix(t *testing.T) {
	f := newFixture(t, orgExport)

	// "work" appears only in the ancestor's title, yet the child section
	// matches because ancestor titles prefix the search text.
	res := f.eng.Reveal(nil, "work deadlines")
	found := false
	for _, h := range res.Matches {
		if h == f.heading(t, "h3", "Deadlines") {
			found = true
		}
	}
	if !found {
		t.Error("expected the child section to match via its ancestor's title")
	}
}

func TestReveal_SearchAndTagsCombine(t *testing.T) {
	f := newFixture(t, orgExport)

	if res := f.eng.Reveal(tagSet("home"), "deadlines"); len(res.Matches) != 0 {
		t.Errorf("disjoint tag and search must not match, got %d matches", len(res.Matches))
	}
	if res := f.eng.Reveal(tagSet("work"), "deadlines"); len(res.Matches) == 0 {
		t.Error("consistent tag and search must match")
	}
}

func TestReveal_ImpossibleSelection(t *testing.T) {
	f := newFixture(t, orgExport)

	res := f.eng.Reveal(tagSet("work", "home"), "")
	if !res.Filtered {
		t.Fatal("expected a filtered result")
	}
	if len(res.Matches) != 0 || len(res.Reachable) != 0 {
		t.Errorf("expected no matches and empty reachability, got %d matches, %v",
			len(res.Matches), res.Reachable)
	}
}

func TestReveal_ControlNeverHidden(t *testing.T) {
	f := newFixture(t, `<body><div id="content">
<div class="outline-2">
<div id="ox-tagfilter"></div>
<h2>Only&#xa0;&#xa0;<span class="tag"><span class="solo">solo</span></span></h2>
<div class="outline-text-2"><p>Body.</p></div>
</div>
</div></body>`)

	res := f.eng.Reveal(tagSet("nosuch"), "")
	if len(res.Matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(res.Matches))
	}
	for c := f.doc.Control; c != outline.None; c = f.doc.Node(c).Parent {
		if !res.Visible[c] {
			t.Fatal("the filter control and its ancestors must never be hidden")
		}
	}
	if res.Visible[f.heading(t, "h2", "Only")] {
		t.Error("non-matching heading must still be hidden")
	}
}

func TestReveal_TOCMirrorsSelection(t *testing.T) {
	f := newFixture(t, orgExport)

	res := f.eng.Reveal(tagSet("home"), "")
	vis := res.Visible

	if !vis[f.heading(t, "li", "Home")] {
		t.Error("matching ToC entry must be visible")
	}
	if vis[f.heading(t, "li", "Deadlines")] {
		t.Error("non-matching ToC entry must be hidden")
	}
	if !vis[f.heading(t, "h2", "Home")] {
		t.Error("matching section must be visible")
	}
}
