package outline

import (
	"errors"
	"strings"
	"testing"
)

// orgExport is the markup shape produced by a static outline export: a
// content div holding the title heading, a table of contents whose
// entries are list items wrapping internal anchors, and nested section
// containers whose first child is the section heading. Tags render as a
// span wrapper with one value span per tag.
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

func buildOrgExport(t *testing.T) *Document {
	t.Helper()
	s := &HTMLSource{}
	d, err := s.Build(strings.NewReader(orgExport), "notes.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestHTMLSource_ContentRootAndTitle(t *testing.T) {
	d := buildOrgExport(t)

	root := d.Node(d.Root)
	if root.Attr["id"] != "content" {
		t.Errorf("expected content root id %q, got %q", "content", root.Attr["id"])
	}
	if d.Title != "Project Notes" {
		t.Errorf("expected title %q, got %q", "Project Notes", d.Title)
	}
	if d.TitleHeading == None {
		t.Fatal("expected a title heading")
	}
	th := d.Node(d.TitleHeading)
	if th.Elem != "h1" || !th.HasClass("title") {
		t.Errorf("expected h1.title as title heading, got %s %v", th.Elem, th.Class)
	}
	if d.TOC == None {
		t.Error("expected a table-of-contents node")
	}
}

func TestHTMLSource_MarkerClassification(t *testing.T) {
	d := buildOrgExport(t)

	labels := map[string]Kind{}
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.Kind.IsMarker() {
			labels[n.RawLabel] = n.Kind
		}
	}

	for _, tag := range []string{"work", "urgent", "home"} {
		if labels[tag] != KindTagMarker {
			t.Errorf("expected tag marker for %q, got %v", tag, labels[tag])
		}
	}
	if labels["TODO"] != KindTodoMarker {
		t.Errorf("expected keyword marker for TODO, got %v", labels["TODO"])
	}
}

func TestHTMLSource_TOCEntriesAreHeadings(t *testing.T) {
	d := buildOrgExport(t)

	var tocHeadings int
	d.Walk(d.TOC, func(id NodeID) bool {
		n := d.Node(id)
		if n.Kind == KindHeading && n.Elem == "li" {
			tocHeadings++
			if n.Level != 0 {
				t.Errorf("list-item heading has level %d, want 0", n.Level)
			}
			if tl := d.TitleLine(id); tl == None || d.Node(tl).Elem != "a" {
				t.Error("expected list-item title line to be its anchor")
			}
		}
		return true
	})
	if tocHeadings != 3 {
		t.Errorf("expected 3 list-item headings in the ToC, got %d", tocHeadings)
	}
}

func TestHTMLSource_ControlSynthesizedAfterTitle(t *testing.T) {
	d := buildOrgExport(t)

	if d.Control == None {
		t.Fatal("expected a control node")
	}
	c := d.Node(d.Control)
	if c.Attr["id"] != ControlID {
		t.Errorf("control id = %q, want %q", c.Attr["id"], ControlID)
	}
	if c.Parent != d.Node(d.TitleHeading).Parent {
		t.Error("expected control as sibling of the title heading")
	}

	siblings := d.Node(c.Parent).Children
	for i, id := range siblings {
		if id == d.TitleHeading {
			if i+1 >= len(siblings) || siblings[i+1] != d.Control {
				t.Error("expected control directly after the title heading")
			}
			return
		}
	}
	t.Fatal("title heading not found among control siblings")
}

func TestHTMLSource_ControlPlaceholderWins(t *testing.T) {
	input := `<body><div id="content">
<div id="ox-tagfilter" class="custom"></div>
<h2>Section</h2>
</div></body>`
	s := &HTMLSource{}
	d, err := s.Build(strings.NewReader(input), "doc.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := d.Node(d.Control)
	if !c.HasClass("custom") {
		t.Error("expected the existing placeholder to be the control")
	}
}

func TestHTMLSource_EmptyContentRoot(t *testing.T) {
	s := &HTMLSource{}
	if _, err := s.Build(strings.NewReader("<body></body>"), "empty.html"); !errors.Is(err, ErrNoContentRoot) {
		t.Fatalf("expected ErrNoContentRoot, got %v", err)
	}
}

func TestDocument_LogicalAncestors(t *testing.T) {
	d := buildOrgExport(t)

	h2Work, h3Deadlines := None, None
	for _, h := range d.Headings() {
		n := d.Node(h)
		if n.Elem == "h2" && strings.Contains(d.TextContent(h), "Work") {
			h2Work = h
		}
		if n.Elem == "h3" {
			h3Deadlines = h
		}
	}
	if h2Work == None || h3Deadlines == None {
		t.Fatal("fixture headings not found")
	}

	anc := d.LogicalAncestors(h3Deadlines)
	if len(anc) != 1 || anc[0] != h2Work {
		t.Fatalf("expected [Work] as ancestors of the h3, got %v", anc)
	}

	// The document title heading is never an outline ancestor.
	if got := d.LogicalAncestors(h2Work); len(got) != 0 {
		t.Errorf("expected no ancestors for a top-level section, got %v", got)
	}

	// ToC entries nest structurally; the inner entry's ancestors include
	// the outer list item.
	var outerLi, innerLi NodeID
	d.Walk(d.TOC, func(id NodeID) bool {
		n := d.Node(id)
		if n.Kind == KindHeading && n.Elem == "li" {
			text := d.TextContent(id)
			if strings.Contains(text, "Deadlines") && !strings.Contains(text, "Work") {
				innerLi = id
			} else if strings.Contains(text, "Work") {
				outerLi = id
			}
		}
		return true
	})
	found := false
	for _, a := range d.LogicalAncestors(innerLi) {
		if a == outerLi {
			found = true
		}
	}
	if !found {
		t.Error("expected the outer ToC entry among the inner entry's ancestors")
	}
}

func TestDocument_TextContentSkipsMarkers(t *testing.T) {
	d := buildOrgExport(t)

	var h3 NodeID
	for _, h := range d.Headings() {
		if d.Node(h).Elem == "h3" {
			h3 = h
		}
	}
	text := d.TextContent(h3)
	if strings.Contains(text, "urgent") || strings.Contains(text, "TODO") {
		t.Errorf("marker text leaked into content: %q", text)
	}
	if !strings.Contains(text, "Deadlines") {
		t.Errorf("expected heading text, got %q", text)
	}
}
