package outline

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownSource builds snapshots from Markdown exports. Outline exports
// to Markdown keep classification as literal text: headings may carry a
// leading TODO/DONE keyword and a trailing ":tag1:tag2:" group. Those
// are lifted into marker nodes so the collector sees the same shape as
// exported HTML.
type MarkdownSource struct{}

var (
	mdTagGroup = regexp.MustCompile(`((?::[[:alnum:]_@]+)+:)\s*$`)
	mdKeyword  = regexp.MustCompile(`^(TODO|DONE)\s+`)
)

// Build parses Markdown and produces the outline snapshot. Each heading
// opens a section container; following blocks become sibling content
// elements inside it, deeper headings nest new containers.
func (s *MarkdownSource) Build(r io.Reader, name string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	root := md.Parser().Parse(reader)

	d := &Document{
		Name:         name,
		Title:        strings.TrimSuffix(strings.TrimSuffix(name, ".md"), ".markdown"),
		Root:         None,
		TOC:          None,
		Control:      None,
		TitleHeading: None,
	}
	d.Root = d.alloc(None, KindElement, "div")
	d.Nodes[d.Root].Attr = map[string]string{"id": "content"}
	d.Nodes[d.Root].Class = []string{"content"}

	type stackEntry struct {
		container NodeID
		level     int
	}
	stack := []stackEntry{{container: d.Root, level: 0}}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			for len(stack) > 1 && stack[len(stack)-1].level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1].container

			container := d.alloc(parent, KindElement, "div")
			d.Nodes[container].Class = []string{fmt.Sprintf("outline-%d", node.Level)}

			h := s.buildHeading(d, container, node, src)
			stack = append(stack, stackEntry{container: container, level: node.Level})

			if node.Level == 1 && d.TitleHeading == None {
				d.TitleHeading = h
				if t := strings.TrimSpace(d.TextContent(h)); t != "" {
					d.Title = t
				}
			}

		default:
			t := mdText(n, src)
			if t == "" {
				continue
			}
			parent := stack[len(stack)-1].container
			p := d.alloc(parent, KindElement, "p")
			tx := d.alloc(p, KindText, "")
			d.Nodes[tx].Text = t
		}
	}

	if d.FirstElementChild(d.Root) == None {
		return nil, ErrNoContentRoot
	}

	d.ensureControl()
	return d, nil
}

func (s *MarkdownSource) buildHeading(d *Document, container NodeID, node *ast.Heading, src []byte) NodeID {
	return s.buildHeadingText(d, container, node.Level, strings.TrimSpace(mdText(node, src)))
}

// buildHeadingText emits a heading element with its text, keyword marker
// and tag markers split out of the raw heading text.
func (s *MarkdownSource) buildHeadingText(d *Document, container NodeID, level int, raw string) NodeID {
	tags := []string{}
	if m := mdTagGroup.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(strings.TrimSuffix(raw, m[0]))
		for _, t := range strings.Split(strings.Trim(m[1], ":"), ":") {
			if t != "" {
				tags = append(tags, t)
			}
		}
	}

	keyword := ""
	if m := mdKeyword.FindStringSubmatch(raw); m != nil {
		keyword = m[1]
		raw = strings.TrimSpace(strings.TrimPrefix(raw, m[0]))
	}

	h := d.alloc(container, KindHeading, fmt.Sprintf("h%d", level))
	d.Nodes[h].Level = level
	if level == 1 {
		d.Nodes[h].Class = []string{"title"}
	}

	if keyword != "" {
		k := d.alloc(h, KindTodoMarker, "span")
		kn := &d.Nodes[k]
		kn.RawLabel = keyword
		kn.Class = []string{strings.ToLower(keyword), keyword}
		kt := d.alloc(k, KindText, "")
		d.Nodes[kt].Text = keyword
	}

	tx := d.alloc(h, KindText, "")
	d.Nodes[tx].Text = raw

	if len(tags) > 0 {
		wrap := d.alloc(h, KindElement, "span")
		d.Nodes[wrap].Class = []string{"tag"}
		for _, t := range tags {
			m := d.alloc(wrap, KindTagMarker, "span")
			mn := &d.Nodes[m]
			mn.RawLabel = t
			mn.Class = []string{t}
			mt := d.alloc(m, KindText, "")
			d.Nodes[mt].Text = t
		}
	}
	return h
}

// mdText extracts the plain text of a goldmark AST node.
func mdText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Kind() != ast.KindHeading {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(mdText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
