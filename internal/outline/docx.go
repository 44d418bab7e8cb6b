package outline

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXSource builds snapshots from word-processor exports. Heading
// styles give the outline levels; classification uses the same literal
// text conventions as Markdown exports (leading TODO/DONE keyword,
// trailing ":tag:" group), since style classes do not survive the
// export.
type DOCXSource struct{}

// Build parses a .docx export and produces the outline snapshot.
func (s *DOCXSource) Build(r io.Reader, name string) (*Document, error) {
	// go-docx needs a ReadSeeker plus size, so spool to a temp file.
	tmp, err := os.CreateTemp("", "tagfilter-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	d := &Document{
		Name:         name,
		Title:        strings.TrimSuffix(name, ".docx"),
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
	md := &MarkdownSource{}

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}

		level := docxHeadingLevel(para)
		text := docxParagraphText(para)
		if text == "" {
			continue
		}

		if level > 0 {
			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1].container

			container := d.alloc(parent, KindElement, "div")
			d.Nodes[container].Class = []string{fmt.Sprintf("outline-%d", level)}

			h := md.buildHeadingText(d, container, level, text)
			stack = append(stack, stackEntry{container: container, level: level})

			if level == 1 && d.TitleHeading == None {
				d.TitleHeading = h
				if t := strings.TrimSpace(d.TextContent(h)); t != "" {
					d.Title = t
				}
			}
			continue
		}

		parent := stack[len(stack)-1].container
		p := d.alloc(parent, KindElement, "p")
		tx := d.alloc(p, KindText, "")
		d.Nodes[tx].Text = text
	}

	if d.FirstElementChild(d.Root) == None {
		return nil, ErrNoContentRoot
	}

	d.ensureControl()
	return d, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := para.Properties.Style.Val
	for lvl := 1; lvl <= 6; lvl++ {
		if strings.EqualFold(style, fmt.Sprintf("Heading%d", lvl)) ||
			strings.EqualFold(style, fmt.Sprintf("heading %d", lvl)) {
			return lvl
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
