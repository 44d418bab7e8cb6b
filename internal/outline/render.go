package outline

import (
	"bufio"
	"html"
	"io"
	"sort"
	"strings"
)

// HiddenClass is the stable hidden-state marker stamped on nodes the
// filter decided to hide. A presentation layer maps it to non-display.
const HiddenClass = "tf-hidden"

var voidElems = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Render serializes the snapshot's content subtree back to HTML,
// stamping HiddenClass onto every node the visibility state hides.
// Text content is emitted verbatim (escaped), never rewritten. A nil
// visibility slice renders the document unfiltered.
func Render(d *Document, visible []bool, w io.Writer) error {
	bw := bufio.NewWriter(w)
	renderNode(d, d.Root, visible, bw)
	return bw.Flush()
}

func renderNode(d *Document, id NodeID, visible []bool, bw *bufio.Writer) {
	n := &d.Nodes[id]

	if n.Kind == KindText {
		bw.WriteString(html.EscapeString(n.Text))
		return
	}

	hidden := visible != nil && int(id) < len(visible) && !visible[id]

	bw.WriteByte('<')
	bw.WriteString(n.Elem)
	writeAttrs(n, hidden, bw)

	if voidElems[n.Elem] {
		bw.WriteString("/>")
		return
	}
	bw.WriteByte('>')

	for _, c := range n.Children {
		renderNode(d, c, visible, bw)
	}

	bw.WriteString("</")
	bw.WriteString(n.Elem)
	bw.WriteByte('>')
}

func writeAttrs(n *Node, hidden bool, bw *bufio.Writer) {
	keys := make([]string, 0, len(n.Attr))
	for k := range n.Attr {
		if k == "class" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	class := strings.Join(n.Class, " ")
	if hidden {
		if class != "" {
			class += " "
		}
		class += HiddenClass
	}
	if class != "" {
		bw.WriteString(` class="`)
		bw.WriteString(html.EscapeString(class))
		bw.WriteByte('"')
	}
	for _, k := range keys {
		bw.WriteByte(' ')
		bw.WriteString(k)
		bw.WriteString(`="`)
		bw.WriteString(html.EscapeString(n.Attr[k]))
		bw.WriteByte('"')
	}
}
