package markdown

import (
	"fmt"
	"strings"
)

// Walk calls fn for every node of doc in document order, parents before
// their children. Frontmatter is visited as a single node.
func Walk(doc *Document, fn func(Node)) {
	if doc == nil {
		return
	}
	walkNodes(doc.Children, fn)
}

func walkNodes(nodes []Node, fn func(Node)) {
	for _, n := range nodes {
		fn(n)
		walkNodes(children(n), fn)
	}
}

// children returns the child list of n, or nil for leaf variants.
func children(n Node) []Node {
	switch n := n.(type) {
	case *Heading:
		return n.Children
	case *Paragraph:
		return n.Children
	case *Link:
		return n.Children
	case *Container:
		return n.Children
	case *Text, *Frontmatter, *Image, *NoteLink:
		return nil
	default:
		panic(fmt.Sprintf("markdown: unknown node type %T", n))
	}
}

// Transform returns a new document built by rewriting doc bottom-up: the
// children of each node are transformed first, then fn receives a shallow
// copy of the node carrying the new children and returns its replacement.
// doc itself is never modified.
func Transform(doc *Document, fn func(Node) Node) *Document {
	if doc == nil {
		return nil
	}
	return &Document{Children: transformNodes(doc.Children, fn)}
}

func transformNodes(nodes []Node, fn func(Node) Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, fn(shallowCopy(n, fn)))
	}
	return out
}

func shallowCopy(n Node, fn func(Node) Node) Node {
	switch n := n.(type) {
	case *Text:
		cp := *n
		return &cp
	case *Heading:
		cp := *n
		cp.Children = transformNodes(n.Children, fn)
		return &cp
	case *Paragraph:
		cp := *n
		cp.Children = transformNodes(n.Children, fn)
		return &cp
	case *Frontmatter:
		cp := *n
		return &cp
	case *Link:
		cp := *n
		cp.Children = transformNodes(n.Children, fn)
		return &cp
	case *Image:
		cp := *n
		return &cp
	case *NoteLink:
		cp := *n
		if n.Alias != nil {
			alias := *n.Alias
			cp.Alias = &alias
		}
		return &cp
	case *Container:
		cp := *n
		cp.Children = transformNodes(n.Children, fn)
		return &cp
	default:
		panic(fmt.Sprintf("markdown: unknown node type %T", n))
	}
}

// Clone returns a deep copy of doc.
func Clone(doc *Document) *Document {
	return Transform(doc, func(n Node) Node { return n })
}

// PlainText flattens the inline content below n into a single line of
// text: note-links contribute their alias or target, code spans their
// literal. Markdown escapes are left as written.
func PlainText(n Node) string {
	var sb strings.Builder
	var visit func(Node)
	visit = func(n Node) {
		switch n := n.(type) {
		case *Text:
			sb.WriteString(n.Value)
		case *NoteLink:
			sb.WriteString(n.AliasOr(n.Target))
		case *Image:
			sb.WriteString(n.Alt)
		case *Container:
			if n.Type == ContainerCodeSpan {
				sb.WriteString(n.Literal)
			}
		}
		for _, c := range children(n) {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
