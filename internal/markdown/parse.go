package markdown

import (
	"bytes"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// engine is shared by every Parse call; goldmark parsers hold no
// per-document state. The footnote parsers are registered without the
// footnote extension's AST transformer, which would move every definition
// to the end, drop unreferenced ones and append backlinks.
var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.Strikethrough,
		extension.TaskList,
	),
	goldmark.WithParserOptions(
		parser.WithBlockParsers(
			util.Prioritized(extension.NewFootnoteBlockParser(), 999),
		),
		parser.WithInlineParsers(
			util.Prioritized(extension.NewFootnoteParser(), 101),
			util.Prioritized(&noteLinkParser{}, 199),
		),
	),
)

// Parse builds a Document from markdown source. It never fails: input
// goldmark cannot structure ends up as text.
func Parse(source []byte) *Document {
	doc := &Document{}
	raw, body := splitFrontmatter(source)
	if raw != nil {
		doc.Children = append(doc.Children, &Frontmatter{Raw: string(raw)})
	}

	root := engine.Parser().Parse(text.NewReader(body))
	c := converter{source: body, footnotes: footnoteLabels(root)}
	doc.Children = append(doc.Children, c.blocks(root)...)
	return doc
}

type converter struct {
	source []byte
	// footnotes maps goldmark's footnote index to the source label.
	footnotes map[int]string
}

func footnoteLabels(root ast.Node) map[int]string {
	labels := make(map[int]string)
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fn, ok := n.(*east.Footnote); ok && entering && fn.Index > 0 {
			labels[fn.Index] = string(fn.Ref)
		}
		return ast.WalkContinue, nil
	})
	return labels
}

func (c *converter) footnoteLabel(index int) string {
	if l, ok := c.footnotes[index]; ok {
		return l
	}
	return strconv.Itoa(index)
}

func (c *converter) blocks(parent ast.Node) []Node {
	var out []Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n.(type) {
		case *east.FootnoteList:
			// Definitions are gathered into one list where the first
			// one appeared; they are kept there in source order.
			out = append(out, c.blocks(n)...)
			continue
		case *ast.Paragraph, *ast.TextBlock:
			// Nothing is left of a paragraph that held only link
			// reference definitions.
			if n.Lines().Len() == 0 {
				continue
			}
		}
		out = append(out, c.block(n))
	}
	return out
}

func (c *converter) block(n ast.Node) Node {
	switch n := n.(type) {
	case *ast.Heading:
		return &Heading{Depth: n.Level, Children: c.inlines(n)}
	case *ast.Paragraph:
		return &Paragraph{Children: c.inlines(n)}
	case *ast.TextBlock:
		return &Paragraph{Children: c.inlines(n)}
	case *ast.ThematicBreak:
		return &Container{Type: ContainerThematicBreak}
	case *ast.FencedCodeBlock:
		info := ""
		if n.Info != nil {
			info = string(n.Info.Segment.Value(c.source))
		}
		return &Container{Type: ContainerCodeBlock, Attrs: Attrs{Info: info}, Literal: c.lines(n)}
	case *ast.CodeBlock:
		return &Container{Type: ContainerCodeBlock, Literal: c.lines(n)}
	case *ast.HTMLBlock:
		lit := c.lines(n)
		if n.HasClosure() {
			lit += string(n.ClosureLine.Value(c.source))
		}
		return &Container{Type: ContainerHTMLBlock, Literal: lit}
	case *ast.Blockquote:
		return &Container{Type: ContainerBlockquote, Children: c.blocks(n)}
	case *ast.List:
		return &Container{
			Type:     ContainerList,
			Attrs:    Attrs{Marker: n.Marker, Start: n.Start, Tight: n.IsTight},
			Children: c.blocks(n),
		}
	case *ast.ListItem:
		return &Container{Type: ContainerListItem, Children: c.blocks(n)}
	case *east.Footnote:
		return &Container{Type: ContainerFootnote, Attrs: Attrs{Label: string(n.Ref)}, Children: c.blocks(n)}
	default:
		if n.Type() == ast.TypeInline {
			return &Paragraph{Children: []Node{c.inline(n)}}
		}
		return &Container{Type: ContainerRaw, Literal: c.lines(n)}
	}
}

// lines concatenates the raw source lines of a block node.
func (c *converter) lines(n ast.Node) string {
	var buf bytes.Buffer
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		buf.Write(seg.Value(c.source))
	}
	return buf.String()
}

// inlines converts the inline children of n, merging adjacent text runs.
func (c *converter) inlines(parent ast.Node) []Node {
	var out []Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		node := c.inline(n)
		if t, ok := node.(*Text); ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(*Text); ok {
				prev.Value += t.Value
				continue
			}
		}
		out = append(out, node)
	}
	for _, n := range out {
		if t, ok := n.(*Text); ok {
			t.Value = escapeLineStarts(t.Value)
		}
	}
	return out
}

func (c *converter) inline(n ast.Node) Node {
	switch n := n.(type) {
	case *ast.Text:
		v := string(n.Segment.Value(c.source))
		switch {
		case n.HardLineBreak():
			v += "\\\n"
		case n.SoftLineBreak():
			v += "\n"
		}
		return &Text{Value: v}
	case *ast.String:
		return &Text{Value: string(n.Value)}
	case *ast.Emphasis:
		t := ContainerEmphasis
		if n.Level >= 2 {
			t = ContainerStrong
		}
		return &Container{Type: t, Children: c.inlines(n)}
	case *east.Strikethrough:
		return &Container{Type: ContainerStrikethrough, Children: c.inlines(n)}
	case *east.FootnoteLink:
		return &Container{Type: ContainerFootnoteRef, Attrs: Attrs{Label: c.footnoteLabel(n.Index)}}
	case *east.TaskCheckBox:
		return &Container{Type: ContainerTaskCheckBox, Attrs: Attrs{Checked: n.IsChecked}}
	case *ast.CodeSpan:
		return &Container{Type: ContainerCodeSpan, Literal: c.rawText(n)}
	case *ast.RawHTML:
		var buf bytes.Buffer
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(c.source))
		}
		return &Container{Type: ContainerInlineHTML, Literal: buf.String()}
	case *ast.Link:
		return &Link{URL: string(n.Destination), Title: string(n.Title), Children: c.inlines(n)}
	case *ast.Image:
		return &Image{URL: string(n.Destination), Title: string(n.Title), Alt: escapeLineStarts(c.rawText(n))}
	case *ast.AutoLink:
		return &Link{
			URL:      string(n.URL(c.source)),
			Children: []Node{&Text{Value: string(n.Label(c.source))}},
		}
	case *noteLinkNode:
		nl := &NoteLink{Target: string(n.Target), IsEmbed: n.Embed}
		if n.Alias != nil {
			alias := string(n.Alias)
			nl.Alias = &alias
		}
		return nl
	default:
		return &Text{Value: c.rawText(n)}
	}
}

// rawText flattens the source text below n, keeping line breaks.
func (c *converter) rawText(n ast.Node) string {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch child := child.(type) {
		case *ast.Text:
			buf.Write(child.Segment.Value(c.source))
			if child.SoftLineBreak() || child.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(child.Value)
		case *noteLinkNode:
			buf.WriteString(noteLinkSource(child.Target, child.Alias, child.Embed))
		case *east.FootnoteLink:
			buf.WriteString("[^" + c.footnoteLabel(child.Index) + "]")
		default:
			buf.WriteString(c.rawText(child))
		}
	}
	return buf.String()
}

func noteLinkSource(target, alias []byte, embed bool) string {
	var buf bytes.Buffer
	if embed {
		buf.WriteByte('!')
	}
	buf.WriteString("[[")
	buf.Write(target)
	if alias != nil {
		buf.WriteByte('|')
		buf.Write(alias)
	}
	buf.WriteString("]]")
	return buf.String()
}
