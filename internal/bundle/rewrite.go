package bundle

import (
	"fmt"

	"github.com/starford/notebundle/internal/markdown"
)

// Rewrite returns a copy of doc in which every reference that has an entry
// points at the entry's NewPath. Matched links keep their display text;
// matched note-links become links, and matched embeds become images, both
// labelled with the alias or, failing that, the new path. The fallback
// label is stored as markdown text, so the path is escaped with
// markdown.EscapeText: attachments/my_file.png is labelled
// attachments/my\_file.png and renders as the plain path. doc is not
// modified.
func Rewrite(doc *markdown.Document, entries []ExportEntry) *markdown.Document {
	byRef := make(map[string]ExportEntry, len(entries))
	for _, e := range entries {
		byRef[e.Reference] = e
	}
	return markdown.Transform(doc, func(n markdown.Node) markdown.Node {
		return rewriteNode(n, byRef)
	})
}

func rewriteNode(n markdown.Node, byRef map[string]ExportEntry) markdown.Node {
	switch n := n.(type) {
	case *markdown.Link:
		if e, ok := byRef[n.URL]; ok {
			n.URL = e.NewPath
		}
		return n
	case *markdown.NoteLink:
		e, ok := byRef[n.Target]
		if !ok {
			return n
		}
		label := n.AliasOr(markdown.EscapeText(e.NewPath))
		if n.IsEmbed {
			return &markdown.Image{URL: e.NewPath, Alt: label}
		}
		return &markdown.Link{
			URL:      e.NewPath,
			Children: []markdown.Node{&markdown.Text{Value: label}},
		}
	case *markdown.Text, *markdown.Heading, *markdown.Paragraph,
		*markdown.Frontmatter, *markdown.Image, *markdown.Container:
		return n
	default:
		panic(fmt.Sprintf("bundle: unhandled node type %T", n))
	}
}
