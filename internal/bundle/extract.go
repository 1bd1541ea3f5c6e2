// Package bundle turns a parsed note into an export bundle: it collects the
// references a document makes, resolves them to vault files, plans where
// each file lands in the bundle and rewrites the document to point there.
package bundle

import (
	"fmt"

	"github.com/starford/notebundle/internal/markdown"
)

// Extract returns every distinct reference target in doc, in order of
// first appearance. Link nodes contribute their URL and note-links their
// target; frontmatter is never inspected.
func Extract(doc *markdown.Document) []string {
	var refs []string
	seen := make(map[string]struct{})
	markdown.Walk(doc, func(n markdown.Node) {
		ref, ok := reference(n)
		if !ok {
			return
		}
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	})
	return refs
}

// reference returns the target carried by a link-bearing node.
func reference(n markdown.Node) (string, bool) {
	switch n := n.(type) {
	case *markdown.Link:
		return n.URL, true
	case *markdown.NoteLink:
		return n.Target, true
	case *markdown.Text, *markdown.Heading, *markdown.Paragraph,
		*markdown.Frontmatter, *markdown.Image, *markdown.Container:
		return "", false
	default:
		panic(fmt.Sprintf("bundle: unhandled node type %T", n))
	}
}
