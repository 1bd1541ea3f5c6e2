package bundle

import "github.com/starford/notebundle/internal/markdown"

// Bundle is the result of running the pipeline over one note. It is built
// once and not modified afterwards.
type Bundle struct {
	Source     string
	Document   *markdown.Document
	Entries    []ExportEntry
	Unresolved []string
}

// Build runs extract, resolve, plan and rewrite over doc, which was read
// from notePath. attachmentFolder is the bundle-relative folder that
// receives copied files.
func Build(doc *markdown.Document, notePath string, r LinkResolver, attachmentFolder string) *Bundle {
	refs := Extract(doc)
	resolved, unresolved := ResolveAll(r, notePath, refs)
	entries := Plan(resolved, attachmentFolder)
	return &Bundle{
		Source:     notePath,
		Document:   Rewrite(doc, entries),
		Entries:    entries,
		Unresolved: unresolved,
	}
}
