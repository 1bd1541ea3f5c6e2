// Package parser extracts the metadata the index keeps for each note:
// title, aliases and outgoing references.
package parser

import (
	"path"
	"strings"

	"github.com/starford/notebundle/internal/markdown"
	"github.com/starford/notebundle/internal/models"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Title       string
	Aliases     []string
	Links       []models.Link
}

// Parse reads the metadata of the note stored at notePath. It never fails:
// frontmatter that does not decode is ignored.
func Parse(notePath string, data []byte) *Result {
	doc := markdown.Parse(data)
	fm := decodeFrontmatter(doc)
	return &Result{
		Frontmatter: fm,
		Title:       deriveTitle(fm, doc, notePath),
		Aliases:     extractAliases(fm),
		Links:       extractLinks(notePath, doc),
	}
}

func decodeFrontmatter(doc *markdown.Document) map[string]any {
	f := markdown.FrontmatterOf(doc)
	if f == nil {
		return nil
	}
	var fm map[string]any
	if err := f.Decode(&fm); err != nil {
		return nil
	}
	return fm
}

// extractLinks returns the note's references, deduplicated per kind.
// Standard images are rendered content and are not recorded.
func extractLinks(source string, doc *markdown.Document) []models.Link {
	type key struct{ target, kind string }
	seen := make(map[key]struct{})
	var out []models.Link
	add := func(target, kind string) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		k := key{target, kind}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, models.Link{Source: source, Target: target, Type: kind})
	}
	markdown.Walk(doc, func(n markdown.Node) {
		switch n := n.(type) {
		case *markdown.Link:
			add(n.URL, models.LinkInline)
		case *markdown.NoteLink:
			if n.IsEmbed {
				add(n.Target, models.LinkEmbed)
			} else {
				add(n.Target, models.LinkInline)
			}
		}
	})
	return out
}

// extractAliases accepts both "aliases: [a, b]" and "aliases: a". The
// singular "alias" key is honoured as well.
func extractAliases(fm map[string]any) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(v any) {
		s, ok := v.(string)
		if !ok {
			return
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, key := range []string{"aliases", "alias"} {
		switch v := fm[key].(type) {
		case []any:
			for _, item := range v {
				add(item)
			}
		case string:
			for _, part := range strings.Split(v, ",") {
				add(part)
			}
		}
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise the file name without extension.
func deriveTitle(fm map[string]any, doc *markdown.Document, notePath string) string {
	if s, ok := fm["title"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	for _, n := range doc.Children {
		if h, ok := n.(*markdown.Heading); ok && h.Depth == 1 {
			if t := markdown.PlainText(h); t != "" {
				return t
			}
		}
	}
	base := path.Base(notePath)
	return strings.TrimSuffix(base, path.Ext(base))
}
