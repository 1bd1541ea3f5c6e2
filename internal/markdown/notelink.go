package markdown

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// kindNoteLink is the goldmark node kind produced by noteLinkParser.
var kindNoteLink = ast.NewNodeKind("NoteLink")

// noteLinkNode is the goldmark-side representation of [[target|alias]].
type noteLinkNode struct {
	ast.BaseInline

	Target []byte
	Alias  []byte
	Embed  bool
}

func (n *noteLinkNode) Kind() ast.NodeKind { return kindNoteLink }

func (n *noteLinkNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Target": string(n.Target),
		"Alias":  string(n.Alias),
		"Embed":  boolString(n.Embed),
	}, nil)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// noteLinkParser recognises [[target]], [[target|alias]] and their
// ![[...]] embed forms. It must run before goldmark's link parser, which
// would otherwise claim the opening bracket.
type noteLinkParser struct{}

var (
	openNoteLink  = []byte("[[")
	closeNoteLink = []byte("]]")
)

func (p *noteLinkParser) Trigger() []byte {
	return []byte{'!', '['}
}

func (p *noteLinkParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	embed := false
	start := 0
	if len(line) > 0 && line[0] == '!' {
		embed = true
		start = 1
	}
	if !bytes.HasPrefix(line[start:], openNoteLink) {
		return nil
	}
	start += len(openNoteLink)

	end := bytes.Index(line[start:], closeNoteLink)
	if end < 0 {
		return nil
	}
	inner := line[start : start+end]
	if bytes.ContainsAny(inner, "[]\n") {
		return nil
	}

	target, alias, hasAlias := bytes.Cut(inner, []byte{'|'})
	if len(bytes.TrimSpace(target)) == 0 {
		return nil
	}

	node := &noteLinkNode{
		Target: append([]byte(nil), target...),
		Embed:  embed,
	}
	if hasAlias {
		// Keep a non-nil slice so an empty alias still differs from none.
		node.Alias = append([]byte{}, alias...)
	}
	block.Advance(start + end + len(closeNoteLink))
	return node
}
