package markdown

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders doc as markdown. Parsing the output yields a tree
// equivalent to doc; the text itself is normalized (list markers, emphasis
// delimiters and blank lines may differ from the original source).
func Serialize(doc *Document) []byte {
	if doc == nil {
		return nil
	}
	var sb strings.Builder
	nodes := doc.Children
	if len(nodes) > 0 {
		if fm, ok := nodes[0].(*Frontmatter); ok {
			sb.WriteString(fm.Raw)
			if !strings.HasSuffix(fm.Raw, "\n") {
				sb.WriteByte('\n')
			}
			nodes = nodes[1:]
		}
	}
	if body := renderBlocks(nodes, "\n\n"); body != "" {
		sb.WriteString(body)
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

func renderBlocks(nodes []Node, sep string) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, renderBlock(n))
	}
	return strings.Join(parts, sep)
}

func renderBlock(n Node) string {
	switch n := n.(type) {
	case *Heading:
		content := strings.TrimSpace(renderInlines(n.Children))
		content = strings.ReplaceAll(content, "\\\n", " ")
		content = strings.ReplaceAll(content, "\n", " ")
		return strings.Repeat("#", n.Depth) + " " + content
	case *Paragraph:
		return strings.TrimRight(renderInlines(n.Children), "\n")
	case *Frontmatter:
		return strings.TrimRight(n.Raw, "\n")
	case *Container:
		return renderContainerBlock(n)
	case *Text, *Link, *Image, *NoteLink:
		return strings.TrimRight(renderInline(n), "\n")
	default:
		panic(fmt.Sprintf("markdown: unknown node type %T", n))
	}
}

func renderContainerBlock(c *Container) string {
	switch c.Type {
	case ContainerBlockquote:
		return prefixLines(renderBlocks(c.Children, "\n\n"), "> ", ">")
	case ContainerList:
		return renderList(c)
	case ContainerListItem:
		return renderItem(c, "- ", true)
	case ContainerCodeBlock:
		return renderCodeBlock(c)
	case ContainerHTMLBlock, ContainerRaw:
		return strings.TrimRight(c.Literal, "\n")
	case ContainerThematicBreak:
		return "***"
	case ContainerFootnote:
		return renderFootnote(c)
	default:
		return strings.TrimRight(renderInline(c), "\n")
	}
}

func renderList(list *Container) string {
	sep := "\n\n"
	if list.Attrs.Tight {
		sep = "\n"
	}
	ordered := list.Attrs.Marker == '.' || list.Attrs.Marker == ')'
	items := make([]string, 0, len(list.Children))
	for i, child := range list.Children {
		var marker string
		switch {
		case ordered:
			marker = strconv.Itoa(list.Attrs.Start+i) + string(list.Attrs.Marker) + " "
		case list.Attrs.Marker != 0:
			marker = string(list.Attrs.Marker) + " "
		default:
			marker = "- "
		}
		item, ok := child.(*Container)
		if !ok || item.Type != ContainerListItem {
			items = append(items, indent(marker, renderBlock(child)))
			continue
		}
		items = append(items, renderItem(item, marker, list.Attrs.Tight))
	}
	return strings.Join(items, sep)
}

func renderItem(item *Container, marker string, tight bool) string {
	sep := "\n\n"
	if tight {
		sep = "\n"
	}
	return indent(marker, renderBlocks(item.Children, sep))
}

// indent places marker before the first line and aligns every following
// non-blank line under the content.
func indent(marker, body string) string {
	pad := strings.Repeat(" ", len(marker))
	lines := strings.Split(body, "\n")
	for i := range lines {
		switch {
		case i == 0:
			lines[i] = marker + lines[i]
		case lines[i] != "":
			lines[i] = pad + lines[i]
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " ")
}

// renderFootnote writes the label before the first block and indents the
// rest by four columns so they stay inside the definition.
func renderFootnote(c *Container) string {
	head := "[^" + c.Attrs.Label + "]:"
	body := renderBlocks(c.Children, "\n\n")
	if body == "" {
		return head
	}
	lines := strings.Split(body, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = "    " + lines[i]
		}
	}
	return head + " " + strings.Join(lines, "\n")
}

func prefixLines(body, prefix, blank string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = blank
		} else {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func renderCodeBlock(c *Container) string {
	ch := byte('`')
	if strings.ContainsRune(c.Attrs.Info, '`') {
		ch = '~'
	}
	fence := strings.Repeat(string(ch), max(3, longestRun(c.Literal, ch)+1))
	var sb strings.Builder
	sb.WriteString(fence)
	sb.WriteString(c.Attrs.Info)
	sb.WriteByte('\n')
	sb.WriteString(c.Literal)
	if c.Literal != "" && !strings.HasSuffix(c.Literal, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString(fence)
	return sb.String()
}

func renderInlines(nodes []Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(renderInline(n))
	}
	return sb.String()
}

func renderInline(n Node) string {
	switch n := n.(type) {
	case *Text:
		return escapeLineStarts(n.Value)
	case *Link:
		if isAutolink(n) {
			return "<" + n.URL + ">"
		}
		return "[" + renderInlines(n.Children) + "](" + destination(n.URL, n.Title) + ")"
	case *Image:
		return "![" + escapeLineStarts(n.Alt) + "](" + destination(n.URL, n.Title) + ")"
	case *NoteLink:
		var sb strings.Builder
		if n.IsEmbed {
			sb.WriteByte('!')
		}
		sb.WriteString("[[")
		sb.WriteString(n.Target)
		if n.Alias != nil {
			sb.WriteByte('|')
			sb.WriteString(*n.Alias)
		}
		sb.WriteString("]]")
		return sb.String()
	case *Container:
		return renderContainerInline(n)
	case *Heading, *Paragraph, *Frontmatter:
		return renderBlock(n)
	default:
		panic(fmt.Sprintf("markdown: unknown node type %T", n))
	}
}

func renderContainerInline(c *Container) string {
	switch c.Type {
	case ContainerEmphasis:
		return "*" + renderInlines(c.Children) + "*"
	case ContainerStrong:
		return "**" + renderInlines(c.Children) + "**"
	case ContainerStrikethrough:
		return "~~" + renderInlines(c.Children) + "~~"
	case ContainerCodeSpan:
		fence := strings.Repeat("`", longestRun(c.Literal, '`')+1)
		lit := c.Literal
		if strings.HasPrefix(lit, "`") || strings.HasSuffix(lit, "`") {
			lit = " " + lit + " "
		}
		return fence + lit + fence
	case ContainerInlineHTML:
		return c.Literal
	case ContainerFootnoteRef:
		return "[^" + c.Attrs.Label + "]"
	case ContainerTaskCheckBox:
		if c.Attrs.Checked {
			return "[x] "
		}
		return "[ ] "
	default:
		return renderContainerBlock(c)
	}
}

// isAutolink reports whether l came from <url> syntax: a single text child
// spelling out the destination itself.
func isAutolink(l *Link) bool {
	if len(l.Children) != 1 || l.Title != "" {
		return false
	}
	t, ok := l.Children[0].(*Text)
	if !ok || t.Value != l.URL || strings.ContainsAny(l.URL, " <>") {
		return false
	}
	return strings.Contains(l.URL, "://") || strings.Contains(l.URL, ":") || strings.Contains(l.URL, "@")
}

func destination(url, title string) string {
	dest := url
	if url == "" || strings.ContainsAny(url, " ()") {
		dest = "<" + url + ">"
	}
	if title == "" {
		return dest
	}
	switch {
	case !strings.Contains(title, `"`):
		return dest + ` "` + title + `"`
	case !strings.Contains(title, "'"):
		return dest + " '" + title + "'"
	default:
		return dest + " (" + title + ")"
	}
}

func longestRun(s string, ch byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == ch {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	"[", `\[`,
	"]", `\]`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"<", `\<`,
)

// EscapeText turns a literal string into Text source that renders as the
// same characters.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// escapeLineStarts backslash-escapes the start of every line after the
// first that would open a block when the text is parsed again, as happens
// to a paragraph continuation line that lost its indentation. Escaped text
// passes through unchanged.
func escapeLineStarts(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = escapeBlockStart(lines[i])
	}
	return strings.Join(lines, "\n")
}

func escapeBlockStart(line string) string {
	if line == "" {
		return line
	}
	if isRuleOrUnderline(line) {
		return `\` + line
	}
	spaceAt := func(i int) bool {
		return i >= len(line) || line[i] == ' ' || line[i] == '\t'
	}
	switch ch := line[0]; ch {
	case '>':
		return `\` + line
	case '-', '+', '*':
		if spaceAt(1) {
			return `\` + line
		}
	case '#':
		n := len(line) - len(strings.TrimLeft(line, "#"))
		if n <= 6 && spaceAt(n) {
			return `\` + line
		}
	case '`', '~':
		if strings.HasPrefix(line, strings.Repeat(string(ch), 3)) {
			return `\` + line
		}
	case '<':
		if len(line) > 1 && (isASCIILetter(line[1]) || strings.IndexByte("/!?", line[1]) >= 0) {
			return `\` + line
		}
	case '[':
		if strings.HasPrefix(line, "[^") {
			return `\` + line
		}
	case '1':
		// Only a list starting at 1 may interrupt a paragraph.
		if len(line) > 1 && (line[1] == '.' || line[1] == ')') && spaceAt(2) {
			return "1\\" + line[1:]
		}
	}
	return line
}

// isRuleOrUnderline reports whether line is a thematic break or a setext
// heading underline.
func isRuleOrUnderline(line string) bool {
	trimmed := strings.TrimRight(line, " \t")
	if trimmed != "" && (strings.Trim(trimmed, "=") == "" || strings.Trim(trimmed, "-") == "") {
		return true
	}
	compact := strings.NewReplacer(" ", "", "\t", "").Replace(line)
	if len(compact) < 3 {
		return false
	}
	return strings.IndexByte("-*_", compact[0]) >= 0 && strings.Trim(compact, compact[:1]) == ""
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
