package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
)

// fences maps an opening fence line to the line that closes it. The set
// matches the formats adrg/frontmatter can decode.
var fences = map[string]string{
	"---":     "---",
	"---yaml": "---",
	"---toml": "---",
	"---json": "---",
	"+++":     "+++",
	";;;":     ";;;",
}

// splitFrontmatter returns the leading fenced block (both fence lines
// included, with its trailing newline) and the remaining body. A block
// without a closing fence is not frontmatter.
func splitFrontmatter(src []byte) (raw, body []byte) {
	first, rest, ok := cutLine(src)
	if !ok {
		return nil, src
	}
	closing, known := fences[string(bytes.TrimRight(first, " \t\r"))]
	if !known {
		return nil, src
	}
	offset := len(src) - len(rest)
	for len(rest) > 0 {
		line, next, _ := cutLine(rest)
		offset += len(rest) - len(next)
		if string(bytes.TrimRight(line, " \t\r")) == closing {
			return src[:offset], src[offset:]
		}
		rest = next
	}
	return nil, src
}

// cutLine splits off the first line of b without its newline. ok is false
// when b is empty.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i], b[i+1:], true
	}
	return b, nil, true
}

// Decode unmarshals the frontmatter payload into v.
func (f *Frontmatter) Decode(v any) error {
	raw := f.Raw
	if !strings.HasSuffix(raw, "\n") {
		raw += "\n"
	}
	if _, err := frontmatter.Parse(strings.NewReader(raw), v); err != nil {
		return fmt.Errorf("markdown: decode frontmatter: %w", err)
	}
	return nil
}

// FrontmatterOf returns the document's frontmatter node, if any.
func FrontmatterOf(doc *Document) *Frontmatter {
	if doc == nil || len(doc.Children) == 0 {
		return nil
	}
	fm, _ := doc.Children[0].(*Frontmatter)
	return fm
}
