// Package markdown implements the document model used by the exporter: a
// closed set of node variants, a goldmark-backed parser that understands
// note-links and embeds, and a serializer that turns a tree back into text.
package markdown

// Kind identifies a node variant. The set is closed: every consumer that
// switches over kinds handles all of them.
type Kind int

const (
	KindText Kind = iota
	KindHeading
	KindParagraph
	KindFrontmatter
	KindLink
	KindImage
	KindNoteLink
	KindContainer
)

var kindNames = [...]string{
	KindText:        "Text",
	KindHeading:     "Heading",
	KindParagraph:   "Paragraph",
	KindFrontmatter: "Frontmatter",
	KindLink:        "Link",
	KindImage:       "Image",
	KindNoteLink:    "NoteLink",
	KindContainer:   "Container",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// IsLink reports whether nodes of this kind carry a reference to another
// file. Only Link and NoteLink do; images are rendered content, not links.
func (k Kind) IsLink() bool {
	return k == KindLink || k == KindNoteLink
}

// Node is one element of a Document. Implementations are limited to the
// types declared in this package.
type Node interface {
	Kind() Kind
	node()
}

// Document is the root of a parsed markdown file.
type Document struct {
	Children []Node
}

// Text is a run of inline markdown source. Line breaks are kept in Value.
type Text struct {
	Value string
}

// Heading is an ATX or setext heading; Depth is 1 through 6.
type Heading struct {
	Depth    int
	Children []Node
}

// Paragraph holds inline content.
type Paragraph struct {
	Children []Node
}

// Frontmatter is the fenced metadata block at the top of a file. Raw
// includes both fence lines and is never inspected for links.
type Frontmatter struct {
	Raw string
}

// Link is a standard markdown link. URL is the destination as written,
// without surrounding angle brackets.
type Link struct {
	URL      string
	Title    string
	Children []Node
}

// Image is a standard markdown image.
type Image struct {
	URL   string
	Alt   string
	Title string
}

// NoteLink is a [[target]] reference, or an embed when written ![[target]].
// Alias is nil when no |alias part was given.
type NoteLink struct {
	Target  string
	Alias   *string
	IsEmbed bool
}

// ContainerType distinguishes the constructs kept in a Container.
type ContainerType int

const (
	ContainerEmphasis ContainerType = iota
	ContainerStrong
	ContainerStrikethrough
	ContainerCodeSpan
	ContainerInlineHTML
	ContainerTaskCheckBox
	ContainerBlockquote
	ContainerList
	ContainerListItem
	ContainerCodeBlock
	ContainerHTMLBlock
	ContainerThematicBreak
	ContainerRaw
	ContainerFootnote
	ContainerFootnoteRef
)

// Attrs carries the few container properties the serializer needs.
type Attrs struct {
	// Marker is the list marker: '-', '*', '+' for bullets, '.' or ')' for ordered lists.
	Marker  byte
	Start   int
	Tight   bool
	Checked bool
	// Info is the info string of a fenced code block.
	Info string
	// Label names a footnote definition or reference: "1" for [^1].
	Label string
}

// Container is every construct the exporter does not need to tell apart.
// Leaf constructs keep their source in Literal; the rest hold Children.
type Container struct {
	Type     ContainerType
	Attrs    Attrs
	Literal  string
	Children []Node
}

func (*Text) Kind() Kind        { return KindText }
func (*Heading) Kind() Kind     { return KindHeading }
func (*Paragraph) Kind() Kind   { return KindParagraph }
func (*Frontmatter) Kind() Kind { return KindFrontmatter }
func (*Link) Kind() Kind        { return KindLink }
func (*Image) Kind() Kind       { return KindImage }
func (*NoteLink) Kind() Kind    { return KindNoteLink }
func (*Container) Kind() Kind   { return KindContainer }

func (*Text) node()        {}
func (*Heading) node()     {}
func (*Paragraph) node()   {}
func (*Frontmatter) node() {}
func (*Link) node()        {}
func (*Image) node()       {}
func (*NoteLink) node()    {}
func (*Container) node()   {}

// AliasOr returns the alias when present, otherwise fallback.
func (n *NoteLink) AliasOr(fallback string) string {
	if n.Alias != nil {
		return *n.Alias
	}
	return fallback
}
