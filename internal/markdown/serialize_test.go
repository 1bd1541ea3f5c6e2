package markdown

import (
	"fmt"
	"strings"
	"testing"
)

// shape renders the structure of a document for comparison.
func shape(doc *Document) string {
	var sb strings.Builder
	var dump func(nodes []Node, depth int)
	dump = func(nodes []Node, depth int) {
		for _, n := range nodes {
			sb.WriteString(strings.Repeat("  ", depth))
			switch n := n.(type) {
			case *Text:
				fmt.Fprintf(&sb, "Text %q", strings.TrimRight(n.Value, "\n"))
			case *Heading:
				fmt.Fprintf(&sb, "Heading %d", n.Depth)
			case *Paragraph:
				sb.WriteString("Paragraph")
			case *Frontmatter:
				fmt.Fprintf(&sb, "Frontmatter %q", n.Raw)
			case *Link:
				fmt.Fprintf(&sb, "Link %q %q", n.URL, n.Title)
			case *Image:
				fmt.Fprintf(&sb, "Image %q %q %q", n.URL, n.Alt, n.Title)
			case *NoteLink:
				fmt.Fprintf(&sb, "NoteLink %q %q %v", n.Target, n.AliasOr("<nil>"), n.IsEmbed)
			case *Container:
				fmt.Fprintf(&sb, "Container %d %+v %q", n.Type, n.Attrs, n.Literal)
			}
			sb.WriteByte('\n')
			dump(children(n), depth+1)
		}
	}
	dump(doc.Children, 0)
	return sb.String()
}

func TestSerialize_RoundTrip(t *testing.T) {
	inputs := []string{
		"# Title\n\nSome *emphasis*, **strong** and ~~gone~~ text.\n",
		"Setext heading\n==============\n\nparagraph\n",
		"---\ntitle: x\n---\n## Sub\n\n[[Note]] and [[Other|alias]] and ![[pic.png]]\n",
		"A [link](https://example.com \"Title\") and <https://auto.example>.\n",
		"![image](img/a.png)\n",
		"[spaced](<my file.md>)\n",
		"- one\n- two\n  - nested [[Deep]]\n- three\n",
		"1. first\n2. second\n\n3. loose third\n",
		"5) five\n6) six\n",
		"- [ ] todo\n- [x] done [[Task]]\n",
		"> quote with [[Link]]\n>\n> second paragraph\n",
		"```go\nfunc main() {}\n```\n\n    indented code\n",
		"Inline `code` and ``double `tick` code``.\n",
		"<div>\nraw html\n</div>\n\ntext <span>inline</span>\n",
		"line one\\\nline two\nline three\n",
		"***\n\nafter rule\n",
		"Escaped \\*stars\\* and \\[[not a link]].\n",
		"```\n```` inner fence\n```\n",
		"Claim.[^1]\n\n[^1]: Wikipedia\n",
		"Two[^a] refs[^b].\n\n[^a]: first [[Note]]\n[^b]: second\n\n[^unused]: never cited\n",
		"Long[^long].\n\n[^long]: first paragraph\n\n    second paragraph\n",
		"[a][r]\n\n[r]: https://x.y\n",
		"text\n\n[unused]: https://x.y\n",
		"foo\n    - bar\n",
		"foo\n    # not heading\n    > not quote\n    1. not list\n",
		"foo\n    ---\n",
		"foo\n    ===\n",
		"foo\n    ```\n",
		"foo\n    * * *\n",
		"| a | b |\n|---|---|\n| [[c]] | d |\n",
		"a | b\n--- | ---\n1 | 2\n",
	}
	for _, in := range inputs {
		doc := Parse([]byte(in))
		out := Serialize(doc)
		want, got := shape(doc), shape(Parse(out))
		if want != got {
			t.Errorf("round trip changed structure\ninput:\n%s\noutput:\n%s\nwant:\n%s\ngot:\n%s", in, out, want, got)
		}
	}
}

func TestSerialize_Footnotes(t *testing.T) {
	in := "Claim.[^1]\n\n[^1]: Wikipedia\n"
	doc := Parse([]byte(in))
	if n := len(collect(doc, KindLink)); n != 0 {
		t.Errorf("footnote parsed as %d links", n)
	}
	if got := string(Serialize(doc)); got != in {
		t.Errorf("got %q, want %q", got, in)
	}
}

func TestSerialize_DropsReferenceDefinitions(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[a][r]\n\n[r]: https://x.y\n", "[a](https://x.y)\n"},
		{"text\n\n[unused]: https://x.y\n", "text\n"},
	}
	for _, tt := range tests {
		if got := string(Serialize(Parse([]byte(tt.in)))); got != tt.want {
			t.Errorf("Serialize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSerialize_ContinuationLinesStayInParagraph(t *testing.T) {
	out := Serialize(Parse([]byte("foo\n    - bar\n")))
	doc := Parse(out)
	if len(doc.Children) != 1 {
		t.Fatalf("got %d blocks from %q", len(doc.Children), out)
	}
	if _, ok := doc.Children[0].(*Paragraph); !ok {
		t.Errorf("got %T from %q", doc.Children[0], out)
	}
}

func TestEscapeBlockStart(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"- bar", `\- bar`},
		{"-bar", "-bar"},
		{"+", `\+`},
		{"## h", `\## h`},
		{"####### seven", "####### seven"},
		{"#tag", "#tag"},
		{"> q", `\> q`},
		{"1. one", `1\. one`},
		{"1) one", `1\) one`},
		{"2. two", "2. two"},
		{"---", `\---`},
		{"- - -", `\- - -`},
		{"===", `\===`},
		{"_ _ _", `\_ _ _`},
		{"~~~", `\~~~`},
		{"<div>", `\<div>`},
		{"<3", "<3"},
		{"[^1]: x", `\[^1]: x`},
		{"| a | b |", "| a | b |"},
		{"--- | ---", "--- | ---"},
		{`\- bar`, `\- bar`},
	}
	for _, tt := range tests {
		if got := escapeBlockStart(tt.in); got != tt.want {
			t.Errorf("escapeBlockStart(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSerialize_KeepsFrontmatterVerbatim(t *testing.T) {
	in := "---\ntitle: \"# not a heading\"\ntags: [a, b]\n---\n# Real heading\n"
	out := string(Serialize(Parse([]byte(in))))
	if !strings.HasPrefix(out, "---\ntitle: \"# not a heading\"\ntags: [a, b]\n---\n") {
		t.Errorf("frontmatter not preserved:\n%s", out)
	}
	if !strings.Contains(out, "# Real heading") {
		t.Errorf("heading lost:\n%s", out)
	}
}

func TestSerialize_NoteLinks(t *testing.T) {
	doc := &Document{Children: []Node{
		&Paragraph{Children: []Node{
			&NoteLink{Target: "A"},
			&Text{Value: " "},
			&NoteLink{Target: "B", Alias: ptr("b")},
			&Text{Value: " "},
			&NoteLink{Target: "c.png", IsEmbed: true},
		}},
	}}
	if got := string(Serialize(doc)); got != "[[A]] [[B|b]] ![[c.png]]\n" {
		t.Errorf("got %q", got)
	}
}

func TestSerialize_BuiltLinks(t *testing.T) {
	doc := &Document{Children: []Node{
		&Paragraph{Children: []Node{
			&Link{URL: "attachments/notes.md", Children: []Node{&Text{Value: "Notes"}}},
			&Text{Value: " "},
			&Image{URL: "attachments/my diagram.png", Alt: "diagram"},
		}},
	}}
	want := "[Notes](attachments/notes.md) ![diagram](<attachments/my diagram.png>)\n"
	if got := string(Serialize(doc)); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEscapeText(t *testing.T) {
	in := "attachments/a_[b]*c`.md"
	doc := &Document{Children: []Node{
		&Paragraph{Children: []Node{&Text{Value: EscapeText(in)}}},
	}}
	parsed := Parse(Serialize(doc))
	if n := len(collect(parsed, KindContainer)); n != 0 {
		t.Errorf("escaped text produced %d containers", n)
	}
	if n := len(collect(parsed, KindLink)) + len(collect(parsed, KindNoteLink)); n != 0 {
		t.Errorf("escaped text produced %d links", n)
	}
}
