package mcpserver

// BundleLayout describes what export_note writes, so LLM consumers know
// where to find the exported document and its files.
const BundleLayout = `# notebundle Export Layout

Exporting a note writes a self-contained folder inside the vault:

` + "```" + `text
<export folder>/<note name>/<note name>.md
<export folder>/<note name>/<attachment folder>/<file>
` + "```" + `

The export folder defaults to ` + "`markdown-export-output`" + ` and the attachment
folder to ` + "`attachments`" + `. Both can be changed in the export settings.

## What is rewritten

1. ` + "`[text](target)`" + ` links that resolve to a vault file point at
   ` + "`attachments/<basename>`" + `. The link text is kept.
2. ` + "`[[target]]`" + ` and ` + "`[[target|alias]]`" + ` become standard links to the copied
   file. The alias is used as the text when present.
3. ` + "`![[target]]`" + ` embeds become images pointing at the copied file.
4. Frontmatter is written back unchanged.

## What is left alone

- References that do not resolve to a vault file are reported as
  unresolved and stay exactly as written.
- Standard images ` + "`![alt](src)`" + ` are not copied.
- The source note is never modified.

## Limitations

Only the basename of each file is kept. Two different files with the same
basename are copied to the same path; the export reports them as
collisions and the last copy wins.
`
