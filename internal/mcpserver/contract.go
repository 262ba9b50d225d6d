package mcpserver

// NoteFormatContract describes the canonical HTML note format that
// LLM consumers should follow when creating or updating notes.
const NoteFormatContract = `# Solo Note Format Contract

Every note stored in Solo is an HTML fragment plus a JSON metadata
sidecar managed by the application.

## Structure

` + "```" + `html
<h1>Human-readable title</h1>
<p data-tags="tag-one, nested/tag-two">Body paragraph.</p>
<p>Plain paragraph without tags.</p>
<ul>
  <li data-tags="tag-one">Tagged list item.</li>
</ul>
` + "```" + `

## Rules

1. **Notes are HTML fragments.** No <html>, <head>, or <body> wrapper.
2. **Tags live on block elements.** A ` + "`" + `data-tags` + "`" + ` attribute may appear
   on p, h1-h6, li, and blockquote elements only.
3. **Tag syntax** is a comma-separated list. Tags are hierarchical paths
   with ` + "`" + `/` + "`" + ` separators (e.g. ` + "`" + `work/active` + "`" + `, ` + "`" + `mood/happy` + "`" + `).
4. **Note titles come from the file name**, not from the content. Use
   the create_note tool's title argument; do not rely on an <h1>.
5. **Notebooks are directories.** A note's id is its relative path, e.g.
   ` + "`" + `Projects/Ideas/roadmap.html` + "`" + `.
6. **Encoding** is UTF-8.

## Example

` + "```" + `html
<p data-tags="meeting-notes, project-x">Weekly standup 2025-01-20.</p>
<p>Attendees: Alice, Bob.</p>
<ul>
  <li data-tags="todo">Alice to review the design doc.</li>
  <li data-tags="todo">Bob to update the roadmap.</li>
</ul>
` + "```" + `
`
