package mcpserver

// NoteFormatContract describes how note content is interpreted, for LLM
// consumers creating or updating notes.
const NoteFormatContract = `# Orrery Note Format Contract

A note has a **title** and a Markdown **content** body. Title and content are
separate fields: do not repeat the title as a heading unless you want it in
the body.

## Content rules

1. **Wiki-links** use double brackets around another note's exact title:
   ` + "`[[Project Plan]]`" + `. Matching is case-sensitive. A link to a title that
   does not exist yet is kept and resolves as soon as a note with that title
   is created.
2. **Tags** are written inline as ` + "`#tag`" + ` (letters, digits, underscore).
   They are extracted from the content; there is no separate tag field.
3. **Titles** should be unique. When several notes share a title, links
   resolve to the oldest one.
4. **Backlinks** are maintained automatically. Never write them by hand.
5. **Excerpt, word count and read time** are derived from the content.

## Note types

` + "`note`" + ` (default), ` + "`story`" + `, ` + "`research`" + `, ` + "`canvas`" + `.

## On disk

In a vault each note is one ` + "`<id>.md`" + ` file: YAML frontmatter with
` + "`id`, `title`, `type`, `created_at`, `updated_at`" + ` followed by the content.

## Example

` + "```" + `markdown
Weekly sync with the platform team. #meeting #platform

Decisions:
- Adopt the storage plan in [[Project Plan]]
- Revisit [[Q3 Timeline]] next week
` + "```" + `
`
