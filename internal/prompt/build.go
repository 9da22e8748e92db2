// Package prompt turns source results into a context block and combines it
// with a persona into the final generation prompt.
package prompt

import (
	"fmt"

	"github.com/kitbuilder587/orbe-search/internal/domain"
)

const (
	languageSuffix = " **Respond ONLY in English.**"
	synthesizeHint = "\nSynthesize the provided context and user query to answer concisely. If context is irrelevant or missing, rely on general knowledge."
)

func fileDirective(query string) string {
	return fmt.Sprintf(`**USER TASK: Provide a direct download link.**

CONTEXT ANALYSIS: The user query is '%s'. The provided context includes a section '[Potential Downloadable ... Files Found]' listing relevant files with prepared download links (starting with '/api/download-proxy').

YOUR PRIMARY GOAL: If a file listed in the '[Potential Downloadable ... Files Found]' section directly matches the user's request (e.g., a specific PDF, datasheet, image), your *main response* MUST be that specific '/api/download-proxy' link, presented clearly using Markdown: `+"`[filename](link)`"+`.

SECONDARY GOAL: Briefly mention the source or provide context if helpful, but ONLY AFTER providing the mandatory direct download link if a match was found. Do NOT prioritize website links over the prepared '/api/download-proxy' link for the requested file.

EXAMPLE (if user asks for 'datasheet.pdf' and it's in the file list):
`+"```"+`
Here is the direct download link for the datasheet:
[datasheet.pdf](/api/download-proxy?url=...)

It was found on the official website.
`+"```"+`
`, query)
}

// Build assembles the generation prompt. With files present the download
// directive replaces the persona entirely.
func (l *Library) Build(query string, c Context, mode domain.Mode) string {
	var system string
	if len(c.Files) > 0 {
		system = fileDirective(query)
	} else {
		system = l.Persona(mode) + synthesizeHint
	}
	system += languageSuffix

	return fmt.Sprintf("%s\n\n--- Context (%s) ---\n%s\n--- End Context ---\n\nUser Query:\n%s\n\nAnswer:",
		system, c.Label(), c.Render(), query)
}
