package providers

import (
	"strings"

	"github.com/walteh/qlikls/pkg/completion"
)

// tableIndent is the indentation step used by the snippet bodies in the
// grammar table.
const tableIndent = "    "

// SnippetProvider offers multi-line statement templates.
type SnippetProvider struct{}

func (SnippetProvider) Name() string { return "snippet" }

func (SnippetProvider) Applies(ctx completion.EditContext, cfg completion.Config) bool {
	return ctx.Kind == completion.ContextStatement && cfg.EnableSnippets
}

func (SnippetProvider) Candidates(req Request) []completion.Candidate {
	if req.Grammar == nil {
		return nil
	}

	unit := req.Config.IndentUnit
	if unit == "" {
		unit = "\t"
	}

	snippets := req.Grammar.Snippets()
	out := make([]completion.Candidate, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, completion.Candidate{
			Label:         s.Label,
			InsertText:    Reindent(s.Body, unit),
			Kind:          completion.KindSnippet,
			Detail:        "snippet",
			Documentation: s.Documentation,
			SortKey:       completion.SortSnippet + s.Label,
			Snippet:       true,
		})
	}
	return out
}

// Reindent replaces each leading four-space step of every line with unit.
func Reindent(body, unit string) string {
	if unit == tableIndent {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		depth := 0
		for strings.HasPrefix(line, tableIndent) {
			line = line[len(tableIndent):]
			depth++
		}
		lines[i] = strings.Repeat(unit, depth) + line
	}
	return strings.Join(lines, "\n")
}
