package providers

import (
	"regexp"

	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/grammar"
)

// FunctionProvider offers built-in functions as call snippets.
type FunctionProvider struct{}

func (FunctionProvider) Name() string { return "function" }

func (FunctionProvider) Applies(ctx completion.EditContext, cfg completion.Config) bool {
	return ctx.Kind == completion.ContextStatement && cfg.EnableFunctions
}

func (FunctionProvider) Candidates(req Request) []completion.Candidate {
	if req.Grammar == nil {
		return nil
	}

	fns := req.Grammar.Functions()
	out := make([]completion.Candidate, 0, len(fns))
	for _, fn := range fns {
		out = append(out, completion.Candidate{
			Label:         fn.Name,
			InsertText:    CallSnippet(fn),
			Kind:          completion.KindFunction,
			Detail:        Signature(fn),
			Documentation: fn.Documentation,
			SortKey:       completion.SortFunction + fn.Name,
			Snippet:       true,
		})
	}
	return out
}

// CallSnippet is the insert text for a call to fn. Functions without a
// parameter template get a bare call with the cursor between the parens.
func CallSnippet(fn grammar.FunctionSpec) string {
	if fn.ParameterTemplate == "" {
		return fn.Name + "($0)"
	}
	return fn.Name + "(" + fn.ParameterTemplate + ")"
}

// Signature renders fn as "Name(a, b)" with the placeholders stripped.
func Signature(fn grammar.FunctionSpec) string {
	return fn.Name + "(" + stripPlaceholders(fn.ParameterTemplate) + ")"
}

var (
	placeholder = regexp.MustCompile(`\$\{\d+:([^}]*)\}`)
	bareTabstop = regexp.MustCompile(`\$\d+`)
)

// stripPlaceholders turns "${1:text}, ${2:count}" into "text, count".
func stripPlaceholders(tmpl string) string {
	return bareTabstop.ReplaceAllString(placeholder.ReplaceAllString(tmpl, "$1"), "")
}
