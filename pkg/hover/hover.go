// Package hover builds the markdown shown when the cursor rests on a token.
package hover

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/completion/providers"
	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/position"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

// HoverInfo represents the information to be displayed in a hover tooltip
type HoverInfo struct {
	// Content is the markdown content to display
	Content []string
	// Range is the token the hover applies to, in byte columns
	Range position.Range
}

// BuildHoverResponse returns the hover for the token under pos, or nil when
// there is nothing to say about it.
func BuildHoverResponse(ctx context.Context, g *grammar.Grammar, doc *tokenizer.Document, pos position.Place, vars []completion.UserVariable) *HoverInfo {
	tok, ok := doc.TokenAt(pos.Line, pos.Character)
	if !ok {
		return nil
	}

	var content string
	switch tok.Kind {
	case tokenizer.KindFunction:
		content = functionHover(g, tok.Text)
	case tokenizer.KindKeyword:
		content = fmt.Sprintf("**%s** (keyword)", strings.ToUpper(tok.Text))
	case tokenizer.KindVariable:
		content = variableHover(g, tok.Text, vars)
	case tokenizer.KindField:
		content = fmt.Sprintf("Field `%s`", strings.TrimSuffix(strings.TrimPrefix(tok.Text, "["), "]"))
	}

	if content == "" {
		return nil
	}

	zerolog.Ctx(ctx).Debug().Str("token", tok.Text).Stringer("kind", tok.Kind).Msg("hover")

	return &HoverInfo{
		Content: []string{content},
		Range: position.Range{
			Start: position.Place{Line: tok.Line, Character: tok.Start},
			End:   position.Place{Line: tok.Line, Character: tok.End},
		},
	}
}

func functionHover(g *grammar.Grammar, name string) string {
	spec, ok := g.FunctionSpec(name)
	if !ok {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```qlik\n")
	sb.WriteString(providers.Signature(spec))
	sb.WriteString("\n```")
	if spec.Documentation != "" {
		sb.WriteString("\n\n")
		sb.WriteString(spec.Documentation)
	}
	return sb.String()
}

func variableHover(g *grammar.Grammar, text string, vars []completion.UserVariable) string {
	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "$("), ")"))

	for _, v := range vars {
		if v.Name != name {
			continue
		}
		out := fmt.Sprintf("**%s** (user variable)", name)
		if doc := v.Documentation(); doc != "" {
			out += "\n\n" + doc
		}
		return out
	}

	if sv, ok := g.SystemVariable(name); ok {
		out := fmt.Sprintf("**%s** (system variable)", name)
		if sv.Type != "" {
			out += "\n\nType: `" + sv.Type + "`"
		}
		if sv.Documentation != "" {
			out += "\n\n" + sv.Documentation
		}
		return out
	}

	return fmt.Sprintf("**%s** (variable expansion)", name)
}
