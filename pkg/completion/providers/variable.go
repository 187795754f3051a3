package providers

import (
	"github.com/walteh/qlikls/pkg/completion"
)

// VariableProvider offers $(name) expansions. User variables always sort
// above the built-in system variables.
type VariableProvider struct{}

func (VariableProvider) Name() string { return "variable" }

func (VariableProvider) Applies(ctx completion.EditContext, cfg completion.Config) bool {
	return ctx.Kind == completion.ContextInsideVariable && cfg.EnableVariables
}

func (VariableProvider) Candidates(req Request) []completion.Candidate {
	out := make([]completion.Candidate, 0, len(req.UserVariables)+8)

	for _, v := range req.UserVariables {
		if v.Name == "" {
			continue
		}
		out = append(out, completion.Candidate{
			Label:         "$(" + v.Name + ")",
			InsertText:    "$(" + v.Name + ")",
			Kind:          completion.KindVariable,
			Detail:        detailFor(v.Type, "user variable"),
			Documentation: v.Documentation(),
			SortKey:       completion.SortUserVariable + v.Name,
			Deprecated:    v.Deprecated,
		})
	}

	if req.Grammar == nil {
		return out
	}

	for _, v := range req.Grammar.SystemVariables() {
		out = append(out, completion.Candidate{
			Label:         "$(" + v.Name + ")",
			InsertText:    "$(" + v.Name + ")",
			Kind:          completion.KindVariable,
			Detail:        detailFor(v.Type, "system variable"),
			Documentation: v.Documentation,
			SortKey:       completion.SortSystemVariable + v.Name,
		})
	}
	return out
}

func detailFor(typ, fallback string) string {
	if typ == "" {
		return fallback
	}
	return fallback + " (" + typ + ")"
}
