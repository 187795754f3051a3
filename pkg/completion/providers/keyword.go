package providers

import (
	"github.com/walteh/qlikls/pkg/completion"
)

// KeywordProvider offers script keywords at statement level.
type KeywordProvider struct{}

func (KeywordProvider) Name() string { return "keyword" }

func (KeywordProvider) Applies(ctx completion.EditContext, cfg completion.Config) bool {
	return ctx.Kind == completion.ContextStatement && cfg.EnableKeywords
}

func (KeywordProvider) Candidates(req Request) []completion.Candidate {
	if req.Grammar == nil {
		return nil
	}

	keywords := req.Grammar.Keywords()
	out := make([]completion.Candidate, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, completion.Candidate{
			Label:      kw,
			InsertText: kw,
			Kind:       completion.KindKeyword,
			Detail:     "keyword",
			SortKey:    completion.SortKeyword + kw,
		})
	}
	return out
}
