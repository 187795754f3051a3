package providers

import (
	"strings"

	"github.com/walteh/qlikls/pkg/completion"
)

// commonFields are offered in every script, before any field is known.
var commonFields = []string{
	"ID",
	"Name",
	"Date",
	"Year",
	"Month",
	"Amount",
	"Quantity",
	"Description",
}

// FieldProvider offers bracketed field names inside "[".
type FieldProvider struct{}

func (FieldProvider) Name() string { return "field" }

func (FieldProvider) Applies(ctx completion.EditContext, cfg completion.Config) bool {
	return ctx.Kind == completion.ContextInsideField && cfg.EnableFieldNames
}

func (FieldProvider) Candidates(req Request) []completion.Candidate {
	out := make([]completion.Candidate, 0, len(commonFields)+len(req.KnownFields))

	seen := make(map[string]struct{}, cap(out))
	add := func(name, detail string) {
		name = strings.TrimSpace(strings.Trim(name, "[]"))
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}

		label := "[" + name + "]"
		out = append(out, completion.Candidate{
			Label:      label,
			InsertText: label,
			Kind:       completion.KindField,
			Detail:     detail,
			SortKey:    completion.SortField + name,
		})
	}

	for _, f := range req.KnownFields {
		add(f, "field")
	}
	for _, f := range commonFields {
		add(f, "common field")
	}
	return out
}
