// Package providers produces completion candidates for one category each.
// Providers are stateless; everything they need arrives in the Request.
package providers

import (
	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/grammar"
)

// Request is the input shared by every provider for one completion call.
type Request struct {
	Context       completion.EditContext
	Grammar       *grammar.Grammar
	UserVariables []completion.UserVariable
	KnownFields   []string
	Config        completion.Config
}

// Provider emits candidates for a single category.
type Provider interface {
	Name() string
	// Applies reports whether the provider should run at all. Providers that do
	// not apply are never asked for candidates.
	Applies(ctx completion.EditContext, cfg completion.Config) bool
	Candidates(req Request) []completion.Candidate
}

// All returns the providers in category order.
func All() []Provider {
	return []Provider{
		KeywordProvider{},
		FunctionProvider{},
		FieldProvider{},
		VariableProvider{},
		SnippetProvider{},
	}
}
