// Package grammar holds the lexical tables of the Qlik load script dialect.
//
// A Grammar is built once per process (see Load) and never mutated afterwards.
// Custom rules are added with Extend, which returns a new Grammar and leaves the
// receiver untouched, so a *Grammar can be shared freely between tokenizers and
// completion providers.
package grammar

import (
	"bytes"
	"context"
	_ "embed"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

//go:embed qlik.yaml
var embeddedTable []byte

// FunctionSpec describes a built-in function for completion and hover.
type FunctionSpec struct {
	// Name is the canonical spelling (e.g. "Sum", "Date#").
	Name string
	// ParameterTemplate is the snippet placed between the parentheses,
	// e.g. "${1:text}, ${2:count}". Empty means no hand-written template.
	ParameterTemplate string
	Documentation     string
}

// SystemVariable is a built-in variable offered inside $( ).
type SystemVariable struct {
	Name          string
	Type          string
	Documentation string
}

// Snippet is a multi-line code template.
type Snippet struct {
	Label         string
	Body          string
	Documentation string
}

// Grammar is the immutable lexical table set.
type Grammar struct {
	keywords  map[string]string // upper -> canonical
	functions map[string]FunctionSpec
	operators map[string]struct{}
	maxOpLen  int

	systemVariables []SystemVariable
	snippets        []Snippet
}

type tableFile struct {
	Keywords  []string `yaml:"keywords"`
	Operators []string `yaml:"operators"`
	Functions []struct {
		Name   string `yaml:"name"`
		Params string `yaml:"params"`
		Doc    string `yaml:"doc"`
	} `yaml:"functions"`
	SystemVariables []struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
		Doc  string `yaml:"doc"`
	} `yaml:"system_variables"`
	Snippets []struct {
		Label string `yaml:"label"`
		Body  string `yaml:"body"`
		Doc   string `yaml:"doc"`
	} `yaml:"snippets"`
}

// Load builds the grammar from the embedded Qlik tables.
func Load(ctx context.Context) (*Grammar, error) {
	return parse(ctx, embeddedTable)
}

// MustLoad is Load for process start-up; the embedded table is part of the
// binary, so a failure here is a build defect.
func MustLoad(ctx context.Context) *Grammar {
	g, err := Load(ctx)
	if err != nil {
		panic(err)
	}
	return g
}

func parse(ctx context.Context, data []byte) (*Grammar, error) {
	var table tableFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		return nil, errors.Errorf("decoding grammar table: %w", err)
	}

	g := &Grammar{
		keywords:  make(map[string]string, len(table.Keywords)),
		functions: make(map[string]FunctionSpec, len(table.Functions)),
		operators: make(map[string]struct{}, len(table.Operators)),
	}

	for _, kw := range table.Keywords {
		if kw == "" {
			return nil, errors.New("grammar table has an empty keyword")
		}
		g.keywords[strings.ToUpper(kw)] = kw
	}

	for _, op := range table.Operators {
		g.addOperator(op)
	}

	for _, fn := range table.Functions {
		if fn.Name == "" {
			return nil, errors.New("grammar table has a function without a name")
		}
		g.functions[strings.ToUpper(fn.Name)] = FunctionSpec{
			Name:              fn.Name,
			ParameterTemplate: fn.Params,
			Documentation:     fn.Doc,
		}
	}

	for _, v := range table.SystemVariables {
		g.systemVariables = append(g.systemVariables, SystemVariable{Name: v.Name, Type: v.Type, Documentation: v.Doc})
	}

	for _, s := range table.Snippets {
		g.snippets = append(g.snippets, Snippet{Label: s.Label, Body: s.Body, Documentation: s.Doc})
	}

	zerolog.Ctx(ctx).Debug().
		Int("keywords", len(g.keywords)).
		Int("functions", len(g.functions)).
		Int("snippets", len(g.snippets)).
		Msg("loaded qlik grammar")

	return g, nil
}

func (g *Grammar) addOperator(op string) {
	if op == "" {
		return
	}
	g.operators[op] = struct{}{}
	if len(op) > g.maxOpLen {
		g.maxOpLen = len(op)
	}
}

// IsKeyword reports whether word is a script keyword, ignoring case.
func (g *Grammar) IsKeyword(word string) bool {
	_, ok := g.keywords[strings.ToUpper(word)]
	return ok
}

// IsFunction reports whether word names a known function, ignoring case.
func (g *Grammar) IsFunction(word string) bool {
	_, ok := g.functions[strings.ToUpper(word)]
	return ok
}

// FunctionSpec returns the spec of the named function, ignoring case.
func (g *Grammar) FunctionSpec(name string) (FunctionSpec, bool) {
	spec, ok := g.functions[strings.ToUpper(name)]
	return spec, ok
}

// IsOperator reports whether op is in the operator set.
func (g *Grammar) IsOperator(op string) bool {
	_, ok := g.operators[op]
	return ok
}

// MaxOperatorLen is the length of the longest operator.
func (g *Grammar) MaxOperatorLen() int {
	return g.maxOpLen
}

// Keywords returns the canonical keyword spellings in sorted order.
func (g *Grammar) Keywords() []string {
	out := make([]string, 0, len(g.keywords))
	for _, kw := range g.keywords {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// Functions returns every function spec sorted by name.
func (g *Grammar) Functions() []FunctionSpec {
	out := make([]FunctionSpec, 0, len(g.functions))
	for _, fn := range g.functions {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// SystemVariables returns the built-in variables in table order.
func (g *Grammar) SystemVariables() []SystemVariable {
	return append([]SystemVariable(nil), g.systemVariables...)
}

// SystemVariable looks up a built-in variable by exact name.
func (g *Grammar) SystemVariable(name string) (SystemVariable, bool) {
	for _, v := range g.systemVariables {
		if v.Name == name {
			return v, true
		}
	}
	return SystemVariable{}, false
}

// Snippets returns the code templates in table order.
func (g *Grammar) Snippets() []Snippet {
	return append([]Snippet(nil), g.snippets...)
}

// Extension carries custom rules registered by an embedding application.
type Extension struct {
	Keywords  []string
	Functions []FunctionSpec
	Operators []string
}

// Extend returns a copy of g with the extension applied. Existing functions
// with the same name are replaced by the extension's spec.
func (g *Grammar) Extend(ext Extension) *Grammar {
	out := &Grammar{
		keywords:        make(map[string]string, len(g.keywords)+len(ext.Keywords)),
		functions:       make(map[string]FunctionSpec, len(g.functions)+len(ext.Functions)),
		operators:       make(map[string]struct{}, len(g.operators)+len(ext.Operators)),
		maxOpLen:        g.maxOpLen,
		systemVariables: g.systemVariables,
		snippets:        g.snippets,
	}

	for k, v := range g.keywords {
		out.keywords[k] = v
	}
	for k, v := range g.functions {
		out.functions[k] = v
	}
	for k := range g.operators {
		out.operators[k] = struct{}{}
	}

	for _, kw := range ext.Keywords {
		if kw != "" {
			out.keywords[strings.ToUpper(kw)] = kw
		}
	}
	for _, fn := range ext.Functions {
		if fn.Name != "" {
			out.functions[strings.ToUpper(fn.Name)] = fn
		}
	}
	for _, op := range ext.Operators {
		out.addOperator(op)
	}

	return out
}
